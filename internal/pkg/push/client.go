package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/config"
)

// Message is a push payload addressed to a list of users.
type Message struct {
	Title         string                 `json:"title"`
	Message       string                 `json:"message"`
	TargetUserIDs []string               `json:"target_user_ids"`
	Data          map[string]interface{} `json:"data,omitempty"`
}

// Dispatcher sends push messages without waiting for delivery.
type Dispatcher interface {
	Dispatch(msg Message)
}

type providerRequest struct {
	AppID                  string                 `json:"app_id"`
	Headings               map[string]string      `json:"headings"`
	Contents               map[string]string      `json:"contents"`
	IncludeExternalUserIDs []string               `json:"include_external_user_ids"`
	Data                   map[string]interface{} `json:"data,omitempty"`
}

// APIError represents a non-2xx answer from the push provider
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("push provider error [%d]: %s", e.StatusCode, e.Body)
}

// Client posts notifications to the configured push provider.
type Client struct {
	httpClient *http.Client
	cfg        config.PushConfig
}

func NewClient(cfg config.PushConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		cfg:        cfg,
	}
}

// Dispatch sends msg in the background. Failures are logged and never retried.
func (c *Client) Dispatch(msg Message) {
	if !c.cfg.Enabled || len(msg.TargetUserIDs) == 0 {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), c.httpClient.Timeout)
		defer cancel()
		if err := c.Send(ctx, msg); err != nil {
			slog.Error("Push dispatch failed", "title", msg.Title, "targets", len(msg.TargetUserIDs), "error", err)
		}
	}()
}

// Send performs the provider call synchronously.
func (c *Client) Send(ctx context.Context, msg Message) error {
	body, err := json.Marshal(providerRequest{
		AppID:                  c.cfg.AppID,
		Headings:               map[string]string{"en": msg.Title},
		Contents:               map[string]string{"en": msg.Message},
		IncludeExternalUserIDs: msg.TargetUserIDs,
		Data:                   msg.Data,
	})
	if err != nil {
		return fmt.Errorf("failed to encode push request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Basic "+c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call push provider: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	return nil
}
