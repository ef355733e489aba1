package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/domain/syncqueue"
)

// APIError is a non-2xx answer from the server.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("server returned %d %s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

// IsTransient reports whether err may succeed on a later attempt: transport
// failures and 5xx answers. A 4xx answer is the server rejecting the operation.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode >= http.StatusInternalServerError
	}
	return !errors.Is(err, context.Canceled)
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Client talks to the attendance API with a bearer token.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func NewClient(baseURL, token string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{baseURL: baseURL, token: token, http: httpClient}
}

// HeartbeatURL is the unauthenticated liveness endpoint used as connectivity probe.
func (c *Client) HeartbeatURL() string {
	return c.baseURL + "/"
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil && !errors.Is(err, io.EOF) {
		if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
			return fmt.Errorf("decode response: %w", err)
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		if env.Error != nil {
			apiErr.Code = env.Error.Code
			apiErr.Message = env.Error.Message
		}
		return apiErr
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decode response data: %w", err)
		}
	}
	return nil
}

// Post sends body to path and decodes the envelope data into out.
func (c *Client) Post(ctx context.Context, path string, body, out interface{}) error {
	return c.do(ctx, http.MethodPost, path, body, out)
}

// Dispatch uploads a locally queued item to the server queue and replays it
// there right away. It implements syncqueue.Dispatcher for the device queue.
func (c *Client) Dispatch(ctx context.Context, item syncqueue.Item) error {
	var stored syncqueue.ItemResponse
	err := c.do(ctx, http.MethodPost, "/api/v1/sync/items", syncqueue.EnqueueRequest{
		OperationType:   item.OperationType,
		Payload:         item.Payload,
		DeviceTimestamp: item.DeviceTimestamp,
	}, &stored)
	if err != nil {
		return fmt.Errorf("upload %s: %w", item.OperationType, err)
	}
	if stored.Status == syncqueue.StatusSynced {
		return nil
	}

	// A 409 here means a server-side flush holds the queue; the next attempt
	// sees the item as synced on upload.
	err = c.do(ctx, http.MethodPost, "/api/v1/sync/items/"+url.PathEscape(stored.ID)+"/retry", nil, &stored)
	if err != nil {
		return fmt.Errorf("replay %s: %w", item.OperationType, err)
	}

	if stored.Status != syncqueue.StatusSynced {
		msg := "server did not apply the operation"
		if stored.Error != nil {
			msg = *stored.Error
		}
		return errors.New(msg)
	}
	return nil
}
