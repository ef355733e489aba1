package connectivity

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// Probe returns nil when the remote side is reachable.
type Probe func(ctx context.Context) error

// Monitor polls a probe and fires reconnect listeners on every offline -> online transition.
// It starts in the offline state so the first successful probe counts as a reconnect.
type Monitor struct {
	probe    Probe
	interval time.Duration

	mu        sync.Mutex
	online    bool
	listeners []func(ctx context.Context)
}

func NewMonitor(probe Probe, interval time.Duration) *Monitor {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &Monitor{probe: probe, interval: interval}
}

// OnReconnect registers fn to run after each offline -> online transition.
func (m *Monitor) OnReconnect(fn func(ctx context.Context)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

// Online reports the last observed connectivity.
func (m *Monitor) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// Check probes once and returns the resulting state. Listeners run synchronously.
func (m *Monitor) Check(ctx context.Context) bool {
	err := m.probe(ctx)
	nowOnline := err == nil

	m.mu.Lock()
	wasOnline := m.online
	m.online = nowOnline
	listeners := append([]func(context.Context){}, m.listeners...)
	m.mu.Unlock()

	switch {
	case !wasOnline && nowOnline:
		slog.Info("Connectivity restored")
		for _, fn := range listeners {
			fn(ctx)
		}
	case wasOnline && !nowOnline:
		slog.Warn("Connectivity lost", "error", err)
	}
	return nowOnline
}

// Run checks immediately and then on every interval until ctx is done.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.Check(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Check(ctx)
		}
	}
}

// HTTPProbe builds a probe that expects a 2xx answer from url.
func HTTPProbe(client *http.Client, url string) Probe {
	return func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		resp, err := client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return fmt.Errorf("probe %s returned status %d", url, resp.StatusCode)
		}
		return nil
	}
}
