package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/pkg/database"
	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/pkg/sse"
)

// Channel is the notification channel written by the attendance triggers.
const Channel = "attendance_changes"

// Change is the payload published by notify_attendance_change().
type Change struct {
	Table      string  `json:"table"`
	Op         string  `json:"op"`
	ID         string  `json:"id"`
	EmployeeID string  `json:"employee_id"`
	CompanyID  string  `json:"company_id"`
	UserID     *string `json:"user_id"`
}

// EventName is the SSE event name a change is delivered under.
func (c Change) EventName() string {
	return c.Table + "." + c.Op
}

// Publisher receives decoded changes.
type Publisher interface {
	Publish(userID string, event sse.Event)
}

// Listener republishes row changes from PostgreSQL to connected SSE streams.
type Listener struct {
	db           *database.DB
	publisher    Publisher
	retryBackoff time.Duration
}

func NewListener(db *database.DB, publisher Publisher) *Listener {
	return &Listener{
		db:           db,
		publisher:    publisher,
		retryBackoff: 5 * time.Second,
	}
}

// Run holds a dedicated connection on LISTEN until ctx is cancelled,
// reconnecting after connection failures.
func (l *Listener) Run(ctx context.Context) {
	for {
		err := l.listen(ctx)
		if ctx.Err() != nil {
			slog.Info("Realtime listener stopped")
			return
		}
		slog.Error("Realtime listener disconnected", "error", err, "retry_in", l.retryBackoff)

		select {
		case <-ctx.Done():
			return
		case <-time.After(l.retryBackoff):
		}
	}
}

func (l *Listener) listen(ctx context.Context) error {
	conn, err := l.db.Pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{Channel}.Sanitize()); err != nil {
		return fmt.Errorf("failed to listen on %s: %w", Channel, err)
	}
	slog.Info("Realtime listener started", "channel", Channel)

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return err
		}
		l.Dispatch(n.Payload)
	}
}

// Dispatch decodes one notification payload and forwards it to the affected user.
func (l *Listener) Dispatch(payload string) {
	var change Change
	if err := json.Unmarshal([]byte(payload), &change); err != nil {
		slog.Warn("Realtime payload ignored", "error", err)
		return
	}
	if change.UserID == nil || *change.UserID == "" {
		return
	}
	l.publisher.Publish(*change.UserID, sse.Event{
		Event: change.EventName(),
		Data:  change,
	})
}
