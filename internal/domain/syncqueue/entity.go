package syncqueue

import (
	"encoding/json"
	"time"
)

type OperationType string

const (
	OpClockIn    OperationType = "clock_in"
	OpClockOut   OperationType = "clock_out"
	OpBreakStart OperationType = "break_start"
	OpBreakEnd   OperationType = "break_end"
)

func (o OperationType) IsValid() bool {
	switch o {
	case OpClockIn, OpClockOut, OpBreakStart, OpBreakEnd:
		return true
	}
	return false
}

type Status string

const (
	StatusPending Status = "pending"
	StatusSynced  Status = "synced"
	StatusFailed  Status = "failed"
)

// Item is one attendance operation waiting to be applied.
type Item struct {
	ID              string
	Seq             int64
	EmployeeID      string
	CompanyID       string
	OperationType   OperationType
	Payload         json.RawMessage
	DeviceTimestamp time.Time
	IdempotencyKey  string
	Status          Status
	Attempts        int
	LastAttemptAt   *time.Time
	Error           *string
	SyncedAt        *time.Time
	CreatedAt       time.Time
}

// Replayable reports whether a flush may dispatch the item under maxAttempts.
// A maxAttempts of 0 never caps.
func (i Item) Replayable(maxAttempts int) bool {
	if i.Status == StatusSynced {
		return false
	}
	return maxAttempts <= 0 || i.Attempts < maxAttempts
}

// IdempotencyKey identifies an operation across duplicate deliveries.
func IdempotencyKey(employeeID string, op OperationType, deviceTimestamp time.Time) string {
	return employeeID + ":" + string(op) + ":" + deviceTimestamp.UTC().Format(time.RFC3339Nano)
}

// Owner identifies one per-employee queue.
type Owner struct {
	EmployeeID string
	CompanyID  string
}
