package syncqueue

import (
	"encoding/json"
	"time"

	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/pkg/validator"
)

type EnqueueRequest struct {
	EmployeeID      string          `json:"-"`
	CompanyID       string          `json:"-"`
	OperationType   OperationType   `json:"operation_type"`
	Payload         json.RawMessage `json:"payload"`
	DeviceTimestamp time.Time       `json:"device_timestamp"`
}

func (r *EnqueueRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.EmployeeID) {
		errs = append(errs, validator.ValidationError{Field: "employee_id", Message: "employee_id is required"})
	}
	if validator.IsEmpty(r.CompanyID) {
		errs = append(errs, validator.ValidationError{Field: "company_id", Message: "company_id is required"})
	}
	if r.DeviceTimestamp.IsZero() {
		errs = append(errs, validator.ValidationError{Field: "device_timestamp", Message: "device_timestamp is required"})
	}
	if !r.OperationType.IsValid() {
		errs = append(errs, validator.ValidationError{Field: "operation_type", Message: "operation_type must be one of clock_in, clock_out, break_start, break_end"})
	} else {
		errs = append(errs, ValidatePayload(r.OperationType, r.Payload)...)
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// BatchEnqueueRequest uploads a device queue in its local order.
type BatchEnqueueRequest struct {
	EmployeeID string           `json:"-"`
	CompanyID  string           `json:"-"`
	Items      []EnqueueRequest `json:"items"`
	Flush      bool             `json:"flush"`
}

func (r *BatchEnqueueRequest) Validate() error {
	var errs validator.ValidationErrors

	if len(r.Items) == 0 {
		errs = append(errs, validator.ValidationError{Field: "items", Message: "at least one item is required"})
	}
	if len(r.Items) > 500 {
		errs = append(errs, validator.ValidationError{Field: "items", Message: "at most 500 items per batch"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type Filter struct {
	EmployeeID *string
	CompanyID  string
	Status     *Status
	Page       int
	PageSize   int
}

type ItemResponse struct {
	ID              string          `json:"id"`
	OperationType   OperationType   `json:"operation_type"`
	Payload         json.RawMessage `json:"payload"`
	DeviceTimestamp time.Time       `json:"device_timestamp"`
	IdempotencyKey  string          `json:"idempotency_key"`
	Status          Status          `json:"sync_status"`
	Attempts        int             `json:"sync_attempts"`
	LastAttemptAt   *time.Time      `json:"last_sync_attempt,omitempty"`
	Error           *string         `json:"sync_error,omitempty"`
	SyncedAt        *time.Time      `json:"synced_at,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	AttemptsCapped  bool            `json:"attempts_capped"`
}

type BatchEnqueueResponse struct {
	Items  []ItemResponse `json:"items"`
	Flush  *FlushResult   `json:"flush,omitempty"`
	Queued int            `json:"queued"`
}

type ListResponse struct {
	Items        []ItemResponse `json:"items"`
	PendingCount int            `json:"pending_count"`
	TotalCount   int64          `json:"total_count"`
	Page         int            `json:"page"`
	PageSize     int            `json:"page_size"`
}

// FlushResult summarises one pass over a queue snapshot.
type FlushResult struct {
	Processed int `json:"processed"`
	Synced    int `json:"synced"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
}

func (r *FlushResult) Add(other FlushResult) {
	r.Processed += other.Processed
	r.Synced += other.Synced
	r.Failed += other.Failed
	r.Skipped += other.Skipped
}

func ToItemResponse(i Item, maxAttempts int) ItemResponse {
	return ItemResponse{
		ID:              i.ID,
		OperationType:   i.OperationType,
		Payload:         i.Payload,
		DeviceTimestamp: i.DeviceTimestamp,
		IdempotencyKey:  i.IdempotencyKey,
		Status:          i.Status,
		Attempts:        i.Attempts,
		LastAttemptAt:   i.LastAttemptAt,
		Error:           i.Error,
		SyncedAt:        i.SyncedAt,
		CreatedAt:       i.CreatedAt,
		AttemptsCapped:  i.Status != StatusSynced && !i.Replayable(maxAttempts),
	}
}
