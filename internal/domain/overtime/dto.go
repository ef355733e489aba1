package overtime

import (
	"time"

	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/pkg/validator"
)

type RespondRequest struct {
	EmployeeID   string `json:"-"`
	CompanyID    string `json:"-"`
	AttendanceID string `json:"attendance_id"`
	Approve      *bool  `json:"approve"`
}

func (r *RespondRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.AttendanceID) {
		errs = append(errs, validator.ValidationError{Field: "attendance_id", Message: "attendance_id is required"})
	} else if !validator.IsValidUUID(r.AttendanceID) {
		errs = append(errs, validator.ValidationError{Field: "attendance_id", Message: "attendance_id must be a valid UUID"})
	}
	if r.Approve == nil {
		errs = append(errs, validator.ValidationError{Field: "approve", Message: "approve is required"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type StatusResponse struct {
	AttendanceID string     `json:"attendance_id"`
	State        State      `json:"state"`
	PromptedAt   *time.Time `json:"prompted_at,omitempty"`
	Deadline     *time.Time `json:"deadline,omitempty"`
	RespondedAt  *time.Time `json:"responded_at,omitempty"`
	Approved     *bool      `json:"approved,omitempty"`
	StartTime    *time.Time `json:"start_time,omitempty"`
}

// TickResult summarises one scheduler pass.
type TickResult struct {
	Prompted     int
	AutoDeclined int
	Failed       int
}
