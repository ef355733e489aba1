package device

import (
	"time"

	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/pkg/fingerprint"
	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/pkg/validator"
)

type CheckRequest struct {
	EmployeeID  string                  `json:"-"`
	CompanyID   string                  `json:"-"`
	Fingerprint string                  `json:"fingerprint,omitempty"`
	Attributes  *fingerprint.Attributes `json:"attributes,omitempty"`
}

func (r *CheckRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.EmployeeID) {
		errs = append(errs, validator.ValidationError{Field: "employee_id", Message: "employee_id is required"})
	}
	if validator.IsEmpty(r.Fingerprint) && r.Attributes == nil {
		errs = append(errs, validator.ValidationError{Field: "fingerprint", Message: "fingerprint or attributes is required"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// CheckResponse is advisory. A changed device never blocks attendance.
type CheckResponse struct {
	Fingerprint  string     `json:"fingerprint"`
	IsNew        bool       `json:"is_new"`
	Changed      bool       `json:"changed"`
	Previous     *string    `json:"previous_fingerprint,omitempty"`
	KnownDevices int        `json:"known_devices"`
	FirstSeenAt  *time.Time `json:"first_seen_at,omitempty"`
}

type DeviceResponse struct {
	Fingerprint string    `json:"fingerprint"`
	FirstSeenAt time.Time `json:"first_seen_at"`
	LastSeenAt  time.Time `json:"last_seen_at"`
}
