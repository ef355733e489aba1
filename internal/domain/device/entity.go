package device

import (
	"time"

	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/pkg/fingerprint"
)

// Device is a fingerprint observed for an employee.
type Device struct {
	ID          string
	EmployeeID  string
	CompanyID   string
	Fingerprint string
	Attributes  fingerprint.Attributes
	FirstSeenAt time.Time
	LastSeenAt  time.Time
}
