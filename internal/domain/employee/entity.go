package employee

import "time"

// Employee is the attendance-relevant view of a staff record. Profile data is
// owned elsewhere.
type Employee struct {
	ID               string
	UserID           *string
	CompanyID        string
	BranchID         *string
	FullName         string
	IsManager        bool
	EmploymentStatus EmploymentStatus
	CreatedAt        time.Time
	UpdatedAt        time.Time
	DeletedAt        *time.Time
}

type EmploymentStatus string

const (
	EmploymentStatusActive   EmploymentStatus = "active"
	EmploymentStatusInactive EmploymentStatus = "inactive"
)

func (e Employee) IsActive() bool {
	return e.EmploymentStatus == EmploymentStatusActive && e.DeletedAt == nil
}
