package attendance

import (
	"context"
	"time"

	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/domain/overtime"
)

// OvertimeTransition moves a session between overtime states. It applies only
// while the stored state still equals From and the session is open.
type OvertimeTransition struct {
	AttendanceID string
	From         overtime.State
	To           overtime.State
	PromptedAt   *time.Time
	StartTime    *time.Time
	RespondedAt  *time.Time
	Approved     *bool
}

// AttendanceRepository defines data access methods for attendance records.
type AttendanceRepository interface {
	// Create fails with ErrAlreadyClockedIn when the employee has an open session.
	Create(ctx context.Context, attendance Attendance) (Attendance, error)

	// GetByID retrieves attendance by ID with company isolation
	GetByID(ctx context.Context, id string, companyID string) (Attendance, error)

	// GetByClientRef finds the session created by a given client reference, or nil.
	GetByClientRef(ctx context.Context, employeeID string, clientRef string) (*Attendance, error)

	// GetByClockOutClientRef finds the session closed by a given client reference, or nil.
	GetByClockOutClientRef(ctx context.Context, employeeID string, clientRef string) (*Attendance, error)

	// GetOpenSession returns the employee's open session, or nil.
	GetOpenSession(ctx context.Context, employeeID string) (*Attendance, error)

	// Close writes the clock-out fields. It fails with ErrAlreadyClockedOut when
	// the session was closed concurrently.
	Close(ctx context.Context, attendance Attendance) error

	// UpdateOvertime persists a state change, or overtime.ErrStateConflict.
	UpdateOvertime(ctx context.Context, t OvertimeTransition) error

	// ListOpenInOvertimeFlow returns open sessions not yet past the prompt flow.
	ListOpenInOvertimeFlow(ctx context.Context) ([]Attendance, error)

	// ListStaleOpen returns open sessions that started before the cutoff.
	ListStaleOpen(ctx context.Context, before time.Time) ([]Attendance, error)

	List(ctx context.Context, filter Filter) ([]Attendance, int64, error)
}

type BreakRepository interface {
	GetByID(ctx context.Context, id string) (*Break, error)
	Upsert(ctx context.Context, b Break) (Break, error)
	ListByAttendance(ctx context.Context, attendanceID string) ([]Break, error)
}

type WeekendConfirmationRepository interface {
	Upsert(ctx context.Context, c WeekendConfirmation) (WeekendConfirmation, error)
	ListByEmployee(ctx context.Context, employeeID string, limit int) ([]WeekendConfirmation, error)
}

type OvertimeRateRepository interface {
	// Get returns the rate for the shift kind, or nil when none is configured.
	Get(ctx context.Context, companyID string, isNightShift bool) (*OvertimeRate, error)
	Upsert(ctx context.Context, rate OvertimeRate) (OvertimeRate, error)
	List(ctx context.Context, companyID string) ([]OvertimeRate, error)
}
