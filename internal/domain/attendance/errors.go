package attendance

import "errors"

// Attendance domain errors
var (
	ErrAlreadyClockedIn  = errors.New("you already have an open attendance session")
	ErrNotClockedIn      = errors.New("you have not clocked in yet")
	ErrAlreadyClockedOut = errors.New("attendance session is already closed")
	ErrClockOutBeforeIn  = errors.New("clock-out time is before clock-in time")
	ErrBranchRequired    = errors.New("a branch is required for office clock-in")

	// ErrDuplicateClientRef is returned by repositories when a concurrent
	// delivery already applied the same client reference.
	ErrDuplicateClientRef = errors.New("operation already applied")

	ErrBreakNotFound       = errors.New("break record not found")
	ErrBreakBelongsToOther = errors.New("break belongs to another attendance session")

	ErrInvalidWeekStart = errors.New("week_start must be a Saturday")

	// General errors
	ErrAttendanceNotFound = errors.New("attendance record not found")
	ErrUnauthorized       = errors.New("unauthorized to access this attendance record")
	ErrRateNotFound       = errors.New("overtime rate not found")
)
