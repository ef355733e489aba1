package attendance

import (
	"context"
	"time"
)

// AttendanceService defines business logic for attendance operations
type AttendanceService interface {
	// ClockIn opens a session. Replays carrying an applied ClientRef return the existing session.
	ClockIn(ctx context.Context, req ClockInRequest) (AttendanceResponse, error)

	// ClockOut closes a session and derives hours, overtime and early departure charges.
	ClockOut(ctx context.Context, req ClockOutRequest) (AttendanceResponse, error)

	StartBreak(ctx context.Context, req BreakRequest) (BreakResponse, error)
	EndBreak(ctx context.Context, req BreakRequest) (BreakResponse, error)

	// ConfirmWeekendWork stores the Saturday/Sunday flags of a week.
	ConfirmWeekendWork(ctx context.Context, req WeekendConfirmationRequest) (WeekendConfirmationResponse, error)
	ListWeekendConfirmations(ctx context.Context, employeeID string) ([]WeekendConfirmationResponse, error)

	GetOpenSession(ctx context.Context, employeeID string) (*AttendanceResponse, error)
	GetAttendance(ctx context.Context, id string, companyID string) (AttendanceResponse, error)
	ListAttendance(ctx context.Context, filter Filter) (ListAttendanceResponse, error)

	SetOvertimeRate(ctx context.Context, req SetOvertimeRateRequest) (OvertimeRateResponse, error)
	ListOvertimeRates(ctx context.Context, companyID string) ([]OvertimeRateResponse, error)

	// CloseStaleSessions closes sessions open longer than maxOpen.
	CloseStaleSessions(ctx context.Context, maxOpen time.Duration) (int, error)
}
