package attendance

import (
	"math"
	"time"

	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/domain/overtime"
)

type LocationType string

const (
	LocationOffice LocationType = "office"
	LocationField  LocationType = "field"
)

// Source records how an attendance write reached the server.
type Source string

const (
	SourceOnline Source = "online"
	SourceSync   Source = "sync"
	SourceSystem Source = "system"
)

type Attendance struct {
	ID                  string
	EmployeeID          string
	CompanyID           string
	BranchID            *string
	ClockInTime         time.Time
	ClockOutTime        *time.Time
	ClockInLatitude     *float64
	ClockInLongitude    *float64
	ClockOutLatitude    *float64
	ClockOutLongitude   *float64
	LocationType        LocationType
	FieldReason         *string
	FieldDescription    *string
	IsNightShift        bool
	IsWithinGeofence    *bool
	DistanceFromOffice  *float64
	DeviceFingerprint   *string
	DeviceChanged       bool
	OvertimeState       overtime.State
	OvertimeHours       *float64
	OvertimeAmount      *float64
	OvertimeApproved    *bool
	OvertimeStartTime   *time.Time
	OvertimePromptedAt  *time.Time
	OvertimeRespondedAt *time.Time
	TotalHours          *float64
	ClientRef           *string
	ClockOutClientRef   *string
	Source              Source
	CreatedAt           time.Time
	UpdatedAt           time.Time

	// DTO / Join
	EmployeeName *string
}

func (a Attendance) IsOpen() bool {
	return a.ClockOutTime == nil
}

// Break is keyed by a client generated id so start and end can arrive separately.
type Break struct {
	ID              string
	AttendanceID    string
	EmployeeID      string
	CompanyID       string
	BreakStart      *time.Time
	BreakEnd        *time.Time
	DurationMinutes *float64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ComputeDuration sets DurationMinutes once both ends are known.
func (b *Break) ComputeDuration() {
	if b.BreakStart == nil || b.BreakEnd == nil {
		b.DurationMinutes = nil
		return
	}
	d := b.BreakEnd.Sub(*b.BreakStart)
	if d < 0 {
		d = 0
	}
	minutes := round2(d.Minutes())
	b.DurationMinutes = &minutes
}

// WeekendConfirmation is informational scheduling data and never affects charges.
type WeekendConfirmation struct {
	ID          string
	EmployeeID  string
	CompanyID   string
	WeekStart   time.Time
	Saturday    bool
	Sunday      bool
	ConfirmedAt time.Time
}

type OvertimeRate struct {
	ID           string
	CompanyID    string
	IsNightShift bool
	HourlyRate   float64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsNightShift classifies a session by the local hour it starts in. The window
// wraps midnight when startHour > endHour.
func IsNightShift(clockIn time.Time, loc *time.Location, startHour, endHour int) bool {
	if loc == nil {
		loc = time.UTC
	}
	h := clockIn.In(loc).Hour()
	if startHour == endHour {
		return false
	}
	if startHour > endHour {
		return h >= startHour || h < endHour
	}
	return h >= startHour && h < endHour
}

// WorkedHours is the session length minus breaks, in hours. Each break is
// clamped to the session and a break still open ends at clockOut.
func WorkedHours(clockIn, clockOut time.Time, breaks []Break) float64 {
	worked := clockOut.Sub(clockIn)
	for _, b := range breaks {
		if b.BreakStart == nil {
			continue
		}
		start, end := *b.BreakStart, clockOut
		if b.BreakEnd != nil {
			end = *b.BreakEnd
		}
		if start.Before(clockIn) {
			start = clockIn
		}
		if end.After(clockOut) {
			end = clockOut
		}
		if d := end.Sub(start); d > 0 {
			worked -= d
		}
	}
	if worked < 0 {
		worked = 0
	}
	return round2(worked.Hours())
}

// OvertimeHours is the time worked past start, never negative.
func OvertimeHours(start, clockOut time.Time) float64 {
	if !clockOut.After(start) {
		return 0
	}
	return round2(clockOut.Sub(start).Hours())
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
