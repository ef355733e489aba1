package attendance

import (
	"time"

	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/domain/overtime"
	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/pkg/fingerprint"
	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/pkg/validator"
)

// maxClockSkew bounds how far a reported timestamp may lead the server clock.
const maxClockSkew = 5 * time.Minute

// ========================================
// ATTENDANCE DTOs
// ========================================

type ClockInRequest struct {
	EmployeeID        string                  `json:"-"`
	CompanyID         string                  `json:"-"`
	Timestamp         time.Time               `json:"timestamp"`
	LocationType      LocationType            `json:"location_type"`
	BranchID          *string                 `json:"branch_id,omitempty"`
	Latitude          *float64                `json:"latitude,omitempty"`
	Longitude         *float64                `json:"longitude,omitempty"`
	Accuracy          *float64                `json:"accuracy,omitempty"`
	FieldReason       *string                 `json:"field_reason,omitempty"`
	FieldDescription  *string                 `json:"field_description,omitempty"`
	DeviceFingerprint *string                 `json:"device_fingerprint,omitempty"`
	DeviceAttributes  *fingerprint.Attributes `json:"device_attributes,omitempty"`
	ClientRef         *string                 `json:"client_ref,omitempty"`
	Source            Source                  `json:"-"`
}

func (r *ClockInRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.EmployeeID) {
		errs = append(errs, validator.ValidationError{Field: "employee_id", Message: "employee_id is required"})
	}
	if validator.IsEmpty(r.CompanyID) {
		errs = append(errs, validator.ValidationError{Field: "company_id", Message: "company_id is required"})
	}
	errs = append(errs, validateTimestamp(r.Timestamp)...)

	switch r.LocationType {
	case LocationOffice:
		if r.BranchID == nil || validator.IsEmpty(*r.BranchID) {
			errs = append(errs, validator.ValidationError{Field: "branch_id", Message: "branch_id is required for office clock-in"})
		}
		if r.Latitude == nil || r.Longitude == nil {
			errs = append(errs, validator.ValidationError{Field: "latitude", Message: "latitude and longitude are required for office clock-in"})
		}
	case LocationField:
		if r.FieldReason == nil || validator.IsEmpty(*r.FieldReason) {
			errs = append(errs, validator.ValidationError{Field: "field_reason", Message: "field_reason is required for field clock-in"})
		}
		if r.FieldDescription == nil || validator.IsEmpty(*r.FieldDescription) {
			errs = append(errs, validator.ValidationError{Field: "field_description", Message: "field_description is required for field clock-in"})
		}
	default:
		errs = append(errs, validator.ValidationError{Field: "location_type", Message: "location_type must be office or field"})
	}

	errs = append(errs, validateCoordinates(r.Latitude, r.Longitude)...)

	if len(errs) > 0 {
		return errs
	}

	return nil
}

type ClockOutRequest struct {
	EmployeeID string `json:"-"`
	CompanyID  string `json:"-"`
	// AttendanceID defaults to the employee's open session.
	AttendanceID *string   `json:"attendance_id,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
	Latitude     *float64  `json:"latitude,omitempty"`
	Longitude    *float64  `json:"longitude,omitempty"`
	ClientRef    *string   `json:"client_ref,omitempty"`
	Source       Source    `json:"-"`
}

func (r *ClockOutRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.EmployeeID) {
		errs = append(errs, validator.ValidationError{Field: "employee_id", Message: "employee_id is required"})
	}
	if validator.IsEmpty(r.CompanyID) {
		errs = append(errs, validator.ValidationError{Field: "company_id", Message: "company_id is required"})
	}
	if r.AttendanceID != nil && !validator.IsValidUUID(*r.AttendanceID) {
		errs = append(errs, validator.ValidationError{Field: "attendance_id", Message: "attendance_id must be a valid UUID"})
	}
	errs = append(errs, validateTimestamp(r.Timestamp)...)
	errs = append(errs, validateCoordinates(r.Latitude, r.Longitude)...)

	if len(errs) > 0 {
		return errs
	}

	return nil
}

type BreakRequest struct {
	EmployeeID string `json:"-"`
	CompanyID  string `json:"-"`
	BreakID    string `json:"break_id"`
	// AttendanceID defaults to the employee's open session.
	AttendanceID *string   `json:"attendance_id,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

func (r *BreakRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.EmployeeID) {
		errs = append(errs, validator.ValidationError{Field: "employee_id", Message: "employee_id is required"})
	}
	if !validator.IsValidUUID(r.BreakID) {
		errs = append(errs, validator.ValidationError{Field: "break_id", Message: "break_id must be a valid UUID"})
	}
	if r.AttendanceID != nil && !validator.IsValidUUID(*r.AttendanceID) {
		errs = append(errs, validator.ValidationError{Field: "attendance_id", Message: "attendance_id must be a valid UUID"})
	}
	errs = append(errs, validateTimestamp(r.Timestamp)...)

	if len(errs) > 0 {
		return errs
	}

	return nil
}

type WeekendConfirmationRequest struct {
	EmployeeID string `json:"-"`
	CompanyID  string `json:"-"`
	WeekStart  string `json:"week_start"` // date of the Saturday, YYYY-MM-DD
	Saturday   bool   `json:"saturday"`
	Sunday     bool   `json:"sunday"`
}

func (r *WeekendConfirmationRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.EmployeeID) {
		errs = append(errs, validator.ValidationError{Field: "employee_id", Message: "employee_id is required"})
	}
	date, ok := validator.IsValidDate(r.WeekStart)
	if !ok {
		errs = append(errs, validator.ValidationError{Field: "week_start", Message: "week_start must use YYYY-MM-DD format"})
	} else if date.Weekday() != time.Saturday {
		errs = append(errs, validator.ValidationError{Field: "week_start", Message: ErrInvalidWeekStart.Error()})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

type SetOvertimeRateRequest struct {
	CompanyID    string  `json:"-"`
	IsNightShift bool    `json:"is_night_shift"`
	HourlyRate   float64 `json:"hourly_rate"`
}

func (r *SetOvertimeRateRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.CompanyID) {
		errs = append(errs, validator.ValidationError{Field: "company_id", Message: "company_id is required"})
	}
	if r.HourlyRate < 0 {
		errs = append(errs, validator.ValidationError{Field: "hourly_rate", Message: "hourly_rate must not be negative"})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

// Filter selects attendance rows of one company.
type Filter struct {
	CompanyID  string
	EmployeeID *string
	From       *time.Time
	To         *time.Time
	OpenOnly   bool
	Page       int
	PageSize   int
}

func (f *Filter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 || f.PageSize > 100 {
		f.PageSize = 20
	}
}

func validateTimestamp(ts time.Time) validator.ValidationErrors {
	if ts.IsZero() {
		return validator.ValidationErrors{{Field: "timestamp", Message: "timestamp is required"}}
	}
	if ts.After(time.Now().Add(maxClockSkew)) {
		return validator.ValidationErrors{{Field: "timestamp", Message: "timestamp must not be in the future"}}
	}
	return nil
}

func validateCoordinates(lat, lon *float64) validator.ValidationErrors {
	var errs validator.ValidationErrors
	if lat != nil && !validator.IsValidLatitude(*lat) {
		errs = append(errs, validator.ValidationError{Field: "latitude", Message: "latitude must be between -90 and 90"})
	}
	if lon != nil && !validator.IsValidLongitude(*lon) {
		errs = append(errs, validator.ValidationError{Field: "longitude", Message: "longitude must be between -180 and 180"})
	}
	return errs
}

// ========================================
// RESPONSES
// ========================================

type AttendanceResponse struct {
	ID                  string          `json:"id"`
	EmployeeID          string          `json:"employee_id"`
	EmployeeName        *string         `json:"employee_name,omitempty"`
	BranchID            *string         `json:"branch_id,omitempty"`
	ClockInTime         time.Time       `json:"clock_in_time"`
	ClockOutTime        *time.Time      `json:"clock_out_time,omitempty"`
	ClockInLatitude     *float64        `json:"clock_in_latitude,omitempty"`
	ClockInLongitude    *float64        `json:"clock_in_longitude,omitempty"`
	ClockOutLatitude    *float64        `json:"clock_out_latitude,omitempty"`
	ClockOutLongitude   *float64        `json:"clock_out_longitude,omitempty"`
	LocationType        LocationType    `json:"location_type"`
	FieldReason         *string         `json:"field_reason,omitempty"`
	FieldDescription    *string         `json:"field_description,omitempty"`
	IsNightShift        bool            `json:"is_night_shift"`
	IsWithinGeofence    *bool           `json:"is_within_geofence,omitempty"`
	DistanceFromOffice  *float64        `json:"distance_from_office,omitempty"`
	DeviceChanged       bool            `json:"device_changed"`
	OvertimeState       overtime.State  `json:"overtime_state"`
	OvertimeHours       *float64        `json:"overtime_hours,omitempty"`
	OvertimeAmount      *float64        `json:"overtime_amount,omitempty"`
	OvertimeApproved    *bool           `json:"overtime_approved,omitempty"`
	OvertimeStartTime   *time.Time      `json:"overtime_start_time,omitempty"`
	OvertimePromptedAt  *time.Time      `json:"overtime_prompted_at,omitempty"`
	OvertimeRespondedAt *time.Time      `json:"overtime_responded_at,omitempty"`
	TotalHours          *float64        `json:"total_hours,omitempty"`
	Source              Source          `json:"source"`
	Breaks              []BreakResponse `json:"breaks,omitempty"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

type BreakResponse struct {
	ID              string     `json:"id"`
	AttendanceID    string     `json:"attendance_id"`
	BreakStart      *time.Time `json:"break_start,omitempty"`
	BreakEnd        *time.Time `json:"break_end,omitempty"`
	DurationMinutes *float64   `json:"duration_minutes,omitempty"`
}

type WeekendConfirmationResponse struct {
	WeekStart   string    `json:"week_start"`
	Saturday    bool      `json:"saturday"`
	Sunday      bool      `json:"sunday"`
	ConfirmedAt time.Time `json:"confirmed_at"`
}

type OvertimeRateResponse struct {
	IsNightShift bool    `json:"is_night_shift"`
	HourlyRate   float64 `json:"hourly_rate"`
}

type ListAttendanceResponse struct {
	Attendances []AttendanceResponse `json:"attendances"`
	TotalCount  int64                `json:"total_count"`
	Page        int                  `json:"page"`
	PageSize    int                  `json:"page_size"`
}

func ToResponse(a Attendance) AttendanceResponse {
	return AttendanceResponse{
		ID:                  a.ID,
		EmployeeID:          a.EmployeeID,
		EmployeeName:        a.EmployeeName,
		BranchID:            a.BranchID,
		ClockInTime:         a.ClockInTime,
		ClockOutTime:        a.ClockOutTime,
		ClockInLatitude:     a.ClockInLatitude,
		ClockInLongitude:    a.ClockInLongitude,
		ClockOutLatitude:    a.ClockOutLatitude,
		ClockOutLongitude:   a.ClockOutLongitude,
		LocationType:        a.LocationType,
		FieldReason:         a.FieldReason,
		FieldDescription:    a.FieldDescription,
		IsNightShift:        a.IsNightShift,
		IsWithinGeofence:    a.IsWithinGeofence,
		DistanceFromOffice:  a.DistanceFromOffice,
		DeviceChanged:       a.DeviceChanged,
		OvertimeState:       a.OvertimeState,
		OvertimeHours:       a.OvertimeHours,
		OvertimeAmount:      a.OvertimeAmount,
		OvertimeApproved:    a.OvertimeApproved,
		OvertimeStartTime:   a.OvertimeStartTime,
		OvertimePromptedAt:  a.OvertimePromptedAt,
		OvertimeRespondedAt: a.OvertimeRespondedAt,
		TotalHours:          a.TotalHours,
		Source:              a.Source,
		CreatedAt:           a.CreatedAt,
		UpdatedAt:           a.UpdatedAt,
	}
}

func ToBreakResponse(b Break) BreakResponse {
	return BreakResponse{
		ID:              b.ID,
		AttendanceID:    b.AttendanceID,
		BreakStart:      b.BreakStart,
		BreakEnd:        b.BreakEnd,
		DurationMinutes: b.DurationMinutes,
	}
}
