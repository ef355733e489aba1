package geofence

import (
	"time"

	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/pkg/validator"
)

type CheckRequest struct {
	EmployeeID string  `json:"-"`
	CompanyID  string  `json:"-"`
	BranchID   string  `json:"branch_id"`
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
}

func (r *CheckRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.BranchID) {
		errs = append(errs, validator.ValidationError{Field: "branch_id", Message: "branch_id is required"})
	}
	if !validator.IsValidLatitude(r.Latitude) {
		errs = append(errs, validator.ValidationError{Field: "latitude", Message: "latitude must be between -90 and 90"})
	}
	if !validator.IsValidLongitude(r.Longitude) {
		errs = append(errs, validator.ValidationError{Field: "longitude", Message: "longitude must be between -180 and 180"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type CheckResponse struct {
	BranchID           string  `json:"branch_id"`
	IsWithinGeofence   bool    `json:"is_within_geofence"`
	DistanceFromOffice float64 `json:"distance_from_office"`
	RadiusMeters       float64 `json:"radius_meters"`
	Enforced           bool    `json:"enforced"`
}

type AlertFilter struct {
	CompanyID  string
	EmployeeID *string
	BranchID   *string
	From       *time.Time
	To         *time.Time
	Page       int
	PageSize   int
}

type AlertResponse struct {
	ID             string    `json:"id"`
	EmployeeID     string    `json:"employee_id"`
	BranchID       string    `json:"branch_id"`
	AttendanceID   *string   `json:"attendance_id,omitempty"`
	Latitude       float64   `json:"latitude"`
	Longitude      float64   `json:"longitude"`
	DistanceMeters float64   `json:"distance_meters"`
	RadiusMeters   float64   `json:"radius_meters"`
	CreatedAt      time.Time `json:"created_at"`
}

type ListAlertsResponse struct {
	Alerts     []AlertResponse `json:"alerts"`
	TotalCount int64           `json:"total_count"`
	Page       int             `json:"page"`
	PageSize   int             `json:"page_size"`
}
