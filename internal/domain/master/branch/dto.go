package branch

import (
	"time"

	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/pkg/validator"
)

// BranchResponse represents the response structure for a branch.
type BranchResponse struct {
	ID                         string  `json:"id"`
	CompanyID                  string  `json:"company_id"`
	Name                       string  `json:"name"`
	Address                    *string `json:"address,omitempty"`
	Latitude                   float64 `json:"latitude"`
	Longitude                  float64 `json:"longitude"`
	RadiusMeters               float64 `json:"radius_meters"`
	Timezone                   string  `json:"timezone"`
	WorkStartTime              *string `json:"work_start_time,omitempty"`
	WorkEndTime                *string `json:"work_end_time,omitempty"`
	GracePeriodMinutes         int     `json:"grace_period_minutes"`
	LateChargeAmount           float64 `json:"late_charge_amount"`
	EarlyDepartureChargeAmount float64 `json:"early_departure_charge_amount"`
}

// CreateBranchRequest represents the request structure for creating a branch.
type CreateBranchRequest struct {
	CompanyID                  string  `json:"-"` // From JWT
	Name                       string  `json:"name"`
	Address                    *string `json:"address,omitempty"`
	Latitude                   float64 `json:"latitude"`
	Longitude                  float64 `json:"longitude"`
	RadiusMeters               float64 `json:"radius_meters"`
	Timezone                   string  `json:"timezone"`
	WorkStartTime              *string `json:"work_start_time,omitempty"`
	WorkEndTime                *string `json:"work_end_time,omitempty"`
	GracePeriodMinutes         int     `json:"grace_period_minutes"`
	LateChargeAmount           float64 `json:"late_charge_amount"`
	EarlyDepartureChargeAmount float64 `json:"early_departure_charge_amount"`
}

func (r *CreateBranchRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.CompanyID) {
		errs = append(errs, validator.ValidationError{Field: "company_id", Message: "company_id is required"})
	}

	// Name
	if validator.IsEmpty(r.Name) {
		errs = append(errs, validator.ValidationError{Field: "name", Message: "name is required"})
	}
	if len(r.Name) > 100 {
		errs = append(errs, validator.ValidationError{Field: "name", Message: "name must not exceed 100 characters"})
	}

	errs = append(errs, validateGeofence(&r.Latitude, &r.Longitude, &r.RadiusMeters)...)
	errs = append(errs, validateRules(&r.Timezone, r.WorkStartTime, r.WorkEndTime, &r.GracePeriodMinutes, &r.LateChargeAmount, &r.EarlyDepartureChargeAmount)...)

	if len(errs) > 0 {
		return errs
	}

	return nil
}

// UpdateBranchRequest represents the request structure for updating a branch.
type UpdateBranchRequest struct {
	ID                         string   `json:"-"`
	CompanyID                  string   `json:"-"` // From JWT
	Name                       *string  `json:"name,omitempty"`
	Address                    *string  `json:"address,omitempty"`
	Latitude                   *float64 `json:"latitude,omitempty"`
	Longitude                  *float64 `json:"longitude,omitempty"`
	RadiusMeters               *float64 `json:"radius_meters,omitempty"`
	Timezone                   *string  `json:"timezone,omitempty"`
	WorkStartTime              *string  `json:"work_start_time,omitempty"`
	WorkEndTime                *string  `json:"work_end_time,omitempty"`
	GracePeriodMinutes         *int     `json:"grace_period_minutes,omitempty"`
	LateChargeAmount           *float64 `json:"late_charge_amount,omitempty"`
	EarlyDepartureChargeAmount *float64 `json:"early_departure_charge_amount,omitempty"`
}

func (r *UpdateBranchRequest) Validate() error {
	var errs validator.ValidationErrors

	// ID
	if validator.IsEmpty(r.ID) {
		errs = append(errs, validator.ValidationError{Field: "id", Message: "id is required"})
	}

	// Name
	if r.Name != nil {
		if validator.IsEmpty(*r.Name) {
			errs = append(errs, validator.ValidationError{Field: "name", Message: "name must not be empty"})
		} else if len(*r.Name) > 100 {
			errs = append(errs, validator.ValidationError{Field: "name", Message: "name must not exceed 100 characters"})
		}
	}

	errs = append(errs, validateGeofence(r.Latitude, r.Longitude, r.RadiusMeters)...)
	errs = append(errs, validateRules(r.Timezone, r.WorkStartTime, r.WorkEndTime, r.GracePeriodMinutes, r.LateChargeAmount, r.EarlyDepartureChargeAmount)...)

	if len(errs) > 0 {
		return errs
	}

	return nil
}

// Apply copies the provided fields onto b.
func (r *UpdateBranchRequest) Apply(b *Branch) {
	if r.Name != nil {
		b.Name = *r.Name
	}
	if r.Address != nil {
		b.Address = r.Address
	}
	if r.Latitude != nil {
		b.Latitude = *r.Latitude
	}
	if r.Longitude != nil {
		b.Longitude = *r.Longitude
	}
	if r.RadiusMeters != nil {
		b.RadiusMeters = *r.RadiusMeters
	}
	if r.Timezone != nil {
		b.Timezone = *r.Timezone
	}
	if r.WorkStartTime != nil {
		b.WorkStartTime = r.WorkStartTime
	}
	if r.WorkEndTime != nil {
		b.WorkEndTime = r.WorkEndTime
	}
	if r.GracePeriodMinutes != nil {
		b.GracePeriodMinutes = *r.GracePeriodMinutes
	}
	if r.LateChargeAmount != nil {
		b.LateChargeAmount = *r.LateChargeAmount
	}
	if r.EarlyDepartureChargeAmount != nil {
		b.EarlyDepartureChargeAmount = *r.EarlyDepartureChargeAmount
	}
}

func validateGeofence(lat, lon, radius *float64) validator.ValidationErrors {
	var errs validator.ValidationErrors
	if lat != nil && !validator.IsValidLatitude(*lat) {
		errs = append(errs, validator.ValidationError{Field: "latitude", Message: "latitude must be between -90 and 90"})
	}
	if lon != nil && !validator.IsValidLongitude(*lon) {
		errs = append(errs, validator.ValidationError{Field: "longitude", Message: "longitude must be between -180 and 180"})
	}
	if radius != nil && *radius <= 0 {
		errs = append(errs, validator.ValidationError{Field: "radius_meters", Message: "radius_meters must be greater than 0"})
	}
	return errs
}

func validateRules(timezone, start, end *string, grace *int, late, early *float64) validator.ValidationErrors {
	var errs validator.ValidationErrors
	if timezone != nil && *timezone != "" {
		if _, err := time.LoadLocation(*timezone); err != nil {
			errs = append(errs, validator.ValidationError{Field: "timezone", Message: "timezone must be a valid IANA timezone"})
		}
	}
	if start != nil {
		if _, ok := validator.IsValidClock(*start); !ok {
			errs = append(errs, validator.ValidationError{Field: "work_start_time", Message: "work_start_time must use HH:MM format"})
		}
	}
	if end != nil {
		if _, ok := validator.IsValidClock(*end); !ok {
			errs = append(errs, validator.ValidationError{Field: "work_end_time", Message: "work_end_time must use HH:MM format"})
		}
	}
	if grace != nil && *grace < 0 {
		errs = append(errs, validator.ValidationError{Field: "grace_period_minutes", Message: "grace_period_minutes must not be negative"})
	}
	if late != nil && *late < 0 {
		errs = append(errs, validator.ValidationError{Field: "late_charge_amount", Message: "late_charge_amount must not be negative"})
	}
	if early != nil && *early < 0 {
		errs = append(errs, validator.ValidationError{Field: "early_departure_charge_amount", Message: "early_departure_charge_amount must not be negative"})
	}
	return errs
}

func ToResponse(b Branch) BranchResponse {
	return BranchResponse{
		ID:                         b.ID,
		CompanyID:                  b.CompanyID,
		Name:                       b.Name,
		Address:                    b.Address,
		Latitude:                   b.Latitude,
		Longitude:                  b.Longitude,
		RadiusMeters:               b.RadiusMeters,
		Timezone:                   b.Timezone,
		WorkStartTime:              b.WorkStartTime,
		WorkEndTime:                b.WorkEndTime,
		GracePeriodMinutes:         b.GracePeriodMinutes,
		LateChargeAmount:           b.LateChargeAmount,
		EarlyDepartureChargeAmount: b.EarlyDepartureChargeAmount,
	}
}
