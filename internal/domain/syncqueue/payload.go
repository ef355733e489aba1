package syncqueue

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/pkg/fingerprint"
	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/pkg/validator"
)

// ClockInPayload carries what a device recorded at clock-in time.
type ClockInPayload struct {
	LocationType      string                  `json:"location_type"`
	BranchID          *string                 `json:"branch_id,omitempty"`
	Latitude          *float64                `json:"latitude,omitempty"`
	Longitude         *float64                `json:"longitude,omitempty"`
	Accuracy          *float64                `json:"accuracy,omitempty"`
	FieldReason       *string                 `json:"field_reason,omitempty"`
	FieldDescription  *string                 `json:"field_description,omitempty"`
	DeviceFingerprint *string                 `json:"device_fingerprint,omitempty"`
	DeviceAttributes  *fingerprint.Attributes `json:"device_attributes,omitempty"`
}

// ClockOutPayload may omit the attendance id when the session was opened
// offline; replay then closes the employee's open session.
type ClockOutPayload struct {
	AttendanceID *string  `json:"attendance_id,omitempty"`
	Latitude     *float64 `json:"latitude,omitempty"`
	Longitude    *float64 `json:"longitude,omitempty"`
}

type BreakPayload struct {
	BreakID      string  `json:"break_id"`
	AttendanceID *string `json:"attendance_id,omitempty"`
}

func (p ClockInPayload) validate() validator.ValidationErrors {
	var errs validator.ValidationErrors
	switch p.LocationType {
	case "office":
		if p.BranchID == nil || validator.IsEmpty(*p.BranchID) {
			errs = append(errs, validator.ValidationError{Field: "payload.branch_id", Message: "branch_id is required for office clock-in"})
		}
		if p.Latitude == nil || p.Longitude == nil {
			errs = append(errs, validator.ValidationError{Field: "payload.latitude", Message: "coordinates are required for office clock-in"})
		}
	case "field":
		if p.FieldReason == nil || validator.IsEmpty(*p.FieldReason) {
			errs = append(errs, validator.ValidationError{Field: "payload.field_reason", Message: "field_reason is required for field clock-in"})
		}
		if p.FieldDescription == nil || validator.IsEmpty(*p.FieldDescription) {
			errs = append(errs, validator.ValidationError{Field: "payload.field_description", Message: "field_description is required for field clock-in"})
		}
	default:
		errs = append(errs, validator.ValidationError{Field: "payload.location_type", Message: "location_type must be office or field"})
	}
	errs = append(errs, validateCoordinates(p.Latitude, p.Longitude)...)
	return errs
}

func (p ClockOutPayload) validate() validator.ValidationErrors {
	return validateCoordinates(p.Latitude, p.Longitude)
}

func (p BreakPayload) validate() validator.ValidationErrors {
	var errs validator.ValidationErrors
	if !validator.IsValidUUID(p.BreakID) {
		errs = append(errs, validator.ValidationError{Field: "payload.break_id", Message: "break_id must be a valid UUID"})
	}
	return errs
}

func validateCoordinates(lat, lon *float64) validator.ValidationErrors {
	var errs validator.ValidationErrors
	if lat != nil && !validator.IsValidLatitude(*lat) {
		errs = append(errs, validator.ValidationError{Field: "payload.latitude", Message: "latitude must be between -90 and 90"})
	}
	if lon != nil && !validator.IsValidLongitude(*lon) {
		errs = append(errs, validator.ValidationError{Field: "payload.longitude", Message: "longitude must be between -180 and 180"})
	}
	return errs
}

// DecodePayload strictly decodes raw into v.
func DecodePayload(raw json.RawMessage, v interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return nil
}

// ValidatePayload checks raw against the schema of op.
func ValidatePayload(op OperationType, raw json.RawMessage) validator.ValidationErrors {
	if len(raw) == 0 {
		raw = json.RawMessage("{}")
	}

	var errs validator.ValidationErrors
	invalid := func(err error) validator.ValidationErrors {
		return validator.ValidationErrors{{Field: "payload", Message: err.Error()}}
	}

	switch op {
	case OpClockIn:
		var p ClockInPayload
		if err := DecodePayload(raw, &p); err != nil {
			return invalid(err)
		}
		errs = p.validate()
	case OpClockOut:
		var p ClockOutPayload
		if err := DecodePayload(raw, &p); err != nil {
			return invalid(err)
		}
		errs = p.validate()
	case OpBreakStart, OpBreakEnd:
		var p BreakPayload
		if err := DecodePayload(raw, &p); err != nil {
			return invalid(err)
		}
		errs = p.validate()
	}
	return errs
}
