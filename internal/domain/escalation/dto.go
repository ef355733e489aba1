package escalation

import (
	"time"

	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/pkg/validator"
)

type CreateRuleRequest struct {
	CompanyID          string        `json:"-"`
	RuleName           string        `json:"rule_name"`
	ViolationType      ViolationType `json:"violation_type"`
	LookbackPeriodDays int           `json:"lookback_period_days"`
	Tiers              []Tier        `json:"tiers"`
	ResetAfterDays     *int          `json:"reset_after_days,omitempty"`
	IsActive           *bool         `json:"is_active,omitempty"`
}

func (r *CreateRuleRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.CompanyID) {
		errs = append(errs, validator.ValidationError{Field: "company_id", Message: "company_id is required"})
	}
	if validator.IsEmpty(r.RuleName) {
		errs = append(errs, validator.ValidationError{Field: "rule_name", Message: "rule_name is required"})
	}
	if !r.ViolationType.IsValid() {
		errs = append(errs, validator.ValidationError{Field: "violation_type", Message: "violation_type must be one of late_arrival, absence, early_departure, break_violation"})
	}
	if r.LookbackPeriodDays <= 0 {
		errs = append(errs, validator.ValidationError{Field: "lookback_period_days", Message: "lookback_period_days must be greater than 0"})
	}
	errs = append(errs, validateTiers(r.Tiers)...)
	if r.ResetAfterDays != nil && *r.ResetAfterDays <= 0 {
		errs = append(errs, validator.ValidationError{Field: "reset_after_days", Message: "reset_after_days must be greater than 0"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type UpdateRuleRequest struct {
	ID                 string  `json:"-"`
	CompanyID          string  `json:"-"`
	RuleName           *string `json:"rule_name,omitempty"`
	LookbackPeriodDays *int    `json:"lookback_period_days,omitempty"`
	Tiers              []Tier  `json:"tiers,omitempty"`
	ResetAfterDays     *int    `json:"reset_after_days,omitempty"`
	IsActive           *bool   `json:"is_active,omitempty"`
}

func (r *UpdateRuleRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.ID) {
		errs = append(errs, validator.ValidationError{Field: "id", Message: "id is required"})
	}
	if r.RuleName != nil && validator.IsEmpty(*r.RuleName) {
		errs = append(errs, validator.ValidationError{Field: "rule_name", Message: "rule_name must not be empty"})
	}
	if r.LookbackPeriodDays != nil && *r.LookbackPeriodDays <= 0 {
		errs = append(errs, validator.ValidationError{Field: "lookback_period_days", Message: "lookback_period_days must be greater than 0"})
	}
	if r.Tiers != nil {
		errs = append(errs, validateTiers(r.Tiers)...)
	}
	if r.ResetAfterDays != nil && *r.ResetAfterDays <= 0 {
		errs = append(errs, validator.ValidationError{Field: "reset_after_days", Message: "reset_after_days must be greater than 0"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func validateTiers(tiers []Tier) validator.ValidationErrors {
	var errs validator.ValidationErrors
	if len(tiers) == 0 {
		return append(errs, validator.ValidationError{Field: "tiers", Message: "at least one tier is required"})
	}
	seen := make(map[int]bool)
	for _, t := range tiers {
		if t.OccurrenceCount < 1 {
			errs = append(errs, validator.ValidationError{Field: "tiers", Message: "occurrence_count must be at least 1"})
		}
		if t.Multiplier <= 0 {
			errs = append(errs, validator.ValidationError{Field: "tiers", Message: "multiplier must be greater than 0"})
		}
		if seen[t.OccurrenceCount] {
			errs = append(errs, validator.ValidationError{Field: "tiers", Message: "occurrence_count values must be unique"})
		}
		seen[t.OccurrenceCount] = true
	}
	return errs
}

// CalculateRequest asks for the multiplier of one new occurrence.
type CalculateRequest struct {
	CompanyID     string        `json:"-"`
	EmployeeID    string        `json:"employee_id"`
	ViolationType ViolationType `json:"violation_type"`
	At            time.Time     `json:"at"`
}

func (r *CalculateRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.CompanyID) {
		errs = append(errs, validator.ValidationError{Field: "company_id", Message: "company_id is required"})
	}
	if validator.IsEmpty(r.EmployeeID) {
		errs = append(errs, validator.ValidationError{Field: "employee_id", Message: "employee_id is required"})
	}
	if !r.ViolationType.IsValid() {
		errs = append(errs, validator.ValidationError{Field: "violation_type", Message: "violation_type must be one of late_arrival, absence, early_departure, break_violation"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type MultiplierResponse struct {
	EmployeeID       string        `json:"employee_id"`
	ViolationType    ViolationType `json:"violation_type"`
	PriorOccurrences int           `json:"prior_occurrences"`
	Occurrences      int           `json:"occurrences"`
	Multiplier       float64       `json:"multiplier"`
	RuleID           *string       `json:"rule_id,omitempty"`
}

// AssessRequest records one violation with its base amount.
type AssessRequest struct {
	CompanyID     string
	EmployeeID    string
	ViolationType ViolationType
	BaseAmount    float64
	OccurredAt    time.Time
	AttendanceID  *string
}

type ChargeFilter struct {
	CompanyID     string
	EmployeeID    *string
	ViolationType *ViolationType
	From          *time.Time
	To            *time.Time
	Page          int
	PageSize      int
}

type RuleResponse struct {
	ID                 string        `json:"id"`
	RuleName           string        `json:"rule_name"`
	ViolationType      ViolationType `json:"violation_type"`
	LookbackPeriodDays int           `json:"lookback_period_days"`
	Tiers              []Tier        `json:"tiers"`
	ResetAfterDays     *int          `json:"reset_after_days,omitempty"`
	IsActive           bool          `json:"is_active"`
	CreatedAt          time.Time     `json:"created_at"`
	UpdatedAt          time.Time     `json:"updated_at"`
}

type ChargeResponse struct {
	ID            string        `json:"id"`
	EmployeeID    string        `json:"employee_id"`
	ViolationType ViolationType `json:"violation_type"`
	BaseAmount    float64       `json:"base_amount"`
	Multiplier    float64       `json:"multiplier"`
	Amount        float64       `json:"amount"`
	OccurredAt    time.Time     `json:"occurred_at"`
	AttendanceID  *string       `json:"attendance_id,omitempty"`
	RuleID        *string       `json:"rule_id,omitempty"`
}

type ListChargesResponse struct {
	Charges    []ChargeResponse `json:"charges"`
	TotalCount int64            `json:"total_count"`
	Page       int              `json:"page"`
	PageSize   int              `json:"page_size"`
}

func ToRuleResponse(r Rule) RuleResponse {
	return RuleResponse{
		ID:                 r.ID,
		RuleName:           r.RuleName,
		ViolationType:      r.ViolationType,
		LookbackPeriodDays: r.LookbackPeriodDays,
		Tiers:              r.Tiers,
		ResetAfterDays:     r.ResetAfterDays,
		IsActive:           r.IsActive,
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
	}
}

func ToChargeResponse(c Charge) ChargeResponse {
	return ChargeResponse{
		ID:            c.ID,
		EmployeeID:    c.EmployeeID,
		ViolationType: c.ViolationType,
		BaseAmount:    c.BaseAmount,
		Multiplier:    c.Multiplier,
		Amount:        c.Amount,
		OccurredAt:    c.OccurredAt,
		AttendanceID:  c.AttendanceID,
		RuleID:        c.RuleID,
	}
}
