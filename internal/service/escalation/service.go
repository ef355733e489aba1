package escalation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/domain/escalation"
)

type escalationServiceImpl struct {
	ruleRepo   escalation.RuleRepository
	chargeRepo escalation.ChargeRepository
}

func NewEscalationService(ruleRepo escalation.RuleRepository, chargeRepo escalation.ChargeRepository) escalation.Service {
	return &escalationServiceImpl{
		ruleRepo:   ruleRepo,
		chargeRepo: chargeRepo,
	}
}

// CalculateMultiplier implements escalation.Service.
func (s *escalationServiceImpl) CalculateMultiplier(ctx context.Context, req escalation.CalculateRequest) (escalation.MultiplierResponse, error) {
	if err := req.Validate(); err != nil {
		return escalation.MultiplierResponse{}, err
	}
	if req.At.IsZero() {
		req.At = time.Now().UTC()
	}

	rule, err := s.ruleRepo.GetActive(ctx, req.CompanyID, req.ViolationType)
	if err != nil {
		return escalation.MultiplierResponse{}, fmt.Errorf("failed to get active escalation rule: %w", err)
	}

	resp := escalation.MultiplierResponse{
		EmployeeID:    req.EmployeeID,
		ViolationType: req.ViolationType,
		Occurrences:   1,
		Multiplier:    escalation.DefaultMultiplier,
	}
	if rule == nil {
		return resp, nil
	}

	prior, err := s.priorOccurrences(ctx, *rule, req.EmployeeID, req.At)
	if err != nil {
		return escalation.MultiplierResponse{}, err
	}

	resp.RuleID = &rule.ID
	resp.PriorOccurrences = prior
	resp.Occurrences = prior + 1
	resp.Multiplier = rule.MultiplierFor(resp.Occurrences)
	return resp, nil
}

func (s *escalationServiceImpl) priorOccurrences(ctx context.Context, rule escalation.Rule, employeeID string, at time.Time) (int, error) {
	if rule.ResetAfterDays != nil {
		latest, err := s.chargeRepo.LatestBefore(ctx, employeeID, rule.ViolationType, at)
		if err != nil {
			return 0, fmt.Errorf("failed to get latest charge: %w", err)
		}
		if latest == nil || rule.ResetsAfter(*latest, at) {
			return 0, nil
		}
	}

	count, err := s.chargeRepo.CountSince(ctx, employeeID, rule.ViolationType, rule.LookbackStart(at), at)
	if err != nil {
		return 0, fmt.Errorf("failed to count prior charges: %w", err)
	}
	return count, nil
}

// AssessViolation implements escalation.Service.
func (s *escalationServiceImpl) AssessViolation(ctx context.Context, req escalation.AssessRequest) (escalation.ChargeResponse, error) {
	if req.BaseAmount < 0 {
		return escalation.ChargeResponse{}, fmt.Errorf("base amount must not be negative")
	}

	m, err := s.CalculateMultiplier(ctx, escalation.CalculateRequest{
		CompanyID:     req.CompanyID,
		EmployeeID:    req.EmployeeID,
		ViolationType: req.ViolationType,
		At:            req.OccurredAt,
	})
	if err != nil {
		return escalation.ChargeResponse{}, err
	}

	occurredAt := req.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}

	charge, err := s.chargeRepo.Create(ctx, escalation.Charge{
		CompanyID:     req.CompanyID,
		EmployeeID:    req.EmployeeID,
		ViolationType: req.ViolationType,
		BaseAmount:    req.BaseAmount,
		Multiplier:    m.Multiplier,
		Amount:        roundAmount(req.BaseAmount * m.Multiplier),
		OccurredAt:    occurredAt,
		AttendanceID:  req.AttendanceID,
		RuleID:        m.RuleID,
	})
	if err != nil {
		if errors.Is(err, escalation.ErrChargeAlreadyAssessed) {
			return escalation.ChargeResponse{}, err
		}
		return escalation.ChargeResponse{}, fmt.Errorf("failed to create charge: %w", err)
	}

	slog.Info("charge assessed",
		"employee_id", charge.EmployeeID,
		"violation_type", charge.ViolationType,
		"occurrences", m.Occurrences,
		"multiplier", charge.Multiplier,
		"amount", charge.Amount,
	)

	return escalation.ToChargeResponse(charge), nil
}

// ListCharges implements escalation.Service.
func (s *escalationServiceImpl) ListCharges(ctx context.Context, filter escalation.ChargeFilter) (escalation.ListChargesResponse, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 || filter.PageSize > 100 {
		filter.PageSize = 20
	}

	charges, total, err := s.chargeRepo.List(ctx, filter)
	if err != nil {
		return escalation.ListChargesResponse{}, fmt.Errorf("failed to list charges: %w", err)
	}

	responses := make([]escalation.ChargeResponse, len(charges))
	for i, c := range charges {
		responses[i] = escalation.ToChargeResponse(c)
	}

	return escalation.ListChargesResponse{
		Charges:    responses,
		TotalCount: total,
		Page:       filter.Page,
		PageSize:   filter.PageSize,
	}, nil
}

// ==================== RULE OPERATIONS ====================

func (s *escalationServiceImpl) CreateRule(ctx context.Context, req escalation.CreateRuleRequest) (escalation.RuleResponse, error) {
	if err := req.Validate(); err != nil {
		return escalation.RuleResponse{}, err
	}

	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	created, err := s.ruleRepo.Create(ctx, escalation.Rule{
		CompanyID:          req.CompanyID,
		RuleName:           req.RuleName,
		ViolationType:      req.ViolationType,
		LookbackPeriodDays: req.LookbackPeriodDays,
		Tiers:              req.Tiers,
		ResetAfterDays:     req.ResetAfterDays,
		IsActive:           isActive,
	})
	if err != nil {
		if errors.Is(err, escalation.ErrActiveRuleExists) {
			return escalation.RuleResponse{}, err
		}
		return escalation.RuleResponse{}, fmt.Errorf("failed to create escalation rule: %w", err)
	}

	return escalation.ToRuleResponse(created), nil
}

func (s *escalationServiceImpl) GetRule(ctx context.Context, id string, companyID string) (escalation.RuleResponse, error) {
	rule, err := s.getRule(ctx, id, companyID)
	if err != nil {
		return escalation.RuleResponse{}, err
	}
	return escalation.ToRuleResponse(rule), nil
}

func (s *escalationServiceImpl) ListRules(ctx context.Context, companyID string) ([]escalation.RuleResponse, error) {
	rules, err := s.ruleRepo.List(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list escalation rules: %w", err)
	}

	responses := make([]escalation.RuleResponse, len(rules))
	for i, r := range rules {
		responses[i] = escalation.ToRuleResponse(r)
	}
	return responses, nil
}

func (s *escalationServiceImpl) UpdateRule(ctx context.Context, req escalation.UpdateRuleRequest) (escalation.RuleResponse, error) {
	if err := req.Validate(); err != nil {
		return escalation.RuleResponse{}, err
	}

	rule, err := s.getRule(ctx, req.ID, req.CompanyID)
	if err != nil {
		return escalation.RuleResponse{}, err
	}

	if req.RuleName != nil {
		rule.RuleName = *req.RuleName
	}
	if req.LookbackPeriodDays != nil {
		rule.LookbackPeriodDays = *req.LookbackPeriodDays
	}
	if req.Tiers != nil {
		rule.Tiers = req.Tiers
	}
	if req.ResetAfterDays != nil {
		rule.ResetAfterDays = req.ResetAfterDays
	}
	if req.IsActive != nil {
		rule.IsActive = *req.IsActive
	}

	if err := s.ruleRepo.Update(ctx, rule); err != nil {
		if errors.Is(err, escalation.ErrActiveRuleExists) || errors.Is(err, escalation.ErrRuleNotFound) {
			return escalation.RuleResponse{}, err
		}
		return escalation.RuleResponse{}, fmt.Errorf("failed to update escalation rule: %w", err)
	}

	return escalation.ToRuleResponse(rule), nil
}

func (s *escalationServiceImpl) DeleteRule(ctx context.Context, id string, companyID string) error {
	if err := s.ruleRepo.Delete(ctx, id, companyID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) || errors.Is(err, escalation.ErrRuleNotFound) {
			return escalation.ErrRuleNotFound
		}
		return fmt.Errorf("failed to delete escalation rule: %w", err)
	}
	return nil
}

func (s *escalationServiceImpl) getRule(ctx context.Context, id string, companyID string) (escalation.Rule, error) {
	rule, err := s.ruleRepo.GetByID(ctx, id, companyID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || errors.Is(err, escalation.ErrRuleNotFound) {
			return escalation.Rule{}, escalation.ErrRuleNotFound
		}
		return escalation.Rule{}, fmt.Errorf("failed to get escalation rule: %w", err)
	}
	return rule, nil
}

func roundAmount(v float64) float64 {
	return math.Round(v*100) / 100
}
