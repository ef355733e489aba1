package escalation

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/domain/escalation"
)

type fakeRuleRepo struct {
	rules map[string]escalation.Rule
}

func newFakeRuleRepo(rules ...escalation.Rule) *fakeRuleRepo {
	r := &fakeRuleRepo{rules: make(map[string]escalation.Rule)}
	for _, rule := range rules {
		r.rules[rule.ID] = rule
	}
	return r
}

func (r *fakeRuleRepo) Create(ctx context.Context, rule escalation.Rule) (escalation.Rule, error) {
	if rule.IsActive {
		if active, _ := r.GetActive(ctx, rule.CompanyID, rule.ViolationType); active != nil {
			return escalation.Rule{}, escalation.ErrActiveRuleExists
		}
	}
	rule.ID = uuid.NewString()
	r.rules[rule.ID] = rule
	return rule, nil
}

func (r *fakeRuleRepo) GetByID(_ context.Context, id string, companyID string) (escalation.Rule, error) {
	rule, ok := r.rules[id]
	if !ok || rule.CompanyID != companyID {
		return escalation.Rule{}, escalation.ErrRuleNotFound
	}
	return rule, nil
}

func (r *fakeRuleRepo) GetActive(_ context.Context, companyID string, vt escalation.ViolationType) (*escalation.Rule, error) {
	for _, rule := range r.rules {
		if rule.CompanyID == companyID && rule.ViolationType == vt && rule.IsActive {
			return &rule, nil
		}
	}
	return nil, nil
}

func (r *fakeRuleRepo) List(_ context.Context, companyID string) ([]escalation.Rule, error) {
	var out []escalation.Rule
	for _, rule := range r.rules {
		if rule.CompanyID == companyID {
			out = append(out, rule)
		}
	}
	return out, nil
}

func (r *fakeRuleRepo) Update(_ context.Context, rule escalation.Rule) error {
	if _, ok := r.rules[rule.ID]; !ok {
		return escalation.ErrRuleNotFound
	}
	r.rules[rule.ID] = rule
	return nil
}

func (r *fakeRuleRepo) Delete(_ context.Context, id string, companyID string) error {
	rule, ok := r.rules[id]
	if !ok || rule.CompanyID != companyID {
		return escalation.ErrRuleNotFound
	}
	delete(r.rules, id)
	return nil
}

type fakeChargeRepo struct {
	mu      sync.Mutex
	charges []escalation.Charge
}

func (r *fakeChargeRepo) Create(_ context.Context, c escalation.Charge) (escalation.Charge, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c.ID = uuid.NewString()
	r.charges = append(r.charges, c)
	return c, nil
}

func (r *fakeChargeRepo) CountSince(_ context.Context, employeeID string, vt escalation.ViolationType, since, before time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.charges {
		if c.EmployeeID == employeeID && c.ViolationType == vt && !c.OccurredAt.Before(since) && c.OccurredAt.Before(before) {
			n++
		}
	}
	return n, nil
}

func (r *fakeChargeRepo) LatestBefore(_ context.Context, employeeID string, vt escalation.ViolationType, before time.Time) (*time.Time, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var latest *time.Time
	for _, c := range r.charges {
		if c.EmployeeID != employeeID || c.ViolationType != vt || !c.OccurredAt.Before(before) {
			continue
		}
		if latest == nil || c.OccurredAt.After(*latest) {
			at := c.OccurredAt
			latest = &at
		}
	}
	return latest, nil
}

func (r *fakeChargeRepo) List(_ context.Context, f escalation.ChargeFilter) ([]escalation.Charge, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []escalation.Charge
	for _, c := range r.charges {
		if c.CompanyID != f.CompanyID {
			continue
		}
		if f.EmployeeID != nil && c.EmployeeID != *f.EmployeeID {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OccurredAt.After(out[j].OccurredAt) })
	return out, int64(len(out)), nil
}

const (
	companyID  = "company-1"
	employeeID = "employee-1"
)

func lateRule() escalation.Rule {
	return escalation.Rule{
		ID:                 "rule-1",
		CompanyID:          companyID,
		RuleName:           "Late arrival",
		ViolationType:      escalation.ViolationLateArrival,
		LookbackPeriodDays: 30,
		Tiers: []escalation.Tier{
			{OccurrenceCount: 1, Multiplier: 1.0},
			{OccurrenceCount: 2, Multiplier: 2.0},
		},
		IsActive: true,
	}
}

func TestCalculateMultiplier_Tiers(t *testing.T) {
	charges := &fakeChargeRepo{}
	svc := NewEscalationService(newFakeRuleRepo(lateRule()), charges)
	ctx := context.Background()
	now := time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)

	first, err := svc.CalculateMultiplier(ctx, escalation.CalculateRequest{
		CompanyID: companyID, EmployeeID: employeeID, ViolationType: escalation.ViolationLateArrival, At: now,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, first.PriorOccurrences)
	assert.Equal(t, 1.0, first.Multiplier)

	charges.charges = append(charges.charges, escalation.Charge{
		CompanyID: companyID, EmployeeID: employeeID, ViolationType: escalation.ViolationLateArrival,
		OccurredAt: now.AddDate(0, 0, -3),
	})

	second, err := svc.CalculateMultiplier(ctx, escalation.CalculateRequest{
		CompanyID: companyID, EmployeeID: employeeID, ViolationType: escalation.ViolationLateArrival, At: now,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, second.PriorOccurrences)
	assert.Equal(t, 2, second.Occurrences)
	assert.Equal(t, 2.0, second.Multiplier)
	require.NotNil(t, second.RuleID)
	assert.Equal(t, "rule-1", *second.RuleID)
}

func TestCalculateMultiplier_OutsideLookback(t *testing.T) {
	charges := &fakeChargeRepo{}
	now := time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)
	charges.charges = append(charges.charges, escalation.Charge{
		CompanyID: companyID, EmployeeID: employeeID, ViolationType: escalation.ViolationLateArrival,
		OccurredAt: now.AddDate(0, 0, -31),
	})
	svc := NewEscalationService(newFakeRuleRepo(lateRule()), charges)

	resp, err := svc.CalculateMultiplier(context.Background(), escalation.CalculateRequest{
		CompanyID: companyID, EmployeeID: employeeID, ViolationType: escalation.ViolationLateArrival, At: now,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, resp.PriorOccurrences)
	assert.Equal(t, 1.0, resp.Multiplier)
}

func TestCalculateMultiplier_ResetAfterQuietPeriod(t *testing.T) {
	rule := lateRule()
	reset := 7
	rule.ResetAfterDays = &reset
	now := time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)
	charges := &fakeChargeRepo{charges: []escalation.Charge{{
		CompanyID: companyID, EmployeeID: employeeID, ViolationType: escalation.ViolationLateArrival,
		OccurredAt: now.AddDate(0, 0, -10),
	}}}
	svc := NewEscalationService(newFakeRuleRepo(rule), charges)

	resp, err := svc.CalculateMultiplier(context.Background(), escalation.CalculateRequest{
		CompanyID: companyID, EmployeeID: employeeID, ViolationType: escalation.ViolationLateArrival, At: now,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, resp.PriorOccurrences)
	assert.Equal(t, 1.0, resp.Multiplier)
}

func TestCalculateMultiplier_NoActiveRule(t *testing.T) {
	svc := NewEscalationService(newFakeRuleRepo(), &fakeChargeRepo{})

	resp, err := svc.CalculateMultiplier(context.Background(), escalation.CalculateRequest{
		CompanyID: companyID, EmployeeID: employeeID, ViolationType: escalation.ViolationAbsence,
	})
	require.NoError(t, err)
	assert.Equal(t, escalation.DefaultMultiplier, resp.Multiplier)
	assert.Nil(t, resp.RuleID)
}

func TestAssessViolation_Escalates(t *testing.T) {
	charges := &fakeChargeRepo{}
	svc := NewEscalationService(newFakeRuleRepo(lateRule()), charges)
	ctx := context.Background()
	day := time.Date(2025, 3, 3, 9, 30, 0, 0, time.UTC)

	first, err := svc.AssessViolation(ctx, escalation.AssessRequest{
		CompanyID: companyID, EmployeeID: employeeID, ViolationType: escalation.ViolationLateArrival,
		BaseAmount: 500, OccurredAt: day,
	})
	require.NoError(t, err)
	assert.Equal(t, 500.0, first.Amount)

	second, err := svc.AssessViolation(ctx, escalation.AssessRequest{
		CompanyID: companyID, EmployeeID: employeeID, ViolationType: escalation.ViolationLateArrival,
		BaseAmount: 500, OccurredAt: day.AddDate(0, 0, 1),
	})
	require.NoError(t, err)
	assert.Equal(t, 2.0, second.Multiplier)
	assert.Equal(t, 1000.0, second.Amount)

	list, err := svc.ListCharges(ctx, escalation.ChargeFilter{CompanyID: companyID})
	require.NoError(t, err)
	assert.Len(t, list.Charges, 2)
	assert.Equal(t, int64(2), list.TotalCount)
}

func TestRuleCRUD(t *testing.T) {
	svc := NewEscalationService(newFakeRuleRepo(), &fakeChargeRepo{})
	ctx := context.Background()

	created, err := svc.CreateRule(ctx, escalation.CreateRuleRequest{
		CompanyID:          companyID,
		RuleName:           "Absence",
		ViolationType:      escalation.ViolationAbsence,
		LookbackPeriodDays: 60,
		Tiers:              []escalation.Tier{{OccurrenceCount: 1, Multiplier: 1}, {OccurrenceCount: 3, Multiplier: 1.5}},
	})
	require.NoError(t, err)
	assert.True(t, created.IsActive)

	_, err = svc.CreateRule(ctx, escalation.CreateRuleRequest{
		CompanyID:          companyID,
		RuleName:           "Absence again",
		ViolationType:      escalation.ViolationAbsence,
		LookbackPeriodDays: 30,
		Tiers:              []escalation.Tier{{OccurrenceCount: 1, Multiplier: 1}},
	})
	assert.ErrorIs(t, err, escalation.ErrActiveRuleExists)

	lookback := 90
	updated, err := svc.UpdateRule(ctx, escalation.UpdateRuleRequest{ID: created.ID, CompanyID: companyID, LookbackPeriodDays: &lookback})
	require.NoError(t, err)
	assert.Equal(t, 90, updated.LookbackPeriodDays)

	require.NoError(t, svc.DeleteRule(ctx, created.ID, companyID))
	_, err = svc.GetRule(ctx, created.ID, companyID)
	assert.ErrorIs(t, err, escalation.ErrRuleNotFound)
}

func TestCreateRule_Validation(t *testing.T) {
	svc := NewEscalationService(newFakeRuleRepo(), &fakeChargeRepo{})

	_, err := svc.CreateRule(context.Background(), escalation.CreateRuleRequest{
		CompanyID:     companyID,
		RuleName:      "Broken",
		ViolationType: "overslept",
		Tiers:         []escalation.Tier{{OccurrenceCount: 0, Multiplier: 0}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "violation_type")
	assert.Contains(t, err.Error(), "lookback_period_days")
}
