package postgresql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/domain/escalation"
	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/pkg/database"
)

type escalationRuleRepository struct {
	db *database.DB
}

func NewEscalationRuleRepository(db *database.DB) escalation.RuleRepository {
	return &escalationRuleRepository{db: db}
}

const ruleColumns = `id, company_id, rule_name, violation_type, lookback_period_days, tiers, reset_after_days, is_active, created_at, updated_at`

func scanRule(row pgx.Row) (escalation.Rule, error) {
	var (
		r     escalation.Rule
		tiers []byte
	)
	if err := row.Scan(&r.ID, &r.CompanyID, &r.RuleName, &r.ViolationType, &r.LookbackPeriodDays,
		&tiers, &r.ResetAfterDays, &r.IsActive, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return escalation.Rule{}, err
	}
	if len(tiers) > 0 {
		if err := json.Unmarshal(tiers, &r.Tiers); err != nil {
			return escalation.Rule{}, fmt.Errorf("failed to decode tiers: %w", err)
		}
	}
	return r, nil
}

func encodeTiers(tiers []escalation.Tier) ([]byte, error) {
	if tiers == nil {
		tiers = []escalation.Tier{}
	}
	return json.Marshal(tiers)
}

// Create implements escalation.RuleRepository.
func (r *escalationRuleRepository) Create(ctx context.Context, rule escalation.Rule) (escalation.Rule, error) {
	q := GetQuerier(ctx, r.db)

	tiers, err := encodeTiers(rule.Tiers)
	if err != nil {
		return escalation.Rule{}, err
	}

	query := `
		INSERT INTO escalation_rules (company_id, rule_name, violation_type, lookback_period_days, tiers, reset_after_days, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + ruleColumns

	created, err := scanRule(q.QueryRow(ctx, query,
		rule.CompanyID, rule.RuleName, rule.ViolationType, rule.LookbackPeriodDays, tiers, rule.ResetAfterDays, rule.IsActive))
	if err != nil {
		if isUniqueViolation(err) && uniqueConstraint(err) == "uq_escalation_rules_active" {
			return escalation.Rule{}, escalation.ErrActiveRuleExists
		}
		return escalation.Rule{}, fmt.Errorf("failed to create escalation rule: %w", err)
	}
	return created, nil
}

// GetByID implements escalation.RuleRepository.
func (r *escalationRuleRepository) GetByID(ctx context.Context, id string, companyID string) (escalation.Rule, error) {
	q := GetQuerier(ctx, r.db)

	rule, err := scanRule(q.QueryRow(ctx,
		`SELECT `+ruleColumns+` FROM escalation_rules WHERE id = $1 AND company_id = $2`, id, companyID))
	if err != nil {
		return escalation.Rule{}, fmt.Errorf("failed to get escalation rule: %w", err)
	}
	return rule, nil
}

// GetActive implements escalation.RuleRepository.
func (r *escalationRuleRepository) GetActive(ctx context.Context, companyID string, violationType escalation.ViolationType) (*escalation.Rule, error) {
	q := GetQuerier(ctx, r.db)

	rule, err := scanRule(q.QueryRow(ctx,
		`SELECT `+ruleColumns+` FROM escalation_rules WHERE company_id = $1 AND violation_type = $2 AND is_active`,
		companyID, violationType))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get active escalation rule: %w", err)
	}
	return &rule, nil
}

// List implements escalation.RuleRepository.
func (r *escalationRuleRepository) List(ctx context.Context, companyID string) ([]escalation.Rule, error) {
	q := GetQuerier(ctx, r.db)

	rows, err := q.Query(ctx,
		`SELECT `+ruleColumns+` FROM escalation_rules WHERE company_id = $1 ORDER BY violation_type, created_at`, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list escalation rules: %w", err)
	}
	defer rows.Close()

	var rules []escalation.Rule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan escalation rule: %w", err)
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

// Update implements escalation.RuleRepository.
func (r *escalationRuleRepository) Update(ctx context.Context, rule escalation.Rule) error {
	q := GetQuerier(ctx, r.db)

	tiers, err := encodeTiers(rule.Tiers)
	if err != nil {
		return err
	}

	tag, err := q.Exec(ctx, `
		UPDATE escalation_rules SET
			rule_name = $3, violation_type = $4, lookback_period_days = $5,
			tiers = $6, reset_after_days = $7, is_active = $8, updated_at = NOW()
		WHERE id = $1 AND company_id = $2`,
		rule.ID, rule.CompanyID, rule.RuleName, rule.ViolationType, rule.LookbackPeriodDays,
		tiers, rule.ResetAfterDays, rule.IsActive)
	if err != nil {
		if isUniqueViolation(err) && uniqueConstraint(err) == "uq_escalation_rules_active" {
			return escalation.ErrActiveRuleExists
		}
		return fmt.Errorf("failed to update escalation rule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return escalation.ErrRuleNotFound
	}
	return nil
}

// Delete implements escalation.RuleRepository. Rules referenced by charges
// are deactivated instead of removed.
func (r *escalationRuleRepository) Delete(ctx context.Context, id string, companyID string) error {
	q := GetQuerier(ctx, r.db)

	var referenced bool
	if err := q.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM attendance_charges WHERE rule_id = $1)`, id).Scan(&referenced); err != nil {
		return fmt.Errorf("failed to check rule references: %w", err)
	}

	query := `DELETE FROM escalation_rules WHERE id = $1 AND company_id = $2`
	if referenced {
		query = `UPDATE escalation_rules SET is_active = false, updated_at = NOW() WHERE id = $1 AND company_id = $2`
	}

	tag, err := q.Exec(ctx, query, id, companyID)
	if err != nil {
		return fmt.Errorf("failed to delete escalation rule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return escalation.ErrRuleNotFound
	}
	return nil
}

type chargeRepository struct {
	db *database.DB
}

func NewChargeRepository(db *database.DB) escalation.ChargeRepository {
	return &chargeRepository{db: db}
}

const chargeColumns = `id, company_id, employee_id, violation_type, base_amount, multiplier, amount, occurred_at, attendance_id, rule_id, created_at`

func scanCharge(row pgx.Row) (escalation.Charge, error) {
	var c escalation.Charge
	err := row.Scan(&c.ID, &c.CompanyID, &c.EmployeeID, &c.ViolationType, &c.BaseAmount, &c.Multiplier,
		&c.Amount, &c.OccurredAt, &c.AttendanceID, &c.RuleID, &c.CreatedAt)
	return c, err
}

// Create implements escalation.ChargeRepository.
func (r *chargeRepository) Create(ctx context.Context, charge escalation.Charge) (escalation.Charge, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO attendance_charges (company_id, employee_id, violation_type, base_amount, multiplier, amount, occurred_at, attendance_id, rule_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + chargeColumns

	created, err := scanCharge(q.QueryRow(ctx, query,
		charge.CompanyID, charge.EmployeeID, charge.ViolationType, charge.BaseAmount, charge.Multiplier,
		charge.Amount, charge.OccurredAt, charge.AttendanceID, charge.RuleID))
	if err != nil {
		if isUniqueViolation(err) && uniqueConstraint(err) == "uq_attendance_charges_attendance" {
			return escalation.Charge{}, escalation.ErrChargeAlreadyAssessed
		}
		return escalation.Charge{}, fmt.Errorf("failed to create charge: %w", err)
	}
	return created, nil
}

// CountSince implements escalation.ChargeRepository.
func (r *chargeRepository) CountSince(ctx context.Context, employeeID string, violationType escalation.ViolationType, since, before time.Time) (int, error) {
	q := GetQuerier(ctx, r.db)

	var count int
	err := q.QueryRow(ctx, `
		SELECT COUNT(*) FROM attendance_charges
		WHERE employee_id = $1 AND violation_type = $2 AND occurred_at >= $3 AND occurred_at < $4`,
		employeeID, violationType, since, before).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count charges: %w", err)
	}
	return count, nil
}

// LatestBefore implements escalation.ChargeRepository.
func (r *chargeRepository) LatestBefore(ctx context.Context, employeeID string, violationType escalation.ViolationType, before time.Time) (*time.Time, error) {
	q := GetQuerier(ctx, r.db)

	var latest *time.Time
	err := q.QueryRow(ctx, `
		SELECT MAX(occurred_at) FROM attendance_charges
		WHERE employee_id = $1 AND violation_type = $2 AND occurred_at < $3`,
		employeeID, violationType, before).Scan(&latest)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest charge: %w", err)
	}
	return latest, nil
}

// List implements escalation.ChargeRepository.
func (r *chargeRepository) List(ctx context.Context, filter escalation.ChargeFilter) ([]escalation.Charge, int64, error) {
	q := GetQuerier(ctx, r.db)

	where := "company_id = $1"
	args := []interface{}{filter.CompanyID}
	argIdx := 2

	if filter.EmployeeID != nil && *filter.EmployeeID != "" {
		where += fmt.Sprintf(" AND employee_id = $%d", argIdx)
		args = append(args, *filter.EmployeeID)
		argIdx++
	}
	if filter.ViolationType != nil {
		where += fmt.Sprintf(" AND violation_type = $%d", argIdx)
		args = append(args, *filter.ViolationType)
		argIdx++
	}
	if filter.From != nil {
		where += fmt.Sprintf(" AND occurred_at >= $%d", argIdx)
		args = append(args, *filter.From)
		argIdx++
	}
	if filter.To != nil {
		where += fmt.Sprintf(" AND occurred_at < $%d", argIdx)
		args = append(args, *filter.To)
		argIdx++
	}

	var total int64
	if err := q.QueryRow(ctx, "SELECT COUNT(*) FROM attendance_charges WHERE "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count charges: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM attendance_charges WHERE %s ORDER BY occurred_at DESC LIMIT $%d OFFSET $%d`,
		chargeColumns, where, argIdx, argIdx+1)
	args = append(args, filter.PageSize, (filter.Page-1)*filter.PageSize)

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query charges: %w", err)
	}
	defer rows.Close()

	var charges []escalation.Charge
	for rows.Next() {
		c, err := scanCharge(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan charge: %w", err)
		}
		charges = append(charges, c)
	}
	return charges, total, rows.Err()
}
