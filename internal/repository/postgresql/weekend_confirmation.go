package postgresql

import (
	"context"
	"fmt"

	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/domain/attendance"
	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/pkg/database"
)

type weekendConfirmationRepository struct {
	db *database.DB
}

func NewWeekendConfirmationRepository(db *database.DB) attendance.WeekendConfirmationRepository {
	return &weekendConfirmationRepository{db: db}
}

// Upsert implements attendance.WeekendConfirmationRepository.
func (r *weekendConfirmationRepository) Upsert(ctx context.Context, c attendance.WeekendConfirmation) (attendance.WeekendConfirmation, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO weekend_work_confirmations (employee_id, company_id, week_start, saturday, sunday, confirmed_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (employee_id, week_start) DO UPDATE SET
			saturday = EXCLUDED.saturday,
			sunday = EXCLUDED.sunday,
			confirmed_at = EXCLUDED.confirmed_at
		RETURNING id
	`
	if err := q.QueryRow(ctx, query,
		c.EmployeeID, c.CompanyID, c.WeekStart, c.Saturday, c.Sunday, c.ConfirmedAt,
	).Scan(&c.ID); err != nil {
		return attendance.WeekendConfirmation{}, fmt.Errorf("failed to upsert weekend confirmation: %w", err)
	}
	return c, nil
}

// ListByEmployee implements attendance.WeekendConfirmationRepository.
func (r *weekendConfirmationRepository) ListByEmployee(ctx context.Context, employeeID string, limit int) ([]attendance.WeekendConfirmation, error) {
	q := GetQuerier(ctx, r.db)

	rows, err := q.Query(ctx, `
		SELECT id, employee_id, company_id, week_start, saturday, sunday, confirmed_at
		FROM weekend_work_confirmations
		WHERE employee_id = $1
		ORDER BY week_start DESC
		LIMIT $2`, employeeID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list weekend confirmations: %w", err)
	}
	defer rows.Close()

	var out []attendance.WeekendConfirmation
	for rows.Next() {
		var c attendance.WeekendConfirmation
		if err := rows.Scan(&c.ID, &c.EmployeeID, &c.CompanyID, &c.WeekStart, &c.Saturday, &c.Sunday, &c.ConfirmedAt); err != nil {
			return nil, fmt.Errorf("failed to scan weekend confirmation: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
