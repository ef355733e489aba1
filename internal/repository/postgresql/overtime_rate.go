package postgresql

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/domain/attendance"
	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/pkg/database"
)

type overtimeRateRepository struct {
	db *database.DB
}

func NewOvertimeRateRepository(db *database.DB) attendance.OvertimeRateRepository {
	return &overtimeRateRepository{db: db}
}

const overtimeRateColumns = `id, company_id, is_night_shift, hourly_rate, created_at, updated_at`

func scanOvertimeRate(row pgx.Row) (attendance.OvertimeRate, error) {
	var r attendance.OvertimeRate
	err := row.Scan(&r.ID, &r.CompanyID, &r.IsNightShift, &r.HourlyRate, &r.CreatedAt, &r.UpdatedAt)
	return r, err
}

// Get implements attendance.OvertimeRateRepository.
func (r *overtimeRateRepository) Get(ctx context.Context, companyID string, isNightShift bool) (*attendance.OvertimeRate, error) {
	q := GetQuerier(ctx, r.db)

	rate, err := scanOvertimeRate(q.QueryRow(ctx,
		`SELECT `+overtimeRateColumns+` FROM overtime_rates WHERE company_id = $1 AND is_night_shift = $2`,
		companyID, isNightShift))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get overtime rate: %w", err)
	}
	return &rate, nil
}

// Upsert implements attendance.OvertimeRateRepository.
func (r *overtimeRateRepository) Upsert(ctx context.Context, rate attendance.OvertimeRate) (attendance.OvertimeRate, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO overtime_rates (company_id, is_night_shift, hourly_rate)
		VALUES ($1, $2, $3)
		ON CONFLICT (company_id, is_night_shift) DO UPDATE SET
			hourly_rate = EXCLUDED.hourly_rate,
			updated_at = NOW()
		RETURNING ` + overtimeRateColumns

	saved, err := scanOvertimeRate(q.QueryRow(ctx, query, rate.CompanyID, rate.IsNightShift, rate.HourlyRate))
	if err != nil {
		return attendance.OvertimeRate{}, fmt.Errorf("failed to upsert overtime rate: %w", err)
	}
	return saved, nil
}

// List implements attendance.OvertimeRateRepository.
func (r *overtimeRateRepository) List(ctx context.Context, companyID string) ([]attendance.OvertimeRate, error) {
	q := GetQuerier(ctx, r.db)

	rows, err := q.Query(ctx,
		`SELECT `+overtimeRateColumns+` FROM overtime_rates WHERE company_id = $1 ORDER BY is_night_shift`, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list overtime rates: %w", err)
	}
	defer rows.Close()

	var rates []attendance.OvertimeRate
	for rows.Next() {
		rate, err := scanOvertimeRate(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan overtime rate: %w", err)
		}
		rates = append(rates, rate)
	}
	return rates, rows.Err()
}
