package postgresql

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/domain/master/branch"
	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/pkg/database"
)

type branchRepositoryImpl struct {
	db *database.DB
}

func NewBranchRepository(db *database.DB) branch.BranchRepository {
	return &branchRepositoryImpl{db: db}
}

const branchColumns = `
	id, company_id, name, address, latitude, longitude, radius_meters, timezone,
	work_start_time, work_end_time, grace_period_minutes,
	late_charge_amount, early_departure_charge_amount,
	created_at, updated_at, deleted_at`

func scanBranch(row pgx.Row) (branch.Branch, error) {
	var b branch.Branch
	err := row.Scan(
		&b.ID, &b.CompanyID, &b.Name, &b.Address, &b.Latitude, &b.Longitude, &b.RadiusMeters, &b.Timezone,
		&b.WorkStartTime, &b.WorkEndTime, &b.GracePeriodMinutes,
		&b.LateChargeAmount, &b.EarlyDepartureChargeAmount,
		&b.CreatedAt, &b.UpdatedAt, &b.DeletedAt,
	)
	return b, err
}

// Create implements branch.BranchRepository.
func (r *branchRepositoryImpl) Create(ctx context.Context, b branch.Branch) (branch.Branch, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO branches (
			company_id, name, address, latitude, longitude, radius_meters, timezone,
			work_start_time, work_end_time, grace_period_minutes,
			late_charge_amount, early_departure_charge_amount
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING ` + branchColumns

	result, err := scanBranch(q.QueryRow(ctx, query,
		b.CompanyID, b.Name, b.Address, b.Latitude, b.Longitude, b.RadiusMeters, b.Timezone,
		b.WorkStartTime, b.WorkEndTime, b.GracePeriodMinutes,
		b.LateChargeAmount, b.EarlyDepartureChargeAmount,
	))
	if err != nil {
		return branch.Branch{}, fmt.Errorf("failed to create branch: %w", err)
	}

	return result, nil
}

// GetByID implements branch.BranchRepository.
func (r *branchRepositoryImpl) GetByID(ctx context.Context, id string, companyID string) (branch.Branch, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + branchColumns + `
		FROM branches
		WHERE id = $1 AND company_id = $2 AND deleted_at IS NULL`

	result, err := scanBranch(q.QueryRow(ctx, query, id, companyID))
	if err != nil {
		return branch.Branch{}, fmt.Errorf("failed to get branch: %w", err)
	}

	return result, nil
}

// GetByCompanyID implements branch.BranchRepository.
func (r *branchRepositoryImpl) GetByCompanyID(ctx context.Context, companyID string) ([]branch.Branch, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + branchColumns + `
		FROM branches
		WHERE company_id = $1 AND deleted_at IS NULL
		ORDER BY name ASC`

	rows, err := q.Query(ctx, query, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get branches: %w", err)
	}
	defer rows.Close()

	var branches []branch.Branch
	for rows.Next() {
		b, err := scanBranch(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan branch: %w", err)
		}
		branches = append(branches, b)
	}

	return branches, rows.Err()
}

// Update implements branch.BranchRepository.
func (r *branchRepositoryImpl) Update(ctx context.Context, b branch.Branch) error {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE branches SET
			name = $3, address = $4, latitude = $5, longitude = $6, radius_meters = $7, timezone = $8,
			work_start_time = $9, work_end_time = $10, grace_period_minutes = $11,
			late_charge_amount = $12, early_departure_charge_amount = $13,
			updated_at = NOW()
		WHERE id = $1 AND company_id = $2 AND deleted_at IS NULL
	`

	tag, err := q.Exec(ctx, query,
		b.ID, b.CompanyID,
		b.Name, b.Address, b.Latitude, b.Longitude, b.RadiusMeters, b.Timezone,
		b.WorkStartTime, b.WorkEndTime, b.GracePeriodMinutes,
		b.LateChargeAmount, b.EarlyDepartureChargeAmount,
	)
	if err != nil {
		return fmt.Errorf("failed to update branch: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}

	return nil
}

// Delete implements branch.BranchRepository.
func (r *branchRepositoryImpl) Delete(ctx context.Context, id string, companyID string) error {
	q := GetQuerier(ctx, r.db)

	tag, err := q.Exec(ctx,
		`UPDATE branches SET deleted_at = NOW(), updated_at = NOW()
		 WHERE id = $1 AND company_id = $2 AND deleted_at IS NULL`, id, companyID)
	if err != nil {
		return fmt.Errorf("failed to delete branch: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return branch.ErrBranchNotFound
	}

	return nil
}
