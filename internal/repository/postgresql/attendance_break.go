package postgresql

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/domain/attendance"
	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/pkg/database"
)

type breakRepository struct {
	db *database.DB
}

func NewBreakRepository(db *database.DB) attendance.BreakRepository {
	return &breakRepository{db: db}
}

const breakColumns = `id, attendance_id, employee_id, company_id, break_start, break_end, duration_minutes, created_at, updated_at`

func scanBreak(row pgx.Row) (attendance.Break, error) {
	var b attendance.Break
	err := row.Scan(&b.ID, &b.AttendanceID, &b.EmployeeID, &b.CompanyID,
		&b.BreakStart, &b.BreakEnd, &b.DurationMinutes, &b.CreatedAt, &b.UpdatedAt)
	return b, err
}

// GetByID implements attendance.BreakRepository.
func (r *breakRepository) GetByID(ctx context.Context, id string) (*attendance.Break, error) {
	q := GetQuerier(ctx, r.db)

	b, err := scanBreak(q.QueryRow(ctx, `SELECT `+breakColumns+` FROM attendance_breaks WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get break: %w", err)
	}
	return &b, nil
}

// Upsert implements attendance.BreakRepository. Ends already recorded are kept
// when the incoming row leaves them empty.
func (r *breakRepository) Upsert(ctx context.Context, b attendance.Break) (attendance.Break, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO attendance_breaks (id, attendance_id, employee_id, company_id, break_start, break_end, duration_minutes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			break_start = COALESCE(EXCLUDED.break_start, attendance_breaks.break_start),
			break_end = COALESCE(EXCLUDED.break_end, attendance_breaks.break_end),
			duration_minutes = COALESCE(EXCLUDED.duration_minutes, attendance_breaks.duration_minutes),
			updated_at = NOW()
		RETURNING ` + breakColumns

	saved, err := scanBreak(q.QueryRow(ctx, query,
		b.ID, b.AttendanceID, b.EmployeeID, b.CompanyID, b.BreakStart, b.BreakEnd, b.DurationMinutes))
	if err != nil {
		return attendance.Break{}, fmt.Errorf("failed to upsert break: %w", err)
	}
	return saved, nil
}

// ListByAttendance implements attendance.BreakRepository.
func (r *breakRepository) ListByAttendance(ctx context.Context, attendanceID string) ([]attendance.Break, error) {
	q := GetQuerier(ctx, r.db)

	rows, err := q.Query(ctx, `SELECT `+breakColumns+` FROM attendance_breaks
		WHERE attendance_id = $1 ORDER BY COALESCE(break_start, break_end)`, attendanceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list breaks: %w", err)
	}
	defer rows.Close()

	var breaks []attendance.Break
	for rows.Next() {
		b, err := scanBreak(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan break: %w", err)
		}
		breaks = append(breaks, b)
	}
	return breaks, rows.Err()
}
