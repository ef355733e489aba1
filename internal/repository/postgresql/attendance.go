package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/domain/attendance"
	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/domain/overtime"
	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/pkg/database"
)

const attendanceColumns = `
	a.id, a.employee_id, a.company_id, a.branch_id,
	a.clock_in_time, a.clock_out_time,
	a.clock_in_latitude, a.clock_in_longitude, a.clock_out_latitude, a.clock_out_longitude,
	a.location_type, a.field_reason, a.field_description,
	a.is_night_shift, a.is_within_geofence, a.distance_from_office,
	a.device_fingerprint, a.device_changed,
	a.overtime_state, a.overtime_hours, a.overtime_amount, a.overtime_approved,
	a.overtime_start_time, a.overtime_prompted_at, a.overtime_responded_at,
	a.total_hours, a.client_ref, a.clock_out_client_ref, a.source,
	a.created_at, a.updated_at`

type attendanceRepository struct {
	db *database.DB
}

func NewAttendanceRepository(db *database.DB) attendance.AttendanceRepository {
	return &attendanceRepository{db: db}
}

func scanAttendance(row pgx.Row, extra ...any) (attendance.Attendance, error) {
	var att attendance.Attendance
	dest := []any{
		&att.ID, &att.EmployeeID, &att.CompanyID, &att.BranchID,
		&att.ClockInTime, &att.ClockOutTime,
		&att.ClockInLatitude, &att.ClockInLongitude, &att.ClockOutLatitude, &att.ClockOutLongitude,
		&att.LocationType, &att.FieldReason, &att.FieldDescription,
		&att.IsNightShift, &att.IsWithinGeofence, &att.DistanceFromOffice,
		&att.DeviceFingerprint, &att.DeviceChanged,
		&att.OvertimeState, &att.OvertimeHours, &att.OvertimeAmount, &att.OvertimeApproved,
		&att.OvertimeStartTime, &att.OvertimePromptedAt, &att.OvertimeRespondedAt,
		&att.TotalHours, &att.ClientRef, &att.ClockOutClientRef, &att.Source,
		&att.CreatedAt, &att.UpdatedAt,
	}
	if len(extra) > 0 {
		dest = append(dest, extra...)
	}
	err := row.Scan(dest...)
	return att, err
}

// Create implements attendance.AttendanceRepository.
func (a *attendanceRepository) Create(ctx context.Context, att attendance.Attendance) (attendance.Attendance, error) {
	q := GetQuerier(ctx, a.db)

	if att.OvertimeState == "" {
		att.OvertimeState = overtime.StateAwaitingPrompt
	}
	if att.Source == "" {
		att.Source = attendance.SourceOnline
	}

	query := `
		INSERT INTO attendance_logs (
			employee_id, company_id, branch_id, clock_in_time,
			clock_in_latitude, clock_in_longitude,
			location_type, field_reason, field_description,
			is_night_shift, is_within_geofence, distance_from_office,
			device_fingerprint, device_changed, overtime_state,
			client_ref, source
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17
		) RETURNING id, created_at, updated_at
	`

	err := q.QueryRow(ctx, query,
		att.EmployeeID, att.CompanyID, att.BranchID, att.ClockInTime,
		att.ClockInLatitude, att.ClockInLongitude,
		att.LocationType, att.FieldReason, att.FieldDescription,
		att.IsNightShift, att.IsWithinGeofence, att.DistanceFromOffice,
		att.DeviceFingerprint, att.DeviceChanged, att.OvertimeState,
		att.ClientRef, att.Source,
	).Scan(&att.ID, &att.CreatedAt, &att.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			switch uniqueConstraint(err) {
			case "uq_attendance_logs_client_ref":
				return attendance.Attendance{}, attendance.ErrDuplicateClientRef
			case "uq_attendance_logs_open_session":
				return attendance.Attendance{}, attendance.ErrAlreadyClockedIn
			}
		}
		return attendance.Attendance{}, fmt.Errorf("failed to create attendance: %w", err)
	}

	return att, nil
}

// GetByID implements attendance.AttendanceRepository.
func (a *attendanceRepository) GetByID(ctx context.Context, id string, companyID string) (attendance.Attendance, error) {
	q := GetQuerier(ctx, a.db)

	query := `SELECT ` + attendanceColumns + `, e.full_name
		FROM attendance_logs a
		LEFT JOIN employees e ON e.id = a.employee_id
		WHERE a.id = $1 AND a.company_id = $2`

	var name *string
	att, err := scanAttendance(q.QueryRow(ctx, query, id, companyID), &name)
	if err != nil {
		return attendance.Attendance{}, fmt.Errorf("failed to get attendance by id: %w", err)
	}
	att.EmployeeName = name
	return att, nil
}

func (a *attendanceRepository) getOne(ctx context.Context, where string, args ...any) (*attendance.Attendance, error) {
	q := GetQuerier(ctx, a.db)

	query := `SELECT ` + attendanceColumns + ` FROM attendance_logs a WHERE ` + where + ` LIMIT 1`
	att, err := scanAttendance(q.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &att, nil
}

// GetByClientRef implements attendance.AttendanceRepository.
func (a *attendanceRepository) GetByClientRef(ctx context.Context, employeeID string, clientRef string) (*attendance.Attendance, error) {
	att, err := a.getOne(ctx, "a.employee_id = $1 AND a.client_ref = $2", employeeID, clientRef)
	if err != nil {
		return nil, fmt.Errorf("failed to get attendance by client ref: %w", err)
	}
	return att, nil
}

// GetByClockOutClientRef implements attendance.AttendanceRepository.
func (a *attendanceRepository) GetByClockOutClientRef(ctx context.Context, employeeID string, clientRef string) (*attendance.Attendance, error) {
	att, err := a.getOne(ctx, "a.employee_id = $1 AND a.clock_out_client_ref = $2", employeeID, clientRef)
	if err != nil {
		return nil, fmt.Errorf("failed to get attendance by clock-out client ref: %w", err)
	}
	return att, nil
}

// GetOpenSession implements attendance.AttendanceRepository.
func (a *attendanceRepository) GetOpenSession(ctx context.Context, employeeID string) (*attendance.Attendance, error) {
	att, err := a.getOne(ctx, "a.employee_id = $1 AND a.clock_out_time IS NULL", employeeID)
	if err != nil {
		return nil, fmt.Errorf("failed to get open session: %w", err)
	}
	return att, nil
}

// Close implements attendance.AttendanceRepository.
func (a *attendanceRepository) Close(ctx context.Context, att attendance.Attendance) error {
	q := GetQuerier(ctx, a.db)

	query := `
		UPDATE attendance_logs SET
			clock_out_time = $3,
			clock_out_latitude = $4,
			clock_out_longitude = $5,
			clock_out_client_ref = $6,
			total_hours = $7,
			overtime_hours = $8,
			overtime_amount = $9,
			updated_at = NOW()
		WHERE id = $1 AND company_id = $2 AND clock_out_time IS NULL
	`

	tag, err := q.Exec(ctx, query,
		att.ID, att.CompanyID,
		att.ClockOutTime, att.ClockOutLatitude, att.ClockOutLongitude, att.ClockOutClientRef,
		att.TotalHours, att.OvertimeHours, att.OvertimeAmount,
	)
	if err != nil {
		if isUniqueViolation(err) && uniqueConstraint(err) == "uq_attendance_logs_clock_out_client_ref" {
			return attendance.ErrDuplicateClientRef
		}
		return fmt.Errorf("failed to close attendance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return attendance.ErrAlreadyClockedOut
	}
	return nil
}

// UpdateOvertime implements attendance.AttendanceRepository.
func (a *attendanceRepository) UpdateOvertime(ctx context.Context, t attendance.OvertimeTransition) error {
	q := GetQuerier(ctx, a.db)

	query := `
		UPDATE attendance_logs SET
			overtime_state = $3,
			overtime_prompted_at = COALESCE($4, overtime_prompted_at),
			overtime_start_time = COALESCE($5, overtime_start_time),
			overtime_responded_at = COALESCE($6, overtime_responded_at),
			overtime_approved = COALESCE($7, overtime_approved),
			updated_at = NOW()
		WHERE id = $1 AND overtime_state = $2 AND clock_out_time IS NULL
	`

	tag, err := q.Exec(ctx, query,
		t.AttendanceID, t.From, t.To,
		t.PromptedAt, t.StartTime, t.RespondedAt, t.Approved,
	)
	if err != nil {
		return fmt.Errorf("failed to update overtime state: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return overtime.ErrStateConflict
	}
	return nil
}

func (a *attendanceRepository) listWhere(ctx context.Context, where string, args ...any) ([]attendance.Attendance, error) {
	q := GetQuerier(ctx, a.db)

	query := `SELECT ` + attendanceColumns + ` FROM attendance_logs a WHERE ` + where + ` ORDER BY a.clock_in_time`
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []attendance.Attendance
	for rows.Next() {
		att, err := scanAttendance(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, att)
	}
	return out, rows.Err()
}

// ListOpenInOvertimeFlow implements attendance.AttendanceRepository.
func (a *attendanceRepository) ListOpenInOvertimeFlow(ctx context.Context) ([]attendance.Attendance, error) {
	out, err := a.listWhere(ctx, "a.clock_out_time IS NULL AND a.overtime_state IN ($1, $2)",
		overtime.StateAwaitingPrompt, overtime.StatePrompted)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions in overtime flow: %w", err)
	}
	return out, nil
}

// ListStaleOpen implements attendance.AttendanceRepository.
func (a *attendanceRepository) ListStaleOpen(ctx context.Context, before time.Time) ([]attendance.Attendance, error) {
	out, err := a.listWhere(ctx, "a.clock_out_time IS NULL AND a.clock_in_time < $1", before)
	if err != nil {
		return nil, fmt.Errorf("failed to list stale sessions: %w", err)
	}
	return out, nil
}

// List implements attendance.AttendanceRepository.
func (a *attendanceRepository) List(ctx context.Context, filter attendance.Filter) ([]attendance.Attendance, int64, error) {
	q := GetQuerier(ctx, a.db)
	filter.Normalize()

	baseWhere := "a.company_id = $1"
	args := []interface{}{filter.CompanyID}
	argIdx := 2

	if filter.EmployeeID != nil && *filter.EmployeeID != "" {
		baseWhere += fmt.Sprintf(" AND a.employee_id = $%d", argIdx)
		args = append(args, *filter.EmployeeID)
		argIdx++
	}
	if filter.From != nil {
		baseWhere += fmt.Sprintf(" AND a.clock_in_time >= $%d", argIdx)
		args = append(args, *filter.From)
		argIdx++
	}
	if filter.To != nil {
		baseWhere += fmt.Sprintf(" AND a.clock_in_time < $%d", argIdx)
		args = append(args, *filter.To)
		argIdx++
	}
	if filter.OpenOnly {
		baseWhere += " AND a.clock_out_time IS NULL"
	}

	var total int64
	if err := q.QueryRow(ctx, "SELECT COUNT(*) FROM attendance_logs a WHERE "+baseWhere, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count attendances: %w", err)
	}

	selectQuery := fmt.Sprintf(`
		SELECT %s, e.full_name
		FROM attendance_logs a
		LEFT JOIN employees e ON e.id = a.employee_id
		WHERE %s
		ORDER BY a.clock_in_time DESC
		LIMIT $%d OFFSET $%d
	`, attendanceColumns, baseWhere, argIdx, argIdx+1)
	args = append(args, filter.PageSize, (filter.Page-1)*filter.PageSize)

	rows, err := q.Query(ctx, selectQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query attendances: %w", err)
	}
	defer rows.Close()

	var attendances []attendance.Attendance
	for rows.Next() {
		var name *string
		att, err := scanAttendance(rows, &name)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan attendance: %w", err)
		}
		att.EmployeeName = name
		attendances = append(attendances, att)
	}

	return attendances, total, rows.Err()
}
