package postgresql

import (
	"context"
	"fmt"

	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/domain/geofence"
	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/pkg/database"
)

type geofenceAlertRepository struct {
	db *database.DB
}

func NewGeofenceAlertRepository(db *database.DB) geofence.AlertRepository {
	return &geofenceAlertRepository{db: db}
}

const alertColumns = `id, company_id, employee_id, branch_id, attendance_id, latitude, longitude, distance_meters, radius_meters, created_at`

// Create implements geofence.AlertRepository.
func (r *geofenceAlertRepository) Create(ctx context.Context, alert geofence.Alert) (geofence.Alert, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO geofence_alerts (company_id, employee_id, branch_id, attendance_id, latitude, longitude, distance_meters, radius_meters)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`
	if err := q.QueryRow(ctx, query,
		alert.CompanyID, alert.EmployeeID, alert.BranchID, alert.AttendanceID,
		alert.Latitude, alert.Longitude, alert.DistanceMeters, alert.RadiusMeters,
	).Scan(&alert.ID, &alert.CreatedAt); err != nil {
		return geofence.Alert{}, fmt.Errorf("failed to create geofence alert: %w", err)
	}
	return alert, nil
}

// List implements geofence.AlertRepository.
func (r *geofenceAlertRepository) List(ctx context.Context, filter geofence.AlertFilter) ([]geofence.Alert, int64, error) {
	q := GetQuerier(ctx, r.db)

	where := "company_id = $1"
	args := []interface{}{filter.CompanyID}
	argIdx := 2

	if filter.EmployeeID != nil && *filter.EmployeeID != "" {
		where += fmt.Sprintf(" AND employee_id = $%d", argIdx)
		args = append(args, *filter.EmployeeID)
		argIdx++
	}
	if filter.BranchID != nil && *filter.BranchID != "" {
		where += fmt.Sprintf(" AND branch_id = $%d", argIdx)
		args = append(args, *filter.BranchID)
		argIdx++
	}
	if filter.From != nil {
		where += fmt.Sprintf(" AND created_at >= $%d", argIdx)
		args = append(args, *filter.From)
		argIdx++
	}
	if filter.To != nil {
		where += fmt.Sprintf(" AND created_at < $%d", argIdx)
		args = append(args, *filter.To)
		argIdx++
	}

	var total int64
	if err := q.QueryRow(ctx, "SELECT COUNT(*) FROM geofence_alerts WHERE "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count geofence alerts: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM geofence_alerts WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		alertColumns, where, argIdx, argIdx+1)
	args = append(args, filter.PageSize, (filter.Page-1)*filter.PageSize)

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query geofence alerts: %w", err)
	}
	defer rows.Close()

	var alerts []geofence.Alert
	for rows.Next() {
		var a geofence.Alert
		if err := rows.Scan(&a.ID, &a.CompanyID, &a.EmployeeID, &a.BranchID, &a.AttendanceID,
			&a.Latitude, &a.Longitude, &a.DistanceMeters, &a.RadiusMeters, &a.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("failed to scan geofence alert: %w", err)
		}
		alerts = append(alerts, a)
	}
	return alerts, total, rows.Err()
}
