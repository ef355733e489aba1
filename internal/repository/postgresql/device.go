package postgresql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/domain/device"
	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/pkg/database"
)

type deviceRepository struct {
	db *database.DB
}

func NewDeviceRepository(db *database.DB) device.Repository {
	return &deviceRepository{db: db}
}

const deviceColumns = `id, employee_id, company_id, fingerprint, attributes, first_seen_at, last_seen_at`

func scanDevice(row pgx.Row) (device.Device, error) {
	var (
		d     device.Device
		attrs []byte
	)
	if err := row.Scan(&d.ID, &d.EmployeeID, &d.CompanyID, &d.Fingerprint, &attrs, &d.FirstSeenAt, &d.LastSeenAt); err != nil {
		return device.Device{}, err
	}
	if len(attrs) > 0 {
		if err := json.Unmarshal(attrs, &d.Attributes); err != nil {
			return device.Device{}, fmt.Errorf("failed to decode device attributes: %w", err)
		}
	}
	return d, nil
}

// GetLatest implements device.Repository.
func (r *deviceRepository) GetLatest(ctx context.Context, employeeID string) (*device.Device, error) {
	q := GetQuerier(ctx, r.db)

	d, err := scanDevice(q.QueryRow(ctx, `SELECT `+deviceColumns+` FROM employee_devices
		WHERE employee_id = $1 ORDER BY last_seen_at DESC LIMIT 1`, employeeID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest device: %w", err)
	}
	return &d, nil
}

// Touch implements device.Repository.
func (r *deviceRepository) Touch(ctx context.Context, d device.Device) (device.Device, error) {
	q := GetQuerier(ctx, r.db)

	attrs, err := json.Marshal(d.Attributes)
	if err != nil {
		return device.Device{}, fmt.Errorf("failed to encode device attributes: %w", err)
	}

	query := `
		INSERT INTO employee_devices (employee_id, company_id, fingerprint, attributes, first_seen_at, last_seen_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		ON CONFLICT (employee_id, fingerprint) DO UPDATE SET
			attributes = EXCLUDED.attributes,
			last_seen_at = GREATEST(employee_devices.last_seen_at, EXCLUDED.last_seen_at)
		RETURNING ` + deviceColumns

	saved, err := scanDevice(q.QueryRow(ctx, query, d.EmployeeID, d.CompanyID, d.Fingerprint, attrs, d.LastSeenAt))
	if err != nil {
		return device.Device{}, fmt.Errorf("failed to touch device: %w", err)
	}
	return saved, nil
}

// ListByEmployee implements device.Repository.
func (r *deviceRepository) ListByEmployee(ctx context.Context, employeeID string) ([]device.Device, error) {
	q := GetQuerier(ctx, r.db)

	rows, err := q.Query(ctx, `SELECT `+deviceColumns+` FROM employee_devices
		WHERE employee_id = $1 ORDER BY last_seen_at DESC`, employeeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}
	defer rows.Close()

	var devices []device.Device
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan device: %w", err)
		}
		devices = append(devices, d)
	}
	return devices, rows.Err()
}
