package postgresql_test

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/pkg/database"
)

// fixture holds one company with a branch, an employee and a manager.
type fixture struct {
	DB         *database.DB
	CompanyID  string
	BranchID   string
	EmployeeID string
	ManagerID  string
	UserID     string
}

// newTestDatabase connects to TEST_DATABASE_URL, migrates and truncates.
// Tests are skipped when the variable is unset.
func newTestDatabase(t *testing.T) *fixture {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	db, err := database.NewPostgreSQLDB(ctx, dsn, database.PoolOptions{MaxConns: 8})
	require.NoError(t, err)
	t.Cleanup(db.Close)

	require.NoError(t, db.Migrate(ctx))

	_, err = db.Exec(ctx, `TRUNCATE TABLE
		notifications, notification_preferences, geofence_alerts, employee_devices,
		attendance_charges, escalation_rules, sync_queue_items,
		overtime_rates, weekend_work_confirmations, attendance_breaks, attendance_logs,
		employees, branches, companies CASCADE`)
	require.NoError(t, err)

	f := &fixture{DB: db}
	require.NoError(t, db.QueryRow(ctx,
		`INSERT INTO companies (name) VALUES ('Zeenab Foods') RETURNING id`).Scan(&f.CompanyID))
	require.NoError(t, db.QueryRow(ctx,
		`INSERT INTO branches (company_id, name, latitude, longitude, radius_meters, timezone, work_start_time, work_end_time)
		 VALUES ($1, 'Ikeja', 6.5244, 3.3792, 100, 'Africa/Lagos', '09:00', '17:00') RETURNING id`,
		f.CompanyID).Scan(&f.BranchID))
	require.NoError(t, db.QueryRow(ctx,
		`INSERT INTO employees (company_id, user_id, branch_id, full_name)
		 VALUES ($1, gen_random_uuid(), $2, 'Ada Obi') RETURNING id, user_id`,
		f.CompanyID, f.BranchID).Scan(&f.EmployeeID, &f.UserID))
	require.NoError(t, db.QueryRow(ctx,
		`INSERT INTO employees (company_id, user_id, branch_id, full_name, is_manager)
		 VALUES ($1, gen_random_uuid(), $2, 'Musa Bello', true) RETURNING id`,
		f.CompanyID, f.BranchID).Scan(&f.ManagerID))

	return f
}
