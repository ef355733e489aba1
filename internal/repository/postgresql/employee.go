package postgresql

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/domain/employee"
	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/pkg/database"
)

type employeeRepositoryImpl struct {
	db *database.DB
}

func NewEmployeeRepository(db *database.DB) employee.EmployeeRepository {
	return &employeeRepositoryImpl{db: db}
}

const employeeColumns = `id, user_id, company_id, branch_id, full_name, is_manager, employment_status, created_at, updated_at, deleted_at`

func scanEmployee(row pgx.Row) (employee.Employee, error) {
	var e employee.Employee
	err := row.Scan(&e.ID, &e.UserID, &e.CompanyID, &e.BranchID, &e.FullName,
		&e.IsManager, &e.EmploymentStatus, &e.CreatedAt, &e.UpdatedAt, &e.DeletedAt)
	return e, err
}

// GetByID implements employee.EmployeeRepository.
func (e *employeeRepositoryImpl) GetByID(ctx context.Context, id string) (employee.Employee, error) {
	q := GetQuerier(ctx, e.db)

	emp, err := scanEmployee(q.QueryRow(ctx, `SELECT `+employeeColumns+` FROM employees WHERE id = $1`, id))
	if err != nil {
		return employee.Employee{}, fmt.Errorf("failed to get employee: %w", err)
	}
	return emp, nil
}

func (e *employeeRepositoryImpl) list(ctx context.Context, where string, args ...any) ([]employee.Employee, error) {
	q := GetQuerier(ctx, e.db)

	rows, err := q.Query(ctx, `SELECT `+employeeColumns+` FROM employees WHERE `+where+` ORDER BY full_name`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var employees []employee.Employee
	for rows.Next() {
		emp, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		employees = append(employees, emp)
	}
	return employees, rows.Err()
}

// GetManagersByCompanyID implements employee.EmployeeRepository.
func (e *employeeRepositoryImpl) GetManagersByCompanyID(ctx context.Context, companyID string) ([]employee.Employee, error) {
	employees, err := e.list(ctx,
		"company_id = $1 AND is_manager AND deleted_at IS NULL AND employment_status = $2",
		companyID, employee.EmploymentStatusActive)
	if err != nil {
		return nil, fmt.Errorf("failed to get managers: %w", err)
	}
	return employees, nil
}

// GetActiveByCompanyID implements employee.EmployeeRepository.
func (e *employeeRepositoryImpl) GetActiveByCompanyID(ctx context.Context, companyID string) ([]employee.Employee, error) {
	employees, err := e.list(ctx,
		"company_id = $1 AND deleted_at IS NULL AND employment_status = $2",
		companyID, employee.EmploymentStatusActive)
	if err != nil {
		return nil, fmt.Errorf("failed to get active employees: %w", err)
	}
	return employees, nil
}
