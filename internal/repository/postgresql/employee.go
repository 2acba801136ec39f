package postgresql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/workstream-hr/attendance-engine-go/internal/domain/employee"
	"github.com/workstream-hr/attendance-engine-go/internal/pkg/database"
)

type employeeRepository struct {
	db *database.DB
}

func NewEmployeeRepository(db *database.DB) employee.EmployeeRepository {
	return &employeeRepository{db: db}
}

const employeeColumns = `
	id, external_id, name, email, department, designation, employee_type,
	status, role, department_head_id, join_date, confirmation_date, resignation_date,
	paid_leave_balance, medical_leave_balance, restricted_holiday_balance,
	maternity_claims_used, paternity_claims_used, unpaid_leave_taken, comp_grants,
	emergency_leave_granted, emergency_leave_granted_at, resignation_settled,
	last_leave_reset, last_medical_reset, last_restricted_reset, last_comp_reset,
	created_at, updated_at`

func scanEmployee(row pgx.Row) (employee.Employee, error) {
	var emp employee.Employee
	var grants []byte
	err := row.Scan(
		&emp.ID, &emp.ExternalID, &emp.Name, &emp.Email, &emp.Department, &emp.Designation, &emp.Type,
		&emp.Status, &emp.Role, &emp.DepartmentHeadID, &emp.JoinDate, &emp.ConfirmationDate, &emp.ResignationDate,
		&emp.PaidLeaveBalance, &emp.MedicalLeaveBalance, &emp.RestrictedHolidayBalance,
		&emp.MaternityClaimsUsed, &emp.PaternityClaimsUsed, &emp.UnpaidLeaveTaken, &grants,
		&emp.EmergencyLeaveGranted, &emp.EmergencyLeaveGrantedAt, &emp.ResignationSettled,
		&emp.Markers.Leave, &emp.Markers.Medical, &emp.Markers.RestrictedHoliday, &emp.Markers.Compensatory,
		&emp.CreatedAt, &emp.UpdatedAt,
	)
	if err != nil {
		return employee.Employee{}, err
	}
	if len(grants) > 0 {
		if err := json.Unmarshal(grants, &emp.CompGrants); err != nil {
			return employee.Employee{}, fmt.Errorf("failed to decode comp grants: %w", err)
		}
	}
	return emp, nil
}

// GetByID implements employee.EmployeeRepository.
func (r *employeeRepository) GetByID(ctx context.Context, id string) (employee.Employee, error) {
	q := GetQuerier(ctx, r.db)

	emp, err := scanEmployee(q.QueryRow(ctx, `SELECT `+employeeColumns+` FROM employees WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return employee.Employee{}, employee.ErrEmployeeNotFound
		}
		return employee.Employee{}, fmt.Errorf("failed to get employee: %w", err)
	}

	return emp, nil
}

// GetByExternalID implements employee.EmployeeRepository.
func (r *employeeRepository) GetByExternalID(ctx context.Context, externalID string) (employee.Employee, error) {
	q := GetQuerier(ctx, r.db)

	emp, err := scanEmployee(q.QueryRow(ctx, `SELECT `+employeeColumns+` FROM employees WHERE external_id = $1`, externalID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return employee.Employee{}, employee.ErrUnknownExternalID
		}
		return employee.Employee{}, fmt.Errorf("failed to get employee by external id: %w", err)
	}

	return emp, nil
}

// ListActive implements employee.EmployeeRepository.
func (r *employeeRepository) ListActive(ctx context.Context) ([]employee.Employee, error) {
	q := GetQuerier(ctx, r.db)

	rows, err := q.Query(ctx, `SELECT `+employeeColumns+` FROM employees WHERE status = 'active' ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list active employees: %w", err)
	}
	defer rows.Close()

	var emps []employee.Employee
	for rows.Next() {
		emp, err := scanEmployee(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan employee: %w", err)
		}
		emps = append(emps, emp)
	}

	return emps, rows.Err()
}

// ListByRole implements employee.EmployeeRepository.
func (r *employeeRepository) ListByRole(ctx context.Context, role employee.Role) ([]employee.Employee, error) {
	q := GetQuerier(ctx, r.db)

	rows, err := q.Query(ctx, `SELECT `+employeeColumns+` FROM employees WHERE status = 'active' AND role = $1`, role)
	if err != nil {
		return nil, fmt.Errorf("failed to list employees by role: %w", err)
	}
	defer rows.Close()

	var emps []employee.Employee
	for rows.Next() {
		emp, err := scanEmployee(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan employee: %w", err)
		}
		emps = append(emps, emp)
	}

	return emps, rows.Err()
}

// Update implements employee.EmployeeRepository.
func (r *employeeRepository) Update(ctx context.Context, emp employee.Employee) error {
	q := GetQuerier(ctx, r.db)

	grants, err := json.Marshal(emp.CompGrants)
	if err != nil {
		return fmt.Errorf("failed to encode comp grants: %w", err)
	}

	query := `
		UPDATE employees
		SET employee_type = $2, status = $3,
		    paid_leave_balance = $4, medical_leave_balance = $5, restricted_holiday_balance = $6,
		    maternity_claims_used = $7, paternity_claims_used = $8, unpaid_leave_taken = $9,
		    comp_grants = $10,
		    emergency_leave_granted = $11, emergency_leave_granted_at = $12,
		    resignation_settled = $13,
		    last_leave_reset = $14, last_medical_reset = $15,
		    last_restricted_reset = $16, last_comp_reset = $17,
		    updated_at = NOW()
		WHERE id = $1
	`

	tag, err := q.Exec(ctx, query,
		emp.ID, emp.Type, emp.Status,
		emp.PaidLeaveBalance, emp.MedicalLeaveBalance, emp.RestrictedHolidayBalance,
		emp.MaternityClaimsUsed, emp.PaternityClaimsUsed, emp.UnpaidLeaveTaken,
		grants,
		emp.EmergencyLeaveGranted, emp.EmergencyLeaveGrantedAt,
		emp.ResignationSettled,
		emp.Markers.Leave, emp.Markers.Medical, emp.Markers.RestrictedHoliday, emp.Markers.Compensatory,
	)
	if err != nil {
		return fmt.Errorf("failed to update employee: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return employee.ErrEmployeeNotFound
	}

	return nil
}
