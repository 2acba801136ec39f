package employee

import (
	"context"
)

// EmployeeRepository defines data access methods for employee records.
// Balance fields are only ever written through the lifecycle service.
type EmployeeRepository interface {
	// GetByID retrieves an employee by internal id
	GetByID(ctx context.Context, id string) (Employee, error)

	// GetByExternalID maps a time-clock badge number to an employee
	GetByExternalID(ctx context.Context, externalID string) (Employee, error)

	// ListActive retrieves all employees with active status
	ListActive(ctx context.Context) ([]Employee, error)

	// ListByRole retrieves active employees holding the given role
	ListByRole(ctx context.Context, role Role) ([]Employee, error)

	// Update persists employment type, status, balances, grants and markers
	Update(ctx context.Context, emp Employee) error
}
