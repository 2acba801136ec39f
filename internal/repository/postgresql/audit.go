package postgresql

import (
	"context"
	"fmt"

	"github.com/workstream-hr/attendance-engine-go/internal/domain/audit"
	"github.com/workstream-hr/attendance-engine-go/internal/pkg/database"
)

type auditRepository struct {
	db *database.DB
}

func NewAuditRepository(db *database.DB) audit.Repository {
	return &auditRepository{db: db}
}

// Record implements audit.Repository.
func (r *auditRepository) Record(ctx context.Context, entry audit.Entry) error {
	q := GetQuerier(ctx, r.db)

	_, err := q.Exec(ctx, `
		INSERT INTO audit_log (employee_id, event, detail)
		VALUES ($1, $2, $3)
	`, entry.EmployeeID, entry.Event, entry.Detail)
	if err != nil {
		return fmt.Errorf("failed to record audit entry: %w", err)
	}

	return nil
}

// ListByEmployee implements audit.Repository.
func (r *auditRepository) ListByEmployee(ctx context.Context, employeeID string, limit int) ([]audit.Entry, error) {
	q := GetQuerier(ctx, r.db)

	rows, err := q.Query(ctx, `
		SELECT id, employee_id, event, detail, created_at
		FROM audit_log
		WHERE employee_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, employeeID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	defer rows.Close()

	var entries []audit.Entry
	for rows.Next() {
		var e audit.Entry
		if err := rows.Scan(&e.ID, &e.EmployeeID, &e.Event, &e.Detail, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}
