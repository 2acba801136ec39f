package postgresql

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/workstream-hr/attendance-engine-go/internal/domain/attendance"
	"github.com/workstream-hr/attendance-engine-go/internal/pkg/database"
)

type attendanceRepository struct {
	db *database.DB
}

func NewAttendanceRepository(db *database.DB) attendance.AttendanceRepository {
	return &attendanceRepository{db: db}
}

const attendanceColumns = `id, employee_id, date, time_in, time_out, status, half_day_portion, overtime_minutes, created_at, updated_at`

func scanAttendance(row pgx.Row) (attendance.Attendance, error) {
	var att attendance.Attendance
	err := row.Scan(
		&att.ID, &att.EmployeeID, &att.Date, &att.TimeIn, &att.TimeOut,
		&att.Status, &att.HalfDayPortion, &att.OvertimeMinutes,
		&att.CreatedAt, &att.UpdatedAt,
	)
	return att, err
}

// Upsert implements attendance.AttendanceRepository.
func (a *attendanceRepository) Upsert(ctx context.Context, att attendance.Attendance) (attendance.Attendance, error) {
	q := GetQuerier(ctx, a.db)

	query := `
		INSERT INTO attendances (employee_id, date, time_in, time_out, status, half_day_portion, overtime_minutes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (employee_id, date) DO UPDATE SET
			time_in = EXCLUDED.time_in,
			time_out = EXCLUDED.time_out,
			status = EXCLUDED.status,
			half_day_portion = EXCLUDED.half_day_portion,
			overtime_minutes = EXCLUDED.overtime_minutes,
			updated_at = NOW()
		RETURNING id, created_at, updated_at
	`

	err := q.QueryRow(ctx, query,
		att.EmployeeID, att.Date, att.TimeIn, att.TimeOut,
		att.Status, att.HalfDayPortion, att.OvertimeMinutes,
	).Scan(&att.ID, &att.CreatedAt, &att.UpdatedAt)
	if err != nil {
		return attendance.Attendance{}, fmt.Errorf("failed to upsert attendance: %w", err)
	}

	return att, nil
}

// CreateIfAbsent implements attendance.AttendanceRepository.
func (a *attendanceRepository) CreateIfAbsent(ctx context.Context, att attendance.Attendance) (bool, error) {
	q := GetQuerier(ctx, a.db)

	query := `
		INSERT INTO attendances (employee_id, date, time_in, time_out, status, half_day_portion, overtime_minutes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (employee_id, date) DO NOTHING
	`

	tag, err := q.Exec(ctx, query,
		att.EmployeeID, att.Date, att.TimeIn, att.TimeOut,
		att.Status, att.HalfDayPortion, att.OvertimeMinutes,
	)
	if err != nil {
		return false, fmt.Errorf("failed to create attendance: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

// GetByEmployeeAndDate implements attendance.AttendanceRepository.
func (a *attendanceRepository) GetByEmployeeAndDate(ctx context.Context, employeeID string, date time.Time) (attendance.Attendance, error) {
	q := GetQuerier(ctx, a.db)

	query := `SELECT ` + attendanceColumns + ` FROM attendances WHERE employee_id = $1 AND date = $2`

	att, err := scanAttendance(q.QueryRow(ctx, query, employeeID, date))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return attendance.Attendance{}, attendance.ErrAttendanceNotFound
		}
		return attendance.Attendance{}, fmt.Errorf("failed to get attendance: %w", err)
	}

	return att, nil
}

// Update implements attendance.AttendanceRepository.
func (a *attendanceRepository) Update(ctx context.Context, att attendance.Attendance) error {
	q := GetQuerier(ctx, a.db)

	query := `
		UPDATE attendances
		SET time_in = $2, time_out = $3, status = $4, half_day_portion = $5,
		    overtime_minutes = $6, updated_at = NOW()
		WHERE id = $1
	`

	tag, err := q.Exec(ctx, query, att.ID, att.TimeIn, att.TimeOut, att.Status, att.HalfDayPortion, att.OvertimeMinutes)
	if err != nil {
		return fmt.Errorf("failed to update attendance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return attendance.ErrAttendanceNotFound
	}

	return nil
}

// ListByEmployeeRange implements attendance.AttendanceRepository.
func (a *attendanceRepository) ListByEmployeeRange(ctx context.Context, employeeID string, from, to time.Time) ([]attendance.Attendance, error) {
	q := GetQuerier(ctx, a.db)

	query := `SELECT ` + attendanceColumns + ` FROM attendances WHERE employee_id = $1 AND date BETWEEN $2 AND $3 ORDER BY date`

	rows, err := q.Query(ctx, query, employeeID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list attendance range: %w", err)
	}
	defer rows.Close()

	var atts []attendance.Attendance
	for rows.Next() {
		att, err := scanAttendance(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan attendance: %w", err)
		}
		atts = append(atts, att)
	}

	return atts, rows.Err()
}

// ListForSettlement implements attendance.AttendanceRepository.
func (a *attendanceRepository) ListForSettlement(ctx context.Context, date time.Time, minOvertime int) ([]attendance.Attendance, error) {
	q := GetQuerier(ctx, a.db)

	query := `SELECT ` + attendanceColumns + ` FROM attendances WHERE date = $1 AND overtime_minutes >= $2`

	rows, err := q.Query(ctx, query, date, minOvertime)
	if err != nil {
		return nil, fmt.Errorf("failed to list attendances for settlement: %w", err)
	}
	defer rows.Close()

	var atts []attendance.Attendance
	for rows.Next() {
		att, err := scanAttendance(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan attendance: %w", err)
		}
		atts = append(atts, att)
	}

	return atts, rows.Err()
}

// CountLateArrivals implements attendance.AttendanceRepository.
func (a *attendanceRepository) CountLateArrivals(ctx context.Context, employeeID string, from, to time.Time, windowStart, windowEnd string) (int, error) {
	q := GetQuerier(ctx, a.db)

	query := `
		SELECT COUNT(*)
		FROM attendances
		WHERE employee_id = $1
		  AND date BETWEEN $2 AND $3
		  AND time_in IS NOT NULL
		  AND time_in::time >= $4::time
		  AND time_in::time <= $5::time
	`

	var count int
	err := q.QueryRow(ctx, query, employeeID, from, to, windowStart, windowEnd).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count late arrivals: %w", err)
	}

	return count, nil
}

// List implements attendance.AttendanceRepository.
func (a *attendanceRepository) List(ctx context.Context, filter attendance.Filter) ([]attendance.Attendance, int64, error) {
	q := GetQuerier(ctx, a.db)

	conditions := []string{"1=1"}
	args := []interface{}{}
	argPos := 1

	if filter.EmployeeID != "" {
		conditions = append(conditions, fmt.Sprintf("a.employee_id = $%d", argPos))
		args = append(args, filter.EmployeeID)
		argPos++
	}
	if filter.From != nil {
		conditions = append(conditions, fmt.Sprintf("a.date >= $%d", argPos))
		args = append(args, *filter.From)
		argPos++
	}
	if filter.To != nil {
		conditions = append(conditions, fmt.Sprintf("a.date <= $%d", argPos))
		args = append(args, *filter.To)
		argPos++
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("a.status = $%d", argPos))
		args = append(args, filter.Status)
		argPos++
	}

	where := strings.Join(conditions, " AND ")

	var total int64
	countQuery := `SELECT COUNT(*) FROM attendances a WHERE ` + where
	if err := q.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count attendances: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT a.id, a.employee_id, a.date, a.time_in, a.time_out, a.status,
		       a.half_day_portion, a.overtime_minutes, a.created_at, a.updated_at,
		       e.name
		FROM attendances a
		JOIN employees e ON e.id = a.employee_id
		WHERE %s
		ORDER BY a.date DESC, e.name
		LIMIT $%d OFFSET $%d
	`, where, argPos, argPos+1)
	args = append(args, filter.Limit, (filter.Page-1)*filter.Limit)

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list attendances: %w", err)
	}
	defer rows.Close()

	var atts []attendance.Attendance
	for rows.Next() {
		var att attendance.Attendance
		if err := rows.Scan(
			&att.ID, &att.EmployeeID, &att.Date, &att.TimeIn, &att.TimeOut,
			&att.Status, &att.HalfDayPortion, &att.OvertimeMinutes,
			&att.CreatedAt, &att.UpdatedAt, &att.EmployeeName,
		); err != nil {
			return nil, 0, fmt.Errorf("failed to scan attendance: %w", err)
		}
		atts = append(atts, att)
	}

	return atts, total, rows.Err()
}
