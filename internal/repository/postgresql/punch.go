package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/workstream-hr/attendance-engine-go/internal/domain/punch"
	"github.com/workstream-hr/attendance-engine-go/internal/pkg/database"
)

type rawPunchRepository struct {
	db *database.DB
}

func NewRawPunchRepository(db *database.DB) punch.RawPunchRepository {
	return &rawPunchRepository{db: db}
}

// InsertBatch implements punch.RawPunchRepository. The unique index on
// (employee_id, date, punch_time) makes overlapping ingestion windows safe:
// rows seen in a previous run are skipped, not duplicated.
func (r *rawPunchRepository) InsertBatch(ctx context.Context, punches []punch.RawPunch) (int, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO raw_punches (employee_id, date, punch_time, direction, processed)
		VALUES ($1, $2, $3, $4, false)
		ON CONFLICT (employee_id, date, punch_time) DO NOTHING
	`

	inserted := 0
	for _, p := range punches {
		tag, err := q.Exec(ctx, query, p.EmployeeID, p.Date, p.PunchTime, p.Direction)
		if err != nil {
			return inserted, fmt.Errorf("failed to insert raw punch: %w", err)
		}
		inserted += int(tag.RowsAffected())
	}

	return inserted, nil
}

// ListUnprocessed implements punch.RawPunchRepository.
func (r *rawPunchRepository) ListUnprocessed(ctx context.Context, employeeID string, date time.Time) ([]punch.RawPunch, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT id, employee_id, date, punch_time, direction, processed, created_at
		FROM raw_punches
		WHERE employee_id = $1
		  AND date = $2
		  AND processed = false
		ORDER BY punch_time
	`

	rows, err := q.Query(ctx, query, employeeID, date)
	if err != nil {
		return nil, fmt.Errorf("failed to list unprocessed punches: %w", err)
	}
	defer rows.Close()

	var punches []punch.RawPunch
	for rows.Next() {
		var p punch.RawPunch
		if err := rows.Scan(&p.ID, &p.EmployeeID, &p.Date, &p.PunchTime, &p.Direction, &p.Processed, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan raw punch: %w", err)
		}
		punches = append(punches, p)
	}

	return punches, rows.Err()
}

// ListUnprocessedDays implements punch.RawPunchRepository.
func (r *rawPunchRepository) ListUnprocessedDays(ctx context.Context) ([]punch.EmployeeDay, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT DISTINCT employee_id, date
		FROM raw_punches
		WHERE processed = false
		ORDER BY date, employee_id
	`

	rows, err := q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list unprocessed days: %w", err)
	}
	defer rows.Close()

	var days []punch.EmployeeDay
	for rows.Next() {
		var d punch.EmployeeDay
		if err := rows.Scan(&d.EmployeeID, &d.Date); err != nil {
			return nil, fmt.Errorf("failed to scan employee day: %w", err)
		}
		days = append(days, d)
	}

	return days, rows.Err()
}

// HasPunches implements punch.RawPunchRepository.
func (r *rawPunchRepository) HasPunches(ctx context.Context, employeeID string, date time.Time) (bool, error) {
	q := GetQuerier(ctx, r.db)

	var exists bool
	err := q.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM raw_punches WHERE employee_id = $1 AND date = $2)
	`, employeeID, date).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check punches: %w", err)
	}

	return exists, nil
}

// MarkProcessed implements punch.RawPunchRepository.
func (r *rawPunchRepository) MarkProcessed(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	q := GetQuerier(ctx, r.db)

	_, err := q.Exec(ctx, `UPDATE raw_punches SET processed = true WHERE id = ANY($1)`, ids)
	if err != nil {
		return fmt.Errorf("failed to mark punches processed: %w", err)
	}

	return nil
}

// DeleteProcessedBefore implements punch.RawPunchRepository.
func (r *rawPunchRepository) DeleteProcessedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	q := GetQuerier(ctx, r.db)

	tag, err := q.Exec(ctx, `DELETE FROM raw_punches WHERE processed = true AND date < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete processed punches: %w", err)
	}

	return tag.RowsAffected(), nil
}

// Watermark implements punch.RawPunchRepository.
func (r *rawPunchRepository) Watermark(ctx context.Context) (time.Time, error) {
	q := GetQuerier(ctx, r.db)

	var t time.Time
	err := q.QueryRow(ctx, `SELECT synced_until FROM sync_state WHERE name = 'punch_ingest'`).Scan(&t)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return time.Time{}, nil
		}
		return time.Time{}, fmt.Errorf("failed to read sync watermark: %w", err)
	}

	return t, nil
}

// SetWatermark implements punch.RawPunchRepository.
func (r *rawPunchRepository) SetWatermark(ctx context.Context, t time.Time) error {
	q := GetQuerier(ctx, r.db)

	_, err := q.Exec(ctx, `
		INSERT INTO sync_state (name, synced_until) VALUES ('punch_ingest', $1)
		ON CONFLICT (name) DO UPDATE SET synced_until = EXCLUDED.synced_until
	`, t)
	if err != nil {
		return fmt.Errorf("failed to set sync watermark: %w", err)
	}

	return nil
}
