package postgresql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/workstream-hr/attendance-engine-go/internal/domain/request"
	"github.com/workstream-hr/attendance-engine-go/internal/pkg/database"
)

type requestRepository struct {
	db *database.DB
}

func NewRequestRepository(db *database.DB) request.RequestRepository {
	return &requestRepository{db: db}
}

// Create implements request.RequestRepository.
func (r *requestRepository) Create(ctx context.Context, req request.ApprovableRequest) (request.ApprovableRequest, error) {
	q := GetQuerier(ctx, r.db)

	payload, err := json.Marshal(req.Payload)
	if err != nil {
		return request.ApprovableRequest{}, fmt.Errorf("failed to encode request payload: %w", err)
	}

	query := `
		INSERT INTO approvable_requests (request_type, requestor_id, payload, stage_a, stage_b, stage_c, remarks)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`

	err = q.QueryRow(ctx, query,
		req.Type, req.RequestorID, payload, req.StageA, req.StageB, req.StageC, req.Remarks,
	).Scan(&req.ID, &req.CreatedAt, &req.UpdatedAt)
	if err != nil {
		return request.ApprovableRequest{}, fmt.Errorf("failed to create request: %w", err)
	}

	return req, nil
}

// GetByID implements request.RequestRepository.
func (r *requestRepository) GetByID(ctx context.Context, id string) (request.ApprovableRequest, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT r.id, r.request_type, r.requestor_id, r.payload,
		       r.stage_a, r.stage_b, r.stage_c, r.remarks, r.created_at, r.updated_at,
		       e.name
		FROM approvable_requests r
		JOIN employees e ON e.id = r.requestor_id
		WHERE r.id = $1
	`

	var req request.ApprovableRequest
	var payload []byte
	err := q.QueryRow(ctx, query, id).Scan(
		&req.ID, &req.Type, &req.RequestorID, &payload,
		&req.StageA, &req.StageB, &req.StageC, &req.Remarks, &req.CreatedAt, &req.UpdatedAt,
		&req.RequestorName,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return request.ApprovableRequest{}, request.ErrRequestNotFound
		}
		return request.ApprovableRequest{}, fmt.Errorf("failed to get request: %w", err)
	}

	if err := json.Unmarshal(payload, &req.Payload); err != nil {
		return request.ApprovableRequest{}, fmt.Errorf("failed to decode request payload: %w", err)
	}

	return req, nil
}

// UpdateStages implements request.RequestRepository. The WHERE clause pins
// the stage being advanced to its expected current value, so a concurrent
// decision on the same stage loses and reports no change.
func (r *requestRepository) UpdateStages(ctx context.Context, req request.ApprovableRequest, stage request.Stage, expect request.StageState) (bool, error) {
	q := GetQuerier(ctx, r.db)

	var col string
	switch stage {
	case request.StageAName:
		col = "stage_a"
	case request.StageBName:
		col = "stage_b"
	case request.StageCName:
		col = "stage_c"
	default:
		return false, fmt.Errorf("unknown stage %q", stage)
	}

	query := fmt.Sprintf(`
		UPDATE approvable_requests
		SET stage_a = $2, stage_b = $3, stage_c = $4, remarks = $5, updated_at = NOW()
		WHERE id = $1 AND %s = $6
	`, col)

	tag, err := q.Exec(ctx, query, req.ID, req.StageA, req.StageB, req.StageC, req.Remarks, expect)
	if err != nil {
		return false, fmt.Errorf("failed to update request stages: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

// List implements request.RequestRepository.
func (r *requestRepository) List(ctx context.Context, filter request.Filter) ([]request.ApprovableRequest, int64, error) {
	q := GetQuerier(ctx, r.db)

	conditions := []string{"1=1"}
	args := []interface{}{}
	argPos := 1

	if filter.RequestorID != "" {
		conditions = append(conditions, fmt.Sprintf("r.requestor_id = $%d", argPos))
		args = append(args, filter.RequestorID)
		argPos++
	}
	if filter.Type != "" {
		conditions = append(conditions, fmt.Sprintf("r.request_type = $%d", argPos))
		args = append(args, filter.Type)
		argPos++
	}
	if filter.Pending {
		conditions = append(conditions, "r.stage_a != 'rejected' AND r.stage_b != 'rejected' AND r.stage_c != 'acknowledged'")
	}

	where := strings.Join(conditions, " AND ")

	var total int64
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM approvable_requests r WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count requests: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT r.id, r.request_type, r.requestor_id, r.payload,
		       r.stage_a, r.stage_b, r.stage_c, r.remarks, r.created_at, r.updated_at,
		       e.name
		FROM approvable_requests r
		JOIN employees e ON e.id = r.requestor_id
		WHERE %s
		ORDER BY r.created_at DESC
		LIMIT $%d OFFSET $%d
	`, where, argPos, argPos+1)
	args = append(args, filter.Limit, (filter.Page-1)*filter.Limit)

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list requests: %w", err)
	}
	defer rows.Close()

	var reqs []request.ApprovableRequest
	for rows.Next() {
		var req request.ApprovableRequest
		var payload []byte
		if err := rows.Scan(
			&req.ID, &req.Type, &req.RequestorID, &payload,
			&req.StageA, &req.StageB, &req.StageC, &req.Remarks, &req.CreatedAt, &req.UpdatedAt,
			&req.RequestorName,
		); err != nil {
			return nil, 0, fmt.Errorf("failed to scan request: %w", err)
		}
		if err := json.Unmarshal(payload, &req.Payload); err != nil {
			return nil, 0, fmt.Errorf("failed to decode request payload: %w", err)
		}
		reqs = append(reqs, req)
	}

	return reqs, total, rows.Err()
}

// ListApprovedRanges implements request.RequestRepository.
func (r *requestRepository) ListApprovedRanges(ctx context.Context, employeeID string, from, to time.Time) ([]request.DateRange, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT (payload->>'from_date')::timestamptz, (payload->>'to_date')::timestamptz,
		       COALESCE((payload->>'half_day')::bool, false),
		       COALESCE((payload->>'forenoon')::bool, false)
		FROM approvable_requests
		WHERE requestor_id = $1
		  AND request_type IN ('leave', 'business_trip')
		  AND stage_b IN ('approved', 'submitted')
		  AND (payload->>'from_date')::timestamptz <= $3
		  AND (payload->>'to_date')::timestamptz >= $2
	`

	rows, err := q.Query(ctx, query, employeeID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list approved ranges: %w", err)
	}
	defer rows.Close()

	var ranges []request.DateRange
	for rows.Next() {
		var dr request.DateRange
		if err := rows.Scan(&dr.From, &dr.To, &dr.HalfDay, &dr.Forenoon); err != nil {
			return nil, fmt.Errorf("failed to scan date range: %w", err)
		}
		ranges = append(ranges, dr)
	}

	return ranges, rows.Err()
}

// ListApprovedLeaveByKind implements request.RequestRepository.
func (r *requestRepository) ListApprovedLeaveByKind(ctx context.Context, employeeID string, kind request.LeaveKind, from, to time.Time) ([]request.DateRange, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT (payload->>'from_date')::timestamptz, (payload->>'to_date')::timestamptz,
		       COALESCE((payload->>'half_day')::bool, false),
		       COALESCE((payload->>'forenoon')::bool, false)
		FROM approvable_requests
		WHERE requestor_id = $1
		  AND request_type = 'leave'
		  AND payload->>'leave_kind' = $2
		  AND stage_b IN ('approved', 'submitted')
		  AND (payload->>'from_date')::timestamptz <= $4
		  AND (payload->>'to_date')::timestamptz >= $3
	`

	rows, err := q.Query(ctx, query, employeeID, string(kind), from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list approved leave: %w", err)
	}
	defer rows.Close()

	var ranges []request.DateRange
	for rows.Next() {
		var dr request.DateRange
		if err := rows.Scan(&dr.From, &dr.To, &dr.HalfDay, &dr.Forenoon); err != nil {
			return nil, fmt.Errorf("failed to scan date range: %w", err)
		}
		ranges = append(ranges, dr)
	}

	return ranges, rows.Err()
}

// HasClaimForDate implements request.RequestRepository.
func (r *requestRepository) HasClaimForDate(ctx context.Context, employeeID string, date time.Time) (bool, error) {
	q := GetQuerier(ctx, r.db)

	var exists bool
	err := q.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM approvable_requests
			WHERE requestor_id = $1
			  AND request_type = 'overtime_claim'
			  AND stage_a != 'rejected' AND stage_b != 'rejected'
			  AND (payload->>'overtime_date')::date = $2::date
		)
	`, employeeID, date).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check overtime claim: %w", err)
	}

	return exists, nil
}
