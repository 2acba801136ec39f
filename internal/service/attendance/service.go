package attendance

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/workstream-hr/attendance-engine-go/internal/domain/attendance"
	"github.com/workstream-hr/attendance-engine-go/internal/domain/punch"
	"github.com/workstream-hr/attendance-engine-go/internal/domain/request"
)

// Service folds unprocessed punches into daily attendance records.
type Service struct {
	attendance.AttendanceRepository
	punch.RawPunchRepository
	requestRepo request.RequestRepository
	location    *time.Location
}

func NewService(
	attendanceRepo attendance.AttendanceRepository,
	punchRepo punch.RawPunchRepository,
	requestRepo request.RequestRepository,
	location *time.Location,
) *Service {
	return &Service{
		AttendanceRepository: attendanceRepo,
		RawPunchRepository:   punchRepo,
		requestRepo:          requestRepo,
		location:             location,
	}
}

// ProcessAll derives attendance for every (employee, day) that has
// unprocessed punches. One failing unit is logged and skipped; the rest of
// the batch continues.
func (s *Service) ProcessAll(ctx context.Context) error {
	days, err := s.RawPunchRepository.ListUnprocessedDays(ctx)
	if err != nil {
		return fmt.Errorf("failed to list unprocessed days: %w", err)
	}

	for _, d := range days {
		if err := s.ProcessDay(ctx, d.EmployeeID, d.Date); err != nil {
			slog.Error("attendance derivation failed",
				"employee_id", d.EmployeeID,
				"date", d.Date.Format("2006-01-02"),
				"error", err,
			)
		}
	}

	return nil
}

// ProcessDay derives and persists the attendance record for one employee
// and day, then marks the consumed punches processed. Punches are only
// marked after the attendance save succeeds, so a failed save leaves them
// to be retried.
func (s *Service) ProcessDay(ctx context.Context, employeeID string, day time.Time) error {
	punches, err := s.RawPunchRepository.ListUnprocessed(ctx, employeeID, day)
	if err != nil {
		return fmt.Errorf("failed to load punches: %w", err)
	}

	leaves, err := s.requestRepo.ListApprovedRanges(ctx, employeeID, day, day)
	if err != nil {
		return fmt.Errorf("failed to load approved leave: %w", err)
	}

	now := time.Now().In(s.location)
	derived := DeriveDay(punches, leaves, day, now, s.location)

	att := attendance.Attendance{
		EmployeeID:      employeeID,
		Date:            day,
		TimeIn:          derived.TimeIn,
		TimeOut:         derived.TimeOut,
		Status:          derived.Status,
		HalfDayPortion:  derived.HalfDayPortion,
		OvertimeMinutes: derived.OvertimeMinutes,
	}

	if _, err := s.AttendanceRepository.Upsert(ctx, att); err != nil {
		return fmt.Errorf("failed to save attendance: %w", err)
	}

	// The current day stays open: its punches are re-read tomorrow when
	// the closing punch is known, so they are not consumed yet.
	dayEnd := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, s.location).AddDate(0, 0, 1)
	if now.Before(dayEnd) {
		return nil
	}

	ids := make([]string, 0, len(punches))
	for _, p := range punches {
		ids = append(ids, p.ID)
	}
	if err := s.RawPunchRepository.MarkProcessed(ctx, ids); err != nil {
		return fmt.Errorf("failed to mark punches processed: %w", err)
	}

	return nil
}

// CleanupProcessed purges processed punches older than the retention
// window. Raw punches are working data, not history; once folded into an
// attendance record they only need to survive long enough for corrections.
func (s *Service) CleanupProcessed(ctx context.Context, retentionDays int) error {
	cutoff := time.Now().In(s.location).AddDate(0, 0, -retentionDays)
	deleted, err := s.RawPunchRepository.DeleteProcessedBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("failed to purge processed punches: %w", err)
	}
	if deleted > 0 {
		slog.Info("purged processed punches", "count", deleted, "cutoff", cutoff.Format("2006-01-02"))
	}
	return nil
}

// List retrieves attendance records for dashboards.
func (s *Service) List(ctx context.Context, filter attendance.Filter) (attendance.ListResponse, error) {
	filter.Normalize()

	atts, total, err := s.AttendanceRepository.List(ctx, filter)
	if err != nil {
		return attendance.ListResponse{}, fmt.Errorf("failed to list attendances: %w", err)
	}

	responses := make([]attendance.Response, 0, len(atts))
	for _, att := range atts {
		responses = append(responses, mapToResponse(att))
	}

	return attendance.ListResponse{
		TotalCount:  total,
		Page:        filter.Page,
		Limit:       filter.Limit,
		TotalPages:  int(math.Ceil(float64(total) / float64(filter.Limit))),
		Attendances: responses,
	}, nil
}

// MonthView retrieves one employee's records for a calendar month.
func (s *Service) MonthView(ctx context.Context, employeeID string, year int, month time.Month) ([]attendance.Response, error) {
	from := time.Date(year, month, 1, 0, 0, 0, 0, s.location)
	to := from.AddDate(0, 1, -1)

	atts, err := s.AttendanceRepository.ListByEmployeeRange(ctx, employeeID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to load month view: %w", err)
	}

	responses := make([]attendance.Response, 0, len(atts))
	for _, att := range atts {
		responses = append(responses, mapToResponse(att))
	}

	return responses, nil
}

func mapToResponse(att attendance.Attendance) attendance.Response {
	resp := attendance.Response{
		ID:              att.ID,
		EmployeeID:      att.EmployeeID,
		Date:            att.Date.Format("2006-01-02"),
		Status:          string(att.Status),
		OvertimeMinutes: att.OvertimeMinutes,
	}
	if att.EmployeeName != nil {
		resp.EmployeeName = *att.EmployeeName
	}
	if att.TimeIn != nil {
		v := att.TimeIn.Format("15:04:05")
		resp.TimeIn = &v
	}
	if att.TimeOut != nil {
		v := att.TimeOut.Format("15:04:05")
		resp.TimeOut = &v
	}
	if att.HalfDayPortion != nil {
		v := string(*att.HalfDayPortion)
		resp.HalfDayPortion = &v
	}
	return resp
}
