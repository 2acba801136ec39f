package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/workstream-hr/attendance-engine-go/internal/domain/attendance"
	"github.com/workstream-hr/attendance-engine-go/internal/domain/employee"
	"github.com/workstream-hr/attendance-engine-go/internal/domain/notification"
	"github.com/workstream-hr/attendance-engine-go/internal/domain/punch"
	"github.com/workstream-hr/attendance-engine-go/internal/domain/request"
	"github.com/workstream-hr/attendance-engine-go/internal/pkg/validator"
)

const (
	lateWindowStart = "09:00:00"
	lateWindowEnd   = "09:10:00"
	lateThreshold   = 3

	warningRunLength     = 3
	terminationRunLength = 5
	escalationLookback   = 7 // days an identical alert suppresses a repeat

	minSettleOvertime  = 60
	settleLookbackDays = 7 // days the settlement pass re-scans to catch skipped runs

	fullCompHours   = 8
	halfCompHours   = 4
	fullCompMinutes = 480 // 8h worked earns a full-day grant
	halfCompMinutes = 300 // 5h worked earns a half-day grant
	middayClock     = "12:00:00"
)

// EligibilityPolicy is the single overtime-claim whitelist shared by the
// settlement job and the request handlers.
type EligibilityPolicy struct {
	Departments  []string
	Designations []string
}

// Eligible reports whether the employee may claim overtime as payable.
func (p EligibilityPolicy) Eligible(emp employee.Employee) bool {
	return validator.IsInSlice(emp.Department, p.Departments) ||
		validator.IsInSlice(emp.Designation, p.Designations)
}

// Service runs the scheduled attendance reconciliation passes. Every pass
// is idempotent per day, so overlapping or repeated invocations are safe.
type Service struct {
	attendance.AttendanceRepository
	employee.EmployeeRepository
	punch.RawPunchRepository
	requestRepo      request.RequestRepository
	notificationRepo notification.Repository
	notificationSvc  notification.Service
	policy           EligibilityPolicy
	location         *time.Location
}

func NewService(
	attendanceRepo attendance.AttendanceRepository,
	employeeRepo employee.EmployeeRepository,
	punchRepo punch.RawPunchRepository,
	requestRepo request.RequestRepository,
	notificationRepo notification.Repository,
	notificationSvc notification.Service,
	policy EligibilityPolicy,
	location *time.Location,
) *Service {
	return &Service{
		AttendanceRepository: attendanceRepo,
		EmployeeRepository:   employeeRepo,
		RawPunchRepository:   punchRepo,
		requestRepo:          requestRepo,
		notificationRepo:     notificationRepo,
		notificationSvc:      notificationSvc,
		policy:               policy,
		location:             location,
	}
}

// BackfillAbsences creates an absent record for every active employee with
// no punches on the working day. The weekly off is skipped: nobody is
// absent on a day they were not rostered. The (employee, date) unique key
// makes reruns no-ops.
func (s *Service) BackfillAbsences(ctx context.Context, day time.Time) error {
	day = s.dayStart(day)
	if day.Weekday() == time.Sunday {
		slog.Info("absence backfill skipped for weekly off", "date", day.Format("2006-01-02"))
		return nil
	}

	emps, err := s.EmployeeRepository.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("failed to list active employees: %w", err)
	}

	created := 0
	for _, emp := range emps {
		has, err := s.RawPunchRepository.HasPunches(ctx, emp.ID, day)
		if err != nil {
			slog.Error("absence backfill failed for employee", "employee_id", emp.ID, "error", err)
			continue
		}
		if has {
			continue
		}

		ok, err := s.AttendanceRepository.CreateIfAbsent(ctx, attendance.Attendance{
			EmployeeID: emp.ID,
			Date:       day,
			Status:     attendance.StatusAbsent,
		})
		if err != nil {
			slog.Error("absence backfill failed for employee", "employee_id", emp.ID, "error", err)
			continue
		}
		if ok {
			created++
		}
	}

	slog.Info("absence backfill completed", "date", day.Format("2006-01-02"), "created", created)
	return nil
}

// dayStart normalizes an instant to midnight in the engine's zone; every
// repository day key is stored that way.
func (s *Service) dayStart(t time.Time) time.Time {
	t = t.In(s.location)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, s.location)
}

// ApplyLatePattern downgrades today's attendance to a half day for
// employees whose first punch fell inside the late window on
// lateThreshold or more days this month, today included. With no
// afternoon punch the day degrades further to absent.
func (s *Service) ApplyLatePattern(ctx context.Context, day time.Time) error {
	day = s.dayStart(day)

	emps, err := s.EmployeeRepository.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("failed to list active employees: %w", err)
	}

	monthStart := time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, s.location)

	for _, emp := range emps {
		if err := s.applyLatePatternFor(ctx, emp, monthStart, day); err != nil {
			slog.Error("late-arrival pass failed for employee", "employee_id", emp.ID, "error", err)
		}
	}

	return nil
}

func (s *Service) applyLatePatternFor(ctx context.Context, emp employee.Employee, monthStart, day time.Time) error {
	att, err := s.AttendanceRepository.GetByEmployeeAndDate(ctx, emp.ID, day)
	if err != nil {
		if errors.Is(err, attendance.ErrAttendanceNotFound) {
			return nil
		}
		return err
	}

	if att.TimeIn == nil || !inLateWindow(att.TimeIn.Format("15:04:05")) {
		return nil
	}

	count, err := s.AttendanceRepository.CountLateArrivals(ctx, emp.ID, monthStart, day, lateWindowStart, lateWindowEnd)
	if err != nil {
		return err
	}
	if count < lateThreshold {
		return nil
	}

	punches, err := s.RawPunchRepository.ListUnprocessed(ctx, emp.ID, day)
	if err != nil {
		return err
	}
	afternoon := false
	for _, p := range punches {
		if p.PunchTime >= middayClock {
			afternoon = true
			break
		}
	}
	if !afternoon && att.TimeOut != nil && att.TimeOut.Format("15:04:05") >= middayClock {
		afternoon = true
	}

	if afternoon {
		if att.Status == attendance.StatusHalfDay && att.OvertimeMinutes == 0 {
			return nil // already downgraded on a previous pass
		}
		portion := attendance.FirstHalf
		att.Status = attendance.StatusHalfDay
		att.HalfDayPortion = &portion
	} else {
		if att.Status == attendance.StatusAbsent {
			return nil
		}
		att.Status = attendance.StatusAbsent
		att.HalfDayPortion = nil
	}
	att.OvertimeMinutes = 0

	if err := s.AttendanceRepository.Update(ctx, att); err != nil {
		return err
	}

	slog.Info("late-arrival pattern applied",
		"employee_id", emp.ID,
		"date", day.Format("2006-01-02"),
		"late_days", count,
		"status", att.Status,
	)
	return nil
}

func inLateWindow(clock string) bool {
	return clock >= lateWindowStart && clock <= lateWindowEnd
}

// EscalateAbsenceRuns alerts on trailing runs of unapproved absences:
// a warning at exactly three consecutive days, a termination-risk alert to
// the employee, their department head and every executive at exactly five.
// A day covered by an approved leave or trip breaks the run.
func (s *Service) EscalateAbsenceRuns(ctx context.Context, day time.Time) error {
	day = s.dayStart(day)

	emps, err := s.EmployeeRepository.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("failed to list active employees: %w", err)
	}

	for _, emp := range emps {
		if err := s.escalateFor(ctx, emp, day); err != nil {
			slog.Error("absence escalation failed for employee", "employee_id", emp.ID, "error", err)
		}
	}

	return nil
}

func (s *Service) escalateFor(ctx context.Context, emp employee.Employee, day time.Time) error {
	lookbackStart := day.AddDate(0, 0, -(terminationRunLength * 2))

	atts, err := s.AttendanceRepository.ListByEmployeeRange(ctx, emp.ID, lookbackStart, day)
	if err != nil {
		return err
	}

	ranges, err := s.requestRepo.ListApprovedRanges(ctx, emp.ID, lookbackStart, day)
	if err != nil {
		return err
	}

	run := TrailingUnapprovedAbsences(atts, ranges, day)

	switch run {
	case warningRunLength:
		return s.sendEscalation(ctx, emp, day, notification.TypeAbsenceWarning,
			"Absence warning",
			fmt.Sprintf("%s has been absent for %d consecutive days without approved leave.", emp.Name, run),
			[]string{emp.ID})

	case terminationRunLength:
		recipients := []string{emp.ID}
		if emp.DepartmentHeadID != nil {
			recipients = append(recipients, *emp.DepartmentHeadID)
		}
		execs, err := s.EmployeeRepository.ListByRole(ctx, employee.RoleExecutive)
		if err != nil {
			return err
		}
		for _, e := range execs {
			recipients = append(recipients, e.ID)
		}
		return s.sendEscalation(ctx, emp, day, notification.TypeTerminationRisk,
			"Continued unapproved absence",
			fmt.Sprintf("%s has been absent for %d consecutive days without approved leave; employment action may follow.", emp.Name, run),
			recipients)
	}

	return nil
}

func (s *Service) sendEscalation(ctx context.Context, emp employee.Employee, day time.Time, typ notification.NotificationType, title, message string, recipients []string) error {
	since := day.AddDate(0, 0, -escalationLookback)
	sent, err := s.notificationRepo.ExistsSince(ctx, emp.ID, typ, since)
	if err != nil {
		return fmt.Errorf("failed to check prior escalation: %w", err)
	}
	if sent {
		return nil
	}

	s.notificationSvc.NotifyMany(ctx, recipients, typ, title, message)
	slog.Warn("absence escalation raised",
		"employee_id", emp.ID,
		"type", typ,
		"date", day.Format("2006-01-02"),
	)
	return nil
}

// TrailingUnapprovedAbsences counts the run of absent working days ending
// at day, walking backwards. The weekly off neither counts nor breaks the
// run, so a Saturday absence chains into Monday's. A day covered by an
// approved leave or trip is not an unapproved absence and terminates the
// run, as does any non-absent day or a day with no record at all.
func TrailingUnapprovedAbsences(atts []attendance.Attendance, approved []request.DateRange, day time.Time) int {
	byDate := make(map[string]attendance.Attendance, len(atts))
	for _, a := range atts {
		byDate[a.Date.Format("2006-01-02")] = a
	}

	run := 0
	for d := day; ; d = d.AddDate(0, 0, -1) {
		if d.Weekday() == time.Sunday {
			continue
		}
		att, ok := byDate[d.Format("2006-01-02")]
		if !ok || att.Status != attendance.StatusAbsent {
			break
		}
		covered := false
		for _, r := range approved {
			if r.Contains(d) {
				covered = true
				break
			}
		}
		if covered {
			break
		}
		run++
	}

	return run
}

// SettleOvertime resolves unclaimed overtime. Claim-eligible employees keep
// their minutes until the end of the day after they were worked; past that
// deadline the minutes are forfeited unless a live claim was filed.
// Employees outside the whitelist cannot claim, so their Sunday work
// converts to a compensatory-leave grant and any other unclaimed overtime
// is forfeited right away. The pass re-scans a trailing window rather than
// a single day, so a skipped run or a claim rejected after its deadline is
// still settled later.
func (s *Service) SettleOvertime(ctx context.Context, asOf time.Time) error {
	asOf = s.dayStart(asOf)

	for offset := settleLookbackDays; offset >= 1; offset-- {
		day := asOf.AddDate(0, 0, -offset)
		// The claim deadline for a day is the end of the following day, so
		// eligible employees settle only once two days have passed.
		if err := s.settleDay(ctx, day, offset >= 2); err != nil {
			return err
		}
	}
	return nil
}

// settleDay settles one day's records. Ineligible employees always settle;
// claim-eligible ones only once includeEligible says their deadline for
// the day has passed.
func (s *Service) settleDay(ctx context.Context, day time.Time, includeEligible bool) error {
	atts, err := s.AttendanceRepository.ListForSettlement(ctx, day, minSettleOvertime)
	if err != nil {
		return fmt.Errorf("failed to list attendance for settlement: %w", err)
	}

	for _, att := range atts {
		emp, err := s.EmployeeRepository.GetByID(ctx, att.EmployeeID)
		if err != nil {
			slog.Error("overtime settlement failed for employee", "employee_id", att.EmployeeID, "error", err)
			continue
		}

		if s.policy.Eligible(emp) && !includeEligible {
			continue
		}

		if err := s.settleRecord(ctx, emp, att); err != nil {
			slog.Error("overtime settlement failed for employee", "employee_id", emp.ID, "error", err)
		}
	}

	return nil
}

func (s *Service) settleRecord(ctx context.Context, emp employee.Employee, att attendance.Attendance) error {
	day := att.Date.Format("2006-01-02")

	if s.policy.Eligible(emp) {
		claimed, err := s.requestRepo.HasClaimForDate(ctx, emp.ID, att.Date)
		if err != nil {
			return err
		}
		if claimed {
			return nil
		}
		return s.forfeit(ctx, emp, att,
			fmt.Sprintf("Unclaimed overtime of %d minutes on %s has lapsed.", att.OvertimeMinutes, day))
	}

	if att.Date.Weekday() == time.Sunday {
		hours := 0
		switch {
		case att.OvertimeMinutes >= fullCompMinutes:
			hours = fullCompHours
		case att.OvertimeMinutes >= halfCompMinutes:
			hours = halfCompHours
		}
		if hours > 0 {
			return s.grantComp(ctx, emp, att, hours)
		}
	}

	return s.forfeit(ctx, emp, att,
		fmt.Sprintf("Overtime of %d minutes on %s is not claimable and has lapsed.", att.OvertimeMinutes, day))
}

func (s *Service) forfeit(ctx context.Context, emp employee.Employee, att attendance.Attendance, message string) error {
	minutes := att.OvertimeMinutes
	att.OvertimeMinutes = 0
	if err := s.AttendanceRepository.Update(ctx, att); err != nil {
		return err
	}

	s.notificationSvc.Notify(ctx, emp.ID, notification.TypeOvertimeForfeited, "Overtime forfeited", message)
	slog.Info("overtime forfeited",
		"employee_id", emp.ID,
		"date", att.Date.Format("2006-01-02"),
		"minutes", minutes,
	)
	return nil
}

func (s *Service) grantComp(ctx context.Context, emp employee.Employee, att attendance.Attendance, hours int) error {
	emp.GrantComp(hours, att.Date)
	if err := s.EmployeeRepository.Update(ctx, emp); err != nil {
		return err
	}

	minutes := att.OvertimeMinutes
	att.OvertimeMinutes = 0
	if err := s.AttendanceRepository.Update(ctx, att); err != nil {
		return err
	}

	s.notificationSvc.Notify(ctx, emp.ID, notification.TypeCompLeaveGranted,
		"Compensatory leave granted",
		fmt.Sprintf("Working on %s earned you %d hours of compensatory leave.", att.Date.Format("2006-01-02"), hours))
	slog.Info("compensatory leave granted",
		"employee_id", emp.ID,
		"date", att.Date.Format("2006-01-02"),
		"hours", hours,
		"minutes_settled", minutes,
	)
	return nil
}
