package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/workstream-hr/attendance-engine-go/internal/domain/attendance"
	"github.com/workstream-hr/attendance-engine-go/internal/domain/audit"
	"github.com/workstream-hr/attendance-engine-go/internal/domain/employee"
	"github.com/workstream-hr/attendance-engine-go/internal/domain/notification"
	"github.com/workstream-hr/attendance-engine-go/internal/domain/request"
)

const (
	annualPaidLeave    = 12.0
	annualMedicalLeave = 7.0
	annualRestricted   = 1.0
	probationPaidLeave = 1.0
	midMonthCutoff     = 15
	compExpiryMonths   = 6
	hoursPerLeaveDay   = 8
)

// Service owns every mutation of employee leave balances: the scheduled
// lifecycle reconciliation and the side effects fired when an approval
// reaches its terminal acknowledgment.
type Service struct {
	employee.EmployeeRepository
	requestRepo     request.RequestRepository
	attendanceRepo  attendance.AttendanceRepository
	auditRepo       audit.Repository
	notificationSvc notification.Service
	location        *time.Location
}

func NewService(
	employeeRepo employee.EmployeeRepository,
	requestRepo request.RequestRepository,
	attendanceRepo attendance.AttendanceRepository,
	auditRepo audit.Repository,
	notificationSvc notification.Service,
	location *time.Location,
) *Service {
	return &Service{
		EmployeeRepository: employeeRepo,
		requestRepo:        requestRepo,
		attendanceRepo:     attendanceRepo,
		auditRepo:          auditRepo,
		notificationSvc:    notificationSvc,
		location:           location,
	}
}

// ReconcileAll runs the lifecycle reconciliation for every active employee.
// One employee's failure is logged and the loop moves on.
func (s *Service) ReconcileAll(ctx context.Context, asOf time.Time) error {
	emps, err := s.EmployeeRepository.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("failed to list active employees: %w", err)
	}

	for _, emp := range emps {
		if err := s.ReconcileEmployee(ctx, emp.ID, asOf); err != nil {
			slog.Error("lifecycle reconciliation failed for employee", "employee_id", emp.ID, "error", err)
		}
	}

	return nil
}

// ReconcileEmployee loads one employee, applies the lifecycle rules and
// persists the result when anything changed.
func (s *Service) ReconcileEmployee(ctx context.Context, employeeID string, asOf time.Time) error {
	emp, err := s.EmployeeRepository.GetByID(ctx, employeeID)
	if err != nil {
		return err
	}

	changed, err := s.Reconcile(ctx, &emp, asOf)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}

	return s.EmployeeRepository.Update(ctx, emp)
}

// Reconcile applies the lifecycle rules to the employee in a fixed order.
// Every step checks its own reset marker, so re-running within the same
// month or day changes nothing. Reports whether the record was mutated.
func (s *Service) Reconcile(ctx context.Context, emp *employee.Employee, asOf time.Time) (bool, error) {
	changed := false

	changed = s.revokeEmergency(emp, asOf) || changed

	confirmed, err := s.confirmProbation(ctx, emp, asOf)
	if err != nil {
		return changed, err
	}
	changed = confirmed || changed

	changed = s.initBalances(ctx, emp) || changed
	changed = s.expireCompGrants(ctx, emp, asOf) || changed
	changed = s.resetPaidLeave(emp, asOf) || changed
	changed = s.resetAnnualBalances(emp, asOf) || changed

	settled, err := s.settleResignation(ctx, emp)
	if err != nil {
		return changed, err
	}
	changed = settled || changed

	return changed, nil
}

// revokeEmergency expires a granted emergency-leave permission at the start
// of the day after it was granted.
func (s *Service) revokeEmergency(emp *employee.Employee, asOf time.Time) bool {
	if !emp.EmergencyLeaveGranted || emp.EmergencyLeaveGrantedAt == nil {
		return false
	}

	granted := emp.EmergencyLeaveGrantedAt.In(s.location)
	expiry := time.Date(granted.Year(), granted.Month(), granted.Day(), 0, 0, 0, 0, s.location).AddDate(0, 0, 1)
	if asOf.Before(expiry) {
		return false
	}

	emp.EmergencyLeaveGranted = false
	emp.EmergencyLeaveGrantedAt = nil
	return true
}

// confirmProbation flips a probation employee to confirmed once the
// confirmation date arrives, topping up leave earned during probation and
// pro-rating the medical balance over the rest of the year.
func (s *Service) confirmProbation(ctx context.Context, emp *employee.Employee, asOf time.Time) (bool, error) {
	if emp.Type != employee.TypeProbation || emp.ConfirmationDate == nil {
		return false, nil
	}
	conf := *emp.ConfirmationDate
	if asOf.Before(time.Date(conf.Year(), conf.Month(), conf.Day(), 0, 0, 0, 0, s.location)) {
		return false, nil
	}

	emp.Type = employee.TypeConfirmed
	emp.PaidLeaveBalance = math.Min(annualPaidLeave, float64(accruableMonths(emp.JoinDate, asOf)))
	remaining := 12 - int(asOf.Month()) + 1
	emp.MedicalLeaveBalance = math.Round(annualMedicalLeave * float64(remaining) / 12)
	emp.MaternityClaimsUsed = 0
	emp.PaternityClaimsUsed = 0
	emp.Markers.Leave = monthOf(asOf)
	emp.Markers.Medical = monthOf(asOf)

	s.record(ctx, emp.ID, "probation_confirmed",
		fmt.Sprintf("confirmed with %.1f paid and %.1f medical leave", emp.PaidLeaveBalance, emp.MedicalLeaveBalance))
	s.notificationSvc.Notify(ctx, emp.ID, notification.TypeProbationConfirmed,
		"Probation completed",
		"Your employment has been confirmed and your leave balances updated.")
	return true, nil
}

// initBalances seeds the balances of a freshly created employee record,
// detected by its zero reset markers.
func (s *Service) initBalances(ctx context.Context, emp *employee.Employee) bool {
	if !emp.Markers.Leave.IsZero() {
		return false
	}

	emp.PaidLeaveBalance = 0
	if emp.JoinDate.Day() <= midMonthCutoff {
		emp.PaidLeaveBalance = probationPaidLeave
	}
	emp.MedicalLeaveBalance = 0
	if emp.IsConfirmed() {
		emp.MedicalLeaveBalance = annualMedicalLeave
	}
	emp.RestrictedHolidayBalance = annualRestricted
	emp.CompGrants = nil

	join := monthOf(emp.JoinDate)
	emp.Markers = employee.ResetMarkers{
		Leave:             join,
		Medical:           join,
		RestrictedHoliday: join,
		Compensatory:      join,
	}

	s.record(ctx, emp.ID, "balances_initialized",
		fmt.Sprintf("seeded %.1f paid, %.1f medical, %.1f restricted", emp.PaidLeaveBalance, emp.MedicalLeaveBalance, emp.RestrictedHolidayBalance))
	return true
}

// expireCompGrants drops available compensatory grants older than six
// months and advances the compensatory marker.
func (s *Service) expireCompGrants(ctx context.Context, emp *employee.Employee, asOf time.Time) bool {
	cutoff := asOf.AddDate(0, -compExpiryMonths, 0)

	kept := emp.CompGrants[:0]
	expired := 0
	for _, g := range emp.CompGrants {
		if g.Status == employee.CompGrantAvailable && g.GrantDate.Before(cutoff) {
			expired += g.AmountHours
			continue
		}
		kept = append(kept, g)
	}
	if expired == 0 {
		return false
	}

	emp.CompGrants = kept
	emp.Markers.Compensatory = monthOf(asOf)
	s.record(ctx, emp.ID, "comp_leave_expired", fmt.Sprintf("%d unclaimed hours lapsed", expired))
	return true
}

// resetPaidLeave applies the paid-leave accrual: a reset to the annual
// entitlement on year rollover, otherwise one day per elapsed month for
// confirmed employees, capped at the annual entitlement.
func (s *Service) resetPaidLeave(emp *employee.Employee, asOf time.Time) bool {
	marker := emp.Markers.Leave
	if marker.IsZero() || !monthOf(asOf).After(monthOf(marker)) {
		return false
	}

	if asOf.Year() > marker.Year() {
		if emp.IsConfirmed() {
			emp.PaidLeaveBalance = annualPaidLeave
		} else {
			emp.PaidLeaveBalance = probationPaidLeave
		}
	} else if emp.IsConfirmed() {
		elapsed := monthsBetween(marker, asOf)
		emp.PaidLeaveBalance = math.Min(annualPaidLeave, emp.PaidLeaveBalance+float64(elapsed))
	}

	emp.Markers.Leave = monthOf(asOf)
	return true
}

// resetAnnualBalances resets the medical and restricted-holiday balances
// on year rollover. Medical applies to confirmed employees only; the
// restricted holiday resets regardless of type.
func (s *Service) resetAnnualBalances(emp *employee.Employee, asOf time.Time) bool {
	changed := false

	if m := emp.Markers.Medical; !m.IsZero() && asOf.Year() > m.Year() {
		if emp.IsConfirmed() {
			emp.MedicalLeaveBalance = annualMedicalLeave
		}
		emp.Markers.Medical = monthOf(asOf)
		changed = true
	}

	if m := emp.Markers.RestrictedHoliday; !m.IsZero() && asOf.Year() > m.Year() {
		emp.RestrictedHolidayBalance = annualRestricted
		emp.Markers.RestrictedHoliday = monthOf(asOf)
		changed = true
	}

	return changed
}

// settleResignation runs once when the record reaches resigned status:
// casual leave taken beyond the pro-rated entitlement for the final year
// shifts into unpaid leave.
func (s *Service) settleResignation(ctx context.Context, emp *employee.Employee) (bool, error) {
	if emp.Status != employee.StatusResigned || emp.ResignationSettled || emp.ResignationDate == nil {
		return false, nil
	}

	res := emp.ResignationDate.In(s.location)
	entitled := math.Min(annualPaidLeave, float64(entitledMonths(emp.JoinDate, res)))

	yearStart := time.Date(res.Year(), time.January, 1, 0, 0, 0, 0, s.location)
	ranges, err := s.requestRepo.ListApprovedLeaveByKind(ctx, emp.ID, request.LeaveCasual, yearStart, res)
	if err != nil {
		return false, fmt.Errorf("failed to total casual leave taken: %w", err)
	}
	taken := 0.0
	for _, r := range ranges {
		taken += r.Days()
	}

	if excess := taken - entitled; excess > 0 {
		emp.UnpaidLeaveTaken += excess
		emp.PaidLeaveBalance = math.Max(0, emp.PaidLeaveBalance-excess)
		s.record(ctx, emp.ID, "resignation_settled",
			fmt.Sprintf("%.1f leave days over entitlement moved to unpaid", excess))
	} else {
		s.record(ctx, emp.ID, "resignation_settled", "leave taken within entitlement")
	}

	emp.ResignationSettled = true
	return true, nil
}

// Balances returns the leave-balance view for one employee.
func (s *Service) Balances(ctx context.Context, employeeID string) (employee.BalanceResponse, error) {
	emp, err := s.EmployeeRepository.GetByID(ctx, employeeID)
	if err != nil {
		return employee.BalanceResponse{}, err
	}
	return employee.ToBalanceResponse(emp), nil
}

// AuditTrail returns the most recent lifecycle events for one employee.
func (s *Service) AuditTrail(ctx context.Context, employeeID string, limit int) ([]audit.Entry, error) {
	if limit < 1 || limit > 200 {
		limit = 50
	}
	return s.auditRepo.ListByEmployee(ctx, employeeID, limit)
}

// record appends to the audit trail; a failed append is logged, never fatal.
func (s *Service) record(ctx context.Context, employeeID, event, detail string) {
	err := s.auditRepo.Record(ctx, audit.Entry{
		EmployeeID: employeeID,
		Event:      event,
		Detail:     detail,
	})
	if err != nil {
		slog.Error("failed to record audit entry", "employee_id", employeeID, "event", event, "error", err)
	}
}

// monthOf truncates to the first instant of the month.
func monthOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

// monthsBetween counts whole calendar-month boundaries crossed from a to b.
func monthsBetween(a, b time.Time) int {
	return (b.Year()-a.Year())*12 + int(b.Month()) - int(a.Month())
}

// accruableMonths counts the months an employee has earned leave for in
// the year of asOf: from the join month (skipped when joining after the
// 15th) through the current month.
func accruableMonths(join, asOf time.Time) int {
	startMonth := 1
	if join.Year() == asOf.Year() {
		startMonth = int(join.Month())
		if join.Day() > midMonthCutoff {
			startMonth++
		}
	}
	months := int(asOf.Month()) - startMonth + 1
	if months < 0 {
		return 0
	}
	return months
}

// entitledMonths counts the months worked in the resignation year, with
// the final month forfeited when resigning before the 15th.
func entitledMonths(join, res time.Time) int {
	startMonth := 1
	if join.Year() == res.Year() {
		startMonth = int(join.Month())
		if join.Day() > midMonthCutoff {
			startMonth++
		}
	}
	endMonth := int(res.Month())
	if res.Day() < midMonthCutoff {
		endMonth--
	}
	months := endMonth - startMonth + 1
	if months < 0 {
		return 0
	}
	return months
}
