package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/workstream-hr/attendance-engine-go/internal/domain/attendance"
	"github.com/workstream-hr/attendance-engine-go/internal/domain/employee"
	"github.com/workstream-hr/attendance-engine-go/internal/domain/request"
	attendancesvc "github.com/workstream-hr/attendance-engine-go/internal/service/attendance"
)

// ApplyApprovalEffects fires the balance and attendance mutations a request
// carries, keyed by its declared type. Only the approval service calls it,
// and only on the stage-C pending-to-acknowledged transition; callers run
// it inside the same transaction as the stage write so a failed mutation
// leaves the stage unadvanced.
func (s *Service) ApplyApprovalEffects(ctx context.Context, req request.ApprovableRequest) error {
	switch req.Type {
	case request.TypeLeave:
		return s.applyLeave(ctx, req)
	case request.TypeBusinessTrip:
		s.record(ctx, req.RequestorID, "business_trip_acknowledged", tripDetail(req.Payload))
		return nil
	case request.TypeOvertimeClaim:
		return s.applyOvertimeClaim(ctx, req)
	case request.TypePunchCorrection:
		return s.applyPunchCorrection(ctx, req)
	default:
		return fmt.Errorf("no side effect registered for request type %q", req.Type)
	}
}

func (s *Service) applyLeave(ctx context.Context, req request.ApprovableRequest) error {
	emp, err := s.EmployeeRepository.GetByID(ctx, req.RequestorID)
	if err != nil {
		return err
	}

	days := payloadRange(req.Payload).Days()

	switch req.Payload.LeaveKind {
	case request.LeaveCasual:
		s.deductWithOverflow(&emp.PaidLeaveBalance, &emp, days)
	case request.LeaveMedical:
		s.deductWithOverflow(&emp.MedicalLeaveBalance, &emp, days)
	case request.LeaveRestricted:
		s.deductWithOverflow(&emp.RestrictedHolidayBalance, &emp, days)
	case request.LeaveCompensatory:
		if err := claimCompHours(&emp, int(days*hoursPerLeaveDay)); err != nil {
			return err
		}
	case request.LeaveMaternity:
		emp.MaternityClaimsUsed++
	case request.LeavePaternity:
		emp.PaternityClaimsUsed++
	case request.LeaveEmergency:
		now := time.Now().In(s.location)
		emp.EmergencyLeaveGranted = true
		emp.EmergencyLeaveGrantedAt = &now
	case request.LeaveUnpaid:
		emp.UnpaidLeaveTaken += days
	default:
		return fmt.Errorf("no balance effect registered for leave kind %q", req.Payload.LeaveKind)
	}

	if err := s.EmployeeRepository.Update(ctx, emp); err != nil {
		return err
	}

	s.record(ctx, emp.ID, "leave_deducted",
		fmt.Sprintf("%s leave, %.1f days", req.Payload.LeaveKind, days))
	return nil
}

// deductWithOverflow draws days from the balance, clamping at zero; any
// shortfall accrues as unpaid leave.
func (s *Service) deductWithOverflow(balance *float64, emp *employee.Employee, days float64) {
	if days <= *balance {
		*balance -= days
		return
	}
	emp.UnpaidLeaveTaken += days - *balance
	*balance = 0
}

// claimCompHours marks available compensatory grants claimed, oldest first,
// until the requested hours are covered.
func claimCompHours(emp *employee.Employee, hours int) error {
	if emp.AvailableCompHours() < hours {
		return employee.ErrNoCompGrant
	}
	for i := range emp.CompGrants {
		if hours <= 0 {
			break
		}
		g := &emp.CompGrants[i]
		if g.Status != employee.CompGrantAvailable {
			continue
		}
		g.Status = employee.CompGrantClaimed
		hours -= g.AmountHours
	}
	return nil
}

// applyOvertimeClaim settles the claimed day's overtime as payable: the
// minutes leave the attendance record so the settlement job never touches
// them again.
func (s *Service) applyOvertimeClaim(ctx context.Context, req request.ApprovableRequest) error {
	if req.Payload.OvertimeDate == nil {
		return request.ErrInvalidPayload
	}

	att, err := s.attendanceRepo.GetByEmployeeAndDate(ctx, req.RequestorID, *req.Payload.OvertimeDate)
	if err != nil {
		return err
	}

	minutes := att.OvertimeMinutes
	att.OvertimeMinutes = 0
	if err := s.attendanceRepo.Update(ctx, att); err != nil {
		return err
	}

	s.record(ctx, req.RequestorID, "overtime_claimed",
		fmt.Sprintf("%d minutes on %s paid out", minutes, req.Payload.OvertimeDate.Format("2006-01-02")))
	return nil
}

// applyPunchCorrection rewrites the day's record from the corrected clock
// times and re-derives status and overtime from the new duration.
func (s *Service) applyPunchCorrection(ctx context.Context, req request.ApprovableRequest) error {
	p := req.Payload
	if p.CorrectionDate == nil || p.TimeIn == nil || p.TimeOut == nil {
		return request.ErrInvalidPayload
	}

	day := *p.CorrectionDate
	timeIn, err := clockInstant(day, *p.TimeIn, s.location)
	if err != nil {
		return err
	}
	timeOut, err := clockInstant(day, *p.TimeOut, s.location)
	if err != nil {
		return err
	}

	att, err := s.attendanceRepo.GetByEmployeeAndDate(ctx, req.RequestorID, day)
	if err != nil {
		if !errors.Is(err, attendance.ErrAttendanceNotFound) {
			return err
		}
		att = attendance.Attendance{EmployeeID: req.RequestorID, Date: day}
	}

	att.TimeIn = &timeIn
	att.TimeOut = &timeOut
	att.Status, att.HalfDayPortion, att.OvertimeMinutes = attendancesvc.Reclassify(timeIn, timeOut, day)

	if _, err := s.attendanceRepo.Upsert(ctx, att); err != nil {
		return err
	}

	s.record(ctx, req.RequestorID, "punch_corrected",
		fmt.Sprintf("%s corrected to %s-%s", day.Format("2006-01-02"), *p.TimeIn, *p.TimeOut))
	return nil
}

func clockInstant(day time.Time, clock string, loc *time.Location) (time.Time, error) {
	t, err := time.Parse("15:04:05", clock)
	if err != nil {
		return time.Time{}, request.ErrInvalidPayload
	}
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), t.Second(), 0, loc), nil
}

func payloadRange(p request.Payload) request.DateRange {
	dr := request.DateRange{HalfDay: p.HalfDay, Forenoon: p.Forenoon}
	if p.FromDate != nil {
		dr.From = *p.FromDate
	}
	if p.ToDate != nil {
		dr.To = *p.ToDate
	}
	if dr.To.Before(dr.From) {
		dr.To = dr.From
	}
	return dr
}

func tripDetail(p request.Payload) string {
	from, to := "?", "?"
	if p.FromDate != nil {
		from = p.FromDate.Format("2006-01-02")
	}
	if p.ToDate != nil {
		to = p.ToDate.Format("2006-01-02")
	}
	return fmt.Sprintf("trip %s to %s", from, to)
}

// HasLeaveBalance reports whether the employee can cover the requested
// leave without overflowing into unpaid days. Submission validation uses
// it to reject hopeless requests early; emergency, maternity, paternity
// and unpaid kinds carry their own checks.
func HasLeaveBalance(emp employee.Employee, kind request.LeaveKind, days float64) error {
	switch kind {
	case request.LeaveCasual:
		if emp.PaidLeaveBalance < days {
			return employee.ErrInsufficientLeave
		}
	case request.LeaveMedical:
		if emp.MedicalLeaveBalance < days {
			return employee.ErrInsufficientLeave
		}
	case request.LeaveRestricted:
		if emp.RestrictedHolidayBalance < days {
			return employee.ErrInsufficientLeave
		}
	case request.LeaveCompensatory:
		if float64(emp.AvailableCompHours()) < days*hoursPerLeaveDay {
			return employee.ErrNoCompGrant
		}
	case request.LeaveMaternity:
		if emp.MaternityClaimsUsed > 0 {
			return employee.ErrMaternityExhausted
		}
	case request.LeavePaternity:
		if emp.PaternityClaimsUsed > 0 {
			return employee.ErrPaternityExhausted
		}
	}
	return nil
}
