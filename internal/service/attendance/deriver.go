package attendance

import (
	"time"

	"github.com/workstream-hr/attendance-engine-go/internal/domain/attendance"
	"github.com/workstream-hr/attendance-engine-go/internal/domain/punch"
	"github.com/workstream-hr/attendance-engine-go/internal/domain/request"
)

const (
	// fullDayMinutes is the threshold below which a worked day counts as
	// a half day.
	fullDayMinutes = 240
	// standardShiftMinutes is the paid shift length; anything beyond it
	// is overtime on an ordinary day.
	standardShiftMinutes = 510
	// middayClock splits the forenoon session from the afternoon one.
	middayClock = "12:00:00"
)

// Derivation is the outcome of folding one employee-day's punches and
// approved leave into an attendance record.
type Derivation struct {
	Status          attendance.Status
	HalfDayPortion  *attendance.HalfDayPortion
	TimeIn          *time.Time
	TimeOut         *time.Time
	OvertimeMinutes int
}

// DeriveDay computes the attendance record for one (employee, day) from its
// unprocessed punches and any approved leave/trip covering the day. Punches
// must be sorted by time. now decides whether the day has fully elapsed:
// for the current day the session stays open, with no time-out and no
// overtime, so a still-running shift is never counted.
func DeriveDay(punches []punch.RawPunch, leaves []request.DateRange, day time.Time, now time.Time, loc *time.Location) Derivation {
	covering := coveringLeave(leaves, day)

	if len(punches) == 0 {
		if covering == nil || covering.HalfDay {
			return Derivation{Status: attendance.StatusAbsent}
		}
		// Fully covered by approved leave; no punches expected.
		return Derivation{Status: attendance.StatusPresent}
	}

	timeIn := punchInstant(day, punches[0].PunchTime, loc)
	dayEnd := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, loc).AddDate(0, 0, 1)
	elapsed := !now.Before(dayEnd)

	if !elapsed {
		// Open shift: record the arrival, settle the rest tomorrow.
		return Derivation{Status: attendance.StatusPresent, TimeIn: &timeIn}
	}

	timeOut := punchInstant(day, punches[len(punches)-1].PunchTime, loc)
	duration := int(timeOut.Sub(timeIn).Minutes())

	if covering != nil && covering.HalfDay {
		return deriveHalfDayLeave(punches, *covering, timeIn, timeOut)
	}

	d := Derivation{TimeIn: &timeIn, TimeOut: &timeOut}
	if day.Weekday() == time.Sunday {
		// Weekly off: every worked minute is overtime, however short the
		// stint.
		d.OvertimeMinutes = duration
	} else if duration > standardShiftMinutes {
		d.OvertimeMinutes = duration - standardShiftMinutes
	}

	if duration < fullDayMinutes {
		d.Status = attendance.StatusHalfDay
		portion := attendance.FirstHalf
		d.HalfDayPortion = &portion
		return d
	}

	d.Status = attendance.StatusPresent
	return d
}

// Reclassify recomputes status, half-day portion and overtime from a
// corrected time-in/time-out pair, applying the same duration rules as
// DeriveDay. Punch-correction acknowledgments use it to rewrite a day.
func Reclassify(timeIn, timeOut time.Time, day time.Time) (attendance.Status, *attendance.HalfDayPortion, int) {
	duration := int(timeOut.Sub(timeIn).Minutes())
	overtime := 0
	if day.Weekday() == time.Sunday {
		overtime = duration
	} else if duration > standardShiftMinutes {
		overtime = duration - standardShiftMinutes
	}
	if duration < fullDayMinutes {
		portion := attendance.FirstHalf
		return attendance.StatusHalfDay, &portion, overtime
	}
	return attendance.StatusPresent, nil, overtime
}

// deriveHalfDayLeave checks that the session not covered by the half-day
// leave is actually evidenced by punches. A forenoon leave expects the
// afternoon worked, and vice versa; missing counter-session punches degrade
// the day to absent.
func deriveHalfDayLeave(punches []punch.RawPunch, leave request.DateRange, timeIn, timeOut time.Time) Derivation {
	if leave.Forenoon {
		// Afternoon must be worked: at least one punch past midday.
		worked := false
		for _, p := range punches {
			if p.PunchTime >= middayClock {
				worked = true
				break
			}
		}
		if !worked {
			return Derivation{Status: attendance.StatusAbsent}
		}
		portion := attendance.SecondHalf
		return Derivation{
			Status:         attendance.StatusHalfDay,
			HalfDayPortion: &portion,
			TimeIn:         &timeIn,
			TimeOut:        &timeOut,
		}
	}

	// Forenoon must be worked: at least one punch before midday.
	worked := false
	for _, p := range punches {
		if p.PunchTime < middayClock {
			worked = true
			break
		}
	}
	if !worked {
		return Derivation{Status: attendance.StatusAbsent}
	}
	portion := attendance.FirstHalf
	return Derivation{
		Status:         attendance.StatusHalfDay,
		HalfDayPortion: &portion,
		TimeIn:         &timeIn,
		TimeOut:        &timeOut,
	}
}

func coveringLeave(leaves []request.DateRange, day time.Time) *request.DateRange {
	for i := range leaves {
		if leaves[i].Contains(day) {
			return &leaves[i]
		}
	}
	return nil
}

func punchInstant(day time.Time, clock string, loc *time.Location) time.Time {
	t, err := time.Parse("15:04:05", clock)
	if err != nil {
		return time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, loc)
	}
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), t.Second(), 0, loc)
}
