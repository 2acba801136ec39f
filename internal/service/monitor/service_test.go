package monitor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/workstream-hr/attendance-engine-go/internal/domain/attendance"
	"github.com/workstream-hr/attendance-engine-go/internal/domain/employee"
	"github.com/workstream-hr/attendance-engine-go/internal/domain/notification"
	"github.com/workstream-hr/attendance-engine-go/internal/domain/punch"
	"github.com/workstream-hr/attendance-engine-go/internal/domain/request"
	"github.com/workstream-hr/attendance-engine-go/internal/pkg/sse"
)

var testLoc = func() *time.Location {
	loc, err := time.LoadLocation("Asia/Kolkata")
	if err != nil {
		panic(err)
	}
	return loc
}()

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, testLoc)
}

// --- fakes ---

type fakeAttendanceRepo struct {
	records map[string]attendance.Attendance // employeeID|date
	updated []attendance.Attendance
	created []attendance.Attendance
}

func newFakeAttendanceRepo() *fakeAttendanceRepo {
	return &fakeAttendanceRepo{records: map[string]attendance.Attendance{}}
}

func attKey(employeeID string, date time.Time) string {
	return employeeID + "|" + date.Format("2006-01-02")
}

func (f *fakeAttendanceRepo) put(att attendance.Attendance) {
	f.records[attKey(att.EmployeeID, att.Date)] = att
}

func (f *fakeAttendanceRepo) Upsert(_ context.Context, att attendance.Attendance) (attendance.Attendance, error) {
	f.put(att)
	return att, nil
}

func (f *fakeAttendanceRepo) CreateIfAbsent(_ context.Context, att attendance.Attendance) (bool, error) {
	key := attKey(att.EmployeeID, att.Date)
	if _, ok := f.records[key]; ok {
		return false, nil
	}
	f.records[key] = att
	f.created = append(f.created, att)
	return true, nil
}

func (f *fakeAttendanceRepo) GetByEmployeeAndDate(_ context.Context, employeeID string, date time.Time) (attendance.Attendance, error) {
	att, ok := f.records[attKey(employeeID, date)]
	if !ok {
		return attendance.Attendance{}, attendance.ErrAttendanceNotFound
	}
	return att, nil
}

func (f *fakeAttendanceRepo) Update(_ context.Context, att attendance.Attendance) error {
	f.put(att)
	f.updated = append(f.updated, att)
	return nil
}

func (f *fakeAttendanceRepo) ListByEmployeeRange(_ context.Context, employeeID string, from, to time.Time) ([]attendance.Attendance, error) {
	var out []attendance.Attendance
	for _, att := range f.records {
		if att.EmployeeID == employeeID && !att.Date.Before(from) && !att.Date.After(to) {
			out = append(out, att)
		}
	}
	return out, nil
}

func (f *fakeAttendanceRepo) ListForSettlement(_ context.Context, date time.Time, minOvertime int) ([]attendance.Attendance, error) {
	var out []attendance.Attendance
	for _, att := range f.records {
		if att.Date.Format("2006-01-02") == date.Format("2006-01-02") && att.OvertimeMinutes >= minOvertime {
			out = append(out, att)
		}
	}
	return out, nil
}

func (f *fakeAttendanceRepo) CountLateArrivals(_ context.Context, employeeID string, from, to time.Time, windowStart, windowEnd string) (int, error) {
	count := 0
	for _, att := range f.records {
		if att.EmployeeID != employeeID || att.TimeIn == nil {
			continue
		}
		if att.Date.Before(from) || att.Date.After(to) {
			continue
		}
		clock := att.TimeIn.Format("15:04:05")
		if clock >= windowStart && clock <= windowEnd {
			count++
		}
	}
	return count, nil
}

func (f *fakeAttendanceRepo) List(_ context.Context, _ attendance.Filter) ([]attendance.Attendance, int64, error) {
	return nil, 0, nil
}

type fakeEmployeeRepo struct {
	employees map[string]employee.Employee
	updated   []employee.Employee
}

func newFakeEmployeeRepo(emps ...employee.Employee) *fakeEmployeeRepo {
	f := &fakeEmployeeRepo{employees: map[string]employee.Employee{}}
	for _, e := range emps {
		f.employees[e.ID] = e
	}
	return f
}

func (f *fakeEmployeeRepo) GetByID(_ context.Context, id string) (employee.Employee, error) {
	emp, ok := f.employees[id]
	if !ok {
		return employee.Employee{}, employee.ErrEmployeeNotFound
	}
	return emp, nil
}

func (f *fakeEmployeeRepo) GetByExternalID(_ context.Context, externalID string) (employee.Employee, error) {
	for _, e := range f.employees {
		if e.ExternalID == externalID {
			return e, nil
		}
	}
	return employee.Employee{}, employee.ErrUnknownExternalID
}

func (f *fakeEmployeeRepo) ListActive(_ context.Context) ([]employee.Employee, error) {
	var out []employee.Employee
	for _, e := range f.employees {
		if e.Status == employee.StatusActive {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeEmployeeRepo) ListByRole(_ context.Context, role employee.Role) ([]employee.Employee, error) {
	var out []employee.Employee
	for _, e := range f.employees {
		if e.Role == role && e.Status == employee.StatusActive {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeEmployeeRepo) Update(_ context.Context, emp employee.Employee) error {
	f.employees[emp.ID] = emp
	f.updated = append(f.updated, emp)
	return nil
}

type fakePunchRepo struct {
	hasPunches  map[string]bool // employeeID|date
	unprocessed map[string][]punch.RawPunch
}

func newFakePunchRepo() *fakePunchRepo {
	return &fakePunchRepo{hasPunches: map[string]bool{}, unprocessed: map[string][]punch.RawPunch{}}
}

func (f *fakePunchRepo) InsertBatch(_ context.Context, _ []punch.RawPunch) (int, error) {
	return 0, nil
}
func (f *fakePunchRepo) ListUnprocessed(_ context.Context, employeeID string, date time.Time) ([]punch.RawPunch, error) {
	return f.unprocessed[attKey(employeeID, date)], nil
}
func (f *fakePunchRepo) ListUnprocessedDays(_ context.Context) ([]punch.EmployeeDay, error) {
	return nil, nil
}
func (f *fakePunchRepo) HasPunches(_ context.Context, employeeID string, date time.Time) (bool, error) {
	return f.hasPunches[attKey(employeeID, date)], nil
}
func (f *fakePunchRepo) MarkProcessed(_ context.Context, _ []string) error { return nil }
func (f *fakePunchRepo) DeleteProcessedBefore(_ context.Context, _ time.Time) (int64, error) {
	return 0, nil
}
func (f *fakePunchRepo) Watermark(_ context.Context) (time.Time, error)    { return time.Time{}, nil }
func (f *fakePunchRepo) SetWatermark(_ context.Context, _ time.Time) error { return nil }

type fakeRequestRepo struct {
	approvedRanges map[string][]request.DateRange
	claims         map[string]bool // employeeID|date
}

func newFakeRequestRepo() *fakeRequestRepo {
	return &fakeRequestRepo{approvedRanges: map[string][]request.DateRange{}, claims: map[string]bool{}}
}

func (f *fakeRequestRepo) Create(_ context.Context, req request.ApprovableRequest) (request.ApprovableRequest, error) {
	return req, nil
}
func (f *fakeRequestRepo) GetByID(_ context.Context, _ string) (request.ApprovableRequest, error) {
	return request.ApprovableRequest{}, request.ErrRequestNotFound
}
func (f *fakeRequestRepo) UpdateStages(_ context.Context, _ request.ApprovableRequest, _ request.Stage, _ request.StageState) (bool, error) {
	return true, nil
}
func (f *fakeRequestRepo) List(_ context.Context, _ request.Filter) ([]request.ApprovableRequest, int64, error) {
	return nil, 0, nil
}
func (f *fakeRequestRepo) ListApprovedRanges(_ context.Context, employeeID string, _, _ time.Time) ([]request.DateRange, error) {
	return f.approvedRanges[employeeID], nil
}
func (f *fakeRequestRepo) HasClaimForDate(_ context.Context, employeeID string, date time.Time) (bool, error) {
	return f.claims[attKey(employeeID, date)], nil
}
func (f *fakeRequestRepo) ListApprovedLeaveByKind(_ context.Context, _ string, _ request.LeaveKind, _, _ time.Time) ([]request.DateRange, error) {
	return nil, nil
}

type sentNotification struct {
	RecipientIDs []string
	Type         notification.NotificationType
	Title        string
}

type fakeNotificationSink struct {
	sent []sentNotification
}

func (f *fakeNotificationSink) Notify(_ context.Context, recipientID string, typ notification.NotificationType, title, _ string) {
	f.sent = append(f.sent, sentNotification{RecipientIDs: []string{recipientID}, Type: typ, Title: title})
}
func (f *fakeNotificationSink) NotifyMany(_ context.Context, recipientIDs []string, typ notification.NotificationType, title, _ string) {
	f.sent = append(f.sent, sentNotification{RecipientIDs: recipientIDs, Type: typ, Title: title})
}
func (f *fakeNotificationSink) List(_ context.Context, _ string, _, _ int, _ bool) ([]notification.Notification, int64, error) {
	return nil, 0, nil
}
func (f *fakeNotificationSink) MarkRead(_ context.Context, _, _ string) error { return nil }
func (f *fakeNotificationSink) Subscribe(_ string) (chan sse.Event, func())   { return nil, func() {} }
func (f *fakeNotificationSink) Stop()                                         {}

func (f *fakeNotificationSink) byType(typ notification.NotificationType) []sentNotification {
	var out []sentNotification
	for _, s := range f.sent {
		if s.Type == typ {
			out = append(out, s)
		}
	}
	return out
}

type fakeNotificationRepo struct {
	existing map[string]bool // recipientID|type
}

func newFakeNotificationRepo() *fakeNotificationRepo {
	return &fakeNotificationRepo{existing: map[string]bool{}}
}

func (f *fakeNotificationRepo) CreateBatch(_ context.Context, _ []*notification.Notification) error {
	return nil
}
func (f *fakeNotificationRepo) ListByRecipient(_ context.Context, _ string, _, _ int, _ bool) ([]notification.Notification, int64, error) {
	return nil, 0, nil
}
func (f *fakeNotificationRepo) MarkRead(_ context.Context, _, _ string) error { return nil }
func (f *fakeNotificationRepo) ExistsSince(_ context.Context, recipientID string, typ notification.NotificationType, _ time.Time) (bool, error) {
	return f.existing[recipientID+"|"+string(typ)], nil
}

type monitorFixture struct {
	svc              *Service
	attendanceRepo   *fakeAttendanceRepo
	employeeRepo     *fakeEmployeeRepo
	punchRepo        *fakePunchRepo
	requestRepo      *fakeRequestRepo
	notificationRepo *fakeNotificationRepo
	sink             *fakeNotificationSink
}

func newMonitorFixture(policy EligibilityPolicy, emps ...employee.Employee) *monitorFixture {
	f := &monitorFixture{
		attendanceRepo:   newFakeAttendanceRepo(),
		employeeRepo:     newFakeEmployeeRepo(emps...),
		punchRepo:        newFakePunchRepo(),
		requestRepo:      newFakeRequestRepo(),
		notificationRepo: newFakeNotificationRepo(),
		sink:             &fakeNotificationSink{},
	}
	f.svc = NewService(f.attendanceRepo, f.employeeRepo, f.punchRepo, f.requestRepo,
		f.notificationRepo, f.sink, policy, testLoc)
	return f
}

func activeEmployee(id string) employee.Employee {
	return employee.Employee{
		ID:     id,
		Name:   "Employee " + id,
		Status: employee.StatusActive,
		Role:   employee.RoleSubordinate,
		Type:   employee.TypeConfirmed,
	}
}

// --- eligibility ---

func TestEligibilityPolicy(t *testing.T) {
	policy := EligibilityPolicy{
		Departments:  []string{"Operations"},
		Designations: []string{"Field Engineer"},
	}

	assert.True(t, policy.Eligible(employee.Employee{Department: "Operations"}))
	assert.True(t, policy.Eligible(employee.Employee{Department: "Finance", Designation: "Field Engineer"}))
	assert.False(t, policy.Eligible(employee.Employee{Department: "Finance", Designation: "Accountant"}))
	assert.False(t, EligibilityPolicy{}.Eligible(employee.Employee{Department: "Operations"}))
}

// --- trailing absence runs ---

func TestTrailingUnapprovedAbsences(t *testing.T) {
	wed := day(2025, time.June, 18)

	absent := func(d time.Time) attendance.Attendance {
		return attendance.Attendance{EmployeeID: "e1", Date: d, Status: attendance.StatusAbsent}
	}
	present := func(d time.Time) attendance.Attendance {
		return attendance.Attendance{EmployeeID: "e1", Date: d, Status: attendance.StatusPresent}
	}

	t.Run("counts consecutive absences", func(t *testing.T) {
		atts := []attendance.Attendance{
			absent(wed.AddDate(0, 0, -2)),
			absent(wed.AddDate(0, 0, -1)),
			absent(wed),
		}
		assert.Equal(t, 3, TrailingUnapprovedAbsences(atts, nil, wed))
	})

	t.Run("present day ends the run", func(t *testing.T) {
		atts := []attendance.Attendance{
			absent(wed.AddDate(0, 0, -2)),
			present(wed.AddDate(0, 0, -1)),
			absent(wed),
		}
		assert.Equal(t, 1, TrailingUnapprovedAbsences(atts, nil, wed))
	})

	t.Run("missing record ends the run", func(t *testing.T) {
		atts := []attendance.Attendance{
			absent(wed.AddDate(0, 0, -2)),
			absent(wed),
		}
		assert.Equal(t, 1, TrailingUnapprovedAbsences(atts, nil, wed))
	})

	t.Run("approved leave mid-run breaks it", func(t *testing.T) {
		// Absent Monday through Wednesday with Tuesday approved: only
		// Wednesday counts.
		tue := wed.AddDate(0, 0, -1)
		atts := []attendance.Attendance{
			absent(wed.AddDate(0, 0, -2)),
			absent(tue),
			absent(wed),
		}
		approved := []request.DateRange{{From: tue, To: tue}}
		assert.Equal(t, 1, TrailingUnapprovedAbsences(atts, approved, wed))
	})

	t.Run("not absent today", func(t *testing.T) {
		atts := []attendance.Attendance{
			absent(wed.AddDate(0, 0, -1)),
			present(wed),
		}
		assert.Equal(t, 0, TrailingUnapprovedAbsences(atts, nil, wed))
	})

	t.Run("weekly off does not count as an absence", func(t *testing.T) {
		// Saturday, Sunday and Monday all carry absent records; only the
		// two working days count.
		mon := day(2025, time.June, 16)
		atts := []attendance.Attendance{
			absent(mon.AddDate(0, 0, -2)), // Saturday
			absent(mon.AddDate(0, 0, -1)), // Sunday
			absent(mon),
		}
		assert.Equal(t, 2, TrailingUnapprovedAbsences(atts, nil, mon))
	})

	t.Run("weekly off does not break the run", func(t *testing.T) {
		// Friday and Saturday absent, no Sunday record, Monday absent: the
		// gap over the weekly off still chains into one run of three.
		mon := day(2025, time.June, 16)
		atts := []attendance.Attendance{
			absent(mon.AddDate(0, 0, -3)), // Friday
			absent(mon.AddDate(0, 0, -2)), // Saturday
			absent(mon),
		}
		assert.Equal(t, 3, TrailingUnapprovedAbsences(atts, nil, mon))
	})
}

func TestEscalateAbsenceRuns(t *testing.T) {
	wed := day(2025, time.June, 18)

	// Seeds the given number of absent working days ending at wed, stepping
	// over the weekly off.
	seedAbsences := func(f *monitorFixture, employeeID string, days int) {
		d := wed
		for seeded := 0; seeded < days; d = d.AddDate(0, 0, -1) {
			if d.Weekday() == time.Sunday {
				continue
			}
			f.attendanceRepo.put(attendance.Attendance{
				EmployeeID: employeeID,
				Date:       d,
				Status:     attendance.StatusAbsent,
			})
			seeded++
		}
	}

	t.Run("warning at exactly three days", func(t *testing.T) {
		f := newMonitorFixture(EligibilityPolicy{}, activeEmployee("e1"))
		seedAbsences(f, "e1", 3)

		require.NoError(t, f.svc.EscalateAbsenceRuns(context.Background(), wed))

		warnings := f.sink.byType(notification.TypeAbsenceWarning)
		require.Len(t, warnings, 1)
		assert.Equal(t, []string{"e1"}, warnings[0].RecipientIDs)
		assert.Empty(t, f.sink.byType(notification.TypeTerminationRisk))
	})

	t.Run("no alert at four days", func(t *testing.T) {
		f := newMonitorFixture(EligibilityPolicy{}, activeEmployee("e1"))
		seedAbsences(f, "e1", 4)

		require.NoError(t, f.svc.EscalateAbsenceRuns(context.Background(), wed))

		assert.Empty(t, f.sink.sent)
	})

	t.Run("termination risk at five days reaches leadership", func(t *testing.T) {
		headID := "head-1"
		emp := activeEmployee("e1")
		emp.DepartmentHeadID = &headID

		head := activeEmployee(headID)
		head.Role = employee.RoleDepartmentHead
		exec := activeEmployee("exec-1")
		exec.Role = employee.RoleExecutive

		f := newMonitorFixture(EligibilityPolicy{}, emp, head, exec)
		seedAbsences(f, "e1", 5)

		require.NoError(t, f.svc.EscalateAbsenceRuns(context.Background(), wed))

		risks := f.sink.byType(notification.TypeTerminationRisk)
		require.Len(t, risks, 1)
		assert.ElementsMatch(t, []string{"e1", headID, "exec-1"}, risks[0].RecipientIDs)
	})

	t.Run("recent identical alert suppresses a repeat", func(t *testing.T) {
		f := newMonitorFixture(EligibilityPolicy{}, activeEmployee("e1"))
		seedAbsences(f, "e1", 3)
		f.notificationRepo.existing["e1|"+string(notification.TypeAbsenceWarning)] = true

		require.NoError(t, f.svc.EscalateAbsenceRuns(context.Background(), wed))

		assert.Empty(t, f.sink.sent)
	})
}

// --- absence backfill ---

func TestBackfillAbsences(t *testing.T) {
	monday := day(2025, time.June, 16)
	f := newMonitorFixture(EligibilityPolicy{}, activeEmployee("e1"), activeEmployee("e2"))
	f.punchRepo.hasPunches[attKey("e2", monday)] = true

	require.NoError(t, f.svc.BackfillAbsences(context.Background(), monday))

	require.Len(t, f.attendanceRepo.created, 1)
	assert.Equal(t, "e1", f.attendanceRepo.created[0].EmployeeID)
	assert.Equal(t, attendance.StatusAbsent, f.attendanceRepo.created[0].Status)

	// Rerun creates nothing new.
	require.NoError(t, f.svc.BackfillAbsences(context.Background(), monday))
	assert.Len(t, f.attendanceRepo.created, 1)
}

func TestBackfillAbsences_SkipsWeeklyOff(t *testing.T) {
	sunday := day(2025, time.June, 15)
	require.Equal(t, time.Sunday, sunday.Weekday())

	f := newMonitorFixture(EligibilityPolicy{}, activeEmployee("e1"))

	require.NoError(t, f.svc.BackfillAbsences(context.Background(), sunday))

	assert.Empty(t, f.attendanceRepo.created)
}

func TestBackfillAbsences_NormalizesDayKey(t *testing.T) {
	// A wall-clock instant must not leak into the stored day key; the
	// (employee, date) uniqueness guard depends on midnight-normalized
	// dates.
	monday := day(2025, time.June, 16)
	f := newMonitorFixture(EligibilityPolicy{}, activeEmployee("e1"))

	require.NoError(t, f.svc.BackfillAbsences(context.Background(), monday.Add(13*time.Hour+37*time.Minute)))

	require.Len(t, f.attendanceRepo.created, 1)
	assert.True(t, f.attendanceRepo.created[0].Date.Equal(monday))
}

// --- late-arrival pattern ---

func TestApplyLatePattern(t *testing.T) {
	toInstant := func(d time.Time, clock string) *time.Time {
		parsed, _ := time.Parse("15:04:05", clock)
		t := time.Date(d.Year(), d.Month(), d.Day(), parsed.Hour(), parsed.Minute(), parsed.Second(), 0, testLoc)
		return &t
	}

	seedLateDay := func(f *monitorFixture, d time.Time, clockIn, clockOut string) {
		f.attendanceRepo.put(attendance.Attendance{
			EmployeeID: "e1",
			Date:       d,
			Status:     attendance.StatusPresent,
			TimeIn:     toInstant(d, clockIn),
			TimeOut:    toInstant(d, clockOut),
		})
	}

	t.Run("third late day downgrades to half day", func(t *testing.T) {
		today := day(2025, time.June, 18)
		f := newMonitorFixture(EligibilityPolicy{}, activeEmployee("e1"))
		seedLateDay(f, today.AddDate(0, 0, -2), "09:04:00", "17:30:00")
		seedLateDay(f, today.AddDate(0, 0, -1), "09:08:00", "17:30:00")
		seedLateDay(f, today, "09:05:00", "17:30:00")

		require.NoError(t, f.svc.ApplyLatePattern(context.Background(), today))

		att, err := f.attendanceRepo.GetByEmployeeAndDate(context.Background(), "e1", today)
		require.NoError(t, err)
		assert.Equal(t, attendance.StatusHalfDay, att.Status)
		require.NotNil(t, att.HalfDayPortion)
		assert.Equal(t, attendance.FirstHalf, *att.HalfDayPortion)
		assert.Equal(t, 0, att.OvertimeMinutes)
	})

	t.Run("two late days change nothing", func(t *testing.T) {
		today := day(2025, time.June, 18)
		f := newMonitorFixture(EligibilityPolicy{}, activeEmployee("e1"))
		seedLateDay(f, today.AddDate(0, 0, -1), "09:08:00", "17:30:00")
		seedLateDay(f, today, "09:05:00", "17:30:00")

		require.NoError(t, f.svc.ApplyLatePattern(context.Background(), today))

		att, _ := f.attendanceRepo.GetByEmployeeAndDate(context.Background(), "e1", today)
		assert.Equal(t, attendance.StatusPresent, att.Status)
	})

	t.Run("arrival outside the window does not count", func(t *testing.T) {
		today := day(2025, time.June, 18)
		f := newMonitorFixture(EligibilityPolicy{}, activeEmployee("e1"))
		seedLateDay(f, today.AddDate(0, 0, -2), "09:04:00", "17:30:00")
		seedLateDay(f, today.AddDate(0, 0, -1), "09:08:00", "17:30:00")
		seedLateDay(f, today, "09:20:00", "17:30:00")

		require.NoError(t, f.svc.ApplyLatePattern(context.Background(), today))

		att, _ := f.attendanceRepo.GetByEmployeeAndDate(context.Background(), "e1", today)
		assert.Equal(t, attendance.StatusPresent, att.Status)
	})

	t.Run("no afternoon evidence degrades to absent", func(t *testing.T) {
		today := day(2025, time.June, 18)
		f := newMonitorFixture(EligibilityPolicy{}, activeEmployee("e1"))
		seedLateDay(f, today.AddDate(0, 0, -2), "09:04:00", "17:30:00")
		seedLateDay(f, today.AddDate(0, 0, -1), "09:08:00", "17:30:00")
		seedLateDay(f, today, "09:05:00", "10:30:00")

		require.NoError(t, f.svc.ApplyLatePattern(context.Background(), today))

		att, _ := f.attendanceRepo.GetByEmployeeAndDate(context.Background(), "e1", today)
		assert.Equal(t, attendance.StatusAbsent, att.Status)
	})
}

// --- overtime settlement ---

func TestSettleOvertime(t *testing.T) {
	policy := EligibilityPolicy{Departments: []string{"Operations"}}

	eligible := activeEmployee("e-ops")
	eligible.Department = "Operations"

	ordinary := activeEmployee("e-fin")
	ordinary.Department = "Finance"

	t.Run("eligible keeps overtime until the claim deadline", func(t *testing.T) {
		asOf := day(2025, time.June, 18)
		f := newMonitorFixture(policy, eligible)
		f.attendanceRepo.put(attendance.Attendance{
			EmployeeID: "e-ops", Date: asOf.AddDate(0, 0, -1),
			Status: attendance.StatusPresent, OvertimeMinutes: 90,
		})

		require.NoError(t, f.svc.SettleOvertime(context.Background(), asOf))

		att, _ := f.attendanceRepo.GetByEmployeeAndDate(context.Background(), "e-ops", asOf.AddDate(0, 0, -1))
		assert.Equal(t, 90, att.OvertimeMinutes)
		assert.Empty(t, f.sink.sent)
	})

	t.Run("eligible unclaimed past deadline forfeits", func(t *testing.T) {
		asOf := day(2025, time.June, 18)
		f := newMonitorFixture(policy, eligible)
		f.attendanceRepo.put(attendance.Attendance{
			EmployeeID: "e-ops", Date: asOf.AddDate(0, 0, -2),
			Status: attendance.StatusPresent, OvertimeMinutes: 90,
		})

		require.NoError(t, f.svc.SettleOvertime(context.Background(), asOf))

		att, _ := f.attendanceRepo.GetByEmployeeAndDate(context.Background(), "e-ops", asOf.AddDate(0, 0, -2))
		assert.Equal(t, 0, att.OvertimeMinutes)
		require.Len(t, f.sink.byType(notification.TypeOvertimeForfeited), 1)
	})

	t.Run("eligible with a filed claim is left alone", func(t *testing.T) {
		asOf := day(2025, time.June, 18)
		claimDay := asOf.AddDate(0, 0, -2)
		f := newMonitorFixture(policy, eligible)
		f.attendanceRepo.put(attendance.Attendance{
			EmployeeID: "e-ops", Date: claimDay,
			Status: attendance.StatusPresent, OvertimeMinutes: 90,
		})
		f.requestRepo.claims[attKey("e-ops", claimDay)] = true

		require.NoError(t, f.svc.SettleOvertime(context.Background(), asOf))

		att, _ := f.attendanceRepo.GetByEmployeeAndDate(context.Background(), "e-ops", claimDay)
		assert.Equal(t, 90, att.OvertimeMinutes)
		assert.Empty(t, f.sink.sent)
	})

	t.Run("ineligible sunday work converts to a half-day grant", func(t *testing.T) {
		sunday := day(2025, time.June, 15)
		asOf := sunday.AddDate(0, 0, 1)
		f := newMonitorFixture(policy, ordinary)
		// Six hours worked on the weekly off.
		f.attendanceRepo.put(attendance.Attendance{
			EmployeeID: "e-fin", Date: sunday,
			Status: attendance.StatusPresent, OvertimeMinutes: 360,
		})

		require.NoError(t, f.svc.SettleOvertime(context.Background(), asOf))

		emp, _ := f.employeeRepo.GetByID(context.Background(), "e-fin")
		assert.Equal(t, 4, emp.AvailableCompHours())
		att, _ := f.attendanceRepo.GetByEmployeeAndDate(context.Background(), "e-fin", sunday)
		assert.Equal(t, 0, att.OvertimeMinutes)
		require.Len(t, f.sink.byType(notification.TypeCompLeaveGranted), 1)
	})

	t.Run("ineligible sunday full shift earns a full-day grant", func(t *testing.T) {
		sunday := day(2025, time.June, 15)
		asOf := sunday.AddDate(0, 0, 1)
		f := newMonitorFixture(policy, ordinary)
		f.attendanceRepo.put(attendance.Attendance{
			EmployeeID: "e-fin", Date: sunday,
			Status: attendance.StatusPresent, OvertimeMinutes: 495,
		})

		require.NoError(t, f.svc.SettleOvertime(context.Background(), asOf))

		emp, _ := f.employeeRepo.GetByID(context.Background(), "e-fin")
		assert.Equal(t, 8, emp.AvailableCompHours())
	})

	t.Run("ineligible weekday overtime forfeits immediately", func(t *testing.T) {
		asOf := day(2025, time.June, 18)
		f := newMonitorFixture(policy, ordinary)
		f.attendanceRepo.put(attendance.Attendance{
			EmployeeID: "e-fin", Date: asOf.AddDate(0, 0, -1),
			Status: attendance.StatusPresent, OvertimeMinutes: 120,
		})

		require.NoError(t, f.svc.SettleOvertime(context.Background(), asOf))

		att, _ := f.attendanceRepo.GetByEmployeeAndDate(context.Background(), "e-fin", asOf.AddDate(0, 0, -1))
		assert.Equal(t, 0, att.OvertimeMinutes)
		require.Len(t, f.sink.byType(notification.TypeOvertimeForfeited), 1)
		assert.Empty(t, f.sink.byType(notification.TypeCompLeaveGranted))
	})

	t.Run("a day missed by a skipped run settles later", func(t *testing.T) {
		asOf := day(2025, time.June, 18)
		f := newMonitorFixture(policy, ordinary)
		// The daily pass never ran for this day; the trailing window picks
		// it up.
		f.attendanceRepo.put(attendance.Attendance{
			EmployeeID: "e-fin", Date: asOf.AddDate(0, 0, -5),
			Status: attendance.StatusPresent, OvertimeMinutes: 120,
		})

		require.NoError(t, f.svc.SettleOvertime(context.Background(), asOf))

		att, _ := f.attendanceRepo.GetByEmployeeAndDate(context.Background(), "e-fin", asOf.AddDate(0, 0, -5))
		assert.Equal(t, 0, att.OvertimeMinutes)
	})

	t.Run("a claim rejected after the deadline forfeits on a later pass", func(t *testing.T) {
		asOf := day(2025, time.June, 18)
		workDay := asOf.AddDate(0, 0, -4)
		f := newMonitorFixture(policy, eligible)
		// The claim that once protected this day was rejected, so the
		// claim check no longer sees it.
		f.attendanceRepo.put(attendance.Attendance{
			EmployeeID: "e-ops", Date: workDay,
			Status: attendance.StatusPresent, OvertimeMinutes: 90,
		})

		require.NoError(t, f.svc.SettleOvertime(context.Background(), asOf))

		att, _ := f.attendanceRepo.GetByEmployeeAndDate(context.Background(), "e-ops", workDay)
		assert.Equal(t, 0, att.OvertimeMinutes)
		require.Len(t, f.sink.byType(notification.TypeOvertimeForfeited), 1)
	})

	t.Run("ineligible short sunday work forfeits", func(t *testing.T) {
		sunday := day(2025, time.June, 15)
		asOf := sunday.AddDate(0, 0, 1)
		f := newMonitorFixture(policy, ordinary)
		// Under five hours: no grant tier reached.
		f.attendanceRepo.put(attendance.Attendance{
			EmployeeID: "e-fin", Date: sunday,
			Status: attendance.StatusPresent, OvertimeMinutes: 200,
		})

		require.NoError(t, f.svc.SettleOvertime(context.Background(), asOf))

		emp, _ := f.employeeRepo.GetByID(context.Background(), "e-fin")
		assert.Equal(t, 0, emp.AvailableCompHours())
		require.Len(t, f.sink.byType(notification.TypeOvertimeForfeited), 1)
	})
}
