package lifecycle

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/workstream-hr/attendance-engine-go/internal/domain/attendance"
	"github.com/workstream-hr/attendance-engine-go/internal/domain/audit"
	"github.com/workstream-hr/attendance-engine-go/internal/domain/employee"
	"github.com/workstream-hr/attendance-engine-go/internal/domain/notification"
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

type fakeEmployeeRepo struct {
	employees map[string]employee.Employee
	updated   int
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

func (f *fakeEmployeeRepo) GetByExternalID(_ context.Context, _ string) (employee.Employee, error) {
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
		if e.Role == role {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeEmployeeRepo) Update(_ context.Context, emp employee.Employee) error {
	f.employees[emp.ID] = emp
	f.updated++
	return nil
}

type fakeRequestRepo struct {
	leaveByKind map[request.LeaveKind][]request.DateRange
}

func newFakeRequestRepo() *fakeRequestRepo {
	return &fakeRequestRepo{leaveByKind: map[request.LeaveKind][]request.DateRange{}}
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
func (f *fakeRequestRepo) ListApprovedRanges(_ context.Context, _ string, _, _ time.Time) ([]request.DateRange, error) {
	return nil, nil
}
func (f *fakeRequestRepo) HasClaimForDate(_ context.Context, _ string, _ time.Time) (bool, error) {
	return false, nil
}
func (f *fakeRequestRepo) ListApprovedLeaveByKind(_ context.Context, _ string, kind request.LeaveKind, _, _ time.Time) ([]request.DateRange, error) {
	return f.leaveByKind[kind], nil
}

type fakeAttendanceRepo struct {
	records map[string]attendance.Attendance
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
	if _, ok := f.records[attKey(att.EmployeeID, att.Date)]; ok {
		return false, nil
	}
	f.put(att)
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
	return nil
}

func (f *fakeAttendanceRepo) ListByEmployeeRange(_ context.Context, _ string, _, _ time.Time) ([]attendance.Attendance, error) {
	return nil, nil
}
func (f *fakeAttendanceRepo) ListForSettlement(_ context.Context, _ time.Time, _ int) ([]attendance.Attendance, error) {
	return nil, nil
}
func (f *fakeAttendanceRepo) CountLateArrivals(_ context.Context, _ string, _, _ time.Time, _, _ string) (int, error) {
	return 0, nil
}
func (f *fakeAttendanceRepo) List(_ context.Context, _ attendance.Filter) ([]attendance.Attendance, int64, error) {
	return nil, 0, nil
}

type fakeAuditRepo struct {
	entries []audit.Entry
}

func (f *fakeAuditRepo) Record(_ context.Context, entry audit.Entry) error {
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeAuditRepo) ListByEmployee(_ context.Context, employeeID string, _ int) ([]audit.Entry, error) {
	var out []audit.Entry
	for _, e := range f.entries {
		if e.EmployeeID == employeeID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeAuditRepo) events() []string {
	out := make([]string, 0, len(f.entries))
	for _, e := range f.entries {
		out = append(out, e.Event)
	}
	return out
}

type fakeNotificationSink struct {
	types []notification.NotificationType
}

func (f *fakeNotificationSink) Notify(_ context.Context, _ string, typ notification.NotificationType, _, _ string) {
	f.types = append(f.types, typ)
}
func (f *fakeNotificationSink) NotifyMany(_ context.Context, recipientIDs []string, typ notification.NotificationType, _, _ string) {
	for range recipientIDs {
		f.types = append(f.types, typ)
	}
}
func (f *fakeNotificationSink) List(_ context.Context, _ string, _, _ int, _ bool) ([]notification.Notification, int64, error) {
	return nil, 0, nil
}
func (f *fakeNotificationSink) MarkRead(_ context.Context, _, _ string) error { return nil }
func (f *fakeNotificationSink) Subscribe(_ string) (chan sse.Event, func())   { return nil, func() {} }
func (f *fakeNotificationSink) Stop()                                         {}

type lifecycleFixture struct {
	svc            *Service
	employeeRepo   *fakeEmployeeRepo
	requestRepo    *fakeRequestRepo
	attendanceRepo *fakeAttendanceRepo
	auditRepo      *fakeAuditRepo
	sink           *fakeNotificationSink
}

func newLifecycleFixture(emps ...employee.Employee) *lifecycleFixture {
	f := &lifecycleFixture{
		employeeRepo:   newFakeEmployeeRepo(emps...),
		requestRepo:    newFakeRequestRepo(),
		attendanceRepo: newFakeAttendanceRepo(),
		auditRepo:      &fakeAuditRepo{},
		sink:           &fakeNotificationSink{},
	}
	f.svc = NewService(f.employeeRepo, f.requestRepo, f.attendanceRepo, f.auditRepo, f.sink, testLoc)
	return f
}

func confirmedEmployee(id string, join time.Time) employee.Employee {
	m := monthOf(join)
	return employee.Employee{
		ID:       id,
		Name:     "Employee " + id,
		Type:     employee.TypeConfirmed,
		Status:   employee.StatusActive,
		Role:     employee.RoleSubordinate,
		JoinDate: join,
		Markers: employee.ResetMarkers{
			Leave:             m,
			Medical:           m,
			RestrictedHoliday: m,
			Compensatory:      m,
		},
	}
}

// --- tests ---

func TestReconcile_InitBalances(t *testing.T) {
	t.Run("join before mid-month seeds one paid day", func(t *testing.T) {
		f := newLifecycleFixture()
		emp := employee.Employee{
			ID:       "e1",
			Type:     employee.TypeProbation,
			Status:   employee.StatusActive,
			JoinDate: day(2025, time.June, 10),
		}

		changed, err := f.svc.Reconcile(context.Background(), &emp, day(2025, time.June, 10))
		require.NoError(t, err)
		assert.True(t, changed)

		assert.Equal(t, 1.0, emp.PaidLeaveBalance)
		assert.Equal(t, 0.0, emp.MedicalLeaveBalance)
		assert.Equal(t, 1.0, emp.RestrictedHolidayBalance)
		assert.Equal(t, monthOf(emp.JoinDate), emp.Markers.Leave)
		assert.Contains(t, f.auditRepo.events(), "balances_initialized")
	})

	t.Run("join after mid-month seeds nothing", func(t *testing.T) {
		f := newLifecycleFixture()
		emp := employee.Employee{
			ID:       "e1",
			Type:     employee.TypeProbation,
			Status:   employee.StatusActive,
			JoinDate: day(2025, time.June, 20),
		}

		_, err := f.svc.Reconcile(context.Background(), &emp, day(2025, time.June, 20))
		require.NoError(t, err)
		assert.Equal(t, 0.0, emp.PaidLeaveBalance)
	})

	t.Run("confirmed hire gets the medical balance immediately", func(t *testing.T) {
		f := newLifecycleFixture()
		emp := employee.Employee{
			ID:       "e1",
			Type:     employee.TypeConfirmed,
			Status:   employee.StatusActive,
			JoinDate: day(2025, time.June, 10),
		}

		_, err := f.svc.Reconcile(context.Background(), &emp, day(2025, time.June, 10))
		require.NoError(t, err)
		assert.Equal(t, 7.0, emp.MedicalLeaveBalance)
	})

	t.Run("does not reseed an initialized record", func(t *testing.T) {
		f := newLifecycleFixture()
		emp := confirmedEmployee("e1", day(2025, time.June, 10))
		emp.PaidLeaveBalance = 5

		changed, err := f.svc.Reconcile(context.Background(), &emp, day(2025, time.June, 20))
		require.NoError(t, err)
		assert.False(t, changed)
		assert.Equal(t, 5.0, emp.PaidLeaveBalance)
	})
}

func TestReconcile_MonthlyAccrual(t *testing.T) {
	t.Run("confirmed earns one day per elapsed month", func(t *testing.T) {
		f := newLifecycleFixture()
		emp := confirmedEmployee("e1", day(2025, time.March, 3))
		emp.PaidLeaveBalance = 3

		changed, err := f.svc.Reconcile(context.Background(), &emp, day(2025, time.July, 1))
		require.NoError(t, err)
		assert.True(t, changed)

		// March marker to July is four crossed month boundaries.
		assert.Equal(t, 7.0, emp.PaidLeaveBalance)
		assert.Equal(t, monthOf(day(2025, time.July, 1)), emp.Markers.Leave)
	})

	t.Run("rerun within the month is a no-op", func(t *testing.T) {
		f := newLifecycleFixture()
		emp := confirmedEmployee("e1", day(2025, time.March, 3))
		emp.PaidLeaveBalance = 3

		_, err := f.svc.Reconcile(context.Background(), &emp, day(2025, time.July, 1))
		require.NoError(t, err)
		changed, err := f.svc.Reconcile(context.Background(), &emp, day(2025, time.July, 20))
		require.NoError(t, err)

		assert.False(t, changed)
		assert.Equal(t, 7.0, emp.PaidLeaveBalance)
	})

	t.Run("accrual caps at the annual entitlement", func(t *testing.T) {
		f := newLifecycleFixture()
		emp := confirmedEmployee("e1", day(2025, time.March, 3))
		emp.PaidLeaveBalance = 11.5
		emp.Markers.Leave = monthOf(day(2025, time.June, 1))

		_, err := f.svc.Reconcile(context.Background(), &emp, day(2025, time.July, 1))
		require.NoError(t, err)
		assert.Equal(t, 12.0, emp.PaidLeaveBalance)
	})

	t.Run("probation does not accrue monthly", func(t *testing.T) {
		f := newLifecycleFixture()
		emp := confirmedEmployee("e1", day(2025, time.March, 3))
		emp.Type = employee.TypeProbation
		emp.PaidLeaveBalance = 1

		_, err := f.svc.Reconcile(context.Background(), &emp, day(2025, time.July, 1))
		require.NoError(t, err)
		assert.Equal(t, 1.0, emp.PaidLeaveBalance)
	})
}

func TestReconcile_AnnualReset(t *testing.T) {
	t.Run("confirmed resets to full entitlements", func(t *testing.T) {
		f := newLifecycleFixture()
		emp := confirmedEmployee("e1", day(2024, time.April, 3))
		emp.PaidLeaveBalance = 2.5
		emp.MedicalLeaveBalance = 1
		emp.RestrictedHolidayBalance = 0
		emp.Markers.Leave = monthOf(day(2024, time.December, 1))
		emp.Markers.Medical = monthOf(day(2024, time.December, 1))
		emp.Markers.RestrictedHoliday = monthOf(day(2024, time.December, 1))

		changed, err := f.svc.Reconcile(context.Background(), &emp, day(2025, time.January, 1))
		require.NoError(t, err)
		assert.True(t, changed)

		assert.Equal(t, 12.0, emp.PaidLeaveBalance)
		assert.Equal(t, 7.0, emp.MedicalLeaveBalance)
		assert.Equal(t, 1.0, emp.RestrictedHolidayBalance)
	})

	t.Run("probation resets to the probation entitlement", func(t *testing.T) {
		f := newLifecycleFixture()
		emp := confirmedEmployee("e1", day(2024, time.October, 3))
		emp.Type = employee.TypeProbation
		emp.PaidLeaveBalance = 0.5
		emp.MedicalLeaveBalance = 0
		emp.Markers.Leave = monthOf(day(2024, time.December, 1))
		emp.Markers.Medical = monthOf(day(2024, time.December, 1))
		emp.Markers.RestrictedHoliday = monthOf(day(2024, time.December, 1))

		_, err := f.svc.Reconcile(context.Background(), &emp, day(2025, time.January, 1))
		require.NoError(t, err)

		assert.Equal(t, 1.0, emp.PaidLeaveBalance)
		// Medical stays at zero until confirmation.
		assert.Equal(t, 0.0, emp.MedicalLeaveBalance)
		assert.Equal(t, 1.0, emp.RestrictedHolidayBalance)
	})
}

func TestReconcile_ProbationConfirmation(t *testing.T) {
	t.Run("confirmation date reached", func(t *testing.T) {
		f := newLifecycleFixture()
		conf := day(2025, time.July, 1)
		emp := confirmedEmployee("e1", day(2025, time.January, 10))
		emp.Type = employee.TypeProbation
		emp.ConfirmationDate = &conf
		emp.PaidLeaveBalance = 1

		changed, err := f.svc.Reconcile(context.Background(), &emp, day(2025, time.July, 1))
		require.NoError(t, err)
		assert.True(t, changed)

		assert.Equal(t, employee.TypeConfirmed, emp.Type)
		// January through July of the join year.
		assert.Equal(t, 7.0, emp.PaidLeaveBalance)
		// Six months remain including July: round(7 * 6/12).
		assert.Equal(t, 4.0, emp.MedicalLeaveBalance)
		assert.Contains(t, f.auditRepo.events(), "probation_confirmed")
		assert.Contains(t, f.sink.types, notification.TypeProbationConfirmed)
	})

	t.Run("confirmation date still ahead", func(t *testing.T) {
		f := newLifecycleFixture()
		conf := day(2025, time.September, 1)
		emp := confirmedEmployee("e1", day(2025, time.March, 10))
		emp.Type = employee.TypeProbation
		emp.ConfirmationDate = &conf

		_, err := f.svc.Reconcile(context.Background(), &emp, day(2025, time.July, 1))
		require.NoError(t, err)
		assert.Equal(t, employee.TypeProbation, emp.Type)
	})
}

func TestReconcile_CompGrantExpiry(t *testing.T) {
	f := newLifecycleFixture()
	emp := confirmedEmployee("e1", day(2024, time.June, 10))
	emp.Markers.Leave = monthOf(day(2025, time.June, 1))
	emp.Markers.Medical = monthOf(day(2025, time.June, 1))
	emp.Markers.RestrictedHoliday = monthOf(day(2025, time.June, 1))
	emp.CompGrants = []employee.CompGrant{
		{ID: "g-old", AmountHours: 8, Status: employee.CompGrantAvailable, GrantDate: day(2024, time.November, 3)},
		{ID: "g-claimed", AmountHours: 4, Status: employee.CompGrantClaimed, GrantDate: day(2024, time.October, 6)},
		{ID: "g-fresh", AmountHours: 4, Status: employee.CompGrantAvailable, GrantDate: day(2025, time.March, 2)},
	}

	changed, err := f.svc.Reconcile(context.Background(), &emp, day(2025, time.June, 10))
	require.NoError(t, err)
	assert.True(t, changed)

	// The stale available grant lapses; the claimed one stays for the
	// record and the fresh one stays claimable.
	require.Len(t, emp.CompGrants, 2)
	assert.Equal(t, "g-claimed", emp.CompGrants[0].ID)
	assert.Equal(t, "g-fresh", emp.CompGrants[1].ID)
	assert.Equal(t, 4, emp.AvailableCompHours())
	assert.Contains(t, f.auditRepo.events(), "comp_leave_expired")
}

func TestReconcile_EmergencyRevocation(t *testing.T) {
	f := newLifecycleFixture()
	grantedAt := day(2025, time.June, 16).Add(14 * time.Hour)

	emp := confirmedEmployee("e1", day(2025, time.January, 10))
	emp.Markers.Leave = monthOf(day(2025, time.June, 1))
	emp.EmergencyLeaveGranted = true
	emp.EmergencyLeaveGrantedAt = &grantedAt

	// Still the same day: permission stands.
	changed, err := f.svc.Reconcile(context.Background(), &emp, day(2025, time.June, 16).Add(20*time.Hour))
	require.NoError(t, err)
	assert.False(t, changed)
	assert.True(t, emp.EmergencyLeaveGranted)

	// Next day: revoked.
	changed, err = f.svc.Reconcile(context.Background(), &emp, day(2025, time.June, 17).Add(2*time.Hour))
	require.NoError(t, err)
	assert.True(t, changed)
	assert.False(t, emp.EmergencyLeaveGranted)
	assert.Nil(t, emp.EmergencyLeaveGrantedAt)
}

func TestReconcile_ResignationSettlement(t *testing.T) {
	t.Run("leave beyond entitlement becomes unpaid", func(t *testing.T) {
		f := newLifecycleFixture()
		res := day(2025, time.June, 20)

		emp := confirmedEmployee("e1", day(2023, time.February, 1))
		emp.Status = employee.StatusResigned
		emp.ResignationDate = &res
		emp.PaidLeaveBalance = 4
		emp.Markers.Leave = monthOf(res)

		// Nine casual days taken against a six-month entitlement.
		f.requestRepo.leaveByKind[request.LeaveCasual] = []request.DateRange{
			{From: day(2025, time.February, 3), To: day(2025, time.February, 7)},
			{From: day(2025, time.April, 7), To: day(2025, time.April, 10)},
		}

		changed, err := f.svc.Reconcile(context.Background(), &emp, res)
		require.NoError(t, err)
		assert.True(t, changed)

		assert.Equal(t, 3.0, emp.UnpaidLeaveTaken)
		assert.Equal(t, 1.0, emp.PaidLeaveBalance)
		assert.True(t, emp.ResignationSettled)
		assert.Contains(t, f.auditRepo.events(), "resignation_settled")
	})

	t.Run("within entitlement settles cleanly", func(t *testing.T) {
		f := newLifecycleFixture()
		res := day(2025, time.June, 20)

		emp := confirmedEmployee("e1", day(2023, time.February, 1))
		emp.Status = employee.StatusResigned
		emp.ResignationDate = &res
		emp.PaidLeaveBalance = 4
		emp.Markers.Leave = monthOf(res)

		f.requestRepo.leaveByKind[request.LeaveCasual] = []request.DateRange{
			{From: day(2025, time.March, 3), To: day(2025, time.March, 5)},
		}

		_, err := f.svc.Reconcile(context.Background(), &emp, res)
		require.NoError(t, err)

		assert.Equal(t, 0.0, emp.UnpaidLeaveTaken)
		assert.Equal(t, 4.0, emp.PaidLeaveBalance)
		assert.True(t, emp.ResignationSettled)
	})

	t.Run("settles exactly once", func(t *testing.T) {
		f := newLifecycleFixture()
		res := day(2025, time.June, 20)

		emp := confirmedEmployee("e1", day(2023, time.February, 1))
		emp.Status = employee.StatusResigned
		emp.ResignationDate = &res
		emp.Markers.Leave = monthOf(res)

		f.requestRepo.leaveByKind[request.LeaveCasual] = []request.DateRange{
			{From: day(2025, time.January, 6), To: day(2025, time.January, 17)},
		}

		_, err := f.svc.Reconcile(context.Background(), &emp, res)
		require.NoError(t, err)
		taken := emp.UnpaidLeaveTaken

		changed, err := f.svc.Reconcile(context.Background(), &emp, res)
		require.NoError(t, err)
		assert.False(t, changed)
		assert.Equal(t, taken, emp.UnpaidLeaveTaken)
	})
}

func TestReconcileEmployee_PersistsOnlyOnChange(t *testing.T) {
	emp := confirmedEmployee("e1", day(2025, time.March, 3))
	emp.PaidLeaveBalance = 3

	f := newLifecycleFixture(emp)

	require.NoError(t, f.svc.ReconcileEmployee(context.Background(), "e1", day(2025, time.April, 1)))
	assert.Equal(t, 1, f.employeeRepo.updated)

	// Second run inside the same month writes nothing.
	require.NoError(t, f.svc.ReconcileEmployee(context.Background(), "e1", day(2025, time.April, 15)))
	assert.Equal(t, 1, f.employeeRepo.updated)
}

func TestHelperMonths(t *testing.T) {
	t.Run("accruableMonths skips a late join month", func(t *testing.T) {
		assert.Equal(t, 4, accruableMonths(day(2025, time.March, 10), day(2025, time.June, 30)))
		assert.Equal(t, 3, accruableMonths(day(2025, time.March, 20), day(2025, time.June, 30)))
		assert.Equal(t, 6, accruableMonths(day(2024, time.March, 20), day(2025, time.June, 30)))
	})

	t.Run("entitledMonths forfeits an early resignation month", func(t *testing.T) {
		assert.Equal(t, 6, entitledMonths(day(2023, time.February, 1), day(2025, time.June, 20)))
		assert.Equal(t, 5, entitledMonths(day(2023, time.February, 1), day(2025, time.June, 10)))
		assert.Equal(t, 2, entitledMonths(day(2025, time.April, 1), day(2025, time.June, 10)))
	})
}
