package attendance

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/domain/attendance"
	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/domain/employee"
	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/domain/escalation"
	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/domain/geofence"
	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/domain/master/branch"
	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/domain/notification"
	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/domain/overtime"
	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/domain/syncqueue"
	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/repository/local"
	deviceService "github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/service/device"
	geofenceService "github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/service/geofence"
	notificationService "github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/service/notification"
	syncqueueService "github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/service/syncqueue"
)

const (
	testCompanyID  = "company-1"
	testEmployeeID = "emp-1"
	testManagerID  = "mgr-1"
	testBranchID   = "branch-1"

	officeLat = 6.5244
	officeLon = 3.3792
)

// Monday, in the past so timestamps pass the future check.
var day = time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)

func at(hour, minute int) time.Time {
	return day.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

func ptr[T any](v T) *T { return &v }

type fixture struct {
	svc           *AttendanceServiceImpl
	attendance    *memAttendanceRepo
	breaks        *memBreakRepo
	rates         *memRateRepo
	alerts        *memAlertRepo
	escalation    *fakeEscalation
	notifications *recordingNotifications
}

func newFixture(t *testing.T, enforce bool) *fixture {
	t.Helper()

	f := &fixture{
		attendance:    newMemAttendanceRepo(),
		breaks:        newMemBreakRepo(),
		rates:         &memRateRepo{},
		alerts:        &memAlertRepo{},
		escalation:    &fakeEscalation{},
		notifications: &recordingNotifications{},
	}

	branches := &memBranchRepo{branches: map[string]branch.Branch{
		testBranchID: {
			ID:                         testBranchID,
			CompanyID:                  testCompanyID,
			Name:                       "Head Office",
			Latitude:                   officeLat,
			Longitude:                  officeLon,
			RadiusMeters:               100,
			Timezone:                   "UTC",
			WorkStartTime:              ptr("09:00"),
			WorkEndTime:                ptr("17:00"),
			GracePeriodMinutes:         15,
			LateChargeAmount:           500,
			EarlyDepartureChargeAmount: 300,
		},
	}}
	employees := &memEmployeeRepo{employees: map[string]employee.Employee{
		testEmployeeID: {
			ID:               testEmployeeID,
			UserID:           ptr("user-1"),
			CompanyID:        testCompanyID,
			BranchID:         ptr(testBranchID),
			FullName:         "Ada Obi",
			EmploymentStatus: employee.EmploymentStatusActive,
		},
		testManagerID: {
			ID:               testManagerID,
			UserID:           ptr("user-mgr"),
			CompanyID:        testCompanyID,
			FullName:         "Bola Manager",
			IsManager:        true,
			EmploymentStatus: employee.EmploymentStatusActive,
		},
	}}

	notifier := notificationService.NewNotifier(f.notifications, employees)

	f.svc = NewAttendanceService(
		passthroughTx{},
		Repositories{
			Attendance:          f.attendance,
			Break:               f.breaks,
			WeekendConfirmation: &memWeekendRepo{},
			OvertimeRate:        f.rates,
			Branch:              branches,
			Employee:            employees,
		},
		geofenceService.NewGeofenceService(branches, f.alerts, notifier, enforce),
		deviceService.NewDeviceService(&memDeviceRepo{}),
		f.escalation,
		notifier,
		Config{
			NightShiftStartHour: 22,
			NightShiftEndHour:   6,
			DefaultTimezone:     "UTC",
			Now:                 func() time.Time { return at(12, 0) },
		},
	)
	return f
}

func officeClockIn(ts time.Time, lat float64) attendance.ClockInRequest {
	return attendance.ClockInRequest{
		EmployeeID:   testEmployeeID,
		CompanyID:    testCompanyID,
		Timestamp:    ts,
		LocationType: attendance.LocationOffice,
		BranchID:     ptr(testBranchID),
		Latitude:     ptr(lat),
		Longitude:    ptr(officeLon),
	}
}

func clockOutAt(ts time.Time) attendance.ClockOutRequest {
	return attendance.ClockOutRequest{
		EmployeeID: testEmployeeID,
		CompanyID:  testCompanyID,
		Timestamp:  ts,
	}
}

// ===== CLOCK IN =====

func TestClockIn_OfficeWithinGeofence(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	resp, err := f.svc.ClockIn(ctx, officeClockIn(at(8, 55), officeLat))
	require.NoError(t, err)

	assert.NotEmpty(t, resp.ID)
	require.NotNil(t, resp.IsWithinGeofence)
	assert.True(t, *resp.IsWithinGeofence)
	assert.Equal(t, overtime.StateAwaitingPrompt, resp.OvertimeState)
	assert.Equal(t, attendance.SourceOnline, resp.Source)
	assert.False(t, resp.IsNightShift)
	assert.Empty(t, f.escalation.calls(), "on-time clock-in is not charged")
	assert.Len(t, f.notifications.ofType(notification.TypeAttendanceClockIn), 1)
}

func TestClockIn_SecondOpenSessionRejected(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	_, err := f.svc.ClockIn(ctx, officeClockIn(at(8, 0), officeLat))
	require.NoError(t, err)

	_, err = f.svc.ClockIn(ctx, officeClockIn(at(8, 5), officeLat))
	assert.ErrorIs(t, err, attendance.ErrAlreadyClockedIn)
}

func TestClockIn_LateArrivalCharged(t *testing.T) {
	f := newFixture(t, false)

	resp, err := f.svc.ClockIn(context.Background(), officeClockIn(at(9, 30), officeLat))
	require.NoError(t, err)

	calls := f.escalation.calls()
	require.Len(t, calls, 1)
	assert.Equal(t, escalation.ViolationLateArrival, calls[0].ViolationType)
	assert.Equal(t, 500.0, calls[0].BaseAmount)
	assert.Equal(t, resp.ID, *calls[0].AttendanceID)
	assert.Len(t, f.notifications.ofType(notification.TypeChargeApplied), 1)
}

func TestClockIn_WithinGracePeriodNotCharged(t *testing.T) {
	f := newFixture(t, false)

	_, err := f.svc.ClockIn(context.Background(), officeClockIn(at(9, 15), officeLat))
	require.NoError(t, err)
	assert.Empty(t, f.escalation.calls())
}

func TestClockIn_OutsideGeofenceRaisesAlert(t *testing.T) {
	f := newFixture(t, false)

	resp, err := f.svc.ClockIn(context.Background(), officeClockIn(at(8, 0), officeLat+0.01))
	require.NoError(t, err)

	require.NotNil(t, resp.IsWithinGeofence)
	assert.False(t, *resp.IsWithinGeofence)
	assert.Greater(t, *resp.DistanceFromOffice, 1000.0)

	require.Len(t, f.alerts.alerts, 1)
	assert.Equal(t, resp.ID, *f.alerts.alerts[0].AttendanceID)
	violations := f.notifications.ofType(notification.TypeGeofenceViolation)
	require.Len(t, violations, 1)
	assert.Equal(t, "user-mgr", violations[0].RecipientID)
}

func TestClockIn_FailedClockInSendsNoGeofenceNotification(t *testing.T) {
	f := newFixture(t, false)
	f.escalation.err = errors.New("charge ledger unavailable")

	// Late and outside the radius: the alert is stored before the charge fails.
	_, err := f.svc.ClockIn(context.Background(), officeClockIn(at(9, 30), officeLat+0.01))
	require.Error(t, err)

	assert.Len(t, f.escalation.calls(), 1)
	assert.Empty(t, f.notifications.ofType(notification.TypeGeofenceViolation))
	assert.Empty(t, f.notifications.ofType(notification.TypeAttendanceClockIn))
}

func TestClockIn_OutsideGeofenceEnforced(t *testing.T) {
	f := newFixture(t, true)

	_, err := f.svc.ClockIn(context.Background(), officeClockIn(at(8, 0), officeLat+0.01))
	assert.ErrorIs(t, err, geofence.ErrOutsideAllowedRadius)

	open, err := f.attendance.GetOpenSession(context.Background(), testEmployeeID)
	require.NoError(t, err)
	assert.Nil(t, open)
	assert.Empty(t, f.alerts.alerts)
}

func TestClockIn_FieldRequiresReason(t *testing.T) {
	f := newFixture(t, false)

	_, err := f.svc.ClockIn(context.Background(), attendance.ClockInRequest{
		EmployeeID:   testEmployeeID,
		CompanyID:    testCompanyID,
		Timestamp:    at(8, 0),
		LocationType: attendance.LocationField,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "field_reason")
}

func TestClockIn_FieldInheritsHomeBranch(t *testing.T) {
	f := newFixture(t, false)

	resp, err := f.svc.ClockIn(context.Background(), attendance.ClockInRequest{
		EmployeeID:       testEmployeeID,
		CompanyID:        testCompanyID,
		Timestamp:        at(8, 0),
		LocationType:     attendance.LocationField,
		FieldReason:      ptr("client visit"),
		FieldDescription: ptr("Installation at Ikeja"),
	})
	require.NoError(t, err)
	assert.Equal(t, testBranchID, *resp.BranchID)
	assert.Nil(t, resp.IsWithinGeofence)
}

func TestClockIn_NightShift(t *testing.T) {
	f := newFixture(t, false)

	resp, err := f.svc.ClockIn(context.Background(), officeClockIn(at(22, 30).Add(-24*time.Hour), officeLat))
	require.NoError(t, err)
	assert.True(t, resp.IsNightShift)
}

func TestClockIn_ClientRefReplayReturnsStoredSession(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	req := officeClockIn(at(8, 0), officeLat)
	req.ClientRef = ptr("emp-1:clock_in:2025-06-02T08:00:00Z")

	first, err := f.svc.ClockIn(ctx, req)
	require.NoError(t, err)
	second, err := f.svc.ClockIn(ctx, req)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, f.attendance.order, 1)
}

func TestClockIn_DeviceChangeFlagged(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	req := officeClockIn(at(8, 0), officeLat)
	req.DeviceFingerprint = ptr("device-a")
	first, err := f.svc.ClockIn(ctx, req)
	require.NoError(t, err)
	assert.False(t, first.DeviceChanged)

	_, err = f.svc.ClockOut(ctx, clockOutAt(at(17, 0)))
	require.NoError(t, err)

	req = officeClockIn(at(8, 0).Add(24*time.Hour), officeLat)
	req.DeviceFingerprint = ptr("device-b")
	second, err := f.svc.ClockIn(ctx, req)
	require.NoError(t, err)
	assert.True(t, second.DeviceChanged)
	assert.Len(t, f.notifications.ofType(notification.TypeDeviceChanged), 1)
}

// ===== CLOCK OUT =====

func TestClockOut_ComputesHoursMinusBreaks(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	in, err := f.svc.ClockIn(ctx, officeClockIn(at(8, 0), officeLat))
	require.NoError(t, err)

	breakID := uuid.NewString()
	_, err = f.svc.StartBreak(ctx, attendance.BreakRequest{EmployeeID: testEmployeeID, CompanyID: testCompanyID, BreakID: breakID, Timestamp: at(12, 0)})
	require.NoError(t, err)
	_, err = f.svc.EndBreak(ctx, attendance.BreakRequest{EmployeeID: testEmployeeID, CompanyID: testCompanyID, BreakID: breakID, Timestamp: at(12, 30)})
	require.NoError(t, err)

	out, err := f.svc.ClockOut(ctx, clockOutAt(at(17, 0)))
	require.NoError(t, err)

	assert.Equal(t, in.ID, out.ID)
	require.NotNil(t, out.TotalHours)
	assert.InDelta(t, 8.5, *out.TotalHours, 0.001)
	assert.Nil(t, out.OvertimeHours)
	assert.Empty(t, f.escalation.calls())
}

func TestClockOut_OpenBreakCountsUntilClockOut(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	_, err := f.svc.ClockIn(ctx, officeClockIn(at(8, 0), officeLat))
	require.NoError(t, err)
	_, err = f.svc.StartBreak(ctx, attendance.BreakRequest{EmployeeID: testEmployeeID, CompanyID: testCompanyID, BreakID: uuid.NewString(), Timestamp: at(16, 0)})
	require.NoError(t, err)

	out, err := f.svc.ClockOut(ctx, clockOutAt(at(17, 0)))
	require.NoError(t, err)
	require.NotNil(t, out.TotalHours)
	assert.InDelta(t, 8.0, *out.TotalHours, 0.001)
}

func TestClockOut_Twice(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	in, err := f.svc.ClockIn(ctx, officeClockIn(at(8, 0), officeLat))
	require.NoError(t, err)
	_, err = f.svc.ClockOut(ctx, clockOutAt(at(17, 0)))
	require.NoError(t, err)

	_, err = f.svc.ClockOut(ctx, clockOutAt(at(17, 5)))
	assert.ErrorIs(t, err, attendance.ErrNotClockedIn)

	req := clockOutAt(at(17, 5))
	req.AttendanceID = &in.ID
	_, err = f.svc.ClockOut(ctx, req)
	assert.ErrorIs(t, err, attendance.ErrAlreadyClockedOut)
}

func TestClockOut_BeforeClockIn(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	_, err := f.svc.ClockIn(ctx, officeClockIn(at(8, 0), officeLat))
	require.NoError(t, err)

	_, err = f.svc.ClockOut(ctx, clockOutAt(at(7, 0)))
	assert.ErrorIs(t, err, attendance.ErrClockOutBeforeIn)
}

func TestClockOut_OtherEmployeesSession(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	in, err := f.svc.ClockIn(ctx, officeClockIn(at(8, 0), officeLat))
	require.NoError(t, err)

	req := clockOutAt(at(17, 0))
	req.EmployeeID = testManagerID
	req.AttendanceID = &in.ID
	_, err = f.svc.ClockOut(ctx, req)
	assert.ErrorIs(t, err, attendance.ErrUnauthorized)
}

func TestClockOut_EarlyDepartureCharged(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	_, err := f.svc.ClockIn(ctx, officeClockIn(at(8, 0), officeLat))
	require.NoError(t, err)
	_, err = f.svc.ClockOut(ctx, clockOutAt(at(16, 0)))
	require.NoError(t, err)

	calls := f.escalation.calls()
	require.Len(t, calls, 1)
	assert.Equal(t, escalation.ViolationEarlyDeparture, calls[0].ViolationType)
	assert.Equal(t, 300.0, calls[0].BaseAmount)
	assert.True(t, calls[0].OccurredAt.Equal(at(16, 0)))
}

func TestClockOut_SystemCloseNotCharged(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	_, err := f.svc.ClockIn(ctx, officeClockIn(at(8, 0), officeLat))
	require.NoError(t, err)

	req := clockOutAt(at(16, 0))
	req.Source = attendance.SourceSystem
	_, err = f.svc.ClockOut(ctx, req)
	require.NoError(t, err)
	assert.Empty(t, f.escalation.calls())
}

func TestClockOut_ApprovedOvertimePaid(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	_, err := f.svc.SetOvertimeRate(ctx, attendance.SetOvertimeRateRequest{CompanyID: testCompanyID, HourlyRate: 1000})
	require.NoError(t, err)

	in, err := f.svc.ClockIn(ctx, officeClockIn(at(8, 0), officeLat))
	require.NoError(t, err)

	promptedAt := at(17, 0)
	require.NoError(t, f.attendance.UpdateOvertime(ctx, attendance.OvertimeTransition{
		AttendanceID: in.ID, From: overtime.StateAwaitingPrompt, To: overtime.StatePrompted, PromptedAt: &promptedAt,
	}))
	require.NoError(t, f.attendance.UpdateOvertime(ctx, attendance.OvertimeTransition{
		AttendanceID: in.ID, From: overtime.StatePrompted, To: overtime.StateApproved,
		PromptedAt: &promptedAt, StartTime: &promptedAt, RespondedAt: ptr(at(17, 5)), Approved: ptr(true),
	}))

	out, err := f.svc.ClockOut(ctx, clockOutAt(at(19, 30)))
	require.NoError(t, err)

	require.NotNil(t, out.OvertimeHours)
	require.NotNil(t, out.OvertimeAmount)
	assert.InDelta(t, 2.5, *out.OvertimeHours, 0.001)
	assert.InDelta(t, 2500, *out.OvertimeAmount, 0.001)
}

func TestClockOut_OvertimeWithoutRateIsUnpaid(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	in, err := f.svc.ClockIn(ctx, officeClockIn(at(8, 0), officeLat))
	require.NoError(t, err)

	promptedAt := at(17, 0)
	require.NoError(t, f.attendance.UpdateOvertime(ctx, attendance.OvertimeTransition{
		AttendanceID: in.ID, From: overtime.StateAwaitingPrompt, To: overtime.StatePrompted, PromptedAt: &promptedAt,
	}))
	require.NoError(t, f.attendance.UpdateOvertime(ctx, attendance.OvertimeTransition{
		AttendanceID: in.ID, From: overtime.StatePrompted, To: overtime.StateApproved,
		PromptedAt: &promptedAt, StartTime: &promptedAt, Approved: ptr(true),
	}))

	out, err := f.svc.ClockOut(ctx, clockOutAt(at(18, 0)))
	require.NoError(t, err)
	assert.InDelta(t, 1.0, *out.OvertimeHours, 0.001)
	assert.Equal(t, 0.0, *out.OvertimeAmount)
}

func TestClockOut_ClientRefReplay(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	_, err := f.svc.ClockIn(ctx, officeClockIn(at(8, 0), officeLat))
	require.NoError(t, err)

	req := clockOutAt(at(17, 0))
	req.ClientRef = ptr("emp-1:clock_out:2025-06-02T17:00:00Z")
	first, err := f.svc.ClockOut(ctx, req)
	require.NoError(t, err)
	second, err := f.svc.ClockOut(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

// ===== BREAKS =====

func TestBreak_EndBeforeStartArrives(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	_, err := f.svc.ClockIn(ctx, officeClockIn(at(8, 0), officeLat))
	require.NoError(t, err)

	breakID := uuid.NewString()
	end, err := f.svc.EndBreak(ctx, attendance.BreakRequest{EmployeeID: testEmployeeID, CompanyID: testCompanyID, BreakID: breakID, Timestamp: at(13, 0)})
	require.NoError(t, err)
	assert.Nil(t, end.DurationMinutes)

	start, err := f.svc.StartBreak(ctx, attendance.BreakRequest{EmployeeID: testEmployeeID, CompanyID: testCompanyID, BreakID: breakID, Timestamp: at(12, 15)})
	require.NoError(t, err)
	require.NotNil(t, start.DurationMinutes)
	assert.InDelta(t, 45, *start.DurationMinutes, 0.001)

	open, err := f.svc.GetOpenSession(ctx, testEmployeeID)
	require.NoError(t, err)
	require.NotNil(t, open)
	assert.Len(t, open.Breaks, 1)
}

func TestBreak_WithoutOpenSession(t *testing.T) {
	f := newFixture(t, false)

	_, err := f.svc.StartBreak(context.Background(), attendance.BreakRequest{
		EmployeeID: testEmployeeID, CompanyID: testCompanyID, BreakID: uuid.NewString(), Timestamp: at(12, 0),
	})
	assert.ErrorIs(t, err, attendance.ErrNotClockedIn)
}

// ===== WEEKEND & STALE SESSIONS =====

func TestConfirmWeekendWork(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	_, err := f.svc.ConfirmWeekendWork(ctx, attendance.WeekendConfirmationRequest{
		EmployeeID: testEmployeeID, CompanyID: testCompanyID, WeekStart: "2025-06-02",
	})
	require.Error(t, err, "a Monday is not a week start")

	resp, err := f.svc.ConfirmWeekendWork(ctx, attendance.WeekendConfirmationRequest{
		EmployeeID: testEmployeeID, CompanyID: testCompanyID, WeekStart: "2025-06-07", Saturday: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "2025-06-07", resp.WeekStart)
	assert.True(t, resp.Saturday)

	list, err := f.svc.ListWeekendConfirmations(ctx, testEmployeeID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.Len(t, f.notifications.ofType(notification.TypeWeekendWorkConfirmed), 1)
}

func TestCloseStaleSessions(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	in, err := f.svc.ClockIn(ctx, officeClockIn(at(8, 0).Add(-24*time.Hour), officeLat))
	require.NoError(t, err)

	closed, err := f.svc.CloseStaleSessions(ctx, 16*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, closed)

	rec, err := f.svc.GetAttendance(ctx, in.ID, testCompanyID)
	require.NoError(t, err)
	require.NotNil(t, rec.ClockOutTime)
	assert.True(t, rec.ClockOutTime.Equal(at(0, 0)))
	assert.Empty(t, f.escalation.calls())
	assert.Len(t, f.notifications.ofType(notification.TypeAttendanceAutoClosed), 1)

	closed, err = f.svc.CloseStaleSessions(ctx, 16*time.Hour)
	require.NoError(t, err)
	assert.Zero(t, closed)
}

// ===== OFFLINE REPLAY =====

func enqueue(t *testing.T, q syncqueue.Service, op syncqueue.OperationType, ts time.Time, payload interface{}) syncqueue.ItemResponse {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	item, err := q.Enqueue(context.Background(), syncqueue.EnqueueRequest{
		EmployeeID:      testEmployeeID,
		CompanyID:       testCompanyID,
		OperationType:   op,
		Payload:         raw,
		DeviceTimestamp: ts,
	})
	require.NoError(t, err)
	return item
}

func TestOfflineQueue_FlushReplaysThroughPipeline(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	store, err := local.Open(filepath.Join(t.TempDir(), "queue.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	q := syncqueueService.NewSyncQueueService(local.NewSyncQueueRepository(store), NewReplayDispatcher(f.svc), syncqueueService.Config{MaxAttempts: 5})

	breakID := uuid.NewString()
	clockIn := enqueue(t, q, syncqueue.OpClockIn, at(8, 0), syncqueue.ClockInPayload{
		LocationType: "office", BranchID: ptr(testBranchID), Latitude: ptr(officeLat), Longitude: ptr(officeLon),
	})
	enqueue(t, q, syncqueue.OpBreakStart, at(12, 0), syncqueue.BreakPayload{BreakID: breakID})
	enqueue(t, q, syncqueue.OpBreakEnd, at(13, 0), syncqueue.BreakPayload{BreakID: breakID})
	enqueue(t, q, syncqueue.OpClockOut, at(17, 0), syncqueue.ClockOutPayload{})

	pending, err := q.PendingCount(ctx, testEmployeeID)
	require.NoError(t, err)
	assert.Equal(t, 4, pending)

	result, err := q.Flush(ctx, testEmployeeID)
	require.NoError(t, err)
	assert.Equal(t, 4, result.Synced)
	assert.Zero(t, result.Failed)

	pending, err = q.PendingCount(ctx, testEmployeeID)
	require.NoError(t, err)
	assert.Zero(t, pending)

	list, err := f.svc.ListAttendance(ctx, attendance.Filter{CompanyID: testCompanyID})
	require.NoError(t, err)
	require.Len(t, list.Attendances, 1)
	rec := list.Attendances[0]
	assert.Equal(t, attendance.SourceSync, rec.Source)
	assert.True(t, rec.ClockInTime.Equal(at(8, 0)))
	require.NotNil(t, rec.TotalHours)
	assert.InDelta(t, 8.0, *rec.TotalHours, 0.001)

	stored, err := f.attendance.GetByClientRef(ctx, testEmployeeID, clockIn.IdempotencyKey)
	require.NoError(t, err)
	require.NotNil(t, stored, "replayed clock-in carries the idempotency key")
}

func TestOfflineQueue_LostAckDoesNotDuplicate(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	dispatcher := NewReplayDispatcher(f.svc)

	payload, err := json.Marshal(syncqueue.ClockInPayload{
		LocationType: "office", BranchID: ptr(testBranchID), Latitude: ptr(officeLat), Longitude: ptr(officeLon),
	})
	require.NoError(t, err)
	item := syncqueue.Item{
		EmployeeID:      testEmployeeID,
		CompanyID:       testCompanyID,
		OperationType:   syncqueue.OpClockIn,
		Payload:         payload,
		DeviceTimestamp: at(8, 0),
		IdempotencyKey:  syncqueue.IdempotencyKey(testEmployeeID, syncqueue.OpClockIn, at(8, 0)),
	}

	require.NoError(t, dispatcher.Dispatch(ctx, item))
	require.NoError(t, dispatcher.Dispatch(ctx, item), "a replay of an applied clock-in succeeds")
	assert.Len(t, f.attendance.order, 1)
}

func TestOfflineQueue_UnsupportedOperation(t *testing.T) {
	f := newFixture(t, false)
	err := NewReplayDispatcher(f.svc).Dispatch(context.Background(), syncqueue.Item{OperationType: "teleport"})
	assert.ErrorIs(t, err, syncqueue.ErrUnsupportedOp)
}
