package overtime

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/domain/attendance"
	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/domain/employee"
	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/domain/master/branch"
	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/domain/notification"
	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/domain/overtime"
	notificationService "github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/service/notification"
)

const (
	companyID    = "company-1"
	employeeID   = "emp-1"
	attendanceID = "6f1c2a3b-4d5e-4f60-8a9b-0c1d2e3f4a5b"
	branchID     = "branch-1"
)

var (
	clockIn  = time.Date(2025, 6, 2, 7, 0, 0, 0, time.UTC) // 08:00 WAT
	promptAt = time.Date(2025, 6, 2, 16, 0, 0, 0, time.UTC) // 17:00 WAT
)

// sessionStore is an attendance repository holding open sessions. Its
// transactions run one at a time and restore the previous contents when fn fails.
type sessionStore struct {
	attendance.AttendanceRepository

	txMu     sync.Mutex
	mu       sync.Mutex
	sessions map[string]attendance.Attendance
}

func (s *sessionStore) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	snapshot := make(map[string]attendance.Attendance, len(s.sessions))
	for k, v := range s.sessions {
		snapshot[k] = v
	}
	s.mu.Unlock()

	if err := fn(ctx); err != nil {
		s.mu.Lock()
		s.sessions = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *sessionStore) GetByID(_ context.Context, id string, companyID string) (attendance.Attendance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.sessions[id]
	if !ok || a.CompanyID != companyID {
		return attendance.Attendance{}, attendance.ErrAttendanceNotFound
	}
	return a, nil
}

func (s *sessionStore) GetOpenSession(_ context.Context, employeeID string) (*attendance.Attendance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.sessions {
		if a.EmployeeID == employeeID && a.IsOpen() {
			return &a, nil
		}
	}
	return nil, nil
}

func (s *sessionStore) UpdateOvertime(_ context.Context, t attendance.OvertimeTransition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.sessions[t.AttendanceID]
	if !ok || !a.IsOpen() || a.OvertimeState != t.From {
		return overtime.ErrStateConflict
	}
	a.OvertimeState = t.To
	a.OvertimePromptedAt = t.PromptedAt
	a.OvertimeStartTime = t.StartTime
	a.OvertimeRespondedAt = t.RespondedAt
	a.OvertimeApproved = t.Approved
	s.sessions[a.ID] = a
	return nil
}

func (s *sessionStore) ListOpenInOvertimeFlow(_ context.Context) ([]attendance.Attendance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []attendance.Attendance
	for _, a := range s.sessions {
		if a.IsOpen() && !a.OvertimeState.IsTerminal() {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *sessionStore) get(id string) attendance.Attendance {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[id]
}

// clockOuts closes sessions in the store and counts the calls.
type clockOuts struct {
	attendance.AttendanceService

	store *sessionStore
	fail  error

	mu       sync.Mutex
	requests []attendance.ClockOutRequest
}

func (c *clockOuts) ClockOut(_ context.Context, req attendance.ClockOutRequest) (attendance.AttendanceResponse, error) {
	c.mu.Lock()
	c.requests = append(c.requests, req)
	c.mu.Unlock()
	if c.fail != nil {
		return attendance.AttendanceResponse{}, c.fail
	}

	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	a := c.store.sessions[*req.AttendanceID]
	if !a.IsOpen() {
		return attendance.AttendanceResponse{}, attendance.ErrAlreadyClockedOut
	}
	out := req.Timestamp
	a.ClockOutTime = &out
	a.ClockOutClientRef = req.ClientRef
	c.store.sessions[a.ID] = a
	return attendance.ToResponse(a), nil
}

func (c *clockOuts) calls() []attendance.ClockOutRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]attendance.ClockOutRequest(nil), c.requests...)
}

type branches struct {
	branch.BranchRepository
}

func (branches) GetByID(_ context.Context, id string, _ string) (branch.Branch, error) {
	return branch.Branch{ID: id, CompanyID: companyID, Timezone: "Africa/Lagos"}, nil
}

type employees struct{}

func (employees) GetByID(_ context.Context, id string) (employee.Employee, error) {
	userID := "user-" + id
	return employee.Employee{ID: id, UserID: &userID, CompanyID: companyID, EmploymentStatus: employee.EmploymentStatusActive}, nil
}

func (employees) GetManagersByCompanyID(_ context.Context, _ string) ([]employee.Employee, error) {
	mgr := "user-mgr"
	return []employee.Employee{{ID: "mgr-1", UserID: &mgr, CompanyID: companyID, IsManager: true}}, nil
}

func (employees) GetActiveByCompanyID(_ context.Context, _ string) ([]employee.Employee, error) {
	return nil, nil
}

type sent struct {
	notification.Service

	mu   sync.Mutex
	reqs []notification.CreateNotificationRequest
}

func (s *sent) QueueBulkNotification(_ context.Context, reqs []notification.CreateNotificationRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reqs = append(s.reqs, reqs...)
	return nil
}

func (s *sent) count(t notification.NotificationType) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.reqs {
		if r.Type == t {
			n++
		}
	}
	return n
}

type harness struct {
	svc           overtime.Service
	store         *sessionStore
	clockOuts     *clockOuts
	notifications *sent
	now           time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	bid := branchID
	store := &sessionStore{sessions: map[string]attendance.Attendance{
		attendanceID: {
			ID:            attendanceID,
			EmployeeID:    employeeID,
			CompanyID:     companyID,
			BranchID:      &bid,
			ClockInTime:   clockIn,
			OvertimeState: overtime.StateAwaitingPrompt,
		},
	}}

	h := &harness{
		store:         store,
		clockOuts:     &clockOuts{store: store},
		notifications: &sent{},
		now:           promptAt.Add(2 * time.Minute),
	}
	h.svc = NewOvertimeService(
		store,
		store,
		branches{},
		h.clockOuts,
		notificationService.NewNotifier(h.notifications, employees{}),
		overtime.DefaultSchedule(),
		time.UTC,
		func() time.Time { return h.now },
	)
	return h
}

func TestTick_PromptsInBranchTimezone(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	result, err := h.svc.Tick(ctx, promptAt.Add(-time.Minute))
	require.NoError(t, err)
	assert.Zero(t, result.Prompted)

	// 16:00 UTC is 17:00 in Lagos.
	result, err = h.svc.Tick(ctx, promptAt)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Prompted)

	rec := h.store.get(attendanceID)
	assert.Equal(t, overtime.StatePrompted, rec.OvertimeState)
	assert.Equal(t, 1, h.notifications.count(notification.TypeOvertimePrompt))

	result, err = h.svc.Tick(ctx, promptAt.Add(time.Minute))
	require.NoError(t, err)
	assert.Zero(t, result.Prompted, "a prompted session is not prompted again")
	assert.Equal(t, 1, h.notifications.count(notification.TypeOvertimePrompt))
}

func TestTick_BeforePromptTimeDoesNothing(t *testing.T) {
	h := newHarness(t)

	result, err := h.svc.Tick(context.Background(), promptAt.Add(-2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, overtime.TickResult{}, result)
	assert.Equal(t, overtime.StateAwaitingPrompt, h.store.get(attendanceID).OvertimeState)
}

func TestTick_AutoDeclinesOnce(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.svc.Tick(ctx, promptAt)
	require.NoError(t, err)
	deadline := promptAt.Add(overtime.DefaultSchedule().ResponseTimeout)

	result, err := h.svc.Tick(ctx, deadline.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, result.AutoDeclined)

	result, err = h.svc.Tick(ctx, deadline.Add(2*time.Minute))
	require.NoError(t, err)
	assert.Zero(t, result.AutoDeclined)

	rec := h.store.get(attendanceID)
	assert.Equal(t, overtime.StateDeclined, rec.OvertimeState)
	require.NotNil(t, rec.OvertimeApproved)
	assert.False(t, *rec.OvertimeApproved)
	require.NotNil(t, rec.ClockOutTime)
	assert.True(t, rec.ClockOutTime.Equal(deadline), "clock-out is the deadline, not the tick")

	calls := h.clockOuts.calls()
	require.Len(t, calls, 1)
	assert.Equal(t, attendance.SourceSystem, calls[0].Source)
	assert.Equal(t, "overtime-auto-decline:"+attendanceID, *calls[0].ClientRef)
	assert.Equal(t, 1, h.notifications.count(notification.TypeOvertimeAutoDeclined))
}

func TestTick_ConcurrentTicksDeclineOnce(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.svc.Tick(ctx, promptAt)
	require.NoError(t, err)
	late := promptAt.Add(time.Hour)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = h.svc.Tick(ctx, late)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, h.notifications.count(notification.TypeOvertimeAutoDeclined))
	assert.Equal(t, overtime.StateDeclined, h.store.get(attendanceID).OvertimeState)
}

func TestTick_FailedClockOutKeepsPrompt(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.svc.Tick(ctx, promptAt)
	require.NoError(t, err)

	h.clockOuts.fail = errors.New("database unavailable")
	result, err := h.svc.Tick(ctx, promptAt.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, overtime.StatePrompted, h.store.get(attendanceID).OvertimeState)
	assert.True(t, h.store.get(attendanceID).IsOpen())

	h.clockOuts.fail = nil
	result, err = h.svc.Tick(ctx, promptAt.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, result.AutoDeclined)
}

func TestRespond_Approve(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.svc.Tick(ctx, promptAt)
	require.NoError(t, err)

	approve := true
	resp, err := h.svc.Respond(ctx, overtime.RespondRequest{
		EmployeeID: employeeID, CompanyID: companyID, AttendanceID: attendanceID, Approve: &approve,
	})
	require.NoError(t, err)

	assert.Equal(t, overtime.StateApproved, resp.State)
	require.NotNil(t, resp.StartTime)
	assert.True(t, resp.StartTime.Equal(promptAt), "overtime starts at the prompt")
	assert.Nil(t, resp.Deadline)
	assert.Equal(t, 1, h.notifications.count(notification.TypeOvertimeResponded))

	_, err = h.svc.Respond(ctx, overtime.RespondRequest{
		EmployeeID: employeeID, CompanyID: companyID, AttendanceID: attendanceID, Approve: &approve,
	})
	assert.ErrorIs(t, err, overtime.ErrAlreadyResponded)

	result, err := h.svc.Tick(ctx, promptAt.Add(time.Hour))
	require.NoError(t, err)
	assert.Zero(t, result.AutoDeclined)
	assert.Empty(t, h.clockOuts.calls())
}

func TestRespond_DeclineKeepsSessionOpen(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.svc.Tick(ctx, promptAt)
	require.NoError(t, err)

	decline := false
	resp, err := h.svc.Respond(ctx, overtime.RespondRequest{
		EmployeeID: employeeID, CompanyID: companyID, AttendanceID: attendanceID, Approve: &decline,
	})
	require.NoError(t, err)
	assert.Equal(t, overtime.StateDeclined, resp.State)
	assert.True(t, h.store.get(attendanceID).IsOpen())
	assert.Empty(t, h.clockOuts.calls())
}

func TestRespond_BeforePrompt(t *testing.T) {
	h := newHarness(t)

	approve := true
	_, err := h.svc.Respond(context.Background(), overtime.RespondRequest{
		EmployeeID: employeeID, CompanyID: companyID, AttendanceID: attendanceID, Approve: &approve,
	})
	assert.ErrorIs(t, err, overtime.ErrNotPrompted)
}

func TestRespond_AfterDeadline(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.svc.Tick(ctx, promptAt)
	require.NoError(t, err)
	h.now = promptAt.Add(20 * time.Minute)

	approve := true
	_, err = h.svc.Respond(ctx, overtime.RespondRequest{
		EmployeeID: employeeID, CompanyID: companyID, AttendanceID: attendanceID, Approve: &approve,
	})
	assert.ErrorIs(t, err, overtime.ErrAlreadyResponded)
}

func TestRespond_OtherEmployee(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.svc.Tick(ctx, promptAt)
	require.NoError(t, err)

	approve := true
	_, err = h.svc.Respond(ctx, overtime.RespondRequest{
		EmployeeID: "emp-2", CompanyID: companyID, AttendanceID: attendanceID, Approve: &approve,
	})
	assert.ErrorIs(t, err, attendance.ErrUnauthorized)
}

func TestGetStatus(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.svc.Tick(ctx, promptAt)
	require.NoError(t, err)

	status, err := h.svc.GetStatus(ctx, employeeID, companyID)
	require.NoError(t, err)
	assert.Equal(t, overtime.StatePrompted, status.State)
	require.NotNil(t, status.Deadline)
	assert.True(t, status.Deadline.Equal(promptAt.Add(15*time.Minute)))

	_, err = h.svc.GetStatus(ctx, "emp-2", companyID)
	assert.ErrorIs(t, err, overtime.ErrNoOpenSession)
}
