package notification

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/domain/employee"
	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/domain/notification"
	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/pkg/push"
	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/pkg/sse"
)

type memRepo struct {
	mu       sync.Mutex
	stored   []*notification.Notification
	pushOff  map[notification.NotificationType]bool
	prefs    []*notification.NotificationPreference
	readIDs  []string
	batchLen []int
}

func (r *memRepo) CreateBatch(_ context.Context, ns []*notification.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stored = append(r.stored, ns...)
	r.batchLen = append(r.batchLen, len(ns))
	return nil
}

func (r *memRepo) GetByUserID(_ context.Context, userID string, _, _ int, _ bool) ([]*notification.Notification, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*notification.Notification
	for _, n := range r.stored {
		if n.RecipientID == userID {
			out = append(out, n)
		}
	}
	return out, len(out), nil
}

func (r *memRepo) GetUnreadCount(ctx context.Context, userID string) (int, error) {
	ns, _, _ := r.GetByUserID(ctx, userID, 1, 100, true)
	return len(ns), nil
}

func (r *memRepo) MarkAsRead(_ context.Context, ids []string, _ string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.readIDs = append(r.readIDs, ids...)
	return nil
}

func (r *memRepo) MarkAllAsRead(context.Context, string) error { return nil }

func (r *memRepo) Delete(context.Context, string, string) error { return nil }

func (r *memRepo) GetPreferences(context.Context, string) ([]*notification.NotificationPreference, error) {
	return r.prefs, nil
}

func (r *memRepo) UpsertPreference(_ context.Context, p *notification.NotificationPreference) error {
	r.prefs = append(r.prefs, p)
	return nil
}

func (r *memRepo) IsPushEnabled(_ context.Context, _ string, t notification.NotificationType) (bool, error) {
	return !r.pushOff[t], nil
}

func (r *memRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.stored)
}

type pushRecorder struct {
	mu   sync.Mutex
	msgs []push.Message
}

func (p *pushRecorder) Dispatch(msg push.Message) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, msg)
}

func (p *pushRecorder) sent() []push.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]push.Message(nil), p.msgs...)
}

func request(userID string, t notification.NotificationType) notification.CreateNotificationRequest {
	return notification.CreateNotificationRequest{
		CompanyID:   "company-1",
		RecipientID: userID,
		Type:        t,
		Title:       "Overtime",
		Message:     "Are you working overtime?",
		Data:        map[string]interface{}{"attendance_id": "att-1"},
	}
}

func TestService_QueueStoresStreamsAndPushes(t *testing.T) {
	repo := &memRepo{pushOff: map[notification.NotificationType]bool{notification.TypeAttendanceClockIn: true}}
	hub := sse.NewHub()
	pusher := &pushRecorder{}
	svc := NewNotificationService(repo, hub, pusher, Config{FlushInterval: 10 * time.Millisecond, WorkerCount: 1})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events, cleanup := svc.Subscribe(ctx, "user-1")
	defer cleanup()

	require.NoError(t, svc.QueueNotification(ctx, request("user-1", notification.TypeOvertimePrompt)))
	require.NoError(t, svc.QueueNotification(ctx, request("user-1", notification.TypeAttendanceClockIn)))

	select {
	case ev := <-events:
		assert.Equal(t, "notification", ev.Event)
		resp, ok := ev.Data.(notification.NotificationResponse)
		require.True(t, ok)
		assert.Equal(t, notification.TypeOvertimePrompt, resp.Type)
	case <-time.After(2 * time.Second):
		t.Fatal("no SSE event received")
	}

	svc.Stop()
	assert.Equal(t, 2, repo.count())

	msgs := pusher.sent()
	require.Len(t, msgs, 1, "clock-in pushes are disabled for this user")
	assert.Equal(t, []string{"user-1"}, msgs[0].TargetUserIDs)
	assert.Equal(t, "att-1", msgs[0].Data["attendance_id"])
	assert.Equal(t, string(notification.TypeOvertimePrompt), msgs[0].Data["type"])
}

func TestService_StopDrainsQueue(t *testing.T) {
	repo := &memRepo{}
	svc := NewNotificationService(repo, sse.NewHub(), nil, Config{FlushInterval: time.Hour, BatchSize: 50, WorkerCount: 1})

	reqs := make([]notification.CreateNotificationRequest, 10)
	for i := range reqs {
		reqs[i] = request("user-1", notification.TypeChargeApplied)
	}
	require.NoError(t, svc.QueueBulkNotification(context.Background(), reqs))

	svc.Stop()
	svc.Stop()
	assert.Equal(t, 10, repo.count())
}

func TestService_InvalidRequestRejected(t *testing.T) {
	svc := NewNotificationService(&memRepo{}, sse.NewHub(), nil, Config{})
	defer svc.Stop()

	err := svc.QueueNotification(context.Background(), notification.CreateNotificationRequest{Type: "unknown"})
	assert.Error(t, err)
}

func TestService_PreferencesDefaultToEnabled(t *testing.T) {
	repo := &memRepo{prefs: []*notification.NotificationPreference{
		{NotificationType: notification.TypeAttendanceClockIn, PushEnabled: false},
	}}
	svc := NewNotificationService(repo, sse.NewHub(), nil, Config{})
	defer svc.Stop()

	prefs, err := svc.GetPreferences(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, prefs, len(notification.AllNotificationTypes()))
	for _, p := range prefs {
		if p.NotificationType == notification.TypeAttendanceClockIn {
			assert.False(t, p.PushEnabled)
		} else {
			assert.True(t, p.PushEnabled, p.NotificationType)
		}
	}

	err = svc.UpdatePreference(context.Background(), "user-1", notification.UpdatePreferenceRequest{NotificationType: "bogus"})
	assert.Error(t, err)
}

type staticEmployees struct {
	byID     map[string]employee.Employee
	managers []employee.Employee
}

func (s staticEmployees) GetByID(_ context.Context, id string) (employee.Employee, error) {
	e, ok := s.byID[id]
	if !ok {
		return employee.Employee{}, employee.ErrEmployeeNotFound
	}
	return e, nil
}

func (s staticEmployees) GetManagersByCompanyID(context.Context, string) ([]employee.Employee, error) {
	return s.managers, nil
}

func (s staticEmployees) GetActiveByCompanyID(context.Context, string) ([]employee.Employee, error) {
	return nil, nil
}

func TestNotifier_ManagersSkipSubject(t *testing.T) {
	repo := &memRepo{}
	svc := NewNotificationService(repo, sse.NewHub(), nil, Config{WorkerCount: 1})

	u1, u2 := "user-mgr-1", "user-mgr-2"
	employees := staticEmployees{managers: []employee.Employee{
		{ID: "mgr-1", UserID: &u1},
		{ID: "mgr-2", UserID: &u2},
		{ID: "mgr-3"},
	}}
	n := NewNotifier(svc, employees)

	n.Managers(context.Background(), "company-1", "mgr-2", Message{Type: notification.TypeGeofenceViolation, Title: "Outside"})
	svc.Stop()

	require.Equal(t, 1, repo.count())
	assert.Equal(t, u1, repo.stored[0].RecipientID)
}

func TestNotifier_NilIsNoop(t *testing.T) {
	var n *Notifier
	assert.NotPanics(t, func() {
		n.Employee(context.Background(), "company-1", "emp-1", Message{Title: "x"})
		n.Managers(context.Background(), "company-1", "emp-1", Message{Title: "x"})
	})
}
