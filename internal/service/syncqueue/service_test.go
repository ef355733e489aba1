package syncqueue

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/domain/syncqueue"
	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/pkg/validator"
	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/repository/local"
)

const (
	employeeID = "emp-1"
	companyID  = "company-1"
	breakID    = "0b1c6d2e-8f4a-4b6c-9d1e-2f3a4b5c6d7e"
)

var t0 = time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC)

func newRepo(t *testing.T) syncqueue.Repository {
	t.Helper()
	store, err := local.Open(filepath.Join(t.TempDir(), "queue.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return local.NewSyncQueueRepository(store)
}

// recorder dispatches items in order and fails the operation types listed in fail.
type recorder struct {
	mu    sync.Mutex
	order []syncqueue.OperationType
	fail  map[syncqueue.OperationType]bool
}

func (r *recorder) Dispatch(_ context.Context, item syncqueue.Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.order = append(r.order, item.OperationType)
	if r.fail[item.OperationType] {
		return errors.New("server unavailable")
	}
	return nil
}

func (r *recorder) reset(fail map[syncqueue.OperationType]bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.order = nil
	r.fail = fail
}

func enqueueABC(t *testing.T, svc syncqueue.Service) []syncqueue.ItemResponse {
	t.Helper()
	ctx := context.Background()
	reqs := []syncqueue.EnqueueRequest{
		{OperationType: syncqueue.OpClockIn, DeviceTimestamp: t0,
			Payload: json.RawMessage(`{"location_type":"field","field_reason":"client visit","field_description":"Ikeja site"}`)},
		{OperationType: syncqueue.OpBreakStart, DeviceTimestamp: t0.Add(time.Hour),
			Payload: json.RawMessage(`{"break_id":"` + breakID + `"}`)},
		{OperationType: syncqueue.OpBreakEnd, DeviceTimestamp: t0.Add(2 * time.Hour),
			Payload: json.RawMessage(`{"break_id":"` + breakID + `"}`)},
	}

	var out []syncqueue.ItemResponse
	for _, req := range reqs {
		req.EmployeeID = employeeID
		req.CompanyID = companyID
		item, err := svc.Enqueue(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, syncqueue.StatusPending, item.Status)
		assert.Zero(t, item.Attempts)
		out = append(out, item)
	}
	return out
}

func TestFlush_FIFOWithFailures(t *testing.T) {
	rec := &recorder{fail: map[syncqueue.OperationType]bool{
		syncqueue.OpClockIn:  true,
		syncqueue.OpBreakEnd: true,
	}}
	svc := NewSyncQueueService(newRepo(t), rec, Config{})
	ctx := context.Background()
	enqueueABC(t, svc)

	result, err := svc.Flush(ctx, employeeID)
	require.NoError(t, err)
	assert.Equal(t, []syncqueue.OperationType{syncqueue.OpClockIn, syncqueue.OpBreakStart, syncqueue.OpBreakEnd}, rec.order)
	assert.Equal(t, syncqueue.FlushResult{Processed: 3, Synced: 1, Failed: 2}, result)

	emp := employeeID
	list, err := svc.List(ctx, syncqueue.Filter{EmployeeID: &emp})
	require.NoError(t, err)
	require.Len(t, list.Items, 3)
	assert.Equal(t, 2, list.PendingCount)
	assert.Equal(t, syncqueue.StatusFailed, list.Items[0].Status)
	assert.Equal(t, 1, list.Items[0].Attempts)
	require.NotNil(t, list.Items[0].Error)
	assert.Contains(t, *list.Items[0].Error, "server unavailable")
	assert.Equal(t, syncqueue.StatusSynced, list.Items[1].Status)
	assert.NotNil(t, list.Items[1].SyncedAt)
	assert.Equal(t, syncqueue.StatusFailed, list.Items[2].Status)

	rec.reset(nil)
	result, err = svc.Flush(ctx, employeeID)
	require.NoError(t, err)
	// The synced item is not dispatched again.
	assert.Equal(t, []syncqueue.OperationType{syncqueue.OpClockIn, syncqueue.OpBreakEnd}, rec.order)
	assert.Equal(t, 2, result.Synced)

	pending, err := svc.PendingCount(ctx, employeeID)
	require.NoError(t, err)
	assert.Zero(t, pending)

	rec.reset(nil)
	result, err = svc.Flush(ctx, employeeID)
	require.NoError(t, err)
	assert.Empty(t, rec.order)
	assert.Zero(t, result.Processed)
}

func TestFlush_ConcurrentFlushIsRejected(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	dispatcher := syncqueue.DispatcherFunc(func(ctx context.Context, item syncqueue.Item) error {
		once.Do(func() { close(started) })
		<-release
		return nil
	})

	svc := NewSyncQueueService(newRepo(t), dispatcher, Config{})
	ctx := context.Background()
	enqueueABC(t, svc)

	done := make(chan syncqueue.FlushResult)
	go func() {
		result, _ := svc.Flush(ctx, employeeID)
		done <- result
	}()

	<-started
	_, err := svc.Flush(ctx, employeeID)
	assert.ErrorIs(t, err, syncqueue.ErrFlushInProgress)

	// Other queues are independent.
	_, err = svc.Flush(ctx, "emp-2")
	assert.NoError(t, err)

	pending, err := svc.PendingCount(ctx, employeeID)
	require.NoError(t, err)
	assert.Equal(t, 3, pending)

	close(release)
	result := <-done
	assert.Equal(t, 3, result.Synced)
}

func TestFlush_IgnoresCallerCancellation(t *testing.T) {
	rec := &recorder{}
	svc := NewSyncQueueService(newRepo(t), rec, Config{})
	enqueueABC(t, svc)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := svc.Flush(ctx, employeeID)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Synced)
}

func TestFlush_MaxAttemptsAndRetry(t *testing.T) {
	rec := &recorder{fail: map[syncqueue.OperationType]bool{syncqueue.OpClockIn: true}}
	var exhausted []syncqueue.Item
	svc := NewSyncQueueService(newRepo(t), rec, Config{
		MaxAttempts: 2,
		OnExhausted: func(_ context.Context, item syncqueue.Item) { exhausted = append(exhausted, item) },
	})
	ctx := context.Background()

	item, err := svc.Enqueue(ctx, syncqueue.EnqueueRequest{
		EmployeeID: employeeID, CompanyID: companyID,
		OperationType: syncqueue.OpClockIn, DeviceTimestamp: t0,
		Payload: json.RawMessage(`{"location_type":"field","field_reason":"r","field_description":"d"}`),
	})
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err := svc.Flush(ctx, employeeID)
		require.NoError(t, err)
	}
	require.Len(t, exhausted, 1)
	assert.Equal(t, 2, exhausted[0].Attempts)

	result, err := svc.Flush(ctx, employeeID)
	require.NoError(t, err)
	assert.Equal(t, syncqueue.FlushResult{Skipped: 1}, result)

	emp := employeeID
	list, err := svc.List(ctx, syncqueue.Filter{EmployeeID: &emp})
	require.NoError(t, err)
	require.Len(t, list.Items, 1)
	assert.True(t, list.Items[0].AttemptsCapped)
	assert.Equal(t, 1, list.PendingCount)

	retried, err := svc.Retry(ctx, employeeID, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, retried.Attempts)
	assert.Equal(t, syncqueue.StatusFailed, retried.Status)

	rec.reset(nil)
	retried, err = svc.Retry(ctx, employeeID, item.ID)
	require.NoError(t, err)
	assert.Equal(t, syncqueue.StatusSynced, retried.Status)
	assert.Equal(t, 3, retried.Attempts)

	_, err = svc.Retry(ctx, employeeID, item.ID)
	assert.ErrorIs(t, err, syncqueue.ErrAlreadySynced)
}

func TestEnqueue_DuplicateReturnsStoredItem(t *testing.T) {
	svc := NewSyncQueueService(newRepo(t), &recorder{}, Config{})
	ctx := context.Background()

	first := enqueueABC(t, svc)
	again := enqueueABC(t, svc)
	for i := range first {
		assert.Equal(t, first[i].ID, again[i].ID)
	}

	pending, err := svc.PendingCount(ctx, employeeID)
	require.NoError(t, err)
	assert.Equal(t, 3, pending)
}

func TestEnqueueBatch(t *testing.T) {
	rec := &recorder{}
	svc := NewSyncQueueService(newRepo(t), rec, Config{})
	ctx := context.Background()

	_, err := svc.EnqueueBatch(ctx, syncqueue.BatchEnqueueRequest{
		EmployeeID: employeeID, CompanyID: companyID,
		Items: []syncqueue.EnqueueRequest{
			{OperationType: syncqueue.OpClockOut, DeviceTimestamp: t0, Payload: json.RawMessage(`{}`)},
			{OperationType: syncqueue.OpBreakStart, DeviceTimestamp: t0, Payload: json.RawMessage(`{"break_id":"nope"}`)},
		},
	})
	var verrs validator.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Contains(t, verrs.ToMap(), "items[1].payload.break_id")

	pending, err := svc.PendingCount(ctx, employeeID)
	require.NoError(t, err)
	assert.Zero(t, pending, "a rejected batch stores nothing")

	resp, err := svc.EnqueueBatch(ctx, syncqueue.BatchEnqueueRequest{
		EmployeeID: employeeID, CompanyID: companyID, Flush: true,
		Items: []syncqueue.EnqueueRequest{
			{OperationType: syncqueue.OpBreakStart, DeviceTimestamp: t0, Payload: json.RawMessage(`{"break_id":"` + breakID + `"}`)},
			{OperationType: syncqueue.OpBreakEnd, DeviceTimestamp: t0.Add(time.Minute), Payload: json.RawMessage(`{"break_id":"` + breakID + `"}`)},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Queued)
	require.NotNil(t, resp.Flush)
	assert.Equal(t, 2, resp.Flush.Synced)
	for _, it := range resp.Items {
		assert.Equal(t, syncqueue.StatusSynced, it.Status)
	}
}

func TestClear(t *testing.T) {
	svc := NewSyncQueueService(newRepo(t), &recorder{}, Config{})
	ctx := context.Background()
	items := enqueueABC(t, svc)

	assert.ErrorIs(t, svc.Clear(ctx, "emp-2", items[0].ID), syncqueue.ErrUnauthorized)
	require.NoError(t, svc.Clear(ctx, employeeID, items[0].ID))
	assert.ErrorIs(t, svc.Clear(ctx, employeeID, items[0].ID), syncqueue.ErrItemNotFound)

	pending, err := svc.PendingCount(ctx, employeeID)
	require.NoError(t, err)
	assert.Equal(t, 2, pending)
}

func TestFlushAllAndPurge(t *testing.T) {
	repo := newRepo(t)
	now := t0
	svc := NewSyncQueueService(repo, &recorder{}, Config{Now: func() time.Time { return now }})
	ctx := context.Background()
	enqueueABC(t, svc)

	_, err := svc.Enqueue(ctx, syncqueue.EnqueueRequest{
		EmployeeID: "emp-2", CompanyID: companyID,
		OperationType: syncqueue.OpClockOut, DeviceTimestamp: t0, Payload: json.RawMessage(`{}`),
	})
	require.NoError(t, err)

	result, err := svc.FlushAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, result.Synced)

	now = t0.Add(8 * 24 * time.Hour)
	purged, err := svc.PurgeSynced(ctx, 7*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(4), purged)
}
