package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/domain/attendance"
	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/domain/syncqueue"
	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/pkg/connectivity"
	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/pkg/geo"
	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/repository/local"
	syncqueueService "github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/service/syncqueue"
)

const maxFixAge = time.Minute

var (
	ErrNoPosition     = errors.New("no position fix available")
	ErrNoBranch       = errors.New("office clock-in needs a configured branch")
	ErrBreakOpen      = errors.New("a break is already in progress")
	ErrNoBreakStarted = errors.New("no break in progress")
)

// Outcome tells the caller whether an operation reached the server or was
// kept in the offline queue.
type Outcome struct {
	Queued  bool                    `json:"queued"`
	Item    *syncqueue.ItemResponse `json:"item,omitempty"`
	Flushed *syncqueue.FlushResult  `json:"flushed,omitempty"`
	Result  json.RawMessage         `json:"result,omitempty"`
}

type ClockInInput struct {
	LocationType     attendance.LocationType
	FieldReason      string
	FieldDescription string
}

// Agent is the device side: position tracking, fingerprint cache and the
// offline queue replayed against the server on reconnect.
type Agent struct {
	cfg     Config
	client  *Client
	store   *local.Store
	session *local.SessionState
	queue   syncqueue.Service
	monitor *connectivity.Monitor
	tracker *geo.Tracker
	device  local.CachedFingerprint
	now     func() time.Time
}

func New(cfg Config, source geo.PositionSource) (*Agent, error) {
	store, err := local.Open(cfg.Queue.StorePath)
	if err != nil {
		return nil, err
	}

	device, err := local.NewDeviceCache(store).Resolve(cfg.Device)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("resolve device fingerprint: %w", err)
	}

	client := NewClient(cfg.Server.URL, cfg.Server.Token, &http.Client{Timeout: cfg.Server.RequestTimeout})
	a := &Agent{
		cfg:     cfg,
		client:  client,
		store:   store,
		session: local.NewSessionState(store),
		tracker: geo.NewTracker(source, cfg.Geofence(), cfg.Position.FixTimeout),
		device:  device,
		now:     func() time.Time { return time.Now().UTC() },
	}

	a.queue = syncqueueService.NewSyncQueueService(local.NewSyncQueueRepository(store), client, syncqueueService.Config{
		MaxAttempts: cfg.Queue.MaxAttempts,
		OnExhausted: func(_ context.Context, item syncqueue.Item) {
			slog.Error("Offline operation gave up after max attempts",
				"item_id", item.ID,
				"operation_type", item.OperationType,
				"device_timestamp", item.DeviceTimestamp,
				"error", item.Error,
			)
		},
	})

	probeClient := &http.Client{Timeout: 5 * time.Second}
	a.monitor = connectivity.NewMonitor(connectivity.HTTPProbe(probeClient, client.HeartbeatURL()), cfg.Queue.ProbeInterval)
	a.monitor.OnReconnect(func(ctx context.Context) {
		if _, err := a.Flush(ctx); err != nil && !errors.Is(err, syncqueue.ErrFlushInProgress) {
			slog.Error("Reconnect flush failed", "error", err)
		}
	})

	slog.Info("Agent ready",
		"employee_id", cfg.EmployeeID,
		"fingerprint", device.Fingerprint,
		"store", cfg.Queue.StorePath,
	)
	return a, nil
}

func (a *Agent) Close() error {
	return a.store.Close()
}

// Run tracks position and watches connectivity until ctx is cancelled.
func (a *Agent) Run(ctx context.Context) error {
	states, unsubscribe := a.tracker.Subscribe()
	defer unsubscribe()

	go a.tracker.Run(ctx)
	go a.monitor.Run(ctx)

	var within *bool
	for {
		select {
		case <-ctx.Done():
			return nil
		case s := <-states:
			if s.Error != "" {
				slog.Warn("Position error", "error", s.Error)
				continue
			}
			if s.HasFix && (within == nil || *within != s.IsWithinGeofence) {
				inside := s.IsWithinGeofence
				within = &inside
				slog.Info("Geofence state changed", "within", inside, "distance_m", s.DistanceFromOffice)
			}
		}
	}
}

// Locate returns a recent fix, or runs the tracker until the next fix or
// position error.
func (a *Agent) Locate(ctx context.Context) (geo.State, error) {
	if s := a.tracker.Snapshot(); s.HasFix && a.now().Sub(s.UpdatedAt) < maxFixAge {
		return s, nil
	}

	states, unsubscribe := a.tracker.Subscribe()
	defer unsubscribe()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go a.tracker.Run(ctx)

	for {
		select {
		case <-ctx.Done():
			return a.tracker.Snapshot(), ctx.Err()
		case s := <-states:
			if s.HasFix {
				return s, nil
			}
			if s.Error != "" {
				return s, fmt.Errorf("%w: %s", ErrNoPosition, s.Error)
			}
		}
	}
}

func (a *Agent) Position() geo.State {
	return a.tracker.Snapshot()
}

func (a *Agent) Online(ctx context.Context) bool {
	return a.monitor.Check(ctx)
}

func (a *Agent) ClockIn(ctx context.Context, in ClockInInput) (Outcome, error) {
	ts := a.now()
	payload := syncqueue.ClockInPayload{
		LocationType:      string(in.LocationType),
		DeviceFingerprint: &a.device.Fingerprint,
		DeviceAttributes:  &a.device.Attributes,
	}

	switch in.LocationType {
	case attendance.LocationOffice:
		if a.cfg.Branch == nil {
			return Outcome{}, ErrNoBranch
		}
		state, err := a.Locate(ctx)
		if err != nil {
			return Outcome{}, err
		}
		payload.BranchID = &a.cfg.Branch.ID
		payload.Latitude = &state.Latitude
		payload.Longitude = &state.Longitude
		payload.Accuracy = &state.Accuracy
		if !state.IsWithinGeofence {
			slog.Warn("Clocking in outside the branch geofence", "distance_m", state.DistanceFromOffice)
		}
	case attendance.LocationField:
		payload.FieldReason = &in.FieldReason
		payload.FieldDescription = &in.FieldDescription
		if state, err := a.Locate(ctx); err == nil {
			payload.Latitude = &state.Latitude
			payload.Longitude = &state.Longitude
			payload.Accuracy = &state.Accuracy
		}
	}

	ref := a.clientRef(syncqueue.OpClockIn, ts)
	direct := attendance.ClockInRequest{
		Timestamp:         ts,
		LocationType:      in.LocationType,
		BranchID:          payload.BranchID,
		Latitude:          payload.Latitude,
		Longitude:         payload.Longitude,
		Accuracy:          payload.Accuracy,
		FieldReason:       payload.FieldReason,
		FieldDescription:  payload.FieldDescription,
		DeviceFingerprint: payload.DeviceFingerprint,
		DeviceAttributes:  payload.DeviceAttributes,
		ClientRef:         &ref,
	}
	return a.record(ctx, syncqueue.OpClockIn, "/api/v1/attendance/clock-in", direct, payload, ts)
}

func (a *Agent) ClockOut(ctx context.Context) (Outcome, error) {
	ts := a.now()
	var payload syncqueue.ClockOutPayload
	if state, err := a.Locate(ctx); err == nil {
		payload.Latitude = &state.Latitude
		payload.Longitude = &state.Longitude
	}

	ref := a.clientRef(syncqueue.OpClockOut, ts)
	direct := attendance.ClockOutRequest{
		Timestamp: ts,
		Latitude:  payload.Latitude,
		Longitude: payload.Longitude,
		ClientRef: &ref,
	}
	return a.record(ctx, syncqueue.OpClockOut, "/api/v1/attendance/clock-out", direct, payload, ts)
}

// StartBreak opens a break with a device-generated id, so the queued start
// and end refer to the same break before the server has seen either.
func (a *Agent) StartBreak(ctx context.Context) (Outcome, error) {
	open, err := a.session.OpenBreak()
	if err != nil {
		return Outcome{}, err
	}
	if open != "" {
		return Outcome{}, ErrBreakOpen
	}

	ts := a.now()
	breakID := uuid.NewString()
	outcome, err := a.record(ctx, syncqueue.OpBreakStart, "/api/v1/attendance/breaks/start",
		attendance.BreakRequest{BreakID: breakID, Timestamp: ts},
		syncqueue.BreakPayload{BreakID: breakID}, ts)
	if err != nil {
		return outcome, err
	}
	return outcome, a.session.SetOpenBreak(breakID)
}

func (a *Agent) EndBreak(ctx context.Context) (Outcome, error) {
	breakID, err := a.session.OpenBreak()
	if err != nil {
		return Outcome{}, err
	}
	if breakID == "" {
		return Outcome{}, ErrNoBreakStarted
	}

	ts := a.now()
	outcome, err := a.record(ctx, syncqueue.OpBreakEnd, "/api/v1/attendance/breaks/end",
		attendance.BreakRequest{BreakID: breakID, Timestamp: ts},
		syncqueue.BreakPayload{BreakID: breakID}, ts)
	if err != nil {
		return outcome, err
	}
	return outcome, a.session.ClearOpenBreak()
}

// record submits directly when the server is reachable and the local queue is
// empty. Otherwise the operation joins the queue behind what is already there.
func (a *Agent) record(ctx context.Context, op syncqueue.OperationType, path string, direct, payload interface{}, ts time.Time) (Outcome, error) {
	online := a.monitor.Check(ctx)

	if online {
		pending, err := a.queue.PendingCount(ctx, a.cfg.EmployeeID)
		if err != nil {
			return Outcome{}, err
		}
		if pending == 0 {
			var result json.RawMessage
			err := a.client.Post(ctx, path, direct, &result)
			if err == nil {
				return Outcome{Result: result}, nil
			}
			if !IsTransient(err) {
				return Outcome{}, err
			}
			slog.Warn("Direct submit failed, queueing offline", "operation_type", op, "error", err)
		}
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return Outcome{}, err
	}
	item, err := a.queue.Enqueue(ctx, syncqueue.EnqueueRequest{
		EmployeeID:      a.cfg.EmployeeID,
		CompanyID:       a.cfg.CompanyID,
		OperationType:   op,
		Payload:         raw,
		DeviceTimestamp: ts,
	})
	if err != nil {
		return Outcome{}, err
	}
	outcome := Outcome{Queued: true, Item: &item}

	if online {
		result, err := a.Flush(ctx)
		if err == nil {
			outcome.Flushed = &result
		}
	}
	return outcome, nil
}

func (a *Agent) clientRef(op syncqueue.OperationType, ts time.Time) string {
	return syncqueue.IdempotencyKey(a.cfg.EmployeeID, op, ts)
}

// Flush replays the local queue in order.
func (a *Agent) Flush(ctx context.Context) (syncqueue.FlushResult, error) {
	return a.queue.Flush(ctx, a.cfg.EmployeeID)
}

func (a *Agent) Pending(ctx context.Context, status *syncqueue.Status) (syncqueue.ListResponse, error) {
	return a.queue.List(ctx, syncqueue.Filter{
		EmployeeID: &a.cfg.EmployeeID,
		CompanyID:  a.cfg.CompanyID,
		Status:     status,
		Page:       1,
		PageSize:   100,
	})
}

func (a *Agent) Retry(ctx context.Context, id string) (syncqueue.ItemResponse, error) {
	return a.queue.Retry(ctx, a.cfg.EmployeeID, id)
}

func (a *Agent) Clear(ctx context.Context, id string) error {
	return a.queue.Clear(ctx, a.cfg.EmployeeID, id)
}
