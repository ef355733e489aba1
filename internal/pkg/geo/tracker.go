package geo

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	ErrPermissionDenied    = errors.New("location permission denied")
	ErrPositionUnavailable = errors.New("location information unavailable")
	ErrTimeout             = errors.New("location request timed out")
)

// Position is a single fix reported by a PositionSource.
type Position struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Accuracy  float64   `json:"accuracy"`
	Timestamp time.Time `json:"timestamp"`
}

// PositionSource is a continuous position stream. Both channels are released
// when ctx is cancelled; the positions channel closing ends the stream.
type PositionSource interface {
	Watch(ctx context.Context) (<-chan Position, <-chan error)
}

// State is what the tracker exposes to callers.
type State struct {
	Latitude           float64   `json:"latitude"`
	Longitude          float64   `json:"longitude"`
	Accuracy           float64   `json:"accuracy"`
	HasFix             bool      `json:"has_fix"`
	Loading            bool      `json:"loading"`
	Error              string    `json:"error,omitempty"`
	IsWithinGeofence   bool      `json:"is_within_geofence"`
	DistanceFromOffice *float64  `json:"distance_from_office,omitempty"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// Tracker follows a PositionSource and keeps the distance to a geofence current.
type Tracker struct {
	source     PositionSource
	fixTimeout time.Duration

	mu    sync.RWMutex
	fence *Geofence
	state State
	subs  map[chan State]struct{}
}

// NewTracker creates a tracker. fence may be nil until a branch is known.
// A positive fixTimeout reports ErrTimeout when no first fix arrives in time.
func NewTracker(source PositionSource, fence *Geofence, fixTimeout time.Duration) *Tracker {
	return &Tracker{
		source:     source,
		fixTimeout: fixTimeout,
		fence:      fence,
		state:      State{Loading: true},
		subs:       make(map[chan State]struct{}),
	}
}

// Run consumes the position stream until ctx is cancelled or the stream ends.
func (t *Tracker) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	positions, errs := t.source.Watch(ctx)

	var timeout <-chan time.Time
	if t.fixTimeout > 0 {
		timer := time.NewTimer(t.fixTimeout)
		defer timer.Stop()
		timeout = timer.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case p, ok := <-positions:
			if !ok {
				return
			}
			timeout = nil
			t.update(p)
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			t.fail(err)
		case <-timeout:
			timeout = nil
			if t.Snapshot().Loading {
				t.fail(ErrTimeout)
			}
		}
	}
}

// SetGeofence swaps the reference geofence and recomputes the distance.
func (t *Tracker) SetGeofence(fence *Geofence) {
	t.mu.Lock()
	t.fence = fence
	if t.state.HasFix {
		t.applyFence()
	}
	snapshot := t.state
	t.mu.Unlock()

	t.broadcast(snapshot)
}

// Snapshot returns the current state.
func (t *Tracker) Snapshot() State {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state
}

// Subscribe registers a listener for state changes and returns a cleanup function.
func (t *Tracker) Subscribe() (<-chan State, func()) {
	t.mu.Lock()
	defer t.mu.Unlock()

	ch := make(chan State, 4)
	t.subs[ch] = struct{}{}

	cleanup := func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		if _, ok := t.subs[ch]; ok {
			delete(t.subs, ch)
			close(ch)
		}
	}
	return ch, cleanup
}

func (t *Tracker) update(p Position) {
	t.mu.Lock()
	t.state.Latitude = p.Latitude
	t.state.Longitude = p.Longitude
	t.state.Accuracy = p.Accuracy
	t.state.HasFix = true
	t.state.Loading = false
	t.state.Error = ""
	t.state.UpdatedAt = p.Timestamp
	if t.state.UpdatedAt.IsZero() {
		t.state.UpdatedAt = time.Now()
	}
	t.applyFence()
	snapshot := t.state
	t.mu.Unlock()

	t.broadcast(snapshot)
}

func (t *Tracker) fail(err error) {
	t.mu.Lock()
	t.state.Loading = false
	t.state.Error = DescribeError(err)
	snapshot := t.state
	t.mu.Unlock()

	t.broadcast(snapshot)
}

// applyFence must be called with mu held.
func (t *Tracker) applyFence() {
	if t.fence == nil {
		t.state.IsWithinGeofence = false
		t.state.DistanceFromOffice = nil
		return
	}
	within, distance := t.fence.Evaluate(t.state.Latitude, t.state.Longitude)
	t.state.IsWithinGeofence = within
	t.state.DistanceFromOffice = &distance
}

func (t *Tracker) broadcast(s State) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for ch := range t.subs {
		select {
		case ch <- s:
		default:
		}
	}
}

// DescribeError turns a position error into a message suitable for the user.
func DescribeError(err error) string {
	switch {
	case errors.Is(err, ErrPermissionDenied):
		return "Location permission denied. Allow location access to verify your office location."
	case errors.Is(err, ErrPositionUnavailable):
		return "Location information is unavailable. Check that location services are turned on."
	case errors.Is(err, ErrTimeout):
		return "Location request timed out. Move to an open area and try again."
	default:
		return "Unable to determine location: " + err.Error()
	}
}
