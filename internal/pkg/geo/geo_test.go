package geo

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// metersNorth returns the latitude reached by moving d meters north of the equator.
func metersNorth(d float64) float64 {
	return d / EarthRadiusMeters * 180 / math.Pi
}

func TestHaversine_IdenticalPoints(t *testing.T) {
	assert.Equal(t, 0.0, Haversine(6.5244, 3.3792, 6.5244, 3.3792))
	assert.Equal(t, 0.0, Haversine(0, 0, 0, 0))
}

func TestHaversine_OneDegreeLatitude(t *testing.T) {
	expected := EarthRadiusMeters * math.Pi / 180 // ~111,195 m

	got := Haversine(10, 20, 11, 20)

	assert.InEpsilon(t, expected, got, 0.001)
	assert.InDelta(t, 111195, got, 150)
}

func TestHaversine_Symmetric(t *testing.T) {
	a := Haversine(6.4281, 3.4219, 9.0765, 7.3986)
	b := Haversine(9.0765, 7.3986, 6.4281, 3.4219)
	assert.InDelta(t, a, b, 1e-6)
}

func TestGeofence_Membership(t *testing.T) {
	fence := Geofence{Latitude: 0, Longitude: 0, RadiusMeters: 100}

	assert.True(t, fence.Contains(metersNorth(99), 0))
	assert.False(t, fence.Contains(metersNorth(101), 0))
	assert.True(t, fence.Contains(0, 0))

	within, distance := fence.Evaluate(metersNorth(101), 0)
	assert.False(t, within)
	assert.InDelta(t, 101, distance, 0.01)
}

type chanSource struct {
	positions chan Position
	errs      chan error
	released  chan struct{}
}

func newChanSource() *chanSource {
	return &chanSource{
		positions: make(chan Position),
		errs:      make(chan error),
		released:  make(chan struct{}),
	}
}

func (s *chanSource) Watch(ctx context.Context) (<-chan Position, <-chan error) {
	go func() {
		<-ctx.Done()
		close(s.released)
	}()
	return s.positions, s.errs
}

func waitFor(t *testing.T, ch <-chan State, pred func(State) bool) State {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case s := <-ch:
			if pred(s) {
				return s
			}
		case <-deadline:
			t.Fatal("timed out waiting for tracker state")
			return State{}
		}
	}
}

func TestTracker_UpdatesGeofenceState(t *testing.T) {
	src := newChanSource()
	fence := &Geofence{Latitude: 0, Longitude: 0, RadiusMeters: 100}
	tracker := NewTracker(src, fence, 0)

	assert.True(t, tracker.Snapshot().Loading)

	updates, cleanup := tracker.Subscribe()
	defer cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		tracker.Run(ctx)
		close(done)
	}()

	src.positions <- Position{Latitude: metersNorth(50), Longitude: 0, Accuracy: 5}
	s := waitFor(t, updates, func(s State) bool { return s.HasFix })
	assert.True(t, s.IsWithinGeofence)
	assert.False(t, s.Loading)
	require.NotNil(t, s.DistanceFromOffice)
	assert.InDelta(t, 50, *s.DistanceFromOffice, 0.01)

	src.positions <- Position{Latitude: metersNorth(150), Longitude: 0, Accuracy: 5}
	s = waitFor(t, updates, func(s State) bool { return !s.IsWithinGeofence })
	assert.InDelta(t, 150, *s.DistanceFromOffice, 0.01)

	cancel()
	<-done
	select {
	case <-src.released:
	case <-time.After(time.Second):
		t.Fatal("subscription was not released on cancel")
	}
}

func TestTracker_ErrorIsNonFatal(t *testing.T) {
	src := newChanSource()
	tracker := NewTracker(src, nil, 0)
	updates, cleanup := tracker.Subscribe()
	defer cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go tracker.Run(ctx)

	src.errs <- ErrPermissionDenied
	s := waitFor(t, updates, func(s State) bool { return s.Error != "" })
	assert.Contains(t, s.Error, "permission denied")
	assert.False(t, s.Loading)

	// A later fix clears the error.
	src.positions <- Position{Latitude: 1, Longitude: 1}
	s = waitFor(t, updates, func(s State) bool { return s.HasFix })
	assert.Empty(t, s.Error)
	assert.Nil(t, s.DistanceFromOffice)
}

func TestTracker_FixTimeout(t *testing.T) {
	src := newChanSource()
	tracker := NewTracker(src, nil, 20*time.Millisecond)
	updates, cleanup := tracker.Subscribe()
	defer cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go tracker.Run(ctx)

	s := waitFor(t, updates, func(s State) bool { return s.Error != "" })
	assert.Contains(t, s.Error, "timed out")
}

func TestTracker_SetGeofenceRecomputes(t *testing.T) {
	src := newChanSource()
	tracker := NewTracker(src, nil, 0)
	updates, cleanup := tracker.Subscribe()
	defer cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go tracker.Run(ctx)

	src.positions <- Position{Latitude: metersNorth(80), Longitude: 0}
	waitFor(t, updates, func(s State) bool { return s.HasFix })

	tracker.SetGeofence(&Geofence{RadiusMeters: 100})
	s := waitFor(t, updates, func(s State) bool { return s.DistanceFromOffice != nil })
	assert.True(t, s.IsWithinGeofence)
}
