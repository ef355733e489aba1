package branch

import (
	"time"

	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/pkg/geo"
)

// Branch is an office location with its geofence and working rules.
type Branch struct {
	ID                         string
	CompanyID                  string
	Name                       string
	Address                    *string
	Latitude                   float64
	Longitude                  float64
	RadiusMeters               float64
	Timezone                   string
	WorkStartTime              *string // "15:04"
	WorkEndTime                *string // "15:04"
	GracePeriodMinutes         int
	LateChargeAmount           float64
	EarlyDepartureChargeAmount float64
	CreatedAt                  time.Time
	UpdatedAt                  time.Time
	DeletedAt                  *time.Time
}

func (b Branch) Geofence() geo.Geofence {
	return geo.Geofence{Latitude: b.Latitude, Longitude: b.Longitude, RadiusMeters: b.RadiusMeters}
}

// Location falls back to UTC when the stored timezone is unknown.
func (b Branch) Location() *time.Location {
	loc, err := time.LoadLocation(b.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// WorkStartOn returns the scheduled start on the local day of t, including the
// grace period.
func (b Branch) WorkStartOn(t time.Time) (time.Time, bool) {
	start, ok := clockOn(b.WorkStartTime, t, b.Location())
	if !ok {
		return time.Time{}, false
	}
	return start.Add(time.Duration(b.GracePeriodMinutes) * time.Minute), true
}

// WorkEndOn returns the scheduled end on the local day of t.
func (b Branch) WorkEndOn(t time.Time) (time.Time, bool) {
	return clockOn(b.WorkEndTime, t, b.Location())
}

func clockOn(clock *string, t time.Time, loc *time.Location) (time.Time, bool) {
	if clock == nil {
		return time.Time{}, false
	}
	parsed, err := time.Parse("15:04", *clock)
	if err != nil {
		return time.Time{}, false
	}
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), parsed.Hour(), parsed.Minute(), 0, 0, loc), true
}
