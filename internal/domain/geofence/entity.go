package geofence

import "time"

// Alert records an office clock-in outside the branch radius.
type Alert struct {
	ID             string
	CompanyID      string
	EmployeeID     string
	BranchID       string
	AttendanceID   *string
	Latitude       float64
	Longitude      float64
	DistanceMeters float64
	RadiusMeters   float64
	CreatedAt      time.Time
}
