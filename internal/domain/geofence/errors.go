package geofence

import "errors"

var (
	ErrOutsideAllowedRadius = errors.New("you are outside the allowed radius")
)
