package geofence

import "context"

type AlertRepository interface {
	Create(ctx context.Context, alert Alert) (Alert, error)
	List(ctx context.Context, filter AlertFilter) ([]Alert, int64, error)
}
