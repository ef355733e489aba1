package device

import "context"

type Repository interface {
	// GetLatest returns the most recently seen device, or nil when none is known.
	GetLatest(ctx context.Context, employeeID string) (*Device, error)
	// Touch inserts the device or refreshes its last seen time.
	Touch(ctx context.Context, device Device) (Device, error)
	ListByEmployee(ctx context.Context, employeeID string) ([]Device, error)
}
