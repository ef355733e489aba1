package device

import "context"

type Service interface {
	// Check compares the presented fingerprint with the last one seen for the
	// employee and records it.
	Check(ctx context.Context, req CheckRequest) (CheckResponse, error)
	ListDevices(ctx context.Context, employeeID string) ([]DeviceResponse, error)
}
