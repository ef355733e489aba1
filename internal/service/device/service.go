package device

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/domain/device"
	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/pkg/fingerprint"
)

type deviceServiceImpl struct {
	repo device.Repository
}

func NewDeviceService(repo device.Repository) device.Service {
	return &deviceServiceImpl{repo: repo}
}

// Check implements device.Service. Attributes win over a client supplied hash
// so every fingerprint stored on the server is computed the same way.
func (s *deviceServiceImpl) Check(ctx context.Context, req device.CheckRequest) (device.CheckResponse, error) {
	if err := req.Validate(); err != nil {
		return device.CheckResponse{}, err
	}

	current := req.Fingerprint
	var attrs fingerprint.Attributes
	if req.Attributes != nil {
		attrs = *req.Attributes
		current = fingerprint.Compute(attrs)
	}

	latest, err := s.repo.GetLatest(ctx, req.EmployeeID)
	if err != nil {
		return device.CheckResponse{}, fmt.Errorf("failed to get latest device: %w", err)
	}

	stored := ""
	if latest != nil {
		stored = latest.Fingerprint
	}
	cmp := fingerprint.Compare(current, stored)

	saved, err := s.repo.Touch(ctx, device.Device{
		EmployeeID:  req.EmployeeID,
		CompanyID:   req.CompanyID,
		Fingerprint: current,
		Attributes:  attrs,
	})
	if err != nil {
		return device.CheckResponse{}, fmt.Errorf("failed to record device: %w", err)
	}

	known, err := s.repo.ListByEmployee(ctx, req.EmployeeID)
	if err != nil {
		return device.CheckResponse{}, fmt.Errorf("failed to list devices: %w", err)
	}

	resp := device.CheckResponse{
		Fingerprint:  current,
		IsNew:        cmp.IsNew,
		Changed:      cmp.Changed,
		KnownDevices: len(known),
		FirstSeenAt:  &saved.FirstSeenAt,
	}
	if cmp.Changed {
		resp.Previous = &stored
		slog.Info("device changed", "employee_id", req.EmployeeID, "known_devices", len(known))
	}
	return resp, nil
}

func (s *deviceServiceImpl) ListDevices(ctx context.Context, employeeID string) ([]device.DeviceResponse, error) {
	devices, err := s.repo.ListByEmployee(ctx, employeeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}

	responses := make([]device.DeviceResponse, len(devices))
	for i, d := range devices {
		responses[i] = device.DeviceResponse{
			Fingerprint: d.Fingerprint,
			FirstSeenAt: d.FirstSeenAt,
			LastSeenAt:  d.LastSeenAt,
		}
	}
	return responses, nil
}
