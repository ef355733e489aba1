package geofence

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/domain/geofence"
	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/domain/master/branch"
	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/domain/notification"
	notificationService "github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/service/notification"
)

type geofenceServiceImpl struct {
	branchRepo branch.BranchRepository
	alertRepo  geofence.AlertRepository
	notifier   *notificationService.Notifier
	enforce    bool
}

// NewGeofenceService creates the geofence policy. With enforce off an office
// clock-in outside the radius is accepted and raises an alert instead.
func NewGeofenceService(
	branchRepo branch.BranchRepository,
	alertRepo geofence.AlertRepository,
	notifier *notificationService.Notifier,
	enforce bool,
) geofence.Service {
	return &geofenceServiceImpl{
		branchRepo: branchRepo,
		alertRepo:  alertRepo,
		notifier:   notifier,
		enforce:    enforce,
	}
}

func (s *geofenceServiceImpl) Check(ctx context.Context, req geofence.CheckRequest) (geofence.CheckResponse, error) {
	if err := req.Validate(); err != nil {
		return geofence.CheckResponse{}, err
	}

	b, err := s.branchRepo.GetByID(ctx, req.BranchID, req.CompanyID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || errors.Is(err, branch.ErrBranchNotFound) {
			return geofence.CheckResponse{}, branch.ErrBranchNotFound
		}
		return geofence.CheckResponse{}, fmt.Errorf("failed to get branch: %w", err)
	}

	within, distance := b.Geofence().Evaluate(req.Latitude, req.Longitude)
	return geofence.CheckResponse{
		BranchID:           b.ID,
		IsWithinGeofence:   within,
		DistanceFromOffice: distance,
		RadiusMeters:       b.RadiusMeters,
		Enforced:           s.enforce,
	}, nil
}

func (s *geofenceServiceImpl) Evaluate(b branch.Branch, lat, lon float64) (geofence.Evaluation, error) {
	within, distance := b.Geofence().Evaluate(lat, lon)
	ev := geofence.Evaluation{Within: within, Distance: distance, Radius: b.RadiusMeters}
	if !within && s.enforce {
		return ev, geofence.ErrOutsideAllowedRadius
	}
	return ev, nil
}

func (s *geofenceServiceImpl) RecordAlert(ctx context.Context, alert geofence.Alert) (geofence.Alert, error) {
	created, err := s.alertRepo.Create(ctx, alert)
	if err != nil {
		return geofence.Alert{}, err
	}

	slog.Warn("clock-in outside geofence",
		"employee_id", created.EmployeeID,
		"branch_id", created.BranchID,
		"distance_meters", created.DistanceMeters,
		"radius_meters", created.RadiusMeters,
	)
	return created, nil
}

func (s *geofenceServiceImpl) NotifyAlert(ctx context.Context, created geofence.Alert) {
	data := map[string]interface{}{
		"alert_id":        created.ID,
		"employee_id":     created.EmployeeID,
		"branch_id":       created.BranchID,
		"distance_meters": created.DistanceMeters,
	}
	if created.AttendanceID != nil {
		data["attendance_id"] = *created.AttendanceID
	}
	s.notifier.Managers(ctx, created.CompanyID, created.EmployeeID, notificationService.Message{
		Type:    notification.TypeGeofenceViolation,
		Title:   "Clock-in outside office radius",
		Message: fmt.Sprintf("An office clock-in was recorded %.0f m from the branch (radius %.0f m)", created.DistanceMeters, created.RadiusMeters),
		Data:    data,
	})
}

func (s *geofenceServiceImpl) ListAlerts(ctx context.Context, filter geofence.AlertFilter) (geofence.ListAlertsResponse, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 || filter.PageSize > 100 {
		filter.PageSize = 20
	}

	alerts, total, err := s.alertRepo.List(ctx, filter)
	if err != nil {
		return geofence.ListAlertsResponse{}, fmt.Errorf("failed to list geofence alerts: %w", err)
	}

	responses := make([]geofence.AlertResponse, len(alerts))
	for i, a := range alerts {
		responses[i] = geofence.AlertResponse{
			ID:             a.ID,
			EmployeeID:     a.EmployeeID,
			BranchID:       a.BranchID,
			AttendanceID:   a.AttendanceID,
			Latitude:       a.Latitude,
			Longitude:      a.Longitude,
			DistanceMeters: a.DistanceMeters,
			RadiusMeters:   a.RadiusMeters,
			CreatedAt:      a.CreatedAt,
		}
	}

	return geofence.ListAlertsResponse{
		Alerts:     responses,
		TotalCount: total,
		Page:       filter.Page,
		PageSize:   filter.PageSize,
	}, nil
}
