package geofence

import (
	"context"

	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/domain/master/branch"
)

// Evaluation is the outcome of checking a position against a branch.
type Evaluation struct {
	Within   bool
	Distance float64
	Radius   float64
}

type Service interface {
	// Check evaluates a reported position against a branch without side effects.
	Check(ctx context.Context, req CheckRequest) (CheckResponse, error)

	// Evaluate applies the enforcement policy to an office clock-in. When the
	// position is outside the radius it returns ErrOutsideAllowedRadius if
	// enforcement is on, otherwise the evaluation with a nil error.
	Evaluate(b branch.Branch, lat, lon float64) (Evaluation, error)

	// RecordAlert stores an alert. Callers inside a transaction notify
	// managers with NotifyAlert once it commits.
	RecordAlert(ctx context.Context, alert Alert) (Alert, error)

	// NotifyAlert tells the company's managers about a stored alert.
	NotifyAlert(ctx context.Context, alert Alert)

	ListAlerts(ctx context.Context, filter AlertFilter) (ListAlertsResponse, error)
}
