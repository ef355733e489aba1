package escalation

import (
	"context"
	"time"
)

type RuleRepository interface {
	Create(ctx context.Context, rule Rule) (Rule, error)
	GetByID(ctx context.Context, id string, companyID string) (Rule, error)
	GetActive(ctx context.Context, companyID string, violationType ViolationType) (*Rule, error)
	List(ctx context.Context, companyID string) ([]Rule, error)
	Update(ctx context.Context, rule Rule) error
	Delete(ctx context.Context, id string, companyID string) error
}

type ChargeRepository interface {
	Create(ctx context.Context, charge Charge) (Charge, error)
	// CountSince counts charges of violationType with since <= occurred_at < before.
	CountSince(ctx context.Context, employeeID string, violationType ViolationType, since, before time.Time) (int, error)
	// LatestBefore returns the occurrence time of the newest charge before the instant, if any.
	LatestBefore(ctx context.Context, employeeID string, violationType ViolationType, before time.Time) (*time.Time, error)
	List(ctx context.Context, filter ChargeFilter) ([]Charge, int64, error)
}
