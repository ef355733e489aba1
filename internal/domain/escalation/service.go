package escalation

import "context"

type Service interface {
	// CalculateMultiplier counts prior charges inside the lookback window, adds
	// the current occurrence and returns the matching tier multiplier.
	CalculateMultiplier(ctx context.Context, req CalculateRequest) (MultiplierResponse, error)

	// AssessViolation applies the multiplier to the base amount and stores the charge.
	AssessViolation(ctx context.Context, req AssessRequest) (ChargeResponse, error)

	ListCharges(ctx context.Context, filter ChargeFilter) (ListChargesResponse, error)

	CreateRule(ctx context.Context, req CreateRuleRequest) (RuleResponse, error)
	GetRule(ctx context.Context, id string, companyID string) (RuleResponse, error)
	ListRules(ctx context.Context, companyID string) ([]RuleResponse, error)
	UpdateRule(ctx context.Context, req UpdateRuleRequest) (RuleResponse, error)
	DeleteRule(ctx context.Context, id string, companyID string) error
}
