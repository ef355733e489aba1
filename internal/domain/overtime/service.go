package overtime

import (
	"context"
	"time"
)

type Service interface {
	// Respond records the employee's answer to an open prompt.
	Respond(ctx context.Context, req RespondRequest) (StatusResponse, error)

	// GetStatus returns the overtime state of the employee's open session.
	GetStatus(ctx context.Context, employeeID, companyID string) (StatusResponse, error)

	// Tick prompts due sessions and declines unanswered prompts as of now.
	Tick(ctx context.Context, now time.Time) (TickResult, error)
}
