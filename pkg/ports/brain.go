package ports

import (
	"context"

	"github.com/aretw0/agentcore/pkg/domain"
)

// Brain is the planning component.
type Brain interface {
	// Plan returns the next step for the task given the transcript so far.
	// It must return promptly once ctx is cancelled.
	// Output that cannot be turned into a step is reported as *domain.PlanError.
	Plan(ctx context.Context, task domain.Task, steps []domain.Step) (domain.Plan, error)
}
