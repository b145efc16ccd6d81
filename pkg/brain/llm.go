package brain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/agentcore/internal/logging"
	"github.com/aretw0/agentcore/pkg/domain"
	"github.com/aretw0/agentcore/pkg/observability"
	"go.opentelemetry.io/otel/attribute"
)

// LLM is a ports.Brain backed by a ChatModel.
type LLM struct {
	model   ChatModel
	system  string
	logger  *slog.Logger
	metrics *observability.Metrics
}

// Option configures an LLM.
type Option func(*LLM)

// WithLogger configures the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *LLM) {
		b.logger = logger
	}
}

// WithMetrics records plan latency on m.
func WithMetrics(m *observability.Metrics) Option {
	return func(b *LLM) {
		b.metrics = m
	}
}

// WithSystemPrompt replaces the generated system prompt.
func WithSystemPrompt(prompt string) Option {
	return func(b *LLM) {
		b.system = prompt
	}
}

// New creates a planner offering specs to model.
func New(model ChatModel, specs []domain.ToolSpec, opts ...Option) *LLM {
	b := &LLM{
		model:  model,
		system: SystemPrompt(specs),
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Plan implements ports.Brain.
func (b *LLM) Plan(ctx context.Context, task domain.Task, steps []domain.Step) (domain.Plan, error) {
	ctx, span := observability.StartSpan(ctx, "brain.Plan", attribute.Int("transcript.steps", len(steps)))
	start := time.Now()

	raw, err := b.model.Chat(ctx, Render(b.system, task, steps))
	if err != nil {
		b.metrics.Planned("error", time.Since(start))
		observability.EndSpan(span, err)
		return domain.Plan{}, fmt.Errorf("inference: %w", err)
	}
	b.logger.Debug("model responded", "elapsed", time.Since(start), "raw", Trim(raw, 200))

	plan, err := Parse(raw)
	outcome := "ok"
	var perr *domain.PlanError
	if errors.As(err, &perr) {
		outcome = "malformed"
	}
	b.metrics.Planned(outcome, time.Since(start))
	observability.EndSpan(span, err)
	return plan, err
}
