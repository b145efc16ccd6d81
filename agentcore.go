package agentcore

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"

	"github.com/aretw0/agentcore/internal/config"
	"github.com/aretw0/agentcore/internal/logging"
	"github.com/aretw0/agentcore/pkg/adapters/llm"
	"github.com/aretw0/agentcore/pkg/brain"
	"github.com/aretw0/agentcore/pkg/domain"
	"github.com/aretw0/agentcore/pkg/guardrail"
	"github.com/aretw0/agentcore/pkg/observability"
	"github.com/aretw0/agentcore/pkg/ports"
	"github.com/aretw0/agentcore/pkg/registry"
	"github.com/aretw0/agentcore/pkg/session"
	"github.com/aretw0/agentcore/pkg/toolbox"
)

// Version is the release of this module.
//
//go:embed VERSION
var Version string

// Agent builds sessions from a configuration. It is safe for concurrent use:
// every session gets its own tools and transcript, and they share the model,
// the policy and the browser lock.
type Agent struct {
	cfg     *config.Config
	model   brain.ChatModel
	policy  *guardrail.Holder
	locker  ports.DistributedLocker
	metrics *observability.Metrics
	logger  *slog.Logger
}

// Option configures an Agent.
type Option func(*Agent)

// WithLogger configures the logger handed to every component.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Agent) {
		a.logger = logger
	}
}

// WithMetrics records sessions, verdicts and tool calls on m.
func WithMetrics(m *observability.Metrics) Option {
	return func(a *Agent) {
		a.metrics = m
	}
}

// WithChatModel replaces the backend selected by the llm section.
func WithChatModel(m brain.ChatModel) Option {
	return func(a *Agent) {
		a.model = m
	}
}

// WithPolicy serves decisions from h instead of the compiled guardrail section.
func WithPolicy(h *guardrail.Holder) Option {
	return func(a *Agent) {
		a.policy = h
	}
}

// WithLocker sets the lock that keeps two sessions off one browser endpoint.
func WithLocker(l ports.DistributedLocker) Option {
	return func(a *Agent) {
		a.locker = l
	}
}

// New creates an Agent from cfg.
func New(cfg *config.Config, opts ...Option) (*Agent, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	a := &Agent{cfg: cfg, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(a)
	}

	if a.policy == nil {
		p, err := cfg.Policy()
		if err != nil {
			return nil, fmt.Errorf("compile guardrail: %w", err)
		}
		a.policy = guardrail.NewHolder(p, guardrail.WithLogger(a.logger))
	}

	if a.model == nil {
		m, err := llm.New(llm.Config{
			Provider:    cfg.LLM.Provider,
			Host:        cfg.LLM.Host,
			Model:       cfg.LLM.Model,
			Temperature: cfg.LLM.Temperature,
			APIKey:      cfg.LLM.APIKey,
			BaseURL:     cfg.LLM.BaseURL,
			MaxTokens:   cfg.LLM.MaxTokens,
		})
		if err != nil {
			return nil, err
		}
		a.model = m
	}
	return a, nil
}

// Policy returns the live guardrail, for reloads and previews.
func (a *Agent) Policy() *guardrail.Holder {
	return a.policy
}

// Tools builds a fresh registry holding every configured capability.
// The caller owns it and must Close it.
func (a *Agent) Tools() (*registry.Registry, error) {
	reg := registry.NewRegistry(
		registry.WithLogger(a.logger),
		registry.WithMetrics(a.metrics),
		registry.WithDefaultTimeout(a.cfg.Tools.Timeout.Std()),
	)
	if err := toolbox.NewFS(a.cfg.Tools.WorkDir).Register(reg); err != nil {
		return nil, err
	}
	if err := toolbox.NewCommands(a.cfg.Tools.WorkDir, a.cfg.Tools.Commands).Register(reg); err != nil {
		return nil, err
	}
	if a.cfg.Tools.Browser {
		opts := []toolbox.BrowserOption{toolbox.WithBrowserLogger(a.logger)}
		if a.locker != nil {
			opts = append(opts, toolbox.WithLocker(a.locker))
		}
		if err := toolbox.NewBrowser(opts...).Register(reg); err != nil {
			reg.Close()
			return nil, err
		}
	}
	return reg, nil
}

// Specs lists the configured capabilities.
func (a *Agent) Specs() ([]domain.ToolSpec, error) {
	reg, err := a.Tools()
	if err != nil {
		return nil, err
	}
	defer reg.Close()
	return reg.Specs(), nil
}

// NewSession creates an idle session that reports to sink.
// It has the signature of channel.Factory.
func (a *Agent) NewSession(ctx context.Context, sink ports.EventSink) (*session.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	reg, err := a.Tools()
	if err != nil {
		return nil, fmt.Errorf("build tools: %w", err)
	}
	b := brain.New(a.model, reg.Specs(),
		brain.WithLogger(a.logger),
		brain.WithMetrics(a.metrics),
	)
	s := session.New(b, reg, a.policy, sink,
		session.WithLogger(a.logger),
		session.WithMetrics(a.metrics),
		session.WithMaxFailures(a.cfg.Session.MaxConsecutiveFailures),
		session.WithStopGrace(a.cfg.Session.StopGrace.Std()),
	)
	a.logger.Debug("Session created", "session_id", s.ID(), "tools", len(reg.Specs()))
	return s, nil
}
