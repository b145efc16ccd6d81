package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/agentcore/internal/logging"
	"github.com/aretw0/agentcore/pkg/domain"
	"github.com/aretw0/agentcore/pkg/observability"
	"github.com/getkin/kin-openapi/openapi3"
	"go.opentelemetry.io/otel/attribute"
)

// DefaultTimeout bounds a tool call whose spec declares no timeout.
const DefaultTimeout = 30 * time.Second

// ToolFunction defines the signature for a tool implementation.
// It receives a context and a map of arguments, and returns a result or error.
// Implementations must stop their side effect when ctx is cancelled.
type ToolFunction func(ctx context.Context, args map[string]any) (any, error)

// Capability is a registered tool: its spec, its compiled parameter schema and
// its implementation.
type Capability struct {
	Spec   domain.ToolSpec
	Schema *openapi3.Schema
	fn     ToolFunction
}

// Registry manages the available tools.
type Registry struct {
	mu      sync.RWMutex
	tools   map[string]*Capability
	order   []string
	closers []io.Closer

	timeout time.Duration
	logger  *slog.Logger
	metrics *observability.Metrics
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger configures the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

// WithMetrics records tool calls on m.
func WithMetrics(m *observability.Metrics) Option {
	return func(r *Registry) {
		r.metrics = m
	}
}

// WithDefaultTimeout sets the timeout for tools whose spec declares none.
func WithDefaultTimeout(d time.Duration) Option {
	return func(r *Registry) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// NewRegistry creates a new empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		tools:   make(map[string]*Capability),
		timeout: DefaultTimeout,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a tool to the registry.
// Duplicate names and invalid specs are rejected. A blank risk class is
// registered as sensitive.
func (r *Registry) Register(spec domain.ToolSpec, fn ToolFunction) error {
	if fn == nil {
		return fmt.Errorf("register %q: nil function", spec.Name)
	}
	if spec.Risk == "" {
		spec.Risk = domain.RiskSensitive
	}
	schema, err := buildSchema(spec)
	if err != nil {
		return fmt.Errorf("register %q: %w", spec.Name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[spec.Name]; exists {
		return fmt.Errorf("register %q: tool already registered", spec.Name)
	}
	r.tools[spec.Name] = &Capability{Spec: spec, Schema: schema, fn: fn}
	r.order = append(r.order, spec.Name)
	return nil
}

// AddCloser registers a resource released by Close.
func (r *Registry) AddCloser(c io.Closer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closers = append(r.closers, c)
}

// Resolve looks up a capability by name.
func (r *Registry) Resolve(name string) (*Capability, error) {
	r.mu.RLock()
	c, ok := r.tools[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrToolNotFound, name)
	}
	return c, nil
}

// Validate checks params against the capability's contract.
func (r *Registry) Validate(c *Capability, params map[string]any) error {
	doc, err := jsonValue(params)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidParams, err)
	}
	if err := c.Schema.VisitJSON(doc); err != nil {
		return fmt.Errorf("%w: %s", domain.ErrInvalidParams, schemaMessage(err))
	}
	return nil
}

// Invoke executes the capability. It never fails: errors, panics and timeouts
// become an Observation with IsError set. On timeout the call's context is
// cancelled so the tool can abort its side effect.
func (r *Registry) Invoke(ctx context.Context, c *Capability, req domain.ActionRequest) domain.Observation {
	obs := domain.Observation{ActionID: req.ID, Tool: c.Spec.Name}

	timeout := c.Spec.Timeout
	if timeout <= 0 {
		timeout = r.timeout
	}
	ctx, span := observability.StartSpan(ctx, "registry.Invoke",
		attribute.String("tool.name", c.Spec.Name),
		attribute.String("tool.risk", string(c.Spec.Risk)),
	)
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		value any
		err   error
	}
	done := make(chan result, 1)
	start := time.Now()
	go func() {
		defer func() {
			if p := recover(); p != nil {
				r.logger.Error("tool panicked", "tool", c.Spec.Name, "panic", p, "stack", string(debug.Stack()))
				done <- result{err: fmt.Errorf("tool panicked: %v", p)}
			}
		}()
		v, err := c.fn(callCtx, req.Params)
		done <- result{value: v, err: err}
	}()

	var res result
	status := "ok"
	select {
	case res = <-done:
	case <-callCtx.Done():
		// The tool may still be running; the deferred cancel is its signal to stop.
	}
	if err := callCtx.Err(); err != nil && (res.err != nil || res.value == nil) {
		if errors.Is(err, context.DeadlineExceeded) {
			status = "timeout"
			res.err = fmt.Errorf("tool timed out after %s", timeout)
		} else {
			status = "cancelled"
			res.err = fmt.Errorf("tool cancelled: %w", err)
		}
	}
	elapsed := time.Since(start)

	if res.err != nil {
		if status == "ok" {
			status = "error"
		}
		obs.IsError = true
		obs.Output = "error: " + res.err.Error()
		r.logger.Debug("tool failed", "tool", c.Spec.Name, "err", res.err, "elapsed", elapsed)
	} else {
		obs.Output = Stringify(res.value)
	}
	r.metrics.ToolCall(c.Spec.Name, status, elapsed)
	observability.EndSpan(span, res.err)
	return obs
}

// Specs returns the registered specs in registration order.
func (r *Registry) Specs() []domain.ToolSpec {
	r.mu.RLock()
	defer r.mu.RUnlock()
	specs := make([]domain.ToolSpec, 0, len(r.order))
	for _, name := range r.order {
		specs = append(specs, r.tools[name].Spec)
	}
	return specs
}

// Close releases resources registered with AddCloser, in reverse order.
func (r *Registry) Close() error {
	r.mu.Lock()
	closers := r.closers
	r.closers = nil
	r.mu.Unlock()

	var errs []error
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Stringify renders a tool result as observation text.
func Stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []byte:
		return string(val)
	case fmt.Stringer:
		return val.String()
	case []string:
		return strings.Join(val, "\n")
	case error:
		return val.Error()
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}

// jsonValue converts params to the plain JSON value model (float64 numbers,
// []any, map[string]any) the schema validator works on.
func jsonValue(params map[string]any) (any, error) {
	if params == nil {
		return map[string]any{}, nil
	}
	data, err := json.Marshal(params)
	if err != nil {
		return nil, err
	}
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func schemaMessage(err error) string {
	var se *openapi3.SchemaError
	if errors.As(err, &se) {
		if path := se.JSONPointer(); len(path) > 0 {
			return fmt.Sprintf("%s: %s", strings.Join(path, "."), se.Reason)
		}
		return se.Reason
	}
	return err.Error()
}
