package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/agentcore/internal/logging"
	"github.com/aretw0/agentcore/pkg/domain"
	"github.com/aretw0/agentcore/pkg/observability"
	"github.com/aretw0/agentcore/pkg/ports"
	"github.com/aretw0/agentcore/pkg/registry"
	"github.com/google/uuid"
)

const (
	msgStarted   = "Task started."
	msgCompleted = "Task completed."
	msgStopping  = "Stopping..."
	msgStopped   = "Agent stopped by user."
	msgCancelled = "Session cancelled."
)

// errHalted reports that the session left RUNNING while the loop was busy.
var errHalted = errors.New("session is no longer running")

// Tools is the capability layer a session drives.
type Tools interface {
	Resolve(name string) (*registry.Capability, error)
	Validate(c *registry.Capability, params map[string]any) error
	Invoke(ctx context.Context, c *registry.Capability, req domain.ActionRequest) domain.Observation
	Close() error
}

// Policy decides whether a request may run. It is consulted for every
// request, so a reloaded policy applies from the next decision on.
type Policy interface {
	Evaluate(req domain.ActionRequest) domain.Decision
}

// PolicyFunc adapts a function to Policy.
type PolicyFunc func(req domain.ActionRequest) domain.Decision

func (f PolicyFunc) Evaluate(req domain.ActionRequest) domain.Decision {
	return f(req)
}

// Session is the state machine for one task. Create one per connection.
type Session struct {
	id          string
	brain       ports.Brain
	tools       Tools
	policy      Policy
	sink        ports.EventSink
	logger      *slog.Logger
	metrics     *observability.Metrics
	maxFailures int
	stopGrace   time.Duration

	mu           sync.Mutex
	state        domain.SessionState
	seq          uint64
	task         domain.Task
	transcript   *domain.Transcript
	emitCtx      context.Context
	cancelRun    context.CancelFunc
	stopped      bool // Stop was accepted
	transportErr error
	resume       chan struct{}
}

// New creates an IDLE session.
func New(brain ports.Brain, tools Tools, policy Policy, sink ports.EventSink, opts ...Option) *Session {
	s := &Session{
		id:          uuid.NewString(),
		brain:       brain,
		tools:       tools,
		policy:      policy,
		sink:        sink,
		logger:      logging.NewNop(),
		maxFailures: DefaultMaxFailures,
		stopGrace:   DefaultStopGrace,
		state:       domain.StateIdle,
		transcript:  domain.NewTranscript(),
		emitCtx:     context.Background(),
		cancelRun:   func() {},
		resume:      make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("session_id", s.id)
	return s
}

// ID returns the session identifier carried by every event.
func (s *Session) ID() string {
	return s.id
}

// State returns the current state.
func (s *Session) State() domain.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Transcript returns a copy of the steps so far.
func (s *Session) Transcript() []domain.Step {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transcript.Steps()
}

// Task returns a copy of the task, follow-ups included.
func (s *Session) Task() domain.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.task.Clone()
}

// Close releases the session's tools.
func (s *Session) Close() error {
	return s.tools.Close()
}

// Run accepts the task and drives the loop until a terminal state.
// It returns nil for COMPLETED and STOPPED, and an error for FAILED.
// Cancelling ctx stops the session; events are still delivered while it winds down.
func (s *Session) Run(ctx context.Context, instruction string) error {
	s.mu.Lock()
	if s.state.IsTerminal() {
		s.mu.Unlock()
		return domain.ErrSessionClosed
	}
	if s.state != domain.StateIdle {
		s.mu.Unlock()
		return fmt.Errorf("%w: session already running", domain.ErrCommandRejected)
	}
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.emitCtx = context.WithoutCancel(ctx)
	s.cancelRun = cancel
	s.task = domain.Task{Instruction: instruction}
	err := s.transitionLocked(domain.StateRunning, msgStarted)
	s.mu.Unlock()

	s.metrics.SessionStarted()
	s.logger.Info("session started", "task", instruction)
	if err != nil {
		return s.halt(err)
	}
	return s.halt(s.loop(runCtx))
}

// Stop cancels the task. From IDLE the session goes straight to STOPPED.
// From RUNNING or AWAITING_CONFIRMATION it enters STOPPING and the loop
// finishes in STOPPED once the in-flight call returns or the grace period ends.
// In any other state it is a no-op.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case domain.StateIdle:
		s.stopped = true
		_ = s.transitionLocked(domain.StateStopped, msgStopped)
	case domain.StateRunning, domain.StateAwaitingConfirmation:
		s.stopped = true
		_ = s.transitionLocked(domain.StateStopping, msgStopping)
		s.cancelRun()
	}
}

// Resume approves the pending request. It returns false, and changes
// nothing, unless the session is AWAITING_CONFIRMATION.
func (s *Session) Resume() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != domain.StateAwaitingConfirmation {
		return false
	}
	_ = s.transitionLocked(domain.StateRunning, "Resuming after confirmation.")
	select {
	case s.resume <- struct{}{}:
	default:
	}
	return true
}

// FollowUp appends text to the task. It is accepted only while RUNNING; while
// awaiting confirmation it is rejected with an error event.
func (s *Session) FollowUp(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.state.IsTerminal():
		return domain.ErrSessionClosed
	case s.state == domain.StateAwaitingConfirmation:
		_ = s.emitLocked(domain.ErrorEvent("Awaiting confirmation: send 'resume' to approve or 'stop' to cancel."))
		return fmt.Errorf("%w: awaiting confirmation", domain.ErrCommandRejected)
	case s.state != domain.StateRunning:
		return fmt.Errorf("%w: session is %s", domain.ErrCommandRejected, s.state)
	}
	s.task.FollowUps = append(s.task.FollowUps, domain.FollowUp{Text: text, At: s.transcript.Len()})
	s.logger.Debug("follow-up accepted", "at", s.transcript.Len())
	return nil
}

// emitLocked stamps and delivers e. A delivery failure is a transport fault:
// it cancels the run and every later emit fails with the same error.
func (s *Session) emitLocked(e domain.Event) error {
	if s.transportErr != nil {
		return s.transportErr
	}
	s.seq++
	e.SessionID, e.Seq = s.id, s.seq
	if err := s.sink.Emit(s.emitCtx, e); err != nil {
		s.transportErr = fmt.Errorf("emit event: %w", err)
		s.cancelRun()
		return s.transportErr
	}
	return nil
}

func (s *Session) transitionLocked(to domain.SessionState, message string) error {
	from := s.state
	s.state = to
	s.metrics.Transition(to)
	s.logger.Debug("state transition", "from", from, "to", to)
	return s.emitLocked(domain.StatusEvent(message, to))
}

// appendLocked appends step and emits its event. It refuses once the session
// has left RUNNING, so nothing is recorded after a stop is accepted.
func (s *Session) appendLocked(step domain.Step, e domain.Event) error {
	if s.state != domain.StateRunning {
		return errHalted
	}
	if err := s.transcript.Append(step); err != nil {
		return err
	}
	return s.emitLocked(e)
}

func (s *Session) append(step domain.Step, e domain.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appendLocked(step, e)
}

// halt moves the session to its terminal state after the loop returns with err.
func (s *Session) halt(err error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.IsTerminal() {
		if s.state == domain.StateFailed {
			return err
		}
		return nil
	}

	if s.transportErr != nil {
		s.state = domain.StateFailed
		s.metrics.Transition(domain.StateFailed)
		s.logger.Warn("session failed", "err", s.transportErr)
		return s.transportErr
	}
	if s.stopped || errors.Is(err, errHalted) || errors.Is(err, context.Canceled) {
		msg := msgStopped
		if !s.stopped {
			msg = msgCancelled
		}
		if e := s.transitionLocked(domain.StateStopped, msg); e != nil {
			s.state = domain.StateFailed
			return e
		}
		s.logger.Info("session stopped")
		return nil
	}
	if err != nil {
		_ = s.emitLocked(domain.ErrorEvent(err.Error()))
		_ = s.transitionLocked(domain.StateFailed, "Task failed.")
		s.logger.Warn("session failed", "err", err)
		return err
	}
	return nil
}

// await runs fn and waits for it. When ctx is cancelled it waits at most the
// stop grace period more and reports false; fn's result must then be discarded.
func (s *Session) await(ctx context.Context, fn func(ctx context.Context)) bool {
	done := make(chan struct{})
	go func() {
		defer close(done)
		fn(ctx)
	}()
	select {
	case <-done:
		return ctx.Err() == nil
	case <-ctx.Done():
	}
	timer := time.NewTimer(s.stopGrace)
	defer timer.Stop()
	select {
	case <-done:
	case <-timer.C:
		s.logger.Warn("in-flight call ignored cancellation; abandoning it", "grace", s.stopGrace)
	}
	return false
}

func (s *Session) loop(ctx context.Context) error {
	failures := 0
	fault := func(kind string) error {
		failures++
		s.metrics.PlanningFault(kind)
		if failures >= s.maxFailures {
			return fmt.Errorf("too many consecutive planning failures (%d)", failures)
		}
		return nil
	}

	for {
		if ctx.Err() != nil {
			return errHalted
		}

		s.mu.Lock()
		task, steps := s.task.Clone(), s.transcript.Steps()
		s.mu.Unlock()

		var (
			plan domain.Plan
			err  error
		)
		start := time.Now()
		if !s.await(ctx, func(ctx context.Context) { plan, err = s.brain.Plan(ctx, task, steps) }) {
			return errHalted
		}
		s.logger.Debug("planned", "elapsed", time.Since(start), "err", err)

		if err != nil {
			var perr *domain.PlanError
			if errors.As(err, &perr) {
				req := domain.ActionRequest{Tool: perr.Action, Raw: perr.Raw}
				if e := s.reject(req, err.Error()); e != nil {
					return e
				}
				if e := fault("malformed"); e != nil {
					return e
				}
				continue
			}
			if e := s.emit(domain.ErrorEvent("Planning failed: " + err.Error())); e != nil {
				return e
			}
			if e := fault("inference"); e != nil {
				return e
			}
			continue
		}

		if plan.Thought != "" {
			if err := s.append(domain.ThoughtStep(plan.Thought), domain.ThoughtEvent(plan.Thought)); err != nil {
				return err
			}
		}

		if plan.Final != nil {
			return s.complete(plan.Final.Text)
		}
		if plan.Action == nil {
			if e := s.reject(domain.ActionRequest{Raw: plan.Raw}, "malformed plan: no action"); e != nil {
				return e
			}
			if e := fault("malformed"); e != nil {
				return e
			}
			continue
		}

		req := *plan.Action
		if req.ID == "" {
			req.ID = uuid.NewString()
		}
		c, err := s.tools.Resolve(req.Tool)
		if err == nil {
			err = s.tools.Validate(c, req.Params)
		}
		if err != nil {
			kind := "invalid_params"
			if errors.Is(err, domain.ErrToolNotFound) {
				kind = "unknown_tool"
			}
			if e := s.reject(req, err.Error()); e != nil {
				return e
			}
			if e := fault(kind); e != nil {
				return e
			}
			continue
		}
		failures = 0

		req.Risk = c.Spec.Risk
		if err := s.append(domain.ActionStep(req), domain.ActionEvent(req.Tool, req.Params)); err != nil {
			return err
		}
		if err := s.act(ctx, c, req); err != nil {
			return err
		}
	}
}

// act applies the guardrail to req and records the outcome.
func (s *Session) act(ctx context.Context, c *registry.Capability, req domain.ActionRequest) error {
	d := s.policy.Evaluate(req)
	s.metrics.Verdict(req.Tool, d)
	s.logger.Info("guardrail decision", "tool", req.Tool, "decision", d.String())

	if d.Verdict == domain.VerdictConfirm {
		if err := s.pause(ctx, req, d); err != nil {
			return err
		}
		// Re-evaluated after resume: the policy or the file system may have changed.
		d = s.policy.Evaluate(req).Confirmed()
		s.metrics.Verdict(req.Tool, d)
		s.logger.Info("guardrail decision after confirmation", "tool", req.Tool, "decision", d.String())
	}

	switch d.Verdict {
	case domain.VerdictAllow:
		return s.invoke(ctx, c, req)
	case domain.VerdictDeny:
		obs := domain.Observation{ActionID: req.ID, Tool: req.Tool, Output: "denied: " + d.Reason, IsError: true, Denied: true}
		return s.append(domain.ObservationStep(obs), domain.ResultEvent(obs))
	}
	return fmt.Errorf("unexpected verdict %q", d.Verdict)
}

// pause enters AWAITING_CONFIRMATION and blocks until Resume or Stop.
func (s *Session) pause(ctx context.Context, req domain.ActionRequest, d domain.Decision) error {
	s.mu.Lock()
	if s.state != domain.StateRunning {
		s.mu.Unlock()
		return errHalted
	}
	s.state = domain.StateAwaitingConfirmation
	s.metrics.Transition(domain.StateAwaitingConfirmation)
	msg := fmt.Sprintf("Confirmation required for %s: %s. Send 'resume' to proceed or 'stop' to cancel.", req.Tool, d.Reason)
	err := s.emitLocked(domain.PauseEvent(msg, req))
	s.mu.Unlock()
	if err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		return errHalted
	case <-s.resume:
	}
	if ctx.Err() != nil {
		return errHalted
	}
	return nil
}

func (s *Session) invoke(ctx context.Context, c *registry.Capability, req domain.ActionRequest) error {
	if ctx.Err() != nil {
		return errHalted
	}
	var obs domain.Observation
	if !s.await(ctx, func(ctx context.Context) { obs = s.tools.Invoke(ctx, c, req) }) {
		return errHalted
	}
	return s.append(domain.ObservationStep(obs), domain.ResultEvent(obs))
}

// reject records a request that cannot run: a malformed action step followed
// by an error observation the Brain sees on its next round.
func (s *Session) reject(req domain.ActionRequest, reason string) error {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	req.Malformed = reason
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.appendLocked(domain.ActionStep(req), domain.ErrorEvent("Invalid action: "+reason)); err != nil {
		return err
	}
	obs := domain.Observation{ActionID: req.ID, Tool: req.Tool, Output: "error: " + reason, IsError: true}
	return s.appendLocked(domain.ObservationStep(obs), domain.ResultEvent(obs))
}

func (s *Session) complete(answer string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.appendLocked(domain.FinalStep(answer), domain.ActionEvent(domain.FinishAction, map[string]any{"reason": answer})); err != nil {
		return err
	}
	if err := s.transitionLocked(domain.StateCompleted, msgCompleted); err != nil {
		return err
	}
	s.logger.Info("session completed")
	return nil
}

func (s *Session) emit(e domain.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != domain.StateRunning {
		return errHalted
	}
	return s.emitLocked(e)
}

// ReportError emits an error event on the session's stream, for input the
// transport rejected before it reached a command. Terminal sessions ignore it.
func (s *Session) ReportError(message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.IsTerminal() {
		return domain.ErrSessionClosed
	}
	return s.emitLocked(domain.ErrorEvent(message))
}
