package channel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/aretw0/agentcore/internal/logging"
	"github.com/aretw0/agentcore/pkg/domain"
	"github.com/aretw0/agentcore/pkg/ports"
	"github.com/aretw0/agentcore/pkg/runner"
	"github.com/aretw0/agentcore/pkg/session"
	"golang.org/x/sync/errgroup"
)

const (
	CommandStop   = "stop"
	CommandResume = "resume"
)

// ErrEmptyTask is returned when the first message carries no instruction.
var ErrEmptyTask = errors.New("empty task")

// Conn is one client connection.
// Receive must return once ctx is done or the Conn is closed.
type Conn interface {
	Receive(ctx context.Context) (string, error)
	Send(ctx context.Context, event domain.Event) error
	Close() error
}

// Factory builds the session for one connection. The session must emit to sink.
type Factory func(ctx context.Context, sink ports.EventSink) (*session.Session, error)

// Option configures Serve.
type Option func(*config)

type config struct {
	logger    *slog.Logger
	sanitize  func(string) (string, error)
	observers []ports.EventSink
}

// WithLogger configures the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithSanitizer replaces the inbound text filter. Defaults to runner.SanitizeInput.
func WithSanitizer(fn func(string) (string, error)) Option {
	return func(c *config) {
		c.sanitize = fn
	}
}

// WithObservers copies every event to the given sinks after the connection
// has accepted it. Observer failures are logged and never end the session.
func WithObservers(sinks ...ports.EventSink) Option {
	return func(c *config) {
		c.observers = append(c.observers, sinks...)
	}
}

// Serve runs one task over conn and closes it when the session ends.
// It returns nil when the task completed or was stopped, including a stop
// sent before any task, the session's error when it failed, and the receive
// error when the connection ended before a task arrived.
func Serve(ctx context.Context, conn Conn, factory Factory, opts ...Option) error {
	cfg := config{logger: logging.NewNop(), sanitize: runner.SanitizeInput}
	for _, opt := range opts {
		opt(&cfg)
	}
	conn = &onceConn{Conn: conn}
	defer conn.Close()

	task, stopped, err := receiveTask(ctx, conn, cfg.sanitize, cfg.logger)
	if err != nil {
		return err
	}

	box := newOutbox()
	var sink ports.EventSink = box
	if len(cfg.observers) > 0 {
		sink = ports.Tee(box, cfg.observers, func(err error) {
			cfg.logger.Warn("event observer failed", "err", err)
		})
	}
	s, err := factory(ctx, sink)
	if err != nil {
		_ = conn.Send(ctx, domain.ErrorEvent("Could not start session: "+err.Error()))
		return fmt.Errorf("create session: %w", err)
	}
	defer func() {
		if err := s.Close(); err != nil {
			cfg.logger.Warn("closing session tools", "err", err)
		}
	}()
	logger := cfg.logger.With("session_id", s.ID())

	if stopped {
		s.Stop()
		box.close()
		if err := box.run(context.WithoutCancel(ctx), conn); err != nil {
			logger.Warn("send failed", "err", err)
		}
		logger.Info("channel closed before a task arrived", "state", s.State())
		return nil
	}

	readCtx, stopReading := context.WithCancel(ctx)
	defer stopReading()
	written := make(chan struct{})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(written)
		// Final events must reach the client even after ctx is cancelled.
		if err := box.run(context.WithoutCancel(gctx), conn); err != nil {
			logger.Warn("send failed", "err", err)
		}
		return nil
	})
	g.Go(func() error {
		err := s.Run(gctx, task)
		if errors.Is(err, domain.ErrSessionClosed) && s.State() == domain.StateStopped {
			// Stopped before the task started.
			err = nil
		}
		box.close()
		<-written
		stopReading()
		_ = conn.Close()
		return err
	})
	g.Go(func() error {
		read(readCtx, conn, s, cfg.sanitize, logger)
		return nil
	})

	err = g.Wait()
	logger.Info("channel closed", "state", s.State(), "err", err)
	return err
}

// receiveTask reads until the first task text. A leading resume is a no-op;
// a leading stop reports stopped without a task.
func receiveTask(ctx context.Context, conn Conn, sanitize func(string) (string, error), logger *slog.Logger) (string, bool, error) {
	for {
		msg, err := conn.Receive(ctx)
		if err != nil {
			return "", false, fmt.Errorf("receive task: %w", err)
		}
		switch msg {
		case CommandStop:
			return "", true, nil
		case CommandResume:
			logger.Debug("resume ignored, no task yet")
			continue
		}
		task, err := sanitize(msg)
		if err == nil && strings.TrimSpace(task) == "" {
			err = ErrEmptyTask
		}
		if err != nil {
			_ = conn.Send(ctx, domain.ErrorEvent("Invalid task: "+err.Error()))
			return "", false, err
		}
		return task, false, nil
	}
}

// read dispatches inbound messages until the connection fails or ctx ends.
// Losing the connection mid-task stops the session.
func read(ctx context.Context, conn Conn, s *session.Session, sanitize func(string) (string, error), logger *slog.Logger) {
	for {
		msg, err := conn.Receive(ctx)
		if err != nil {
			if ctx.Err() == nil && !s.State().IsTerminal() {
				logger.Warn("receive failed, stopping session", "err", err)
				s.Stop()
			}
			return
		}
		switch msg {
		case CommandStop:
			s.Stop()
		case CommandResume:
			if !s.Resume() {
				logger.Debug("resume ignored", "state", s.State())
			}
		default:
			text, err := sanitize(msg)
			if err != nil {
				_ = s.ReportError("Invalid input: " + err.Error())
				continue
			}
			if err := s.FollowUp(text); err != nil {
				logger.Debug("follow-up rejected", "err", err)
			}
		}
	}
}

type onceConn struct {
	Conn
	once sync.Once
	err  error
}

func (c *onceConn) Close() error {
	c.once.Do(func() { c.err = c.Conn.Close() })
	return c.err
}
