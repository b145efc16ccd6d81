package session

import (
	"log/slog"
	"time"

	"github.com/aretw0/agentcore/pkg/observability"
)

const (
	DefaultMaxFailures = 3
	DefaultStopGrace   = 5 * time.Second
)

// Option configures a Session.
type Option func(*Session)

// WithLogger configures the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		s.logger = logger
	}
}

// WithMetrics records session metrics on m.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Session) {
		s.metrics = m
	}
}

// WithID sets the session ID. Defaults to a random UUID.
func WithID(id string) Option {
	return func(s *Session) {
		s.id = id
	}
}

// WithMaxFailures sets how many consecutive planning faults end the session.
func WithMaxFailures(n int) Option {
	return func(s *Session) {
		if n > 0 {
			s.maxFailures = n
		}
	}
}

// WithStopGrace bounds how long a stop waits for an in-flight call that
// ignores cancellation.
func WithStopGrace(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.stopGrace = d
		}
	}
}
