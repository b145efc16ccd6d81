package ports

import (
	"context"
	"fmt"
	"regexp"

	"github.com/aretw0/agentcore/pkg/domain"
)

// Mask replaces redacted parameter values.
const Mask = "***"

// DefaultRedactedKeys match parameter names whose values observers never see.
var DefaultRedactedKeys = []string{`(?i)pass(word)?`, `(?i)secret`, `(?i)token`, `(?i)api[-_]?key`}

// Middleware wraps an EventSink.
type Middleware func(next EventSink) EventSink

// Redact returns a middleware that masks the values of event parameters whose
// key matches one of patterns, at any depth. The event the caller holds is not
// modified.
func Redact(patterns ...string) (Middleware, error) {
	compiled := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("redact pattern %q: %w", p, err)
		}
		compiled[i] = re
	}
	return func(next EventSink) EventSink {
		if len(compiled) == 0 {
			return next
		}
		return EventSinkFunc(func(ctx context.Context, event domain.Event) error {
			if event.Params != nil {
				event.Params = maskParams(event.Params, compiled)
			}
			return next.Emit(ctx, event)
		})
	}, nil
}

// maskParams returns a masked copy of m.
func maskParams(m map[string]any, patterns []*regexp.Regexp) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if matchesAny(k, patterns) {
			out[k] = Mask
			continue
		}
		if sub, ok := v.(map[string]any); ok {
			v = maskParams(sub, patterns)
		}
		out[k] = v
	}
	return out
}

func matchesAny(key string, patterns []*regexp.Regexp) bool {
	for _, p := range patterns {
		if p.MatchString(key) {
			return true
		}
	}
	return false
}
