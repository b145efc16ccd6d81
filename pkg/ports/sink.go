package ports

import (
	"context"

	"github.com/aretw0/agentcore/pkg/domain"
)

// EventSink receives session events. Calls are serialized by the session,
// so implementations see events in emission order.
// An error is treated as a transport fault.
type EventSink interface {
	Emit(ctx context.Context, event domain.Event) error
}

// EventSinkFunc adapts a function to EventSink.
type EventSinkFunc func(ctx context.Context, event domain.Event) error

func (f EventSinkFunc) Emit(ctx context.Context, event domain.Event) error {
	return f(ctx, event)
}

// Tee fans events out to several sinks. The first sink is authoritative: its error
// is returned. Errors from the others are passed to onErr (if set) and ignored.
func Tee(primary EventSink, observers []EventSink, onErr func(error)) EventSink {
	return EventSinkFunc(func(ctx context.Context, event domain.Event) error {
		if err := primary.Emit(ctx, event); err != nil {
			return err
		}
		for _, o := range observers {
			if err := o.Emit(ctx, event); err != nil && onErr != nil {
				onErr(err)
			}
		}
		return nil
	})
}
