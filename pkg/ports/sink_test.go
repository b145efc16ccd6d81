package ports_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/agentcore/pkg/domain"
	"github.com/aretw0/agentcore/pkg/ports"
	"github.com/stretchr/testify/assert"
)

func TestTee(t *testing.T) {
	var primary, observer []domain.Event
	var observed []error

	sink := ports.Tee(
		ports.EventSinkFunc(func(ctx context.Context, e domain.Event) error {
			primary = append(primary, e)
			return nil
		}),
		[]ports.EventSink{ports.EventSinkFunc(func(ctx context.Context, e domain.Event) error {
			observer = append(observer, e)
			return errors.New("observer down")
		})},
		func(err error) { observed = append(observed, err) },
	)

	err := sink.Emit(context.Background(), domain.ThoughtEvent("x"))
	assert.NoError(t, err, "observer failures must not fail the primary sink")
	assert.Len(t, primary, 1)
	assert.Len(t, observer, 1)
	assert.Len(t, observed, 1)
}

func TestTee_PrimaryErrorStops(t *testing.T) {
	called := false
	sink := ports.Tee(
		ports.EventSinkFunc(func(ctx context.Context, e domain.Event) error { return errors.New("closed") }),
		[]ports.EventSink{ports.EventSinkFunc(func(ctx context.Context, e domain.Event) error {
			called = true
			return nil
		})},
		nil,
	)

	assert.Error(t, sink.Emit(context.Background(), domain.ThoughtEvent("x")))
	assert.False(t, called)
}
