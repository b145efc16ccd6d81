package ports_test

import (
	"context"
	"testing"

	"github.com/aretw0/agentcore/pkg/domain"
	"github.com/aretw0/agentcore/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedact(t *testing.T) {
	redact, err := ports.Redact(ports.DefaultRedactedKeys...)
	require.NoError(t, err)

	var got domain.Event
	sink := redact(ports.EventSinkFunc(func(ctx context.Context, e domain.Event) error {
		got = e
		return nil
	}))

	params := map[string]any{
		"selector": "#login",
		"password": "hunter2",
		"headers":  map[string]any{"X-Api-Key": "abc", "accept": "json"},
	}
	event := domain.ActionEvent("browser_type_text", params)
	require.NoError(t, sink.Emit(context.Background(), event))

	assert.Equal(t, "#login", got.Params["selector"])
	assert.Equal(t, ports.Mask, got.Params["password"])
	headers := got.Params["headers"].(map[string]any)
	assert.Equal(t, ports.Mask, headers["X-Api-Key"])
	assert.Equal(t, "json", headers["accept"])

	// The original event is untouched.
	assert.Equal(t, "hunter2", params["password"])
	assert.Equal(t, "abc", params["headers"].(map[string]any)["X-Api-Key"])
}

func TestRedact_InvalidPattern(t *testing.T) {
	_, err := ports.Redact("(")
	assert.Error(t, err)
}

func TestRedact_NoPatterns(t *testing.T) {
	redact, err := ports.Redact()
	require.NoError(t, err)
	inner := ports.EventSinkFunc(func(context.Context, domain.Event) error { return nil })
	assert.NotNil(t, redact(inner))
}
