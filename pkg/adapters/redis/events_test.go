package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/agentcore/pkg/adapters/redis"
	"github.com/aretw0/agentcore/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, ch <-chan domain.Event) domain.Event {
	t.Helper()
	select {
	case e, ok := <-ch:
		require.True(t, ok, "subscription closed")
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("no event received")
	}
	return domain.Event{}
}

func TestEvents_PublishSubscribe(t *testing.T) {
	_, client := newClient(t)
	events := redis.NewFromClient(client, redis.WithPrefix("test:"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	one, err := events.Subscribe(ctx, "s1")
	require.NoError(t, err)
	all, err := events.Subscribe(ctx, "")
	require.NoError(t, err)

	thought := domain.ThoughtEvent("listing files")
	thought.SessionID, thought.Seq = "s1", 1
	require.NoError(t, events.Emit(ctx, thought))

	other := domain.StatusEvent("Task completed.", domain.StateCompleted)
	other.SessionID, other.Seq = "s2", 7
	require.NoError(t, events.Emit(ctx, other))

	got := receive(t, one)
	assert.Equal(t, thought, got)

	assert.Equal(t, thought, receive(t, all))
	assert.Equal(t, other, receive(t, all))
}

func TestEvents_SubscriptionClosesWithContext(t *testing.T) {
	_, client := newClient(t)
	events := redis.NewFromClient(client)

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := events.Subscribe(ctx, "s1")
	require.NoError(t, err)

	cancel()

	assert.Eventually(t, func() bool {
		select {
		case _, ok := <-ch:
			return !ok
		default:
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)
}
