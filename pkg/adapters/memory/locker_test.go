package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/agentcore/pkg/adapters/memory"
	"github.com/aretw0/agentcore/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocker_Contract(t *testing.T) {
	ports.RunLockerContract(t, memory.NewLocker())
}

func TestLocker_ExpiredLeaseIsTakenOver(t *testing.T) {
	l := memory.NewLocker()
	ctx := context.Background()

	stale, err := l.Lock(ctx, "browser:9222", 50*time.Millisecond)
	require.NoError(t, err)

	wctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	fresh, err := l.Lock(wctx, "browser:9222", time.Minute)
	require.NoError(t, err, "an expired lease must not block forever")

	// Releasing the stale lease must not free the new holder.
	require.NoError(t, stale(ctx))
	short, cancel2 := context.WithTimeout(ctx, 100*time.Millisecond)
	defer cancel2()
	_, err = l.Lock(short, "browser:9222", time.Minute)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	require.NoError(t, fresh(ctx))
}
