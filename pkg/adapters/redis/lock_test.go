package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/agentcore/pkg/adapters/redis"
	"github.com/aretw0/agentcore/pkg/ports"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T) (*miniredis.Miniredis, *backend.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestRedisLocker_Contract(t *testing.T) {
	_, client := newClient(t)

	ports.RunLockerContract(t, redis.NewLocker(client, "agentcore:"))
}

func TestRedisLocker_LockUnlock(t *testing.T) {
	mr, client := newClient(t)
	locker := redis.NewLocker(client, "test:")
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "browser:localhost:9222", 5*time.Second)
	require.NoError(t, err)
	assert.True(t, mr.Exists("test:lock:browser:localhost:9222"), "lock key should be set in Redis")

	require.NoError(t, unlock(ctx))
	assert.False(t, mr.Exists("test:lock:browser:localhost:9222"), "lock key should be removed after unlock")
}

func TestRedisLocker_UnlockKeepsForeignLease(t *testing.T) {
	mr, client := newClient(t)
	locker := redis.NewLocker(client, "test:")
	ctx := context.Background()

	stale, err := locker.Lock(ctx, "res", time.Second)
	require.NoError(t, err)

	mr.FastForward(2 * time.Second)
	fresh, err := locker.Lock(ctx, "res", time.Minute)
	require.NoError(t, err)

	require.NoError(t, stale(ctx))
	assert.True(t, mr.Exists("test:lock:res"), "a stale unlock must not release the new holder")

	require.NoError(t, fresh(ctx))
	assert.False(t, mr.Exists("test:lock:res"))
}
