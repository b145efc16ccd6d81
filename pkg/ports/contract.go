package ports

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunLockerContract runs a suite of tests to verify that a DistributedLocker implementation
// adheres to the defined interface contract.
func RunLockerContract(t *testing.T, locker DistributedLocker) {
	key := "contract-lock-" + time.Now().Format("20060102150405.000000")

	t.Run("Lock and Unlock", func(t *testing.T) {
		unlock, err := locker.Lock(context.Background(), key, 5*time.Second)
		require.NoError(t, err)
		require.NoError(t, unlock(context.Background()))
	})

	t.Run("Exclusive", func(t *testing.T) {
		unlock, err := locker.Lock(context.Background(), key, 5*time.Second)
		require.NoError(t, err)

		ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
		defer cancel()
		_, err = locker.Lock(ctx, key, 5*time.Second)
		assert.ErrorIs(t, err, context.DeadlineExceeded, "second Lock must wait while the key is held")

		require.NoError(t, unlock(context.Background()))

		again, err := locker.Lock(context.Background(), key, 5*time.Second)
		require.NoError(t, err, "Lock must succeed once released")
		require.NoError(t, again(context.Background()))
	})

	t.Run("Independent Keys", func(t *testing.T) {
		u1, err := locker.Lock(context.Background(), key+"-a", 5*time.Second)
		require.NoError(t, err)
		defer u1(context.Background())

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		u2, err := locker.Lock(ctx, key+"-b", 5*time.Second)
		require.NoError(t, err)
		require.NoError(t, u2(context.Background()))
	})
}
