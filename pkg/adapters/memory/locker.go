package memory

import (
	"context"
	"sync"
	"time"

	"github.com/aretw0/agentcore/pkg/ports"
)

// Locker implements ports.DistributedLocker within one process.
// Safe for concurrent use.
type Locker struct {
	mu   sync.Mutex
	held map[string]*lease
}

type lease struct {
	expires  time.Time
	released chan struct{}
}

// NewLocker creates a new in-memory locker.
func NewLocker() *Locker {
	return &Locker{held: make(map[string]*lease)}
}

// Lock acquires key, waiting for the current holder to release it or for its
// ttl to run out.
func (l *Locker) Lock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	for {
		l.mu.Lock()
		cur, ok := l.held[key]
		if !ok || time.Now().After(cur.expires) {
			if ok {
				close(cur.released)
			}
			mine := &lease{expires: time.Now().Add(ttl), released: make(chan struct{})}
			l.held[key] = mine
			l.mu.Unlock()
			return l.unlockFunc(key, mine), nil
		}
		wait := time.Until(cur.expires)
		released := cur.released
		l.mu.Unlock()

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-released:
		case <-timer.C:
		}
		timer.Stop()
	}
}

func (l *Locker) unlockFunc(key string, mine *lease) ports.UnlockFunc {
	return func(ctx context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		// A lease that expired and was taken over belongs to someone else now.
		if l.held[key] == mine {
			delete(l.held, key)
			close(mine.released)
		}
		return nil
	}
}
