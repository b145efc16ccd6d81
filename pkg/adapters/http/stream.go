package http

import (
	"context"
	"log/slog"
	"sync"

	"github.com/aretw0/agentcore/internal/logging"
	"github.com/aretw0/agentcore/pkg/domain"
)

const allSessions = ""

// StreamManager fans session events out to in-process subscribers.
// It is an EventSink for the channel and a Subscriber for the SSE route.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan domain.Event]struct{} // SessionID ("" for all) -> set
	logger      *slog.Logger
}

func NewStreamManager(logger *slog.Logger) *StreamManager {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &StreamManager{
		subscribers: make(map[string]map[chan domain.Event]struct{}),
		logger:      logger,
	}
}

// Subscribe streams one session's events, or every session's when sessionID
// is empty, until ctx is done.
func (sm *StreamManager) Subscribe(ctx context.Context, sessionID string) (<-chan domain.Event, error) {
	ch := make(chan domain.Event, 32)

	sm.mu.Lock()
	if _, ok := sm.subscribers[sessionID]; !ok {
		sm.subscribers[sessionID] = make(map[chan domain.Event]struct{})
	}
	sm.subscribers[sessionID][ch] = struct{}{}
	sm.mu.Unlock()

	context.AfterFunc(ctx, func() {
		sm.mu.Lock()
		defer sm.mu.Unlock()
		if subs, ok := sm.subscribers[sessionID]; ok {
			delete(subs, ch)
			if len(subs) == 0 {
				delete(sm.subscribers, sessionID)
			}
		}
		close(ch)
	})
	return ch, nil
}

// Emit broadcasts event to its session's subscribers and to global ones.
// Slow subscribers lose events rather than stall the session.
func (sm *StreamManager) Emit(_ context.Context, event domain.Event) error {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	for _, key := range []string{event.SessionID, allSessions} {
		for ch := range sm.subscribers[key] {
			select {
			case ch <- event:
			default:
				sm.logger.Warn("SSE: subscriber buffer full, dropping event", "session_id", event.SessionID, "seq", event.Seq)
			}
		}
		if event.SessionID == allSessions {
			break
		}
	}
	return nil
}
