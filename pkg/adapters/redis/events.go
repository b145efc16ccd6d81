package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/aretw0/agentcore/internal/logging"
	"github.com/aretw0/agentcore/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

const defaultPrefix = "agentcore:"

// Events publishes session events on Redis pub/sub and lets observers
// subscribe to them. It implements ports.EventSink.
type Events struct {
	client backend.UniversalClient
	prefix string
	logger *slog.Logger
}

type Option func(*Events)

// WithPrefix sets the channel prefix.
func WithPrefix(prefix string) Option {
	return func(e *Events) {
		e.prefix = prefix
	}
}

// WithLogger configures the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Events) {
		e.logger = logger
	}
}

// New creates an event publisher connected to address.
func New(address, password string, db int, opts ...Option) *Events {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates an event publisher from an existing client.
func NewFromClient(client backend.UniversalClient, opts ...Option) *Events {
	e := &Events{
		client: client,
		prefix: defaultPrefix,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Client returns the underlying client, for sharing with a Locker.
func (e *Events) Client() backend.UniversalClient {
	return e.client
}

func (e *Events) channel(sessionID string) string {
	return e.prefix + "events:" + sessionID
}

// Emit publishes event on the session's channel.
func (e *Events) Emit(ctx context.Context, event domain.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if err := e.client.Publish(ctx, e.channel(event.SessionID), data).Err(); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}

// Subscribe streams the events of one session, or of every session when
// sessionID is empty. The channel closes when ctx is done.
func (e *Events) Subscribe(ctx context.Context, sessionID string) (<-chan domain.Event, error) {
	var sub *backend.PubSub
	if sessionID == "" {
		sub = e.client.PSubscribe(ctx, e.channel("*"))
	} else {
		sub = e.client.Subscribe(ctx, e.channel(sessionID))
	}
	// Wait for the subscription to be confirmed so no event published after
	// Subscribe returns is missed.
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return nil, fmt.Errorf("subscribe: %w", err)
	}

	out := make(chan domain.Event, 64)
	go func() {
		defer close(out)
		defer sub.Close()
		messages := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				var event domain.Event
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					e.logger.Warn("dropping undecodable event", "channel", msg.Channel, "err", err)
					continue
				}
				select {
				case out <- event:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
