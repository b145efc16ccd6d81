package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aretw0/agentcore/internal/logging"
	"github.com/aretw0/agentcore/pkg/channel"
	"github.com/aretw0/agentcore/pkg/domain"
	"github.com/aretw0/agentcore/pkg/ports"
	"github.com/aretw0/agentcore/pkg/runner"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

// HealthMessage is the body of GET /.
const HealthMessage = "Agent backend is running."

// Subscriber streams session events to observers.
type Subscriber interface {
	Subscribe(ctx context.Context, sessionID string) (<-chan domain.Event, error)
}

// Server exposes the control channel over WebSocket and an SSE event feed.
type Server struct {
	factory   channel.Factory
	logger    *slog.Logger
	origins   []string
	maxInput  int
	version   string
	streams   *StreamManager
	feed      Subscriber
	observers []ports.EventSink
	metrics   http.Handler
	redact    ports.Middleware
	upgrader  websocket.Upgrader
}

type Option func(*Server)

// WithLogger configures the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithAllowedOrigins restricts WebSocket and CORS origins. "*" allows any.
// Without it only same-origin WebSocket upgrades succeed.
func WithAllowedOrigins(origins ...string) Option {
	return func(s *Server) {
		s.origins = origins
	}
}

// WithMaxInputSize bounds inbound messages, in bytes.
func WithMaxInputSize(n int) Option {
	return func(s *Server) {
		s.maxInput = n
	}
}

// WithVersion sets the version reported by GET /info.
func WithVersion(v string) Option {
	return func(s *Server) {
		s.version = v
	}
}

// WithEventBus publishes every session's events to bus and serves GET /events
// from it, so observers can attach to any replica.
func WithEventBus(bus interface {
	ports.EventSink
	Subscriber
}) Option {
	return func(s *Server) {
		s.feed = bus
		s.observers = append(s.observers, bus)
	}
}

// WithMetricsHandler serves h at GET /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithRedaction filters every event before it reaches observers. The
// connection that drives a session still sees its events unmodified.
func WithRedaction(mw ports.Middleware) Option {
	return func(s *Server) {
		s.redact = mw
	}
}

// NewServer creates the server. Each WebSocket connection gets its own
// session from factory.
func NewServer(factory channel.Factory, opts ...Option) *Server {
	s := &Server{
		factory: factory,
		logger:  logging.NewNop(),
		version: "dev",
	}
	for _, opt := range opts {
		opt(s)
	}
	s.streams = NewStreamManager(s.logger)
	if s.feed == nil {
		s.feed = s.streams
	}
	s.observers = append([]ports.EventSink{s.streams}, s.observers...)
	if s.redact != nil {
		for i, o := range s.observers {
			s.observers[i] = s.redact(o)
		}
	}
	s.upgrader = newUpgrader(s.origins)
	return s
}

// NewHandler is shorthand for NewServer(factory, opts...).Handler().
func NewHandler(factory channel.Factory, opts ...Option) http.Handler {
	return NewServer(factory, opts...).Handler()
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(s.cors)
	r.Get("/", s.GetRoot)
	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Get("/ws/execute_task", s.ExecuteTask)
	r.Get("/events", s.SubscribeEvents)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}
	return r
}

func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := s.allowOrigin(r.Header.Get("Origin")); origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) allowOrigin(origin string) string {
	for _, o := range s.origins {
		if o == "*" {
			return "*"
		}
		if origin != "" && o == origin {
			return origin
		}
	}
	return ""
}

// GetRoot handles GET /.
func (s *Server) GetRoot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprint(w, HealthMessage)
}

// GetHealth handles GET /health.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

// GetInfo handles GET /info.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{
		"app":     "agentcore",
		"version": strings.TrimSpace(s.version),
	})
}

// ExecuteTask handles GET /ws/execute_task. The first text frame is the task;
// later frames are stop, resume or follow-up text.
func (s *Server) ExecuteTask(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "err", err, "remote", r.RemoteAddr)
		return
	}
	s.logger.Info("websocket client connected", "remote", r.RemoteAddr)

	var readLimit int64
	if s.maxInput > 0 {
		readLimit = int64(s.maxInput) + 1
	}
	conn := newWSConn(ws, readLimit)
	err = channel.Serve(r.Context(), conn, s.factory,
		channel.WithLogger(s.logger),
		channel.WithSanitizer(runner.Sanitizer(s.maxInput)),
		channel.WithObservers(s.observers...),
	)
	if err != nil {
		s.logger.Info("websocket session ended", "err", err, "remote", r.RemoteAddr)
	}
}

// SubscribeEvents handles GET /events (SSE). With session_id it streams one
// session; without it, every session.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		s.logger.Error("SubscribeEvents: streaming not supported")
		return
	}

	sessionID := r.URL.Query().Get("session_id")
	var kinds map[domain.EventKind]bool
	if watch := r.URL.Query().Get("watch"); watch != "" {
		kinds = make(map[domain.EventKind]bool)
		for _, k := range strings.Split(watch, ",") {
			kinds[domain.EventKind(strings.TrimSpace(k))] = true
		}
	}

	events, err := s.feed.Subscribe(r.Context(), sessionID)
	if err != nil {
		http.Error(w, fmt.Sprintf("Subscribe error: %v", err), http.StatusInternalServerError)
		s.logger.Error("SubscribeEvents failed", "err", err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()
	s.logger.Info("SSE: subscribed", "session_id", sessionID)

	for {
		select {
		case <-r.Context().Done():
			s.logger.Info("SSE: client disconnected", "session_id", sessionID)
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			if kinds != nil && !kinds[event.Kind] {
				continue
			}
			data, err := json.Marshal(event)
			if err != nil {
				s.logger.Warn("SSE: encode failed", "err", err)
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Kind, data)
			flusher.Flush()
		}
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
