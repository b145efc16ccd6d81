package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/agentcore"
	"github.com/aretw0/agentcore/internal/config"
	httpAdapter "github.com/aretw0/agentcore/pkg/adapters/http"
	redisAdapter "github.com/aretw0/agentcore/pkg/adapters/redis"
	"github.com/aretw0/agentcore/pkg/observability"
	"github.com/aretw0/agentcore/pkg/ports"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const shutdownTimeout = 5 * time.Second

// ServeOptions configure the HTTP server.
type ServeOptions struct {
	Addr string
	// Watch reloads the guardrail when the config file changes.
	Watch bool
}

// Serve runs the WebSocket server until ctx is done or a signal arrives.
func Serve(ctx context.Context, env *Env, opts ServeOptions) error {
	addr := opts.Addr
	if addr == "" {
		addr = env.Config.Server.Addr
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(reg)

	redact, err := ports.Redact(env.Config.Server.RedactKeys...)
	if err != nil {
		return err
	}

	var locker ports.DistributedLocker
	serverOpts := []httpAdapter.Option{
		httpAdapter.WithLogger(env.Logger),
		httpAdapter.WithAllowedOrigins(env.Config.Server.AllowedOrigins...),
		httpAdapter.WithMaxInputSize(env.Config.Server.MaxInputSize),
		httpAdapter.WithVersion(strings.TrimSpace(agentcore.Version)),
		httpAdapter.WithMetricsHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})),
		httpAdapter.WithRedaction(redact),
	}
	if bus := env.Redis(); bus != nil {
		defer bus.Client().Close()
		if err := bus.Client().Ping(ctx).Err(); err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		locker = redisAdapter.NewLocker(bus.Client(), env.Config.Redis.Prefix)
		serverOpts = append(serverOpts, httpAdapter.WithEventBus(bus))
		env.Logger.Info("Redis event bus enabled", "addr", env.Config.Redis.Addr)
	}

	agent, err := env.NewAgent(metrics, locker)
	if err != nil {
		return err
	}

	sc := NewSignalContext(ctx)
	defer sc.Release()

	if opts.Watch && env.ConfigPath != "" {
		go func() {
			if err := agent.Policy().Watch(sc, env.ConfigPath, config.LoadPolicy); err != nil {
				env.Logger.Error("Policy watch stopped", "error", err)
			}
		}()
	}

	// Hijacked WebSocket connections outlive Shutdown, so their sessions are
	// tied to a context that is cancelled when the server stops.
	baseCtx, cancelSessions := context.WithCancel(context.WithoutCancel(sc))
	defer cancelSessions()

	srv := &http.Server{
		Addr:              addr,
		Handler:           httpAdapter.NewHandler(agent.NewSession, serverOpts...),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return baseCtx },
	}

	serverErrors := make(chan error, 1)
	go func() {
		env.Logger.Info("Agent server listening", "addr", addr, "version", strings.TrimSpace(agentcore.Version))
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-sc.Done():
		env.Logger.Info("Shutting down", "signal", sc.Signal())
	}

	cancelSessions()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		env.Logger.Warn("Graceful shutdown did not complete", "timeout", shutdownTimeout, "error", err)
		return srv.Close()
	}
	env.Logger.Info("Agent server stopped")
	return nil
}
