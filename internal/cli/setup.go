// Package cli implements the agentcore commands. cmd/agentcore only parses
// flags and calls in here.
package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/agentcore"
	"github.com/aretw0/agentcore/internal/config"
	"github.com/aretw0/agentcore/internal/logging"
	"github.com/aretw0/agentcore/pkg/adapters/memory"
	redisAdapter "github.com/aretw0/agentcore/pkg/adapters/redis"
	"github.com/aretw0/agentcore/pkg/brain"
	"github.com/aretw0/agentcore/pkg/observability"
	"github.com/aretw0/agentcore/pkg/ports"
)

// Options are the flags shared by every command.
type Options struct {
	ConfigPath string
	WorkDir    string
	EnvFile    string
	Debug      bool
}

// Env is what a command runs with.
type Env struct {
	Config     *config.Config
	ConfigPath string
	Logger     *slog.Logger
}

// Setup loads the env file and the configuration. Without an explicit path the
// working directory is searched for a config file.
func Setup(opts Options) (*Env, error) {
	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if err := config.LoadEnv(envFile); err != nil {
		return nil, err
	}

	path := opts.ConfigPath
	if path == "" {
		path = config.Locate(".")
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if opts.WorkDir != "" {
		cfg.Tools.WorkDir = opts.WorkDir
	}
	if opts.Debug {
		cfg.Log.Level = "debug"
	}
	return &Env{Config: cfg, ConfigPath: path, Logger: createLogger(cfg)}, nil
}

// createLogger writes to stderr so stdout stays free for the session stream.
func createLogger(cfg *config.Config) *slog.Logger {
	return logging.New(cfg.LoggerOptions())
}

// NewAgent builds the agent with the locker the config selects.
func (e *Env) NewAgent(metrics *observability.Metrics, locker ports.DistributedLocker, extra ...agentcore.Option) (*agentcore.Agent, error) {
	if locker == nil {
		locker = memory.NewLocker()
	}
	opts := append([]agentcore.Option{
		agentcore.WithLogger(e.Logger),
		agentcore.WithMetrics(metrics),
		agentcore.WithLocker(locker),
	}, extra...)
	agent, err := agentcore.New(e.Config, opts...)
	if err != nil {
		return nil, fmt.Errorf("init agent: %w", err)
	}
	return agent, nil
}

// offlineAgent builds an agent for commands that never plan, so no model
// credentials are needed.
func (e *Env) offlineAgent() (*agentcore.Agent, error) {
	return e.NewAgent(nil, nil, agentcore.WithChatModel(brain.ChatFunc(func(context.Context, []brain.Message) (string, error) {
		return "", errors.New("no model in offline mode")
	})))
}

// Redis connects the event bus when redis.addr is set.
func (e *Env) Redis() *redisAdapter.Events {
	rc := e.Config.Redis
	if rc.Addr == "" {
		return nil
	}
	return redisAdapter.New(rc.Addr, rc.Password, rc.DB,
		redisAdapter.WithPrefix(rc.Prefix),
		redisAdapter.WithLogger(e.Logger),
	)
}

func printSystemMessage(format string, args ...any) {
	fmt.Fprintf(os.Stderr, ">>> %s\n", fmt.Sprintf(format, args...))
}
