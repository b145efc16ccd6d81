// Package config loads the agentcore configuration file.
package config

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/aretw0/agentcore/internal/logging"
	"github.com/aretw0/agentcore/pkg/guardrail"
	"github.com/aretw0/agentcore/pkg/ports"
	"github.com/aretw0/agentcore/pkg/toolbox"
)

// Config is the whole configuration. Every section has defaults, so an
// empty file is valid.
type Config struct {
	LLM       LLMConfig        `toml:"llm" yaml:"llm" json:"llm"`
	Security  SecurityConfig   `toml:"security" yaml:"security" json:"security"`
	Guardrail guardrail.Config `toml:"guardrail" yaml:"guardrail" json:"guardrail"`
	Tools     ToolsConfig      `toml:"tools" yaml:"tools" json:"tools"`
	Session   SessionConfig    `toml:"session" yaml:"session" json:"session"`
	Server    ServerConfig     `toml:"server" yaml:"server" json:"server"`
	Redis     RedisConfig      `toml:"redis" yaml:"redis" json:"redis"`
	Log       LogConfig        `toml:"log" yaml:"log" json:"log"`
}

// LLMConfig selects the model backend.
type LLMConfig struct {
	Provider    string  `toml:"provider" yaml:"provider" json:"provider" validate:"omitempty,oneof=ollama openai anthropic"`
	Host        string  `toml:"host" yaml:"host" json:"host" validate:"omitempty,url"`
	Model       string  `toml:"model" yaml:"model" json:"model"`
	Temperature float64 `toml:"temperature" yaml:"temperature" json:"temperature" validate:"gte=0,lte=2"`
	APIKey      string  `toml:"api_key" yaml:"api_key" json:"api_key,omitempty"`
	BaseURL     string  `toml:"base_url" yaml:"base_url" json:"base_url,omitempty" validate:"omitempty,url"`
	MaxTokens   int     `toml:"max_tokens" yaml:"max_tokens" json:"max_tokens,omitempty" validate:"gte=0"`
}

// SecurityConfig is the legacy section; protected_files join the guardrail's
// protected patterns.
type SecurityConfig struct {
	ProtectedFiles []string `toml:"protected_files" yaml:"protected_files" json:"protected_files,omitempty"`
}

type ToolsConfig struct {
	// WorkDir is where file tools operate. Defaults to the process directory.
	WorkDir string   `toml:"work_dir" yaml:"work_dir" json:"work_dir,omitempty"`
	Timeout Duration `toml:"timeout" yaml:"timeout" json:"timeout,omitempty" validate:"gte=0"`
	Browser bool     `toml:"browser" yaml:"browser" json:"browser"`
	// Commands are operator-declared programs exposed as tools.
	Commands []toolbox.CommandSpec `toml:"commands" yaml:"commands" json:"commands,omitempty" validate:"dive"`
	// CommandsFile is a YAML or JSON file of further commands, relative to
	// the config file.
	CommandsFile string `toml:"commands_file" yaml:"commands_file" json:"commands_file,omitempty"`
}

type SessionConfig struct {
	MaxConsecutiveFailures int      `toml:"max_consecutive_failures" yaml:"max_consecutive_failures" json:"max_consecutive_failures" validate:"gte=1"`
	StopGrace              Duration `toml:"stop_grace" yaml:"stop_grace" json:"stop_grace" validate:"gte=0"`
}

type ServerConfig struct {
	Addr           string   `toml:"addr" yaml:"addr" json:"addr" validate:"required"`
	AllowedOrigins []string `toml:"allowed_origins" yaml:"allowed_origins" json:"allowed_origins,omitempty"`
	MaxInputSize   int      `toml:"max_input_size" yaml:"max_input_size" json:"max_input_size" validate:"gte=0"`
	// RedactKeys are regular expressions over parameter names; matching values
	// are masked in the event feed.
	RedactKeys []string `toml:"redact_keys" yaml:"redact_keys" json:"redact_keys,omitempty"`
}

// RedisConfig enables the shared event bus and browser lock when Addr is set.
type RedisConfig struct {
	Addr     string `toml:"addr" yaml:"addr" json:"addr,omitempty" validate:"omitempty,hostname_port"`
	Password string `toml:"password" yaml:"password" json:"password,omitempty"`
	DB       int    `toml:"db" yaml:"db" json:"db,omitempty" validate:"gte=0"`
	Prefix   string `toml:"prefix" yaml:"prefix" json:"prefix,omitempty"`
}

type LogConfig struct {
	Level string `toml:"level" yaml:"level" json:"level" validate:"oneof=debug info warn error"`
	// Format is "text" or "json".
	Format string `toml:"format" yaml:"format" json:"format,omitempty" validate:"omitempty,oneof=text json"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:    "ollama",
			Host:        "http://localhost:11434",
			Model:       "llama3",
			Temperature: 0.1,
		},
		Guardrail: guardrail.DefaultConfig(),
		Tools: ToolsConfig{
			Timeout: Duration(30 * time.Second),
			Browser: true,
		},
		Session: SessionConfig{
			MaxConsecutiveFailures: 3,
			StopGrace:              Duration(5 * time.Second),
		},
		Server: ServerConfig{
			Addr:         ":8000",
			MaxInputSize: 4096,
			RedactKeys:   slices.Clone(ports.DefaultRedactedKeys),
		},
		Redis: RedisConfig{Prefix: "agentcore:"},
		Log:   LogConfig{Level: "info", Format: logging.FormatText},
	}
}

// Policy compiles the guardrail section, rooted at the tools work dir unless
// the section sets its own.
func (c *Config) Policy() (*guardrail.Policy, error) {
	g := c.Guardrail
	if g.WorkDir == "" {
		g.WorkDir = c.Tools.WorkDir
	}
	return guardrail.New(g)
}

// LoggerOptions maps the log section to logging options.
func (c *Config) LoggerOptions() logging.Options {
	return logging.Options{Level: logging.ParseLevel(c.Log.Level), Format: c.Log.Format}
}

// Duration is a time.Duration written as "30s" in config files.
type Duration time.Duration

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	*d = Duration(v)
	return nil
}
