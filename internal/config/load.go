package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/aretw0/agentcore/pkg/guardrail"
	"github.com/aretw0/agentcore/pkg/toolbox"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "AGENTCORE_"

// Candidates are the file names Locate looks for, in order. config.toml is
// the legacy name.
var Candidates = []string{"agentcore.toml", "agentcore.yaml", "agentcore.yml", "agentcore.json", "config.toml"}

var validate = validator.New()

// Locate returns the first candidate file present in dir, or "".
func Locate(dir string) string {
	for _, name := range Candidates {
		path := filepath.Join(dir, name)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}
	}
	return ""
}

// Load reads path over the defaults, applies environment overrides and
// validates the result. An empty path yields the defaults plus overrides.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := decode(path, data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
		}
	}
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if file := cfg.Tools.CommandsFile; file != "" {
		if !filepath.IsAbs(file) && path != "" {
			file = filepath.Join(filepath.Dir(path), file)
		}
		cmds, err := toolbox.LoadCommands(file)
		if err != nil {
			return nil, err
		}
		cfg.Tools.Commands = append(cfg.Tools.Commands, cmds...)
	}
	cfg.Guardrail.ProtectedPatterns = mergeUnique(cfg.Guardrail.ProtectedPatterns, cfg.Security.ProtectedFiles)
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadPolicy loads path and compiles its guardrail. It is the reload
// function for a watched config file.
func LoadPolicy(path string) (*guardrail.Policy, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	return cfg.Policy()
}

// LoadEnv loads KEY=value files into the environment without overriding
// variables already set. Missing files are skipped.
func LoadEnv(files ...string) error {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

func decode(path string, data []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		_, err := toml.Decode(string(data), cfg)
		return err
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		// An empty document keeps the defaults.
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		return nil
	case ".json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		return dec.Decode(cfg)
	}
	return fmt.Errorf("unsupported config format %q", filepath.Ext(path))
}

func applyEnv(cfg *Config) error {
	str := map[string]*string{
		"LLM_PROVIDER":   &cfg.LLM.Provider,
		"LLM_HOST":       &cfg.LLM.Host,
		"LLM_MODEL":      &cfg.LLM.Model,
		"LLM_API_KEY":    &cfg.LLM.APIKey,
		"LLM_BASE_URL":   &cfg.LLM.BaseURL,
		"WORK_DIR":       &cfg.Tools.WorkDir,
		"SERVER_ADDR":    &cfg.Server.Addr,
		"REDIS_ADDR":     &cfg.Redis.Addr,
		"REDIS_PASSWORD": &cfg.Redis.Password,
		"REDIS_PREFIX":   &cfg.Redis.Prefix,
		"LOG_LEVEL":      &cfg.Log.Level,
		"LOG_FORMAT":     &cfg.Log.Format,
	}
	for key, dst := range str {
		if v, ok := os.LookupEnv(EnvPrefix + key); ok {
			*dst = v
		}
	}

	ints := map[string]*int{
		"MAX_INPUT_SIZE":           &cfg.Server.MaxInputSize,
		"MAX_CONSECUTIVE_FAILURES": &cfg.Session.MaxConsecutiveFailures,
	}
	for key, dst := range ints {
		if v, ok := os.LookupEnv(EnvPrefix + key); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
			}
			*dst = n
		}
	}

	if v, ok := os.LookupEnv(EnvPrefix + "ALLOWED_ORIGINS"); ok {
		cfg.Server.AllowedOrigins = splitList(v)
	}

	if cfg.LLM.APIKey == "" {
		if env := apiKeyEnv(cfg.LLM.Provider); env != "" {
			cfg.LLM.APIKey = os.Getenv(env)
		}
	}
	return nil
}

// apiKeyEnv returns the conventional API key variable for a provider.
func apiKeyEnv(provider string) string {
	switch provider {
	case "anthropic":
		return "ANTHROPIC_API_KEY"
	case "openai":
		return "OPENAI_API_KEY"
	}
	return ""
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func mergeUnique(base, extra []string) []string {
	out := slices.Clone(base)
	for _, s := range extra {
		if !slices.Contains(out, s) {
			out = append(out, s)
		}
	}
	return out
}
