package toolbox

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/aretw0/agentcore/pkg/domain"
	"github.com/aretw0/agentcore/pkg/registry"
	"gopkg.in/yaml.v3"
)

// ArgEnvPrefix prefixes the environment variables carrying call parameters.
const ArgEnvPrefix = "AGENTCORE_ARG_"

// commandWaitDelay bounds how long a cancelled command may hold its pipes.
const commandWaitDelay = 2 * time.Second

// CommandSpec declares an operator-provided tool backed by a local program.
// Parameters never reach the command line: each one is passed as the
// environment variable AGENTCORE_ARG_<NAME>, so a model cannot inject flags.
type CommandSpec struct {
	Name        string             `toml:"name" yaml:"name" json:"name" validate:"required"`
	Description string             `toml:"description" yaml:"description" json:"description,omitempty"`
	Command     string             `toml:"command" yaml:"command" json:"command" validate:"required"`
	Args        []string           `toml:"args" yaml:"args" json:"args,omitempty"`
	Env         map[string]string  `toml:"env" yaml:"env" json:"env,omitempty"`
	Params      []domain.ParamSpec `toml:"params" yaml:"params" json:"params,omitempty"`
	// Risk defaults to sensitive.
	Risk domain.RiskClass `toml:"risk" yaml:"risk" json:"risk,omitempty" validate:"omitempty,oneof=safe sensitive"`
}

// CommandFile is the layout of a standalone commands file.
type CommandFile struct {
	Tools []CommandSpec `yaml:"tools" json:"tools"`
}

var paramName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// LoadCommands reads command tools from a YAML or JSON file. A missing file
// yields no tools.
func LoadCommands(path string) ([]CommandSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read commands: %w", err)
	}

	var file CommandFile
	if strings.ToLower(filepath.Ext(path)) == ".json" {
		err = json.Unmarshal(data, &file)
	} else {
		err = yaml.Unmarshal(data, &file)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	return file.Tools, nil
}

// Commands runs the declared programs in a work dir.
type Commands struct {
	workDir string
	specs   []CommandSpec
}

// NewCommands creates command tools running in workDir.
func NewCommands(workDir string, specs []CommandSpec) *Commands {
	return &Commands{workDir: workDir, specs: specs}
}

// Register adds every declared command to reg.
func (c *Commands) Register(reg *registry.Registry) error {
	for _, spec := range c.specs {
		for _, p := range spec.Params {
			if !paramName.MatchString(p.Name) {
				return fmt.Errorf("command %s: parameter name %q is not a valid identifier", spec.Name, p.Name)
			}
		}
		risk := spec.Risk
		if risk == "" {
			risk = domain.RiskSensitive
		}
		desc := spec.Description
		if desc == "" {
			desc = "Runs " + spec.Command + "."
		}
		if err := reg.Register(domain.ToolSpec{
			Name:        spec.Name,
			Description: desc,
			Risk:        risk,
			Params:      spec.Params,
		}, c.runner(spec)); err != nil {
			return err
		}
	}
	return nil
}

func (c *Commands) runner(spec CommandSpec) registry.ToolFunction {
	return func(ctx context.Context, args map[string]any) (any, error) {
		cmd := exec.CommandContext(ctx, spec.Command, spec.Args...)
		cmd.Dir = c.workDir
		cmd.WaitDelay = commandWaitDelay
		cmd.Env = cmd.Environ()
		for k, v := range spec.Env {
			cmd.Env = append(cmd.Env, k+"="+v)
		}
		for k, v := range args {
			cmd.Env = append(cmd.Env, ArgEnvPrefix+strings.ToUpper(k)+"="+envValue(v))
		}

		var stdout, stderr bytes.Buffer
		cmd.Stdout = &limitedBuffer{buf: &stdout, max: maxReadBytes}
		cmd.Stderr = &limitedBuffer{buf: &stderr, max: maxReadBytes}

		if err := cmd.Run(); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			msg := strings.TrimSpace(stderr.String())
			if msg == "" {
				return nil, fmt.Errorf("%s: %w", spec.Name, err)
			}
			return nil, fmt.Errorf("%s: %w: %s", spec.Name, err, msg)
		}
		return strings.TrimSpace(stdout.String()), nil
	}
}

// envValue renders primitives as text and anything else as JSON.
func envValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool, int, int64, float64:
		return fmt.Sprint(t)
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}

// limitedBuffer keeps the first max bytes and discards the rest, so a noisy
// program never blocks on a full pipe.
type limitedBuffer struct {
	buf *bytes.Buffer
	max int
}

func (l *limitedBuffer) Write(p []byte) (int, error) {
	if room := l.max - l.buf.Len(); room > 0 {
		if len(p) > room {
			l.buf.Write(p[:room])
		} else {
			l.buf.Write(p)
		}
	}
	return len(p), nil
}
