package toolbox_test

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/aretw0/agentcore/pkg/domain"
	"github.com/aretw0/agentcore/pkg/registry"
	"github.com/aretw0/agentcore/pkg/toolbox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCommandRegistry(t *testing.T, specs ...toolbox.CommandSpec) (*registry.Registry, string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("command tests use sh")
	}
	dir := t.TempDir()
	reg := registry.NewRegistry()
	require.NoError(t, toolbox.NewCommands(dir, specs).Register(reg))
	return reg, dir
}

func TestCommands_PassesParamsThroughEnv(t *testing.T) {
	reg, _ := newCommandRegistry(t, toolbox.CommandSpec{
		Name:    "greet",
		Command: "sh",
		Args:    []string{"-c", `echo "hello $AGENTCORE_ARG_NAME from $GREETER"`},
		Env:     map[string]string{"GREETER": "ops"},
		Params:  []domain.ParamSpec{{Name: "name", Type: domain.ParamString, Required: true}},
	})

	c, err := reg.Resolve("greet")
	require.NoError(t, err)
	assert.Equal(t, domain.RiskSensitive, c.Spec.Risk)

	obs := invoke(t, reg, "greet", map[string]any{"name": "; rm -rf /"})
	require.False(t, obs.IsError, obs.Output)
	assert.Equal(t, "hello ; rm -rf / from ops", obs.Output)
}

func TestCommands_RunsInWorkDir(t *testing.T) {
	reg, dir := newCommandRegistry(t, toolbox.CommandSpec{
		Name:    "where",
		Command: "pwd",
		Risk:    domain.RiskSafe,
	})
	obs := invoke(t, reg, "where", map[string]any{})
	require.False(t, obs.IsError, obs.Output)

	want, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)
	got, err := filepath.EvalSymlinks(obs.Output)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestCommands_FailureCarriesStderr(t *testing.T) {
	reg, _ := newCommandRegistry(t, toolbox.CommandSpec{
		Name:    "broken",
		Command: "sh",
		Args:    []string{"-c", "echo boom >&2; exit 3"},
	})
	obs := invoke(t, reg, "broken", map[string]any{})
	assert.True(t, obs.IsError)
	assert.Contains(t, obs.Output, "boom")
}

func TestCommands_CancelledCallStops(t *testing.T) {
	reg, _ := newCommandRegistry(t, toolbox.CommandSpec{
		Name:    "sleepy",
		Command: "sleep",
		Args:    []string{"30"},
	})
	c, err := reg.Resolve("sleepy")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	start := time.Now()
	obs := reg.Invoke(ctx, c, domain.ActionRequest{ID: "a1", Tool: "sleepy"})
	assert.True(t, obs.IsError)
	assert.Less(t, time.Since(start), 10*time.Second)
}

func TestCommands_RejectsBadParamName(t *testing.T) {
	reg := registry.NewRegistry()
	err := toolbox.NewCommands(t.TempDir(), []toolbox.CommandSpec{{
		Name:    "bad",
		Command: "true",
		Params:  []domain.ParamSpec{{Name: "a-b", Type: domain.ParamString}},
	}}).Register(reg)
	assert.Error(t, err)
}

func TestLoadCommands(t *testing.T) {
	dir := t.TempDir()

	specs, err := toolbox.LoadCommands(filepath.Join(dir, "missing.yaml"))
	require.NoError(t, err)
	assert.Empty(t, specs)

	yamlPath := filepath.Join(dir, "tools.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(`
tools:
  - name: run_tests
    command: go
    args: ["test", "./..."]
    risk: safe
  - name: deploy
    command: ./deploy.sh
    params:
      - name: env
        type: string
        required: true
`), 0o644))
	specs, err = toolbox.LoadCommands(yamlPath)
	require.NoError(t, err)
	require.Len(t, specs, 2)
	assert.Equal(t, "run_tests", specs[0].Name)
	assert.Equal(t, domain.RiskSafe, specs[0].Risk)
	assert.Equal(t, []string{"test", "./..."}, specs[0].Args)
	assert.True(t, specs[1].Params[0].Required)

	jsonPath := filepath.Join(dir, "tools.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"tools": [{"name": "lint", "command": "golangci-lint"}]}`), 0o644))
	specs, err = toolbox.LoadCommands(jsonPath)
	require.NoError(t, err)
	require.Len(t, specs, 1)
	assert.Equal(t, "lint", specs[0].Name)

	require.NoError(t, os.WriteFile(jsonPath, []byte(`{`), 0o644))
	_, err = toolbox.LoadCommands(jsonPath)
	assert.Error(t, err)
}
