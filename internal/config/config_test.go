package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aretw0/agentcore/pkg/guardrail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func write(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "ollama", cfg.LLM.Provider)
	assert.Equal(t, "http://localhost:11434", cfg.LLM.Host)
	assert.Equal(t, "llama3", cfg.LLM.Model)
	assert.Equal(t, 3, cfg.Session.MaxConsecutiveFailures)
	assert.Equal(t, 5*time.Second, cfg.Session.StopGrace.Std())
	assert.Equal(t, 30*time.Second, cfg.Tools.Timeout.Std())
	assert.Equal(t, ":8000", cfg.Server.Addr)
	assert.Equal(t, guardrail.DefaultConfig().Tools, cfg.Guardrail.Tools)
}

func TestLoad_LegacyConfigTOML(t *testing.T) {
	path := write(t, "config.toml", `
[llm]
host = "http://gpu-box:11434"
model = "mistral"

[security]
protected_files = ["secrets.txt", ".env"]
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://gpu-box:11434", cfg.LLM.Host)
	assert.Equal(t, "mistral", cfg.LLM.Model)
	assert.Contains(t, cfg.Guardrail.ProtectedPatterns, "secrets.txt")
	count := 0
	for _, p := range cfg.Guardrail.ProtectedPatterns {
		if p == ".env" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestLoad_GuardrailSection(t *testing.T) {
	path := write(t, "agentcore.toml", `
[guardrail]
allowed_domains = ["example.com"]

[guardrail.tools.shell]
class = "deny"

[session]
stop_grace = "250ms"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"example.com"}, cfg.Guardrail.AllowedDomains)
	assert.Equal(t, guardrail.ClassDeny, cfg.Guardrail.Tools["shell"].Class)
	assert.Equal(t, guardrail.ClassFilesystem, cfg.Guardrail.Tools["read_file"].Class)
	assert.Equal(t, 250*time.Millisecond, cfg.Session.StopGrace.Std())

	p, err := cfg.Policy()
	require.NoError(t, err)
	rule, ok := p.Rule("shell")
	require.True(t, ok)
	assert.Equal(t, guardrail.ClassDeny, rule.Class)
}

func TestLoad_YAMLAndJSON(t *testing.T) {
	yamlPath := write(t, "agentcore.yaml", `
llm:
  provider: openai
  model: gpt-4o-mini
  base_url: http://localhost:8080/v1
server:
  allowed_origins: ["https://app.example"]
log:
  level: debug
  format: json
`)
	cfg, err := Load(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, []string{"https://app.example"}, cfg.Server.AllowedOrigins)
	logOpts := cfg.LoggerOptions()
	assert.Equal(t, "DEBUG", logOpts.Level.String())
	assert.Equal(t, "json", logOpts.Format)

	jsonPath := write(t, "agentcore.json", `{"tools": {"work_dir": "/srv", "timeout": "1m", "browser": false}}`)
	cfg, err = Load(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, "/srv", cfg.Tools.WorkDir)
	assert.Equal(t, time.Minute, cfg.Tools.Timeout.Std())
	assert.False(t, cfg.Tools.Browser)

	empty := write(t, "agentcore.yml", "")
	_, err = Load(empty)
	assert.NoError(t, err)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("AGENTCORE_LLM_PROVIDER", "anthropic")
	t.Setenv("AGENTCORE_SERVER_ADDR", "127.0.0.1:9000")
	t.Setenv("AGENTCORE_MAX_INPUT_SIZE", "1024")
	t.Setenv("AGENTCORE_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("ANTHROPIC_API_KEY", "sk-test")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "anthropic", cfg.LLM.Provider)
	assert.Equal(t, "sk-test", cfg.LLM.APIKey)
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
	assert.Equal(t, 1024, cfg.Server.MaxInputSize)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)

	t.Setenv("AGENTCORE_MAX_INPUT_SIZE", "lots")
	_, err = Load("")
	assert.Error(t, err)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"unknown provider", "agentcore.toml", "[llm]\nprovider = \"skynet\""},
		{"bad temperature", "agentcore.toml", "[llm]\ntemperature = 7.0"},
		{"zero failures", "agentcore.toml", "[session]\nmax_consecutive_failures = 0"},
		{"bad level", "agentcore.toml", "[log]\nlevel = \"loud\""},
		{"bad log format", "agentcore.toml", "[log]\nformat = \"xml\""},
		{"bad duration", "agentcore.toml", "[session]\nstop_grace = \"soon\""},
		{"bad rule class", "agentcore.toml", "[guardrail.tools.x]\nclass = \"maybe\""},
		{"no roots", "agentcore.json", `{"guardrail": {"allowed_roots": []}}`},
		{"unknown yaml key", "agentcore.yaml", "llm:\n  modle: x\n"},
		{"unsupported format", "agentcore.ini", "x=1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(write(t, tt.file, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestLocate(t *testing.T) {
	dir := t.TempDir()
	assert.Empty(t, Locate(dir))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), nil, 0o644))
	assert.Equal(t, filepath.Join(dir, "config.toml"), Locate(dir))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "agentcore.yaml"), nil, 0o644))
	assert.Equal(t, filepath.Join(dir, "agentcore.yaml"), Locate(dir))
}

func TestLoadEnv(t *testing.T) {
	path := write(t, ".env", "AGENTCORE_TEST_KEY=from-file\n")
	t.Setenv("AGENTCORE_TEST_KEY", "")
	os.Unsetenv("AGENTCORE_TEST_KEY")

	require.NoError(t, LoadEnv(path, filepath.Join(t.TempDir(), "missing.env")))
	assert.Equal(t, "from-file", os.Getenv("AGENTCORE_TEST_KEY"))
}

func TestLoadPolicy(t *testing.T) {
	path := write(t, "agentcore.toml", "[guardrail.tools.read_file]\nclass = \"deny\"\n")
	p, err := LoadPolicy(path)
	require.NoError(t, err)
	rule, ok := p.Rule("read_file")
	require.True(t, ok)
	assert.Equal(t, guardrail.ClassDeny, rule.Class)

	_, err = LoadPolicy(write(t, "agentcore.toml", "[log]\nlevel = \"loud\""))
	assert.Error(t, err)
}

func TestLoad_Commands(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tools.yaml"), []byte("tools:\n  - name: lint\n    command: golangci-lint\n"), 0o644))
	path := filepath.Join(dir, "agentcore.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[tools]
commands_file = "tools.yaml"

[[tools.commands]]
name = "run_tests"
command = "go"
args = ["test", "./..."]
risk = "safe"

[[tools.commands.params]]
name = "pkg"
type = "string"
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Len(t, cfg.Tools.Commands, 2)
	assert.Equal(t, "run_tests", cfg.Tools.Commands[0].Name)
	assert.Equal(t, "pkg", cfg.Tools.Commands[0].Params[0].Name)
	assert.Equal(t, "lint", cfg.Tools.Commands[1].Name)

	_, err = Load(write(t, "agentcore.toml", "[[tools.commands]]\nname = \"x\"\n"))
	assert.Error(t, err)
}
