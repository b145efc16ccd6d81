package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aretw0/agentcore/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEnv(t *testing.T, content string) *Env {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "agentcore.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	env, err := Setup(Options{ConfigPath: path, WorkDir: dir, EnvFile: filepath.Join(dir, ".env")})
	require.NoError(t, err)
	return env
}

func TestSetup(t *testing.T) {
	env := testEnv(t, "[log]\nlevel = \"warn\"\n")
	assert.Equal(t, "warn", env.Config.Log.Level)
	assert.NotEmpty(t, env.Config.Tools.WorkDir)
	assert.Nil(t, env.Redis())

	_, err := Setup(Options{ConfigPath: filepath.Join(t.TempDir(), "missing.toml")})
	assert.Error(t, err)
}

func TestListTools(t *testing.T) {
	env := testEnv(t, "[tools]\nbrowser = false\n")

	var out bytes.Buffer
	require.NoError(t, ListTools(env, &out, false))
	assert.Contains(t, out.String(), "TOOL")
	assert.Contains(t, out.String(), "delete_file")
	assert.NotContains(t, out.String(), "browser_attach")

	out.Reset()
	require.NoError(t, ListTools(env, &out, true))
	var specs []domain.ToolSpec
	require.NoError(t, json.Unmarshal(out.Bytes(), &specs))
	assert.Len(t, specs, 4)
}

func TestCheck(t *testing.T) {
	env := testEnv(t, "[llm]\nprovider = \"anthropic\"\n[guardrail.tools.write_file]\nclass = \"deny\"\n")
	root := env.Config.Tools.WorkDir
	env.Config.Guardrail.AllowedRoots = []string{root}
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("x"), 0o644))

	tests := []struct {
		name    string
		tool    string
		params  string
		verdict domain.Verdict
	}{
		{"read inside root", "read_file", `{"path": "notes.txt"}`, domain.VerdictAllow},
		{"read outside root", "read_file", `{"path": "/etc/passwd"}`, domain.VerdictDeny},
		{"denied class", "write_file", `{"path": "a.txt", "content": "x"}`, domain.VerdictDeny},
		{"unknown tool", "shell", "", domain.VerdictConfirm},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			d, err := Check(env, &out, tt.tool, tt.params)
			require.NoError(t, err)
			assert.Equal(t, tt.verdict, d.Verdict)
			assert.Contains(t, out.String(), tt.tool)
		})
	}

	_, err := Check(env, io.Discard, "read_file", "[1, 2]")
	assert.ErrorIs(t, err, domain.ErrInvalidParams)
}

type scriptConn struct {
	lines []string
}

func (c *scriptConn) Receive(ctx context.Context) (string, error) {
	if len(c.lines) == 0 {
		return "", io.EOF
	}
	line := c.lines[0]
	c.lines = c.lines[1:]
	return line, nil
}

func (c *scriptConn) Send(context.Context, domain.Event) error { return nil }
func (c *scriptConn) Close() error                            { return nil }

func TestTaskConn(t *testing.T) {
	conn := newTaskConn(&scriptConn{lines: []string{"resume"}}, "clean up")
	ctx := context.Background()

	text, err := conn.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, "clean up", text)

	text, err = conn.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, "resume", text)

	// End of input blocks until the connection closes.
	done := make(chan error, 1)
	go func() {
		_, err := conn.Receive(ctx)
		done <- err
	}()
	select {
	case <-done:
		t.Fatal("Receive returned before Close")
	case <-time.After(50 * time.Millisecond):
	}
	require.NoError(t, conn.Close())
	select {
	case err := <-done:
		assert.ErrorIs(t, err, io.ErrClosedPipe)
	case <-time.After(time.Second):
		t.Fatal("Receive did not return after Close")
	}
}

func TestSignalContext_Release(t *testing.T) {
	sc := NewSignalContext(context.Background())
	sc.Release()
	<-sc.Done()
	assert.Nil(t, sc.Signal())
	sc.Release()
}
