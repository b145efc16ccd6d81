package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/agentcore/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextConn_Receive(t *testing.T) {
	c := NewTextConn(strings.NewReader("list files\n\n  resume  \nstop"), io.Discard)
	ctx := context.Background()

	for _, want := range []string{"list files", "resume", "stop"} {
		got, err := c.Receive(ctx)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := c.Receive(ctx)
	assert.ErrorIs(t, err, io.EOF)
}

func TestTextConn_ReceiveHonoursContext(t *testing.T) {
	r, w := io.Pipe()
	defer w.Close()
	c := NewTextConn(r, io.Discard)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := c.Receive(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	require.NoError(t, c.Close())
	_, err = c.Receive(context.Background())
	assert.ErrorIs(t, err, io.ErrClosedPipe)
}

func TestTextConn_Send(t *testing.T) {
	var out bytes.Buffer
	c := NewTextConn(strings.NewReader(""), &out, WithRenderer(func(s string) (string, error) {
		return "md:" + s, nil
	}))
	ctx := context.Background()

	events := []domain.Event{
		domain.StatusEvent("Task started.", domain.StateRunning),
		domain.ThoughtEvent("look around"),
		domain.ActionEvent("list_files", map[string]any{"path": "/tmp"}),
		domain.ResultEvent(domain.Observation{Tool: "list_files", Output: "a.txt"}),
		domain.PauseEvent("Confirmation required for delete_file", domain.ActionRequest{Tool: "delete_file"}),
		domain.ErrorEvent("boom"),
		domain.ActionEvent(domain.FinishAction, map[string]any{"reason": "done"}),
	}
	for _, e := range events {
		require.NoError(t, c.Send(ctx, e))
	}

	assert.Equal(t, strings.Join([]string{
		"[RUNNING] Task started.",
		"md:look around",
		`-> list_files {"path":"/tmp"}`,
		"<- list_files: a.txt",
		"Confirmation required for delete_file",
		"Error: boom",
		"md:done",
	}, "\n")+"\n", out.String())
}

func TestJSONConn(t *testing.T) {
	var out bytes.Buffer
	c := NewJSONConn(strings.NewReader("\"resume\"\nplain text\n{\"x\":1}\n"), &out)
	ctx := context.Background()

	for _, want := range []string{"resume", "plain text", `{"x":1}`} {
		got, err := c.Receive(ctx)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	e := domain.ResultEvent(domain.Observation{Tool: "read_file", Output: "hi"})
	e.SessionID, e.Seq = "s1", 4
	require.NoError(t, c.Send(ctx, e))
	require.NoError(t, c.Send(ctx, domain.ThoughtEvent("hmm")))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.JSONEq(t, `{"type":"action_result","tool":"read_file","output":"hi","session_id":"s1","seq":4}`, lines[0])

	var decoded domain.Event
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &decoded))
	assert.Equal(t, domain.EventThought, decoded.Kind)
	assert.Equal(t, "hmm", decoded.Text)
}
