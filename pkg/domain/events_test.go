package domain_test

import (
	"encoding/json"
	"testing"

	"github.com/aretw0/agentcore/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvent_WireShapes(t *testing.T) {
	tests := []struct {
		name  string
		event domain.Event
		want  string
	}{
		{
			name:  "thought",
			event: domain.ThoughtEvent("I should list the files"),
			want:  `{"thought":"I should list the files"}`,
		},
		{
			name:  "action",
			event: domain.ActionEvent("list_files", map[string]any{"path": "/tmp"}),
			want:  `{"action":"list_files","params":{"path":"/tmp"}}`,
		},
		{
			name:  "action without params",
			event: domain.ActionEvent("browser_extract_text", nil),
			want:  `{"action":"browser_extract_text","params":{}}`,
		},
		{
			name:  "action result",
			event: domain.ResultEvent(domain.Observation{Tool: "read_file", Output: "hello"}),
			want:  `{"type":"action_result","tool":"read_file","output":"hello"}`,
		},
		{
			name:  "failed action result",
			event: domain.ResultEvent(domain.Observation{Tool: "delete_file", Output: "denied: protected path", IsError: true}),
			want:  `{"type":"action_result","tool":"delete_file","output":"denied: protected path","is_error":true}`,
		},
		{
			name:  "error",
			event: domain.ErrorEvent("model unreachable"),
			want:  `{"type":"error","message":"model unreachable"}`,
		},
		{
			name:  "status",
			event: domain.StatusEvent("Task completed.", domain.StateCompleted),
			want:  `{"type":"status","message":"Task completed.","state":"COMPLETED"}`,
		},
		{
			name:  "pause",
			event: domain.PauseEvent("Confirm: sensitive capability", domain.ActionRequest{Tool: "delete_file", Params: map[string]any{"path": "a"}}),
			want:  `{"type":"pause","action":"delete_file","params":{"path":"a"},"message":"Confirm: sensitive capability","state":"AWAITING_CONFIRMATION"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.event)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(data))

			var back domain.Event
			require.NoError(t, json.Unmarshal(data, &back))
			assert.Equal(t, tt.event.Kind, back.Kind)
			assert.Equal(t, tt.event.Text, back.Text)
			assert.Equal(t, tt.event.State, back.State)
		})
	}
}

func TestEvent_CarriesSessionAndSequence(t *testing.T) {
	ev := domain.ThoughtEvent("hi")
	ev.SessionID = "s-1"
	ev.Seq = 7

	data, err := json.Marshal(ev)
	require.NoError(t, err)
	assert.JSONEq(t, `{"thought":"hi","session_id":"s-1","seq":7}`, string(data))
}

func TestEvent_UnknownKind(t *testing.T) {
	_, err := json.Marshal(domain.Event{Kind: "bogus"})
	assert.Error(t, err)

	var ev domain.Event
	assert.Error(t, json.Unmarshal([]byte(`{"foo":1}`), &ev))
}
