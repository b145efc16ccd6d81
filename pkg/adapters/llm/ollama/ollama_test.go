package ollama_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aretw0/agentcore/pkg/adapters/llm/ollama"
	"github.com/aretw0/agentcore/pkg/brain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModel_Chat(t *testing.T) {
	var got struct {
		Model    string `json:"model"`
		Format   any    `json:"format"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"model":   "llama3",
			"message": map[string]string{"role": "assistant", "content": `{"action":"list_files"}`},
			"done":    true,
		})
	}))
	defer srv.Close()

	m, err := ollama.New(ollama.Config{Host: srv.URL})
	require.NoError(t, err)

	out, err := m.Chat(context.Background(), []brain.Message{
		{Role: brain.RoleSystem, Content: "S"},
		{Role: brain.RoleUser, Content: "Here is my task:\nx"},
	})

	require.NoError(t, err)
	assert.Equal(t, `{"action":"list_files"}`, out)
	assert.Equal(t, "llama3", got.Model)
	assert.Equal(t, "json", got.Format)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "user", got.Messages[1].Role)
}
