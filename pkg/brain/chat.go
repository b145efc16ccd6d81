package brain

import "context"

// Role is the speaker of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one chat turn.
type Message struct {
	Role    Role
	Content string
}

// ChatModel is the inference backend. Implementations must honour ctx
// cancellation and should request JSON output where the backend supports it.
type ChatModel interface {
	Chat(ctx context.Context, messages []Message) (string, error)
}

// ChatFunc adapts a function to ChatModel.
type ChatFunc func(ctx context.Context, messages []Message) (string, error)

func (f ChatFunc) Chat(ctx context.Context, messages []Message) (string, error) {
	return f(ctx, messages)
}
