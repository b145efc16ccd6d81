package brain_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/agentcore/pkg/brain"
	"github.com/aretw0/agentcore/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockModel struct {
	mock.Mock
}

func (m *mockModel) Chat(ctx context.Context, messages []brain.Message) (string, error) {
	args := m.Called(ctx, messages)
	return args.String(0), args.Error(1)
}

var listSpec = domain.ToolSpec{
	Name:        "list_files",
	Description: "Lists files.",
	Risk:        domain.RiskSafe,
	Params:      []domain.ParamSpec{{Name: "path", Type: domain.ParamString}},
}

func TestRender(t *testing.T) {
	raw := `{"thought": "check tmp", "action": "list_files", "params": {"path": "/tmp"}}`
	task := domain.Task{
		Instruction: "list files in /tmp",
		FollowUps: []domain.FollowUp{
			{Text: "only text files please", At: 3},
			{Text: "and be quick", At: 3},
		},
	}
	steps := []domain.Step{
		domain.ThoughtStep("check tmp"),
		domain.ActionStep(domain.ActionRequest{ID: "a1", Tool: "list_files", Params: map[string]any{"path": "/tmp"}, Raw: raw}),
		domain.ObservationStep(domain.Observation{ActionID: "a1", Tool: "list_files", Output: "a.txt\nb.log"}),
		domain.ThoughtStep("nothing else to do"),
	}

	msgs := brain.Render("SYSTEM", task, steps)

	assert.Equal(t, []brain.Message{
		{Role: brain.RoleSystem, Content: "SYSTEM"},
		{Role: brain.RoleUser, Content: "Here is my task:\nlist files in /tmp"},
		{Role: brain.RoleAssistant, Content: raw},
		{Role: brain.RoleUser, Content: "Tool output: a.txt\nb.log"},
		{Role: brain.RoleUser, Content: "only text files please"},
		{Role: brain.RoleUser, Content: "and be quick"},
		{Role: brain.RoleAssistant, Content: `{"thought":"nothing else to do"}`},
	}, msgs)
}

func TestRender_TrailingFollowUp(t *testing.T) {
	task := domain.Task{Instruction: "x", FollowUps: []domain.FollowUp{{Text: "late", At: 0}}}

	msgs := brain.Render("S", task, nil)

	require.Len(t, msgs, 3)
	assert.Equal(t, brain.Message{Role: brain.RoleUser, Content: "late"}, msgs[2])
}

func TestSystemPromptListsTools(t *testing.T) {
	prompt := brain.SystemPrompt([]domain.ToolSpec{listSpec})

	assert.Contains(t, prompt, `"list_files"`)
	assert.Contains(t, prompt, `"finish_task"`)
	assert.Contains(t, prompt, "valid JSON object")
}

func TestLLM_Plan(t *testing.T) {
	model := new(mockModel)
	model.On("Chat", mock.Anything, mock.MatchedBy(func(msgs []brain.Message) bool {
		return len(msgs) == 2 && msgs[0].Role == brain.RoleSystem && msgs[1].Content == "Here is my task:\nlist /tmp"
	})).Return(`{"action": "list_files", "params": {"path": "/tmp"}}`, nil).Once()

	b := brain.New(model, []domain.ToolSpec{listSpec})
	plan, err := b.Plan(context.Background(), domain.Task{Instruction: "list /tmp"}, nil)

	require.NoError(t, err)
	assert.Equal(t, "list_files", plan.Action.Tool)
	model.AssertExpectations(t)
}

func TestLLM_PlanErrors(t *testing.T) {
	model := new(mockModel)
	model.On("Chat", mock.Anything, mock.Anything).Return("", errors.New("connection refused")).Once()
	model.On("Chat", mock.Anything, mock.Anything).Return("not json", nil).Once()
	b := brain.New(model, nil, brain.WithSystemPrompt("S"))

	_, err := b.Plan(context.Background(), domain.Task{Instruction: "x"}, nil)
	assert.ErrorContains(t, err, "inference: connection refused")
	var perr *domain.PlanError
	assert.False(t, errors.As(err, &perr))

	_, err = b.Plan(context.Background(), domain.Task{Instruction: "x"}, nil)
	assert.ErrorAs(t, err, &perr)
}
