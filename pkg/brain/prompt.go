package brain

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aretw0/agentcore/pkg/domain"
)

const systemTemplate = `You are a helpful AI assistant. Your goal is to solve the user's task by thinking step-by-step and using tools.
You must always output your response as a single valid JSON object, with these keys:
  "thought": your reasoning for the next step,
  "action": the name of the tool to call,
  "params": an object with the tool's parameters.
When the task is done, call "%s" with a "reason", or answer with {"thought": "...", "final_answer": "..."}.
When the user gives you a new instruction, you must stop your current plan and address the new instruction.
A tool call may be denied by the safety policy. Do not retry a denied call unchanged.
Available tools:
%s
`

type paramSchema struct {
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required,omitempty"`
}

type toolSchema struct {
	Description string                 `json:"description"`
	Params      map[string]paramSchema `json:"params"`
}

// toolsJSON renders the tool catalogue the way the model sees it, finish_task included.
func toolsJSON(specs []domain.ToolSpec) string {
	tools := make(map[string]toolSchema, len(specs)+1)
	for _, s := range specs {
		params := make(map[string]paramSchema, len(s.Params))
		for _, p := range s.Params {
			params[p.Name] = paramSchema{Type: string(p.Type), Description: p.Description, Required: p.Required}
		}
		tools[s.Name] = toolSchema{Description: s.Description, Params: params}
	}
	tools[domain.FinishAction] = toolSchema{
		Description: "Call when the task is complete.",
		Params:      map[string]paramSchema{"reason": {Type: "string", Required: true}},
	}
	data, err := json.MarshalIndent(tools, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(data)
}

// SystemPrompt returns the system message for specs.
func SystemPrompt(specs []domain.ToolSpec) string {
	return fmt.Sprintf(systemTemplate, domain.FinishAction, toolsJSON(specs))
}

// Render turns the task and transcript into chat messages. Follow-ups appear
// at the transcript position where they arrived.
func Render(system string, task domain.Task, steps []domain.Step) []Message {
	msgs := []Message{
		{Role: RoleSystem, Content: system},
		{Role: RoleUser, Content: "Here is my task:\n" + task.Instruction},
	}
	followUps := task.FollowUps
	flush := func(pos int) {
		for len(followUps) > 0 && followUps[0].At <= pos {
			msgs = append(msgs, Message{Role: RoleUser, Content: followUps[0].Text})
			followUps = followUps[1:]
		}
	}

	for i, step := range steps {
		flush(i)
		switch step.Kind {
		case domain.StepThought:
			// The thought is part of the raw output of the action that follows it.
			if i+1 < len(steps) && steps[i+1].Kind == domain.StepAction && steps[i+1].Action.Raw != "" {
				continue
			}
			msgs = append(msgs, Message{Role: RoleAssistant, Content: encode(map[string]any{"thought": step.Thought.Text})})
		case domain.StepAction:
			content := step.Action.Raw
			if content == "" {
				content = encode(map[string]any{"action": step.Action.Tool, "params": nonNil(step.Action.Params)})
			}
			msgs = append(msgs, Message{Role: RoleAssistant, Content: content})
		case domain.StepObservation:
			msgs = append(msgs, Message{Role: RoleUser, Content: "Tool output: " + step.Observation.Output})
		case domain.StepFinal:
			msgs = append(msgs, Message{Role: RoleAssistant, Content: encode(map[string]any{"final_answer": step.Final.Text})})
		}
	}
	flush(len(steps))
	for _, f := range followUps {
		msgs = append(msgs, Message{Role: RoleUser, Content: f.Text})
	}
	return msgs
}

func nonNil(params map[string]any) map[string]any {
	if params == nil {
		return map[string]any{}
	}
	return params
}

func encode(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}

// Trim returns a short single-line preview of s for logs.
func Trim(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
