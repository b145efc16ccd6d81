package brain

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/aretw0/agentcore/pkg/domain"
)

// Parse decodes one model response into a Plan.
// Text around the JSON object (such as markdown fences) is ignored.
func Parse(raw string) (domain.Plan, error) {
	fail := func(action, reason string) (domain.Plan, error) {
		return domain.Plan{}, &domain.PlanError{Raw: raw, Action: action, Reason: reason}
	}

	body := extractObject(raw)
	if body == "" {
		return fail("", "output is not a JSON object")
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(body), &fields); err != nil {
		return fail("", "output is not a JSON object")
	}
	if len(fields) == 0 {
		return fail("", "empty object")
	}

	plan := domain.Plan{Raw: raw}
	if t, ok := fields["thought"]; ok {
		plan.Thought = text(t)
	}

	if f, ok := fields["final_answer"]; ok && !isNull(f) {
		plan.Final = &domain.FinalAnswer{Text: text(f)}
		return plan, nil
	}

	a, ok := fields["action"]
	if !ok || isNull(a) {
		return fail("", "response has neither action nor final_answer")
	}
	var action string
	if err := json.Unmarshal(a, &action); err != nil {
		return fail("", "action is not a string")
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return fail("", "action is empty")
	}

	params := map[string]any{}
	if p, ok := fields["params"]; ok && !isNull(p) {
		if err := json.Unmarshal(p, &params); err != nil || params == nil {
			return fail(action, "params is not an object")
		}
	}

	if action == domain.FinishAction {
		reason, _ := params["reason"].(string)
		plan.Final = &domain.FinalAnswer{Text: reason}
		return plan, nil
	}
	plan.Action = &domain.ActionRequest{Tool: action, Params: params, Raw: raw}
	return plan, nil
}

// extractObject returns the outermost {...} span of s, or "".
func extractObject(s string) string {
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end < start {
		return ""
	}
	return s[start : end+1]
}

func isNull(m json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(m), []byte("null"))
}

// text decodes a JSON string, or returns other JSON values verbatim.
func text(m json.RawMessage) string {
	var s string
	if err := json.Unmarshal(m, &s); err == nil {
		return s
	}
	return string(bytes.TrimSpace(m))
}
