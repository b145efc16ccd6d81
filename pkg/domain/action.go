package domain

// FinishAction is the pseudo-tool a planner calls to end the task.
// Its "reason" parameter becomes the final answer.
const FinishAction = "finish_task"

// ActionRequest is a tool call proposed by the planner.
type ActionRequest struct {
	ID     string         `json:"id" mapstructure:"id"`
	Tool   string         `json:"tool" mapstructure:"tool"`
	Params map[string]any `json:"params,omitempty" mapstructure:"params"`

	// Risk is stamped by the session from the resolved capability.
	Risk RiskClass `json:"risk,omitempty" mapstructure:"risk"`

	// Raw is the model output that produced this request. It is replayed verbatim
	// when the transcript is rendered back into a prompt.
	Raw string `json:"-"`

	// Malformed describes why the request could not be executed (unknown tool,
	// contract violation, unparseable output). Empty for valid requests.
	Malformed string `json:"malformed,omitempty"`
}

// StringParam returns a string parameter and whether it was present as a string.
func (a ActionRequest) StringParam(name string) (string, bool) {
	v, ok := a.Params[name]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Observation is the outcome of an ActionRequest.
type Observation struct {
	ActionID string `json:"action_id"`
	Tool     string `json:"tool"`
	Output   string `json:"output"`
	IsError  bool   `json:"is_error,omitempty"`
	Denied   bool   `json:"denied,omitempty"`
}

// Thought is free text produced by the planner.
type Thought struct {
	Text string `json:"text"`
}

// FinalAnswer ends the task.
type FinalAnswer struct {
	Text string `json:"text"`
}

// Plan is one planning round's result: an optional thought plus at most one of
// Action or Final.
type Plan struct {
	Thought string
	Action  *ActionRequest
	Final   *FinalAnswer
	Raw     string
}

// FollowUp is free text submitted while a task runs.
type FollowUp struct {
	Text string `json:"text"`
	// At is the transcript length when the follow-up arrived.
	At int `json:"at"`
}

// Task is the original instruction plus accumulated follow-ups.
type Task struct {
	Instruction string     `json:"instruction"`
	FollowUps   []FollowUp `json:"follow_ups,omitempty"`
}

// Clone returns a copy safe to hand to another goroutine.
func (t Task) Clone() Task {
	c := Task{Instruction: t.Instruction}
	if len(t.FollowUps) > 0 {
		c.FollowUps = append([]FollowUp(nil), t.FollowUps...)
	}
	return c
}
