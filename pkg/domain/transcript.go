package domain

import "fmt"

// StepKind tags a Step variant.
type StepKind string

const (
	StepThought     StepKind = "thought"
	StepAction      StepKind = "action"
	StepObservation StepKind = "observation"
	StepFinal       StepKind = "final"
)

// Step is one transcript entry. Exactly one payload matching Kind is set.
type Step struct {
	Kind        StepKind       `json:"kind"`
	Thought     *Thought       `json:"thought,omitempty"`
	Action      *ActionRequest `json:"action,omitempty"`
	Observation *Observation   `json:"observation,omitempty"`
	Final       *FinalAnswer   `json:"final,omitempty"`
}

func ThoughtStep(text string) Step {
	return Step{Kind: StepThought, Thought: &Thought{Text: text}}
}

func ActionStep(req ActionRequest) Step {
	return Step{Kind: StepAction, Action: &req}
}

func ObservationStep(obs Observation) Step {
	return Step{Kind: StepObservation, Observation: &obs}
}

func FinalStep(text string) Step {
	return Step{Kind: StepFinal, Final: &FinalAnswer{Text: text}}
}

// Transcript is the append-only memory of one session.
// It is not safe for concurrent use; the owning session serializes access.
type Transcript struct {
	steps []Step
	open  map[string]bool // action IDs awaiting an observation
}

// NewTranscript creates an empty transcript.
func NewTranscript() *Transcript {
	return &Transcript{open: make(map[string]bool)}
}

// Append adds a step. An Observation must answer a preceding, unanswered ActionRequest.
func (t *Transcript) Append(s Step) error {
	switch s.Kind {
	case StepThought:
		if s.Thought == nil {
			return fmt.Errorf("thought step without payload")
		}
	case StepAction:
		if s.Action == nil {
			return fmt.Errorf("action step without payload")
		}
		t.open[s.Action.ID] = true
	case StepObservation:
		if s.Observation == nil {
			return fmt.Errorf("observation step without payload")
		}
		if !t.open[s.Observation.ActionID] {
			return fmt.Errorf("%w: %q", ErrOrphanObservation, s.Observation.ActionID)
		}
		delete(t.open, s.Observation.ActionID)
	case StepFinal:
		if s.Final == nil {
			return fmt.Errorf("final step without payload")
		}
	default:
		return fmt.Errorf("unknown step kind %q", s.Kind)
	}
	t.steps = append(t.steps, s)
	return nil
}

// Steps returns a copy of the steps in append order.
func (t *Transcript) Steps() []Step {
	return append([]Step(nil), t.steps...)
}

// Len returns the number of steps.
func (t *Transcript) Len() int {
	return len(t.steps)
}
