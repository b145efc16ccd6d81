package domain

import (
	"encoding/json"
	"fmt"
)

// EventKind defines the category of an outbound event.
type EventKind string

const (
	EventThought      EventKind = "thought"
	EventAction       EventKind = "action"
	EventActionResult EventKind = "action_result"
	EventPause        EventKind = "pause"
	EventError        EventKind = "error"
	EventStatus       EventKind = "status"
)

// Event is one record of the stream a client observes.
// Its JSON form follows the wire shapes of the control channel:
//
//	{"thought": ...}
//	{"action": ..., "params": {...}}
//	{"type": "action_result", "tool": ..., "output": ...}
//	{"type": "pause" | "error" | "status", "message": ...}
type Event struct {
	Kind      EventKind
	SessionID string
	Seq       uint64

	// Text is the thought, the tool output or the message, depending on Kind.
	Text    string
	Tool    string
	Params  map[string]any
	IsError bool

	// State is set on status and pause events that record a transition.
	State SessionState
}

func ThoughtEvent(text string) Event {
	return Event{Kind: EventThought, Text: text}
}

func ActionEvent(tool string, params map[string]any) Event {
	return Event{Kind: EventAction, Tool: tool, Params: params}
}

func ResultEvent(obs Observation) Event {
	return Event{Kind: EventActionResult, Tool: obs.Tool, Text: obs.Output, IsError: obs.IsError}
}

// PauseEvent names the pending request so a client can show what it is approving.
// It is the single event of the transition into AWAITING_CONFIRMATION.
func PauseEvent(message string, req ActionRequest) Event {
	return Event{Kind: EventPause, Text: message, Tool: req.Tool, Params: req.Params, State: StateAwaitingConfirmation}
}

func ErrorEvent(message string) Event {
	return Event{Kind: EventError, Text: message}
}

func StatusEvent(message string, state SessionState) Event {
	return Event{Kind: EventStatus, Text: message, State: state}
}

type wireEvent struct {
	Type      string          `json:"type,omitempty"`
	Thought   *string         `json:"thought,omitempty"`
	Action    *string         `json:"action,omitempty"`
	Params    *map[string]any `json:"params,omitempty"`
	Tool      string          `json:"tool,omitempty"`
	Output    *string         `json:"output,omitempty"`
	Message   *string         `json:"message,omitempty"`
	IsError   bool            `json:"is_error,omitempty"`
	State     SessionState    `json:"state,omitempty"`
	SessionID string          `json:"session_id,omitempty"`
	Seq       uint64          `json:"seq,omitempty"`
}

// MarshalJSON encodes the event in its wire shape.
func (e Event) MarshalJSON() ([]byte, error) {
	w := wireEvent{SessionID: e.SessionID, Seq: e.Seq}
	text := e.Text
	switch e.Kind {
	case EventThought:
		w.Thought = &text
	case EventAction:
		tool := e.Tool
		params := e.Params
		if params == nil {
			params = map[string]any{}
		}
		w.Action, w.Params = &tool, &params
	case EventActionResult:
		w.Type, w.Tool, w.Output, w.IsError = string(e.Kind), e.Tool, &text, e.IsError
	case EventPause:
		w.Type, w.Message, w.State = string(e.Kind), &text, e.State
		if e.Tool != "" {
			tool := e.Tool
			params := e.Params
			if params == nil {
				params = map[string]any{}
			}
			w.Action, w.Params = &tool, &params
		}
	case EventError:
		w.Type, w.Message = string(e.Kind), &text
	case EventStatus:
		w.Type, w.Message, w.State = string(e.Kind), &text, e.State
	default:
		return nil, fmt.Errorf("unknown event kind %q", e.Kind)
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes any wire shape back into an Event.
func (e *Event) UnmarshalJSON(data []byte) error {
	var w wireEvent
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*e = Event{SessionID: w.SessionID, Seq: w.Seq, Tool: w.Tool, IsError: w.IsError, State: w.State}
	if w.Params != nil {
		e.Params = *w.Params
	}
	if w.Action != nil {
		e.Tool = *w.Action
	}
	switch {
	case w.Type != "":
		e.Kind = EventKind(w.Type)
		switch {
		case w.Output != nil:
			e.Text = *w.Output
		case w.Message != nil:
			e.Text = *w.Message
		}
	case w.Thought != nil:
		e.Kind, e.Text = EventThought, *w.Thought
	case w.Action != nil:
		e.Kind = EventAction
	default:
		return fmt.Errorf("unrecognized event: %s", data)
	}
	return nil
}
