package domain

import (
	"errors"
	"fmt"
)

// ErrToolNotFound is returned when an action names no registered capability.
var ErrToolNotFound = errors.New("tool not found")

// ErrInvalidParams is returned when parameters violate a capability's contract.
var ErrInvalidParams = errors.New("invalid parameters")

// ErrSessionClosed is returned when a command reaches a session in a terminal state.
var ErrSessionClosed = errors.New("session closed")

// ErrCommandRejected is returned when a command is not accepted in the current state.
var ErrCommandRejected = errors.New("command rejected")

// ErrOrphanObservation is returned when an observation has no preceding action request.
var ErrOrphanObservation = errors.New("observation without matching action request")

// ErrInvalidPolicy is returned when a guardrail policy fails validation.
var ErrInvalidPolicy = errors.New("invalid guardrail policy")

// PlanError reports planner output that could not be turned into a step.
type PlanError struct {
	Raw    string // model output as received
	Action string // action name, if one could be decoded
	Reason string
}

func (e *PlanError) Error() string {
	return fmt.Sprintf("malformed plan: %s", e.Reason)
}
