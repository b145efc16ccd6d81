package domain

// SessionState is the lifecycle state of one Session.
type SessionState string

const (
	StateIdle                 SessionState = "IDLE"
	StateRunning              SessionState = "RUNNING"
	StateAwaitingConfirmation SessionState = "AWAITING_CONFIRMATION"
	StatePausedForInput       SessionState = "PAUSED_FOR_INPUT" // Reserved
	StateStopping             SessionState = "STOPPING"
	StateStopped              SessionState = "STOPPED"
	StateCompleted            SessionState = "COMPLETED"
	StateFailed               SessionState = "FAILED"
)

// IsTerminal reports whether no further work is accepted in this state.
func (s SessionState) IsTerminal() bool {
	switch s {
	case StateStopped, StateCompleted, StateFailed:
		return true
	}
	return false
}

func (s SessionState) String() string {
	return string(s)
}
