/*
Package session implements the agent session state machine.

A Session owns one task from start to a terminal state. Its loop is strictly sequential:

	plan -> (thought) -> action -> guardrail -> invoke | deny | pause -> observation -> plan ...

Commands (Stop, Resume, FollowUp) arrive from other goroutines and are observed while the
loop waits on the Brain, on a tool, or on a confirmation. Every transcript append and every
state transition produces exactly one event, emitted under the session mutex, so the event
stream is a faithful replay of the transcript and of the state machine.

States:

	IDLE -> RUNNING -> COMPLETED
	             |  -> FAILED
	             |  <-> AWAITING_CONFIRMATION
	             '-> STOPPING -> STOPPED
*/
package session
