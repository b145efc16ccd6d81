/*
Package domain contains the core types of the agent execution core.

It defines the vocabulary shared by the planner, the guardrail, the tool registry and the
session state machine. This package is kept pure and free of I/O, following Hexagonal
Architecture principles.

# Key Entities

  - Task: the user's instruction plus follow-up text submitted while it runs.
  - Transcript: the append-only list of Steps (thoughts, action requests, observations, final answer).
  - Decision: the guardrail verdict (ALLOW, DENY, CONFIRM) for one ActionRequest.
  - SessionState: the lifecycle state of one Session.
  - Event: one record of the outbound stream a client observes.
*/
package domain
