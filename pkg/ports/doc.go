/*
Package ports defines the driven ports (interfaces) of the agent execution core.

These interfaces decouple the session state machine from external implementations, allowing
it to work with any language model backend, event transport and lock backend.

# Key Interfaces

  - Brain: produces the next step from the task and transcript.
  - EventSink: receives the session's outbound events, in emission order.
  - DistributedLocker: provides exclusive access to shared external resources (e.g. a browser).
*/
package ports
