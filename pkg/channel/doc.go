/*
Package channel binds one Session to one bidirectional connection.

The client's first message is the task. Every later message is a command:

	stop      cancel the task
	resume    approve the pending request
	<text>    a follow-up appended to the task

Matching is exact and case-sensitive. Events flow back in emission order
through a single writer, so a slow client never blocks the session. A Conn
only moves strings in and events out; WebSocket and stdio transports live in
pkg/adapters/http and pkg/runner.
*/
package channel
