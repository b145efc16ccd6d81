/*
Package runner implements the stdio side of the control channel.

It provides two connections for channel.Serve, both reading one message per
line from an io.Reader:

  - TextConn renders events for a person at a terminal. Thoughts and final
    answers go through glamour when the output is a terminal.
  - JSONConn writes one JSON event per line (NDJSON) for programs driving a
    session. Inbound lines may be plain text or a JSON string.

SanitizeInput bounds and cleans every inbound message before it reaches a
session; the HTTP adapter uses the same filter.

# Usage

	conn := runner.NewJSONConn(os.Stdin, os.Stdout)
	if err := channel.Serve(ctx, conn, agent.NewSession); err != nil {
		log.Fatal(err)
	}
*/
package runner
