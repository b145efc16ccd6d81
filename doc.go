/*
Package agentcore runs an LLM-driven agent that carries out a task through
guarded tool calls.

A task is handed to a Session. The session asks the Brain for the next step,
records it in an append-only transcript, puts every proposed action through
the guardrail and only then invokes the tool. Each of these steps is emitted
as an Event to whoever drives the session: a WebSocket client, a terminal or
an NDJSON pipe.

# Architecture

The core is split the way a hexagonal application is:

  - pkg/domain holds the pure types: requests, observations, decisions,
    transcript steps and events.
  - pkg/session owns the state machine (IDLE, RUNNING, AWAITING_CONFIRMATION,
    STOPPING and the terminal states) and the plan, guard, act loop.
  - pkg/guardrail decides ALLOW, DENY or CONFIRM for every request.
  - pkg/registry and pkg/toolbox hold the capabilities.
  - pkg/brain turns a transcript into a prompt and the reply into a Plan.
  - pkg/channel binds a session to a bidirectional connection; pkg/adapters
    and pkg/runner provide the connections.

# Usage

Build an Agent from a configuration and serve sessions over any channel:

	cfg, err := config.Load(config.Locate("."))
	if err != nil {
		log.Fatal(err)
	}
	agent, err := agentcore.New(cfg)
	if err != nil {
		log.Fatal(err)
	}

	conn := runner.NewTextConn(os.Stdin, os.Stdout)
	if err := channel.Serve(ctx, conn, agent.NewSession); err != nil {
		log.Fatal(err)
	}

The first line other than "stop" or "resume" is the task; a leading "resume"
is ignored and a leading "stop" closes the connection without running one.
Afterwards "stop" cancels the task, "resume" approves a pending confirmation
and any other text is forwarded to the brain as a follow-up instruction.
*/
package agentcore
