package cli

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	"github.com/aretw0/agentcore/internal/presentation/tui"
	"github.com/aretw0/agentcore/pkg/channel"
	"github.com/aretw0/agentcore/pkg/runner"
)

// RunOptions configure a local session.
type RunOptions struct {
	// Task is sent as the first message. When empty the first input line is the task.
	Task string
	// JSON switches to NDJSON events on out and JSON or plain lines on in.
	JSON bool
}

// RunSession drives one session over in and out until it ends or ctx is done.
func RunSession(ctx context.Context, env *Env, opts RunOptions, in io.Reader, out io.Writer) error {
	agent, err := env.NewAgent(nil, nil)
	if err != nil {
		return err
	}

	var conn channel.Conn
	if opts.JSON {
		conn = runner.NewJSONConn(in, out)
	} else {
		if tui.IsTerminal(out) {
			tui.PrintBanner(out)
			if opts.Task == "" {
				printSystemMessage("Type a task. While it runs, 'stop' cancels and 'resume' approves a paused action.")
			}
		}
		conn = runner.NewTextConn(in, out)
	}
	if task := strings.TrimSpace(opts.Task); task != "" {
		conn = newTaskConn(conn, task)
	}

	sc := NewSignalContext(ctx)
	defer sc.Release()

	err = channel.Serve(sc, conn, agent.NewSession, channel.WithLogger(env.Logger))
	if sig := sc.Signal(); sig != nil {
		env.Logger.Info("Session interrupted", "signal", sig.String())
	}
	return err
}

// taskConn delivers a task given on the command line as the first message.
// End of input after that means no more commands rather than a lost client,
// so the session keeps running until it finishes on its own.
type taskConn struct {
	channel.Conn
	task string

	mu     sync.Mutex
	sent   bool
	closed chan struct{}
	once   sync.Once
}

func newTaskConn(conn channel.Conn, task string) *taskConn {
	return &taskConn{Conn: conn, task: task, closed: make(chan struct{})}
}

func (c *taskConn) Receive(ctx context.Context) (string, error) {
	c.mu.Lock()
	if !c.sent {
		c.sent = true
		c.mu.Unlock()
		return c.task, nil
	}
	c.mu.Unlock()

	text, err := c.Conn.Receive(ctx)
	if !errors.Is(err, io.EOF) {
		return text, err
	}
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-c.closed:
		return "", io.ErrClosedPipe
	}
}

func (c *taskConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return c.Conn.Close()
}
