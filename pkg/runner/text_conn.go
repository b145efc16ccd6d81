package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/aretw0/agentcore/internal/presentation/tui"
	"github.com/aretw0/agentcore/pkg/domain"
	"github.com/muesli/termenv"
)

// TextConn is a human-facing stdio connection: one line in per message,
// events rendered as text. Thoughts and the final answer are markdown.
type TextConn struct {
	lines  *lineReader
	w      io.Writer
	out    *termenv.Output
	render func(string) (string, error)

	mu sync.Mutex
}

// TextOption configures a TextConn.
type TextOption func(*TextConn)

// WithRenderer sets the markdown renderer. Defaults to glamour on a terminal
// and plain text otherwise.
func WithRenderer(render func(string) (string, error)) TextOption {
	return func(c *TextConn) {
		c.render = render
	}
}

// NewTextConn reads from r and writes to w; nil means stdin and stdout.
func NewTextConn(r io.Reader, w io.Writer, opts ...TextOption) *TextConn {
	if r == nil {
		r = os.Stdin
	}
	if w == nil {
		w = os.Stdout
	}
	c := &TextConn{
		lines: newLineReader(r),
		w:     w,
		out:   termenv.NewOutput(w),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.render == nil {
		c.render = tui.Plain
		if tui.IsTerminal(w) {
			c.render = tui.NewRenderer(tui.Width(w))
		}
	}
	return c
}

func (c *TextConn) Receive(ctx context.Context) (string, error) {
	return c.lines.next(ctx)
}

func (c *TextConn) Send(_ context.Context, e domain.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := fmt.Fprintln(c.w, c.format(e))
	return err
}

func (c *TextConn) Close() error {
	c.lines.close()
	return nil
}

func (c *TextConn) format(e domain.Event) string {
	switch e.Kind {
	case domain.EventThought:
		return c.markdown(e.Text)
	case domain.EventAction:
		if e.Tool == domain.FinishAction {
			reason, _ := e.Params["reason"].(string)
			return c.markdown(reason)
		}
		return c.out.String(fmt.Sprintf("-> %s %s", e.Tool, compact(e.Params))).Foreground(c.out.Color("6")).String()
	case domain.EventActionResult:
		text := fmt.Sprintf("<- %s: %s", e.Tool, e.Text)
		if e.IsError {
			return c.out.String(text).Foreground(c.out.Color("1")).String()
		}
		return text
	case domain.EventPause:
		return c.out.String(e.Text).Foreground(c.out.Color("3")).Bold().String()
	case domain.EventError:
		return c.out.String("Error: " + e.Text).Foreground(c.out.Color("1")).String()
	case domain.EventStatus:
		text := e.Text
		if e.State != "" {
			text = fmt.Sprintf("[%s] %s", e.State, e.Text)
		}
		return c.out.String(text).Faint().String()
	}
	return e.Text
}

func (c *TextConn) markdown(s string) string {
	rendered, err := c.render(s)
	if err != nil {
		return s
	}
	return strings.TrimSpace(rendered)
}

func compact(params map[string]any) string {
	if len(params) == 0 {
		return "{}"
	}
	data, err := json.Marshal(params)
	if err != nil {
		return fmt.Sprint(params)
	}
	return string(data)
}
