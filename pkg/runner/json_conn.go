package runner

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"sync"

	"github.com/aretw0/agentcore/pkg/domain"
)

// JSONConn is a machine-facing stdio connection: events are written as
// JSON lines in their wire shape. Input lines may be plain text or a JSON
// string ("resume").
type JSONConn struct {
	lines *lineReader
	enc   *json.Encoder
	mu    sync.Mutex
}

// NewJSONConn reads from r and writes to w; nil means stdin and stdout.
func NewJSONConn(r io.Reader, w io.Writer) *JSONConn {
	if r == nil {
		r = os.Stdin
	}
	if w == nil {
		w = os.Stdout
	}
	return &JSONConn{lines: newLineReader(r), enc: json.NewEncoder(w)}
}

func (c *JSONConn) Receive(ctx context.Context) (string, error) {
	text, err := c.lines.next(ctx)
	if err != nil {
		return "", err
	}
	var val string
	if err := json.Unmarshal([]byte(text), &val); err == nil {
		return val, nil
	}
	return text, nil
}

func (c *JSONConn) Send(_ context.Context, e domain.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enc.Encode(e)
}

func (c *JSONConn) Close() error {
	c.lines.close()
	return nil
}
