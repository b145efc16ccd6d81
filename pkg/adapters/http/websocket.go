package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/aretw0/agentcore/pkg/domain"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	closeGrace = time.Second
)

// ErrUnsupportedFrame is returned for binary frames; the channel speaks text.
var ErrUnsupportedFrame = errors.New("binary frames are not supported")

// wsConn adapts a WebSocket to channel.Conn: text frames in, JSON frames out.
type wsConn struct {
	ws *websocket.Conn

	writeMu sync.Mutex
	once    sync.Once
}

func newWSConn(ws *websocket.Conn, readLimit int64) *wsConn {
	if readLimit > 0 {
		ws.SetReadLimit(readLimit)
	}
	return &wsConn{ws: ws}
}

func (c *wsConn) Receive(ctx context.Context) (string, error) {
	// A past deadline unblocks ReadMessage when ctx ends.
	stop := context.AfterFunc(ctx, func() {
		_ = c.ws.SetReadDeadline(time.Now())
	})
	defer stop()

	kind, data, err := c.ws.ReadMessage()
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", err
	}
	if kind != websocket.TextMessage {
		return "", ErrUnsupportedFrame
	}
	return string(data), nil
}

func (c *wsConn) Send(_ context.Context, event domain.Event) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.ws.WriteJSON(event); err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	return nil
}

// Close sends a normal closure frame and closes the socket.
func (c *wsConn) Close() error {
	var err error
	c.once.Do(func() {
		c.writeMu.Lock()
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeGrace))
		c.writeMu.Unlock()
		err = c.ws.Close()
	})
	return err
}

func newUpgrader(origins []string) websocket.Upgrader {
	u := websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
	}
	if len(origins) == 0 {
		return u
	}
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[o] = true
	}
	u.CheckOrigin = func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || allowed["*"] || allowed[origin]
	}
	return u
}
