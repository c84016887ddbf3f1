package http

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
)

// wsConn adapts a websocket to domain.Conn
type wsConn struct {
	id     string
	c      *websocket.Conn
	broken atomic.Bool
	once   sync.Once
}

func newWSConn(c *websocket.Conn) *wsConn { return &wsConn{id: uuid.NewString(), c: c} }

func (w *wsConn) ID() string { return w.id }

func (w *wsConn) Send(ctx context.Context, v any) error {
	if err := wsjson.Write(ctx, w.c, v); err != nil {
		w.broken.Store(true)
		return err
	}
	return nil
}

func (w *wsConn) Closed() bool { return w.broken.Load() }

func (w *wsConn) Close(reason string) {
	w.broken.Store(true)
	w.once.Do(func() { _ = w.c.Close(websocket.StatusNormalClosure, reason) })
}
