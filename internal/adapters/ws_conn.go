package adapters

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/studyhub-app/studyhub/internal/app"
	"github.com/studyhub-app/studyhub/internal/core"
	"github.com/studyhub-app/studyhub/internal/domain"
)

var (
	ErrBackpressure = errors.New("backpressure")
	ErrConnClosed   = errors.New("connection closed")
)

const (
	writeWait         = 5 * time.Second
	defaultPingPeriod = 54 * time.Second
)

// WSConn is an indirection over *websocket.Conn to ease testing.
type WSConn interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(mt int, data []byte) error
	SetReadLimit(limit int64)
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(string) error)
	Close() error
}

// WSConnection is a transport endpoint. It implements
// core.SignalConnection: one buffered send queue drained by a single
// write pump, so frames to this recipient are delivered in send order.
type WSConnection struct {
	id   domain.ConnID
	conn WSConn
	send chan core.Frame
	done chan struct{}
	ping time.Duration
	once sync.Once
}

func NewWSConnection(id domain.ConnID, conn WSConn, buffer int, ping time.Duration) *WSConnection {
	if buffer <= 0 {
		buffer = 256
	}
	if ping <= 0 {
		ping = defaultPingPeriod
	}
	return &WSConnection{
		id:   id,
		conn: conn,
		send: make(chan core.Frame, buffer),
		done: make(chan struct{}),
		ping: ping,
	}
}

func (c *WSConnection) ID() domain.ConnID { return c.id }

// TrySend never blocks; a full queue means this recipient is too slow and
// the frame is dropped for it alone. After Close it reports ErrConnClosed.
// The send channel itself is never closed: the hub goroutine may still
// hold a reference while the transport is torn down.
func (c *WSConnection) TrySend(f core.Frame) error {
	select {
	case <-c.done:
		return ErrConnClosed
	default:
	}
	select {
	case c.send <- f:
		return nil
	case <-c.done:
		return ErrConnClosed
	default:
		return ErrBackpressure
	}
}

func (c *WSConnection) Close() {
	c.once.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

// StartWriteLoop pumps frames to the network and keeps the link alive
// with periodic pings. The adapter owns the transport resources and
// closes them on exit.
func (c *WSConnection) StartWriteLoop(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(c.ping)
		defer ticker.Stop()
		defer c.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case <-c.done:
				return
			case data := <-c.send:
				_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
					return
				}
			case <-ticker.C:
				_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()
}

// StartReadLoop reads frames and forwards them to the hub. Each pong
// extends the read deadline, so a peer that stops answering pings is
// detected within one keepalive window. On exit the disconnect
// reconciler is scheduled, so memberships never leak.
func (c *WSConnection) StartReadLoop(ctx context.Context, hub *app.Hub) {
	go func() {
		defer func() {
			hub.Disconnect(c.id)
			c.Close()
		}()
		wait := c.ping + writeWait
		_ = c.conn.SetReadDeadline(time.Now().Add(wait))
		c.conn.SetPongHandler(func(string) error {
			return c.conn.SetReadDeadline(time.Now().Add(wait))
		})
		for {
			select {
			case <-ctx.Done():
				return
			default:
				_, data, err := c.conn.ReadMessage()
				if err != nil {
					return
				}
				if err := hub.HandleFrame(c.id, data); err != nil {
					log.Debug().Err(err).Str("module", "adapters.ws").Str("conn", string(c.id)).Msg("frame rejected")
				}
			}
		}
	}()
}
