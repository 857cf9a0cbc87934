package adapters

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/studyhub-app/studyhub/internal/app"
	"github.com/studyhub-app/studyhub/internal/core"
)

// stubSocket stands in for *websocket.Conn; it records control-plane
// calls so tests can observe keepalive behavior and teardown.
type stubSocket struct {
	mu            sync.Mutex
	writes        []int
	readDeadlines int
	pongHandler   func(string) error
	closed        bool
}

func (s *stubSocket) ReadMessage() (int, []byte, error) {
	return 0, nil, errors.New("no frames")
}

func (s *stubSocket) WriteMessage(mt int, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes = append(s.writes, mt)
	return nil
}

func (s *stubSocket) SetReadLimit(int64) {}

func (s *stubSocket) SetReadDeadline(time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readDeadlines++
	return nil
}

func (s *stubSocket) SetWriteDeadline(time.Time) error { return nil }

func (s *stubSocket) SetPongHandler(h func(string) error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pongHandler = h
}

func (s *stubSocket) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *stubSocket) snapshot() (writes []int, deadlines int, pong func(string) error, closed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int(nil), s.writes...), s.readDeadlines, s.pongHandler, s.closed
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestTrySendAfterCloseReturnsError(t *testing.T) {
	sock := &stubSocket{}
	c := NewWSConnection("c1", sock, 4, 0)

	if err := c.TrySend(core.Frame(`{"type":"x"}`)); err != nil {
		t.Fatalf("send on a live connection: %v", err)
	}

	c.Close()
	// The hub may still hold this endpoint mid-broadcast; sending must
	// degrade to an error, never a panic.
	if err := c.TrySend(core.Frame(`{"type":"y"}`)); !errors.Is(err, ErrConnClosed) {
		t.Fatalf("expected ErrConnClosed, got %v", err)
	}
	c.Close() // idempotent
	if _, _, _, closed := sock.snapshot(); !closed {
		t.Error("underlying socket not closed")
	}
}

func TestTrySendReportsBackpressure(t *testing.T) {
	c := NewWSConnection("c1", &stubSocket{}, 1, 0)
	if err := c.TrySend(core.Frame(`a`)); err != nil {
		t.Fatalf("first send: %v", err)
	}
	if err := c.TrySend(core.Frame(`b`)); !errors.Is(err, ErrBackpressure) {
		t.Fatalf("expected ErrBackpressure on a full queue, got %v", err)
	}
}

func TestWritePumpDrainsQueueAndStopsOnClose(t *testing.T) {
	sock := &stubSocket{}
	c := NewWSConnection("c1", sock, 4, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c.StartWriteLoop(ctx)
	if err := c.TrySend(core.Frame(`{"type":"x"}`)); err != nil {
		t.Fatalf("send: %v", err)
	}
	waitFor(t, func() bool {
		writes, _, _, _ := sock.snapshot()
		return len(writes) == 1 && writes[0] == websocket.TextMessage
	}, "queued frame never reached the socket")

	c.Close()
	waitFor(t, func() bool {
		_, _, _, closed := sock.snapshot()
		return closed
	}, "pump did not release the socket after close")
}

func TestWritePumpEmitsKeepalivePings(t *testing.T) {
	sock := &stubSocket{}
	c := NewWSConnection("c1", sock, 4, 10*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c.StartWriteLoop(ctx)
	waitFor(t, func() bool {
		writes, _, _, _ := sock.snapshot()
		for _, mt := range writes {
			if mt == websocket.PingMessage {
				return true
			}
		}
		return false
	}, "no ping written within the keepalive period")
	c.Close()
}

func TestReadLoopArmsDeadlineAndPongHandler(t *testing.T) {
	sock := &stubSocket{}
	c := NewWSConnection("c1", sock, 4, time.Hour)
	h := app.NewHub(app.Options{}, nil, nil)
	t.Cleanup(c.Close)

	c.StartReadLoop(context.Background(), h)

	// ReadMessage errors immediately, so the loop arms the deadline,
	// installs the handler, and tears down.
	waitFor(t, func() bool {
		_, _, _, closed := sock.snapshot()
		return closed
	}, "read loop did not tear down on read error")
	_, deadlines, pong, _ := sock.snapshot()
	if deadlines < 1 {
		t.Error("initial read deadline never set")
	}
	if pong == nil {
		t.Fatal("pong handler not installed")
	}
	// Each pong extends the deadline.
	if err := pong(""); err != nil {
		t.Fatalf("pong handler: %v", err)
	}
	if _, after, _, _ := sock.snapshot(); after != deadlines+1 {
		t.Error("pong did not extend the read deadline")
	}
}
