package hub

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"
)

type fakeConn struct {
	written chan []byte
	closed  chan struct{}
	once    sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{written: make(chan []byte, 16), closed: make(chan struct{})}
}

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	<-c.closed
	return 0, nil, errors.New("closed")
}

func (c *fakeConn) WriteMessage(mt int, data []byte) error {
	select {
	case <-c.closed:
		return errors.New("closed")
	default:
	}
	if mt == websocket.TextMessage {
		c.written <- data
	}
	return nil
}

func (c *fakeConn) SetReadLimit(int64)                {}
func (c *fakeConn) SetReadDeadline(time.Time) error   { return nil }
func (c *fakeConn) SetWriteDeadline(time.Time) error  { return nil }
func (c *fakeConn) SetPongHandler(func(string) error) {}
func (c *fakeConn) Close() error                      { c.once.Do(func() { close(c.closed) }); return nil }

func quiet() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func waitCount(t *testing.T, h *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for h.ClientCount() != want {
		if time.Now().After(deadline) {
			t.Fatalf("client count: got %d, want %d", h.ClientCount(), want)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestHub_Broadcast(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := New("results", quiet())
	go h.Run(ctx)

	a, b := newFakeConn(), newFakeConn()
	go h.Serve(a)
	go h.Serve(b)
	waitCount(t, h, 2)

	if err := h.BroadcastJSON(map[string]string{"class": "Spinel"}); err != nil {
		t.Fatalf("BroadcastJSON: %v", err)
	}

	for _, c := range []*fakeConn{a, b} {
		select {
		case msg := <-c.written:
			if string(msg) != `{"class":"Spinel"}` {
				t.Errorf("message: got %s", msg)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("message not delivered")
		}
	}

	a.Close()
	waitCount(t, h, 1)
}

func TestHub_StopClosesClients(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	h := New("results", quiet())
	go h.Run(ctx)

	c := newFakeConn()
	served := make(chan struct{})
	go func() {
		h.Serve(c)
		close(served)
	}()
	waitCount(t, h, 1)

	cancel()

	select {
	case <-c.closed:
	case <-time.After(2 * time.Second):
		t.Fatal("connection not closed after hub stopped")
	}
	select {
	case <-served:
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after hub stopped")
	}

	// Late connections are refused, not left hanging.
	late := newFakeConn()
	h.Serve(late)
	select {
	case <-late.closed:
	default:
		t.Error("late connection was not closed")
	}
}

func TestHub_BroadcastWithoutClients(t *testing.T) {
	h := New("results", quiet())
	for i := 0; i < 1000; i++ {
		h.Broadcast([]byte("x"))
	}
	if h.ClientCount() != 0 {
		t.Error("unexpected clients")
	}
}
