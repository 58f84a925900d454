package ws

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"chat-platform/internal/config"
	"chat-platform/internal/protocol"
)

type fakeConn struct {
	mu      sync.Mutex
	written [][]byte
	reads   chan []byte
	closed  chan struct{}
	once    sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		reads:  make(chan []byte, 16),
		closed: make(chan struct{}),
	}
}

func (f *fakeConn) ReadMessage() (int, []byte, error) {
	select {
	case raw := <-f.reads:
		return 1, raw, nil
	case <-f.closed:
		return 0, nil, errors.New("connection closed")
	}
}

func (f *fakeConn) WriteMessage(messageType int, data []byte) error {
	select {
	case <-f.closed:
		return errors.New("connection closed")
	default:
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	f.written = append(f.written, cp)
	return nil
}

func (f *fakeConn) SetReadLimit(int64)                {}
func (f *fakeConn) SetReadDeadline(time.Time) error   { return nil }
func (f *fakeConn) SetWriteDeadline(time.Time) error  { return nil }
func (f *fakeConn) SetPongHandler(func(string) error) {}
func (f *fakeConn) Close() error {
	f.once.Do(func() { close(f.closed) })
	return nil
}

func testWSConfig() config.WSConfig {
	return config.WSConfig{
		SendBuffer:      8,
		MaxMessageBytes: 1024,
		PongWait:        time.Minute,
		PingPeriod:      time.Hour,
		WriteWait:       time.Second,
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func testSession(userID string) *Session {
	return newSession(userID, newFakeConn(), testWSConfig(), testLogger())
}

func recvFrame(t *testing.T, s *Session) []byte {
	t.Helper()
	select {
	case frame := <-s.send:
		return frame
	case <-time.After(time.Second):
		t.Fatal("no frame queued")
		return nil
	}
}

func TestSendToDeliversMarshaledEnvelope(t *testing.T) {
	r := NewRegistry(testLogger())
	s := testSession("a")
	r.Register("a", s)

	r.SendTo("a", protocol.Pong())

	frame := recvFrame(t, s)
	if string(frame) != `{"type":"pong","data":""}` {
		t.Fatalf("unexpected frame: %s", frame)
	}
}

func TestSendToDisconnectedUserIsNoop(t *testing.T) {
	r := NewRegistry(testLogger())
	r.SendTo("ghost", protocol.Pong())
}

func TestSendToManySkipsMissingRecipients(t *testing.T) {
	r := NewRegistry(testLogger())
	a, c := testSession("a"), testSession("c")
	r.Register("a", a)
	r.Register("c", c)

	r.SendToMany([]string{"a", "missing", "c"}, protocol.Pong())

	for _, s := range []*Session{a, c} {
		var env protocol.Envelope
		if err := json.Unmarshal(recvFrame(t, s), &env); err != nil || env.Type != protocol.TypePong {
			t.Fatalf("recipient %s missed delivery: %v %v", s.UserID, env, err)
		}
	}
}

func TestBroadcastAllReachesEveryConnectedSession(t *testing.T) {
	r := NewRegistry(testLogger())
	sessions := []*Session{testSession("a"), testSession("b"), testSession("c")}
	for _, s := range sessions {
		r.Register(s.UserID, s)
	}

	env, err := protocol.EncodeUserStatus("a", "ONLINE")
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	r.BroadcastAll(env)

	for _, s := range sessions {
		recvFrame(t, s)
	}
}

func TestFullQueueDropsInsteadOfBlocking(t *testing.T) {
	cfg := testWSConfig()
	cfg.SendBuffer = 1
	r := NewRegistry(testLogger())
	s := newSession("a", newFakeConn(), cfg, testLogger())
	r.Register("a", s)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 5; i++ {
			r.SendTo("a", protocol.Pong())
		}
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("SendTo blocked on a full queue")
	}
	if len(s.send) != 1 {
		t.Fatalf("queue length = %d, want 1", len(s.send))
	}
}

func TestDeregisterOnlyRemovesCurrentSession(t *testing.T) {
	r := NewRegistry(testLogger())
	s1 := testSession("a")
	s2 := testSession("a")

	r.Register("a", s1)
	r.Register("a", s2) // reconnect supersedes

	if r.Deregister("a", s1) {
		t.Fatal("stale session must not deregister the new one")
	}
	if !r.IsConnected("a") {
		t.Fatal("user should still be connected through the new session")
	}
	if !r.Deregister("a", s2) {
		t.Fatal("current session should deregister")
	}
	if r.IsConnected("a") {
		t.Fatal("user should be disconnected")
	}
}

func TestWritePumpSerializesFrames(t *testing.T) {
	conn := newFakeConn()
	s := newSession("a", conn, testWSConfig(), testLogger())

	go s.writePump()
	for i := 0; i < 3; i++ {
		if !s.enqueue([]byte{byte('0' + i)}) {
			t.Fatalf("enqueue %d failed", i)
		}
	}

	deadline := time.Now().Add(time.Second)
	for {
		conn.mu.Lock()
		n := len(conn.written)
		conn.mu.Unlock()
		if n == 3 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("wrote %d frames, want 3", n)
		}
		time.Sleep(5 * time.Millisecond)
	}

	conn.mu.Lock()
	defer conn.mu.Unlock()
	for i, frame := range conn.written {
		if string(frame) != string(byte('0'+i)) {
			t.Fatalf("frames out of order: %q at %d", frame, i)
		}
	}
	s.close()
}
