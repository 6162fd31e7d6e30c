package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// duplexTestServer speaks the widget wire contract and lets tests count
// join announcements and force-drop connections.
type duplexTestServer struct {
	srv      *httptest.Server
	upgrader websocket.Upgrader

	mu         sync.Mutex
	joins      int
	refusing   bool
	swallowing bool
	activeConn *websocket.Conn
}

func newDuplexTestServer(t *testing.T) *duplexTestServer {
	t.Helper()
	ts := &duplexTestServer{
		upgrader: websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
	}
	ts.srv = httptest.NewServer(http.HandlerFunc(ts.handle))
	t.Cleanup(ts.srv.Close)
	return ts
}

func (ts *duplexTestServer) handle(w http.ResponseWriter, r *http.Request) {
	ts.mu.Lock()
	refusing := ts.refusing
	ts.mu.Unlock()
	if refusing {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
		return
	}

	conn, err := ts.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	ts.mu.Lock()
	ts.activeConn = conn
	ts.mu.Unlock()
	defer conn.Close()

	for {
		var frame map[string]any
		if err := conn.ReadJSON(&frame); err != nil {
			return
		}
		switch frame["event"] {
		case "join":
			ts.mu.Lock()
			ts.joins++
			ts.mu.Unlock()
		case "client_message":
			ts.mu.Lock()
			swallowing := ts.swallowing
			ts.mu.Unlock()
			if swallowing {
				// Take the message and kill the connection without
				// answering, as a backend restart mid-exchange would.
				conn.Close()
				return
			}
			_ = conn.WriteJSON(map[string]any{"event": "typing"})
			_ = conn.WriteJSON(map[string]any{
				"event":      "bot_response",
				"reply":      "echo: " + frame["message"].(string),
				"confidence": 0.9,
			})
		}
	}
}

func (ts *duplexTestServer) joinCount() int {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.joins
}

func (ts *duplexTestServer) dropActive() {
	ts.mu.Lock()
	conn := ts.activeConn
	ts.mu.Unlock()
	if conn != nil {
		conn.Close()
	}
}

func fastDuplexOptions() DuplexOptions {
	return DuplexOptions{
		HandshakeTimeout: 2 * time.Second,
		WriteTimeout:     2 * time.Second,
		PingInterval:     0,
		MaxDialRetries:   3,
		BackoffStep:      10 * time.Millisecond,
		MaxBackoff:       50 * time.Millisecond,
	}
}

func waitForJoins(t *testing.T, ts *duplexTestServer, want int) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if ts.joinCount() == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("expected %d joins, have %d", want, ts.joinCount())
}

func TestDuplexAnnouncesJoinOnConnect(t *testing.T) {
	ts := newDuplexTestServer(t)

	tr, err := NewDuplex(ts.srv.URL, 5, "session-1", fastDuplexOptions())
	if err != nil {
		t.Fatalf("NewDuplex err: %v", err)
	}
	if err := tr.Start(context.Background()); err != nil {
		t.Fatalf("Start err: %v", err)
	}
	defer tr.Close()

	waitForJoins(t, ts, 1)
	if tr.Status() != StatusConnected {
		t.Fatalf("expected connected, got %s", tr.Status())
	}
}

func TestDuplexTypingAndReplyEvents(t *testing.T) {
	ts := newDuplexTestServer(t)

	tr, err := NewDuplex(ts.srv.URL, 1, "session-1", fastDuplexOptions())
	if err != nil {
		t.Fatalf("NewDuplex err: %v", err)
	}
	if err := tr.Start(context.Background()); err != nil {
		t.Fatalf("Start err: %v", err)
	}
	defer tr.Close()

	waitForJoins(t, ts, 1)
	if err := tr.Send(context.Background(), "hello"); err != nil {
		t.Fatalf("Send err: %v", err)
	}

	first := waitEvent(t, tr.Events())
	if first.Kind != EventTyping {
		t.Fatalf("expected typing event first, got %s", first.Kind)
	}
	second := waitEvent(t, tr.Events())
	if second.Kind != EventBotReply || second.Reply.Text != "echo: hello" {
		t.Fatalf("unexpected reply event: %+v", second)
	}
	if second.Reply.Confidence != 0.9 {
		t.Fatalf("unexpected confidence: %v", second.Reply.Confidence)
	}
}

func TestDuplexReconnectRejoinsOnce(t *testing.T) {
	ts := newDuplexTestServer(t)

	tr, err := NewDuplex(ts.srv.URL, 1, "session-1", fastDuplexOptions())
	if err != nil {
		t.Fatalf("NewDuplex err: %v", err)
	}
	if err := tr.Start(context.Background()); err != nil {
		t.Fatalf("Start err: %v", err)
	}
	defer tr.Close()

	waitForJoins(t, ts, 1)
	ts.dropActive()

	// The client repairs the channel by itself and announces join
	// exactly once more, not once per retry attempt.
	waitForJoins(t, ts, 2)

	deadline := time.Now().Add(5 * time.Second)
	for tr.Status() != StatusConnected && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if tr.Status() != StatusConnected {
		t.Fatalf("channel not restored, status %s", tr.Status())
	}

	if err := tr.Send(context.Background(), "still here"); err != nil {
		t.Fatalf("Send after reconnect err: %v", err)
	}
}

func TestDuplexDropMidExchangeFailsPendingSend(t *testing.T) {
	ts := newDuplexTestServer(t)
	ts.mu.Lock()
	ts.swallowing = true
	ts.mu.Unlock()

	tr, err := NewDuplex(ts.srv.URL, 1, "session-1", fastDuplexOptions())
	if err != nil {
		t.Fatalf("NewDuplex err: %v", err)
	}
	if err := tr.Start(context.Background()); err != nil {
		t.Fatalf("Start err: %v", err)
	}
	defer tr.Close()

	waitForJoins(t, ts, 1)
	if err := tr.Send(context.Background(), "hello"); err != nil {
		t.Fatalf("Send err: %v", err)
	}

	// The message was accepted but the channel died before the reply.
	// That exchange is gone and must surface as a failure; silence here
	// would leave the caller waiting forever.
	ev := waitEvent(t, tr.Events())
	if ev.Kind != EventFailure {
		t.Fatalf("expected failure event, got %s", ev.Kind)
	}
	if Classify(ev.Err) != KindNetworkUnavailable {
		t.Fatalf("expected network unavailable, got %v", ev.Err)
	}

	// The channel itself recovers in the background and the next
	// exchange runs normally once the backend answers again.
	ts.mu.Lock()
	ts.swallowing = false
	ts.mu.Unlock()
	waitForJoins(t, ts, 2)

	deadline := time.Now().Add(5 * time.Second)
	for tr.Status() != StatusConnected && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if err := tr.Send(context.Background(), "again"); err != nil {
		t.Fatalf("Send after restore err: %v", err)
	}
	first := waitEvent(t, tr.Events())
	if first.Kind != EventTyping {
		t.Fatalf("expected typing event, got %s", first.Kind)
	}
	second := waitEvent(t, tr.Events())
	if second.Kind != EventBotReply || second.Reply.Text != "echo: again" {
		t.Fatalf("unexpected reply event: %+v", second)
	}
}

func TestDuplexSendWhileDisconnectedFailsImmediately(t *testing.T) {
	ts := newDuplexTestServer(t)

	tr, err := NewDuplex(ts.srv.URL, 1, "session-1", fastDuplexOptions())
	if err != nil {
		t.Fatalf("NewDuplex err: %v", err)
	}

	// Never started: the channel is disconnected. The send must fail
	// now rather than queue for replay.
	err = tr.Send(context.Background(), "hello")
	if err == nil {
		t.Fatal("expected immediate failure while disconnected")
	}
	if Classify(err) != KindNetworkUnavailable {
		t.Fatalf("expected network unavailable, got %v", err)
	}
}

func TestDuplexStartFailsWhenBackendUnreachable(t *testing.T) {
	ts := newDuplexTestServer(t)
	ts.mu.Lock()
	ts.refusing = true
	ts.mu.Unlock()

	tr, err := NewDuplex(ts.srv.URL, 1, "session-1", fastDuplexOptions())
	if err != nil {
		t.Fatalf("NewDuplex err: %v", err)
	}

	if err := tr.Start(context.Background()); err == nil {
		t.Fatal("expected Start to fail against refusing backend")
	}
	if tr.Status() != StatusDisconnected {
		t.Fatalf("expected disconnected after failed start, got %s", tr.Status())
	}
}
