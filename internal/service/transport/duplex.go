package transport

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wovenchat/widget/internal/model/chat"
)

// Wire event names shared with the backend.
const (
	wireEventJoin          = "join"
	wireEventClientMessage = "client_message"
	wireEventTyping        = "typing"
	wireEventBotResponse   = "bot_response"
)

// Subprotocols tried in order when negotiating the channel. A failed
// handshake falls back to the next one on the following attempt.
var duplexSubprotocols = []string{"widget.v2", "widget.v1"}

// DuplexOptions tunes the persistent channel.
type DuplexOptions struct {
	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
	PingInterval     time.Duration
	// MaxDialRetries bounds the initial Start connection only;
	// reconnection after a drop keeps trying until Close.
	MaxDialRetries int
	// BackoffStep scales the increasing delay between attempts.
	BackoffStep time.Duration
	MaxBackoff  time.Duration
}

// DefaultDuplexOptions mirrors the connection tuning used elsewhere in
// the codebase.
func DefaultDuplexOptions() DuplexOptions {
	return DuplexOptions{
		HandshakeTimeout: 30 * time.Second,
		WriteTimeout:     30 * time.Second,
		PingInterval:     30 * time.Second,
		MaxDialRetries:   3,
		BackoffStep:      time.Second,
		MaxBackoff:       30 * time.Second,
	}
}

// Duplex maintains one persistent websocket session: connect once,
// announce the site with a join frame, multiplex client messages, and
// receive typing plus bot_response events. Disconnection is treated as
// transient and repaired in the background; nothing sent while
// disconnected is buffered or replayed.
type Duplex struct {
	endpoint  string
	siteID    int
	sessionID string
	opts      DuplexOptions

	mu      sync.Mutex
	writeMu sync.Mutex
	conn    *websocket.Conn
	status  Status
	closed  bool
	pending bool
	events  chan Event
	cancel  context.CancelFunc
}

// NewDuplex builds a duplex transport session. origin is the backend
// base URL; the channel lives at its /ws endpoint.
func NewDuplex(origin string, siteID int, sessionID string, opts DuplexOptions) (*Duplex, error) {
	endpoint, err := wsEndpoint(origin)
	if err != nil {
		return nil, err
	}
	return &Duplex{
		endpoint:  endpoint,
		siteID:    siteID,
		sessionID: sessionID,
		opts:      opts,
		status:    StatusDisconnected,
		events:    make(chan Event, 8),
	}, nil
}

func wsEndpoint(origin string) (string, error) {
	parsed, err := url.Parse(strings.TrimSpace(origin))
	if err != nil {
		return "", fmt.Errorf("invalid origin %q: %w", origin, err)
	}
	switch parsed.Scheme {
	case "http", "ws":
		parsed.Scheme = "ws"
	case "https", "wss":
		parsed.Scheme = "wss"
	default:
		return "", fmt.Errorf("invalid origin scheme %q", parsed.Scheme)
	}
	parsed.Path = "/ws"
	return parsed.String(), nil
}

// Start establishes the channel and announces the site. The initial
// dial retries with increasing delay; once it gives up the error is
// returned to the caller.
func (d *Duplex) Start(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return newError(KindNetworkUnavailable, "transport closed")
	}
	d.status = StatusConnecting
	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.mu.Unlock()

	conn, err := d.dialWithRetry(runCtx, d.opts.MaxDialRetries)
	if err != nil {
		d.setStatus(StatusDisconnected)
		return err
	}

	if err := d.adopt(runCtx, conn); err != nil {
		conn.Close()
		d.setStatus(StatusDisconnected)
		return err
	}
	return nil
}

// dialWithRetry attempts the handshake up to maxRetries times (zero or
// negative means unbounded), falling back between subprotocols on
// successive attempts and backing off with an increasing delay.
func (d *Duplex) dialWithRetry(ctx context.Context, maxRetries int) (*websocket.Conn, error) {
	var lastErr error

	for attempt := 0; maxRetries <= 0 || attempt < maxRetries; attempt++ {
		if d.isClosed() {
			return nil, newError(KindNetworkUnavailable, "transport closed")
		}

		dialer := &websocket.Dialer{
			HandshakeTimeout: d.opts.HandshakeTimeout,
			Subprotocols:     []string{duplexSubprotocols[attempt%len(duplexSubprotocols)]},
		}
		conn, _, err := dialer.DialContext(ctx, d.endpoint, nil)
		if err == nil {
			return conn, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, newError(KindNetworkUnavailable, "dial canceled: %v", ctx.Err())
		}

		delay := time.Duration(attempt+1) * d.opts.BackoffStep
		if d.opts.MaxBackoff > 0 && delay > d.opts.MaxBackoff {
			delay = d.opts.MaxBackoff
		}
		select {
		case <-ctx.Done():
			return nil, newError(KindNetworkUnavailable, "dial canceled: %v", ctx.Err())
		case <-time.After(delay):
		}
	}

	return nil, newError(KindNetworkUnavailable, "websocket dial failed: %v", lastErr)
}

// adopt installs a fresh connection: announces the site exactly once,
// then starts the read and ping loops for this connection.
func (d *Duplex) adopt(ctx context.Context, conn *websocket.Conn) error {
	if err := d.writeFrame(conn, wireFrame{Event: wireEventJoin, SiteID: d.siteID}); err != nil {
		return newError(KindNetworkUnavailable, "join announcement: %v", err)
	}

	d.mu.Lock()
	d.conn = conn
	d.status = StatusConnected
	d.mu.Unlock()

	go d.readLoop(ctx, conn)
	go d.pingLoop(ctx, conn)
	return nil
}

// Send submits one message over the channel. While disconnected the
// send fails immediately; it is never queued for replay.
func (d *Duplex) Send(_ context.Context, text string) error {
	d.mu.Lock()
	conn := d.conn
	status := d.status
	d.mu.Unlock()

	if conn == nil || status != StatusConnected {
		return newError(KindNetworkUnavailable, "channel is %s", status)
	}

	frame := wireFrame{
		Event:     wireEventClientMessage,
		SiteID:    d.siteID,
		SessionID: d.sessionID,
		Message:   text,
	}
	// Marked before the write so a drop observed by readLoop right
	// after delivery still fails this exchange.
	d.mu.Lock()
	d.pending = true
	d.mu.Unlock()

	if err := d.writeFrame(conn, frame); err != nil {
		d.mu.Lock()
		wasPending := d.pending
		d.pending = false
		d.mu.Unlock()
		if !wasPending {
			// readLoop already surfaced this loss as a failure event.
			return nil
		}
		return newError(KindNetworkUnavailable, "write message: %v", err)
	}
	return nil
}

// Events yields typing and bot_response events plus delivery failures.
func (d *Duplex) Events() <-chan Event {
	return d.events
}

// Status reports the channel state.
func (d *Duplex) Status() Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.status
}

// Close tears the channel down and stops reconnection.
func (d *Duplex) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	d.status = StatusDisconnected
	conn := d.conn
	d.conn = nil
	cancel := d.cancel
	close(d.events)
	d.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn != nil {
		return conn.Close()
	}
	return nil
}

func (d *Duplex) isClosed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

func (d *Duplex) setStatus(status Status) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.closed {
		d.status = status
	}
}

// failPending errors out an exchange that was written but not yet
// answered when the connection dropped. A lost frame is never replayed
// on the restored channel, so the caller must see the failure.
func (d *Duplex) failPending() {
	d.mu.Lock()
	pending := d.pending
	d.pending = false
	d.mu.Unlock()

	if pending {
		d.emit(Event{
			Kind: EventFailure,
			Err:  newError(KindNetworkUnavailable, "connection lost before the reply arrived"),
		})
	}
}

func (d *Duplex) emit(ev Event) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.events <- ev
}

func (d *Duplex) writeFrame(conn *websocket.Conn, frame wireFrame) error {
	d.writeMu.Lock()
	defer d.writeMu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(d.opts.WriteTimeout))
	return conn.WriteJSON(frame)
}

// readLoop consumes server frames until the connection drops, then
// hands off to the reconnect supervisor.
func (d *Duplex) readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		var frame wireFrame
		if err := conn.ReadJSON(&frame); err != nil {
			if d.isClosed() || ctx.Err() != nil {
				return
			}
			log.Printf("[duplex] connection lost: %v", err)
			d.failPending()
			d.setStatus(StatusReconnecting)
			d.reconnect(ctx)
			return
		}

		switch frame.Event {
		case wireEventTyping:
			d.emit(Event{Kind: EventTyping})
		case wireEventBotResponse:
			d.mu.Lock()
			d.pending = false
			d.mu.Unlock()
			d.emit(Event{Kind: EventBotReply, Reply: frame.reply()})
		default:
			// Unknown frames are ignored for forward compatibility.
		}
	}
}

// reconnect repairs a dropped channel in the background. It keeps
// trying until it succeeds or the transport is closed; each successful
// connection announces join exactly once.
func (d *Duplex) reconnect(ctx context.Context) {
	conn, err := d.dialWithRetry(ctx, 0)
	if err != nil {
		if !d.isClosed() {
			log.Printf("[duplex] reconnect abandoned: %v", err)
			d.setStatus(StatusDisconnected)
		}
		return
	}

	if err := d.adopt(ctx, conn); err != nil {
		conn.Close()
		if !d.isClosed() {
			log.Printf("[duplex] reconnect handshake failed: %v", err)
			d.setStatus(StatusDisconnected)
		}
		return
	}
	log.Printf("[duplex] channel restored")
}

// pingLoop keeps the connection fresh; a failed ping lets readLoop
// observe the drop and trigger reconnection.
func (d *Duplex) pingLoop(ctx context.Context, conn *websocket.Conn) {
	if d.opts.PingInterval <= 0 {
		return
	}
	ticker := time.NewTicker(d.opts.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.writeMu.Lock()
			conn.SetWriteDeadline(time.Now().Add(d.opts.WriteTimeout))
			err := conn.WriteMessage(websocket.PingMessage, nil)
			d.writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

// wireFrame is the single JSON frame shape used in both directions.
type wireFrame struct {
	Event           string  `json:"event"`
	SiteID          int     `json:"site_id,omitempty"`
	SessionID       string  `json:"session_id,omitempty"`
	Message         string  `json:"message,omitempty"`
	Reply           string  `json:"reply,omitempty"`
	Confidence      float64 `json:"confidence,omitempty"`
	MessageType     string  `json:"message_type,omitempty"`
	RequiresHandoff bool    `json:"requires_handoff,omitempty"`
	IntentID        *int    `json:"intent_id,omitempty"`
}

func (f wireFrame) reply() chat.BotReply {
	return chat.BotReply{
		Text:            f.Reply,
		Confidence:      f.Confidence,
		Classification:  classificationFrom(f.MessageType),
		RequiresHandoff: f.RequiresHandoff,
		IntentID:        f.IntentID,
	}
}
