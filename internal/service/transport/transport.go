package transport

import (
	"context"

	"github.com/wovenchat/widget/internal/model/chat"
)

// Status is the connection state of the active transport session.
type Status string

const (
	StatusDisconnected Status = "disconnected"
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
	StatusReconnecting Status = "reconnecting"
)

// EventKind discriminates transport events delivered to the state machine.
type EventKind string

const (
	// EventTyping is advisory: the backend is composing a reply.
	EventTyping EventKind = "typing"
	// EventBotReply carries a completed reply.
	EventBotReply EventKind = "bot_reply"
	// EventFailure reports a failed exchange; Err is classified.
	EventFailure EventKind = "failure"
)

// Event is the single shape both transports emit, keeping everything
// above this layer mode-agnostic.
type Event struct {
	Kind  EventKind
	Reply chat.BotReply
	Err   error
}

// Transport is the uniform delivery contract. The mode is selected once
// at widget construction and fixed for the session lifetime.
//
// Send never blocks on the network: the outcome of an exchange arrives
// on Events as an EventBotReply or EventFailure. Replies for one session
// arrive in submission order because the state machine admits one
// in-flight exchange at a time.
type Transport interface {
	// Start prepares the session. For the duplex mode it establishes
	// the persistent channel and announces the site; for the
	// request/response mode it is a no-op.
	Start(ctx context.Context) error
	// Send submits one user message.
	Send(ctx context.Context, text string) error
	// Events yields typing notifications, replies, and failures.
	Events() <-chan Event
	// Status reports the connection state.
	Status() Status
	// Close tears the session down. Events is closed afterwards.
	Close() error
}
