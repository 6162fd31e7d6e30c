package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/wovenchat/widget/internal/model/chat"
)

// Rest performs one POST /api/chat exchange per message. Failures are
// classified and surfaced on the event channel; they are never retried
// automatically.
type Rest struct {
	origin    string
	siteID    int
	sessionID string
	client    *http.Client

	mu     sync.Mutex
	closed bool
	events chan Event
}

// NewRest builds a request/response transport session bound to one site
// and one session identity.
func NewRest(origin string, siteID int, sessionID string, timeout time.Duration) *Rest {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Rest{
		origin:    origin,
		siteID:    siteID,
		sessionID: sessionID,
		client:    &http.Client{Timeout: timeout},
		events:    make(chan Event, 8),
	}
}

// Start is a no-op in request/response mode.
func (r *Rest) Start(context.Context) error {
	return nil
}

// Events yields the outcome of each Send.
func (r *Rest) Events() <-chan Event {
	return r.events
}

// Status reports Connected while the session is open; there is no
// persistent channel to lose.
func (r *Rest) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return StatusDisconnected
	}
	return StatusConnected
}

// Send performs the exchange on a background goroutine and reports the
// result as an event.
func (r *Rest) Send(ctx context.Context, text string) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return newError(KindNetworkUnavailable, "transport closed")
	}
	r.mu.Unlock()

	go func() {
		reply, err := r.exchange(ctx, text)
		if err != nil {
			r.emit(Event{Kind: EventFailure, Err: err})
			return
		}
		r.emit(Event{Kind: EventBotReply, Reply: reply})
	}()
	return nil
}

// Close shuts the session down and closes the event channel.
func (r *Rest) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	close(r.events)
	return nil
}

func (r *Rest) emit(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.events <- ev
}

type chatRequest struct {
	Message   string `json:"message"`
	SiteID    int    `json:"site_id"`
	SessionID string `json:"session_id,omitempty"`
}

// chatResponse accepts both historical response spellings: reply text in
// either "message" or "reply", failure as non-2xx {error} or as a 200
// with success:false.
type chatResponse struct {
	Success         *bool   `json:"success"`
	Message         string  `json:"message"`
	Reply           string  `json:"reply"`
	ErrorText       string  `json:"error"`
	Confidence      float64 `json:"confidence"`
	IsAnswered      *bool   `json:"is_answered"`
	MessageType     string  `json:"message_type"`
	RequiresHandoff bool    `json:"requires_handoff"`
	IntentID        *int    `json:"intent_id"`
}

func (r *Rest) exchange(ctx context.Context, text string) (chat.BotReply, error) {
	payload, err := json.Marshal(chatRequest{
		Message:   text,
		SiteID:    r.siteID,
		SessionID: r.sessionID,
	})
	if err != nil {
		return chat.BotReply{}, newError(KindMalformedResponse, "encode request: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.origin+"/api/chat", bytes.NewReader(payload))
	if err != nil {
		return chat.BotReply{}, newError(KindNetworkUnavailable, "build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return chat.BotReply{}, newError(KindNetworkUnavailable, "chat request: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return chat.BotReply{}, newError(KindNetworkUnavailable, "read response: %v", err)
	}

	return parseChatResponse(resp.StatusCode, body)
}

func parseChatResponse(status int, body []byte) (chat.BotReply, error) {
	var parsed chatResponse
	decodeErr := json.Unmarshal(body, &parsed)

	if status < 200 || status >= 300 {
		detail := parsed.ErrorText
		if detail == "" {
			detail = fmt.Sprintf("status %d", status)
		}
		return chat.BotReply{}, newError(KindBackendError, "%s", detail)
	}

	if decodeErr != nil {
		return chat.BotReply{}, newError(KindMalformedResponse, "decode response: %v", decodeErr)
	}

	if parsed.Success != nil && !*parsed.Success {
		detail := parsed.Message
		if detail == "" {
			detail = "backend reported failure"
		}
		return chat.BotReply{}, newError(KindBackendError, "%s", detail)
	}

	textOut := parsed.Reply
	if textOut == "" {
		textOut = parsed.Message
	}
	if textOut == "" {
		return chat.BotReply{}, newError(KindMalformedResponse, "response carries no reply text")
	}

	return chat.BotReply{
		Text:            textOut,
		Confidence:      parsed.Confidence,
		Classification:  classificationFrom(parsed.MessageType),
		RequiresHandoff: parsed.RequiresHandoff,
		IntentID:        parsed.IntentID,
	}, nil
}

func classificationFrom(messageType string) chat.Classification {
	switch messageType {
	case string(chat.ClassificationLeadCapture):
		return chat.ClassificationLeadCapture
	case string(chat.ClassificationError):
		return chat.ClassificationError
	default:
		return chat.ClassificationAuto
	}
}
