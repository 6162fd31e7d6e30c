package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/wovenchat/widget/internal/model/chat"
	"github.com/wovenchat/widget/internal/model/lead"
	"github.com/wovenchat/widget/internal/model/site"
	"github.com/wovenchat/widget/internal/service/transport"
)

var (
	// ErrBusy rejects a second exchange while one is still in flight.
	// Ordering as seen by the backend must match submission order, so
	// concurrent in-flight sends are not supported.
	ErrBusy = errors.New("an exchange is already in flight")
	// ErrNotOpen rejects input while the widget is not accepting chat.
	ErrNotOpen = errors.New("conversation is not open")
	// ErrNoLeadForm rejects lead actions when no form is displayed.
	ErrNoLeadForm = errors.New("no lead form is active")
)

// User-visible failure texts, matched to the failure classification.
const (
	networkFailureText = "Sorry, I couldn't connect to the server. Please check your connection."
	backendFailureText = "Sorry, something went wrong. Please try again."
	leadCancelText     = "No problem! Let me know if there's anything else I can help with."
)

// LeadSubmitter delivers a validated lead submission to the backend.
type LeadSubmitter interface {
	Submit(ctx context.Context, submission lead.Submission) error
}

// Service owns the conversation state. All transitions run under one
// lock; consumers only ever observe snapshots. Messages are append-only
// with strictly increasing ids.
type Service struct {
	transport transport.Transport
	leads     LeadSubmitter
	siteCfg   site.Config

	mu             sync.Mutex
	phase          chat.Phase
	messages       []chat.Message
	nextID         int64
	typing         bool
	awaiting       bool
	leadFormOpen   bool
	leadSubmitting bool
	leadIntentID   *int
	greeted        bool
}

// NewService builds the state machine in the Idle phase.
func NewService(t transport.Transport, leads LeadSubmitter, cfg site.Config) *Service {
	return &Service{
		transport: t,
		leads:     leads,
		siteCfg:   cfg,
		phase:     chat.PhaseIdle,
		nextID:    1,
	}
}

// Attach pumps transport events into the state machine until the
// transport closes its event channel or ctx is done.
func (s *Service) Attach(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-s.transport.Events():
				if !ok {
					return
				}
				s.HandleTransportEvent(ev)
			}
		}
	}()
}

// Open expands the widget. The first open appends the configured
// greeting; reopening preserves the accumulated messages. A pending
// lead form survives a close/reopen cycle.
func (s *Service) Open() {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.phase {
	case chat.PhaseIdle, chat.PhaseClosed:
		if s.leadFormOpen {
			s.phase = chat.PhaseLeadCapture
		} else if s.awaiting {
			s.phase = chat.PhaseAwaitingReply
		} else {
			s.phase = chat.PhaseOpen
		}
	default:
		return
	}

	if !s.greeted && s.siteCfg.InitialMessage != "" {
		s.greeted = true
		s.append(chat.SenderBot, s.siteCfg.InitialMessage, 0, chat.ClassificationAuto)
	}
}

// Close collapses the widget from any phase. Messages are preserved.
func (s *Service) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.phase = chat.PhaseClosed
}

// SendMessage submits one user message. Empty or whitespace-only input
// is rejected silently with no appended Message and no transport call.
func (s *Service) SendMessage(ctx context.Context, text string) error {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}

	s.mu.Lock()
	if s.phase != chat.PhaseOpen {
		s.mu.Unlock()
		return ErrNotOpen
	}
	if s.awaiting {
		s.mu.Unlock()
		return ErrBusy
	}

	// The user message is appended before any transport call so the
	// transcript reflects submission order even on delivery failure.
	s.append(chat.SenderUser, trimmed, 0, "")
	s.awaiting = true
	s.typing = true
	s.phase = chat.PhaseAwaitingReply
	s.mu.Unlock()

	if err := s.transport.Send(ctx, trimmed); err != nil {
		s.HandleTransportEvent(transport.Event{Kind: transport.EventFailure, Err: err})
		return nil
	}
	return nil
}

// HandleTransportEvent applies one transport event to the state.
func (s *Service) HandleTransportEvent(ev transport.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch ev.Kind {
	case transport.EventTyping:
		// Advisory only; carries no payload and never becomes a Message.
		s.typing = true

	case transport.EventBotReply:
		s.typing = false
		s.awaiting = false
		s.append(chat.SenderBot, ev.Reply.Text, ev.Reply.Confidence, ev.Reply.Classification)
		if s.phase == chat.PhaseAwaitingReply {
			s.phase = chat.PhaseOpen
		}
		if ev.Reply.Handoff() && !s.leadFormOpen {
			s.leadFormOpen = true
			s.leadIntentID = ev.Reply.IntentID
			if s.phase != chat.PhaseClosed {
				s.phase = chat.PhaseLeadCapture
			}
		}

	case transport.EventFailure:
		s.typing = false
		s.awaiting = false
		s.append(chat.SenderBot, failureText(ev.Err), 0, chat.ClassificationError)
		if s.phase == chat.PhaseAwaitingReply {
			s.phase = chat.PhaseOpen
		}
	}
}

// SubmitLead validates and delivers a lead submission. Validation
// failures block locally without a network call. While a submission is
// in flight further submits are rejected, preventing duplicates. On
// failure the form stays active so the user can retry without
// re-entering data.
func (s *Service) SubmitLead(ctx context.Context, submission lead.Submission) error {
	s.mu.Lock()
	if !s.leadFormOpen || s.phase != chat.PhaseLeadCapture {
		s.mu.Unlock()
		return ErrNoLeadForm
	}
	if s.leadSubmitting {
		s.mu.Unlock()
		return ErrBusy
	}
	if err := submission.Validate(); err != nil {
		s.mu.Unlock()
		return err
	}
	s.leadSubmitting = true
	if submission.IntentID == nil {
		submission.IntentID = s.leadIntentID
	}
	s.mu.Unlock()

	err := s.leads.Submit(ctx, submission)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.leadSubmitting = false
	if err != nil {
		return err
	}

	s.leadFormOpen = false
	s.leadIntentID = nil
	s.append(chat.SenderBot, leadConfirmationText(submission), 0, chat.ClassificationAuto)
	if s.phase == chat.PhaseLeadCapture {
		s.phase = chat.PhaseOpen
	}
	return nil
}

// CancelLead dismisses the form without submitting anything.
func (s *Service) CancelLead() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.leadFormOpen {
		return ErrNoLeadForm
	}

	s.leadFormOpen = false
	s.leadIntentID = nil
	s.append(chat.SenderBot, leadCancelText, 0, chat.ClassificationAuto)
	if s.phase == chat.PhaseLeadCapture {
		s.phase = chat.PhaseOpen
	}
	return nil
}

// Snapshot returns a read-only copy of the current state.
func (s *Service) Snapshot() chat.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	messages := make([]chat.Message, len(s.messages))
	copy(messages, s.messages)

	return chat.Snapshot{
		Phase:        s.phase,
		Messages:     messages,
		Typing:       s.typing,
		LeadFormOpen: s.leadFormOpen,
	}
}

// append must be called with the lock held.
func (s *Service) append(sender chat.Sender, text string, confidence float64, class chat.Classification) {
	s.messages = append(s.messages, chat.Message{
		ID:             s.nextID,
		Sender:         sender,
		Text:           text,
		Confidence:     confidence,
		Classification: class,
		CreatedAt:      time.Now().UTC(),
	})
	s.nextID++
}

func failureText(err error) string {
	if transport.Classify(err) == transport.KindNetworkUnavailable {
		return networkFailureText
	}
	return backendFailureText
}

func leadConfirmationText(submission lead.Submission) string {
	name := strings.TrimSpace(submission.Name)
	if name == "" {
		return fmt.Sprintf("Thank you! A team member will contact you at %s shortly.", strings.TrimSpace(submission.Email))
	}
	return fmt.Sprintf("Thanks %s! A team member will contact you at %s shortly.", name, strings.TrimSpace(submission.Email))
}
