package render

import (
	"html"

	"github.com/wovenchat/widget/internal/model/chat"
	"github.com/wovenchat/widget/internal/model/site"
)

// Badge is the confidence label attached to a bot message.
type Badge string

const (
	BadgeNone   Badge = ""
	BadgeMedium Badge = "medium confidence"
	BadgeHigh   Badge = "high confidence"
)

// Message is one rendered conversation entry. Text is already escaped;
// rich markup is never trusted from either party.
type Message struct {
	ID     int64
	Sender chat.Sender
	Text   string
	Badge  Badge
}

// View is the deterministic projection of a conversation snapshot. The
// renderer carries no business logic: the same snapshot always yields
// the same view.
type View struct {
	BotName      string
	PrimaryColor string
	ThemeMode    string
	Collapsed    bool
	Messages     []Message
	ShowTyping   bool
	ShowLeadForm bool
}

// Project maps a snapshot plus site branding to the view the host page
// displays: one entry per message in arrival order, at most one typing
// indicator, at most one lead form.
func Project(cfg site.Config, snap chat.Snapshot) View {
	view := View{
		BotName:      cfg.BotName,
		PrimaryColor: cfg.PrimaryColor,
		ThemeMode:    cfg.ThemeMode,
		Collapsed:    snap.Phase == chat.PhaseIdle || snap.Phase == chat.PhaseClosed,
		Messages:     make([]Message, 0, len(snap.Messages)),
	}

	for _, msg := range snap.Messages {
		view.Messages = append(view.Messages, Message{
			ID:     msg.ID,
			Sender: msg.Sender,
			Text:   html.EscapeString(msg.Text),
			Badge:  badgeFor(msg),
		})
	}

	if !view.Collapsed {
		view.ShowTyping = snap.Typing && snap.Phase == chat.PhaseAwaitingReply
		view.ShowLeadForm = snap.LeadFormOpen && snap.Phase == chat.PhaseLeadCapture
	}
	return view
}

// badgeFor applies the confidence contract: at or above 0.8 the reply
// is high confidence, anything between zero and 0.8 is medium, and
// error or lead-capture replies carry no badge at all.
func badgeFor(msg chat.Message) Badge {
	if msg.Sender != chat.SenderBot {
		return BadgeNone
	}
	switch msg.Classification {
	case chat.ClassificationError, chat.ClassificationLeadCapture:
		return BadgeNone
	}
	switch {
	case msg.Confidence >= 0.8:
		return BadgeHigh
	case msg.Confidence > 0:
		return BadgeMedium
	default:
		return BadgeNone
	}
}
