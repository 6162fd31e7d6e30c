package widget

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/wovenchat/widget/internal/devstub"
	"github.com/wovenchat/widget/internal/model/chat"
	"github.com/wovenchat/widget/internal/model/lead"
	"github.com/wovenchat/widget/internal/model/site"
	"github.com/wovenchat/widget/internal/render"
	"github.com/wovenchat/widget/internal/service/transport"
)

func newBackend(t *testing.T) *httptest.Server {
	t.Helper()
	server := devstub.NewServer(devstub.NewSiteStore(site.Config{
		SiteID:         1,
		BotName:        "HelperBot",
		InitialMessage: "Hi! How can I help you today?",
	}))
	srv := httptest.NewServer(devstub.NewRouter(server))
	t.Cleanup(srv.Close)
	return srv
}

func newWidget(t *testing.T, origin string, mode Mode) *Widget {
	t.Helper()
	w, err := New(context.Background(), Options{
		Origin:  origin,
		SiteID:  1,
		Mode:    mode,
		Timeout: 5 * time.Second,
		Duplex: transport.DuplexOptions{
			HandshakeTimeout: 2 * time.Second,
			WriteTimeout:     2 * time.Second,
			MaxDialRetries:   3,
			BackoffStep:      10 * time.Millisecond,
		},
	})
	if err != nil {
		t.Fatalf("New widget err: %v", err)
	}
	t.Cleanup(func() { _ = w.Shutdown() })
	return w
}

// waitForPhase polls until the conversation leaves AwaitingReply.
func waitForReply(t *testing.T, w *Widget) chat.Snapshot {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		snap := w.Snapshot()
		if snap.Phase != chat.PhaseAwaitingReply {
			return snap
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("timed out waiting for reply")
	return chat.Snapshot{}
}

func TestWidgetResolvesBranding(t *testing.T) {
	backend := newBackend(t)
	w := newWidget(t, backend.URL, ModeRest)

	if w.Config().BotName != "HelperBot" {
		t.Fatalf("branding not resolved: %+v", w.Config())
	}
	if w.Config().PrimaryColor != site.DefaultPrimaryColor {
		t.Fatalf("absent field not defaulted: %+v", w.Config())
	}
	if w.SessionID() == "" {
		t.Fatal("expected a session identity")
	}
}

func TestWidgetRestExchange(t *testing.T) {
	backend := newBackend(t)
	w := newWidget(t, backend.URL, ModeRest)

	w.Open()
	if err := w.SendMessage(context.Background(), "what are your business hours?"); err != nil {
		t.Fatalf("SendMessage err: %v", err)
	}

	snap := waitForReply(t, w)
	last := snap.Messages[len(snap.Messages)-1]
	if last.Sender != chat.SenderBot || !strings.Contains(last.Text, "Monday") {
		t.Fatalf("unexpected reply: %+v", last)
	}

	view := w.View()
	if view.Messages[len(view.Messages)-1].Badge != render.BadgeHigh {
		t.Fatalf("expected high confidence badge, got %q", view.Messages[len(view.Messages)-1].Badge)
	}
}

func TestWidgetLeadCaptureFlow(t *testing.T) {
	backend := newBackend(t)
	w := newWidget(t, backend.URL, ModeRest)

	w.Open()
	if err := w.SendMessage(context.Background(), "please let me talk to a human"); err != nil {
		t.Fatalf("SendMessage err: %v", err)
	}

	snap := waitForReply(t, w)
	if snap.Phase != chat.PhaseLeadCapture || !snap.LeadFormOpen {
		t.Fatalf("handoff did not open lead form: %+v", snap)
	}

	err := w.SubmitLead(context.Background(), lead.Submission{
		Name:  "Ada",
		Email: "ada@example.com",
	})
	if err != nil {
		t.Fatalf("SubmitLead err: %v", err)
	}

	snap = w.Snapshot()
	if snap.Phase != chat.PhaseOpen || snap.LeadFormOpen {
		t.Fatalf("form should close after success: %+v", snap)
	}
	last := snap.Messages[len(snap.Messages)-1]
	if !strings.Contains(last.Text, "ada@example.com") {
		t.Fatalf("confirmation not personalized: %q", last.Text)
	}
}

func TestWidgetDuplexExchange(t *testing.T) {
	backend := newBackend(t)
	w := newWidget(t, backend.URL, ModeDuplex)

	if w.Status() != transport.StatusConnected {
		t.Fatalf("expected connected duplex channel, got %s", w.Status())
	}

	w.Open()
	if err := w.SendMessage(context.Background(), "do you accept paypal"); err != nil {
		t.Fatalf("SendMessage err: %v", err)
	}

	snap := waitForReply(t, w)
	last := snap.Messages[len(snap.Messages)-1]
	if last.Sender != chat.SenderBot || last.Text == "" {
		t.Fatalf("no bot reply over duplex channel: %+v", snap.Messages)
	}
}

func TestWidgetInstancesAreIndependent(t *testing.T) {
	backend := newBackend(t)
	a := newWidget(t, backend.URL, ModeRest)
	b := newWidget(t, backend.URL, ModeRest)

	a.Open()
	b.Open()
	if err := a.SendMessage(context.Background(), "shipping"); err != nil {
		t.Fatalf("SendMessage err: %v", err)
	}
	waitForReply(t, a)

	// b only carries its greeting; a's conversation did not leak.
	if got := len(b.Snapshot().Messages); got != 1 {
		t.Fatalf("instances share state: %d messages in b", got)
	}
}
