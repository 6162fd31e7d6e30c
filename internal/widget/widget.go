package widget

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/wovenchat/widget/internal/identity"
	"github.com/wovenchat/widget/internal/model/chat"
	"github.com/wovenchat/widget/internal/model/lead"
	"github.com/wovenchat/widget/internal/model/site"
	"github.com/wovenchat/widget/internal/render"
	"github.com/wovenchat/widget/internal/service/conversation"
	leadservice "github.com/wovenchat/widget/internal/service/lead"
	"github.com/wovenchat/widget/internal/service/settings"
	"github.com/wovenchat/widget/internal/service/transport"
)

// Mode selects the delivery mechanism for the widget lifetime.
type Mode string

const (
	ModeRest   Mode = "rest"
	ModeDuplex Mode = "duplex"
)

// Options configures one widget instance.
type Options struct {
	Origin     string
	SiteID     int
	Mode       Mode
	StorageDir string
	Timeout    time.Duration
	Duplex     transport.DuplexOptions
}

// Widget is one explicitly constructed instance owning its conversation
// state, transport session, and site configuration. Instances share no
// globals, so several can coexist in one process.
type Widget struct {
	cfg          site.Config
	sessionID    string
	transport    transport.Transport
	conversation *conversation.Service
}

// New resolves identity and site configuration, selects the transport,
// and wires the conversation state machine. Settings resolution never
// blocks construction: defaults apply when the endpoint is unreachable.
// A duplex instance fails construction if the initial connection cannot
// be established.
func New(ctx context.Context, opts Options) (*Widget, error) {
	if opts.Origin == "" {
		return nil, fmt.Errorf("backend origin is required")
	}
	if opts.SiteID <= 0 {
		opts.SiteID = 1
	}
	if opts.Mode == "" {
		opts.Mode = ModeRest
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}

	ids := identity.NewStore(openStorage(opts.StorageDir))
	sessionID := ids.GetOrCreateSessionID()

	cfg := settings.NewResolver(opts.Origin, opts.Timeout).Resolve(ctx, opts.SiteID)

	var t transport.Transport
	switch opts.Mode {
	case ModeRest:
		t = transport.NewRest(opts.Origin, opts.SiteID, sessionID, opts.Timeout)
	case ModeDuplex:
		duplexOpts := opts.Duplex
		if duplexOpts == (transport.DuplexOptions{}) {
			duplexOpts = transport.DefaultDuplexOptions()
		}
		duplex, err := transport.NewDuplex(opts.Origin, opts.SiteID, sessionID, duplexOpts)
		if err != nil {
			return nil, err
		}
		t = duplex
	default:
		return nil, fmt.Errorf("unknown transport mode %q", opts.Mode)
	}

	if err := t.Start(ctx); err != nil {
		return nil, fmt.Errorf("start transport: %w", err)
	}

	leads := leadservice.NewClient(opts.Origin, opts.Timeout)
	conv := conversation.NewService(t, leads, cfg)
	conv.Attach(ctx)

	return &Widget{
		cfg:          cfg,
		sessionID:    sessionID,
		transport:    t,
		conversation: conv,
	}, nil
}

func openStorage(dir string) identity.Storage {
	if dir == "" {
		return identity.NewMemoryStorage()
	}
	storage, err := identity.NewFileStorage(dir)
	if err != nil {
		log.Printf("[widget] durable storage unavailable, session identity is in-memory only: %v", err)
		return identity.NewMemoryStorage()
	}
	return storage
}

// SessionID returns the stable per-browser correlation token.
func (w *Widget) SessionID() string {
	return w.sessionID
}

// Config returns the resolved site configuration.
func (w *Widget) Config() site.Config {
	return w.cfg
}

// Open expands the widget.
func (w *Widget) Open() {
	w.conversation.Open()
}

// Collapse hides the widget, preserving the conversation.
func (w *Widget) Collapse() {
	w.conversation.Close()
}

// SendMessage submits one user message.
func (w *Widget) SendMessage(ctx context.Context, text string) error {
	return w.conversation.SendMessage(ctx, text)
}

// SubmitLead delivers the lead-capture form.
func (w *Widget) SubmitLead(ctx context.Context, submission lead.Submission) error {
	return w.conversation.SubmitLead(ctx, submission)
}

// CancelLead dismisses the lead-capture form without submitting.
func (w *Widget) CancelLead() error {
	return w.conversation.CancelLead()
}

// Snapshot returns the current conversation state.
func (w *Widget) Snapshot() chat.Snapshot {
	return w.conversation.Snapshot()
}

// View projects the current state for display.
func (w *Widget) View() render.View {
	return render.Project(w.cfg, w.conversation.Snapshot())
}

// Status reports the transport connection state.
func (w *Widget) Status() transport.Status {
	return w.transport.Status()
}

// Shutdown tears down the transport session.
func (w *Widget) Shutdown() error {
	return w.transport.Close()
}
