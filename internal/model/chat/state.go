package chat

// Phase is the widget's current UI phase.
type Phase string

const (
	PhaseIdle          Phase = "idle"
	PhaseOpen          Phase = "open"
	PhaseAwaitingReply Phase = "awaiting_reply"
	PhaseLeadCapture   Phase = "lead_capture"
	PhaseClosed        Phase = "closed"
)

// Snapshot is a read-only copy of the conversation state handed to the
// renderer. The state machine owns the live state; consumers only ever
// see snapshots.
type Snapshot struct {
	Phase        Phase
	Messages     []Message
	Typing       bool
	LeadFormOpen bool
}
