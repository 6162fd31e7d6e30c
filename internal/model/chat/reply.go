package chat

// BotReply carries the backend's answer to one user message. The same
// shape arrives over both transports, so everything above the transport
// layer stays mode-agnostic.
type BotReply struct {
	Text            string
	Confidence      float64
	Classification  Classification
	RequiresHandoff bool
	IntentID        *int
}

// Handoff reports whether the reply asks the client to escalate into the
// lead-capture flow. Legacy backends signal this either through the
// requires_handoff flag or through a lead_capture message type, so both
// spellings are honored.
func (r BotReply) Handoff() bool {
	return r.RequiresHandoff || r.Classification == ClassificationLeadCapture
}
