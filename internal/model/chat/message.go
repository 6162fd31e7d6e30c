package chat

import "time"

// Sender identifies which side of the conversation produced a message.
type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// Classification tags a bot message with how the backend produced it.
type Classification string

const (
	ClassificationAuto        Classification = "auto_response"
	ClassificationLeadCapture Classification = "lead_capture"
	ClassificationError       Classification = "error"
)

// Message is one turn of the conversation. The sequence is append-only
// and a Message is never mutated after creation.
type Message struct {
	ID             int64          `json:"id"`
	Sender         Sender         `json:"sender"`
	Text           string         `json:"text"`
	Confidence     float64        `json:"confidence,omitempty"`
	Classification Classification `json:"classification,omitempty"`
	CreatedAt      time.Time      `json:"createdAt"`
}
