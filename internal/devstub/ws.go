package devstub

import (
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// wsFrame mirrors the duplex wire contract: join and client_message
// inbound, typing and bot_response outbound.
type wsFrame struct {
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

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	Subprotocols:    []string{"widget.v2", "widget.v1"},
	CheckOrigin: func(*http.Request) bool {
		// The widget is embedded on arbitrary third-party pages.
		return true
	},
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[ws] upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	siteID := 1
	sessionID := uuid.NewString()

	for {
		var frame wsFrame
		if err := conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[ws] connection closed unexpectedly: %v", err)
			}
			return
		}

		switch frame.Event {
		case "join":
			if frame.SiteID > 0 {
				siteID = frame.SiteID
			}

		case "client_message":
			if frame.SessionID != "" {
				sessionID = frame.SessionID
			}
			if frame.Message == "" {
				continue
			}

			if err := conn.WriteJSON(wsFrame{Event: "typing"}); err != nil {
				return
			}
			// Small think delay so the typing event is observable.
			time.Sleep(50 * time.Millisecond)

			reply := s.answer(siteID, sessionID, frame.Message)
			out := wsFrame{
				Event:           "bot_response",
				Reply:           reply.Reply,
				Confidence:      reply.Confidence,
				MessageType:     reply.MessageType,
				RequiresHandoff: reply.RequiresHandoff,
				IntentID:        reply.IntentID,
			}
			if err := conn.WriteJSON(out); err != nil {
				return
			}
		}
	}
}
