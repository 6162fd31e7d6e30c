package devstub

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/wovenchat/widget/internal/model/lead"
	"github.com/wovenchat/widget/pkg/utils"
)

// Server is the development stub backend: it implements the widget's
// external interfaces so the runtime can be exercised without the real
// chat service.
type Server struct {
	matcher *Matcher
	logs    *LogStore
	leads   *LeadStore
	sites   *SiteStore
}

// NewServer wires the stub with seeded intents and empty stores.
func NewServer(sites *SiteStore) *Server {
	if sites == nil {
		sites = NewSiteStore()
	}
	return &Server{
		matcher: NewMatcher(SeedIntents()),
		logs:    NewLogStore(),
		leads:   NewLeadStore(),
		sites:   sites,
	}
}

// Leads exposes the captured leads for inspection in tests and tools.
func (s *Server) Leads() *LeadStore {
	return s.leads
}

type chatRequest struct {
	Message   string `json:"message"`
	SiteID    int    `json:"site_id"`
	SessionID string `json:"session_id"`
}

// chatReply emits both historical field spellings so every client
// variant can parse it.
type chatReply struct {
	Success         bool    `json:"success"`
	Message         string  `json:"message"`
	Reply           string  `json:"reply"`
	Confidence      float64 `json:"confidence"`
	IsAnswered      bool    `json:"is_answered"`
	MessageType     string  `json:"message_type"`
	RequiresHandoff bool    `json:"requires_handoff"`
	IntentID        *int    `json:"intent_id,omitempty"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var payload chatRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	message := strings.TrimSpace(payload.Message)
	if message == "" {
		utils.RespondError(w, http.StatusBadRequest, "message cannot be empty")
		return
	}
	if payload.SiteID <= 0 {
		payload.SiteID = 1
	}
	if payload.SessionID == "" {
		payload.SessionID = uuid.NewString()
	}

	reply := s.answer(payload.SiteID, payload.SessionID, message)
	utils.RespondJSON(w, http.StatusOK, reply)
}

func (s *Server) answer(siteID int, sessionID, message string) chatReply {
	result := s.matcher.Match(message)

	reply := chatReply{
		Success:         true,
		Message:         result.Reply,
		Reply:           result.Reply,
		Confidence:      result.Confidence,
		IsAnswered:      result.Intent != nil,
		MessageType:     "auto_response",
		RequiresHandoff: false,
	}
	intentName := "UNKNOWN"
	if result.Intent != nil {
		intentName = result.Intent.Name
		if result.Intent.RequiresHandoff {
			reply.MessageType = "lead_capture"
			reply.RequiresHandoff = true
			id := result.Intent.ID
			reply.IntentID = &id
		}
	}

	s.logs.Append(ChatLog{
		SiteID:         siteID,
		SessionID:      sessionID,
		UserMessage:    message,
		BotResponse:    result.Reply,
		DetectedIntent: intentName,
		Confidence:     result.Confidence,
	})
	return reply
}

func (s *Server) handleLead(w http.ResponseWriter, r *http.Request) {
	var submission lead.Submission
	if err := json.NewDecoder(r.Body).Decode(&submission); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if strings.TrimSpace(submission.Email) == "" {
		utils.RespondError(w, http.StatusBadRequest, "email is required")
		return
	}

	stored := s.leads.Save(submission)
	utils.RespondJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"message": "Thank you! A team member will contact you shortly.",
		"lead_id": stored.ID,
	})
}

func (s *Server) handleLeadList(w http.ResponseWriter, _ *http.Request) {
	utils.RespondJSON(w, http.StatusOK, map[string]any{"leads": s.leads.List()})
}

func (s *Server) handleWidgetSettings(w http.ResponseWriter, r *http.Request) {
	siteID, err := strconv.Atoi(r.URL.Query().Get("site_id"))
	if err != nil || siteID <= 0 {
		siteID = 1
	}

	// Unknown sites get an empty object: every field falls back to the
	// client-side default.
	cfg, ok := s.sites.Find(siteID)
	if !ok {
		utils.RespondJSON(w, http.StatusOK, map[string]any{})
		return
	}
	utils.RespondJSON(w, http.StatusOK, cfg)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	siteID, err := strconv.Atoi(r.URL.Query().Get("site_id"))
	if err != nil || siteID <= 0 {
		siteID = 1
	}
	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		utils.RespondError(w, http.StatusBadRequest, "session_id is required")
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"history": s.logs.History(siteID, sessionID),
	})
}
