package devstub

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wovenchat/widget/internal/model/lead"
	"github.com/wovenchat/widget/internal/model/site"
)

// ChatLog records one exchange for a session.
type ChatLog struct {
	ID             string    `json:"id"`
	SiteID         int       `json:"site_id"`
	SessionID      string    `json:"session_id"`
	UserMessage    string    `json:"user_message"`
	BotResponse    string    `json:"bot_response"`
	DetectedIntent string    `json:"detected_intent"`
	Confidence     float64   `json:"confidence"`
	CreatedAt      time.Time `json:"created_at"`
}

// LogStore keeps chat logs in memory.
type LogStore struct {
	mu   sync.RWMutex
	logs []ChatLog
}

// NewLogStore returns an empty store.
func NewLogStore() *LogStore {
	return &LogStore{}
}

// Append records one exchange.
func (s *LogStore) Append(entry ChatLog) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry.ID = uuid.NewString()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	s.logs = append(s.logs, entry)
}

// History returns the logs for one session in arrival order.
func (s *LogStore) History(siteID int, sessionID string) []ChatLog {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []ChatLog
	for _, entry := range s.logs {
		if entry.SiteID == siteID && entry.SessionID == sessionID {
			out = append(out, entry)
		}
	}
	return out
}

// StoredLead is a persisted lead submission.
type StoredLead struct {
	ID        string          `json:"id"`
	Status    string          `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
	Lead      lead.Submission `json:"lead"`
}

// LeadStore keeps captured leads in memory.
type LeadStore struct {
	mu    sync.RWMutex
	leads []StoredLead
}

// NewLeadStore returns an empty store.
func NewLeadStore() *LeadStore {
	return &LeadStore{}
}

// Save persists one submission with status "new".
func (s *LeadStore) Save(submission lead.Submission) StoredLead {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := StoredLead{
		ID:        uuid.NewString(),
		Status:    "new",
		CreatedAt: time.Now().UTC(),
		Lead:      submission,
	}
	s.leads = append(s.leads, stored)
	return stored
}

// List returns all captured leads, newest last.
func (s *LeadStore) List() []StoredLead {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]StoredLead(nil), s.leads...)
}

// SiteStore holds per-site branding the settings endpoint serves.
type SiteStore struct {
	mu    sync.RWMutex
	sites map[int]site.Config
}

// NewSiteStore returns a store preloaded with the supplied sites.
func NewSiteStore(sites ...site.Config) *SiteStore {
	store := &SiteStore{sites: make(map[int]site.Config)}
	for _, cfg := range sites {
		store.sites[cfg.SiteID] = cfg
	}
	return store
}

// Find returns the branding for a site, if configured.
func (s *SiteStore) Find(siteID int) (site.Config, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cfg, ok := s.sites[siteID]
	return cfg, ok
}

// Put stores the branding for a site.
func (s *SiteStore) Put(cfg site.Config) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sites[cfg.SiteID] = cfg
}
