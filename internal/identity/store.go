package identity

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
)

const sessionKey = "session_id"

// Storage abstracts the durable medium holding the session identifier.
type Storage interface {
	Load(key string) (string, bool)
	Save(key, value string) error
	Clear(key string)
}

// Store derives and persists the per-browser session identity. When the
// durable medium fails the identifier degrades to in-memory only, which
// loses it on the next page load. That is acceptable: the id correlates
// a conversation, it is not a credential.
type Store struct {
	mu      sync.Mutex
	storage Storage
	cached  string
}

// NewStore returns a Store backed by the given medium. A nil medium
// means in-memory only.
func NewStore(storage Storage) *Store {
	if storage == nil {
		storage = NewMemoryStorage()
	}
	return &Store{storage: storage}
}

// GetOrCreateSessionID returns the stored identifier, generating and
// persisting a fresh one on first use. Repeated calls return the same
// value.
func (s *Store) GetOrCreateSessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cached != "" {
		return s.cached
	}

	if value, ok := s.storage.Load(sessionKey); ok && value != "" {
		s.cached = value
		return value
	}

	id := uuid.NewString()
	if err := s.storage.Save(sessionKey, id); err != nil {
		log.Printf("[identity] storage unavailable, keeping session id in memory: %v", err)
	}
	s.cached = id
	return id
}

// Reset discards the current identity. The next GetOrCreateSessionID
// call mints a new one.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.storage.Clear(sessionKey)
	s.cached = ""
}

// MemoryStorage keeps values for the current process lifetime only.
type MemoryStorage struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryStorage returns an empty in-memory medium.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{values: make(map[string]string)}
}

func (m *MemoryStorage) Load(key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	value, ok := m.values[key]
	return value, ok
}

func (m *MemoryStorage) Save(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *MemoryStorage) Clear(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
}

// FileStorage persists one value per key as a small file under dir,
// standing in for the browser's durable storage.
type FileStorage struct {
	dir string
}

// NewFileStorage returns a medium rooted at dir, creating it if needed.
func NewFileStorage(dir string) (*FileStorage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &FileStorage{dir: dir}, nil
}

func (f *FileStorage) path(key string) string {
	return filepath.Join(f.dir, key)
}

func (f *FileStorage) Load(key string) (string, bool) {
	data, err := os.ReadFile(f.path(key))
	if err != nil {
		return "", false
	}
	value := strings.TrimSpace(string(data))
	return value, value != ""
}

func (f *FileStorage) Save(key, value string) error {
	return os.WriteFile(f.path(key), []byte(value), 0o644)
}

func (f *FileStorage) Clear(key string) {
	_ = os.Remove(f.path(key))
}
