package conversation

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mariusznazar/airdevs3-app/internal/config"
)

// Session is the per-conversation state: retry tracking plus the bounded
// conversation and analysis logs. Sessions live in an injected store, so
// state survives across operation calls for as long as the store does.
type Session struct {
	ID        string
	Tracker   *Tracker
	History   *History
	Analyses  *AnalysisLog
	CreatedAt time.Time
}

// NewSession creates a fresh session with limits taken from the config.
func NewSession(cfg config.ConversationConfig) *Session {
	return &Session{
		ID:        uuid.NewString(),
		Tracker:   NewTracker(cfg.MaxRetriesPerAction),
		History:   NewHistory(cfg.HistoryLimit),
		Analyses:  NewAnalysisLog(cfg.HistoryLimit),
		CreatedAt: time.Now().UTC(),
	}
}

// Reset clears the session's accumulated state in place, keeping its ID.
func (s *Session) Reset() {
	s.Tracker.Reset()
	s.History.Reset()
	s.Analyses.Reset()
}

// SessionStore holds live sessions keyed by ID.
type SessionStore interface {
	Get(id string) (*Session, bool)
	Put(session *Session)
	Delete(id string)
}

// MemorySessionStore is a thread-safe in-process SessionStore.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

var _ SessionStore = (*MemorySessionStore)(nil)

// NewMemorySessionStore creates an empty session store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[string]*Session)}
}

func (s *MemorySessionStore) Get(id string) (*Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	return session, ok
}

func (s *MemorySessionStore) Put(session *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = session
}

func (s *MemorySessionStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}
