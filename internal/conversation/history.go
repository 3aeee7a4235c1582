package conversation

import (
	"strings"
	"sync"
	"time"

	"github.com/mariusznazar/airdevs3-app/api/schemas"
)

// History is a bounded conversation log. Once the limit is reached the oldest
// turns are dropped, so a long-running session cannot grow without bound.
type History struct {
	mu    sync.Mutex
	limit int
	turns []schemas.Turn
	now   func() time.Time
}

// NewHistory creates a history bounded to limit turns. A non-positive limit
// means unbounded.
func NewHistory(limit int) *History {
	return &History{limit: limit, now: time.Now}
}

// Add appends a turn, evicting the oldest when the limit is exceeded.
func (h *History) Add(role schemas.Role, content string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.turns = append(h.turns, schemas.Turn{Role: role, Content: content, Timestamp: h.now().UTC()})
	if h.limit > 0 && len(h.turns) > h.limit {
		h.turns = h.turns[len(h.turns)-h.limit:]
	}
}

// All returns a copy of the turns in order.
func (h *History) All() []schemas.Turn {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]schemas.Turn, len(h.turns))
	copy(out, h.turns)
	return out
}

// CountContaining reports how many turns contain the substring.
func (h *History) CountContaining(substr string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	count := 0
	for _, turn := range h.turns {
		if strings.Contains(turn.Content, substr) {
			count++
		}
	}
	return count
}

// Reset drops all turns.
func (h *History) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.turns = nil
}

// AnalysisLog is a bounded log of AI analyses, with the same eviction rule as
// History.
type AnalysisLog struct {
	mu      sync.Mutex
	limit   int
	entries []schemas.AnalysisEntry
	now     func() time.Time
}

// NewAnalysisLog creates an analysis log bounded to limit entries.
func NewAnalysisLog(limit int) *AnalysisLog {
	return &AnalysisLog{limit: limit, now: time.Now}
}

// Add appends an analysis, evicting the oldest when the limit is exceeded.
func (l *AnalysisLog) Add(content string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, schemas.AnalysisEntry{Content: content, Timestamp: l.now().UTC()})
	if l.limit > 0 && len(l.entries) > l.limit {
		l.entries = l.entries[len(l.entries)-l.limit:]
	}
}

// All returns a copy of the entries in order.
func (l *AnalysisLog) All() []schemas.AnalysisEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]schemas.AnalysisEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Reset drops all entries.
func (l *AnalysisLog) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = nil
}
