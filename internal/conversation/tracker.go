// Package conversation orchestrates the multi-turn photo-repair dialogue:
// command extraction and retry tracking, bounded session history and the
// message-processing pipeline on top of the media cache and the AI service.
package conversation

import (
	"sort"
	"strings"
	"sync"
)

// analyzePrefix marks locally handled commands that never count against the
// retry budget.
const analyzePrefix = "ANALYZE"

// Normalize collapses runs of whitespace to single spaces and uppercases the
// action so retry accounting treats "repair  img.png" and "REPAIR IMG.PNG" as
// the same action.
func Normalize(action string) string {
	return strings.ToUpper(strings.Join(strings.Fields(action), " "))
}

// Tracker counts how often each normalized action was attempted and cuts
// actions off once they hit the retry budget. ANALYZE commands are exempt:
// they are handled locally and always allowed.
type Tracker struct {
	mu         sync.Mutex
	maxRetries int
	attempts   map[string]int
}

// NewTracker creates a tracker with the given per-action retry budget.
func NewTracker(maxRetries int) *Tracker {
	return &Tracker{
		maxRetries: maxRetries,
		attempts:   make(map[string]int),
	}
}

// ShouldExecute reports whether the action may still be attempted.
func (t *Tracker) ShouldExecute(action string) bool {
	normalized := Normalize(action)
	if strings.HasPrefix(normalized, analyzePrefix) {
		return true
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.attempts[normalized] < t.maxRetries
}

// Record counts one attempt of the action.
func (t *Tracker) Record(action string) {
	normalized := Normalize(action)
	t.mu.Lock()
	defer t.mu.Unlock()
	t.attempts[normalized]++
}

// Attempts returns a copy of the attempt table keyed by normalized action.
func (t *Tracker) Attempts() map[string]int {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]int, len(t.attempts))
	for k, v := range t.attempts {
		out[k] = v
	}
	return out
}

// Executed returns the sorted list of actions attempted at least once.
func (t *Tracker) Executed() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, 0, len(t.attempts))
	for k := range t.attempts {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Reset drops all attempt counts.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.attempts = make(map[string]int)
}
