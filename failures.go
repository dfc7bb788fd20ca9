package aviator

import (
	"slices"
	"sync"
	"time"
)

// PollFailure is one failed poll as kept in a Session's error history.
type PollFailure struct {
	At     time.Time `json:"at"`
	Source string    `json:"source,omitempty"`
	Stage  string    `json:"stage"`
	Error  string    `json:"error"`

	// Err is the underlying *FetchError, for errors.Is/As.
	Err error `json:"-"`
}

// failureLog keeps the most recent poll failures and the length of the
// current failure streak. The streak is counted even when no history is kept.
type failureLog struct {
	mu      sync.RWMutex
	limit   int
	entries []PollFailure
	streak  int
}

func (l *failureLog) resize(limit int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.limit = max(limit, 0)
	l.entries = nil
}

// record appends f, evicting the oldest entry at the limit.
func (l *failureLog) record(f PollFailure) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.streak++
	if l.limit == 0 {
		return
	}
	if len(l.entries) == l.limit {
		l.entries = slices.Delete(l.entries, 0, 1)
	}
	l.entries = append(l.entries, f)
}

// reset ends the streak after a successful poll.
func (l *failureLog) reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.streak = 0
	l.entries = l.entries[:0]
}

func (l *failureLog) recent() []PollFailure {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if len(l.entries) == 0 {
		return nil
	}
	return slices.Clone(l.entries)
}

func (l *failureLog) consecutive() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.streak
}
