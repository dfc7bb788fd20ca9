package aviator

import (
	"context"
	"time"
)

// Commit records a transition that settled on its target.
type Commit struct {
	SessionID   string    `json:"session_id"`
	From        float64   `json:"from"`
	Target      float64   `json:"target"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
}

// FlagChange records a change of the feed's crash flag.
type FlagChange struct {
	SessionID string    `json:"session_id"`
	Flag      bool      `json:"flag"`
	At        time.Time `json:"at"`
}

// Journal persists round history. Journal errors are logged by the
// Session and never interrupt it.
type Journal interface {
	RecordCommit(ctx context.Context, c Commit) error
	RecordFlag(ctx context.Context, f FlagChange) error
}
