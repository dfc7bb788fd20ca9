package aviator

import (
	"fmt"
	"time"
)

// Snapshot is an immutable copy of a Session's state, published after
// every change so readers on other goroutines never touch live state.
type Snapshot struct {
	SessionID  string          `json:"session_id"`
	Value      float64         `json:"value"`
	Target     float64         `json:"target"`
	Committed  float64         `json:"committed"`
	Transition TransitionState `json:"transition"`
	Flag       bool            `json:"flag"`
	FlagKnown  bool            `json:"flag_known"`
	Health     Health          `json:"health"`
	Failures   int             `json:"consecutive_failures"`
	Bridge     BridgeStats     `json:"bridge"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// Display renders the snapshot as text, e.g. "2.35x running".
func (s Snapshot) Display() string {
	switch {
	case !s.FlagKnown:
		return fmt.Sprintf("%sx", FormatValue(s.Value))
	case s.Flag:
		return fmt.Sprintf("%sx running", FormatValue(s.Value))
	default:
		return fmt.Sprintf("%sx stopped", FormatValue(s.Value))
	}
}
