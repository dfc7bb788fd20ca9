package aviator

import "fmt"

// Health describes the feed behind a Session.
type Health int32

const (
	// HealthLoading indicates the Session has not yet completed a poll.
	HealthLoading Health = iota

	// HealthHealthy indicates the most recent poll succeeded.
	HealthHealthy

	// HealthDegraded indicates the most recent poll failed. The last good
	// target and flag remain authoritative.
	HealthDegraded

	// HealthEmpty indicates no poll has ever succeeded. The Session keeps
	// polling on its normal cadence.
	HealthEmpty
)

// String returns the string representation of the health.
func (h Health) String() string {
	switch h {
	case HealthLoading:
		return "loading"
	case HealthHealthy:
		return "healthy"
	case HealthDegraded:
		return "degraded"
	case HealthEmpty:
		return "empty"
	default:
		return "unknown"
	}
}

// MarshalText renders the health by name.
func (h Health) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

// UnmarshalText parses a name produced by MarshalText.
func (h *Health) UnmarshalText(b []byte) error {
	for _, v := range []Health{HealthLoading, HealthHealthy, HealthDegraded, HealthEmpty} {
		if v.String() == string(b) {
			*h = v
			return nil
		}
	}
	return fmt.Errorf("unknown health %q", b)
}

// TransitionState tracks whether an interpolation is in flight.
type TransitionState int32

const (
	// TransitionIdle means the displayed value is settled.
	TransitionIdle TransitionState = iota

	// TransitionRunning means the displayed value is moving toward a target.
	TransitionRunning
)

// String returns the string representation of the transition state.
func (s TransitionState) String() string {
	switch s {
	case TransitionIdle:
		return "idle"
	case TransitionRunning:
		return "running"
	default:
		return "unknown"
	}
}

// MarshalText renders the transition state by name.
func (s TransitionState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a name produced by MarshalText.
func (s *TransitionState) UnmarshalText(b []byte) error {
	switch string(b) {
	case "idle":
		*s = TransitionIdle
	case "running":
		*s = TransitionRunning
	default:
		return fmt.Errorf("unknown transition state %q", b)
	}
	return nil
}
