package aviator

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// Transition interpolates the displayed multiplier toward a target over a
// fixed wall-clock duration. It holds no timers: callers decide when to
// call Tick, and the produced values depend only on the time passed in, so
// refresh rate never changes the speed of a transition.
//
// A Transition is not safe for concurrent use. A Session confines it to
// its scheduling goroutine.
type Transition struct {
	duration time.Duration

	state     TransitionState
	value     float64
	from      float64
	target    float64
	committed float64
	startedAt time.Time
}

// NewTransition creates an idle Transition displaying 0.
func NewTransition(duration time.Duration) *Transition {
	return &Transition{duration: duration}
}

// Start begins moving toward target from the current displayed value.
//
// Start is a no-op when target equals the last committed target, or when a
// transition toward target is already running. A running transition toward
// a different target is rebased: the new interpolation starts from the
// value displayed now, not from where the interrupted one began.
// Start reports whether a new interpolation began.
func (t *Transition) Start(target float64, now time.Time) bool {
	if target == t.committed {
		return false
	}
	if t.state == TransitionRunning && target == t.target {
		return false
	}
	t.from = t.value
	t.target = target
	t.startedAt = now
	t.state = TransitionRunning
	return true
}

// Tick computes the displayed value at now. It returns the value and true
// exactly once, on the tick that reaches the target; that tick commits the
// target and returns the Transition to idle. Ticking an idle Transition
// returns the settled value and false.
func (t *Transition) Tick(now time.Time) (float64, bool) {
	if t.state != TransitionRunning {
		return t.value, false
	}

	p := t.Progress(now)
	if p < 1 {
		t.value = Round2(t.from + (t.target-t.from)*p)
		return t.value, false
	}

	t.value = Round2(t.target)
	t.committed = t.target
	t.state = TransitionIdle
	return t.value, true
}

// Progress returns the clamped fraction of the running transition elapsed at now.
func (t *Transition) Progress(now time.Time) float64 {
	if t.state != TransitionRunning {
		return 1
	}
	if t.duration <= 0 {
		return 1
	}
	p := float64(now.Sub(t.startedAt)) / float64(t.duration)
	return math.Min(math.Max(p, 0), 1)
}

// Value returns the displayed value.
func (t *Transition) Value() float64 { return t.value }

// Target returns the target of the current or most recent transition.
func (t *Transition) Target() float64 { return t.target }

// From returns the value the current or most recent transition started from.
func (t *Transition) From() float64 { return t.from }

// Committed returns the target the most recently completed transition settled on.
func (t *Transition) Committed() float64 { return t.committed }

// StartedAt returns when the current or most recent transition began.
func (t *Transition) StartedAt() time.Time { return t.startedAt }

// State reports whether a transition is in flight.
func (t *Transition) State() TransitionState { return t.state }

// Round2 rounds x to 2 decimal places, halves away from zero, using decimal
// arithmetic on the shortest representation of x. Round2(1.005) is 1.01.
// NaN and infinities are returned unchanged.
func Round2(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return x
	}
	f, _ := decimal.NewFromFloat(x).Round(2).Float64()
	return f
}

// FormatValue renders x with exactly 2 decimal places.
func FormatValue(x float64) string {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return "-"
	}
	return decimal.NewFromFloat(x).StringFixed(2)
}
