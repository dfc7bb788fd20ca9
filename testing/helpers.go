// Package testing provides test utilities and helpers for aviator session testing.
package testing

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/zoobzio/aviator"
	"github.com/zoobzio/clockz"
)

// WaitFor polls a condition until it returns true or timeout is reached.
// Returns true if the condition was met, false if timeout occurred.
func WaitFor(t *testing.T, timeout time.Duration, condition func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return false
}

// WaitForHealth waits until the session reaches the expected health or timeout occurs.
func WaitForHealth(t *testing.T, s *aviator.Session, expected aviator.Health, timeout time.Duration) bool {
	t.Helper()
	return WaitFor(t, timeout, func() bool {
		return s.Health() == expected
	})
}

// RequireHealth fails the test immediately if the session is not in the expected health.
func RequireHealth(t *testing.T, s *aviator.Session, expected aviator.Health) {
	t.Helper()
	if got := s.Health(); got != expected {
		t.Fatalf("expected health %s, got %s", expected, got)
	}
}

// RequireValue fails the test if the session's displayed value differs from want.
func RequireValue(t *testing.T, s *aviator.Session, want float64) {
	t.Helper()
	if got := s.Snapshot().Value; got != want {
		t.Fatalf("expected value %s, got %s", aviator.FormatValue(want), aviator.FormatValue(got))
	}
}

// RecordingScene is an in-memory Scene that records every accepted signal.
type RecordingScene struct {
	ready atomic.Bool
	err   atomic.Pointer[error]

	mu   sync.Mutex
	sent []aviator.Signal
}

// NewRecordingScene creates a scene with the given initial readiness.
func NewRecordingScene(ready bool) *RecordingScene {
	s := &RecordingScene{}
	s.ready.Store(ready)
	return s
}

// Send records sig, or returns the error set with FailWith.
func (s *RecordingScene) Send(_ context.Context, sig aviator.Signal) error {
	if ptr := s.err.Load(); ptr != nil {
		return *ptr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, sig)
	return nil
}

// Ready reports the readiness set with SetReady.
func (s *RecordingScene) Ready() bool {
	return s.ready.Load()
}

// SetReady changes the scene's readiness.
func (s *RecordingScene) SetReady(ready bool) {
	s.ready.Store(ready)
}

// FailWith makes every following Send return err. A nil err restores delivery.
func (s *RecordingScene) FailWith(err error) {
	if err == nil {
		s.err.Store(nil)
		return
	}
	s.err.Store(&err)
}

// Signals returns a copy of every recorded signal, oldest first.
func (s *RecordingScene) Signals() []aviator.Signal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]aviator.Signal(nil), s.sent...)
}

// Payloads returns the payloads of recorded signals named name.
func (s *RecordingScene) Payloads(name string) []any {
	var out []any
	for _, sig := range s.Signals() {
		if sig.Name == name {
			out = append(out, sig.Payload)
		}
	}
	return out
}

// LastMultiplier returns the most recent multiplier payload under DefaultProtocol.
func (s *RecordingScene) LastMultiplier() (float64, bool) {
	values := s.Payloads(aviator.DefaultProtocol.Multiplier)
	if len(values) == 0 {
		return 0, false
	}
	v, ok := values[len(values)-1].(float64)
	return v, ok
}

// Ensure RecordingScene implements aviator.Scene.
var _ aviator.Scene = (*RecordingScene)(nil)

// ErrScriptExhausted is returned by an empty ScriptedSource.
var ErrScriptExhausted = errors.New("script has no results")

// Step is one scripted fetch outcome.
type Step struct {
	Reading aviator.Reading
	Err     error
}

// ScriptedSource replays a fixed sequence of fetch outcomes, repeating the
// last one once the script runs out.
type ScriptedSource struct {
	mu    sync.Mutex
	steps []Step
	calls int
}

// NewScriptedSource creates a source that replays steps.
func NewScriptedSource(steps ...Step) *ScriptedSource {
	return &ScriptedSource{steps: steps}
}

// Fetch returns the next scripted outcome.
func (s *ScriptedSource) Fetch(ctx context.Context) (aviator.Reading, error) {
	if err := ctx.Err(); err != nil {
		return aviator.Reading{}, aviator.Fail("script", aviator.StageRequest, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.steps) == 0 {
		return aviator.Reading{}, aviator.Fail("script", aviator.StageRequest, ErrScriptExhausted)
	}
	i := min(s.calls, len(s.steps)-1)
	s.calls++
	step := s.steps[i]
	if step.Err != nil {
		return aviator.Reading{}, aviator.Fail("script", aviator.StageRequest, step.Err)
	}
	return step.Reading, nil
}

// Calls returns how many times Fetch was called.
func (s *ScriptedSource) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// Ensure ScriptedSource implements aviator.Source.
var _ aviator.Source = (*ScriptedSource)(nil)

// NewTestSession creates and starts a sync-mode session on a fake clock.
// The session is stopped when the test ends.
func NewTestSession(t *testing.T, source aviator.Source, scene aviator.Scene) (*aviator.Session, *clockz.FakeClock) {
	t.Helper()
	clock := clockz.NewFakeClock()
	s := aviator.New(source, scene).SyncMode().Clock(clock)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(s.Stop)
	return s, clock
}

// DriveFrames advances clock by step n times, running one frame after each
// advance. It stops early when the transition completes and reports the
// number of frames run.
func DriveFrames(s *aviator.Session, clock *clockz.FakeClock, step time.Duration, n int) int {
	for i := range n {
		clock.Advance(step)
		if !s.Frame(context.Background()) {
			return i + 1
		}
	}
	return n
}
