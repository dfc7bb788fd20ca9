package aviator

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
)

// recordingScene records every signal it accepts.
type recordingScene struct {
	ready atomic.Bool
	fail  atomic.Bool

	mu   sync.Mutex
	sent []Signal
}

func newRecordingScene(ready bool) *recordingScene {
	s := &recordingScene{}
	s.ready.Store(ready)
	return s
}

func (s *recordingScene) Send(_ context.Context, sig Signal) error {
	if s.fail.Load() {
		return errors.New("scene unavailable")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, sig)
	return nil
}

func (s *recordingScene) Ready() bool {
	return s.ready.Load()
}

func (s *recordingScene) signals() []Signal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Signal(nil), s.sent...)
}

// named returns the payloads of every signal with the given name.
func (s *recordingScene) named(name string) []any {
	var out []any
	for _, sig := range s.signals() {
		if sig.Name == name {
			out = append(out, sig.Payload)
		}
	}
	return out
}

func (s *recordingScene) lastMultiplier() (float64, bool) {
	values := s.named(DefaultProtocol.Multiplier)
	if len(values) == 0 {
		return 0, false
	}
	v, ok := values[len(values)-1].(float64)
	return v, ok
}

func TestBridge_SendsWhenReady(t *testing.T) {
	scene := newRecordingScene(true)
	b := NewBridge(scene, "s1", nil, nil)

	if !b.Send(context.Background(), DefaultProtocol.MultiplierSignal(1.5)) {
		t.Fatal("expected send to succeed")
	}

	sent := scene.signals()
	if len(sent) != 1 {
		t.Fatalf("expected 1 signal, got %d", len(sent))
	}
	if sent[0].Target != "GameManager" || sent[0].Name != "multiplier" || sent[0].Payload != 1.5 {
		t.Errorf("unexpected signal %+v", sent[0])
	}
	if stats := b.Stats(); stats.Sent != 1 {
		t.Errorf("expected 1 sent, got %+v", stats)
	}
}

func TestBridge_SkipsWhenNotReady(t *testing.T) {
	scene := newRecordingScene(false)
	b := NewBridge(scene, "s1", nil, nil)

	if b.Send(context.Background(), DefaultProtocol.MultiplierSignal(1.5)) {
		t.Error("expected send to be skipped")
	}
	if len(scene.signals()) != 0 {
		t.Error("expected no signal to reach the scene")
	}
	if stats := b.Stats(); stats.Skipped != 1 || stats.Sent != 0 {
		t.Errorf("expected 1 skipped, got %+v", stats)
	}
}

func TestBridge_SceneErrorIsCounted(t *testing.T) {
	scene := newRecordingScene(true)
	scene.fail.Store(true)
	b := NewBridge(scene, "s1", nil, nil)

	if b.Send(context.Background(), DefaultProtocol.CrashSignal(true, FlagEncodingBool)) {
		t.Error("expected send to fail")
	}
	if stats := b.Stats(); stats.Failed != 1 {
		t.Errorf("expected 1 failed, got %+v", stats)
	}
}

func TestBridge_ClosedNeverSends(t *testing.T) {
	scene := newRecordingScene(true)
	b := NewBridge(scene, "s1", nil, nil)
	b.Close()

	if b.Ready() {
		t.Error("expected closed bridge to report not ready")
	}
	if b.Send(context.Background(), DefaultProtocol.MultiplierSignal(2)) {
		t.Error("expected closed bridge to drop the signal")
	}
	if len(scene.signals()) != 0 {
		t.Error("expected no signal after close")
	}
}

func TestProtocol_CrashSignalEncoding(t *testing.T) {
	sig := DefaultProtocol.CrashSignal(true, FlagEncodingBool)
	if sig.Name != "crashingPlane" || sig.Payload != true {
		t.Errorf("unexpected bool signal %+v", sig)
	}

	sig = LegacyProtocol.CrashSignal(false, FlagEncodingString)
	if sig.Name != "crashPlane" || sig.Payload != "false" {
		t.Errorf("unexpected string signal %+v", sig)
	}
}
