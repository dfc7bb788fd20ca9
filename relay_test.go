package aviator

import (
	"context"
	"testing"
)

func newTestRelay(scene Scene, policy FlagPolicy) *Relay {
	return NewRelay(NewBridge(scene, "s1", nil, nil), DefaultProtocol, policy, FlagEncodingBool, "s1")
}

func TestRelay_OnChangeSendsFirstAndChangedValues(t *testing.T) {
	scene := newRecordingScene(true)
	r := newTestRelay(scene, FlagOnChange)
	ctx := context.Background()

	for _, flag := range []bool{false, false, true, true, false} {
		r.SetFlag(ctx, flag)
	}

	got := scene.named("crashingPlane")
	want := []any{false, true, false}
	if len(got) != len(want) {
		t.Fatalf("expected %d crash signals, got %v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("signal %d: expected %v, got %v", i, want[i], got[i])
		}
	}
}

func TestRelay_AlwaysSendsEveryValue(t *testing.T) {
	scene := newRecordingScene(true)
	r := newTestRelay(scene, FlagAlways)
	ctx := context.Background()

	for range 3 {
		r.SetFlag(ctx, true)
	}
	if got := len(scene.named("crashingPlane")); got != 3 {
		t.Errorf("expected 3 crash signals, got %d", got)
	}
}

func TestRelay_DroppedFlagIsResent(t *testing.T) {
	scene := newRecordingScene(true)
	r := newTestRelay(scene, FlagOnChange)
	ctx := context.Background()

	r.SetFlag(ctx, false)

	scene.ready.Store(false)
	if r.SetFlag(ctx, true) {
		t.Fatal("expected flag to be dropped while scene not ready")
	}
	if !r.Pending() {
		t.Error("expected dropped flag to be pending")
	}
	if flag, known := r.Flag(); !flag || !known {
		t.Error("expected stored flag to be true even though it was not delivered")
	}

	scene.ready.Store(true)
	if !r.SetFlag(ctx, true) {
		t.Fatal("expected pending flag to be delivered once the scene is ready")
	}
	if r.Pending() {
		t.Error("expected nothing pending after delivery")
	}

	got := scene.named("crashingPlane")
	if len(got) != 2 || got[1] != true {
		t.Errorf("expected [false true], got %v", got)
	}
}

func TestRelay_StringEncoding(t *testing.T) {
	scene := newRecordingScene(true)
	r := NewRelay(NewBridge(scene, "s1", nil, nil), LegacyProtocol, FlagOnChange, FlagEncodingString, "s1")

	r.SetFlag(context.Background(), true)

	got := scene.named("crashPlane")
	if len(got) != 1 || got[0] != "true" {
		t.Errorf("expected [\"true\"], got %v", got)
	}
}

func TestRelay_UnknownBeforeFirstFlag(t *testing.T) {
	r := newTestRelay(newRecordingScene(true), FlagOnChange)
	if _, known := r.Flag(); known {
		t.Error("expected flag to be unknown")
	}
	if r.Pending() {
		t.Error("expected nothing pending before any flag")
	}
}
