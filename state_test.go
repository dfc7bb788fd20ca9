package aviator

import (
	"encoding/json"
	"testing"
)

func TestHealth_String(t *testing.T) {
	tests := []struct {
		health Health
		want   string
	}{
		{HealthLoading, "loading"},
		{HealthHealthy, "healthy"},
		{HealthDegraded, "degraded"},
		{HealthEmpty, "empty"},
		{Health(999), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.health.String(); got != tt.want {
			t.Errorf("Health(%d).String() = %q, want %q", tt.health, got, tt.want)
		}
	}
}

func TestHealth_Values(t *testing.T) {
	// Verify iota ordering
	if HealthLoading != 0 {
		t.Errorf("expected HealthLoading=0, got %d", HealthLoading)
	}
	if HealthHealthy != 1 {
		t.Errorf("expected HealthHealthy=1, got %d", HealthHealthy)
	}
	if HealthDegraded != 2 {
		t.Errorf("expected HealthDegraded=2, got %d", HealthDegraded)
	}
	if HealthEmpty != 3 {
		t.Errorf("expected HealthEmpty=3, got %d", HealthEmpty)
	}
}

func TestHealth_MarshalText(t *testing.T) {
	b, err := HealthDegraded.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText failed: %v", err)
	}
	if string(b) != "degraded" {
		t.Errorf("expected 'degraded', got %q", b)
	}
}

func TestTransitionState_String(t *testing.T) {
	if s := TransitionIdle.String(); s != "idle" {
		t.Errorf("expected 'idle', got %q", s)
	}
	if s := TransitionRunning.String(); s != "running" {
		t.Errorf("expected 'running', got %q", s)
	}
	if s := TransitionState(7).String(); s != "unknown" {
		t.Errorf("expected 'unknown', got %q", s)
	}
}

func TestSnapshot_JSONRoundTrip(t *testing.T) {
	in := Snapshot{SessionID: "t1", Value: 2.5, Health: HealthDegraded, Transition: TransitionRunning}
	b, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	var out Snapshot
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if out.Health != HealthDegraded || out.Transition != TransitionRunning || out.Value != 2.5 {
		t.Errorf("round trip mismatch: %+v", out)
	}
}

func TestUnmarshalText_RejectsUnknownNames(t *testing.T) {
	var h Health
	if err := h.UnmarshalText([]byte("unknown")); err == nil {
		t.Error("expected error for unknown health")
	}
	var s TransitionState
	if err := s.UnmarshalText([]byte("paused")); err == nil {
		t.Error("expected error for unknown transition state")
	}
}
