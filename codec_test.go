package aviator

import "testing"

type codecTestPayload struct {
	Name  string `json:"name" yaml:"name"`
	Value int    `json:"value" yaml:"value"`
}

func TestJSONCodec_Unmarshal(t *testing.T) {
	var p codecTestPayload
	if err := (JSONCodec{}).Unmarshal([]byte(`{"name": "test", "value": 42}`), &p); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if p.Name != "test" || p.Value != 42 {
		t.Errorf("unexpected payload: %+v", p)
	}
}

func TestJSONCodec_UnmarshalInvalid(t *testing.T) {
	var p codecTestPayload
	if err := (JSONCodec{}).Unmarshal([]byte(`{not valid json}`), &p); err == nil {
		t.Error("expected error for invalid JSON")
	}
}

func TestYAMLCodec_Unmarshal(t *testing.T) {
	var p codecTestPayload
	if err := (YAMLCodec{}).Unmarshal([]byte("name: test\nvalue: 42\n"), &p); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if p.Name != "test" || p.Value != 42 {
		t.Errorf("unexpected payload: %+v", p)
	}
}

func TestCodec_ContentType(t *testing.T) {
	if ct := (JSONCodec{}).ContentType(); ct != "application/json" {
		t.Errorf("expected application/json, got %q", ct)
	}
	if ct := (YAMLCodec{}).ContentType(); ct != "application/x-yaml" {
		t.Errorf("expected application/x-yaml, got %q", ct)
	}
}

func TestCodecForPath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"feed.json", "application/json"},
		{"feed.yaml", "application/x-yaml"},
		{"feed.YML", "application/x-yaml"},
		{"feed", "application/json"},
	}
	for _, tt := range tests {
		if got := CodecForPath(tt.path).ContentType(); got != tt.want {
			t.Errorf("CodecForPath(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}
