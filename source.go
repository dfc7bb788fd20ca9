package aviator

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/go-playground/validator/v10"
)

// validate is the shared validator instance.
var validate = validator.New()

// Reading is one observation of the upstream feed.
type Reading struct {
	// Target is the multiplier the scene should move toward.
	Target float64 `json:"multiplier"`

	// Flag is the feed's running flag, relayed to the scene as the crash signal.
	Flag bool `json:"running"`
}

// Validate reports ErrInvalidTarget for NaN or infinite targets.
func (r Reading) Validate() error {
	if math.IsNaN(r.Target) || math.IsInf(r.Target, 0) {
		return ErrInvalidTarget
	}
	return nil
}

// Source performs one request/response cycle against the upstream feed.
// Implementations return a *FetchError on failure and must honor ctx.
// Callers must not assume ordering between overlapping calls.
type Source interface {
	Fetch(ctx context.Context) (Reading, error)
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func(ctx context.Context) (Reading, error)

// Fetch calls f.
func (f SourceFunc) Fetch(ctx context.Context) (Reading, error) {
	return f(ctx)
}

// feedPayload is the wire shape of the feed. The multiplier is decoded
// loosely so a non-numeric value is reported as ErrInvalidTarget rather
// than a codec error.
type feedPayload struct {
	Multiplier any   `json:"multiplier" yaml:"multiplier"`
	Running    *bool `json:"running" yaml:"running" validate:"required"`
}

// legacyPayload is the single-field shape served by early feeds.
type legacyPayload struct {
	RandomNumber any `json:"random_number" yaml:"random_number"`
}

// ParseReading decodes a {"multiplier": number, "running": bool} payload.
// Both fields are required.
func ParseReading(codec Codec, raw []byte) (Reading, error) {
	var p feedPayload
	if err := codec.Unmarshal(raw, &p); err != nil {
		return Reading{}, &FetchError{Stage: StageDecode, Err: err}
	}
	target, err := numeric(p.Multiplier)
	if err != nil {
		return Reading{}, &FetchError{Stage: StageValidate, Err: fmt.Errorf("multiplier: %w", err)}
	}
	if err := validate.Struct(p); err != nil {
		return Reading{}, &FetchError{Stage: StageValidate, Err: fmt.Errorf("%w: %v", ErrMissingFlag, err)}
	}
	return Reading{Target: target, Flag: *p.Running}, nil
}

// ParseLegacyReading decodes the early {"random_number": number} payload.
// Those feeds carry no flag, so Flag is always false.
func ParseLegacyReading(codec Codec, raw []byte) (Reading, error) {
	var p legacyPayload
	if err := codec.Unmarshal(raw, &p); err != nil {
		return Reading{}, &FetchError{Stage: StageDecode, Err: err}
	}
	target, err := numeric(p.RandomNumber)
	if err != nil {
		return Reading{}, &FetchError{Stage: StageValidate, Err: fmt.Errorf("random_number: %w", err)}
	}
	return Reading{Target: target}, nil
}

// numeric accepts the number types produced by the JSON and YAML decoders.
func numeric(v any) (float64, error) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case uint64:
		f = float64(n)
	case nil:
		return 0, fmt.Errorf("%w: missing", ErrInvalidTarget)
	default:
		return 0, fmt.Errorf("%w: %T is not a number", ErrInvalidTarget, v)
	}
	if err := (Reading{Target: f}).Validate(); err != nil {
		return 0, err
	}
	return f, nil
}

// ChannelSource serves the most recent Reading received on a channel.
// Each Fetch drains at most one pending value; with nothing pending it
// repeats the previous value, the way a polled feed repeats an unchanged
// target. Useful for tests and for producers that already push values.
type ChannelSource struct {
	ch <-chan Reading

	mu   sync.Mutex
	last *Reading
}

// NewChannelSource creates a ChannelSource reading from ch.
func NewChannelSource(ch <-chan Reading) *ChannelSource {
	return &ChannelSource{ch: ch}
}

// Fetch returns the next pending Reading, or the previous one when none is pending.
func (s *ChannelSource) Fetch(ctx context.Context) (Reading, error) {
	if err := ctx.Err(); err != nil {
		return Reading{}, &FetchError{Source: "channel", Stage: StageRequest, Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	select {
	case r, ok := <-s.ch:
		if ok {
			s.last = &r
		}
	default:
	}
	if s.last == nil {
		return Reading{}, &FetchError{Source: "channel", Stage: StageRequest, Err: ErrNoReading}
	}
	return *s.last, nil
}
