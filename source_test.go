package aviator

import (
	"context"
	"errors"
	"math"
	"testing"
)

func TestParseReading(t *testing.T) {
	r, err := ParseReading(JSONCodec{}, []byte(`{"multiplier": 2.35, "running": true}`))
	if err != nil {
		t.Fatalf("ParseReading failed: %v", err)
	}
	if r.Target != 2.35 || !r.Flag {
		t.Errorf("unexpected reading: %+v", r)
	}
}

func TestParseReading_IntegerMultiplier(t *testing.T) {
	r, err := ParseReading(YAMLCodec{}, []byte("multiplier: 3\nrunning: false\n"))
	if err != nil {
		t.Fatalf("ParseReading failed: %v", err)
	}
	if r.Target != 3 || r.Flag {
		t.Errorf("unexpected reading: %+v", r)
	}
}

func TestParseReading_DecodeError(t *testing.T) {
	_, err := ParseReading(JSONCodec{}, []byte(`<html>`))

	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected *FetchError, got %T", err)
	}
	if fe.Stage != StageDecode {
		t.Errorf("expected stage %q, got %q", StageDecode, fe.Stage)
	}
}

func TestParseReading_NonNumericMultiplier(t *testing.T) {
	_, err := ParseReading(JSONCodec{}, []byte(`{"multiplier": "2.5", "running": true}`))
	if !errors.Is(err, ErrInvalidTarget) {
		t.Errorf("expected ErrInvalidTarget, got %v", err)
	}

	var fe *FetchError
	if errors.As(err, &fe) && fe.Stage != StageValidate {
		t.Errorf("expected stage %q, got %q", StageValidate, fe.Stage)
	}
}

func TestParseReading_MissingMultiplier(t *testing.T) {
	_, err := ParseReading(JSONCodec{}, []byte(`{"running": true}`))
	if !errors.Is(err, ErrInvalidTarget) {
		t.Errorf("expected ErrInvalidTarget, got %v", err)
	}
}

func TestParseReading_MissingFlag(t *testing.T) {
	_, err := ParseReading(JSONCodec{}, []byte(`{"multiplier": 1.5}`))
	if !errors.Is(err, ErrMissingFlag) {
		t.Errorf("expected ErrMissingFlag, got %v", err)
	}
}

func TestParseLegacyReading(t *testing.T) {
	r, err := ParseLegacyReading(JSONCodec{}, []byte(`{"random_number": 4.2}`))
	if err != nil {
		t.Fatalf("ParseLegacyReading failed: %v", err)
	}
	if r.Target != 4.2 || r.Flag {
		t.Errorf("unexpected reading: %+v", r)
	}
}

func TestReading_Validate(t *testing.T) {
	if err := (Reading{Target: 1.5}).Validate(); err != nil {
		t.Errorf("expected valid reading, got %v", err)
	}
	if err := (Reading{Target: math.NaN()}).Validate(); !errors.Is(err, ErrInvalidTarget) {
		t.Errorf("expected ErrInvalidTarget for NaN, got %v", err)
	}
	if err := (Reading{Target: math.Inf(1)}).Validate(); !errors.Is(err, ErrInvalidTarget) {
		t.Errorf("expected ErrInvalidTarget for +Inf, got %v", err)
	}
}

func TestChannelSource_NoReadingYet(t *testing.T) {
	src := NewChannelSource(make(chan Reading))

	_, err := src.Fetch(context.Background())
	if !errors.Is(err, ErrNoReading) {
		t.Errorf("expected ErrNoReading, got %v", err)
	}
}

func TestChannelSource_RepeatsLastValue(t *testing.T) {
	ch := make(chan Reading, 2)
	src := NewChannelSource(ch)

	ch <- Reading{Target: 2}
	ch <- Reading{Target: 3, Flag: true}

	for _, want := range []Reading{{Target: 2}, {Target: 3, Flag: true}, {Target: 3, Flag: true}} {
		got, err := src.Fetch(context.Background())
		if err != nil {
			t.Fatalf("Fetch failed: %v", err)
		}
		if got != want {
			t.Errorf("expected %+v, got %+v", want, got)
		}
	}
}

func TestChannelSource_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewChannelSource(make(chan Reading)).Fetch(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestSourceFunc(t *testing.T) {
	src := SourceFunc(func(context.Context) (Reading, error) {
		return Reading{Target: 9}, nil
	})
	r, err := src.Fetch(context.Background())
	if err != nil || r.Target != 9 {
		t.Errorf("unexpected result: %+v, %v", r, err)
	}
}
