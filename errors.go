package aviator

import (
	"errors"
	"fmt"
)

// Fetch stages reported by FetchError.
const (
	StageRequest  = "request"
	StageStatus   = "status"
	StageDecode   = "decode"
	StageValidate = "validate"
)

var (
	// ErrInvalidTarget reports a feed target that is missing, non-numeric or not finite.
	ErrInvalidTarget = errors.New("invalid target value")

	// ErrMissingFlag reports a feed payload without its running flag.
	ErrMissingFlag = errors.New("missing running flag")

	// ErrNoReading reports a source that has not produced a value yet.
	ErrNoReading = errors.New("no reading available")

	// ErrAlreadyStarted is returned by Start on a session that was started before.
	ErrAlreadyStarted = errors.New("session already started")

	// ErrNotStarted is returned by Poll and Frame before Start.
	ErrNotStarted = errors.New("session not started")

	// ErrNotSyncMode is returned by Poll when the session runs its own scheduler.
	ErrNotSyncMode = errors.New("session is not in sync mode")

	// ErrStopped is returned by Poll after Stop.
	ErrStopped = errors.New("session stopped")
)

// FetchError describes a failed poll: a network failure, a non-success
// response, or a payload that could not be turned into a Reading.
type FetchError struct {
	// Source names the adapter that failed, e.g. "http" or "redis".
	Source string

	// Stage is where the failure happened: StageRequest, StageStatus,
	// StageDecode or StageValidate.
	Stage string

	Err error
}

func (e *FetchError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("fetch failed at %s: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("%s fetch failed at %s: %v", e.Source, e.Stage, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Fail attributes err to source. A FetchError keeps its stage and gains the
// source name; any other error becomes a FetchError at stage.
func Fail(source, stage string, err error) error {
	if err == nil {
		return nil
	}
	var fe *FetchError
	if errors.As(err, &fe) {
		out := *fe
		if out.Source == "" {
			out.Source = source
		}
		return &out
	}
	return &FetchError{Source: source, Stage: stage, Err: err}
}

// asFetchError normalizes errors returned by arbitrary Source implementations.
func asFetchError(err error) *FetchError {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe
	}
	return &FetchError{Stage: StageRequest, Err: err}
}
