package aviator

import "github.com/zoobzio/capitan"

// Field keys for Session events.
var (
	// KeySession is the session identifier.
	KeySession = capitan.NewStringKey("session")

	// KeyOldHealth is the feed health before a transition.
	KeyOldHealth = capitan.NewStringKey("old_health")

	// KeyNewHealth is the feed health after a transition.
	KeyNewHealth = capitan.NewStringKey("new_health")

	// KeyHealth is the feed health when the session stopped.
	KeyHealth = capitan.NewStringKey("health")

	// KeyError is the error message when an operation fails.
	KeyError = capitan.NewStringKey("error")

	// KeyStage is the fetch stage that failed.
	KeyStage = capitan.NewStringKey("stage")

	// KeyFrom is the displayed value a transition started from, fixed to 2 decimals.
	KeyFrom = capitan.NewStringKey("from")

	// KeyTarget is the transition target, fixed to 2 decimals.
	KeyTarget = capitan.NewStringKey("target")

	// KeyFlag is the crash flag as "true" or "false".
	KeyFlag = capitan.NewStringKey("flag")

	// KeySignal is the scene signal name.
	KeySignal = capitan.NewStringKey("signal")

	// KeyPollInterval is the configured poll period.
	KeyPollInterval = capitan.NewDurationKey("poll_interval")

	// KeyElapsed is the wall-clock length of a completed transition.
	KeyElapsed = capitan.NewDurationKey("elapsed")

	// KeySequence is the fetch sequence number.
	KeySequence = capitan.NewIntKey("sequence")
)
