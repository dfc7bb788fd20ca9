package aviator

import "github.com/zoobzio/capitan"

// Session lifecycle signals.
var (
	// SessionStarted is emitted when a Session begins polling.
	SessionStarted = capitan.NewSignal(
		"aviator.session.started",
		"Session polling started",
	)

	// SessionStopped is emitted when a Session has released its timers.
	SessionStopped = capitan.NewSignal(
		"aviator.session.stopped",
		"Session polling stopped",
	)

	// HealthChanged is emitted when feed health transitions between states.
	HealthChanged = capitan.NewSignal(
		"aviator.session.health.changed",
		"Feed health transition",
	)
)

// Feed signals.
var (
	// PollFailed is emitted when a poll cycle is skipped because the source failed.
	PollFailed = capitan.NewSignal(
		"aviator.poll.failed",
		"Poll failed, last known state retained",
	)

	// PollDiscarded is emitted when a fetch result arrives after a newer one was applied.
	PollDiscarded = capitan.NewSignal(
		"aviator.poll.discarded",
		"Out of order fetch result discarded",
	)
)

// Scene signals.
var (
	// TransitionStarted is emitted when the displayed value begins moving toward a new target.
	TransitionStarted = capitan.NewSignal(
		"aviator.transition.started",
		"Transition started",
	)

	// TransitionCompleted is emitted when the displayed value settles on its target.
	TransitionCompleted = capitan.NewSignal(
		"aviator.transition.completed",
		"Transition completed",
	)

	// FlagRelayed is emitted when the crash flag reaches the scene.
	FlagRelayed = capitan.NewSignal(
		"aviator.flag.relayed",
		"Crash flag delivered to scene",
	)

	// SendSkipped is emitted when a signal is dropped because the scene was not ready.
	SendSkipped = capitan.NewSignal(
		"aviator.send.skipped",
		"Scene not ready, signal dropped",
	)
)
