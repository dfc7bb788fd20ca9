package aviator

import "time"

// MetricsProvider allows integration with metrics systems like Prometheus, StatsD, etc.
// Implement this interface to receive callbacks on key session events.
type MetricsProvider interface {
	// OnHealthChange is called when the feed health transitions between states.
	OnHealthChange(from, to Health)

	// OnPollSuccess is called when a poll returns a usable reading.
	OnPollSuccess(latency time.Duration)

	// OnPollFailure is called when a poll fails.
	// Stage is one of "request", "status", "decode" or "validate".
	OnPollFailure(stage string, latency time.Duration)

	// OnTransitionStart is called when the displayed value starts moving.
	OnTransitionStart(from, to float64)

	// OnTransitionComplete is called when the displayed value settles.
	OnTransitionComplete(target float64, elapsed time.Duration)

	// OnSignalSent is called when the scene accepted a signal.
	OnSignalSent(name string)

	// OnSignalSkipped is called when a signal was dropped because the scene was not ready.
	OnSignalSkipped(name string)

	// OnSignalFailed is called when the scene returned an error for a signal.
	OnSignalFailed(name string)
}

// NoOpMetricsProvider is a no-op implementation of MetricsProvider.
// Use this as an embedded type to implement only the methods you need.
type NoOpMetricsProvider struct{}

func (NoOpMetricsProvider) OnHealthChange(_, _ Health)                      {}
func (NoOpMetricsProvider) OnPollSuccess(_ time.Duration)                   {}
func (NoOpMetricsProvider) OnPollFailure(_ string, _ time.Duration)         {}
func (NoOpMetricsProvider) OnTransitionStart(_, _ float64)                  {}
func (NoOpMetricsProvider) OnTransitionComplete(_ float64, _ time.Duration) {}
func (NoOpMetricsProvider) OnSignalSent(_ string)                           {}
func (NoOpMetricsProvider) OnSignalSkipped(_ string)                        {}
func (NoOpMetricsProvider) OnSignalFailed(_ string)                         {}
