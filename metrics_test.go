package aviator

import (
	"testing"
	"time"
)

func TestNoOpMetricsProvider_DoesNotPanic(_ *testing.T) {
	var m NoOpMetricsProvider

	// These should not panic
	m.OnHealthChange(HealthLoading, HealthHealthy)
	m.OnPollSuccess(100 * time.Millisecond)
	m.OnPollFailure(StageRequest, 50*time.Millisecond)
	m.OnTransitionStart(1, 2)
	m.OnTransitionComplete(2, time.Second)
	m.OnSignalSent("multiplier")
	m.OnSignalSkipped("multiplier")
	m.OnSignalFailed("crashingPlane")
}

func TestNoOpMetricsProvider_ImplementsInterface(_ *testing.T) {
	var _ MetricsProvider = NoOpMetricsProvider{}
}
