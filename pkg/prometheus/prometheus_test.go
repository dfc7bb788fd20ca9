package prometheus

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zoobzio/aviator"
	"github.com/zoobzio/clockz"
)

func newMetrics(t *testing.T) *Metrics {
	t.Helper()
	m, err := New(prometheus.NewRegistry(), "aviator")
	require.NoError(t, err)
	return m
}

func TestNew_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := New(reg, "aviator")
	require.NoError(t, err)

	_, err = New(reg, "aviator")
	assert.Error(t, err)
}

func TestMetrics_Health(t *testing.T) {
	m := newMetrics(t)

	m.OnHealthChange(aviator.HealthLoading, aviator.HealthHealthy)
	m.OnHealthChange(aviator.HealthHealthy, aviator.HealthDegraded)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.health))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.healthChanges.WithLabelValues("healthy", "degraded")))
}

func TestMetrics_Polls(t *testing.T) {
	m := newMetrics(t)

	m.OnPollSuccess(10 * time.Millisecond)
	m.OnPollSuccess(20 * time.Millisecond)
	m.OnPollFailure(aviator.StageStatus, 5*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.polls.WithLabelValues("success", "")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.polls.WithLabelValues("failure", "status")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.pollDuration))
}

func TestMetrics_Transitions(t *testing.T) {
	m := newMetrics(t)

	m.OnTransitionStart(0, 2)
	m.OnTransitionComplete(2, time.Second)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.transitions.WithLabelValues("started")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.transitions.WithLabelValues("completed")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.committedTarget))
}

func TestMetrics_Signals(t *testing.T) {
	m := newMetrics(t)

	m.OnSignalSent("multiplier")
	m.OnSignalSent("multiplier")
	m.OnSignalSkipped("crashingPlane")
	m.OnSignalFailed("multiplier")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.signals.WithLabelValues("multiplier", "sent")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.signals.WithLabelValues("crashingPlane", "skipped")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.signals.WithLabelValues("multiplier", "failed")))
}

type readyScene struct{}

func (readyScene) Send(context.Context, aviator.Signal) error { return nil }
func (readyScene) Ready() bool                                { return true }

func TestMetrics_WiredIntoSession(t *testing.T) {
	m := newMetrics(t)
	clock := clockz.NewFakeClock()
	src := aviator.SourceFunc(func(context.Context) (aviator.Reading, error) {
		return aviator.Reading{Target: 1.5, Flag: true}, nil
	})

	s := aviator.New(src, readyScene{}).SyncMode().Clock(clock).Metrics(m)
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	require.NoError(t, s.Poll(context.Background()))
	clock.Advance(time.Second)
	s.Frame(context.Background())

	assert.Equal(t, 1.0, testutil.ToFloat64(m.health))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.polls.WithLabelValues("success", "")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.transitions.WithLabelValues("completed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.signals.WithLabelValues("crashingPlane", "sent")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.signals.WithLabelValues("multiplier", "sent")))
	assert.Equal(t, 1.5, testutil.ToFloat64(m.committedTarget))
}
