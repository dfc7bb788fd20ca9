package aviator

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"

	"github.com/zoobzio/capitan"
)

// Scene is the external collaborator that renders the game.
type Scene interface {
	// Send delivers a signal to the scene's message handler.
	Send(ctx context.Context, sig Signal) error

	// Ready reports whether the scene has loaded and can receive signals.
	Ready() bool
}

// BridgeStats counts what happened to signals passed to a Bridge.
type BridgeStats struct {
	Sent    uint64 `json:"sent"`
	Skipped uint64 `json:"skipped"`
	Failed  uint64 `json:"failed"`
}

// Bridge is the one-way channel from a Session to its Scene. Every send is
// gated on scene readiness: a signal sent while the scene is not ready is
// dropped and counted, never queued or retried. After Close the scene is
// never called again.
type Bridge struct {
	scene   Scene
	session string
	logger  *slog.Logger
	metrics MetricsProvider

	closed  atomic.Bool
	sent    atomic.Uint64
	skipped atomic.Uint64
	failed  atomic.Uint64
}

// NewBridge wraps scene. A nil logger discards output; nil metrics are ignored.
func NewBridge(scene Scene, session string, logger *slog.Logger, metrics MetricsProvider) *Bridge {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if metrics == nil {
		metrics = NoOpMetricsProvider{}
	}
	return &Bridge{
		scene:   scene,
		session: session,
		logger:  logger,
		metrics: metrics,
	}
}

// Send delivers sig if the bridge is open and the scene is ready.
// It reports whether the scene accepted the signal. Scene errors are
// logged and counted, never returned.
func (b *Bridge) Send(ctx context.Context, sig Signal) bool {
	if b.closed.Load() {
		return false
	}
	if !b.scene.Ready() {
		b.skipped.Add(1)
		b.logger.Debug("scene not ready, skipping send",
			"session", b.session,
			"signal", sig.Name,
		)
		capitan.Emit(ctx, SendSkipped,
			KeySession.Field(b.session),
			KeySignal.Field(sig.Name),
		)
		b.metrics.OnSignalSkipped(sig.Name)
		return false
	}
	if err := b.scene.Send(ctx, sig); err != nil {
		b.failed.Add(1)
		b.logger.Warn("scene rejected signal",
			"session", b.session,
			"signal", sig.Name,
			"error", err,
		)
		b.metrics.OnSignalFailed(sig.Name)
		return false
	}
	b.sent.Add(1)
	b.metrics.OnSignalSent(sig.Name)
	return true
}

// Ready reports whether a send would reach the scene right now.
func (b *Bridge) Ready() bool {
	return !b.closed.Load() && b.scene.Ready()
}

// Close stops all further sends.
func (b *Bridge) Close() {
	b.closed.Store(true)
}

// Stats returns the send counters.
func (b *Bridge) Stats() BridgeStats {
	return BridgeStats{
		Sent:    b.sent.Load(),
		Skipped: b.skipped.Load(),
		Failed:  b.failed.Load(),
	}
}
