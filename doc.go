/*
Package aviator synchronizes a crash-game scene with an upstream multiplier feed.

A Session polls a Source on a fixed period, eases the displayed multiplier
toward each new target over a fixed wall-clock duration, and relays the feed's
running flag to the scene the moment it is observed. The scene is reached
through a Scene, an external collaborator that accepts named signals and
reports whether it is ready for them.

	Scheduler → Source → {Transition, Relay} → Bridge → Scene

# Basic Usage

	session := aviator.New(
	    httpfeed.New("https://feed.example.com/round"),
	    hub, // e.g. a websocket.Hub serving the browser scene
	).
	    PollInterval(time.Second).
	    TransitionDuration(time.Second).
	    Logger(logger)

	if err := session.Start(ctx); err != nil {
	    return err
	}
	defer session.Stop()

# Transitions

A Transition moves the displayed value linearly from where it is now to the
latest target, rounding every value to 2 decimal places. Repeating the last
committed target is a no-op, and a new target arriving mid-transition rebases
from the value currently displayed, so the scene never jumps.

	t := aviator.NewTransition(time.Second)
	t.Start(5.0, now)
	v, done := t.Tick(now.Add(500 * time.Millisecond)) // 2.5, false

# Scene Signals

Two signals reach the scene, both addressed to the "GameManager" object:

  - multiplier: the displayed value, on every tick of a running transition
  - crashingPlane: the running flag, when it changes

Every send is gated on Scene.Ready. A signal sent before the scene is ready is
dropped and counted, never queued.

# Feed Health

A Session tracks the health of its feed:

  - Loading: no poll has completed
  - Healthy: the last poll succeeded
  - Degraded: the last poll failed, the last good target and flag stay in effect
  - Empty: no poll has ever succeeded

# Testing

SyncMode disables the scheduling goroutine so tests can drive a Session with
Poll and Frame against a clockz.FakeClock:

	clock := clockz.NewFakeClock()
	session := aviator.New(source, scene).SyncMode().Clock(clock)
	_ = session.Start(ctx)
	_ = session.Poll(ctx)
	clock.Advance(500 * time.Millisecond)
	session.Frame(ctx)
*/
package aviator
