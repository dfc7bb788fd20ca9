package aviator

import (
	"context"
	"strconv"

	"github.com/zoobzio/capitan"
)

// Relay forwards the crash flag to the scene as soon as a poll observes it,
// independent of any transition in flight.
//
// Change detection compares against the last flag the scene actually
// received. A send dropped because the scene was not ready therefore does
// not count, and the next SetFlag delivers the current value even if the
// feed has not changed since.
type Relay struct {
	bridge   *Bridge
	protocol Protocol
	policy   FlagPolicy
	encoding FlagEncoding
	session  string

	flag  bool
	known bool

	delivered    bool
	hasDelivered bool
}

// NewRelay creates a Relay sending through bridge.
func NewRelay(bridge *Bridge, protocol Protocol, policy FlagPolicy, encoding FlagEncoding, session string) *Relay {
	return &Relay{
		bridge:   bridge,
		protocol: protocol,
		policy:   policy,
		encoding: encoding,
		session:  session,
	}
}

// SetFlag stores flag and forwards it according to the relay's policy.
// It reports whether the scene received the flag.
func (r *Relay) SetFlag(ctx context.Context, flag bool) bool {
	r.flag, r.known = flag, true

	if r.policy == FlagOnChange && r.hasDelivered && r.delivered == flag {
		return false
	}
	if !r.bridge.Send(ctx, r.protocol.CrashSignal(flag, r.encoding)) {
		return false
	}
	r.delivered, r.hasDelivered = flag, true
	capitan.Emit(ctx, FlagRelayed,
		KeySession.Field(r.session),
		KeyFlag.Field(strconv.FormatBool(flag)),
	)
	return true
}

// Flag returns the stored flag and whether any flag has been observed.
func (r *Relay) Flag() (bool, bool) {
	return r.flag, r.known
}

// Pending reports whether the stored flag has not reached the scene yet.
func (r *Relay) Pending() bool {
	return r.known && (!r.hasDelivered || r.delivered != r.flag)
}
