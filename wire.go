package aviator

import "strconv"

// DefaultSceneObject is the scene object that receives every signal.
const DefaultSceneObject = "GameManager"

// Signal is one named message for the scene.
//
// The JSON form is the wire contract for scenes reached over a transport:
//
//	{"target":"GameManager","signal":"multiplier","payload":2.35}
//	{"target":"GameManager","signal":"crashingPlane","payload":true}
type Signal struct {
	// Target is the scene object that handles the signal.
	Target string `json:"target"`

	// Name is the handler invoked on Target.
	Name string `json:"signal"`

	// Payload is a number for multiplier signals and a boolean (or, with
	// FlagEncodingString, the string "true"/"false") for crash signals.
	Payload any `json:"payload"`
}

// Protocol names the scene object and handlers a Session sends to.
type Protocol struct {
	Object     string `json:"object" yaml:"object"`
	Multiplier string `json:"multiplier" yaml:"multiplier"`
	Crash      string `json:"crash" yaml:"crash"`
}

var (
	// DefaultProtocol is the current signal naming.
	DefaultProtocol = Protocol{
		Object:     DefaultSceneObject,
		Multiplier: "multiplier",
		Crash:      "crashingPlane",
	}

	// LegacyProtocol is the naming understood by early scene builds.
	LegacyProtocol = Protocol{
		Object:     DefaultSceneObject,
		Multiplier: "SetTargetMultiplier",
		Crash:      "crashPlane",
	}
)

// MultiplierSignal builds the signal carrying a displayed value.
func (p Protocol) MultiplierSignal(value float64) Signal {
	return Signal{Target: p.Object, Name: p.Multiplier, Payload: value}
}

// CrashSignal builds the signal carrying the crash flag in the given encoding.
func (p Protocol) CrashSignal(flag bool, enc FlagEncoding) Signal {
	var payload any = flag
	if enc == FlagEncodingString {
		payload = strconv.FormatBool(flag)
	}
	return Signal{Target: p.Object, Name: p.Crash, Payload: payload}
}

// FlagEncoding selects how the crash flag is carried in a Signal payload.
// It is fixed per Session.
type FlagEncoding int

const (
	// FlagEncodingBool sends the flag as a JSON boolean.
	FlagEncodingBool FlagEncoding = iota

	// FlagEncodingString sends the flag as "true" or "false", for scene
	// builds whose handlers only accept strings.
	FlagEncodingString
)

// FlagPolicy selects when the crash flag is forwarded to the scene.
type FlagPolicy int

const (
	// FlagOnChange forwards the flag only when it differs from the last
	// value the scene received.
	FlagOnChange FlagPolicy = iota

	// FlagAlways forwards the flag on every successful poll.
	FlagAlways
)
