package statewire

import "github.com/zoobzio/statewire/wire"

// State is the caller-owned value threaded through one marshal or unmarshal
// call. It is opaque to the engine: never serialized, never cloned, never
// mutated. Whether a state type exposes interior mutation (instrumentation
// counters, interners) is a policy of that type, not of the engine.
type State = any

// Leaf capability interfaces. A type participates in stateful positions by
// implementing the State pair; the Wire pair serves stateless positions and
// doubles as the fallback for stateful positions on types that have no use
// for the state, so ordinary types compose into stateful containers
// unchanged.

// StateMarshaler is implemented by leaf types whose encoding needs the
// state of the surrounding call.
type StateMarshaler interface {
	// MarshalState encodes the receiver. The state is the same reference
	// the caller handed to the processor.
	MarshalState(state State) (wire.Value, error)
}

// StateUnmarshaler is implemented by leaf types whose decoding needs the
// state of the surrounding call. Implement on a pointer receiver.
type StateUnmarshaler interface {
	// UnmarshalState decodes v into the receiver.
	UnmarshalState(state State, v wire.Value) error
}

// WireMarshaler bypasses the reflection-based default encoding for a type
// that wants custom wire output but no state.
type WireMarshaler interface {
	MarshalWire() (wire.Value, error)
}

// WireUnmarshaler bypasses the reflection-based default decoding.
// Implement on a pointer receiver.
type WireUnmarshaler interface {
	UnmarshalWire(v wire.Value) error
}

// Defaulter refines the default-value rule for skip fields. A skip field is
// reconstructed as its zero value on decode; if its type implements
// Defaulter, SetDefault is called on the freshly zeroed value afterwards.
type Defaulter interface {
	SetDefault()
}
