package statewire

import "github.com/zoobzio/statewire/wire"

// Hook is a user-supplied encode/decode pair for a single field. A field
// opting in via `state:"with=name"` bypasses the engines and the mode
// inheritance entirely: the hook receives the state and the raw wire value
// directly, and its result or error is forwarded unchanged.
type Hook struct {
	// Marshal encodes the field value. value is the field's current value.
	Marshal func(state State, value any) (wire.Value, error)

	// Unmarshal decodes the field value. The returned value must be
	// assignable to the field's type.
	Unmarshal func(state State, v wire.Value) (any, error)
}

// complete reports whether both directions are present. Validation rejects
// one-sided hooks so encode and decode stay a matched pair.
func (h Hook) complete() bool {
	return h.Marshal != nil && h.Unmarshal != nil
}
