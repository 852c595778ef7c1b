// Package statewire provides structured serialization with an out-of-band
// state threaded through every step of the walk.
//
// The package generates, for a registered Go type, a matched encode/decode
// pair: Marshal converts a value plus a caller-owned state into a wire
// shape, Unmarshal parses that shape back into a value given a state. The
// state never appears in the wire data; it exists purely to give leaf-level
// serialization logic access to a shared resource (an interner, a registry,
// an instrumentation counter) that is unavailable at the leaf type's own
// definition.
//
// # Modes
//
// Every field and union variant resolves to one of two modes:
//
//   - stateful: the leaf receives the state (default)
//   - stateless: the leaf is serialized through the ordinary, state-free
//     path and never sees the state
//
// Modes inherit top-down: the container default (see WithDefaultMode) is
// overridden per variant (see VariantMode) and per field (see the state
// tag); an explicit override at a narrower scope always wins.
//
// # Tag Syntax
//
// Field behavior is declared via struct tags:
//
//	wire:"{key}"         - rename the wire key
//	wire:"-"             - skip: never on the wire, zero value on decode
//	state:"stateless"    - serialize without the state
//	state:"stateful"     - serialize with the state (the default)
//	state:"with={hook}"  - delegate to a hook registered via WithHook
//
// # Basic Usage
//
//	type Counter struct{ N uint32 }
//
//	func (c Counter) MarshalState(state statewire.State) (wire.Value, error) {
//	    r := state.(*Recorder)
//	    r.Serialized++
//	    return wire.Uint(r.Serialized), nil
//	}
//
//	func (c *Counter) UnmarshalState(state statewire.State, v wire.Value) error {
//	    state.(*Recorder).Deserialized++
//	    n, ok := wire.AsUint(v)
//	    if !ok {
//	        return fmt.Errorf("counter: expected number, got %s", v.Kind())
//	    }
//	    c.N = uint32(n)
//	    return nil
//	}
//
//	type Example struct {
//	    First  Counter `wire:"first"`
//	    Second Counter `wire:"second"`
//	}
//
//	proc, _ := statewire.NewProcessor[Example](json.New())
//
//	rec := &Recorder{}
//	data, _ := proc.Marshal(ctx, value, rec)   // {"first":1,"second":2}
//	value, _ = proc.Unmarshal(ctx, data, rec)
//
// # Unions
//
// Go interfaces carry no variant metadata, so tagged unions are declared
// with a builder before first use:
//
//	statewire.NewUnion[Command]().
//	    Unit("Idle", Idle{}).
//	    Tuple("Combine", Combine{}).
//	    Register()
//
// A unit variant encodes to its bare name; payload variants encode to a
// one-member object {name: payload}.
//
// # Wire Shapes
//
// The engines read and write the wire.Value model, a JSON-like tree with
// ordered objects. Codec providers translate it to bytes:
//
//   - json - JSON encoding (application/json)
//   - msgpack - MessagePack encoding (application/msgpack)
//   - cbor - CBOR encoding (application/cbor)
//   - yaml - YAML encoding (application/yaml)
//
// # State
//
// The state is shared by reference with every node of one call, depth-first
// and left-to-right over fields in declaration order. The engine never
// clones, mutates, or serializes it. Concurrent reuse of one state value
// across independent calls is the caller's concern.
package statewire
