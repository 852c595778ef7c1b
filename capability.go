package statewire

import (
	"fmt"
	"reflect"
)

// fieldCodec is the once-per-use-site classification the engines dispatch
// on. It is derived at schema build time so no call ever probes
// capabilities at runtime.
type fieldCodec int

const (
	// codecStateless serializes through the state-free path.
	codecStateless fieldCodec = iota

	// codecStateful hands the state to the leaf.
	codecStateful

	// codecHook delegates to a user-supplied encode/decode pair.
	codecHook

	// codecSkip never reaches the wire; decode applies the default rule.
	codecSkip
)

// capability records which leaf interfaces a type satisfies, on either
// receiver form.
type capability struct {
	stateMarshal   bool
	stateUnmarshal bool
	wireMarshal    bool
	wireUnmarshal  bool
}

var (
	stateMarshalerType   = reflect.TypeOf((*StateMarshaler)(nil)).Elem()
	stateUnmarshalerType = reflect.TypeOf((*StateUnmarshaler)(nil)).Elem()
	wireMarshalerType    = reflect.TypeOf((*WireMarshaler)(nil)).Elem()
	wireUnmarshalerType  = reflect.TypeOf((*WireUnmarshaler)(nil)).Elem()
	defaulterType        = reflect.TypeOf((*Defaulter)(nil)).Elem()
)

func capabilityOf(rt reflect.Type) capability {
	pt := reflect.PointerTo(rt)
	return capability{
		stateMarshal:   rt.Implements(stateMarshalerType) || pt.Implements(stateMarshalerType),
		stateUnmarshal: rt.Implements(stateUnmarshalerType) || pt.Implements(stateUnmarshalerType),
		wireMarshal:    rt.Implements(wireMarshalerType) || pt.Implements(wireMarshalerType),
		wireUnmarshal:  rt.Implements(wireUnmarshalerType) || pt.Implements(wireUnmarshalerType),
	}
}

// deriveCapability classifies one field-use-site and verifies the bound
// that classification requires. Stateful positions accept either a
// state-aware leaf or any state-free type (which then ignores the state,
// mirroring how ordinary types compose into stateful containers).
// Stateless and fallback positions require the type to be structurally
// representable on the wire. Skip positions only need a zero value, which
// every Go type has.
func deriveCapability(typeName string, f *FieldSchema) error {
	f.cap = capabilityOf(f.Type)

	switch {
	case f.Skip:
		f.codec = codecSkip
		return nil
	case f.Hook != "":
		f.codec = codecHook
		return nil
	case f.Mode == ModeStateful && (f.cap.stateMarshal || f.cap.stateUnmarshal):
		f.codec = codecStateful
	default:
		f.codec = codecStateless
	}

	// A leaf that covers both directions itself needs no structural check.
	if f.codec == codecStateful && f.cap.stateMarshal && f.cap.stateUnmarshal {
		return nil
	}
	if f.Recursive {
		// The cycle is finite through indirection; the type behind it is
		// being checked by the build already in progress.
		return nil
	}
	if err := checkRepresentable(f.Type, make(map[reflect.Type]bool)); err != nil {
		return newSchemaError(typeName, f.Name, err.Error())
	}
	return nil
}

// checkRepresentable walks a type structurally and rejects kinds the wire
// model cannot carry. Types providing their own leaf logic pass without
// inspection; interfaces are deferred to union validation.
func checkRepresentable(rt reflect.Type, visited map[reflect.Type]bool) error {
	if visited[rt] {
		return nil
	}
	visited[rt] = true

	c := capabilityOf(rt)
	if c.stateMarshal || c.stateUnmarshal || c.wireMarshal || c.wireUnmarshal {
		return nil
	}

	switch rt.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64,
		reflect.String,
		reflect.Interface:
		return nil
	case reflect.Pointer, reflect.Slice, reflect.Array:
		return checkRepresentable(rt.Elem(), visited)
	case reflect.Map:
		if rt.Key().Kind() != reflect.String {
			return fmt.Errorf("map key type %s cannot be a wire object key", rt.Key())
		}
		return checkRepresentable(rt.Elem(), visited)
	case reflect.Struct:
		for i := 0; i < rt.NumField(); i++ {
			sf := rt.Field(i)
			if !sf.IsExported() {
				continue
			}
			if sf.Tag.Get("wire") == "-" {
				continue
			}
			if err := checkRepresentable(sf.Type, visited); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("type %s cannot be represented on the wire", rt)
	}
}

// applyDefault reconstructs a skip field: zero value, then the type's own
// refinement if it has one.
func applyDefault(dst reflect.Value) {
	dst.Set(reflect.Zero(dst.Type()))
	if dst.CanAddr() && reflect.PointerTo(dst.Type()).Implements(defaulterType) {
		dst.Addr().Interface().(Defaulter).SetDefault()
	}
}

// asStateMarshaler extracts a StateMarshaler from a value, handling
// pointer-receiver implementations on non-addressable values by copying.
func asStateMarshaler(rv reflect.Value) (StateMarshaler, bool) {
	if rv.Type().Implements(stateMarshalerType) {
		if rv.Kind() == reflect.Pointer && rv.IsNil() {
			return nil, false
		}
		return rv.Interface().(StateMarshaler), true
	}
	if reflect.PointerTo(rv.Type()).Implements(stateMarshalerType) {
		if rv.CanAddr() {
			return rv.Addr().Interface().(StateMarshaler), true
		}
		p := reflect.New(rv.Type())
		p.Elem().Set(rv)
		return p.Interface().(StateMarshaler), true
	}
	return nil, false
}

// asWireMarshaler is the state-free analog of asStateMarshaler.
func asWireMarshaler(rv reflect.Value) (WireMarshaler, bool) {
	if rv.Type().Implements(wireMarshalerType) {
		if rv.Kind() == reflect.Pointer && rv.IsNil() {
			return nil, false
		}
		return rv.Interface().(WireMarshaler), true
	}
	if reflect.PointerTo(rv.Type()).Implements(wireMarshalerType) {
		if rv.CanAddr() {
			return rv.Addr().Interface().(WireMarshaler), true
		}
		p := reflect.New(rv.Type())
		p.Elem().Set(rv)
		return p.Interface().(WireMarshaler), true
	}
	return nil, false
}

// asStateUnmarshaler extracts a StateUnmarshaler for a settable value.
func asStateUnmarshaler(dst reflect.Value) (StateUnmarshaler, bool) {
	if dst.CanAddr() && reflect.PointerTo(dst.Type()).Implements(stateUnmarshalerType) {
		return dst.Addr().Interface().(StateUnmarshaler), true
	}
	return nil, false
}

// asWireUnmarshaler extracts a WireUnmarshaler for a settable value.
func asWireUnmarshaler(dst reflect.Value) (WireUnmarshaler, bool) {
	if dst.CanAddr() && reflect.PointerTo(dst.Type()).Implements(wireUnmarshalerType) {
		return dst.Addr().Interface().(WireUnmarshaler), true
	}
	return nil, false
}
