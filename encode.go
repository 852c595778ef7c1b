package statewire

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"

	"github.com/zoobzio/statewire/wire"
)

// encoder performs one marshal call: a synchronous, depth-first walk over
// the value, left-to-right in declaration order, producing a wire tree.
// The state rides along unpartitioned; the encoder never touches it beyond
// handing it to stateful leaves.
type encoder struct {
	state State
	hooks map[string]Hook
}

// fieldMode resolves the effective mode at a use-site. Once any enclosing
// position went stateless the whole subtree is state-free, matching the
// ordinary serialization path a stateless leaf would take.
func fieldMode(f *FieldSchema, ambient Mode) Mode {
	if ambient == ModeStateless {
		return ModeStateless
	}
	return f.Mode
}

// encode dispatches on schema kind. For unions rv may be the interface
// value or the concrete variant value.
func (e *encoder) encode(ts *TypeSchema, rv reflect.Value, ambient Mode) (wire.Value, error) {
	if ts.Kind == KindUnion {
		if rv.Kind() == reflect.Interface {
			if rv.IsNil() {
				return nil, fmt.Errorf("cannot encode nil %s", ts.Name)
			}
			rv = rv.Elem()
		}
		return e.encodeUnion(ts, rv, ambient)
	}
	return e.encodeRecord(ts, rv, ambient)
}

func (e *encoder) encodeRecord(ts *TypeSchema, rv reflect.Value, ambient Mode) (wire.Value, error) {
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return wire.Null{}, nil
		}
		rv = rv.Elem()
	}
	if ts.Transparent {
		f := ts.Fields.marshaled()[0]
		return e.encodeField(ts.Name, f, rv.FieldByIndex(f.Index), ambient)
	}
	return e.encodeFields(ts.Name, ts.Fields, rv, ambient)
}

// encodeFields lays out a field list per its style: named fields become an
// object, positional fields collapse by arity (0 to the unit token, 1 bare,
// 2+ to an array).
func (e *encoder) encodeFields(owner string, fs *FieldsSchema, rv reflect.Value, ambient Mode) (wire.Value, error) {
	switch fs.Style {
	case StyleUnit:
		return wire.Null{}, nil
	case StylePositional:
		m := fs.marshaled()
		switch len(m) {
		case 0:
			return wire.Null{}, nil
		case 1:
			return e.encodeField(owner, m[0], rv.FieldByIndex(m[0].Index), ambient)
		default:
			arr := make(wire.Array, 0, len(m))
			for _, f := range m {
				v, err := e.encodeField(owner, f, rv.FieldByIndex(f.Index), ambient)
				if err != nil {
					return nil, err
				}
				arr = append(arr, v)
			}
			return arr, nil
		}
	default:
		obj := make(wire.Object, 0, fs.marshaledCount())
		for _, f := range fs.Fields {
			if f.Skip {
				continue
			}
			v, err := e.encodeField(owner, f, rv.FieldByIndex(f.Index), ambient)
			if err != nil {
				return nil, err
			}
			obj = append(obj, wire.Member{Key: f.Key, Value: v})
		}
		return obj, nil
	}
}

func (e *encoder) encodeField(owner string, f *FieldSchema, rv reflect.Value, ambient Mode) (wire.Value, error) {
	if f.codec == codecHook {
		h, ok := e.hooks[f.Hook]
		if !ok {
			return nil, newConfigError(ErrMissingHook, f.Name, strconv.Quote(f.Hook))
		}
		v, err := h.Marshal(e.state, rv.Interface())
		if err != nil {
			return nil, newEncodeError(owner, f.Name, err)
		}
		return v, nil
	}
	v, err := e.encodeValue(rv, fieldMode(f, ambient))
	if err != nil {
		return nil, newEncodeError(owner, f.Name, err)
	}
	return v, nil
}

// encodeUnion encodes a concrete variant value as its externally tagged
// wire shape: bare name for unit variants, {name: payload} otherwise.
func (e *encoder) encodeUnion(ts *TypeSchema, rv reflect.Value, ambient Mode) (wire.Value, error) {
	variant, ok := ts.VariantOf(rv.Type())
	if !ok && rv.Kind() == reflect.Pointer && !rv.IsNil() {
		if variant, ok = ts.VariantOf(rv.Type().Elem()); ok {
			rv = rv.Elem()
		}
	}
	if !ok {
		return nil, fmt.Errorf("no variant of %s registered for type %s", ts.Name, rv.Type())
	}

	payload := rv
	if variant.Type.Kind() == reflect.Pointer {
		if payload.IsNil() {
			return nil, fmt.Errorf("cannot encode nil %s variant %s", ts.Name, variant.Name)
		}
		payload = payload.Elem()
	}

	owner := ts.Name + "." + variant.Name
	if ambient != ModeStateless && variant.Mode == ModeStateless {
		ambient = ModeStateless
	}

	switch variant.Shape {
	case ShapeUnit:
		return wire.String(variant.Name), nil
	case ShapeNewtype:
		f := variant.Fields.marshaled()[0]
		pv, err := e.encodeField(owner, f, payload.FieldByIndex(f.Index), ambient)
		if err != nil {
			return nil, err
		}
		return wire.Object{{Key: variant.Name, Value: pv}}, nil
	case ShapeTuple:
		m := variant.Fields.marshaled()
		arr := make(wire.Array, 0, len(m))
		for _, f := range m {
			pv, err := e.encodeField(owner, f, payload.FieldByIndex(f.Index), ambient)
			if err != nil {
				return nil, err
			}
			arr = append(arr, pv)
		}
		return wire.Object{{Key: variant.Name, Value: arr}}, nil
	default:
		pv, err := e.encodeFields(owner, variant.Fields, payload, ambient)
		if err != nil {
			return nil, err
		}
		return wire.Object{{Key: variant.Name, Value: pv}}, nil
	}
}

// encodeValue converts one value under the resolved mode. Stateful
// positions consult the state-aware leaf first; everything else goes
// through the ordinary state-free path, so a type without leaf logic
// serves either mode identically.
func (e *encoder) encodeValue(rv reflect.Value, mode Mode) (wire.Value, error) {
	if !rv.IsValid() {
		return wire.Null{}, nil
	}

	if mode == ModeStateful {
		if m, ok := asStateMarshaler(rv); ok {
			return m.MarshalState(e.state)
		}
	}
	if m, ok := asWireMarshaler(rv); ok {
		return m.MarshalWire()
	}

	switch rv.Kind() {
	case reflect.Bool:
		return wire.Bool(rv.Bool()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return wire.Int(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return wire.Uint(rv.Uint()), nil
	case reflect.Float32, reflect.Float64:
		return wire.Float(rv.Float()), nil
	case reflect.String:
		return wire.String(rv.String()), nil
	case reflect.Slice:
		if rv.IsNil() {
			return wire.Null{}, nil
		}
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return wire.Bytes(append([]byte(nil), rv.Bytes()...)), nil
		}
		return e.encodeSequence(rv, mode)
	case reflect.Array:
		return e.encodeSequence(rv, mode)
	case reflect.Map:
		if rv.IsNil() {
			return wire.Null{}, nil
		}
		return e.encodeMap(rv, mode)
	case reflect.Pointer:
		if rv.IsNil() {
			return wire.Null{}, nil
		}
		return e.encodeValue(rv.Elem(), mode)
	case reflect.Interface:
		if rv.IsNil() {
			return wire.Null{}, nil
		}
		if ts, ok := unionFor(rv.Type()); ok {
			return e.encodeUnion(ts, rv.Elem(), mode)
		}
		return e.encodeValue(rv.Elem(), mode)
	case reflect.Struct:
		ts, err := schemaFor(rv.Type(), schemaConfig{})
		if err != nil {
			return nil, err
		}
		return e.encodeRecord(ts, rv, mode)
	default:
		return nil, fmt.Errorf("cannot encode %s", rv.Type())
	}
}

func (e *encoder) encodeSequence(rv reflect.Value, mode Mode) (wire.Value, error) {
	arr := make(wire.Array, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		v, err := e.encodeValue(rv.Index(i), mode)
		if err != nil {
			return nil, err
		}
		arr[i] = v
	}
	return arr, nil
}

// encodeMap emits string-keyed maps in sorted key order so output is
// deterministic; map iteration order is not.
func (e *encoder) encodeMap(rv reflect.Value, mode Mode) (wire.Value, error) {
	if rv.Type().Key().Kind() != reflect.String {
		return nil, fmt.Errorf("cannot encode %s: map key type %s", rv.Type(), rv.Type().Key())
	}
	keys := rv.MapKeys()
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })

	obj := make(wire.Object, 0, len(keys))
	for _, k := range keys {
		v, err := e.encodeValue(rv.MapIndex(k), mode)
		if err != nil {
			return nil, err
		}
		obj = append(obj, wire.Member{Key: k.String(), Value: v})
	}
	return obj, nil
}
