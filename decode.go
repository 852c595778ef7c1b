package statewire

import (
	"encoding/base64"
	"fmt"
	"reflect"
	"strconv"

	"github.com/zoobzio/statewire/wire"
)

// decoder performs one unmarshal call. The walk mirrors the encoder:
// depth-first, left-to-right, with the state shared unpartitioned across
// every node. Any error is immediately fatal to the call; partially
// reconstructed values are discarded by the processor.
type decoder struct {
	state State
	hooks map[string]Hook
}

// seed bundles the state with an expected type and mode so the state
// reaches leaves nested inside containers-of-containers without widening
// any intermediate signature. Containers decode their elements through a
// seed rather than calling the state-free path.
type seed struct {
	d    *decoder
	typ  reflect.Type
	mode Mode
}

// decode materializes one value of the seeded type from v.
func (s seed) decode(v wire.Value) (reflect.Value, error) {
	dst := reflect.New(s.typ).Elem()
	if err := s.d.decodeValue(v, dst, s.mode); err != nil {
		return reflect.Value{}, err
	}
	return dst, nil
}

func (d *decoder) decode(ts *TypeSchema, v wire.Value, dst reflect.Value, ambient Mode) error {
	if ts.Kind == KindUnion {
		return d.decodeUnion(ts, v, dst, ambient)
	}
	return d.decodeRecord(ts, v, dst, ambient)
}

func (d *decoder) decodeRecord(ts *TypeSchema, v wire.Value, dst reflect.Value, ambient Mode) error {
	if ts.Transparent {
		var target *FieldSchema
		for _, f := range ts.Fields.Fields {
			if f.Skip {
				applyDefault(dst.FieldByIndex(f.Index))
				continue
			}
			target = f
		}
		return d.decodeField(ts.Name, target, v, dst.FieldByIndex(target.Index), ambient)
	}
	return d.decodeFields(ts.Name, ts.Fields, v, dst, ambient)
}

func (d *decoder) decodeFields(owner string, fs *FieldsSchema, v wire.Value, dst reflect.Value, ambient Mode) error {
	switch fs.Style {
	case StyleUnit:
		if !wire.IsNull(v) {
			return shapeError(owner, "null", v)
		}
		return nil
	case StylePositional:
		m := fs.marshaled()
		switch len(m) {
		case 0:
			if !wire.IsNull(v) {
				return shapeError(owner, "null", v)
			}
			return nil
		case 1:
			return d.decodeField(owner, m[0], v, dst.FieldByIndex(m[0].Index), ambient)
		default:
			arr, ok := v.(wire.Array)
			if !ok {
				return shapeError(owner, "array", v)
			}
			return d.decodePositional(owner, m, arr, dst, ambient)
		}
	default:
		obj, ok := v.(wire.Object)
		if !ok {
			return shapeError(owner, "object", v)
		}
		return d.decodeNamed(owner, fs, obj, dst, ambient)
	}
}

// decodeNamed runs the named-record state machine: walk members in wire
// order, reject repeats, discard unknowns, then settle every declared
// field: decoded, defaulted for skip, or missing.
func (d *decoder) decodeNamed(owner string, fs *FieldsSchema, obj wire.Object, dst reflect.Value, ambient Mode) error {
	seen := make([]bool, len(fs.Fields))
	for _, m := range obj {
		idx, known := fs.keyIndex[m.Key]
		if !known {
			// Unknown field: consumed and discarded.
			continue
		}
		if seen[idx] {
			return errDuplicateField(owner, m.Key)
		}
		seen[idx] = true
		f := fs.Fields[idx]
		if err := d.decodeField(owner, f, m.Value, dst.FieldByIndex(f.Index), ambient); err != nil {
			return err
		}
	}
	for i, f := range fs.Fields {
		if f.Skip {
			applyDefault(dst.FieldByIndex(f.Index))
			continue
		}
		if !seen[i] {
			return errMissingField(owner, f.Key)
		}
	}
	return nil
}

// decodePositional maps array elements onto declared positions. An absent
// element fails at the first missing index, a trailing extra at the first
// surplus index.
func (d *decoder) decodePositional(owner string, fields []*FieldSchema, arr wire.Array, dst reflect.Value, ambient Mode) error {
	if len(arr) < len(fields) {
		return errInvalidLength(owner, len(arr), len(fields), len(arr))
	}
	if len(arr) > len(fields) {
		return errInvalidLength(owner, len(fields), len(fields), len(arr))
	}
	for i, f := range fields {
		if err := d.decodeField(owner, f, arr[i], dst.FieldByIndex(f.Index), ambient); err != nil {
			return err
		}
	}
	return nil
}

func (d *decoder) decodeField(owner string, f *FieldSchema, v wire.Value, dst reflect.Value, ambient Mode) error {
	if f.codec == codecHook {
		h, ok := d.hooks[f.Hook]
		if !ok {
			return newConfigError(ErrMissingHook, f.Name, strconv.Quote(f.Hook))
		}
		out, err := h.Unmarshal(d.state, v)
		if err != nil {
			return newDecodeError(owner, f.Name, err)
		}
		if out == nil {
			dst.Set(reflect.Zero(dst.Type()))
			return nil
		}
		ov := reflect.ValueOf(out)
		if !ov.Type().AssignableTo(dst.Type()) {
			if !ov.Type().ConvertibleTo(dst.Type()) {
				return newDecodeError(owner, f.Name,
					fmt.Errorf("hook %q returned %s, field is %s", f.Hook, ov.Type(), dst.Type()))
			}
			ov = ov.Convert(dst.Type())
		}
		dst.Set(ov)
		return nil
	}
	if err := d.decodeValue(v, dst, fieldMode(f, ambient)); err != nil {
		return newDecodeError(owner, f.Name, err)
	}
	return nil
}

// decodeUnion reads the variant tag (a bare string for unit variants, a
// one-member object otherwise) and dispatches into the variant's field
// reconstruction.
func (d *decoder) decodeUnion(ts *TypeSchema, v wire.Value, dst reflect.Value, ambient Mode) error {
	var tag string
	var payload wire.Value
	hasPayload := false

	switch tv := v.(type) {
	case wire.String:
		tag = string(tv)
	case wire.Object:
		if len(tv) != 1 {
			return &DecodeError{Err: ErrMalformed, Type: ts.Name,
				Cause: fmt.Errorf("expected a single-member object, got %d members", len(tv))}
		}
		tag, payload, hasPayload = tv[0].Key, tv[0].Value, true
	default:
		return shapeError(ts.Name, "variant tag", v)
	}

	variant, ok := ts.Variant(tag)
	if !ok {
		return errUnknownVariant(ts.Name, tag, ts.Tags())
	}

	owner := ts.Name + "." + variant.Name
	if ambient != ModeStateless && variant.Mode == ModeStateless {
		ambient = ModeStateless
	}

	concrete := variant.Type
	base := concrete
	if base.Kind() == reflect.Pointer {
		base = base.Elem()
	}
	pv := reflect.New(base)
	target := pv.Elem()

	switch variant.Shape {
	case ShapeUnit:
		if hasPayload && !wire.IsNull(payload) {
			return shapeError(owner, "no payload", payload)
		}
	case ShapeNewtype:
		if !hasPayload {
			return &DecodeError{Err: ErrMalformed, Type: ts.Name,
				Cause: fmt.Errorf("variant %q expects a payload", tag)}
		}
		f := variant.Fields.marshaled()[0]
		if err := d.decodeField(owner, f, payload, target.FieldByIndex(f.Index), ambient); err != nil {
			return err
		}
	case ShapeTuple:
		if !hasPayload {
			return &DecodeError{Err: ErrMalformed, Type: ts.Name,
				Cause: fmt.Errorf("variant %q expects a payload", tag)}
		}
		arr, ok := payload.(wire.Array)
		if !ok {
			return shapeError(owner, "array", payload)
		}
		if err := d.decodePositional(owner, variant.Fields.marshaled(), arr, target, ambient); err != nil {
			return err
		}
	default:
		if !hasPayload {
			return &DecodeError{Err: ErrMalformed, Type: ts.Name,
				Cause: fmt.Errorf("variant %q expects a payload", tag)}
		}
		obj, ok := payload.(wire.Object)
		if !ok {
			return shapeError(owner, "object", payload)
		}
		if err := d.decodeNamed(owner, variant.Fields, obj, target, ambient); err != nil {
			return err
		}
	}

	if concrete.Kind() == reflect.Pointer {
		dst.Set(pv)
	} else {
		dst.Set(target)
	}
	return nil
}

// decodeValue reconstructs one value under the resolved mode. The seeded
// path hands stateful leaves the state; the state-free path mirrors the
// encoder's structural conversion.
func (d *decoder) decodeValue(v wire.Value, dst reflect.Value, mode Mode) error {
	if mode == ModeStateful {
		if u, ok := asStateUnmarshaler(dst); ok {
			return u.UnmarshalState(d.state, v)
		}
	}
	if u, ok := asWireUnmarshaler(dst); ok {
		return u.UnmarshalWire(v)
	}

	rt := dst.Type()
	switch rt.Kind() {
	case reflect.Pointer:
		if wire.IsNull(v) {
			dst.Set(reflect.Zero(rt))
			return nil
		}
		p := reflect.New(rt.Elem())
		if err := d.decodeValue(v, p.Elem(), mode); err != nil {
			return err
		}
		dst.Set(p)
		return nil
	case reflect.Bool:
		b, ok := v.(wire.Bool)
		if !ok {
			return shapeError(rt.String(), "bool", v)
		}
		dst.SetBool(bool(b))
		return nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, ok := wire.AsInt(v)
		if !ok || dst.OverflowInt(n) {
			return shapeError(rt.String(), rt.Kind().String(), v)
		}
		dst.SetInt(n)
		return nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		n, ok := wire.AsUint(v)
		if !ok || dst.OverflowUint(n) {
			return shapeError(rt.String(), rt.Kind().String(), v)
		}
		dst.SetUint(n)
		return nil
	case reflect.Float32, reflect.Float64:
		f, ok := wire.AsFloat(v)
		if !ok || dst.OverflowFloat(f) {
			return shapeError(rt.String(), rt.Kind().String(), v)
		}
		dst.SetFloat(f)
		return nil
	case reflect.String:
		s, ok := v.(wire.String)
		if !ok {
			return shapeError(rt.String(), "string", v)
		}
		dst.SetString(string(s))
		return nil
	case reflect.Slice:
		if rt.Elem().Kind() == reflect.Uint8 {
			return decodeBytes(rt, v, dst)
		}
		if wire.IsNull(v) {
			dst.Set(reflect.Zero(rt))
			return nil
		}
		arr, ok := v.(wire.Array)
		if !ok {
			return shapeError(rt.String(), "array", v)
		}
		out := reflect.MakeSlice(rt, len(arr), len(arr))
		s := seed{d: d, typ: rt.Elem(), mode: mode}
		for i, ev := range arr {
			elem, err := s.decode(ev)
			if err != nil {
				return err
			}
			out.Index(i).Set(elem)
		}
		dst.Set(out)
		return nil
	case reflect.Array:
		arr, ok := v.(wire.Array)
		if !ok {
			return shapeError(rt.String(), "array", v)
		}
		if len(arr) != rt.Len() {
			index := len(arr)
			if index > rt.Len() {
				index = rt.Len()
			}
			return errInvalidLength(rt.String(), index, rt.Len(), len(arr))
		}
		s := seed{d: d, typ: rt.Elem(), mode: mode}
		for i, ev := range arr {
			elem, err := s.decode(ev)
			if err != nil {
				return err
			}
			dst.Index(i).Set(elem)
		}
		return nil
	case reflect.Map:
		if wire.IsNull(v) {
			dst.Set(reflect.Zero(rt))
			return nil
		}
		obj, ok := v.(wire.Object)
		if !ok {
			return shapeError(rt.String(), "object", v)
		}
		if rt.Key().Kind() != reflect.String {
			return fmt.Errorf("cannot decode into %s: map key type %s", rt, rt.Key())
		}
		out := reflect.MakeMapWithSize(rt, len(obj))
		s := seed{d: d, typ: rt.Elem(), mode: mode}
		for _, m := range obj {
			elem, err := s.decode(m.Value)
			if err != nil {
				return err
			}
			out.SetMapIndex(reflect.ValueOf(m.Key).Convert(rt.Key()), elem)
		}
		dst.Set(out)
		return nil
	case reflect.Interface:
		if wire.IsNull(v) {
			dst.Set(reflect.Zero(rt))
			return nil
		}
		if ts, ok := unionFor(rt); ok {
			return d.decodeUnion(ts, v, dst, mode)
		}
		return fmt.Errorf("no union registered for interface %s", rt)
	case reflect.Struct:
		ts, err := schemaFor(rt, schemaConfig{})
		if err != nil {
			return err
		}
		return d.decodeRecord(ts, v, dst, mode)
	default:
		return fmt.Errorf("cannot decode into %s", rt)
	}
}

// decodeBytes accepts the wire's native binary form or, for codecs without
// one, a base64 string.
func decodeBytes(rt reflect.Type, v wire.Value, dst reflect.Value) error {
	switch bv := v.(type) {
	case wire.Bytes:
		dst.SetBytes(append([]byte(nil), bv...))
		return nil
	case wire.String:
		data, err := base64.StdEncoding.DecodeString(string(bv))
		if err != nil {
			return shapeError(rt.String(), "bytes", v)
		}
		dst.SetBytes(data)
		return nil
	case wire.Null:
		dst.Set(reflect.Zero(rt))
		return nil
	default:
		return shapeError(rt.String(), "bytes", v)
	}
}

// shapeError reports a wire value of the wrong shape for the target.
func shapeError(typ, want string, got wire.Value) error {
	kind := "null"
	if got != nil {
		kind = got.Kind().String()
	}
	return &DecodeError{Err: ErrMalformed, Type: typ,
		Cause: fmt.Errorf("expected %s, got %s", want, kind)}
}
