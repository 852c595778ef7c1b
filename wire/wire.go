// Package wire defines the structured value model the statewire engines
// read and write.
//
// A wire.Value is one node of a JSON-like tree: null, booleans, numbers,
// strings, byte strings, arrays, and objects. Objects are ordered member
// lists rather than maps so that decoding observes members in wire order
// and can detect duplicate keys; codecs translate bytes to and from this
// model without interpreting it.
package wire

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Kind identifies the concrete type of a Value.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindUint
	KindFloat
	KindString
	KindBytes
	KindArray
	KindObject
)

// String returns the kind name for error messages.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindUint:
		return "uint"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindBytes:
		return "bytes"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "unknown"
	}
}

// Value is one node of the wire tree. The set of implementations is closed:
// Null, Bool, Int, Uint, Float, String, Bytes, Array, and Object.
type Value interface {
	Kind() Kind
}

// Null is the unit token.
type Null struct{}

// Bool is a boolean scalar.
type Bool bool

// Int is a signed integer scalar.
type Int int64

// Uint is an unsigned integer scalar. Codecs produce it only for values
// outside the int64 range; Equal treats it as numerically equivalent to Int.
type Uint uint64

// Float is a floating-point scalar.
type Float float64

// String is a text scalar.
type String string

// Bytes is a binary scalar. Codecs without a native binary type (JSON)
// represent it as a base64 string.
type Bytes []byte

// Array is an ordered sequence of values.
type Array []Value

// Member is one key/value pair of an Object.
type Member struct {
	Key   string
	Value Value
}

// Object is an ordered member list. Unlike a map it preserves wire order
// and may carry duplicate keys; duplicate handling is the decoder's job.
type Object []Member

func (Null) Kind() Kind   { return KindNull }
func (Bool) Kind() Kind   { return KindBool }
func (Int) Kind() Kind    { return KindInt }
func (Uint) Kind() Kind   { return KindUint }
func (Float) Kind() Kind  { return KindFloat }
func (String) Kind() Kind { return KindString }
func (Bytes) Kind() Kind  { return KindBytes }
func (Array) Kind() Kind  { return KindArray }
func (Object) Kind() Kind { return KindObject }

// Get returns the value of the first member with the given key.
func (o Object) Get(key string) (Value, bool) {
	for _, m := range o {
		if m.Key == key {
			return m.Value, true
		}
	}
	return nil, false
}

// Keys returns the member keys in wire order, duplicates included.
func (o Object) Keys() []string {
	keys := make([]string, len(o))
	for i, m := range o {
		keys[i] = m.Key
	}
	return keys
}

// Sorted returns a copy of the object with members sorted by key.
// Useful for order-insensitive comparison in tests.
func (o Object) Sorted() Object {
	out := make(Object, len(o))
	copy(out, o)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Equal reports structural equality of two values. Int, Uint, and Float
// compare across kinds when they represent exactly the same number, so a
// codec that widens integers to floats still round-trips cleanly.
func Equal(a, b Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if na, ok := numeric(a); ok {
		nb, ok := numeric(b)
		return ok && na == nb
	}
	if a.Kind() != b.Kind() {
		return false
	}
	switch av := a.(type) {
	case Null:
		return true
	case Bool:
		return av == b.(Bool)
	case String:
		return av == b.(String)
	case Bytes:
		bv := b.(Bytes)
		if len(av) != len(bv) {
			return false
		}
		for i := range av {
			if av[i] != bv[i] {
				return false
			}
		}
		return true
	case Array:
		bv := b.(Array)
		if len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	case Object:
		bv := b.(Object)
		if len(av) != len(bv) {
			return false
		}
		for i := range av {
			if av[i].Key != bv[i].Key || !Equal(av[i].Value, bv[i].Value) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// numeric normalizes Int, Uint, and Float to a comparable float64 when the
// value is exactly representable; large integers compare only within kind.
func numeric(v Value) (float64, bool) {
	switch n := v.(type) {
	case Int:
		if int64(n) == int64(float64(n)) {
			return float64(n), true
		}
	case Uint:
		if uint64(n) == uint64(float64(n)) {
			return float64(n), true
		}
	case Float:
		return float64(n), true
	}
	return 0, false
}

// Format renders a value as compact JSON-like text for error messages and
// test diagnostics. It is not a codec; use the codec submodules for real
// encoding.
func Format(v Value) string {
	var b strings.Builder
	format(&b, v)
	return b.String()
}

func format(b *strings.Builder, v Value) {
	switch val := v.(type) {
	case nil, Null:
		b.WriteString("null")
	case Bool:
		b.WriteString(strconv.FormatBool(bool(val)))
	case Int:
		b.WriteString(strconv.FormatInt(int64(val), 10))
	case Uint:
		b.WriteString(strconv.FormatUint(uint64(val), 10))
	case Float:
		b.WriteString(strconv.FormatFloat(float64(val), 'g', -1, 64))
	case String:
		b.WriteString(strconv.Quote(string(val)))
	case Bytes:
		fmt.Fprintf(b, "bytes(%d)", len(val))
	case Array:
		b.WriteByte('[')
		for i, e := range val {
			if i > 0 {
				b.WriteByte(',')
			}
			format(b, e)
		}
		b.WriteByte(']')
	case Object:
		b.WriteByte('{')
		for i, m := range val {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(strconv.Quote(m.Key))
			b.WriteByte(':')
			format(b, m.Value)
		}
		b.WriteByte('}')
	}
}

// IsNull reports whether v is the unit token.
func IsNull(v Value) bool {
	if v == nil {
		return true
	}
	_, ok := v.(Null)
	return ok
}

// Number converts a numeric value into the requested bit representation.
// ok is false when v is not numeric or the conversion would lose data.
func Number(v Value) (i int64, u uint64, f float64, kind Kind, ok bool) {
	switch n := v.(type) {
	case Int:
		return int64(n), 0, 0, KindInt, true
	case Uint:
		return 0, uint64(n), 0, KindUint, true
	case Float:
		return 0, 0, float64(n), KindFloat, true
	}
	return 0, 0, 0, KindNull, false
}

// AsInt converts a numeric value to int64 without loss.
func AsInt(v Value) (int64, bool) {
	switch n := v.(type) {
	case Int:
		return int64(n), true
	case Uint:
		if uint64(n) <= math.MaxInt64 {
			return int64(n), true
		}
	case Float:
		// math.MaxInt64 rounds up to 2^63 as a float64, so the upper
		// bound must be exclusive against the exact power of two.
		f := float64(n)
		if f == math.Trunc(f) && f >= math.MinInt64 && f < 1<<63 {
			return int64(f), true
		}
	}
	return 0, false
}

// AsUint converts a numeric value to uint64 without loss.
func AsUint(v Value) (uint64, bool) {
	switch n := v.(type) {
	case Int:
		if n >= 0 {
			return uint64(n), true
		}
	case Uint:
		return uint64(n), true
	case Float:
		// math.MaxUint64 rounds up to 2^64 as a float64, so the upper
		// bound must be exclusive against the exact power of two.
		f := float64(n)
		if f == math.Trunc(f) && f >= 0 && f < 1<<64 {
			return uint64(f), true
		}
	}
	return 0, false
}

// AsFloat converts a numeric value to float64.
func AsFloat(v Value) (float64, bool) {
	switch n := v.(type) {
	case Int:
		return float64(n), true
	case Uint:
		return float64(n), true
	case Float:
		return float64(n), true
	}
	return 0, false
}
