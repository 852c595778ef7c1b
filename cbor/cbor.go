// Package cbor provides a CBOR codec implementation.
//
// CBOR decoding goes through generic maps, which cannot carry repeated
// keys, so the decoder itself is configured to reject duplicates instead
// of letting them collapse silently. Map entry order is not preserved;
// named-record decoding does not depend on it.
package cbor

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/zoobzio/statewire"
	"github.com/zoobzio/statewire/wire"
)

// cborCodec implements statewire.Codec for CBOR.
type cborCodec struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

// New returns a CBOR codec.
func New() statewire.Codec {
	encOpts := cbor.CanonicalEncOptions()
	enc, err := encOpts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("cbor: invalid encode options: %v", err))
	}
	decOpts := cbor.DecOptions{
		DupMapKey: cbor.DupMapKeyEnforcedAPF,
	}
	dec, err := decOpts.DecMode()
	if err != nil {
		panic(fmt.Sprintf("cbor: invalid decode options: %v", err))
	}
	return &cborCodec{enc: enc, dec: dec}
}

// ContentType returns the MIME type for CBOR.
func (c *cborCodec) ContentType() string {
	return "application/cbor"
}

// Marshal encodes a wire value as canonical CBOR.
func (c *cborCodec) Marshal(v wire.Value) ([]byte, error) {
	return c.enc.Marshal(toAny(v))
}

// Unmarshal decodes CBOR data into a wire tree. Repeated map keys fail
// the decode.
func (c *cborCodec) Unmarshal(data []byte) (wire.Value, error) {
	var raw any
	if err := c.dec.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	return fromAny(raw)
}

func toAny(v wire.Value) any {
	switch tv := v.(type) {
	case nil, wire.Null:
		return nil
	case wire.Bool:
		return bool(tv)
	case wire.Int:
		return int64(tv)
	case wire.Uint:
		return uint64(tv)
	case wire.Float:
		return float64(tv)
	case wire.String:
		return string(tv)
	case wire.Bytes:
		return []byte(tv)
	case wire.Array:
		out := make([]any, len(tv))
		for i, e := range tv {
			out[i] = toAny(e)
		}
		return out
	case wire.Object:
		out := make(map[string]any, len(tv))
		for _, m := range tv {
			out[m.Key] = toAny(m.Value)
		}
		return out
	default:
		return nil
	}
}

func fromAny(v any) (wire.Value, error) {
	switch tv := v.(type) {
	case nil:
		return wire.Null{}, nil
	case bool:
		return wire.Bool(tv), nil
	case int64:
		return wire.Int(tv), nil
	case uint64:
		return wire.Uint(tv), nil
	case float64:
		return wire.Float(tv), nil
	case float32:
		return wire.Float(tv), nil
	case string:
		return wire.String(tv), nil
	case []byte:
		return wire.Bytes(tv), nil
	case []any:
		arr := make(wire.Array, len(tv))
		for i, e := range tv {
			ev, err := fromAny(e)
			if err != nil {
				return nil, err
			}
			arr[i] = ev
		}
		return arr, nil
	case map[any]any:
		obj := make(wire.Object, 0, len(tv))
		for k, e := range tv {
			key, ok := k.(string)
			if !ok {
				return nil, fmt.Errorf("cbor: non-string map key %v", k)
			}
			ev, err := fromAny(e)
			if err != nil {
				return nil, err
			}
			obj = append(obj, wire.Member{Key: key, Value: ev})
		}
		return obj.Sorted(), nil
	case map[string]any:
		obj := make(wire.Object, 0, len(tv))
		for k, e := range tv {
			ev, err := fromAny(e)
			if err != nil {
				return nil, err
			}
			obj = append(obj, wire.Member{Key: k, Value: ev})
		}
		return obj.Sorted(), nil
	default:
		return nil, fmt.Errorf("cbor: unsupported value %T", v)
	}
}
