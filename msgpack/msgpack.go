// Package msgpack provides a MessagePack codec implementation.
//
// The codec works against the encoder and decoder event APIs rather than
// Go maps, so map entry order and repeated keys reach the wire tree
// intact.
package msgpack

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"
	"github.com/vmihailenco/msgpack/v5/msgpcode"
	"github.com/zoobzio/statewire"
	"github.com/zoobzio/statewire/wire"
)

// msgpackCodec implements statewire.Codec for MessagePack.
type msgpackCodec struct{}

// New returns a MessagePack codec.
func New() statewire.Codec {
	return &msgpackCodec{}
}

// ContentType returns the MIME type for MessagePack.
func (c *msgpackCodec) ContentType() string {
	return "application/msgpack"
}

// Marshal encodes a wire value as MessagePack. Binary values use the
// native bin family.
func (c *msgpackCodec) Marshal(v wire.Value) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	if err := encode(enc, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes MessagePack data into a wire tree.
func (c *msgpackCodec) Unmarshal(data []byte) (wire.Value, error) {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	v, err := decode(dec)
	if err != nil {
		return nil, err
	}
	if _, err := dec.PeekCode(); !errors.Is(err, io.EOF) {
		return nil, errors.New("msgpack: trailing data after value")
	}
	return v, nil
}

func encode(enc *msgpack.Encoder, v wire.Value) error {
	switch tv := v.(type) {
	case nil, wire.Null:
		return enc.EncodeNil()
	case wire.Bool:
		return enc.EncodeBool(bool(tv))
	case wire.Int:
		return enc.EncodeInt(int64(tv))
	case wire.Uint:
		return enc.EncodeUint(uint64(tv))
	case wire.Float:
		return enc.EncodeFloat64(float64(tv))
	case wire.String:
		return enc.EncodeString(string(tv))
	case wire.Bytes:
		return enc.EncodeBytes(tv)
	case wire.Array:
		if err := enc.EncodeArrayLen(len(tv)); err != nil {
			return err
		}
		for _, e := range tv {
			if err := encode(enc, e); err != nil {
				return err
			}
		}
		return nil
	case wire.Object:
		if err := enc.EncodeMapLen(len(tv)); err != nil {
			return err
		}
		for _, m := range tv {
			if err := enc.EncodeString(m.Key); err != nil {
				return err
			}
			if err := encode(enc, m.Value); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("msgpack: unsupported wire value %T", v)
	}
}

func decode(dec *msgpack.Decoder) (wire.Value, error) {
	code, err := dec.PeekCode()
	if err != nil {
		return nil, err
	}

	switch {
	case code == msgpcode.Nil:
		if err := dec.DecodeNil(); err != nil {
			return nil, err
		}
		return wire.Null{}, nil
	case code == msgpcode.True, code == msgpcode.False:
		b, err := dec.DecodeBool()
		if err != nil {
			return nil, err
		}
		return wire.Bool(b), nil
	case code == msgpcode.Uint8, code == msgpcode.Uint16,
		code == msgpcode.Uint32, code == msgpcode.Uint64:
		u, err := dec.DecodeUint64()
		if err != nil {
			return nil, err
		}
		return wire.Uint(u), nil
	case msgpcode.IsFixedNum(code), code == msgpcode.Int8, code == msgpcode.Int16,
		code == msgpcode.Int32, code == msgpcode.Int64:
		n, err := dec.DecodeInt64()
		if err != nil {
			return nil, err
		}
		return wire.Int(n), nil
	case code == msgpcode.Float, code == msgpcode.Double:
		f, err := dec.DecodeFloat64()
		if err != nil {
			return nil, err
		}
		return wire.Float(f), nil
	case msgpcode.IsString(code):
		s, err := dec.DecodeString()
		if err != nil {
			return nil, err
		}
		return wire.String(s), nil
	case msgpcode.IsBin(code):
		b, err := dec.DecodeBytes()
		if err != nil {
			return nil, err
		}
		return wire.Bytes(b), nil
	case msgpcode.IsFixedArray(code), code == msgpcode.Array16, code == msgpcode.Array32:
		n, err := dec.DecodeArrayLen()
		if err != nil {
			return nil, err
		}
		arr := make(wire.Array, 0, n)
		for i := 0; i < n; i++ {
			e, err := decode(dec)
			if err != nil {
				return nil, err
			}
			arr = append(arr, e)
		}
		return arr, nil
	case msgpcode.IsFixedMap(code), code == msgpcode.Map16, code == msgpcode.Map32:
		n, err := dec.DecodeMapLen()
		if err != nil {
			return nil, err
		}
		obj := make(wire.Object, 0, n)
		for i := 0; i < n; i++ {
			key, err := dec.DecodeString()
			if err != nil {
				return nil, err
			}
			val, err := decode(dec)
			if err != nil {
				return nil, err
			}
			obj = append(obj, wire.Member{Key: key, Value: val})
		}
		return obj, nil
	default:
		return nil, fmt.Errorf("msgpack: unsupported code %x", code)
	}
}
