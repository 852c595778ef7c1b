// Package json provides a JSON codec implementation.
//
// Parsing works at the token level rather than through map decoding, so
// repeated object keys survive into the wire tree where the engine can
// reject them.
package json

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/zoobzio/statewire"
	"github.com/zoobzio/statewire/wire"
)

// jsonCodec implements statewire.Codec for JSON.
type jsonCodec struct{}

// New returns a JSON codec.
func New() statewire.Codec {
	return &jsonCodec{}
}

// ContentType returns the MIME type for JSON.
func (c *jsonCodec) ContentType() string {
	return "application/json"
}

// Marshal renders a wire value as JSON. Binary values become base64
// strings since JSON has no native binary form.
func (c *jsonCodec) Marshal(v wire.Value) ([]byte, error) {
	var buf bytes.Buffer
	if err := write(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal parses JSON into a wire tree. Object member order and
// duplicate keys are preserved.
func (c *jsonCodec) Unmarshal(data []byte) (wire.Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	v, err := read(dec)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("json: trailing data after value")
	}
	return v, nil
}

func write(buf *bytes.Buffer, v wire.Value) error {
	switch tv := v.(type) {
	case nil, wire.Null:
		buf.WriteString("null")
	case wire.Bool:
		if tv {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case wire.Int:
		buf.WriteString(strconv.FormatInt(int64(tv), 10))
	case wire.Uint:
		buf.WriteString(strconv.FormatUint(uint64(tv), 10))
	case wire.Float:
		f := float64(tv)
		if math.IsInf(f, 0) || math.IsNaN(f) {
			return fmt.Errorf("json: unsupported float value %v", f)
		}
		buf.WriteString(strconv.FormatFloat(f, 'g', -1, 64))
	case wire.String:
		return writeString(buf, string(tv))
	case wire.Bytes:
		return writeString(buf, base64.StdEncoding.EncodeToString(tv))
	case wire.Array:
		buf.WriteByte('[')
		for i, e := range tv {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := write(buf, e); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case wire.Object:
		buf.WriteByte('{')
		for i, m := range tv {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeString(buf, m.Key); err != nil {
				return err
			}
			buf.WriteByte(':')
			if err := write(buf, m.Value); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("json: unsupported wire value %T", v)
	}
	return nil
}

func writeString(buf *bytes.Buffer, s string) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	buf.Write(data)
	return nil
}

func read(dec *json.Decoder) (wire.Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	return fromToken(dec, tok)
}

func fromToken(dec *json.Decoder, tok json.Token) (wire.Value, error) {
	switch tv := tok.(type) {
	case nil:
		return wire.Null{}, nil
	case bool:
		return wire.Bool(tv), nil
	case string:
		return wire.String(tv), nil
	case json.Number:
		return number(tv)
	case json.Delim:
		switch tv {
		case '[':
			return readArray(dec)
		case '{':
			return readObject(dec)
		}
	}
	return nil, fmt.Errorf("json: unexpected token %v", tok)
}

func readArray(dec *json.Decoder) (wire.Value, error) {
	arr := wire.Array{}
	for dec.More() {
		v, err := read(dec)
		if err != nil {
			return nil, err
		}
		arr = append(arr, v)
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return arr, nil
}

func readObject(dec *json.Decoder) (wire.Value, error) {
	obj := wire.Object{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("json: object key is %v", tok)
		}
		v, err := read(dec)
		if err != nil {
			return nil, err
		}
		obj = append(obj, wire.Member{Key: key, Value: v})
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return obj, nil
}

// number maps a JSON number to the narrowest wire numeric: signed integer
// when it fits, unsigned for the high half of uint64, float otherwise.
func number(n json.Number) (wire.Value, error) {
	s := n.String()
	if !strings.ContainsAny(s, ".eE") {
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return wire.Int(i), nil
		}
		if u, err := strconv.ParseUint(s, 10, 64); err == nil {
			return wire.Uint(u), nil
		}
	}
	f, err := n.Float64()
	if err != nil {
		return nil, fmt.Errorf("json: invalid number %q", s)
	}
	return wire.Float(f), nil
}
