package json

import (
	"math"
	"testing"

	"github.com/zoobzio/statewire/wire"
)

func TestNew(t *testing.T) {
	c := New()
	if c == nil {
		t.Error("New() should return non-nil codec")
	}
}

func TestContentType(t *testing.T) {
	c := New()
	if c.ContentType() != "application/json" {
		t.Errorf("ContentType() = %q, want %q", c.ContentType(), "application/json")
	}
}

func TestRoundTrip(t *testing.T) {
	c := New()

	tests := []struct {
		name string
		v    wire.Value
	}{
		{"null", wire.Null{}},
		{"bool", wire.Bool(true)},
		{"int", wire.Int(-42)},
		{"uint", wire.Uint(math.MaxUint64)},
		{"float", wire.Float(2.5)},
		{"string", wire.String("hello \"quoted\"")},
		{"array", wire.Array{wire.Int(1), wire.String("x"), wire.Null{}}},
		{
			"object",
			wire.Object{
				{Key: "b", Value: wire.Int(2)},
				{Key: "a", Value: wire.Array{wire.Bool(false)}},
			},
		},
		{
			"nested",
			wire.Object{
				{Key: "outer", Value: wire.Object{
					{Key: "inner", Value: wire.Float(1.25)},
				}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := c.Marshal(tt.v)
			if err != nil {
				t.Fatalf("Marshal() error: %v", err)
			}
			got, err := c.Unmarshal(data)
			if err != nil {
				t.Fatalf("Unmarshal(%s) error: %v", data, err)
			}
			if !wire.Equal(got, tt.v) {
				t.Errorf("round trip = %s, want %s", wire.Format(got), wire.Format(tt.v))
			}
		})
	}
}

func TestMarshalBytes(t *testing.T) {
	c := New()

	data, err := c.Marshal(wire.Bytes{1, 2, 3})
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}
	if string(data) != `"AQID"` {
		t.Errorf("Marshal(bytes) = %s, want base64", data)
	}
}

func TestMarshalOrderPreserved(t *testing.T) {
	c := New()

	data, err := c.Marshal(wire.Object{
		{Key: "z", Value: wire.Int(1)},
		{Key: "a", Value: wire.Int(2)},
	})
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}
	if string(data) != `{"z":1,"a":2}` {
		t.Errorf("Marshal() = %s, member order must survive", data)
	}
}

func TestMarshalNonFiniteFloat(t *testing.T) {
	c := New()

	if _, err := c.Marshal(wire.Float(math.Inf(1))); err == nil {
		t.Error("Marshal(+Inf) should fail, JSON has no representation")
	}
}

func TestUnmarshalDuplicateKeysPreserved(t *testing.T) {
	c := New()

	v, err := c.Unmarshal([]byte(`{"a":1,"a":2,"b":3}`))
	if err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}
	obj, ok := v.(wire.Object)
	if !ok {
		t.Fatalf("Unmarshal() = %T, want object", v)
	}
	if len(obj) != 3 {
		t.Fatalf("object has %d members, duplicates must not collapse", len(obj))
	}
	keys := obj.Keys()
	if keys[0] != "a" || keys[1] != "a" || keys[2] != "b" {
		t.Errorf("Keys() = %v", keys)
	}
}

func TestUnmarshalNumberNarrowing(t *testing.T) {
	c := New()

	v, _ := c.Unmarshal([]byte(`3`))
	if _, ok := v.(wire.Int); !ok {
		t.Errorf("3 decoded as %T, want Int", v)
	}

	v, _ = c.Unmarshal([]byte(`18446744073709551615`))
	if _, ok := v.(wire.Uint); !ok {
		t.Errorf("MaxUint64 decoded as %T, want Uint", v)
	}

	v, _ = c.Unmarshal([]byte(`1.5`))
	if _, ok := v.(wire.Float); !ok {
		t.Errorf("1.5 decoded as %T, want Float", v)
	}
}

func TestUnmarshalInvalid(t *testing.T) {
	c := New()

	if _, err := c.Unmarshal([]byte(`{"a":`)); err == nil {
		t.Error("Unmarshal() should fail on truncated input")
	}
}

func TestUnmarshalTrailingData(t *testing.T) {
	c := New()

	if _, err := c.Unmarshal([]byte(`{} extra`)); err == nil {
		t.Error("Unmarshal() should fail on trailing data")
	}
}
