package statewire_test

import (
	"context"
	"errors"
	"testing"

	"github.com/zoobzio/statewire"
	"github.com/zoobzio/statewire/json"
	"github.com/zoobzio/statewire/statewiretest"
	"github.com/zoobzio/statewire/wire"
)

func TestCounterThreading(t *testing.T) {
	proc, err := statewire.NewProcessor[statewiretest.Example](json.New())
	if err != nil {
		t.Fatalf("NewProcessor() error: %v", err)
	}

	data, err := proc.Marshal(context.Background(), statewiretest.Example{}, &statewiretest.Counter{})
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}
	want := `{"first":1,"second":2}`
	if string(data) != want {
		t.Errorf("Marshal() = %s, want %s", data, want)
	}

	state := &statewiretest.Counter{}
	out, err := proc.Unmarshal(context.Background(), data, state)
	if err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}
	if out.First != 1 || out.Second != 2 {
		t.Errorf("decoded = %+v", out)
	}
	if state.N != 2 {
		t.Errorf("counter advanced %d times, want one visit per leaf", state.N)
	}
}

type crew struct {
	Lead statewiretest.Probe   `wire:"lead"`
	Team []statewiretest.Probe `wire:"team"`
}

func TestVisitOrderDepthFirst(t *testing.T) {
	proc, err := statewire.NewProcessor[crew](json.New())
	if err != nil {
		t.Fatalf("NewProcessor() error: %v", err)
	}

	in := crew{
		Lead: statewiretest.Probe{ID: "lead"},
		Team: []statewiretest.Probe{{ID: "t1"}, {ID: "t2"}},
	}
	rec := &statewiretest.Recorder{}
	data, err := proc.Marshal(context.Background(), in, rec)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}

	wantOrder := []string{"lead", "t1", "t2"}
	if len(rec.Serialized) != len(wantOrder) {
		t.Fatalf("Serialized = %v, want %v", rec.Serialized, wantOrder)
	}
	for i, id := range wantOrder {
		if rec.Serialized[i] != id {
			t.Errorf("Serialized[%d] = %q, want %q", i, rec.Serialized[i], id)
		}
	}

	rec2 := &statewiretest.Recorder{}
	out, err := proc.Unmarshal(context.Background(), data, rec2)
	if err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}
	for i, id := range wantOrder {
		if rec2.Deserialized[i] != id {
			t.Errorf("Deserialized[%d] = %q, want %q", i, rec2.Deserialized[i], id)
		}
	}
	if out.Lead.ID != "lead" || len(out.Team) != 2 {
		t.Errorf("decoded = %+v", out)
	}
}

func TestTransparentWrapper(t *testing.T) {
	proc, err := statewire.NewProcessor[statewiretest.Wrapper](json.New(), statewire.WithTransparent())
	if err != nil {
		t.Fatalf("NewProcessor() error: %v", err)
	}

	data, err := proc.Marshal(context.Background(), statewiretest.Wrapper{}, &statewiretest.Counter{N: 10})
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}
	if string(data) != "11" {
		t.Errorf("Marshal() = %s, want the bare inner value 11", data)
	}

	out, err := proc.Unmarshal(context.Background(), []byte("11"), &statewiretest.Counter{})
	if err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}
	if out.Inner != 11 {
		t.Errorf("Inner = %d, want 11", out.Inner)
	}
}

func TestUnionWireShapes(t *testing.T) {
	statewiretest.RegisterOps()

	proc, err := statewire.NewProcessor[statewiretest.Op](json.New())
	if err != nil {
		t.Fatalf("NewProcessor() error: %v", err)
	}

	tests := []struct {
		name string
		in   statewiretest.Op
		want string
	}{
		{"unit", statewiretest.Idle{}, `"Idle"`},
		{"newtype", statewiretest.Load{Target: "/x"}, `{"Load":"/x"}`},
		{"tuple", statewiretest.Combine{A: 10, B: 11}, `{"Combine":[10,11]}`},
		{"struct", statewiretest.Move{X: 1, Y: 2}, `{"Move":{"x":1,"y":2}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := proc.Marshal(context.Background(), tt.in, nil)
			if err != nil {
				t.Fatalf("Marshal() error: %v", err)
			}
			if string(data) != tt.want {
				t.Errorf("Marshal() = %s, want %s", data, tt.want)
			}

			out, err := proc.Unmarshal(context.Background(), data, nil)
			if err != nil {
				t.Fatalf("Unmarshal() error: %v", err)
			}
			if out != tt.in {
				t.Errorf("round trip = %#v, want %#v", out, tt.in)
			}
		})
	}
}

func TestUnknownVariantFromBytes(t *testing.T) {
	statewiretest.RegisterOps()

	proc, _ := statewire.NewProcessor[statewiretest.Op](json.New())
	_, err := proc.Unmarshal(context.Background(), []byte(`"Teleport"`), nil)
	if !errors.Is(err, statewire.ErrUnknownVariant) {
		t.Errorf("Unmarshal() = %v, want ErrUnknownVariant", err)
	}
}

type roster struct {
	A statewiretest.Name `wire:"a"`
	B statewiretest.Name `wire:"b"`
}

func TestStringInterning(t *testing.T) {
	proc, err := statewire.NewProcessor[roster](json.New(),
		statewire.WithStateType(&statewiretest.Pool{}))
	if err != nil {
		t.Fatalf("NewProcessor() error: %v", err)
	}

	pool := statewiretest.NewPool()
	out, err := proc.Unmarshal(context.Background(), []byte(`{"a":"alice","b":"alice"}`), pool)
	if err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}
	if out.A != "alice" || out.B != "alice" {
		t.Errorf("decoded = %+v", out)
	}
	if pool.Len() != 1 {
		t.Errorf("pool holds %d strings, want the duplicate deduplicated to 1", pool.Len())
	}

	if _, err := proc.Unmarshal(context.Background(), []byte(`{"a":"x","b":"y"}`), "wrong"); !errors.Is(err, statewire.ErrStateMismatch) {
		t.Errorf("wrong state = %v, want ErrStateMismatch", err)
	}
}

func TestDuplicateFieldFromBytes(t *testing.T) {
	proc, err := statewire.NewProcessor[statewiretest.Example](json.New())
	if err != nil {
		t.Fatalf("NewProcessor() error: %v", err)
	}

	_, err = proc.Unmarshal(context.Background(),
		[]byte(`{"first":1,"first":2,"second":3}`), &statewiretest.Counter{})
	if !errors.Is(err, statewire.ErrDuplicateField) {
		t.Errorf("Unmarshal() = %v, want ErrDuplicateField", err)
	}
}

func TestMissingFieldFromBytes(t *testing.T) {
	proc, _ := statewire.NewProcessor[statewiretest.Example](json.New())
	_, err := proc.Unmarshal(context.Background(), []byte(`{"first":1}`), &statewiretest.Counter{})
	if !errors.Is(err, statewire.ErrMissingField) {
		t.Errorf("Unmarshal() = %v, want ErrMissingField", err)
	}
}

type stamped struct {
	Hot  statewiretest.DualMark `wire:"hot"`
	Cold statewiretest.DualMark `wire:"cold" state:"stateless"`
}

func TestStatelessPathOnWire(t *testing.T) {
	proc, err := statewire.NewProcessor[stamped](json.New())
	if err != nil {
		t.Fatalf("NewProcessor() error: %v", err)
	}

	data, err := proc.Marshal(context.Background(), stamped{
		Hot:  statewiretest.DualMark{V: "a"},
		Cold: statewiretest.DualMark{V: "b"},
	}, nil)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}
	want := `{"hot":"stateful:a","cold":"stateless:b"}`
	if string(data) != want {
		t.Errorf("Marshal() = %s, want %s", data, want)
	}

	out, err := proc.Unmarshal(context.Background(), data, nil)
	if err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}
	if out.Hot.V != "a" || out.Cold.V != "b" {
		t.Errorf("decoded = %+v", out)
	}
}

func TestUseCachesAcrossCalls(t *testing.T) {
	t.Cleanup(statewire.Reset)

	p1, err := statewire.Use[statewiretest.Example](json.New())
	if err != nil {
		t.Fatalf("Use() error: %v", err)
	}
	p2, err := statewire.Use[statewiretest.Example](json.New())
	if err != nil {
		t.Fatalf("Use() error: %v", err)
	}
	if p1 != p2 {
		t.Error("Use() should cache by type and content type")
	}
}

func TestMarshalWireWithoutCodec(t *testing.T) {
	proc, err := statewire.NewProcessor[statewiretest.Example](json.New())
	if err != nil {
		t.Fatalf("NewProcessor() error: %v", err)
	}

	wv, err := proc.MarshalWire(statewiretest.Example{}, &statewiretest.Counter{})
	if err != nil {
		t.Fatalf("MarshalWire() error: %v", err)
	}
	want := wire.Object{
		{Key: "first", Value: wire.Int(1)},
		{Key: "second", Value: wire.Int(2)},
	}
	if !wire.Equal(wv, want) {
		t.Errorf("MarshalWire() = %s, want %s", wire.Format(wv), wire.Format(want))
	}
}
