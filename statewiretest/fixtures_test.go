package statewiretest

import (
	"testing"

	"github.com/zoobzio/statewire/wire"
)

func TestCounter(t *testing.T) {
	c := &Counter{}
	if c.Next() != 1 || c.Next() != 2 {
		t.Error("Next() should count up from 1")
	}
}

func TestTick(t *testing.T) {
	c := &Counter{N: 4}
	var tk Tick

	v, err := tk.MarshalState(c)
	if err != nil {
		t.Fatalf("MarshalState() error: %v", err)
	}
	if !wire.Equal(v, wire.Int(5)) {
		t.Errorf("MarshalState() = %s, want 5", wire.Format(v))
	}

	if err := tk.UnmarshalState(c, wire.Int(5)); err != nil {
		t.Fatalf("UnmarshalState() error: %v", err)
	}
	if tk != 5 {
		t.Errorf("tick = %d, want 5", tk)
	}
	if c.N != 6 {
		t.Errorf("counter = %d, decode should advance it once", c.N)
	}

	if err := tk.UnmarshalState(c, wire.String("no")); err == nil {
		t.Error("UnmarshalState() should reject non-integers")
	}
	if _, err := tk.MarshalState(nil); err == nil {
		t.Error("MarshalState() should reject a missing counter")
	}
}

func TestPool(t *testing.T) {
	p := NewPool()
	a := p.Intern("x")
	b := p.Intern("x")
	if a != b || p.Len() != 1 {
		t.Errorf("Intern() should deduplicate, pool holds %d", p.Len())
	}
	p.Intern("y")
	if p.Len() != 2 {
		t.Errorf("Len() = %d, want 2", p.Len())
	}
}

func TestDualMark(t *testing.T) {
	m := DualMark{V: "v"}

	sv, _ := m.MarshalState(nil)
	if !wire.Equal(sv, wire.String("stateful:v")) {
		t.Errorf("MarshalState() = %s", wire.Format(sv))
	}
	wv, _ := m.MarshalWire()
	if !wire.Equal(wv, wire.String("stateless:v")) {
		t.Errorf("MarshalWire() = %s", wire.Format(wv))
	}

	var out DualMark
	if err := out.UnmarshalWire(sv); err != nil || out.V != "v" {
		t.Errorf("UnmarshalWire(stateful stamp) = %+v, %v", out, err)
	}
	if err := out.UnmarshalWire(wire.String("bare")); err == nil {
		t.Error("UnmarshalWire() should reject values without a path stamp")
	}
}

func TestRegisterOps(t *testing.T) {
	RegisterOps()
	RegisterOps() // idempotent
}
