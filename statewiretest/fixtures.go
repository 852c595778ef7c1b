// Package statewiretest provides shared fixtures for statewire tests.
package statewiretest

import (
	"fmt"
	"strings"
	"sync"

	"github.com/zoobzio/statewire"
	"github.com/zoobzio/statewire/wire"
)

// Counter is a state that hands out increasing values.
type Counter struct {
	N int
}

// Next increments and returns the counter.
func (c *Counter) Next() int {
	c.N++
	return c.N
}

// Tick is a stateful leaf that encodes the next counter value at its
// position and counts decode visits the same way.
type Tick int

// MarshalState emits the next counter value.
func (t Tick) MarshalState(state statewire.State) (wire.Value, error) {
	c, ok := state.(*Counter)
	if !ok {
		return nil, fmt.Errorf("tick needs a *Counter state, got %T", state)
	}
	return wire.Int(c.Next()), nil
}

// UnmarshalState records the wire value and advances the counter.
func (t *Tick) UnmarshalState(state statewire.State, v wire.Value) error {
	c, ok := state.(*Counter)
	if !ok {
		return fmt.Errorf("tick needs a *Counter state, got %T", state)
	}
	n, ok := wire.AsInt(v)
	if !ok {
		return fmt.Errorf("tick expects an integer, got %s", wire.Format(v))
	}
	*t = Tick(n)
	c.Next()
	return nil
}

// Example is the canonical two-field record: encoding it against a fresh
// Counter yields {"first":1,"second":2}.
type Example struct {
	First  Tick `wire:"first"`
	Second Tick `wire:"second"`
}

// Wrapper holds a single leaf; processors built with WithTransparent
// encode it as the bare inner value.
type Wrapper struct {
	Inner Tick
}

// Recorder is a state that logs the identity of every leaf visit, in
// visit order.
type Recorder struct {
	Serialized   []string
	Deserialized []string
}

// Probe is a stateful leaf that reports its visits to a Recorder.
type Probe struct {
	ID string
}

// MarshalState logs the visit and encodes the probe's identity.
func (p Probe) MarshalState(state statewire.State) (wire.Value, error) {
	if r, ok := state.(*Recorder); ok {
		r.Serialized = append(r.Serialized, p.ID)
	}
	return wire.String(p.ID), nil
}

// UnmarshalState restores the identity and logs the visit.
func (p *Probe) UnmarshalState(state statewire.State, v wire.Value) error {
	s, ok := v.(wire.String)
	if !ok {
		return fmt.Errorf("probe expects a string, got %s", wire.Format(v))
	}
	p.ID = string(s)
	if r, ok := state.(*Recorder); ok {
		r.Deserialized = append(r.Deserialized, p.ID)
	}
	return nil
}

// DualMark implements both the stateful and the state-free leaf
// interfaces and stamps its output with whichever path ran.
type DualMark struct {
	V string
}

// MarshalState stamps the stateful encode path.
func (m DualMark) MarshalState(state statewire.State) (wire.Value, error) {
	return wire.String("stateful:" + m.V), nil
}

// MarshalWire stamps the state-free encode path.
func (m DualMark) MarshalWire() (wire.Value, error) {
	return wire.String("stateless:" + m.V), nil
}

// UnmarshalState accepts output from either path.
func (m *DualMark) UnmarshalState(state statewire.State, v wire.Value) error {
	return m.UnmarshalWire(v)
}

// UnmarshalWire accepts output from either path.
func (m *DualMark) UnmarshalWire(v wire.Value) error {
	s, ok := v.(wire.String)
	if !ok {
		return fmt.Errorf("mark expects a string, got %s", wire.Format(v))
	}
	str := string(s)
	switch {
	case strings.HasPrefix(str, "stateful:"):
		m.V = strings.TrimPrefix(str, "stateful:")
	case strings.HasPrefix(str, "stateless:"):
		m.V = strings.TrimPrefix(str, "stateless:")
	default:
		return fmt.Errorf("mark missing path stamp: %q", str)
	}
	return nil
}

// Pool deduplicates strings, handing back one canonical instance per
// distinct value.
type Pool struct {
	seen map[string]string
}

// NewPool returns an empty Pool.
func NewPool() *Pool {
	return &Pool{seen: make(map[string]string)}
}

// Intern returns the canonical instance of s.
func (p *Pool) Intern(s string) string {
	if canon, ok := p.seen[s]; ok {
		return canon
	}
	p.seen[s] = s
	return s
}

// Len returns how many distinct strings the pool holds.
func (p *Pool) Len() int {
	return len(p.seen)
}

// Name is a stateful leaf that interns itself through a *Pool on decode.
type Name string

// MarshalState encodes the name as a plain string.
func (n Name) MarshalState(state statewire.State) (wire.Value, error) {
	return wire.String(string(n)), nil
}

// UnmarshalState restores the name, interned when the state is a *Pool.
func (n *Name) UnmarshalState(state statewire.State, v wire.Value) error {
	s, ok := v.(wire.String)
	if !ok {
		return fmt.Errorf("name expects a string, got %s", wire.Format(v))
	}
	if p, ok := state.(*Pool); ok {
		*n = Name(p.Intern(string(s)))
		return nil
	}
	*n = Name(s)
	return nil
}

// Op is a union fixture covering all four variant shapes.
type Op interface {
	op()
}

// Idle is the unit variant; it encodes to the bare string "Idle".
type Idle struct{}

func (Idle) op() {}

// Load is the newtype variant; it encodes to {"Load": target}.
type Load struct {
	Target string
}

func (Load) op() {}

// Combine is the tuple variant; it encodes to {"Combine": [a, b]}.
type Combine struct {
	A int
	B int
}

func (Combine) op() {}

// Move is the struct variant; it encodes to {"Move": {"x": ..., "y": ...}}.
type Move struct {
	X int `wire:"x"`
	Y int `wire:"y"`
}

func (Move) op() {}

var opsOnce sync.Once

// RegisterOps registers the Op union. Safe to call from any number of
// tests; registration happens once.
func RegisterOps() {
	opsOnce.Do(func() {
		statewire.NewUnion[Op]().
			Unit("Idle", Idle{}).
			Newtype("Load", Load{}).
			Tuple("Combine", Combine{}).
			Struct("Move", Move{}).
			MustRegister()
	})
}
