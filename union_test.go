package statewire

import (
	"errors"
	"reflect"
	"testing"
)

type testOp interface{ isTestOp() }

type opIdle struct{}

func (opIdle) isTestOp() {}

type opLoad struct {
	Path string
}

func (opLoad) isTestOp() {}

type opPair struct {
	A int
	B int
}

func (opPair) isTestOp() {}

type opMove struct {
	X int `wire:"x"`
	Y int `wire:"y"`
}

func (opMove) isTestOp() {}

type opStr string

func (opStr) isTestOp() {}

func registerTestOps(t *testing.T) *TypeSchema {
	t.Helper()
	t.Cleanup(resetUnions)
	t.Cleanup(resetSchemas)

	err := NewUnion[testOp]().
		Unit("Idle", opIdle{}).
		Newtype("Load", opLoad{}).
		Tuple("Pair", opPair{}).
		Struct("Move", opMove{}).
		Register()
	if err != nil {
		t.Fatalf("Register() error: %v", err)
	}

	ts, ok := unionFor(reflect.TypeFor[testOp]())
	if !ok {
		t.Fatal("unionFor() should find the registered union")
	}
	return ts
}

func TestUnionRegister(t *testing.T) {
	ts := registerTestOps(t)

	if ts.Kind != KindUnion {
		t.Errorf("Kind = %q, want union", ts.Kind)
	}

	tags := ts.Tags()
	want := []string{"Idle", "Load", "Pair", "Move"}
	if len(tags) != len(want) {
		t.Fatalf("Tags() = %v, want %v", tags, want)
	}
	for i := range want {
		if tags[i] != want[i] {
			t.Errorf("Tags()[%d] = %q, want %q", i, tags[i], want[i])
		}
	}

	v, ok := ts.Variant("Pair")
	if !ok {
		t.Fatal("Variant(Pair) should exist")
	}
	if v.Shape != ShapeTuple {
		t.Errorf("Pair shape = %q, want tuple", v.Shape)
	}
	if v.Fields.Style != StylePositional {
		t.Errorf("Pair style = %q, want positional", v.Fields.Style)
	}

	if _, ok := ts.VariantOf(reflect.TypeFor[opMove]()); !ok {
		t.Error("VariantOf(opMove) should exist")
	}
}

func TestUnionRegister_NoVariants(t *testing.T) {
	t.Cleanup(resetUnions)

	err := NewUnion[testOp]().Register()
	if !errors.Is(err, ErrSchema) {
		t.Errorf("empty unions should fail, got %v", err)
	}
}

func TestUnionRegister_DuplicateName(t *testing.T) {
	t.Cleanup(resetUnions)
	t.Cleanup(resetSchemas)

	err := NewUnion[testOp]().
		Unit("Idle", opIdle{}).
		Newtype("Idle", opLoad{}).
		Register()
	if !errors.Is(err, ErrSchema) {
		t.Errorf("duplicate variant names should fail, got %v", err)
	}
}

func TestUnionRegister_DuplicateType(t *testing.T) {
	t.Cleanup(resetUnions)
	t.Cleanup(resetSchemas)

	err := NewUnion[testOp]().
		Newtype("Load", opLoad{}).
		Struct("Reload", opLoad{}).
		Register()
	if !errors.Is(err, ErrSchema) {
		t.Errorf("rebinding a type should fail, got %v", err)
	}
}

func TestUnionRegister_UnitWithFields(t *testing.T) {
	t.Cleanup(resetUnions)
	t.Cleanup(resetSchemas)

	err := NewUnion[testOp]().
		Unit("Load", opLoad{}).
		Register()
	if !errors.Is(err, ErrSchema) {
		t.Errorf("unit variants with fields should fail, got %v", err)
	}
}

func TestUnionRegister_NewtypeArity(t *testing.T) {
	t.Cleanup(resetUnions)
	t.Cleanup(resetSchemas)

	err := NewUnion[testOp]().
		Newtype("Pair", opPair{}).
		Register()
	if !errors.Is(err, ErrSchema) {
		t.Errorf("newtype variants need exactly one field, got %v", err)
	}
}

func TestUnionRegister_NonStructVariant(t *testing.T) {
	t.Cleanup(resetUnions)
	t.Cleanup(resetSchemas)

	err := NewUnion[testOp]().
		Newtype("Str", opStr("")).
		Register()
	if !errors.Is(err, ErrSchema) {
		t.Errorf("non-struct variant types should fail, got %v", err)
	}
}

func TestUnionRegister_ModeInheritance(t *testing.T) {
	t.Cleanup(resetUnions)
	t.Cleanup(resetSchemas)

	err := NewUnion[testOp](UnionDefaultMode(ModeStateless)).
		Newtype("Load", opLoad{}).
		Tuple("Pair", opPair{}, VariantMode(ModeStateful)).
		Register()
	if err != nil {
		t.Fatalf("Register() error: %v", err)
	}

	ts, _ := unionFor(reflect.TypeFor[testOp]())
	load, _ := ts.Variant("Load")
	if load.Mode != ModeStateless {
		t.Errorf("Load mode = %q, want inherited stateless", load.Mode)
	}
	pair, _ := ts.Variant("Pair")
	if pair.Mode != ModeStateful {
		t.Errorf("Pair mode = %q, want overridden stateful", pair.Mode)
	}
}

func TestMustRegister_Panics(t *testing.T) {
	t.Cleanup(resetUnions)

	defer func() {
		if recover() == nil {
			t.Error("MustRegister() should panic on schema violations")
		}
	}()
	NewUnion[testOp]().MustRegister()
}
