package statewire

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestSchemaError(t *testing.T) {
	err := newSchemaError("User", "Email", "duplicate wire key")
	if !errors.Is(err, ErrSchema) {
		t.Error("SchemaError should match ErrSchema")
	}
	msg := err.Error()
	if !strings.Contains(msg, "User") || !strings.Contains(msg, "Email") {
		t.Errorf("Error() = %q, should name type and field", msg)
	}
}

func TestConfigError(t *testing.T) {
	err := newConfigError(ErrMissingHook, "Secret", `"redact"`)
	if !errors.Is(err, ErrMissingHook) {
		t.Error("ConfigError should match its sentinel")
	}
	if !strings.Contains(err.Error(), "redact") {
		t.Errorf("Error() = %q, should carry the detail", err.Error())
	}
}

func TestErrDuplicateField(t *testing.T) {
	err := errDuplicateField("User", "email")
	if !errors.Is(err, ErrDuplicateField) {
		t.Error("should match ErrDuplicateField")
	}
	if !strings.Contains(err.Error(), `"email"`) {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestErrMissingField(t *testing.T) {
	err := errMissingField("User", "id")
	if !errors.Is(err, ErrMissingField) {
		t.Error("should match ErrMissingField")
	}
}

func TestErrUnknownVariant(t *testing.T) {
	err := errUnknownVariant("Op", "Fly", []string{"Idle", "Move"})
	if !errors.Is(err, ErrUnknownVariant) {
		t.Error("should match ErrUnknownVariant")
	}
	msg := err.Error()
	if !strings.Contains(msg, `"Fly"`) || !strings.Contains(msg, "Idle, Move") {
		t.Errorf("Error() = %q, should list known tags", msg)
	}
}

func TestErrInvalidLength(t *testing.T) {
	err := errInvalidLength("Pair", 2, 2, 3)
	if !errors.Is(err, ErrInvalidLength) {
		t.Error("should match ErrInvalidLength")
	}
	msg := err.Error()
	if !strings.Contains(msg, "index 2") || !strings.Contains(msg, "expected 2") || !strings.Contains(msg, "got 3") {
		t.Errorf("Error() = %q", msg)
	}
}

func TestDecodeError_UnwrapsCause(t *testing.T) {
	leaf := fmt.Errorf("leaf failure")
	err := newDecodeError("User", "Name", leaf)
	if !errors.Is(err, ErrMalformed) {
		t.Error("should match ErrMalformed")
	}
	if !errors.Is(err, leaf) {
		t.Error("the leaf cause should survive wrapping")
	}
}

func TestDecodeError_PassesThroughVerbatim(t *testing.T) {
	inner := errDuplicateField("User", "email")
	outer := newDecodeError("Outer", "Field", inner)
	if outer != inner {
		t.Error("engine errors should propagate without nesting")
	}
}

func TestEncodeError_UnwrapsCause(t *testing.T) {
	leaf := fmt.Errorf("leaf failure")
	err := newEncodeError("User", "Name", leaf)
	if !errors.Is(err, ErrMarshal) {
		t.Error("should match ErrMarshal")
	}
	if !errors.Is(err, leaf) {
		t.Error("the leaf cause should survive wrapping")
	}

	outer := newEncodeError("Outer", "", err)
	if outer != err {
		t.Error("encode errors should propagate without nesting")
	}
}
