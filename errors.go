package statewire

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Sentinel errors for programmatic error handling.
// Use errors.Is() to check for these error types.
var (
	// ErrSchema indicates an invalid schema declaration: a conflicting
	// option combination or a malformed container.
	ErrSchema = errors.New("invalid schema")

	// ErrMissingHook indicates a field references a hook that was not
	// registered on the processor.
	ErrMissingHook = errors.New("missing hook")

	// ErrStateMismatch indicates the caller's state does not satisfy the
	// processor's declared state type or bound.
	ErrStateMismatch = errors.New("state mismatch")

	// ErrDuplicateField indicates a wire object carried the same key twice.
	ErrDuplicateField = errors.New("duplicate field")

	// ErrMissingField indicates a required key was absent from a wire object.
	ErrMissingField = errors.New("missing field")

	// ErrUnknownVariant indicates a union tag matched no registered variant.
	ErrUnknownVariant = errors.New("unknown variant")

	// ErrInvalidLength indicates a positional shape had the wrong arity.
	ErrInvalidLength = errors.New("invalid length")

	// ErrMalformed indicates a wire value had the wrong shape for the
	// target type.
	ErrMalformed = errors.New("malformed value")

	// ErrMarshal indicates encoding failed.
	ErrMarshal = errors.New("marshal failed")

	// ErrUnmarshal indicates the codec failed to produce a wire value.
	ErrUnmarshal = errors.New("unmarshal failed")
)

// SchemaError represents a build-time schema violation. It is fatal:
// processor or union construction aborts and nothing is registered.
type SchemaError struct {
	Type   string // type being registered
	Field  string // offending field or variant, if any
	Reason string // what was wrong
}

func (e *SchemaError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid schema for %s: %s (field %s)", e.Type, e.Reason, e.Field)
	}
	return fmt.Sprintf("invalid schema for %s: %s", e.Type, e.Reason)
}

func (e *SchemaError) Unwrap() error {
	return ErrSchema
}

// ConfigError represents a processor configuration error found at
// validation time: a missing hook or a state that does not satisfy the
// declared type or bound.
type ConfigError struct {
	Err    error  // underlying sentinel error
	Field  string // field that triggered the error
	Detail string // hook name, expected state type, or similar
}

func (e *ConfigError) Error() string {
	if e.Field != "" && e.Detail != "" {
		return fmt.Sprintf("%s: %s (field %s)", e.Err.Error(), e.Detail, e.Field)
	}
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s", e.Err.Error(), e.Detail)
	}
	if e.Field != "" {
		return fmt.Sprintf("%s (field %s)", e.Err.Error(), e.Field)
	}
	return e.Err.Error()
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// DecodeError represents a failed decode. It wraps one of the decode
// sentinels with context about where in the walk the failure happened.
// A failed decode discards all partially reconstructed state.
type DecodeError struct {
	Err   error    // sentinel (ErrDuplicateField, ErrMissingField, ...)
	Type  string   // type being decoded
	Field string   // field name or variant tag
	Known []string // known variant tags, for ErrUnknownVariant
	Index int      // offending element index, for ErrInvalidLength
	Want  int      // declared arity, for ErrInvalidLength
	Got   int      // received arity, for ErrInvalidLength
	Cause error    // underlying protocol or leaf error
}

func (e *DecodeError) Error() string {
	switch {
	case errors.Is(e.Err, ErrDuplicateField), errors.Is(e.Err, ErrMissingField):
		return fmt.Sprintf("%s: %s %q", e.Type, e.Err.Error(), e.Field)
	case errors.Is(e.Err, ErrUnknownVariant):
		return fmt.Sprintf("%s: %s %q, expected one of [%s]",
			e.Type, e.Err.Error(), e.Field, strings.Join(e.Known, ", "))
	case errors.Is(e.Err, ErrInvalidLength):
		return fmt.Sprintf("%s: %s at index %d, expected %d elements, got %d",
			e.Type, e.Err.Error(), e.Index, e.Want, e.Got)
	}
	if e.Cause != nil {
		if e.Field != "" {
			return fmt.Sprintf("%s: %s (field %s): %v", e.Type, e.Err.Error(), e.Field, e.Cause)
		}
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Err.Error(), e.Cause)
	}
	if e.Field != "" {
		return fmt.Sprintf("%s: %s (field %s)", e.Type, e.Err.Error(), e.Field)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Err.Error())
}

// Unwrap exposes both the sentinel and the underlying cause, so a leaf
// error surfaces to the caller unchanged through errors.Is/As.
func (e *DecodeError) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Err, e.Cause}
	}
	return []error{e.Err}
}

// EncodeError represents a failed encode. The engine makes no attempt to
// produce partial or recovered output.
type EncodeError struct {
	Type  string // type being encoded
	Field string // field that failed, if any
	Cause error  // underlying codec or leaf error
}

func (e *EncodeError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s (field %s): %v", e.Type, ErrMarshal.Error(), e.Field, e.Cause)
	}
	return fmt.Sprintf("%s: %s: %v", e.Type, ErrMarshal.Error(), e.Cause)
}

// Unwrap exposes both the sentinel and the underlying cause, so a leaf
// error surfaces to the caller unchanged through errors.Is/As.
func (e *EncodeError) Unwrap() []error {
	if e.Cause != nil {
		return []error{ErrMarshal, e.Cause}
	}
	return []error{ErrMarshal}
}

// newSchemaError creates a SchemaError for build-time violations.
func newSchemaError(typ, field, reason string) error {
	return &SchemaError{Type: typ, Field: field, Reason: reason}
}

// newConfigError creates a ConfigError for validation failures.
func newConfigError(sentinel error, field, detail string) error {
	return &ConfigError{Err: sentinel, Field: field, Detail: detail}
}

// newDecodeError creates a DecodeError wrapping a leaf or shape failure.
func newDecodeError(typ, field string, cause error) error {
	// Engine errors propagate verbatim rather than nesting.
	var de *DecodeError
	if errors.As(cause, &de) {
		return cause
	}
	return &DecodeError{Err: ErrMalformed, Type: typ, Field: field, Cause: cause}
}

// newEncodeError creates an EncodeError wrapping a leaf or codec failure.
func newEncodeError(typ, field string, cause error) error {
	var ee *EncodeError
	if errors.As(cause, &ee) {
		return cause
	}
	return &EncodeError{Type: typ, Field: field, Cause: cause}
}

// errDuplicateField reports a repeated key in a wire object.
func errDuplicateField(typ, field string) error {
	return &DecodeError{Err: ErrDuplicateField, Type: typ, Field: field}
}

// errMissingField reports an absent required key.
func errMissingField(typ, field string) error {
	return &DecodeError{Err: ErrMissingField, Type: typ, Field: field}
}

// errUnknownVariant reports an unrecognized union tag. Known tags are
// listed sorted so the message is stable.
func errUnknownVariant(typ, tag string, known []string) error {
	sorted := append([]string(nil), known...)
	sort.Strings(sorted)
	return &DecodeError{Err: ErrUnknownVariant, Type: typ, Field: tag, Known: sorted}
}

// errInvalidLength reports a positional arity mismatch at the offending index.
func errInvalidLength(typ string, index, want, got int) error {
	return &DecodeError{Err: ErrInvalidLength, Type: typ, Index: index, Want: want, Got: got}
}
