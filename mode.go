package statewire

// Mode selects whether a field or variant payload is serialized with the
// state or through the ordinary, state-free path.
// Use these constants in struct tags: `state:"stateless"`.
type Mode string

const (
	// ModeStateful threads the caller's state into the leaf. The default
	// everywhere an override is absent.
	ModeStateful Mode = "stateful"

	// ModeStateless serializes through the state-free path; the leaf never
	// receives the state.
	ModeStateless Mode = "stateless"
)

// validModes contains all valid modes for tag validation.
var validModes = map[Mode]bool{
	ModeStateful:  true,
	ModeStateless: true,
}

// IsValidMode returns true if the mode is a known mode.
func IsValidMode(m Mode) bool {
	return validModes[m]
}

// resolveMode applies the inheritance rule: an explicit override at a
// narrower scope wins, absence means inherit.
func resolveMode(inherited, override Mode) Mode {
	if override != "" {
		return override
	}
	if inherited != "" {
		return inherited
	}
	return ModeStateful
}

// Shape identifies how a union variant carries its payload.
type Shape string

const (
	// ShapeUnit has no payload; the variant encodes to its bare name.
	ShapeUnit Shape = "unit"

	// ShapeNewtype wraps a single value with no inner wrapper.
	ShapeNewtype Shape = "newtype"

	// ShapeTuple carries an ordered sequence of unnamed values.
	ShapeTuple Shape = "tuple"

	// ShapeStruct carries named fields.
	ShapeStruct Shape = "struct"
)

// Style identifies how a record lays out its fields.
type Style string

const (
	// StyleNamed records encode to objects keyed by wire key.
	StyleNamed Style = "named"

	// StylePositional records encode by position: arity 0 to the unit
	// token, arity 1 bare, arity 2 and up to an array.
	StylePositional Style = "positional"

	// StyleUnit records have no fields and encode to the unit token.
	StyleUnit Style = "unit"
)
