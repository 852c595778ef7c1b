package statewire

import (
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/zoobzio/sentinel"
)

func init() {
	// Register tags with sentinel
	sentinel.Tag("wire")
	sentinel.Tag("state")
}

// TypeKind distinguishes records from unions.
type TypeKind string

const (
	// KindRecord is a struct with named or positional fields.
	KindRecord TypeKind = "record"

	// KindUnion is an interface with registered variants.
	KindUnion TypeKind = "union"
)

// TypeSchema is the normalized description of one type: its kind, its
// fields or variants, and the resolved attributes the engines consult at
// every call. Schemas are built once at registration and are immutable
// afterwards.
type TypeSchema struct {
	Name        string
	Kind        TypeKind
	GoType      reflect.Type
	Transparent bool

	// Fields is set for KindRecord.
	Fields *FieldsSchema

	// Variants is set for KindUnion, in declaration order.
	Variants []*VariantSchema

	byTag  map[string]*VariantSchema
	byType map[reflect.Type]*VariantSchema
	tags   []string
}

// FieldsSchema is an ordered field list with a layout style.
type FieldsSchema struct {
	Style  Style
	Fields []*FieldSchema

	// keyIndex maps wire key to position for named decoding. Skip fields
	// are absent: they are never looked up from the wire.
	keyIndex map[string]int
}

// FieldSchema describes one field-use-site with its resolved attributes.
type FieldSchema struct {
	Name      string // Go identity, never affected by renames
	Key       string // wire key, defaults to Name
	Mode      Mode
	Skip      bool
	Hook      string // custom hook name from state:"with=..."
	Recursive bool   // edge back into a type currently being built
	Index     []int  // reflect field index path
	Type      reflect.Type

	codec fieldCodec
	cap   capability
}

// VariantSchema describes one union variant: its tag, payload shape, and
// resolved mode.
type VariantSchema struct {
	Name   string
	Shape  Shape
	Mode   Mode
	Type   reflect.Type // dynamic type stored in the interface
	Fields *FieldsSchema
}

// Variant returns the variant schema for a tag.
func (ts *TypeSchema) Variant(tag string) (*VariantSchema, bool) {
	v, ok := ts.byTag[tag]
	return v, ok
}

// VariantOf returns the variant schema for a dynamic type.
func (ts *TypeSchema) VariantOf(rt reflect.Type) (*VariantSchema, bool) {
	v, ok := ts.byType[rt]
	return v, ok
}

// Tags returns the known variant tags in declaration order.
func (ts *TypeSchema) Tags() []string {
	return ts.tags
}

// StatefulCount returns how many field-use-sites resolved to stateful mode.
func (ts *TypeSchema) StatefulCount() int {
	n := 0
	if ts.Fields != nil {
		for _, f := range ts.Fields.Fields {
			if f.codec == codecStateful {
				n++
			}
		}
	}
	for _, v := range ts.Variants {
		if v.Fields == nil {
			continue
		}
		for _, f := range v.Fields.Fields {
			if f.codec == codecStateful {
				n++
			}
		}
	}
	return n
}

// hookNames collects every hook name referenced anywhere in the schema,
// nested record schemas included.
func (ts *TypeSchema) hookNames(seen map[*TypeSchema]bool, out map[string][]string) {
	if seen[ts] {
		return
	}
	seen[ts] = true
	collect := func(fs *FieldsSchema) {
		if fs == nil {
			return
		}
		for _, f := range fs.Fields {
			if f.Hook != "" {
				out[f.Hook] = append(out[f.Hook], f.Name)
			}
			if nested, ok := recordBehind(f.Type); ok {
				nested.hookNames(seen, out)
			}
		}
	}
	collect(ts.Fields)
	for _, v := range ts.Variants {
		collect(v.Fields)
	}
}

// recordBehind resolves the record schema reachable through any chain of
// pointer, slice, array, and map indirection, if one has been built.
func recordBehind(rt reflect.Type) (*TypeSchema, bool) {
	for {
		switch rt.Kind() {
		case reflect.Pointer, reflect.Slice, reflect.Array, reflect.Map:
			rt = rt.Elem()
			continue
		}
		break
	}
	return lookupSchema(rt)
}

// schemaConfig carries the container-level attributes that cannot be
// expressed as struct tags in Go. Nested records always build with the
// zero config; container attributes apply to the registered root only.
type schemaConfig struct {
	defaultMode Mode
	transparent bool
	positional  bool
}

type schemaKey struct {
	typ reflect.Type
	cfg schemaConfig
}

var (
	schemas   = make(map[schemaKey]*TypeSchema)
	schemasMu sync.Mutex
)

// schemaFor returns the cached record schema for rt, building it on first
// use. Safe for concurrent use.
func schemaFor(rt reflect.Type, cfg schemaConfig) (*TypeSchema, error) {
	schemasMu.Lock()
	defer schemasMu.Unlock()

	b := &schemaBuilder{building: make(map[reflect.Type]*TypeSchema)}
	return b.build(rt, cfg)
}

// lookupSchema returns an already-built record schema for rt under the
// zero config, without triggering a build.
func lookupSchema(rt reflect.Type) (*TypeSchema, bool) {
	if rt.Kind() == reflect.Pointer {
		rt = rt.Elem()
	}
	if rt.Kind() != reflect.Struct {
		return nil, false
	}
	schemasMu.Lock()
	defer schemasMu.Unlock()
	ts, ok := schemas[schemaKey{typ: rt, cfg: schemaConfig{}}]
	return ts, ok
}

// schemaBuilder tracks in-progress types so self-referential schemas stay
// finite: a field whose type is currently being built reuses the partial
// schema and is marked recursive.
type schemaBuilder struct {
	building map[reflect.Type]*TypeSchema
}

func (b *schemaBuilder) build(rt reflect.Type, cfg schemaConfig) (*TypeSchema, error) {
	key := schemaKey{typ: rt, cfg: cfg}
	if ts, ok := schemas[key]; ok {
		return ts, nil
	}
	if ts, ok := b.building[rt]; ok {
		return ts, nil
	}

	meta := metadataFor(rt)
	ts := &TypeSchema{
		Name:   meta.TypeName,
		Kind:   KindRecord,
		GoType: rt,
	}
	b.building[rt] = ts
	defer delete(b.building, rt)

	style := StyleNamed
	if cfg.positional {
		style = StylePositional
	}
	fields, err := b.scanFields(ts.Name, meta, style, resolveMode(cfg.defaultMode, ""))
	if err != nil {
		return nil, err
	}
	if cfg.positional && len(fields.Fields) == 0 {
		fields.Style = StyleUnit
	}
	ts.Fields = fields

	if cfg.transparent {
		ts.Transparent = true
		if n := fields.marshaledCount(); n != 1 {
			return nil, newSchemaError(ts.Name, "", "transparent records must have exactly one field")
		}
	}

	schemas[key] = ts
	return ts, nil
}

// scanFields turns sentinel metadata into a FieldsSchema, resolving each
// field's wire key, mode, and capability.
func (b *schemaBuilder) scanFields(typeName string, meta *sentinel.Metadata, style Style, defaultMode Mode) (*FieldsSchema, error) {
	fs := &FieldsSchema{
		Style:    style,
		keyIndex: make(map[string]int),
	}

	for _, fm := range meta.Fields {
		f := &FieldSchema{
			Name:  fm.Name,
			Key:   fm.Name,
			Mode:  defaultMode,
			Index: fm.Index,
			Type:  fm.ReflectType,
		}

		if tag, ok := fm.Tags["wire"]; ok {
			switch {
			case tag == "-":
				f.Skip = true
			case tag != "":
				// Allow json-style option suffixes without honoring them.
				f.Key = strings.SplitN(tag, ",", 2)[0]
			}
		}
		if tag, ok := fm.Tags["state"]; ok {
			for _, part := range strings.Split(tag, ",") {
				part = strings.TrimSpace(part)
				switch {
				case part == "":
				case IsValidMode(Mode(part)):
					f.Mode = Mode(part)
				case strings.HasPrefix(part, "with="):
					f.Hook = strings.TrimPrefix(part, "with=")
				default:
					return nil, newSchemaError(typeName, fm.Name, "unsupported state tag "+strconv.Quote(part))
				}
			}
		}

		if f.Skip && style == StylePositional {
			return nil, newSchemaError(typeName, fm.Name, "skip fields are not allowed in positional records")
		}

		if b.inProgress(f.Type) {
			f.Recursive = true
		}

		if err := deriveCapability(typeName, f); err != nil {
			return nil, err
		}

		if !f.Skip && f.Hook == "" {
			if err := b.prebuild(f.Type); err != nil {
				return nil, err
			}
		}

		if !f.Skip {
			if prev, dup := fs.keyIndex[f.Key]; dup {
				return nil, newSchemaError(typeName, fm.Name,
					"wire key "+strconv.Quote(f.Key)+" already used by field "+fs.Fields[prev].Name)
			}
			fs.keyIndex[f.Key] = len(fs.Fields)
		}
		fs.Fields = append(fs.Fields, f)
	}

	return fs, nil
}

// prebuild eagerly builds schemas for record types reachable from a field
// so schema violations surface at registration rather than mid-call, and
// hook references in nested records are visible to validation. Types that
// carry their own leaf logic in both directions are left alone: the engine
// never walks into them.
func (b *schemaBuilder) prebuild(rt reflect.Type) error {
	for {
		switch rt.Kind() {
		case reflect.Pointer, reflect.Slice, reflect.Array, reflect.Map:
			rt = rt.Elem()
			continue
		}
		break
	}
	if rt.Kind() != reflect.Struct {
		return nil
	}
	c := capabilityOf(rt)
	if (c.stateMarshal || c.wireMarshal) && (c.stateUnmarshal || c.wireUnmarshal) {
		return nil
	}
	_, err := b.build(rt, schemaConfig{})
	return err
}

// inProgress reports whether rt, or the record type behind one level of
// indirection, is currently being built.
func (b *schemaBuilder) inProgress(rt reflect.Type) bool {
	for {
		if _, ok := b.building[rt]; ok {
			return true
		}
		switch rt.Kind() {
		case reflect.Pointer, reflect.Slice, reflect.Array, reflect.Map:
			rt = rt.Elem()
		default:
			return false
		}
	}
}

// marshaledCount returns how many fields actually reach the wire.
func (fs *FieldsSchema) marshaledCount() int {
	n := 0
	for _, f := range fs.Fields {
		if !f.Skip {
			n++
		}
	}
	return n
}

// marshaled returns the wire-visible fields in declaration order.
func (fs *FieldsSchema) marshaled() []*FieldSchema {
	out := make([]*FieldSchema, 0, len(fs.Fields))
	for _, f := range fs.Fields {
		if !f.Skip {
			out = append(out, f)
		}
	}
	return out
}

// metadataFor returns sentinel metadata for a struct type, preferring a
// registered scan and falling back to a reflection walk.
func metadataFor(rt reflect.Type) *sentinel.Metadata {
	if spec, ok := sentinel.Lookup(rt.String()); ok {
		return &spec
	}

	spec := sentinel.Metadata{
		TypeName:    typeName(rt),
		PackageName: rt.PkgPath(),
		Fields:      make([]sentinel.FieldMetadata, 0, rt.NumField()),
	}

	for i := 0; i < rt.NumField(); i++ {
		sf := rt.Field(i)
		if !sf.IsExported() {
			continue
		}

		fm := sentinel.FieldMetadata{
			Name:        sf.Name,
			Type:        sf.Type.String(),
			ReflectType: sf.Type,
			Index:       sf.Index,
			Tags:        parseWireTags(sf.Tag),
		}

		switch sf.Type.Kind() {
		case reflect.Struct:
			fm.Kind = sentinel.KindStruct
		case reflect.Pointer:
			fm.Kind = sentinel.KindPointer
		case reflect.Slice, reflect.Array:
			fm.Kind = sentinel.KindSlice
		case reflect.Map:
			fm.Kind = sentinel.KindMap
		case reflect.Interface:
			fm.Kind = sentinel.KindInterface
		default:
			fm.Kind = sentinel.KindScalar
		}

		spec.Fields = append(spec.Fields, fm)
	}

	return &spec
}

// parseWireTags extracts the wire and state tags from a struct tag.
func parseWireTags(tag reflect.StructTag) map[string]string {
	tags := make(map[string]string)
	for _, name := range []string{"wire", "state"} {
		if val, ok := tag.Lookup(name); ok {
			tags[name] = val
		}
	}
	return tags
}

// typeName returns a readable name for error messages and signals.
func typeName(rt reflect.Type) string {
	if rt.Name() != "" {
		return rt.Name()
	}
	return rt.String()
}

// resetSchemas clears the schema cache. Test isolation only.
func resetSchemas() {
	schemasMu.Lock()
	defer schemasMu.Unlock()
	schemas = make(map[schemaKey]*TypeSchema)
}
