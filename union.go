package statewire

import (
	"reflect"
	"sync"
)

// Unions are declared ahead of use: Go interfaces carry no variant
// metadata, so the front end for a union is this builder rather than
// struct tags. Each variant binds a tag to a concrete type and a payload
// shape; the union's default mode is inherited by every variant unless
// overridden.
//
//	statewire.NewUnion[Command]().
//	    Unit("Idle", Idle{}).
//	    Tuple("Combine", Combine{}).
//	    Struct("Move", Move{}, statewire.VariantMode(statewire.ModeStateless)).
//	    Register()

var (
	unions   = make(map[reflect.Type]*TypeSchema)
	unionsMu sync.RWMutex
)

// UnionOption configures union-wide defaults.
type UnionOption func(*unionConfig)

type unionConfig struct {
	defaultMode Mode
}

// UnionDefaultMode sets the mode every variant inherits unless it declares
// its own.
func UnionDefaultMode(m Mode) UnionOption {
	return func(c *unionConfig) {
		c.defaultMode = m
	}
}

// VariantOption configures one variant.
type VariantOption func(*variantConfig)

type variantConfig struct {
	mode Mode
}

// VariantMode overrides the union default for one variant.
func VariantMode(m Mode) VariantOption {
	return func(c *variantConfig) {
		c.mode = m
	}
}

// UnionBuilder declares the variants of interface type I. Builder methods
// record declarations; Register validates them and publishes the schema.
type UnionBuilder[I any] struct {
	cfg      unionConfig
	variants []variantDecl
	err      error
}

type variantDecl struct {
	name   string
	shape  Shape
	sample reflect.Type
	cfg    variantConfig
}

// NewUnion starts a union declaration for interface type I.
func NewUnion[I any](opts ...UnionOption) *UnionBuilder[I] {
	b := &UnionBuilder[I]{}
	for _, opt := range opts {
		opt(&b.cfg)
	}
	return b
}

// Unit declares a variant with no payload; it encodes to its bare name.
func (b *UnionBuilder[I]) Unit(name string, sample I, opts ...VariantOption) *UnionBuilder[I] {
	return b.add(name, ShapeUnit, sample, opts)
}

// Newtype declares a single-value variant; it encodes to {name: value}.
func (b *UnionBuilder[I]) Newtype(name string, sample I, opts ...VariantOption) *UnionBuilder[I] {
	return b.add(name, ShapeNewtype, sample, opts)
}

// Tuple declares a positional variant; it encodes to {name: [values...]}.
func (b *UnionBuilder[I]) Tuple(name string, sample I, opts ...VariantOption) *UnionBuilder[I] {
	return b.add(name, ShapeTuple, sample, opts)
}

// Struct declares a named-field variant; it encodes to {name: {key: value}}.
func (b *UnionBuilder[I]) Struct(name string, sample I, opts ...VariantOption) *UnionBuilder[I] {
	return b.add(name, ShapeStruct, sample, opts)
}

func (b *UnionBuilder[I]) add(name string, shape Shape, sample I, opts []VariantOption) *UnionBuilder[I] {
	var cfg variantConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	b.variants = append(b.variants, variantDecl{
		name:   name,
		shape:  shape,
		sample: reflect.TypeOf(sample),
		cfg:    cfg,
	})
	return b
}

// Register validates the declaration and publishes the union schema.
// Violations are SchemaErrors: fatal, nothing is registered.
func (b *UnionBuilder[I]) Register() error {
	it := reflect.TypeOf((*I)(nil)).Elem()
	name := typeName(it)
	if it.Kind() != reflect.Interface {
		return newSchemaError(name, "", "union type must be an interface")
	}
	if len(b.variants) == 0 {
		return newSchemaError(name, "", "union has no variants")
	}

	ts := &TypeSchema{
		Name:   name,
		Kind:   KindUnion,
		GoType: it,
		byTag:  make(map[string]*VariantSchema),
		byType: make(map[reflect.Type]*VariantSchema),
	}

	for _, decl := range b.variants {
		if decl.sample == nil {
			return newSchemaError(name, decl.name, "nil variant sample")
		}
		if _, dup := ts.byTag[decl.name]; dup {
			return newSchemaError(name, decl.name, "duplicate variant name")
		}
		if _, dup := ts.byType[decl.sample]; dup {
			return newSchemaError(name, decl.name, "type "+decl.sample.String()+" already bound to another variant")
		}

		mode := resolveMode(b.cfg.defaultMode, decl.cfg.mode)
		v := &VariantSchema{
			Name:  decl.name,
			Shape: decl.shape,
			Mode:  mode,
			Type:  decl.sample,
		}

		payload := decl.sample
		if payload.Kind() == reflect.Pointer {
			payload = payload.Elem()
		}
		if payload.Kind() != reflect.Struct {
			return newSchemaError(name, decl.name, "variant type must be a struct, got "+payload.String())
		}

		style := StyleNamed
		if decl.shape == ShapeNewtype || decl.shape == ShapeTuple {
			style = StylePositional
		}
		fields, err := buildVariantFields(name, decl.name, payload, style, mode)
		if err != nil {
			return err
		}

		switch decl.shape {
		case ShapeUnit:
			if fields.marshaledCount() != 0 {
				return newSchemaError(name, decl.name, "unit variants must have no fields")
			}
			fields.Style = StyleUnit
		case ShapeNewtype:
			if fields.marshaledCount() != 1 {
				return newSchemaError(name, decl.name, "newtype variants must have exactly one field")
			}
		}
		v.Fields = fields

		ts.Variants = append(ts.Variants, v)
		ts.byTag[v.Name] = v
		ts.byType[decl.sample] = v
		ts.tags = append(ts.tags, v.Name)
	}

	unionsMu.Lock()
	defer unionsMu.Unlock()
	unions[it] = ts
	return nil
}

// MustRegister is Register that panics on schema violations. Intended for
// package-level declarations where the schema is static.
func (b *UnionBuilder[I]) MustRegister() {
	if err := b.Register(); err != nil {
		panic(err)
	}
}

// buildVariantFields scans the variant payload under the variant's
// resolved mode as the field default.
func buildVariantFields(unionName, variantName string, payload reflect.Type, style Style, mode Mode) (*FieldsSchema, error) {
	schemasMu.Lock()
	defer schemasMu.Unlock()
	b := &schemaBuilder{building: make(map[reflect.Type]*TypeSchema)}
	fields, err := b.scanFields(unionName+"."+variantName, metadataFor(payload), style, mode)
	if err != nil {
		return nil, err
	}
	return fields, nil
}

// unionFor returns the registered union schema for an interface type.
func unionFor(rt reflect.Type) (*TypeSchema, bool) {
	unionsMu.RLock()
	defer unionsMu.RUnlock()
	ts, ok := unions[rt]
	return ts, ok
}

// resetUnions clears the union registry. Test isolation only.
func resetUnions() {
	unionsMu.Lock()
	defer unionsMu.Unlock()
	unions = make(map[reflect.Type]*TypeSchema)
}
