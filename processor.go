package statewire

import (
	"context"
	"reflect"
	"strconv"
	"sync"
	"time"

	"github.com/zoobzio/sentinel"
	"github.com/zoobzio/statewire/wire"
)

// Processor provides the matched marshal/unmarshal pair for one type over
// one codec. The schema is resolved and every field classified at
// construction; calls only walk.
//
// Processors are safe for concurrent use. The state passed to each call is
// not the processor's concern beyond threading it: concurrent reuse of one
// state value across calls is the caller's responsibility.
type Processor[T any] struct {
	codec Codec

	schema *TypeSchema // nil when T is a bare leaf or container type
	cfg    config
	hooks  map[string]Hook

	// Validation state (runs once on first operation)
	validateOnce sync.Once
	validateErr  error

	typeName string
}

// Option configures a processor at construction.
type Option func(*config)

type config struct {
	defaultMode Mode
	transparent bool
	positional  bool
	hooks       map[string]Hook
	stateType   reflect.Type
	stateBound  reflect.Type
}

// WithDefaultMode sets the mode every field inherits unless a variant or
// field override narrows it. The default default is stateful.
func WithDefaultMode(m Mode) Option {
	return func(c *config) {
		c.defaultMode = m
	}
}

// WithTransparent declares the record transparent: its encoding is exactly
// its single field's encoding, with no wrapper. Build fails unless exactly
// one field reaches the wire.
func WithTransparent() Option {
	return func(c *config) {
		c.transparent = true
	}
}

// WithPositional lays the record out by position instead of by key:
// arity 0 encodes to the unit token, arity 1 bare, arity 2 and up to an
// array in declaration order.
func WithPositional() Option {
	return func(c *config) {
		c.positional = true
	}
}

// WithHook registers a custom encode/decode pair under a name fields can
// reference with `state:"with=name"`.
func WithHook(name string, h Hook) Option {
	return func(c *config) {
		c.hooks[name] = h
	}
}

// WithStateType pins the state to the sample's type. Calls whose state is
// not assignable to it fail with ErrStateMismatch before any walk begins.
func WithStateType(sample any) Option {
	return func(c *config) {
		c.stateType = reflect.TypeOf(sample)
	}
}

// WithStateBound requires the state to satisfy an interface; pass a nil
// pointer to the interface type, e.g. WithStateBound((*Interner)(nil)).
// Combining it with WithStateType is a schema error.
func WithStateBound(ptrToIface any) Option {
	return func(c *config) {
		rt := reflect.TypeOf(ptrToIface)
		if rt != nil && rt.Kind() == reflect.Pointer {
			c.stateBound = rt.Elem()
		}
	}
}

// NewProcessor creates a Processor for type T.
//
// T may be a tagged struct, an interface with a registered union, or any
// wire-representable leaf or container type. Schema violations, including
// conflicting state options, abort construction.
func NewProcessor[T any](codec Codec, opts ...Option) (*Processor[T], error) {
	cfg := config{hooks: make(map[string]Hook)}
	for _, opt := range opts {
		opt(&cfg)
	}

	rt := reflect.TypeFor[T]()
	name := typeName(rt)

	if cfg.stateType != nil && cfg.stateBound != nil {
		return nil, newSchemaError(name, "", "state type cannot be combined with a state bound")
	}
	if cfg.stateBound != nil && cfg.stateBound.Kind() != reflect.Interface {
		return nil, newSchemaError(name, "", "state bound must be an interface type")
	}

	p := &Processor[T]{
		codec:    codec,
		cfg:      cfg,
		hooks:    cfg.hooks,
		typeName: name,
	}

	switch rt.Kind() {
	case reflect.Struct:
		spec := sentinel.Scan[T]()
		if spec.TypeName != "" {
			p.typeName = spec.TypeName
		}
		ts, err := schemaFor(rt, schemaConfig{
			defaultMode: cfg.defaultMode,
			transparent: cfg.transparent,
			positional:  cfg.positional,
		})
		if err != nil {
			return nil, err
		}
		p.schema = ts
	case reflect.Interface:
		if cfg.transparent || cfg.positional {
			return nil, newSchemaError(name, "", "layout options apply to records, not unions")
		}
		ts, ok := unionFor(rt)
		if !ok {
			return nil, newSchemaError(name, "", "no union registered for interface "+rt.String())
		}
		p.schema = ts
	default:
		if cfg.transparent || cfg.positional {
			return nil, newSchemaError(name, "", "layout options apply to records")
		}
		if err := checkRepresentable(rt, make(map[reflect.Type]bool)); err != nil {
			return nil, newSchemaError(name, "", err.Error())
		}
	}

	emitProcessorCreated(context.Background(), codec.ContentType(), p.typeName)
	return p, nil
}

// Validate checks that every referenced hook is registered and complete
// and that every interface in the schema has a registered union.
//
// Validation also runs automatically on first operation. Calling Validate
// explicitly allows catching configuration errors at startup.
func (p *Processor[T]) Validate() error {
	return p.ensureValidated()
}

func (p *Processor[T]) ensureValidated() error {
	p.validateOnce.Do(func() {
		p.validateErr = p.validate()
	})
	return p.validateErr
}

func (p *Processor[T]) validate() error {
	if p.schema == nil {
		return nil
	}

	refs := make(map[string][]string)
	p.schema.hookNames(make(map[*TypeSchema]bool), refs)
	for name, fields := range refs {
		h, ok := p.hooks[name]
		if !ok {
			return newConfigError(ErrMissingHook, fields[0], strconv.Quote(name))
		}
		if !h.complete() {
			return newConfigError(ErrMissingHook, fields[0],
				strconv.Quote(name)+" must define both marshal and unmarshal")
		}
	}

	return validateUnions(p.schema, make(map[*TypeSchema]bool))
}

// validateUnions requires a registered union for every interface type the
// schema can reach, so an unregistered variant surfaces at startup instead
// of as a mid-decode failure.
func validateUnions(ts *TypeSchema, seen map[*TypeSchema]bool) error {
	if seen[ts] {
		return nil
	}
	seen[ts] = true

	check := func(fs *FieldsSchema) error {
		if fs == nil {
			return nil
		}
		for _, f := range fs.Fields {
			if f.Skip || f.Hook != "" {
				continue
			}
			rt := f.Type
			for rt.Kind() == reflect.Pointer || rt.Kind() == reflect.Slice ||
				rt.Kind() == reflect.Array || rt.Kind() == reflect.Map {
				rt = rt.Elem()
			}
			if rt.Kind() == reflect.Interface {
				u, ok := unionFor(rt)
				if !ok {
					return newConfigError(ErrSchema, f.Name, "no union registered for interface "+rt.String())
				}
				if err := validateUnions(u, seen); err != nil {
					return err
				}
			}
			if nested, ok := recordBehind(f.Type); ok {
				if err := validateUnions(nested, seen); err != nil {
					return err
				}
			}
		}
		return nil
	}

	if err := check(ts.Fields); err != nil {
		return err
	}
	for _, v := range ts.Variants {
		if err := check(v.Fields); err != nil {
			return err
		}
	}
	return nil
}

// checkState enforces the declared state type or bound, if any.
func (p *Processor[T]) checkState(state State) error {
	if p.cfg.stateType != nil {
		if state == nil || !reflect.TypeOf(state).AssignableTo(p.cfg.stateType) {
			return newConfigError(ErrStateMismatch, "", "state must be "+p.cfg.stateType.String())
		}
	}
	if p.cfg.stateBound != nil {
		if state == nil || !reflect.TypeOf(state).Implements(p.cfg.stateBound) {
			return newConfigError(ErrStateMismatch, "", "state must implement "+p.cfg.stateBound.String())
		}
	}
	return nil
}

// MarshalWire encodes (value, state) into a wire shape without invoking
// the codec. The state is threaded to every stateful leaf, depth-first and
// left-to-right; it never appears in the output.
func (p *Processor[T]) MarshalWire(v T, state State) (wire.Value, error) {
	if err := p.ensureValidated(); err != nil {
		return nil, err
	}
	if err := p.checkState(state); err != nil {
		return nil, err
	}

	e := &encoder{state: state, hooks: p.hooks}
	rv := reflect.ValueOf(&v).Elem()

	var wv wire.Value
	var err error
	if p.schema == nil {
		wv, err = e.encodeValue(rv, resolveMode(p.cfg.defaultMode, ""))
	} else {
		wv, err = e.encode(p.schema, rv, ModeStateful)
	}
	if err != nil {
		return nil, newEncodeError(p.typeName, "", err)
	}
	return wv, nil
}

// UnmarshalWire reconstructs a value from a wire shape, threading the
// state to every stateful leaf. On any error the zero value is returned:
// no partially reconstructed state survives.
func (p *Processor[T]) UnmarshalWire(v wire.Value, state State) (T, error) {
	var out T
	if err := p.ensureValidated(); err != nil {
		return out, err
	}
	if err := p.checkState(state); err != nil {
		return out, err
	}

	d := &decoder{state: state, hooks: p.hooks}
	dst := reflect.ValueOf(&out).Elem()

	var err error
	if p.schema == nil {
		err = d.decodeValue(v, dst, resolveMode(p.cfg.defaultMode, ""))
	} else {
		err = d.decode(p.schema, v, dst, ModeStateful)
	}
	if err != nil {
		var zero T
		return zero, newDecodeError(p.typeName, "", err)
	}
	return out, nil
}

// Marshal encodes (value, state) and renders the result through the codec.
func (p *Processor[T]) Marshal(ctx context.Context, v T, state State) ([]byte, error) {
	start := time.Now()
	emitMarshalStart(ctx, p.codec.ContentType(), p.typeName)

	var retData []byte
	var retErr error
	defer func() {
		emitMarshalComplete(ctx, p.codec.ContentType(), p.typeName,
			len(retData), time.Since(start), p.statefulCount(), retErr)
	}()

	wv, err := p.MarshalWire(v, state)
	if err != nil {
		retErr = err
		return nil, retErr
	}

	data, err := p.codec.Marshal(wv)
	if err != nil {
		retErr = newEncodeError(p.typeName, "", err)
		return nil, retErr
	}
	retData = data
	return data, nil
}

// Unmarshal parses codec bytes and reconstructs a value given a state.
func (p *Processor[T]) Unmarshal(ctx context.Context, data []byte, state State) (T, error) {
	start := time.Now()
	emitUnmarshalStart(ctx, p.codec.ContentType(), p.typeName)

	var zero T
	var retErr error
	defer func() {
		emitUnmarshalComplete(ctx, p.codec.ContentType(), p.typeName,
			len(data), time.Since(start), p.statefulCount(), retErr)
	}()

	wv, err := p.codec.Unmarshal(data)
	if err != nil {
		retErr = &DecodeError{Err: ErrUnmarshal, Type: p.typeName, Cause: err}
		return zero, retErr
	}

	out, err := p.UnmarshalWire(wv, state)
	if err != nil {
		retErr = err
		return zero, retErr
	}
	return out, nil
}

// ContentType returns the codec's MIME type.
func (p *Processor[T]) ContentType() string {
	return p.codec.ContentType()
}

func (p *Processor[T]) statefulCount() int {
	if p.schema == nil {
		return 0
	}
	return p.schema.StatefulCount()
}
