package replica

import (
	"context"
	"fmt"
	"reflect"
)

// TypeID identifies a reflectable type on the wire.
type TypeID uint32

// NullTypeID is reserved. On the wire it marks an absent object.
const NullTypeID TypeID = 0

// hooks holds the optional per-level lifecycle callbacks of a type. Each
// receives the context of the call that fired it.
type hooks struct {
	serializationStarted   func(context.Context, Reflectable)
	serializationEnded     func(context.Context, Reflectable)
	deserializationStarted func(context.Context, Reflectable)
	deserializationEnded   func(context.Context, Reflectable)
}

// Type describes a reflectable type. It is immutable once built.
type Type struct {
	id     TypeID
	name   string
	goType reflect.Type
	base   *Type
	upcast func(Reflectable) Reflectable
	fields []*Field
	byName map[string]*Field
	newFn  func() Reflectable
	hooks  hooks
}

// ID returns the numeric type id.
func (t *Type) ID() TypeID { return t.id }

// Name returns the type name.
func (t *Type) Name() string { return t.name }

// GoType returns the concrete Go type instances of t have.
func (t *Type) GoType() reflect.Type { return t.goType }

// Base returns the immediate base type, or nil.
func (t *Type) Base() *Type { return t.base }

// Fields returns the fields declared at this level, in wire order.
// The slice must not be modified.
func (t *Type) Fields() []*Field { return t.fields }

// FieldByName returns the field declared at this level with the given name.
func (t *Type) FieldByName(name string) (*Field, bool) {
	f, ok := t.byName[name]
	return f, ok
}

// New constructs a blank instance.
func (t *Type) New() Reflectable { return t.newFn() }

// Chain returns t followed by each of its bases, most-derived first.
func (t *Type) Chain() []*Type {
	var chain []*Type
	for cur := t; cur != nil; cur = cur.base {
		chain = append(chain, cur)
	}
	return chain
}

// String implements fmt.Stringer.
func (t *Type) String() string {
	return fmt.Sprintf("%s(%d)", t.name, t.id)
}

// level pairs one type of a chain with the object viewed at that level.
type level struct {
	typ *Type
	obj Reflectable
}

// levels resolves the view of obj at every level of t's chain.
func (t *Type) levels(obj Reflectable) []level {
	var out []level
	for cur := t; cur != nil; cur = cur.base {
		out = append(out, level{typ: cur, obj: obj})
		if cur.base != nil {
			obj = cur.upcast(obj)
		}
	}
	return out
}

func (t *Type) onSerializationStarted(ctx context.Context, obj Reflectable) {
	if t.hooks.serializationStarted != nil {
		t.hooks.serializationStarted(ctx, obj)
	}
}

func (t *Type) onSerializationEnded(ctx context.Context, obj Reflectable) {
	if t.hooks.serializationEnded != nil {
		t.hooks.serializationEnded(ctx, obj)
	}
}

func (t *Type) onDeserializationStarted(ctx context.Context, obj Reflectable) {
	if t.hooks.deserializationStarted != nil {
		t.hooks.deserializationStarted(ctx, obj)
	}
}

func (t *Type) onDeserializationEnded(ctx context.Context, obj Reflectable) {
	if t.hooks.deserializationEnded != nil {
		t.hooks.deserializationEnded(ctx, obj)
	}
}

// bracket walks levels outermost first, calling enter before visiting each
// level. Once the walk stops, exit runs for every entered level in reverse,
// whether or not visit failed.
func bracket(ctx context.Context, levels []level, enter, exit func(*Type, context.Context, Reflectable), visit func(level) error) error {
	entered := 0
	defer func() {
		for i := entered - 1; i >= 0; i-- {
			exit(levels[i].typ, ctx, levels[i].obj)
		}
	}()

	for _, lv := range levels {
		enter(lv.typ, ctx, lv.obj)
		entered++
		if err := visit(lv); err != nil {
			return err
		}
	}
	return nil
}

// TypeBuilder assembles a Type for instances of T.
type TypeBuilder[T any] struct {
	t      *Type
	fields []*Field
	err    error
}

// Define starts a type descriptor for T. T must be a pointer, normally to a
// struct; newFn must return a fresh, usable instance for decode.
func Define[T any](id TypeID, name string, newFn func() T) *TypeBuilder[T] {
	b := &TypeBuilder[T]{
		t: &Type{
			id:     id,
			name:   name,
			goType: reflect.TypeFor[T](),
		},
	}
	if newFn != nil {
		b.t.newFn = func() Reflectable { return newFn() }
	}
	return b
}

// Extends declares base as the immediate base type. upcast returns the view
// of an instance at the base level, usually the address of the embedded
// base struct.
func (b *TypeBuilder[T]) Extends(base *Type, upcast func(T) Reflectable) *TypeBuilder[T] {
	b.t.base = base
	if upcast != nil {
		b.t.upcast = func(obj Reflectable) Reflectable { return upcast(obj.(T)) }
	}
	return b
}

// Fields appends field definitions in wire order.
func (b *TypeBuilder[T]) Fields(defs ...FieldDef[T]) *TypeBuilder[T] {
	for _, d := range defs {
		if d.err != nil && b.err == nil {
			b.err = d.err
		}
		if d.field != nil {
			b.fields = append(b.fields, d.field)
		}
	}
	return b
}

// OnSerializationStarted sets the hook fired when encoding or gathering enters this level.
func (b *TypeBuilder[T]) OnSerializationStarted(fn func(context.Context, T)) *TypeBuilder[T] {
	b.t.hooks.serializationStarted = wrapHook(fn)
	return b
}

// OnSerializationEnded sets the hook fired when encoding or gathering leaves this level.
func (b *TypeBuilder[T]) OnSerializationEnded(fn func(context.Context, T)) *TypeBuilder[T] {
	b.t.hooks.serializationEnded = wrapHook(fn)
	return b
}

// OnDeserializationStarted sets the hook fired when decoding enters this level.
func (b *TypeBuilder[T]) OnDeserializationStarted(fn func(context.Context, T)) *TypeBuilder[T] {
	b.t.hooks.deserializationStarted = wrapHook(fn)
	return b
}

// OnDeserializationEnded sets the hook fired when decoding leaves this level.
// On the most-derived level it runs last, after every field of the object
// is populated.
func (b *TypeBuilder[T]) OnDeserializationEnded(fn func(context.Context, T)) *TypeBuilder[T] {
	b.t.hooks.deserializationEnded = wrapHook(fn)
	return b
}

func wrapHook[T any](fn func(context.Context, T)) func(context.Context, Reflectable) {
	if fn == nil {
		return nil
	}
	return func(ctx context.Context, obj Reflectable) { fn(ctx, obj.(T)) }
}

// Build validates the definition and returns the immutable Type.
func (b *TypeBuilder[T]) Build() (*Type, error) {
	t := b.t
	if b.err != nil {
		return nil, fmt.Errorf("%w: %w", newTypeError(ErrInvalidType, t.id, t.name), b.err)
	}
	if t.name == "" {
		t.name = t.goType.String()
	}
	if t.id == NullTypeID {
		return nil, fmt.Errorf("%w: id %d is reserved", newTypeError(ErrInvalidType, t.id, t.name), NullTypeID)
	}
	if t.goType.Kind() == reflect.Interface {
		return nil, fmt.Errorf("%w: %s is an interface", newTypeError(ErrInvalidType, t.id, t.name), t.goType)
	}
	if t.goType.Kind() != reflect.Pointer {
		return nil, fmt.Errorf("%w: %s is not a pointer", newTypeError(ErrInvalidType, t.id, t.name), t.goType)
	}
	if t.newFn == nil {
		return nil, fmt.Errorf("%w: missing constructor", newTypeError(ErrInvalidType, t.id, t.name))
	}
	if t.base != nil && t.upcast == nil {
		return nil, fmt.Errorf("%w: base %s without upcast", newTypeError(ErrInvalidType, t.id, t.name), t.base.name)
	}

	built := &Type{
		id:     t.id,
		name:   t.name,
		goType: t.goType,
		base:   t.base,
		upcast: t.upcast,
		newFn:  t.newFn,
		hooks:  t.hooks,
		fields: make([]*Field, 0, len(b.fields)),
		byName: make(map[string]*Field, len(b.fields)),
	}
	for i, def := range b.fields {
		if _, dup := built.byName[def.name]; dup {
			return nil, fmt.Errorf("%w: %w: duplicate field %q", newTypeError(ErrInvalidType, t.id, t.name), ErrInvalidField, def.name)
		}
		f := *def
		f.id = FieldID{Kind: f.kind, Type: t.id, Index: i}
		built.fields = append(built.fields, &f)
		built.byName[f.name] = &f
	}
	return built, nil
}

// MustBuild is like Build but panics on error. Use it for package-level
// descriptor variables.
func (b *TypeBuilder[T]) MustBuild() *Type {
	t, err := b.Build()
	if err != nil {
		panic(err)
	}
	return t
}
