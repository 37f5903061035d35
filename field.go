package replica

import (
	"bytes"
	"fmt"
	"io"
	"reflect"
)

// FieldKind is the closed set of field variants the codec understands.
type FieldKind uint8

const (
	// KindPlain holds inline value data.
	KindPlain FieldKind = iota + 1

	// KindReflectable holds a value-owned nested object.
	KindReflectable

	// KindReflectablePtr holds a shared reference to a polymorphic object.
	KindReflectablePtr

	// KindDataBlock holds an opaque byte payload.
	KindDataBlock
)

func (k FieldKind) String() string {
	switch k {
	case KindPlain:
		return "plain"
	case KindReflectable:
		return "reflectable"
	case KindReflectablePtr:
		return "reflectable_ptr"
	case KindDataBlock:
		return "data_block"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// FieldID identifies a field independently of any array position.
type FieldID struct {
	Kind  FieldKind
	Type  TypeID // Declaring type
	Index int    // Position within the declaring type's fields
}

// Field describes one field of a type. It is immutable once its type is built.
//
// Scalar fields use get/set. Array fields use size/resize/getAt/setAt.
// Values cross the accessors as any: the Plain value, the nested or
// referenced object, or a block for data blocks.
type Field struct {
	id    FieldID
	name  string
	kind  FieldKind
	array bool
	elem  reflect.Type
	plain *plainType

	get    func(obj Reflectable) any
	set    func(obj Reflectable, v any) error
	size   func(obj Reflectable) int
	resize func(obj Reflectable, n int)
	getAt  func(obj Reflectable, i int) any
	setAt  func(obj Reflectable, i int, v any) error
}

// block carries a data block payload through the accessors.
type block struct {
	r io.Reader
	n int
}

// ID returns the field id.
func (f *Field) ID() FieldID { return f.id }

// Name returns the field name.
func (f *Field) Name() string { return f.name }

// Kind returns the field kind.
func (f *Field) Kind() FieldKind { return f.kind }

// IsArray reports whether the field holds an array of elements.
func (f *Field) IsArray() bool { return f.array }

// ElemType returns the static Go type of the value, or of one element for arrays.
func (f *Field) ElemType() reflect.Type { return f.elem }

// Value returns the scalar value of the field on obj.
func (f *Field) Value(obj Reflectable) any { return f.get(obj) }

// SetValue stores a scalar value on obj.
func (f *Field) SetValue(obj Reflectable, v any) error { return f.set(obj, v) }

// Len returns the number of elements of an array field on obj.
func (f *Field) Len(obj Reflectable) int { return f.size(obj) }

// Index returns element i of an array field on obj.
func (f *Field) Index(obj Reflectable, i int) any { return f.getAt(obj, i) }

// SetIndex stores element i of an array field on obj.
func (f *Field) SetIndex(obj Reflectable, i int, v any) error { return f.setAt(obj, i, v) }

// minWireSize is the smallest number of bytes one value of the field occupies.
func (f *Field) minWireSize() int {
	if f.kind == KindPlain && f.plain.size > 0 {
		return f.plain.size
	}
	return prefixSize
}

// FieldDef is a field definition waiting to be attached to a type for T.
type FieldDef[T any] struct {
	field *Field
	err   error
}

// WithCodec overrides the value codec used for a composite Plain field.
func (d FieldDef[T]) WithCodec(c Codec) FieldDef[T] {
	if d.field == nil || d.field.plain == nil {
		return d
	}
	f := *d.field
	pt := *f.plain
	pt.codec = c
	f.plain = &pt
	return FieldDef[T]{field: &f, err: d.err}
}

func mismatch(v any, want reflect.Type) error {
	return fmt.Errorf("%w: %T is not assignable to %s", ErrTypeMismatch, v, want)
}

func fieldDef[T any](f *Field, err error) FieldDef[T] {
	if err != nil {
		return FieldDef[T]{err: fmt.Errorf("field %q: %w", f.name, err)}
	}
	return FieldDef[T]{field: f}
}

// Plain declares a scalar Plain field of value type V.
func Plain[T, V any](name string, get func(T) V, set func(T, V)) FieldDef[T] {
	vt := reflect.TypeFor[V]()
	pt, err := plainTypeFor(vt)
	f := &Field{
		name:  name,
		kind:  KindPlain,
		elem:  vt,
		plain: pt,
		get:   func(obj Reflectable) any { return get(obj.(T)) },
		set: func(obj Reflectable, v any) error {
			val, ok := v.(V)
			if !ok {
				return mismatch(v, vt)
			}
			set(obj.(T), val)
			return nil
		},
	}
	return fieldDef[T](f, err)
}

// PlainArray declares an array Plain field backed by a slice of V.
func PlainArray[T, V any](name string, get func(T) []V, set func(T, []V)) FieldDef[T] {
	vt := reflect.TypeFor[V]()
	pt, err := plainTypeFor(vt)
	f := &Field{
		name:  name,
		kind:  KindPlain,
		elem:  vt,
		plain: pt,
	}
	sliceAccessors(f, get, set, func(s []V, i int, v any) error {
		val, ok := v.(V)
		if !ok {
			return mismatch(v, vt)
		}
		s[i] = val
		return nil
	})
	f.getAt = func(obj Reflectable, i int) any { return get(obj.(T))[i] }
	return fieldDef[T](f, err)
}

// Nested declares a scalar Reflectable field: a value-owned object of type
// *E stored inline in T. get must return the nested value by reference
// (e.g. &t.Child) so that shallow-clone restoration can reach into it; set
// copies a decoded value into place.
func Nested[T, E any](name string, get func(T) *E, set func(T, *E)) FieldDef[T] {
	et := reflect.TypeFor[*E]()
	f := &Field{
		name: name,
		kind: KindReflectable,
		elem: et,
		get:  func(obj Reflectable) any { return get(obj.(T)) },
		set: func(obj Reflectable, v any) error {
			p, ok := v.(*E)
			if !ok {
				return mismatch(v, et)
			}
			set(obj.(T), p)
			return nil
		},
	}
	return fieldDef[T](f, nil)
}

// NestedArray declares an array Reflectable field backed by a slice of E
// values. Elements are addressed as *E.
func NestedArray[T, E any](name string, get func(T) []E, set func(T, []E)) FieldDef[T] {
	et := reflect.TypeFor[*E]()
	f := &Field{
		name: name,
		kind: KindReflectable,
		elem: et,
	}
	sliceAccessors(f, get, set, func(s []E, i int, v any) error {
		p, ok := v.(*E)
		if !ok {
			return mismatch(v, et)
		}
		if p != nil {
			s[i] = *p
		}
		return nil
	})
	f.getAt = func(obj Reflectable, i int) any { return &get(obj.(T))[i] }
	return fieldDef[T](f, nil)
}

// Pointer declares a scalar ReflectablePtr field. P is a pointer type or an
// interface implemented by registered types.
func Pointer[T, P any](name string, get func(T) P, set func(T, P)) FieldDef[T] {
	pt := reflect.TypeFor[P]()
	f := &Field{
		name: name,
		kind: KindReflectablePtr,
		elem: pt,
		get:  func(obj Reflectable) any { return get(obj.(T)) },
		set: func(obj Reflectable, v any) error {
			val, err := assertRef[P](v, pt)
			if err != nil {
				return err
			}
			set(obj.(T), val)
			return nil
		},
	}
	return fieldDef[T](f, checkRefType(pt))
}

// PointerArray declares an array ReflectablePtr field backed by a slice of P.
func PointerArray[T, P any](name string, get func(T) []P, set func(T, []P)) FieldDef[T] {
	pt := reflect.TypeFor[P]()
	f := &Field{
		name: name,
		kind: KindReflectablePtr,
		elem: pt,
	}
	sliceAccessors(f, get, set, func(s []P, i int, v any) error {
		val, err := assertRef[P](v, pt)
		if err != nil {
			return err
		}
		s[i] = val
		return nil
	})
	f.getAt = func(obj Reflectable, i int) any { return get(obj.(T))[i] }
	return fieldDef[T](f, checkRefType(pt))
}

// checkRefType validates the static type of a reference field.
func checkRefType(pt reflect.Type) error {
	switch pt.Kind() {
	case reflect.Pointer, reflect.Interface:
		return nil
	default:
		return fmt.Errorf("%w: reference type %s is not a pointer or interface", ErrInvalidField, pt)
	}
}

func assertRef[P any](v any, pt reflect.Type) (P, error) {
	var zero P
	if v == nil {
		return zero, nil
	}
	val, ok := v.(P)
	if !ok {
		return zero, mismatch(v, pt)
	}
	return val, nil
}

// DataBlock declares a scalar DataBlock field. get returns a reader over the
// payload and its length; the codec copies exactly that many bytes. set
// receives a reader valid only for the duration of the call.
func DataBlock[T any](name string, get func(T) (io.Reader, int), set func(T, io.Reader, int) error) FieldDef[T] {
	f := &Field{
		name: name,
		kind: KindDataBlock,
		elem: reflect.TypeFor[[]byte](),
		get: func(obj Reflectable) any {
			r, n := get(obj.(T))
			return block{r: r, n: n}
		},
		set: func(obj Reflectable, v any) error {
			b, ok := v.(block)
			if !ok {
				return mismatch(v, reflect.TypeFor[block]())
			}
			return set(obj.(T), b.r, b.n)
		},
	}
	return fieldDef[T](f, nil)
}

// DataBlockArray declares an array DataBlock field.
func DataBlockArray[T any](name string, size func(T) int, resize func(T, int),
	get func(T, int) (io.Reader, int), set func(T, int, io.Reader, int) error) FieldDef[T] {
	f := &Field{
		name:   name,
		kind:   KindDataBlock,
		array:  true,
		elem:   reflect.TypeFor[[]byte](),
		size:   func(obj Reflectable) int { return size(obj.(T)) },
		resize: func(obj Reflectable, n int) { resize(obj.(T), n) },
		getAt: func(obj Reflectable, i int) any {
			r, n := get(obj.(T), i)
			return block{r: r, n: n}
		},
		setAt: func(obj Reflectable, i int, v any) error {
			b, ok := v.(block)
			if !ok {
				return mismatch(v, reflect.TypeFor[block]())
			}
			return set(obj.(T), i, b.r, b.n)
		},
	}
	return fieldDef[T](f, nil)
}

// BytesBlock declares a DataBlock field backed by a byte slice.
func BytesBlock[T any](name string, get func(T) []byte, set func(T, []byte)) FieldDef[T] {
	return DataBlock(name,
		func(obj T) (io.Reader, int) {
			b := get(obj)
			return bytes.NewReader(b), len(b)
		},
		func(obj T, r io.Reader, n int) error {
			b, err := readBlock(r, n)
			if err != nil {
				return err
			}
			set(obj, b)
			return nil
		},
	)
}

// readBlock drains exactly n bytes from r. It returns nil for an empty block.
func readBlock(r io.Reader, n int) ([]byte, error) {
	if n == 0 {
		return nil, nil
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return b, nil
}

// sliceAccessors wires the array accessors of f onto a slice held by T.
// An empty decode leaves the slice nil.
func sliceAccessors[T, V any](f *Field, get func(T) []V, set func(T, []V), store func([]V, int, any) error) {
	f.array = true
	f.size = func(obj Reflectable) int { return len(get(obj.(T))) }
	f.resize = func(obj Reflectable, n int) {
		if n == 0 {
			set(obj.(T), nil)
			return
		}
		set(obj.(T), make([]V, n))
	}
	f.setAt = func(obj Reflectable, i int, v any) error {
		return store(get(obj.(T)), i, v)
	}
}
