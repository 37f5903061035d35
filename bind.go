package replica

import (
	"bytes"
	"fmt"
	"reflect"

	"github.com/zoobzio/sentinel"
)

// tagName is the struct tag DefineStruct reads.
const tagName = "rtti"

// Tag values accepted by DefineStruct.
const (
	TagPlain       = "plain"
	TagReflectable = "reflectable"
	TagPointer     = "ptr"
	TagBlock       = "block"
)

func init() {
	sentinel.Tag(tagName)
}

// DefineStruct starts a type descriptor for *S whose fields are read from
// rtti struct tags:
//
//	Name    string   `rtti:"plain"`
//	Color   Color    `rtti:"reflectable"`
//	Shader  *Shader  `rtti:"ptr"`
//	Pixels  []byte   `rtti:"block"`
//
// A slice field takes the array form of its kind, except []byte for plain
// and block fields. Fields keep their declaration order. Embedded structs
// are not flattened: declare the base type with Extends instead.
func DefineStruct[S any](id TypeID, name string) *TypeBuilder[*S] {
	b := Define(id, name, func() *S { return new(S) })

	spec := sentinel.Scan[S]()
	scanned := make(map[int]bool, len(spec.Fields))
	for _, fm := range spec.Fields {
		tag, ok := fm.Tags[tagName]
		if !ok || len(fm.Index) != 1 {
			continue
		}
		scanned[fm.Index[0]] = true
		f, err := bindField(fm.Name, fm.Index, fm.ReflectType, tag)
		if err != nil {
			if b.err == nil {
				b.err = fmt.Errorf("field %q: %w", fm.Name, err)
			}
			continue
		}
		b.fields = append(b.fields, f)
	}

	// The scan reports exported fields only. Reject tagged fields it skipped.
	st := reflect.TypeFor[S]()
	if st.Kind() != reflect.Struct {
		return b
	}
	for i := 0; i < st.NumField(); i++ {
		sf := st.Field(i)
		if sf.Tag.Get(tagName) == "" || scanned[i] {
			continue
		}
		if b.err == nil {
			b.err = fmt.Errorf("field %q: %w: tagged field is not exported", sf.Name, ErrInvalidField)
		}
	}
	return b
}

// bindField builds a reflection-backed field for struct field index of type rt.
func bindField(name string, index []int, rt reflect.Type, tag string) (*Field, error) {
	at := func(obj Reflectable) reflect.Value {
		return reflect.ValueOf(obj).Elem().FieldByIndex(index)
	}
	isSlice := rt.Kind() == reflect.Slice
	f := &Field{name: name}

	switch tag {
	case TagPlain:
		f.kind = KindPlain
		f.elem = rt
		if isSlice && rt.Elem().Kind() != reflect.Uint8 {
			f.elem = rt.Elem()
			bindSlice(f, at, rt, func(el reflect.Value) any { return el.Interface() }, assign)
		} else {
			f.get = func(obj Reflectable) any { return at(obj).Interface() }
			f.set = func(obj Reflectable, v any) error { return assign(at(obj), v) }
		}
		pt, err := plainTypeFor(f.elem)
		if err != nil {
			return nil, err
		}
		f.plain = pt

	case TagReflectable:
		f.kind = KindReflectable
		st := rt
		if isSlice {
			st = rt.Elem()
		}
		if st.Kind() != reflect.Struct {
			return nil, fmt.Errorf("%w: reflectable field of type %s is not a struct", ErrInvalidField, rt)
		}
		f.elem = reflect.PointerTo(st)
		if isSlice {
			bindSlice(f, at, rt, func(el reflect.Value) any { return el.Addr().Interface() }, assignElem)
		} else {
			f.get = func(obj Reflectable) any { return at(obj).Addr().Interface() }
			f.set = func(obj Reflectable, v any) error { return assignElem(at(obj), v) }
		}

	case TagPointer:
		f.kind = KindReflectablePtr
		pt := rt
		if isSlice {
			pt = rt.Elem()
		}
		if err := checkRefType(pt); err != nil {
			return nil, err
		}
		f.elem = pt
		if isSlice {
			bindSlice(f, at, rt, func(el reflect.Value) any { return el.Interface() }, assign)
		} else {
			f.get = func(obj Reflectable) any { return at(obj).Interface() }
			f.set = func(obj Reflectable, v any) error { return assign(at(obj), v) }
		}

	case TagBlock:
		f.kind = KindDataBlock
		f.elem = reflect.TypeFor[[]byte]()
		switch {
		case isBytes(rt):
			f.get = func(obj Reflectable) any { return bytesBlock(at(obj)) }
			f.set = func(obj Reflectable, v any) error { return assignBlock(at(obj), v) }
		case isSlice && isBytes(rt.Elem()):
			bindSlice(f, at, rt, bytesBlock, assignBlock)
		default:
			return nil, fmt.Errorf("%w: block field of type %s is not []byte", ErrInvalidField, rt)
		}

	default:
		return nil, fmt.Errorf("%w: unknown tag value %q", ErrInvalidField, tag)
	}
	return f, nil
}

// bindSlice wires array accessors onto the slice field returned by at.
func bindSlice(f *Field, at func(Reflectable) reflect.Value, rt reflect.Type,
	load func(reflect.Value) any, store func(reflect.Value, any) error) {
	f.array = true
	f.size = func(obj Reflectable) int { return at(obj).Len() }
	f.resize = func(obj Reflectable, n int) {
		if n == 0 {
			at(obj).Set(reflect.Zero(rt))
			return
		}
		at(obj).Set(reflect.MakeSlice(rt, n, n))
	}
	f.getAt = func(obj Reflectable, i int) any { return load(at(obj).Index(i)) }
	f.setAt = func(obj Reflectable, i int, v any) error { return store(at(obj).Index(i), v) }
}

func isBytes(t reflect.Type) bool {
	return t.Kind() == reflect.Slice && t.Elem().Kind() == reflect.Uint8
}

// assign stores v into dst; nil stores the zero value.
func assign(dst reflect.Value, v any) error {
	if v == nil {
		dst.Set(reflect.Zero(dst.Type()))
		return nil
	}
	rv := reflect.ValueOf(v)
	if !rv.Type().AssignableTo(dst.Type()) {
		return mismatch(v, dst.Type())
	}
	dst.Set(rv)
	return nil
}

// assignElem copies the struct v points to into dst.
func assignElem(dst reflect.Value, v any) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.IsNil() || !rv.Elem().Type().AssignableTo(dst.Type()) {
		return mismatch(v, reflect.PointerTo(dst.Type()))
	}
	dst.Set(rv.Elem())
	return nil
}

func bytesBlock(v reflect.Value) any {
	b := v.Bytes()
	return block{r: bytes.NewReader(b), n: len(b)}
}

func assignBlock(dst reflect.Value, v any) error {
	b, ok := v.(block)
	if !ok {
		return mismatch(v, reflect.TypeFor[block]())
	}
	data, err := readBlock(b.r, b.n)
	if err != nil {
		return err
	}
	dst.SetBytes(data)
	return nil
}
