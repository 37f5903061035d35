package replica

import (
	"context"
	"fmt"
	"io"
	"reflect"
)

// encoder writes objects in the binary wire format.
type encoder struct {
	ctx   context.Context
	reg   *Registry
	codec Codec
	w     writer
}

// encodeObject writes the object encoding of obj, or the null tag if obj is nil.
func (e *encoder) encodeObject(obj Reflectable) error {
	if isNil(obj) {
		e.w.putU32(uint32(NullTypeID))
		return nil
	}

	t, err := e.reg.LookupInstance(obj)
	if err != nil {
		return err
	}

	start := e.w.offset()
	e.w.putU32(uint32(t.id))
	lenPos := e.w.reserveU32()

	err = bracket(e.ctx, t.levels(obj), (*Type).onSerializationStarted, (*Type).onSerializationEnded, func(lv level) error {
		for _, f := range lv.typ.fields {
			if err := e.encodeField(lv, f); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	total, err := sizeU32(e.w.offset()-start, start)
	if err != nil {
		return err
	}
	e.w.patchU32(lenPos, total)
	return nil
}

func (e *encoder) encodeField(lv level, f *Field) error {
	if !f.array {
		if err := e.encodeValue(f, f.get(lv.obj)); err != nil {
			return newFieldError("encode", lv.typ, f, -1, err)
		}
		return nil
	}

	n := f.size(lv.obj)
	count, err := sizeU32(n, e.w.offset())
	if err != nil {
		return newFieldError("encode", lv.typ, f, -1, err)
	}
	e.w.putU32(count)
	for i := 0; i < n; i++ {
		if err := e.encodeValue(f, f.getAt(lv.obj, i)); err != nil {
			return newFieldError("encode", lv.typ, f, i, err)
		}
	}
	return nil
}

func (e *encoder) encodeValue(f *Field, v any) error {
	switch f.kind {
	case KindPlain:
		return e.encodePlain(f.plain, v)
	case KindReflectable, KindReflectablePtr:
		return e.encodeObject(v)
	case KindDataBlock:
		b, ok := v.(block)
		if !ok {
			return mismatch(v, reflect.TypeFor[block]())
		}
		return e.encodeBlock(b)
	}
	return fmt.Errorf("%w: unknown kind %s", ErrInvalidField, f.kind)
}

func (e *encoder) encodePlain(p *plainType, v any) error {
	if p.size > 0 {
		var tmp []byte
		if p.size <= len(e.w.scratch) {
			tmp = e.w.scratch[:p.size]
		} else {
			tmp = make([]byte, p.size)
		}
		putFixed(tmp, reflect.ValueOf(v))
		e.w.buf.Write(tmp)
		return nil
	}

	payload, err := p.payload(v, e.codecFor(p))
	if err != nil {
		return fmt.Errorf("marshal %s: %w", p.typ, err)
	}
	total, err := sizeU32(len(payload)+prefixSize, e.w.offset())
	if err != nil {
		return err
	}
	e.w.putU32(total)
	e.w.buf.Write(payload)
	return nil
}

// encodeBlock streams a data block from its reader into the output.
func (e *encoder) encodeBlock(b block) error {
	n, err := sizeU32(b.n, e.w.offset())
	if err != nil {
		return err
	}
	e.w.putU32(n)
	if n == 0 {
		return nil
	}
	if b.r == nil {
		return fmt.Errorf("%w: data block of %d bytes has no reader", ErrInvalidField, n)
	}
	copied, err := io.CopyN(e.w.buf, b.r, int64(n))
	if err != nil {
		return fmt.Errorf("data block: copied %d of %d bytes: %w", copied, n, err)
	}
	return nil
}

func (e *encoder) codecFor(p *plainType) Codec {
	if p.codec != nil {
		return p.codec
	}
	return e.codec
}

// isNil reports whether v is nil or a typed nil reference.
func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
