package replica

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"reflect"
)

// decoder rebuilds objects from the binary wire format.
type decoder struct {
	ctx   context.Context
	reg   *Registry
	codec Codec
	r     reader
}

// decodeObject reads one object encoding. It returns nil for the null tag.
func (d *decoder) decodeObject() (Reflectable, error) {
	start := d.r.pos
	id, err := d.r.u32()
	if err != nil {
		return nil, err
	}
	if TypeID(id) == NullTypeID {
		return nil, nil
	}

	total, err := d.r.u32()
	if err != nil {
		return nil, err
	}
	end := start + int(total)
	if total < headerSize || end > d.r.end || end < start {
		return nil, newDataError(ErrCorruptData, start, fmt.Errorf("object length %d exceeds %d available bytes", total, d.r.end-start))
	}

	t, err := d.reg.Lookup(TypeID(id))
	if err != nil {
		return nil, err
	}

	obj := t.New()
	outer := d.r.end
	d.r.end = end
	err = bracket(d.ctx, t.levels(obj), (*Type).onDeserializationStarted, (*Type).onDeserializationEnded, func(lv level) error {
		for _, f := range lv.typ.fields {
			if err := d.decodeField(lv, f); err != nil {
				return err
			}
		}
		return nil
	})
	d.r.end = outer
	if err != nil {
		return nil, err
	}

	if d.r.pos != end {
		return nil, newDataError(ErrCorruptData, d.r.pos, fmt.Errorf("%d unread bytes in %s", end-d.r.pos, t.name))
	}
	return obj, nil
}

func (d *decoder) decodeField(lv level, f *Field) error {
	if !f.array {
		offset := d.r.pos
		v, err := d.decodeValue(f)
		if err != nil {
			return newFieldError("decode", lv.typ, f, -1, err)
		}
		if f.kind == KindReflectable && v == nil {
			return nil
		}
		if err := f.set(lv.obj, v); err != nil {
			return newFieldError("decode", lv.typ, f, -1, d.setError(offset, err))
		}
		return nil
	}

	offset := d.r.pos
	count, err := d.r.u32()
	if err != nil {
		return newFieldError("decode", lv.typ, f, -1, err)
	}
	n := int(count)
	if n < 0 || n > d.r.remaining()/f.minWireSize() {
		return newFieldError("decode", lv.typ, f, -1,
			newDataError(ErrCorruptData, offset, fmt.Errorf("count %d exceeds %d remaining bytes", count, d.r.remaining())))
	}

	f.resize(lv.obj, n)
	for i := 0; i < n; i++ {
		offset := d.r.pos
		v, err := d.decodeValue(f)
		if err != nil {
			return newFieldError("decode", lv.typ, f, i, err)
		}
		if f.kind == KindReflectable && v == nil {
			continue
		}
		if err := f.setAt(lv.obj, i, v); err != nil {
			return newFieldError("decode", lv.typ, f, i, d.setError(offset, err))
		}
	}
	return nil
}

// setError classifies a setter failure. A decoded object of the wrong type
// means the buffer does not match the descriptors.
func (d *decoder) setError(offset int, err error) error {
	if errors.Is(err, ErrTypeMismatch) {
		return newDataError(ErrCorruptData, offset, err)
	}
	return err
}

func (d *decoder) decodeValue(f *Field) (any, error) {
	switch f.kind {
	case KindPlain:
		return d.decodePlain(f.plain)
	case KindReflectable, KindReflectablePtr:
		return d.decodeObject()
	case KindDataBlock:
		n, err := d.r.u32()
		if err != nil {
			return nil, err
		}
		b, err := d.r.next(int(n))
		if err != nil {
			return nil, err
		}
		return block{r: bytes.NewReader(b), n: int(n)}, nil
	}
	return nil, fmt.Errorf("%w: unknown kind %s", ErrInvalidField, f.kind)
}

func (d *decoder) decodePlain(p *plainType) (any, error) {
	if p.size > 0 {
		b, err := d.r.next(p.size)
		if err != nil {
			return nil, err
		}
		v := reflect.New(p.typ).Elem()
		readFixed(b, v)
		return v.Interface(), nil
	}

	offset := d.r.pos
	total, err := d.r.u32()
	if err != nil {
		return nil, err
	}
	if total < prefixSize {
		return nil, newDataError(ErrCorruptData, offset, fmt.Errorf("length prefix %d is shorter than itself", total))
	}
	payload, err := d.r.next(int(total) - prefixSize)
	if err != nil {
		return nil, err
	}

	codec := d.codec
	if p.codec != nil {
		codec = p.codec
	}
	v, err := p.fromPayload(payload, codec)
	if err != nil {
		return nil, newDataError(ErrCorruptData, offset, err)
	}
	return v.Interface(), nil
}
