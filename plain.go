package replica

import (
	"encoding"
	"encoding/binary"
	"fmt"
	"math"
	"reflect"
)

// plainEncoding selects how a Plain value reaches the wire.
type plainEncoding uint8

const (
	plainFixed  plainEncoding = iota // raw little-endian bytes
	plainString                      // length-prefixed string bytes
	plainBytes                       // length-prefixed byte slice
	plainBinary                      // length-prefixed encoding.BinaryMarshaler output
	plainCodec                       // length-prefixed value codec output
)

var (
	binaryMarshalerType   = reflect.TypeFor[encoding.BinaryMarshaler]()
	binaryUnmarshalerType = reflect.TypeFor[encoding.BinaryUnmarshaler]()
)

// plainType is the resolved encoding of one Plain value type.
type plainType struct {
	typ   reflect.Type
	size  int // fixed width in bytes, or -1 for length-prefixed values
	enc   plainEncoding
	codec Codec // per-field override, nil uses the serializer's codec
}

// plainTypeFor resolves the encoding for values of t.
// Fixed-width types win, then strings and byte slices, then
// encoding.BinaryMarshaler, and finally the value codec.
func plainTypeFor(t reflect.Type) (*plainType, error) {
	switch t.Kind() {
	case reflect.Interface, reflect.Func, reflect.Chan, reflect.UnsafePointer, reflect.Uintptr:
		return nil, fmt.Errorf("%w: %s cannot be a plain value", ErrInvalidField, t)
	}

	if n := fixedWidth(t); n > 0 {
		return &plainType{typ: t, size: n, enc: plainFixed}, nil
	}

	pt := &plainType{typ: t, size: -1}
	switch {
	case t.Kind() == reflect.String:
		pt.enc = plainString
	case t.Kind() == reflect.Slice && t.Elem().Kind() == reflect.Uint8:
		pt.enc = plainBytes
	case t.Implements(binaryMarshalerType) && reflect.PointerTo(t).Implements(binaryUnmarshalerType):
		pt.enc = plainBinary
	default:
		pt.enc = plainCodec
	}
	return pt, nil
}

// fixedWidth returns the packed wire width of t, or -1 if t has no fixed width.
// int and uint are always written as 64 bits. Structs qualify only when every
// field is exported and fixed.
func fixedWidth(t reflect.Type) int {
	switch t.Kind() {
	case reflect.Bool, reflect.Int8, reflect.Uint8:
		return 1
	case reflect.Int16, reflect.Uint16:
		return 2
	case reflect.Int32, reflect.Uint32, reflect.Float32:
		return 4
	case reflect.Int, reflect.Uint, reflect.Int64, reflect.Uint64, reflect.Float64, reflect.Complex64:
		return 8
	case reflect.Complex128:
		return 16
	case reflect.Array:
		if t.Len() == 0 {
			return -1
		}
		n := fixedWidth(t.Elem())
		if n < 0 {
			return -1
		}
		return n * t.Len()
	case reflect.Struct:
		if t.NumField() == 0 {
			return -1
		}
		total := 0
		for i := 0; i < t.NumField(); i++ {
			sf := t.Field(i)
			if !sf.IsExported() {
				return -1
			}
			n := fixedWidth(sf.Type)
			if n < 0 {
				return -1
			}
			total += n
		}
		return total
	}
	return -1
}

// putFixed writes v into b and returns the number of bytes written.
func putFixed(b []byte, v reflect.Value) int {
	le := binary.LittleEndian
	switch v.Kind() {
	case reflect.Bool:
		if v.Bool() {
			b[0] = 1
		} else {
			b[0] = 0
		}
		return 1
	case reflect.Int8:
		b[0] = byte(v.Int())
		return 1
	case reflect.Uint8:
		b[0] = byte(v.Uint())
		return 1
	case reflect.Int16:
		le.PutUint16(b, uint16(v.Int()))
		return 2
	case reflect.Uint16:
		le.PutUint16(b, uint16(v.Uint()))
		return 2
	case reflect.Int32:
		le.PutUint32(b, uint32(v.Int()))
		return 4
	case reflect.Uint32:
		le.PutUint32(b, uint32(v.Uint()))
		return 4
	case reflect.Int, reflect.Int64:
		le.PutUint64(b, uint64(v.Int()))
		return 8
	case reflect.Uint, reflect.Uint64:
		le.PutUint64(b, v.Uint())
		return 8
	case reflect.Float32:
		le.PutUint32(b, math.Float32bits(float32(v.Float())))
		return 4
	case reflect.Float64:
		le.PutUint64(b, math.Float64bits(v.Float()))
		return 8
	case reflect.Complex64:
		c := v.Complex()
		le.PutUint32(b, math.Float32bits(float32(real(c))))
		le.PutUint32(b[4:], math.Float32bits(float32(imag(c))))
		return 8
	case reflect.Complex128:
		c := v.Complex()
		le.PutUint64(b, math.Float64bits(real(c)))
		le.PutUint64(b[8:], math.Float64bits(imag(c)))
		return 16
	case reflect.Array:
		off := 0
		for i := 0; i < v.Len(); i++ {
			off += putFixed(b[off:], v.Index(i))
		}
		return off
	case reflect.Struct:
		off := 0
		for i := 0; i < v.NumField(); i++ {
			off += putFixed(b[off:], v.Field(i))
		}
		return off
	}
	return 0
}

// readFixed fills the settable v from b and returns the number of bytes read.
func readFixed(b []byte, v reflect.Value) int {
	le := binary.LittleEndian
	switch v.Kind() {
	case reflect.Bool:
		v.SetBool(b[0] != 0)
		return 1
	case reflect.Int8:
		v.SetInt(int64(int8(b[0])))
		return 1
	case reflect.Uint8:
		v.SetUint(uint64(b[0]))
		return 1
	case reflect.Int16:
		v.SetInt(int64(int16(le.Uint16(b))))
		return 2
	case reflect.Uint16:
		v.SetUint(uint64(le.Uint16(b)))
		return 2
	case reflect.Int32:
		v.SetInt(int64(int32(le.Uint32(b))))
		return 4
	case reflect.Uint32:
		v.SetUint(uint64(le.Uint32(b)))
		return 4
	case reflect.Int, reflect.Int64:
		v.SetInt(int64(le.Uint64(b)))
		return 8
	case reflect.Uint, reflect.Uint64:
		v.SetUint(le.Uint64(b))
		return 8
	case reflect.Float32:
		v.SetFloat(float64(math.Float32frombits(le.Uint32(b))))
		return 4
	case reflect.Float64:
		v.SetFloat(math.Float64frombits(le.Uint64(b)))
		return 8
	case reflect.Complex64:
		re := math.Float32frombits(le.Uint32(b))
		im := math.Float32frombits(le.Uint32(b[4:]))
		v.SetComplex(complex(float64(re), float64(im)))
		return 8
	case reflect.Complex128:
		re := math.Float64frombits(le.Uint64(b))
		im := math.Float64frombits(le.Uint64(b[8:]))
		v.SetComplex(complex(re, im))
		return 16
	case reflect.Array:
		off := 0
		for i := 0; i < v.Len(); i++ {
			off += readFixed(b[off:], v.Index(i))
		}
		return off
	case reflect.Struct:
		off := 0
		for i := 0; i < v.NumField(); i++ {
			off += readFixed(b[off:], v.Field(i))
		}
		return off
	}
	return 0
}

// payload returns the bytes of a length-prefixed value.
func (p *plainType) payload(v any, codec Codec) ([]byte, error) {
	switch p.enc {
	case plainString:
		return []byte(reflect.ValueOf(v).String()), nil
	case plainBytes:
		return reflect.ValueOf(v).Bytes(), nil
	case plainBinary:
		return v.(encoding.BinaryMarshaler).MarshalBinary()
	case plainCodec:
		return codec.Marshal(v)
	}
	return nil, fmt.Errorf("%w: %s is fixed width", ErrInvalidField, p.typ)
}

// fromPayload rebuilds a length-prefixed value. The result never aliases b.
func (p *plainType) fromPayload(b []byte, codec Codec) (reflect.Value, error) {
	ptr := reflect.New(p.typ)
	switch p.enc {
	case plainString:
		ptr.Elem().SetString(string(b))
	case plainBytes:
		if len(b) > 0 {
			cp := make([]byte, len(b))
			copy(cp, b)
			ptr.Elem().SetBytes(cp)
		}
	case plainBinary:
		cp := make([]byte, len(b))
		copy(cp, b)
		if err := ptr.Interface().(encoding.BinaryUnmarshaler).UnmarshalBinary(cp); err != nil {
			return reflect.Value{}, err
		}
	case plainCodec:
		if err := codec.Unmarshal(b, ptr.Interface()); err != nil {
			return reflect.Value{}, err
		}
	default:
		return reflect.Value{}, fmt.Errorf("%w: %s is fixed width", ErrInvalidField, p.typ)
	}
	return ptr.Elem(), nil
}
