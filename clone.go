package replica

import (
	"context"
	"fmt"
	"reflect"
	"time"
)

// Clone copies obj through an encode/decode round trip.
//
// With shallow set, the pointer fields of obj are gathered first and
// restored onto the copy afterwards, so the clone aliases the same shared
// objects as obj while its value-owned structure is independent. Without
// it the clone is fully independent: a shared object is duplicated once for
// every field that references it, and any sharing in obj is lost.
//
// A nil obj yields a nil clone and no error.
func (s *Serializer) Clone(ctx context.Context, obj Reflectable, shallow bool) (Reflectable, error) {
	if isNil(obj) {
		return nil, nil
	}

	typeName := s.typeName(obj)
	start := time.Now()
	emitCloneStart(ctx, typeName, shallow)

	var retErr error
	var references int
	defer func() {
		emitCloneComplete(ctx, typeName, shallow, references, time.Since(start), retErr)
	}()

	g := referencer{ctx: ctx, reg: s.registry}
	var rec *ObjectReferenceRecord
	if shallow {
		rec = &ObjectReferenceRecord{FieldRef: FieldRef{Index: -1}}
		if err := g.gather(obj, rec); err != nil {
			retErr = fmt.Errorf("clone: gather: %w", err)
			return nil, retErr
		}
		references = rec.Count()
	}

	buf := acquireBuffer(s.bufferSize)
	defer releaseBuffer(buf)

	if err := s.encodeInto(ctx, buf, obj); err != nil {
		retErr = fmt.Errorf("clone: encode: %w", err)
		return nil, retErr
	}
	clone, err := s.decodeFrom(ctx, buf.Bytes())
	if err != nil {
		retErr = fmt.Errorf("clone: decode: %w", err)
		return nil, retErr
	}

	if shallow {
		if err := g.restore(clone, rec); err != nil {
			retErr = fmt.Errorf("clone: restore: %w", err)
			return nil, retErr
		}
	}
	return clone, nil
}

// Clone clones obj with the default serializer.
func Clone(ctx context.Context, obj Reflectable, shallow bool) (Reflectable, error) {
	return Default().Clone(ctx, obj, shallow)
}

// CloneOf clones obj with the default serializer and returns the clone as T.
func CloneOf[T any](ctx context.Context, obj T, shallow bool) (T, error) {
	var zero T
	clone, err := Default().Clone(ctx, obj, shallow)
	if err != nil || clone == nil {
		return zero, err
	}
	v, ok := clone.(T)
	if !ok {
		return zero, fmt.Errorf("clone: %w", mismatch(clone, reflect.TypeFor[T]()))
	}
	return v, nil
}
