package replica

import (
	"bytes"
	"context"
	"fmt"
	"reflect"
	"sync"
	"time"
)

// Serializer encodes, decodes, gathers, restores and clones objects
// described by one registry.
//
// A Serializer holds no per-call state and is safe for concurrent use once
// its registry is fully populated. Callers must not mutate an object graph
// while it is being encoded, gathered or cloned.
type Serializer struct {
	registry   *Registry
	codec      Codec
	bufferSize int
}

// Option configures a Serializer.
type Option func(*Serializer)

// WithRegistry sets the registry types are resolved against.
// The default is DefaultRegistry().
func WithRegistry(r *Registry) Option {
	return func(s *Serializer) {
		s.registry = r
	}
}

// WithCodec sets the codec for composite Plain values. The default is MessagePack.
func WithCodec(c Codec) Option {
	return func(s *Serializer) {
		s.codec = c
	}
}

// WithBufferSize sets the initial capacity of encode buffers.
func WithBufferSize(n int) Option {
	return func(s *Serializer) {
		s.bufferSize = n
	}
}

// New creates a Serializer.
func New(opts ...Option) *Serializer {
	s := &Serializer{
		codec:      Msgpack(),
		bufferSize: defaultBufferSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.registry == nil {
		s.registry = DefaultRegistry()
	}
	return s
}

// Registry returns the registry s resolves types against.
func (s *Serializer) Registry() *Registry {
	return s.registry
}

// Encode writes obj and everything it owns or references into a new buffer.
// Shared sub-objects are written once per referencing field.
func (s *Serializer) Encode(ctx context.Context, obj Reflectable) ([]byte, error) {
	typeName := s.typeName(obj)
	start := time.Now()
	emitEncodeStart(ctx, typeName)

	var retErr error
	var retData []byte
	defer func() {
		emitEncodeComplete(ctx, typeName, len(retData), time.Since(start), retErr)
	}()

	buf := acquireBuffer(s.bufferSize)
	defer releaseBuffer(buf)

	if err := s.encodeInto(ctx, buf, obj); err != nil {
		retErr = fmt.Errorf("encode: %w", err)
		return nil, retErr
	}

	retData = bytes.Clone(buf.Bytes())
	return retData, nil
}

// Decode rebuilds an object graph from data. The result shares no memory with data.
func (s *Serializer) Decode(ctx context.Context, data []byte) (Reflectable, error) {
	start := time.Now()
	emitDecodeStart(ctx, len(data))

	var retErr error
	var typeName string
	defer func() {
		emitDecodeComplete(ctx, typeName, len(data), time.Since(start), retErr)
	}()

	obj, err := s.decodeFrom(ctx, data)
	if err != nil {
		retErr = fmt.Errorf("decode: %w", err)
		return nil, retErr
	}
	typeName = s.typeName(obj)
	return obj, nil
}

// Gather records the shared objects referenced by obj's pointer fields,
// recursing into value-owned sub-objects.
func (s *Serializer) Gather(ctx context.Context, obj Reflectable) (*ObjectReferenceRecord, error) {
	rec := &ObjectReferenceRecord{FieldRef: FieldRef{Index: -1}}
	g := referencer{ctx: ctx, reg: s.registry}
	if err := g.gather(obj, rec); err != nil {
		return nil, fmt.Errorf("gather: %w", err)
	}
	return rec, nil
}

// Restore overwrites the pointer fields of obj with the references in rec.
// rec must have been gathered from the object obj was decoded from.
func (s *Serializer) Restore(ctx context.Context, obj Reflectable, rec *ObjectReferenceRecord) error {
	g := referencer{ctx: ctx, reg: s.registry}
	if err := g.restore(obj, rec); err != nil {
		return fmt.Errorf("restore: %w", err)
	}
	return nil
}

func (s *Serializer) encodeInto(ctx context.Context, buf *bytes.Buffer, obj Reflectable) error {
	e := encoder{
		ctx:   ctx,
		reg:   s.registry,
		codec: s.codec,
		w:     writer{buf: buf},
	}
	return e.encodeObject(obj)
}

func (s *Serializer) decodeFrom(ctx context.Context, data []byte) (Reflectable, error) {
	d := decoder{
		ctx:   ctx,
		reg:   s.registry,
		codec: s.codec,
		r:     newReader(data),
	}
	obj, err := d.decodeObject()
	if err != nil {
		return nil, err
	}
	if d.r.pos != len(data) {
		return nil, newDataError(ErrCorruptData, d.r.pos, fmt.Errorf("%d trailing bytes", len(data)-d.r.pos))
	}
	return obj, nil
}

// typeName names obj for events, falling back to its Go type.
func (s *Serializer) typeName(obj Reflectable) string {
	if isNil(obj) {
		return ""
	}
	if t, err := s.registry.LookupInstance(obj); err == nil {
		return t.name
	}
	return fmt.Sprintf("%T", obj)
}

var (
	defaultSerializer     *Serializer
	defaultSerializerOnce sync.Once
)

// Default returns the serializer used by the package-level functions. It is
// bound to DefaultRegistry() with default options.
func Default() *Serializer {
	defaultSerializerOnce.Do(func() {
		defaultSerializer = New()
	})
	return defaultSerializer
}

// Encode encodes obj with the default serializer.
func Encode(ctx context.Context, obj Reflectable) ([]byte, error) {
	return Default().Encode(ctx, obj)
}

// Decode decodes data with the default serializer.
func Decode(ctx context.Context, data []byte) (Reflectable, error) {
	return Default().Decode(ctx, data)
}

// DecodeAs decodes data with the default serializer and asserts the result to T.
func DecodeAs[T any](ctx context.Context, data []byte) (T, error) {
	var zero T
	obj, err := Default().Decode(ctx, data)
	if err != nil {
		return zero, err
	}
	v, ok := obj.(T)
	if !ok && obj != nil {
		return zero, fmt.Errorf("decode: %w", mismatch(obj, reflect.TypeFor[T]()))
	}
	return v, nil
}

// Gather gathers references with the default serializer.
func Gather(ctx context.Context, obj Reflectable) (*ObjectReferenceRecord, error) {
	return Default().Gather(ctx, obj)
}

// Restore restores references with the default serializer.
func Restore(ctx context.Context, obj Reflectable, rec *ObjectReferenceRecord) error {
	return Default().Restore(ctx, obj, rec)
}
