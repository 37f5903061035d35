package replica_test

import (
	"bytes"
	"encoding/binary"
	"io"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zoobzio/replica"
	replicatest "github.com/zoobzio/replica/testing"
)

func roundTrip[T any](t *testing.T, s *replica.Serializer, obj T) T {
	t.Helper()
	data, err := s.Encode(t.Context(), obj)
	require.NoError(t, err)
	out, err := s.Decode(t.Context(), data)
	require.NoError(t, err)
	require.IsType(t, obj, out)
	return out.(T)
}

func TestRoundTrip_Material(t *testing.T) {
	s := replicatest.Serializer(t)
	shader := replicatest.NewShader("pbr")
	albedo := replicatest.NewTexture("albedo", 512, 512)
	normal := replicatest.NewTexture("normal", 256, 256)
	m := replicatest.NewMaterial("brick", shader, albedo, normal)

	out := roundTrip(t, s, m)

	assert.Equal(t, m, out)
	assert.NotSame(t, m.Shader, out.Shader)
	for i := range m.Textures {
		assert.NotSame(t, m.Textures[i], out.Textures[i])
		assert.Equal(t, m.Textures[i].Texels(), out.Textures[i].Texels())
	}
}

func TestRoundTrip_Chain(t *testing.T) {
	s := replicatest.Serializer(t)
	d := &replicatest.Derived{
		Base1:   replicatest.Base1{Base2: replicatest.Base2{ID: 99}, Label: "chain"},
		Weights: []float32{0.25, 0.5, 0.25},
		Peer:    &replicatest.Leaf{Value: -7},
	}

	out := roundTrip(t, s, d)

	assert.Equal(t, d, out)
	assert.NotSame(t, d.Peer, out.Peer)
}

func TestRoundTrip_EmptyAndNil(t *testing.T) {
	s := replicatest.Serializer(t)
	m := &replicatest.Material{Tags: []string{}, Pixels: []byte{}}

	out := roundTrip(t, s, m)

	assert.Nil(t, out.Tags, "empty arrays decode as nil")
	assert.Nil(t, out.Pixels, "empty data blocks decode as nil")
	assert.Nil(t, out.Shader)
	assert.Nil(t, out.Source)
	assert.Nil(t, out.Layers)
}

func TestRoundTrip_Polymorphic(t *testing.T) {
	s := replicatest.Serializer(t)
	m := &replicatest.Material{
		Name:   "noise",
		Source: &replicatest.GeneratedSource{Generator: "perlin", Seed: 1234},
	}

	out := roundTrip(t, s, m)

	require.IsType(t, &replicatest.GeneratedSource{}, out.Source)
	assert.Equal(t, m.Source, out.Source)
	assert.Equal(t, "perlin", out.Source.SourceName())
}

func TestEncode_LifecycleBracket(t *testing.T) {
	s := replicatest.Serializer(t)
	d := &replicatest.Derived{Base1: replicatest.Base1{Label: "x"}}

	replicatest.Trace.Reset()
	data, err := s.Encode(t.Context(), d)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"Derived.serialize.start",
		"Base1.serialize.start",
		"Base2.serialize.start",
		"Base2.serialize.end",
		"Base1.serialize.end",
		"Derived.serialize.end",
	}, replicatest.Trace.Calls())

	replicatest.Trace.Reset()
	_, err = s.Decode(t.Context(), data)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"Derived.deserialize.start",
		"Base1.deserialize.start",
		"Base2.deserialize.start",
		"Base2.deserialize.end",
		"Base1.deserialize.end",
		"Derived.deserialize.end",
	}, replicatest.Trace.Calls())
}

func TestEncode_WireOrder(t *testing.T) {
	s := replicatest.Serializer(t)
	d := &replicatest.Derived{
		Base1:   replicatest.Base1{Base2: replicatest.Base2{ID: 5}, Label: "ab"},
		Weights: []float32{1},
	}

	data, err := s.Encode(t.Context(), d)
	require.NoError(t, err)

	le := binary.LittleEndian
	var want bytes.Buffer
	put := func(v uint32) { _ = binary.Write(&want, le, v) }
	put(uint32(replicatest.DerivedID))
	put(uint32(len(data)))
	put(1) // weights count
	_ = binary.Write(&want, le, float32(1))
	put(uint32(replica.NullTypeID)) // peer
	put(4 + 2)                      // label prefix
	want.WriteString("ab")
	_ = binary.Write(&want, le, uint64(5)) // id

	assert.Equal(t, want.Bytes(), data)
}

func TestEncode_UnknownType(t *testing.T) {
	s := replicatest.Serializer(t)

	_, err := s.Encode(t.Context(), &rogueSource{})
	assert.ErrorIs(t, err, replica.ErrUnknownType)

	m := &replicatest.Material{Source: &rogueSource{}}
	_, err = s.Encode(t.Context(), m)
	require.ErrorIs(t, err, replica.ErrUnknownType)

	var fe *replica.FieldError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "Material", fe.Type)
	assert.Equal(t, "source", fe.Field)
}

type rogueSource struct{}

func (*rogueSource) SourceName() string { return "rogue" }

func TestDecode_MismatchedNestedType(t *testing.T) {
	s := replicatest.Serializer(t)
	h := &replicatest.Holder{Primary: replicatest.Slot{Key: "k"}}

	data, err := s.Encode(t.Context(), h)
	require.NoError(t, err)
	// The primary slot starts right after the holder header.
	binary.LittleEndian.PutUint32(data[8:], uint32(replicatest.LeafID))

	_, err = s.Decode(t.Context(), data)
	assert.ErrorIs(t, err, replica.ErrCorruptData)
}

func TestDecode_HookRunsAfterFields(t *testing.T) {
	s := replicatest.Serializer(t)
	tex := replicatest.NewTexture("height", 3, 7)

	out := roundTrip(t, s, tex)

	assert.Equal(t, uint64(21), out.Texels())
}

// blob streams its payload through a DataBlock field.
type blob struct {
	Size int
	Fill byte
	Got  []byte
}

var blobType = replica.Define(900, "Blob", func() *blob { return &blob{} }).
	Fields(
		replica.DataBlock("data",
			func(b *blob) (io.Reader, int) {
				return io.LimitReader(repeatReader(b.Fill), int64(b.Size)), b.Size
			},
			func(b *blob, r io.Reader, n int) error {
				b.Size = n
				b.Got = make([]byte, n)
				_, err := io.ReadFull(r, b.Got)
				return err
			},
		),
	).
	MustBuild()

type repeatReader byte

func (r repeatReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = byte(r)
	}
	return len(p), nil
}

func blobSerializer(t *testing.T) *replica.Serializer {
	t.Helper()
	reg := replica.NewRegistry()
	require.NoError(t, reg.Register(blobType))
	return replica.New(replica.WithRegistry(reg))
}

func TestDataBlock_Streamed(t *testing.T) {
	s := blobSerializer(t)
	b := &blob{Size: 3000, Fill: 0x5a}

	data, err := s.Encode(t.Context(), b)
	require.NoError(t, err)
	assert.Equal(t, uint32(3000), binary.LittleEndian.Uint32(data[8:12]))

	obj, err := s.Decode(t.Context(), data)
	require.NoError(t, err)
	out := obj.(*blob)
	assert.Equal(t, bytes.Repeat([]byte{0x5a}, 3000), out.Got)
}

func TestDataBlock_Oversized(t *testing.T) {
	s := blobSerializer(t)
	b := &blob{Size: math.MaxUint32 + 1}

	_, err := s.Encode(t.Context(), b)
	require.ErrorIs(t, err, replica.ErrOversizedField)

	var fe *replica.FieldError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "data", fe.Field)
}

func TestDataBlock_ShortReader(t *testing.T) {
	reg := replica.NewRegistry()
	short := replica.Define(901, "Short", func() *blob { return &blob{} }).
		Fields(
			replica.DataBlock("data",
				func(b *blob) (io.Reader, int) { return bytes.NewReader([]byte{1, 2, 3}), 10 },
				func(*blob, io.Reader, int) error { return nil },
			),
		).
		MustBuild()
	require.NoError(t, reg.Register(short))
	s := replica.New(replica.WithRegistry(reg))

	_, err := s.Encode(t.Context(), &blob{})
	assert.ErrorIs(t, err, io.EOF)
}

// stamped holds a plain value that marshals itself.
type stamped struct {
	At time.Time
}

func TestPlain_BinaryMarshaler(t *testing.T) {
	reg := replica.NewRegistry()
	require.NoError(t, reg.Register(replica.Define(902, "Stamped", func() *stamped { return &stamped{} }).
		Fields(
			replica.Plain("at", func(s *stamped) time.Time { return s.At }, func(s *stamped, v time.Time) { s.At = v }),
		).
		MustBuild()))
	s := replica.New(replica.WithRegistry(reg))
	in := &stamped{At: time.Date(2024, 3, 1, 12, 30, 0, 500, time.UTC)}

	out := roundTrip(t, s, in)

	assert.True(t, in.At.Equal(out.At), "got %v, want %v", out.At, in.At)
}
