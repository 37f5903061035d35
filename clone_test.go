package replica_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zoobzio/replica"
	replicatest "github.com/zoobzio/replica/testing"
)

func cloneAs[T any](t *testing.T, s *replica.Serializer, obj T, shallow bool) T {
	t.Helper()
	out, err := s.Clone(t.Context(), obj, shallow)
	require.NoError(t, err)
	require.IsType(t, obj, out)
	return out.(T)
}

func TestClone_NodeChild(t *testing.T) {
	s := replicatest.Serializer(t)
	a := &replicatest.Node{Name: "A"}
	b := &replicatest.Node{Name: "B", Child: a}

	deep := cloneAs(t, s, b, false)
	require.NotNil(t, deep.Child)
	assert.NotSame(t, a, deep.Child)
	assert.Equal(t, a, deep.Child)
	assert.Equal(t, "B", deep.Name)

	shallow := cloneAs(t, s, b, true)
	assert.Same(t, a, shallow.Child)
	assert.NotSame(t, b, shallow)
	assert.Equal(t, "B", shallow.Name)
}

func TestClone_Nil(t *testing.T) {
	s := replicatest.Serializer(t)

	out, err := s.Clone(t.Context(), nil, true)
	assert.NoError(t, err)
	assert.Nil(t, out)

	var n *replicatest.Node
	out, err = s.Clone(t.Context(), n, false)
	assert.NoError(t, err)
	assert.Nil(t, out)
}

func TestClone_DeepIndependence(t *testing.T) {
	s := replicatest.Serializer(t)
	shader := replicatest.NewShader("pbr")
	m := replicatest.NewMaterial("brick", shader, replicatest.NewTexture("albedo", 4, 4))

	c := cloneAs(t, s, m, false)
	require.Equal(t, m, c)

	c.Name = "changed"
	c.Tags[0] = "changed"
	c.Tint.R = 0
	c.Params["roughness"] = 9
	c.Pixels[0] = 0
	c.Layers[0].Opacity = 0
	c.Shader.Name = "changed"
	c.Textures[0].Name = "changed"

	assert.Equal(t, "brick", m.Name)
	assert.Equal(t, "opaque", m.Tags[0])
	assert.Equal(t, float32(1), m.Tint.R)
	assert.Equal(t, 0.25, m.Params["roughness"])
	assert.Equal(t, byte(0xde), m.Pixels[0])
	assert.Equal(t, 1.0, m.Layers[0].Opacity)
	assert.Equal(t, "pbr", shader.Name)
	assert.Equal(t, "albedo", m.Textures[0].Name)

	m.Name = "original changed"
	assert.Equal(t, "changed", c.Name)
}

func TestClone_ShallowAliasing(t *testing.T) {
	s := replicatest.Serializer(t)
	shader := replicatest.NewShader("pbr")
	albedo := replicatest.NewTexture("albedo", 4, 4)
	normal := replicatest.NewTexture("normal", 4, 4)
	m := replicatest.NewMaterial("brick", shader, albedo, normal)

	c := cloneAs(t, s, m, true)

	assert.Same(t, shader, c.Shader)
	assert.Same(t, albedo, c.Textures[0])
	assert.Same(t, normal, c.Textures[1])
	assert.Same(t, albedo, c.Layers[0].Texture, "references inside value-owned elements are restored")
	assert.Same(t, normal, c.Layers[1].Texture)
	assert.Same(t, m.Source, c.Source)

	c.Tags[0] = "changed"
	c.Pixels[0] = 0
	c.Layers[0].Name = "changed"
	assert.Equal(t, "opaque", m.Tags[0])
	assert.Equal(t, byte(0xde), m.Pixels[0])
	assert.Equal(t, "albedo", m.Layers[0].Name)
}

func TestClone_Diamond(t *testing.T) {
	s := replicatest.Serializer(t)
	tex := replicatest.NewTexture("shared", 2, 2)
	m := replicatest.NewMaterial("diamond", nil, tex, tex)

	deep := cloneAs(t, s, m, false)
	assert.NotSame(t, deep.Textures[0], deep.Textures[1], "deep clone duplicates each reference")
	assert.NotSame(t, deep.Textures[0], deep.Layers[0].Texture)
	assert.Equal(t, *deep.Textures[0], *deep.Textures[1])

	shallow := cloneAs(t, s, m, true)
	assert.Same(t, tex, shallow.Textures[0])
	assert.Same(t, tex, shallow.Textures[1])
	assert.Same(t, tex, shallow.Layers[0].Texture)
	assert.Same(t, tex, shallow.Layers[1].Texture)
}

func TestClone_ShallowChain(t *testing.T) {
	s := replicatest.Serializer(t)
	peer := &replicatest.Leaf{Value: 3}
	d := &replicatest.Derived{
		Base1:   replicatest.Base1{Base2: replicatest.Base2{ID: 1}, Label: "d"},
		Weights: []float32{1, 2},
		Peer:    peer,
	}

	c := cloneAs(t, s, d, true)

	assert.Same(t, peer, c.Peer)
	assert.Equal(t, d.Base1, c.Base1)
	c.Weights[0] = 0
	assert.Equal(t, float32(1), d.Weights[0])
}

func TestClone_DoesNotMutateSource(t *testing.T) {
	s := replicatest.Serializer(t)
	shader := replicatest.NewShader("pbr")
	m := replicatest.NewMaterial("brick", shader, replicatest.NewTexture("albedo", 4, 4))
	before := replicatest.NewMaterial("brick", replicatest.NewShader("pbr"), replicatest.NewTexture("albedo", 4, 4))

	_, err := s.Clone(t.Context(), m, true)
	require.NoError(t, err)
	_, err = s.Clone(t.Context(), m, false)
	require.NoError(t, err)

	assert.Equal(t, before, m)
	assert.Same(t, shader, m.Shader)
}

func TestClone_UnknownType(t *testing.T) {
	s := replicatest.Serializer(t)

	_, err := s.Clone(t.Context(), &rogueSource{}, true)
	assert.ErrorIs(t, err, replica.ErrUnknownType)

	_, err = s.Clone(t.Context(), &replicatest.Material{Source: &rogueSource{}}, false)
	assert.ErrorIs(t, err, replica.ErrUnknownType)
}

func TestClone_Mesh(t *testing.T) {
	s := replicatest.Serializer(t)
	mat := replicatest.NewMaterial("stone", replicatest.NewShader("pbr"))
	mesh := &replicatest.Mesh{
		Name:      "cube",
		Vertices:  []float32{0, 0, 0, 1, 1, 1},
		Bounds:    [6]float32{0, 0, 0, 1, 1, 1},
		Material:  mat,
		Submeshes: []replicatest.Submesh{{Start: 0, Count: 3}, {Start: 3, Count: 3}},
		Indices:   []byte{0, 1, 2, 3, 4, 5},
		Scratch:   42,
	}

	deep := cloneAs(t, s, mesh, false)
	assert.Equal(t, mesh.Name, deep.Name)
	assert.Equal(t, mesh.Vertices, deep.Vertices)
	assert.Equal(t, mesh.Bounds, deep.Bounds)
	assert.Equal(t, mesh.Submeshes, deep.Submeshes)
	assert.Equal(t, mesh.Indices, deep.Indices)
	assert.Equal(t, mat, deep.Material)
	assert.NotSame(t, mat, deep.Material)
	assert.Zero(t, deep.Scratch, "untagged fields are not serialized")

	shallow := cloneAs(t, s, mesh, true)
	assert.Same(t, mat, shallow.Material)
	assert.Same(t, mat.Shader, shallow.Material.Shader)
}

func TestClone_ShallowHookPhases(t *testing.T) {
	s := replicatest.Serializer(t)
	h := &replicatest.Holder{
		Primary: replicatest.Slot{Key: "a", Target: &replicatest.Leaf{Value: 1}},
		Extra:   []replicatest.Slot{{Key: "b", Target: &replicatest.Leaf{Value: 2}}},
	}

	replicatest.Trace.Reset()
	_, err := s.Clone(t.Context(), h, true)
	require.NoError(t, err)

	// gather, encode, decode, then restore into the value-owned slots
	assert.Equal(t, []string{
		"Holder.serialize.start",
		"Holder.serialize.end",
		"Holder.serialize.start",
		"Holder.serialize.end",
		"Holder.deserialize.start",
		"Holder.deserialize.end",
		"Holder.serialize.start",
		"Holder.serialize.end",
	}, replicatest.Trace.Filter("Holder."))

	// each slot is gathered, encoded, decoded and has its target restored
	assert.Len(t, replicatest.Trace.Filter("Slot.deserialize.start"), 4)
	assert.Len(t, replicatest.Trace.Filter("Slot.serialize.start"), 4)
}
