// Package testing provides fixtures and helpers for replica tests.
package testing

import (
	"context"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/zoobzio/replica"
)

// Recorder collects lifecycle hook calls in order.
type Recorder struct {
	mu    sync.Mutex
	calls []string
}

// Record appends a call.
func (r *Recorder) Record(call string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call)
}

// Calls returns a copy of the recorded calls.
func (r *Recorder) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.calls)
}

// Filter returns the recorded calls containing substr, in order.
func (r *Recorder) Filter(substr string) []string {
	var out []string
	for _, c := range r.Calls() {
		if strings.Contains(c, substr) {
			out = append(out, c)
		}
	}
	return out
}

// Reset drops every recorded call.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
}

// Trace records the hooks of every fixture type that carries them.
// Tests that inspect it must not run in parallel.
var Trace = &Recorder{}

// tracer builds the four hook recorders for a type name.
func tracer[T any](name string) (serStart, serEnd, deStart, deEnd func(context.Context, T)) {
	mk := func(event string) func(context.Context, T) {
		return func(context.Context, T) { Trace.Record(name + "." + event) }
	}
	return mk("serialize.start"), mk("serialize.end"), mk("deserialize.start"), mk("deserialize.end")
}

func traced[T any](b *replica.TypeBuilder[T], name string) *replica.TypeBuilder[T] {
	ss, se, ds, de := tracer[T](name)
	return b.OnSerializationStarted(ss).
		OnSerializationEnded(se).
		OnDeserializationStarted(ds).
		OnDeserializationEnded(de)
}

// Type ids of the fixtures.
const (
	LeafID replica.TypeID = 100 + iota
	NodeID
	Base2ID
	Base1ID
	DerivedID
	SlotID
	HolderID
	ColorID
	TextureID
	ShaderID
	LayerID
	FileSourceID
	GeneratedSourceID
	MaterialID
	SubmeshID
	MeshID
)

// Leaf is the smallest reflectable type.
type Leaf struct {
	Value int32
}

// Node links to another node through a shared reference.
type Node struct {
	Name  string
	Child *Node
}

// Base2 is the root of a three level chain.
type Base2 struct {
	ID uint64
}

// Base1 extends Base2.
type Base1 struct {
	Base2
	Label string
}

// Derived extends Base1.
type Derived struct {
	Base1
	Weights []float32
	Peer    *Leaf
}

// Slot holds a shared reference.
type Slot struct {
	Key    string
	Target *Leaf
}

// Holder owns slots by value.
type Holder struct {
	Primary Slot
	Extra   []Slot
}

// Color is a value-owned RGBA tint.
type Color struct {
	R, G, B, A float32
}

// Texture rebuilds its texel count once decoding finishes.
type Texture struct {
	Name   string
	Width  uint32
	Height uint32
	texels uint64
}

// NewTexture returns an initialized texture.
func NewTexture(name string, width, height uint32) *Texture {
	t := &Texture{Name: name, Width: width, Height: height}
	t.initialize()
	return t
}

func (t *Texture) initialize() {
	t.texels = uint64(t.Width) * uint64(t.Height)
}

// Texels returns the derived texel count.
func (t *Texture) Texels() uint64 { return t.texels }

// Shader is shared between materials.
type Shader struct {
	Name   string
	Stages []string
}

// Layer is a value-owned material layer with a shared texture.
type Layer struct {
	Name    string
	Opacity float64
	Texture *Texture
}

// Source is implemented by every material source type.
type Source interface {
	SourceName() string
}

// FileSource is a Source loaded from disk.
type FileSource struct {
	Path string
}

func (s *FileSource) SourceName() string { return s.Path }

// GeneratedSource is a Source produced procedurally.
type GeneratedSource struct {
	Generator string
	Seed      int64
}

func (s *GeneratedSource) SourceName() string { return s.Generator }

// BlendDesc is a fixed-width plain value.
type BlendDesc struct {
	Enable    bool
	SrcBlend  uint8
	DstBlend  uint8
	Op        int32
	WriteMask [4]bool
}

// Material exercises every field kind.
type Material struct {
	GUID     uuid.UUID
	Name     string
	Tags     []string
	Blend    BlendDesc
	Params   map[string]float64
	Tint     Color
	Layers   []Layer
	Shader   *Shader
	Textures []*Texture
	Source   Source
	Pixels   []byte
}

// Submesh is bound from struct tags.
type Submesh struct {
	Start uint32 `rtti:"plain"`
	Count uint32 `rtti:"plain"`
}

// Mesh is bound from struct tags.
type Mesh struct {
	Name      string     `rtti:"plain"`
	Vertices  []float32  `rtti:"plain"`
	Bounds    [6]float32 `rtti:"plain"`
	Material  *Material  `rtti:"ptr"`
	Submeshes []Submesh  `rtti:"reflectable"`
	Indices   []byte     `rtti:"block"`
	Scratch   int
}

// Fixture type descriptors.
var (
	LeafType = replica.Define(LeafID, "Leaf", func() *Leaf { return &Leaf{} }).
			Fields(
			replica.Plain("value", func(l *Leaf) int32 { return l.Value }, func(l *Leaf, v int32) { l.Value = v }),
		).
		MustBuild()

	NodeType = replica.Define(NodeID, "Node", func() *Node { return &Node{} }).
			Fields(
			replica.Plain("name", func(n *Node) string { return n.Name }, func(n *Node, v string) { n.Name = v }),
			replica.Pointer("child", func(n *Node) *Node { return n.Child }, func(n *Node, v *Node) { n.Child = v }),
		).
		MustBuild()

	Base2Type = traced(replica.Define(Base2ID, "Base2", func() *Base2 { return &Base2{} }), "Base2").
			Fields(
			replica.Plain("id", func(b *Base2) uint64 { return b.ID }, func(b *Base2, v uint64) { b.ID = v }),
		).
		MustBuild()

	Base1Type = traced(replica.Define(Base1ID, "Base1", func() *Base1 { return &Base1{} }), "Base1").
			Extends(Base2Type, func(b *Base1) replica.Reflectable { return &b.Base2 }).
			Fields(
			replica.Plain("label", func(b *Base1) string { return b.Label }, func(b *Base1, v string) { b.Label = v }),
		).
		MustBuild()

	DerivedType = traced(replica.Define(DerivedID, "Derived", func() *Derived { return &Derived{} }), "Derived").
			Extends(Base1Type, func(d *Derived) replica.Reflectable { return &d.Base1 }).
			Fields(
			replica.PlainArray("weights", func(d *Derived) []float32 { return d.Weights }, func(d *Derived, v []float32) { d.Weights = v }),
			replica.Pointer("peer", func(d *Derived) *Leaf { return d.Peer }, func(d *Derived, v *Leaf) { d.Peer = v }),
		).
		MustBuild()

	SlotType = traced(replica.Define(SlotID, "Slot", func() *Slot { return &Slot{} }), "Slot").
			Fields(
			replica.Plain("key", func(s *Slot) string { return s.Key }, func(s *Slot, v string) { s.Key = v }),
			replica.Pointer("target", func(s *Slot) *Leaf { return s.Target }, func(s *Slot, v *Leaf) { s.Target = v }),
		).
		MustBuild()

	HolderType = traced(replica.Define(HolderID, "Holder", func() *Holder { return &Holder{} }), "Holder").
			Fields(
			replica.Nested("primary", func(h *Holder) *Slot { return &h.Primary }, func(h *Holder, v *Slot) { h.Primary = *v }),
			replica.NestedArray("extra", func(h *Holder) []Slot { return h.Extra }, func(h *Holder, v []Slot) { h.Extra = v }),
		).
		MustBuild()

	ColorType = replica.Define(ColorID, "Color", func() *Color { return &Color{} }).
			Fields(
			replica.Plain("r", func(c *Color) float32 { return c.R }, func(c *Color, v float32) { c.R = v }),
			replica.Plain("g", func(c *Color) float32 { return c.G }, func(c *Color, v float32) { c.G = v }),
			replica.Plain("b", func(c *Color) float32 { return c.B }, func(c *Color, v float32) { c.B = v }),
			replica.Plain("a", func(c *Color) float32 { return c.A }, func(c *Color, v float32) { c.A = v }),
		).
		MustBuild()

	TextureType = replica.Define(TextureID, "Texture", func() *Texture { return &Texture{} }).
			Fields(
			replica.Plain("name", func(t *Texture) string { return t.Name }, func(t *Texture, v string) { t.Name = v }),
			replica.Plain("width", func(t *Texture) uint32 { return t.Width }, func(t *Texture, v uint32) { t.Width = v }),
			replica.Plain("height", func(t *Texture) uint32 { return t.Height }, func(t *Texture, v uint32) { t.Height = v }),
		).
		OnDeserializationEnded(func(_ context.Context, t *Texture) { t.initialize() }).
		MustBuild()

	ShaderType = replica.Define(ShaderID, "Shader", func() *Shader { return &Shader{} }).
			Fields(
			replica.Plain("name", func(s *Shader) string { return s.Name }, func(s *Shader, v string) { s.Name = v }),
			replica.PlainArray("stages", func(s *Shader) []string { return s.Stages }, func(s *Shader, v []string) { s.Stages = v }),
		).
		MustBuild()

	LayerType = replica.Define(LayerID, "Layer", func() *Layer { return &Layer{} }).
			Fields(
			replica.Plain("name", func(l *Layer) string { return l.Name }, func(l *Layer, v string) { l.Name = v }),
			replica.Plain("opacity", func(l *Layer) float64 { return l.Opacity }, func(l *Layer, v float64) { l.Opacity = v }),
			replica.Pointer("texture", func(l *Layer) *Texture { return l.Texture }, func(l *Layer, v *Texture) { l.Texture = v }),
		).
		MustBuild()

	FileSourceType = replica.Define(FileSourceID, "FileSource", func() *FileSource { return &FileSource{} }).
			Fields(
			replica.Plain("path", func(s *FileSource) string { return s.Path }, func(s *FileSource, v string) { s.Path = v }),
		).
		MustBuild()

	GeneratedSourceType = replica.Define(GeneratedSourceID, "GeneratedSource", func() *GeneratedSource { return &GeneratedSource{} }).
				Fields(
			replica.Plain("generator", func(s *GeneratedSource) string { return s.Generator }, func(s *GeneratedSource, v string) { s.Generator = v }),
			replica.Plain("seed", func(s *GeneratedSource) int64 { return s.Seed }, func(s *GeneratedSource, v int64) { s.Seed = v }),
		).
		MustBuild()

	MaterialType = replica.Define(MaterialID, "Material", func() *Material { return &Material{} }).
			Fields(
			replica.Plain("guid", func(m *Material) uuid.UUID { return m.GUID }, func(m *Material, v uuid.UUID) { m.GUID = v }),
			replica.Plain("name", func(m *Material) string { return m.Name }, func(m *Material, v string) { m.Name = v }),
			replica.PlainArray("tags", func(m *Material) []string { return m.Tags }, func(m *Material, v []string) { m.Tags = v }),
			replica.Plain("blend", func(m *Material) BlendDesc { return m.Blend }, func(m *Material, v BlendDesc) { m.Blend = v }),
			replica.Plain("params", func(m *Material) map[string]float64 { return m.Params }, func(m *Material, v map[string]float64) { m.Params = v }),
			replica.Nested("tint", func(m *Material) *Color { return &m.Tint }, func(m *Material, v *Color) { m.Tint = *v }),
			replica.NestedArray("layers", func(m *Material) []Layer { return m.Layers }, func(m *Material, v []Layer) { m.Layers = v }),
			replica.Pointer("shader", func(m *Material) *Shader { return m.Shader }, func(m *Material, v *Shader) { m.Shader = v }),
			replica.PointerArray("textures", func(m *Material) []*Texture { return m.Textures }, func(m *Material, v []*Texture) { m.Textures = v }),
			replica.Pointer("source", func(m *Material) Source { return m.Source }, func(m *Material, v Source) { m.Source = v }),
			replica.BytesBlock("pixels", func(m *Material) []byte { return m.Pixels }, func(m *Material, v []byte) { m.Pixels = v }),
		).
		MustBuild()

	SubmeshType = replica.DefineStruct[Submesh](SubmeshID, "Submesh").MustBuild()

	MeshType = replica.DefineStruct[Mesh](MeshID, "Mesh").MustBuild()
)

// Types returns every fixture descriptor.
func Types() []*replica.Type {
	return []*replica.Type{
		LeafType, NodeType,
		Base2Type, Base1Type, DerivedType,
		SlotType, HolderType,
		ColorType, TextureType, ShaderType, LayerType,
		FileSourceType, GeneratedSourceType, MaterialType,
		SubmeshType, MeshType,
	}
}

// Registry returns a fresh registry holding every fixture type.
func Registry(tb testing.TB) *replica.Registry {
	tb.Helper()
	reg := replica.NewRegistry()
	if err := reg.Register(Types()...); err != nil {
		tb.Fatalf("register fixtures: %v", err)
	}
	return reg
}

// Serializer returns a serializer bound to a fresh fixture registry.
func Serializer(tb testing.TB, opts ...replica.Option) *replica.Serializer {
	tb.Helper()
	return replica.New(append([]replica.Option{replica.WithRegistry(Registry(tb))}, opts...)...)
}

// UseDefault resets the default registry, registers the fixtures in it and
// resets it again when the test ends.
func UseDefault(tb testing.TB) {
	tb.Helper()
	replica.Reset()
	if err := replica.Register(Types()...); err != nil {
		tb.Fatalf("register fixtures: %v", err)
	}
	tb.Cleanup(replica.Reset)
}

// NewMaterial builds a material referencing shader and textures.
// Passing the same shader or textures to several materials makes them shared.
func NewMaterial(name string, shader *Shader, textures ...*Texture) *Material {
	m := &Material{
		GUID: uuid.NewSHA1(uuid.NameSpaceOID, []byte(name)),
		Name: name,
		Tags: []string{"opaque", "lit"},
		Blend: BlendDesc{
			Enable:    true,
			SrcBlend:  4,
			DstBlend:  5,
			Op:        1,
			WriteMask: [4]bool{true, true, true, false},
		},
		Params:   map[string]float64{"roughness": 0.25, "metallic": 1},
		Tint:     Color{R: 1, G: 0.5, B: 0.25, A: 1},
		Shader:   shader,
		Textures: textures,
		Source:   &FileSource{Path: "assets/" + name + ".mat"},
		Pixels:   []byte{0xde, 0xad, 0xbe, 0xef, 0x00, 0x01},
	}
	for i, tex := range textures {
		m.Layers = append(m.Layers, Layer{Name: tex.Name, Opacity: 1 / float64(i+1), Texture: tex})
	}
	return m
}

// NewShader returns a shader with two stages.
func NewShader(name string) *Shader {
	return &Shader{Name: name, Stages: []string{"vertex", "fragment"}}
}
