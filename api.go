// Package replica provides reflection-driven binary serialization and
// object-graph cloning.
//
// Types opt in by registering a descriptor: a numeric type id, an ordered
// list of field descriptors, an optional base type, and a factory. The
// codec, the reference gatherer and the cloner are driven entirely by those
// descriptors; none of them know the concrete types ahead of time.
//
// # Field Kinds
//
// Every field is one of four kinds, each with a scalar and an array form:
//
//   - Plain: inline value data, fixed width or length-prefixed
//   - Reflectable: a value-owned nested object, encoded inline
//   - ReflectablePtr: a shared reference to a polymorphic object
//   - DataBlock: an opaque byte payload streamed from an io.Reader
//
// # Defining Types
//
//	type Node struct {
//	    Name  string
//	    Child *Node
//	}
//
//	var NodeType = replica.Define(2, "Node", func() *Node { return &Node{} }).
//	    Fields(
//	        replica.Plain("name", func(n *Node) string { return n.Name }, func(n *Node, v string) { n.Name = v }),
//	        replica.Pointer("child", func(n *Node) *Node { return n.Child }, func(n *Node, v *Node) { n.Child = v }),
//	    ).
//	    MustBuild()
//
//	func init() { replica.MustRegister(NodeType) }
//
// Struct tags offer the same through reflection:
//
//	type Mesh struct {
//	    Name    string  `rtti:"plain"`
//	    Owner   *Node   `rtti:"ptr"`
//	    Indices []byte  `rtti:"block"`
//	}
//
//	var MeshType = replica.DefineStruct[Mesh](3, "Mesh").MustBuild()
//
// # Inheritance
//
// A type may extend one base type. The derived Go struct embeds the base
// struct and supplies an upcast to it:
//
//	replica.Define(12, "Derived", newDerived).
//	    Extends(Base1Type, func(d *Derived) replica.Reflectable { return &d.Base1 })
//
// Fields are written most-derived level first. Lifecycle hooks bracket each
// level: started hooks fire walking towards the root, ended hooks fire in
// reverse on the way back. Each hook receives the context passed to the
// operation that fired it:
//
//	replica.Define(5, "Texture", newTexture).
//	    OnDeserializationEnded(func(ctx context.Context, t *Texture) { t.initialize() })
//
// # Cloning
//
//	deep, _ := replica.Clone(ctx, obj, false)    // shared sub-objects duplicated
//	shallow, _ := replica.Clone(ctx, obj, true)  // shared sub-objects aliased
//
// A deep clone duplicates a shared sub-object once for every field that
// references it. A shallow clone gathers the pointer fields before the round
// trip and restores them afterwards, so the clone aliases the originals.
//
// # Value Codecs
//
// Plain values that are neither fixed width, strings, byte slices, nor
// encoding.BinaryMarshaler implementations are encoded with a Codec.
// MessagePack is the default; the json, yaml, xml and bson subpackages
// provide alternatives:
//
//	s := replica.New(replica.WithCodec(json.New()))
package replica

// Reflectable is any value whose concrete Go type has a registered descriptor.
// Descriptors accept pointer types only, normally pointers to structs.
type Reflectable = any

// Codec provides content-type aware marshaling of composite Plain values.
type Codec interface {
	// ContentType returns the MIME type for this codec (e.g., "application/json").
	ContentType() string

	// Marshal encodes v into bytes.
	Marshal(v any) ([]byte, error)

	// Unmarshal decodes data into v.
	Unmarshal(data []byte, v any) error
}
