// Package bson encodes composite Plain values as BSON.
//
// BSON documents must be maps or structs at the top level, so every value is
// stored under the single key "v". This lets slices, maps and scalars use the
// codec as well.
package bson

import (
	"fmt"

	"github.com/zoobzio/replica"
	"go.mongodb.org/mongo-driver/bson"
)

// valueKey is the document key a value is stored under.
const valueKey = "v"

// bsonCodec implements replica.Codec for BSON.
type bsonCodec struct{}

// New returns a BSON codec.
func New() replica.Codec {
	return &bsonCodec{}
}

// ContentType returns the MIME type for BSON.
func (c *bsonCodec) ContentType() string {
	return "application/bson"
}

// Marshal encodes v as a BSON document {v: value}.
func (c *bsonCodec) Marshal(v any) ([]byte, error) {
	return bson.Marshal(bson.D{{Key: valueKey, Value: v}})
}

// Unmarshal decodes a {v: value} document into v.
func (c *bsonCodec) Unmarshal(data []byte, v any) error {
	doc := bson.Raw(data)
	if err := doc.Validate(); err != nil {
		return err
	}
	val, err := doc.LookupErr(valueKey)
	if err != nil {
		return fmt.Errorf("bson: document has no %q value: %w", valueKey, err)
	}
	return val.Unmarshal(v)
}
