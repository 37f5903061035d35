package replica

import (
	"bytes"

	"github.com/vmihailenco/msgpack/v5"
)

// msgpackCodec implements Codec for MessagePack.
type msgpackCodec struct{}

// Msgpack returns the MessagePack codec, the default for composite Plain values.
// Map keys are sorted so that equal values always encode to equal bytes.
func Msgpack() Codec {
	return &msgpackCodec{}
}

// ContentType returns the MIME type for MessagePack.
func (c *msgpackCodec) ContentType() string {
	return "application/msgpack"
}

// Marshal encodes v as MessagePack.
func (c *msgpackCodec) Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetSortMapKeys(true)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes MessagePack data into v.
func (c *msgpackCodec) Unmarshal(data []byte, v any) error {
	return msgpack.Unmarshal(data, v)
}
