// Package xml encodes composite Plain values as XML.
//
// encoding/xml cannot represent maps; use it for struct values. Input must
// hold exactly one root element.
package xml

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"

	"github.com/zoobzio/replica"
)

// xmlCodec implements replica.Codec for XML.
type xmlCodec struct{}

// New returns an XML codec. Output carries no XML header.
func New() replica.Codec {
	return &xmlCodec{}
}

// ContentType returns the MIME type for XML.
func (c *xmlCodec) ContentType() string {
	return "application/xml"
}

// Marshal encodes v as a single XML element.
func (c *xmlCodec) Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := xml.NewEncoder(&buf)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes one XML element into v. Whitespace and comments may
// follow the element; anything else is an error.
func (c *xmlCodec) Unmarshal(data []byte, v any) error {
	dec := xml.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(v); err != nil {
		return err
	}
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.Comment:
			continue
		case xml.CharData:
			if len(bytes.TrimSpace(t)) == 0 {
				continue
			}
		}
		return errors.New("xml: trailing data after root element")
	}
}
