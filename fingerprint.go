package replica

import (
	"context"
	"encoding/hex"
	"fmt"
	"time"

	"golang.org/x/crypto/blake2b"
)

// Fingerprint returns the hex-encoded BLAKE2b-256 digest of obj's encoding.
// Objects with equal encodings share a fingerprint, which makes it usable as
// a cache key for serialized descriptions.
func (s *Serializer) Fingerprint(ctx context.Context, obj Reflectable) (string, error) {
	typeName := s.typeName(obj)
	start := time.Now()
	emitFingerprintStart(ctx, typeName)

	var retErr error
	var digest string
	var size int
	defer func() {
		emitFingerprintComplete(ctx, typeName, digest, size, time.Since(start), retErr)
	}()

	buf := acquireBuffer(s.bufferSize)
	defer releaseBuffer(buf)

	if err := s.encodeInto(ctx, buf, obj); err != nil {
		retErr = fmt.Errorf("fingerprint: %w", err)
		return "", retErr
	}
	size = buf.Len()
	sum := blake2b.Sum256(buf.Bytes())
	digest = hex.EncodeToString(sum[:])
	return digest, nil
}

// Fingerprint fingerprints obj with the default serializer.
func Fingerprint(ctx context.Context, obj Reflectable) (string, error) {
	return Default().Fingerprint(ctx, obj)
}
