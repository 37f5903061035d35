package replica

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"sync"
)

const (
	tagSize    = 4                    // type id
	prefixSize = 4                    // u32 length or count
	headerSize = tagSize + prefixSize // object header: type id + total length

	// defaultBufferSize is the initial capacity hint for encode buffers.
	defaultBufferSize = 512

	// maxPooledBuffer keeps unusually large buffers out of the pool.
	maxPooledBuffer = 1 << 20
)

var bufferPool = sync.Pool{
	New: func() any { return new(bytes.Buffer) },
}

// acquireBuffer takes an empty scratch buffer from the pool.
// Every acquire is paired with exactly one releaseBuffer.
func acquireBuffer(hint int) *bytes.Buffer {
	buf := bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	if hint > 0 {
		buf.Grow(hint)
	}
	return buf
}

// releaseBuffer returns buf to the pool. buf must not be used afterwards.
func releaseBuffer(buf *bytes.Buffer) {
	if buf.Cap() > maxPooledBuffer {
		return
	}
	bufferPool.Put(buf)
}

// writer appends wire primitives to a buffer.
type writer struct {
	buf     *bytes.Buffer
	scratch [16]byte
}

func (w *writer) offset() int { return w.buf.Len() }

func (w *writer) putU32(v uint32) {
	binary.LittleEndian.PutUint32(w.scratch[:4], v)
	w.buf.Write(w.scratch[:4])
}

// reserveU32 writes a placeholder and returns its offset for patchU32.
func (w *writer) reserveU32() int {
	pos := w.buf.Len()
	w.putU32(0)
	return pos
}

func (w *writer) patchU32(pos int, v uint32) {
	binary.LittleEndian.PutUint32(w.buf.Bytes()[pos:pos+4], v)
}

// sizeU32 checks that n fits a u32 length prefix.
func sizeU32(n int, offset int) (uint32, error) {
	if n < 0 || uint64(n) > math.MaxUint32 {
		return 0, newDataError(ErrOversizedField, offset, fmt.Errorf("size %d does not fit %d bytes", n, prefixSize))
	}
	return uint32(n), nil
}

// reader consumes wire primitives from data[pos:end].
// end shrinks while an object body is being read so that nothing inside an
// object can read past the object's declared length.
type reader struct {
	data []byte
	pos  int
	end  int
}

func newReader(data []byte) reader {
	return reader{data: data, end: len(data)}
}

func (r *reader) remaining() int { return r.end - r.pos }

func (r *reader) u32() (uint32, error) {
	if r.remaining() < 4 {
		return 0, newDataError(ErrCorruptData, r.pos, io.ErrUnexpectedEOF)
	}
	v := binary.LittleEndian.Uint32(r.data[r.pos:])
	r.pos += 4
	return v, nil
}

// next returns the following n bytes without copying them.
func (r *reader) next(n int) ([]byte, error) {
	if n < 0 || n > r.remaining() {
		return nil, newDataError(ErrCorruptData, r.pos, fmt.Errorf("need %d bytes, have %d", n, r.remaining()))
	}
	b := r.data[r.pos : r.pos+n : r.pos+n]
	r.pos += n
	return b, nil
}
