// Package fast implements a minimal byte buffer reader and writer for
// linear serialization. No bounds checks: reading past the end panics,
// which the serialization layer converts into a decoding error.
package fast

// Reader of a plain byte buffer.
type Reader struct {
	buf    []byte
	offset int
}

// Writer of a plain byte buffer.
type Writer struct {
	buf []byte
}

// NewReader wraps the byte slice with a reader.
func NewReader(bb []byte) *Reader {
	return &Reader{
		buf:    bb,
		offset: 0,
	}
}

// NewWriter wraps the byte slice with a writer that appends to it.
func NewWriter(bb []byte) *Writer {
	return &Writer{
		buf: bb,
	}
}

// WriteByte appends a byte.
func (b *Writer) WriteByte(v byte) {
	b.buf = append(b.buf, v)
}

// Write appends the bytes.
func (b *Writer) Write(v []byte) {
	b.buf = append(b.buf, v...)
}

// Read consumes the next n bytes. The returned slice shares memory with
// the underlying buffer.
func (b *Reader) Read(n int) []byte {
	res := b.buf[b.offset : b.offset+n]
	b.offset += n
	return res
}

// ReadByte consumes one byte.
func (b *Reader) ReadByte() byte {
	res := b.buf[b.offset]
	b.offset++
	return res
}

// Position returns the number of consumed bytes.
func (b *Reader) Position() int {
	return b.offset
}

// Bytes returns the underlying buffer.
func (b *Reader) Bytes() []byte {
	return b.buf
}

// Bytes returns the written content.
func (b *Writer) Bytes() []byte {
	return b.buf
}

// Empty returns true if the whole buffer was consumed.
func (b *Reader) Empty() bool {
	return len(b.buf) == b.offset
}
