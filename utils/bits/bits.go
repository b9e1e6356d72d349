// Package bits implements a bitstream reader and writer over a byte slice,
// for fields narrower than a byte.
package bits

type (
	// Array is the underlying byte slice of a bitstream.
	Array struct {
		Bytes []byte
	}

	// Writer of a bitstream.
	Writer struct {
		*Array
		bitOffset int // next bit to write within the last byte
	}

	// Reader of a bitstream.
	Reader struct {
		*Array
		byteOffset int
		bitOffset  int
	}
)

// NewWriter wraps the array with a bitstream writer.
func NewWriter(arr *Array) *Writer {
	return &Writer{
		Array: arr,
	}
}

// NewReader wraps the array with a bitstream reader.
func NewReader(arr *Array) *Reader {
	return &Reader{
		Array: arr,
	}
}

func (a *Writer) byteBitsFree() int {
	return 8 - a.bitOffset
}

func (a *Writer) writeIntoLastByte(v uint) {
	a.Bytes[len(a.Bytes)-1] |= byte(v << a.bitOffset)
}

// zeroTopByteBits masks v to fit into the free space of the current byte.
func zeroTopByteBits(v uint, bits int) uint {
	mask := uint(0xff) >> bits
	return v & mask
}

// Write appends the lowest bits of v to the stream.
func (a *Writer) Write(bits int, v uint) {
	if a.bitOffset == 0 {
		a.Bytes = append(a.Bytes, byte(0))
	}

	free := a.byteBitsFree()

	if bits <= free {
		toWrite := bits
		a.writeIntoLastByte(v)
		if toWrite == free {
			a.bitOffset = 0
		} else {
			a.bitOffset += toWrite
		}
	} else {
		// spills over; fill this byte and recurse for the rest
		toWrite := free
		clear := a.bitOffset
		a.writeIntoLastByte(zeroTopByteBits(v, clear))
		a.bitOffset = 0
		a.Write(bits-toWrite, v>>toWrite)
	}
}

func (a *Reader) byteBitsFree() int {
	return 8 - a.bitOffset
}

// Read extracts the given number of bits from the stream.
func (a *Reader) Read(bits int) (v uint) {
	if bits == 0 {
		return 0
	}

	free := a.byteBitsFree()

	if bits <= free {
		toRead := bits
		clear := 8 - (a.bitOffset + toRead)
		v = zeroTopByteBits(uint(a.Bytes[a.byteOffset]), clear) >> a.bitOffset
		if toRead == free {
			a.bitOffset = 0
			a.byteOffset++
		} else {
			a.bitOffset += toRead
		}
	} else {
		// spans two bytes; read the tail of this byte and recurse
		toRead := free
		v = uint(a.Bytes[a.byteOffset]) >> a.bitOffset
		a.bitOffset = 0
		a.byteOffset++
		rest := a.Read(bits - toRead)
		v |= rest << toRead
	}
	return
}

// View reads the given number of bits without advancing the reader.
func (a *Reader) View(bits int) (v uint) {
	cp := *a
	cpp := &cp
	return cpp.Read(bits)
}

// NonReadBytes returns the number of unconsumed bytes.
func (a *Reader) NonReadBytes() int {
	return len(a.Bytes) - a.byteOffset
}

// NonReadBits returns the number of unconsumed bits.
func (a *Reader) NonReadBits() int {
	return a.NonReadBytes()*8 - a.bitOffset
}
