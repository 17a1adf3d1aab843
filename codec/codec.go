// Package codec converts fixed-width scalars to and from raw bytes.
//
// Checkpoint files carry no type tags: every field is one of three scalar
// kinds and the reader must know the schema out of band.
//
//   - float64: 8 bytes, IEEE-754 bit pattern.
//   - uint32: 8 bytes, the value in the low four bytes (per byte order) and
//     four zero padding bytes, so every numeric field is 8 bytes wide.
//   - int8: 1 byte, used for the parallel tempering flag.
//
// The byte order is explicit. Older checkpoints were written in host order
// on little-endian machines, which is why LittleEndian is the default.
package codec

import (
	"encoding/binary"
	"errors"
	"math"
)

// Field widths in bytes.
const (
	Float64Size = 8
	Uint32Size  = 8
	Int8Size    = 1
)

var (
	// ErrClosedStream is returned when a scalar is written to a stream that
	// was never opened or has already been closed.
	ErrClosedStream = errors.New("write on closed checkpoint stream")

	// ErrShortBuffer is returned by the Decoder when the input ends inside a field.
	ErrShortBuffer = errors.New("checkpoint data truncated")

	// ErrNonZeroPadding is returned by the Decoder in strict mode when the
	// upper four bytes of a padded uint32 are not zero.
	ErrNonZeroPadding = errors.New("non-zero padding in uint32 field")
)

// DefaultByteOrder is the byte order used when none is configured.
var DefaultByteOrder binary.ByteOrder = binary.LittleEndian

// ByteOrderByName returns a byte order by its stable name.
func ByteOrderByName(name string) (binary.ByteOrder, bool) {
	switch name {
	case "", "little", "le", "little-endian":
		return binary.LittleEndian, true
	case "big", "be", "big-endian":
		return binary.BigEndian, true
	default:
		return nil, false
	}
}

// ByteOrderName returns the stable name of a byte order.
func ByteOrderName(order binary.ByteOrder) string {
	if order == binary.BigEndian {
		return "big"
	}
	return "little"
}

// PutFloat64 encodes v into b[:8].
func PutFloat64(order binary.ByteOrder, b []byte, v float64) {
	order.PutUint64(b, math.Float64bits(v))
}

// PutUint32 encodes v into b[:8] with zero padding.
func PutUint32(order binary.ByteOrder, b []byte, v uint32) {
	// A padded uint32 is exactly a uint64 whose upper half is zero, in
	// either byte order.
	order.PutUint64(b, uint64(v))
}
