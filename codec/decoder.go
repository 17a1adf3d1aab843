package codec

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Decoder reads fixed-width scalars from an in-memory checkpoint.
//
// All reads are bounds checked. A read past the end returns ErrShortBuffer
// wrapped with the offset where it happened.
type Decoder struct {
	data   []byte
	off    int
	order  binary.ByteOrder
	strict bool
}

// NewDecoder creates a Decoder over data. A nil order selects DefaultByteOrder.
func NewDecoder(data []byte, order binary.ByteOrder) *Decoder {
	if order == nil {
		order = DefaultByteOrder
	}
	return &Decoder{data: data, order: order}
}

// SetStrict makes Uint32 reject non-zero padding bytes.
func (d *Decoder) SetStrict(strict bool) { d.strict = strict }

// SetByteOrder switches the byte order for subsequent reads.
func (d *Decoder) SetByteOrder(order binary.ByteOrder) { d.order = order }

// ByteOrder returns the current byte order.
func (d *Decoder) ByteOrder() binary.ByteOrder { return d.order }

// Offset returns the current read position.
func (d *Decoder) Offset() int { return d.off }

// Remaining returns the number of unread bytes.
func (d *Decoder) Remaining() int { return len(d.data) - d.off }

func (d *Decoder) next(n int) ([]byte, error) {
	if d.Remaining() < n {
		return nil, fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrShortBuffer, n, d.off, d.Remaining())
	}
	b := d.data[d.off : d.off+n]
	d.off += n
	return b, nil
}

// Float64 reads an 8-byte float.
func (d *Decoder) Float64() (float64, error) {
	b, err := d.next(Float64Size)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(d.order.Uint64(b)), nil
}

// Uint32 reads an 8-byte padded uint32.
func (d *Decoder) Uint32() (uint32, error) {
	start := d.off
	b, err := d.next(Uint32Size)
	if err != nil {
		return 0, err
	}
	v := d.order.Uint64(b)
	if d.strict && v>>32 != 0 {
		return 0, fmt.Errorf("%w at offset %d", ErrNonZeroPadding, start)
	}
	return uint32(v), nil
}

// Int8 reads a single signed byte.
func (d *Decoder) Int8() (int8, error) {
	b, err := d.next(Int8Size)
	if err != nil {
		return 0, err
	}
	return int8(b[0]), nil
}

// Raw returns the next n bytes without copying.
func (d *Decoder) Raw(n int) ([]byte, error) {
	return d.next(n)
}

// Float64s reads n floats.
func (d *Decoder) Float64s(n int) ([]float64, error) {
	if err := d.Fits(n, Float64Size); err != nil {
		return nil, err
	}
	out := make([]float64, n)
	for i := range out {
		v, err := d.Float64()
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// Uint32s reads n padded uint32 values.
func (d *Decoder) Uint32s(n int) ([]uint32, error) {
	if err := d.Fits(n, Uint32Size); err != nil {
		return nil, err
	}
	out := make([]uint32, n)
	for i := range out {
		v, err := d.Uint32()
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// Fits reports whether count fields of width bytes remain. It guards
// allocations driven by untrusted count fields.
func (d *Decoder) Fits(count, width int) error {
	if count < 0 || (width > 0 && count > d.Remaining()/width) {
		return fmt.Errorf("%w: %d fields of %d bytes at offset %d, have %d", ErrShortBuffer, count, width, d.off, d.Remaining())
	}
	return nil
}
