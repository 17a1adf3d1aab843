package codec

import (
	"encoding/binary"
	"io"
)

// Encoder appends fixed-width scalars to an output stream.
//
// Encoder itself does not buffer: every scalar is handed to the underlying
// writer before the call returns. Destinations may batch; fs.AtomicFile
// buffers and flushes, syncs and renames in Commit, so a checkpoint is
// durable only once the destination is committed.
//
// Errors are sticky. After the first failed write every later call returns
// the same error without touching the stream.
type Encoder struct {
	w       io.Writer
	order   binary.ByteOrder
	scratch [8]byte
	n       int64
	err     error
	closed  bool
}

// NewEncoder creates an Encoder writing to w in the given byte order.
// A nil order selects DefaultByteOrder.
func NewEncoder(w io.Writer, order binary.ByteOrder) *Encoder {
	if order == nil {
		order = DefaultByteOrder
	}
	return &Encoder{w: w, order: order}
}

// ByteOrder returns the configured byte order.
func (e *Encoder) ByteOrder() binary.ByteOrder { return e.order }

// Written returns the number of bytes successfully written.
func (e *Encoder) Written() int64 { return e.n }

// Err returns the first error encountered, if any.
func (e *Encoder) Err() error { return e.err }

// Close detaches the encoder from its stream. It does not close the
// underlying writer. Later writes fail with ErrClosedStream.
func (e *Encoder) Close() error {
	e.closed = true
	return e.err
}

func (e *Encoder) live() bool {
	if e.err != nil {
		return false
	}
	if e.closed || e.w == nil {
		e.err = ErrClosedStream
		return false
	}
	return true
}

func (e *Encoder) write(p []byte) error {
	if !e.live() {
		return e.err
	}
	n, err := e.w.Write(p)
	e.n += int64(n)
	if err == nil && n < len(p) {
		err = io.ErrShortWrite
	}
	if err != nil {
		e.err = err
	}
	return e.err
}

// Float64 writes v as 8 raw bytes.
func (e *Encoder) Float64(v float64) error {
	PutFloat64(e.order, e.scratch[:], v)
	return e.write(e.scratch[:Float64Size])
}

// Uint32 writes v padded to 8 bytes.
func (e *Encoder) Uint32(v uint32) error {
	PutUint32(e.order, e.scratch[:], v)
	return e.write(e.scratch[:Uint32Size])
}

// Int8 writes v as a single byte.
func (e *Encoder) Int8(v int8) error {
	e.scratch[0] = byte(v)
	return e.write(e.scratch[:Int8Size])
}

// Raw writes p unchanged. It is used for fixed headers.
func (e *Encoder) Raw(p []byte) error {
	return e.write(p)
}

// Float64s writes every element of vs.
func (e *Encoder) Float64s(vs []float64) error {
	for _, v := range vs {
		if err := e.Float64(v); err != nil {
			return err
		}
	}
	return e.err
}

// Uint32s writes every element of vs.
func (e *Encoder) Uint32s(vs []uint32) error {
	for _, v := range vs {
		if err := e.Uint32(v); err != nil {
			return err
		}
	}
	return e.err
}
