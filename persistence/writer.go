package persistence

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/hupe1980/mcckpt/codec"
	"github.com/hupe1980/mcckpt/model"
)

// Section names, in file order.
const (
	SectionHeader      = "header"
	SectionStep        = "step"
	SectionBoxes       = "boxes"
	SectionRNG         = "rng"
	SectionCoordinates = "coordinates"
	SectionLookup      = "lookup"
	SectionMoves       = "moves"
	SectionPTFlag      = "pt_flag"
	SectionPTRNG       = "pt_rng"
	SectionTrailer     = "trailer"
)

// ErrPTFlagRequired is returned when the parallel tempering flag is omitted
// from a checkpoint that needs it.
var ErrPTFlagRequired = errors.New("parallel tempering flag can only be omitted from legacy checkpoints without parallel tempering")

// WriteOptions configures WriteCheckpoint.
type WriteOptions struct {
	// Format selects the framing. FormatAuto writes FormatV1.
	Format Format
	// ByteOrder selects the byte order. Nil selects codec.DefaultByteOrder.
	ByteOrder binary.ByteOrder
	// OmitParallelTemperingFlag drops the trailing flag byte, matching
	// engines built without replica exchange support. Legacy format only.
	OmitParallelTemperingFlag bool
}

func (o WriteOptions) normalize() (WriteOptions, error) {
	if o.Format == FormatAuto {
		o.Format = FormatV1
	}
	if o.ByteOrder == nil {
		o.ByteOrder = codec.DefaultByteOrder
	}
	if o.OmitParallelTemperingFlag && o.Format != FormatLegacy {
		return o, ErrPTFlagRequired
	}
	return o, nil
}

// WriteCheckpoint validates snap and writes it to w.
//
// No byte is written when validation fails. On an I/O error the returned
// error wraps the cause and names the section being written; w may hold a
// partial checkpoint.
func WriteCheckpoint(w io.Writer, snap *model.Snapshot, opts WriteOptions) (*Layout, error) {
	opts, err := opts.normalize()
	if err != nil {
		return nil, err
	}
	if opts.OmitParallelTemperingFlag && snap.ParallelTempering != nil {
		return nil, ErrPTFlagRequired
	}
	if err := snap.Validate(); err != nil {
		return nil, err
	}

	cw := NewChecksumWriter(w)
	sw := &sectionWriter{
		enc:    codec.NewEncoder(cw, opts.ByteOrder),
		layout: &Layout{Format: opts.Format, ByteOrder: opts.ByteOrder},
	}

	if opts.Format.framed() {
		header := FileHeader{Magic: MagicNumber, Version: Version, Flags: FlagChecksum}
		if err := sw.section(SectionHeader, func(enc *codec.Encoder) error {
			return enc.Raw(header.marshal(opts.ByteOrder))
		}); err != nil {
			return nil, err
		}
	}

	steps := []struct {
		name string
		fn   func(*codec.Encoder) error
	}{
		{SectionStep, func(enc *codec.Encoder) error { return enc.Uint32(uint32(snap.Step + 1)) }},
		{SectionBoxes, func(enc *codec.Encoder) error { return writeBoxes(enc, snap.Boxes) }},
		{SectionRNG, func(enc *codec.Encoder) error { return writeRNG(enc, &snap.RNG) }},
		{SectionCoordinates, func(enc *codec.Encoder) error { return writeCoordinates(enc, snap.Coordinates) }},
		{SectionLookup, func(enc *codec.Encoder) error { return writeLookup(enc, &snap.Lookup) }},
		{SectionMoves, func(enc *codec.Encoder) error { return writeMoves(enc, &snap.Moves) }},
	}
	for _, s := range steps {
		if err := sw.section(s.name, s.fn); err != nil {
			return nil, err
		}
	}

	if !opts.OmitParallelTemperingFlag {
		if err := sw.section(SectionPTFlag, func(enc *codec.Encoder) error {
			var flag int8
			if snap.ParallelTempering != nil {
				flag = 1
			}
			return enc.Int8(flag)
		}); err != nil {
			return nil, err
		}
	}
	if snap.ParallelTempering != nil {
		if err := sw.section(SectionPTRNG, func(enc *codec.Encoder) error {
			return writeRNG(enc, snap.ParallelTempering)
		}); err != nil {
			return nil, err
		}
	}

	if opts.Format.framed() {
		sum := cw.Sum()
		sw.layout.Checksum = sum
		if err := sw.section(SectionTrailer, func(enc *codec.Encoder) error {
			return enc.Uint32(sum)
		}); err != nil {
			return nil, err
		}
	}

	sw.layout.Size = sw.enc.Written()
	return sw.layout, sw.enc.Close()
}

type sectionWriter struct {
	enc    *codec.Encoder
	layout *Layout
}

func (sw *sectionWriter) section(name string, fn func(*codec.Encoder) error) error {
	start := sw.enc.Written()
	if err := fn(sw.enc); err != nil {
		return fmt.Errorf("write %s section at offset %d: %w", name, sw.enc.Written(), err)
	}
	sw.layout.Sections = append(sw.layout.Sections, Section{
		Name:   name,
		Offset: start,
		Size:   sw.enc.Written() - start,
	})
	return nil
}

func writeBoxes(enc *codec.Encoder, boxes []model.Box) error {
	if err := enc.Uint32(uint32(len(boxes))); err != nil {
		return err
	}
	for i := range boxes {
		b := &boxes[i]
		enc.Float64(b.Axis.X)
		enc.Float64(b.Axis.Y)
		enc.Float64(b.Axis.Z)
		enc.Float64(b.CosAngle[0])
		enc.Float64(b.CosAngle[1])
		if err := enc.Float64(b.CosAngle[2]); err != nil {
			return err
		}
	}
	return nil
}

func writeRNG(enc *codec.Encoder, s *model.RNGState) error {
	enc.Uint32s(s.Words[:])
	enc.Uint32(s.Cursor)
	enc.Uint32(s.Left)
	return enc.Uint32(s.Seed)
}

func writeCoordinates(enc *codec.Encoder, coords []model.XYZ) error {
	if err := enc.Uint32(uint32(len(coords))); err != nil {
		return err
	}
	for _, c := range coords {
		enc.Float64(c.X)
		enc.Float64(c.Y)
		if err := enc.Float64(c.Z); err != nil {
			return err
		}
	}
	return nil
}

func writeLookup(enc *codec.Encoder, l *model.MoleculeLookup) error {
	writeUint32Array(enc, l.Molecules)
	writeUint32Array(enc, l.BoxAndKindStart)
	enc.Uint32(l.NumKinds)
	return writeUint32Array(enc, l.Fixed)
}

func writeUint32Array(enc *codec.Encoder, vs []uint32) error {
	enc.Uint32(uint32(len(vs)))
	return enc.Uint32s(vs)
}

func writeMoves(enc *codec.Encoder, m *model.MoveSettings) error {
	write3D(enc, m.Scale, enc.Float64)
	write3D(enc, m.AcceptPercent, enc.Float64)
	write3D(enc, m.Accepted, enc.Uint32)
	write3D(enc, m.Tries, enc.Uint32)
	write3D(enc, m.TempAccepted, enc.Uint32)
	write3D(enc, m.TempTries, enc.Uint32)
	write2D(enc, m.MPTries, enc.Uint32)
	write2D(enc, m.MPAccepted, enc.Uint32)
	write1D(enc, m.MPTMax, enc.Float64)
	return write1D(enc, m.MPRMax, enc.Float64)
}

// write3D writes the three sizes taken from the first element at every level,
// then the values in row-major order. Callers validate uniformity first.
func write3D[T any](enc *codec.Encoder, data [][][]T, put func(T) error) error {
	x, y, z := model.Dims3(data)
	enc.Uint32(uint32(x))
	enc.Uint32(uint32(y))
	enc.Uint32(uint32(z))
	for i := 0; i < x; i++ {
		for j := 0; j < y; j++ {
			for k := 0; k < z; k++ {
				put(data[i][j][k])
			}
		}
	}
	return enc.Err()
}

func write2D[T any](enc *codec.Encoder, data [][]T, put func(T) error) error {
	x, y := model.Dims2(data)
	enc.Uint32(uint32(x))
	enc.Uint32(uint32(y))
	for i := 0; i < x; i++ {
		for j := 0; j < y; j++ {
			put(data[i][j])
		}
	}
	return enc.Err()
}

func write1D[T any](enc *codec.Encoder, data []T, put func(T) error) error {
	enc.Uint32(uint32(len(data)))
	for _, v := range data {
		put(v)
	}
	return enc.Err()
}
