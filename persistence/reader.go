package persistence

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/hupe1980/mcckpt/codec"
	"github.com/hupe1980/mcckpt/internal/mmap"
	"github.com/hupe1980/mcckpt/model"
)

// DecodeOptions configures Decode.
type DecodeOptions struct {
	// Format forces the framing. FormatAuto detects a v1 header and falls
	// back to legacy.
	Format Format
	// ByteOrder is used for legacy files, which carry no byte order marker.
	// Nil selects codec.DefaultByteOrder.
	ByteOrder binary.ByteOrder
	// Strict rejects non-zero padding in uint32 fields.
	Strict bool
	// SkipChecksum disables trailer verification for v1 files.
	SkipChecksum bool
}

// Decode reconstructs a snapshot from a complete checkpoint image.
//
// The returned layout records the sections actually found. Decoded slices
// never alias data.
//
// Under FormatAuto a file that starts with the magic but fails to decode as
// v1 is retried as legacy: a legacy file whose stored step equals the magic
// is indistinguishable from a header by its first bytes.
func Decode(data []byte, opts DecodeOptions) (*model.Snapshot, *Layout, error) {
	headerOrder := detectHeader(data)
	if opts.Format != FormatAuto {
		return decode(data, opts, opts.Format, headerOrder)
	}
	if headerOrder == nil {
		return decode(data, opts, FormatLegacy, nil)
	}

	snap, layout, err := decode(data, opts, FormatV1, headerOrder)
	if err == nil {
		return snap, layout, nil
	}
	if snap, layout, legacyErr := decode(data, opts, FormatLegacy, nil); legacyErr == nil {
		return snap, layout, nil
	}
	return nil, nil, err
}

func decode(data []byte, opts DecodeOptions, format Format, headerOrder binary.ByteOrder) (*model.Snapshot, *Layout, error) {
	order := opts.ByteOrder
	if order == nil {
		order = codec.DefaultByteOrder
	}

	layout := &Layout{Format: format, Size: int64(len(data))}
	body := data
	base := 0
	trailerLen := 0

	if format == FormatV1 {
		if headerOrder == nil {
			if len(data) < HeaderSize {
				return nil, nil, fmt.Errorf("%w: file shorter than header", ErrInvalidMagic)
			}
			headerOrder = order
		}
		order = headerOrder
		header, err := parseHeader(data, order)
		if err != nil {
			return nil, nil, err
		}

		if header.Flags&FlagChecksum != 0 {
			trailerLen = TrailerSize
		}
		if len(data) < HeaderSize+trailerLen {
			return nil, nil, fmt.Errorf("%w: file shorter than header and trailer", codec.ErrShortBuffer)
		}
		layout.Sections = append(layout.Sections, Section{Name: SectionHeader, Offset: 0, Size: HeaderSize})

		if trailerLen > 0 {
			trailer := codec.NewDecoder(data[len(data)-TrailerSize:], order)
			stored, err := trailer.Uint32()
			if err != nil {
				return nil, nil, err
			}
			layout.Checksum = stored
			if !opts.SkipChecksum {
				if actual := CalculateChecksum(data[:len(data)-TrailerSize]); actual != stored {
					return nil, nil, &ChecksumMismatchError{Expected: stored, Actual: actual}
				}
			}
		}

		base = HeaderSize
		body = data[HeaderSize : len(data)-trailerLen]
	}
	layout.ByteOrder = order

	dec := codec.NewDecoder(body, order)
	dec.SetStrict(opts.Strict)
	r := &sectionReader{dec: dec, layout: layout, base: int64(base)}

	snap, err := r.read(format)
	if err != nil {
		return nil, nil, err
	}

	if trailerLen > 0 {
		layout.Sections = append(layout.Sections, Section{
			Name:   SectionTrailer,
			Offset: int64(len(data) - TrailerSize),
			Size:   TrailerSize,
		})
	}
	return snap, layout, nil
}

// ReadFrom reads a complete checkpoint from r and decodes it.
func ReadFrom(r io.Reader, opts DecodeOptions) (*model.Snapshot, *Layout, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, err
	}
	return Decode(data, opts)
}

// ReadFile maps the checkpoint at path read-only and decodes it.
func ReadFile(path string, opts DecodeOptions) (*model.Snapshot, *Layout, error) {
	m, err := mmap.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open checkpoint %s: %w", path, err)
	}
	defer func() { _ = m.Close() }()

	_ = m.Advise(mmap.AccessSequential)

	snap, layout, err := Decode(m.Bytes(), opts)
	if err != nil {
		return nil, nil, fmt.Errorf("decode checkpoint %s: %w", path, err)
	}
	return snap, layout, nil
}

type sectionReader struct {
	dec    *codec.Decoder
	layout *Layout
	base   int64
}

func (r *sectionReader) section(name string, fn func() error) error {
	start := r.dec.Offset()
	if err := fn(); err != nil {
		return fmt.Errorf("read %s section at offset %d: %w", name, r.base+int64(start), err)
	}
	r.layout.Sections = append(r.layout.Sections, Section{
		Name:   name,
		Offset: r.base + int64(start),
		Size:   int64(r.dec.Offset() - start),
	})
	return nil
}

func (r *sectionReader) read(format Format) (*model.Snapshot, error) {
	snap := &model.Snapshot{}
	dec := r.dec

	steps := []struct {
		name string
		fn   func() error
	}{
		{SectionStep, func() error {
			next, err := dec.Uint32()
			if err != nil {
				return err
			}
			if next == 0 {
				return fmt.Errorf("%w: stored step counter is zero", ErrInvalidEncoding)
			}
			snap.Step = uint64(next) - 1
			return nil
		}},
		{SectionBoxes, func() (err error) { snap.Boxes, err = readBoxes(dec); return err }},
		{SectionRNG, func() error { return readRNG(dec, &snap.RNG) }},
		{SectionCoordinates, func() (err error) { snap.Coordinates, err = readCoordinates(dec); return err }},
		{SectionLookup, func() error { return readLookup(dec, &snap.Lookup) }},
		{SectionMoves, func() error { return readMoves(dec, &snap.Moves) }},
	}
	for _, s := range steps {
		if err := r.section(s.name, s.fn); err != nil {
			return nil, err
		}
	}

	// Engines built without replica exchange support end the file here.
	if format == FormatLegacy && dec.Remaining() == 0 {
		return snap, nil
	}

	var enabled bool
	if err := r.section(SectionPTFlag, func() error {
		flag, err := dec.Int8()
		if err != nil {
			return err
		}
		switch flag {
		case 0:
		case 1:
			enabled = true
		default:
			return fmt.Errorf("%w: %d", ErrInvalidPTFlag, flag)
		}
		return nil
	}); err != nil {
		return nil, err
	}

	if enabled {
		snap.ParallelTempering = &model.RNGState{}
		if err := r.section(SectionPTRNG, func() error {
			return readRNG(dec, snap.ParallelTempering)
		}); err != nil {
			return nil, err
		}
	}

	if dec.Remaining() != 0 {
		return nil, fmt.Errorf("%w: %d bytes at offset %d", ErrTrailingData, dec.Remaining(), r.base+int64(dec.Offset()))
	}
	return snap, nil
}

func readCount(dec *codec.Decoder, width int) (int, error) {
	n, err := dec.Uint32()
	if err != nil {
		return 0, err
	}
	if err := dec.Fits(int(n), width); err != nil {
		return 0, err
	}
	return int(n), nil
}

func readBoxes(dec *codec.Decoder) ([]model.Box, error) {
	n, err := readCount(dec, boxSize)
	if err != nil {
		return nil, err
	}
	boxes := make([]model.Box, n)
	for i := range boxes {
		vs, err := dec.Float64s(6)
		if err != nil {
			return nil, err
		}
		boxes[i] = model.Box{
			Axis:     model.XYZ{X: vs[0], Y: vs[1], Z: vs[2]},
			CosAngle: [3]float64{vs[3], vs[4], vs[5]},
		}
	}
	return boxes, nil
}

func readRNG(dec *codec.Decoder, s *model.RNGState) error {
	words, err := dec.Uint32s(model.RNGStateWords)
	if err != nil {
		return err
	}
	copy(s.Words[:], words)
	tail, err := dec.Uint32s(3)
	if err != nil {
		return err
	}
	s.Cursor, s.Left, s.Seed = tail[0], tail[1], tail[2]
	return nil
}

func readCoordinates(dec *codec.Decoder) ([]model.XYZ, error) {
	n, err := readCount(dec, atomSize)
	if err != nil {
		return nil, err
	}
	coords := make([]model.XYZ, n)
	for i := range coords {
		vs, err := dec.Float64s(3)
		if err != nil {
			return nil, err
		}
		coords[i] = model.XYZ{X: vs[0], Y: vs[1], Z: vs[2]}
	}
	return coords, nil
}

func readUint32Array(dec *codec.Decoder) ([]uint32, error) {
	n, err := readCount(dec, u32)
	if err != nil {
		return nil, err
	}
	return dec.Uint32s(n)
}

func readLookup(dec *codec.Decoder, l *model.MoleculeLookup) error {
	var err error
	if l.Molecules, err = readUint32Array(dec); err != nil {
		return err
	}
	if l.BoxAndKindStart, err = readUint32Array(dec); err != nil {
		return err
	}
	if l.NumKinds, err = dec.Uint32(); err != nil {
		return err
	}
	l.Fixed, err = readUint32Array(dec)
	return err
}

func readMoves(dec *codec.Decoder, m *model.MoveSettings) error {
	var err error
	f3 := []*[][][]float64{&m.Scale, &m.AcceptPercent}
	for _, dst := range f3 {
		if *dst, err = read3D(dec, f64, dec.Float64); err != nil {
			return err
		}
	}
	u3 := []*[][][]uint32{&m.Accepted, &m.Tries, &m.TempAccepted, &m.TempTries}
	for _, dst := range u3 {
		if *dst, err = read3D(dec, u32, dec.Uint32); err != nil {
			return err
		}
	}
	for _, dst := range []*[][]uint32{&m.MPTries, &m.MPAccepted} {
		if *dst, err = read2D(dec, u32, dec.Uint32); err != nil {
			return err
		}
	}
	if m.MPTMax, err = read1D(dec, f64, dec.Float64); err != nil {
		return err
	}
	m.MPRMax, err = read1D(dec, f64, dec.Float64)
	return err
}

// readDims reads n dimensions and bounds the allocation they imply. The
// element count must fit the remaining input; the row headers of the outer
// dimensions are bounded by it too, since an empty innermost dimension
// backs them with no bytes at all.
func readDims(dec *codec.Decoder, n int, width int) ([]int, error) {
	raw, err := dec.Uint32s(n)
	if err != nil {
		return nil, err
	}
	dims := make([]int, n)
	total, rows := uint64(1), uint64(1)
	for i, d := range raw {
		dims[i] = int(d)
		total *= uint64(d)
		if i < n-1 {
			rows *= uint64(d)
		}
		if total > math.MaxInt32 || rows > uint64(dec.Remaining()) || dims[i] > dec.Remaining() {
			return nil, fmt.Errorf("%w: array dimensions %v too large", codec.ErrShortBuffer, raw)
		}
	}
	if err := dec.Fits(int(total), width); err != nil {
		return nil, err
	}
	return dims, nil
}

func read3D[T any](dec *codec.Decoder, width int, get func() (T, error)) ([][][]T, error) {
	dims, err := readDims(dec, 3, width)
	if err != nil {
		return nil, err
	}
	out := make([][][]T, dims[0])
	for i := range out {
		out[i] = make([][]T, dims[1])
		for j := range out[i] {
			out[i][j] = make([]T, dims[2])
			for k := range out[i][j] {
				if out[i][j][k], err = get(); err != nil {
					return nil, err
				}
			}
		}
	}
	return out, nil
}

func read2D[T any](dec *codec.Decoder, width int, get func() (T, error)) ([][]T, error) {
	dims, err := readDims(dec, 2, width)
	if err != nil {
		return nil, err
	}
	out := make([][]T, dims[0])
	for i := range out {
		out[i] = make([]T, dims[1])
		for j := range out[i] {
			if out[i][j], err = get(); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

func read1D[T any](dec *codec.Decoder, width int, get func() (T, error)) ([]T, error) {
	dims, err := readDims(dec, 1, width)
	if err != nil {
		return nil, err
	}
	out := make([]T, dims[0])
	for i := range out {
		if out[i], err = get(); err != nil {
			return nil, err
		}
	}
	return out, nil
}
