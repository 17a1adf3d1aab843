package persistence

import (
	"encoding/binary"

	"github.com/hupe1980/mcckpt/codec"
	"github.com/hupe1980/mcckpt/model"
)

// Section is a contiguous byte range of a checkpoint.
type Section struct {
	Name   string
	Offset int64
	Size   int64
}

// End returns the offset just past the section.
func (s Section) End() int64 { return s.Offset + s.Size }

// Layout describes where every section of a checkpoint lives.
type Layout struct {
	Format    Format
	ByteOrder binary.ByteOrder
	Sections  []Section
	// Size is the total file size in bytes.
	Size int64
	// Checksum is the CRC32 stored in the trailer (v1 only).
	Checksum uint32
}

// Section returns the named section.
func (l *Layout) Section(name string) (Section, bool) {
	for _, s := range l.Sections {
		if s.Name == name {
			return s, true
		}
	}
	return Section{}, false
}

const (
	u32 = codec.Uint32Size
	f64 = codec.Float64Size

	rngBlockSize = (model.RNGStateWords + 3) * u32
	boxSize      = 6 * f64
	atomSize     = 3 * f64
)

// ComputeLayout returns the layout WriteCheckpoint produces for snap, derived
// purely from the declared sizes. The checksum is not computed.
func ComputeLayout(snap *model.Snapshot, opts WriteOptions) (*Layout, error) {
	opts, err := opts.normalize()
	if err != nil {
		return nil, err
	}

	l := &Layout{Format: opts.Format, ByteOrder: opts.ByteOrder}
	add := func(name string, size int64) {
		l.Sections = append(l.Sections, Section{Name: name, Offset: l.Size, Size: size})
		l.Size += size
	}

	if opts.Format.framed() {
		add(SectionHeader, HeaderSize)
	}
	add(SectionStep, u32)
	add(SectionBoxes, u32+int64(len(snap.Boxes))*boxSize)
	add(SectionRNG, rngBlockSize)
	add(SectionCoordinates, u32+int64(len(snap.Coordinates))*atomSize)
	add(SectionLookup, lookupSize(&snap.Lookup))
	add(SectionMoves, movesSize(&snap.Moves))
	if !opts.OmitParallelTemperingFlag {
		add(SectionPTFlag, codec.Int8Size)
	}
	if snap.ParallelTempering != nil {
		add(SectionPTRNG, rngBlockSize)
	}
	if opts.Format.framed() {
		add(SectionTrailer, TrailerSize)
	}
	return l, nil
}

func lookupSize(l *model.MoleculeLookup) int64 {
	n := len(l.Molecules) + len(l.BoxAndKindStart) + len(l.Fixed)
	// Three length fields, the kind count and the entries.
	return 4*u32 + int64(n)*u32
}

func movesSize(m *model.MoveSettings) int64 {
	var size int64
	size3 := func(x, y, z int, width int64) {
		size += 3*u32 + int64(x*y*z)*width
	}
	size2 := func(x, y int) {
		size += 2*u32 + int64(x*y)*u32
	}

	for _, a := range [][][][]float64{m.Scale, m.AcceptPercent} {
		x, y, z := model.Dims3(a)
		size3(x, y, z, f64)
	}
	for _, a := range [][][][]uint32{m.Accepted, m.Tries, m.TempAccepted, m.TempTries} {
		x, y, z := model.Dims3(a)
		size3(x, y, z, u32)
	}
	for _, a := range [][][]uint32{m.MPTries, m.MPAccepted} {
		size2(model.Dims2(a))
	}
	size += 2*u32 + int64(len(m.MPTMax)+len(m.MPRMax))*f64
	return size
}
