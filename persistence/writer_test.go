package persistence

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/mcckpt/model"
	"github.com/hupe1980/mcckpt/mt19937"
	"github.com/hupe1980/mcckpt/testutil"
)

func encode(t *testing.T, snap *model.Snapshot, opts WriteOptions) ([]byte, *Layout) {
	t.Helper()
	var buf bytes.Buffer
	layout, err := WriteCheckpoint(&buf, snap, opts)
	require.NoError(t, err)
	return buf.Bytes(), layout
}

func TestWriteCheckpoint_SmallSnapshotLegacyOffsets(t *testing.T) {
	data, layout := encode(t, testutil.SmallSnapshot(), WriteOptions{Format: FormatLegacy})

	require.Len(t, data, testutil.SmallSnapshotLegacySize)
	assert.Equal(t, int64(len(data)), layout.Size)

	le := binary.LittleEndian
	u32 := func(off int) uint64 { return le.Uint64(data[off:]) }
	f64 := func(off int) float64 { return math.Float64frombits(le.Uint64(data[off:])) }

	assert.Equal(t, uint64(1000), u32(0), "step+1")
	assert.Equal(t, uint64(1), u32(8), "box count")
	assert.Equal(t, []float64{10, 10, 10, 0, 0, 0}, []float64{f64(16), f64(24), f64(32), f64(40), f64(48), f64(56)})

	rng := mt19937.New(42).Save()
	assert.Equal(t, uint64(rng.Words[0]), u32(64))
	assert.Equal(t, uint64(0), u32(64+624*8), "cursor")
	assert.Equal(t, uint64(mt19937.N), u32(64+625*8), "left")
	assert.Equal(t, uint64(42), u32(64+626*8), "seed")

	atoms := 64 + 627*8
	assert.Equal(t, uint64(2), u32(atoms))
	assert.Equal(t, []float64{0, 0, 0, 1, 1, 1}, []float64{
		f64(atoms + 8), f64(atoms + 16), f64(atoms + 24),
		f64(atoms + 32), f64(atoms + 40), f64(atoms + 48),
	})

	lookup, ok := layout.Section(SectionLookup)
	require.True(t, ok)
	assert.Equal(t, int64(atoms+56), lookup.Offset)
	assert.Equal(t, uint64(1), u32(int(lookup.Offset)), "molecule count")

	flag, ok := layout.Section(SectionPTFlag)
	require.True(t, ok)
	assert.Equal(t, int64(len(data)-1), flag.Offset)
	assert.Equal(t, byte(0), data[len(data)-1])

	_, ok = layout.Section(SectionPTRNG)
	assert.False(t, ok)
}

func TestWriteCheckpoint_V1Framing(t *testing.T) {
	data, layout := encode(t, testutil.SmallSnapshot(), WriteOptions{})

	require.Len(t, data, testutil.SmallSnapshotLegacySize+HeaderSize+TrailerSize)
	assert.Equal(t, FormatV1, layout.Format)
	assert.Equal(t, []byte("KCCM"), data[:4])
	assert.Equal(t, uint32(Version), binary.LittleEndian.Uint32(data[4:]))
	assert.Equal(t, FlagChecksum, binary.LittleEndian.Uint32(data[8:]))

	sum := CalculateChecksum(data[:len(data)-TrailerSize])
	assert.Equal(t, uint64(sum), binary.LittleEndian.Uint64(data[len(data)-TrailerSize:]))
	assert.Equal(t, sum, layout.Checksum)

	legacy, _ := encode(t, testutil.SmallSnapshot(), WriteOptions{Format: FormatLegacy})
	assert.Equal(t, legacy, data[HeaderSize:len(data)-TrailerSize])
}

func TestWriteCheckpoint_BigEndian(t *testing.T) {
	data, _ := encode(t, testutil.SmallSnapshot(), WriteOptions{Format: FormatLegacy, ByteOrder: binary.BigEndian})

	assert.Equal(t, []byte{0, 0, 0, 0, 0, 0, 0x03, 0xe8}, data[:8])
	assert.Equal(t, 10.0, math.Float64frombits(binary.BigEndian.Uint64(data[16:])))
}

func TestWriteCheckpoint_Deterministic(t *testing.T) {
	snap := testutil.NewRNG(3).Snapshot(testutil.SnapshotConfig{Boxes: 2, Atoms: 50, ParallelTempering: true})

	a, _ := encode(t, snap, WriteOptions{})
	b, _ := encode(t, snap, WriteOptions{})
	assert.Equal(t, a, b)
}

func TestWriteCheckpoint_ZeroBoxesAndAtoms(t *testing.T) {
	snap := testutil.NewRNG(9).Snapshot(testutil.SnapshotConfig{})
	data, layout := encode(t, snap, WriteOptions{Format: FormatLegacy})

	boxes, _ := layout.Section(SectionBoxes)
	assert.Equal(t, int64(8), boxes.Size)
	assert.Equal(t, uint64(0), binary.LittleEndian.Uint64(data[boxes.Offset:]))

	coords, _ := layout.Section(SectionCoordinates)
	assert.Equal(t, int64(8), coords.Size)
	assert.Equal(t, uint64(0), binary.LittleEndian.Uint64(data[coords.Offset:]))
}

func TestWriteCheckpoint_ParallelTempering(t *testing.T) {
	snap := testutil.SmallSnapshot()
	pt := mt19937.New(7).Save()
	snap.ParallelTempering = &pt

	data, layout := encode(t, snap, WriteOptions{Format: FormatLegacy})
	require.Len(t, data, testutil.SmallSnapshotLegacySize+rngBlockSize)

	flag, _ := layout.Section(SectionPTFlag)
	assert.Equal(t, byte(1), data[flag.Offset])

	block, ok := layout.Section(SectionPTRNG)
	require.True(t, ok)
	assert.Equal(t, flag.End(), block.Offset)
	assert.Equal(t, int64(rngBlockSize), block.Size)
	assert.Equal(t, uint64(7), binary.LittleEndian.Uint64(data[block.End()-8:]))
}

func TestWriteCheckpoint_OmitParallelTemperingFlag(t *testing.T) {
	data, layout := encode(t, testutil.SmallSnapshot(), WriteOptions{Format: FormatLegacy, OmitParallelTemperingFlag: true})
	assert.Len(t, data, testutil.SmallSnapshotLegacySize-1)
	_, ok := layout.Section(SectionPTFlag)
	assert.False(t, ok)

	var buf bytes.Buffer
	_, err := WriteCheckpoint(&buf, testutil.SmallSnapshot(), WriteOptions{OmitParallelTemperingFlag: true})
	assert.ErrorIs(t, err, ErrPTFlagRequired)

	snap := testutil.SmallSnapshot()
	pt := mt19937.New(1).Save()
	snap.ParallelTempering = &pt
	_, err = WriteCheckpoint(&buf, snap, WriteOptions{Format: FormatLegacy, OmitParallelTemperingFlag: true})
	assert.ErrorIs(t, err, ErrPTFlagRequired)
	assert.Zero(t, buf.Len())
}

func TestWriteCheckpoint_ShapeErrorWritesNothing(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*model.Snapshot)
	}{
		{"empty 3D outer", func(s *model.Snapshot) { s.Moves.Tries = nil }},
		{"empty 2D outer", func(s *model.Snapshot) { s.Moves.MPAccepted = [][]uint32{} }},
		{"ragged 3D", func(s *model.Snapshot) { s.Moves.Scale[0] = append(s.Moves.Scale[0], []float64{1, 2, 3}) }},
		{"ragged 2D", func(s *model.Snapshot) { s.Moves.MPTries = append(s.Moves.MPTries, []uint32{1}) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := testutil.SmallSnapshot()
			tt.mutate(snap)

			var buf bytes.Buffer
			_, err := WriteCheckpoint(&buf, snap, WriteOptions{})

			var shapeErr *model.ShapeError
			assert.ErrorAs(t, err, &shapeErr)
			assert.Zero(t, buf.Len())
		})
	}
}

func TestWriteCheckpoint_StepOverflow(t *testing.T) {
	snap := testutil.SmallSnapshot()
	snap.Step = math.MaxUint32

	var buf bytes.Buffer
	_, err := WriteCheckpoint(&buf, snap, WriteOptions{})
	assert.ErrorIs(t, err, model.ErrStepOverflow)
	assert.Zero(t, buf.Len())
}

type limitWriter struct {
	buf   bytes.Buffer
	limit int
}

var errDiskFull = errors.New("disk full")

func (w *limitWriter) Write(p []byte) (int, error) {
	if w.buf.Len()+len(p) > w.limit {
		n := w.limit - w.buf.Len()
		w.buf.Write(p[:n])
		return n, errDiskFull
	}
	return w.buf.Write(p)
}

func TestWriteCheckpoint_IOErrorNamesSection(t *testing.T) {
	w := &limitWriter{limit: 200}
	_, err := WriteCheckpoint(w, testutil.SmallSnapshot(), WriteOptions{Format: FormatLegacy})

	require.ErrorIs(t, err, errDiskFull)
	assert.Contains(t, err.Error(), "rng section")
	assert.Equal(t, 200, w.buf.Len())
}

func TestComputeLayout_MatchesWriter(t *testing.T) {
	rng := testutil.NewRNG(11)
	snaps := []*model.Snapshot{
		testutil.SmallSnapshot(),
		rng.Snapshot(testutil.SnapshotConfig{}),
		rng.Snapshot(testutil.SnapshotConfig{Boxes: 3, Atoms: 17, Kinds: 4, ParallelTempering: true}),
	}
	optsList := []WriteOptions{
		{},
		{Format: FormatLegacy},
		{Format: FormatLegacy, OmitParallelTemperingFlag: true},
		{ByteOrder: binary.BigEndian},
	}

	for _, snap := range snaps {
		for _, opts := range optsList {
			if opts.OmitParallelTemperingFlag && snap.ParallelTempering != nil {
				continue
			}
			_, written := encode(t, snap, opts)
			computed, err := ComputeLayout(snap, opts)
			require.NoError(t, err)

			computed.Checksum = written.Checksum
			assert.Equal(t, written, computed)
		}
	}
}
