package model

import (
	"fmt"

	"github.com/hupe1980/mcckpt/mt19937"
)

// RNGStateWords is the length of a persisted generator state vector.
const RNGStateWords = mt19937.N

// RNGState is the persisted state of a pseudo-random generator.
type RNGState = mt19937.State

// XYZ is a Cartesian triple.
type XYZ struct {
	X, Y, Z float64
}

// String returns a compact representation of the triple.
func (v XYZ) String() string {
	return fmt.Sprintf("(%g, %g, %g)", v.X, v.Y, v.Z)
}

// Box is one periodic simulation cell.
type Box struct {
	// Axis holds the cell lengths along x, y and z.
	Axis XYZ
	// CosAngle holds the cosines of the cell angles (alpha, beta, gamma).
	// All zeros describes an orthogonal cell.
	CosAngle [3]float64
}

// OrthogonalBox returns a rectangular box with the given axis lengths.
func OrthogonalBox(x, y, z float64) Box {
	return Box{Axis: XYZ{X: x, Y: y, Z: z}}
}

// MoleculeLookup maps molecules to their box and kind.
type MoleculeLookup struct {
	// Molecules holds molecule indices ordered by box, then kind.
	Molecules []uint32
	// BoxAndKindStart holds partition boundaries into Molecules, one per
	// (box, kind) pair plus a terminating entry.
	BoxAndKindStart []uint32
	// NumKinds is the number of molecule kinds.
	NumKinds uint32
	// Fixed flags immobilized molecules (non-zero means fixed).
	Fixed []uint32
}

// MoveSettings holds the adaptive move-tuning statistics.
//
// The 3D arrays are indexed [box][move kind][molecule kind]; the 2D arrays
// [box][sub-move]; the 1D arrays [box].
type MoveSettings struct {
	Scale         [][][]float64
	AcceptPercent [][][]float64
	Accepted      [][][]uint32
	Tries         [][][]uint32
	TempAccepted  [][][]uint32
	TempTries     [][][]uint32
	MPTries       [][]uint32
	MPAccepted    [][]uint32
	MPTMax        []float64
	MPRMax        []float64
}

// Snapshot is the complete state written to a checkpoint.
type Snapshot struct {
	// Step is the last completed step. The checkpoint stores Step+1, the step
	// a resumed run starts at.
	Step uint64
	// Boxes holds the geometry of every box.
	Boxes []Box
	// RNG is the primary generator state.
	RNG RNGState
	// Coordinates holds every atom position in canonical atom order.
	Coordinates []XYZ
	// Lookup is the molecule lookup table.
	Lookup MoleculeLookup
	// Moves holds the move-tuning statistics.
	Moves MoveSettings
	// ParallelTempering is the auxiliary generator state. Nil when parallel
	// tempering is disabled.
	ParallelTempering *RNGState
}

// ResumeStep returns the step a resumed run starts at.
func (s *Snapshot) ResumeStep() uint64 {
	return s.Step + 1
}

// ParallelTemperingEnabled reports whether the auxiliary generator is present.
func (s *Snapshot) ParallelTemperingEnabled() bool {
	return s.ParallelTempering != nil
}
