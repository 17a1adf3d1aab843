package testutil

import (
	"math/rand"
	"sync"

	"github.com/hupe1980/mcckpt/model"
	"github.com/hupe1980/mcckpt/mt19937"
)

// RNG wraps a seeded math/rand source. It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Uint32 returns a pseudo-random 32-bit value.
func (r *RNG) Uint32() uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Uint32()
}

// Float64 returns a pseudo-random number in [0,1).
func (r *RNG) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float64()
}

// SnapshotConfig sizes a random snapshot. Zero fields take the defaults noted.
type SnapshotConfig struct {
	Step      uint64
	Boxes     int // 0 means no boxes
	Atoms     int // 0 means no atoms
	Molecules int // default Atoms
	Kinds     int // default 1
	MoveKinds int // default 8
	SubMoves  int // default 2
	// ParallelTempering adds an auxiliary generator.
	ParallelTempering bool
	// Drawn advances the primary generator before its state is captured.
	Drawn int
}

// Snapshot builds a random, shape-consistent snapshot.
func (r *RNG) Snapshot(cfg SnapshotConfig) *model.Snapshot {
	if cfg.Molecules == 0 {
		cfg.Molecules = cfg.Atoms
	}
	if cfg.Kinds == 0 {
		cfg.Kinds = 1
	}
	if cfg.MoveKinds == 0 {
		cfg.MoveKinds = 8
	}
	if cfg.SubMoves == 0 {
		cfg.SubMoves = 2
	}

	snap := &model.Snapshot{Step: cfg.Step}

	for i := 0; i < cfg.Boxes; i++ {
		edge := 10 + 40*r.Float64()
		snap.Boxes = append(snap.Boxes, model.Box{
			Axis:     model.XYZ{X: edge, Y: edge * (0.9 + 0.2*r.Float64()), Z: edge},
			CosAngle: [3]float64{0, 0, 0.5 * r.Float64()},
		})
	}

	for i := 0; i < cfg.Atoms; i++ {
		snap.Coordinates = append(snap.Coordinates, model.XYZ{
			X: 10 * r.Float64(),
			Y: 10 * r.Float64(),
			Z: 10 * r.Float64(),
		})
	}

	gen := mt19937.New(r.Uint32())
	for i := 0; i < cfg.Drawn; i++ {
		gen.Uint32()
	}
	snap.RNG = gen.Save()

	if cfg.ParallelTempering {
		pt := mt19937.New(r.Uint32()).Save()
		snap.ParallelTempering = &pt
	}

	snap.Lookup = r.lookup(cfg.Molecules, cfg.Boxes, cfg.Kinds)
	if cfg.Boxes > 0 {
		snap.Moves = r.MoveSettings(cfg.Boxes, cfg.MoveKinds, cfg.Kinds, cfg.SubMoves)
	} else {
		snap.Moves = MoveSettings(1, cfg.MoveKinds, cfg.Kinds, cfg.SubMoves)
	}
	return snap
}

func (r *RNG) lookup(molecules, boxes, kinds int) model.MoleculeLookup {
	l := model.MoleculeLookup{NumKinds: uint32(kinds)}
	for i := 0; i < molecules; i++ {
		l.Molecules = append(l.Molecules, uint32(i))
		var fixed uint32
		if r.Intn(10) == 0 {
			fixed = 1
		}
		l.Fixed = append(l.Fixed, fixed)
	}

	// Molecules are spread evenly over the (box, kind) partitions.
	parts := boxes * kinds
	if parts == 0 {
		parts = 1
	}
	for p := 0; p <= parts; p++ {
		l.BoxAndKindStart = append(l.BoxAndKindStart, uint32(p*molecules/parts))
	}
	return l
}

// MoveSettings returns zeroed move statistics with every scale set to 1.
func MoveSettings(boxes, moveKinds, kinds, subMoves int) model.MoveSettings {
	return model.MoveSettings{
		Scale:         fill3(boxes, moveKinds, kinds, func() float64 { return 1 }),
		AcceptPercent: fill3(boxes, moveKinds, kinds, func() float64 { return 0 }),
		Accepted:      fill3(boxes, moveKinds, kinds, func() uint32 { return 0 }),
		Tries:         fill3(boxes, moveKinds, kinds, func() uint32 { return 0 }),
		TempAccepted:  fill3(boxes, moveKinds, kinds, func() uint32 { return 0 }),
		TempTries:     fill3(boxes, moveKinds, kinds, func() uint32 { return 0 }),
		MPTries:       fill2(boxes, subMoves, func() uint32 { return 0 }),
		MPAccepted:    fill2(boxes, subMoves, func() uint32 { return 0 }),
		MPTMax:        fill1(boxes, func() float64 { return 0.1 }),
		MPRMax:        fill1(boxes, func() float64 { return 0.05 }),
	}
}

// MoveSettings returns move statistics with plausible random counters.
func (r *RNG) MoveSettings(boxes, moveKinds, kinds, subMoves int) model.MoveSettings {
	tries := fill3(boxes, moveKinds, kinds, func() uint32 { return uint32(r.Intn(100000)) })
	accepted := make([][][]uint32, boxes)
	percent := make([][][]float64, boxes)
	for b := range tries {
		accepted[b] = make([][]uint32, moveKinds)
		percent[b] = make([][]float64, moveKinds)
		for m := range tries[b] {
			accepted[b][m] = make([]uint32, kinds)
			percent[b][m] = make([]float64, kinds)
			for k, n := range tries[b][m] {
				if n > 0 {
					accepted[b][m][k] = uint32(r.Intn(int(n)))
					percent[b][m][k] = float64(accepted[b][m][k]) / float64(n)
				}
			}
		}
	}

	return model.MoveSettings{
		Scale:         fill3(boxes, moveKinds, kinds, func() float64 { return 0.1 + r.Float64() }),
		AcceptPercent: percent,
		Accepted:      accepted,
		Tries:         tries,
		TempAccepted:  fill3(boxes, moveKinds, kinds, func() uint32 { return uint32(r.Intn(100)) }),
		TempTries:     fill3(boxes, moveKinds, kinds, func() uint32 { return uint32(100 + r.Intn(100)) }),
		MPTries:       fill2(boxes, subMoves, func() uint32 { return uint32(r.Intn(1000)) }),
		MPAccepted:    fill2(boxes, subMoves, func() uint32 { return uint32(r.Intn(1000)) }),
		MPTMax:        fill1(boxes, func() float64 { return r.Float64() }),
		MPRMax:        fill1(boxes, func() float64 { return r.Float64() }),
	}
}

// SmallSnapshotLegacySize is the encoded size of SmallSnapshot without framing.
//
//	step 8 + boxes 8+48 + rng 627*8 + atoms 8+2*24 + lookup 4*8+4*8
//	+ moves 6*(24+2*8) + 2*(16+2*8) + 2*(8+8) + pt flag 1
const SmallSnapshotLegacySize = 8 + 56 + 5016 + 56 + 64 + 336 + 1

// SmallSnapshot is one 10x10x10 orthogonal box holding a single molecule of
// two atoms at the origin and (1,1,1). The generator is seeded with 42 and
// parallel tempering is disabled.
func SmallSnapshot() *model.Snapshot {
	return &model.Snapshot{
		Step:  999,
		Boxes: []model.Box{model.OrthogonalBox(10, 10, 10)},
		RNG:   mt19937.New(42).Save(),
		Coordinates: []model.XYZ{
			{X: 0, Y: 0, Z: 0},
			{X: 1, Y: 1, Z: 1},
		},
		Lookup: model.MoleculeLookup{
			Molecules:       []uint32{0},
			BoxAndKindStart: []uint32{0, 1},
			NumKinds:        1,
			Fixed:           []uint32{0},
		},
		Moves: MoveSettings(1, 2, 1, 2),
	}
}

func fill3[T any](x, y, z int, next func() T) [][][]T {
	out := make([][][]T, x)
	for i := range out {
		out[i] = make([][]T, y)
		for j := range out[i] {
			out[i][j] = make([]T, z)
			for k := range out[i][j] {
				out[i][j][k] = next()
			}
		}
	}
	return out
}

func fill2[T any](x, y int, next func() T) [][]T {
	out := make([][]T, x)
	for i := range out {
		out[i] = make([]T, y)
		for j := range out[i] {
			out[i][j] = next()
		}
	}
	return out
}

func fill1[T any](n int, next func() T) []T {
	out := make([]T, n)
	for i := range out {
		out[i] = next()
	}
	return out
}
