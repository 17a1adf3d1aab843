// Package mt19937 implements the 32-bit Mersenne Twister used by the
// simulation engine, with its full internal state exposed for checkpointing.
//
// The generator keeps the classic layout: a state vector of N words, a read
// cursor into it and a count of words left before the next reload. Saving and
// restoring those fields reproduces the future output stream bit for bit.
package mt19937

import (
	"errors"
	"fmt"
)

const (
	// N is the length of the state vector in 32-bit words.
	N = 624
	// M is the twist offset.
	M = 397

	matrixA = 0x9908b0df
	upper   = 0x80000000
	lower   = 0x7fffffff
)

// ErrInvalidState is returned when a saved state is internally inconsistent.
var ErrInvalidState = errors.New("invalid mt19937 state")

// State is the complete persisted state of a generator.
type State struct {
	// Words is the state vector.
	Words [N]uint32
	// Cursor is the index of the next word to temper (pNext - state).
	Cursor uint32
	// Left is the number of words remaining before a reload.
	Left uint32
	// Seed is the seed the generator was created with.
	Seed uint32
}

// Validate checks the cursor/left relationship.
func (s *State) Validate() error {
	if s.Left > N {
		return fmt.Errorf("%w: left %d exceeds %d", ErrInvalidState, s.Left, N)
	}
	if s.Cursor != N-s.Left {
		return fmt.Errorf("%w: cursor %d does not match left %d", ErrInvalidState, s.Cursor, s.Left)
	}
	return nil
}

// Generator is a Mersenne Twister. It is not safe for concurrent use.
type Generator struct {
	state [N]uint32
	next  int
	left  int
	seed  uint32
}

// New creates a generator seeded with seed.
func New(seed uint32) *Generator {
	g := &Generator{}
	g.Seed(seed)
	return g
}

// Seed re-initializes the generator.
func (g *Generator) Seed(seed uint32) {
	g.seed = seed
	g.state[0] = seed
	for i := 1; i < N; i++ {
		prev := g.state[i-1]
		g.state[i] = 1812433253*(prev^(prev>>30)) + uint32(i)
	}
	g.reload()
}

func twist(m, s0, s1 uint32) uint32 {
	y := (s0 & upper) | (s1 & lower)
	return m ^ (y >> 1) ^ (-(s1 & 1) & matrixA)
}

func (g *Generator) reload() {
	p := &g.state
	i := 0
	for ; i < N-M; i++ {
		p[i] = twist(p[i+M], p[i], p[i+1])
	}
	for ; i < N-1; i++ {
		p[i] = twist(p[i+M-N], p[i], p[i+1])
	}
	p[N-1] = twist(p[M-1], p[N-1], p[0])

	g.left = N
	g.next = 0
}

// Uint32 returns the next tempered 32-bit value.
func (g *Generator) Uint32() uint32 {
	if g.left == 0 {
		g.reload()
	}
	g.left--

	s := g.state[g.next]
	g.next++
	s ^= s >> 11
	s ^= (s << 7) & 0x9d2c5680
	s ^= (s << 15) & 0xefc60000
	return s ^ (s >> 18)
}

// Float64 returns a value in [0, 1).
func (g *Generator) Float64() float64 {
	return float64(g.Uint32()) * (1.0 / 4294967296.0)
}

// Save captures the generator state.
func (g *Generator) Save() State {
	s := State{
		Words:  g.state,
		Cursor: uint32(g.next),
		Left:   uint32(g.left),
		Seed:   g.seed,
	}
	return s
}

// Restore replaces the generator state with s.
func (g *Generator) Restore(s State) error {
	if err := s.Validate(); err != nil {
		return err
	}
	g.state = s.Words
	g.left = int(s.Left)
	g.next = int(s.Cursor)
	g.seed = s.Seed
	return nil
}

// FromState creates a generator positioned at s.
func FromState(s State) (*Generator, error) {
	g := &Generator{}
	if err := g.Restore(s); err != nil {
		return nil, err
	}
	return g, nil
}
