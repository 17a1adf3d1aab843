// Package model defines the simulation state captured by a checkpoint.
//
// # State Types
//
//   - Snapshot: everything a checkpoint persists, read from live state
//   - Box: one periodic cell (axis lengths and angle cosines)
//   - XYZ: a Cartesian triple (axis lengths, atom positions)
//   - RNGState: full Mersenne Twister state (see package mt19937)
//   - MoleculeLookup: molecule to box/kind bookkeeping arrays
//   - MoveSettings: adaptive move-tuning statistics
//
// # Shape Rules
//
// Multi-dimensional move arrays are stored with their sizes taken from the
// first element at every level, so every row must have the same length.
// Snapshot.Validate reports violations as *ShapeError before any byte is
// written.
//
// # Building a Snapshot
//
//	snap := &model.Snapshot{
//	    Step:        999,
//	    Boxes:       []model.Box{model.OrthogonalBox(30, 30, 30)},
//	    RNG:         prng.Save(),
//	    Coordinates: coords,
//	    Lookup:      lookup,
//	    Moves:       moves,
//	}
package model
