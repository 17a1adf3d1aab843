// Package testutil builds simulation snapshots for tests and benchmarks.
//
// # Fixed Fixtures
//
//	snap := testutil.SmallSnapshot()
//
// SmallSnapshot is a single 10x10x10 box with two atoms and a generator
// seeded with 42. Its encoded size is SmallSnapshotLegacySize bytes.
//
// # Random Snapshots
//
//	rng := testutil.NewRNG(4711)
//	snap := rng.Snapshot(testutil.SnapshotConfig{Boxes: 2, Atoms: 300})
//
// Random snapshots are shape-consistent and reproducible for a given seed.
package testutil
