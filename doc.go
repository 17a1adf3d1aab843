// Package mcckpt writes and restores binary checkpoints of multi-box Monte
// Carlo molecular simulations.
//
// A checkpoint is a complete, self-contained dump of everything needed to
// resume a run bit-for-bit: the step counter, box geometry, the Mersenne
// Twister state, atom coordinates, molecule lookup tables, adaptive move
// statistics and, for replica exchange runs, the auxiliary generator state.
//
// # Quick Start
//
//	cp, err := mcckpt.New(
//	    mcckpt.WithDirectory("./out"),
//	    mcckpt.WithFrequency(100000),
//	    mcckpt.WithLogger(mcckpt.NewTextLogger(slog.LevelInfo)),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	for step := uint64(0); step < steps; step++ {
//	    sim.Step()
//	    if cp.Due(step) {
//	        if _, err := cp.Write(ctx, sim.Snapshot(step)); err != nil {
//	            log.Fatal(err)
//	        }
//	    }
//	}
//
// Restoring:
//
//	snap, err := cp.Load(ctx)
//	rng, err := mt19937.FromState(snap.RNG)
//	start := snap.ResumeStep()
//
// # Destinations
//
// WithDirectory writes to a local directory through a temporary file that is
// fsynced and renamed into place. WithStore accepts any blobstore.BlobStore:
// blobstore.MemoryStore, blobstore/s3 (optionally with a DynamoDB commit
// table) and blobstore/minio.
//
// WithRetention(n) keeps the n newest checkpoints under step-stamped names
// and records the newest one through a blobstore.Committer.
//
// # File Format
//
// See package persistence. FormatLegacy is the unframed section sequence
// read by existing engines; FormatV1, the default, adds a magic/version
// header and a CRC32 trailer.
//
// # Errors
//
// Failures are returned as *Error with a Kind. WithFatal(true) restores the
// exit-on-failure policy: the error is reported on stderr and the process
// exits with status 1.
package mcckpt
