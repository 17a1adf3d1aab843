// Package persistence writes and reads simulation checkpoint files.
//
// A checkpoint is an ordered concatenation of sections with no tags. The
// reader must consume them in the order they were written:
//
//  1. step counter (completed step + 1)
//  2. box count, then per box three axis lengths and three angle cosines
//  3. primary generator: mt19937.N state words, cursor, left, seed
//  4. atom count, then x, y, z per atom
//  5. molecule lookup: molecules, box-and-kind starts, kind count, fixed flags
//  6. move statistics: each array preceded by its sizes, outermost first
//  7. parallel tempering flag (1 byte) and, when set, a second generator block
//
// # Formats
//
// FormatLegacy is exactly the sequence above and matches files produced by
// older engines on little-endian hosts. FormatV1 wraps the same sections in a
// 16-byte header (magic, version, flags) and an 8-byte CRC32 trailer so a
// reader can reject foreign or damaged files instead of misparsing them.
//
// # Writing
//
//	layout, err := persistence.WriteCheckpoint(w, snap, persistence.WriteOptions{})
//
// WriteCheckpoint validates the snapshot before the first byte is written.
// WriteFile writes to a temporary file and renames it into place.
//
// # Reading
//
//	snap, layout, err := persistence.ReadFile("checkpoint.dat", persistence.DecodeOptions{})
package persistence
