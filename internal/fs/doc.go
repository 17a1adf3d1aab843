// Package fs abstracts the filesystem calls made when replacing a checkpoint
// file, so tests can inject I/O faults.
//
//   - [LocalFS] forwards to the os package.
//   - [FaultyFS] wraps another FileSystem and fails writes, syncs, closes,
//     opens or renames on request.
//
// Calls take no context.Context. Local filesystem syscalls cannot be
// interrupted; remote destinations go through the blobstore package instead.
package fs
