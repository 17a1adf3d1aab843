// Package blobstore is the destination abstraction for checkpoint files.
//
// A BlobStore holds named, whole-file blobs. Writers stream into a
// WritableBlob and the blob becomes visible under its name only when Close
// succeeds; Abort discards it. A reader therefore never observes a partially
// written checkpoint.
//
// # Built-in Implementations
//
//   - LocalStore: a directory on the local filesystem, atomic via rename
//   - MemoryStore: process memory, for tests
//   - s3.Store: Amazon S3 with multipart streaming uploads
//   - s3.DDBCommitStore: S3 plus a DynamoDB table recording the latest checkpoint
//   - minio.Store: MinIO and other S3-compatible services
//
// # Latest Pointer
//
// Stores that keep more than one checkpoint record the newest one through a
// Committer. PointerCommitter stores the pointer as a small blob; the
// DynamoDB store uses conditional writes so concurrent writers cannot move
// the pointer backwards.
package blobstore
