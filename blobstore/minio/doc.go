// Package minio provides a BlobStore backed by the MinIO client.
//
// It works against MinIO itself and other S3-compatible servers such as Ceph
// or Garage without pulling in the AWS SDK.
//
// # Basic Usage
//
//	store, err := minioblob.New(minioblob.Config{
//	    Endpoint:  "localhost:9000",
//	    AccessKey: "minioadmin",
//	    SecretKey: "minioadmin",
//	}, "checkpoints", "runs/water/")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	cp, err := mcckpt.New(mcckpt.WithStore(store), mcckpt.WithFrequency(1000))
//
// Checkpoints are streamed with a single PutObject per file, so an
// interrupted upload never replaces the previous object. The commit pointer
// is kept with blobstore.PointerCommitter; S3-compatible servers offer no
// conditional write to order concurrent writers.
package minio
