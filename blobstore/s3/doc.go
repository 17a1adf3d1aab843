// Package s3 stores checkpoints in Amazon S3.
//
// # Usage
//
//	store, err := s3.New(ctx, "sim-checkpoints",
//	    s3.WithPrefix("runs/water-npt/"),
//	    s3.WithRegion("us-east-1"),
//	)
//
//	cp, err := mcckpt.New(mcckpt.WithStore(store), mcckpt.WithFrequency(100000))
//
// Checkpoints stream to S3 through the multipart upload manager and become
// visible only when the upload completes. DDBCommitStore adds a DynamoDB
// table that records the latest checkpoint with conditional writes.
package s3
