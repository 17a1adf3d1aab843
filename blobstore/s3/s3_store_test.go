package s3

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/mcckpt/blobstore"
	"github.com/hupe1980/mcckpt/persistence"
	"github.com/hupe1980/mcckpt/testutil"
)

func TestIntegration_S3Store(t *testing.T) {
	bucket := os.Getenv("S3_BUCKET")
	if bucket == "" {
		t.Skip("Skipping S3 integration test: S3_BUCKET not set")
	}

	ctx := context.Background()
	prefix := fmt.Sprintf("test-mcckpt-%d/", time.Now().UnixNano())

	var optFns []Option
	if endpoint := os.Getenv("S3_ENDPOINT"); endpoint != "" {
		optFns = append(optFns, WithEndpoint(endpoint))
	}
	store, err := New(ctx, bucket, append(optFns, WithPrefix(prefix))...)
	require.NoError(t, err)

	t.Run("Checkpoint round trip", func(t *testing.T) {
		rng := testutil.NewRNG(7)
		snap := rng.Snapshot(testutil.SnapshotConfig{Step: 4999, Boxes: 2, Atoms: 2000, Molecules: 200, Kinds: 3})

		w, err := store.Create(ctx, persistence.DefaultFilename)
		require.NoError(t, err)
		layout, err := persistence.WriteCheckpoint(w, snap, persistence.WriteOptions{})
		require.NoError(t, err)
		require.NoError(t, w.Close())

		names, err := store.List(ctx, "")
		require.NoError(t, err)
		assert.Contains(t, names, persistence.DefaultFilename)

		data, err := blobstore.ReadAll(ctx, store, persistence.DefaultFilename)
		require.NoError(t, err)
		assert.Equal(t, layout.Size, int64(len(data)))

		got, _, err := persistence.Decode(data, persistence.DecodeOptions{Strict: true})
		require.NoError(t, err)
		assert.Equal(t, snap, got)

		blob, err := store.Open(ctx, persistence.DefaultFilename)
		require.NoError(t, err)
		defer func() { _ = blob.Close() }()

		header := make([]byte, persistence.HeaderSize)
		n, err := blob.ReadAt(ctx, header, 0)
		require.NoError(t, err)
		assert.Equal(t, persistence.HeaderSize, n)
		assert.True(t, bytes.HasPrefix(header, []byte("KCCM")))

		require.NoError(t, store.Delete(ctx, persistence.DefaultFilename))
	})

	t.Run("NotFound", func(t *testing.T) {
		_, err := store.Open(ctx, "nonexistent")
		assert.ErrorIs(t, err, blobstore.ErrNotFound)
	})
}
