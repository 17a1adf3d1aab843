package resource

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestController_WriterSlot(t *testing.T) {
	c := NewController(Config{})
	assert.Equal(t, int64(1), c.Config().MaxConcurrentWrites)

	require.NoError(t, c.AcquireWriter(context.Background()))
	assert.False(t, c.TryAcquireWriter())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, c.AcquireWriter(ctx), context.DeadlineExceeded)

	c.ReleaseWriter()
	assert.True(t, c.TryAcquireWriter())
	c.ReleaseWriter()
}

func TestController_ConcurrentWrites(t *testing.T) {
	c := NewController(Config{MaxConcurrentWrites: 2})

	require.NoError(t, c.AcquireWriter(context.Background()))
	require.NoError(t, c.AcquireWriter(context.Background()))
	assert.False(t, c.TryAcquireWriter())

	c.ReleaseWriter()
	assert.True(t, c.TryAcquireWriter())
}

func TestController_Nil(t *testing.T) {
	var c *Controller

	require.NoError(t, c.AcquireWriter(context.Background()))
	assert.True(t, c.TryAcquireWriter())
	c.ReleaseWriter()
	require.NoError(t, c.AcquireIO(context.Background(), 1<<30))
	assert.Equal(t, Config{}, c.Config())
}

func TestController_IOLargerThanBurst(t *testing.T) {
	c := NewController(Config{IOLimitBytesPerSec: 1000})

	// The first burst is free; the rest needs the bucket to refill.
	start := time.Now()
	require.NoError(t, c.AcquireIO(context.Background(), 1200))
	assert.GreaterOrEqual(t, time.Since(start), 150*time.Millisecond)
}

func TestController_IOCanceled(t *testing.T) {
	c := NewController(Config{IOLimitBytesPerSec: 100})
	require.NoError(t, c.AcquireIO(context.Background(), 100))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.Error(t, c.AcquireIO(ctx, 100))
}

func TestRateLimitedWriter(t *testing.T) {
	var buf bytes.Buffer
	w := NewRateLimitedWriter(context.Background(), &buf, NewController(Config{IOLimitBytesPerSec: 1 << 20}))

	n, err := w.Write([]byte("checkpoint"))
	require.NoError(t, err)
	assert.Equal(t, 10, n)
	assert.Equal(t, "checkpoint", buf.String())
}

func TestRateLimitedWriter_CanceledWritesNothing(t *testing.T) {
	c := NewController(Config{IOLimitBytesPerSec: 4})
	require.NoError(t, c.AcquireIO(context.Background(), 4))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var buf bytes.Buffer
	_, err := NewRateLimitedWriter(ctx, &buf, c).Write([]byte("data"))
	require.Error(t, err)
	assert.Zero(t, buf.Len())
}

func TestRateLimitedReader(t *testing.T) {
	r := NewRateLimitedReader(context.Background(), strings.NewReader("checkpoint data"), nil)

	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "checkpoint data", string(data))
}
