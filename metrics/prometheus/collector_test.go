package prometheus

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/mcckpt"
	"github.com/hupe1980/mcckpt/blobstore"
	"github.com/hupe1980/mcckpt/testutil"
)

func TestCollector_Record(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := New(reg)
	require.NoError(t, err)

	c.RecordCheckpoint(5537, 3*time.Millisecond, nil)
	c.RecordCheckpoint(0, time.Millisecond, errors.New("disk full"))
	c.RecordLoad(time.Millisecond, nil)

	assert.Equal(t, 1.0, promtest.ToFloat64(c.checkpoints.WithLabelValues("success")))
	assert.Equal(t, 1.0, promtest.ToFloat64(c.checkpoints.WithLabelValues("error")))
	assert.Equal(t, 5537.0, promtest.ToFloat64(c.written))
	assert.Equal(t, 5537.0, promtest.ToFloat64(c.lastSize))
	assert.Positive(t, promtest.ToFloat64(c.lastSuccess))
	assert.Equal(t, 1.0, promtest.ToFloat64(c.loads.WithLabelValues("success")))
	assert.Equal(t, 3, promtest.CollectAndCount(c.latency))
}

func TestCollector_SharedRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	a, err := New(reg)
	require.NoError(t, err)

	b, err := New(reg)
	require.NoError(t, err)

	a.RecordCheckpoint(10, time.Millisecond, nil)
	b.RecordCheckpoint(20, time.Millisecond, nil)
	assert.InDelta(t, 2.0, promtest.ToFloat64(a.checkpoints.WithLabelValues("success")), 0)
	assert.InDelta(t, 30.0, promtest.ToFloat64(b.written), 0)
}

func TestCollector_ConflictingRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "checkpoints_total",
		Help:      "Checkpoint write attempts by status.",
	}))

	_, err := New(reg)
	require.Error(t, err)
}

func TestCollector_WithCheckpointer(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := New(reg)
	require.NoError(t, err)

	cp, err := mcckpt.New(mcckpt.WithStore(blobstore.NewMemoryStore()), mcckpt.WithMetrics(c))
	require.NoError(t, err)

	layout, err := cp.Write(context.Background(), testutil.SmallSnapshot())
	require.NoError(t, err)

	assert.Equal(t, float64(layout.Size), promtest.ToFloat64(c.written))
	assert.Equal(t, 1.0, promtest.ToFloat64(c.checkpoints.WithLabelValues("success")))
}
