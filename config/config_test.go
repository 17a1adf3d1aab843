package config_test

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/mcckpt"
	"github.com/hupe1980/mcckpt/blobstore"
	"github.com/hupe1980/mcckpt/config"
	"github.com/hupe1980/mcckpt/persistence"
	"github.com/hupe1980/mcckpt/testutil"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "mcckpt.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_EmptyFile_UsesDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := config.Load(writeConfig(t, ""))
	require.NoError(t, err)

	assert.Equal(t, config.Default(), cfg)
	assert.Equal(t, persistence.DefaultFilename, cfg.Checkpoint.Filename)
	assert.Equal(t, uint64(config.DefaultFrequency), cfg.Checkpoint.Frequency)
}

func TestLoad_ValidFile_Unmarshals(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `checkpoint:
  enabled: true
  frequency: 5000
  directory: ./out
  filename: restart.dat
  replica_dir: temp_300
  format: legacy
  byte_order: big
  retain: 3
store:
  backend: memory
io:
  limit: 64MB
logging:
  level: debug
  format: json
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, uint64(5000), cfg.Checkpoint.Frequency)
	assert.Equal(t, "./out", cfg.Checkpoint.Directory)
	assert.Equal(t, "restart.dat", cfg.Checkpoint.Filename)
	assert.Equal(t, "temp_300", cfg.Checkpoint.ReplicaDir)
	assert.Equal(t, "legacy", cfg.Checkpoint.Format)
	assert.Equal(t, "big", cfg.Checkpoint.ByteOrder)
	assert.Equal(t, 3, cfg.Checkpoint.Retain)
	assert.Equal(t, config.BackendMemory, cfg.Store.Backend)
	assert.True(t, cfg.Store.UseSSL)

	limit, err := cfg.IO.BytesPerSecond()
	require.NoError(t, err)
	assert.Equal(t, int64(64_000_000), limit)

	level, err := cfg.Logging.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	t.Parallel()

	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("MCCKPT_CHECKPOINT_FREQUENCY", "250")
	t.Setenv("MCCKPT_CHECKPOINT_ENABLED", "false")
	t.Setenv("MCCKPT_STORE_BACKEND", "memory")

	cfg, err := config.Load(writeConfig(t, "checkpoint:\n  frequency: 1000\n"))
	require.NoError(t, err)

	assert.Equal(t, uint64(250), cfg.Checkpoint.Frequency)
	assert.False(t, cfg.Checkpoint.Enabled)
	assert.Equal(t, config.BackendMemory, cfg.Store.Backend)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   error
	}{
		{"unknown format", func(c *config.Config) { c.Checkpoint.Format = "v9" }, persistence.ErrUnknownFormat},
		{"unknown byte order", func(c *config.Config) { c.Checkpoint.ByteOrder = "middle" }, config.ErrInvalidByteOrder},
		{"bad io limit", func(c *config.Config) { c.IO.Limit = "fast" }, config.ErrInvalidIOLimit},
		{"bad log level", func(c *config.Config) { c.Logging.Level = "loud" }, config.ErrInvalidLogLevel},
		{"bad log format", func(c *config.Config) { c.Logging.Format = "xml" }, config.ErrInvalidLogFormat},
		{"bad backend", func(c *config.Config) { c.Store.Backend = "ftp" }, config.ErrInvalidBackend},
		{"s3 without bucket", func(c *config.Config) { c.Store.Backend = config.BackendS3 }, config.ErrMissingBucket},
		{"minio without endpoint", func(c *config.Config) {
			c.Store.Backend = config.BackendMinIO
			c.Store.Bucket = "ckpt"
		}, config.ErrMissingEndpoint},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := config.Default()
			tt.mutate(cfg)
			require.ErrorIs(t, cfg.Validate(), tt.want)
		})
	}

	require.NoError(t, config.Default().Validate())
}

func TestLoad_InvalidFile(t *testing.T) {
	t.Parallel()

	_, err := config.Load(writeConfig(t, "store:\n  backend: tape\n"))
	require.ErrorIs(t, err, config.ErrInvalidBackend)
}

func TestNewStore_Local(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store, err := config.NewStore(context.Background(), config.StoreConfig{Backend: config.BackendLocal}, dir)
	require.NoError(t, err)

	local, ok := store.(*blobstore.LocalStore)
	require.True(t, ok)
	assert.Equal(t, dir, local.Root())
}

func TestNewStore_MinIOInvalidEndpoint(t *testing.T) {
	t.Parallel()

	_, err := config.NewStore(context.Background(), config.StoreConfig{
		Backend:  config.BackendMinIO,
		Bucket:   "ckpt",
		Endpoint: "localhost:9000/nested/path",
	}, "")
	require.Error(t, err)
}

func TestNewCheckpointer_WritesThroughConfiguredStore(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfg := config.Default()
	cfg.Checkpoint.Directory = dir
	cfg.Checkpoint.Frequency = 10
	cfg.Checkpoint.Format = "legacy"
	cfg.IO.Limit = "100MB"
	cfg.Logging.Level = "error"

	cp, err := cfg.NewCheckpointer(context.Background())
	require.NoError(t, err)
	assert.True(t, cp.Due(9))
	assert.False(t, cp.Due(10))

	snap := testutil.SmallSnapshot()
	layout, err := cp.Write(context.Background(), snap)
	require.NoError(t, err)
	assert.Equal(t, int64(testutil.SmallSnapshotLegacySize), layout.Size)

	info, err := os.Stat(filepath.Join(dir, persistence.DefaultFilename))
	require.NoError(t, err)
	assert.Equal(t, layout.Size, info.Size())

	got, err := cp.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, snap.Step, got.Step)
}

func TestNewCheckpointer_Disabled(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Checkpoint.Enabled = false
	cfg.Store.Backend = config.BackendMemory

	cp, err := cfg.NewCheckpointer(context.Background(), mcckpt.WithLogger(nil))
	require.NoError(t, err)
	assert.False(t, cp.Enabled())

	layout, err := cp.Write(context.Background(), testutil.SmallSnapshot())
	require.NoError(t, err)
	assert.Nil(t, layout)

	names, err := cp.Store().List(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestNewMetrics(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	mc, err := cfg.NewMetrics(prometheus.NewRegistry())
	require.NoError(t, err)
	assert.IsType(t, mcckpt.NoopMetricsCollector{}, mc)

	reg := prometheus.NewRegistry()
	cfg.Metrics.Prometheus = true
	mc, err = cfg.NewMetrics(reg)
	require.NoError(t, err)

	cfg.Store.Backend = config.BackendMemory
	cp, err := cfg.NewCheckpointer(context.Background(), mcckpt.WithMetrics(mc))
	require.NoError(t, err)
	_, err = cp.Write(context.Background(), testutil.SmallSnapshot())
	require.NoError(t, err)

	n, err := promtest.GatherAndCount(reg, "mcckpt_checkpoints_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestLoad_MetricsToggle(t *testing.T) {
	t.Parallel()

	cfg, err := config.Load(writeConfig(t, "metrics:\n  prometheus: true\nstore:\n  backend: memory\n"))
	require.NoError(t, err)
	assert.True(t, cfg.Metrics.Prometheus)

	_, err = cfg.NewCheckpointer(context.Background())
	require.NoError(t, err)
	_, err = cfg.NewCheckpointer(context.Background())
	require.NoError(t, err)
}
