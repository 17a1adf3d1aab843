package config

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hupe1980/mcckpt"
	"github.com/hupe1980/mcckpt/blobstore"
	minioblob "github.com/hupe1980/mcckpt/blobstore/minio"
	"github.com/hupe1980/mcckpt/blobstore/s3"
	"github.com/hupe1980/mcckpt/codec"
	promcollector "github.com/hupe1980/mcckpt/metrics/prometheus"
	"github.com/hupe1980/mcckpt/persistence"
	"github.com/hupe1980/mcckpt/resource"
)

// NewStore builds the blob store selected by cfg.Backend.
//
// The local backend is rooted at dir. For the s3 backend a non-empty
// DDBTable returns an *s3.DDBCommitStore, which the Checkpointer then also
// uses as its committer.
func NewStore(ctx context.Context, cfg StoreConfig, dir string) (blobstore.BlobStore, error) {
	switch cfg.Backend {
	case BackendLocal, "":
		return blobstore.NewLocalStore(dir), nil
	case BackendMemory:
		return blobstore.NewMemoryStore(), nil
	case BackendS3:
		optFns := []s3.Option{s3.WithPrefix(cfg.Prefix)}
		if cfg.Region != "" {
			optFns = append(optFns, s3.WithRegion(cfg.Region))
		}
		if cfg.Endpoint != "" {
			optFns = append(optFns, s3.WithEndpoint(cfg.Endpoint))
		}
		if cfg.AccessKey != "" {
			optFns = append(optFns, s3.WithStaticCredentials(cfg.AccessKey, cfg.SecretKey))
		}
		if cfg.DDBTable != "" {
			return s3.NewWithCommitTable(ctx, cfg.Bucket, cfg.DDBTable, optFns...)
		}
		return s3.New(ctx, cfg.Bucket, optFns...)
	case BackendMinIO:
		return minioblob.New(minioblob.Config{
			Endpoint:  cfg.Endpoint,
			AccessKey: cfg.AccessKey,
			SecretKey: cfg.SecretKey,
			Region:    cfg.Region,
			Secure:    cfg.UseSSL,
		}, cfg.Bucket, cfg.Prefix)
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidBackend, cfg.Backend)
	}
}

// NewLogger builds the logger described by the logging section.
func (c *Config) NewLogger() (*mcckpt.Logger, error) {
	level, err := c.Logging.SlogLevel()
	if err != nil {
		return nil, err
	}
	if c.Logging.Format == "json" {
		return mcckpt.NewJSONLogger(level), nil
	}
	return mcckpt.NewTextLogger(level), nil
}

// NewResourceController builds a controller enforcing io.limit.
func (c *Config) NewResourceController() (*resource.Controller, error) {
	limit, err := c.IO.BytesPerSecond()
	if err != nil {
		return nil, err
	}
	return resource.NewController(resource.Config{IOLimitBytesPerSec: limit}), nil
}

// NewMetrics returns the collector selected by the metrics section,
// registering Prometheus metrics with reg (the default registry when nil).
func (c *Config) NewMetrics(reg prometheus.Registerer) (mcckpt.MetricsCollector, error) {
	if !c.Metrics.Prometheus {
		return mcckpt.NoopMetricsCollector{}, nil
	}
	return promcollector.New(reg)
}

// Options translates the configuration into Checkpointer options,
// connecting to the configured store.
func (c *Config) Options(ctx context.Context) ([]mcckpt.Option, error) {
	format, err := persistence.ParseFormat(c.Checkpoint.Format)
	if err != nil {
		return nil, err
	}
	order, ok := codec.ByteOrderByName(c.Checkpoint.ByteOrder)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidByteOrder, c.Checkpoint.ByteOrder)
	}

	store, err := NewStore(ctx, c.Store, filepath.Clean(c.Checkpoint.Directory))
	if err != nil {
		return nil, fmt.Errorf("store %s: %w", c.Store.Backend, err)
	}
	logger, err := c.NewLogger()
	if err != nil {
		return nil, err
	}
	rc, err := c.NewResourceController()
	if err != nil {
		return nil, err
	}
	metrics, err := c.NewMetrics(nil)
	if err != nil {
		return nil, err
	}

	return []mcckpt.Option{
		mcckpt.WithEnabled(c.Checkpoint.Enabled),
		mcckpt.WithFrequency(c.Checkpoint.Frequency),
		mcckpt.WithStore(store),
		mcckpt.WithFilename(c.Checkpoint.Filename),
		mcckpt.WithReplicaDir(c.Checkpoint.ReplicaDir),
		mcckpt.WithFormat(format),
		mcckpt.WithByteOrder(order),
		mcckpt.WithRetention(c.Checkpoint.Retain),
		mcckpt.WithFatal(c.Checkpoint.Fatal),
		mcckpt.WithLogger(logger),
		mcckpt.WithResourceController(rc),
		mcckpt.WithMetrics(metrics),
	}, nil
}

// NewCheckpointer is shorthand for mcckpt.New(c.Options(ctx)...), with
// extra options applied last.
func (c *Config) NewCheckpointer(ctx context.Context, extra ...mcckpt.Option) (*mcckpt.Checkpointer, error) {
	opts, err := c.Options(ctx)
	if err != nil {
		return nil, err
	}
	return mcckpt.New(append(opts, extra...)...)
}

// Default returns the configuration used when no file or environment
// overrides are present.
func Default() *Config {
	return &Config{
		Checkpoint: CheckpointConfig{
			Enabled:   DefaultEnabled,
			Frequency: DefaultFrequency,
			Directory: DefaultDirectory,
			Filename:  persistence.DefaultFilename,
			Format:    DefaultFormat,
			ByteOrder: DefaultByteOrder,
		},
		Store:   StoreConfig{Backend: DefaultBackend, UseSSL: true},
		Logging: LoggingConfig{Level: DefaultLogLevel, Format: DefaultLogFormat},
	}
}
