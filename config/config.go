// Package config loads checkpoint settings from YAML files and the
// environment and turns them into Checkpointer options.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/viper"

	"github.com/hupe1980/mcckpt/codec"
	"github.com/hupe1980/mcckpt/persistence"
)

// EnvPrefix is the prefix of environment overrides, e.g.
// MCCKPT_CHECKPOINT_FREQUENCY.
const EnvPrefix = "MCCKPT"

// Sentinel validation errors.
var (
	ErrInvalidBackend   = errors.New("invalid store backend")
	ErrInvalidByteOrder = errors.New("invalid byte order")
	ErrInvalidIOLimit   = errors.New("invalid io limit")
	ErrInvalidLogLevel  = errors.New("invalid logging level")
	ErrInvalidLogFormat = errors.New("invalid logging format")
	ErrMissingBucket    = errors.New("bucket is required for object store backends")
	ErrMissingEndpoint  = errors.New("endpoint is required for the minio backend")
)

// Store backends.
const (
	BackendLocal  = "local"
	BackendMemory = "memory"
	BackendS3     = "s3"
	BackendMinIO  = "minio"
)

// Default configuration values.
const (
	DefaultEnabled   = true
	DefaultFrequency = 100000
	DefaultDirectory = "."
	DefaultFormat    = "v1"
	DefaultByteOrder = "little"
	DefaultBackend   = BackendLocal
	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"
)

// Config holds all checkpoint configuration.
type Config struct {
	Checkpoint CheckpointConfig `mapstructure:"checkpoint"`
	Store      StoreConfig      `mapstructure:"store"`
	IO         IOConfig         `mapstructure:"io"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
}

// CheckpointConfig controls when and how checkpoints are written.
type CheckpointConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Frequency  uint64 `mapstructure:"frequency"`
	Directory  string `mapstructure:"directory"`
	Filename   string `mapstructure:"filename"`
	ReplicaDir string `mapstructure:"replica_dir"`
	Format     string `mapstructure:"format"`
	ByteOrder  string `mapstructure:"byte_order"`
	Retain     int    `mapstructure:"retain"`
	Fatal      bool   `mapstructure:"fatal"`
}

// StoreConfig selects the destination backend.
type StoreConfig struct {
	Backend   string `mapstructure:"backend"`
	Bucket    string `mapstructure:"bucket"`
	Prefix    string `mapstructure:"prefix"`
	Region    string `mapstructure:"region"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	DDBTable  string `mapstructure:"ddb_table"`
}

// IOConfig throttles checkpoint IO.
type IOConfig struct {
	// Limit is a per-second byte budget in humanize syntax ("64MB").
	// Empty means unlimited.
	Limit string `mapstructure:"limit"`
}

// LoggingConfig holds logging-specific configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// MetricsConfig selects the metrics exporter.
type MetricsConfig struct {
	// Prometheus registers checkpoint metrics with the default Prometheus
	// registry.
	Prometheus bool `mapstructure:"prometheus"`
}

// Load reads configuration from configPath (or ./mcckpt.yaml and
// /etc/mcckpt/mcckpt.yaml when empty) and MCCKPT_* environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("mcckpt")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/mcckpt")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("checkpoint.enabled", DefaultEnabled)
	v.SetDefault("checkpoint.frequency", DefaultFrequency)
	v.SetDefault("checkpoint.directory", DefaultDirectory)
	v.SetDefault("checkpoint.filename", persistence.DefaultFilename)
	v.SetDefault("checkpoint.replica_dir", "")
	v.SetDefault("checkpoint.format", DefaultFormat)
	v.SetDefault("checkpoint.byte_order", DefaultByteOrder)
	v.SetDefault("checkpoint.retain", 0)
	v.SetDefault("checkpoint.fatal", false)

	v.SetDefault("store.backend", DefaultBackend)
	v.SetDefault("store.bucket", "")
	v.SetDefault("store.prefix", "")
	v.SetDefault("store.region", "")
	v.SetDefault("store.endpoint", "")
	v.SetDefault("store.access_key", "")
	v.SetDefault("store.secret_key", "")
	v.SetDefault("store.use_ssl", true)
	v.SetDefault("store.ddb_table", "")

	v.SetDefault("io.limit", "")

	v.SetDefault("logging.level", DefaultLogLevel)
	v.SetDefault("logging.format", DefaultLogFormat)

	v.SetDefault("metrics.prometheus", false)
}

// Validate checks every field that can be wrong independently of the
// environment.
func (c *Config) Validate() error {
	if _, err := persistence.ParseFormat(c.Checkpoint.Format); err != nil {
		return err
	}
	if _, ok := codec.ByteOrderByName(c.Checkpoint.ByteOrder); !ok {
		return fmt.Errorf("%w: %q", ErrInvalidByteOrder, c.Checkpoint.ByteOrder)
	}
	if _, err := c.IO.BytesPerSecond(); err != nil {
		return err
	}
	if _, err := c.Logging.SlogLevel(); err != nil {
		return err
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidLogFormat, c.Logging.Format)
	}

	switch c.Store.Backend {
	case BackendLocal, BackendMemory:
	case BackendS3:
		if c.Store.Bucket == "" {
			return ErrMissingBucket
		}
	case BackendMinIO:
		if c.Store.Bucket == "" {
			return ErrMissingBucket
		}
		if c.Store.Endpoint == "" {
			return ErrMissingEndpoint
		}
	default:
		return fmt.Errorf("%w: %q", ErrInvalidBackend, c.Store.Backend)
	}
	return nil
}

// BytesPerSecond parses Limit. Zero means unlimited.
func (c IOConfig) BytesPerSecond() (int64, error) {
	if c.Limit == "" {
		return 0, nil
	}
	n, err := humanize.ParseBytes(c.Limit)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidIOLimit, err)
	}
	return int64(n), nil
}

// SlogLevel parses Level.
func (c LoggingConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Level)); err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidLogLevel, c.Level)
	}
	return level, nil
}
