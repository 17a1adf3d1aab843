package mcckpt

import (
	"encoding/binary"
	"io"
	"os"

	"github.com/hupe1980/mcckpt/blobstore"
	"github.com/hupe1980/mcckpt/persistence"
	"github.com/hupe1980/mcckpt/resource"
)

type options struct {
	enabled          bool
	frequency        uint64
	store            blobstore.BlobStore
	committer        blobstore.Committer
	directory        string
	filename         string
	replicaDir       string
	format           persistence.Format
	byteOrder        binary.ByteOrder
	omitPTFlag       bool
	retain           int
	logger           *Logger
	metricsCollector MetricsCollector
	resources        *resource.Controller
	fatal            bool
	exit             func(code int)
	stderr           io.Writer
}

func defaultOptions() options {
	return options{
		enabled:          true,
		directory:        ".",
		filename:         persistence.DefaultFilename,
		format:           persistence.FormatV1,
		logger:           NoopLogger(),
		metricsCollector: NoopMetricsCollector{},
		exit:             os.Exit,
		stderr:           os.Stderr,
	}
}

// Option configures a Checkpointer.
type Option func(*options)

// WithEnabled turns checkpoint output on or off. A disabled Checkpointer
// accepts Write calls and does nothing.
func WithEnabled(enabled bool) Option {
	return func(o *options) {
		o.enabled = enabled
	}
}

// WithFrequency sets the step interval used by Due. Zero disables
// scheduling; explicit Write calls still work.
func WithFrequency(steps uint64) Option {
	return func(o *options) {
		o.frequency = steps
	}
}

// WithStore writes checkpoints to an arbitrary blob store (S3, MinIO,
// memory). It takes precedence over WithDirectory.
//
// If the store also implements blobstore.Committer (for example
// s3.DDBCommitStore) it is used to record the latest checkpoint.
func WithStore(store blobstore.BlobStore) Option {
	return func(o *options) {
		o.store = store
	}
}

// WithCommitter sets where the latest checkpoint is recorded.
func WithCommitter(c blobstore.Committer) Option {
	return func(o *options) {
		o.committer = c
	}
}

// WithDirectory writes checkpoints to a local directory.
func WithDirectory(dir string) Option {
	return func(o *options) {
		o.directory = dir
	}
}

// WithFilename sets the checkpoint file name (default "checkpoint.dat").
func WithFilename(name string) Option {
	return func(o *options) {
		if name != "" {
			o.filename = name
		}
	}
}

// WithReplicaDir places checkpoints in a per-replica subdirectory, as done
// for replica exchange runs where every replica owns an output directory.
func WithReplicaDir(dir string) Option {
	return func(o *options) {
		o.replicaDir = dir
	}
}

// WithFormat selects the file framing. The default is persistence.FormatV1.
func WithFormat(format persistence.Format) Option {
	return func(o *options) {
		if format == persistence.FormatAuto {
			format = persistence.FormatV1
		}
		o.format = format
	}
}

// WithByteOrder selects the byte order of all fields.
func WithByteOrder(order binary.ByteOrder) Option {
	return func(o *options) {
		o.byteOrder = order
	}
}

// WithoutParallelTemperingFlag drops the trailing flag byte, matching
// engines built without replica exchange support. Requires FormatLegacy.
func WithoutParallelTemperingFlag() Option {
	return func(o *options) {
		o.omitPTFlag = true
	}
}

// WithRetention keeps the n newest checkpoints under versioned names
// ("checkpoint-000000001000.dat") and deletes older ones after each commit.
// Zero (the default) overwrites a single file.
func WithRetention(n int) Option {
	return func(o *options) {
		if n < 0 {
			n = 0
		}
		o.retain = n
	}
}

// WithLogger configures structured logging.
// Pass nil to disable logging.
func WithLogger(l *Logger) Option {
	return func(o *options) {
		if l == nil {
			l = NoopLogger()
		}
		o.logger = l
	}
}

// WithMetrics configures a metrics collector.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &mcckpt.BasicMetricsCollector{}
//	cp, _ := mcckpt.New(mcckpt.WithMetrics(metrics))
//	// ... write checkpoints ...
//	stats := metrics.GetStats()
//	fmt.Printf("Checkpoints: %d, Errors: %d\n", stats.CheckpointCount, stats.CheckpointErrors)
func WithMetrics(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithResourceController shares writer slots and an IO budget with other
// Checkpointers. By default each Checkpointer has a private controller with
// one writer slot and no IO limit.
func WithResourceController(rc *resource.Controller) Option {
	return func(o *options) {
		o.resources = rc
	}
}

// WithFatal makes Write report failures to stderr and exit the process with
// status 1 instead of returning the error.
func WithFatal(fatal bool) Option {
	return func(o *options) {
		o.fatal = fatal
	}
}
