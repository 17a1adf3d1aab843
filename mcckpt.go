package mcckpt

import (
	"context"
	"errors"
	"fmt"
	"path"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/hupe1980/mcckpt/blobstore"
	"github.com/hupe1980/mcckpt/model"
	"github.com/hupe1980/mcckpt/persistence"
	"github.com/hupe1980/mcckpt/resource"
)

// Checkpointer writes simulation snapshots to a blob store.
//
// It is safe for concurrent use; writes are serialized through the writer
// slot of its resource controller.
type Checkpointer struct {
	opts      options
	store     blobstore.BlobStore
	committer blobstore.Committer
	resources *resource.Controller
	logger    *Logger
	versioned *regexp.Regexp
}

// New creates a Checkpointer.
//
// Without WithStore, checkpoints go to a local directory (WithDirectory,
// default "."). The destination is not touched until the first Write.
func New(optFns ...Option) (*Checkpointer, error) {
	o := defaultOptions()
	for _, fn := range optFns {
		fn(&o)
	}

	if o.omitPTFlag && o.format != persistence.FormatLegacy {
		return nil, persistence.ErrPTFlagRequired
	}

	store := o.store
	if store == nil {
		store = blobstore.NewLocalStore(o.directory)
	}

	committer := o.committer
	if committer == nil {
		if c, ok := store.(blobstore.Committer); ok {
			committer = c
		} else if o.retain > 0 {
			committer = blobstore.NewPointerCommitter(store, path.Join(o.replicaDir, blobstore.CurrentName))
		}
	}

	rc := o.resources
	if rc == nil {
		rc = resource.NewController(resource.Config{})
	}

	ext := path.Ext(o.filename)
	base := strings.TrimSuffix(o.filename, ext)

	return &Checkpointer{
		opts:      o,
		store:     store,
		committer: committer,
		resources: rc,
		logger:    o.logger.WithReplica(o.replicaDir),
		versioned: regexp.MustCompile("^" + regexp.QuoteMeta(base) + `-\d{12}` + regexp.QuoteMeta(ext) + "$"),
	}, nil
}

// Enabled reports whether Write produces output.
func (c *Checkpointer) Enabled() bool { return c.opts.enabled }

// Frequency returns the step interval used by Due.
func (c *Checkpointer) Frequency() uint64 { return c.opts.frequency }

// Store returns the destination store.
func (c *Checkpointer) Store() blobstore.BlobStore { return c.store }

// Due reports whether a checkpoint should be written after step completes,
// that is when (step+1) is a multiple of the frequency.
func (c *Checkpointer) Due(step uint64) bool {
	if !c.opts.enabled || c.opts.frequency == 0 {
		return false
	}
	return (step+1)%c.opts.frequency == 0
}

// Name returns the blob name the checkpoint for step is written to.
func (c *Checkpointer) Name(step uint64) string {
	name := c.opts.filename
	if c.opts.retain > 0 {
		ext := path.Ext(name)
		name = fmt.Sprintf("%s-%012d%s", strings.TrimSuffix(name, ext), step, ext)
	}
	return path.Join(c.opts.replicaDir, name)
}

// describe renders name the way users know the destination.
func (c *Checkpointer) describe(name string) string {
	switch s := c.store.(type) {
	case interface{ Path(string) string }:
		return s.Path(name)
	case interface{ URI() string }:
		return s.URI() + name
	default:
		return name
	}
}

// Write serializes snap to the destination.
//
// The snapshot is validated before the destination is opened; a shape error
// leaves any previous checkpoint untouched. Local and object-store
// destinations only become visible once the write completed, so a failed
// Write never replaces a good checkpoint with a partial one.
//
// Write returns nil and a nil layout when checkpointing is disabled. With
// WithFatal(true) failures terminate the process instead of returning.
func (c *Checkpointer) Write(ctx context.Context, snap *model.Snapshot) (*persistence.Layout, error) {
	if !c.opts.enabled {
		return nil, nil
	}

	start := time.Now()
	name := c.Name(snap.Step)

	layout, err := c.write(ctx, name, snap)

	var size int64
	if layout != nil {
		size = layout.Size
	}
	c.opts.metricsCollector.RecordCheckpoint(size, time.Since(start), err)
	c.logger.LogCheckpoint(ctx, c.describe(name), snap.Step, size, err)

	if err != nil {
		return nil, c.fail(err)
	}
	return layout, nil
}

func (c *Checkpointer) write(ctx context.Context, name string, snap *model.Snapshot) (*persistence.Layout, error) {
	wopts := persistence.WriteOptions{
		Format:                    c.opts.format,
		ByteOrder:                 c.opts.byteOrder,
		OmitParallelTemperingFlag: c.opts.omitPTFlag,
	}
	desc := c.describe(name)

	if err := snap.Validate(); err != nil {
		return nil, &Error{Kind: KindShapeInconsistency, Path: desc, Err: err}
	}
	if c.opts.omitPTFlag && snap.ParallelTempering != nil {
		return nil, &Error{Kind: KindShapeInconsistency, Path: desc, Err: persistence.ErrPTFlagRequired}
	}

	if err := c.resources.AcquireWriter(ctx); err != nil {
		return nil, &Error{Kind: KindIO, Path: desc, Err: err}
	}
	defer c.resources.ReleaseWriter()

	blob, err := c.store.Create(ctx, name)
	if err != nil {
		return nil, &Error{Kind: KindDestinationUnavailable, Path: desc, Err: err}
	}

	w := resource.NewRateLimitedWriter(ctx, blob, c.resources)
	layout, err := persistence.WriteCheckpoint(w, snap, wopts)
	if err != nil {
		_ = blob.Abort()
		return nil, &Error{Kind: classifyWriteError(err), Path: desc, Err: err}
	}
	if err := blob.Close(); err != nil {
		return nil, &Error{Kind: KindIO, Path: desc, Err: err}
	}

	if c.committer != nil {
		if _, err := c.committer.Commit(ctx, name); err != nil {
			return nil, &Error{Kind: KindIO, Path: desc, Err: fmt.Errorf("commit: %w", err)}
		}
	}
	if c.opts.retain > 0 {
		c.prune(ctx, name)
	}
	return layout, nil
}

// prune deletes versioned checkpoints beyond the retention count. Failures
// are logged; the new checkpoint is already committed.
func (c *Checkpointer) prune(ctx context.Context, keep string) {
	dir := c.opts.replicaDir
	prefix := path.Join(dir, strings.TrimSuffix(c.opts.filename, path.Ext(c.opts.filename))+"-")

	names, err := c.store.List(ctx, prefix)
	if err != nil {
		c.logger.LogPrune(ctx, prefix, err)
		return
	}

	var versions []string
	for _, n := range names {
		if path.Dir(n) == path.Clean(path.Join(dir, ".")) && c.versioned.MatchString(path.Base(n)) {
			versions = append(versions, n)
		}
	}
	sort.Strings(versions)

	for i := 0; i < len(versions)-c.opts.retain; i++ {
		if versions[i] == keep {
			continue
		}
		err := c.store.Delete(ctx, versions[i])
		c.logger.LogPrune(ctx, c.describe(versions[i]), err)
	}
}

// Latest returns the newest committed checkpoint name and its commit
// version. Without a committer it returns the fixed checkpoint name and
// version 0.
func (c *Checkpointer) Latest(ctx context.Context) (uint64, string, error) {
	if c.committer == nil {
		return 0, c.Name(0), nil
	}
	version, name, err := c.committer.Latest(ctx)
	if err != nil {
		return 0, "", err
	}
	if version == 0 {
		return 0, "", ErrNoCheckpoint
	}
	return version, name, nil
}

// Load reads and decodes the newest checkpoint.
func (c *Checkpointer) Load(ctx context.Context) (*model.Snapshot, error) {
	start := time.Now()
	snap, name, err := c.load(ctx)
	c.opts.metricsCollector.RecordLoad(time.Since(start), err)

	var step uint64
	if snap != nil {
		step = snap.Step
	}
	c.logger.LogLoad(ctx, c.describe(name), step, err)
	return snap, err
}

func (c *Checkpointer) load(ctx context.Context) (*model.Snapshot, string, error) {
	_, name, err := c.Latest(ctx)
	if err != nil {
		return nil, name, err
	}

	data, err := blobstore.ReadAll(ctx, c.store, name)
	if errors.Is(err, blobstore.ErrNotFound) {
		return nil, name, fmt.Errorf("%w: %s", ErrNoCheckpoint, c.describe(name))
	}
	if err != nil {
		return nil, name, err
	}

	snap, _, err := persistence.Decode(data, persistence.DecodeOptions{ByteOrder: c.opts.byteOrder})
	if err != nil {
		return nil, name, fmt.Errorf("decode %s: %w", c.describe(name), err)
	}
	return snap, name, nil
}

// fail applies the fatal policy.
func (c *Checkpointer) fail(err error) error {
	if !c.opts.fatal {
		return err
	}
	msg := err.Error()
	var e *Error
	if errors.As(err, &e) {
		msg = e.Report()
	}
	_, _ = fmt.Fprintln(c.opts.stderr, msg)
	c.opts.exit(1)
	return err
}
