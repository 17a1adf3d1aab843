// Package resource limits how checkpoint writes use the machine: how many run
// at once and how fast they may move bytes.
package resource

import (
	"context"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// Config holds resource limits.
type Config struct {
	// MaxConcurrentWrites is the number of checkpoint writes allowed in
	// flight. If 0, defaults to 1.
	MaxConcurrentWrites int64

	// IOLimitBytesPerSec caps checkpoint IO throughput.
	// If 0, unlimited.
	IOLimitBytesPerSec int64
}

// Controller hands out writer slots and IO tokens.
//
// A nil *Controller imposes no limits.
type Controller struct {
	cfg Config

	writeSem  *semaphore.Weighted
	ioLimiter *rate.Limiter // nil if unlimited
}

// NewController creates a new resource controller.
func NewController(cfg Config) *Controller {
	if cfg.MaxConcurrentWrites <= 0 {
		cfg.MaxConcurrentWrites = 1
	}

	c := &Controller{
		cfg:      cfg,
		writeSem: semaphore.NewWeighted(cfg.MaxConcurrentWrites),
	}

	if cfg.IOLimitBytesPerSec > 0 {
		c.ioLimiter = rate.NewLimiter(rate.Limit(cfg.IOLimitBytesPerSec), int(cfg.IOLimitBytesPerSec))
	}

	return c
}

// Config returns the effective limits.
func (c *Controller) Config() Config {
	if c == nil {
		return Config{}
	}
	return c.cfg
}

// AcquireWriter reserves a writer slot, blocking until one is free or ctx
// is done.
func (c *Controller) AcquireWriter(ctx context.Context) error {
	if c == nil {
		return nil
	}
	return c.writeSem.Acquire(ctx, 1)
}

// TryAcquireWriter reserves a writer slot without blocking.
func (c *Controller) TryAcquireWriter() bool {
	if c == nil {
		return true
	}
	return c.writeSem.TryAcquire(1)
}

// ReleaseWriter returns a writer slot.
func (c *Controller) ReleaseWriter() {
	if c == nil {
		return
	}
	c.writeSem.Release(1)
}

// AcquireIO waits until the IO limit allows the specified number of bytes.
// Requests larger than one second of budget are split so they never exceed
// the limiter burst.
func (c *Controller) AcquireIO(ctx context.Context, bytes int) error {
	if c == nil || c.ioLimiter == nil {
		return nil
	}
	burst := c.ioLimiter.Burst()
	for bytes > 0 {
		n := min(bytes, burst)
		if err := c.ioLimiter.WaitN(ctx, n); err != nil {
			return err
		}
		bytes -= n
	}
	return nil
}
