// Package prometheus exports checkpoint metrics through client_golang.
package prometheus

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hupe1980/mcckpt"
)

const namespace = "mcckpt"

// Collector implements mcckpt.MetricsCollector.
type Collector struct {
	checkpoints *prometheus.CounterVec
	loads       *prometheus.CounterVec
	latency     *prometheus.HistogramVec
	written     prometheus.Counter
	lastSize    prometheus.Gauge
	lastSuccess prometheus.Gauge
}

var _ mcckpt.MetricsCollector = (*Collector)(nil)

// New creates a Collector and registers it with reg. A nil reg uses
// prometheus.DefaultRegisterer. Metrics already registered by an earlier
// Collector on the same registry are shared, so several Checkpointers in
// one process report into the same series.
func New(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	c := &Collector{
		checkpoints: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkpoints_total",
			Help:      "Checkpoint write attempts by status.",
		}, []string{"status"}),
		loads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "loads_total",
			Help:      "Checkpoint restores by status.",
		}, []string{"status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_latency_seconds",
			Help:      "Latency of checkpoint writes and restores.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"op", "status"}),
		written: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "written_bytes_total",
			Help:      "Bytes of completed checkpoints.",
		}),
		lastSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_checkpoint_size_bytes",
			Help:      "Size of the most recent completed checkpoint.",
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the most recent completed checkpoint.",
		}),
	}

	var err error
	if c.checkpoints, err = register(reg, c.checkpoints); err != nil {
		return nil, err
	}
	if c.loads, err = register(reg, c.loads); err != nil {
		return nil, err
	}
	if c.latency, err = register(reg, c.latency); err != nil {
		return nil, err
	}
	if c.written, err = register(reg, c.written); err != nil {
		return nil, err
	}
	if c.lastSize, err = register(reg, c.lastSize); err != nil {
		return nil, err
	}
	if c.lastSuccess, err = register(reg, c.lastSuccess); err != nil {
		return nil, err
	}
	return c, nil
}

func register[T prometheus.Collector](reg prometheus.Registerer, col T) (T, error) {
	err := reg.Register(col)
	if err == nil {
		return col, nil
	}
	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		if existing, ok := are.ExistingCollector.(T); ok {
			return existing, nil
		}
	}
	return col, err
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// RecordCheckpoint implements mcckpt.MetricsCollector.
func (c *Collector) RecordCheckpoint(bytes int64, duration time.Duration, err error) {
	s := status(err)
	c.checkpoints.WithLabelValues(s).Inc()
	c.latency.WithLabelValues("write", s).Observe(duration.Seconds())
	if err != nil {
		return
	}
	c.written.Add(float64(bytes))
	c.lastSize.Set(float64(bytes))
	c.lastSuccess.SetToCurrentTime()
}

// RecordLoad implements mcckpt.MetricsCollector.
func (c *Collector) RecordLoad(duration time.Duration, err error) {
	s := status(err)
	c.loads.WithLabelValues(s).Inc()
	c.latency.WithLabelValues("load", s).Observe(duration.Seconds())
}
