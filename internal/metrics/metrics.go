// Package metrics is a thin abstraction over Prometheus, mirroring
// arena-cache's pkg/metrics.go: with no registry the engine pays nothing
// for metric updates; with one, unlabeled counters and a duration
// histogram are registered on it.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Sink is the internal interface the engine calls, including for the
// results of its GC runs.
// Not exposed beyond this package's factory — callers only ever see
// Sink through New/NewNoop.
type Sink interface {
	IncCacheHit()
	IncCacheMiss()
	IncInstallRun()
	ObserveMaterializeDuration(seconds float64)
	AddGCEntriesRemoved(n int)
	AddGCBytesFreed(n int64)
}

type noopSink struct{}

func (noopSink) IncCacheHit()                       {}
func (noopSink) IncCacheMiss()                      {}
func (noopSink) IncInstallRun()                     {}
func (noopSink) ObserveMaterializeDuration(float64) {}
func (noopSink) AddGCEntriesRemoved(int)            {}
func (noopSink) AddGCBytesFreed(int64)              {}

// NewNoop returns a Sink that discards everything.
func NewNoop() Sink { return noopSink{} }

type promSink struct {
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	installRuns     prometheus.Counter
	materializeSecs prometheus.Histogram
	gcEntries       prometheus.Counter
	gcBytes         prometheus.Counter
}

// New registers the GMC metric family on reg and returns a Sink backed
// by it. Pass nil to get a no-op sink instead.
func New(reg *prometheus.Registry) Sink {
	if reg == nil {
		return noopSink{}
	}

	p := &promSink{
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "better_gmc",
			Name:      "cache_hits_total",
			Help:      "Number of reuse-marker or entry cache hits.",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "better_gmc",
			Name:      "cache_misses_total",
			Help:      "Number of cache misses requiring an external install.",
		}),
		installRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "better_gmc",
			Name:      "install_runs_total",
			Help:      "Number of end-to-end install invocations.",
		}),
		materializeSecs: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "better_gmc",
			Name:      "materialize_duration_seconds",
			Help:      "Duration of Capture/Restore materializations.",
			Buckets:   prometheus.DefBuckets,
		}),
		gcEntries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "better_gmc",
			Name:      "gc_entries_removed_total",
			Help:      "Number of cache entries removed by GC.",
		}),
		gcBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "better_gmc",
			Name:      "gc_bytes_freed_total",
			Help:      "Physical bytes freed by GC.",
		}),
	}

	reg.MustRegister(p.cacheHits, p.cacheMisses, p.installRuns, p.materializeSecs, p.gcEntries, p.gcBytes)
	return p
}

func (p *promSink) IncCacheHit()   { p.cacheHits.Inc() }
func (p *promSink) IncCacheMiss()  { p.cacheMisses.Inc() }
func (p *promSink) IncInstallRun() { p.installRuns.Inc() }
func (p *promSink) ObserveMaterializeDuration(seconds float64) {
	p.materializeSecs.Observe(seconds)
}
func (p *promSink) AddGCEntriesRemoved(n int)   { p.gcEntries.Add(float64(n)) }
func (p *promSink) AddGCBytesFreed(n int64)     { p.gcBytes.Add(float64(n)) }
