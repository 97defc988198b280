package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestNewNoopDiscardsEverything(t *testing.T) {
	s := NewNoop()
	s.IncCacheHit()
	s.IncCacheMiss()
	s.IncInstallRun()
	s.ObserveMaterializeDuration(1.5)
	s.AddGCEntriesRemoved(3)
	s.AddGCBytesFreed(1024)
}

func TestNewWithNilRegistryReturnsNoop(t *testing.T) {
	s := New(nil)
	if _, ok := s.(noopSink); !ok {
		t.Fatalf("expected noopSink for nil registry, got %T", s)
	}
}

func TestNewRegistersAndIncrementsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	s := New(reg)

	s.IncCacheHit()
	s.IncCacheHit()
	s.IncCacheMiss()
	s.AddGCEntriesRemoved(2)
	s.AddGCBytesFreed(2048)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatal(err)
	}

	got := map[string]float64{}
	for _, mf := range mfs {
		for _, m := range mf.GetMetric() {
			got[mf.GetName()] = metricValue(m)
		}
	}

	if got["better_gmc_cache_hits_total"] != 2 {
		t.Fatalf("expected 2 cache hits, got %v", got["better_gmc_cache_hits_total"])
	}
	if got["better_gmc_cache_misses_total"] != 1 {
		t.Fatalf("expected 1 cache miss, got %v", got["better_gmc_cache_misses_total"])
	}
	if got["better_gmc_gc_entries_removed_total"] != 2 {
		t.Fatalf("expected 2 gc entries removed, got %v", got["better_gmc_gc_entries_removed_total"])
	}
	if got["better_gmc_gc_bytes_freed_total"] != 2048 {
		t.Fatalf("expected 2048 gc bytes freed, got %v", got["better_gmc_gc_bytes_freed_total"])
	}
}

func metricValue(m *dto.Metric) float64 {
	if c := m.GetCounter(); c != nil {
		return c.GetValue()
	}
	if h := m.GetHistogram(); h != nil {
		return float64(h.GetSampleCount())
	}
	return 0
}
