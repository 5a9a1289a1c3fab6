package prometheus

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/park285/grok-chess/internal/stats"
)

func TestNew_DefaultRegistry(t *testing.T) {
	c := New(nil)
	if c.registry == nil {
		t.Fatal("registry should not be nil")
	}
}

func TestCollector_LabelledCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)

	c.IncCounter(stats.MetricSourceAttempts, 2, stats.L("source", "llm"))
	c.IncCounter(stats.MetricSourceAttempts, 3, stats.L("source", "llm"))
	c.IncCounter(stats.MetricSourceAttempts, 1, stats.L("source", "random"))

	vec := c.counters[stats.MetricSourceAttempts]
	if got := testutil.ToFloat64(vec.WithLabelValues("llm")); got != 5 {
		t.Fatalf("llm attempts = %v, want 5", got)
	}
	if got := testutil.ToFloat64(vec.WithLabelValues("random")); got != 1 {
		t.Fatalf("random attempts = %v, want 1", got)
	}
}

func TestCollector_GaugeAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)

	c.SetGauge("test_gauge", 42)
	c.ObserveHistogram(stats.MetricDecisionLatency, 0.25)
	c.ObserveHistogram(stats.MetricDecisionLatency, 0.75)

	if got := testutil.ToFloat64(c.gauges["test_gauge"].WithLabelValues()); got != 42 {
		t.Fatalf("gauge = %v, want 42", got)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	found := false
	for _, mf := range families {
		if mf.GetName() != stats.MetricDecisionLatency {
			continue
		}
		found = true
		h := mf.GetMetric()[0].GetHistogram()
		if h.GetSampleCount() != 2 || h.GetSampleSum() != 1.0 {
			t.Fatalf("histogram count=%d sum=%v", h.GetSampleCount(), h.GetSampleSum())
		}
	}
	if !found {
		t.Fatalf("histogram not registered")
	}
}

func TestCollector_SharedRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	a := New(reg)
	b := New(reg)
	a.IncCounter(stats.MetricTTHits, 1)
	b.IncCounter(stats.MetricTTHits, 1)

	n, err := testutil.GatherAndCount(reg, stats.MetricTTHits)
	if err != nil {
		t.Fatalf("GatherAndCount: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected one series, got %d", n)
	}
	if got := testutil.ToFloat64(a.counters[stats.MetricTTHits].WithLabelValues()); got != 2 {
		t.Fatalf("collectors on one registry must share the counter, got %v", got)
	}
}
