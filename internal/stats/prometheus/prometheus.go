// Package prometheus provides a Prometheus-based stats collector.
package prometheus

import (
	"errors"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/park285/grok-chess/internal/stats"
)

// Collector implements stats.Collector with labelled Prometheus vectors.
// The label keys of a metric are fixed by its first use.
type Collector struct {
	registry prometheus.Registerer

	mu         sync.Mutex
	counters   map[string]*prometheus.CounterVec
	gauges     map[string]*prometheus.GaugeVec
	histograms map[string]*prometheus.HistogramVec
}

var _ stats.Collector = (*Collector)(nil)

// New creates a Prometheus collector. A nil registry means the default one.
func New(registry prometheus.Registerer) *Collector {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	return &Collector{
		registry:   registry,
		counters:   make(map[string]*prometheus.CounterVec),
		gauges:     make(map[string]*prometheus.GaugeVec),
		histograms: make(map[string]*prometheus.HistogramVec),
	}
}

func (c *Collector) IncCounter(name string, delta int64, labels ...stats.Label) {
	keys, values := split(labels)
	c.mu.Lock()
	vec, ok := c.counters[name]
	if !ok {
		vec = prometheus.NewCounterVec(prometheus.CounterOpts{Name: name, Help: name}, keys)
		vec = register(c.registry, vec)
		c.counters[name] = vec
	}
	c.mu.Unlock()
	vec.WithLabelValues(values...).Add(float64(delta))
}

func (c *Collector) SetGauge(name string, value int64, labels ...stats.Label) {
	keys, values := split(labels)
	c.mu.Lock()
	vec, ok := c.gauges[name]
	if !ok {
		vec = prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: name, Help: name}, keys)
		vec = register(c.registry, vec)
		c.gauges[name] = vec
	}
	c.mu.Unlock()
	vec.WithLabelValues(values...).Set(float64(value))
}

func (c *Collector) ObserveHistogram(name string, value float64, labels ...stats.Label) {
	keys, values := split(labels)
	c.mu.Lock()
	vec, ok := c.histograms[name]
	if !ok {
		vec = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    name,
			Help:    name,
			Buckets: prometheus.DefBuckets,
		}, keys)
		vec = register(c.registry, vec)
		c.histograms[name] = vec
	}
	c.mu.Unlock()
	vec.WithLabelValues(values...).Observe(value)
}

// register returns the already registered vector when one exists.
func register[T prometheus.Collector](reg prometheus.Registerer, vec T) T {
	if err := reg.Register(vec); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing
			}
		}
	}
	return vec
}

func split(labels []stats.Label) ([]string, []string) {
	keys := make([]string, len(labels))
	values := make([]string, len(labels))
	for i, l := range labels {
		keys[i] = l.Key
		values[i] = l.Value
	}
	return keys, values
}
