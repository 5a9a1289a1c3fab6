// Package logger provides a zap-based stats collector that logs metrics.
package logger

import (
	"go.uber.org/zap"

	"github.com/park285/grok-chess/internal/stats"
)

// Collector implements stats.Collector by logging metrics via zap.
type Collector struct {
	logger *zap.Logger
}

var _ stats.Collector = (*Collector)(nil)

// New creates a logger-based collector. A nil logger discards everything.
func New(logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Collector{logger: logger}
}

func (c *Collector) IncCounter(name string, delta int64, labels ...stats.Label) {
	c.logger.Debug("counter", append(labelFields(labels),
		zap.String("metric", name),
		zap.Int64("delta", delta),
	)...)
}

func (c *Collector) SetGauge(name string, value int64, labels ...stats.Label) {
	c.logger.Debug("gauge", append(labelFields(labels),
		zap.String("metric", name),
		zap.Int64("value", value),
	)...)
}

func (c *Collector) ObserveHistogram(name string, value float64, labels ...stats.Label) {
	c.logger.Debug("histogram", append(labelFields(labels),
		zap.String("metric", name),
		zap.Float64("value", value),
	)...)
}

func labelFields(labels []stats.Label) []zap.Field {
	fields := make([]zap.Field, 0, len(labels)+2)
	for _, l := range labels {
		fields = append(fields, zap.String(l.Key, l.Value))
	}
	return fields
}
