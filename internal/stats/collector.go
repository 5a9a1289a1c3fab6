// Package stats provides a unified interface for collecting metrics.
package stats

// Metric names used by the orchestrator and the self-play harness.
const (
	MetricTTHits   = "grokchess_tt_hits_total"
	MetricTTMisses = "grokchess_tt_misses_total"
	MetricTTWrites = "grokchess_tt_writes_total"

	MetricSourceAttempts  = "grokchess_source_attempts_total"
	MetricSourceSuccesses = "grokchess_source_successes_total"
	MetricSourceFailures  = "grokchess_source_failures_total"
	MetricSourceLatency   = "grokchess_source_latency_seconds"

	MetricDecisionLatency = "grokchess_decision_latency_seconds"
	MetricGames           = "grokchess_games_total"
	MetricGamePlies       = "grokchess_game_plies"
	MetricGamesInFlight   = "grokchess_games_in_flight"
)

// Label is one metric dimension. A metric name must always be used with the
// same label keys.
type Label struct {
	Key   string
	Value string
}

func L(key, value string) Label { return Label{Key: key, Value: value} }

// Collector defines the interface for collecting metrics.
type Collector interface {
	// IncCounter increments a counter metric by delta.
	IncCounter(name string, delta int64, labels ...Label)

	// SetGauge sets a gauge metric to value.
	SetGauge(name string, value int64, labels ...Label)

	// ObserveHistogram records a value in a histogram metric.
	ObserveHistogram(name string, value float64, labels ...Label)
}
