package orchestrator

import (
	"time"

	"github.com/park285/grok-chess/internal/domain"
	"github.com/park285/grok-chess/internal/stats"
)

func (o *Orchestrator) recordSuccess(name string, latency time.Duration) {
	o.mu.Lock()
	st := o.stats.Sources[name]
	st.Attempts++
	st.Successes++
	st.Latencies = append(st.Latencies, latency)
	o.stats.Sources[name] = st
	o.mu.Unlock()

	o.collector.IncCounter(stats.MetricSourceAttempts, 1, stats.L("source", name))
	o.collector.IncCounter(stats.MetricSourceSuccesses, 1, stats.L("source", name))
	o.collector.ObserveHistogram(stats.MetricSourceLatency, latency.Seconds(), stats.L("source", name))
}

func (o *Orchestrator) recordFailure(name string, latency time.Duration, err error) {
	kind := failureKind(err)
	o.mu.Lock()
	st := o.stats.Sources[name]
	st.Attempts++
	switch kind {
	case "timeout":
		st.Timeouts++
	case "invalid":
		st.Invalid++
	default:
		st.Unavailable++
	}
	st.Latencies = append(st.Latencies, latency)
	o.stats.Sources[name] = st
	o.mu.Unlock()

	o.collector.IncCounter(stats.MetricSourceAttempts, 1, stats.L("source", name))
	o.collector.IncCounter(stats.MetricSourceFailures, 1, stats.L("source", name), stats.L("kind", kind))
	o.collector.ObserveHistogram(stats.MetricSourceLatency, latency.Seconds(), stats.L("source", name))
}

func (o *Orchestrator) recordDecision(latency time.Duration) {
	o.mu.Lock()
	o.stats.Decisions++
	o.stats.Decision = append(o.stats.Decision, latency)
	o.mu.Unlock()
	o.collector.ObserveHistogram(stats.MetricDecisionLatency, latency.Seconds())
}

// Stats returns a snapshot of the counters collected so far.
func (o *Orchestrator) Stats() domain.OrchestratorStats {
	o.mu.Lock()
	defer o.mu.Unlock()
	return domain.OrchestratorStats{}.Merge(o.stats)
}
