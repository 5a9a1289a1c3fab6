package harness

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/park285/grok-chess/internal/domain"
	"gonum.org/v1/gonum/stat"
)

// SourceSummary aggregates one source over all games.
type SourceSummary struct {
	Name        string
	Attempts    int64
	Successes   int64
	Timeouts    int64
	Invalid     int64
	Unavailable int64
	MeanLatency time.Duration
	StdLatency  time.Duration
}

type Summary struct {
	Games        int
	Outcomes     map[domain.Outcome]int
	CacheHits    int64
	CacheMisses  int64
	CacheWrites  int64
	HitRate      float64
	MeanDecision time.Duration
	MeanPlies    float64
	Sources      []SourceSummary
	Review       map[domain.Classification]int
}

func Summarize(results []domain.SimulationResult) Summary {
	s := Summary{
		Games:    len(results),
		Outcomes: make(map[domain.Outcome]int),
		Review:   make(map[domain.Classification]int),
	}
	var all domain.OrchestratorStats
	plies := make([]float64, 0, len(results))
	for _, r := range results {
		s.Outcomes[r.Outcome]++
		all = all.Merge(r.Stats)
		plies = append(plies, float64(r.Plies))
		for c, n := range r.Review {
			s.Review[c] += n
		}
	}

	s.CacheHits, s.CacheMisses, s.CacheWrites = all.CacheHits, all.CacheMisses, all.CacheWrites
	if lookups := all.CacheHits + all.CacheMisses; lookups > 0 {
		s.HitRate = float64(all.CacheHits) / float64(lookups)
	}
	if len(plies) > 0 {
		s.MeanPlies = stat.Mean(plies, nil)
	}
	s.MeanDecision, _ = meanStd(all.Decision)

	for name, st := range all.Sources {
		mean, std := meanStd(st.Latencies)
		s.Sources = append(s.Sources, SourceSummary{
			Name:        name,
			Attempts:    st.Attempts,
			Successes:   st.Successes,
			Timeouts:    st.Timeouts,
			Invalid:     st.Invalid,
			Unavailable: st.Unavailable,
			MeanLatency: mean,
			StdLatency:  std,
		})
	}
	sort.Slice(s.Sources, func(i, j int) bool { return s.Sources[i].Name < s.Sources[j].Name })
	return s
}

func meanStd(ds []time.Duration) (time.Duration, time.Duration) {
	if len(ds) == 0 {
		return 0, 0
	}
	xs := make([]float64, len(ds))
	for i, d := range ds {
		xs[i] = float64(d)
	}
	if len(xs) == 1 {
		return ds[0], 0
	}
	mean, std := stat.MeanStdDev(xs, nil)
	return time.Duration(mean), time.Duration(std)
}

// Write prints the summary as a plain text report.
func (s Summary) Write(w io.Writer) {
	fmt.Fprintf(w, "Self-play: %d games\n\n", s.Games)
	fmt.Fprintln(w, "Outcomes")
	for _, o := range []domain.Outcome{domain.OutcomeWhiteWin, domain.OutcomeBlackWin, domain.OutcomeDraw, domain.OutcomeAborted} {
		fmt.Fprintf(w, "  %-10s %d\n", o, s.Outcomes[o])
	}
	fmt.Fprintf(w, "  mean plies %.1f\n\n", s.MeanPlies)

	fmt.Fprintln(w, "Transposition cache")
	fmt.Fprintf(w, "  hits %d  misses %d  writes %d  hit rate %.1f%%\n\n", s.CacheHits, s.CacheMisses, s.CacheWrites, s.HitRate*100)

	fmt.Fprintln(w, "Sources")
	fmt.Fprintln(w, "  name       attempts  ok  timeout  invalid  unavailable  mean latency  stddev")
	for _, src := range s.Sources {
		fmt.Fprintf(w, "  %-10s %8d %3d %8d %8d %12d  %12s  %s\n",
			src.Name, src.Attempts, src.Successes, src.Timeouts, src.Invalid, src.Unavailable,
			src.MeanLatency.Round(time.Microsecond), src.StdLatency.Round(time.Microsecond))
	}
	fmt.Fprintf(w, "\nMean decision latency: %s\n", s.MeanDecision.Round(time.Microsecond))

	if len(s.Review) > 0 {
		fmt.Fprintln(w, "\nMove quality")
		for c := domain.Best; c <= domain.Blunder; c++ {
			fmt.Fprintf(w, "  %-10s %d\n", c, s.Review[c])
		}
	}
}
