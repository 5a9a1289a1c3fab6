package domain

import "time"

type Classification int

const (
	Best Classification = iota
	Good
	Inaccuracy
	Mistake
	Blunder
)

var classificationNames = [...]string{"best", "good", "inaccuracy", "mistake", "blunder"}

func (c Classification) String() string {
	if c < Best || c > Blunder {
		return "unknown"
	}
	return classificationNames[c]
}

// MoveOutcome is appended once per ply by review and never mutated.
// Analyzed is false when either evaluation was unavailable; Classification
// is meaningless in that case.
type MoveOutcome struct {
	Ply            int
	Move           Move
	Side           Side
	PreEval        EvaluationRecord
	PostEval       EvaluationRecord
	Analyzed       bool
	Classification Classification
	LossCP         int
	Suggested      string
}

// SourceStats are orchestrator counters for one move source.
type SourceStats struct {
	Attempts    int64
	Successes   int64
	Timeouts    int64
	Invalid     int64
	Unavailable int64
	Latencies   []time.Duration
}

func (s SourceStats) Failures() int64 { return s.Timeouts + s.Invalid + s.Unavailable }

type OrchestratorStats struct {
	CacheHits   int64
	CacheMisses int64
	CacheWrites int64
	Decisions   int64
	Decision    []time.Duration
	Sources     map[string]SourceStats
}

// Merge folds other into s and returns the result.
func (s OrchestratorStats) Merge(other OrchestratorStats) OrchestratorStats {
	out := OrchestratorStats{
		CacheHits:   s.CacheHits + other.CacheHits,
		CacheMisses: s.CacheMisses + other.CacheMisses,
		CacheWrites: s.CacheWrites + other.CacheWrites,
		Decisions:   s.Decisions + other.Decisions,
		Decision:    append(append([]time.Duration(nil), s.Decision...), other.Decision...),
		Sources:     make(map[string]SourceStats, len(s.Sources)+len(other.Sources)),
	}
	for name, st := range s.Sources {
		out.Sources[name] = st
	}
	for name, st := range other.Sources {
		cur := out.Sources[name]
		cur.Attempts += st.Attempts
		cur.Successes += st.Successes
		cur.Timeouts += st.Timeouts
		cur.Invalid += st.Invalid
		cur.Unavailable += st.Unavailable
		cur.Latencies = append(append([]time.Duration(nil), cur.Latencies...), st.Latencies...)
		out.Sources[name] = cur
	}
	return out
}

// SimulationResult is one self-play game.
type SimulationResult struct {
	Game     int
	Outcome  Outcome
	Method   string
	Plies    int
	Duration time.Duration
	Stats    OrchestratorStats
	Review   map[Classification]int
	Record   *GameRecord
}
