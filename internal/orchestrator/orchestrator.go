package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/park285/grok-chess/internal/cache"
	"github.com/park285/grok-chess/internal/domain"
	"github.com/park285/grok-chess/internal/source"
	"github.com/park285/grok-chess/internal/stats"
	"go.uber.org/zap"
)

const (
	DefaultTimeout = 10 * time.Second

	// SourceCache names decisions served from the transposition cache.
	SourceCache = "cache"
)

type Config struct {
	// Sources in priority order. A uniform random source is appended when
	// the chain does not already end with one.
	Sources   []source.Source
	Timeout   time.Duration
	Seed      int64
	Collector stats.Collector
	Logger    *zap.Logger
}

// Decision is the move resolved for one turn and who produced it.
type Decision struct {
	Move     domain.Move
	Source   string
	CacheHit bool
	Latency  time.Duration
}

// Orchestrator resolves exactly one legal move per turn by walking its
// source chain. The first source to return a legal move wins.
type Orchestrator struct {
	sources   []source.Source
	timeout   time.Duration
	collector stats.Collector
	logger    *zap.Logger

	mu    sync.Mutex
	stats domain.OrchestratorStats
}

func New(cfg Config) *Orchestrator {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Collector == nil {
		cfg.Collector = stats.NewNoop()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	chain := make([]source.Source, 0, len(cfg.Sources)+1)
	for _, s := range cfg.Sources {
		if s != nil {
			chain = append(chain, s)
		}
	}
	if len(chain) == 0 {
		chain = append(chain, source.NewRandom(cfg.Seed))
	} else if _, ok := chain[len(chain)-1].(*source.Random); !ok {
		chain = append(chain, source.NewRandom(cfg.Seed))
	}
	return &Orchestrator{
		sources:   chain,
		timeout:   cfg.Timeout,
		collector: cfg.Collector,
		logger:    cfg.Logger,
		stats:     domain.OrchestratorStats{Sources: make(map[string]domain.SourceStats)},
	}
}

// Chain lists the source names in the order they are consulted.
func (o *Orchestrator) Chain() []string {
	names := make([]string, 0, len(o.sources))
	for _, s := range o.sources {
		names = append(names, s.Name())
	}
	return names
}

// SelectMove resolves the move for pos using the caller's caches. It must
// not be called on a position without legal moves; doing so returns
// ErrNoLegalMoves. A cancelled ctx aborts the turn with ctx.Err() and
// nothing is written to the caches.
func (o *Orchestrator) SelectMove(ctx context.Context, caches *cache.Set, pos domain.Position, history []string) (Decision, error) {
	start := time.Now()

	legal, err := caches.Legal.Moves(pos)
	if err != nil {
		return Decision{}, fmt.Errorf("legal moves: %w", err)
	}
	if len(legal) == 0 {
		o.logger.Error("move requested for a position without legal moves", zap.String("fen", string(pos)))
		return Decision{}, domain.ErrNoLegalMoves
	}

	if d, ok := o.lookup(ctx, caches.TT, pos, legal); ok {
		d.Latency = time.Since(start)
		o.recordDecision(d.Latency)
		return d, nil
	}

	req := source.Request{Position: pos, Legal: legal, Budget: o.timeout, History: history}
	for _, src := range o.sources {
		if err := ctx.Err(); err != nil {
			return Decision{}, err
		}
		name := src.Name()
		attemptStart := time.Now()
		mv, err := src.Propose(ctx, req)
		latency := time.Since(attemptStart)

		if ctxErr := ctx.Err(); ctxErr != nil {
			o.logger.Debug("turn cancelled during source call", zap.String("source", name), zap.String("fen", string(pos)))
			return Decision{}, ctxErr
		}
		if err == nil {
			var ok bool
			if mv, ok = member(legal, mv); !ok {
				err = fmt.Errorf("%w: %s proposed %q", domain.ErrAdapterInvalidResponse, name, mv.UCI)
			}
		}
		if err != nil {
			o.recordFailure(name, latency, err)
			o.logger.Info("move source failed",
				zap.String("source", name),
				zap.String("outcome", failureKind(err)),
				zap.Duration("latency", latency),
				zap.String("fen", string(pos)),
				zap.Error(err),
			)
			continue
		}

		o.recordSuccess(name, latency)
		if source.IsCacheable(src) {
			o.store(ctx, caches.TT, pos, mv)
		}
		d := Decision{Move: mv, Source: name, Latency: time.Since(start)}
		o.recordDecision(d.Latency)
		o.logger.Debug("move resolved",
			zap.String("source", name),
			zap.String("outcome", "success"),
			zap.Duration("latency", latency),
			zap.String("fen", string(pos)),
			zap.String("move", mv.UCI),
		)
		return d, nil
	}

	// unreachable while the chain ends with the random source
	return Decision{}, fmt.Errorf("%w: every source failed", domain.ErrAdapterUnavailable)
}

func (o *Orchestrator) lookup(ctx context.Context, tt *cache.Transposition, pos domain.Position, legal []domain.Move) (Decision, bool) {
	mv, ok, err := tt.Get(ctx, pos)
	if err != nil {
		o.logger.Warn("transposition lookup failed", zap.String("fen", string(pos)), zap.Error(err))
	}
	if ok {
		mv, ok = member(legal, mv)
	}

	o.mu.Lock()
	if ok {
		o.stats.CacheHits++
	} else {
		o.stats.CacheMisses++
	}
	o.mu.Unlock()

	if !ok {
		o.collector.IncCounter(stats.MetricTTMisses, 1)
		return Decision{}, false
	}
	o.collector.IncCounter(stats.MetricTTHits, 1)
	o.logger.Debug("move resolved",
		zap.String("source", SourceCache),
		zap.String("outcome", "hit"),
		zap.String("fen", string(pos)),
		zap.String("move", mv.UCI),
	)
	return Decision{Move: mv, Source: SourceCache, CacheHit: true}, true
}

func (o *Orchestrator) store(ctx context.Context, tt *cache.Transposition, pos domain.Position, mv domain.Move) {
	if ctx.Err() != nil {
		return
	}
	if err := tt.Put(ctx, pos, mv); err != nil {
		o.logger.Warn("transposition write failed", zap.String("fen", string(pos)), zap.Error(err))
		return
	}
	o.mu.Lock()
	o.stats.CacheWrites++
	o.mu.Unlock()
	o.collector.IncCounter(stats.MetricTTWrites, 1)
}

func member(legal []domain.Move, mv domain.Move) (domain.Move, bool) {
	for _, l := range legal {
		if l.UCI == mv.UCI {
			return l, true
		}
	}
	return mv, false
}

func failureKind(err error) string {
	switch {
	case errors.Is(err, domain.ErrAdapterTimeout):
		return "timeout"
	case errors.Is(err, domain.ErrAdapterInvalidResponse):
		return "invalid"
	default:
		return "unavailable"
	}
}
