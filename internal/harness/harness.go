// Package harness plays complete games with the orchestrator on both sides
// and aggregates the results.
package harness

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/park285/grok-chess/internal/cache"
	"github.com/park285/grok-chess/internal/domain"
	"github.com/park285/grok-chess/internal/orchestrator"
	"github.com/park285/grok-chess/internal/record"
	"github.com/park285/grok-chess/internal/review"
	"github.com/park285/grok-chess/internal/rules"
	"github.com/park285/grok-chess/internal/session"
	"github.com/park285/grok-chess/internal/source"
	"github.com/park285/grok-chess/internal/stats"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultGames    = 3
	DefaultMaxPlies = 300
)

type Config struct {
	Games       int
	MaxPlies    int
	Concurrency int
	Start       domain.Position

	// White and Black are the source chains for each side. An empty Black
	// chain reuses White's.
	White   []source.Source
	Black   []source.Source
	Timeout time.Duration
	Seed    int64

	Scorer       cache.Scorer
	Stores       session.StoreFactory
	EvalInterval time.Duration

	Review     bool
	Thresholds review.Thresholds

	Records   *record.Store
	Collector stats.Collector
	Logger    *zap.Logger
}

type Harness struct {
	cfg    Config
	logger *zap.Logger

	mu       sync.Mutex
	inFlight int64
}

func New(cfg Config) (*Harness, error) {
	if cfg.Games <= 0 {
		cfg.Games = DefaultGames
	}
	if cfg.MaxPlies <= 0 {
		cfg.MaxPlies = DefaultMaxPlies
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.Collector == nil {
		cfg.Collector = stats.NewNoop()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Review {
		if cfg.Thresholds == (review.Thresholds{}) {
			cfg.Thresholds = review.DefaultThresholds()
		}
		if err := cfg.Thresholds.Validate(); err != nil {
			return nil, err
		}
	}
	return &Harness{cfg: cfg, logger: cfg.Logger}, nil
}

// Run plays every game and returns one result per game in game order.
func (h *Harness) Run(ctx context.Context) ([]domain.SimulationResult, error) {
	results := make([]domain.SimulationResult, h.cfg.Games)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(h.cfg.Concurrency)
	for i := 0; i < h.cfg.Games; i++ {
		g.Go(func() error {
			h.track(1)
			defer h.track(-1)
			res, err := h.playGame(gctx, i+1)
			if err != nil {
				return fmt.Errorf("game %d: %w", i+1, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// track reports the number of games being played right now.
func (h *Harness) track(delta int64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.inFlight += delta
	h.cfg.Collector.SetGauge(stats.MetricGamesInFlight, h.inFlight)
}

func (h *Harness) orchestrator(chain []source.Source, seed int64) *orchestrator.Orchestrator {
	return orchestrator.New(orchestrator.Config{
		Sources:   chain,
		Timeout:   h.cfg.Timeout,
		Seed:      seed,
		Collector: h.cfg.Collector,
		Logger:    h.logger,
	})
}

func (h *Harness) playGame(ctx context.Context, n int) (domain.SimulationResult, error) {
	start := time.Now()
	seed := h.cfg.Seed
	if seed != 0 {
		seed += int64(n) * 2
	}
	white := h.orchestrator(h.cfg.White, seed)
	var black *orchestrator.Orchestrator
	if len(h.cfg.Black) > 0 {
		black = h.orchestrator(h.cfg.Black, seed+1)
	}

	sess, err := session.New(session.Config{
		Start:             h.cfg.Start,
		White:             chainName(white),
		Black:             chainName(orDefault(black, white)),
		Orchestrator:      white,
		BlackOrchestrator: black,
		Scorer:            h.cfg.Scorer,
		Stores:            h.cfg.Stores,
		EvalInterval:      h.cfg.EvalInterval,
		Records:           h.cfg.Records,
		Logger:            h.logger,
	})
	if err != nil {
		return domain.SimulationResult{}, err
	}
	defer func() {
		if err := sess.Close(context.WithoutCancel(ctx)); err != nil {
			h.logger.Warn("session cleanup failed", zap.Error(err))
		}
	}()

	abort := ""
	for !sess.Finished() {
		if len(sess.Plies()) >= h.cfg.MaxPlies {
			abort = fmt.Sprintf("ply limit %d", h.cfg.MaxPlies)
			break
		}
		if _, err := sess.PlayAI(ctx); err != nil {
			if ctx.Err() != nil {
				return domain.SimulationResult{}, ctx.Err()
			}
			h.logger.Warn("game aborted on turn error", zap.Int("game", n), zap.Error(err))
			abort = err.Error()
			break
		}
	}

	rec := sess.Record()
	if abort != "" {
		rec.Outcome = domain.OutcomeAborted
		rec.Method = abort
	}
	res := domain.SimulationResult{
		Game:     n,
		Outcome:  rec.Outcome,
		Method:   rec.Method,
		Plies:    len(rec.Plies),
		Duration: time.Since(start),
		Stats:    sess.Stats(),
		Record:   rec,
	}

	if h.cfg.Review && sess.Caches().Eval.Enabled() {
		counts, err := h.review(ctx, sess, rec)
		if err != nil {
			return domain.SimulationResult{}, err
		}
		res.Review = counts
	}
	if h.cfg.Records != nil {
		if _, err := sess.Archive(rec); err != nil {
			h.logger.Warn("record not archived", zap.Error(err))
		}
	}

	h.cfg.Collector.IncCounter(stats.MetricGames, 1, stats.L("outcome", string(res.Outcome)))
	h.cfg.Collector.ObserveHistogram(stats.MetricGamePlies, float64(res.Plies))
	h.logger.Info("self-play game finished",
		zap.Int("game", n),
		zap.String("outcome", string(res.Outcome)),
		zap.String("method", res.Method),
		zap.Int("plies", res.Plies),
		zap.Duration("duration", res.Duration),
	)
	return res, nil
}

func (h *Harness) review(ctx context.Context, sess *session.Session, rec *domain.GameRecord) (map[domain.Classification]int, error) {
	reviewer, err := review.NewReviewer(sess.Caches().Eval, rules.NewBoard(), h.cfg.Thresholds, h.logger)
	if err != nil {
		return nil, err
	}
	outcomes, err := reviewer.Review(ctx, rec)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		h.logger.Warn("review failed", zap.Error(err))
	}
	return review.Summarize(outcomes).Counts, nil
}

func chainName(o *orchestrator.Orchestrator) string {
	return strings.Join(o.Chain(), ">")
}

func orDefault(o, fallback *orchestrator.Orchestrator) *orchestrator.Orchestrator {
	if o == nil {
		return fallback
	}
	return o
}
