package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/park285/grok-chess/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const DefaultRefreshInterval = time.Second

// Scorer is the evaluation engine collaborator.
type Scorer interface {
	Score(ctx context.Context, pos domain.Position) (domain.EvaluationRecord, error)
}

type EvalOptions struct {
	Interval time.Duration
	Now      func() time.Time
	Logger   *zap.Logger
}

// Eval throttles engine evaluations. A record younger than the refresh
// interval is returned unchanged; an older or missing one is recomputed
// synchronously. Engine failures yield an unavailable record, never an error.
type Eval struct {
	scorer   Scorer
	interval time.Duration
	now      func() time.Time
	logger   *zap.Logger

	mu      sync.Mutex
	records map[domain.Position]domain.EvaluationRecord
	gen     uint64

	group singleflight.Group
	calls atomic.Int64
}

// NewEval returns an evaluation cache. A nil scorer means no engine is
// configured and every evaluation is unavailable.
func NewEval(scorer Scorer, opts EvalOptions) *Eval {
	if opts.Interval <= 0 {
		opts.Interval = DefaultRefreshInterval
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Eval{
		scorer:   scorer,
		interval: opts.Interval,
		now:      opts.Now,
		logger:   opts.Logger,
		records:  make(map[domain.Position]domain.EvaluationRecord),
	}
}

func (c *Eval) Enabled() bool { return c.scorer != nil }

func (c *Eval) Evaluate(ctx context.Context, pos domain.Position) domain.EvaluationRecord {
	if c.scorer == nil {
		return domain.Unavailable(pos)
	}

	c.mu.Lock()
	rec, ok := c.records[pos]
	gen := c.gen
	c.mu.Unlock()
	if ok && c.now().Sub(rec.ComputedAt) < c.interval {
		return rec
	}

	ch := c.group.DoChan(strconv.FormatUint(gen, 10)+"|"+string(pos), func() (any, error) {
		return c.refresh(ctx, pos, gen), nil
	})
	select {
	case <-ctx.Done():
		return domain.Unavailable(pos)
	case res := <-ch:
		return res.Val.(domain.EvaluationRecord)
	}
}

func (c *Eval) refresh(ctx context.Context, pos domain.Position, gen uint64) domain.EvaluationRecord {
	c.calls.Add(1)
	rec, err := c.scorer.Score(ctx, pos)
	if err != nil {
		if !errors.Is(err, domain.ErrEvaluationUnavailable) {
			err = fmt.Errorf("%w: %w", domain.ErrEvaluationUnavailable, err)
		}
		c.logger.Info("evaluation failed",
			zap.String("fen", string(pos)),
			zap.Error(err),
		)
		rec = domain.Unavailable(pos)
	} else {
		rec.Position = pos
		rec.State = domain.EvalFresh
	}
	rec.ComputedAt = c.now()

	if ctx.Err() != nil {
		return rec
	}
	c.mu.Lock()
	if c.gen == gen {
		c.records[pos] = rec
	}
	c.mu.Unlock()
	return rec
}

// Peek returns the last known record without calling the engine. A record
// older than the interval is reported as pending refresh.
func (c *Eval) Peek(pos domain.Position) (domain.EvaluationRecord, bool) {
	c.mu.Lock()
	rec, ok := c.records[pos]
	c.mu.Unlock()
	if !ok {
		return domain.Unavailable(pos), false
	}
	if rec.State == domain.EvalFresh && c.now().Sub(rec.ComputedAt) >= c.interval {
		rec.State = domain.EvalPendingRefresh
	}
	return rec, true
}

// Clear drops every record. In-flight refreshes started before Clear do not
// repopulate the cache.
func (c *Eval) Clear() {
	c.mu.Lock()
	c.records = make(map[domain.Position]domain.EvaluationRecord)
	c.gen++
	c.mu.Unlock()
}

func (c *Eval) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.records)
}

// Calls reports how many times the engine was consulted.
func (c *Eval) Calls() int64 { return c.calls.Load() }
