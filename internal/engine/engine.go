package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/park285/grok-chess/internal/chess/uci"
	"github.com/park285/grok-chess/internal/domain"
	"github.com/park285/grok-chess/internal/rules"
	"go.uber.org/zap"
)

const (
	DefaultDepth          = 12
	DefaultThreads        = 1
	DefaultHashMB         = 64
	DefaultMoveOverheadMS = 100
)

var ErrNoBestMove = errors.New("engine returned no move")

type Config struct {
	BinaryPath     string
	Depth          int
	Threads        int
	HashMB         int
	MoveOverheadMS int
	PoolSize       int
	Logger         *zap.Logger
}

// Analysis is one fixed-depth search. ScoreCP is from White's perspective.
type Analysis struct {
	BestMove  string
	ScoreCP   int
	Depth     int
	Mate      bool
	Principal []string
	Duration  time.Duration
}

// Engine is the evaluation engine collaborator, backed by a pool of UCI
// processes.
type Engine struct {
	pool   *uci.Pool
	opt    uci.Options
	depth  int
	logger *zap.Logger
}

func New(cfg Config) (*Engine, error) {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	opt := uci.Options{
		Threads:        positiveOr(cfg.Threads, DefaultThreads),
		HashMB:         positiveOr(cfg.HashMB, DefaultHashMB),
		MoveOverheadMS: cfg.MoveOverheadMS,
		MultiPV:        1,
	}
	if opt.MoveOverheadMS < 0 {
		opt.MoveOverheadMS = DefaultMoveOverheadMS
	}
	pool, err := uci.NewPool(uci.PoolConfig{
		BinaryPath: cfg.BinaryPath,
		Capacity:   cfg.PoolSize,
		Logger:     cfg.Logger,
	})
	if err != nil {
		return nil, err
	}
	return &Engine{
		pool:   pool,
		opt:    opt,
		depth:  positiveOr(cfg.Depth, DefaultDepth),
		logger: cfg.Logger,
	}, nil
}

func (e *Engine) Depth() int { return e.depth }

// Analyse searches fen to depth plies (the configured depth when depth <= 0).
func (e *Engine) Analyse(ctx context.Context, fen string, depth int) (Analysis, error) {
	if depth <= 0 {
		depth = e.depth
	}
	session, err := e.pool.Acquire(ctx, e.opt)
	if err != nil {
		return Analysis{}, fmt.Errorf("acquire engine session: %w", err)
	}
	var releaseErr error
	defer func() {
		e.pool.Release(session, releaseErr)
	}()

	start := time.Now()
	resp, err := session.Search(ctx, uci.SearchRequest{
		FEN:    fen,
		Limits: uci.Limits{Depth: depth},
	})
	if err != nil {
		releaseErr = err
		return Analysis{}, err
	}
	out, err := toAnalysis(fen, resp)
	if err != nil {
		return Analysis{}, err
	}
	out.Duration = time.Since(start)
	e.logger.Debug("engine analysis",
		zap.String("fen", fen),
		zap.String("best", out.BestMove),
		zap.Int("score_cp", out.ScoreCP),
		zap.Int("depth", out.Depth),
		zap.Duration("elapsed", out.Duration),
	)
	return out, nil
}

// Score implements cache.Scorer at the configured depth.
func (e *Engine) Score(ctx context.Context, pos domain.Position) (domain.EvaluationRecord, error) {
	a, err := e.Analyse(ctx, string(pos), e.depth)
	if errors.Is(err, ErrNoBestMove) {
		return terminalRecord(pos)
	}
	if err != nil {
		return domain.EvaluationRecord{}, fmt.Errorf("%w: %w", domain.ErrEvaluationUnavailable, err)
	}
	return domain.EvaluationRecord{
		Position: pos,
		ScoreCP:  a.ScoreCP,
		Depth:    a.Depth,
		BestMove: a.BestMove,
		State:    domain.EvalFresh,
	}, nil
}

func (e *Engine) Close() error { return e.pool.Close() }

func toAnalysis(fen string, resp uci.SearchResponse) (Analysis, error) {
	best := strings.ToLower(strings.TrimSpace(resp.BestMove))
	if best == "" {
		return Analysis{}, ErrNoBestMove
	}
	out := Analysis{BestMove: best}
	if cand, ok := resp.Best(); ok {
		out.ScoreCP = cand.EvalCP
		out.Depth = cand.Depth
		out.Mate = cand.Mate
		out.Principal = cand.Principal
	}
	if domain.Position(fen).Side() == domain.Black {
		out.ScoreCP = -out.ScoreCP
	}
	return out, nil
}

// terminalRecord scores positions the engine has no move for.
func terminalRecord(pos domain.Position) (domain.EvaluationRecord, error) {
	status, err := rules.NewBoard().Status(pos)
	if err != nil {
		return domain.EvaluationRecord{}, err
	}
	rec := domain.EvaluationRecord{Position: pos, State: domain.EvalFresh}
	switch status {
	case domain.TerminalCheckmate:
		rec.ScoreCP = uci.MateScore
		if pos.Side() == domain.White {
			rec.ScoreCP = -uci.MateScore
		}
	case domain.TerminalNone:
		return domain.EvaluationRecord{}, ErrNoBestMove
	}
	return rec, nil
}

func positiveOr(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}
