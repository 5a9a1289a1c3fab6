// Package builder wires configuration into the engine, language model,
// caches and sessions.
package builder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/park285/grok-chess/internal/cache"
	"github.com/park285/grok-chess/internal/config"
	"github.com/park285/grok-chess/internal/domain"
	"github.com/park285/grok-chess/internal/engine"
	"github.com/park285/grok-chess/internal/harness"
	"github.com/park285/grok-chess/internal/llm"
	"github.com/park285/grok-chess/internal/orchestrator"
	"github.com/park285/grok-chess/internal/prompt"
	"github.com/park285/grok-chess/internal/record"
	"github.com/park285/grok-chess/internal/review"
	"github.com/park285/grok-chess/internal/rules"
	"github.com/park285/grok-chess/internal/session"
	"github.com/park285/grok-chess/internal/source"
	"github.com/park285/grok-chess/internal/stats"
)

type Deps struct {
	Config    *config.AppConfig
	Logger    *zap.Logger
	Collector stats.Collector

	Prompts     *prompt.Catalog
	LLM         *llm.Client // nil when no API key is configured
	Commentator *llm.Commentator
	Engine      *engine.Engine // nil when no engine is configured
	Redis       *redis.Client  // nil when transposition entries stay in memory
	Records     *record.Store

	Sources []source.Source
}

func New(cfg *config.AppConfig, logger *zap.Logger, collector stats.Collector) (*Deps, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if collector == nil {
		collector = stats.NewNoop()
	}

	prompts, err := prompt.New(cfg.LLM.PromptDir)
	if err != nil {
		return nil, fmt.Errorf("load prompts: %w", err)
	}
	d := &Deps{
		Config:    cfg,
		Logger:    logger,
		Collector: collector,
		Prompts:   prompts,
		Records:   record.NewStore(),
	}

	if cfg.LLM.Enabled() {
		d.LLM = llm.NewClient(cfg.LLM.BaseURL, cfg.LLM.APIKey,
			llm.WithTimeout(cfg.AdapterTimeout),
			llm.WithMaxConnsPerHost(cfg.LLM.MaxConns),
		)
		params := d.llmParams()
		d.Commentator = llm.NewCommentator(d.LLM, prompts, params, logger.Named("commentary"))
		d.Sources = append(d.Sources, source.NewLLM(d.LLM, prompts, params, cfg.LLM.Difficulty, logger.Named("llm")))
	} else {
		logger.Info("language model disabled: no API key configured")
	}

	if cfg.Engine.Enabled() {
		eng, err := engine.New(engine.Config{
			BinaryPath:     cfg.Engine.Path,
			Depth:          cfg.Engine.Depth,
			Threads:        cfg.Engine.Threads,
			HashMB:         cfg.Engine.HashMB,
			MoveOverheadMS: cfg.Engine.MoveOverheadMS,
			PoolSize:       cfg.Engine.PoolSize,
			Logger:         logger.Named("engine"),
		})
		if err != nil {
			// engine features degrade instead of failing startup
			logger.Warn("engine disabled", zap.String("path", cfg.Engine.Path), zap.Error(err))
		} else {
			d.Engine = eng
			d.Sources = append(d.Sources, source.NewEngine(eng, cfg.Engine.Depth))
		}
	} else {
		logger.Info("engine disabled: no engine path configured")
	}

	if cfg.RedisURL != "" {
		rdb, err := cache.NewRedisClient(cfg.RedisURL)
		if err != nil {
			_ = d.Close()
			return nil, fmt.Errorf("init redis: %w", err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			_ = d.Close()
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		d.Redis = rdb
	}
	return d, nil
}

func (d *Deps) llmParams() llm.Params {
	return llm.Params{
		Model:       d.Config.LLM.Model,
		Temperature: d.Config.LLM.Temperature,
		TopP:        d.Config.LLM.TopP,
		MaxTokens:   d.Config.LLM.MaxTokens,
	}
}

// Scorer returns the engine as an evaluation collaborator, or nil.
func (d *Deps) Scorer() cache.Scorer {
	if d.Engine == nil {
		return nil
	}
	return d.Engine
}

// Stores picks the transposition store for new sessions.
func (d *Deps) Stores() session.StoreFactory {
	if d.Redis != nil {
		rdb := d.Redis
		return func(id string) (cache.Store, error) { return cache.NewRedisStore(rdb, id), nil }
	}
	return session.MemoryStores(d.Config.TTCapacity)
}

func (d *Deps) Orchestrator(chain []source.Source) *orchestrator.Orchestrator {
	return orchestrator.New(orchestrator.Config{
		Sources:   chain,
		Timeout:   d.Config.AdapterTimeout,
		Seed:      d.Config.RandomSeed,
		Collector: d.Collector,
		Logger:    d.Logger.Named("orchestrator"),
	})
}

// NewSession starts a game where the configured chain plays the AI side.
func (d *Deps) NewSession(white, black string) (*session.Session, error) {
	var commentator session.Commentator
	if d.Commentator != nil {
		commentator = d.Commentator
	}
	return session.New(session.Config{
		White:        white,
		Black:        black,
		Orchestrator: d.Orchestrator(d.Sources),
		Scorer:       d.Scorer(),
		Stores:       d.Stores(),
		EvalInterval: d.Config.EvalRefreshInterval,
		Commentator:  commentator,
		Records:      d.Records,
		Logger:       d.Logger.Named("session"),
	})
}

// Reviewer scores moves through eval, or through a fresh evaluation cache
// over the engine when eval is nil.
func (d *Deps) Reviewer(eval review.Evaluator) (*review.Reviewer, error) {
	if eval == nil {
		if d.Engine == nil {
			return nil, fmt.Errorf("%w: review needs an engine, set ENGINE_PATH", domain.ErrEvaluationUnavailable)
		}
		eval = cache.NewEval(d.Engine, cache.EvalOptions{Interval: d.Config.EvalRefreshInterval, Logger: d.Logger})
	}
	return review.NewReviewer(eval, rules.NewBoard(), d.Config.Thresholds, d.Logger.Named("review"))
}

type HarnessOptions struct {
	Games       int
	MaxPlies    int
	Concurrency int
	Review      bool
	// BlackChain overrides the source chain for Black by name: llm, engine
	// or random.
	BlackChain []string
}

func (d *Deps) Harness(opts HarnessOptions) (*harness.Harness, error) {
	black, err := d.Chain(opts.BlackChain)
	if err != nil {
		return nil, err
	}
	return harness.New(harness.Config{
		Games:        firstPositive(opts.Games, d.Config.SelfPlay.Games),
		MaxPlies:     firstPositive(opts.MaxPlies, d.Config.SelfPlay.MaxPlies),
		Concurrency:  firstPositive(opts.Concurrency, d.Config.SelfPlay.Concurrency),
		White:        d.Sources,
		Black:        black,
		Timeout:      d.Config.AdapterTimeout,
		Seed:         d.Config.RandomSeed,
		Scorer:       d.Scorer(),
		Stores:       d.Stores(),
		EvalInterval: d.Config.EvalRefreshInterval,
		Review:       opts.Review,
		Thresholds:   d.Config.Thresholds,
		Records:      d.Records,
		Collector:    d.Collector,
		Logger:       d.Logger.Named("selfplay"),
	})
}

// Chain selects configured sources by name, keeping the given order.
func (d *Deps) Chain(names []string) ([]source.Source, error) {
	if len(names) == 0 {
		return nil, nil
	}
	byName := make(map[string]source.Source, len(d.Sources))
	for _, s := range d.Sources {
		byName[s.Name()] = s
	}
	out := make([]source.Source, 0, len(names))
	for _, n := range names {
		if n == "random" {
			out = append(out, source.NewRandom(d.Config.RandomSeed))
			continue
		}
		s, ok := byName[n]
		if !ok {
			return nil, fmt.Errorf("source %q is not configured", n)
		}
		out = append(out, s)
	}
	return out, nil
}

// Close releases the engine processes and the Redis client.
func (d *Deps) Close() error {
	var errs []error
	if d.Engine != nil {
		errs = append(errs, d.Engine.Close())
	}
	if d.Redis != nil {
		errs = append(errs, d.Redis.Close())
	}
	return errors.Join(errs...)
}

func firstPositive(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}
