package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/park285/grok-chess/internal/obslog"
	"github.com/park285/grok-chess/internal/review"
)

type EngineConfig struct {
	Path           string
	Depth          int
	Threads        int
	HashMB         int
	MoveOverheadMS int
	PoolSize       int
}

// Enabled reports whether an engine binary is configured.
func (c EngineConfig) Enabled() bool { return c.Path != "" }

type LLMConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	TopP        float64
	MaxTokens   int
	MaxConns    int
	Difficulty  string
	PromptDir   string
}

func (c LLMConfig) Enabled() bool { return c.APIKey != "" }

type SelfPlayConfig struct {
	Games       int
	MaxPlies    int
	Concurrency int
}

type AppConfig struct {
	Engine   EngineConfig
	LLM      LLMConfig
	SelfPlay SelfPlayConfig

	AdapterTimeout      time.Duration
	EvalRefreshInterval time.Duration
	Thresholds          review.Thresholds
	TTCapacity          int
	RedisURL            string
	RandomSeed          int64

	Log obslog.Options
}

func defaults() *AppConfig {
	return &AppConfig{
		Engine: EngineConfig{Depth: 12, Threads: 1, HashMB: 64, MoveOverheadMS: 100},
		LLM: LLMConfig{
			BaseURL:     "https://api.x.ai/v1",
			Model:       "grok-3",
			Temperature: 0.3,
			TopP:        0.9,
			MaxTokens:   16,
			MaxConns:    16,
			Difficulty:  "medium",
		},
		SelfPlay:            SelfPlayConfig{Games: 3, MaxPlies: 300, Concurrency: 1},
		AdapterTimeout:      10 * time.Second,
		EvalRefreshInterval: time.Second,
		Thresholds:          review.DefaultThresholds(),
		TTCapacity:          4096,
		Log: obslog.Options{
			Level:   "info",
			Console: true,
			File:    obslog.DefaultFile,
			Format:  "legacy",
		},
	}
}

// Load reads the environment once. A .env file in the working directory is
// applied first without overriding variables that are already set.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv builds the configuration from the process environment only.
func FromEnv() (*AppConfig, error) {
	cfg := defaults()

	cfg.Engine.Path = firstEnv("ENGINE_PATH", "STOCKFISH_PATH")
	setInt(&cfg.Engine.Depth, "ENGINE_DEPTH")
	setInt(&cfg.Engine.Threads, "ENGINE_THREADS")
	setInt(&cfg.Engine.HashMB, "ENGINE_HASH_MB")
	setInt(&cfg.Engine.MoveOverheadMS, "ENGINE_MOVE_OVERHEAD_MS")
	setInt(&cfg.Engine.PoolSize, "ENGINE_POOL_SIZE")

	if v := env("LLM_BASE_URL"); v != "" {
		cfg.LLM.BaseURL = strings.TrimRight(v, "/")
	}
	cfg.LLM.APIKey = firstEnv("LLM_API_KEY", "GROK_API_KEY")
	if v := env("LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	setFloat(&cfg.LLM.Temperature, "LLM_TEMPERATURE")
	setFloat(&cfg.LLM.TopP, "LLM_TOP_P")
	setInt(&cfg.LLM.MaxTokens, "LLM_MAX_TOKENS")
	setInt(&cfg.LLM.MaxConns, "LLM_MAX_CONNS")
	if v := env("LLM_DIFFICULTY"); v != "" {
		cfg.LLM.Difficulty = strings.ToLower(v)
	}
	cfg.LLM.PromptDir = env("PROMPT_DIR")

	if v := env("ADAPTER_TIMEOUT_SEC"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			cfg.AdapterTimeout = time.Duration(f * float64(time.Second))
		}
	}
	if v := env("EVAL_REFRESH_INTERVAL_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.EvalRefreshInterval = time.Duration(n) * time.Millisecond
		}
	}
	setInt(&cfg.Thresholds.Inaccuracy, "CLASSIFY_INACCURACY_CP")
	setInt(&cfg.Thresholds.Mistake, "CLASSIFY_MISTAKE_CP")
	setInt(&cfg.Thresholds.Blunder, "CLASSIFY_BLUNDER_CP")
	setInt(&cfg.TTCapacity, "TT_CAPACITY")
	cfg.RedisURL = env("REDIS_URL")

	setInt(&cfg.SelfPlay.Games, "SELFPLAY_GAMES")
	setInt(&cfg.SelfPlay.MaxPlies, "SELFPLAY_MAX_PLIES")
	setInt(&cfg.SelfPlay.Concurrency, "SELFPLAY_CONCURRENCY")
	if v := env("RANDOM_SEED"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.RandomSeed = n
		}
	}

	if v := env("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	setBool(&cfg.Log.Console, "LOG_TO_CONSOLE")
	setBool(&cfg.Log.ToFile, "LOG_TO_FILE")
	setBool(&cfg.Log.Caller, "LOG_CALLER")
	if v := env("LOG_FILE"); v != "" {
		cfg.Log.File = v
	}
	if v := env("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}

	if err := cfg.Thresholds.Validate(); err != nil {
		return nil, fmt.Errorf("classification thresholds: %w", err)
	}
	return cfg, nil
}

func env(k string) string { return strings.TrimSpace(os.Getenv(k)) }

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := env(k); v != "" {
			return v
		}
	}
	return ""
}

// Invalid or non-positive values keep the default.
func setInt(dst *int, key string) {
	if v := env(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			*dst = n
		}
	}
}

func setFloat(dst *float64, key string) {
	if v := env(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := env(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}
