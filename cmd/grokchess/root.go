package main

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/park285/grok-chess/fx/grokchessfx"
	"github.com/park285/grok-chess/internal/builder"
	"github.com/park285/grok-chess/internal/config"
	"github.com/park285/grok-chess/internal/obslog"
)

var (
	// Global flags.
	verbose bool
	logJSON bool
)

var rootCmd = &cobra.Command{
	Use:   "grokchess",
	Short: "Play chess against a language model backed by an engine and a random fallback",
	Long: `grokchess picks every move from an ordered chain of sources: a
language-model service, a UCI engine and a uniform random backstop.
Configuration comes from the environment or a .env file.

Examples:
  # Play Black against the configured chain
  grokchess play --color black

  # Run ten self-play games and print metrics
  grokchess selfplay --games 10 --metrics

  # Classify the moves of a finished game
  grokchess review game.pgn`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log at debug level")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "write logs as JSON")
}

// runner holds everything a command needs once the fx graph has started.
type runner struct {
	cfg      *config.AppConfig
	logger   *zap.Logger
	deps     *builder.Deps
	registry *prometheus.Registry
	app      *fx.App
}

func start(ctx context.Context) (*runner, error) {
	rt := &runner{}
	rt.app = fx.New(
		fx.NopLogger,
		grokchessfx.ConfigModule,
		fx.Decorate(applyFlags),
		fx.Provide(newLogger),
		grokchessfx.Module,
		fx.Populate(&rt.cfg, &rt.logger, &rt.deps, &rt.registry),
	)
	if err := rt.app.Start(ctx); err != nil {
		return nil, fmt.Errorf("start: %w", err)
	}
	return rt, nil
}

// applyFlags lets global flags override the environment.
func applyFlags(cfg *config.AppConfig) *config.AppConfig {
	if verbose {
		cfg.Log.Level = "debug"
	}
	if logJSON {
		cfg.Log.Format = "json"
	}
	return cfg
}

func newLogger(lc fx.Lifecycle, cfg *config.AppConfig) (*zap.Logger, error) {
	logger, closeLog, err := obslog.Init(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return closeLog()
		},
	})
	return logger, nil
}

func (rt *runner) stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rt.app.Stop(ctx); err != nil {
		rt.logger.Warn("shutdown failed", zap.Error(err))
	}
}
