// Package grokchessfx provides fx modules that assemble the game
// dependencies from configuration.
package grokchessfx

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/park285/grok-chess/internal/builder"
	"github.com/park285/grok-chess/internal/config"
	"github.com/park285/grok-chess/internal/stats"
	"github.com/park285/grok-chess/internal/stats/logger"
	promstats "github.com/park285/grok-chess/internal/stats/prometheus"
)

// Module provides *builder.Deps with metrics exported to a private
// Prometheus registry. Requires *config.AppConfig and *zap.Logger.
var Module = fx.Module("grokchess",
	fx.Provide(
		prometheus.NewRegistry,
		newPrometheusCollector,
		newDeps,
	),
)

// LoggingModule is Module with metrics written to the log instead.
var LoggingModule = fx.Module("grokchess.logging",
	fx.Provide(
		newLogCollector,
		newDeps,
	),
)

// ConfigModule loads *config.AppConfig from the environment.
var ConfigModule = fx.Module("grokchess.config",
	fx.Provide(config.Load),
)

func newPrometheusCollector(reg *prometheus.Registry) stats.Collector {
	return promstats.New(reg)
}

func newLogCollector(log *zap.Logger) stats.Collector {
	return logger.New(log.Named("grokchess.stats"))
}

type Params struct {
	fx.In

	Config    *config.AppConfig
	Logger    *zap.Logger
	Collector stats.Collector
	Lifecycle fx.Lifecycle
}

func newDeps(p Params) (*builder.Deps, error) {
	deps, err := builder.New(p.Config, p.Logger, p.Collector)
	if err != nil {
		return nil, err
	}
	p.Lifecycle.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return deps.Close()
		},
	})
	return deps, nil
}
