// Package main provides the grokchess CLI: play against the move
// orchestrator, run self-play, or review a PGN file.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/park285/grok-chess/internal/obslog"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		obslog.L().Error("command failed", zap.Error(err))
		os.Exit(1)
	}
}
