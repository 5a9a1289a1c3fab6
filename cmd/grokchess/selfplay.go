package main

import (
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"

	"github.com/park285/grok-chess/internal/builder"
	"github.com/park285/grok-chess/internal/domain"
	"github.com/park285/grok-chess/internal/harness"
	"github.com/park285/grok-chess/internal/record"
)

var (
	selfplayGames       int
	selfplayMaxPlies    int
	selfplayConcurrency int
	selfplayReview      bool
	selfplayMetrics     bool
	selfplayPGNDir      string
	selfplayBlack       []string
)

var selfplayCmd = &cobra.Command{
	Use:   "selfplay",
	Short: "Play the source chain against itself and report statistics",
	Long: `Run complete games where both sides are resolved by the move
orchestrator, then print outcomes, transposition cache hit rate and
per-source latency and failure counts.

Zero for --games, --max-plies or --concurrency keeps the configured value.`,
	Args: cobra.NoArgs,
	RunE: runSelfplay,
}

func init() {
	f := selfplayCmd.Flags()
	f.IntVarP(&selfplayGames, "games", "n", 0, "number of games")
	f.IntVar(&selfplayMaxPlies, "max-plies", 0, "abort a game after this many plies")
	f.IntVar(&selfplayConcurrency, "concurrency", 0, "games played in parallel")
	f.BoolVar(&selfplayReview, "review", false, "classify every move after each game (needs an engine)")
	f.BoolVar(&selfplayMetrics, "metrics", false, "print the Prometheus metrics after the run")
	f.StringVar(&selfplayPGNDir, "pgn-dir", "", "write each finished game as <id>.pgn into this directory")
	f.StringSliceVar(&selfplayBlack, "black", nil, "source chain for Black, e.g. engine,random (default: same as White)")
	rootCmd.AddCommand(selfplayCmd)
}

func runSelfplay(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	rt, err := start(ctx)
	if err != nil {
		return err
	}
	defer rt.stop()

	h, err := rt.deps.Harness(builder.HarnessOptions{
		Games:       selfplayGames,
		MaxPlies:    selfplayMaxPlies,
		Concurrency: selfplayConcurrency,
		Review:      selfplayReview,
		BlackChain:  selfplayBlack,
	})
	if err != nil {
		return err
	}
	results, err := h.Run(ctx)
	if err != nil {
		return fmt.Errorf("self-play: %w", err)
	}

	out := cmd.OutOrStdout()
	harness.Summarize(results).Write(out)
	if selfplayPGNDir != "" {
		if err := writePGNs(out, selfplayPGNDir, results); err != nil {
			return err
		}
	}
	if selfplayMetrics {
		return writeMetrics(out, rt.registry)
	}
	return nil
}

func writePGNs(w io.Writer, dir string, results []domain.SimulationResult) error {
	for _, r := range results {
		if r.Record == nil {
			continue
		}
		path, err := record.WriteFile(dir, r.Record)
		if err != nil {
			return fmt.Errorf("write pgn: %w", err)
		}
		fmt.Fprintf(w, "game %d: %s\n", r.Game, path)
	}
	return nil
}

func writeMetrics(w io.Writer, reg prometheus.Gatherer) error {
	mfs, err := reg.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	fmt.Fprintln(w)
	for _, mf := range mfs {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}
