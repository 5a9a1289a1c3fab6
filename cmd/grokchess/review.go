package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/park285/grok-chess/internal/domain"
	"github.com/park285/grok-chess/internal/record"
	"github.com/park285/grok-chess/internal/review"
	"github.com/park285/grok-chess/internal/rules"
)

var reviewCmd = &cobra.Command{
	Use:   "review <file.pgn>",
	Short: "Classify every move of a PGN game",
	Long: `Evaluate each position of the game with the configured engine and
label every move as best, good, inaccuracy, mistake or blunder by the
centipawns the mover gave away. Requires ENGINE_PATH.`,
	Args: cobra.ExactArgs(1),
	RunE: runReview,
}

func init() {
	rootCmd.AddCommand(reviewCmd)
}

func runReview(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	rec, err := record.ReadPGN(f)
	f.Close()
	if err != nil {
		return fmt.Errorf("read %s: %w", args[0], err)
	}

	ctx := cmd.Context()
	rt, err := start(ctx)
	if err != nil {
		return err
	}
	defer rt.stop()

	reviewer, err := rt.deps.Reviewer(nil)
	if err != nil {
		return err
	}
	outcomes, err := reviewer.Review(ctx, rec)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s vs %s (%d plies)\n", rec.White, rec.Black, len(rec.Plies))
	if op, ok := rules.IdentifyOpening(rec.StartFEN, rules.PlyMoves(rec.Plies)); ok {
		fmt.Fprintf(out, "Opening: %s %s\n", op.Code, op.Name)
	}
	fmt.Fprintln(out)
	if err := review.WriteReport(out, outcomes); err != nil {
		return err
	}
	sides := review.BySide(outcomes)
	for _, side := range []domain.Side{domain.White, domain.Black} {
		s := sides[side]
		fmt.Fprintf(out, "%s: %d inaccuracies, %d mistakes, %d blunders\n", side,
			s.Counts[domain.Inaccuracy], s.Counts[domain.Mistake], s.Counts[domain.Blunder])
	}
	return nil
}
