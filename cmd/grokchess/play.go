package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/park285/grok-chess/internal/builder"
	"github.com/park285/grok-chess/internal/domain"
	"github.com/park285/grok-chess/internal/record"
	"github.com/park285/grok-chess/internal/review"
	"github.com/park285/grok-chess/internal/session"
)

var playColor string

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Play a game in the terminal",
	Long: `Play a text game against the configured source chain.

Enter moves in SAN (Nf3) or UCI (g1f3). Other commands:
  moves     list legal moves
  fen       print the current position
  eval      evaluate the current position
  analysis  ask the language model to describe the position
  new       abandon the game and start again
  review    classify every move played so far
  pgn       print the game as PGN
  quit      leave`,
	Args: cobra.NoArgs,
	RunE: runPlay,
}

func init() {
	playCmd.Flags().StringVar(&playColor, "color", "white", "your side: white or black")
	rootCmd.AddCommand(playCmd)
}

func runPlay(cmd *cobra.Command, _ []string) error {
	human, err := parseColor(playColor)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	rt, err := start(ctx)
	if err != nil {
		return err
	}
	defer rt.stop()

	white, black := "You", "Grok"
	if human == domain.Black {
		white, black = black, white
	}
	sess, err := rt.deps.NewSession(white, black)
	if err != nil {
		return err
	}
	defer func() { _ = sess.Close(context.WithoutCancel(ctx)) }()

	p := newPlayer(rt.deps, sess, human, cmd.InOrStdin(), cmd.OutOrStdout())
	return p.loop(ctx)
}

func parseColor(s string) (domain.Side, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "white", "w":
		return domain.White, nil
	case "black", "b":
		return domain.Black, nil
	}
	return "", fmt.Errorf("unknown color %q: use white or black", s)
}

type player struct {
	deps  *builder.Deps
	sess  *session.Session
	human domain.Side
	in    *bufio.Scanner
	out   io.Writer

	announced bool
}

func newPlayer(deps *builder.Deps, sess *session.Session, human domain.Side, in io.Reader, out io.Writer) *player {
	return &player{deps: deps, sess: sess, human: human, in: bufio.NewScanner(in), out: out}
}

func (p *player) loop(ctx context.Context) error {
	fmt.Fprintf(p.out, "You play %s. Enter a move or one of: moves, fen, eval, analysis, new, review, pgn, quit.\n", p.human)
	for ctx.Err() == nil {
		if !p.sess.Finished() && p.sess.SideToMove() != p.human {
			if err := p.aiTurn(ctx); err != nil {
				return err
			}
			continue
		}
		if p.sess.Finished() && !p.announced {
			p.announce()
		}
		fmt.Fprint(p.out, "> ")
		if !p.in.Scan() {
			return p.in.Err()
		}
		quit, err := p.handle(ctx, strings.TrimSpace(p.in.Text()))
		if err != nil || quit {
			return err
		}
	}
	return nil
}

func (p *player) aiTurn(ctx context.Context) error {
	ply, err := p.sess.PlayAI(ctx)
	if err != nil {
		if ctx.Err() != nil || errors.Is(err, domain.ErrTurnCancelled) {
			return nil
		}
		return err
	}
	fmt.Fprintf(p.out, "Grok: %s %s [%s]\n", plyNumber(ply), ply.Move, ply.Source)
	p.showEval(ctx)
	return nil
}

func (p *player) handle(ctx context.Context, line string) (bool, error) {
	switch strings.ToLower(line) {
	case "":
	case "quit", "exit":
		return true, nil
	case "moves":
		legal := p.sess.LegalMoves()
		names := make([]string, len(legal))
		for i, mv := range legal {
			names[i] = mv.String()
		}
		fmt.Fprintln(p.out, strings.Join(names, " "))
	case "fen":
		fmt.Fprintln(p.out, p.sess.Position())
	case "eval":
		fmt.Fprintln(p.out, formatEval(p.sess.Evaluate(ctx)))
	case "analysis":
		fmt.Fprintln(p.out, p.sess.Commentary(ctx))
	case "new":
		if err := p.sess.Reset(ctx); err != nil {
			return false, err
		}
		p.announced = false
		fmt.Fprintln(p.out, "New game.")
	case "review":
		return false, p.review(ctx)
	case "pgn":
		fmt.Fprint(p.out, record.PGN(p.sess.Record()))
	default:
		p.humanTurn(ctx, line)
	}
	return false, nil
}

func (p *player) humanTurn(ctx context.Context, input string) {
	ply, err := p.sess.PlayHuman(ctx, input)
	switch {
	case errors.Is(err, domain.ErrGameOver):
		fmt.Fprintln(p.out, "The game is over. Type new, review, pgn or quit.")
	case errors.Is(err, domain.ErrIllegalMove):
		fmt.Fprintf(p.out, "Illegal move %q. Type moves to list legal moves.\n", input)
	case err != nil:
		fmt.Fprintf(p.out, "Move rejected: %v\n", err)
	default:
		fmt.Fprintf(p.out, "You: %s %s\n", plyNumber(ply), ply.Move)
	}
}

func (p *player) review(ctx context.Context) error {
	eval := p.sess.Caches().Eval
	if !eval.Enabled() {
		fmt.Fprintln(p.out, "Review needs an engine. Set ENGINE_PATH.")
		return nil
	}
	reviewer, err := p.deps.Reviewer(eval)
	if err != nil {
		return err
	}
	outcomes, err := reviewer.Review(ctx, p.sess.Record())
	if err != nil {
		return err
	}
	return review.WriteReport(p.out, outcomes)
}

func (p *player) showEval(ctx context.Context) {
	if !p.sess.Caches().Eval.Enabled() {
		return
	}
	fmt.Fprintln(p.out, formatEval(p.sess.Evaluate(ctx)))
}

func (p *player) announce() {
	p.announced = true
	rec := p.sess.Record()
	fmt.Fprintf(p.out, "Game over: %s by %s.\n", describeOutcome(rec.Outcome), rec.Method)
	id, err := p.sess.Archive(rec)
	if err != nil {
		p.deps.Logger.Warn("game not archived", zap.Error(err))
		return
	}
	p.deps.Logger.Info("game archived", zap.String("record", id), zap.String("outcome", string(rec.Outcome)))
}

func describeOutcome(o domain.Outcome) string {
	switch o {
	case domain.OutcomeWhiteWin:
		return "White wins"
	case domain.OutcomeBlackWin:
		return "Black wins"
	case domain.OutcomeDraw:
		return "Draw"
	}
	return string(o)
}

// plyNumber renders "12." for White and "12..." for Black.
func plyNumber(ply domain.Ply) string {
	n := (ply.Index + 1) / 2
	if fields := strings.Fields(string(ply.Before)); len(fields) == 6 {
		fmt.Sscanf(fields[5], "%d", &n)
	}
	if ply.Side == domain.Black {
		return fmt.Sprintf("%d...", n)
	}
	return fmt.Sprintf("%d.", n)
}

func formatEval(rec domain.EvaluationRecord) string {
	if rec.State == domain.EvalUnavailable {
		return "Evaluation unavailable."
	}
	var score string
	if math.Abs(float64(rec.ScoreCP)) >= 30000 {
		score = "mate for White"
		if rec.ScoreCP < 0 {
			score = "mate for Black"
		}
	} else {
		score = fmt.Sprintf("%+.2f", float64(rec.ScoreCP)/100)
	}
	out := fmt.Sprintf("Eval %s (depth %d", score, rec.Depth)
	if rec.BestMove != "" {
		out += ", best " + rec.BestMove
	}
	if rec.State == domain.EvalPendingRefresh {
		out += ", refreshing"
	}
	return out + ")"
}
