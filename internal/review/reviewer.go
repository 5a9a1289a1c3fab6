package review

import (
	"context"
	"fmt"

	"github.com/park285/grok-chess/internal/domain"
	"go.uber.org/zap"
)

// Evaluator is satisfied by the evaluation cache.
type Evaluator interface {
	Evaluate(ctx context.Context, pos domain.Position) domain.EvaluationRecord
}

// Notator renders an engine move in SAN for the position it was found in.
type Notator interface {
	SAN(pos domain.Position, uci string) (string, error)
}

type Reviewer struct {
	eval       Evaluator
	notation   Notator
	thresholds Thresholds
	logger     *zap.Logger
}

func NewReviewer(eval Evaluator, notation Notator, thresholds Thresholds, logger *zap.Logger) (*Reviewer, error) {
	if err := thresholds.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reviewer{eval: eval, notation: notation, thresholds: thresholds, logger: logger}, nil
}

func (r *Reviewer) Thresholds() Thresholds { return r.thresholds }

// Review produces exactly one outcome per ply in order. Plies whose
// evaluations are unavailable come back unanalyzed.
func (r *Reviewer) Review(ctx context.Context, rec *domain.GameRecord) ([]domain.MoveOutcome, error) {
	out := make([]domain.MoveOutcome, 0, len(rec.Plies))
	var prev domain.EvaluationRecord
	for i, ply := range rec.Plies {
		if err := ctx.Err(); err != nil {
			return out, fmt.Errorf("review interrupted at ply %d: %w", ply.Index, err)
		}
		pre := prev
		if i == 0 || pre.Position != ply.Before {
			pre = r.eval.Evaluate(ctx, ply.Before)
		}
		post := r.eval.Evaluate(ctx, ply.After)
		prev = post

		mo := domain.MoveOutcome{
			Ply:      ply.Index,
			Move:     ply.Move,
			Side:     ply.Side,
			PreEval:  pre,
			PostEval: post,
		}
		if c, loss, ok := r.thresholds.Classify(pre, post, ply.Side); ok {
			mo.Analyzed = true
			mo.Classification = c
			mo.LossCP = loss
			if c >= domain.Inaccuracy && pre.BestMove != "" && pre.BestMove != ply.Move.UCI {
				mo.Suggested = r.suggest(ply.Before, pre.BestMove)
			}
		}
		out = append(out, mo)
	}
	r.logger.Debug("game reviewed", zap.String("game", rec.ID), zap.Int("plies", len(out)))
	return out, nil
}

func (r *Reviewer) suggest(pos domain.Position, uci string) string {
	if r.notation == nil {
		return uci
	}
	san, err := r.notation.SAN(pos, uci)
	if err != nil {
		r.logger.Warn("suggested move not playable", zap.String("fen", string(pos)), zap.String("move", uci), zap.Error(err))
		return uci
	}
	return san
}

// Summary counts outcomes per classification.
type Summary struct {
	Counts     map[domain.Classification]int
	Unanalyzed int
	Blunders   []domain.MoveOutcome
}

func Summarize(outcomes []domain.MoveOutcome) Summary {
	s := Summary{Counts: make(map[domain.Classification]int)}
	for _, mo := range outcomes {
		if !mo.Analyzed {
			s.Unanalyzed++
			continue
		}
		s.Counts[mo.Classification]++
		if mo.Classification == domain.Blunder {
			s.Blunders = append(s.Blunders, mo)
		}
	}
	return s
}

// BySide splits the counts between the two players.
func BySide(outcomes []domain.MoveOutcome) map[domain.Side]Summary {
	split := map[domain.Side][]domain.MoveOutcome{}
	for _, mo := range outcomes {
		split[mo.Side] = append(split[mo.Side], mo)
	}
	out := make(map[domain.Side]Summary, len(split))
	for side, list := range split {
		out[side] = Summarize(list)
	}
	return out
}
