// Package review labels played moves by how much they worsened the
// evaluation for the side that made them.
package review

import (
	"fmt"

	"github.com/park285/grok-chess/internal/domain"
)

// Thresholds are centipawn losses at which a move becomes an inaccuracy,
// a mistake and a blunder.
type Thresholds struct {
	Inaccuracy int
	Mistake    int
	Blunder    int
}

func DefaultThresholds() Thresholds {
	return Thresholds{Inaccuracy: 50, Mistake: 100, Blunder: 300}
}

func (t Thresholds) Validate() error {
	switch {
	case t.Inaccuracy <= 0:
		return fmt.Errorf("inaccuracy threshold must be > 0: %d", t.Inaccuracy)
	case t.Mistake < t.Inaccuracy:
		return fmt.Errorf("mistake threshold (%d) must not be below inaccuracy (%d)", t.Mistake, t.Inaccuracy)
	case t.Blunder < t.Mistake:
		return fmt.Errorf("blunder threshold (%d) must not be below mistake (%d)", t.Blunder, t.Mistake)
	}
	return nil
}

// Loss is the evaluation drop in centipawns for the side that moved.
// Positive means the move made things worse for the mover.
func Loss(pre, post int, mover domain.Side) int {
	if mover == domain.White {
		return pre - post
	}
	return post - pre
}

// Label maps a loss onto a classification. Losses up to zero are Best.
func (t Thresholds) Label(loss int) domain.Classification {
	switch {
	case loss > t.Blunder:
		return domain.Blunder
	case loss >= t.Mistake:
		return domain.Mistake
	case loss >= t.Inaccuracy:
		return domain.Inaccuracy
	case loss > 0:
		return domain.Good
	default:
		return domain.Best
	}
}

// Classify labels one move from its surrounding evaluations. ok is false
// when either evaluation is unavailable; such a move has no label.
func (t Thresholds) Classify(pre, post domain.EvaluationRecord, mover domain.Side) (c domain.Classification, loss int, ok bool) {
	if !pre.Available() || !post.Available() {
		return 0, 0, false
	}
	loss = Loss(pre.ScoreCP, post.ScoreCP, mover)
	return t.Label(loss), loss, true
}
