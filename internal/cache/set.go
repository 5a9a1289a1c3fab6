package cache

import (
	"context"
	"fmt"
)

// Set is the three caches owned by one game session.
type Set struct {
	Legal *Legal
	Eval  *Eval
	TT    *Transposition
}

// Clear empties all three caches. Callers serialize Clear with turns.
func (s *Set) Clear(ctx context.Context) error {
	s.Legal.Clear()
	s.Eval.Clear()
	if err := s.TT.Clear(ctx); err != nil {
		return fmt.Errorf("clear transposition cache: %w", err)
	}
	return nil
}

// NewSet wires the three caches of one session. The transposition entries
// live in store; a nil scorer disables evaluation.
func NewSet(gen MoveGenerator, scorer Scorer, store Store, opts EvalOptions) *Set {
	return &Set{
		Legal: NewLegal(gen),
		Eval:  NewEval(scorer, opts),
		TT:    NewTransposition(store),
	}
}
