package source

import (
	"context"
	"fmt"

	"github.com/park285/grok-chess/internal/domain"
	"github.com/park285/grok-chess/internal/engine"
)

type Analyser interface {
	Analyse(ctx context.Context, fen string, depth int) (engine.Analysis, error)
}

// Engine plays the evaluation engine's principal move at a fixed depth.
type Engine struct {
	engine Analyser
	depth  int
}

func NewEngine(e Analyser, depth int) *Engine {
	return &Engine{engine: e, depth: depth}
}

func (s *Engine) Name() string { return "engine" }

func (s *Engine) Propose(ctx context.Context, req Request) (domain.Move, error) {
	if len(req.Legal) == 0 {
		return domain.Move{}, domain.ErrNoLegalMoves
	}
	return withBudget(ctx, req.Budget, func(ctx context.Context) (domain.Move, error) {
		a, err := s.engine.Analyse(ctx, string(req.Position), s.depth)
		if err != nil {
			return domain.Move{}, err
		}
		mv, ok := findLegal(req.Legal, a.BestMove)
		if !ok {
			return domain.Move{}, fmt.Errorf("%w: engine move %q", domain.ErrAdapterInvalidResponse, a.BestMove)
		}
		return mv, nil
	})
}
