package source

import (
	"context"
	"fmt"
	"strings"

	"github.com/park285/grok-chess/internal/domain"
	"github.com/park285/grok-chess/internal/llm"
	"github.com/park285/grok-chess/internal/prompt"
	"go.uber.org/zap"
)

const tokenPunctuation = ".,;:!?\"'`()[]{}<>*"

// LLM asks a language model for a move. Only a token that exactly names a
// legal move is accepted.
type LLM struct {
	client     llm.Completer
	prompts    *prompt.Catalog
	params     llm.Params
	difficulty string
	logger     *zap.Logger
}

func NewLLM(client llm.Completer, prompts *prompt.Catalog, params llm.Params, difficulty string, logger *zap.Logger) *LLM {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LLM{
		client:     client,
		prompts:    prompts,
		params:     params,
		difficulty: prompt.NormalizeDifficulty(difficulty),
		logger:     logger,
	}
}

func (s *LLM) Name() string    { return "llm" }
func (s *LLM) Cacheable() bool { return true }

func (s *LLM) Propose(ctx context.Context, req Request) (domain.Move, error) {
	if len(req.Legal) == 0 {
		return domain.Move{}, domain.ErrNoLegalMoves
	}
	legal := make([]string, 0, len(req.Legal))
	for _, mv := range req.Legal {
		legal = append(legal, mv.UCI)
	}
	system, user, err := s.prompts.Move(prompt.MoveData{
		FEN:        string(req.Position),
		Side:       string(req.Position.Side()),
		Legal:      legal,
		History:    req.History,
		InCheck:    lastMoveGaveCheck(req.History),
		Difficulty: s.difficulty,
	})
	if err != nil {
		return domain.Move{}, fmt.Errorf("%w: render prompt: %v", domain.ErrAdapterUnavailable, err)
	}
	messages := []llm.Message{
		{Role: "system", Content: system},
		{Role: "user", Content: user},
	}

	return withBudget(ctx, req.Budget, func(ctx context.Context) (domain.Move, error) {
		text, err := s.client.Complete(ctx, s.params, messages)
		if err != nil {
			return domain.Move{}, err
		}
		mv, ok := ExtractMove(text, req.Legal)
		if !ok {
			s.logger.Info("language model reply rejected",
				zap.String("fen", string(req.Position)),
				zap.String("reply", truncate(text, 80)),
			)
			return domain.Move{}, fmt.Errorf("%w: %q", domain.ErrAdapterInvalidResponse, truncate(text, 80))
		}
		return mv, nil
	})
}

// ExtractMove scans whitespace separated tokens, trimming surrounding
// punctuation, and returns the first that equals a legal move's UCI
// (case-insensitive) or SAN (exact).
func ExtractMove(text string, legal []domain.Move) (domain.Move, bool) {
	for _, field := range strings.Fields(text) {
		token := strings.Trim(field, tokenPunctuation)
		if token == "" {
			continue
		}
		lower := strings.ToLower(token)
		for _, mv := range legal {
			if mv.UCI == lower || (mv.SAN != "" && mv.SAN == token) {
				return mv, true
			}
		}
	}
	return domain.Move{}, false
}

func lastMoveGaveCheck(history []string) bool {
	if len(history) == 0 {
		return false
	}
	last := history[len(history)-1]
	return strings.HasSuffix(last, "+") || strings.HasSuffix(last, "#")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
