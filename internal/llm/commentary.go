package llm

import (
	"context"

	"github.com/park285/grok-chess/internal/domain"
	"github.com/park285/grok-chess/internal/prompt"
	"go.uber.org/zap"
)

const CommentaryUnavailable = "Commentary unavailable."

type Completer interface {
	Complete(ctx context.Context, p Params, messages []Message) (string, error)
}

// Commentator asks the language model for a short position assessment.
type Commentator struct {
	client  Completer
	prompts *prompt.Catalog
	params  Params
	logger  *zap.Logger
}

func NewCommentator(client Completer, prompts *prompt.Catalog, params Params, logger *zap.Logger) *Commentator {
	if logger == nil {
		logger = zap.NewNop()
	}
	// commentary needs room for prose, unlike move requests
	params.MaxTokens = 200
	return &Commentator{client: client, prompts: prompts, params: params, logger: logger}
}

// Comment never fails; errors collapse to CommentaryUnavailable.
func (c *Commentator) Comment(ctx context.Context, pos domain.Position, history []string) string {
	if c == nil || c.client == nil {
		return CommentaryUnavailable
	}
	text, err := c.prompts.Commentary(string(pos), string(pos.Side()), history)
	if err != nil {
		c.logger.Warn("render commentary prompt failed", zap.Error(err))
		return CommentaryUnavailable
	}
	out, err := c.client.Complete(ctx, c.params, []Message{{Role: "user", Content: text}})
	if err != nil || out == "" {
		c.logger.Info("commentary request failed", zap.Error(err))
		return CommentaryUnavailable
	}
	return out
}
