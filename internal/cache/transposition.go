package cache

import (
	"context"
	"fmt"
	"strings"

	"github.com/park285/grok-chess/internal/domain"
)

// Store is the key/value backend of the transposition cache.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Put(ctx context.Context, key, value string) error
	Clear(ctx context.Context) error
	Len(ctx context.Context) (int, error)
}

// Transposition maps positions to moves accepted from the language model.
// Later writes for the same position replace earlier ones.
type Transposition struct {
	store Store
}

func NewTransposition(store Store) *Transposition {
	return &Transposition{store: store}
}

func (t *Transposition) Get(ctx context.Context, pos domain.Position) (domain.Move, bool, error) {
	raw, ok, err := t.store.Get(ctx, string(pos))
	if err != nil || !ok {
		return domain.Move{}, false, err
	}
	uci, san, _ := strings.Cut(raw, " ")
	if uci == "" {
		return domain.Move{}, false, nil
	}
	return domain.Move{UCI: uci, SAN: san}, true, nil
}

func (t *Transposition) Put(ctx context.Context, pos domain.Position, mv domain.Move) error {
	if mv.IsZero() {
		return fmt.Errorf("transposition put: empty move")
	}
	return t.store.Put(ctx, string(pos), strings.TrimSpace(mv.UCI+" "+mv.SAN))
}

func (t *Transposition) Clear(ctx context.Context) error { return t.store.Clear(ctx) }

func (t *Transposition) Len(ctx context.Context) (int, error) { return t.store.Len(ctx) }
