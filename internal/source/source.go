package source

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/park285/grok-chess/internal/domain"
	"github.com/valyala/fasthttp"
)

// Request is everything a move source may look at for one turn.
type Request struct {
	Position domain.Position
	Legal    []domain.Move
	Budget   time.Duration
	History  []string
}

// Source proposes one move or fails. Implementations must honor ctx and
// the request budget and must not retry internally.
type Source interface {
	Name() string
	Propose(ctx context.Context, req Request) (domain.Move, error)
}

// Cacheable sources have their accepted moves stored in the transposition
// cache.
type Cacheable interface {
	Cacheable() bool
}

func IsCacheable(s Source) bool {
	c, ok := s.(Cacheable)
	return ok && c.Cacheable()
}

// Classify maps an adapter error onto the failure taxonomy.
func Classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrAdapterTimeout),
		errors.Is(err, domain.ErrAdapterInvalidResponse),
		errors.Is(err, domain.ErrAdapterUnavailable),
		errors.Is(err, domain.ErrNoLegalMoves):
		return err
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled),
		errors.Is(err, fasthttp.ErrTimeout),
		strings.Contains(strings.ToLower(err.Error()), "timeout"):
		return fmt.Errorf("%w: %v", domain.ErrAdapterTimeout, err)
	default:
		return fmt.Errorf("%w: %v", domain.ErrAdapterUnavailable, err)
	}
}

// withBudget runs call on its own goroutine bounded by budget. When the
// deadline passes first the call is abandoned and its result dropped.
func withBudget(ctx context.Context, budget time.Duration, call func(ctx context.Context) (domain.Move, error)) (domain.Move, error) {
	if budget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, budget)
		defer cancel()
	}

	type result struct {
		mv  domain.Move
		err error
	}
	ch := make(chan result, 1)
	go func() {
		mv, err := call(ctx)
		ch <- result{mv: mv, err: err}
	}()

	select {
	case <-ctx.Done():
		return domain.Move{}, Classify(ctx.Err())
	case res := <-ch:
		return res.mv, Classify(res.err)
	}
}

// findLegal returns the legal move whose UCI equals uci.
func findLegal(legal []domain.Move, uci string) (domain.Move, bool) {
	uci = strings.ToLower(strings.TrimSpace(uci))
	for _, mv := range legal {
		if mv.UCI == uci {
			return mv, true
		}
	}
	return domain.Move{}, false
}
