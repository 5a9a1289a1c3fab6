package source

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/park285/grok-chess/internal/domain"
)

// Random picks uniformly among the legal moves. It is the backstop of every
// chain and never fails on a non-empty move list.
type Random struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandom seeds from the clock when seed is zero.
func NewRandom(seed int64) *Random {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Random{rng: rand.New(rand.NewSource(seed))}
}

func (s *Random) Name() string { return "random" }

func (s *Random) Propose(_ context.Context, req Request) (domain.Move, error) {
	if len(req.Legal) == 0 {
		return domain.Move{}, domain.ErrNoLegalMoves
	}
	s.mu.Lock()
	idx := s.rng.Intn(len(req.Legal))
	s.mu.Unlock()
	return req.Legal[idx], nil
}
