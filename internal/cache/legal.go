package cache

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/park285/grok-chess/internal/domain"
)

// MoveGenerator is the rules side of the legal-move cache.
type MoveGenerator interface {
	LegalMoves(pos domain.Position) ([]domain.Move, error)
}

type legalEntry struct {
	moves      []domain.Move
	insertedAt time.Time
}

// Legal memoizes legal-move enumeration per position. It grows without bound
// until Clear; one game visits few enough positions for that to be fine.
type Legal struct {
	gen MoveGenerator

	mu      sync.RWMutex
	entries map[domain.Position]legalEntry

	hits   atomic.Int64
	misses atomic.Int64
}

func NewLegal(gen MoveGenerator) *Legal {
	return &Legal{gen: gen, entries: make(map[domain.Position]legalEntry)}
}

// Moves returns a copy of the legal moves for pos, delegating on a miss.
func (c *Legal) Moves(pos domain.Position) ([]domain.Move, error) {
	c.mu.RLock()
	entry, ok := c.entries[pos]
	c.mu.RUnlock()
	if ok {
		c.hits.Add(1)
		return append([]domain.Move(nil), entry.moves...), nil
	}

	c.misses.Add(1)
	moves, err := c.gen.LegalMoves(pos)
	if err != nil {
		return nil, err
	}
	stored := append([]domain.Move(nil), moves...)
	c.mu.Lock()
	c.entries[pos] = legalEntry{moves: stored, insertedAt: time.Now()}
	c.mu.Unlock()
	return append([]domain.Move(nil), stored...), nil
}

func (c *Legal) Clear() {
	c.mu.Lock()
	c.entries = make(map[domain.Position]legalEntry)
	c.mu.Unlock()
}

func (c *Legal) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *Legal) Hits() int64   { return c.hits.Load() }
func (c *Legal) Misses() int64 { return c.misses.Load() }
