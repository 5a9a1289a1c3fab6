// Package record keeps finished games for the lifetime of the process.
package record

import (
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/park285/grok-chess/internal/domain"
)

var ErrNotFound = errors.New("game record not found")

// Store is an in-memory record store. Nothing survives a restart.
type Store struct {
	mu   sync.RWMutex
	byID map[string]*domain.GameRecord
	ids  []string
}

func NewStore() *Store {
	return &Store{byID: make(map[string]*domain.GameRecord)}
}

// Save stores a copy of rec and returns its id. A blank id is assigned.
func (s *Store) Save(rec *domain.GameRecord) (string, error) {
	if rec == nil {
		return "", errors.New("nil game record")
	}
	cp := clone(rec)
	if strings.TrimSpace(cp.ID) == "" {
		cp.ID = uuid.NewString()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byID[cp.ID]; !exists {
		s.ids = append(s.ids, cp.ID)
	}
	s.byID[cp.ID] = cp
	return cp.ID, nil
}

func (s *Store) Get(id string) (*domain.GameRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.byID[strings.TrimSpace(id)]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(rec), nil
}

// Recent returns up to limit records, latest EndedAt first.
func (s *Store) Recent(limit int) []*domain.GameRecord {
	s.mu.RLock()
	items := make([]*domain.GameRecord, 0, len(s.ids))
	order := make(map[string]int, len(s.ids))
	for i, id := range s.ids {
		items = append(items, clone(s.byID[id]))
		order[id] = i
	}
	s.mu.RUnlock()

	sort.Slice(items, func(i, j int) bool {
		if !items[i].EndedAt.Equal(items[j].EndedAt) {
			return items[i].EndedAt.After(items[j].EndedAt)
		}
		return order[items[i].ID] > order[items[j].ID]
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ids)
}

func clone(rec *domain.GameRecord) *domain.GameRecord {
	cp := *rec
	cp.Plies = append([]domain.Ply(nil), rec.Plies...)
	return &cp
}
