package orchestrator

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/park285/grok-chess/internal/cache"
	"github.com/park285/grok-chess/internal/domain"
	"github.com/park285/grok-chess/internal/rules"
	"github.com/park285/grok-chess/internal/source"
)

// scripted replies with a fixed move or error and counts its calls.
type scripted struct {
	name      string
	move      string
	err       error
	cacheable bool
	block     bool
	calls     atomic.Int32
}

func (s *scripted) Name() string    { return s.name }
func (s *scripted) Cacheable() bool { return s.cacheable }

func (s *scripted) Propose(ctx context.Context, req source.Request) (domain.Move, error) {
	s.calls.Add(1)
	if s.block {
		<-ctx.Done()
		return domain.Move{}, ctx.Err()
	}
	if s.err != nil {
		return domain.Move{}, s.err
	}
	return domain.Move{UCI: s.move}, nil
}

func newCaches(t *testing.T) *cache.Set {
	t.Helper()
	store, err := cache.NewMemoryStore(64)
	if err != nil {
		t.Fatalf("NewMemoryStore: %v", err)
	}
	return cache.NewSet(rules.NewBoard(), nil, store, cache.EvalOptions{})
}

func ttLen(t *testing.T, caches *cache.Set) int {
	t.Helper()
	n, err := caches.TT.Len(context.Background())
	if err != nil {
		t.Fatalf("TT.Len: %v", err)
	}
	return n
}

func TestSelectMoveReturnsLegalMove(t *testing.T) {
	caches := newCaches(t)
	o := New(Config{Seed: 7})
	pos := domain.Position(rules.StartFEN)
	legal, _ := caches.Legal.Moves(pos)

	for i := 0; i < 50; i++ {
		d, err := o.SelectMove(context.Background(), caches, pos, nil)
		if err != nil {
			t.Fatalf("SelectMove: %v", err)
		}
		if _, ok := member(legal, d.Move); !ok {
			t.Fatalf("illegal move %q", d.Move.UCI)
		}
		if d.Source != "random" {
			t.Fatalf("source = %q, want random", d.Source)
		}
	}
	if ttLen(t, caches) != 0 {
		t.Fatalf("random moves must not be cached")
	}
}

func TestSelectMoveCacheHitSkipsSources(t *testing.T) {
	caches := newCaches(t)
	llm := &scripted{name: "llm", move: "g1f3", cacheable: true}
	o := New(Config{Sources: []source.Source{llm}})
	pos := domain.Position(rules.StartFEN)

	first, err := o.SelectMove(context.Background(), caches, pos, nil)
	if err != nil || first.Source != "llm" || first.Move.SAN != "Nf3" {
		t.Fatalf("first decision = %+v, %v", first, err)
	}
	for i := 0; i < 5; i++ {
		d, err := o.SelectMove(context.Background(), caches, pos, nil)
		if err != nil {
			t.Fatalf("SelectMove: %v", err)
		}
		if !d.CacheHit || d.Move.UCI != "g1f3" || d.Source != SourceCache {
			t.Fatalf("expected cached g1f3, got %+v", d)
		}
	}
	if llm.calls.Load() != 1 {
		t.Fatalf("adapter called %d times, want 1", llm.calls.Load())
	}
	st := o.Stats()
	if st.CacheHits != 5 || st.CacheMisses != 1 || st.CacheWrites != 1 || st.Decisions != 6 {
		t.Fatalf("stats = %+v", st)
	}
}

func TestSelectMoveFallsThroughInOrder(t *testing.T) {
	caches := newCaches(t)
	timeout := &scripted{name: "llm", err: domain.ErrAdapterTimeout, cacheable: true}
	invalid := &scripted{name: "engine", move: "e2e5"}
	o := New(Config{Sources: []source.Source{timeout, invalid}, Seed: 3})

	d, err := o.SelectMove(context.Background(), caches, domain.Position(rules.StartFEN), nil)
	if err != nil {
		t.Fatalf("SelectMove: %v", err)
	}
	if d.Source != "random" {
		t.Fatalf("source = %q, want random", d.Source)
	}
	if timeout.calls.Load() != 1 || invalid.calls.Load() != 1 {
		t.Fatalf("each source must be tried exactly once")
	}
	if ttLen(t, caches) != 0 {
		t.Fatalf("fallback moves must not be cached")
	}
	st := o.Stats()
	if st.Sources["llm"].Timeouts != 1 || st.Sources["engine"].Invalid != 1 || st.Sources["random"].Successes != 1 {
		t.Fatalf("source stats = %+v", st.Sources)
	}
	if got := o.Chain(); len(got) != 3 || got[2] != "random" {
		t.Fatalf("chain = %v", got)
	}
}

func TestSelectMoveIsolatedAfterClear(t *testing.T) {
	caches := newCaches(t)
	llm := &scripted{name: "llm", move: "e2e4", cacheable: true}
	o := New(Config{Sources: []source.Source{llm}})
	pos := domain.Position(rules.StartFEN)

	if _, err := o.SelectMove(context.Background(), caches, pos, nil); err != nil {
		t.Fatalf("SelectMove: %v", err)
	}
	if err := caches.Clear(context.Background()); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	llm.move = "d2d4"
	d, err := o.SelectMove(context.Background(), caches, pos, nil)
	if err != nil {
		t.Fatalf("SelectMove: %v", err)
	}
	if d.CacheHit || d.Move.UCI != "d2d4" {
		t.Fatalf("entry survived a cleared cache: %+v", d)
	}
}

func TestSelectMoveNoLegalMoves(t *testing.T) {
	caches := newCaches(t)
	o := New(Config{})
	mated := domain.Position("rnb1kbnr/pppp1ppp/8/4p3/6Pq/5P2/PPPPP2P/RNBQKBNR w KQkq - 1 3")
	if _, err := o.SelectMove(context.Background(), caches, mated, nil); !errors.Is(err, domain.ErrNoLegalMoves) {
		t.Fatalf("expected ErrNoLegalMoves, got %v", err)
	}
}

func TestSelectMoveCancelled(t *testing.T) {
	caches := newCaches(t)
	stuck := &scripted{name: "llm", block: true, cacheable: true}
	fallback := &scripted{name: "engine", move: "e2e4"}
	o := New(Config{Sources: []source.Source{stuck, fallback}, Timeout: time.Minute})

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)
	_, err := o.SelectMove(ctx, caches, domain.Position(rules.StartFEN), nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if fallback.calls.Load() != 0 {
		t.Fatalf("a cancelled turn must not continue down the chain")
	}
	if ttLen(t, caches) != 0 {
		t.Fatalf("a cancelled turn must not write the cache")
	}
}

// Two plies from the opening with a language model source that always
// answers with the first legal move it is offered.
type firstLegal struct{ calls atomic.Int32 }

func (f *firstLegal) Name() string    { return "llm" }
func (f *firstLegal) Cacheable() bool { return true }
func (f *firstLegal) Propose(_ context.Context, req source.Request) (domain.Move, error) {
	f.calls.Add(1)
	return req.Legal[0], nil
}

func TestTwoPlyGame(t *testing.T) {
	caches := newCaches(t)
	src := &firstLegal{}
	o := New(Config{Sources: []source.Source{src}})
	game, err := rules.NewGame("")
	if err != nil {
		t.Fatalf("NewGame: %v", err)
	}

	for i := 0; i < 2; i++ {
		d, err := o.SelectMove(context.Background(), caches, game.Position(), game.RecentSAN(10))
		if err != nil {
			t.Fatalf("ply %d: %v", i, err)
		}
		if _, err := game.Play(d.Move, d.Source); err != nil {
			t.Fatalf("ply %d: Play: %v", i, err)
		}
	}
	if len(game.Plies()) != 2 || src.calls.Load() != 2 || ttLen(t, caches) != 2 {
		t.Fatalf("plies=%d calls=%d tt=%d", len(game.Plies()), src.calls.Load(), ttLen(t, caches))
	}
	if game.SideToMove() != domain.White {
		t.Fatalf("white should be to move after two plies")
	}
}
