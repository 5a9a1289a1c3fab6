package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/park285/grok-chess/internal/domain"
)

const testFEN domain.Position = "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq - 0 1"

type countingGen struct {
	calls int
	moves []domain.Move
}

func (g *countingGen) LegalMoves(domain.Position) ([]domain.Move, error) {
	g.calls++
	return g.moves, nil
}

func TestLegalReadThrough(t *testing.T) {
	gen := &countingGen{moves: []domain.Move{{UCI: "e7e5", SAN: "e5"}, {UCI: "d7d5", SAN: "d5"}}}
	c := NewLegal(gen)

	first, err := c.Moves(testFEN)
	if err != nil {
		t.Fatalf("Moves: %v", err)
	}
	first[0].UCI = "mutated"
	second, _ := c.Moves(testFEN)
	if gen.calls != 1 {
		t.Fatalf("expected one delegation, got %d", gen.calls)
	}
	if second[0].UCI != "e7e5" {
		t.Fatalf("cached moves were mutated through a returned slice")
	}
	if c.Hits() != 1 || c.Misses() != 1 {
		t.Fatalf("hits=%d misses=%d", c.Hits(), c.Misses())
	}

	c.Clear()
	if c.Len() != 0 {
		t.Fatalf("expected empty cache after Clear")
	}
	_, _ = c.Moves(testFEN)
	if gen.calls != 2 {
		t.Fatalf("expected re-delegation after Clear, got %d calls", gen.calls)
	}
}

type fakeScorer struct {
	mu    sync.Mutex
	calls int
	score int
	err   error
}

func (s *fakeScorer) Score(_ context.Context, pos domain.Position) (domain.EvaluationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return domain.EvaluationRecord{}, s.err
	}
	s.score += 10
	return domain.EvaluationRecord{Position: pos, ScoreCP: s.score, Depth: 8, BestMove: "e7e5"}, nil
}

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func TestEvalThrottle(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	scorer := &fakeScorer{}
	c := NewEval(scorer, EvalOptions{Interval: time.Second, Now: clock.Now})
	ctx := context.Background()

	a := c.Evaluate(ctx, testFEN)
	clock.Advance(500 * time.Millisecond)
	b := c.Evaluate(ctx, testFEN)
	if a != b {
		t.Fatalf("records within interval differ: %+v vs %+v", a, b)
	}
	if scorer.calls != 1 || c.Calls() != 1 {
		t.Fatalf("expected one engine call, got %d", scorer.calls)
	}
	if a.State != domain.EvalFresh {
		t.Fatalf("expected fresh record, got %s", a.State)
	}

	clock.Advance(600 * time.Millisecond)
	peek, ok := c.Peek(testFEN)
	if !ok || peek.State != domain.EvalPendingRefresh || peek.ScoreCP != a.ScoreCP {
		t.Fatalf("expected stale pending-refresh record, got %+v ok=%v", peek, ok)
	}
	fresh := c.Evaluate(ctx, testFEN)
	if scorer.calls != 2 || fresh.ScoreCP == a.ScoreCP {
		t.Fatalf("expected refresh after interval, calls=%d rec=%+v", scorer.calls, fresh)
	}
}

func TestEvalUnavailable(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	c := NewEval(&fakeScorer{err: errors.New("engine down")}, EvalOptions{Logger: zap.New(core)})
	rec := c.Evaluate(context.Background(), testFEN)
	if rec.Available() {
		t.Fatalf("expected unavailable record, got %+v", rec)
	}
	entries := logs.FilterMessage("evaluation failed").All()
	if len(entries) != 1 {
		t.Fatalf("expected one failure log, got %d", len(entries))
	}
	var logged error
	for _, f := range entries[0].Context {
		if f.Key == "error" {
			logged, _ = f.Interface.(error)
		}
	}
	if !errors.Is(logged, domain.ErrEvaluationUnavailable) {
		t.Fatalf("logged error %v must wrap ErrEvaluationUnavailable", logged)
	}

	disabled := NewEval(nil, EvalOptions{})
	if disabled.Enabled() || disabled.Evaluate(context.Background(), testFEN).Available() {
		t.Fatalf("nil scorer must yield unavailable records")
	}
}

func TestEvalClear(t *testing.T) {
	scorer := &fakeScorer{}
	c := NewEval(scorer, EvalOptions{Interval: time.Hour})
	ctx := context.Background()
	c.Evaluate(ctx, testFEN)
	c.Clear()
	if c.Len() != 0 {
		t.Fatalf("expected empty cache")
	}
	if _, ok := c.Peek(testFEN); ok {
		t.Fatalf("Peek after Clear should miss")
	}
	c.Evaluate(ctx, testFEN)
	if scorer.calls != 2 {
		t.Fatalf("expected engine call after Clear, got %d", scorer.calls)
	}
}

func TestTranspositionMemoryStore(t *testing.T) {
	store, err := NewMemoryStore(2)
	if err != nil {
		t.Fatalf("NewMemoryStore: %v", err)
	}
	tt := NewTransposition(store)
	ctx := context.Background()

	if _, ok, _ := tt.Get(ctx, testFEN); ok {
		t.Fatalf("expected miss on empty cache")
	}
	if err := tt.Put(ctx, testFEN, domain.Move{UCI: "e7e5", SAN: "e5"}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := tt.Put(ctx, testFEN, domain.Move{UCI: "c7c5", SAN: "c5"}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	mv, ok, err := tt.Get(ctx, testFEN)
	if err != nil || !ok || mv.UCI != "c7c5" || mv.SAN != "c5" {
		t.Fatalf("expected last write to win, got %+v ok=%v err=%v", mv, ok, err)
	}

	for i := 0; i < 3; i++ {
		_ = tt.Put(ctx, domain.Position(fmt.Sprintf("pos-%d", i)), domain.Move{UCI: "a2a3"})
	}
	if n, _ := tt.Len(ctx); n != 2 {
		t.Fatalf("capacity not enforced, len=%d", n)
	}
	if err := tt.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if n, _ := tt.Len(ctx); n != 0 {
		t.Fatalf("expected empty after Clear, len=%d", n)
	}
}

func TestTranspositionRedisStore(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(func() { mr.Close() })

	rdb, err := NewRedisClient(fmt.Sprintf("redis://%s/0", mr.Addr()))
	if err != nil {
		t.Fatalf("NewRedisClient: %v", err)
	}
	t.Cleanup(func() { _ = rdb.Close() })

	ctx := context.Background()
	a := NewTransposition(NewRedisStore(rdb, "session-a"))
	b := NewTransposition(NewRedisStore(rdb, "session-b"))

	if err := a.Put(ctx, testFEN, domain.Move{UCI: "e7e5", SAN: "e5"}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	mv, ok, err := a.Get(ctx, testFEN)
	if err != nil || !ok || mv.UCI != "e7e5" {
		t.Fatalf("Get: %+v ok=%v err=%v", mv, ok, err)
	}
	if _, ok, _ := b.Get(ctx, testFEN); ok {
		t.Fatalf("namespaces must not share entries")
	}
	if ttl := mr.TTL("grokchess:tt:session-a"); ttl <= 0 {
		t.Fatalf("expected ttl on session hash, got %v", ttl)
	}
	if err := a.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if n, _ := a.Len(ctx); n != 0 {
		t.Fatalf("expected empty after Clear, got %d", n)
	}
}

func TestSetClear(t *testing.T) {
	store, _ := NewMemoryStore(8)
	set := &Set{
		Legal: NewLegal(&countingGen{moves: []domain.Move{{UCI: "e7e5"}}}),
		Eval:  NewEval(&fakeScorer{}, EvalOptions{Interval: time.Hour}),
		TT:    NewTransposition(store),
	}
	ctx := context.Background()
	_, _ = set.Legal.Moves(testFEN)
	set.Eval.Evaluate(ctx, testFEN)
	_ = set.TT.Put(ctx, testFEN, domain.Move{UCI: "e7e5"})

	if err := set.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	n, _ := set.TT.Len(ctx)
	if set.Legal.Len() != 0 || set.Eval.Len() != 0 || n != 0 {
		t.Fatalf("caches not empty: legal=%d eval=%d tt=%d", set.Legal.Len(), set.Eval.Len(), n)
	}
}
