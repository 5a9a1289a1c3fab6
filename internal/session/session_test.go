package session

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/park285/grok-chess/internal/cache"
	"github.com/park285/grok-chess/internal/domain"
	"github.com/park285/grok-chess/internal/orchestrator"
	"github.com/park285/grok-chess/internal/record"
	"github.com/park285/grok-chess/internal/source"
)

type firstLegal struct {
	calls   atomic.Int32
	started chan struct{}
	block   bool
}

func (f *firstLegal) Name() string    { return "llm" }
func (f *firstLegal) Cacheable() bool { return true }

func (f *firstLegal) Propose(ctx context.Context, req source.Request) (domain.Move, error) {
	f.calls.Add(1)
	if f.block {
		if f.started != nil {
			close(f.started)
			f.started = nil
		}
		<-ctx.Done()
		return domain.Move{}, ctx.Err()
	}
	return req.Legal[0], nil
}

type fixedScorer struct{ calls atomic.Int32 }

func (s *fixedScorer) Score(_ context.Context, pos domain.Position) (domain.EvaluationRecord, error) {
	s.calls.Add(1)
	return domain.EvaluationRecord{Position: pos, ScoreCP: 35, Depth: 10, BestMove: "e2e4"}, nil
}

func newSession(t *testing.T, cfg Config) *Session {
	t.Helper()
	s, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func ttLen(t *testing.T, s *Session) int {
	t.Helper()
	n, err := s.Caches().TT.Len(context.Background())
	if err != nil {
		t.Fatalf("TT.Len: %v", err)
	}
	return n
}

func TestHumanAndAITurns(t *testing.T) {
	src := &firstLegal{}
	s := newSession(t, Config{Orchestrator: orchestrator.New(orchestrator.Config{Sources: []source.Source{src}})})
	ctx := context.Background()

	ply, err := s.PlayHuman(ctx, "e4")
	if err != nil || ply.Source != SourceHuman || ply.Move.UCI != "e2e4" {
		t.Fatalf("PlayHuman = %+v, %v", ply, err)
	}
	if _, err := s.PlayHuman(ctx, "e5e4"); !errors.Is(err, domain.ErrIllegalMove) {
		t.Fatalf("expected ErrIllegalMove, got %v", err)
	}
	ply, err = s.PlayAI(ctx)
	if err != nil || ply.Source != "llm" || ply.Side != domain.Black {
		t.Fatalf("PlayAI = %+v, %v", ply, err)
	}
	if len(s.Plies()) != 2 || s.SideToMove() != domain.White {
		t.Fatalf("plies=%d side=%s", len(s.Plies()), s.SideToMove())
	}
	if ttLen(t, s) != 1 {
		t.Fatalf("accepted language model move should be cached")
	}
}

func TestResetClearsCachesAndGame(t *testing.T) {
	src := &firstLegal{}
	scorer := &fixedScorer{}
	s := newSession(t, Config{
		Orchestrator: orchestrator.New(orchestrator.Config{Sources: []source.Source{src}}),
		Scorer:       scorer,
	})
	ctx := context.Background()
	startID := s.Record().ID

	if _, err := s.PlayAI(ctx); err != nil {
		t.Fatalf("PlayAI: %v", err)
	}
	_ = s.Evaluate(ctx)
	if s.Caches().Legal.Len() == 0 || s.Caches().Eval.Len() == 0 || ttLen(t, s) == 0 {
		t.Fatalf("caches should be populated before reset")
	}

	if err := s.Reset(ctx); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if s.Caches().Legal.Len() != 0 || s.Caches().Eval.Len() != 0 || ttLen(t, s) != 0 {
		t.Fatalf("reset must leave all caches empty")
	}
	if len(s.Plies()) != 0 || s.Record().ID == startID {
		t.Fatalf("reset must start a new game")
	}

	if _, err := s.PlayAI(ctx); err != nil {
		t.Fatalf("PlayAI: %v", err)
	}
	if src.calls.Load() != 2 {
		t.Fatalf("the first position must be resolved by the adapter again after reset, calls=%d", src.calls.Load())
	}
}

func TestResetCancelsInFlightTurn(t *testing.T) {
	started := make(chan struct{})
	src := &firstLegal{block: true, started: started}
	s := newSession(t, Config{Orchestrator: orchestrator.New(orchestrator.Config{
		Sources: []source.Source{src},
		Timeout: time.Minute,
	})})

	errc := make(chan error, 1)
	go func() {
		_, err := s.PlayAI(context.Background())
		errc <- err
	}()
	<-started
	if err := s.Reset(context.Background()); err != nil {
		t.Fatalf("Reset: %v", err)
	}

	select {
	case err := <-errc:
		if !errors.Is(err, domain.ErrTurnCancelled) {
			t.Fatalf("expected ErrTurnCancelled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("turn was not abandoned")
	}
	if len(s.Plies()) != 0 || ttLen(t, s) != 0 {
		t.Fatalf("a cancelled turn must leave no trace")
	}
}

func TestReadsDoNotWaitForAITurn(t *testing.T) {
	started := make(chan struct{})
	src := &firstLegal{block: true, started: started}
	scorer := &fixedScorer{}
	s := newSession(t, Config{
		Orchestrator: orchestrator.New(orchestrator.Config{Sources: []source.Source{src}, Timeout: time.Minute}),
		Scorer:       scorer,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errc := make(chan error, 1)
	go func() {
		_, err := s.PlayAI(ctx)
		errc <- err
	}()
	<-started

	done := make(chan domain.EvaluationRecord, 1)
	go func() {
		_ = s.Position()
		_ = s.LegalMoves()
		_ = s.EvalBar()
		done <- s.Evaluate(context.Background())
	}()
	select {
	case rec := <-done:
		if rec.ScoreCP != 35 {
			t.Fatalf("eval = %+v", rec)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("reads blocked behind the in-flight turn")
	}

	cancel()
	select {
	case err := <-errc:
		if !errors.Is(err, domain.ErrTurnCancelled) {
			t.Fatalf("expected ErrTurnCancelled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("turn was not abandoned")
	}
	if len(s.Plies()) != 0 {
		t.Fatalf("a cancelled turn must not play a move")
	}
}

func TestEvaluationAndBar(t *testing.T) {
	orch := orchestrator.New(orchestrator.Config{})
	s := newSession(t, Config{Orchestrator: orch})
	if s.Evaluate(context.Background()).Available() {
		t.Fatalf("no engine means no evaluation")
	}

	scorer := &fixedScorer{}
	s = newSession(t, Config{Orchestrator: orch, Scorer: scorer, EvalInterval: time.Hour})
	if s.EvalBar().Available() {
		t.Fatalf("bar must be unavailable before the first evaluation")
	}
	first := s.Evaluate(context.Background())
	second := s.Evaluate(context.Background())
	if first != second || scorer.calls.Load() != 1 {
		t.Fatalf("evaluations within the interval must be identical, calls=%d", scorer.calls.Load())
	}
	if bar := s.EvalBar(); bar.ScoreCP != 35 {
		t.Fatalf("bar = %+v", bar)
	}
}

func TestRedisStoresAreNamespaced(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb, err := cache.NewRedisClient("redis://" + mr.Addr())
	if err != nil {
		t.Fatalf("NewRedisClient: %v", err)
	}
	t.Cleanup(func() { _ = rdb.Close() })
	stores := func(id string) (cache.Store, error) { return cache.NewRedisStore(rdb, id), nil }
	orch := orchestrator.New(orchestrator.Config{Sources: []source.Source{&firstLegal{}}})

	a := newSession(t, Config{Orchestrator: orch, Stores: stores})
	b := newSession(t, Config{Orchestrator: orch, Stores: stores})
	if _, err := a.PlayAI(context.Background()); err != nil {
		t.Fatalf("PlayAI: %v", err)
	}
	if ttLen(t, a) != 1 || ttLen(t, b) != 0 {
		t.Fatalf("sessions must not share transposition entries")
	}
	if !mr.Exists("grokchess:tt:" + a.ID()) {
		t.Fatalf("expected a hash for session %s, keys=%v", a.ID(), mr.Keys())
	}
	if err := a.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if mr.Exists("grokchess:tt:" + a.ID()) {
		t.Fatalf("Close must drop the session hash")
	}
}

type cannedCommentator struct{ history []string }

func (c *cannedCommentator) Comment(_ context.Context, _ domain.Position, history []string) string {
	c.history = history
	return "Balanced."
}

func TestCommentaryAndArchive(t *testing.T) {
	store := record.NewStore()
	comm := &cannedCommentator{}
	s := newSession(t, Config{
		Orchestrator: orchestrator.New(orchestrator.Config{}),
		Commentator:  comm,
		Records:      store,
		White:        "human",
		Black:        "grok",
	})
	for _, mv := range []string{"f3", "e5", "g4", "Qh4#"} {
		if _, err := s.PlayHuman(context.Background(), mv); err != nil {
			t.Fatalf("PlayHuman(%s): %v", mv, err)
		}
	}
	if !s.Finished() {
		t.Fatalf("game should be over")
	}
	if _, err := s.PlayAI(context.Background()); !errors.Is(err, domain.ErrGameOver) {
		t.Fatalf("expected ErrGameOver, got %v", err)
	}
	if got := s.Commentary(context.Background()); got != "Balanced." || strings.Join(comm.history, " ") != "f3 e5 g4 Qh4#" {
		t.Fatalf("commentary = %q history = %v", got, comm.history)
	}

	id, err := s.Archive(nil)
	if err != nil {
		t.Fatalf("Archive: %v", err)
	}
	rec, err := store.Get(id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rec.Outcome != domain.OutcomeBlackWin || rec.White != "human" || len(rec.Plies) != 4 {
		t.Fatalf("archived record = %+v", rec)
	}
}
