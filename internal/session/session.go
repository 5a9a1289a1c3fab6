// Package session owns the state of one game: the live board, its three
// caches and the in-flight AI turn.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/park285/grok-chess/internal/cache"
	"github.com/park285/grok-chess/internal/domain"
	"github.com/park285/grok-chess/internal/orchestrator"
	"github.com/park285/grok-chess/internal/record"
	"github.com/park285/grok-chess/internal/rules"
	"go.uber.org/zap"
)

const (
	SourceHuman = "human"

	historyForSources    = 10
	historyForCommentary = 5
)

// StoreFactory builds the transposition store for a session id.
type StoreFactory func(sessionID string) (cache.Store, error)

// MemoryStores returns a factory of in-process LRU stores.
func MemoryStores(capacity int) StoreFactory {
	return func(string) (cache.Store, error) { return cache.NewMemoryStore(capacity) }
}

// Commentator describes the current position in prose.
type Commentator interface {
	Comment(ctx context.Context, pos domain.Position, history []string) string
}

type Config struct {
	Start        domain.Position
	White        string
	Black        string
	Orchestrator *orchestrator.Orchestrator
	Scorer       cache.Scorer
	Stores       StoreFactory
	EvalInterval time.Duration
	Commentator  Commentator
	Records      *record.Store
	Logger       *zap.Logger

	// BlackOrchestrator, when set, resolves Black's moves instead.
	BlackOrchestrator *orchestrator.Orchestrator
}

type Session struct {
	id     string
	cfg    Config
	orch   *orchestrator.Orchestrator
	caches *cache.Set
	logger *zap.Logger

	// moveMu serializes turns, reset and close. mu guards the game and is
	// only held for short reads and writes, never across SelectMove.
	moveMu    sync.Mutex
	mu        sync.Mutex
	game      *rules.Game
	gameID    string
	startedAt time.Time

	turnMu sync.Mutex
	epoch  uint64
	nextID uint64
	turns  map[uint64]context.CancelFunc
}

func New(cfg Config) (*Session, error) {
	if cfg.Orchestrator == nil {
		return nil, errors.New("session: orchestrator is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Stores == nil {
		cfg.Stores = MemoryStores(cache.DefaultTranspositionCapacity)
	}
	id := uuid.NewString()
	store, err := cfg.Stores(id)
	if err != nil {
		return nil, fmt.Errorf("transposition store: %w", err)
	}
	game, err := rules.NewGame(cfg.Start)
	if err != nil {
		return nil, err
	}
	logger := cfg.Logger.With(zap.String("session", id))
	return &Session{
		id:     id,
		cfg:    cfg,
		orch:   cfg.Orchestrator,
		caches: cache.NewSet(rules.NewBoard(), cfg.Scorer, store, cache.EvalOptions{Interval: cfg.EvalInterval, Logger: logger}),
		logger: logger,
		game:   game,
		gameID: uuid.NewString(),
		turns:  make(map[uint64]context.CancelFunc),

		startedAt: time.Now(),
	}, nil
}

func (s *Session) ID() string { return s.id }

// Caches exposes the session caches for inspection.
func (s *Session) Caches() *cache.Set { return s.caches }

// Stats merges the counters of the orchestrators used by this session.
func (s *Session) Stats() domain.OrchestratorStats {
	st := s.orch.Stats()
	if s.cfg.BlackOrchestrator != nil && s.cfg.BlackOrchestrator != s.orch {
		st = st.Merge(s.cfg.BlackOrchestrator.Stats())
	}
	return st
}

// PlayHuman parses input as SAN or UCI and plays it.
func (s *Session) PlayHuman(ctx context.Context, input string) (domain.Ply, error) {
	s.moveMu.Lock()
	defer s.moveMu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return domain.Ply{}, err
	}
	if s.game.Finished() {
		return domain.Ply{}, domain.ErrGameOver
	}
	mv, err := s.game.ParseMove(input)
	if err != nil {
		return domain.Ply{}, err
	}
	return s.game.Play(mv, SourceHuman)
}

// PlayAI resolves and plays one move for the side to move. A Reset or a
// cancelled ctx during the turn discards the move and returns
// ErrTurnCancelled.
func (s *Session) PlayAI(ctx context.Context) (domain.Ply, error) {
	turnCtx, turnID, epoch := s.beginTurn(ctx)
	defer s.endTurn(turnID)

	s.moveMu.Lock()
	defer s.moveMu.Unlock()
	if s.stale(epoch) {
		return domain.Ply{}, domain.ErrTurnCancelled
	}

	s.mu.Lock()
	finished := s.game.Finished()
	pos := s.game.Position()
	side := s.game.SideToMove()
	history := s.game.RecentSAN(historyForSources)
	s.mu.Unlock()
	if finished {
		return domain.Ply{}, domain.ErrGameOver
	}

	d, err := s.orchestratorFor(side).SelectMove(turnCtx, s.caches, pos, history)
	if turnCtx.Err() != nil || s.stale(epoch) {
		s.logger.Info("ai turn cancelled", zap.String("fen", string(pos)))
		return domain.Ply{}, fmt.Errorf("%w: %v", domain.ErrTurnCancelled, context.Cause(turnCtx))
	}
	if err != nil {
		return domain.Ply{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.game.Play(d.Move, d.Source)
}

func (s *Session) orchestratorFor(side domain.Side) *orchestrator.Orchestrator {
	if side == domain.Black && s.cfg.BlackOrchestrator != nil {
		return s.cfg.BlackOrchestrator
	}
	return s.orch
}

func (s *Session) beginTurn(parent context.Context) (context.Context, uint64, uint64) {
	ctx, cancel := context.WithCancel(parent)
	s.turnMu.Lock()
	defer s.turnMu.Unlock()
	s.nextID++
	s.turns[s.nextID] = cancel
	return ctx, s.nextID, s.epoch
}

func (s *Session) endTurn(id uint64) {
	s.turnMu.Lock()
	cancel := s.turns[id]
	delete(s.turns, id)
	s.turnMu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (s *Session) stale(epoch uint64) bool {
	s.turnMu.Lock()
	defer s.turnMu.Unlock()
	return s.epoch != epoch
}

// Reset abandons any in-flight turn, clears all three caches and starts a
// new game. No turn can begin until the clear has finished.
func (s *Session) Reset(ctx context.Context) error {
	s.turnMu.Lock()
	s.epoch++
	for _, cancel := range s.turns {
		cancel()
	}
	s.turnMu.Unlock()

	s.moveMu.Lock()
	defer s.moveMu.Unlock()
	if err := s.caches.Clear(ctx); err != nil {
		return err
	}
	game, err := rules.NewGame(s.cfg.Start)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.game = game
	s.gameID = uuid.NewString()
	s.startedAt = time.Now()
	s.mu.Unlock()
	s.logger.Info("session reset")
	return nil
}

// Close drops the session's transposition entries.
func (s *Session) Close(ctx context.Context) error {
	s.turnMu.Lock()
	s.epoch++
	for _, cancel := range s.turns {
		cancel()
	}
	s.turnMu.Unlock()

	s.moveMu.Lock()
	defer s.moveMu.Unlock()
	return s.caches.Clear(ctx)
}

// Evaluate returns the throttled evaluation of the current position.
func (s *Session) Evaluate(ctx context.Context) domain.EvaluationRecord {
	pos := s.Position()
	return s.caches.Eval.Evaluate(ctx, pos)
}

// EvalBar returns the last known evaluation without calling the engine.
func (s *Session) EvalBar() domain.EvaluationRecord {
	pos := s.Position()
	rec, ok := s.caches.Eval.Peek(pos)
	if !ok {
		return domain.Unavailable(pos)
	}
	return rec
}

func (s *Session) Commentary(ctx context.Context) string {
	s.mu.Lock()
	pos := s.game.Position()
	history := s.game.RecentSAN(historyForCommentary)
	s.mu.Unlock()
	if s.cfg.Commentator == nil {
		return "Commentary is not configured."
	}
	return s.cfg.Commentator.Comment(ctx, pos, history)
}

func (s *Session) Position() domain.Position {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.game.Position()
}

func (s *Session) SideToMove() domain.Side {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.game.SideToMove()
}

func (s *Session) LegalMoves() []domain.Move {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.game.LegalMoves()
}

func (s *Session) Finished() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.game.Finished()
}

func (s *Session) Plies() []domain.Ply {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.game.Plies()
}

// Record snapshots the current game. An unfinished game is ongoing.
func (s *Session) Record() *domain.GameRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return &domain.GameRecord{
		ID:        s.gameID,
		White:     s.cfg.White,
		Black:     s.cfg.Black,
		StartFEN:  s.game.Start(),
		Plies:     s.game.Plies(),
		Outcome:   s.game.Outcome(),
		Method:    s.game.Method(),
		StartedAt: s.startedAt,
		EndedAt:   time.Now(),
	}
}

// Archive saves the current game record in the configured store.
func (s *Session) Archive(rec *domain.GameRecord) (string, error) {
	if s.cfg.Records == nil {
		return "", errors.New("session: no record store configured")
	}
	if rec == nil {
		rec = s.Record()
	}
	return s.cfg.Records.Save(rec)
}
