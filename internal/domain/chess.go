package domain

import (
	"strings"
	"time"
)

// Position is a full FEN string. Two equal strings are the same cache key.
type Position string

func (p Position) String() string { return string(p) }

// Side returns the side to move encoded in the FEN.
func (p Position) Side() Side {
	fields := strings.Fields(string(p))
	if len(fields) > 1 && fields[1] == "b" {
		return Black
	}
	return White
}

type Side string

const (
	White Side = "white"
	Black Side = "black"
)

func (s Side) Opponent() Side {
	if s == White {
		return Black
	}
	return White
}

type Move struct {
	UCI string
	SAN string
}

func (m Move) String() string {
	if m.SAN != "" {
		return m.SAN
	}
	return m.UCI
}

func (m Move) IsZero() bool { return m.UCI == "" }

// Terminal is the rules collaborator's view of whether a game is over.
type Terminal string

const (
	TerminalNone      Terminal = "none"
	TerminalCheckmate Terminal = "checkmate"
	TerminalStalemate Terminal = "stalemate"
	TerminalDraw      Terminal = "draw"
)

type Outcome string

const (
	OutcomeWhiteWin Outcome = "white_win"
	OutcomeBlackWin Outcome = "black_win"
	OutcomeDraw     Outcome = "draw"
	OutcomeAborted  Outcome = "aborted"
	OutcomeOngoing  Outcome = "ongoing"
)

type EvalState int

const (
	EvalUnavailable EvalState = iota
	EvalFresh
	EvalPendingRefresh
)

func (s EvalState) String() string {
	switch s {
	case EvalFresh:
		return "fresh"
	case EvalPendingRefresh:
		return "pending_refresh"
	default:
		return "unavailable"
	}
}

// EvaluationRecord holds a centipawn score from White's perspective.
type EvaluationRecord struct {
	Position   Position
	ScoreCP    int
	Depth      int
	BestMove   string
	ComputedAt time.Time
	State      EvalState
}

func (r EvaluationRecord) Available() bool { return r.State != EvalUnavailable }

func Unavailable(pos Position) EvaluationRecord {
	return EvaluationRecord{Position: pos, State: EvalUnavailable}
}

// Ply is one played half-move as stored in a game record.
type Ply struct {
	Index  int
	Side   Side
	Move   Move
	Before Position
	After  Position
	Source string
}

type GameRecord struct {
	ID        string
	White     string
	Black     string
	StartFEN  Position
	Plies     []Ply
	Outcome   Outcome
	Method    string
	StartedAt time.Time
	EndedAt   time.Time
}

func (g *GameRecord) MovesUCI() []string {
	out := make([]string, 0, len(g.Plies))
	for _, p := range g.Plies {
		out = append(out, p.Move.UCI)
	}
	return out
}
