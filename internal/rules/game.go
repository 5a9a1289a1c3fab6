package rules

import (
	"fmt"
	"io"
	"strings"

	nchess "github.com/corentings/chess/v2"
	"github.com/park285/grok-chess/internal/domain"
)

// Game is a live game with history, so repetition and move-count draws are
// detected. It is not safe for concurrent use; the session serializes access.
type Game struct {
	start domain.Position
	game  *nchess.Game
	plies []domain.Ply
}

func NewGame(start domain.Position) (*Game, error) {
	if strings.TrimSpace(string(start)) == "" {
		start = StartFEN
	}
	g, err := gameFromFEN(start)
	if err != nil {
		return nil, err
	}
	return &Game{start: domain.Position(g.Position().String()), game: g}, nil
}

// PGNTags are the header tags ReadPGN reports.
var PGNTags = []string{"Event", "Site", "Date", "White", "Black", "Result", "Termination", "FEN"}

// ReadPGN loads the first game of a PGN stream and replays its move list.
func ReadPGN(r io.Reader) (*Game, map[string]string, error) {
	opt, err := nchess.PGN(r)
	if err != nil {
		return nil, nil, fmt.Errorf("parse pgn: %w", err)
	}
	parsed := nchess.NewGame(opt)
	positions := parsed.Positions()
	moves := parsed.Moves()
	if len(positions) == 0 {
		return nil, nil, fmt.Errorf("parse pgn: no positions")
	}

	out, err := NewGame(domain.Position(positions[0].String()))
	if err != nil {
		return nil, nil, err
	}
	uci := nchess.UCINotation{}
	for i, mv := range moves {
		if i >= len(positions) {
			break
		}
		text := strings.ToLower(uci.Encode(positions[i], mv))
		if _, err := out.Play(domain.Move{UCI: text}, ""); err != nil {
			return nil, nil, fmt.Errorf("replay ply %d (%s): %w", i+1, text, err)
		}
	}

	tags := make(map[string]string, len(PGNTags))
	for _, k := range PGNTags {
		if v := parsed.GetTagPair(k); v != "" {
			tags[k] = v
		}
	}
	return out, tags, nil
}

func (g *Game) Start() domain.Position { return g.start }

func (g *Game) Position() domain.Position {
	return domain.Position(g.game.Position().String())
}

func (g *Game) SideToMove() domain.Side { return g.Position().Side() }

func (g *Game) LegalMoves() []domain.Move { return legalMoves(g.game.Position()) }

func (g *Game) ParseMove(input string) (domain.Move, error) {
	return parseMove(g.game.Position(), input)
}

// Play applies mv and appends a ply. source names who produced the move.
func (g *Game) Play(mv domain.Move, source string) (domain.Ply, error) {
	if g.Finished() {
		return domain.Ply{}, domain.ErrGameOver
	}
	before := g.game.Position()
	decoded, err := nchess.UCINotation{}.Decode(before, strings.ToLower(mv.UCI))
	if err != nil {
		return domain.Ply{}, fmt.Errorf("%w: %s", domain.ErrIllegalMove, mv.UCI)
	}
	san := nchess.AlgebraicNotation{}.Encode(before, decoded)
	beforeFEN := domain.Position(before.String())
	if err := g.game.Move(decoded, nil); err != nil {
		return domain.Ply{}, fmt.Errorf("%w: %s", domain.ErrIllegalMove, mv.UCI)
	}

	ply := domain.Ply{
		Index:  len(g.plies) + 1,
		Side:   beforeFEN.Side(),
		Move:   domain.Move{UCI: strings.ToLower(mv.UCI), SAN: san},
		Before: beforeFEN,
		After:  g.Position(),
		Source: source,
	}
	g.plies = append(g.plies, ply)
	return ply, nil
}

func (g *Game) Plies() []domain.Ply { return append([]domain.Ply(nil), g.plies...) }

func (g *Game) Finished() bool { return g.Terminal() != domain.TerminalNone }

func (g *Game) Terminal() domain.Terminal { return terminalOf(g.game) }

func (g *Game) Outcome() domain.Outcome { return outcomeOf(g.game) }

func (g *Game) Method() string { return methodOf(g.game) }

// RecentSAN returns up to n of the last moves in SAN.
func (g *Game) RecentSAN(n int) []string {
	start := 0
	if n > 0 && len(g.plies) > n {
		start = len(g.plies) - n
	}
	out := make([]string, 0, len(g.plies)-start)
	for _, p := range g.plies[start:] {
		out = append(out, p.Move.SAN)
	}
	return out
}
