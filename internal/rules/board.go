package rules

import (
	"fmt"
	"strings"

	nchess "github.com/corentings/chess/v2"
	"github.com/park285/grok-chess/internal/domain"
)

// StartFEN is the standard initial position.
const StartFEN domain.Position = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// Board answers rules questions about a single position. It keeps no state,
// so repetition based draws are only visible through Game.
type Board struct{}

func NewBoard() Board { return Board{} }

func (Board) LegalMoves(pos domain.Position) ([]domain.Move, error) {
	game, err := gameFromFEN(pos)
	if err != nil {
		return nil, err
	}
	return legalMoves(game.Position()), nil
}

// Apply plays mv on pos and returns the resulting position.
func (Board) Apply(pos domain.Position, mv domain.Move) (domain.Position, error) {
	game, err := gameFromFEN(pos)
	if err != nil {
		return "", err
	}
	decoded, err := nchess.UCINotation{}.Decode(game.Position(), strings.ToLower(mv.UCI))
	if err != nil {
		return "", fmt.Errorf("%w: %s", domain.ErrIllegalMove, mv.UCI)
	}
	if err := game.Move(decoded, nil); err != nil {
		return "", fmt.Errorf("%w: %s", domain.ErrIllegalMove, mv.UCI)
	}
	return domain.Position(game.Position().String()), nil
}

func (Board) Status(pos domain.Position) (domain.Terminal, error) {
	game, err := gameFromFEN(pos)
	if err != nil {
		return domain.TerminalNone, err
	}
	return terminalOf(game), nil
}

// SAN encodes a UCI move in algebraic notation relative to pos.
func (Board) SAN(pos domain.Position, uci string) (string, error) {
	game, err := gameFromFEN(pos)
	if err != nil {
		return "", err
	}
	p := game.Position()
	decoded, err := nchess.UCINotation{}.Decode(p, strings.ToLower(uci))
	if err != nil {
		return "", fmt.Errorf("%w: %s", domain.ErrIllegalMove, uci)
	}
	return nchess.AlgebraicNotation{}.Encode(p, decoded), nil
}

// ParseMove accepts SAN or UCI input and returns the matching legal move.
func (Board) ParseMove(pos domain.Position, input string) (domain.Move, error) {
	game, err := gameFromFEN(pos)
	if err != nil {
		return domain.Move{}, err
	}
	return parseMove(game.Position(), input)
}

func (Board) SideToMove(pos domain.Position) domain.Side { return pos.Side() }

func gameFromFEN(pos domain.Position) (*nchess.Game, error) {
	text := strings.TrimSpace(string(pos))
	if text == "" || text == "startpos" {
		return nchess.NewGame(), nil
	}
	opt, err := nchess.FEN(text)
	if err != nil {
		return nil, fmt.Errorf("decode fen %q: %w", text, err)
	}
	return nchess.NewGame(opt), nil
}

func legalMoves(pos *nchess.Position) []domain.Move {
	if pos == nil {
		return nil
	}
	uci := nchess.UCINotation{}
	san := nchess.AlgebraicNotation{}
	valid := pos.ValidMoves()
	out := make([]domain.Move, 0, len(valid))
	for _, mv := range valid {
		text := strings.ToLower(mv.String())
		decoded, err := uci.Decode(pos, text)
		if err != nil {
			continue
		}
		out = append(out, domain.Move{UCI: text, SAN: san.Encode(pos, decoded)})
	}
	return out
}

func parseMove(pos *nchess.Position, input string) (domain.Move, error) {
	text := strings.TrimSpace(input)
	if text == "" {
		return domain.Move{}, domain.ErrIllegalMove
	}
	notationSAN := nchess.AlgebraicNotation{}
	notationUCI := nchess.UCINotation{}
	mv, err := notationSAN.Decode(pos, text)
	if err != nil {
		mv, err = notationUCI.Decode(pos, strings.ToLower(text))
		if err != nil {
			return domain.Move{}, fmt.Errorf("%w: %s", domain.ErrIllegalMove, text)
		}
	}
	uci := strings.ToLower(notationUCI.Encode(pos, mv))
	for _, legal := range legalMoves(pos) {
		if legal.UCI == uci {
			return legal, nil
		}
	}
	return domain.Move{}, fmt.Errorf("%w: %s", domain.ErrIllegalMove, text)
}

func terminalOf(game *nchess.Game) domain.Terminal {
	if game.Outcome() == nchess.NoOutcome {
		return positionTerminal(game.Position())
	}
	switch game.Method() {
	case nchess.Checkmate:
		return domain.TerminalCheckmate
	case nchess.Stalemate:
		return domain.TerminalStalemate
	default:
		return domain.TerminalDraw
	}
}

// positionTerminal covers positions loaded from FEN, where the game has not
// yet recorded an outcome.
func positionTerminal(pos *nchess.Position) domain.Terminal {
	if pos == nil || len(pos.ValidMoves()) > 0 {
		return domain.TerminalNone
	}
	if pos.Status() == nchess.Checkmate {
		return domain.TerminalCheckmate
	}
	return domain.TerminalStalemate
}

func outcomeOf(game *nchess.Game) domain.Outcome {
	switch game.Outcome() {
	case nchess.WhiteWon:
		return domain.OutcomeWhiteWin
	case nchess.BlackWon:
		return domain.OutcomeBlackWin
	case nchess.Draw:
		return domain.OutcomeDraw
	}
	switch positionTerminal(game.Position()) {
	case domain.TerminalCheckmate:
		if game.Position().Turn() == nchess.White {
			return domain.OutcomeBlackWin
		}
		return domain.OutcomeWhiteWin
	case domain.TerminalStalemate:
		return domain.OutcomeDraw
	}
	return domain.OutcomeOngoing
}

func methodOf(game *nchess.Game) string {
	if game.Outcome() == nchess.NoOutcome {
		switch positionTerminal(game.Position()) {
		case domain.TerminalCheckmate:
			return "checkmate"
		case domain.TerminalStalemate:
			return "stalemate"
		}
		return ""
	}
	return strings.ToLower(game.Method().String())
}
