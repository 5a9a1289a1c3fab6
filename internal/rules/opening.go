package rules

import (
	"strings"
	"sync"

	nchess "github.com/corentings/chess/v2"
	"github.com/corentings/chess/v2/opening"

	"github.com/park285/grok-chess/internal/domain"
)

// Opening is an ECO classification.
type Opening struct {
	Code string
	Name string
}

var ecoBook = sync.OnceValue(opening.NewBookECO)

// IdentifyOpening names the deepest ECO line reached by moves. Games that do
// not begin from the standard position are never classified.
func IdentifyOpening(start domain.Position, moves []domain.Move) (Opening, bool) {
	if s := strings.TrimSpace(string(start)); s != "" && domain.Position(s) != StartFEN {
		return Opening{}, false
	}
	if len(moves) == 0 {
		return Opening{}, false
	}
	g := nchess.NewGame()
	uci := nchess.UCINotation{}
	for _, mv := range moves {
		decoded, err := uci.Decode(g.Position(), strings.ToLower(mv.UCI))
		if err != nil {
			break
		}
		if err := g.Move(decoded, nil); err != nil {
			break
		}
	}
	eco := ecoBook().Find(g.Moves())
	if eco == nil {
		return Opening{}, false
	}
	return Opening{Code: eco.Code(), Name: eco.Title()}, true
}

// PlyMoves extracts the moves of plies in order.
func PlyMoves(plies []domain.Ply) []domain.Move {
	out := make([]domain.Move, len(plies))
	for i, p := range plies {
		out[i] = p.Move
	}
	return out
}
