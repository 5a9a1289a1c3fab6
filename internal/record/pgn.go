package record

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/park285/grok-chess/internal/domain"
	"github.com/park285/grok-chess/internal/rules"
)

const eventName = "Grok Chess"

func resultToken(o domain.Outcome) string {
	switch o {
	case domain.OutcomeWhiteWin:
		return "1-0"
	case domain.OutcomeBlackWin:
		return "0-1"
	case domain.OutcomeDraw:
		return "1/2-1/2"
	default:
		return "*"
	}
}

func outcomeFromToken(tok string) domain.Outcome {
	switch strings.TrimSpace(tok) {
	case "1-0":
		return domain.OutcomeWhiteWin
	case "0-1":
		return domain.OutcomeBlackWin
	case "1/2-1/2":
		return domain.OutcomeDraw
	default:
		return domain.OutcomeOngoing
	}
}

// PGN renders rec as PGN text with SAN movetext.
func PGN(rec *domain.GameRecord) string {
	if rec == nil {
		return ""
	}
	result := resultToken(rec.Outcome)
	date := rec.EndedAt
	if date.IsZero() {
		date = time.Now()
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[Event %q]\n", eventName)
	b.WriteString("[Site \"local\"]\n")
	fmt.Fprintf(&b, "[Date \"%04d.%02d.%02d\"]\n", date.Year(), int(date.Month()), date.Day())
	fmt.Fprintf(&b, "[White \"%s\"]\n", sanitize(rec.White))
	fmt.Fprintf(&b, "[Black \"%s\"]\n", sanitize(rec.Black))
	if start := strings.TrimSpace(string(rec.StartFEN)); start != "" && domain.Position(start) != rules.StartFEN {
		b.WriteString("[SetUp \"1\"]\n")
		fmt.Fprintf(&b, "[FEN \"%s\"]\n", sanitize(start))
	}
	if op, ok := rules.IdentifyOpening(rec.StartFEN, rules.PlyMoves(rec.Plies)); ok {
		fmt.Fprintf(&b, "[ECO \"%s\"]\n", sanitize(op.Code))
		fmt.Fprintf(&b, "[Opening \"%s\"]\n", sanitize(op.Name))
	}
	if m := strings.TrimSpace(rec.Method); m != "" {
		fmt.Fprintf(&b, "[Termination \"%s\"]\n", sanitize(strings.ToLower(m)))
	}
	fmt.Fprintf(&b, "[Result \"%s\"]\n\n", result)

	for i, p := range rec.Plies {
		n := fullMove(p.Before)
		switch {
		case p.Side == domain.White:
			fmt.Fprintf(&b, "%d. ", n)
		case i == 0:
			fmt.Fprintf(&b, "%d... ", n)
		}
		b.WriteString(strings.TrimSpace(p.Move.String()))
		b.WriteByte(' ')
	}
	b.WriteString(result)
	b.WriteByte('\n')
	return b.String()
}

// ReadPGN rebuilds a record from PGN text by replaying its moves.
func ReadPGN(r io.Reader) (*domain.GameRecord, error) {
	g, tags, err := rules.ReadPGN(r)
	if err != nil {
		return nil, err
	}
	rec := &domain.GameRecord{
		White:    tags["White"],
		Black:    tags["Black"],
		StartFEN: g.Start(),
		Plies:    g.Plies(),
		Outcome:  g.Outcome(),
		Method:   g.Method(),
	}
	if rec.Outcome == domain.OutcomeOngoing {
		rec.Outcome = outcomeFromToken(tags["Result"])
		rec.Method = tags["Termination"]
	}
	if d, err := time.Parse("2006.01.02", tags["Date"]); err == nil {
		rec.EndedAt = d
	}
	return rec, nil
}

// WriteFile exports rec under dir as <id>.pgn and returns the path.
func WriteFile(dir string, rec *domain.GameRecord) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create pgn dir: %w", err)
	}
	name := rec.ID
	if name == "" {
		name = "game"
	}
	path := filepath.Join(dir, name+".pgn")
	if err := os.WriteFile(path, []byte(PGN(rec)), 0o644); err != nil {
		return "", fmt.Errorf("write pgn: %w", err)
	}
	return path, nil
}

func fullMove(pos domain.Position) int {
	fields := strings.Fields(string(pos))
	if len(fields) == 6 {
		var n int
		if _, err := fmt.Sscanf(fields[5], "%d", &n); err == nil && n > 0 {
			return n
		}
	}
	return 1
}

func sanitize(s string) string {
	s = strings.ReplaceAll(s, "\\", " ")
	s = strings.ReplaceAll(s, "\"", "'")
	return strings.TrimSpace(s)
}
