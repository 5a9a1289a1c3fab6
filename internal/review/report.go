package review

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/park285/grok-chess/internal/domain"
)

// WriteReport prints one line per ply followed by the summary.
func WriteReport(w io.Writer, outcomes []domain.MoveOutcome) error {
	var sb strings.Builder
	sb.WriteString("Game review\n")
	for _, mo := range outcomes {
		fmt.Fprintf(&sb, "%s %s: ", moveNumber(mo), mo.Move.String())
		switch {
		case !mo.Analyzed:
			sb.WriteString("unanalyzed")
		case mo.Suggested != "":
			fmt.Fprintf(&sb, "%s (-%d cp, suggested %s)", mo.Classification, mo.LossCP, mo.Suggested)
		default:
			fmt.Fprintf(&sb, "%s (%+.2f)", mo.Classification, float64(mo.PostEval.ScoreCP)/100)
		}
		sb.WriteByte('\n')
	}

	s := Summarize(outcomes)
	sb.WriteString("\nSummary\n")
	for c := domain.Best; c <= domain.Blunder; c++ {
		fmt.Fprintf(&sb, "  %-10s %d\n", c.String()+":", s.Counts[c])
	}
	if s.Unanalyzed > 0 {
		fmt.Fprintf(&sb, "  %-10s %d\n", "unanalyzed:", s.Unanalyzed)
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

// moveNumber reads the full-move counter of the position before the move.
func moveNumber(mo domain.MoveOutcome) string {
	n := (mo.Ply + 1) / 2
	if fields := strings.Fields(string(mo.PreEval.Position)); len(fields) == 6 {
		if v, err := strconv.Atoi(fields[5]); err == nil {
			n = v
		}
	}
	if mo.Side == domain.Black {
		return fmt.Sprintf("%d...", n)
	}
	return fmt.Sprintf("%d.", n)
}
