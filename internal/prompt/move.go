package prompt

import (
	"fmt"
	"strings"
)

const (
	maxLegalInPrompt   = 40
	maxHistoryInPrompt = 10

	DefaultDifficulty = "medium"
)

var difficulties = []string{"easy", "medium", "hard", "expert"}

// NormalizeDifficulty maps unknown levels to the default.
func NormalizeDifficulty(level string) string {
	level = strings.ToLower(strings.TrimSpace(level))
	for _, d := range difficulties {
		if d == level {
			return d
		}
	}
	return DefaultDifficulty
}

type MoveData struct {
	FEN        string
	Side       string
	Legal      []string
	History    []string
	InCheck    bool
	Difficulty string
}

// Move renders the system and user messages for a move request.
func (c *Catalog) Move(in MoveData) (system, user string, err error) {
	level := NormalizeDifficulty(in.Difficulty)
	instruction, ok := c.Text("difficulty." + level)
	if !ok {
		return "", "", fmt.Errorf("prompt not found: difficulty.%s", level)
	}
	system, ok = c.Text("move.system")
	if !ok {
		return "", "", fmt.Errorf("prompt not found: move.system")
	}

	legal := in.Legal
	if len(legal) > maxLegalInPrompt {
		legal = legal[:maxLegalInPrompt]
	}
	user, err = c.Render("move.user", map[string]any{
		"FEN":         in.FEN,
		"Side":        in.Side,
		"Legal":       legal,
		"History":     tail(in.History, maxHistoryInPrompt),
		"InCheck":     in.InCheck,
		"Difficulty":  level,
		"Instruction": strings.TrimSpace(instruction),
	})
	if err != nil {
		return "", "", err
	}
	return strings.TrimSpace(system), user, nil
}

func (c *Catalog) Commentary(fen, side string, history []string) (string, error) {
	return c.Render("commentary.user", map[string]any{
		"FEN":     fen,
		"Side":    side,
		"History": tail(history, 5),
	})
}

func tail(s []string, n int) []string {
	if len(s) > n {
		return s[len(s)-n:]
	}
	return s
}
