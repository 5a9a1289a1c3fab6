package prompt

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestMovePromptEmbedsPosition(t *testing.T) {
	c, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	history := []string{"e4", "e5", "Nf3", "Nc6", "Bb5", "a6", "Ba4", "Nf6", "O-O", "Be7", "Re1", "b5"}
	system, user, err := c.Move(MoveData{
		FEN:        "r1bqk2r/2ppbppp/p1n2n2/1p2p3/B3P3/5N2/PPPP1PPP/RNBQR1K1 w kq b6 0 7",
		Side:       "white",
		Legal:      []string{"a4b3", "a4c2"},
		History:    history,
		InCheck:    true,
		Difficulty: "HARD",
	})
	if err != nil {
		t.Fatalf("Move: %v", err)
	}
	if !strings.Contains(system, "UCI") {
		t.Fatalf("system prompt should ask for UCI: %q", system)
	}
	for _, want := range []string{"RNBQR1K1 w kq b6 0 7", "a4b3, a4c2", "You are in check.", "Level: hard", "forcing lines"} {
		if !strings.Contains(user, want) {
			t.Fatalf("user prompt missing %q:\n%s", want, user)
		}
	}
	if !strings.Contains(user, "Recent moves: Nf3 Nc6 Bb5") || strings.Contains(user, "e4 e5 Nf3") {
		t.Fatalf("history should be trimmed to the last ten moves:\n%s", user)
	}
}

func TestNormalizeDifficulty(t *testing.T) {
	cases := map[string]string{"easy": "easy", " Expert ": "expert", "": "medium", "grandmaster": "medium"}
	for in, want := range cases {
		if got := NormalizeDifficulty(in); got != want {
			t.Fatalf("NormalizeDifficulty(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestOverrideDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.yaml"), []byte("difficulty:\n  easy: Just move.\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	c, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, user, err := c.Move(MoveData{FEN: "startpos", Side: "white", Legal: []string{"e2e4"}, Difficulty: "easy"})
	if err != nil {
		t.Fatalf("Move: %v", err)
	}
	if !strings.Contains(user, "Just move.") {
		t.Fatalf("override not applied:\n%s", user)
	}

	if err := os.WriteFile(filepath.Join(dir, "b.yaml"), []byte("difficulty:\n  easy: Again.\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := New(dir); err == nil {
		t.Fatalf("expected duplicate key error")
	}
}

func TestCommentaryPrompt(t *testing.T) {
	c, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	out, err := c.Commentary("startpos", "white", nil)
	if err != nil {
		t.Fatalf("Commentary: %v", err)
	}
	if !strings.Contains(out, "under 100 words") || strings.Contains(out, "Recent moves") {
		t.Fatalf("unexpected commentary prompt:\n%s", out)
	}
}
