package uci

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
)

// fakeEngine speaks just enough UCI for the session: it answers the
// handshake and replies to "go" with the scripted info lines.
type fakeEngine struct {
	mu       sync.Mutex
	commands []string
	info     []string
	best     string
}

func (e *fakeEngine) seen() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.commands...)
}

func (e *fakeEngine) start(t *testing.T) (*Session, Options) {
	t.Helper()
	inR, inW := io.Pipe()
	outR, outW := io.Pipe()

	go func() {
		defer outW.Close()
		scanner := bufio.NewScanner(inR)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			e.mu.Lock()
			e.commands = append(e.commands, line)
			e.mu.Unlock()
			var reply []string
			switch {
			case line == "uci":
				reply = []string{"id name fake", "uciok"}
			case line == "isready":
				reply = []string{"readyok"}
			case strings.HasPrefix(line, "go"):
				reply = append(append([]string(nil), e.info...), "bestmove "+e.best)
			case line == "quit":
				return
			}
			for _, r := range reply {
				if _, err := fmt.Fprintln(outW, r); err != nil {
					return
				}
			}
		}
	}()

	opt := Options{Threads: 2, HashMB: 32, MoveOverheadMS: 50}
	s := newSessionFromPipes(inW, outR, nil)
	if err := s.handshake(context.Background(), opt); err != nil {
		t.Fatalf("handshake: %v", err)
	}
	return s, opt
}

func TestSessionSearchParsesBestLine(t *testing.T) {
	eng := &fakeEngine{
		info: []string{
			"info depth 1 score cp 12 pv e2e4",
			"info depth 8 seldepth 10 multipv 1 score cp 35 nodes 1000 pv d2d4 d7d5 c2c4",
		},
		best: "d2d4 ponder d7d5",
	}
	s, _ := eng.start(t)
	defer s.Close()

	resp, err := s.Search(context.Background(), SearchRequest{FEN: "startpos", Limits: Limits{Depth: 8}})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if resp.BestMove != "d2d4" {
		t.Fatalf("best move = %q", resp.BestMove)
	}
	best, ok := resp.Best()
	if !ok || best.EvalCP != 35 || best.Depth != 8 || len(best.Principal) != 3 {
		t.Fatalf("unexpected candidate %+v", best)
	}

	cmds := strings.Join(eng.seen(), "\n")
	for _, want := range []string{
		"setoption name Threads value 2",
		"setoption name Hash value 32",
		"setoption name Move Overhead value 50",
		"position startpos",
		"go depth 8",
	} {
		if !strings.Contains(cmds, want) {
			t.Fatalf("engine never received %q; got:\n%s", want, cmds)
		}
	}
}

func TestParseInfoMateScores(t *testing.T) {
	_, cand, ok := parseInfo("info depth 12 score mate 3 pv h5f7")
	if !ok || cand.EvalCP != MateScore || !cand.Mate {
		t.Fatalf("mate for side to move: %+v ok=%v", cand, ok)
	}
	_, cand, ok = parseInfo("info depth 12 score mate -2 pv g8h8")
	if !ok || cand.EvalCP != -MateScore {
		t.Fatalf("mated side to move: %+v ok=%v", cand, ok)
	}
	if _, _, ok := parseInfo("info depth 3 currmove e2e4"); ok {
		t.Fatalf("line without pv must be ignored")
	}
}

func TestBuildGoTokens(t *testing.T) {
	if _, err := buildGoTokens(Limits{}); err == nil {
		t.Fatalf("expected error without limits")
	}
	got, err := buildGoTokens(Limits{Depth: 12, MoveTimeMillis: 500})
	if err != nil {
		t.Fatalf("buildGoTokens: %v", err)
	}
	if strings.Join(got, " ") != "go depth 12 movetime 500" {
		t.Fatalf("tokens = %v", got)
	}
}

func TestPoolReusesAndDiscards(t *testing.T) {
	var (
		mu      sync.Mutex
		dialed  int
		engines []*fakeEngine
	)
	pool, err := NewPool(PoolConfig{
		Capacity: 1,
		Dial: func(ctx context.Context, opt Options) (*Session, error) {
			mu.Lock()
			defer mu.Unlock()
			dialed++
			eng := &fakeEngine{best: "e2e4"}
			engines = append(engines, eng)
			s, _ := eng.start(t)
			return s, nil
		},
	})
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}
	t.Cleanup(func() { _ = pool.Close() })

	ctx := context.Background()
	opt := Options{Threads: 1, HashMB: 16}
	s1, err := pool.Acquire(ctx, opt)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	pool.Release(s1, nil)
	s2, err := pool.Acquire(ctx, opt)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if s1 != s2 || dialed != 1 {
		t.Fatalf("expected the idle session to be reused, dialed=%d", dialed)
	}

	pool.Release(s2, fmt.Errorf("search failed"))
	s3, err := pool.Acquire(ctx, opt)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if s3 == s2 || dialed != 2 {
		t.Fatalf("failed session must be replaced, dialed=%d", dialed)
	}
	pool.Release(s3, nil)
}
