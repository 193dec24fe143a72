package main

import (
	"sync"
	"testing"
)

func newTestPuzzle(t *testing.T) *Puzzle {
	t.Helper()
	p, err := NewPuzzle(Puzzle{GameNr: "1", Questions: sampleQuestions})
	if err != nil {
		t.Fatalf("build puzzle: %v", err)
	}
	return p
}

func TestSaveAndGetPuzzle(t *testing.T) {
	s := NewStore()
	p := s.SavePuzzle(newTestPuzzle(t))

	if p.ID == "" {
		t.Fatal("expected puzzle to have an ID")
	}
	if got := s.GetPuzzle(p.ID); got == nil {
		t.Fatal("expected to find saved puzzle")
	}
	if got := s.GetPuzzle("nonexistent"); got != nil {
		t.Fatal("expected nil for unknown ID")
	}
}

func TestListPuzzles(t *testing.T) {
	s := NewStore()
	s.SavePuzzle(newTestPuzzle(t))
	s.SavePuzzle(newTestPuzzle(t))

	list := s.ListPuzzles()
	if len(list) != 2 {
		t.Fatalf("expected 2 puzzles, got %d", len(list))
	}
	// Most recent first.
	if list[0].CreatedAt.Before(list[1].CreatedAt) {
		t.Fatal("expected puzzles sorted by descending creation time")
	}
}

func TestCreateGame(t *testing.T) {
	s := NewStore()

	// Error on unknown puzzle.
	if _, err := s.CreateGame("unknown"); err == nil {
		t.Fatal("expected error for unknown puzzle")
	}

	p := s.SavePuzzle(newTestPuzzle(t))
	game, err := s.CreateGame(p.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if game.PuzzleID != p.ID {
		t.Fatal("game should reference the puzzle")
	}
	if len(game.State) != 4 || len(game.State[0]) != 5 {
		t.Fatalf("expected 4x5 state, got %dx%d", len(game.State), len(game.State[0]))
	}
	if s.GetGame(game.ID) != game {
		t.Fatal("expected to find created game")
	}
	if len(s.ListGames()) != 1 {
		t.Fatal("expected one game")
	}
}

func TestGameAddPlayer(t *testing.T) {
	s := NewStore()
	p := s.SavePuzzle(newTestPuzzle(t))
	game, _ := s.CreateGame(p.ID)

	p1 := game.AddPlayer("Alice")
	p2 := game.AddPlayer("Bob")

	if p1.Pseudo != "Alice" || p2.Pseudo != "Bob" {
		t.Fatal("unexpected pseudo")
	}
	if p1.Color == p2.Color {
		t.Fatal("players should have different colors")
	}

	// Adding same pseudo returns existing player.
	if again := game.AddPlayer("Alice"); again.Color != p1.Color {
		t.Fatal("same pseudo should return same player")
	}

	game.RemovePlayer("Bob")
	if _, ok := game.GetPlayers()["Bob"]; ok {
		t.Fatal("Bob should have been removed")
	}
}

func TestGameSetCell(t *testing.T) {
	s := NewStore()
	p := s.SavePuzzle(newTestPuzzle(t))
	game, _ := s.CreateGame(p.ID)

	if !game.SetCell(0, 0, "H") {
		t.Fatal("expected SetCell to succeed")
	}
	if game.SetCell(-1, 0, "X") {
		t.Fatal("expected SetCell to fail for negative row")
	}
	if game.SetCell(0, 5, "X") {
		t.Fatal("expected SetCell to fail for out-of-bounds col")
	}
	if game.SetCell(1, 0, "X") {
		t.Fatal("expected SetCell to fail on a blocked cell")
	}

	state := game.GetState()
	if state[0][0] != "H" {
		t.Fatalf("expected 'H', got %q", state[0][0])
	}
}

func TestGameCheck(t *testing.T) {
	s := NewStore()
	p := s.SavePuzzle(newTestPuzzle(t))
	game, _ := s.CreateGame(p.ID)

	game.SetCell(0, 0, "H")
	game.SetCell(0, 1, "E")

	wrong, solved := game.Check()
	if solved {
		t.Fatal("half-filled grid reported as solved")
	}
	if len(wrong) != 1 || wrong[0] != (CellCoord{Row: 0, Col: 1}) {
		t.Fatalf("expected (0,1) wrong, got %v", wrong)
	}

	for i, row := range []string{"HAUS.", "..H..", "..RAD", "...B."} {
		for j, r := range row {
			if r != '.' {
				game.SetCell(i, j, string(r))
			}
		}
	}
	if wrong, solved := game.Check(); !solved || len(wrong) != 0 {
		t.Fatalf("expected solved grid, got wrong=%v solved=%v", wrong, solved)
	}
}

func TestGetStateCopy(t *testing.T) {
	s := NewStore()
	p := s.SavePuzzle(newTestPuzzle(t))
	game, _ := s.CreateGame(p.ID)
	game.SetCell(0, 0, "X")

	state := game.GetState()
	state[0][0] = "Z" // mutate the copy

	if game.GetState()[0][0] != "X" {
		t.Fatal("GetState should return a copy, not a reference")
	}
}

func TestConcurrentAccess(t *testing.T) {
	s := NewStore()
	p := s.SavePuzzle(newTestPuzzle(t))
	game, _ := s.CreateGame(p.ID)

	var wg sync.WaitGroup
	for i := range 100 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			game.SetCell(0, i%4, "A")
			game.GetState()
			game.Check()
			game.AddPlayer("player" + string(rune('A'+i%26)))
		}(i)
	}
	wg.Wait()
}

func TestGameCheckIgnoresCase(t *testing.T) {
	p, err := NewPuzzle(Puzzle{Questions: []Question{hq(1, 1, 1, "öl")}})
	if err != nil {
		t.Fatalf("build puzzle: %v", err)
	}
	game := NewGameSession("g1", p)

	game.SetCell(0, 0, "Ö")
	game.SetCell(0, 1, "L")
	if wrong, solved := game.Check(); !solved || len(wrong) != 0 {
		t.Fatalf("expected upper-case input to solve a lower-case answer, got wrong=%v solved=%v", wrong, solved)
	}
}
