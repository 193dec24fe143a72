package main

import (
	"sync"
	"time"
	"unicode"
	"unicode/utf8"
)

// Player represents a connected player.
type Player struct {
	Pseudo   string    `json:"pseudo"`
	Color    string    `json:"color"`
	JoinedAt time.Time `json:"joined_at"`
}

// CellCoord identifies a cell by 0-based row and column.
type CellCoord struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// GameSession is a collaborative attempt at solving one puzzle.
type GameSession struct {
	ID        string             `json:"id"`
	PuzzleID  string             `json:"puzzle_id"`
	Players   map[string]*Player `json:"players"`
	State     [][]string         `json:"state"` // current letters [row][col]
	CreatedAt time.Time          `json:"created_at"`
	grid      *Grid
	mu        sync.Mutex
}

// playerColors is the palette assigned to players in order.
var playerColors = []string{
	"#2563eb", "#dc2626", "#16a34a", "#9333ea",
	"#ea580c", "#0891b2", "#c026d3", "#ca8a04",
}

// NewGameSession creates an empty session sized to p's grid.
func NewGameSession(id string, p *Puzzle) *GameSession {
	state := make([][]string, p.Grid.Rows)
	for i := range state {
		state[i] = make([]string, p.Grid.Cols)
	}
	return &GameSession{
		ID:        id,
		PuzzleID:  p.ID,
		Players:   make(map[string]*Player),
		State:     state,
		CreatedAt: time.Now(),
		grid:      p.Grid,
	}
}

// AddPlayer adds a player to the session and returns the player.
func (g *GameSession) AddPlayer(pseudo string) *Player {
	g.mu.Lock()
	defer g.mu.Unlock()

	if p, ok := g.Players[pseudo]; ok {
		return p
	}

	p := &Player{
		Pseudo:   pseudo,
		Color:    playerColors[len(g.Players)%len(playerColors)],
		JoinedAt: time.Now(),
	}
	g.Players[pseudo] = p
	return p
}

// RemovePlayer removes a player from the session.
func (g *GameSession) RemovePlayer(pseudo string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.Players, pseudo)
}

// HasPlayer reports whether pseudo has joined the session.
func (g *GameSession) HasPlayer(pseudo string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.Players[pseudo]
	return ok
}

// GetPlayers returns a copy of the connected players.
func (g *GameSession) GetPlayers() map[string]Player {
	g.mu.Lock()
	defer g.mu.Unlock()

	cp := make(map[string]Player, len(g.Players))
	for k, p := range g.Players {
		cp[k] = *p
	}
	return cp
}

// SetCell writes a letter at a position. It returns false when the position
// is outside the grid or on a blocked cell.
func (g *GameSession) SetCell(row, col int, value string) bool {
	if _, ok := g.grid.At(row, col); !ok {
		return false
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.State[row][col] = value
	return true
}

// GetState returns a copy of the current game state.
func (g *GameSession) GetState() [][]string {
	g.mu.Lock()
	defer g.mu.Unlock()

	cp := make([][]string, len(g.State))
	for i, row := range g.State {
		cp[i] = make([]string, len(row))
		copy(cp[i], row)
	}
	return cp
}

// Check returns the filled cells whose letter differs from the solution and
// whether every letter cell holds the right letter. Case is ignored.
func (g *GameSession) Check() (wrong []CellCoord, solved bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	solved = true
	for i, row := range g.State {
		for j, v := range row {
			c, ok := g.grid.At(i, j)
			if !ok {
				continue
			}
			r, _ := utf8.DecodeRuneInString(v)
			switch {
			case v == "":
				solved = false
			case unicode.ToUpper(r) != unicode.ToUpper(c.Content):
				wrong = append(wrong, CellCoord{Row: i, Col: j})
				solved = false
			}
		}
	}
	return wrong, solved
}
