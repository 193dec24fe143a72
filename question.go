package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrUnknownDirection is returned when a record carries a direction tag
// other than "h" or "v".
var ErrUnknownDirection = errors.New("unknown direction")

// Direction is the orientation of a word in the grid. The zero value is
// invalid so that a record without a direction tag is rejected.
type Direction int

const (
	Horizontal Direction = iota + 1
	Vertical
)

func (d Direction) String() string {
	switch d {
	case Horizontal:
		return "h"
	case Vertical:
		return "v"
	}
	return "?"
}

// MarshalJSON encodes the direction as its record tag.
func (d Direction) MarshalJSON() ([]byte, error) {
	if d != Horizontal && d != Vertical {
		return nil, fmt.Errorf("%w: %d", ErrUnknownDirection, int(d))
	}
	return json.Marshal(d.String())
}

// UnmarshalJSON accepts the record tags "h" and "v".
func (d *Direction) UnmarshalJSON(data []byte) error {
	var tag string
	if err := json.Unmarshal(data, &tag); err != nil {
		return fmt.Errorf("direction: %w", err)
	}
	switch tag {
	case "h":
		*d = Horizontal
	case "v":
		*d = Vertical
	default:
		return fmt.Errorf("%w: %q", ErrUnknownDirection, tag)
	}
	return nil
}

// Question is one clue of a puzzle: where its answer starts in the grid
// (1-indexed), which way it runs and the texts shown to the player.
type Question struct {
	ID          int       `json:"id"`
	GameID      int       `json:"game_id"`
	Nr          int       `json:"nr"`
	Question    string    `json:"question"`
	Answer      string    `json:"answer"`
	Col         int       `json:"xc"`
	Row         int       `json:"yc"`
	Direction   Direction `json:"direction"`
	Description string    `json:"description"`
	Length      int       `json:"length"`
}

// Puzzle is a complete "Um die Ecke gedacht" record as served by the
// provider, together with the grid built from its questions.
type Puzzle struct {
	ID             string     `json:"puzzle_id,omitempty"`
	GameID         int        `json:"id"`
	Name           string     `json:"name"`
	GameNr         string     `json:"gameNr"`
	IsContest      bool       `json:"isContest"`
	ReleaseDate    string     `json:"releaseDate"`
	AdditionalInfo string     `json:"additionalInfo"`
	Questions      []Question `json:"questions"`
	Grid           *Grid      `json:"grid,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// NewPuzzle builds the grid for p's questions and attaches it.
func NewPuzzle(p Puzzle) (*Puzzle, error) {
	grid, err := BuildGrid(p.Questions)
	if err != nil {
		return nil, err
	}
	p.Grid = grid
	return &p, nil
}

// Latex returns the puzzle markup prefixed with the page header naming the
// puzzle number.
func (p *Puzzle) Latex(l Labels) string {
	return fmt.Sprintf("\\fancyhead[LO]{Um die Ecke Gedacht Nr. %s}\n\n", p.GameNr) +
		RenderLatex(p.Grid, p.Questions, l)
}

// Solution returns the plain-text solution listing.
func (p *Puzzle) Solution(l Labels) string {
	return RenderSolution(p.Grid, p.Questions, l)
}

// DecodePuzzle parses either a full puzzle record or a bare array of
// question records and builds its grid.
func DecodePuzzle(data []byte) (*Puzzle, error) {
	var p Puzzle
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &p.Questions); err != nil {
			return nil, fmt.Errorf("decode questions: %w", err)
		}
	} else if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode puzzle: %w", err)
	}
	// A client-supplied grid is never trusted.
	p.Grid = nil
	return NewPuzzle(p)
}
