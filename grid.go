package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"unicode/utf8"
)

var (
	// ErrEmptyInput means there are no questions to size a grid from.
	ErrEmptyInput = errors.New("grid: no questions")
	// ErrOutOfBounds means a question's cells cannot be placed inside the grid.
	ErrOutOfBounds = errors.New("grid: question out of bounds")
)

const (
	// emptyContent is the letter of a cell no answer has painted.
	emptyContent = '.'

	// maxGridSide bounds every start coordinate, length and grid side.
	maxGridSide = 1000
	// maxGridCells bounds rows*cols.
	maxGridCells = 100_000
)

// GridCell is a letter cell of the puzzle.
// Number is 0 unless a clue starts in this cell.
type GridCell struct {
	Number       int
	InHorizontal bool
	InVertical   bool
	ThickTop     bool
	ThickLeft    bool
	Content      rune
}

type gridCellJSON struct {
	Number       int    `json:"number,omitempty"`
	InHorizontal bool   `json:"in_horizontal"`
	InVertical   bool   `json:"in_vertical"`
	ThickTop     bool   `json:"thick_top"`
	ThickLeft    bool   `json:"thick_left"`
	Letter       string `json:"letter,omitempty"`
}

func (c GridCell) MarshalJSON() ([]byte, error) {
	return json.Marshal(gridCellJSON{
		Number:       c.Number,
		InHorizontal: c.InHorizontal,
		InVertical:   c.InVertical,
		ThickTop:     c.ThickTop,
		ThickLeft:    c.ThickLeft,
		Letter:       string(c.Content),
	})
}

func (c *GridCell) UnmarshalJSON(data []byte) error {
	var v gridCellJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*c = GridCell{
		Number:       v.Number,
		InHorizontal: v.InHorizontal,
		InVertical:   v.InVertical,
		ThickTop:     v.ThickTop,
		ThickLeft:    v.ThickLeft,
		Content:      emptyContent,
	}
	if r, _ := utf8.DecodeRuneInString(v.Letter); v.Letter != "" {
		c.Content = r
	}
	return nil
}

// Grid is the solved puzzle grid. A nil cell is blocked: no answer runs
// through it. Cells are indexed [row][col], 0-based.
type Grid struct {
	Rows  int           `json:"rows"`
	Cols  int           `json:"cols"`
	Cells [][]*GridCell `json:"cells"`
}

// At returns a copy of the cell at the 0-based position and whether it is
// a letter cell.
func (g *Grid) At(row, col int) (GridCell, bool) {
	if row < 0 || row >= g.Rows || col < 0 || col >= g.Cols {
		return GridCell{}, false
	}
	c := g.Cells[row][col]
	if c == nil {
		return GridCell{}, false
	}
	return *c, true
}

// Masked returns a copy of the grid with every letter replaced by '.',
// suitable for handing to players.
func (g *Grid) Masked() *Grid {
	out := &Grid{Rows: g.Rows, Cols: g.Cols, Cells: make([][]*GridCell, g.Rows)}
	for i, row := range g.Cells {
		out.Cells[i] = make([]*GridCell, len(row))
		for j, c := range row {
			if c == nil {
				continue
			}
			cp := *c
			cp.Content = emptyContent
			out.Cells[i][j] = &cp
		}
	}
	return out
}

// BuildGrid lays the answers of qs into a new grid.
//
// The grid is just large enough to hold every answer. Horizontal answers are
// painted first, then vertical ones, each in input order; where two answers
// share a cell the later one's letter and clue number win. Cells no answer
// touches are blocked. Cells belonging to only one answer get a thick wall
// across the answer's direction (top for horizontal, left for vertical), and
// every answer's first cell gets a thick wall in front of it.
func BuildGrid(qs []Question) (*Grid, error) {
	if len(qs) == 0 {
		return nil, ErrEmptyInput
	}
	for _, q := range qs {
		if err := checkQuestion(q); err != nil {
			return nil, err
		}
	}

	rows, cols := bounds(qs)
	if rows > maxGridSide || cols > maxGridSide || rows*cols > maxGridCells {
		return nil, fmt.Errorf("%w: %dx%d grid exceeds %d cells", ErrOutOfBounds, rows, cols, maxGridCells)
	}
	g := &Grid{Rows: rows, Cols: cols, Cells: make([][]*GridCell, rows)}
	for i := range g.Cells {
		g.Cells[i] = make([]*GridCell, cols)
		for j := range g.Cells[i] {
			g.Cells[i][j] = &GridCell{Content: emptyContent}
		}
	}

	for _, dir := range []Direction{Horizontal, Vertical} {
		for _, q := range qs {
			if q.Direction != dir {
				continue
			}
			if err := g.paint(q); err != nil {
				return nil, err
			}
		}
	}

	for _, row := range g.Cells {
		for j, c := range row {
			switch {
			case !c.InHorizontal && !c.InVertical:
				row[j] = nil
			case c.InHorizontal && !c.InVertical:
				c.ThickTop = true
			case c.InVertical && !c.InHorizontal:
				c.ThickLeft = true
			}
		}
	}
	return g, nil
}

// bounds returns the smallest grid size covering every answer.
func bounds(qs []Question) (rows, cols int) {
	for _, q := range qs {
		var r, c int
		if q.Direction == Horizontal {
			r, c = q.Row, q.Col-1+q.Length
		} else {
			r, c = q.Row-1+q.Length, q.Col
		}
		rows, cols = max(rows, r), max(cols, c)
	}
	return rows, cols
}

func checkQuestion(q Question) error {
	if q.Direction != Horizontal && q.Direction != Vertical {
		return fmt.Errorf("%w: clue %d has no direction", ErrUnknownDirection, q.Nr)
	}
	if q.Row < 1 || q.Col < 1 || q.Row > maxGridSide || q.Col > maxGridSide {
		return fmt.Errorf("%w: clue %d%s starts at row %d, col %d", ErrOutOfBounds, q.Nr, q.Direction, q.Row, q.Col)
	}
	if q.Length < 1 || q.Length > maxGridSide {
		return fmt.Errorf("%w: clue %d%s has length %d", ErrOutOfBounds, q.Nr, q.Direction, q.Length)
	}
	if n := utf8.RuneCountInString(q.Answer); n != q.Length {
		return fmt.Errorf("%w: clue %d%s declares length %d but answer %q has %d letters",
			ErrOutOfBounds, q.Nr, q.Direction, q.Length, q.Answer, n)
	}
	return nil
}

func (g *Grid) paint(q Question) error {
	row, col := q.Row-1, q.Col-1
	dr, dc := 0, 1
	if q.Direction == Vertical {
		dr, dc = 1, 0
	}
	for i, r := range []rune(q.Answer) {
		y, x := row+i*dr, col+i*dc
		if y >= g.Rows || x >= g.Cols {
			return fmt.Errorf("%w: clue %d%s leaves the %dx%d grid at row %d, col %d",
				ErrOutOfBounds, q.Nr, q.Direction, g.Rows, g.Cols, y+1, x+1)
		}
		c := g.Cells[y][x]
		if i == 0 {
			c.Number = q.Nr
			if q.Direction == Horizontal {
				c.ThickLeft = true
			} else {
				c.ThickTop = true
			}
		}
		if q.Direction == Horizontal {
			c.InHorizontal = true
		} else {
			c.InVertical = true
		}
		c.Content = r
	}
	return nil
}
