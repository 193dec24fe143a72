package main

import (
	"strconv"
	"strings"
)

// Labels are the words the renderers put around clues.
type Labels struct {
	Horizontal  string `hcl:"horizontal,optional"`
	Vertical    string `hcl:"vertical,optional"`
	Question    string `hcl:"question,optional"`
	Answer      string `hcl:"answer,optional"`
	Explanation string `hcl:"explanation,optional"`
}

// DefaultLabels are the German headings of the printed puzzle.
func DefaultLabels() Labels {
	return Labels{
		Horizontal:  "Waagerecht",
		Vertical:    "Senkrecht",
		Question:    "Frage",
		Answer:      "Antwort",
		Explanation: "Erklärung",
	}
}

// withDefaults fills empty labels from DefaultLabels.
func (l Labels) withDefaults() Labels {
	d := DefaultLabels()
	for _, f := range []struct{ v, def *string }{
		{&l.Horizontal, &d.Horizontal},
		{&l.Vertical, &d.Vertical},
		{&l.Question, &d.Question},
		{&l.Answer, &d.Answer},
		{&l.Explanation, &d.Explanation},
	} {
		if *f.v == "" {
			*f.v = *f.def
		}
	}
	return l
}

// RenderLatex returns the grid and clue lists as cwpuzzle markup.
// Clues keep their input order within each direction.
func RenderLatex(g *Grid, qs []Question, l Labels) string {
	var b strings.Builder
	b.WriteString("\\begin{Puzzle}{")
	b.WriteString(strconv.Itoa(g.Cols))
	b.WriteString("}{")
	b.WriteString(strconv.Itoa(g.Rows))
	b.WriteString("}\n")
	for _, row := range g.Cells {
		for _, c := range row {
			writeCellToken(&b, c)
		}
		b.WriteString("|.\n")
	}
	b.WriteString("\\end{Puzzle}\n\n")

	writeClues(&b, qs, Horizontal, l.Horizontal)
	writeClues(&b, qs, Vertical, l.Vertical)
	return b.String()
}

// writeCellToken writes "|[14][ftl]X " for a letter cell and "|{} " for a
// blocked one.
func writeCellToken(b *strings.Builder, c *GridCell) {
	if c == nil {
		b.WriteString("|{} ")
		return
	}
	b.WriteString("|[")
	if c.Number > 0 {
		b.WriteString(strconv.Itoa(c.Number))
	}
	b.WriteString("][f")
	if c.ThickTop {
		b.WriteByte('t')
	}
	if c.ThickLeft {
		b.WriteByte('l')
	}
	b.WriteByte(']')
	b.WriteRune(c.Content)
	b.WriteByte(' ')
}

func writeClues(b *strings.Builder, qs []Question, dir Direction, label string) {
	b.WriteString("\\begin{PuzzleClues}{\\sffamily\\textbf{")
	b.WriteString(label)
	b.WriteString("}}\n")
	for _, q := range qs {
		if q.Direction != dir {
			continue
		}
		b.WriteString("\\Clue{")
		b.WriteString(strconv.Itoa(q.Nr))
		b.WriteString("}{}{")
		b.WriteString(q.Question)
		b.WriteString("}\n")
	}
	b.WriteString("\\end{PuzzleClues}\n")
}

// RenderSolution returns the filled grid followed by every clue with its
// answer and explanation, in input order.
func RenderSolution(g *Grid, qs []Question, l Labels) string {
	var b strings.Builder
	for _, row := range g.Cells {
		for _, c := range row {
			if c == nil {
				b.WriteRune(emptyContent)
			} else {
				b.WriteRune(c.Content)
			}
		}
		b.WriteByte('\n')
	}
	b.WriteByte('\n')

	for i, q := range qs {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(l.Question + " " + strconv.Itoa(q.Nr) + ": " + q.Question + "\n")
		b.WriteString(l.Answer + ": " + q.Answer + "\n")
		b.WriteString(l.Explanation + ": " + q.Description)
	}
	return b.String()
}
