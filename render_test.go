package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderLatexSingleWord(t *testing.T) {
	qs := []Question{hq(1, 1, 1, "CAT")}
	g, err := BuildGrid(qs)
	require.NoError(t, err)

	want := `\begin{Puzzle}{3}{1}
|[1][ftl]C |[][ft]A |[][ft]T |.
\end{Puzzle}

\begin{PuzzleClues}{\sffamily\textbf{Waagerecht}}
\Clue{1}{}{qCAT}
\end{PuzzleClues}
\begin{PuzzleClues}{\sffamily\textbf{Senkrecht}}
\end{PuzzleClues}
`
	assert.Equal(t, want, RenderLatex(g, qs, DefaultLabels()))
}

func TestRenderLatexSample(t *testing.T) {
	g, err := BuildGrid(sampleQuestions)
	require.NoError(t, err)

	want := `\begin{Puzzle}{5}{4}
|[1][ftl]H |[][ft]A |[2][ft]U |[][ft]S |{} |.
|{} |{} |[][fl]H |{} |{} |.
|{} |{} |[3][fl]R |[4][ft]A |[][ft]D |.
|{} |{} |{} |[][fl]B |{} |.
\end{Puzzle}

\begin{PuzzleClues}{\sffamily\textbf{Waagerecht}}
\Clue{1}{}{qHAUS}
\Clue{3}{}{qRAD}
\end{PuzzleClues}
\begin{PuzzleClues}{\sffamily\textbf{Senkrecht}}
\Clue{2}{}{qUHR}
\Clue{4}{}{qAB}
\end{PuzzleClues}
`
	assert.Equal(t, want, RenderLatex(g, sampleQuestions, DefaultLabels()))
}

func TestRenderLatexKeepsInputOrder(t *testing.T) {
	qs := []Question{hq(7, 3, 1, "AB"), vq(9, 1, 1, "XYA"), hq(2, 1, 1, "XZ"), vq(1, 1, 2, "ZQ")}
	g, err := BuildGrid(qs)
	require.NoError(t, err)

	out := RenderLatex(g, qs, DefaultLabels())
	assert.Less(t, strings.Index(out, `\Clue{7}`), strings.Index(out, `\Clue{2}`))
	assert.Less(t, strings.Index(out, `\Clue{9}`), strings.Index(out, `\Clue{1}`))
}

func TestRenderSolution(t *testing.T) {
	g, err := BuildGrid(sampleQuestions)
	require.NoError(t, err)

	want := "HAUS.\n" +
		"..H..\n" +
		"..RAD\n" +
		"...B.\n" +
		"\n" +
		"Frage 1: qHAUS\nAntwort: HAUS\nErklärung: dHAUS\n" +
		"Frage 3: qRAD\nAntwort: RAD\nErklärung: dRAD\n" +
		"Frage 2: qUHR\nAntwort: UHR\nErklärung: dUHR\n" +
		"Frage 4: qAB\nAntwort: AB\nErklärung: dAB"
	assert.Equal(t, want, RenderSolution(g, sampleQuestions, DefaultLabels()))
}

func TestRenderSolutionGridShape(t *testing.T) {
	g, err := BuildGrid(sampleQuestions)
	require.NoError(t, err)

	out := RenderSolution(g, sampleQuestions, DefaultLabels())
	block, _, found := strings.Cut(out, "\n\n")
	require.True(t, found)

	lines := strings.Split(block, "\n")
	require.Len(t, lines, g.Rows)
	for _, l := range lines {
		assert.Len(t, []rune(l), g.Cols)
	}
}

func TestRenderIdempotent(t *testing.T) {
	g, err := BuildGrid(sampleQuestions)
	require.NoError(t, err)

	l := DefaultLabels()
	assert.Equal(t, RenderLatex(g, sampleQuestions, l), RenderLatex(g, sampleQuestions, l))
	assert.Equal(t, RenderSolution(g, sampleQuestions, l), RenderSolution(g, sampleQuestions, l))
}

func TestRenderCustomLabels(t *testing.T) {
	qs := []Question{hq(1, 1, 1, "CAT")}
	g, err := BuildGrid(qs)
	require.NoError(t, err)

	l := Labels{Horizontal: "Across", Vertical: "Down", Question: "Clue", Answer: "Answer", Explanation: "Why"}
	assert.Contains(t, RenderLatex(g, qs, l), `\textbf{Across}`)
	assert.Contains(t, RenderLatex(g, qs, l), `\textbf{Down}`)
	assert.True(t, strings.HasSuffix(RenderSolution(g, qs, l), "Clue 1: qCAT\nAnswer: CAT\nWhy: dCAT"))
}

func TestPuzzleLatexHeader(t *testing.T) {
	p, err := NewPuzzle(Puzzle{GameNr: "2741", Questions: []Question{hq(1, 1, 1, "CAT")}})
	require.NoError(t, err)

	out := p.Latex(DefaultLabels())
	assert.True(t, strings.HasPrefix(out, "\\fancyhead[LO]{Um die Ecke Gedacht Nr. 2741}\n\n\\begin{Puzzle}{3}{1}\n"))
}
