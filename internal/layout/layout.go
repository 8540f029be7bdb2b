// Package layout computes where paragraph lines start for a given width.
package layout

import (
	"github.com/mattn/go-runewidth"

	"github.com/pricofy/reading-pacer/internal/domain"
)

// Line is one visual line of a wrapped paragraph.
type Line struct {
	// StartIndex and EndIndex are token OriginalIndex values; EndIndex is exclusive.
	StartIndex int
	EndIndex   int
	Width      int
}

// Wrap lays tokens out greedily into lines at most width cells wide, with
// one space between words. A word wider than the line gets a line of its own.
// A width of zero or less keeps everything on a single line.
func Wrap(tokens []domain.Token, width int) []Line {
	if len(tokens) == 0 {
		return nil
	}

	var lines []Line
	current := Line{StartIndex: tokens[0].OriginalIndex}

	for i, tok := range tokens {
		w := runewidth.StringWidth(tok.Text)
		if i == 0 {
			current.Width = w
			continue
		}
		if width > 0 && current.Width+1+w > width {
			current.EndIndex = tok.OriginalIndex
			lines = append(lines, current)
			current = Line{StartIndex: tok.OriginalIndex, Width: w}
			continue
		}
		current.Width += 1 + w
	}

	current.EndIndex = tokens[len(tokens)-1].OriginalIndex + 1
	return append(lines, current)
}

// StartIndices returns the first token index of every line.
func StartIndices(lines []Line) []int {
	out := make([]int, len(lines))
	for i, l := range lines {
		out[i] = l.StartIndex
	}
	return out
}
