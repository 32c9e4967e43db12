// Package ui provides the tcell drawing primitives shared by every page:
// width-aware text, bars, boxes and the color theme.
package ui

import (
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"
)

// Rect is a screen area
type Rect struct {
	X, Y, W, H int
}

// Empty reports whether the area has no cells
func (r Rect) Empty() bool {
	return r.W <= 0 || r.H <= 0
}

// Theme holds the styles used across pages
type Theme struct {
	Normal   tcell.Style
	Title    tcell.Style
	Selected tcell.Style
	Bar      tcell.Style
	Dim      tcell.Style
	Tx       tcell.Style
	Rx       tcell.Style
	System   tcell.Style
	Error    tcell.Style
	Border   tcell.Style
}

// DefaultTheme returns the default theme. It keeps the terminal's own
// background so the tool blends into the user's color scheme.
func DefaultTheme() Theme {
	base := tcell.StyleDefault.
		Background(tcell.ColorReset).
		Foreground(tcell.ColorReset)

	return Theme{
		Normal:   base,
		Title:    base.Bold(true),
		Selected: tcell.StyleDefault.Background(tcell.ColorWhite).Foreground(tcell.ColorBlack),
		Bar:      tcell.StyleDefault.Background(tcell.ColorDarkBlue).Foreground(tcell.ColorWhite),
		Dim:      base.Foreground(tcell.ColorGray),
		Tx:       base.Foreground(tcell.ColorGreen),
		Rx:       base.Foreground(tcell.ColorTeal),
		System:   base.Foreground(tcell.ColorYellow),
		Error:    base.Foreground(tcell.ColorRed).Bold(true),
		Border:   base.Foreground(tcell.ColorGray),
	}
}

// DrawText draws text at (x, y) and stops before maxWidth columns.
// Wide runes take two cells and zero-width runes combine with the
// previous cell. It returns the number of columns used.
// A negative maxWidth means up to the right edge of the screen.
func DrawText(s tcell.Screen, x, y, maxWidth int, text string, style tcell.Style) int {
	screenWidth, screenHeight := s.Size()
	if y < 0 || y >= screenHeight {
		return 0
	}
	if maxWidth < 0 {
		maxWidth = screenWidth - x
	}
	limit := min(x+maxWidth, screenWidth)

	col := x
	lastX := -1
	var lastMain rune
	var lastComb []rune

	for _, r := range text {
		if r < ' ' || r == 0x7f {
			r = ' '
		}
		w := runewidth.RuneWidth(r)
		if w == 0 {
			if lastX >= 0 {
				lastComb = append(lastComb, r)
				s.SetContent(lastX, y, lastMain, lastComb, style)
			}
			continue
		}
		if col+w > limit {
			break
		}
		s.SetContent(col, y, r, nil, style)
		lastX, lastMain, lastComb = col, r, nil
		col += w
	}
	return col - x
}

// DrawRight draws text so that it ends at the right edge of the screen
func DrawRight(s tcell.Screen, y int, text string, style tcell.Style) {
	width, _ := s.Size()
	x := max(width-runewidth.StringWidth(text), 0)
	DrawText(s, x, y, width-x, text, style)
}

// fillRow paints a whole screen row with blanks
func fillRow(s tcell.Screen, y int, style tcell.Style) {
	width, _ := s.Size()
	for x := 0; x < width; x++ {
		s.SetContent(x, y, ' ', nil, style)
	}
}

// DrawBar draws a full-width bar with left aligned and right aligned text.
// The right text wins when both do not fit.
func DrawBar(s tcell.Screen, y int, left, right string, style tcell.Style) {
	width, _ := s.Size()
	fillRow(s, y, style)

	rightWidth := runewidth.StringWidth(right)
	leftRoom := width - rightWidth - 1
	if leftRoom > 0 {
		DrawText(s, 0, y, leftRoom, left, style)
	}
	if right != "" {
		DrawRight(s, y, right, style)
	}
}

// Truncate shortens text to fit width columns, marking the cut with "…"
func Truncate(text string, width int) string {
	if width <= 0 {
		return ""
	}
	return runewidth.Truncate(text, width, "…")
}

// Wrap splits text into lines of at most width columns.
// Existing newlines are kept as line breaks.
func Wrap(text string, width int) []string {
	if width <= 0 {
		return nil
	}

	var lines []string
	for _, para := range strings.Split(text, "\n") {
		if para == "" {
			lines = append(lines, "")
			continue
		}

		var line strings.Builder
		col := 0
		for _, r := range para {
			w := runewidth.RuneWidth(r)
			if col+w > width && col > 0 {
				lines = append(lines, line.String())
				line.Reset()
				col = 0
			}
			line.WriteRune(r)
			col += w
		}
		lines = append(lines, line.String())
	}
	return lines
}
