// Package uitest reads back what was drawn on a tcell screen in tests
package uitest

import (
	"strings"

	"github.com/gdamore/tcell/v2"
)

// RowText reads row y back from the screen as a string, one rune per
// glyph, with trailing blanks removed
func RowText(s tcell.Screen, y int) string {
	width, _ := s.Size()

	var sb strings.Builder
	for x := 0; x < width; {
		mainc, combc, _, w := s.GetContent(x, y)
		if mainc == 0 {
			mainc = ' '
		}
		sb.WriteRune(mainc)
		for _, c := range combc {
			sb.WriteRune(c)
		}
		x += max(w, 1)
	}
	return strings.TrimRight(sb.String(), " ")
}
