package session

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"

	"serialtool/pkg/ui"
)

const (
	commandHelp = "[i] input mode | [q] exit app | [Esc] back"
	inputHelp   = "[Esc] command mode | [Enter] send"
)

// Draw renders the whole session view: tab bar, active tab body,
// input line and status bar
func (c *Controller) Draw(s tcell.Screen) {
	s.Clear()
	width, height := s.Size()
	if width <= 0 || height <= 0 {
		return
	}
	theme := c.opts.Theme

	c.drawTabBar(s, width)

	body := ui.Rect{X: 0, Y: 1, W: width, H: height - 3}
	c.widgets[c.tab].Draw(c, s, body)

	if height >= 3 {
		c.drawInputLine(s, height-2, width)
	}
	if height >= 2 {
		ui.DrawBar(s, height-1, c.statusLine(), c.opts.Title, theme.Bar)
	}
}

func (c *Controller) drawTabBar(s tcell.Screen, width int) {
	theme := c.opts.Theme

	x := 0
	for _, tab := range Tabs() {
		style := theme.Normal
		if tab == c.tab {
			style = theme.Selected
		}
		x += ui.DrawText(s, x, 0, width-x, "  "+tab.String()+"  ", style)
	}

	help := commandHelp
	if c.mode == ModeInput {
		help = inputHelp
	}
	if x+runewidth.StringWidth(help)+1 <= width {
		ui.DrawRight(s, 0, help, theme.Dim)
	}
}

// drawInputLine draws ">" and the editor text. The view scrolls
// horizontally so the caret stays on screen.
func (c *Controller) drawInputLine(s tcell.Screen, y, width int) {
	theme := c.opts.Theme

	style := theme.Dim
	if c.mode == ModeInput {
		style = theme.Normal
	}
	ui.DrawText(s, 0, y, 1, ">", style)

	runes := []rune(c.editor.Text())
	caret := c.editor.CursorColumn()

	room := width - 2
	skip := 0
	skipped := 0
	for caret-skipped > room && skip < len(runes) {
		skipped += runewidth.RuneWidth(runes[skip])
		skip++
	}
	ui.DrawText(s, 1, y, width-1, string(runes[skip:]), style)

	if c.mode == ModeInput {
		s.ShowCursor(1+caret-skipped, y)
	} else {
		s.HideCursor()
	}
}

func (c *Controller) statusLine() string {
	parts := []string{
		fmt.Sprintf("send:%d", c.sendCount),
		fmt.Sprintf("receive:%d", c.receiveCount),
	}
	parts = append(parts, c.widgets[c.tab].StateList()...)
	return strings.Join(parts, "  ")
}
