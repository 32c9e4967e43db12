package session

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"

	"serialtool/pkg/history"
	"serialtool/pkg/terminal"
	"serialtool/pkg/ui"
)

// Widget is the body of one tab. Command mode keys the session does not
// use itself are passed to the active widget.
type Widget interface {
	HandleKey(c *Controller, ev *tcell.EventKey)
	Draw(c *Controller, s tcell.Screen, area ui.Rect)
	StateList() []string
}

// TxRxWidget shows the live transcript
type TxRxWidget struct {
	Hex  bool
	QA   bool
	CRLF bool
}

// HandleKey toggles the display and line ending options
func (w *TxRxWidget) HandleKey(_ *Controller, ev *tcell.EventKey) {
	if ev.Key() != tcell.KeyRune {
		return
	}
	switch ev.Rune() {
	case 'h':
		w.Hex = !w.Hex
	case 'a':
		w.QA = !w.QA
	case 'n':
		w.CRLF = !w.CRLF
	}
}

// StateList returns the toggles for the status bar
func (w *TxRxWidget) StateList() []string {
	return []string{
		checkbox(w.Hex) + "Hex Mode(h)",
		checkbox(w.QA) + "QA Mode(a)",
		checkbox(w.CRLF) + `\r\n End(n)`,
	}
}

func checkbox(on bool) string {
	if on {
		return "[x]"
	}
	return "[ ]"
}

// Draw renders the newest transcript lines that fit, oldest at the top
func (w *TxRxWidget) Draw(c *Controller, s tcell.Screen, area ui.Rect) {
	if area.Empty() {
		return
	}
	theme := c.opts.Theme

	type row struct {
		text  string
		style tcell.Style
	}
	var rows []row

	// Every entry takes at least one row, so area.H entries are enough.
	for _, e := range c.transcript.Tail(area.H) {
		style := theme.Rx
		switch e.Direction {
		case history.DirectionTx:
			style = theme.Tx
		case history.DirectionSystem:
			style = theme.System
		}
		for _, line := range w.format(e, area.W) {
			rows = append(rows, row{line, style})
		}
	}

	if len(rows) > area.H {
		rows = rows[len(rows)-area.H:]
	}
	for i, r := range rows {
		ui.DrawText(s, area.X, area.Y+i, area.W, r.text, r.style)
	}
}

// format turns one entry into display rows no wider than width
func (w *TxRxWidget) format(e history.Entry, width int) []string {
	body := terminal.StripEscapes(e.Text)
	if w.Hex {
		body = e.Hex()
	}

	prefix := ""
	switch {
	case w.QA:
		arrow := "RX<"
		switch e.Direction {
		case history.DirectionTx:
			arrow = "TX>"
		case history.DirectionSystem:
			arrow = "---"
		}
		prefix = e.Timestamp.Format("15:04:05") + " " + arrow + " "
	case e.Direction == history.DirectionSystem:
		prefix = "-- "
	}

	body = strings.ReplaceAll(body, "\r\n", "\n")
	body = strings.ReplaceAll(body, "\r", "\n")
	return ui.Wrap(prefix+body, width)
}

// CommandListWidget lists sent messages so one can be sent again
type CommandListWidget struct {
	// fromEnd is the selection counted back from the newest message
	fromEnd int
}

func (w *CommandListWidget) selected(items []string) int {
	if len(items) == 0 {
		return -1
	}
	w.fromEnd = min(w.fromEnd, len(items)-1)
	return len(items) - 1 - w.fromEnd
}

// HandleKey moves the selection and resends on Enter
func (w *CommandListWidget) HandleKey(c *Controller, ev *tcell.EventKey) {
	items := c.transcript.Sent()

	switch ev.Key() {
	case tcell.KeyUp:
		if w.fromEnd < len(items)-1 {
			w.fromEnd++
		}
	case tcell.KeyDown:
		if w.fromEnd > 0 {
			w.fromEnd--
		}
	case tcell.KeyEnter:
		if i := w.selected(items); i >= 0 {
			c.Resend(items[i])
			w.fromEnd = 0
		}
	}
}

// StateList returns the list hints for the status bar
func (w *CommandListWidget) StateList() []string {
	return []string{"[Up/Down] select", "[Enter] resend"}
}

// Draw renders the sent messages with the selection highlighted
func (w *CommandListWidget) Draw(c *Controller, s tcell.Screen, area ui.Rect) {
	if area.Empty() {
		return
	}
	theme := c.opts.Theme

	items := c.transcript.Sent()
	if len(items) == 0 {
		ui.DrawText(s, area.X, area.Y, area.W, "No messages sent yet", theme.Dim)
		return
	}

	sel := w.selected(items)
	start := 0
	if sel >= area.H {
		start = sel - area.H + 1
	}

	for i := start; i < len(items) && i-start < area.H; i++ {
		style := theme.Normal
		if i == sel {
			style = theme.Selected
		}
		line := fmt.Sprintf("%3d  %s", i, items[i])
		ui.DrawText(s, area.X, area.Y+i-start, area.W, ui.Truncate(line, area.W), style)
	}
}

// PlaceholderWidget stands in for a tab without behavior
type PlaceholderWidget struct {
	Name string
}

// HandleKey ignores all keys
func (w *PlaceholderWidget) HandleKey(*Controller, *tcell.EventKey) {}

// StateList returns nothing
func (w *PlaceholderWidget) StateList() []string { return nil }

// Draw renders a notice
func (w *PlaceholderWidget) Draw(c *Controller, s tcell.Screen, area ui.Rect) {
	if area.Empty() {
		return
	}
	msg := w.Name + " is not implemented"
	ui.DrawText(s, area.X, area.Y+area.H/2, area.W, msg, c.opts.Theme.Dim)
}
