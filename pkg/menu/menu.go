// Package menu implements the keyboard driven field menu of the port
// selection page. Each field holds a list of options; the user enters a
// field, types the index of an option and leaves the field to commit it.
package menu

import (
	"fmt"
	"strconv"

	"github.com/gdamore/tcell/v2"

	"serialtool/pkg/ui"
)

// maxIndex is the largest index that still accepts another digit,
// which caps the typed index at two digits
const maxIndex = 10

// Field is one configurable setting
type Field struct {
	Label   string
	Options []string
	Value   int
}

// Current returns the selected option, or "" when there are no options
func (f Field) Current() string {
	if f.Value < 0 || f.Value >= len(f.Options) {
		return ""
	}
	return f.Options[f.Value]
}

// LineKind tells the renderer how to style a menu line
type LineKind int

const (
	LineField LineKind = iota
	LineFieldActive
	LineOption
	LineOptionActive
)

// Line is one rendered row of the menu
type Line struct {
	Text string
	Kind LineKind
}

// FieldMenu is a vertical list of fields with numeric option selection
type FieldMenu struct {
	fields    []Field
	position  int
	selecting bool
	index     int

	// Callbacks
	onChange func(field, option int)
}

// New creates a menu over fields
func New(fields ...Field) *FieldMenu {
	return &FieldMenu{
		fields: fields,
	}
}

// SetOnChange sets the callback run when a field value is committed
func (m *FieldMenu) SetOnChange(callback func(field, option int)) {
	m.onChange = callback
}

// Len returns the number of fields
func (m *FieldMenu) Len() int {
	return len(m.fields)
}

// Field returns field i
func (m *FieldMenu) Field(i int) Field {
	return m.fields[i]
}

// Position returns the highlighted field
func (m *FieldMenu) Position() int {
	return m.position
}

// Selecting reports whether the highlighted field is open for index entry
func (m *FieldMenu) Selecting() bool {
	return m.selecting
}

// Index returns the index typed so far
func (m *FieldMenu) Index() int {
	return m.index
}

// SetOptions replaces the options of field i, keeping its value in range
func (m *FieldMenu) SetOptions(i int, options []string) {
	f := &m.fields[i]
	f.Options = options
	if f.Value >= len(options) {
		f.Value = 0
	}
}

// SetValue selects option v of field i without running the callback.
// Out of range values are ignored.
func (m *FieldMenu) SetValue(i, v int) {
	if v >= 0 && v < len(m.fields[i].Options) {
		m.fields[i].Value = v
	}
}

// Up moves to the previous field, wrapping to the last
func (m *FieldMenu) Up() {
	if len(m.fields) == 0 {
		return
	}
	m.position = (m.position - 1 + len(m.fields)) % len(m.fields)
}

// Down moves to the next field, wrapping to the first
func (m *FieldMenu) Down() {
	if len(m.fields) == 0 {
		return
	}
	m.position = (m.position + 1) % len(m.fields)
}

// Open starts index entry on the highlighted field
func (m *FieldMenu) Open() {
	m.selecting = true
}

// AddDigit appends a decimal digit to the typed index
func (m *FieldMenu) AddDigit(d int) {
	if !m.selecting || d < 0 || d > 9 || m.index >= maxIndex {
		return
	}
	m.index = m.index*10 + d
}

// DeleteDigit removes the last typed digit
func (m *FieldMenu) DeleteDigit() {
	if m.selecting {
		m.index /= 10
	}
}

// Commit leaves index entry. A typed index inside the option list becomes
// the field value; anything else leaves the value unchanged. Outside index
// entry it does nothing.
func (m *FieldMenu) Commit() {
	if len(m.fields) == 0 || !m.selecting {
		return
	}

	m.selecting = false
	index := m.index
	m.index = 0

	f := &m.fields[m.position]
	if index >= len(f.Options) {
		return
	}
	f.Value = index
	if m.onChange != nil {
		m.onChange(m.position, index)
	}
}

// HandleKey processes keyboard input and reports whether the key was used.
// Enter and q are left to the page.
func (m *FieldMenu) HandleKey(ev *tcell.EventKey) bool {
	switch ev.Key() {
	case tcell.KeyUp:
		m.Up()
		return true

	case tcell.KeyDown:
		m.Down()
		return true

	case tcell.KeyRight:
		m.Open()
		return true

	case tcell.KeyLeft:
		m.Commit()
		return true

	case tcell.KeyBackspace, tcell.KeyBackspace2:
		m.DeleteDigit()
		return m.selecting
	}

	if ev.Key() == tcell.KeyRune && m.selecting {
		if r := ev.Rune(); r >= '0' && r <= '9' {
			m.AddDigit(int(r - '0'))
			return true
		}
	}

	return false
}

// Lines returns the menu as text rows. The open field lists its options
// with their indices below it.
func (m *FieldMenu) Lines() []Line {
	var lines []Line

	for i, f := range m.fields {
		marker := " "
		kind := LineField
		if i == m.position {
			marker = ">"
			kind = LineFieldActive
			if m.selecting {
				marker = "<"
			}
		}

		value := f.Current()
		if value == "" {
			value = "(none)"
		}
		lines = append(lines, Line{
			Text: fmt.Sprintf("%s%s: %s", marker, f.Label, value),
			Kind: kind,
		})

		if i != m.position || !m.selecting {
			continue
		}
		for j, opt := range f.Options {
			kind := LineOption
			if j == m.index {
				kind = LineOptionActive
			}
			lines = append(lines, Line{
				Text: "   " + strconv.Itoa(j) + ": " + opt,
				Kind: kind,
			})
		}
	}

	return lines
}

// Draw renders the menu into the given rectangle, scrolling so the
// highlighted row stays visible. It returns the number of rows drawn.
func (m *FieldMenu) Draw(s tcell.Screen, x, y, w, h int, theme ui.Theme) int {
	lines := m.Lines()
	if h <= 0 || w <= 0 {
		return 0
	}

	focus := 0
	for i, l := range lines {
		if l.Kind == LineOptionActive || (l.Kind == LineFieldActive && !m.selecting) {
			focus = i
			break
		}
		if l.Kind == LineFieldActive {
			focus = i
		}
	}
	offset := max(focus-h+1, 0)

	rows := 0
	for i := offset; i < len(lines) && rows < h; i++ {
		style := theme.Normal
		switch lines[i].Kind {
		case LineFieldActive:
			style = theme.Selected
		case LineOption:
			style = theme.Dim
		case LineOptionActive:
			style = theme.System
		}
		ui.DrawText(s, x, y+rows, w, lines[i].Text, style)
		rows++
	}
	return rows
}
