// Package editor provides the single-line input buffer used to compose
// outgoing messages
package editor

import (
	"github.com/mattn/go-runewidth"
)

// Editor is an editable line of text with a logical cursor.
// The cursor counts Unicode scalar values, never bytes, and always lies in
// [0, Len()].
type Editor struct {
	text   []rune
	cursor int
}

// New creates an empty editor
func New() *Editor {
	return &Editor{}
}

// Text returns the current contents
func (e *Editor) Text() string {
	return string(e.text)
}

// Len returns the number of characters in the buffer
func (e *Editor) Len() int {
	return len(e.text)
}

// Cursor returns the cursor position in characters
func (e *Editor) Cursor() int {
	return e.cursor
}

// Insert inserts r at the cursor and advances the cursor by one
func (e *Editor) Insert(r rune) {
	idx := e.cursor
	e.text = append(e.text, 0)
	copy(e.text[idx+1:], e.text[idx:])
	e.text[idx] = r
	e.MoveRight()
}

// DeleteBeforeCursor removes the character left of the cursor.
// It is a no-op when the cursor is at the start of the line.
func (e *Editor) DeleteBeforeCursor() {
	if e.cursor == 0 {
		return
	}

	before := e.text[:e.cursor-1]
	after := e.text[e.cursor:]

	text := make([]rune, 0, len(before)+len(after))
	text = append(text, before...)
	text = append(text, after...)
	e.text = text

	e.MoveLeft()
}

// DeleteAtCursor removes the character under the cursor
func (e *Editor) DeleteAtCursor() {
	if e.cursor >= len(e.text) {
		return
	}
	e.cursor++
	e.DeleteBeforeCursor()
}

// MoveLeft moves the cursor one character to the left
func (e *Editor) MoveLeft() {
	e.cursor = e.clamp(e.cursor - 1)
}

// MoveRight moves the cursor one character to the right
func (e *Editor) MoveRight() {
	e.cursor = e.clamp(e.cursor + 1)
}

// Home moves the cursor to the start of the line
func (e *Editor) Home() {
	e.cursor = 0
}

// End moves the cursor past the last character
func (e *Editor) End() {
	e.cursor = len(e.text)
}

// Take returns the current text and resets the editor
func (e *Editor) Take() string {
	s := string(e.text)
	e.text = nil
	e.cursor = 0
	return s
}

// SetText replaces the contents and places the cursor at the end
func (e *Editor) SetText(s string) {
	e.text = []rune(s)
	e.cursor = len(e.text)
}

// CursorOffset returns the cursor as a column offset assuming one column
// per character.
func (e *Editor) CursorOffset() int {
	return e.cursor
}

// CursorColumn returns the terminal column of the cursor, accounting for
// wide and zero-width characters left of it.
func (e *Editor) CursorColumn() int {
	return runewidth.StringWidth(string(e.text[:e.cursor]))
}

func (e *Editor) clamp(pos int) int {
	if pos < 0 {
		return 0
	}
	if pos > len(e.text) {
		return len(e.text)
	}
	return pos
}
