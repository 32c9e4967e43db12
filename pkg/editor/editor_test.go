package editor

import (
	"math/rand"
	"testing"
	"unicode/utf8"
)

func typeString(e *Editor, s string) {
	for _, r := range s {
		e.Insert(r)
	}
}

func TestEditor_Insert(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		moveLeft   int
		insert     rune
		wantText   string
		wantCursor int
	}{
		{
			name:       "append ascii",
			input:      "ab",
			insert:     'c',
			wantText:   "abc",
			wantCursor: 3,
		},
		{
			name:       "insert in middle of multibyte text",
			input:      "中文",
			moveLeft:   1,
			insert:     'é',
			wantText:   "中é文",
			wantCursor: 2,
		},
		{
			name:       "insert at start",
			input:      "ñu",
			moveLeft:   5,
			insert:     '>',
			wantText:   ">ñu",
			wantCursor: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := New()
			typeString(e, tt.input)
			for i := 0; i < tt.moveLeft; i++ {
				e.MoveLeft()
			}
			e.Insert(tt.insert)

			if e.Text() != tt.wantText {
				t.Errorf("Text() = %q, want %q", e.Text(), tt.wantText)
			}
			if e.Cursor() != tt.wantCursor {
				t.Errorf("Cursor() = %d, want %d", e.Cursor(), tt.wantCursor)
			}
		})
	}
}

func TestEditor_DeleteBeforeCursor(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		cursor     int
		wantText   string
		wantCursor int
	}{
		{"delete last", "héllo", 5, "héll", 4},
		{"delete multibyte", "héllo", 2, "hllo", 1},
		{"delete first", "中文字", 1, "文字", 0},
		{"no-op at zero", "abc", 0, "abc", 0},
		{"combining accent removed alone", "e\u0301x", 2, "ex", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := New()
			typeString(e, tt.input)
			e.Home()
			for i := 0; i < tt.cursor; i++ {
				e.MoveRight()
			}

			e.DeleteBeforeCursor()

			if e.Text() != tt.wantText {
				t.Errorf("Text() = %q, want %q", e.Text(), tt.wantText)
			}
			if e.Cursor() != tt.wantCursor {
				t.Errorf("Cursor() = %d, want %d", e.Cursor(), tt.wantCursor)
			}
		})
	}
}

func TestEditor_DeleteAtCursor(t *testing.T) {
	e := New()
	typeString(e, "a中b")
	e.Home()
	e.MoveRight()
	e.DeleteAtCursor()

	if e.Text() != "ab" {
		t.Errorf("Text() = %q, want %q", e.Text(), "ab")
	}
	if e.Cursor() != 1 {
		t.Errorf("Cursor() = %d, want 1", e.Cursor())
	}

	e.End()
	e.DeleteAtCursor()
	if e.Text() != "ab" {
		t.Errorf("DeleteAtCursor() at end changed text to %q", e.Text())
	}
}

func TestEditor_MoveClamps(t *testing.T) {
	e := New()
	e.MoveLeft()
	if e.Cursor() != 0 {
		t.Errorf("MoveLeft() on empty editor: cursor = %d, want 0", e.Cursor())
	}

	typeString(e, "é")
	e.MoveRight()
	e.MoveRight()
	if e.Cursor() != 1 {
		t.Errorf("MoveRight() past end: cursor = %d, want 1", e.Cursor())
	}
}

func TestEditor_Take(t *testing.T) {
	e := New()
	typeString(e, "héllo 中")
	e.MoveLeft()

	got := e.Take()
	if got != "héllo 中" {
		t.Errorf("Take() = %q, want %q", got, "héllo 中")
	}
	if e.Text() != "" || e.Cursor() != 0 || e.Len() != 0 {
		t.Errorf("after Take(): text=%q cursor=%d len=%d, want empty", e.Text(), e.Cursor(), e.Len())
	}
}

func TestEditor_SetText(t *testing.T) {
	e := New()
	e.SetText("中文")
	if e.Cursor() != 2 {
		t.Errorf("SetText() cursor = %d, want 2", e.Cursor())
	}
}

func TestEditor_CursorColumn(t *testing.T) {
	e := New()
	typeString(e, "a中b")

	if e.CursorOffset() != 3 {
		t.Errorf("CursorOffset() = %d, want 3", e.CursorOffset())
	}
	if e.CursorColumn() != 4 {
		t.Errorf("CursorColumn() = %d, want 4", e.CursorColumn())
	}
}

// TestEditor_RandomOperations checks that the cursor always equals the
// number of characters to its left, using a rune-slice model as reference.
func TestEditor_RandomOperations(t *testing.T) {
	alphabet := []rune{'a', 'z', 'é', '中', '\u0301', '🙂', ' '}
	rng := rand.New(rand.NewSource(42))

	for round := 0; round < 50; round++ {
		e := New()
		var model []rune
		cursor := 0

		for step := 0; step < 200; step++ {
			switch rng.Intn(5) {
			case 0, 1:
				r := alphabet[rng.Intn(len(alphabet))]
				e.Insert(r)
				model = append(model[:cursor], append([]rune{r}, model[cursor:]...)...)
				cursor++
			case 2:
				e.DeleteBeforeCursor()
				if cursor > 0 {
					model = append(model[:cursor-1], model[cursor:]...)
					cursor--
				}
			case 3:
				e.MoveLeft()
				if cursor > 0 {
					cursor--
				}
			case 4:
				e.MoveRight()
				if cursor < len(model) {
					cursor++
				}
			}

			if e.Cursor() < 0 || e.Cursor() > utf8.RuneCountInString(e.Text()) {
				t.Fatalf("round %d step %d: cursor %d out of range for %q", round, step, e.Cursor(), e.Text())
			}
			if e.Cursor() != cursor {
				t.Fatalf("round %d step %d: cursor = %d, want %d", round, step, e.Cursor(), cursor)
			}
			if e.Text() != string(model) {
				t.Fatalf("round %d step %d: text = %q, want %q", round, step, e.Text(), string(model))
			}
		}
	}
}
