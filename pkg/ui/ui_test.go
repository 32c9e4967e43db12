package ui

import (
	"reflect"
	"testing"

	"github.com/gdamore/tcell/v2"

	"serialtool/pkg/ui/uitest"
)

func newTestScreen(t *testing.T, w, h int) tcell.SimulationScreen {
	t.Helper()
	s := tcell.NewSimulationScreen("UTF-8")
	if err := s.Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	s.SetSize(w, h)
	s.Clear()
	t.Cleanup(s.Fini)
	return s
}

func TestDrawText(t *testing.T) {
	tests := []struct {
		name     string
		x        int
		maxWidth int
		text     string
		wantRow  string
		wantCols int
	}{
		{"ascii", 0, -1, "hello", "hello", 5},
		{"offset", 2, -1, "hi", "  hi", 2},
		{"clipped", 0, 3, "hello", "hel", 3},
		{"screen edge", 8, -1, "hello", "        he", 2},
		{"wide runes", 0, -1, "a中b", "a中b", 4},
		{"wide rune does not split", 0, 2, "a中", "a", 1},
		{"control chars become spaces", 0, -1, "a\tb", "a b", 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestScreen(t, 10, 1)
			got := DrawText(s, tt.x, 0, tt.maxWidth, tt.text, tcell.StyleDefault)
			if got != tt.wantCols {
				t.Errorf("DrawText() = %d, want %d", got, tt.wantCols)
			}
			if row := uitest.RowText(s, 0); row != tt.wantRow {
				t.Errorf("row = %q, want %q", row, tt.wantRow)
			}
		})
	}
}

func TestDrawText_Combining(t *testing.T) {
	s := newTestScreen(t, 10, 1)

	cols := DrawText(s, 0, 0, -1, "e\u0301x", tcell.StyleDefault)
	if cols != 2 {
		t.Errorf("DrawText() = %d, want 2", cols)
	}

	mainc, combc, _, _ := s.GetContent(0, 0)
	if mainc != 'e' || !reflect.DeepEqual(combc, []rune{'\u0301'}) {
		t.Errorf("cell 0 = %q %q, want 'e' with combining acute", mainc, combc)
	}
	if mainc, _, _, _ := s.GetContent(1, 0); mainc != 'x' {
		t.Errorf("cell 1 = %q, want 'x'", mainc)
	}
}

func TestDrawText_OffScreenRow(t *testing.T) {
	s := newTestScreen(t, 10, 2)
	if got := DrawText(s, 0, 5, -1, "hello", tcell.StyleDefault); got != 0 {
		t.Errorf("DrawText() off screen = %d, want 0", got)
	}
}

func TestDrawBar(t *testing.T) {
	s := newTestScreen(t, 20, 1)
	DrawBar(s, 0, "left", "right", DefaultTheme().Bar)

	if row := uitest.RowText(s, 0); row != "left           right" {
		t.Errorf("row = %q", row)
	}

	_, _, style, _ := s.GetContent(10, 0)
	if style != DefaultTheme().Bar {
		t.Errorf("bar background not filled")
	}
}

func TestDrawBar_RightWins(t *testing.T) {
	s := newTestScreen(t, 10, 1)
	DrawBar(s, 0, "a long left side", "status", tcell.StyleDefault)

	if row := uitest.RowText(s, 0); row != "a l status" {
		t.Errorf("row = %q, want %q", row, "a l status")
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		text  string
		width int
		want  string
	}{
		{"hello", 10, "hello"},
		{"hello world", 6, "hello…"},
		{"中文字符", 5, "中文…"},
		{"abc", 0, ""},
	}

	for _, tt := range tests {
		if got := Truncate(tt.text, tt.width); got != tt.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tt.text, tt.width, got, tt.want)
		}
	}
}

func TestWrap(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		width int
		want  []string
	}{
		{"fits", "abc", 5, []string{"abc"}},
		{"splits", "abcdef", 4, []string{"abcd", "ef"}},
		{"newlines kept", "ab\ncd", 5, []string{"ab", "cd"}},
		{"wide runes", "中文字", 4, []string{"中文", "字"}},
		{"empty", "", 5, []string{""}},
		{"zero width", "abc", 0, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Wrap(tt.text, tt.width); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Wrap() = %q, want %q", got, tt.want)
			}
		})
	}
}
