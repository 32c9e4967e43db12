// Package terminal handles the VT100/ANSI escape sequences that serial
// devices mix into their text output
package terminal

import "strings"

// ParserState represents the current state of the escape parser
type ParserState int

const (
	StateGround ParserState = iota
	StateEscape
	StateCSI
	StateOSC
	StateDCS
)

// String returns the string representation of ParserState
func (s ParserState) String() string {
	switch s {
	case StateGround:
		return "ground"
	case StateEscape:
		return "escape"
	case StateCSI:
		return "csi"
	case StateOSC:
		return "osc"
	case StateDCS:
		return "dcs"
	default:
		return "unknown"
	}
}

const (
	esc = 0x1B
	bel = 0x07
)

// Parser removes escape sequences from text. It keeps its state between
// Write calls so a sequence split across reads is still removed.
type Parser struct {
	State ParserState
	out   strings.Builder
}

// NewParser creates a parser in the ground state
func NewParser() *Parser {
	return &Parser{State: StateGround}
}

// Reset returns the parser to the ground state and drops buffered text
func (p *Parser) Reset() {
	p.State = StateGround
	p.out.Reset()
}

// Write feeds text through the parser
func (p *Parser) Write(s string) {
	for _, r := range s {
		p.parseRune(r)
	}
}

// Text returns the printable text collected so far and clears it
func (p *Parser) Text() string {
	s := p.out.String()
	p.out.Reset()
	return s
}

func (p *Parser) parseRune(r rune) {
	switch p.State {
	case StateGround:
		if r == esc {
			p.State = StateEscape
			return
		}
		p.out.WriteRune(r)

	case StateEscape:
		switch r {
		case '[':
			p.State = StateCSI
		case ']':
			p.State = StateOSC
		case 'P':
			p.State = StateDCS
		case esc:
			// ESC ESC restarts the sequence
		default:
			// Two character sequences such as ESC 7 or ESC c
			p.State = StateGround
		}

	case StateCSI:
		switch {
		case r >= 0x20 && r <= 0x3F:
			// Parameter and intermediate bytes
		case r >= 0x40 && r <= 0x7E:
			p.State = StateGround
		case r == esc:
			p.State = StateEscape
		default:
			// Invalid sequence, drop it and keep the character
			p.State = StateGround
			p.out.WriteRune(r)
		}

	case StateOSC, StateDCS:
		// Terminated by BEL or by ST (ESC \), whose backslash the
		// escape state consumes
		switch r {
		case bel:
			p.State = StateGround
		case esc:
			p.State = StateEscape
		}
	}
}

// StripEscapes returns s without escape sequences. An unterminated
// sequence at the end is dropped.
func StripEscapes(s string) string {
	if !strings.ContainsRune(s, esc) {
		return s
	}
	p := NewParser()
	p.Write(s)
	return p.Text()
}
