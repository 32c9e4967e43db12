// Package history keeps the session transcript: every message sent to or
// received from the device, plus local system notes, in arrival order.
package history

import (
	"fmt"
	"strings"
	"time"
)

// Direction represents the direction of data flow
type Direction int

const (
	DirectionTx Direction = iota
	DirectionRx
	DirectionSystem
)

// String returns the string representation of Direction
func (d Direction) String() string {
	switch d {
	case DirectionTx:
		return "tx"
	case DirectionRx:
		return "rx"
	case DirectionSystem:
		return "system"
	default:
		return "unknown"
	}
}

// Entry represents a single line of the transcript
type Entry struct {
	Timestamp time.Time `json:"timestamp"`
	Direction Direction `json:"direction"`
	Data      []byte    `json:"data"`
	Text      string    `json:"text"`
}

// Validate checks if the entry is valid
func (e Entry) Validate() error {
	if e.Timestamp.IsZero() {
		return fmt.Errorf("timestamp cannot be zero")
	}

	switch e.Direction {
	case DirectionTx, DirectionRx, DirectionSystem:
	default:
		return fmt.Errorf("invalid direction: %d", e.Direction)
	}

	if e.Direction != DirectionSystem && e.Data == nil {
		return fmt.Errorf("data cannot be nil")
	}

	return nil
}

// Hex renders the raw bytes as space separated upper case hex pairs.
// System entries have no bytes and render their text.
func (e Entry) Hex() string {
	if e.Direction == DirectionSystem {
		return e.Text
	}

	var sb strings.Builder
	for i, b := range e.Data {
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%02X", b)
	}
	return sb.String()
}

// NewEntry creates a new entry with current timestamp
func NewEntry(direction Direction, data []byte, text string) Entry {
	var dataCopy []byte
	if data != nil {
		dataCopy = make([]byte, len(data))
		copy(dataCopy, data)
	}
	return Entry{
		Timestamp: time.Now(),
		Direction: direction,
		Data:      dataCopy,
		Text:      text,
	}
}

// Stats holds transcript counters. They only ever grow, even when old
// entries are trimmed.
type Stats struct {
	TxMessages int `json:"tx_messages"`
	RxMessages int `json:"rx_messages"`
	TxBytes    int `json:"tx_bytes"`
	RxBytes    int `json:"rx_bytes"`
	System     int `json:"system"`
	Retained   int `json:"retained"`
	Trimmed    int `json:"trimmed"`
}

// Transcript is an append-only list of entries. Insertion order is display
// order. It is owned by the UI goroutine and not safe for concurrent use.
type Transcript struct {
	entries    []Entry
	maxEntries int
	stats      Stats
}

// New creates an empty transcript. maxEntries <= 0 keeps everything;
// otherwise the oldest entries are trimmed beyond that count.
func New(maxEntries int) *Transcript {
	if maxEntries < 0 {
		maxEntries = 0
	}
	return &Transcript{maxEntries: maxEntries}
}

// Append adds an entry and returns it
func (t *Transcript) Append(direction Direction, data []byte, text string) (Entry, error) {
	entry := NewEntry(direction, data, text)
	if err := entry.Validate(); err != nil {
		return Entry{}, fmt.Errorf("invalid transcript entry: %w", err)
	}

	t.entries = append(t.entries, entry)

	switch direction {
	case DirectionTx:
		t.stats.TxMessages++
		t.stats.TxBytes += len(data)
	case DirectionRx:
		t.stats.RxMessages++
		t.stats.RxBytes += len(data)
	case DirectionSystem:
		t.stats.System++
	}

	t.trim()
	return entry, nil
}

// AppendTx records a message that was handed to the device
func (t *Transcript) AppendTx(data []byte, text string) Entry {
	entry, _ := t.Append(DirectionTx, data, text)
	return entry
}

// AppendRx records a message that arrived from the device
func (t *Transcript) AppendRx(data []byte, text string) Entry {
	entry, _ := t.Append(DirectionRx, data, text)
	return entry
}

// AppendSystem records a local note such as a busy link
func (t *Transcript) AppendSystem(format string, args ...any) Entry {
	entry, _ := t.Append(DirectionSystem, nil, fmt.Sprintf(format, args...))
	return entry
}

func (t *Transcript) trim() {
	if t.maxEntries == 0 || len(t.entries) <= t.maxEntries {
		return
	}
	// Reslicing drops the head in place. The next append that outgrows the
	// backing array copies only the retained entries, so trimming stays
	// amortized constant per append.
	excess := len(t.entries) - t.maxEntries
	clear(t.entries[:excess])
	t.entries = t.entries[excess:]
	t.stats.Trimmed += excess
}

// Len returns the number of retained entries
func (t *Transcript) Len() int {
	return len(t.entries)
}

// Entries returns a copy of count entries starting at start
func (t *Transcript) Entries(start, count int) ([]Entry, error) {
	if start < 0 {
		return nil, fmt.Errorf("start cannot be negative")
	}

	if count < 0 {
		return nil, fmt.Errorf("count cannot be negative")
	}

	if start >= len(t.entries) {
		return []Entry{}, nil
	}

	end := min(start+count, len(t.entries))

	result := make([]Entry, end-start)
	copy(result, t.entries[start:end])
	return result, nil
}

// Tail returns a copy of the last n entries
func (t *Transcript) Tail(n int) []Entry {
	if n <= 0 {
		return []Entry{}
	}
	start := max(len(t.entries)-n, 0)
	result := make([]Entry, len(t.entries)-start)
	copy(result, t.entries[start:])
	return result
}

// Last returns the newest entry
func (t *Transcript) Last() (Entry, bool) {
	if len(t.entries) == 0 {
		return Entry{}, false
	}
	return t.entries[len(t.entries)-1], true
}

// Sent returns the text of every retained tx entry, oldest first
func (t *Transcript) Sent() []string {
	var out []string
	for _, e := range t.entries {
		if e.Direction == DirectionTx {
			out = append(out, e.Text)
		}
	}
	return out
}

// Stats returns the transcript counters
func (t *Transcript) Stats() Stats {
	s := t.stats
	s.Retained = len(t.entries)
	return s
}
