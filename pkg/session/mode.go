package session

// Mode decides who receives keystrokes: the session itself or the editor
type Mode int

const (
	ModeCommand Mode = iota
	ModeInput
)

// String returns the string representation of Mode
func (m Mode) String() string {
	switch m {
	case ModeCommand:
		return "command"
	case ModeInput:
		return "input"
	default:
		return "unknown"
	}
}

// Tab is one of the session views
type Tab int

const (
	TabTxRx Tab = iota
	TabCommandList
	TabStream
	TabYmodem
	TabChart
)

const tabCount = 5

var tabTitles = [tabCount]string{"TxRx(t)", "List(l)", "Stream(s)", "Ymodem(y)", "Chart(c)"}

// Tabs returns every tab in display order
func Tabs() []Tab {
	return []Tab{TabTxRx, TabCommandList, TabStream, TabYmodem, TabChart}
}

// String returns the tab title including its shortcut key
func (t Tab) String() string {
	if t < 0 || t >= tabCount {
		return "unknown"
	}
	return tabTitles[t]
}

// Next returns the tab to the right, wrapping to the first
func (t Tab) Next() Tab {
	return (t + 1) % tabCount
}

// Previous returns the tab to the left, wrapping to the last
func (t Tab) Previous() Tab {
	return (t + tabCount - 1) % tabCount
}

func tabForRune(r rune) (Tab, bool) {
	switch r {
	case 't':
		return TabTxRx, true
	case 'l':
		return TabCommandList, true
	case 's':
		return TabStream, true
	case 'y':
		return TabYmodem, true
	case 'c':
		return TabChart, true
	}
	return 0, false
}

// Outcome is how a session ended
type Outcome int

const (
	// OutcomeNone means the session is still running
	OutcomeNone Outcome = iota
	// OutcomePortSelect returns to the port selection page
	OutcomePortSelect
	// OutcomeExit quits the application
	OutcomeExit
)

// String returns the string representation of Outcome
func (o Outcome) String() string {
	switch o {
	case OutcomeNone:
		return "none"
	case OutcomePortSelect:
		return "port-select"
	case OutcomeExit:
		return "exit"
	default:
		return "unknown"
	}
}
