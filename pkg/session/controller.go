// Package session runs one connected serial session: it drains the bridge
// into the transcript, routes keystrokes by mode and tab, and renders the
// tabbed view.
package session

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/gdamore/tcell/v2"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"

	"serialtool/pkg/bridge"
	"serialtool/pkg/editor"
	"serialtool/pkg/history"
	"serialtool/pkg/logger"
	"serialtool/pkg/ui"
)

// Link is the session's view of the serial bridge
type Link interface {
	Send(p []byte) error
	TryReceive() ([]byte, error)
}

// Options configures a Controller
type Options struct {
	// Title is shown at the right of the status bar, usually the line settings
	Title string
	// MaxDrainPerTick bounds how many inbound messages one tick consumes
	MaxDrainPerTick int
	// TranscriptLimit caps retained transcript entries, 0 keeps all
	TranscriptLimit int
	Theme           ui.Theme
	Logger          *slog.Logger
}

// DefaultOptions returns the default controller options
func DefaultOptions() Options {
	return Options{
		MaxDrainPerTick: 256,
		TranscriptLimit: 10000,
		Theme:           ui.DefaultTheme(),
	}
}

// Controller is the session state machine: Mode × Tab plus the editor,
// transcript and counters. It is driven from a single goroutine.
type Controller struct {
	link       Link
	editor     *editor.Editor
	transcript *history.Transcript
	decoder    *encoding.Decoder

	mode Mode
	tab  Tab

	txrx    *TxRxWidget
	widgets [tabCount]Widget

	sendCount    int
	receiveCount int

	outcome Outcome
	err     error

	opts Options
	log  *slog.Logger
}

// New creates a controller in Command mode on the TxRx tab
func New(link Link, opts Options) *Controller {
	d := DefaultOptions()
	if opts.MaxDrainPerTick <= 0 {
		opts.MaxDrainPerTick = d.MaxDrainPerTick
	}
	if opts.Theme == (ui.Theme{}) {
		opts.Theme = d.Theme
	}
	if opts.Logger == nil {
		opts.Logger = logger.Get()
	}

	c := &Controller{
		link:       link,
		editor:     editor.New(),
		transcript: history.New(opts.TranscriptLimit),
		decoder:    unicode.UTF8.NewDecoder(),
		mode:       ModeCommand,
		tab:        TabTxRx,
		txrx:       &TxRxWidget{},
		opts:       opts,
		log:        opts.Logger.With("component", "session"),
	}

	c.widgets = [tabCount]Widget{
		TabTxRx:        c.txrx,
		TabCommandList: &CommandListWidget{},
		TabStream:      &PlaceholderWidget{Name: "Stream"},
		TabYmodem:      &PlaceholderWidget{Name: "Ymodem"},
		TabChart:       &PlaceholderWidget{Name: "Chart"},
	}
	return c
}

// Mode returns the current mode
func (c *Controller) Mode() Mode { return c.mode }

// Tab returns the active tab
func (c *Controller) Tab() Tab { return c.tab }

// Editor returns the input editor
func (c *Controller) Editor() *editor.Editor { return c.editor }

// Transcript returns the session transcript
func (c *Controller) Transcript() *history.Transcript { return c.transcript }

// Counters returns the sent and received message counts
func (c *Controller) Counters() (sent, received int) {
	return c.sendCount, c.receiveCount
}

// Outcome returns how the session ended, or OutcomeNone while running
func (c *Controller) Outcome() Outcome { return c.outcome }

// Err returns the link failure that ended the session, if any
func (c *Controller) Err() error { return c.err }

// Done reports whether the session has ended
func (c *Controller) Done() bool { return c.outcome != OutcomeNone }

// Tick drains ready inbound messages into the transcript
func (c *Controller) Tick() {
	if c.Done() {
		return
	}

	for range c.opts.MaxDrainPerTick {
		msg, err := c.link.TryReceive()
		if err != nil {
			c.endWithError(err)
			return
		}
		if msg == nil {
			return
		}
		c.receive(msg)
	}
}

func (c *Controller) receive(msg []byte) {
	decoded, err := c.decoder.Bytes(msg)
	if err != nil {
		// The UTF-8 decoder replaces bad input rather than failing.
		c.log.Warn("decode failed", "error", err, "bytes", len(msg))
		decoded = msg
	}

	text := trimTerminator(string(decoded))
	c.transcript.AppendRx(msg, text)
	c.receiveCount++
}

// trimTerminator removes one trailing line terminator
func trimTerminator(s string) string {
	switch {
	case strings.HasSuffix(s, "\r\n"):
		return s[:len(s)-2]
	case strings.HasSuffix(s, "\n"), strings.HasSuffix(s, "\r"):
		return s[:len(s)-1]
	}
	return s
}

// HandleKey dispatches one key event according to the current mode
func (c *Controller) HandleKey(ev *tcell.EventKey) {
	if c.Done() {
		return
	}

	if ev.Key() == tcell.KeyCtrlC {
		c.outcome = OutcomeExit
		return
	}

	switch c.mode {
	case ModeCommand:
		c.handleCommandKey(ev)
	case ModeInput:
		c.handleInputKey(ev)
	}
}

func (c *Controller) handleCommandKey(ev *tcell.EventKey) {
	switch ev.Key() {
	case tcell.KeyEscape:
		c.outcome = OutcomePortSelect
		return
	case tcell.KeyRight:
		c.tab = c.tab.Next()
		return
	case tcell.KeyLeft:
		c.tab = c.tab.Previous()
		return
	case tcell.KeyRune:
		r := ev.Rune()
		if r == 'q' {
			c.outcome = OutcomeExit
			return
		}
		if r == 'i' {
			c.mode = ModeInput
			return
		}
		if tab, ok := tabForRune(r); ok {
			c.tab = tab
			return
		}
	}

	c.widgets[c.tab].HandleKey(c, ev)
}

func (c *Controller) handleInputKey(ev *tcell.EventKey) {
	switch ev.Key() {
	case tcell.KeyEscape:
		c.mode = ModeCommand
	case tcell.KeyEnter:
		c.Submit()
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		c.editor.DeleteBeforeCursor()
	case tcell.KeyDelete:
		c.editor.DeleteAtCursor()
	case tcell.KeyLeft:
		c.editor.MoveLeft()
	case tcell.KeyRight:
		c.editor.MoveRight()
	case tcell.KeyHome, tcell.KeyCtrlA:
		c.editor.Home()
	case tcell.KeyEnd, tcell.KeyCtrlE:
		c.editor.End()
	case tcell.KeyRune:
		c.editor.Insert(ev.Rune())
	}
}

// Submit sends the editor contents. Empty input is ignored. When the link
// is busy the text goes back into the editor so it can be retried.
func (c *Controller) Submit() {
	text := c.editor.Take()
	if text == "" {
		return
	}

	err := c.send(text)
	if errors.Is(err, bridge.ErrBusy) {
		c.editor.SetText(text)
	}
}

// Resend sends text again, as picked from the command list
func (c *Controller) Resend(text string) {
	if text == "" || c.Done() {
		return
	}
	_ = c.send(text)
}

func (c *Controller) send(text string) error {
	payload := []byte(text)
	if c.txrx.CRLF {
		payload = append(payload, '\r', '\n')
	}

	err := c.link.Send(payload)
	switch {
	case err == nil:
		c.transcript.AppendTx(payload, text)
		c.sendCount++
	case errors.Is(err, bridge.ErrBusy):
		c.transcript.AppendSystem("link busy, message not sent")
		c.log.Warn("send rejected", "error", err, "bytes", len(payload))
	default:
		c.endWithError(err)
	}
	return err
}

func (c *Controller) endWithError(err error) {
	c.err = err
	c.transcript.AppendSystem("%v", err)
	c.outcome = OutcomePortSelect
	c.log.Error("session ended by link error", "error", err)
}
