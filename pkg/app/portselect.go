package app

import (
	"context"
	"slices"
	"strconv"

	"github.com/gdamore/tcell/v2"

	"serialtool/pkg/menu"
	"serialtool/pkg/serial"
	"serialtool/pkg/ui"
)

const (
	fieldPort = iota
	fieldBaudRate
	fieldDataBits
	fieldStopBits
	fieldParity
	fieldFlowControl
)

const (
	portSelectTitle = "Select Serial Port"
	portSelectHelp  = "[Up/Down] move | [Right] choose | [0-9] index | [Left] confirm | [Enter] open | [r] rescan | [q] exit"
	noPortsMessage  = "No serial ports found, press [r] to rescan"
)

// portSelectPage edits the line settings and picks the port to open
type portSelectPage struct {
	app   *Application
	menu  *menu.FieldMenu
	ports []string
}

func newPortSelectPage(app *Application) *portSelectPage {
	p := &portSelectPage{app: app}
	p.menu = menu.New(
		menu.Field{Label: "Serial Port"},
		menu.Field{Label: "Baud Rate", Options: intOptions(serial.BaudRates)},
		menu.Field{Label: "Data Bits", Options: intOptions(serial.DataBitsOptions)},
		menu.Field{Label: "Stop Bits", Options: intOptions(serial.StopBitsOptions)},
		menu.Field{Label: "Parity", Options: serial.ParityOptions},
		menu.Field{Label: "Flow Control", Options: serial.FlowControlOptions},
	)
	p.menu.SetOnChange(p.apply)
	p.syncFromSettings()
	return p
}

func intOptions(values []int) []string {
	options := make([]string, len(values))
	for i, v := range values {
		options[i] = strconv.Itoa(v)
	}
	return options
}

// syncFromSettings points every field at the current settings
func (p *portSelectPage) syncFromSettings() {
	s := p.app.ctx.Settings
	p.menu.SetValue(fieldBaudRate, slices.Index(serial.BaudRates, s.BaudRate))
	p.menu.SetValue(fieldDataBits, slices.Index(serial.DataBitsOptions, s.DataBits))
	p.menu.SetValue(fieldStopBits, slices.Index(serial.StopBitsOptions, s.StopBits))
	p.menu.SetValue(fieldParity, slices.Index(serial.ParityOptions, s.Parity))
	p.menu.SetValue(fieldFlowControl, slices.Index(serial.FlowControlOptions, s.FlowControl))
}

// apply copies a committed option into the settings
func (p *portSelectPage) apply(field, option int) {
	s := &p.app.ctx.Settings
	switch field {
	case fieldPort:
		s.Port = p.ports[option]
	case fieldBaudRate:
		s.BaudRate = serial.BaudRates[option]
	case fieldDataBits:
		s.DataBits = serial.DataBitsOptions[option]
	case fieldStopBits:
		s.StopBits = serial.StopBitsOptions[option]
	case fieldParity:
		s.Parity = serial.ParityOptions[option]
	case fieldFlowControl:
		s.FlowControl = serial.FlowControlOptions[option]
	}
	p.app.log.Debug("setting changed", "field", p.menu.Field(field).Label, "value", p.menu.Field(field).Current())
}

// scan discovers ports. A port named in the settings that discovery does
// not report, such as a pseudo terminal, stays selectable.
func (p *portSelectPage) scan() {
	ports, err := p.app.opts.Lister()
	if err != nil {
		p.app.reportError(NewAppError(ErrorDiscovery, "failed to list ports", err))
		p.app.log.Error("failed to list ports", "error", err)
		ports = nil
	}

	current := p.app.ctx.Settings.Port
	if current != "" && !slices.Contains(ports, current) {
		ports = append(ports, current)
	}
	p.ports = ports
	p.menu.SetOptions(fieldPort, ports)

	switch i := slices.Index(ports, current); {
	case i >= 0:
		p.menu.SetValue(fieldPort, i)
	case len(ports) > 0:
		p.menu.SetValue(fieldPort, 0)
		p.app.ctx.Settings.Port = ports[0]
	default:
		p.app.ctx.Settings.Port = ""
	}
	p.app.log.Debug("ports scanned", "count", len(ports))
}

// run shows the page until the user opens a session or exits
func (p *portSelectPage) run(ctx context.Context) Page {
	p.scan()

	for {
		if ctx.Err() != nil {
			return PageExit
		}

		p.draw()
		p.app.screen.Show()

		ev := p.app.screen.PollEvent()
		if ev == nil {
			return PageExit
		}

		switch ev := ev.(type) {
		case *tcell.EventKey:
			if next, done := p.handleKey(ev); done {
				return next
			}
		case *tcell.EventResize:
			p.app.screen.Sync()
		}
	}
}

// handleKey reports the next page once the user leaves this one
func (p *portSelectPage) handleKey(ev *tcell.EventKey) (Page, bool) {
	if ev.Key() == tcell.KeyCtrlC {
		return PageExit, true
	}

	if p.menu.HandleKey(ev) {
		return PagePortSelect, false
	}

	switch ev.Key() {
	case tcell.KeyEnter:
		// An open field keeps its typed index; close it first.
		p.menu.Commit()
		if len(p.ports) == 0 || p.app.ctx.Settings.Port == "" {
			return PagePortSelect, false
		}
		p.app.clearStatus()
		return PageSession, true
	case tcell.KeyRune:
		switch ev.Rune() {
		case 'q':
			return PageExit, true
		case 'r':
			if !p.menu.Selecting() {
				p.app.clearStatus()
				p.scan()
			}
		}
	}
	return PagePortSelect, false
}

func (p *portSelectPage) draw() {
	s := p.app.screen
	theme := p.app.opts.Theme

	s.Clear()
	s.HideCursor()
	width, height := s.Size()
	if width <= 0 || height <= 0 {
		return
	}

	ui.DrawBar(s, 0, portSelectTitle, p.app.ctx.Settings.String(), theme.Title)

	body := ui.Rect{X: 1, Y: 2, W: width - 2, H: height - 5}
	if len(p.ports) == 0 && !body.Empty() {
		ui.DrawText(s, body.X, body.Y, body.W, noPortsMessage, theme.Error)
		body.Y++
		body.H--
	}
	if !body.Empty() {
		p.menu.Draw(s, body.X, body.Y, body.W, body.H, theme)
	}

	if height >= 3 && p.app.ctx.Status != "" {
		ui.DrawText(s, 0, height-2, width, ui.Truncate(p.app.ctx.Status, width), theme.Error)
	}
	if height >= 2 {
		ui.DrawText(s, 0, height-1, width, ui.Truncate(portSelectHelp, width), theme.Dim)
	}
}
