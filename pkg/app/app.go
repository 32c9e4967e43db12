// Package app provides the main application controller: the page state
// machine that moves between port selection and a live session.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"

	"serialtool/pkg/bridge"
	"serialtool/pkg/logger"
	"serialtool/pkg/serial"
	"serialtool/pkg/session"
	"serialtool/pkg/ui"
)

// Page is the page the application shows
type Page int

const (
	PagePortSelect Page = iota
	PageSession
	PageExit
)

// String returns the string representation of Page
func (p Page) String() string {
	switch p {
	case PagePortSelect:
		return "port-select"
	case PageSession:
		return "session"
	case PageExit:
		return "exit"
	default:
		return "unknown"
	}
}

// Context is the state shared between pages
type Context struct {
	// Settings is only changed on the port selection page
	Settings serial.LineSettings
	Page     Page
	// Status is the last message for the user, shown on port selection
	Status string
	// Err is the error behind Status, if any
	Err *AppError
}

// PortLister discovers serial port names
type PortLister func() ([]string, error)

// Opener opens the device described by settings
type Opener func(settings serial.LineSettings) (serial.Device, error)

// Options configures an Application. Zero fields take the defaults.
type Options struct {
	Lister       PortLister
	Opener       Opener
	Bridge       bridge.Options
	TickInterval time.Duration
	Theme        ui.Theme
	Logger       *slog.Logger
}

// DefaultOptions returns options that use the real serial ports
func DefaultOptions() Options {
	return Options{
		Lister:       serial.ListPorts,
		Opener:       OpenPort,
		Bridge:       bridge.DefaultOptions(),
		TickInterval: session.DefaultTickInterval,
		Theme:        ui.DefaultTheme(),
	}
}

// OpenPort opens a real serial port, retrying briefly while the port is
// busy or still appearing
func OpenPort(settings serial.LineSettings) (serial.Device, error) {
	port, err := serial.OpenWithRetry(settings, serial.DefaultRetryConfig())
	if err != nil {
		return nil, err
	}
	return port, nil
}

// Session records one serial session
type Session struct {
	ID        string
	Settings  serial.LineSettings
	StartTime time.Time
	EndTime   time.Time
	Stats     bridge.Stats
	Err       error
}

// Duration returns how long the session lasted
func (s Session) Duration() time.Duration {
	return s.EndTime.Sub(s.StartTime)
}

// Application represents the main application controller
type Application struct {
	screen tcell.Screen
	ctx    Context
	opts   Options
	log    *slog.Logger

	portPage *portSelectPage

	mu       sync.Mutex
	sessions []Session
}

// NewApplication creates an application on an initialized screen,
// starting on the port selection page
func NewApplication(screen tcell.Screen, settings serial.LineSettings, opts Options) *Application {
	d := DefaultOptions()
	if opts.Lister == nil {
		opts.Lister = d.Lister
	}
	if opts.Opener == nil {
		opts.Opener = d.Opener
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = d.TickInterval
	}
	if opts.Theme == (ui.Theme{}) {
		opts.Theme = d.Theme
	}
	if opts.Logger == nil {
		opts.Logger = logger.Get()
	}

	app := &Application{
		screen: screen,
		ctx: Context{
			Settings: settings,
			Page:     PagePortSelect,
		},
		opts: opts,
		log:  opts.Logger.With("component", "app"),
	}
	app.portPage = newPortSelectPage(app)
	return app
}

// Context returns a copy of the shared page state
func (app *Application) Context() Context {
	return app.ctx
}

// Sessions returns the sessions run so far
func (app *Application) Sessions() []Session {
	app.mu.Lock()
	defer app.mu.Unlock()
	return append([]Session(nil), app.sessions...)
}

// Run shows pages until the user exits or ctx is cancelled
func (app *Application) Run(ctx context.Context) error {
	// Wake PollEvent when ctx ends so the page loops can notice.
	stop := context.AfterFunc(ctx, func() {
		_ = app.screen.PostEvent(tcell.NewEventInterrupt(nil))
	})
	defer stop()

	for app.ctx.Page != PageExit {
		if ctx.Err() != nil {
			app.ctx.Page = PageExit
			break
		}

		app.log.Debug("entering page", "page", app.ctx.Page)
		switch app.ctx.Page {
		case PagePortSelect:
			app.ctx.Page = app.portPage.run(ctx)
		case PageSession:
			app.ctx.Page = app.runSession(ctx)
		default:
			return fmt.Errorf("unknown page %d", app.ctx.Page)
		}
	}

	app.log.Info("application exiting", "sessions", len(app.Sessions()))
	return nil
}

// runSession opens the device and runs a session on it until the user
// leaves or the link fails. The bridge is always closed on return.
func (app *Application) runSession(ctx context.Context) Page {
	settings := app.ctx.Settings

	dev, err := app.opts.Opener(settings)
	if err != nil {
		app.reportError(NewAppError(ErrorSerial, "failed to open "+settings.Port, err))
		app.log.Error("failed to open port", "port", settings.Port, "error", err)
		return PagePortSelect
	}

	record := Session{
		ID:        generateSessionID(),
		Settings:  settings,
		StartTime: time.Now(),
	}
	app.log.Info("session started", "id", record.ID, "settings", settings.String())

	bopts := app.opts.Bridge
	bopts.Logger = app.opts.Logger
	link := bridge.Open(dev, bopts)
	defer func() {
		if err := link.Close(); err != nil {
			app.log.Error("failed to close bridge", "error", err)
		}
	}()

	sopts := session.DefaultOptions()
	sopts.Title = settings.String()
	sopts.Theme = app.opts.Theme
	sopts.Logger = app.opts.Logger
	ctrl := session.New(link, sopts)
	outcome := ctrl.Run(ctx, app.screen, app.opts.TickInterval)

	record.EndTime = time.Now()
	record.Stats = link.Stats()
	record.Err = ctrl.Err()
	app.mu.Lock()
	app.sessions = append(app.sessions, record)
	app.mu.Unlock()

	app.clearStatus()
	if record.Err != nil {
		app.reportError(NewAppError(ErrorLink, "session ended", record.Err))
		app.log.Error("session ended", "id", record.ID, "error", record.Err)
	} else {
		app.log.Info("session ended", "id", record.ID, "outcome", outcome)
	}

	if outcome == session.OutcomeExit {
		return PageExit
	}
	return PagePortSelect
}

// reportError shows err on the port selection page. Serial errors carry a
// hint when the cause is a common one.
func (app *Application) reportError(err *AppError) {
	app.ctx.Err = err
	app.ctx.Status = err.Error()
	if err.Type == ErrorSerial {
		if hint := serial.Hint(err.Cause); hint != "" {
			app.ctx.Status += " (" + hint + ")"
		}
	}
}

func (app *Application) clearStatus() {
	app.ctx.Status = ""
	app.ctx.Err = nil
}

// generateSessionID generates a unique session ID
func generateSessionID() string {
	return fmt.Sprintf("%d", time.Now().UnixNano())
}
