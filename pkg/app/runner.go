package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gdamore/tcell/v2"

	"serialtool/pkg/serial"
)

// Runner owns the terminal screen and runs the application on it
type Runner struct {
	settings  serial.LineSettings
	opts      Options
	out       io.Writer
	newScreen func() (tcell.Screen, error)

	app *Application
}

// NewRunner creates a runner that starts from settings
func NewRunner(settings serial.LineSettings, opts Options) *Runner {
	return &Runner{
		settings:  settings,
		opts:      opts,
		out:       os.Stdout,
		newScreen: tcell.NewScreen,
	}
}

// Run takes over the terminal and blocks until the user exits or the
// process receives SIGINT or SIGTERM. A session summary is printed once
// the terminal is restored.
func (r *Runner) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return r.run(ctx)
}

func (r *Runner) run(ctx context.Context) error {
	screen, err := r.newScreen()
	if err != nil {
		return fmt.Errorf("failed to create screen: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("failed to initialize screen: %w", err)
	}

	r.app = NewApplication(screen, r.settings, r.opts)
	runErr := r.app.Run(ctx)
	screen.Fini()

	if ctx.Err() != nil {
		fmt.Fprintln(r.out, "Received interrupt signal, shutting down...")
	}
	r.printSessionSummary()

	if runErr != nil {
		return fmt.Errorf("application error: %w", runErr)
	}
	return nil
}

// printSessionSummary prints a summary of every session
func (r *Runner) printSessionSummary() {
	if r.app == nil {
		return
	}

	sessions := r.app.Sessions()
	if len(sessions) == 0 {
		return
	}

	fmt.Fprintf(r.out, "\n=== Session Summary ===\n")
	for _, s := range sessions {
		fmt.Fprintf(r.out, "%s\n", s.Settings.String())
		fmt.Fprintf(r.out, "  Duration: %v\n", s.Duration().Round(time.Millisecond))
		fmt.Fprintf(r.out, "  Sent: %d messages, %d bytes\n", s.Stats.MessagesSent, s.Stats.BytesSent)
		fmt.Fprintf(r.out, "  Received: %d messages, %d bytes\n", s.Stats.MessagesRecv, s.Stats.BytesRecv)
		if s.Err != nil {
			fmt.Fprintf(r.out, "  Ended: %v\n", s.Err)
		}
	}
	fmt.Fprintf(r.out, "=====================\n")
}

// RunInteractive runs the application on the real terminal
func RunInteractive(settings serial.LineSettings, opts Options) error {
	return NewRunner(settings, opts).Run()
}
