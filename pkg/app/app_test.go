package app

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/stretchr/testify/require"

	"serialtool/pkg/bridge"
	"serialtool/pkg/serial"
	"serialtool/pkg/serial/serialtest"
	"serialtool/pkg/ui/uitest"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

func newTestScreen(t *testing.T, w, h int) tcell.SimulationScreen {
	t.Helper()
	s := tcell.NewSimulationScreen("UTF-8")
	require.NoError(t, s.Init())
	s.SetSize(w, h)
	t.Cleanup(s.Fini)
	return s
}

func listPorts(ports ...string) PortLister {
	return func() ([]string, error) {
		return ports, nil
	}
}

func openDevice(dev *serialtest.FakeDevice) Opener {
	return func(serial.LineSettings) (serial.Device, error) {
		return dev, nil
	}
}

func newTestApp(t *testing.T, opts Options) (*Application, tcell.SimulationScreen) {
	t.Helper()
	s := newTestScreen(t, 100, 16)
	if opts.Lister == nil {
		opts.Lister = listPorts("/dev/ttyUSB0", "/dev/ttyUSB1")
	}
	if opts.Opener == nil {
		opts.Opener = func(serial.LineSettings) (serial.Device, error) {
			return nil, errors.New("no device in test")
		}
	}
	opts.TickInterval = tick
	return NewApplication(s, serial.DefaultSettings(), opts), s
}

func key(k tcell.Key) *tcell.EventKey {
	return tcell.NewEventKey(k, 0, tcell.ModNone)
}

func runeKey(r rune) *tcell.EventKey {
	return tcell.NewEventKey(tcell.KeyRune, r, tcell.ModNone)
}

func runApp(app *Application, ctx context.Context) <-chan error {
	done := make(chan error, 1)
	go func() {
		done <- app.Run(ctx)
	}()
	return done
}

func waitDone(t *testing.T, done <-chan error) {
	t.Helper()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(waitFor):
		t.Fatal("Run() did not return")
	}
}

func TestPage_String(t *testing.T) {
	tests := []struct {
		page Page
		want string
	}{
		{PagePortSelect, "port-select"},
		{PageSession, "session"},
		{PageExit, "exit"},
		{Page(42), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			require.Equal(t, tt.want, tt.page.String())
		})
	}
}

func TestNewApplication_StartsOnPortSelect(t *testing.T) {
	app, _ := newTestApp(t, Options{})

	ctx := app.Context()
	require.Equal(t, PagePortSelect, ctx.Page)
	require.Equal(t, serial.DefaultSettings(), ctx.Settings)
	require.Empty(t, ctx.Status)
	require.Empty(t, app.Sessions())
}

func TestPortSelect_ScanSelectsFirstPort(t *testing.T) {
	app, _ := newTestApp(t, Options{})

	app.portPage.scan()

	require.Equal(t, "/dev/ttyUSB0", app.ctx.Settings.Port)
	require.Equal(t, "/dev/ttyUSB0", app.portPage.menu.Field(fieldPort).Current())
}

func TestPortSelect_ScanKeepsConfiguredPort(t *testing.T) {
	app, _ := newTestApp(t, Options{})
	app.ctx.Settings.Port = "/dev/pts/7"

	app.portPage.scan()

	require.Equal(t, []string{"/dev/ttyUSB0", "/dev/ttyUSB1", "/dev/pts/7"}, app.portPage.ports)
	require.Equal(t, "/dev/pts/7", app.ctx.Settings.Port)
	require.Equal(t, "/dev/pts/7", app.portPage.menu.Field(fieldPort).Current())
}

func TestPortSelect_ScanError(t *testing.T) {
	app, _ := newTestApp(t, Options{
		Lister: func() ([]string, error) { return nil, errors.New("enumeration failed") },
	})

	app.portPage.scan()

	require.Empty(t, app.portPage.ports)
	require.Empty(t, app.ctx.Settings.Port)
	require.Contains(t, app.ctx.Status, "enumeration failed")
	require.Equal(t, ErrorDiscovery, app.ctx.Err.Type)
}

func TestPortSelect_FieldsFollowSettings(t *testing.T) {
	s := newTestScreen(t, 80, 16)
	settings := serial.DefaultSettings()
	settings.BaudRate = 9600
	settings.Parity = "odd"
	settings.FlowControl = "hardware"

	app := NewApplication(s, settings, Options{Lister: listPorts("/dev/ttyUSB0")})
	m := app.portPage.menu

	require.Equal(t, "9600", m.Field(fieldBaudRate).Current())
	require.Equal(t, "8", m.Field(fieldDataBits).Current())
	require.Equal(t, "1", m.Field(fieldStopBits).Current())
	require.Equal(t, "odd", m.Field(fieldParity).Current())
	require.Equal(t, "hardware", m.Field(fieldFlowControl).Current())
}

func TestPortSelect_IndexEntryCommitsOption(t *testing.T) {
	app, _ := newTestApp(t, Options{})
	p := app.portPage
	p.scan()

	tests := []struct {
		name  string
		keys  []*tcell.EventKey
		check func(t *testing.T, s serial.LineSettings)
	}{
		{
			name: "second port",
			keys: []*tcell.EventKey{key(tcell.KeyRight), runeKey('1'), key(tcell.KeyLeft)},
			check: func(t *testing.T, s serial.LineSettings) {
				require.Equal(t, "/dev/ttyUSB1", s.Port)
			},
		},
		{
			name: "baud rate 9600",
			keys: []*tcell.EventKey{key(tcell.KeyDown), key(tcell.KeyRight), runeKey('5'), key(tcell.KeyLeft)},
			check: func(t *testing.T, s serial.LineSettings) {
				require.Equal(t, 9600, s.BaudRate)
			},
		},
		{
			name: "two digit baud index",
			keys: []*tcell.EventKey{key(tcell.KeyRight), runeKey('1'), runeKey('8'), key(tcell.KeyLeft)},
			check: func(t *testing.T, s serial.LineSettings) {
				require.Equal(t, 921600, s.BaudRate)
			},
		},
		{
			name: "backspace removes a digit",
			keys: []*tcell.EventKey{key(tcell.KeyRight), runeKey('1'), runeKey('1'), key(tcell.KeyBackspace2), key(tcell.KeyLeft)},
			check: func(t *testing.T, s serial.LineSettings) {
				require.Equal(t, 600, s.BaudRate)
			},
		},
		{
			name: "parity even",
			keys: []*tcell.EventKey{key(tcell.KeyDown), key(tcell.KeyDown), key(tcell.KeyDown), key(tcell.KeyRight), runeKey('1'), key(tcell.KeyLeft)},
			check: func(t *testing.T, s serial.LineSettings) {
				require.Equal(t, "even", s.Parity)
			},
		},
		{
			name: "out of range index keeps value",
			keys: []*tcell.EventKey{key(tcell.KeyDown), key(tcell.KeyRight), runeKey('9'), key(tcell.KeyLeft)},
			check: func(t *testing.T, s serial.LineSettings) {
				require.Equal(t, "none", s.FlowControl)
			},
		},
		{
			name: "flow control after wrapping",
			keys: []*tcell.EventKey{key(tcell.KeyDown), key(tcell.KeyUp), key(tcell.KeyRight), runeKey('2'), key(tcell.KeyLeft)},
			check: func(t *testing.T, s serial.LineSettings) {
				require.Equal(t, "hardware", s.FlowControl)
			},
		},
	}

	// Cases run in order on one page; the menu position carries over.
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, ev := range tt.keys {
				next, done := p.handleKey(ev)
				require.False(t, done)
				require.Equal(t, PagePortSelect, next)
			}
			tt.check(t, app.ctx.Settings)
		})
	}
}

func TestPortSelect_Keys(t *testing.T) {
	tests := []struct {
		name     string
		ports    []string
		ev       *tcell.EventKey
		wantPage Page
		wantDone bool
	}{
		{"enter opens session", []string{"/dev/ttyUSB0"}, key(tcell.KeyEnter), PageSession, true},
		{"enter without ports", nil, key(tcell.KeyEnter), PagePortSelect, false},
		{"q exits", []string{"/dev/ttyUSB0"}, runeKey('q'), PageExit, true},
		{"ctrl c exits", nil, key(tcell.KeyCtrlC), PageExit, true},
		{"other rune ignored", []string{"/dev/ttyUSB0"}, runeKey('x'), PagePortSelect, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app, _ := newTestApp(t, Options{Lister: listPorts(tt.ports...)})
			app.portPage.scan()

			next, done := app.portPage.handleKey(tt.ev)
			require.Equal(t, tt.wantPage, next)
			require.Equal(t, tt.wantDone, done)
		})
	}
}

func TestPortSelect_EnterClosesOpenField(t *testing.T) {
	app, _ := newTestApp(t, Options{})
	p := app.portPage
	p.scan()

	p.handleKey(key(tcell.KeyRight))
	p.handleKey(runeKey('1'))
	require.True(t, p.menu.Selecting())

	next, done := p.handleKey(key(tcell.KeyEnter))
	require.True(t, done)
	require.Equal(t, PageSession, next)
	require.False(t, p.menu.Selecting())
	require.Equal(t, 0, p.menu.Index())
	require.Equal(t, "/dev/ttyUSB1", app.ctx.Settings.Port)
}

func TestPortSelect_Rescan(t *testing.T) {
	var calls atomic.Int32
	ports := []string{}
	app, _ := newTestApp(t, Options{
		Lister: func() ([]string, error) {
			calls.Add(1)
			return ports, nil
		},
	})
	p := app.portPage
	p.scan()
	require.Empty(t, app.ctx.Settings.Port)

	ports = []string{"/dev/ttyACM0"}
	p.handleKey(runeKey('r'))
	require.Equal(t, int32(2), calls.Load())
	require.Equal(t, "/dev/ttyACM0", app.ctx.Settings.Port)

	// r is not a rescan while a field is open
	p.handleKey(key(tcell.KeyRight))
	p.handleKey(runeKey('r'))
	require.Equal(t, int32(2), calls.Load())
}

func TestPortSelect_Draw(t *testing.T) {
	app, s := newTestApp(t, Options{})
	app.portPage.scan()
	app.ctx.Status = "failed to open /dev/ttyUSB9: busy"

	app.portPage.draw()

	_, h := s.Size()
	require.True(t, strings.HasPrefix(uitest.RowText(s, 0), portSelectTitle))
	require.Contains(t, uitest.RowText(s, 0), "/dev/ttyUSB0 115200 8N1")
	require.Equal(t, " >Serial Port: /dev/ttyUSB0", uitest.RowText(s, 2))
	require.Equal(t, "  Baud Rate: 115200", uitest.RowText(s, 3))
	require.Equal(t, "failed to open /dev/ttyUSB9: busy", uitest.RowText(s, h-2))
	require.True(t, strings.HasPrefix(uitest.RowText(s, h-1), "[Up/Down] move"))
}

func TestPortSelect_DrawOpenField(t *testing.T) {
	app, s := newTestApp(t, Options{})
	p := app.portPage
	p.scan()
	p.handleKey(key(tcell.KeyRight))

	p.draw()

	require.Equal(t, " <Serial Port: /dev/ttyUSB0", uitest.RowText(s, 2))
	require.Equal(t, "    0: /dev/ttyUSB0", uitest.RowText(s, 3))
	require.Equal(t, "    1: /dev/ttyUSB1", uitest.RowText(s, 4))
	require.Equal(t, "  Baud Rate: 115200", uitest.RowText(s, 5))
}

func TestPortSelect_DrawNoPorts(t *testing.T) {
	app, s := newTestApp(t, Options{Lister: listPorts()})
	app.portPage.scan()

	app.portPage.draw()

	require.Equal(t, " "+noPortsMessage, uitest.RowText(s, 2))
	require.Equal(t, " >Serial Port: (none)", uitest.RowText(s, 3))
}

func TestApplication_ExitFromPortSelect(t *testing.T) {
	app, s := newTestApp(t, Options{})
	s.InjectKey(tcell.KeyRune, 'q', tcell.ModNone)

	waitDone(t, runApp(app, context.Background()))
	require.Equal(t, PageExit, app.Context().Page)
}

func TestApplication_CancelExits(t *testing.T) {
	app, _ := newTestApp(t, Options{})
	ctx, cancel := context.WithCancel(context.Background())

	done := runApp(app, ctx)
	cancel()

	waitDone(t, done)
	require.Equal(t, PageExit, app.Context().Page)
}

func TestApplication_OpenFailureReturnsToPortSelect(t *testing.T) {
	var opened atomic.Int32
	app, s := newTestApp(t, Options{
		Opener: func(settings serial.LineSettings) (serial.Device, error) {
			opened.Add(1)
			return nil, serial.NewSerialError("open", settings.Port, errors.New("device busy"))
		},
	})

	s.InjectKey(tcell.KeyEnter, 0, tcell.ModNone)
	s.InjectKey(tcell.KeyRune, 'q', tcell.ModNone)

	waitDone(t, runApp(app, context.Background()))

	ctx := app.Context()
	require.Equal(t, int32(1), opened.Load())
	require.Equal(t, PageExit, ctx.Page)
	require.Contains(t, ctx.Status, "failed to open /dev/ttyUSB0")
	require.Contains(t, ctx.Status, "device busy")
	require.Contains(t, ctx.Status, "in use by another program")
	require.NotNil(t, ctx.Err)
	require.Equal(t, ErrorSerial, ctx.Err.Type)
	var serialErr *serial.SerialError
	require.ErrorAs(t, ctx.Err, &serialErr)
	require.Empty(t, app.Sessions())
}

func TestApplication_SessionEndToEnd(t *testing.T) {
	dev := serialtest.NewFakeDevice([]byte("hi\n"))
	app, s := newTestApp(t, Options{Opener: openDevice(dev)})

	s.InjectKey(tcell.KeyEnter, 0, tcell.ModNone)
	s.InjectKey(tcell.KeyRune, 'i', tcell.ModNone)
	s.InjectKey(tcell.KeyRune, 'o', tcell.ModNone)
	s.InjectKey(tcell.KeyRune, 'k', tcell.ModNone)
	s.InjectKey(tcell.KeyEnter, 0, tcell.ModNone)
	done := runApp(app, context.Background())

	require.Eventually(t, func() bool {
		return string(dev.Written()) == "ok"
	}, waitFor, tick)

	s.InjectKey(tcell.KeyEscape, 0, tcell.ModNone)
	s.InjectKey(tcell.KeyRune, 'q', tcell.ModNone)
	waitDone(t, done)

	require.True(t, dev.IsClosed())
	require.Equal(t, [][]byte{[]byte("ok")}, dev.Writes())

	sessions := app.Sessions()
	require.Len(t, sessions, 1)
	require.NoError(t, sessions[0].Err)
	require.Equal(t, "/dev/ttyUSB0", sessions[0].Settings.Port)
	require.Equal(t, bridge.Stats{BytesSent: 2, BytesRecv: 3, MessagesSent: 1, MessagesRecv: 1}, sessions[0].Stats)
	require.False(t, sessions[0].EndTime.Before(sessions[0].StartTime))
	require.Equal(t, PageExit, app.Context().Page)
}

func TestApplication_EscReturnsToPortSelect(t *testing.T) {
	dev := serialtest.NewFakeDevice()
	app, s := newTestApp(t, Options{Opener: openDevice(dev)})

	s.InjectKey(tcell.KeyEnter, 0, tcell.ModNone)
	s.InjectKey(tcell.KeyEscape, 0, tcell.ModNone)
	done := runApp(app, context.Background())

	require.Eventually(t, func() bool {
		return len(app.Sessions()) == 1
	}, waitFor, tick)

	s.InjectKey(tcell.KeyRune, 'q', tcell.ModNone)
	waitDone(t, done)
	require.True(t, dev.IsClosed())
	require.Empty(t, app.Context().Status)
	require.Nil(t, app.Context().Err)
}

func TestApplication_LinkLossReturnsToPortSelect(t *testing.T) {
	dev := serialtest.NewFakeDevice()
	dev.FailReads(errors.New("unplugged"))
	app, s := newTestApp(t, Options{Opener: openDevice(dev)})

	s.InjectKey(tcell.KeyEnter, 0, tcell.ModNone)
	done := runApp(app, context.Background())

	require.Eventually(t, func() bool {
		return len(app.Sessions()) == 1
	}, waitFor, tick)

	s.InjectKey(tcell.KeyRune, 'q', tcell.ModNone)
	waitDone(t, done)

	require.True(t, dev.IsClosed())
	status := app.Context().Status
	require.Contains(t, status, "link lost")
	require.Contains(t, status, "unplugged")
	require.ErrorIs(t, app.Sessions()[0].Err, bridge.ErrLinkLost)
	require.Equal(t, ErrorLink, app.Context().Err.Type)
	require.ErrorIs(t, app.Context().Err, bridge.ErrLinkLost)
}

func TestRunner_InterruptedBeforeStart(t *testing.T) {
	var out bytes.Buffer
	r := NewRunner(serial.DefaultSettings(), Options{Lister: listPorts()})
	r.out = &out
	r.newScreen = func() (tcell.Screen, error) {
		return tcell.NewSimulationScreen("UTF-8"), nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, r.run(ctx))
	require.Contains(t, out.String(), "Received interrupt signal")
	require.NotContains(t, out.String(), "Session Summary")
}

func TestRunner_ScreenError(t *testing.T) {
	r := NewRunner(serial.DefaultSettings(), Options{})
	r.newScreen = func() (tcell.Screen, error) {
		return nil, errors.New("not a terminal")
	}

	err := r.run(context.Background())
	require.ErrorContains(t, err, "not a terminal")
}

func TestRunner_PrintSessionSummary(t *testing.T) {
	var out bytes.Buffer
	app, _ := newTestApp(t, Options{})

	settings := serial.DefaultSettings()
	settings.Port = "/dev/ttyUSB0"
	start := time.Now()
	app.sessions = []Session{
		{
			ID:        "1",
			Settings:  settings,
			StartTime: start,
			EndTime:   start.Add(1500 * time.Millisecond),
			Stats:     bridge.Stats{BytesSent: 4, BytesRecv: 10, MessagesSent: 2, MessagesRecv: 3},
		},
		{
			ID:        "2",
			Settings:  settings,
			StartTime: start,
			EndTime:   start,
			Err:       errors.New("link lost: unplugged"),
		},
	}

	r := &Runner{out: &out, app: app}
	r.printSessionSummary()

	got := out.String()
	require.Contains(t, got, "=== Session Summary ===")
	require.Contains(t, got, "/dev/ttyUSB0 115200 8N1")
	require.Contains(t, got, "Duration: 1.5s")
	require.Contains(t, got, "Sent: 2 messages, 4 bytes")
	require.Contains(t, got, "Received: 3 messages, 10 bytes")
	require.Contains(t, got, "Ended: link lost: unplugged")
}
