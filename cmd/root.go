package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"serialtool/pkg/app"
	"serialtool/pkg/config"
	"serialtool/pkg/logger"
	"serialtool/pkg/serial"
)

// Swapped out by tests
var (
	runInteractive = app.RunInteractive
	listPortNames  = serial.ListPorts
)

// rootOptions holds the flags of the interactive command
type rootOptions struct {
	line      lineFlags
	profile   string
	logFile   string
	debug     bool
	configDir string
}

// Execute builds the command tree and runs it
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "serialtool [port|profile]",
		Short: "An interactive serial port terminal",
		Long: `An interactive serial port terminal.

The terminal starts on the port selection page. Flags, a saved profile or a
port given as argument preselect the line settings there.

Examples:
  serialtool
  serialtool /dev/ttyUSB0 -b 9600
  serialtool --profile bench`,
		Version:           "1.0.0",
		Args:              cobra.MaximumNArgs(1),
		SilenceUsage:      true,
		SilenceErrors:     true,
		DisableAutoGenTag: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTerminal(cmd, opts, args)
		},
	}

	opts.line.register(cmd.Flags())
	cmd.Flags().StringVarP(&opts.profile, "profile", "P", "", "start from a saved profile")
	cmd.Flags().StringVar(&opts.logFile, "log-file", "", "log file (default "+logger.DefaultPath()+")")
	cmd.Flags().BoolVar(&opts.debug, "debug", false, "enable debug logging")
	cmd.PersistentFlags().StringVar(&opts.configDir, "config-dir", "", "profile directory (default "+config.DefaultDir()+")")

	cmd.AddCommand(newListCmd())
	cmd.AddCommand(newConfigCmd(&opts.configDir))

	return cmd
}

// runTerminal resolves the starting settings and runs the interactive
// terminal until the user exits
func runTerminal(cmd *cobra.Command, opts *rootOptions, args []string) error {
	manager := config.NewFileConfigManager(opts.configDir)

	settings, err := resolveSettings(cmd.Flags(), opts, manager, args)
	if err != nil {
		return err
	}

	if err := logger.Init(opts.logFile); err != nil {
		return err
	}
	defer logger.Close()
	logger.SetDebug(opts.debug)
	logger.Get().Info("starting terminal", "settings", settings.String())

	return runInteractive(settings, app.DefaultOptions())
}

// resolveSettings layers defaults, the profile, the positional argument
// and explicitly set flags, in that order
func resolveSettings(flags *pflag.FlagSet, opts *rootOptions, manager config.ConfigManager, args []string) (serial.LineSettings, error) {
	settings := serial.DefaultSettings()

	profile := opts.profile
	if len(args) == 1 {
		target := args[0]
		switch {
		case manager.ConfigExists(target):
			if profile != "" {
				return settings, fmt.Errorf("both --profile %q and profile argument %q given", profile, target)
			}
			profile = target
		case isSerialPort(target):
			settings.Port = target
		default:
			return settings, fmt.Errorf("%q is neither a serial port nor a saved profile", target)
		}
	}

	if profile != "" {
		port := settings.Port
		loaded, err := manager.LoadConfig(profile)
		if err != nil {
			return settings, fmt.Errorf("failed to load profile %q: %w", profile, err)
		}
		settings = loaded
		if port != "" {
			settings.Port = port
		}
	}

	opts.line.apply(flags, &settings)

	if err := settings.ValidateLine(); err != nil {
		return settings, fmt.Errorf("invalid line settings: %w", err)
	}
	return settings, nil
}

// isSerialPort reports whether name looks like a serial device
func isSerialPort(name string) bool {
	lower := strings.ToLower(name)

	// Windows COM ports
	if strings.HasPrefix(lower, "com") {
		return true
	}

	// Unix-like serial devices
	if strings.HasPrefix(name, "/dev/") {
		return true
	}

	ports, err := listPortNames()
	return err == nil && serial.ContainsPort(ports, name)
}

// lineFlags are the line setting flags shared by the root and config save
type lineFlags struct {
	port        string
	baudRate    int
	dataBits    int
	stopBits    int
	parity      string
	flowControl string
}

func (f *lineFlags) register(fs *pflag.FlagSet) {
	d := serial.DefaultSettings()
	fs.StringVarP(&f.port, "port", "p", "", "serial port")
	fs.IntVarP(&f.baudRate, "baud", "b", d.BaudRate, "baud rate")
	fs.IntVarP(&f.dataBits, "data", "d", d.DataBits, "data bits (5, 6, 7 or 8)")
	fs.IntVarP(&f.stopBits, "stop", "s", d.StopBits, "stop bits (1 or 2)")
	fs.StringVar(&f.parity, "parity", d.Parity, "parity (none, even, odd)")
	fs.StringVar(&f.flowControl, "flow", d.FlowControl, "flow control (none, software, hardware)")
}

// apply copies the flags the user set onto s
func (f *lineFlags) apply(fs *pflag.FlagSet, s *serial.LineSettings) {
	if fs.Changed("port") {
		s.Port = f.port
	}
	if fs.Changed("baud") {
		s.BaudRate = f.baudRate
	}
	if fs.Changed("data") {
		s.DataBits = f.dataBits
	}
	if fs.Changed("stop") {
		s.StopBits = f.stopBits
	}
	if fs.Changed("parity") {
		s.Parity = strings.ToLower(f.parity)
	}
	if fs.Changed("flow") {
		s.FlowControl = strings.ToLower(f.flowControl)
	}
}
