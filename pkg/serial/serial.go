// Package serial provides serial port configuration, discovery and access
package serial

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"go.bug.st/serial"
)

// ErrWouldBlock is returned by Device.Read when no data is ready yet.
// It is not a failure; the caller should simply try again later.
var ErrWouldBlock = errors.New("operation would block")

// DefaultReadTimeout bounds how long a single device read may wait for data
const DefaultReadTimeout = 10 * time.Millisecond

// Option tables offered on the port selection page, in display order
var (
	BaudRates = []int{
		300, 600, 1200, 2400, 4800, 9600, 14400, 19200, 38400, 56000, 57600, 115200,
		128000, 256000, 460800, 512000, 750000, 900000, 921600, 1500000,
	}
	DataBitsOptions    = []int{5, 6, 7, 8}
	StopBitsOptions    = []int{1, 2}
	ParityOptions      = []string{"none", "even", "odd"}
	FlowControlOptions = []string{"none", "software", "hardware"}
)

// LineSettings is the serial line configuration used to open a device
type LineSettings struct {
	Port        string        `json:"port"`
	BaudRate    int           `json:"baud_rate"`
	DataBits    int           `json:"data_bits"`
	StopBits    int           `json:"stop_bits"`
	Parity      string        `json:"parity"`
	FlowControl string        `json:"flow_control"`
	ReadTimeout time.Duration `json:"read_timeout,omitempty"`
}

// DefaultSettings returns 115200 8N1 without flow control and no port
func DefaultSettings() LineSettings {
	return LineSettings{
		BaudRate:    115200,
		DataBits:    8,
		StopBits:    1,
		Parity:      "none",
		FlowControl: "none",
		ReadTimeout: DefaultReadTimeout,
	}
}

// Validate checks every field against the supported option tables
func (s LineSettings) Validate() error {
	if s.Port == "" {
		return fmt.Errorf("port cannot be empty")
	}
	return s.ValidateLine()
}

// ValidateLine checks everything except the port name. Saved profiles
// may leave the port to be picked at startup.
func (s LineSettings) ValidateLine() error {
	if !slices.Contains(BaudRates, s.BaudRate) {
		return fmt.Errorf("invalid baud rate: %d", s.BaudRate)
	}

	if !slices.Contains(DataBitsOptions, s.DataBits) {
		return fmt.Errorf("data bits must be between 5 and 8, got: %d", s.DataBits)
	}

	if !slices.Contains(StopBitsOptions, s.StopBits) {
		return fmt.Errorf("stop bits must be 1 or 2, got: %d", s.StopBits)
	}

	if !slices.Contains(ParityOptions, s.Parity) {
		return fmt.Errorf("invalid parity: %s", s.Parity)
	}

	if !slices.Contains(FlowControlOptions, s.FlowControl) {
		return fmt.Errorf("invalid flow control: %s", s.FlowControl)
	}

	if s.ReadTimeout < 0 {
		return fmt.Errorf("read timeout cannot be negative")
	}

	return nil
}

// String formats the settings the way terminal programs usually do,
// e.g. "/dev/ttyUSB0 115200 8N1".
func (s LineSettings) String() string {
	parity := "N"
	if s.Parity != "" {
		parity = strings.ToUpper(s.Parity[:1])
	}
	str := fmt.Sprintf("%d %d%s%d", s.BaudRate, s.DataBits, parity, s.StopBits)
	if s.FlowControl != "" && s.FlowControl != "none" {
		str += " " + s.FlowControl
	}
	if s.Port != "" {
		str = s.Port + " " + str
	}
	return str
}

// Device is an open serial device handle.
// Read returns ErrWouldBlock when nothing is available; any other error is
// a link failure.
type Device interface {
	io.ReadWriteCloser
}

// Port implements Device on top of go.bug.st/serial
type Port struct {
	port     serial.Port
	settings LineSettings
}

// Open opens and configures the port described by settings
func Open(settings LineSettings) (*Port, error) {
	if err := settings.Validate(); err != nil {
		return nil, NewSerialError("open", settings.Port, fmt.Errorf("invalid configuration: %w", err))
	}

	mode := &serial.Mode{
		BaudRate: settings.BaudRate,
		DataBits: settings.DataBits,
		StopBits: convertStopBits(settings.StopBits),
		Parity:   convertParity(settings.Parity),
	}
	if settings.FlowControl == "hardware" {
		mode.InitialStatusBits = &serial.ModemOutputBits{RTS: true, DTR: true}
	}

	flow, err := prepareFlowControl(settings.Port, settings.FlowControl)
	if err != nil {
		return nil, NewSerialError("open", settings.Port, err)
	}
	defer flow.close()

	port, err := serial.Open(settings.Port, mode)
	if err != nil {
		return nil, NewSerialError("open", settings.Port, err)
	}

	if err := flow.apply(); err != nil {
		port.Close()
		return nil, NewSerialError("configure", settings.Port, err)
	}

	timeout := settings.ReadTimeout
	if timeout == 0 {
		timeout = DefaultReadTimeout
	}
	if err := port.SetReadTimeout(timeout); err != nil {
		port.Close()
		return nil, NewSerialError("configure", settings.Port, fmt.Errorf("failed to set read timeout: %w", err))
	}

	return &Port{
		port:     port,
		settings: settings,
	}, nil
}

// Read reads whatever the device has buffered.
// A read that times out without data reports ErrWouldBlock.
func (p *Port) Read(buffer []byte) (int, error) {
	n, err := p.port.Read(buffer)
	if err != nil {
		return n, NewSerialError("read", p.settings.Port, err)
	}
	if n == 0 {
		return 0, ErrWouldBlock
	}
	return n, nil
}

// Write writes data to the device
func (p *Port) Write(data []byte) (int, error) {
	n, err := p.port.Write(data)
	if err != nil {
		return n, NewSerialError("write", p.settings.Port, err)
	}
	return n, nil
}

// Close closes the device
func (p *Port) Close() error {
	if err := p.port.Close(); err != nil {
		return NewSerialError("close", p.settings.Port, err)
	}
	return nil
}

// Settings returns the settings the port was opened with
func (p *Port) Settings() LineSettings {
	return p.settings
}

// convertStopBits converts our stop bits format to go.bug.st/serial format
func convertStopBits(stopBits int) serial.StopBits {
	switch stopBits {
	case 2:
		return serial.TwoStopBits
	default:
		return serial.OneStopBit
	}
}

// convertParity converts our parity format to go.bug.st/serial format
func convertParity(parity string) serial.Parity {
	switch parity {
	case "odd":
		return serial.OddParity
	case "even":
		return serial.EvenParity
	default:
		return serial.NoParity
	}
}

// SerialError represents a serial port specific error
type SerialError struct {
	Operation string
	Port      string
	Cause     error
}

// Error implements the error interface
func (e *SerialError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("serial %s failed on port %s: %v", e.Operation, e.Port, e.Cause)
	}
	return fmt.Sprintf("serial %s failed on port %s", e.Operation, e.Port)
}

// Unwrap returns the underlying cause
func (e *SerialError) Unwrap() error {
	return e.Cause
}

// NewSerialError creates a new serial error
func NewSerialError(operation, port string, cause error) *SerialError {
	return &SerialError{
		Operation: operation,
		Port:      port,
		Cause:     cause,
	}
}

// Hint suggests a fix for common port failures, or returns "".
func Hint(err error) string {
	if err == nil {
		return ""
	}

	var portErr *serial.PortError
	if errors.As(err, &portErr) {
		switch portErr.Code() {
		case serial.PortBusy:
			return "the port is in use by another program"
		case serial.PortNotFound:
			return "the port does not exist, rescan with [r]"
		case serial.PermissionDenied:
			return "permission denied, on Linux add your user to the 'dialout' group"
		}
	}

	errStr := strings.ToLower(err.Error())
	switch {
	case strings.Contains(errStr, "permission") || strings.Contains(errStr, "access"):
		return "permission denied, on Linux add your user to the 'dialout' group"
	case strings.Contains(errStr, "busy"):
		return "the port is in use by another program"
	case strings.Contains(errStr, "not found") || strings.Contains(errStr, "no such"):
		return "the port does not exist, rescan with [r]"
	}
	return ""
}
