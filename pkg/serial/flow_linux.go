//go:build linux

package serial

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// flowControl holds a control handle on the tty. It is opened before
// go.bug.st/serial takes the port, whose TIOCEXCL lock refuses any later
// open from an unprivileged process. Termios state belongs to the tty, so
// settings applied through this handle hold for the port handle as well.
type flowControl struct {
	fd   int
	flow string
}

// prepareFlowControl returns nil for "none": go.bug.st/serial already
// clears CRTSCTS and IXON when it puts the port in raw mode.
func prepareFlowControl(path, flow string) (*flowControl, error) {
	switch flow {
	case "", "none":
		return nil, nil
	case "hardware", "software":
	default:
		return nil, fmt.Errorf("invalid flow control: %s", flow)
	}

	fd, err := unix.Open(path, unix.O_RDWR|unix.O_NOCTTY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("open for flow control: %w", err)
	}
	return &flowControl{fd: fd, flow: flow}, nil
}

// apply sets the handshake flags. It must run after the port is configured
// since opening the port rewrites the termios flags.
func (f *flowControl) apply() error {
	if f == nil {
		return nil
	}

	termios, err := unix.IoctlGetTermios(f.fd, unix.TCGETS)
	if err != nil {
		return fmt.Errorf("get termios: %w", err)
	}

	termios.Cflag &^= unix.CRTSCTS
	termios.Iflag &^= unix.IXON | unix.IXOFF | unix.IXANY
	switch f.flow {
	case "hardware":
		termios.Cflag |= unix.CRTSCTS
	case "software":
		termios.Iflag |= unix.IXON | unix.IXOFF
	}

	if err := unix.IoctlSetTermios(f.fd, unix.TCSETS, termios); err != nil {
		return fmt.Errorf("set termios: %w", err)
	}
	return nil
}

func (f *flowControl) close() {
	if f != nil {
		unix.Close(f.fd)
	}
}
