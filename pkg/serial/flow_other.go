//go:build !linux

package serial

import "fmt"

// flowControl is empty outside Linux; go.bug.st/serial has no portable
// handshake setting, so only "none" is accepted.
type flowControl struct{}

func prepareFlowControl(path, flow string) (*flowControl, error) {
	switch flow {
	case "", "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("flow control %q is not supported on this platform", flow)
	}
}

func (f *flowControl) apply() error { return nil }

func (f *flowControl) close() {}
