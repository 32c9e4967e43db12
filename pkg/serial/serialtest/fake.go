// Package serialtest provides an in-memory serial device for tests
package serialtest

import (
	"errors"
	"sync"

	"serialtool/pkg/serial"
)

// ErrFakeClosed is returned by a FakeDevice after Close
var ErrFakeClosed = errors.New("fake device closed")

// FakeDevice is a scripted serial.Device.
// Reads return queued chunks one per call, then ErrWouldBlock. Writes are
// appended to a log. It is safe for concurrent use.
type FakeDevice struct {
	mu sync.Mutex

	reads    [][]byte
	readErr  error
	writeErr error
	writes   [][]byte

	// ShortWrite, when positive, caps every write at that many bytes
	shortWrite int
	writeGate  chan struct{}

	closed     bool
	closeCount int
}

// NewFakeDevice creates a fake device that returns chunks in order
func NewFakeDevice(chunks ...[]byte) *FakeDevice {
	d := &FakeDevice{}
	for _, c := range chunks {
		d.QueueRead(c)
	}
	return d
}

// QueueRead schedules data to be returned by a later Read
func (d *FakeDevice) QueueRead(data []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.reads = append(d.reads, append([]byte(nil), data...))
}

// FailReads makes every subsequent Read, once queued chunks are drained,
// return err.
func (d *FakeDevice) FailReads(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.readErr = err
}

// FailWrites makes every subsequent Write return err
func (d *FakeDevice) FailWrites(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.writeErr = err
}

// SetShortWrite caps writes at n bytes
func (d *FakeDevice) SetShortWrite(n int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.shortWrite = n
}

// HoldWrites blocks every Write until ReleaseWrites is called
func (d *FakeDevice) HoldWrites() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.writeGate == nil {
		d.writeGate = make(chan struct{})
	}
}

// ReleaseWrites unblocks writes held by HoldWrites
func (d *FakeDevice) ReleaseWrites() {
	d.mu.Lock()
	gate := d.writeGate
	d.writeGate = nil
	d.mu.Unlock()
	if gate != nil {
		close(gate)
	}
}

// Read implements serial.Device
func (d *FakeDevice) Read(buffer []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return 0, ErrFakeClosed
	}
	if len(d.reads) == 0 {
		if d.readErr != nil {
			return 0, d.readErr
		}
		return 0, serial.ErrWouldBlock
	}

	chunk := d.reads[0]
	n := copy(buffer, chunk)
	if n < len(chunk) {
		d.reads[0] = chunk[n:]
	} else {
		d.reads = d.reads[1:]
	}
	return n, nil
}

// Write implements serial.Device
func (d *FakeDevice) Write(data []byte) (int, error) {
	d.mu.Lock()
	gate := d.writeGate
	d.mu.Unlock()
	if gate != nil {
		<-gate
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return 0, ErrFakeClosed
	}
	if d.writeErr != nil {
		return 0, d.writeErr
	}

	n := len(data)
	if d.shortWrite > 0 && n > d.shortWrite {
		n = d.shortWrite
	}
	d.writes = append(d.writes, append([]byte(nil), data[:n]...))
	return n, nil
}

// Close implements serial.Device
func (d *FakeDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	d.closeCount++
	return nil
}

// Writes returns a copy of every write, in order
func (d *FakeDevice) Writes() [][]byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([][]byte, len(d.writes))
	for i, w := range d.writes {
		out[i] = append([]byte(nil), w...)
	}
	return out
}

// Written returns every written byte concatenated
func (d *FakeDevice) Written() []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []byte
	for _, w := range d.writes {
		out = append(out, w...)
	}
	return out
}

// IsClosed reports whether Close was called
func (d *FakeDevice) IsClosed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

// CloseCount reports how many times Close was called
func (d *FakeDevice) CloseCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closeCount
}

var _ serial.Device = (*FakeDevice)(nil)
