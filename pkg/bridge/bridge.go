// Package bridge moves bytes between a serial device and the interactive
// session without ever blocking the UI on the device.
//
// A Bridge owns one serial.Device for its whole life. A single pump
// goroutine is the only code that touches the device; the UI talks to it
// through two bounded queues and an atomic run flag.
package bridge

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"serialtool/pkg/logger"
	"serialtool/pkg/serial"
)

var (
	// ErrClosed is returned by Send once Close has been called
	ErrClosed = errors.New("bridge closed")
	// ErrBusy is returned by Send when the outbound queue stayed full
	// for the whole send timeout
	ErrBusy = errors.New("link busy")
	// ErrLinkLost wraps any device failure that ended the session
	ErrLinkLost = errors.New("link lost")
	// ErrShortWrite is the cause when the device accepted fewer bytes
	// than requested
	ErrShortWrite = errors.New("short write")
)

const closeTimeout = 2 * time.Second

// Options tunes a Bridge. Zero fields take the defaults.
type Options struct {
	QueueSize      int
	SendTimeout    time.Duration
	IdleDelay      time.Duration
	ReadBufferSize int
	Logger         *slog.Logger
}

// DefaultOptions returns the default bridge options
func DefaultOptions() Options {
	return Options{
		QueueSize:      1024,
		SendTimeout:    100 * time.Millisecond,
		IdleDelay:      5 * time.Millisecond,
		ReadBufferSize: 4096,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.QueueSize <= 0 {
		o.QueueSize = d.QueueSize
	}
	if o.SendTimeout <= 0 {
		o.SendTimeout = d.SendTimeout
	}
	if o.IdleDelay <= 0 {
		o.IdleDelay = d.IdleDelay
	}
	if o.ReadBufferSize <= 0 {
		o.ReadBufferSize = d.ReadBufferSize
	}
	if o.Logger == nil {
		o.Logger = logger.Get()
	}
	return o
}

// State is the lifecycle state of a Bridge
type State int

const (
	StateOpen State = iota
	StateClosed
	StateFailed
)

// String returns the string representation of State
func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Stats holds traffic counters
type Stats struct {
	BytesSent    int64
	BytesRecv    int64
	MessagesSent int64
	MessagesRecv int64
}

// Bridge connects one serial device to the session
type Bridge struct {
	device   serial.Device
	inbound  chan []byte
	outbound chan []byte
	running  atomic.Bool
	done     chan struct{}
	opts     Options
	log      *slog.Logger

	mu    sync.Mutex
	state State
	err   error

	closeOnce sync.Once

	// beforeEnqueue runs between the state check and the enqueue in Send
	beforeEnqueue func()

	bytesSent    atomic.Int64
	bytesRecv    atomic.Int64
	messagesSent atomic.Int64
	messagesRecv atomic.Int64
}

// Open takes ownership of dev and starts the pump. It never blocks.
func Open(dev serial.Device, opts Options) *Bridge {
	opts = opts.withDefaults()

	b := &Bridge{
		device:   dev,
		inbound:  make(chan []byte, opts.QueueSize),
		outbound: make(chan []byte, opts.QueueSize),
		done:     make(chan struct{}),
		opts:     opts,
		log:      opts.Logger.With("component", "bridge"),
		state:    StateOpen,
	}
	b.running.Store(true)

	go b.pump()

	b.log.Debug("bridge opened", "queue_size", opts.QueueSize)
	return b
}

// Send queues p for transmission. It waits at most the send timeout for
// queue space and then reports ErrBusy; p is never partially queued.
func (b *Bridge) Send(p []byte) error {
	if err := b.checkOpen(); err != nil {
		return err
	}
	if len(p) == 0 {
		return nil
	}

	msg := append([]byte(nil), p...)
	if b.beforeEnqueue != nil {
		b.beforeEnqueue()
	}

	select {
	case b.outbound <- msg:
		return b.checkQueued()
	default:
	}

	timer := time.NewTimer(b.opts.SendTimeout)
	defer timer.Stop()

	select {
	case b.outbound <- msg:
		return b.checkQueued()
	case <-b.done:
		if err := b.checkOpen(); err != nil {
			return err
		}
		return ErrClosed
	case <-timer.C:
		b.log.Warn("outbound queue full", "pending", len(b.outbound))
		return ErrBusy
	}
}

// TryReceive returns the next inbound message without waiting.
// It returns (nil, nil) when nothing is ready. After a device failure it
// returns the link error once all delivered messages have been drained.
func (b *Bridge) TryReceive() ([]byte, error) {
	select {
	case msg := <-b.inbound:
		return msg, nil
	default:
	}

	b.mu.Lock()
	state, err := b.state, b.err
	b.mu.Unlock()

	if state != StateFailed {
		return nil, nil
	}

	// The pump pushes before it records the failure, so look once more.
	select {
	case msg := <-b.inbound:
		return msg, nil
	default:
		return nil, err
	}
}

// Close stops the pump and waits for it to release the device.
// It is safe to call more than once.
func (b *Bridge) Close() error {
	var err error
	b.closeOnce.Do(func() {
		b.mu.Lock()
		b.state = StateClosed
		b.mu.Unlock()

		b.running.Store(false)

		select {
		case <-b.done:
			b.log.Debug("bridge closed")
		case <-time.After(closeTimeout):
			err = fmt.Errorf("pump did not stop within %v", closeTimeout)
			b.log.Error("bridge close timed out", "timeout", closeTimeout)
		}
	})
	return err
}

// Done is closed once the pump has exited and the device is released
func (b *Bridge) Done() <-chan struct{} {
	return b.done
}

// State returns the current lifecycle state
func (b *Bridge) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Err returns the link failure, if any
func (b *Bridge) Err() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.err
}

// Stats returns a snapshot of the traffic counters
func (b *Bridge) Stats() Stats {
	return Stats{
		BytesSent:    b.bytesSent.Load(),
		BytesRecv:    b.bytesRecv.Load(),
		MessagesSent: b.messagesSent.Load(),
		MessagesRecv: b.messagesRecv.Load(),
	}
}

func (b *Bridge) checkOpen() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return ErrClosed
	case StateFailed:
		return b.err
	}
	return nil
}

// checkQueued runs after a message entered the outbound queue. A pump that
// failed or stopped meanwhile never writes it, so the link error wins.
func (b *Bridge) checkQueued() error {
	if err := b.checkOpen(); err != nil {
		return err
	}
	select {
	case <-b.done:
		return ErrClosed
	default:
		return nil
	}
}

func (b *Bridge) fail(cause error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.err == nil {
		b.err = fmt.Errorf("%w: %w", ErrLinkLost, cause)
	}
	if b.state == StateOpen {
		b.state = StateFailed
	}
	b.log.Error("link failed", "error", cause)
}
