package bridge

import (
	"errors"
	"fmt"
	"time"

	"serialtool/pkg/serial"
)

// pump is the only goroutine that uses the device.
// Each iteration tries one read and one write; it idles when neither
// moved any bytes.
func (b *Bridge) pump() {
	defer close(b.done)
	defer b.release()

	buf := make([]byte, b.opts.ReadBufferSize)
	var pending []byte

	for b.running.Load() {
		active := false

		n, err := b.device.Read(buf)
		if n > 0 {
			active = true
			if !b.deliver(buf[:n]) {
				return
			}
		}
		if err != nil && !errors.Is(err, serial.ErrWouldBlock) {
			b.fail(fmt.Errorf("read: %w", err))
			return
		}

		if !b.running.Load() {
			return
		}

		if pending == nil {
			select {
			case pending = <-b.outbound:
			default:
			}
		}
		if pending != nil {
			written, err := b.write(pending)
			if err != nil {
				b.fail(err)
				return
			}
			if written {
				active = true
				pending = nil
			}
		}

		if !active {
			time.Sleep(b.opts.IdleDelay)
		}
	}
}

// deliver pushes one read as one inbound message. While the queue is full
// it waits for the session to drain it; it gives up only when stopped.
func (b *Bridge) deliver(data []byte) bool {
	msg := append([]byte(nil), data...)

	for {
		select {
		case b.inbound <- msg:
			b.bytesRecv.Add(int64(len(msg)))
			b.messagesRecv.Add(1)
			return true
		default:
		}

		if !b.running.Load() {
			b.log.Warn("dropping inbound data on shutdown", "bytes", len(msg))
			return false
		}
		time.Sleep(b.opts.IdleDelay)
	}
}

// write sends msg in a single device write. It reports false without an
// error when the device would block, so the caller retries the same message.
func (b *Bridge) write(msg []byte) (bool, error) {
	n, err := b.device.Write(msg)
	if errors.Is(err, serial.ErrWouldBlock) && n == 0 {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("write: %w", err)
	}
	if n < len(msg) {
		return false, fmt.Errorf("%w: wrote %d of %d bytes", ErrShortWrite, n, len(msg))
	}

	b.bytesSent.Add(int64(n))
	b.messagesSent.Add(1)
	return true, nil
}

func (b *Bridge) release() {
	if dropped := len(b.outbound); dropped > 0 {
		b.log.Warn("discarding unsent messages", "count", dropped)
	}
	if err := b.device.Close(); err != nil {
		b.log.Warn("device close failed", "error", err)
	}
}
