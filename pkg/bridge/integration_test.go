//go:build linux && integration

package bridge

import (
	"testing"
	"time"

	"github.com/creack/pty"
	"github.com/stretchr/testify/require"

	"serialtool/pkg/serial"
)

func TestBridge_OverPty(t *testing.T) {
	master, slave, err := pty.Open()
	require.NoError(t, err)
	t.Cleanup(func() { master.Close(); slave.Close() })

	s := serial.DefaultSettings()
	s.Port = slave.Name()
	port, err := serial.Open(s)
	require.NoError(t, err)

	b := Open(port, DefaultOptions())
	t.Cleanup(func() { b.Close() })

	_, err = master.Write([]byte("hello"))
	require.NoError(t, err)

	var got []byte
	deadline := time.Now().Add(2 * time.Second)
	for len(got) < 5 && time.Now().Before(deadline) {
		msg, err := b.TryReceive()
		require.NoError(t, err)
		if msg == nil {
			time.Sleep(5 * time.Millisecond)
			continue
		}
		got = append(got, msg...)
	}
	require.Equal(t, "hello", string(got))

	require.NoError(t, b.Send([]byte("world")))

	buf := make([]byte, 64)
	n, err := master.Read(buf)
	require.NoError(t, err)
	require.Equal(t, "world", string(buf[:n]))
}
