//go:build linux && integration

package serial

import (
	"errors"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/creack/pty"
	"github.com/stretchr/testify/require"
)

func TestListPorts(t *testing.T) {
	ports, err := ListPorts()
	require.NoError(t, err)
	t.Logf("Available ports: %v", ports)
}

func TestGetDetailedPortsList(t *testing.T) {
	portInfos, err := GetDetailedPortsList()
	require.NoError(t, err)

	for _, p := range portInfos {
		t.Logf("Port: %s, USB: %v, VID: %s, PID: %s, Serial: %s",
			p.Name, p.IsUSB, p.VID, p.PID, p.SerialNumber)
	}
}

func TestPort_OpenNonExistent(t *testing.T) {
	s := DefaultSettings()
	s.Port = "/dev/ttyDOESNOTEXIST"

	_, err := Open(s)
	require.Error(t, err)
	require.NotEmpty(t, Hint(err))
}

func TestPort_ReadWriteOverPty(t *testing.T) {
	master, slave, err := pty.Open()
	require.NoError(t, err)
	t.Cleanup(func() { master.Close(); slave.Close() })

	s := DefaultSettings()
	s.Port = slave.Name()
	port, err := Open(s)
	require.NoError(t, err)
	t.Cleanup(func() { port.Close() })

	buf := make([]byte, 64)
	_, err = port.Read(buf)
	require.True(t, errors.Is(err, ErrWouldBlock), "idle read should report ErrWouldBlock, got %v", err)

	_, err = master.Write([]byte("ping"))
	require.NoError(t, err)

	deadline := time.Now().Add(time.Second)
	var got []byte
	for len(got) < 4 && time.Now().Before(deadline) {
		n, err := port.Read(buf)
		if errors.Is(err, ErrWouldBlock) {
			continue
		}
		require.NoError(t, err)
		got = append(got, buf[:n]...)
	}
	require.Equal(t, "ping", string(got))

	n, err := port.Write([]byte("pong"))
	require.NoError(t, err)
	require.Equal(t, 4, n)

	n, err = master.Read(buf)
	require.NoError(t, err)
	require.Equal(t, "pong", string(buf[:n]))
}

// unprivilegedEnv marks the copy of the test binary that runs as nobody
const unprivilegedEnv = "SERIALTOOL_TEST_UNPRIVILEGED"

// nobody is the uid and gid the open is repeated under when tests run as root
const nobody = 65534

// TestPort_OpenUnprivileged opens a pty the way a normal user would. Root
// ignores the exclusive lock go.bug.st/serial puts on the tty, so as root the
// test reruns itself as nobody.
func TestPort_OpenUnprivileged(t *testing.T) {
	if os.Getenv(unprivilegedEnv) == "" && os.Geteuid() == 0 {
		rerunAsNobody(t, "TestPort_OpenUnprivileged")
		return
	}

	// Hardware flow also sets RTS and DTR, which a pty does not support.
	for _, flow := range []string{"none", "software"} {
		t.Run(flow, func(t *testing.T) {
			master, slave, err := pty.Open()
			require.NoError(t, err)
			t.Cleanup(func() { master.Close(); slave.Close() })

			s := DefaultSettings()
			s.Port = slave.Name()
			s.FlowControl = flow
			port, err := Open(s)
			require.NoError(t, err)
			require.NoError(t, port.Close())
		})
	}
}

// rerunAsNobody runs one test from a world-readable copy of the test binary
// under the nobody uid and fails t if it fails
func rerunAsNobody(t *testing.T, name string) {
	t.Helper()

	self, err := os.Executable()
	require.NoError(t, err)

	// t.TempDir nests under a 0700 directory nobody cannot enter
	dir, err := os.MkdirTemp("", "serialtool-test-")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })
	require.NoError(t, os.Chmod(dir, 0o755))
	bin := filepath.Join(dir, "serial.test")
	copyExecutable(t, self, bin)

	cmd := exec.Command(bin, "-test.run", "^"+name+"$", "-test.v")
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), unprivilegedEnv+"=1")
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Credential: &syscall.Credential{Uid: nobody, Gid: nobody},
	}

	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "unprivileged run failed:\n%s", out)
}

func copyExecutable(t *testing.T, src, dst string) {
	t.Helper()

	in, err := os.Open(src)
	require.NoError(t, err)
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o755)
	require.NoError(t, err)
	_, err = io.Copy(out, in)
	require.NoError(t, err)
	require.NoError(t, out.Close())
}
