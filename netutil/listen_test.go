package netutil

import (
	"fmt"
	"io"
	"net"
	"syscall"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/nettest"
)

func TestListenTCP(t *testing.T) {
	l, err := ListenTCP(&net.TCPAddr{IP: net.IPv4(127, 0, 0, 1)}, 1)
	require.NoError(t, err)
	defer l.Close()

	addr := l.Addr().(*net.TCPAddr)
	assert.NotZero(t, addr.Port)

	go func() {
		c, err := net.Dial("tcp", addr.String())
		if err == nil {
			c.Write([]byte("x"))
			c.Close()
		}
	}()

	require.NoError(t, l.SetDeadline(time.Now().Add(5*time.Second)))
	c, err := l.Accept()
	require.NoError(t, err)
	defer c.Close()
	b, err := io.ReadAll(c)
	require.NoError(t, err)
	assert.Equal(t, "x", string(b))
}

func TestListenTCPAddrInUse(t *testing.T) {
	l, err := nettest.NewLocalListener("tcp4")
	require.NoError(t, err)
	defer l.Close()

	_, err = ListenTCP(l.Addr().(*net.TCPAddr), 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, syscall.EADDRINUSE), "got %v", err)
}

func TestIsExpectedCloseError(t *testing.T) {
	for _, c := range []struct {
		err  error
		want bool
	}{
		{nil, false},
		{io.EOF, true},
		{net.ErrClosed, true},
		{fmt.Errorf("write: %w", syscall.EPIPE), true},
		{errors.Wrap(syscall.ECONNRESET, "read"), true},
		{syscall.EACCES, false},
	} {
		assert.Equal(t, c.want, IsExpectedCloseError(c.err), "%v", c.err)
	}
}
