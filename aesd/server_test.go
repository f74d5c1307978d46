package aesd

import (
	"context"
	"io"
	"net"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/nettest"

	"github.com/One-com/aesdsocket/log"
	"github.com/One-com/aesdsocket/log/syslog"
	"github.com/One-com/aesdsocket/metric"
	"github.com/One-com/aesdsocket/store"
)

type fixedListener struct{ l net.Listener }

func (f fixedListener) Listen() ([]net.Listener, error) { return []net.Listener{f.l}, nil }

type testServer struct {
	*Server
	addr  string
	store *store.File
	stop  func() error
}

func quietLogger() *log.Logger {
	return log.NewLogger(syslog.LOG_DEBUG, log.NewMinFormatter(io.Discard))
}

func startServer(t *testing.T, tune func(*Server)) *testServer {
	t.Helper()
	l, err := nettest.NewLocalListener("tcp")
	require.NoError(t, err)

	st := store.New(filepath.Join(t.TempDir(), "aesdsocketdata"))
	srv := &Server{
		Listeners: fixedListener{l},
		Store:     st,
		Logger:    quietLogger(),
		Stats:     NewStats(metric.NewClient(nil)),
	}
	if tune != nil {
		tune(srv)
	}
	require.NoError(t, srv.Listen())

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ctx) }()

	ts := &testServer{Server: srv, addr: l.Addr().String(), store: st}
	var (
		once     sync.Once
		serveErr error
	)
	ts.stop = func() error {
		once.Do(func() {
			cancel()
			select {
			case serveErr = <-errc:
			case <-time.After(5 * time.Second):
				t.Error("Serve did not return after cancel")
			}
		})
		return serveErr
	}
	t.Cleanup(func() { ts.stop() })
	return ts
}

// exchange sends the payloads as separate writes and returns everything the
// server sent before closing. Without a terminator the write side is shut
// down so the server sees end of stream.
func exchange(t *testing.T, addr string, payloads ...string) string {
	t.Helper()
	c, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer c.Close()
	require.NoError(t, c.SetDeadline(time.Now().Add(5*time.Second)))

	var terminated bool
	for i, p := range payloads {
		if i > 0 {
			time.Sleep(20 * time.Millisecond)
		}
		_, err := c.Write([]byte(p))
		require.NoError(t, err)
		terminated = terminated || strings.Contains(p, "\n")
	}
	if !terminated {
		require.NoError(t, c.(*net.TCPConn).CloseWrite())
	}
	b, err := io.ReadAll(c)
	require.NoError(t, err)
	return string(b)
}

func storeContent(t *testing.T, st *store.File) string {
	t.Helper()
	var sb strings.Builder
	_, err := st.WriteTo(&sb)
	require.NoError(t, err)
	return sb.String()
}

func TestHelloEcho(t *testing.T) {
	ts := startServer(t, nil)
	assert.Equal(t, "hello\n", exchange(t, ts.addr, "hello\n"))
	assert.Equal(t, "hello\n", storeContent(t, ts.store))
}

func TestCumulativeEchoAcrossConnections(t *testing.T) {
	ts := startServer(t, nil)
	assert.Equal(t, "", exchange(t, ts.addr, "abc"))
	assert.Equal(t, "abcdef\n", exchange(t, ts.addr, "def\n"))
}

func TestNoEchoWithoutTerminator(t *testing.T) {
	ts := startServer(t, nil)
	for _, p := range []string{"one", "two", "three"} {
		assert.Equal(t, "", exchange(t, ts.addr, p))
	}
	assert.Equal(t, "onetwothree", storeContent(t, ts.store))
}

func TestSingleEchoPerConnection(t *testing.T) {
	ts := startServer(t, nil)
	assert.Equal(t, "a\nb\n", exchange(t, ts.addr, "a\nb\n"))
	assert.Equal(t, "a\nb\n", storeContent(t, ts.store))
}

func TestBytesAfterTerminatorAreStored(t *testing.T) {
	ts := startServer(t, nil)
	assert.Equal(t, "hi\nthere", exchange(t, ts.addr, "hi\nthere"))
	assert.Equal(t, "hi\nthere\n", exchange(t, ts.addr, "\n"))
}

func TestTerminatorInLaterChunk(t *testing.T) {
	ts := startServer(t, func(s *Server) { s.BufferSize = 4 })
	assert.Equal(t, "abcdefgh\n", exchange(t, ts.addr, "abcd", "efgh", "\n"))
}

func TestLargeMessage(t *testing.T) {
	ts := startServer(t, nil)
	msg := strings.Repeat("0123456789", 500) + "\n"
	assert.Equal(t, msg, exchange(t, ts.addr, msg))
}

func TestEmptyConnectionKeepsServing(t *testing.T) {
	ts := startServer(t, nil)

	c, err := net.Dial("tcp", ts.addr)
	require.NoError(t, err)
	require.NoError(t, c.Close())

	assert.Equal(t, "x\n", exchange(t, ts.addr, "x\n"))
}

func TestCancelWhileAccepting(t *testing.T) {
	ts := startServer(t, nil)
	require.NoError(t, ts.stop())

	_, err := net.DialTimeout("tcp", ts.addr, time.Second)
	assert.Error(t, err, "listener must be closed")
}

func TestCancelWhileReceiving(t *testing.T) {
	ts := startServer(t, nil)

	c, err := net.Dial("tcp", ts.addr)
	require.NoError(t, err)
	defer c.Close()
	_, err = c.Write([]byte("abc"))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		n, _ := ts.store.Size()
		return n == 3
	}, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, ts.stop())

	require.NoError(t, c.SetReadDeadline(time.Now().Add(5*time.Second)))
	b, err := io.ReadAll(c)
	require.NoError(t, err)
	assert.Empty(t, b, "no echo without terminator")
}

func TestIdleTimeoutClosesSession(t *testing.T) {
	ts := startServer(t, func(s *Server) { s.IdleTimeout = 50 * time.Millisecond })

	c, err := net.Dial("tcp", ts.addr)
	require.NoError(t, err)
	defer c.Close()
	require.NoError(t, c.SetReadDeadline(time.Now().Add(5*time.Second)))
	b, err := io.ReadAll(c)
	require.NoError(t, err)
	assert.Empty(t, b)

	assert.Equal(t, "ok\n", exchange(t, ts.addr, "ok\n"))
}

type failingListener struct {
	net.Listener
}

func (failingListener) Accept() (net.Conn, error) { return nil, io.ErrUnexpectedEOF }

func TestAcceptFailureIsFatal(t *testing.T) {
	l, err := nettest.NewLocalListener("tcp")
	require.NoError(t, err)

	srv := &Server{
		Listeners: fixedListener{failingListener{l}},
		Store:     store.New(filepath.Join(t.TempDir(), "data")),
		Logger:    quietLogger(),
	}
	require.NoError(t, srv.Listen())
	err = srv.Serve(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestServeBeforeListen(t *testing.T) {
	srv := &Server{Store: store.New("unused")}
	assert.Error(t, srv.Serve(context.Background()))
	assert.Error(t, srv.Listen())
	assert.Equal(t, "aesdsocket", srv.Description())
}
