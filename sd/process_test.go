package sd

import (
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	envTestChild  = "SD_TEST_CHILD"
	childListener = "sdtest"
)

// A test binary started with envTestChild set serves as the child of
// StartProcess instead of running the tests.
func TestMain(m *testing.M) {
	if os.Getenv(envTestChild) != "" {
		os.Exit(runChild())
	}
	os.Exit(m.Run())
}

// runChild accepts one connection on the inherited listener and reports
// what it inherited.
func runChild() int {
	l, name, err := InheritNamedListener(childListener, IsTCPListener(nil))
	if err != nil || l == nil {
		return 3
	}
	defer l.Close()
	l.(*net.TCPListener).SetDeadline(time.Now().Add(10 * time.Second))
	conn, err := l.Accept()
	if err != nil {
		return 4
	}
	defer conn.Close()
	wd, _ := os.Getwd()
	fmt.Fprintf(conn, "name=%s detached=%t wd=%s\n", name, Detached(), wd)
	return 0
}

// asRelativeBinary makes os.Args[0] a path relative to the working directory.
func asRelativeBinary(t *testing.T) {
	t.Helper()
	exe, err := os.Executable()
	require.NoError(t, err)
	wd, err := os.Getwd()
	require.NoError(t, err)
	args := os.Args

	require.NoError(t, os.Chdir(filepath.Dir(exe)))
	os.Args = append([]string{"./" + filepath.Base(exe)}, args[1:]...)
	t.Cleanup(func() {
		os.Args = args
		os.Chdir(wd)
	})
}

func TestStartProcessDetachedByRelativePath(t *testing.T) {
	asRelativeBinary(t)

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, Export(childListener, l))

	pid, err := StartProcess(Detach(), WithEnv(envTestChild+"=1"))
	// only the child keeps the socket
	assert.NoError(t, Forget(l))
	l.Close()
	require.NoError(t, err)
	assert.NotZero(t, pid)
	assert.NotEqual(t, os.Getpid(), pid)

	conn, err := net.DialTimeout("tcp", addr, 5*time.Second)
	require.NoError(t, err)
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(10 * time.Second))
	reply, err := io.ReadAll(conn)
	require.NoError(t, err)
	assert.Equal(t, "name=sdtest detached=true wd=/", strings.TrimSpace(string(reply)))
}

func TestExecutableIsAbsolute(t *testing.T) {
	asRelativeBinary(t)
	exe, err := executable()
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(exe), exe)
}
