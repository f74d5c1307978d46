package sd

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"github.com/pkg/errors"
)

// EnvDetached is set in the environment of a process started with Detach.
const EnvDetached = "AESD_DETACHED"

var startProcMu sync.Mutex

// ProcOption modifies how StartProcess starts the new process.
type ProcOption func(*procConfig)

type procConfig struct {
	dir      string
	detach   bool
	extraEnv []string
}

// Detach starts the process in a new session with standard streams on /dev/null
// and working directory "/".
func Detach() ProcOption {
	return func(c *procConfig) {
		c.detach = true
		c.dir = "/"
	}
}

// WithEnv adds variables to the environment of the new process.
func WithEnv(env ...string) ProcOption {
	return func(c *procConfig) {
		c.extraEnv = append(c.extraEnv, env...)
	}
}

// StartProcess starts a new copy of the running binary with the same arguments,
// passing it all exported files via LISTEN_FDS/LISTEN_FDNAMES. It returns the pid
// of the new process.
func StartProcess(opts ...ProcOption) (int, error) {
	startProcMu.Lock()
	defer startProcMu.Unlock()

	cfg := &procConfig{}
	cfg.dir, _ = os.Getwd()
	for _, o := range opts {
		o(cfg)
	}

	argv0, err := executable()
	if err != nil {
		return 0, err
	}

	var env []string
	for _, v := range os.Environ() {
		if strings.HasPrefix(v, envListenFds+"=") ||
			strings.HasPrefix(v, envListenFdNames+"=") ||
			strings.HasPrefix(v, envListenPid+"=") {
			continue
		}
		env = append(env, v)
	}
	env = append(env, cfg.extraEnv...)

	files := fds.exported()
	names := make([]string, len(files))
	for i, f := range files {
		names[i] = f.name
	}
	env = append(env,
		fmt.Sprintf("%s=%d", envListenFds, len(files)),
		envListenFdNames+"="+strings.Join(names, ":"))

	attr := &os.ProcAttr{Dir: cfg.dir}
	stdio := []*os.File{os.Stdin, os.Stdout, os.Stderr}
	if cfg.detach {
		null, err := os.OpenFile(os.DevNull, os.O_RDWR, 0)
		if err != nil {
			return 0, errors.Wrap(err, "open "+os.DevNull)
		}
		defer null.Close()
		stdio = []*os.File{null, null, null}
		attr.Sys = &syscall.SysProcAttr{Setsid: true}
		env = append(env, EnvDetached+"=1")
	}
	attr.Env = env
	attr.Files = stdio
	for _, f := range files {
		attr.Files = append(attr.Files, f.File)
	}

	process, err := os.StartProcess(argv0, os.Args, attr)
	if err != nil {
		return 0, errors.Wrap(err, "start process")
	}
	pid := process.Pid
	process.Release()
	return pid, nil
}

// executable returns an absolute path to the running binary, so the new
// process can be started from another working directory.
func executable() (string, error) {
	if exe, err := os.Executable(); err == nil {
		return exe, nil
	}
	argv0, err := exec.LookPath(os.Args[0])
	if err != nil {
		return "", errors.Wrap(err, "locate binary")
	}
	abs, err := filepath.Abs(argv0)
	return abs, errors.Wrap(err, "locate binary")
}

// Detached reports whether this process was started with Detach.
func Detached() bool {
	return os.Getenv(EnvDetached) != ""
}
