package sd

import (
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

const (
	envListenFds       = "LISTEN_FDS"
	envListenPid       = "LISTEN_PID"
	envListenFdNames   = "LISTEN_FDNAMES"
	envIgnoreListenPid = "LISTEN_PID_IGNORE" // for testing
	listenFdsStart     = 3
)

// ErrNotExported is returned by Forget for objects the package does not know.
var ErrNotExported = errors.New("file descriptor not exported")

var fds *state

// filer is implemented by *net.TCPListener and friends. File() returns a dup().
type filer interface {
	File() (*os.File, error)
}

type namedFile struct {
	*os.File
	name string // LISTEN_FDNAMES label, not File.Name()
}

type state struct {
	mu   sync.Mutex
	once sync.Once

	err   error
	count int
	names []string

	available []*namedFile
	exports   map[interface{}]*namedFile
}

func newState() *state {
	return &state{exports: make(map[interface{}]*namedFile)}
}

func init() {
	fds = newState()
	fds.inherit()
}

func (s *state) exported() []*namedFile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exportedLocked()
}

func (s *state) exportedLocked() []*namedFile {
	ls := make([]*namedFile, 0, len(s.exports))
	for _, f := range s.exports {
		if f != nil {
			ls = append(ls, f)
		}
	}
	return ls
}

func (s *state) inherit() error {
	s.once.Do(func() {
		defer os.Unsetenv(envListenPid)
		defer os.Unsetenv(envListenFds)
		defer os.Unsetenv(envListenFdNames)

		nstr := os.Getenv(envListenFds)
		if nstr == "" {
			return
		}

		// A re-executed child cannot have LISTEN_PID set by its parent.
		if pstr := os.Getenv(envListenPid); pstr != "" {
			pid, err := strconv.Atoi(pstr)
			if err != nil {
				s.err = errors.Wrapf(err, "invalid %s", envListenPid)
				return
			}
			if pid != os.Getpid() && os.Getenv(envIgnoreListenPid) == "" {
				return
			}
		}

		count, err := strconv.Atoi(nstr)
		if err != nil {
			s.err = errors.Errorf("invalid count value: %s=%s", envListenFds, nstr)
			return
		}

		var names []string
		if lstr := os.Getenv(envListenFdNames); lstr != "" {
			names = strings.Split(lstr, ":")
		}

		for i := 0; i < count; i++ {
			fd := listenFdsStart + i
			var nm string
			if i < len(names) {
				nm = names[i]
			}
			unix.CloseOnExec(fd)
			s.names = append(s.names, nm)
			s.available = append(s.available, &namedFile{name: nm, File: os.NewFile(uintptr(fd), "fd:"+nm)})
		}
		s.count = count
	})
	return s.err
}

// Cleanup closes all inherited file descriptors which have not been claimed.
func Cleanup() {
	fds.mu.Lock()
	defer fds.mu.Unlock()
	fds.closeAvailable()
}

func (s *state) closeAvailable() {
	for _, f := range s.available {
		if f != nil {
			f.Close()
		}
	}
	s.available = nil
}

// Reset closes unclaimed inherited files and makes the exported set
// available again as if it had been inherited.
func Reset() {
	s := fds
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closeAvailable()
	s.available = s.exportedLocked()
	s.names = nil
	for _, f := range s.available {
		s.names = append(s.names, f.name)
	}
	s.count = len(s.available)
	s.err = nil
	s.exports = make(map[interface{}]*namedFile)
}

// Forget closes the exported copy of either the object given to Export
// or all exported files with the given name.
func Forget(f interface{}) error {
	s := fds
	s.mu.Lock()
	defer s.mu.Unlock()

	if name, ok := f.(string); ok {
		for k, file := range s.exports {
			if file != nil && file.name == name {
				file.Close()
				delete(s.exports, k)
			}
		}
		return nil
	}
	file, ok := s.exports[f]
	if !ok {
		return ErrNotExported
	}
	delete(s.exports, f)
	return file.Close()
}

// Export records a dup() of the file descriptor of f under the given name.
// Closing f does not close the managed copy.
func Export(sdname string, f interface{}) (err error) {
	var file *os.File
	switch tf := f.(type) {
	case *os.File:
		var newfd int
		newfd, err = unix.FcntlInt(tf.Fd(), unix.F_DUPFD_CLOEXEC, 0)
		if err != nil {
			return errors.Wrap(err, "dup")
		}
		file = os.NewFile(uintptr(newfd), tf.Name())
	case filer:
		if file, err = tf.File(); err != nil {
			return errors.Wrap(err, "dup")
		}
		// File() leaves the socket in blocking mode.
		if err = unix.SetNonblock(int(file.Fd()), true); err != nil {
			file.Close()
			return errors.Wrap(err, "set nonblock")
		}
	default:
		return errors.Errorf("cannot export %T", f)
	}

	s := fds
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, already := s.exports[f]; already {
		file.Close()
		return errors.New("file descriptor already exported")
	}
	s.exports[f] = &namedFile{File: file, name: sdname}
	return nil
}

// FileWith claims an available file with the given name (any name if "")
// passing all tests. A nil file means none matched.
func FileWith(sdname string, tests ...FileTest) (rfile *os.File, rname string, err error) {
	s := fds
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, nf := range s.available {
		if nf == nil {
			continue
		}
		if sdname != "" && nf.name != sdname {
			continue
		}
		var ok bool
		if ok, err = nf.isMatching(tests...); err != nil {
			return
		}
		if ok {
			s.available[i] = nil
			return nf.File, nf.name, nil
		}
	}
	return
}

// ListenFdsWithNames returns the number and names of inherited file descriptors
// and any error seen while inheriting them.
func ListenFdsWithNames() (count int, names []string, err error) {
	fds.mu.Lock()
	defer fds.mu.Unlock()
	return fds.count, fds.names, fds.err
}
