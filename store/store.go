// Package store is the append-only file all aesdsocket connections share.
//
// The file is opened for every operation and closed right after it, so no
// descriptor is held between sessions.
package store

import (
	"io"
	"os"

	"github.com/pkg/errors"
)

// DefaultPath is where aesdsocket keeps received data.
const DefaultPath = "/var/tmp/aesdsocketdata"

// ChunkSize is the read size used when streaming the store out.
const ChunkSize = 1024

// File is an append-only byte store at a fixed path.
// It is not safe for concurrent use.
type File struct {
	path string
	mode os.FileMode
	sync bool
}

// Option configures a File.
type Option func(*File)

// Mode sets the permissions used when the file is created.
func Mode(m os.FileMode) Option {
	return func(f *File) { f.mode = m }
}

// Sync makes Append fsync before closing.
func Sync(on bool) Option {
	return func(f *File) { f.sync = on }
}

// New returns a store at path. Nothing is created until the first Append.
func New(path string, opts ...Option) *File {
	f := &File{path: path, mode: 0644}
	for _, o := range opts {
		o(f)
	}
	return f
}

// Path returns the file path of the store.
func (f *File) Path() string { return f.path }

// Append writes p to the end of the store, creating it if absent.
func (f *File) Append(p []byte) (err error) {
	fd, err := os.OpenFile(f.path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, f.mode)
	if err != nil {
		return errors.Wrap(err, "open store for append")
	}
	defer func() {
		if cerr := fd.Close(); err == nil && cerr != nil {
			err = errors.Wrap(cerr, "close store")
		}
	}()
	if _, err = fd.Write(p); err != nil {
		return errors.Wrap(err, "append to store")
	}
	if f.sync {
		if err = fd.Sync(); err != nil {
			return errors.Wrap(err, "sync store")
		}
	}
	return nil
}

// WriteTo streams the whole store from offset zero to w in ChunkSize writes.
// A store which was never appended to is empty.
func (f *File) WriteTo(w io.Writer) (n int64, err error) {
	fd, err := os.Open(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, errors.Wrap(err, "open store for reading")
	}
	defer fd.Close()

	buf := make([]byte, ChunkSize)
	for {
		nr, rerr := fd.Read(buf)
		if nr > 0 {
			nw, werr := w.Write(buf[:nr])
			n += int64(nw)
			if werr != nil {
				return n, errors.Wrap(werr, "write store contents")
			}
			if nw != nr {
				return n, errors.Wrap(io.ErrShortWrite, "write store contents")
			}
		}
		if rerr == io.EOF {
			return n, nil
		}
		if rerr != nil {
			return n, errors.Wrap(rerr, "read store")
		}
	}
}

// Size returns the current length of the store, 0 if it does not exist.
func (f *File) Size() (int64, error) {
	fi, err := os.Stat(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, errors.Wrap(err, "stat store")
	}
	return fi.Size(), nil
}

// Remove deletes the store. A store which does not exist is not an error.
func (f *File) Remove() error {
	err := os.Remove(f.path)
	if err == nil || errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return errors.Wrap(err, "remove store")
}
