package aesd

import (
	"context"
	"io"
	"net"
	"time"

	"github.com/pkg/errors"

	"github.com/One-com/aesdsocket/log"
	"github.com/One-com/aesdsocket/netutil"
)

// DefaultBufferSize is the size of a single receive.
const DefaultBufferSize = 1024

// ErrIdleTimeout is returned by Session.Run when the peer sent nothing for the idle timeout.
var ErrIdleTimeout = errors.New("idle timeout")

// Store is what a session appends to and echoes from.
type Store interface {
	Append(p []byte) error
	WriteTo(w io.Writer) (int64, error)
}

// State of a Session.
type State int

const (
	Receiving State = iota
	Appending
	Scanning
	Echoing
	Closed
)

var stateNames = [...]string{"receiving", "appending", "scanning", "echoing", "closed"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Session handles one accepted connection until it is closed.
type Session struct {
	conn   net.Conn
	peer   string
	store  Store
	framer Framer
	buf    []byte
	idle   time.Duration
	logger *log.Logger
	stats  *Stats

	state       State
	terminated  bool // terminator seen
	received    int64
	echoedBytes int64
}

// newSession prepares a session for conn using the server's settings.
func (s *Server) newSession(conn net.Conn) *Session {
	size := s.BufferSize
	if size <= 0 {
		size = DefaultBufferSize
	}
	peer := conn.RemoteAddr().String()
	if ta, ok := conn.RemoteAddr().(*net.TCPAddr); ok {
		peer = ta.IP.String()
	}
	return &Session{
		conn:   conn,
		peer:   peer,
		store:  s.Store,
		framer: s.Framer,
		buf:    make([]byte, size),
		idle:   s.IdleTimeout,
		logger: s.logger().With("peer", peer),
		stats:  s.Stats,
	}
}

// State returns the state the session is in, Closed once Run returned.
func (s *Session) State() State { return s.state }

// Run drives the session to Closed. Cancelling ctx interrupts a blocked
// receive. An echo in progress is finished. The connection is closed once
// when Run returns.
func (s *Session) Run(ctx context.Context) (err error) {
	done := make(chan struct{})
	defer func() {
		close(done)
		s.close()
	}()
	go func() {
		select {
		case <-ctx.Done():
			s.conn.SetReadDeadline(time.Now())
		case <-done:
		}
	}()

	for {
		s.state = Receiving
		if s.idle > 0 {
			s.conn.SetReadDeadline(time.Now().Add(s.idle))
		}
		if ctx.Err() != nil {
			return nil
		}
		n, rerr := s.conn.Read(s.buf)
		if n > 0 {
			chunk := s.buf[:n]
			s.received += int64(n)
			s.stats.BytesReceived.Inc(int64(n))
			s.logger.DEBUG("Received", "bytes", n)

			s.state = Appending
			if err = s.store.Append(chunk); err != nil {
				return err
			}

			s.state = Scanning
			if !s.terminated && s.framer.Scan(chunk) >= 0 {
				s.terminated = true
				return s.echo()
			}
		}
		if rerr != nil {
			switch {
			case rerr == io.EOF:
				return nil
			case netutil.IsTimeout(rerr) && ctx.Err() != nil:
				return nil
			case netutil.IsTimeout(rerr):
				return ErrIdleTimeout
			}
			return errors.Wrap(rerr, "receive")
		}
	}
}

func (s *Session) echo() error {
	s.state = Echoing
	n, err := s.store.WriteTo(s.conn)
	s.echoedBytes = n
	s.stats.BytesEchoed.Inc(n)
	if err != nil {
		return errors.Wrap(err, "echo")
	}
	s.stats.Echoes.Inc(1)
	s.stats.StoreBytes.Set(n)
	s.logger.DEBUG("Echoed store", "bytes", n)
	return nil
}

func (s *Session) close() {
	s.state = Closed
	if err := s.conn.Close(); err != nil && !netutil.IsExpectedCloseError(err) {
		s.logger.WARN("Close failed", "err", err)
	}
}
