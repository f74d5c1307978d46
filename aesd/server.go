package aesd

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/One-com/aesdsocket/log"
	"github.com/One-com/aesdsocket/metric"
	"github.com/One-com/aesdsocket/netutil"
)

// Server accepts connections serially and runs a Session for each.
// It implements daemon.ListeningServer.
type Server struct {
	// Listeners provides the listening socket. It must yield exactly one listener.
	Listeners netutil.StreamListener

	Store       Store
	Framer      Framer
	BufferSize  int
	IdleTimeout time.Duration

	Logger *log.Logger
	Stats  *Stats

	mu       sync.Mutex
	listener net.Listener
}

func (s *Server) logger() *log.Logger {
	if s.Logger == nil {
		return log.Default()
	}
	return s.Logger
}

// Listen obtains the listening socket.
func (s *Server) Listen() error {
	if s.Listeners == nil {
		return errors.New("no listener configured")
	}
	ls, err := s.Listeners.Listen()
	if err != nil {
		return errors.Wrap(err, "listen")
	}
	if len(ls) != 1 {
		for _, l := range ls {
			l.Close()
		}
		return errors.Errorf("need exactly one listener, got %d", len(ls))
	}
	s.mu.Lock()
	s.listener = ls[0]
	s.mu.Unlock()
	return nil
}

// Addr is the address of the listening socket, nil before Listen.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Description is used by the daemon package when logging.
func (s *Server) Description() string {
	if a := s.Addr(); a != nil {
		return "aesdsocket " + a.String()
	}
	return "aesdsocket"
}

// Serve accepts connections until ctx is cancelled or Accept fails.
// Sessions run one at a time on the calling go-routine. Cancellation
// returns nil. An Accept failure is returned and ends serving.
func (s *Server) Serve(ctx context.Context) error {
	s.mu.Lock()
	l := s.listener
	s.mu.Unlock()
	if l == nil {
		return errors.New("Serve called before Listen")
	}
	if s.Store == nil {
		return errors.New("no store configured")
	}
	if s.Stats == nil {
		s.Stats = NewStats(metric.Default())
	}
	if s.Framer.Terminator == 0 {
		s.Framer.Terminator = DefaultTerminator
	}

	// Closing the listener unblocks Accept.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			l.Close()
		case <-stop:
		}
	}()
	defer l.Close()

	for {
		if ctx.Err() != nil {
			return nil
		}
		conn, err := l.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return errors.Wrap(err, "accept")
		}
		s.handle(ctx, conn)
	}
}

func (s *Server) handle(ctx context.Context, conn net.Conn) {
	sess := s.newSession(conn)
	s.Stats.Connections.Inc(1)
	s.logger().INFO("Accepted connection from " + sess.peer)
	if err := sess.Run(ctx); err != nil {
		s.Stats.SessionErrors.Inc(1)
		if netutil.IsExpectedCloseError(err) {
			sess.logger.INFO("Peer went away", "err", err)
		} else {
			sess.logger.ERROR("Session failed", "err", err)
		}
	}
	s.logger().INFO("Closed connection from " + sess.peer)
}
