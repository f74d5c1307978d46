// Package statsd is a metric.Sink writing the statsd line protocol.
package statsd

import (
	"io"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/One-com/aesdsocket/metric"
)

// Option configures a Sink.
type Option func(*Sink) error

// Sink buffers statsd lines and writes them in packets of at most the buffer size.
type Sink struct {
	out    io.Writer
	max    int
	prefix string
	buf    []byte
}

// Buffer sets the maximum payload of a single write (UDP datagram).
func Buffer(size int) Option {
	return func(s *Sink) error {
		s.max = size
		return nil
	}
}

// Prefix is prepended with "prefix." to all metric names. A trailing dot is kept.
func Prefix(pfx string) Option {
	return func(s *Sink) error {
		if pfx != "" && pfx[len(pfx)-1] != '.' {
			pfx += "."
		}
		s.prefix = pfx
		return nil
	}
}

// Peer is the address of the statsd UDP server
func Peer(addr string) Option {
	return func(s *Sink) error {
		conn, err := net.DialTimeout("udp", addr, time.Second)
		if err != nil {
			return errors.Wrapf(err, "statsd peer %s", addr)
		}
		s.out = conn
		return nil
	}
}

// Output sets an general io.Writer as output instead of a UDPConn.
func Output(w io.Writer) Option {
	return func(s *Sink) error {
		s.out = w
		return nil
	}
}

// New creates a Sink. Without Peer or Output it writes to stdout.
// 1432 is a safe Buffer size for most networks and the default.
func New(opts ...Option) (*Sink, error) {
	s := &Sink{out: os.Stdout, max: 1432}
	for _, o := range opts {
		if err := o(s); err != nil {
			return nil, err
		}
	}
	s.buf = make([]byte, 0, s.max+64)
	return s, nil
}

// RecordInt64 implements metric.Sink.
func (s *Sink) RecordInt64(mtype int, name string, value int64) {
	last := len(s.buf)
	s.buf = append(s.buf, s.prefix...)
	s.buf = append(s.buf, name...)
	s.buf = append(s.buf, ':')
	s.buf = strconv.AppendInt(s.buf, value, 10)
	s.buf = append(s.buf, '|')
	switch mtype {
	case metric.MeterGauge:
		s.buf = append(s.buf, 'g')
	case metric.MeterCounter:
		s.buf = append(s.buf, 'c')
	}
	s.buf = append(s.buf, '\n')
	if len(s.buf) > s.max && last > 0 {
		s.flush(last)
	}
}

// Flush implements metric.Sink.
func (s *Sink) Flush() error {
	return s.flush(len(s.buf))
}

// flush writes the first n bytes, which end in a newline.
func (s *Sink) flush(n int) error {
	if n == 0 {
		return nil
	}
	// Trim the last \n, StatsD does not like it.
	_, err := s.out.Write(s.buf[:n-1])
	copy(s.buf, s.buf[n:])
	s.buf = s.buf[:len(s.buf)-n]
	return errors.Wrap(err, "statsd write")
}
