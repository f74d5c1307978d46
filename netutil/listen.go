// Package netutil holds listener helpers for aesdsocket.
package netutil

import (
	"net"
	"os"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// StreamListener - an object which can create a slice of listeners when invoked.
type StreamListener interface {
	Listen() (listeners []net.Listener, err error)
}

// ListenTCP binds a TCP listener with SO_REUSEADDR set and the given
// accept backlog. net.ListenTCP always uses the system maximum backlog.
// A nil or unspecified IPv4 address binds all local IPv4 addresses.
func ListenTCP(laddr *net.TCPAddr, backlog int) (*net.TCPListener, error) {
	if laddr == nil {
		laddr = &net.TCPAddr{}
	}
	if backlog <= 0 {
		backlog = unix.SOMAXCONN
	}

	var (
		family int
		sa     unix.Sockaddr
	)
	if ip4 := laddr.IP.To4(); laddr.IP == nil || ip4 != nil {
		family = unix.AF_INET
		sa4 := &unix.SockaddrInet4{Port: laddr.Port}
		copy(sa4.Addr[:], ip4)
		sa = sa4
	} else {
		family = unix.AF_INET6
		sa6 := &unix.SockaddrInet6{Port: laddr.Port}
		copy(sa6.Addr[:], laddr.IP.To16())
		if laddr.Zone != "" {
			if ifi, err := net.InterfaceByName(laddr.Zone); err == nil {
				sa6.ZoneId = uint32(ifi.Index)
			}
		}
		sa = sa6
	}

	fd, err := unix.Socket(family, unix.SOCK_STREAM|unix.SOCK_CLOEXEC|unix.SOCK_NONBLOCK, unix.IPPROTO_TCP)
	if err != nil {
		return nil, errors.Wrap(os.NewSyscallError("socket", err), "listen")
	}
	if err = unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return nil, errors.Wrap(os.NewSyscallError("setsockopt", err), "listen")
	}
	if err = unix.Bind(fd, sa); err != nil {
		unix.Close(fd)
		return nil, errors.Wrapf(os.NewSyscallError("bind", err), "listen %s", laddr)
	}
	if err = unix.Listen(fd, backlog); err != nil {
		unix.Close(fd)
		return nil, errors.Wrapf(os.NewSyscallError("listen", err), "listen %s", laddr)
	}

	f := os.NewFile(uintptr(fd), "tcp:"+laddr.String())
	defer f.Close() // FileListener holds its own dup
	l, err := net.FileListener(f)
	if err != nil {
		return nil, errors.Wrap(err, "listen")
	}
	return l.(*net.TCPListener), nil
}
