package sd

import (
	"net"
	"os"

	"golang.org/x/sys/unix"
)

// FileTest reports whether an *os.File fulfills certain criteria.
type FileTest func(*os.File) (bool, error)

func (f *namedFile) isMatching(tests ...FileTest) (bool, error) {
	for _, t := range tests {
		ok, err := t(f.File)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func isListeningStream(fd int) (bool, error) {
	var stat unix.Stat_t
	if err := unix.Fstat(fd, &stat); err != nil {
		return false, err
	}
	if stat.Mode&unix.S_IFMT != unix.S_IFSOCK {
		return false, nil
	}
	sotype, err := unix.GetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_TYPE)
	if err != nil || sotype != unix.SOCK_STREAM {
		return false, err
	}
	acc, err := unix.GetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_ACCEPTCONN)
	if err != nil {
		return false, err
	}
	return acc != 0, nil
}

// IsTCPListener tests whether the file is a listening TCP socket. If addr is not
// nil the socket must be bound to its port, and to its IP unless addr has an
// unspecified IP.
func IsTCPListener(addr *net.TCPAddr) FileTest {
	return func(file *os.File) (bool, error) {
		fd := int(file.Fd())
		ok, err := isListeningStream(fd)
		if !ok || err != nil {
			return false, err
		}
		lsa, err := unix.Getsockname(fd)
		if err != nil {
			return false, err
		}
		var bound *net.TCPAddr
		switch sa := lsa.(type) {
		case *unix.SockaddrInet4:
			bound = &net.TCPAddr{IP: net.IP(sa.Addr[:]), Port: sa.Port}
		case *unix.SockaddrInet6:
			bound = &net.TCPAddr{IP: net.IP(sa.Addr[:]), Port: sa.Port}
		default:
			return false, nil
		}
		if addr == nil {
			return true, nil
		}
		if addr.Port != 0 && addr.Port != bound.Port {
			return false, nil
		}
		if addr.IP != nil && !addr.IP.IsUnspecified() && !addr.IP.Equal(bound.IP) {
			return false, nil
		}
		return true, nil
	}
}
