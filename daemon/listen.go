package daemon

import (
	"net"

	"github.com/pkg/errors"

	"github.com/One-com/aesdsocket/netutil"
	"github.com/One-com/aesdsocket/sd"
)

// ErrNoListener is returned from Listen() when a required inherited socket is not found.
var ErrNoListener = errors.New("no matching listener")

// ListenerSpec describes a TCP listener to inherit via the "sd" package or bind fresh.
type ListenerSpec struct {
	Net  string // tcp, tcp4 or tcp6. Default tcp.
	Addr string

	// ListenerFdName picks a named file descriptor via LISTEN_FDNAMES and is
	// the name the listener is exported under.
	ListenerFdName string

	// Backlog of a freshly bound socket. 0 means the system maximum.
	Backlog int

	ExtraFileTests []sd.FileTest

	// InheritOnly fails Listen instead of binding when no socket is inherited.
	InheritOnly bool

	// PrepareListener may wrap the chosen listener.
	PrepareListener func(net.Listener) net.Listener
}

// ListenerGroup implements netutil.StreamListener using the "sd" package.
type ListenerGroup []ListenerSpec

var _ netutil.StreamListener = ListenerGroup(nil)

// Listen inherits or binds every listener in the group. All listeners are
// Exported by the sd package. On error the opened ones are closed.
func (lg ListenerGroup) Listen() (listeners []net.Listener, err error) {
	defer func() {
		if err != nil {
			for _, l := range listeners {
				sd.Forget(l)
				l.Close()
			}
			listeners = nil
		}
	}()

	for _, ls := range lg {
		nett := ls.Net
		if nett == "" {
			nett = "tcp"
		}
		var taddr *net.TCPAddr
		switch nett {
		case "tcp", "tcp4", "tcp6":
			if ls.Addr != "" {
				if taddr, err = net.ResolveTCPAddr(nett, ls.Addr); err != nil {
					return listeners, errors.Wrapf(err, "resolve %s", ls.Addr)
				}
			}
		default:
			return listeners, net.UnknownNetworkError(nett)
		}

		tests := append([]sd.FileTest{sd.IsTCPListener(taddr)}, ls.ExtraFileTests...)
		var ln net.Listener
		ln, _, err = sd.InheritNamedListener(ls.ListenerFdName, tests...)
		if err != nil {
			return
		}
		if ln != nil {
			Log(LvlINFO, "Inherited listener "+ln.Addr().String())
		} else {
			if ls.InheritOnly {
				return listeners, ErrNoListener
			}
			var fresh *net.TCPListener
			if fresh, err = netutil.ListenTCP(taddr, ls.Backlog); err != nil {
				return
			}
			if err = sd.Export(ls.ListenerFdName, fresh); err != nil {
				fresh.Close()
				return
			}
			ln = fresh
		}
		if ls.PrepareListener != nil {
			ln = ls.PrepareListener(ln)
		}
		listeners = append(listeners, ln)
	}
	return
}
