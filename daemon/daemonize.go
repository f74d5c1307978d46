package daemon

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/One-com/aesdsocket/netutil"
	"github.com/One-com/aesdsocket/sd"
)

// Daemonize binds the listeners of sl and starts a detached copy of the
// process which inherits them. It returns true in the parent, which should
// exit with success, and false in the detached child.
// A bind error is returned in the parent before anything is started.
func Daemonize(sl netutil.StreamListener) (parent bool, err error) {
	if sd.Detached() {
		return false, nil
	}
	listeners, err := sl.Listen()
	if err != nil {
		return true, err
	}
	pid, err := sd.StartProcess(sd.Detach())
	for _, l := range listeners {
		l.Close()
	}
	closeListeners()
	if err != nil {
		return true, errors.Wrap(err, "daemonize")
	}
	Log(LvlINFO, fmt.Sprintf("Detached as pid %d", pid))
	return true, nil
}
