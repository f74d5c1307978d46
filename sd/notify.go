package sd

import (
	"net"
	"os"
	"strings"

	"github.com/pkg/errors"
)

const envNotifySocket = "NOTIFY_SOCKET"

// Notify states
const (
	StatusNone = iota
	StatusReady
	StatusReloading
	StatusStopping
)

// ErrSdNotifyNoSocket means there is no NOTIFY_SOCKET in the environment.
var ErrSdNotifyNoSocket = errors.New("no systemd notify socket in environment")

func notifySocket() string {
	name := os.Getenv(envNotifySocket)
	if name != "" && name[0] == '@' {
		name = "\x00" + name[1:]
	}
	return name
}

// NotifyStatus sends a state and a STATUS= message to the notify socket.
func NotifyStatus(status int, message string) error {
	var lines []string
	switch status {
	case StatusNone:
	case StatusReady:
		lines = append(lines, "READY=1")
	case StatusReloading:
		lines = append(lines, "RELOADING=1")
	case StatusStopping:
		lines = append(lines, "STOPPING=1")
	default:
		return errors.Errorf("unknown notify status %d", status)
	}
	if message != "" {
		lines = append(lines, "STATUS="+message)
	}
	return Notify(lines...)
}

// Notify sends the given lines as one datagram to the notify socket.
func Notify(lines ...string) error {
	name := notifySocket()
	if name == "" {
		return ErrSdNotifyNoSocket
	}
	conn, err := net.DialUnix("unixgram", nil, &net.UnixAddr{Name: name, Net: "unixgram"})
	if err != nil {
		return errors.Wrap(err, "sd_notify")
	}
	defer conn.Close()
	_, err = conn.Write([]byte(strings.Join(lines, "\n")))
	return errors.Wrap(err, "sd_notify")
}
