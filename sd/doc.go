/*
Package sd manages the listening sockets of aesdsocket across process boundaries.

It supports:

  - Socket activation (LISTEN_FDS/LISTEN_FDNAMES) so a listener bound by systemd, or by
    the parent of a daemon-mode child, is picked up instead of binding again.
  - Notifying the init system about readiness and status via sd_notify(3).
  - Starting a detached copy of the running binary which inherits the exported sockets.

Exported file descriptors are dup()'ed copies of the sockets handed to Export. Closing the
net.Listener does not close the socket as long as the sd package holds its copy. Call Reset()
to make the exported set available for inheritance again (used on reload) and Cleanup() to close
what was not claimed.
*/
package sd
