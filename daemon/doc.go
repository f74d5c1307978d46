/*
Package daemon runs the aesdsocket servers under process supervision.

Run() asks a ConfigFunc for a generation of servers, lets them Listen(), and
serves them with a context which is cancelled on Exit() or Reload(). Listening
sockets are kept by the "sd" package between generations, so a reload never
closes the listening socket.

When Run() exits, and only then, the listening sockets are closed and the
OnExit cleanups are run in order. Exit() and Reload() only send on a buffered
channel and can be called from signal handlers.

Daemonize() binds the listeners and hands them to a detached copy of the
process, for the classic "-d" daemon mode without fork().
*/
package daemon
