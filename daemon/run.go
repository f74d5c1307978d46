package daemon

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/pkg/errors"

	"github.com/One-com/aesdsocket/sd"
)

// CleanupFunc is a function to call after a generation of servers is fully exited.
type CleanupFunc func() error

// ConfigFunc returns the servers of a new generation and the CleanupFuncs to
// call when they have completely shut down.
type ConfigFunc func() ([]Server, []CleanupFunc, error)

// ErrNoConfigurator is returned by Run without a Configurator option.
var ErrNoConfigurator = errors.New("don't know how to configure servers")

var (
	stopch chan bool     // true to do graceful shutdown
	reload chan struct{} // reload the daemon config
)

func init() {
	// 1 to take a pending event into account
	reload = make(chan struct{}, 1)
	stopch = make(chan bool, 1)
}

type runcfg struct {
	cfgfunc         ConfigFunc
	readyCallbacks  []func() error
	exitCleanups    []CleanupFunc
	shutdownTimeout time.Duration
}

// RunOption change the behaviour of Run()
type RunOption func(*runcfg)

// Configurator gives Run() a ConfigFunc. This is the only mandatory RunOption.
func Configurator(f ConfigFunc) RunOption {
	return func(rc *runcfg) {
		rc.cfgfunc = f
	}
}

// ReadyCallback sets a function to be called when all servers are listening.
func ReadyCallback(f func() error) RunOption {
	return func(rc *runcfg) {
		rc.readyCallbacks = append(rc.readyCallbacks, f)
	}
}

// OnExit adds cleanups run, in order, when Run() exits after the listening
// sockets have been closed. They are not run on reload.
func OnExit(f ...CleanupFunc) RunOption {
	return func(rc *runcfg) {
		rc.exitCleanups = append(rc.exitCleanups, f...)
	}
}

// ShutdownTimeout bounds how long a graceful exit waits for lingering servers.
func ShutdownTimeout(d time.Duration) RunOption {
	return func(rc *runcfg) {
		rc.shutdownTimeout = d
	}
}

// SdNotifyOnReady makes Run() notify systemd with READY=1 when all servers are listening.
// If mainpid is true, the MAINPID of the current process is also notified.
func SdNotifyOnReady(mainpid bool, status string) RunOption {
	return ReadyCallback(func() error {
		msg := []string{"READY=1"}
		if mainpid {
			msg = append(msg, fmt.Sprintf("MAINPID=%d", os.Getpid()))
		}
		if status != "" {
			msg = append(msg, "STATUS="+status)
		}
		err := sd.Notify(msg...)
		if err == sd.ErrSdNotifyNoSocket {
			Log(LvlDEBUG, "No systemd notify socket")
			return nil
		}
		return err
	})
}

type generation struct {
	revision int
	servers  []Server
	cleanups []CleanupFunc
}

// outcome of watching events while a generation is serving
type outcome struct {
	exit     bool
	graceful bool
	next     *generation
}

// Run serves generations of servers from the ConfigFunc until Exit() is
// called or serving fails. Reload() replaces the running generation with a
// freshly configured one, keeping the listening sockets open.
//
// An error obtaining the sockets of the first generation is returned
// without running any OnExit cleanup. Any later error is returned after the
// sockets are closed and the OnExit cleanups ran.
func Run(opts ...RunOption) error {
	cfg := &runcfg{}
	for _, o := range opts {
		o(cfg)
	}
	if cfg.cfgfunc == nil {
		return ErrNoConfigurator
	}

	readyCallback := func() (err error) {
		for _, f := range cfg.readyCallbacks {
			if e := f(); err == nil {
				err = e
			}
		}
		return
	}

	servers, cleanups, err := cfg.cfgfunc()
	if err != nil {
		return errors.Wrap(err, "configure")
	}
	gen := &generation{revision: 1, servers: servers, cleanups: cleanups}

	for {
		ctx, cancel := context.WithCancel(context.Background())
		watchStop := make(chan struct{})
		watchDone := make(chan outcome, 1)
		go watchEvents(cfg, gen.revision, cancel, watchStop, watchDone)

		serr := serve(ctx, serverEnsemble{gen.servers, readyCallback})
		close(watchStop)
		out := <-watchDone
		cancel()

		if serr != nil {
			var le listenError
			if errors.As(serr, &le) && gen.revision == 1 {
				closeListeners()
				return le.error
			}
			recordShutdown(gen, 0)
			finalize(cfg)
			return serr
		}

		switch {
		case out.next != nil:
			recordShutdown(gen, 0)
			gen = out.next
			continue
		case out.exit:
			Log(LvlNOTICE, "Exit mainloop")
			var timeout time.Duration
			if out.graceful {
				timeout = cfg.shutdownTimeout
			}
			recordShutdown(gen, timeout)
		default:
			Log(LvlNOTICE, "All servers exited")
			recordShutdown(gen, 0)
		}
		finalize(cfg)
		return nil
	}
}

// watchEvents turns Exit/Reload into an outcome, cancelling the running
// generation. A reload which fails to configure keeps the generation running.
func watchEvents(cfg *runcfg, rev int, cancel context.CancelFunc, stop <-chan struct{}, done chan<- outcome) {
	var out outcome
	defer func() { done <- out }()
	for {
		select {
		case graceful := <-stopch:
			out.exit, out.graceful = true, graceful
			cancel()
			return
		case <-reload:
			servers, cleanups, err := cfg.cfgfunc()
			if err != nil {
				Log(LvlCRIT, fmt.Sprintf("Daemon reload: %s", err))
				continue
			}
			out.next = &generation{revision: rev + 1, servers: servers, cleanups: cleanups}
			cancel()
			return
		case <-stop:
			return
		}
	}
}

func recordShutdown(gen *generation, timeout time.Duration) {
	ctx := context.Background()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	se := serverEnsemble{servers: gen.servers}
	if err := se.Shutdown(ctx); err != nil {
		Log(LvlERROR, "Forcefully closing...")
		if err = se.Close(); err != nil {
			Log(LvlCRIT, "Forcefully closing failed")
		}
	}
	runCleanups(gen.cleanups)
	Log(LvlNOTICE, fmt.Sprintf("All servers (rev=%d) shutdown", gen.revision))
}

func runCleanups(cleanups []CleanupFunc) {
	for _, f := range cleanups {
		if f == nil {
			continue
		}
		if err := f(); err != nil {
			Log(LvlERROR, fmt.Sprintf("Cleanup failed: %s", err))
		}
	}
}

// closeListeners closes every socket held by the sd package.
func closeListeners() {
	sd.Reset()
	sd.Cleanup()
}

func finalize(cfg *runcfg) {
	closeListeners()
	Log(LvlDEBUG, "Listening sockets closed")
	runCleanups(cfg.exitCleanups)
}

// Reload tells Run() to instantiate new servers and continue serving with them.
func Reload() {
	select {
	case reload <- struct{}{}:
	default:
		Log(LvlNOTICE, "Reload already pending")
	}
}

// Exit tells Run() to exit. If graceful is true, Run() will wait for lingering servers.
// It does nothing but a non-blocking channel send, so it is safe to call from a
// signal handler any number of times.
func Exit(graceful bool) {
	select {
	case stopch <- graceful:
	default:
	}
}
