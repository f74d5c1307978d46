package daemon

import (
	"context"
	"fmt"
	"sync"

	"github.com/pkg/errors"

	"github.com/One-com/aesdsocket/sd"
)

// Server is the interface of objects daemon.Run() will manage.
// These objects are single-use: Listen, Serve, Shutdown - and possibly
// Close() if Shutdown exits non-nil.
type Server interface {
	// Serve will start serving until the context is canceled at which
	// point it will stop generating new activity and exit.
	Serve(context.Context) error
}

// ListeningServer is a Server which wishes to have its Listen() method called before Serve()
type ListeningServer interface {
	Server
	Listen() error
}

// LingeringServer is a Server which potentially has background activity even after Serve() has exited.
type LingeringServer interface {
	Server
	// Shutdown waits for activity to stop until ctx is done.
	Shutdown(context.Context) error
	// Close forces all activity to stop.
	Close() error
}

// A Server implementing descriptor will use that description in any logging
type descriptor interface {
	Description() string
}

func describe(s Server) string {
	if ds, ok := s.(descriptor); ok {
		return ds.Description()
	}
	return fmt.Sprintf("%T", s)
}

var errNoServers = errors.New("no servers")

type serverEnsemble struct {
	servers []Server
	readycb func() error
}

func (se serverEnsemble) Listen() error {
	if len(se.servers) == 0 {
		return errNoServers
	}
	for _, s := range se.servers {
		if ls, ok := s.(ListeningServer); ok {
			if err := ls.Listen(); err != nil {
				return errors.Wrapf(err, "%s", describe(s))
			}
		}
	}
	return nil
}

// Serve runs all servers until they have returned. The first error is returned.
func (se serverEnsemble) Serve(ctx context.Context) (err error) {
	var (
		wg    sync.WaitGroup
		errmu sync.Mutex
	)
	for _, s := range se.servers {
		wg.Add(1)
		go func(s Server) {
			defer wg.Done()
			desc := describe(s)
			Log(LvlINFO, fmt.Sprintf("Serve (%s)", desc))
			e := s.Serve(ctx)
			if e != nil {
				Log(LvlERROR, fmt.Sprintf("Serve (%s) error: %s", desc, e))
				errmu.Lock()
				if err == nil {
					err = e
				}
				errmu.Unlock()
				return
			}
			Log(LvlINFO, fmt.Sprintf("Serve exited (%s)", desc))
		}(s)
	}

	if se.readycb != nil {
		if nerr := se.readycb(); nerr != nil {
			Log(LvlERROR, fmt.Sprintf("Ready callback error: %s", nerr))
		}
	}
	wg.Wait()
	return
}

// Shutdown waits for lingering servers in reverse order.
func (se serverEnsemble) Shutdown(ctx context.Context) (err error) {
	for i := len(se.servers) - 1; i >= 0; i-- {
		if ls, ok := se.servers[i].(LingeringServer); ok {
			if e := ls.Shutdown(ctx); e != nil && err == nil {
				err = e
			}
		}
	}
	return
}

// Close forces lingering servers to stop in reverse order.
func (se serverEnsemble) Close() (err error) {
	for i := len(se.servers) - 1; i >= 0; i-- {
		if ls, ok := se.servers[i].(LingeringServer); ok {
			if e := ls.Close(); e != nil && err == nil {
				err = e
			}
		}
	}
	return
}

// listenError marks a failure to obtain the listening sockets.
type listenError struct{ error }

func (e listenError) Unwrap() error { return e.error }

// serve lets the ensemble Listen, closes inherited sockets nobody claimed,
// serves and then makes the exported sockets available to the next generation.
func serve(ctx context.Context, se serverEnsemble) error {
	if err := se.Listen(); err != nil {
		return listenError{err}
	}
	sd.Cleanup()

	err := se.Serve(ctx)
	sd.Reset()
	return err
}
