// Package signals dispatches OS signals to actions on a dedicated go-routine.
package signals

import (
	"os"
	"os/signal"
	"reflect"
)

// Action is a function called when an OS signal is received.
// It runs on the handler go-routine and should only record the event
// (cancel a context, send on a buffered channel) and return.
type Action func()

// Mappings map OS signals to functions
type Mappings map[os.Signal]Action

// One 1-buffered channel per signal plus a stop channel, selected
// with reflect since the number of cases is dynamic.
func signalHandler(mappings Mappings, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	cases := make([]reflect.SelectCase, 0, len(mappings)+1)
	actions := make([]Action, 0, len(mappings))
	chans := make([]chan os.Signal, 0, len(mappings))

	cases = append(cases, reflect.SelectCase{Dir: reflect.SelectRecv, Chan: reflect.ValueOf(stop)})
	for sig, action := range mappings {
		sigch := make(chan os.Signal, 1)
		signal.Notify(sigch, sig)
		chans = append(chans, sigch)
		cases = append(cases, reflect.SelectCase{Dir: reflect.SelectRecv, Chan: reflect.ValueOf(sigch)})
		actions = append(actions, action)
	}
	defer func() {
		for _, c := range chans {
			signal.Stop(c)
		}
	}()

	for {
		chosen, _, _ := reflect.Select(cases)
		if chosen == 0 {
			return
		}
		if f := actions[chosen-1]; f != nil {
			f()
		}
	}
}

// RunSignalHandler spawns a go-routine which will call the provided Actions
// when receiving the corresponding signals. The returned function stops
// the handler and restores default signal behaviour.
func RunSignalHandler(m Mappings) (stop func()) {
	stopch := make(chan struct{})
	done := make(chan struct{})
	go signalHandler(m, stopch, done)
	return func() {
		select {
		case <-stopch:
		default:
			close(stopch)
		}
		<-done
	}
}
