package daemon

import (
	"sync/atomic"
)

// Levels passed to the LoggerFunc. They are the syslog priorities, so
// log/syslog.Priority(level) converts them.
const (
	LvlEMERG int = iota
	LvlALERT
	LvlCRIT
	LvlERROR
	LvlWARN
	LvlNOTICE
	LvlINFO
	LvlDEBUG
)

// LoggerFunc receives the events of Run, Reload and Daemonize.
type LoggerFunc func(level int, message string)

var logFunc atomic.Value // LoggerFunc

// SetLogger routes daemon events to f. A nil f silences them.
func SetLogger(f LoggerFunc) {
	logFunc.Store(f)
}

// Log sends an event to the LoggerFunc, if any.
func Log(level int, msg string) {
	if f, _ := logFunc.Load().(LoggerFunc); f != nil {
		f(level, msg)
	}
}
