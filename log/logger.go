package log

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/One-com/aesdsocket/log/syslog"
)

// LvlDEFAULT is the level of Print*() events.
const LvlDEFAULT syslog.Priority = syslog.LOG_INFO

type handlerBox struct {
	mu sync.RWMutex
	h  Handler
}

// Logger is a go-routine safe leveled logger. Loggers made by With() share
// level and handler with their parent.
type Logger struct {
	level *uint32
	h     *handlerBox
	data  []interface{}
}

// NewLogger creates a Logger logging events at or above level to handler.
func NewLogger(level syslog.Priority, handler Handler) *Logger {
	lvl := uint32(level)
	return &Logger{level: &lvl, h: &handlerBox{h: handler}}
}

// With returns a child logger adding kv to every event.
func (l *Logger) With(kv ...interface{}) *Logger {
	data := make([]interface{}, 0, len(l.data)+len(kv)+1)
	data = append(data, l.data...)
	data = append(data, normalize(kv)...)
	return &Logger{level: l.level, h: l.h, data: data}
}

// SetHandler replaces the handler of the logger and all its With() children.
func (l *Logger) SetHandler(h Handler) {
	l.h.mu.Lock()
	l.h.h = h
	l.h.mu.Unlock()
}

// Level returns the current log level.
func (l *Logger) Level() syslog.Priority {
	return syslog.Priority(atomic.LoadUint32(l.level))
}

// SetLevel sets the level. Events more severe or equal are logged.
func (l *Logger) SetLevel(level syslog.Priority) {
	if level > syslog.LOG_DEBUG {
		level = syslog.LOG_DEBUG
	}
	atomic.StoreUint32(l.level, uint32(level))
}

// IncLevel makes the logger one step more verbose. It returns the new level.
func (l *Logger) IncLevel() syslog.Priority {
	lvl := l.Level()
	if lvl < syslog.LOG_DEBUG {
		lvl++
		l.SetLevel(lvl)
	}
	return lvl
}

// DecLevel makes the logger one step less verbose, never going below ALERT.
func (l *Logger) DecLevel() syslog.Priority {
	lvl := l.Level()
	if lvl > syslog.LOG_ALERT {
		lvl--
		l.SetLevel(lvl)
	}
	return lvl
}

// Does reports whether events at level are logged.
func (l *Logger) Does(level syslog.Priority) bool {
	return level <= l.Level()
}

// Log logs an event at the given level.
func (l *Logger) Log(level syslog.Priority, msg string, kv ...interface{}) error {
	if !l.Does(level) {
		return nil
	}
	return l.log(level, msg, kv)
}

func (l *Logger) log(level syslog.Priority, msg string, kv []interface{}) error {
	e := &Event{Time: time.Now(), Level: level, Msg: msg, KV: l.data}
	if len(kv) > 0 {
		e.KV = append(append(make([]interface{}, 0, len(l.data)+len(kv)+1), l.data...), normalize(kv)...)
	}
	l.h.mu.RLock()
	h := l.h.h
	l.h.mu.RUnlock()
	if h == nil {
		return nil
	}
	return h.Log(e)
}

// ALERT - Log a message and optional KV values at syslog ALERT level.
func (l *Logger) ALERT(msg string, kv ...interface{}) { l.Log(syslog.LOG_ALERT, msg, kv...) }

// CRIT - Log a message and optional KV values at syslog CRIT level.
func (l *Logger) CRIT(msg string, kv ...interface{}) { l.Log(syslog.LOG_CRIT, msg, kv...) }

// ERROR - Log a message and optional KV values at syslog ERROR level.
func (l *Logger) ERROR(msg string, kv ...interface{}) { l.Log(syslog.LOG_ERROR, msg, kv...) }

// WARN - Log a message and optional KV values at syslog WARN level.
func (l *Logger) WARN(msg string, kv ...interface{}) { l.Log(syslog.LOG_WARN, msg, kv...) }

// NOTICE - Log a message and optional KV values at syslog NOTICE level.
func (l *Logger) NOTICE(msg string, kv ...interface{}) { l.Log(syslog.LOG_NOTICE, msg, kv...) }

// INFO - Log a message and optional KV values at syslog INFO level.
func (l *Logger) INFO(msg string, kv ...interface{}) { l.Log(syslog.LOG_INFO, msg, kv...) }

// DEBUG - Log a message and optional KV values at syslog DEBUG level.
func (l *Logger) DEBUG(msg string, kv ...interface{}) { l.Log(syslog.LOG_DEBUG, msg, kv...) }

// Printf logs at LvlDEFAULT like the stdlib logger.
func (l *Logger) Printf(format string, v ...interface{}) {
	l.Log(LvlDEFAULT, fmt.Sprintf(format, v...))
}

// Println logs at LvlDEFAULT like the stdlib logger.
func (l *Logger) Println(v ...interface{}) {
	s := fmt.Sprintln(v...)
	l.Log(LvlDEFAULT, s[:len(s)-1])
}
