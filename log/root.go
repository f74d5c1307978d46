package log

import (
	"os"

	"github.com/One-com/aesdsocket/log/syslog"
)

var defaultLogger = NewLogger(syslog.LOG_INFO, NewMinFormatter(os.Stderr))

// Default returns the package level logger.
func Default() *Logger {
	return defaultLogger
}

// Minimal makes the default logger write "<level>message" lines to stderr.
func Minimal() {
	defaultLogger.SetHandler(NewMinFormatter(os.Stderr))
}

// AutoColoring makes the default logger use the terminal formatter,
// colored if stderr is a TTY.
func AutoColoring() {
	defaultLogger.SetHandler(NewTermFormatter(os.Stderr, IsTerminal(os.Stderr)))
}

// SetHandler sets the handler of the default logger.
func SetHandler(h Handler) { defaultLogger.SetHandler(h) }

// SetLevel sets the level of the default logger.
func SetLevel(level syslog.Priority) { defaultLogger.SetLevel(level) }

// IncLevel makes the default logger more verbose.
func IncLevel() syslog.Priority { return defaultLogger.IncLevel() }

// DecLevel makes the default logger less verbose.
func DecLevel() syslog.Priority { return defaultLogger.DecLevel() }

// With creates a child K/V logger of the default logger
func With(kv ...interface{}) *Logger { return defaultLogger.With(kv...) }

func ALERT(msg string, kv ...interface{})  { defaultLogger.Log(syslog.LOG_ALERT, msg, kv...) }
func CRIT(msg string, kv ...interface{})   { defaultLogger.Log(syslog.LOG_CRIT, msg, kv...) }
func ERROR(msg string, kv ...interface{})  { defaultLogger.Log(syslog.LOG_ERROR, msg, kv...) }
func WARN(msg string, kv ...interface{})   { defaultLogger.Log(syslog.LOG_WARN, msg, kv...) }
func NOTICE(msg string, kv ...interface{}) { defaultLogger.Log(syslog.LOG_NOTICE, msg, kv...) }
func INFO(msg string, kv ...interface{})   { defaultLogger.Log(syslog.LOG_INFO, msg, kv...) }
func DEBUG(msg string, kv ...interface{})  { defaultLogger.Log(syslog.LOG_DEBUG, msg, kv...) }

// Printf logs at LvlDEFAULT with the default logger.
func Printf(format string, v ...interface{}) { defaultLogger.Printf(format, v...) }

// Println logs at LvlDEFAULT with the default logger.
func Println(v ...interface{}) { defaultLogger.Println(v...) }
