package log

import (
	"bytes"
	"fmt"
	"io"
	stdsyslog "log/syslog"
	"strconv"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"

	"github.com/One-com/aesdsocket/log/syslog"
)

// Handler outputs events.
type Handler interface {
	Log(e *Event) error
}

type handlerFunc func(e *Event) error

func (h handlerFunc) Log(e *Event) error { return h(e) }

// HandlerFunc turns a function into a Handler.
func HandlerFunc(fn func(e *Event) error) Handler {
	return handlerFunc(fn)
}

// LvlFilterHandler passes on events at maxLvl or more severe.
func LvlFilterHandler(maxLvl syslog.Priority, h Handler) Handler {
	return HandlerFunc(func(e *Event) error {
		if e.Level <= maxLvl {
			return h.Log(e)
		}
		return nil
	})
}

// MultiHandler sends every event to all handlers, returning the first error.
func MultiHandler(hs ...Handler) Handler {
	return HandlerFunc(func(e *Event) (err error) {
		for _, h := range hs {
			if e2 := h.Log(e); err == nil {
				err = e2
			}
		}
		return
	})
}

func appendKV(buf *bytes.Buffer, kv []interface{}) {
	for i := 0; i+1 < len(kv); i += 2 {
		buf.WriteByte(' ')
		buf.WriteString(kv[i].(string))
		buf.WriteByte('=')
		v := kv[i+1]
		if lz, ok := v.(Lazy); ok {
			v = lz()
		}
		var s string
		switch tv := v.(type) {
		case error:
			s = tv.Error()
		case fmt.Stringer:
			s = tv.String()
		case string:
			s = tv
		default:
			s = fmt.Sprint(v)
		}
		if s == "" || strings.ContainsAny(s, " \t\n\"=") {
			s = strconv.Quote(s)
		}
		buf.WriteString(s)
	}
}

type writerHandler struct {
	mu     sync.Mutex
	w      io.Writer
	format func(*bytes.Buffer, *Event)
}

func (h *writerHandler) Log(e *Event) error {
	var buf bytes.Buffer
	h.format(&buf, e)
	buf.WriteByte('\n')
	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.w.Write(buf.Bytes())
	return err
}

// NewMinFormatter writes "<level>message k=v" lines, the format journald
// and syslog-ng understand on stderr.
func NewMinFormatter(w io.Writer) Handler {
	return &writerHandler{w: w, format: func(buf *bytes.Buffer, e *Event) {
		buf.WriteByte('<')
		buf.WriteString(strconv.Itoa(int(e.Level)))
		buf.WriteByte('>')
		buf.WriteString(e.Msg)
		appendKV(buf, e.KV)
	}}
}

var levelColors = [...]color.Attribute{
	color.FgHiRed, color.FgHiRed, color.FgRed, color.FgRed,
	color.FgYellow, color.FgCyan, color.FgGreen, color.FgWhite,
}

// NewTermFormatter writes timestamped lines with the level name, colored if
// colored is true.
func NewTermFormatter(w io.Writer, colored bool) Handler {
	paint := make([]*color.Color, len(levelColors))
	for i, a := range levelColors {
		paint[i] = color.New(a)
		if colored {
			paint[i].EnableColor()
		} else {
			paint[i].DisableColor()
		}
	}
	return &writerHandler{w: w, format: func(buf *bytes.Buffer, e *Event) {
		buf.WriteString(e.Time.Format("2006-01-02 15:04:05.000 "))
		lvl := strings.ToUpper(e.Level.String())
		if int(e.Level) < len(paint) {
			lvl = paint[e.Level].Sprintf("%-7s", lvl)
		}
		buf.WriteString(lvl)
		buf.WriteByte(' ')
		buf.WriteString(e.Msg)
		appendKV(buf, e.KV)
	}}
}

// IsTerminal reports whether w is a file connected to a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(interface{ Fd() uintptr })
	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}

// NewSyslogHandler sends events to the local system logger with the given tag.
// The syslog header carries the pid.
func NewSyslogHandler(tag string) (Handler, error) {
	w, err := stdsyslog.New(stdsyslog.LOG_DAEMON|stdsyslog.LOG_INFO, tag)
	if err != nil {
		return nil, errors.Wrap(err, "connect to syslog")
	}
	return HandlerFunc(func(e *Event) error {
		var buf bytes.Buffer
		buf.WriteString(e.Msg)
		appendKV(&buf, e.KV)
		m := buf.String()
		switch e.Level {
		case syslog.LOG_EMERG:
			return w.Emerg(m)
		case syslog.LOG_ALERT:
			return w.Alert(m)
		case syslog.LOG_CRIT:
			return w.Crit(m)
		case syslog.LOG_ERR:
			return w.Err(m)
		case syslog.LOG_WARNING:
			return w.Warning(m)
		case syslog.LOG_NOTICE:
			return w.Notice(m)
		case syslog.LOG_INFO:
			return w.Info(m)
		default:
			return w.Debug(m)
		}
	}), nil
}
