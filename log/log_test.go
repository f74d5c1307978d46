package log_test

import (
	"bytes"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/One-com/aesdsocket/log"
	"github.com/One-com/aesdsocket/log/syslog"
)

func ExampleNewMinFormatter() {
	l := log.NewLogger(syslog.LOG_INFO, log.NewMinFormatter(os.Stdout))
	l.INFO("Accepted connection", "from", "127.0.0.1")
	l.With("peer", "10.0.0.1").ERROR("Session failed", "err", errors.New("broken pipe"))
	l.DEBUG("not shown")
	// Output:
	// <6>Accepted connection from=127.0.0.1
	// <3>Session failed peer=10.0.0.1 err="broken pipe"
}

func ExampleNewTermFormatter() {
	h := log.NewTermFormatter(os.Stdout, false)
	h.Log(&log.Event{
		Time:  time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC),
		Level: syslog.LOG_WARN,
		Msg:   "Store removal failed",
		KV:    []interface{}{"path", "/var/tmp/aesdsocketdata"},
	})
	// Output:
	// 2020-01-02 03:04:05.000 WARNING Store removal failed path=/var/tmp/aesdsocketdata
}

func TestLevels(t *testing.T) {
	var buf bytes.Buffer
	l := log.NewLogger(syslog.LOG_NOTICE, log.NewMinFormatter(&buf))

	l.INFO("hidden")
	assert.Empty(t, buf.String())

	assert.Equal(t, syslog.LOG_INFO, l.IncLevel())
	l.INFO("shown", "odd")
	assert.Equal(t, "<6>shown odd=<nil>\n", buf.String())

	l.SetLevel(syslog.LOG_DEBUG)
	assert.Equal(t, syslog.LOG_DEBUG, l.IncLevel())

	l.SetLevel(syslog.LOG_ALERT)
	assert.Equal(t, syslog.LOG_ALERT, l.DecLevel())
}

func TestChildSharesLevel(t *testing.T) {
	var buf bytes.Buffer
	l := log.NewLogger(syslog.LOG_ERROR, log.NewMinFormatter(&buf))
	c := l.With("k", 1)
	l.SetLevel(syslog.LOG_DEBUG)
	c.DEBUG("x", "lazy", log.Lazy(func() interface{} { return "v" }))
	assert.Equal(t, "<7>x k=1 lazy=v\n", buf.String())
}

func TestMultiAndFilter(t *testing.T) {
	var a, b bytes.Buffer
	h := log.MultiHandler(log.NewMinFormatter(&a), log.LvlFilterHandler(syslog.LOG_ERROR, log.NewMinFormatter(&b)))
	l := log.NewLogger(syslog.LOG_DEBUG, h)
	l.INFO("info")
	l.CRIT("crit")
	assert.Equal(t, "<6>info\n<2>crit\n", a.String())
	assert.Equal(t, "<2>crit\n", b.String())
}

func TestParsePriority(t *testing.T) {
	for in, want := range map[string]syslog.Priority{
		"debug": syslog.LOG_DEBUG, "WARN": syslog.LOG_WARN, "err": syslog.LOG_ERR, "5": syslog.LOG_NOTICE,
	} {
		got, err := syslog.ParsePriority(in)
		assert.NoError(t, err)
		assert.Equal(t, want, got, in)
	}
	_, err := syslog.ParsePriority("loud")
	assert.Error(t, err)
}
