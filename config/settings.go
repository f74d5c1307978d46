package config

import (
	"os"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/One-com/aesdsocket/log/syslog"
)

// Settings is the aesdsocket service configuration.
type Settings struct {
	Listen struct {
		Address string
		Backlog int
	}
	Store struct {
		Path string
		Mode os.FileMode
		Sync bool
		Keep bool
	}
	Session struct {
		Buffer      int
		Terminator  string
		IdleTimeout time.Duration `mapstructure:"idle_timeout"`
	}
	Log struct {
		Level  string
		Syslog bool
	}
	Metrics struct {
		Statsd   string
		Prefix   string
		Interval time.Duration
	}
}

// SetDefaults registers the built in settings.
func SetDefaults(r *Registry) {
	r.SetDefault("listen.address", ":9000")
	r.SetDefault("listen.backlog", 1)
	r.SetDefault("store.path", "/var/tmp/aesdsocketdata")
	r.SetDefault("store.mode", 0644)
	r.SetDefault("store.sync", false)
	r.SetDefault("store.keep", false)
	r.SetDefault("session.buffer", 1024)
	r.SetDefault("session.terminator", `\n`)
	r.SetDefault("session.idle_timeout", time.Duration(0))
	r.SetDefault("log.level", "info")
	r.SetDefault("log.syslog", true)
	r.SetDefault("metrics.statsd", "")
	r.SetDefault("metrics.prefix", "aesdsocket.")
	r.SetDefault("metrics.interval", 10*time.Second)
}

// Settings decodes and validates the merged configuration.
func (r *Registry) Settings() (*Settings, error) {
	s := new(Settings)
	if err := r.Unmarshal(s); err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks values the listener and session cannot work with.
func (s *Settings) Validate() error {
	if s.Listen.Address == "" {
		return errors.New("listen.address is empty")
	}
	if s.Listen.Backlog < 1 {
		return errors.Errorf("listen.backlog must be positive, got %d", s.Listen.Backlog)
	}
	if s.Store.Path == "" {
		return errors.New("store.path is empty")
	}
	if s.Session.Buffer < 1 {
		return errors.Errorf("session.buffer must be positive, got %d", s.Session.Buffer)
	}
	if s.Session.IdleTimeout < 0 {
		return errors.Errorf("session.idle_timeout is negative")
	}
	if _, err := s.TerminatorByte(); err != nil {
		return err
	}
	if _, err := syslog.ParsePriority(s.Log.Level); err != nil {
		return errors.Wrap(err, "log.level")
	}
	return nil
}

// TerminatorByte returns the message terminator. Go escapes like `\n` are
// accepted, the result must be a single byte.
func (s *Settings) TerminatorByte() (byte, error) {
	t := s.Session.Terminator
	if u, err := strconv.Unquote(`"` + t + `"`); err == nil {
		t = u
	}
	if len(t) != 1 {
		return 0, errors.Errorf("session.terminator must be a single byte, got %q", s.Session.Terminator)
	}
	return t[0], nil
}
