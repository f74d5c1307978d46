// Package syslog holds the level constants of package log, source code compatible with the standard library.
package syslog

import (
	stdsyslog "log/syslog"
	"strings"

	"github.com/pkg/errors"
)

type Priority stdsyslog.Priority

const (
	LOG_EMERG Priority = iota
	LOG_ALERT
	LOG_CRIT
	LOG_ERR
	LOG_WARNING
	LOG_NOTICE
	LOG_INFO
	LOG_DEBUG
)

// aliases
const (
	LOG_ERROR Priority = LOG_ERR
	LOG_WARN  Priority = LOG_WARNING
)

var names = [...]string{"emerg", "alert", "crit", "error", "warning", "notice", "info", "debug"}

func (p Priority) String() string {
	if p < 0 || int(p) >= len(names) {
		return "unknown"
	}
	return names[p]
}

// ParsePriority accepts the level names (and "err", "warn") or a digit 0-7.
func ParsePriority(s string) (Priority, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "err":
		return LOG_ERR, nil
	case "warn":
		return LOG_WARN, nil
	}
	for i, n := range names {
		if s == n {
			return Priority(i), nil
		}
	}
	if len(s) == 1 && s[0] >= '0' && s[0] <= '7' {
		return Priority(s[0] - '0'), nil
	}
	return LOG_INFO, errors.Errorf("unknown log level %q", s)
}
