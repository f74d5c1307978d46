package aesd

import (
	"github.com/One-com/aesdsocket/metric"
)

// Stats are the counters updated by sessions.
type Stats struct {
	Connections   *metric.Counter
	BytesReceived *metric.Counter
	BytesEchoed   *metric.Counter
	Echoes        *metric.Counter
	SessionErrors *metric.Counter
	StoreBytes    *metric.Gauge
}

// NewStats registers the session meters with c.
func NewStats(c *metric.Client) *Stats {
	return &Stats{
		Connections:   c.NewCounter("connections"),
		BytesReceived: c.NewCounter("bytes_received"),
		BytesEchoed:   c.NewCounter("bytes_echoed"),
		Echoes:        c.NewCounter("echoes"),
		SessionErrors: c.NewCounter("session_errors"),
		StoreBytes:    c.NewGauge("store_bytes"),
	}
}
