package metric

import "sync/atomic"

// Meter types known to sinks.
const (
	MeterGauge = iota
	MeterCounter
)

// Meter is a named value which can write its reading to a Sink.
type Meter interface {
	Name() string
	FlushReading(Sink)
}

// Counter is reset to zero every time it is flushed.
type Counter struct {
	name string
	val  int64
}

// Name returns the name of the counter
func (c *Counter) Name() string { return c.name }

// Inc adds val to the counter.
func (c *Counter) Inc(val int64) { atomic.AddInt64(&c.val, val) }

// FlushReading records the counter value since the last flush, if not zero.
func (c *Counter) FlushReading(s Sink) {
	if val := atomic.SwapInt64(&c.val, 0); val != 0 {
		s.RecordInt64(MeterCounter, c.name, val)
	}
}

// Gauge holds an absolute value.
type Gauge struct {
	name string
	val  int64
}

// Name returns the name of the gauge
func (g *Gauge) Name() string { return g.name }

// Set the gauge value.
func (g *Gauge) Set(val int64) { atomic.StoreInt64(&g.val, val) }

// Value returns the current value.
func (g *Gauge) Value() int64 { return atomic.LoadInt64(&g.val) }

// FlushReading records the current value.
func (g *Gauge) FlushReading(s Sink) {
	s.RecordInt64(MeterGauge, g.name, g.Value())
}
