package metric_test

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/One-com/aesdsocket/metric"
)

type reading struct {
	mtype int
	name  string
	value int64
}

type recordingSink struct {
	mu       sync.Mutex
	readings []reading
	flushes  int
}

func (s *recordingSink) RecordInt64(mtype int, name string, value int64) {
	s.mu.Lock()
	s.readings = append(s.readings, reading{mtype, name, value})
	s.mu.Unlock()
}

func (s *recordingSink) Flush() error {
	s.mu.Lock()
	s.flushes++
	s.mu.Unlock()
	return nil
}

func (s *recordingSink) take() ([]reading, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, f := s.readings, s.flushes
	s.readings = nil
	return r, f
}

type printSink struct{}

func (printSink) RecordInt64(mtype int, name string, value int64) {
	kind := "gauge"
	if mtype == metric.MeterCounter {
		kind = "counter"
	}
	fmt.Println(kind, name, value)
}

func (printSink) Flush() error { return nil }

func ExampleClient() {
	c := metric.NewClient(printSink{})
	echoes := c.NewCounter("echoes")
	size := c.NewGauge("store_bytes")

	echoes.Inc(1)
	echoes.Inc(1)
	size.Set(6)
	c.Flush()

	size.Set(12)
	c.Flush()
	// Output:
	// counter echoes 2
	// gauge store_bytes 6
	// gauge store_bytes 12
}

func TestFlushResetsCounters(t *testing.T) {
	sink := &recordingSink{}
	c := metric.NewClient(sink)
	conns := c.NewCounter("connections")
	size := c.NewGauge("store_bytes")

	conns.Inc(3)
	size.Set(42)
	assert.NoError(t, c.Flush())

	got, flushes := sink.take()
	assert.Equal(t, 1, flushes)
	assert.Equal(t, []reading{
		{metric.MeterCounter, "connections", 3},
		{metric.MeterGauge, "store_bytes", 42},
	}, got)
	assert.Equal(t, int64(42), size.Value())

	assert.NoError(t, c.Flush())
	got, _ = sink.take()
	assert.Equal(t, []reading{{metric.MeterGauge, "store_bytes", 42}}, got)
}

func TestNilSinkDiscards(t *testing.T) {
	c := metric.NewClient(nil)
	c.NewCounter("connections").Inc(1)
	assert.NoError(t, c.Flush())
}

func TestStartStop(t *testing.T) {
	sink := &recordingSink{}
	c := metric.NewClient(sink, metric.FlushInterval(10*time.Millisecond))
	conns := c.NewCounter("connections")
	conns.Inc(1)

	c.Start()
	c.Start()
	assert.Eventually(t, func() bool {
		_, flushes := sink.take()
		return flushes > 0
	}, 5*time.Second, 5*time.Millisecond)

	conns.Inc(5)
	assert.NoError(t, c.Stop())
	got, _ := sink.take()
	var total int64
	for _, r := range got {
		total += r.value
	}
	// the final flush of Stop happens after the periodic ones stopped
	assert.Equal(t, int64(5), total)

	assert.NoError(t, c.Stop())
}
