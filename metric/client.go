package metric

import (
	"sync"
	"time"
)

// DefaultFlushInterval is used when no FlushInterval option is given.
const DefaultFlushInterval = 10 * time.Second

// MOption configures a Client.
type MOption func(*Client)

// FlushInterval sets how often meters are flushed to the sink.
func FlushInterval(d time.Duration) MOption {
	return func(c *Client) {
		if d > 0 {
			c.interval = d
		}
	}
}

// Client owns a set of meters and flushes them to its Sink.
type Client struct {
	mu       sync.Mutex
	meters   []Meter
	sink     Sink
	interval time.Duration

	stop chan struct{}
	done chan struct{}
}

var defaultClient = NewClient(nil)

// Default returns the package level client.
func Default() *Client { return defaultClient }

// NewClient creates a stopped client. A nil sink discards readings.
func NewClient(sink Sink, opts ...MOption) *Client {
	c := &Client{interval: DefaultFlushInterval}
	c.SetSink(sink)
	for _, o := range opts {
		o(c)
	}
	return c
}

// SetSink replaces the sink. Pending readings go to the new sink.
func (c *Client) SetSink(sink Sink) {
	if sink == nil {
		sink = nilSink{}
	}
	c.mu.Lock()
	c.sink = sink
	c.mu.Unlock()
}

// SetOptions applies options to a client. A changed interval takes
// effect at the next Start.
func (c *Client) SetOptions(opts ...MOption) {
	c.mu.Lock()
	for _, o := range opts {
		o(c)
	}
	c.mu.Unlock()
}

func (c *Client) register(m Meter) {
	c.mu.Lock()
	c.meters = append(c.meters, m)
	c.mu.Unlock()
}

// NewCounter registers a new Counter.
func (c *Client) NewCounter(name string) *Counter {
	m := &Counter{name: name}
	c.register(m)
	return m
}

// NewGauge registers a new Gauge.
func (c *Client) NewGauge(name string) *Gauge {
	m := &Gauge{name: name}
	c.register(m)
	return m
}

// Flush writes all meter readings to the sink and flushes it.
func (c *Client) Flush() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, m := range c.meters {
		m.FlushReading(c.sink)
	}
	return c.sink.Flush()
}

// Start flushing periodically. Starting a running client does nothing.
func (c *Client) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stop != nil {
		return
	}
	c.stop = make(chan struct{})
	c.done = make(chan struct{})
	go c.run(c.interval, c.stop, c.done)
}

func (c *Client) run(interval time.Duration, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			c.Flush()
		case <-stop:
			return
		}
	}
}

// Stop the periodic flushing and do a final Flush.
func (c *Client) Stop() error {
	c.mu.Lock()
	stop, done := c.stop, c.done
	c.stop, c.done = nil, nil
	c.mu.Unlock()
	if stop != nil {
		close(stop)
		<-done
	}
	return c.Flush()
}
