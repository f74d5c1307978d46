/*
Package metric provides counters and gauges flushed periodically to a Sink.

Counters are server side maintained: they are reset every time they are
flushed. Gauges keep their absolute value client side.

	c := metric.NewClient(sink, metric.FlushInterval(10*time.Second))
	conns := c.NewCounter("connections")
	conns.Inc(1)

A Client without a sink keeps counting but emits nothing.
*/
package metric
