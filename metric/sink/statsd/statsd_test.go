package statsd_test

import (
	"bytes"
	"fmt"
	"log"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/One-com/aesdsocket/metric"
	"github.com/One-com/aesdsocket/metric/sink/statsd"
)

func ExampleNew() {
	sink, err := statsd.New(
		statsd.Buffer(512),
		statsd.Output(os.Stdout),
		statsd.Prefix("aesdsocket"))
	if err != nil {
		log.Fatal(err)
	}

	c := metric.NewClient(sink)
	conns := c.NewCounter("connections")
	size := c.NewGauge("store_bytes")

	conns.Inc(2)
	conns.Inc(1)
	size.Set(17)

	c.Flush()
	fmt.Println()
	c.Flush() // the counter was reset
	// Output:
	// aesdsocket.connections:3|c
	// aesdsocket.store_bytes:17|g
	// aesdsocket.store_bytes:17|g
}

type packets struct{ got []string }

func (p *packets) Write(b []byte) (int, error) {
	p.got = append(p.got, string(b))
	return len(b), nil
}

func TestBufferSplitsPackets(t *testing.T) {
	var p packets
	sink, err := statsd.New(statsd.Buffer(20), statsd.Output(&p))
	require.NoError(t, err)

	sink.RecordInt64(metric.MeterCounter, "aaaaaa", 1) // 11 bytes
	sink.RecordInt64(metric.MeterCounter, "bbbbbb", 2) // 22 total, flush first
	require.NoError(t, sink.Flush())

	assert.Equal(t, []string{"aaaaaa:1|c", "bbbbbb:2|c"}, p.got)
}

func TestClientStop(t *testing.T) {
	var out bytes.Buffer
	sink, err := statsd.New(statsd.Output(&out))
	require.NoError(t, err)

	c := metric.NewClient(sink, metric.FlushInterval(1<<40))
	c.Start()
	c.NewCounter("echoes").Inc(1)
	require.NoError(t, c.Stop())
	assert.Equal(t, "echoes:1|c", out.String())
}
