package metric

// Sink receives meter readings. The Client calls a Sink from one
// go-routine at a time, so it can buffer without locking.
type Sink interface {
	RecordInt64(mtype int, name string, value int64)
	// Flush sends any buffered readings.
	Flush() error
}

type nilSink struct{}

func (nilSink) RecordInt64(int, string, int64) {}
func (nilSink) Flush() error                   { return nil }
