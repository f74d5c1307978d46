package log

import (
	"fmt"
	"time"

	"github.com/One-com/aesdsocket/log/syslog"
)

// Event is a single log event handed to a Handler.
type Event struct {
	Time  time.Time
	Level syslog.Priority
	Msg   string
	KV    []interface{} // even length, keys are strings
}

// normalize makes kv an even length list of string keys and values.
func normalize(kv []interface{}) []interface{} {
	if len(kv) == 0 {
		return nil
	}
	if len(kv)%2 != 0 {
		kv = append(kv, nil)
	}
	for i := 0; i < len(kv); i += 2 {
		if _, ok := kv[i].(string); !ok {
			kv[i] = fmt.Sprint(kv[i])
		}
	}
	return kv
}

// Lazy is a value evaluated only when the event is formatted.
type Lazy func() interface{}
