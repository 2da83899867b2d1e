package otel

import (
	"os"
	"strconv"
	"sync/atomic"
)

// traceEnabled is read by the UI goroutine and written by tests.
var traceEnabled atomic.Bool

func init() {
	traceEnabled.Store(traceSetting(os.Getenv("DECODER_TRACE")))
}

// traceSetting treats any non-empty value as on unless it parses as false,
// so DECODER_TRACE=0 turns tracing off.
func traceSetting(v string) bool {
	if v == "" {
		return false
	}
	on, err := strconv.ParseBool(v)
	return err != nil || on
}

// TraceEnabled reports whether TUI message tracing was requested through
// DECODER_TRACE.
func TraceEnabled() bool {
	return traceEnabled.Load()
}

func setTraceEnabled(v bool) {
	traceEnabled.Store(v)
}
