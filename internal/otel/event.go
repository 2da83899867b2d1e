// Package otel provides structured observability for the decoder.
//
// Every decode, refinement and fusion is recorded as an Event, one JSON line
// each, tagged with the request ID so a single decode can be followed through
// the log. Logger writes from a background goroutine; Scope stamps component
// and request on the events of one decode. A RingBuffer keeps recent events
// and session counters for the TUI debug overlay.
package otel

import (
	"encoding/json"
	"time"
)

// Level defines event severity for filtering.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// EventKind identifies the category of an observability event.
// Dot-delimited: "<subsystem>.<action>".
type EventKind string

const (
	// Decode events
	KindDecodeStart    EventKind = "decode.start"
	KindDecodeComplete EventKind = "decode.complete"
	KindDecodeFallback EventKind = "decode.fallback"
	KindBatchComplete  EventKind = "decode.batch"

	// Refinement events
	KindRefineComplete EventKind = "refine.complete"
	KindRefineError    EventKind = "refine.error"

	// Fusion events
	KindFusionComplete EventKind = "fusion.complete"
	KindFusionHistory  EventKind = "fusion.history"

	// Risk events
	KindRiskDetected EventKind = "risk.detected"

	// Store events
	KindStoreError EventKind = "store.error"

	// Configuration events
	KindLexiconRefresh EventKind = "lexicon.refresh"

	// System events
	KindStartup  EventKind = "sys.startup"
	KindShutdown EventKind = "sys.shutdown"
	KindError    EventKind = "sys.error"

	// Trace events
	KindMsgReceived EventKind = "trace.msg_received"
	KindMsgHandled  EventKind = "trace.msg_handled"
)

// Event is the universal observability record. Every field except Kind and
// Time is optional. Serialized as a single JSONL line.
type Event struct {
	Time       time.Time      `json:"t"`
	Level      Level          `json:"level,omitempty"`
	Kind       EventKind      `json:"kind"`
	Comp       string         `json:"comp,omitempty"`       // component: "decode", "fusion", "refine", "main"
	SessionID  string         `json:"session_id,omitempty"` // random hex, same for entire run
	RequestID  string         `json:"rid,omitempty"`        // decode/fusion correlation ID
	Dur        time.Duration  `json:"-"`                    // not serialized directly
	DurMs      float64        `json:"dur_ms,omitempty"`     // computed from Dur at marshal time
	Count      int            `json:"count,omitempty"`
	Scene      string         `json:"scene,omitempty"`
	Emotion    string         `json:"emotion,omitempty"`
	Confidence float64        `json:"conf,omitempty"`
	Status     string         `json:"status,omitempty"` // stage outcome, e.g. a refine status
	Strategy   string         `json:"strategy,omitempty"`
	Err        string         `json:"err,omitempty"`
	Msg        string         `json:"msg,omitempty"`   // free text
	Extra      map[string]any `json:"extra,omitempty"` // escape hatch for unusual fields
}

// MarshalJSON implements json.Marshaler, converting Dur to DurMs.
func (e Event) MarshalJSON() ([]byte, error) {
	type Alias Event
	a := struct {
		Alias
	}{Alias: Alias(e)}
	if e.Dur > 0 {
		a.DurMs = float64(e.Dur) / float64(time.Millisecond)
	}
	return json.Marshal(a)
}
