package otel

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// queueSize bounds events waiting for the writer. Emit drops events rather
// than block a decode when the queue is full.
const queueSize = 4096

// queued pairs the encoded line with the event itself so the ring buffer
// sees fields that are not serialized, such as Dur.
type queued struct {
	line []byte
	ev   Event
}

// Logger writes events as JSONL from a single background goroutine. All
// methods are safe for concurrent use, and a nil *Logger discards events.
type Logger struct {
	session string
	queue   chan queued
	out     io.Writer
	stopped chan struct{}

	ringMu sync.Mutex
	ring   *RingBuffer

	dropped   atomic.Uint64
	closing   atomic.Bool
	closeOnce sync.Once
}

// NewLogger starts a logger writing to w. Close flushes it.
func NewLogger(w io.Writer) *Logger {
	var id [8]byte
	_, _ = rand.Read(id[:])

	l := &Logger{
		session: hex.EncodeToString(id[:]),
		queue:   make(chan queued, queueSize),
		out:     w,
		stopped: make(chan struct{}),
	}
	go l.run()
	return l
}

// NewNullLogger discards output but still feeds an attached ring buffer.
func NewNullLogger() *Logger {
	return NewLogger(io.Discard)
}

// run is the only goroutine that touches l.out.
func (l *Logger) run() {
	defer close(l.stopped)
	for q := range l.queue {
		if _, err := l.out.Write(q.line); err != nil {
			l.dropped.Add(1)
		}
		l.ringMu.Lock()
		ring := l.ring
		l.ringMu.Unlock()
		if ring != nil {
			ring.Push(q.ev)
		}
	}
}

// Emit stamps e with the time and session and queues it. It never blocks.
func (l *Logger) Emit(e Event) {
	if l == nil {
		return
	}
	if l.closing.Load() {
		l.dropped.Add(1)
		return
	}
	// Close can win the race after the check above.
	defer func() {
		if recover() != nil {
			l.dropped.Add(1)
		}
	}()

	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	e.SessionID = l.session

	line, err := json.Marshal(e)
	if err != nil {
		l.dropped.Add(1)
		return
	}
	select {
	case l.queue <- queued{line: append(line, '\n'), ev: e}:
	default:
		l.dropped.Add(1)
	}
}

// For returns an emitter that fills in comp and rid on every event, so one
// decode's events share a request ID.
func (l *Logger) For(comp, rid string) Scope {
	return Scope{l: l, comp: comp, rid: rid}
}

// Fail emits an error-level event for err under kind.
func (l *Logger) Fail(kind EventKind, comp string, err error) {
	e := Event{Level: LevelError, Kind: kind, Comp: comp}
	if err != nil {
		e.Err = err.Error()
	}
	l.Emit(e)
}

// SetRingBuffer mirrors every written event into buf.
func (l *Logger) SetRingBuffer(buf *RingBuffer) {
	if l == nil {
		return
	}
	l.ringMu.Lock()
	l.ring = buf
	l.ringMu.Unlock()
}

// SessionID is the random ID stamped on every event of this run.
func (l *Logger) SessionID() string {
	if l == nil {
		return ""
	}
	return l.session
}

// Dropped counts events lost to a full queue, encoding or write errors, or
// emits after Close.
func (l *Logger) Dropped() uint64 {
	if l == nil {
		return 0
	}
	return l.dropped.Load()
}

// Close writes out queued events and stops the writer. Later Emit calls
// are dropped. Close is idempotent.
func (l *Logger) Close() {
	if l == nil {
		return
	}
	l.closeOnce.Do(func() {
		l.closing.Store(true)
		close(l.queue)
		<-l.stopped
		if n := l.dropped.Load(); n > 0 {
			fmt.Fprintf(os.Stderr, "decoder: %d events dropped in session %s\n", n, l.session)
		}
	})
}

// Scope emits events for one component and request.
type Scope struct {
	l    *Logger
	comp string
	rid  string
}

// Emit fills Comp and RequestID when e leaves them empty.
func (s Scope) Emit(e Event) {
	if e.Comp == "" {
		e.Comp = s.comp
	}
	if e.RequestID == "" {
		e.RequestID = s.rid
	}
	s.l.Emit(e)
}

// RequestID is the request this scope stamps.
func (s Scope) RequestID() string { return s.rid }
