package otel

import (
	"cmp"
	"maps"
	"slices"
	"sync"
)

// DefaultRingSize is used when NewRingBuffer gets a non-positive size.
const DefaultRingSize = 1024

// Counters are session totals of pipeline events. They keep counting after
// the events themselves have been overwritten in the ring.
type Counters struct {
	Decodes        int
	Fallbacks      int
	Batches        int
	Refines        int
	RefineErrors   int
	Fusions        int
	HistoryLookups int
	RiskFlags      int
	StoreErrors    int
	Errors         int

	// Scenes counts completed decodes by final scene.
	Scenes map[string]int
}

func (c *Counters) add(e Event) {
	switch e.Kind {
	case KindDecodeComplete:
		c.Decodes++
		if e.Scene != "" {
			c.Scenes[e.Scene]++
		}
	case KindDecodeFallback:
		c.Fallbacks++
	case KindBatchComplete:
		c.Batches++
	case KindRefineComplete:
		c.Refines++
	case KindRefineError:
		c.RefineErrors++
	case KindFusionComplete:
		c.Fusions++
	case KindFusionHistory:
		c.HistoryLookups++
	case KindRiskDetected:
		c.RiskFlags++
	case KindStoreError:
		c.StoreErrors++
	case KindError:
		c.Errors++
	}
}

// TopScenes returns up to n scenes ordered by count, ties by name.
func (c Counters) TopScenes(n int) []string {
	names := slices.Collect(maps.Keys(c.Scenes))
	slices.SortFunc(names, func(a, b string) int {
		return cmp.Or(cmp.Compare(c.Scenes[b], c.Scenes[a]), cmp.Compare(a, b))
	})
	if len(names) > n {
		names = names[:n]
	}
	return names
}

// RingBuffer holds the most recent events for the TUI debug overlay. Safe
// for concurrent use.
type RingBuffer struct {
	mu       sync.Mutex
	events   []Event
	next     int
	full     bool
	counters Counters
}

// NewRingBuffer creates a buffer holding size events.
func NewRingBuffer(size int) *RingBuffer {
	if size <= 0 {
		size = DefaultRingSize
	}
	return &RingBuffer{
		events:   make([]Event, size),
		counters: Counters{Scenes: make(map[string]int)},
	}
}

// Push records e, replacing the oldest event once the buffer is full. Extra
// is copied so callers may reuse their map.
func (r *RingBuffer) Push(e Event) {
	if e.Extra != nil {
		e.Extra = maps.Clone(e.Extra)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events[r.next] = e
	r.next++
	if r.next == len(r.events) {
		r.next = 0
		r.full = true
	}
	r.counters.add(e)
}

// ordered returns the buffered events oldest first. Callers hold r.mu.
func (r *RingBuffer) ordered() []Event {
	if !r.full {
		return slices.Clone(r.events[:r.next])
	}
	return append(slices.Clone(r.events[r.next:]), r.events[:r.next]...)
}

// Last returns up to n of the newest events, oldest first.
func (r *RingBuffer) Last(n int) []Event {
	if n <= 0 {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	all := r.ordered()
	if len(all) == 0 {
		return nil
	}
	if n < len(all) {
		all = all[len(all)-n:]
	}
	return all
}

// Request returns the buffered events of one decode or fusion, oldest
// first. An empty rid matches nothing.
func (r *RingBuffer) Request(rid string) []Event {
	if rid == "" {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Event
	for _, e := range r.ordered() {
		if e.RequestID == rid {
			out = append(out, e)
		}
	}
	return out
}

// Counters returns a copy of the session totals.
func (r *RingBuffer) Counters() Counters {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := r.counters
	c.Scenes = maps.Clone(r.counters.Scenes)
	return c
}

// Len is the number of buffered events.
func (r *RingBuffer) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.full {
		return len(r.events)
	}
	return r.next
}

// Cap is the buffer capacity.
func (r *RingBuffer) Cap() int {
	return len(r.events)
}
