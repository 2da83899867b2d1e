package lexicon

import (
	"sync/atomic"

	"github.com/abelbrown/decoder/internal/logging"
)

// Cache publishes an immutable *Tables to concurrent readers.
// Readers never lock; Refresh swaps in a new pointer. Callers must not
// mutate the value returned by Load.
type Cache struct {
	p    atomic.Pointer[Tables]
	path string // optional YAML override, "" for defaults only
}

// NewCache creates a cache seeded with t (defaults if nil).
func NewCache(t *Tables) *Cache {
	if t == nil {
		t = Default()
	}
	c := &Cache{}
	c.p.Store(t)
	return c
}

// NewFileCache creates a cache backed by a YAML override file. A missing or
// malformed file leaves the defaults in place and is logged.
func NewFileCache(path string) *Cache {
	c := NewCache(nil)
	c.path = path
	if path != "" {
		if err := c.Refresh(); err != nil {
			logging.Warn("Lexicon override not loaded, using defaults", "path", path, "error", err)
		}
	}
	return c
}

// Load returns the current tables.
func (c *Cache) Load() *Tables {
	return c.p.Load()
}

// Store replaces the current tables.
func (c *Cache) Store(t *Tables) {
	if t == nil {
		return
	}
	c.p.Store(t)
}

// Refresh reloads the override file. On error the previous tables stay.
func (c *Cache) Refresh() error {
	if c.path == "" {
		return nil
	}
	t, err := LoadFile(c.path)
	if err != nil {
		return err
	}
	c.p.Store(t)
	logging.Debug("Lexicon refreshed", "path", c.path, "scenes", len(t.Scenes), "emotions", len(t.Emotions))
	return nil
}
