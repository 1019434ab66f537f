// Package cache is a small JSON-blob-backed result cache for
// client.Conn: a debug aid that remembers the last few Eval results so a
// caller (or the rconn CLI) can inspect them without a round trip.
package cache

import (
	"os"
	"sync"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// DefaultMaxEntries bounds the cache when New is given maxEntries <= 0.
const DefaultMaxEntries = 128

// Cache maps expression strings to their last rendered result. It holds
// at most maxEntries entries, evicting the oldest on overflow.
type Cache struct {
	path string
	max  int

	mu     sync.Mutex
	values []byte
	order  []string // insertion order, oldest first
}

// New constructs a Cache. path is where Backup/Restore persist the
// cache's JSON blob; an empty path makes both a no-op, leaving the
// cache purely in-memory for the lifetime of the process.
func New(path string, maxEntries int) *Cache {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &Cache{
		path:   path,
		max:    maxEntries,
		values: []byte("{}"),
	}
}

// Set stores rendered under key expr, evicting the oldest entry if the
// cache is now over capacity.
func (c *Cache) Set(expr, rendered string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.indexOf(expr); !ok {
		c.order = append(c.order, expr)
	}

	values, err := sjson.SetBytes(c.values, expr, rendered)
	if err != nil {
		return
	}
	c.values = values

	for len(c.order) > c.max {
		oldest := c.order[0]
		c.order = c.order[1:]
		if values, err := sjson.DeleteBytes(c.values, oldest); err == nil {
			c.values = values
		}
	}
}

// Get returns the last rendered result for expr, if present.
func (c *Cache) Get(expr string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	result := gjson.GetBytes(c.values, expr)
	if !result.Exists() {
		return "", false
	}
	return result.String(), true
}

// Backup persists the cache's JSON blob to path. A no-op if path is empty.
func (c *Cache) Backup() error {
	if c.path == "" {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	return os.WriteFile(c.path, c.values, 0o600)
}

// Restore loads the cache's JSON blob from path, replacing any entries
// currently held. A missing file is not an error. A no-op if path is
// empty.
func (c *Cache) Restore() error {
	if c.path == "" {
		return nil
	}

	data, err := os.ReadFile(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.values = data
	c.order = c.order[:0]
	gjson.ParseBytes(data).ForEach(func(key, _ gjson.Result) bool {
		c.order = append(c.order, key.String())
		return true
	})

	return nil
}

func (c *Cache) indexOf(expr string) (int, bool) {
	for i, k := range c.order {
		if k == expr {
			return i, true
		}
	}
	return -1, false
}
