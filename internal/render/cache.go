package render

import (
	"encoding/json"

	"golang.org/x/crypto/blake2b"

	"github.com/closset/vectorcore/internal/document"
)

const DefaultCacheSize = 1024

// Cache memoizes path data by a hash of the path geometry. It is cleared
// wholesale, never entry by entry. Returned slices are shared and must not
// be modified.
type Cache struct {
	entries map[[32]byte][]PathCommand
	limit   int
	hits    int
	misses  int
}

func NewCache(limit int) *Cache {
	if limit <= 0 {
		limit = DefaultCacheSize
	}
	return &Cache{entries: make(map[[32]byte][]PathCommand), limit: limit}
}

// PathData returns the path commands for p, computing them on a miss.
func (c *Cache) PathData(p *document.VectorPath) []PathCommand {
	if p == nil {
		return nil
	}
	key, ok := geometryKey(p)
	if !ok {
		return PathData(p)
	}
	if data, ok := c.entries[key]; ok {
		c.hits++
		return data
	}
	c.misses++
	data := PathData(p)
	if len(c.entries) >= c.limit {
		c.Clear()
	}
	c.entries[key] = data
	return data
}

// Clear drops every entry.
func (c *Cache) Clear() {
	clear(c.entries)
}

func (c *Cache) Len() int { return len(c.entries) }

// Stats returns the hit and miss counts since creation.
func (c *Cache) Stats() (hits, misses int) {
	return c.hits, c.misses
}

func geometryKey(p *document.VectorPath) ([32]byte, bool) {
	data, err := json.Marshal(struct {
		Points []document.VectorPoint `json:"p"`
		Closed bool                   `json:"c"`
	}{p.Points, p.Closed})
	if err != nil {
		// non-finite coordinates cannot be encoded
		return [32]byte{}, false
	}
	return blake2b.Sum256(data), true
}
