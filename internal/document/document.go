package document

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Document is the set of paths edited in one session, in z-order (back to front).
type Document struct {
	ID    string        `json:"id"`
	Name  string        `json:"name"`
	Paths []*VectorPath `json:"paths"`
}

// NewDocument creates an empty document.
func NewDocument(id, name string) *Document {
	return &Document{ID: id, Name: name, Paths: []*VectorPath{}}
}

// Parse decodes a document from JSON and refreshes every path's bounds,
// since incoming bounds are never trusted.
func Parse(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	seen := make(map[string]bool, len(doc.Paths))
	paths := doc.Paths[:0]
	for _, p := range doc.Paths {
		if p == nil {
			continue
		}
		if p.ID == "" {
			return nil, errors.New("path without id")
		}
		if seen[p.ID] {
			return nil, fmt.Errorf("duplicate path id %q", p.ID)
		}
		seen[p.ID] = true
		p.RecomputeBounds()
		paths = append(paths, p)
	}
	doc.Paths = paths
	return &doc, nil
}

// Get returns the path with the given id.
func (d *Document) Get(id string) (*VectorPath, bool) {
	i := d.index(id)
	if i < 0 {
		return nil, false
	}
	return d.Paths[i], true
}

// Put stores p, replacing an existing path with the same id in place or
// appending it on top.
func (d *Document) Put(p *VectorPath) {
	if i := d.index(p.ID); i >= 0 {
		d.Paths[i] = p
		return
	}
	d.Paths = append(d.Paths, p)
}

// Insert places p at z-index i, clamped to the valid range.
func (d *Document) Insert(i int, p *VectorPath) {
	if j := d.index(p.ID); j >= 0 {
		d.Paths = append(d.Paths[:j], d.Paths[j+1:]...)
	}
	i = max(0, min(i, len(d.Paths)))
	d.Paths = append(d.Paths, nil)
	copy(d.Paths[i+1:], d.Paths[i:])
	d.Paths[i] = p
}

// Remove deletes the path and returns its former z-index, or -1.
func (d *Document) Remove(id string) int {
	i := d.index(id)
	if i < 0 {
		return -1
	}
	d.Paths = append(d.Paths[:i], d.Paths[i+1:]...)
	return i
}

// IndexOf returns the z-index of the path, or -1.
func (d *Document) IndexOf(id string) int {
	return d.index(id)
}

// Clone returns a deep copy of the document.
func (d *Document) Clone() *Document {
	c := &Document{ID: d.ID, Name: d.Name, Paths: make([]*VectorPath, len(d.Paths))}
	for i, p := range d.Paths {
		c.Paths[i] = p.Clone()
	}
	return c
}

func (d *Document) index(id string) int {
	for i, p := range d.Paths {
		if p.ID == id {
			return i
		}
	}
	return -1
}
