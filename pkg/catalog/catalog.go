// Package catalog provides the string catalog all runtime diagnostics are
// rendered through. Catalogs are YAML documents mapping a tag to an array
// of strings; several catalogs can be layered, later ones overriding
// earlier entries.
package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultYAML []byte

// Catalog looks up localized strings by tag and index.
type Catalog interface {
	// Lookup returns entry index of array tag
	Lookup(tag string, index int) (string, bool)
	// TagPresent reports whether tag exists
	TagPresent(tag string) bool
	// ArrayCount returns the number of entries under tag, 0 if absent
	ArrayCount(tag string) int
}

// Table is an in-memory Catalog.
type Table struct {
	mu     sync.RWMutex
	arrays map[string][]string
}

// New returns an empty table.
func New() *Table {
	return &Table{arrays: make(map[string][]string)}
}

var (
	defaultOnce  sync.Once
	defaultTable *Table
)

// Default returns the built-in English catalog. The returned table is
// shared; layer overrides onto a Clone.
func Default() *Table {
	defaultOnce.Do(func() {
		defaultTable = New()
		if err := defaultTable.Parse(defaultYAML); err != nil {
			panic(fmt.Sprintf("catalog: embedded default is invalid: %v", err))
		}
	})
	return defaultTable
}

// Parse merges a YAML document into the table.
func (t *Table) Parse(data []byte) error {
	var doc map[string][]string
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("catalog: %w", err)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	for tag, entries := range doc {
		t.arrays[tag] = entries
	}
	return nil
}

// LoadFile merges the YAML catalog at path into the table.
func (t *Table) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("catalog: cannot read %s: %w", path, err)
	}
	if err := t.Parse(data); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// Set replaces the array under tag.
func (t *Table) Set(tag string, entries ...string) {
	t.mu.Lock()
	t.arrays[tag] = entries
	t.mu.Unlock()
}

// Clone returns an independent copy of the table.
func (t *Table) Clone() *Table {
	t.mu.RLock()
	defer t.mu.RUnlock()
	c := New()
	for tag, entries := range t.arrays {
		c.arrays[tag] = append([]string(nil), entries...)
	}
	return c
}

func (t *Table) Lookup(tag string, index int) (string, bool) {
	if t == nil {
		return "", false
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	entries, ok := t.arrays[tag]
	if !ok || index < 0 || index >= len(entries) {
		return "", false
	}
	return entries[index], true
}

func (t *Table) TagPresent(tag string) bool {
	if t == nil {
		return false
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.arrays[tag]
	return ok
}

func (t *Table) ArrayCount(tag string) int {
	if t == nil {
		return 0
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.arrays[tag])
}

// Format renders entry index of tag with args. When the catalog or the
// entry is missing it falls back to a minimal message that still carries
// the tag and index, so diagnostics never fail.
func Format(c Catalog, tag string, index int, args ...any) string {
	if c != nil {
		if s, ok := c.Lookup(tag, index); ok {
			if len(args) == 0 {
				return s
			}
			return fmt.Sprintf(s, args...)
		}
	}
	if len(args) == 0 {
		return fmt.Sprintf("%s #%d", tag, index)
	}
	return fmt.Sprintf("%s #%d %v", tag, index, args)
}
