package zwebgpu

import (
	"fmt"
	"sort"
	"sync"
)

// Difficulty grades a catalog entry.
type Difficulty int

// Difficulty levels.
const (
	DifficultyBeginner Difficulty = iota
	DifficultyIntermediate
	DifficultyAdvanced
)

// String returns the difficulty name.
func (d Difficulty) String() string {
	switch d {
	case DifficultyIntermediate:
		return "intermediate"
	case DifficultyAdvanced:
		return "advanced"
	default:
		return "beginner"
	}
}

// CatalogEntry is static demo metadata. Entries are pure
// configuration, never computed.
type CatalogEntry struct {
	// ID uniquely identifies the demo, e.g. "life".
	ID string

	// Title is the human-readable name.
	Title string

	// Category groups related demos, e.g. "simulation".
	Category string

	// Difficulty grades the demo for the gallery listing.
	Difficulty Difficulty

	// Route is the gallery path the demo is served under.
	Route string
}

// DemoFactory creates a fresh demo instance. Each mount gets its own
// instance; demos are never shared across mounts.
type DemoFactory func() Demo

var (
	catalogMu sync.RWMutex
	catalog   = make(map[string]catalogItem)
)

type catalogItem struct {
	entry   CatalogEntry
	factory DemoFactory
}

// RegisterDemo adds a demo to the catalog. Typically called from
// init() in demo packages. Duplicate or empty IDs are rejected.
func RegisterDemo(entry CatalogEntry, factory DemoFactory) error {
	if entry.ID == "" {
		return fmt.Errorf("zwebgpu: demo registration with empty ID (title %q)", entry.Title)
	}
	if factory == nil {
		return fmt.Errorf("zwebgpu: demo %q registered with nil factory", entry.ID)
	}
	catalogMu.Lock()
	defer catalogMu.Unlock()
	if _, ok := catalog[entry.ID]; ok {
		return fmt.Errorf("zwebgpu: demo %q already registered", entry.ID)
	}
	catalog[entry.ID] = catalogItem{entry: entry, factory: factory}
	return nil
}

// MustRegisterDemo is RegisterDemo that panics on error, for use from
// package init().
func MustRegisterDemo(entry CatalogEntry, factory DemoFactory) {
	if err := RegisterDemo(entry, factory); err != nil {
		panic(err)
	}
}

// UnregisterDemo removes a demo from the catalog. Useful for testing.
func UnregisterDemo(id string) {
	catalogMu.Lock()
	defer catalogMu.Unlock()
	delete(catalog, id)
}

// NewDemo instantiates the demo registered under id.
func NewDemo(id string) (Demo, error) {
	catalogMu.RLock()
	item, ok := catalog[id]
	catalogMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("zwebgpu: unknown demo %q", id)
	}
	return item.factory(), nil
}

// Entries returns all catalog entries sorted by ID.
func Entries() []CatalogEntry {
	catalogMu.RLock()
	defer catalogMu.RUnlock()
	out := make([]CatalogEntry, 0, len(catalog))
	for _, item := range catalog {
		out = append(out, item.entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// EntriesByCategory returns the entries in one category, sorted by ID.
func EntriesByCategory(category string) []CatalogEntry {
	all := Entries()
	out := all[:0]
	for _, e := range all {
		if e.Category == category {
			out = append(out, e)
		}
	}
	return out
}
