package router

import (
	"fmt"
	"sync"

	"github.com/vango-dev/waypoint/pkg/routepath"
)

// Matcher is a flat arena of match records built from a route tree.
//
// IDs are assigned pre-order so a child can point at its parent, but a record
// is registered post-order: after all of its descendants. Lookups go through
// a full-path index that keeps the first record registered for each path, so
// an index child with an empty segment shadows its parent's path.
type Matcher struct {
	mu       sync.RWMutex
	records  []*MatchRecord
	children [][]RecordID
	order    []RecordID
	byPath   map[string]RecordID
}

// NewMatcher creates an empty matcher.
func NewMatcher() *Matcher {
	return &Matcher{
		byPath: make(map[string]RecordID),
	}
}

// Build flattens a route tree into a new matcher.
func Build(defs []RouteDefinition) *Matcher {
	m := NewMatcher()
	m.AddRoutes(defs)
	return m
}

// AddRoutes adds top-level route definitions.
func (m *Matcher) AddRoutes(defs []RouteDefinition) {
	for _, def := range defs {
		m.AddRoute(def, NoRecord)
	}
}

// AddRoute adds a definition, and its children, under parent (NoRecord for
// top level). It returns the ID of the record created for def.
//
// A segment that cannot be canonicalized is kept verbatim; such a record is
// unreachable by navigation and Validate reports it. AddRoute panics if
// parent is neither NoRecord nor a record of m.
func (m *Matcher) AddRoute(def RouteDefinition, parent RecordID) RecordID {
	m.mu.Lock()
	defer m.mu.Unlock()
	if parent != NoRecord && (parent < 0 || int(parent) >= len(m.records)) {
		panic(fmt.Sprintf("router: AddRoute with unknown parent %d", parent))
	}
	return m.addRoute(def, parent)
}

func (m *Matcher) addRoute(def RouteDefinition, parent RecordID) RecordID {
	parentPath := ""
	if parent != NoRecord {
		parentPath = m.records[parent].FullPath
	}

	rec := normalizeRecord(def)
	rec.ID = RecordID(len(m.records))
	rec.Parent = parent
	rec.FullPath = fullPath(parentPath, def.Path)

	m.records = append(m.records, rec)
	m.children = append(m.children, nil)
	if parent != NoRecord {
		m.children[parent] = append(m.children[parent], rec.ID)
	}

	for _, child := range def.Children {
		m.addRoute(child, rec.ID)
	}

	m.order = append(m.order, rec.ID)
	if _, exists := m.byPath[rec.FullPath]; !exists {
		m.byPath[rec.FullPath] = rec.ID
	}
	return rec.ID
}

// normalizeRecord fills the defaults a definition may leave out.
func normalizeRecord(def RouteDefinition) *MatchRecord {
	components := map[string]Component{DefaultView: def.Component}
	for name, c := range def.Components {
		components[name] = c
	}

	meta := make(map[string]any, len(def.Meta))
	for k, v := range def.Meta {
		meta[k] = v
	}

	return &MatchRecord{
		Name:        def.Name,
		Components:  components,
		BeforeEnter: def.BeforeEnter,
		Meta:        meta,
	}
}

// fullPath joins a segment onto its parent's path, falling back to plain
// concatenation when the joined path is not canonicalizable.
func fullPath(parentPath, segment string) string {
	joined, err := routepath.Join(parentPath, segment)
	if err != nil {
		return parentPath + segment
	}
	return joined
}

// Lookup returns the record registered for an exact full path.
func (m *Matcher) Lookup(path string) (*MatchRecord, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byPath[path]
	if !ok {
		return nil, false
	}
	return m.records[id], true
}

// Record returns the record with the given ID.
func (m *Matcher) Record(id RecordID) (*MatchRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if id < 0 || int(id) >= len(m.records) {
		return nil, fmt.Errorf("router: no record %d", id)
	}
	return m.records[id], nil
}

// Records returns every record in registration (post-order) order.
func (m *Matcher) Records() []*MatchRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*MatchRecord, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.records[id])
	}
	return out
}

// Len returns the number of records.
func (m *Matcher) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

// Children returns the direct children of a record in definition order.
func (m *Matcher) Children(id RecordID) []*MatchRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if id < 0 || int(id) >= len(m.children) {
		return nil
	}
	out := make([]*MatchRecord, 0, len(m.children[id]))
	for _, child := range m.children[id] {
		out = append(out, m.records[child])
	}
	return out
}

// Depth returns how many ancestors a record has (0 for top level), or -1
// when id names no record.
func (m *Matcher) Depth(id RecordID) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if id < 0 || int(id) >= len(m.records) {
		return -1
	}
	depth := 0
	for rec := m.records[id]; rec.Parent != NoRecord; rec = m.records[rec.Parent] {
		depth++
	}
	return depth
}
