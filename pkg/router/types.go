package router

// DefaultView is the name of the view slot filled from RouteDefinition.Component.
const DefaultView = "default"

// Component is an opaque reference to whatever a renderer draws for a view
// slot. The router never inspects it.
type Component any

// RouteDefinition is a user-authored route, possibly nested.
type RouteDefinition struct {
	// Path is the segment this route adds to its parent's full path.
	// A leading slash is optional for children.
	Path string

	// Name is an optional label used in logs and listings.
	Name string

	// Component fills the default view slot.
	Component Component

	// Components maps named view slots to components. An entry for
	// DefaultView takes precedence over Component.
	Components map[string]Component

	// BeforeEnter runs when navigation enters this route from outside it.
	BeforeEnter Guard

	// Children are nested routes rendered inside this one.
	Children []RouteDefinition

	// Meta is an arbitrary metadata bag copied onto the match record.
	Meta map[string]any
}

// RecordID identifies a MatchRecord inside its Matcher's arena.
type RecordID int

// NoRecord is the parent of top-level records.
const NoRecord RecordID = -1

// MatchRecord is the normalized, flattened form of one RouteDefinition.
// Records are immutable once created; parent and child relations are arena
// indices.
type MatchRecord struct {
	// ID is the record's index in its Matcher.
	ID RecordID

	// FullPath is the canonical path formed from every ancestor segment.
	FullPath string

	// Name is copied from the definition.
	Name string

	// Components maps view slot names to components. DefaultView is
	// always present (it may hold a nil component).
	Components map[string]Component

	// Parent is the enclosing record, or NoRecord.
	Parent RecordID

	// BeforeEnter is the per-route entry guard, if any.
	BeforeEnter Guard

	// Meta is never nil.
	Meta map[string]any
}

// View returns the component for a named view slot.
func (r *MatchRecord) View(name string) Component {
	return r.Components[name]
}

// Location is the outcome of resolving a navigation target.
type Location struct {
	// Path is the canonical path that was looked up.
	Path string

	// FullPath is Path plus "?query" when the target carried a query. It is
	// what gets written to the location store.
	FullPath string

	// Matched holds every active record, outermost first. A renderer at
	// nesting depth d draws Matched[d]. Empty when nothing matched.
	Matched []*MatchRecord

	// Query is reserved and always empty.
	Query map[string]string

	// Params is reserved and always empty.
	Params map[string]string
}

// Found reports whether the location matched a record.
func (l *Location) Found() bool {
	return len(l.Matched) > 0
}

// Leaf returns the innermost matched record, or nil.
func (l *Location) Leaf() *MatchRecord {
	if len(l.Matched) == 0 {
		return nil
	}
	return l.Matched[len(l.Matched)-1]
}

// Meta merges the meta bags of every matched record, inner records winning.
func (l *Location) Meta() map[string]any {
	merged := make(map[string]any)
	for _, rec := range l.Matched {
		for k, v := range rec.Meta {
			merged[k] = v
		}
	}
	return merged
}

// StartLocation is the sentinel current route of a router that has not
// committed any navigation yet.
var StartLocation = &Location{
	Path:     "/",
	FullPath: "/",
	Matched:  []*MatchRecord{},
	Query:    map[string]string{},
	Params:   map[string]string{},
}

// RawLocation is a navigation target given as a structure.
type RawLocation struct {
	// Path may contain a "?query" suffix.
	Path string

	// Replace requests replace semantics for this navigation.
	Replace bool
}

// Target is a navigation intent. It is built with PathTarget or
// LocationTarget and normalized once where it enters the router.
type Target struct {
	kind targetKind
	path string
	raw  RawLocation
}

type targetKind uint8

const (
	targetPath targetKind = iota
	targetLocation
)

// PathTarget creates a target from a bare path.
func PathTarget(path string) Target {
	return Target{kind: targetPath, path: path}
}

// LocationTarget creates a target from a RawLocation.
func LocationTarget(loc RawLocation) Target {
	return Target{kind: targetLocation, raw: loc}
}

// normalize collapses either intent form into a RawLocation.
func (t Target) normalize() RawLocation {
	if t.kind == targetLocation {
		return t.raw
	}
	return RawLocation{Path: t.path}
}
