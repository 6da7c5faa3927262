package router

import "github.com/vango-dev/waypoint/pkg/routepath"

// Resolve maps a target to a Location. It never fails: a target that matches
// no record, or that cannot be canonicalized, resolves with an empty Matched
// chain.
func (m *Matcher) Resolve(target Target) *Location {
	return m.resolveRaw(target.normalize())
}

func (m *Matcher) resolveRaw(raw RawLocation) *Location {
	path, query := routepath.SplitPathAndQuery(raw.Path)
	if res, err := routepath.CanonicalizePath(raw.Path); err == nil {
		path, query = res.Path, res.Query
	}

	loc := &Location{
		Path:     path,
		FullPath: path,
		Matched:  []*MatchRecord{},
		Query:    map[string]string{},
		Params:   map[string]string{},
	}
	if query != "" {
		loc.FullPath = path + "?" + query
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.byPath[path]
	if !ok {
		return loc
	}

	// Walk leaf to root, then reverse so depth 0 is the outermost record.
	for rec := m.records[id]; ; rec = m.records[rec.Parent] {
		loc.Matched = append(loc.Matched, rec)
		if rec.Parent == NoRecord {
			break
		}
	}
	for i, j := 0, len(loc.Matched)-1; i < j; i, j = i+1, j-1 {
		loc.Matched[i], loc.Matched[j] = loc.Matched[j], loc.Matched[i]
	}
	return loc
}
