package server

import (
	"sort"

	"github.com/vango-dev/waypoint/pkg/router"
)

// RouteInfo is the JSON view of one match record.
type RouteInfo struct {
	ID         int            `json:"id"`
	Path       string         `json:"path"`
	Name       string         `json:"name,omitempty"`
	Depth      int            `json:"depth"`
	Parent     string         `json:"parent,omitempty"`
	Components []string       `json:"components"`
	Guarded    bool           `json:"guarded,omitempty"`
	Meta       map[string]any `json:"meta,omitempty"`
}

// Resolution is the JSON view of a resolved location.
type Resolution struct {
	Path     string         `json:"path"`
	FullPath string         `json:"fullPath"`
	Found    bool           `json:"found"`
	Matched  []RouteInfo    `json:"matched"`
	Meta     map[string]any `json:"meta,omitempty"`
}

// DescribeRoutes lists every record in registration order.
func DescribeRoutes(m *router.Matcher) []RouteInfo {
	records := m.Records()
	out := make([]RouteInfo, 0, len(records))
	for _, rec := range records {
		out = append(out, describeRecord(m, rec))
	}
	return out
}

// DescribeLocation renders a resolved location.
func DescribeLocation(m *router.Matcher, loc *router.Location) Resolution {
	res := Resolution{
		Path:     loc.Path,
		FullPath: loc.FullPath,
		Found:    loc.Found(),
		Matched:  make([]RouteInfo, 0, len(loc.Matched)),
	}
	for _, rec := range loc.Matched {
		res.Matched = append(res.Matched, describeRecord(m, rec))
	}
	if meta := loc.Meta(); len(meta) > 0 {
		res.Meta = meta
	}
	return res
}

func describeRecord(m *router.Matcher, rec *router.MatchRecord) RouteInfo {
	info := RouteInfo{
		ID:         int(rec.ID),
		Path:       rec.FullPath,
		Name:       rec.Name,
		Depth:      m.Depth(rec.ID),
		Components: make([]string, 0, len(rec.Components)),
		Guarded:    rec.BeforeEnter != nil,
	}
	if parent, err := m.Record(rec.Parent); err == nil {
		info.Parent = parent.FullPath
	}
	for name := range rec.Components {
		info.Components = append(info.Components, name)
	}
	sort.Strings(info.Components)
	if len(rec.Meta) > 0 {
		info.Meta = rec.Meta
	}
	return info
}
