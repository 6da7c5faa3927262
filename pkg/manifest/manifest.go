// Package manifest loads route trees from YAML or JSON documents.
//
// A manifest describes routes declaratively. Components are names that a
// renderer maps to real views, and per-route guards are expressions compiled
// with expr-lang:
//
//	routes:
//	  - path: /
//	    component: Home
//	  - path: /admin
//	    component: AdminLayout
//	    meta: {requiresAuth: true}
//	    guard: 'vars.loggedIn ? true : "/login"'
//	    children:
//	      - path: users
//	        component: Users
package manifest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/vango-dev/waypoint/pkg/router"
)

// Format is a manifest encoding.
type Format int

const (
	// FormatAuto picks JSON when the document starts with '{', else YAML.
	FormatAuto Format = iota
	FormatYAML
	FormatJSON
)

// String returns the format name.
func (f Format) String() string {
	switch f {
	case FormatYAML:
		return "yaml"
	case FormatJSON:
		return "json"
	default:
		return "auto"
	}
}

// FormatFromPath infers a format from a file extension.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	case ".json":
		return FormatJSON
	default:
		return FormatAuto
	}
}

// Manifest is a serialized route tree.
type Manifest struct {
	Routes []Route `yaml:"routes" json:"routes"`
}

// Route is one manifest entry.
type Route struct {
	Path       string            `yaml:"path" json:"path"`
	Name       string            `yaml:"name,omitempty" json:"name,omitempty"`
	Component  string            `yaml:"component,omitempty" json:"component,omitempty"`
	Components map[string]string `yaml:"components,omitempty" json:"components,omitempty"`
	Meta       map[string]any    `yaml:"meta,omitempty" json:"meta,omitempty"`

	// Guard is an expression run as the route's BeforeEnter guard.
	Guard string `yaml:"guard,omitempty" json:"guard,omitempty"`

	Children []Route `yaml:"children,omitempty" json:"children,omitempty"`
}

// Parse decodes a manifest. Unknown fields are rejected in both formats.
func Parse(data []byte, format Format) (*Manifest, error) {
	if format == FormatAuto {
		format = sniff(data)
	}

	var m Manifest
	if format == FormatJSON {
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&m); err != nil {
			return nil, fmt.Errorf("manifest: parse %s: %w", format, err)
		}
		return &m, nil
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		if errors.Is(err, io.EOF) {
			return &m, nil
		}
		return nil, fmt.Errorf("manifest: parse %s: %w", format, err)
	}
	return &m, nil
}

func sniff(data []byte) Format {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		return FormatJSON
	}
	return FormatYAML
}

// Marshal encodes a manifest as YAML.
func (m *Manifest) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(m); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Definitions converts the manifest into route definitions. Guards are
// compiled with c; a nil c uses a Compiler without variables.
func (m *Manifest) Definitions(c *Compiler) ([]router.RouteDefinition, error) {
	if c == nil {
		c = NewCompiler()
	}
	defs := make([]router.RouteDefinition, 0, len(m.Routes))
	for i, r := range m.Routes {
		def, err := r.definition(c, fmt.Sprintf("routes[%d]", i))
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	return defs, nil
}

func (r Route) definition(c *Compiler, trail string) (router.RouteDefinition, error) {
	def := router.RouteDefinition{
		Path: r.Path,
		Name: r.Name,
		Meta: r.Meta,
	}
	if r.Component != "" {
		def.Component = r.Component
	}
	if len(r.Components) > 0 {
		def.Components = make(map[string]router.Component, len(r.Components))
		for slot, name := range r.Components {
			def.Components[slot] = name
		}
	}

	if r.Guard != "" {
		guard, err := c.Compile(r.Guard, r.Meta)
		if err != nil {
			return def, fmt.Errorf("%s: %w", trail, err)
		}
		def.BeforeEnter = guard
	}

	for i, child := range r.Children {
		childDef, err := child.definition(c, fmt.Sprintf("%s.children[%d]", trail, i))
		if err != nil {
			return def, err
		}
		def.Children = append(def.Children, childDef)
	}
	return def, nil
}
