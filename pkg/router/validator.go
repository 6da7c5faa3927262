package router

import (
	"fmt"
	"sort"
	"strings"

	"github.com/vango-dev/waypoint/pkg/routepath"
)

// =============================================================================
// Route Tree Validation
// =============================================================================

// Validator checks a route tree for problems the Matcher does not detect.
// The Matcher accepts duplicate full paths silently (the first registered
// record wins and later ones are unreachable), so callers that want a hard
// failure validate first.
type Validator struct {
	defs   []RouteDefinition
	errors []ValidationError
}

// ValidationError represents a route validation error.
type ValidationError struct {
	// Type is the error category
	Type ValidationErrorType

	// Message is the human-readable error message
	Message string

	// Trails locate the offending definitions, e.g. "routes[1].children[0]"
	Trails []string

	// Path is the full path involved
	Path string

	// Details contains additional error-specific information
	Details string
}

func (e ValidationError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Type, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// ValidationErrorType categorizes validation errors.
type ValidationErrorType string

const (
	// ErrorDuplicatePath indicates several definitions normalize to one full path.
	ErrorDuplicatePath ValidationErrorType = "DUPLICATE_PATH"

	// ErrorInvalidPath indicates a full path that cannot be canonicalized,
	// making the route unreachable.
	ErrorInvalidPath ValidationErrorType = "INVALID_PATH"

	// ErrorEmptyRoute indicates a route that renders nothing and has no children.
	ErrorEmptyRoute ValidationErrorType = "EMPTY_ROUTE"
)

// MultiValidationError wraps multiple validation errors.
type MultiValidationError struct {
	Errors []ValidationError
}

func (e *MultiValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "no validation errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d route validation errors:\n", len(e.Errors)))
	for i, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// NewValidator creates a validator for a route tree.
func NewValidator(defs []RouteDefinition) *Validator {
	return &Validator{defs: defs}
}

// Validate is shorthand for NewValidator(defs).Validate().
func Validate(defs []RouteDefinition) error {
	return NewValidator(defs).Validate()
}

// flatDef is a definition with its computed full path and tree position.
type flatDef struct {
	def      RouteDefinition
	fullPath string
	trail    string
	valid    bool
}

// Validate checks the tree. It returns nil or a *MultiValidationError
// listing every problem, ordered by path.
func (v *Validator) Validate() error {
	v.errors = nil

	var flat []flatDef
	for i, def := range v.defs {
		flat = flatten(flat, def, "", true, fmt.Sprintf("routes[%d]", i))
	}

	v.validatePaths(flat)
	v.validateDuplicatePaths(flat)
	v.validateEmptyRoutes(flat)

	if len(v.errors) > 0 {
		sort.SliceStable(v.errors, func(i, j int) bool {
			return v.errors[i].Path < v.errors[j].Path
		})
		return &MultiValidationError{Errors: v.errors}
	}
	return nil
}

// flatten walks a definition depth-first. Descendants of an invalid path
// are still visited so their own problems are reported.
func flatten(out []flatDef, def RouteDefinition, parentPath string, parentValid bool, trail string) []flatDef {
	full, err := routepath.Join(parentPath, def.Path)
	valid := parentValid && err == nil
	if err != nil {
		full = parentPath + def.Path
	}
	out = append(out, flatDef{def: def, fullPath: full, trail: trail, valid: valid})
	for i, child := range def.Children {
		out = flatten(out, child, full, valid, fmt.Sprintf("%s.children[%d]", trail, i))
	}
	return out
}

// validatePaths reports definitions whose full path cannot be canonicalized.
func (v *Validator) validatePaths(flat []flatDef) {
	for _, f := range flat {
		if f.valid {
			continue
		}
		v.errors = append(v.errors, ValidationError{
			Type:    ErrorInvalidPath,
			Message: fmt.Sprintf("Route path %q is not a valid location path", f.fullPath),
			Path:    f.fullPath,
			Trails:  []string{f.trail},
		})
	}
}

// validateDuplicatePaths reports full paths produced by more than one
// definition. A parent and an index child with an empty segment share a
// path on purpose and are not reported.
func (v *Validator) validateDuplicatePaths(flat []flatDef) {
	byPath := make(map[string][]flatDef)
	for _, f := range flat {
		if f.valid {
			byPath[f.fullPath] = append(byPath[f.fullPath], f)
		}
	}

	for path, defs := range byPath {
		defs = withoutIndexChildren(defs)
		if len(defs) <= 1 {
			continue
		}
		trails := make([]string, len(defs))
		for i, f := range defs {
			trails[i] = f.trail
		}
		v.errors = append(v.errors, ValidationError{
			Type:    ErrorDuplicatePath,
			Message: fmt.Sprintf("Duplicate route path %s", path),
			Path:    path,
			Trails:  trails,
			Details: fmt.Sprintf("Defined at: %s", strings.Join(trails, ", ")),
		})
	}
}

// withoutIndexChildren drops the first definition with an empty segment
// under each parent that is also in defs. A second index child under the
// same parent is kept and reported.
func withoutIndexChildren(defs []flatDef) []flatDef {
	if len(defs) <= 1 {
		return defs
	}
	exempted := make(map[string]bool)
	kept := defs[:0:0]
	for _, f := range defs {
		if strings.Trim(f.def.Path, "/") == "" {
			if parent, ok := parentTrail(defs, f.trail); ok && !exempted[parent] {
				exempted[parent] = true
				continue
			}
		}
		kept = append(kept, f)
	}
	return kept
}

func parentTrail(defs []flatDef, trail string) (string, bool) {
	idx := strings.LastIndex(trail, ".children[")
	if idx < 0 {
		return "", false
	}
	parent := trail[:idx]
	for _, f := range defs {
		if f.trail == parent {
			return parent, true
		}
	}
	return "", false
}

// validateEmptyRoutes reports leaves that have nothing to render.
func (v *Validator) validateEmptyRoutes(flat []flatDef) {
	for _, f := range flat {
		if len(f.def.Children) > 0 || f.def.Component != nil || len(f.def.Components) > 0 {
			continue
		}
		v.errors = append(v.errors, ValidationError{
			Type:    ErrorEmptyRoute,
			Message: fmt.Sprintf("Route %s has no component and no children", f.fullPath),
			Path:    f.fullPath,
			Trails:  []string{f.trail},
		})
	}
}

// FormatValidationError formats a validation error for display.
//
//	ERROR: Duplicate route path /about
//	  routes[1] → /about
//	  routes[3] → /about
func FormatValidationError(err ValidationError) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("ERROR: %s\n", err.Message))
	for _, trail := range err.Trails {
		sb.WriteString(fmt.Sprintf("  %s → %s\n", trail, err.Path))
	}
	if err.Details != "" {
		sb.WriteString(fmt.Sprintf("  Details: %s\n", err.Details))
	}

	return sb.String()
}
