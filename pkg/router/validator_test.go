package router

import (
	"errors"
	"strings"
	"testing"
)

func validationErrors(t *testing.T, err error) []ValidationError {
	t.Helper()
	if err == nil {
		return nil
	}
	var multi *MultiValidationError
	if !errors.As(err, &multi) {
		t.Fatalf("expected *MultiValidationError, got %T", err)
	}
	return multi.Errors
}

func TestValidateCleanTree(t *testing.T) {
	if err := Validate(testRoutes()); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}
}

func TestValidateDuplicatePaths(t *testing.T) {
	defs := []RouteDefinition{
		{Path: "/about", Component: "A"},
		{Path: "/team", Component: "Layout", Children: []RouteDefinition{
			{Path: "../about", Component: "B"},
		}},
		{Path: "/about/", Component: "C"},
	}

	errs := validationErrors(t, Validate(defs))
	if len(errs) != 1 {
		t.Fatalf("got %d errors, want 1: %v", len(errs), errs)
	}
	e := errs[0]
	if e.Type != ErrorDuplicatePath || e.Path != "/about" {
		t.Errorf("error = %+v", e)
	}
	want := []string{"routes[0]", "routes[1].children[0]", "routes[2]"}
	if !equalStrings(e.Trails, want) {
		t.Errorf("Trails = %v, want %v", e.Trails, want)
	}
}

func TestValidateIndexChildIsNotDuplicate(t *testing.T) {
	defs := []RouteDefinition{
		{Path: "/users", Component: "Layout", Children: []RouteDefinition{
			{Path: "", Component: "List"},
			{Path: "/", Component: "AlsoIndex"},
		}},
	}

	errs := validationErrors(t, Validate(defs))
	if len(errs) != 1 {
		t.Fatalf("got %d errors, want 1: %v", len(errs), errs)
	}
	// The parent is exempt; two index children still collide with each other.
	if errs[0].Type != ErrorDuplicatePath || len(errs[0].Trails) != 2 {
		t.Errorf("error = %+v", errs[0])
	}
}

func TestValidateInvalidPaths(t *testing.T) {
	defs := []RouteDefinition{
		{Path: "/ok", Component: "A"},
		{Path: "/bad\\path", Component: "B", Children: []RouteDefinition{
			{Path: "child", Component: "C"},
		}},
		{Path: "/../escape", Component: "D"},
	}

	errs := validationErrors(t, Validate(defs))
	var invalid []string
	for _, e := range errs {
		if e.Type == ErrorInvalidPath {
			invalid = append(invalid, e.Trails[0])
		}
	}
	want := []string{"routes[2]", "routes[1]", "routes[1].children[0]"}
	if len(invalid) != len(want) {
		t.Fatalf("invalid trails = %v, want %v", invalid, want)
	}
	for _, w := range want {
		found := false
		for _, got := range invalid {
			if got == w {
				found = true
			}
		}
		if !found {
			t.Errorf("missing invalid path error for %s", w)
		}
	}
}

func TestValidateEmptyRoute(t *testing.T) {
	defs := []RouteDefinition{
		{Path: "/empty"},
		{Path: "/layout", Children: []RouteDefinition{{Path: "x", Component: "X"}}},
		{Path: "/named", Components: map[string]Component{"side": "S"}},
	}

	errs := validationErrors(t, Validate(defs))
	if len(errs) != 1 || errs[0].Type != ErrorEmptyRoute || errs[0].Path != "/empty" {
		t.Errorf("errors = %v, want one EMPTY_ROUTE for /empty", errs)
	}
}

func TestValidateErrorsSortedByPath(t *testing.T) {
	defs := []RouteDefinition{
		{Path: "/z"},
		{Path: "/a"},
		{Path: "/m"},
	}
	errs := validationErrors(t, Validate(defs))
	var paths []string
	for _, e := range errs {
		paths = append(paths, e.Path)
	}
	if !equalStrings(paths, []string{"/a", "/m", "/z"}) {
		t.Errorf("paths = %v", paths)
	}
}

func TestMultiValidationErrorMessage(t *testing.T) {
	single := &MultiValidationError{Errors: []ValidationError{{Type: ErrorEmptyRoute, Message: "m"}}}
	if single.Error() != "EMPTY_ROUTE: m" {
		t.Errorf("single Error() = %q", single.Error())
	}

	multi := &MultiValidationError{Errors: []ValidationError{
		{Type: ErrorEmptyRoute, Message: "one"},
		{Type: ErrorDuplicatePath, Message: "two", Details: "d"},
	}}
	msg := multi.Error()
	if !strings.Contains(msg, "2 route validation errors") || !strings.Contains(msg, "DUPLICATE_PATH: two (d)") {
		t.Errorf("multi Error() = %q", msg)
	}

	if (&MultiValidationError{}).Error() != "no validation errors" {
		t.Error("empty Error() mismatch")
	}
}

func TestFormatValidationError(t *testing.T) {
	out := FormatValidationError(ValidationError{
		Type:    ErrorDuplicatePath,
		Message: "Duplicate route path /about",
		Path:    "/about",
		Trails:  []string{"routes[0]", "routes[2]"},
		Details: "Defined at: routes[0], routes[2]",
	})

	for _, want := range []string{"ERROR: Duplicate route path /about", "routes[0] → /about", "routes[2] → /about", "Details:"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}
