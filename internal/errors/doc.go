// Package errors provides structured, actionable error messages for the
// waypoint command.
//
// Every error carries a registered code, a short message, an optional source
// location inside a manifest or config file, and a hint on how to fix it.
//
// # Error Categories
//
// Errors are organized into categories:
//   - config: waypoint.json problems
//   - manifest: route manifest parse, guard and tree problems
//   - navigation: failed navigations reported by simulate and resolve
//   - protocol: browser connection problems
//   - cli: command usage and server startup problems
//
// # Usage
//
//	err := errors.New("E121").
//	    WithLocation("routes.yaml", 12, 14).
//	    WithSuggestion("Guard expressions must return true, false or a path string")
//
//	fmt.Println(err.Format())
//	// Output:
//	// ERROR E121: Invalid guard expression
//	//
//	//   routes.yaml:12:14
//	//
//	//     11 │   - path: /admin
//	//   → 12 │     guard: vars.user ||
//	//        │              ^
//	//     13 │     component: Admin
//	//
//	//   Hint: Guard expressions must return true, false or a path string
package errors
