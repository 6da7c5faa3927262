// Package router resolves route trees and drives navigations.
//
// The package has three parts:
//   - A Matcher that flattens a tree of RouteDefinitions into immutable
//     MatchRecords held in an arena, with parent links as RecordIDs
//   - Resolution of a path to a Location whose Matched chain is ordered
//     outermost first, so a renderer at depth d draws Matched[d]
//   - A Router that owns the current Location and moves it through a
//     guarded pipeline, keeping a LocationStore in sync
//
// # Route Trees
//
//	routes := []router.RouteDefinition{
//	    {Path: "/", Component: Home},
//	    {Path: "/admin", Component: AdminLayout, Children: []router.RouteDefinition{
//	        {Path: "/users", Component: Users}, // full path /admin/users
//	    }},
//	}
//
// Paths are matched by exact string equality after canonicalization; there
// are no parameters or wildcards.
//
// # Navigation
//
// Every navigation runs REQUESTED → RESOLVED → GUARDED → COMMITTED, or ends
// ABORTED. Guards run in three phases: BeforeEach guards, the BeforeEnter
// guard of each record being entered, then BeforeResolve guards. The first
// guard that returns Abort or Redirect ends the phase chain.
//
// The first commit replaces the store's entry (the router starts at
// StartLocation); later commits push unless replace was requested.
// Back/forward events reported by the store always replace.
//
//	r := router.New(history.NewMemory("/"), routes)
//	r.BeforeEach(func(ctx context.Context, to, from *router.Location) router.Decision {
//	    if to.Meta()["requiresAuth"] == true && !loggedIn(ctx) {
//	        return router.Redirect("/login")
//	    }
//	    return router.Continue()
//	})
//	if err := r.Start(ctx); err != nil { ... }
//	if err := r.Push(ctx, "/admin/users"); err != nil { ... }
//
// Only the most recently started navigation may commit. A slower, older
// navigation fails with ErrCancelled.
package router
