package router

import "context"

// Keys under which Install provides the router to a host.
const (
	RouterKey = "router"
	RouteKey  = "route"
)

// Host is a view or component system that can hand values to the things it
// renders.
type Host interface {
	Provide(key string, value any)
}

// CurrentRoute reads the router's current location on each call.
type CurrentRoute func() *Location

// Install provides the router under RouterKey and a CurrentRoute under
// RouteKey, then performs the initial navigation.
func (r *Router) Install(ctx context.Context, host Host) error {
	host.Provide(RouterKey, r)
	host.Provide(RouteKey, CurrentRoute(r.Current))
	return r.Start(ctx)
}
