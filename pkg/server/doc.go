// Package server exposes a route table over HTTP and drives one router per
// connected browser.
//
// # Architecture
//
//   - Server: chi router, WebSocket upgrade and graceful shutdown
//   - connections: the set of live browser stores, closed on shutdown
//   - RouteInfo and Resolution: JSON views of the route table
//
// # Connection Lifecycle
//
// Each WebSocket connection becomes a history.Socket. The server builds a
// router over it from the current route definitions, runs the initial
// navigation to the path the browser reported, then follows pop frames
// until the browser disconnects:
//
//	browser                server
//	  | {"type":"hello"} ---> |  history.Accept
//	  |                       |  router.New + Start
//	  | <--- {"type":"replace"}
//	  | {"type":"pop"} -----> |  router syncs, guards run
//	  | <--- {"type":"replace"}  (guard redirect)
//
// # Endpoints
//
//	GET /ws       browser location store
//	GET /routes   flattened route table
//	GET /resolve  ?path= resolution without navigating
//	GET /metrics  Prometheus metrics (when enabled)
//	GET /healthz  liveness
//
// SetRoutes swaps the route table. Connections opened afterwards use the new
// table; existing connections keep the table they started with.
package server
