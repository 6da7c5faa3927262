package router

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/vango-dev/waypoint/pkg/routepath"
)

// DefaultMaxRedirects bounds how many guard redirects one Push may follow.
const DefaultMaxRedirects = 10

// ErrTraversalUnsupported is returned by Go, Back and Forward when the
// location store cannot move through its history.
var ErrTraversalUnsupported = errors.New("location store does not support traversal")

// ErrUnknownParent is returned by AddRoute when the parent path has no record.
var ErrUnknownParent = errors.New("unknown parent route")

// LocationStore is the subsystem of record for the actual location, such as
// a browser's history or an in-memory stack.
type LocationStore interface {
	// Location returns the current path.
	Location() string

	// Push appends a history entry.
	Push(path string) error

	// Replace overwrites the current history entry.
	Replace(path string) error

	// Listen registers fn to be called with the new path whenever the
	// location changes from outside the router (back/forward). The returned
	// function removes the listener.
	Listen(fn func(path string)) (stop func())
}

// traverser is implemented by stores that can move through their history.
type traverser interface {
	Go(delta int) error
}

// Option configures a Router.
type Option func(*Router)

// WithLogger sets the router's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Router) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithMiddleware wraps every navigation attempt in mw, first outermost.
func WithMiddleware(mw ...Middleware) Option {
	return func(r *Router) {
		r.middleware = append(r.middleware, mw...)
	}
}

// WithMaxRedirects overrides DefaultMaxRedirects.
func WithMaxRedirects(n int) Option {
	return func(r *Router) {
		if n >= 0 {
			r.maxRedirects = n
		}
	}
}

type watcher struct {
	id int
	fn func(to, from *Location)
}

// Router owns the current route and drives every change to it.
//
// All navigations, whether caller-initiated or reported by the location
// store, go through the same pipeline: resolve, run guards, then commit. The
// current route is assigned only by the commit step, and only by the most
// recently started navigation; an older navigation still running its guards
// fails with ErrCancelled instead of committing.
type Router struct {
	matcher      *Matcher
	store        LocationStore
	logger       *slog.Logger
	middleware   []Middleware
	maxRedirects int
	initial      string

	mu            sync.Mutex
	current       *Location
	beforeEach    []Guard
	beforeResolve []Guard
	afterEach     []AfterHook
	watchers      []watcher
	nextWatcher   int
	seq           uint64
	ready         bool
	closed        bool
	stopListening func()
}

// New creates a router over store for the given route tree. The store's
// current location is read here and becomes the target of Start.
func New(store LocationStore, defs []RouteDefinition, opts ...Option) *Router {
	initial := store.Location()
	if initial == "" {
		initial = "/"
	}
	r := &Router{
		matcher:      Build(defs),
		store:        store,
		logger:       slog.Default().With("component", "router"),
		maxRedirects: DefaultMaxRedirects,
		initial:      initial,
		current:      StartLocation,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Matcher returns the router's matcher.
func (r *Router) Matcher() *Matcher {
	return r.matcher
}

// Current returns the last committed location, or StartLocation.
func (r *Router) Current() *Location {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// Watch registers fn to be called after every commit, before the afterEach
// hooks. The returned function unregisters it.
func (r *Router) Watch(fn func(to, from *Location)) (cancel func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.nextWatcher
	r.nextWatcher++
	r.watchers = append(r.watchers, watcher{id: id, fn: fn})

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		for i, w := range r.watchers {
			if w.id == id {
				r.watchers = append(r.watchers[:i:i], r.watchers[i+1:]...)
				return
			}
		}
	}
}

// BeforeEach appends a guard run first for every navigation.
func (r *Router) BeforeEach(g Guard) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.beforeEach = append(r.beforeEach, g)
}

// BeforeResolve appends a guard run after the per-route BeforeEnter guards.
func (r *Router) BeforeResolve(g Guard) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.beforeResolve = append(r.beforeResolve, g)
}

// AfterEach appends a hook run after every commit.
func (r *Router) AfterEach(h AfterHook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.afterEach = append(r.afterEach, h)
}

// Resolve resolves a path without navigating.
func (r *Router) Resolve(path string) *Location {
	return r.matcher.Resolve(PathTarget(path))
}

// ResolveLocation resolves a RawLocation without navigating.
func (r *Router) ResolveLocation(loc RawLocation) *Location {
	return r.matcher.Resolve(LocationTarget(loc))
}

// Start performs the initial navigation to the location the store reported
// when the router was created.
func (r *Router) Start(ctx context.Context) error {
	return r.navigate(ctx, RawLocation{Path: r.initial}, TriggerPush, 0)
}

// Push navigates to path. It returns nil once the navigation committed, or a
// *NavigationFailure.
func (r *Router) Push(ctx context.Context, path string, opts ...NavigateOption) error {
	var o NavigateOptions
	for _, opt := range opts {
		opt(&o)
	}
	return r.PushLocation(ctx, RawLocation{Path: path, Replace: o.Replace})
}

// PushLocation navigates to loc.
func (r *Router) PushLocation(ctx context.Context, loc RawLocation) error {
	trigger := TriggerPush
	if loc.Replace {
		trigger = TriggerReplace
	}
	return r.navigate(ctx, loc, trigger, 0)
}

// Replace navigates to path, overwriting the current history entry.
func (r *Router) Replace(ctx context.Context, path string) error {
	return r.Push(ctx, path, WithReplace())
}

// Go moves delta entries through the store's history. The store reports the
// resulting location back through its listener, which commits it.
func (r *Router) Go(delta int) error {
	t, ok := r.store.(traverser)
	if !ok {
		return ErrTraversalUnsupported
	}
	return t.Go(delta)
}

// Back is Go(-1).
func (r *Router) Back() error {
	return r.Go(-1)
}

// Forward is Go(1).
func (r *Router) Forward() error {
	return r.Go(1)
}

// AddRoute adds a route at runtime under the record whose full path is
// parentPath, or at top level when parentPath is empty.
func (r *Router) AddRoute(def RouteDefinition, parentPath string) (*MatchRecord, error) {
	parent := NoRecord
	if parentPath != "" {
		rec, ok := r.lookup(parentPath)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownParent, parentPath)
		}
		parent = rec.ID
	}
	return r.matcher.Record(r.matcher.AddRoute(def, parent))
}

// HasRoute reports whether a record is registered for path.
func (r *Router) HasRoute(path string) bool {
	_, ok := r.lookup(path)
	return ok
}

// Routes returns every match record.
func (r *Router) Routes() []*MatchRecord {
	return r.matcher.Records()
}

func (r *Router) lookup(path string) (*MatchRecord, bool) {
	if res, err := routepath.CanonicalizePath(path); err == nil {
		path = res.Path
	}
	return r.matcher.Lookup(path)
}

// Close stops listening to the store. Navigations still work afterwards but
// back/forward events are no longer followed.
func (r *Router) Close() {
	r.mu.Lock()
	r.closed = true
	stop := r.stopListening
	r.stopListening = nil
	r.mu.Unlock()

	if stop != nil {
		stop()
	}
}

// navigate runs one navigation, following guard redirects.
func (r *Router) navigate(ctx context.Context, raw RawLocation, trigger Trigger, redirects int) error {
	r.mu.Lock()
	r.seq++
	nav := newNavigation(r.seq, raw, trigger, r.current)
	mw := r.middleware
	r.mu.Unlock()
	nav.Redirects = redirects

	var next *RawLocation
	err := ComposeMiddleware(ctx, nav, mw, func(ctx context.Context) error {
		var err error
		next, err = r.attempt(ctx, nav)
		if err == nil && next != nil && redirects >= r.maxRedirects {
			// Fail inside the chain so middleware observes the loop.
			err = &NavigationFailure{
				Kind:   FailureRedirectLoop,
				From:   nav.From,
				To:     nav.To,
				Target: next.Path,
			}
			next = nil
		}
		return err
	})
	if err != nil || next == nil {
		return err
	}
	r.logger.Debug("navigation redirected", "nav_id", nav.ID, "from", nav.Target, "to", next.Path)
	return r.navigate(ctx, *next, TriggerRedirect, redirects+1)
}

// attempt resolves and guards nav, then commits it. A non-nil RawLocation
// means a guard redirected.
func (r *Router) attempt(ctx context.Context, nav *Navigation) (*RawLocation, error) {
	from := nav.From

	if _, err := routepath.ValidateTarget(nav.Target); err != nil {
		return nil, &NavigationFailure{Kind: FailureInvalidTarget, From: from, Target: nav.Target, Reason: err}
	}
	to := r.matcher.resolveRaw(RawLocation{Path: nav.Target})
	nav.To = to

	r.mu.Lock()
	beforeEach := r.beforeEach
	beforeResolve := r.beforeResolve
	r.mu.Unlock()

	d := runGuards(ctx, phaseBeforeEach, beforeEach, to, from)
	if d.Verdict == VerdictContinue {
		d = runGuards(ctx, phaseBeforeEnter, enteredGuards(to, from), to, from)
	}
	if d.Verdict == VerdictContinue {
		d = runGuards(ctx, phaseBeforeResolve, beforeResolve, to, from)
	}
	if d.Verdict == VerdictContinue && ctx.Err() != nil {
		d = Abort(ctx.Err())
	}

	switch d.Verdict {
	case VerdictAbort:
		return nil, &NavigationFailure{Kind: FailureAborted, From: from, To: to, Target: nav.Target, Reason: d.Reason}
	case VerdictRedirect:
		nav.Redirect = d.Target
		return &RawLocation{Path: d.Target, Replace: nav.Replace}, nil
	}

	return nil, r.commit(nav, to)
}

// commit writes the store and assigns the current route, then notifies
// watchers and runs afterEach hooks.
func (r *Router) commit(nav *Navigation, to *Location) error {
	r.mu.Lock()
	if nav.Seq != r.seq {
		r.mu.Unlock()
		return &NavigationFailure{Kind: FailureCancelled, From: nav.From, To: to, Target: nav.Target}
	}

	from := r.current
	var err error
	if nav.Replace || from == StartLocation {
		err = r.store.Replace(to.FullPath)
	} else {
		err = r.store.Push(to.FullPath)
	}
	if err != nil {
		r.mu.Unlock()
		return &NavigationFailure{Kind: FailureHistory, From: from, To: to, Target: nav.Target, Reason: err}
	}

	r.current = to
	subscribe := !r.ready && !r.closed
	r.ready = true
	watchers := make([]watcher, len(r.watchers))
	copy(watchers, r.watchers)
	after := r.afterEach
	r.mu.Unlock()

	if subscribe {
		stop := r.store.Listen(r.onStoreChange)
		r.mu.Lock()
		closed := r.closed
		if !closed {
			r.stopListening = stop
		}
		r.mu.Unlock()
		if closed {
			stop()
		}
	}

	r.logger.Debug("navigation committed",
		"nav_id", nav.ID,
		"path", to.FullPath,
		"from", from.FullPath,
		"trigger", string(nav.Trigger),
		"matched", len(to.Matched),
	)

	for _, w := range watchers {
		r.safeCall("watcher", func() { w.fn(to, from) })
	}
	for _, h := range after {
		r.safeCall("afterEach", func() { h(to, from) })
	}
	return nil
}

// onStoreChange follows a back/forward event. The store already moved, so
// the commit replaces instead of pushing.
//
// A store event carries only the new path, not how far the store moved, so
// a guard that rejects it cannot move the store back. The store stays on the
// popped entry while Current keeps the previous route, until the next
// navigation commits.
func (r *Router) onStoreChange(path string) {
	err := r.navigate(context.Background(), RawLocation{Path: path, Replace: true}, TriggerStore, 0)
	if err != nil {
		r.logger.Warn("store navigation failed", "path", path, "error", err)
	}
}

// safeCall runs a post-commit callback, logging instead of propagating a
// panic so later hooks still run.
func (r *Router) safeCall(kind string, fn func()) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("hook panicked", "hook", kind, "panic", rec)
		}
	}()
	fn()
}
