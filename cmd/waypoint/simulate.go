package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	werrors "github.com/vango-dev/waypoint/internal/errors"
	"github.com/vango-dev/waypoint/pkg/history"
	"github.com/vango-dev/waypoint/pkg/middleware"
	"github.com/vango-dev/waypoint/pkg/router"
)

func simulateCmd(opts *rootOptions) *cobra.Command {
	var start string

	cmd := &cobra.Command{
		Use:   "simulate <step>...",
		Short: "Run a sequence of navigations against an in-memory history",
		Long: `Run navigations against an in-memory history and print what each one
committed. Guards run exactly as they would in a browser.

Steps:
  /path            push a path
  replace:/path    replace the current entry
  back, forward    move through history
  go:N             move N entries (negative is back)

Examples:
  waypoint simulate /admin
  waypoint simulate --var loggedIn=true /admin /admin/users back
  waypoint simulate --start /docs replace:/docs/api go:-1`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			steps := make([]step, 0, len(args))
			for _, arg := range args {
				s, err := parseStep(arg)
				if err != nil {
					return err
				}
				steps = append(steps, s)
			}

			p, err := opts.loadProject()
			if err != nil {
				return err
			}
			defs, err := p.definitions(cmd.Context())
			if err != nil {
				return err
			}

			sim := newSimulation(p, defs, start, opts.verbose)
			return sim.run(cmd.Context(), cmd.OutOrStdout(), steps)
		},
	}

	cmd.Flags().StringVar(&start, "start", "/", "Initial browser location")

	return cmd
}

type stepKind int

const (
	stepPush stepKind = iota
	stepReplace
	stepGo
)

// step is one parsed simulate argument.
type step struct {
	kind  stepKind
	path  string
	delta int
	raw   string
}

func parseStep(arg string) (step, error) {
	switch {
	case arg == "back":
		return step{kind: stepGo, delta: -1, raw: arg}, nil
	case arg == "forward":
		return step{kind: stepGo, delta: 1, raw: arg}, nil
	case strings.HasPrefix(arg, "go:"):
		n, err := strconv.Atoi(strings.TrimPrefix(arg, "go:"))
		if err != nil {
			return step{}, werrors.New("E171").
				WithDetail("go:N expects an integer, got " + strconv.Quote(arg))
		}
		return step{kind: stepGo, delta: n, raw: arg}, nil
	case strings.HasPrefix(arg, "replace:"):
		return step{kind: stepReplace, path: strings.TrimPrefix(arg, "replace:"), raw: arg}, nil
	case strings.HasPrefix(arg, "/"):
		return step{kind: stepPush, path: arg, raw: arg}, nil
	default:
		return step{}, werrors.New("E171").
			WithDetail("unknown step " + strconv.Quote(arg)).
			WithSuggestion("Steps are /path, replace:/path, back, forward or go:N")
	}
}

// simulation is a router over a memory history plus a record of the last
// navigation attempt.
type simulation struct {
	store  *history.Memory
	router *router.Router

	lastOutcome string
	lastErr     error
	attempts    int
}

func newSimulation(p *project, defs []router.RouteDefinition, start string, verbose bool) *simulation {
	sim := &simulation{store: history.NewMemory(start)}

	record := router.MiddlewareFunc(func(ctx context.Context, nav *router.Navigation, next func(context.Context) error) error {
		err := next(ctx)
		sim.attempts++
		sim.lastOutcome = middleware.Outcome(nav, err)
		sim.lastErr = err
		return err
	})
	mw := []router.Middleware{record}
	if verbose {
		mw = append(mw, middleware.Logging(p.logger))
	}

	sim.router = router.New(sim.store, defs,
		router.WithLogger(p.logger),
		router.WithMaxRedirects(p.cfg.MaxRedirects),
		router.WithMiddleware(mw...),
	)
	return sim
}

func (s *simulation) run(ctx context.Context, w io.Writer, steps []step) error {
	s.report(w, "start", s.router.Start(ctx))

	for _, st := range steps {
		s.lastOutcome, s.lastErr = "", nil
		var err error
		switch st.kind {
		case stepPush:
			err = s.router.Push(ctx, st.path)
		case stepReplace:
			err = s.router.Replace(ctx, st.path)
		case stepGo:
			err = s.router.Go(st.delta)
			if err == nil {
				// The store notified the router synchronously.
				err = s.lastErr
			}
		}
		s.report(w, st.raw, err)
	}

	entries, index := s.store.Entries()
	fmt.Fprintln(w)
	info(w, "history:")
	for i, e := range entries {
		marker := " "
		if i == index {
			marker = ">"
		}
		info(w, "%s %d %s", marker, i, e)
	}
	return nil
}

func (s *simulation) report(w io.Writer, label string, err error) {
	cur := s.router.Current()
	if err != nil {
		errorMsg(w, "%-20s %v", label, err)
		return
	}
	if s.lastOutcome == "" {
		// Go(0) or a traversal that did not change location.
		info(w, "%-20s (no navigation)", label)
		return
	}
	if cur.Found() {
		success(w, "%-20s %s  [%s]", label, cur.FullPath, chain(cur))
		return
	}
	warn(w, "%-20s %s  (no route)", label, cur.FullPath)
}

// chain renders the matched views outermost first.
func chain(loc *router.Location) string {
	parts := make([]string, 0, len(loc.Matched))
	for _, rec := range loc.Matched {
		parts = append(parts, views(rec))
	}
	return strings.Join(parts, " > ")
}
