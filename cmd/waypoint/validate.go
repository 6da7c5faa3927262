package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	werrors "github.com/vango-dev/waypoint/internal/errors"
	"github.com/vango-dev/waypoint/pkg/manifest"
	"github.com/vango-dev/waypoint/pkg/router"
)

func validateCmd(opts *rootOptions) *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check the manifest for errors",
		Long: `Check that the manifest parses, that every guard expression compiles,
and that the route tree has no duplicate or unreachable paths.

With --watch, the manifest is re-checked every time it is saved.

Examples:
  waypoint validate
  waypoint validate --watch`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := opts.loadProject()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if !watch {
				m, err := p.loadManifest(cmd.Context())
				if err != nil {
					return err
				}
				return p.validate(out, m)
			}

			if strings.HasPrefix(p.location, manifest.S3Scheme) {
				return werrors.New("E171").
					WithDetail("--watch needs a local manifest, got " + p.location)
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return p.watchValidate(ctx, out)
		},
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Re-validate whenever the manifest changes")

	return cmd
}

// validate checks a parsed manifest and reports the outcome on w.
func (p *project) validate(w io.Writer, m *manifest.Manifest) error {
	defs, err := p.compile(m)
	if err != nil {
		return err
	}

	err = router.Validate(defs)
	var multi *router.MultiValidationError
	if errors.As(err, &multi) {
		for _, ve := range multi.Errors {
			fmt.Fprint(w, router.FormatValidationError(ve))
		}
		return werrors.New("E122").
			WithDetail(fmt.Sprintf("%d problem(s) in %s", len(multi.Errors), p.location)).
			Wrap(err)
	}
	if err != nil {
		return err
	}

	success(w, "%s: %d routes OK", p.location, router.Build(defs).Len())
	return nil
}

// watchValidate validates once, then again after every change, until ctx
// ends. Failures are printed rather than returned so the watch keeps going.
func (p *project) watchValidate(ctx context.Context, w io.Writer) error {
	report := func(m *manifest.Manifest, err error) {
		if err == nil {
			err = p.validate(w, m)
		} else {
			err = manifestError(p.location, err)
		}
		var we *werrors.WaypointError
		if errors.As(err, &we) {
			errorMsg(w, "%s", we.FormatCompact())
		} else if err != nil {
			errorMsg(w, "%v", err)
		}
	}

	report(p.loader().Load(ctx, p.location))
	info(w, "watching %s for changes", p.location)

	err := manifest.NewWatcher(p.location, report).
		WithLogger(p.logger).
		Watch(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
