package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	werrors "github.com/vango-dev/waypoint/internal/errors"
	"github.com/vango-dev/waypoint/pkg/routepath"
	"github.com/vango-dev/waypoint/pkg/router"
	"github.com/vango-dev/waypoint/pkg/server"
)

func resolveCmd(opts *rootOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "resolve <path>",
		Short: "Resolve a path against the route table",
		Long: `Resolve a path without navigating: print the canonical path and the
chain of matched routes, outermost first. Guards do not run.

Examples:
  waypoint resolve /admin/users
  waypoint resolve '/docs/?tab=api' --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := args[0]
			if _, err := routepath.ValidateTarget(target); err != nil {
				return werrors.New("E142").
					WithDetail(fmt.Sprintf("%q: %v", target, err)).
					Wrap(err)
			}

			p, err := opts.loadProject()
			if err != nil {
				return err
			}
			defs, err := p.definitions(cmd.Context())
			if err != nil {
				return err
			}
			m := router.Build(defs)
			loc := m.Resolve(router.PathTarget(target))

			out := cmd.OutOrStdout()
			if asJSON {
				return writeIndentedJSON(out, server.DescribeLocation(m, loc))
			}

			fmt.Fprintf(out, "%s\n", loc.FullPath)
			if !loc.Found() {
				warn(out, "no route matches %s", loc.Path)
				return nil
			}
			for depth, rec := range loc.Matched {
				fmt.Fprintf(out, "%s%s  %s\n", strings.Repeat("  ", depth+1), rec.FullPath, views(rec))
			}
			if meta := formatMeta(loc.Meta()); meta != "" {
				info(out, "meta: %s", meta)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the resolution as JSON")

	return cmd
}
