package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/vango-dev/waypoint/pkg/router"
	"github.com/vango-dev/waypoint/pkg/server"
)

func routesCmd(opts *rootOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "routes",
		Short: "List the route table",
		Long: `List every route in the manifest as a tree, with its view slots,
entry guard and meta.

Examples:
  waypoint routes
  waypoint routes --json
  waypoint routes -m s3://config/app/routes.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := opts.loadProject()
			if err != nil {
				return err
			}
			defs, err := p.definitions(cmd.Context())
			if err != nil {
				return err
			}
			m := router.Build(defs)

			out := cmd.OutOrStdout()
			if asJSON {
				return writeIndentedJSON(out, server.DescribeRoutes(m))
			}
			printTree(out, m)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the flattened table as JSON")

	return cmd
}

// printTree prints records depth-first in definition order.
func printTree(w io.Writer, m *router.Matcher) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PATH\tVIEWS\tGUARD\tMETA")

	var walk func(rec *router.MatchRecord, depth int)
	walk = func(rec *router.MatchRecord, depth int) {
		guard := ""
		if rec.BeforeEnter != nil {
			guard = "yes"
		}
		fmt.Fprintf(tw, "%s%s\t%s\t%s\t%s\n",
			strings.Repeat("  ", depth), rec.FullPath, views(rec), guard, formatMeta(rec.Meta))
		for _, child := range m.Children(rec.ID) {
			walk(child, depth+1)
		}
	}

	for _, rec := range roots(m) {
		walk(rec, 0)
	}
	tw.Flush()
}

// roots returns the top-level records in definition order.
func roots(m *router.Matcher) []*router.MatchRecord {
	var out []*router.MatchRecord
	for _, rec := range m.Records() {
		if rec.Parent == router.NoRecord {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// views renders a record's view slots as "Home" or "default=Home,aside=Nav".
func views(rec *router.MatchRecord) string {
	if len(rec.Components) == 1 {
		if c := rec.View(router.DefaultView); c != nil {
			return fmt.Sprint(c)
		}
	}
	names := make([]string, 0, len(rec.Components))
	for name := range rec.Components {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		if c := rec.Components[name]; c != nil {
			parts = append(parts, name+"="+fmt.Sprint(c))
		}
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, ",")
}

func formatMeta(meta map[string]any) string {
	if len(meta) == 0 {
		return ""
	}
	keys := make([]string, 0, len(meta))
	for k := range meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, meta[k]))
	}
	return strings.Join(parts, " ")
}

func writeIndentedJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
