package main

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	werrors "github.com/vango-dev/waypoint/internal/errors"
)

func explainCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "explain [code]",
		Short: "Describe an error code",
		Long: `Print what an error code means and where it is documented. Without
a code, list every code.

Examples:
  waypoint explain
  waypoint explain E121`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if len(args) == 0 {
				listCodes(out)
				return nil
			}

			tmpl, ok := werrors.Lookup(args[0])
			if !ok {
				return werrors.New("E171").
					WithDetail("unknown error code " + strconv.Quote(args[0])).
					WithSuggestion("Run `waypoint explain` to list every code")
			}
			fmt.Fprintf(out, "%s [%s]\n\n", tmpl.Message, tmpl.Category)
			if tmpl.Detail != "" {
				info(out, "%s", tmpl.Detail)
				fmt.Fprintln(out)
			}
			info(out, "Learn more: %s", tmpl.DocURL)
			return nil
		},
	}
}

func listCodes(w io.Writer) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CODE\tCATEGORY\tMESSAGE")
	for _, code := range werrors.Codes() {
		tmpl, _ := werrors.Lookup(code)
		fmt.Fprintf(tw, "%s\t%s\t%s\n", code, tmpl.Category, tmpl.Message)
	}
	tw.Flush()
}
