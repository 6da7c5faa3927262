package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	werrors "github.com/vango-dev/waypoint/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const banner = `
  ╦ ╦┌─┐┬ ┬┌─┐┌─┐┬┌┐┌┌┬┐
  ║║║├─┤└┬┘├─┘│ │││││ │
  ╚╩╝┴ ┴ ┴ ┴  └─┘┴┘└┘ ┴
`

func main() {
	if err := newRootCmd().Execute(); err != nil {
		// Cobra's own flag and argument errors carry no code.
		werrors.PrintError(werrors.FromError(err, "E171"))
		os.Exit(1)
	}
}

// rootOptions are the flags shared by every command.
type rootOptions struct {
	configPath string
	manifest   string
	verbose    bool
	noColor    bool
	vars       []string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "waypoint",
		Short: "Route tables and navigation for client-side apps",
		Long: `Waypoint matches locations against a nested route table and runs
guarded navigations over a browser-style history.

Route tables are declared in a YAML or JSON manifest, locally or in S3.
The CLI can list and validate them, resolve paths, simulate navigation
sequences, and serve them to browsers over WebSocket.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if opts.noColor {
				werrors.DisableColors()
			}
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "Path to waypoint.json or its directory")
	flags.StringVarP(&opts.manifest, "manifest", "m", "", "Manifest location (file or s3://bucket/key)")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")
	flags.BoolVar(&opts.noColor, "no-color", false, "Disable colored output")
	flags.StringArrayVar(&opts.vars, "var", nil, "Guard variable as key=value (repeatable)")

	rootCmd.AddCommand(
		routesCmd(opts),
		resolveCmd(opts),
		validateCmd(opts),
		simulateCmd(opts),
		serveCmd(opts),
		explainCmd(),
		versionCmd(),
	)

	return rootCmd
}

// newLogger builds the process logger from the config level and format.
func newLogger(w io.Writer, level slog.Level, format string) *slog.Logger {
	handlerOpts := &slog.HandlerOptions{Level: level}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, handlerOpts))
	}
	return slog.New(slog.NewTextHandler(w, handlerOpts))
}

// printBanner prints the Waypoint ASCII art banner.
func printBanner(w io.Writer) {
	fmt.Fprint(w, banner)
}

// success prints a success message.
func success(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "  %s\n", fmt.Sprintf(format, args...))
}

// warn prints a warning message.
func warn(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "\033[33m⚠\033[0m %s\n", fmt.Sprintf(format, args...))
}

// errorMsg prints an error message.
func errorMsg(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "\033[31m✗\033[0m %s\n", fmt.Sprintf(format, args...))
}
