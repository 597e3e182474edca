package main

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"autoplugin/internal/diag"
	"autoplugin/internal/diagfmt"
	"autoplugin/internal/driver"
)

type reportOptions struct {
	format      string
	minSeverity diag.Severity
	withNotes   bool
	fullPath    bool
	useColor    bool
	quiet       bool
	timings     bool
}

func addReportFlags(cmd *cobra.Command) {
	cmd.Flags().String("format", "pretty", "diagnostics format (pretty|short|json)")
	cmd.Flags().Bool("with-notes", true, "include diagnostic notes in output")
	cmd.Flags().Bool("fullpath", false, "emit absolute file paths in output")
	cmd.Flags().String("min-severity", "info", "lowest severity printed (info|warning|error); --quiet implies warning")
}

func readReportOptions(cmd *cobra.Command) (reportOptions, error) {
	var opts reportOptions
	var err error
	if opts.format, err = cmd.Flags().GetString("format"); err != nil {
		return opts, fmt.Errorf("failed to get format flag: %w", err)
	}
	switch opts.format {
	case "pretty", "short", "json":
	default:
		return opts, fmt.Errorf("unknown format: %s", opts.format)
	}
	if opts.withNotes, err = cmd.Flags().GetBool("with-notes"); err != nil {
		return opts, err
	}
	if opts.fullPath, err = cmd.Flags().GetBool("fullpath"); err != nil {
		return opts, err
	}
	if opts.quiet, err = cmd.Root().PersistentFlags().GetBool("quiet"); err != nil {
		return opts, err
	}
	minSeverity, err := cmd.Flags().GetString("min-severity")
	if err != nil {
		return opts, err
	}
	if opts.minSeverity, err = diag.ParseSeverity(minSeverity); err != nil {
		return opts, err
	}
	if opts.quiet {
		opts.minSeverity = max(opts.minSeverity, diag.SevWarning)
	}
	if opts.timings, err = cmd.Root().PersistentFlags().GetBool("timings"); err != nil {
		return opts, err
	}
	colorFlag, err := cmd.Root().PersistentFlags().GetString("color")
	if err != nil {
		return opts, err
	}
	switch colorFlag {
	case "on":
		opts.useColor = true
	case "off":
	case "auto":
		opts.useColor = isTerminal(os.Stdout)
	default:
		return opts, fmt.Errorf("invalid --color value %q (expected auto|on|off)", colorFlag)
	}
	color.NoColor = !opts.useColor
	return opts, nil
}

// printDiagnostics drops the diagnostics below the minimum severity from
// res.Bag and prints the rest.
func printDiagnostics(out io.Writer, res *driver.Result, opts reportOptions) error {
	res.Bag.Filter(func(d diag.Diagnostic) bool {
		return d.Severity >= opts.minSeverity || (d.Code == diag.ObsTimings && opts.timings)
	})
	pathMode := diagfmt.PathModeAuto
	if opts.fullPath {
		pathMode = diagfmt.PathModeAbsolute
	}
	switch opts.format {
	case "short":
		output := diag.FormatShortDiagnostics(res.Bag.Items(), res.FileSet, opts.withNotes)
		if output != "" {
			fmt.Fprintln(out, output)
		}
	case "json":
		jsonOpts := diagfmt.JSONOpts{
			IncludePositions: true,
			PathMode:         pathMode,
			IncludeNotes:     opts.withNotes,
		}
		if err := diagfmt.JSON(out, res.Bag, res.FileSet, jsonOpts); err != nil {
			return fmt.Errorf("failed to format diagnostics: %w", err)
		}
	default:
		diagfmt.Pretty(out, res.Bag, res.FileSet, diagfmt.PrettyOpts{
			Color:     opts.useColor,
			Context:   1,
			PathMode:  pathMode,
			ShowNotes: opts.withNotes,
		})
	}
	return nil
}

// printOutputs lists generated files that changed. JSON output stays
// machine readable, so nothing is printed there.
func printOutputs(out io.Writer, res *driver.Result, opts reportOptions) {
	if opts.quiet || opts.format == "json" {
		return
	}
	for _, pkg := range res.Packages {
		switch pkg.Status {
		case driver.OutputWritten, driver.OutputRemoved, driver.OutputStale:
			fmt.Fprintf(out, "%-7s %s\n", pkg.Status, relOutput(res.Root, pkg.Output))
		}
	}
}

// finish prints the diagnostics at or above the minimum severity and the
// timings, and turns errors into a failing exit status.
func finish(cmd *cobra.Command, res *driver.Result, opts reportOptions) error {
	failed := res.Bag.HasErrors()
	if err := printDiagnostics(cmd.OutOrStdout(), res, opts); err != nil {
		return err
	}
	printOutputs(cmd.OutOrStdout(), res, opts)
	if opts.timings && !opts.quiet {
		printStageTimings(cmd.ErrOrStderr(), res.Timings)
	}
	if failed {
		cmd.SilenceErrors = true
		return errFailed
	}
	return nil
}
