package main

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"autoplugin/internal/driver"
	"autoplugin/internal/finalcheck"
	"autoplugin/internal/source"
)

var listCmd = &cobra.Command{
	Use:   "list [directory]",
	Short: "List every collected target per unit",
	Long: `Run a pass without writing anything and print one row per collected
target: its unit, category, rendered target and the marker site.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runList,
}

func init() {
	addPassFlags(listCmd)
	addReportFlags(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	setup, err := preparePass(cmd, args)
	if err != nil {
		return err
	}
	report, err := readReportOptions(cmd)
	if err != nil {
		return err
	}
	setup.opts.Check = true
	setup.opts.Missing = finalcheck.ModeOff
	res, err := setup.run(cmd)
	if err != nil {
		return err
	}
	renderTargets(cmd.OutOrStdout(), res)
	if res.Bag.Len() > 0 {
		if err := printDiagnostics(cmd.ErrOrStderr(), res, report); err != nil {
			return err
		}
	}
	return nil
}

func renderTargets(out io.Writer, res *driver.Result) {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.AppendHeader(table.Row{"Unit", "Category", "Target", "Site", "Finalized"})
	for _, unit := range res.Store.Units() {
		snap, ok := res.Store.Peek(unit)
		if !ok {
			continue
		}
		finalized := res.Store.Finalized(unit)
		for _, group := range snap.Categories {
			for _, spec := range group.Specs {
				site, ok := res.Store.Site(unit, spec)
				target := spec.Expr()
				if spec.Schedule != nil {
					target += " " + spec.Schedule.String()
				}
				t.AppendRow(table.Row{unit, group.Category, target, siteString(res.FileSet, site, ok), finalized})
			}
		}
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, AutoMerge: true},
		{Number: 5, AutoMerge: true},
	})
	style := table.StyleLight
	style.Options.DrawBorder = false
	t.SetStyle(style)
	t.Render()
}

func siteString(fs *source.FileSet, span source.Span, ok bool) string {
	if !ok || int(span.File) >= fs.Len() {
		return "-"
	}
	start, _ := fs.Resolve(span)
	return fmt.Sprintf("%s:%d:%d", fs.DisplayPath(span.File), start.Line, start.Col)
}
