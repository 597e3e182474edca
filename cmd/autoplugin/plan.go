package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"autoplugin/internal/driver"
)

var planCmd = &cobra.Command{
	Use:   "plan [directory]",
	Short: "Show the routines generate would write",
	Long: `Run a pass without writing anything and dump, per package, the unit
mode, the routines with their calls and what would happen to the
generated file.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPlan,
}

var planOutput string

func init() {
	addPassFlags(planCmd)
	addReportFlags(planCmd)
	planCmd.Flags().StringVarP(&planOutput, "output", "o", "yaml", "plan format (yaml|json)")
}

type planPackage struct {
	Dir      string        `json:"dir" yaml:"dir"`
	Package  string        `json:"package" yaml:"package"`
	Mode     string        `json:"mode" yaml:"mode"`
	Output   string        `json:"output" yaml:"output"`
	Status   string        `json:"status" yaml:"status"`
	Units    []string      `json:"units,omitempty" yaml:"units,omitempty"`
	Routines []planRoutine `json:"routines,omitempty" yaml:"routines,omitempty"`
}

type planRoutine struct {
	Name  string   `json:"name" yaml:"name"`
	App   string   `json:"app" yaml:"app"`
	Unit  string   `json:"unit" yaml:"unit"`
	Calls []string `json:"calls" yaml:"calls"`
}

func runPlan(cmd *cobra.Command, args []string) error {
	switch planOutput {
	case "yaml", "json":
	default:
		return fmt.Errorf("unsupported plan format %q (must be yaml or json)", planOutput)
	}
	setup, err := preparePass(cmd, args)
	if err != nil {
		return err
	}
	report, err := readReportOptions(cmd)
	if err != nil {
		return err
	}
	setup.opts.Check = true
	res, err := setup.run(cmd)
	if err != nil {
		return err
	}
	if err := writePlan(cmd.OutOrStdout(), buildPlan(res), planOutput); err != nil {
		return err
	}
	if res.Bag.Len() > 0 {
		return printDiagnostics(cmd.ErrOrStderr(), res, report)
	}
	return nil
}

// buildPlan keeps only packages that take part in generation.
func buildPlan(res *driver.Result) []planPackage {
	plan := make([]planPackage, 0, len(res.Packages))
	for _, pkg := range res.Packages {
		if len(pkg.Units) == 0 && pkg.Status == driver.OutputNone {
			continue
		}
		status := pkg.Status.String()
		if pkg.Status == driver.OutputStale {
			status = "changes"
		}
		p := planPackage{
			Dir:     pkg.Dir,
			Package: pkg.Package,
			Mode:    pkg.Mode.String(),
			Output:  relOutput(res.Root, pkg.Output),
			Status:  status,
		}
		for _, u := range pkg.Units {
			p.Units = append(p.Units, string(u))
		}
		for _, rt := range pkg.Routines {
			calls := rt.Body()
			if calls == nil {
				calls = []string{}
			}
			p.Routines = append(p.Routines, planRoutine{
				Name:  rt.Name,
				App:   rt.App,
				Unit:  string(rt.Snapshot.Unit),
				Calls: calls,
			})
		}
		plan = append(plan, p)
	}
	return plan
}

func writePlan(out io.Writer, plan []planPackage, format string) error {
	if format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(plan)
	}
	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	if err := enc.Encode(plan); err != nil {
		return err
	}
	return enc.Close()
}
