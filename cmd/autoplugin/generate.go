package main

import (
	"errors"

	"github.com/spf13/cobra"

	"autoplugin/internal/driver"
)

var errFailed = errors.New("autoplugin reported errors")

var generateCmd = &cobra.Command{
	Use:   "generate [directory]",
	Short: "Write init routines for every package with autoplugin markers",
	Long: `Scan every Go package below the directory, collect marked declarations
and write one zz_generated.autoplugin.go per package that has a plugin
entry. Generated files whose package no longer has an entry are removed.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runGenerate,
}

var checkCmd = &cobra.Command{
	Use:   "check [directory]",
	Short: "Verify that generated files are up to date",
	Long: `Run the same pass as generate without touching the tree. Every generated
file that would change, appear or disappear is reported as an error.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCheck,
}

func init() {
	addPassFlags(generateCmd)
	addReportFlags(generateCmd)
	generateCmd.Flags().String("ui", "auto", "progress UI (auto|on|off), overrides [generate].ui")

	addPassFlags(checkCmd)
	addReportFlags(checkCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	setup, err := preparePass(cmd, args)
	if err != nil {
		return err
	}
	report, err := readReportOptions(cmd)
	if err != nil {
		return err
	}
	mode, err := resolveUIMode(cmd, setup.manifest.Config.Generate)
	if err != nil {
		return err
	}

	var res *driver.Result
	if useProgressUI(mode, cmd.OutOrStdout(), report) {
		res, err = runPassWithUI(cmd, "generate", setup)
	} else {
		res, err = setup.run(cmd)
	}
	if err != nil {
		return err
	}
	return finish(cmd, res, report)
}

func runCheck(cmd *cobra.Command, args []string) error {
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
	return finish(cmd, res, report)
}
