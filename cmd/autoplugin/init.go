package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"autoplugin/internal/project"
)

var initCmd = &cobra.Command{
	Use:   "init [directory]",
	Short: "Create an autoplugin.toml with default settings",
	Long: `Write autoplugin.toml with the default [generate] table into the
directory (the current one when omitted). An existing file is never
overwritten.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	target := "."
	if len(args) > 0 {
		target = args[0]
	}
	abs, err := filepath.Abs(target)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", abs, err)
	}

	path, err := project.WriteDefault(abs)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("%s already exists", filepath.Join(abs, project.ConfigFile))
		}
		return fmt.Errorf("failed to write %s: %w", project.ConfigFile, err)
	}

	quiet, _ := cmd.Root().PersistentFlags().GetBool("quiet")
	if !quiet {
		fmt.Fprintf(cmd.OutOrStdout(), "created %s\n", path)
	}
	return nil
}
