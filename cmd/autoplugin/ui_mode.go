package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"autoplugin/internal/project"
)

// uiMode selects whether generate shows the progress view.
type uiMode string

const (
	uiModeAuto uiMode = "auto"
	uiModeOn   uiMode = "on"
	uiModeOff  uiMode = "off"
)

func readUIMode(value string) (uiMode, error) {
	switch uiMode(strings.TrimSpace(strings.ToLower(value))) {
	case "", uiModeAuto:
		return uiModeAuto, nil
	case uiModeOn:
		return uiModeOn, nil
	case uiModeOff:
		return uiModeOff, nil
	}
	return "", fmt.Errorf("invalid ui mode %q (expected auto|on|off)", value)
}

// resolveUIMode takes --ui when it was given and [generate].ui otherwise.
func resolveUIMode(cmd *cobra.Command, cfg project.GenerateConfig) (uiMode, error) {
	if !cmd.Flags().Changed("ui") {
		return readUIMode(cfg.UI)
	}
	value, err := cmd.Flags().GetString("ui")
	if err != nil {
		return "", err
	}
	return readUIMode(value)
}

// useProgressUI reports whether the progress view replaces plain output.
// Quiet and JSON output never get it; auto needs out to be a terminal.
func useProgressUI(mode uiMode, out io.Writer, report reportOptions) bool {
	if report.quiet || report.format == "json" {
		return false
	}
	switch mode {
	case uiModeOn:
		return true
	case uiModeOff:
		return false
	}
	f, ok := out.(*os.File)
	return ok && isTerminal(f)
}
