package main

import (
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"autoplugin/internal/ctxlog"
	"autoplugin/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "autoplugin",
	Short: "Generate plugin init routines from autoplugin markers",
	Long: `autoplugin scans Go packages for //autoplugin: markers, collects the
tagged declarations per unit and writes one deterministic init routine per
plugin entry into zz_generated.autoplugin.go`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, err := cmd.Flags().GetString("log-level")
		if err != nil {
			return err
		}
		format, err := cmd.Flags().GetString("log-format")
		if err != nil {
			return err
		}
		logger := newLogger(level, format, cmd.ErrOrStderr())
		cmd.SetContext(ctxlog.WithLogger(cmd.Context(), logger))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(cacheCmd)

	rootCmd.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")
	rootCmd.PersistentFlags().Bool("quiet", false, "suppress non-essential output")
	rootCmd.PersistentFlags().Bool("timings", false, "show timing information")
	rootCmd.PersistentFlags().Int("max-diagnostics", 100, "maximum number of diagnostics to show")
	rootCmd.PersistentFlags().String("log-level", "warn", "log level (debug|info|warn|error)")
	rootCmd.PersistentFlags().String("log-format", "text", "log format (text|json)")
	rootCmd.PersistentFlags().String("cpu-profile", "", "write a CPU profile of the pass to this file")
	rootCmd.PersistentFlags().String("mem-profile", "", "write a heap profile after the pass to this file")
	rootCmd.PersistentFlags().String("runtime-trace", "", "write a runtime trace of the pass to this file")
}

// main executes the root command. Any error exits with status 1.
func main() {
	rootCmd.Version = version.Version
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
