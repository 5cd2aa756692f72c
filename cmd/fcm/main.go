package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Set via ldflags at release time.
var (
	version = "0.1.0-dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "fcm",
		Short: "Fuzzy cognitive map inference",
		Long: `fcm solves fuzzy cognitive maps to their fixed point.

It loads a weighted concept matrix from CSV or XLSX, runs what-if scenarios
by clamping concepts, sweeps clamp levels for sensitivity analysis, and
renders maps for Graphviz.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "Config file (default ~/.fcm/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: info, debug or trace")
	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON (for agent consumption)")
	rootCmd.PersistentFlags().String("metrics-file", "", "Write solve metrics in Prometheus textfile format")

	rootCmd.AddCommand(
		newVersionCmd(),
		newSteadyCmd(),
		newScenarioCmd(),
		newSensitivityCmd(),
		newGraphCmd(),
		newMCPServerCmd(),
		newConfigCmd(),
	)

	return rootCmd
}
