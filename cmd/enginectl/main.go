package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

// Set via -ldflags at build time.
var (
	version   = "0.1.0"
	commit    = "unknown"
	buildTime = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "enginectl",
		Short: "Radix engine transaction driver",
		Long:  "Deterministic smart-contract execution engine: initialize a substate store, publish packages, and run transaction manifests against it",
	}

	rootCmd.AddCommand(newInitCmd())
	rootCmd.AddCommand(newKeysCmd())
	rootCmd.AddCommand(newPublishCmd())
	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("enginectl v%s\n", version)
			fmt.Printf("  commit:  %s\n", commit)
			fmt.Printf("  built:   %s\n", buildTime)
		},
	}
}

// defaultHome returns the default engine home directory.
func defaultHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".enginectl"
	}
	return filepath.Join(home, ".enginectl")
}
