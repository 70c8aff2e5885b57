// Package main is the entry point for the revise CLI.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "revise",
		Short:        "Spaced-repetition flashcards driven by a forgetting curve",
		Version:      version,
		SilenceUsage: true,
	}
	root.PersistentFlags().String("config", "", "path to revise.toml (default: search up from the working directory)")

	root.AddCommand(
		initCmd(),
		filesCmd(),
		findCmd(),
		nextCmd(),
		efcCmd(),
		statsCmd(),
		renameCmd(),
		shuffleSeedCmd(),
		reviewCmd(),
		watchCmd(),
	)

	return root
}
