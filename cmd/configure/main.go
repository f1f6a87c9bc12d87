package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dkrasner/taskmind/cmd/configure/commands"
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "taskmind-configure",
		Short: "Configuration tool for the TaskMind API",
		Long:  "CLI tool for verifying provider connectivity and managing categories",
	}

	rootCmd.AddCommand(commands.NewAITestCmd())
	rootCmd.AddCommand(commands.NewOIDCTestCmd())
	rootCmd.AddCommand(commands.NewCategoriesCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
