// Package main provides the slide_agent CLI for generating presentations.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "slide_agent",
	Short: "Presentation generation agent",
	Long:  "slide_agent turns a topic into a finished slide deck: research, outline, template selection, drafting, image lookup, assembly, and quality-controlled refinement.",
	// main owns error reporting and exit codes.
	SilenceErrors: true,
	SilenceUsage:  true,
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		if errors.Is(err, errDegradedRun) {
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
