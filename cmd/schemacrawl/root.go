package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for schemacrawl.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schemacrawl",
		Short: "Crawl websites and collect their schema.org annotations",
		Long: `schemacrawl crawls a website breadth-first, collects the schema.org JSON-LD
annotations of every page and validates them against the schema.org vocabulary.

Pages without embedded JSON-LD can get a generated annotation from an
OpenAI compatible model when an API key is configured.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().StringP("config", "c", "",
		"Configuration file path (default: .schemacrawl in current or home directory)")

	cmd.AddCommand(NewCrawlCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewTypesCmd())
	cmd.AddCommand(NewAuthCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
