package main

import (
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/nao1215/schemacrawl/internal/schemaorg"
	"github.com/spf13/cobra"
)

// NewTypesCmd creates the types command.
func NewTypesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "types [type]",
		Short: "List schema.org types or the properties of one type",
		Long: `Types prints the schema.org vocabulary used for validation.

Without an argument it lists every type. With a type name it prints the
type's superclasses and every property that may be used on it.

Examples:
  # List every type
  schemacrawl types

  # Properties of Product, inherited ones included
  schemacrawl types Product`,
		Args: cobra.MaximumNArgs(1),
		RunE: runTypesCmd,
	}

	cmd.Flags().Bool("refresh-vocabulary", false,
		"Download the vocabulary even if a cached copy exists")
	cmd.Flags().String("vocabulary-url", "",
		"Location of the schema.org vocabulary")
	cmd.Flags().String("vocabulary-cache", "",
		"Cached copy of the vocabulary (default: XDG cache directory)")

	return cmd
}

// runTypesCmd executes the types command.
func runTypesCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, os.LookupEnv)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	refresh, err := flags.GetBool("refresh-vocabulary")
	if err != nil {
		return err
	}
	if v, err := flags.GetString("vocabulary-url"); err == nil && v != "" {
		cfg.VocabularyURL = v
	}
	if v, err := flags.GetString("vocabulary-cache"); err == nil && v != "" {
		cfg.VocabularyCacheFile = v
	}

	logger := setupLogger(cmd.ErrOrStderr(), cfg.Verbose)
	vocab, err := schemaorg.LoadVocabulary(cmd.Context(), cfg.VocabularyCacheFile, cfg.VocabularyURL,
		schemaorg.WithHTTPClient(&http.Client{Timeout: vocabularyTimeout}),
		schemaorg.WithRefresh(refresh),
		schemaorg.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(args) == 0 {
		for _, name := range vocab.Types() {
			fmt.Fprintln(out, name)
		}
		return nil
	}

	name := schemaorg.LocalName(args[0])
	if !vocab.HasType(name) {
		return fmt.Errorf("unknown schema.org type: %s", name)
	}

	fmt.Fprintf(out, "%s\n", name)
	if ancestors := vocab.Ancestors(name)[1:]; len(ancestors) > 0 {
		fmt.Fprintf(out, "  extends: %s\n", strings.Join(ancestors, ", "))
	}
	fmt.Fprintln(out, "  properties:")
	for _, p := range vocab.Properties(name) {
		fmt.Fprintf(out, "    %s\n", p)
	}
	return nil
}
