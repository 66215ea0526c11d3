package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/schemacrawl/internal/secret"
	"github.com/spf13/cobra"
)

// NewAuthCmd creates the auth command.
func NewAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage the OpenAI API key stored in the OS keyring",
		Long: `Auth stores the OpenAI API key in the operating system keyring, so it does
not have to live in the environment or in a file.

The OPENAI_API_KEY environment variable still takes precedence.

Examples:
  # Store the key (read from standard input)
  schemacrawl auth set

  # Check whether a key is stored
  schemacrawl auth status

  # Remove the key
  schemacrawl auth delete`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "set",
		Short: "Store the OpenAI API key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runAuthSet(cmd, secret.NewKeyStore(secret.Service))
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Report whether an OpenAI API key is stored",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runAuthStatus(cmd, secret.NewKeyStore(secret.Service))
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "delete",
		Short: "Remove the stored OpenAI API key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runAuthDelete(cmd, secret.NewKeyStore(secret.Service))
		},
	})

	return cmd
}

// runAuthSet reads the key from the first line of standard input.
func runAuthSet(cmd *cobra.Command, keys *secret.KeyStore) error {
	fmt.Fprint(cmd.ErrOrStderr(), "OpenAI API key: ")

	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to read API key: %w", err)
	}

	if err := keys.Set(secret.OpenAIAPIKey, strings.TrimSpace(line)); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "API key stored in the OS keyring.")
	return nil
}

func runAuthStatus(cmd *cobra.Command, keys *secret.KeyStore) error {
	key, err := keys.Get(secret.OpenAIAPIKey)
	switch {
	case errors.Is(err, secret.ErrNotFound):
		fmt.Fprintln(cmd.OutOrStdout(), "No API key stored.")
		return nil
	case err != nil:
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "API key stored: %s\n", maskKey(key))
	return nil
}

func runAuthDelete(cmd *cobra.Command, keys *secret.KeyStore) error {
	if err := keys.Delete(secret.OpenAIAPIKey); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "API key removed from the OS keyring.")
	return nil
}

// maskKey keeps only the last four characters of a key.
func maskKey(key string) string {
	if len(key) <= 4 {
		return strings.Repeat("*", len(key))
	}
	return strings.Repeat("*", 8) + key[len(key)-4:]
}
