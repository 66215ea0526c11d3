package main

import (
	"errors"
	"strings"
	"testing"

	"github.com/nao1215/schemacrawl/internal/secret"
	"github.com/zalando/go-keyring"
)

// The keyring mock is process-wide, so these tests do not run in parallel.

func TestAuthCommands(t *testing.T) {
	keyring.MockInit()

	run := func(t *testing.T, stdin string, args ...string) (string, error) {
		t.Helper()

		var stdout strings.Builder
		cmd := NewRootCmd()
		cmd.SetOut(&stdout)
		cmd.SetErr(&strings.Builder{})
		cmd.SetIn(strings.NewReader(stdin))
		cmd.SetArgs(args)
		err := cmd.Execute()
		return stdout.String(), err
	}

	out, err := run(t, "", "auth", "status")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "No API key stored.") {
		t.Errorf("unexpected status %q", out)
	}

	if _, err := run(t, "  sk-test-abcd1234  \n", "auth", "set"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := secret.NewKeyStore(secret.Service).Lookup(secret.OpenAIAPIKey); got != "sk-test-abcd1234" {
		t.Errorf("expected trimmed key to be stored, got %q", got)
	}

	out, err = run(t, "", "auth", "status")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "********1234") || strings.Contains(out, "sk-test") {
		t.Errorf("expected masked key, got %q", out)
	}

	if _, err := run(t, "", "auth", "delete"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := secret.NewKeyStore(secret.Service).Lookup(secret.OpenAIAPIKey); got != "" {
		t.Errorf("expected key to be removed, got %q", got)
	}

	if _, err := run(t, "\n", "auth", "set"); !errors.Is(err, secret.ErrEmpty) {
		t.Errorf("expected ErrEmpty for blank input, got %v", err)
	}
}

func TestAuthStatusKeyringFailure(t *testing.T) {
	keyring.MockInitWithError(errors.New("no secret service"))
	t.Cleanup(keyring.MockInit)

	cmd := NewRootCmd()
	cmd.SetOut(&strings.Builder{})
	cmd.SetArgs([]string{"auth", "status"})
	if err := cmd.Execute(); err == nil {
		t.Error("expected keyring error to be reported")
	}
}

func TestMaskKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		key  string
		want string
	}{
		{"sk-abcdefgh", "********efgh"},
		{"abcd", "****"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := maskKey(tt.key); got != tt.want {
			t.Errorf("maskKey(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}
