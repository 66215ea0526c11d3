package secret

import (
	"errors"
	"testing"

	"github.com/zalando/go-keyring"
)

// The keyring mock is process wide, so these tests do not run in parallel.

func TestKeyStore(t *testing.T) {
	keyring.MockInit()

	store := NewKeyStore("")

	if _, err := store.Get(OpenAIAPIKey); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if got := store.Lookup(OpenAIAPIKey); got != "" {
		t.Errorf("expected empty lookup, got %q", got)
	}

	if err := store.Set(OpenAIAPIKey, "  sk-test  "); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := store.Get(OpenAIAPIKey)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "sk-test" {
		t.Errorf("expected trimmed secret, got %q", got)
	}

	if err := store.Delete(OpenAIAPIKey); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := store.Delete(OpenAIAPIKey); err != nil {
		t.Errorf("deleting a missing secret should succeed, got %v", err)
	}
	if _, err := store.Get(OpenAIAPIKey); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestKeyStoreSetEmpty(t *testing.T) {
	keyring.MockInit()

	if err := NewKeyStore("other").Set(OpenAIAPIKey, " "); !errors.Is(err, ErrEmpty) {
		t.Errorf("expected ErrEmpty, got %v", err)
	}
}

func TestKeyStoreUnavailable(t *testing.T) {
	keyring.MockInitWithError(errors.New("no keyring daemon"))

	store := NewKeyStore("")
	if _, err := store.Get(OpenAIAPIKey); err == nil || errors.Is(err, ErrNotFound) {
		t.Errorf("expected a keyring error, got %v", err)
	}
	if got := store.Lookup(OpenAIAPIKey); got != "" {
		t.Errorf("expected empty lookup, got %q", got)
	}
	if err := store.Set(OpenAIAPIKey, "sk-test"); err == nil {
		t.Error("expected an error when the keyring is unavailable")
	}
}
