package secret

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zalando/go-keyring"
)

// Service is the keyring service name secrets are stored under.
const Service = "schemacrawl"

// OpenAIAPIKey is the keyring user name of the OpenAI API key.
const OpenAIAPIKey = "openai_api_key"

// ErrNotFound is returned when a secret is not in the keyring.
var ErrNotFound = errors.New("secret not found")

// ErrEmpty is returned when an empty secret is stored.
var ErrEmpty = errors.New("secret is empty")

// KeyStore reads and writes secrets in the OS keyring.
type KeyStore struct {
	service string
}

// NewKeyStore creates a KeyStore for the given service name.
// An empty service uses Service.
func NewKeyStore(service string) *KeyStore {
	if service == "" {
		service = Service
	}
	return &KeyStore{service: service}
}

// Get returns the secret stored under name.
func (k *KeyStore) Get(name string) (string, error) {
	value, err := keyring.Get(k.service, name)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %s from keyring: %w", name, err)
	}
	return value, nil
}

// Set stores value under name, replacing any previous value.
func (k *KeyStore) Set(name, value string) error {
	value = strings.TrimSpace(value)
	if value == "" {
		return ErrEmpty
	}
	if err := keyring.Set(k.service, name, value); err != nil {
		return fmt.Errorf("failed to save %s to keyring: %w", name, err)
	}
	return nil
}

// Delete removes the secret stored under name.
// Deleting a missing secret is not an error.
func (k *KeyStore) Delete(name string) error {
	err := keyring.Delete(k.service, name)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("failed to delete %s from keyring: %w", name, err)
	}
	return nil
}

// Lookup returns the secret stored under name, or "" when it is missing or
// the keyring is unavailable, as on headless CI machines.
func (k *KeyStore) Lookup(name string) string {
	value, err := k.Get(name)
	if err != nil {
		return ""
	}
	return value
}
