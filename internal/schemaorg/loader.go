package schemaorg

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// DefaultVocabularyURL is the latest schema.org release.
const DefaultVocabularyURL = "https://schema.org/version/latest/schemaorg-current-https.jsonld"

// maxVocabularySize caps the download. The release file is a few megabytes.
const maxVocabularySize = 64 << 20

// Errors returned by this package.
var (
	// ErrInvalidVocabulary is returned when vocabulary data cannot be parsed.
	ErrInvalidVocabulary = errors.New("invalid schema.org vocabulary")

	// ErrFetchVocabulary is returned when the vocabulary cannot be downloaded.
	ErrFetchVocabulary = errors.New("failed to fetch schema.org vocabulary")
)

type loadOptions struct {
	client  *http.Client
	refresh bool
	logger  *slog.Logger
}

// LoadOption configures LoadVocabulary.
type LoadOption func(*loadOptions)

// WithHTTPClient sets the client used to download the vocabulary.
func WithHTTPClient(client *http.Client) LoadOption {
	return func(o *loadOptions) {
		if client != nil {
			o.client = client
		}
	}
}

// WithRefresh ignores the cache file and downloads the vocabulary again.
func WithRefresh(refresh bool) LoadOption {
	return func(o *loadOptions) {
		o.refresh = refresh
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) LoadOption {
	return func(o *loadOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// LoadVocabulary reads the vocabulary from cachePath, or downloads it from
// sourceURL and writes the cache when the file is missing or unreadable.
//
// LoadVocabulary always returns a usable Vocabulary. On failure it is empty,
// and the error says why, so callers can fall back to structural checks.
func LoadVocabulary(ctx context.Context, cachePath, sourceURL string, opts ...LoadOption) (*Vocabulary, error) {
	o := &loadOptions{
		client: &http.Client{Timeout: 60 * time.Second},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if sourceURL == "" {
		sourceURL = DefaultVocabularyURL
	}

	if cachePath != "" && !o.refresh {
		data, err := os.ReadFile(cachePath) //nolint:gosec // path comes from configuration
		if err == nil {
			v, err := ParseVocabulary(data)
			if err == nil {
				o.logger.Debug("loaded schema.org vocabulary from cache",
					"path", cachePath, "types", len(v.classes))
				return v, nil
			}
			o.logger.Warn("ignoring invalid vocabulary cache", "path", cachePath, "error", err)
		} else if !errors.Is(err, os.ErrNotExist) {
			o.logger.Warn("failed to read vocabulary cache", "path", cachePath, "error", err)
		}
	}

	data, err := download(ctx, o.client, sourceURL)
	if err != nil {
		return &Vocabulary{}, err
	}
	v, err := ParseVocabulary(data)
	if err != nil {
		return &Vocabulary{}, err
	}
	o.logger.Info("fetched schema.org vocabulary", "url", sourceURL, "types", len(v.classes))

	if cachePath != "" {
		if err := writeCache(cachePath, data); err != nil {
			o.logger.Warn("failed to write vocabulary cache", "path", cachePath, "error", err)
		}
	}
	return v, nil
}

func download(ctx context.Context, client *http.Client, sourceURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetchVocabulary, err)
	}
	req.Header.Set("Accept", "application/ld+json, application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetchVocabulary, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrFetchVocabulary, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxVocabularySize))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetchVocabulary, err)
	}
	return data, nil
}

func writeCache(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
