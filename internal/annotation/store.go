package annotation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/nao1215/schemacrawl/internal/model"
)

// Store output formats.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// indexSegment names the directory of a site's root page.
const indexSegment = "index"

// FileStore writes annotations below a root directory, one directory per page:
//
//	<root>/<host>/<path segments...>/<last segment without extension>/schema.json
//
// The root page maps to <root>/<host>/index/schema.json. Files are replaced
// atomically, so readers never see a partial annotation.
type FileStore struct {
	root   string
	format string

	// mu serializes writes so numbered files of one page cannot interleave.
	mu sync.Mutex
}

// NewFileStore creates a FileStore writing json or yaml files below root.
func NewFileStore(root, format string) (*FileStore, error) {
	format = strings.ToLower(format)
	if format == "" {
		format = FormatJSON
	}
	if format != FormatJSON && format != FormatYAML {
		return nil, fmt.Errorf("%w: %q", ErrInvalidFormat, format)
	}
	return &FileStore{root: root, format: format}, nil
}

// Root returns the output root directory.
func (s *FileStore) Root() string {
	return s.root
}

// Dir returns the directory annotations of pageURL are written to.
func (s *FileStore) Dir(pageURL string) (string, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("%w: %q has no host", ErrInvalidURL, pageURL)
	}

	parts := []string{s.root, sanitizeSegment(strings.ToLower(u.Host))}

	segments := make([]string, 0)
	for _, seg := range strings.Split(u.Path, "/") {
		if seg == "" || seg == "." || seg == ".." {
			continue
		}
		segments = append(segments, sanitizeSegment(seg))
	}

	if len(segments) == 0 {
		parts = append(parts, indexSegment)
	} else {
		last := len(segments) - 1
		if stem, _, _ := strings.Cut(segments[last], "."); stem != "" {
			segments[last] = stem
		}
		parts = append(parts, segments...)
	}

	return filepath.Join(parts...), nil
}

// Save writes one annotation as schema.<ext> and returns the file path.
func (s *FileStore) Save(pageURL string, a model.Annotation) (string, error) {
	locations, err := s.SaveAll(pageURL, []model.Annotation{a})
	if err != nil {
		return "", err
	}
	return locations[0], nil
}

// SaveAll writes the annotations of one page. The first one is written as
// schema.<ext>, later ones as schema-2.<ext>, schema-3.<ext> and so on.
// Numbered files beyond len(annotations) from earlier runs are removed.
func (s *FileStore) SaveAll(pageURL string, annotations []model.Annotation) ([]string, error) {
	if len(annotations) == 0 {
		return nil, nil
	}

	dir, err := s.Dir(pageURL)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", dir, err)
	}

	locations := make([]string, 0, len(annotations))
	for i, a := range annotations {
		data, err := s.encode(a)
		if err != nil {
			return locations, fmt.Errorf("failed to encode annotation %d of %s: %w", i+1, pageURL, err)
		}
		path := filepath.Join(dir, s.fileName(i))
		if err := writeFileAtomic(path, data); err != nil {
			return locations, err
		}
		locations = append(locations, path)
	}
	if err := s.removeStale(dir, len(annotations)); err != nil {
		return locations, err
	}
	return locations, nil
}

// removeStale deletes numbered files left by an earlier run that found more
// annotations on the page than kept.
func (s *FileStore) removeStale(dir string, kept int) error {
	matches, err := filepath.Glob(filepath.Join(dir, "schema-*."+s.format))
	if err != nil {
		return err
	}
	for _, path := range matches {
		name := strings.TrimSuffix(filepath.Base(path), "."+s.format)
		n, err := strconv.Atoi(strings.TrimPrefix(name, "schema-"))
		if err != nil || n <= kept {
			continue
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to remove stale %s: %w", path, err)
		}
	}
	return nil
}

func (s *FileStore) fileName(i int) string {
	if i == 0 {
		return "schema." + s.format
	}
	return "schema-" + strconv.Itoa(i+1) + "." + s.format
}

func (s *FileStore) encode(a model.Annotation) ([]byte, error) {
	if s.format == FormatYAML {
		return yaml.Marshal(map[string]any(a))
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(a); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// writeFileAtomic writes data to a temporary file in the same directory
// and renames it over path.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".schema-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()        //nolint:errcheck,gosec
		os.Remove(tmpName) //nolint:errcheck,gosec
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName) //nolint:errcheck,gosec
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil { //nolint:gosec // annotations are meant to be shared
		os.Remove(tmpName) //nolint:errcheck,gosec
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName) //nolint:errcheck,gosec
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// sanitizeSegment replaces characters that are not allowed in file names
// on common platforms.
func sanitizeSegment(seg string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '\\', ':', '*', '?', '"', '<', '>', '|', 0:
			return '_'
		}
		return r
	}, seg)
}
