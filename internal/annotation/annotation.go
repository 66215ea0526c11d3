package annotation

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/nao1215/schemacrawl/internal/model"
)

// Extractor produces the structured annotations of a page.
// An implementation may call external services. An empty result is not an
// error.
type Extractor interface {
	Extract(ctx context.Context, pageURL, content, title string) ([]model.Annotation, error)
}

// Validator checks one annotation and returns its problems.
// An empty slice means the annotation is valid.
type Validator interface {
	Validate(a model.Annotation) []string
}

// Store persists annotations and returns where each one was written.
type Store interface {
	Save(pageURL string, a model.Annotation) (string, error)
}

// Errors returned by this package.
var (
	// ErrGeneration is returned when the AI provider call fails.
	ErrGeneration = errors.New("annotation generation failed")

	// ErrInvalidFormat is returned for an unknown store output format.
	ErrInvalidFormat = errors.New("invalid output format")

	// ErrInvalidURL is returned when a page URL cannot be mapped to a location.
	ErrInvalidURL = errors.New("invalid page URL")
)

// ExtractorFunc adapts a function to the Extractor interface.
type ExtractorFunc func(ctx context.Context, pageURL, content, title string) ([]model.Annotation, error)

// Extract calls f.
func (f ExtractorFunc) Extract(ctx context.Context, pageURL, content, title string) ([]model.Annotation, error) {
	return f(ctx, pageURL, content, title)
}

// decodeAnnotations turns a JSON document into annotations.
// Objects are returned as one annotation, arrays are flattened to their
// object elements, and anything else yields nothing.
func decodeAnnotations(data []byte) ([]model.Annotation, error) {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return collectObjects(v), nil
}

func collectObjects(v any) []model.Annotation {
	switch t := v.(type) {
	case map[string]any:
		return []model.Annotation{model.Annotation(t)}
	case []any:
		out := make([]model.Annotation, 0, len(t))
		for _, item := range t {
			if obj, ok := item.(map[string]any); ok {
				out = append(out, model.Annotation(obj))
			}
		}
		return out
	default:
		return nil
	}
}
