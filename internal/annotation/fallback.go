package annotation

import (
	"context"
	"log/slog"

	"github.com/nao1215/schemacrawl/internal/model"
)

// FallbackExtractor prefers annotations the page already embeds and only
// asks the generator when there are none.
//
// Failures are logged and turn into an empty result, so one page can never
// stop a crawl.
type FallbackExtractor struct {
	primary  Extractor
	fallback Extractor
	logger   *slog.Logger
}

// NewFallbackExtractor creates a FallbackExtractor. fallback may be nil,
// in which case only primary is used.
func NewFallbackExtractor(primary, fallback Extractor, logger *slog.Logger) *FallbackExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &FallbackExtractor{primary: primary, fallback: fallback, logger: logger}
}

// Extract implements Extractor.
func (f *FallbackExtractor) Extract(ctx context.Context, pageURL, content, title string) ([]model.Annotation, error) {
	annotations, err := f.primary.Extract(ctx, pageURL, content, title)
	if err != nil {
		f.logger.Warn("failed to extract embedded annotations", "url", pageURL, "error", err)
	}
	if len(annotations) > 0 {
		return annotations, nil
	}

	if f.fallback == nil {
		return nil, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	annotations, err = f.fallback.Extract(ctx, pageURL, content, title)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		f.logger.Warn("failed to generate annotations", "url", pageURL, "error", err)
		return nil, nil
	}
	return annotations, nil
}
