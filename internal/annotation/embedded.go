package annotation

import (
	"context"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/nao1215/schemacrawl/internal/model"
)

// ldJSONType is the script type that carries JSON-LD.
const ldJSONType = "application/ld+json"

// EmbeddedExtractor reads the JSON-LD blocks a page already contains.
// It never makes network calls.
type EmbeddedExtractor struct {
	logger *slog.Logger
}

// NewEmbeddedExtractor creates an EmbeddedExtractor. A nil logger uses slog.Default().
func NewEmbeddedExtractor(logger *slog.Logger) *EmbeddedExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &EmbeddedExtractor{logger: logger}
}

// Extract returns every object found in the page's JSON-LD script elements,
// in document order. Malformed blocks are skipped.
func (e *EmbeddedExtractor) Extract(_ context.Context, pageURL, content, _ string) ([]model.Annotation, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return nil, err
	}

	var annotations []model.Annotation
	doc.Find("script[type]").Each(func(i int, s *goquery.Selection) {
		scriptType, _ := s.Attr("type")
		if !isLDJSON(scriptType) {
			return
		}

		found, err := decodeAnnotations([]byte(cleanScript(s.Text())))
		if err != nil {
			e.logger.Debug("skipping malformed JSON-LD block",
				"url", pageURL, "index", i, "error", err)
			return
		}
		annotations = append(annotations, found...)
	})

	return annotations, nil
}

// isLDJSON matches "application/ld+json" with optional parameters, in any case.
func isLDJSON(scriptType string) bool {
	mediaType, _, _ := strings.Cut(scriptType, ";")
	return strings.EqualFold(strings.TrimSpace(mediaType), ldJSONType)
}

// cleanScript removes wrappers some sites put around inline JSON.
func cleanScript(text string) string {
	text = strings.TrimSpace(text)
	for _, pair := range [][2]string{{"<!--", "-->"}, {"<![CDATA[", "]]>"}, {"/*<![CDATA[*/", "/*]]>*/"}} {
		if strings.HasPrefix(text, pair[0]) && strings.HasSuffix(text, pair[1]) {
			text = strings.TrimSpace(text[len(pair[0]) : len(text)-len(pair[1])])
		}
	}
	return text
}
