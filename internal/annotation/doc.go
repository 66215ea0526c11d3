// Package annotation extracts, and persists, the schema.org JSON-LD
// annotations of crawled pages.
//
// # Extraction
//
// EmbeddedExtractor reads the application/ld+json script blocks a page
// already carries. AIExtractor asks an OpenAI compatible model to write an
// annotation for pages without one; it sends the page as Markdown to keep
// prompts small and is rate limited. FallbackExtractor combines the two:
// embedded annotations win, and generation is only attempted when a page
// has none.
//
// # Storage
//
// FileStore maps a page URL to a directory below the output root and
// writes each annotation as JSON or YAML:
//
//	https://example.com/products/shoe.html -> <root>/example.com/products/shoe/schema.json
//	https://example.com/                   -> <root>/example.com/index/schema.json
package annotation
