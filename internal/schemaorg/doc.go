// Package schemaorg loads the schema.org vocabulary and validates JSON-LD
// annotations against it.
//
// The vocabulary is the official JSON-LD release file. It is downloaded once
// and cached on disk; when neither the cache nor the download is available,
// validation falls back to structural checks on @context and @type.
package schemaorg
