// Package main provides the entry point for the schemacrawl CLI.
//
// schemacrawl crawls a website, extracts the schema.org JSON-LD
// annotations of every page (generating them with an AI model when a page
// has none), validates them against the schema.org vocabulary and stores
// them next to each other in a directory tree that mirrors the site.
//
// Usage:
//
//	schemacrawl crawl <url>...
//	schemacrawl history [host]
//
// See --help for all available options.
package main

func main() {
	Execute()
}
