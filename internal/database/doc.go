// Package database provides SQLite-based crawl history for schemacrawl.
//
// This package implements the CrawlDB, which stores:
//   - Crawl runs with their final counters
//   - The pages each run fetched, with a content hash
//   - The annotations found on each page and their validation result
//
// The history is a single SQLite file (modernc.org/sqlite, no cgo) in the
// XDG data directory. WAL mode lets the history command read while a crawl
// writes.
package database
