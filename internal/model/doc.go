// Package model defines the data structures shared by the crawler, the
// annotation pipeline, the history database and the report writers.
//
// This package contains the following main types:
//   - Page: A page fetched by the crawler and emitted to consumers
//   - Annotation: A JSON-LD object associated with a page
//   - PageResult: The per-page state carried through the pipeline steps
//   - CrawlSummary: The aggregated outcome of one crawl run
//
// Models live in their own package so that crawler, pipeline, database and
// report can share them without import cycles. All types serialize to JSON
// for report output and database storage.
package model
