// Package pipeline turns crawled pages into stored annotations.
//
// A Runner drives one crawler.Spider and runs a Pipeline over every page it
// emits: extract the annotations, validate them, store them, and record
// the page in the history database. A BatchRunner crawls several sites at
// once with a bounded number of concurrent crawls.
//
// Processing errors are isolated per page. A failing step is recorded in
// the page's result and the crawl goes on.
package pipeline
