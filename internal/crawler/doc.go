// Package crawler discovers the pages of a single website by following links.
//
// # Architecture
//
// The Spider type drives a breadth-first traversal from a seed URL. Each
// iteration claims one target from the Frontier, fetches it, yields the page
// to the consumer and pushes the page's in-scope links one level deeper.
// The crawl stops when the frontier is empty or the page budget is spent.
//
// # Components
//
//   - Frontier: FIFO queue plus visited set; Claim pops and marks visited atomically
//   - Normalize: canonical URL form used as the deduplication key
//   - Scope: same-host filter with optional path patterns
//   - Fetcher: single GET with charset decoding and classified errors
//   - Parser: title and link extraction
//   - Pacer: minimum delay between fetches
//   - Robots: robots.txt rules for the crawl's user agent
//
// # Usage
//
//	spider, err := crawler.New("https://example.com/", crawler.DefaultPolicy())
//	if err != nil {
//		return err
//	}
//	for page := range spider.Pages(ctx) {
//		fmt.Println(page.URL, page.Title)
//	}
//	if err := spider.Err(); err != nil {
//		return err
//	}
//
// # Politeness
//
//   - One request in flight per Spider
//   - Configurable delay between requests
//   - robots.txt honored when enabled
//   - Connections per host capped by the transport
//
// A failed fetch never stops the crawl. It still counts toward the page
// budget so that a site full of broken links cannot keep the crawler busy.
package crawler
