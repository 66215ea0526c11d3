package model

import "time"

// CrawlSummary is the aggregated outcome of crawling one seed URL.
type CrawlSummary struct {
	// SeedURL is the URL the crawl started from.
	SeedURL string `json:"seed_url"`

	// Host is the allowed host derived from the seed.
	Host string `json:"host"`

	// RunID is the history database identifier. Empty when not recorded.
	RunID string `json:"run_id,omitempty"`

	// StartedAt and FinishedAt bound the crawl run.
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	// PagesVisited counts URLs claimed for fetching, including failures.
	PagesVisited int `json:"pages_visited"`

	// PagesEmitted counts pages successfully fetched and processed.
	PagesEmitted int `json:"pages_emitted"`

	// PagesFailed counts fetch attempts that produced no page.
	PagesFailed int `json:"pages_failed"`

	// AnnotationsFound is the total number of extracted annotations.
	AnnotationsFound int `json:"annotations_found"`

	// AnnotationsValid is how many of them passed validation.
	AnnotationsValid int `json:"annotations_valid"`

	// AnnotationsStored is how many were written by the store.
	AnnotationsStored int `json:"annotations_stored"`

	// Pages lists the per-page results in emission order.
	Pages []*PageResult `json:"pages,omitempty"`

	// Cancelled is true when the crawl stopped before the frontier drained.
	Cancelled bool `json:"cancelled"`

	// Error holds a fatal error message, if any.
	Error string `json:"error,omitempty"`
}

// NewCrawlSummary creates an empty summary for the given seed.
func NewCrawlSummary(seedURL, host string) *CrawlSummary {
	return &CrawlSummary{
		SeedURL:   seedURL,
		Host:      host,
		StartedAt: time.Now(),
		Pages:     make([]*PageResult, 0),
	}
}

// AddPage appends a processed page and updates the annotation counters.
func (s *CrawlSummary) AddPage(result *PageResult) {
	s.Pages = append(s.Pages, result)
	s.PagesEmitted++
	s.AnnotationsFound += len(result.Annotations)
	for _, a := range result.Annotations {
		if a.Valid() {
			s.AnnotationsValid++
		}
		if a.Location != "" {
			s.AnnotationsStored++
		}
	}
}

// AnnotationsInvalid returns the number of annotations that failed validation.
func (s *CrawlSummary) AnnotationsInvalid() int {
	return s.AnnotationsFound - s.AnnotationsValid
}

// Duration returns how long the crawl took.
// It returns zero if the crawl has not finished.
func (s *CrawlSummary) Duration() time.Duration {
	if s.FinishedAt.IsZero() {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}

// Failed reports whether the run ended with a fatal error.
func (s *CrawlSummary) Failed() bool {
	return s.Error != ""
}
