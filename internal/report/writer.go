package report

import (
	"io"

	"github.com/nao1215/schemacrawl/internal/model"
)

// Writer defines the interface for crawl report output.
type Writer interface {
	// Write outputs the summary of one crawl.
	// Returns the number of bytes written and any error encountered.
	Write(summary *model.CrawlSummary) (int, error)

	// WriteAll outputs the summaries of a batch crawl.
	// Nil entries are seeds that never started and are skipped.
	WriteAll(summaries []*model.CrawlSummary) (int, error)
}

// MultiWriter writes to multiple Writers simultaneously.
// This is useful for outputting to both terminal and file.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the summary to all configured Writers.
// Stops on first error encountered.
func (m *MultiWriter) Write(summary *model.CrawlSummary) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(summary)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// WriteAll outputs the summaries to all configured Writers.
func (m *MultiWriter) WriteAll(summaries []*model.CrawlSummary) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.WriteAll(summaries)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// nonNil drops the nil entries of a batch result.
func nonNil(summaries []*model.CrawlSummary) []*model.CrawlSummary {
	out := make([]*model.CrawlSummary, 0, len(summaries))
	for _, s := range summaries {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

// statusText returns a one-word status for the summary.
func statusText(summary *model.CrawlSummary) string {
	switch {
	case summary.Failed():
		return "Error"
	case summary.Cancelled:
		return "Cancelled"
	default:
		return "Complete"
	}
}
