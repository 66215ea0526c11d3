package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/nao1215/schemacrawl/internal/model"
)

// SimpleWriter outputs human-readable text reports for terminal display.
type SimpleWriter struct {
	baseWriter

	// showEmpty controls whether pages without annotations are listed.
	showEmpty bool

	// verbose adds validation errors and step failures to the page list.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowEmpty configures the writer to list pages without annotations.
func WithShowEmpty(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showEmpty = show
	}
}

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs one summary in human-readable format.
func (w *SimpleWriter) Write(summary *model.CrawlSummary) (int, error) {
	var sb strings.Builder
	w.writeSummary(&sb, summary)
	w.writeFooter(&sb)
	return w.output.Write([]byte(sb.String()))
}

// WriteAll outputs every non-nil summary followed by batch totals.
func (w *SimpleWriter) WriteAll(summaries []*model.CrawlSummary) (int, error) {
	summaries = nonNil(summaries)

	var sb strings.Builder
	for _, s := range summaries {
		w.writeSummary(&sb, s)
	}
	if len(summaries) > 1 {
		w.writeTotals(&sb, summaries)
	}
	w.writeFooter(&sb)
	return w.output.Write([]byte(sb.String()))
}

func (w *SimpleWriter) writeSummary(sb *strings.Builder, summary *model.CrawlSummary) {
	w.writeHeader(sb, summary)
	w.writeCounts(sb, summary)
	w.writePages(sb, summary)
}

// writeHeader writes the report header with crawl information.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, summary *model.CrawlSummary) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                        SCHEMACRAWL REPORT\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	fmt.Fprintf(sb, "Seed URL:       %s\n", summary.SeedURL)
	if summary.RunID != "" {
		fmt.Fprintf(sb, "Run ID:         %s\n", summary.RunID)
	}
	fmt.Fprintf(sb, "Started:        %s\n", summary.StartedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(sb, "Duration:       %s\n", summary.Duration().Round(time.Millisecond))

	switch {
	case summary.Failed():
		fmt.Fprintf(sb, "Status:         ERROR - %s\n", summary.Error)
	case summary.Cancelled:
		sb.WriteString("Status:         CANCELLED (partial results)\n")
	default:
		sb.WriteString("Status:         Complete\n")
	}
	sb.WriteString("\n")
}

// writeCounts writes the page and annotation counters.
func (w *SimpleWriter) writeCounts(sb *strings.Builder, summary *model.CrawlSummary) {
	writeSection(sb, "SUMMARY")

	fmt.Fprintf(sb, "  Pages visited:        %s\n", humanize.Comma(int64(summary.PagesVisited)))
	fmt.Fprintf(sb, "  Pages processed:      %s\n", humanize.Comma(int64(summary.PagesEmitted)))
	fmt.Fprintf(sb, "  Pages failed:         %s\n", humanize.Comma(int64(summary.PagesFailed)))
	fmt.Fprintf(sb, "  Content fetched:      %s\n", humanize.Bytes(contentBytes(summary)))
	sb.WriteString("\n")
	fmt.Fprintf(sb, "  Annotations found:    %s\n", humanize.Comma(int64(summary.AnnotationsFound)))
	fmt.Fprintf(sb, "  Annotations valid:    %s\n", humanize.Comma(int64(summary.AnnotationsValid)))
	fmt.Fprintf(sb, "  Annotations invalid:  %s\n", humanize.Comma(int64(summary.AnnotationsInvalid())))
	fmt.Fprintf(sb, "  Annotations stored:   %s\n", humanize.Comma(int64(summary.AnnotationsStored)))
	sb.WriteString("\n")
}

// writePages lists the processed pages and their annotations.
func (w *SimpleWriter) writePages(sb *strings.Builder, summary *model.CrawlSummary) {
	pages := make([]*model.PageResult, 0, len(summary.Pages))
	for _, p := range summary.Pages {
		if w.showEmpty || len(p.Annotations) > 0 || (w.verbose && len(p.Errors) > 0) {
			pages = append(pages, p)
		}
	}
	if len(pages) == 0 {
		return
	}

	writeSection(sb, "PAGES")

	for _, p := range pages {
		fmt.Fprintf(sb, "[%s] %s\n", pageIndicator(p), p.Page.URL)
		for _, a := range p.Annotations {
			location := a.Location
			if location == "" {
				location = "not stored"
			}
			fmt.Fprintf(sb, "  * %s -> %s\n", a.Type, location)
			if w.verbose {
				for _, e := range a.Errors {
					fmt.Fprintf(sb, "    ! %s\n", e)
				}
			}
		}
		if w.verbose {
			for _, e := range p.Errors {
				fmt.Fprintf(sb, "  ! %s\n", e)
			}
		}
	}
	sb.WriteString("\n")
}

// writeTotals writes the aggregate counters of a batch.
func (w *SimpleWriter) writeTotals(sb *strings.Builder, summaries []*model.CrawlSummary) {
	writeSection(sb, "BATCH TOTALS")

	var pages, found, valid, stored, failed int
	for _, s := range summaries {
		pages += s.PagesEmitted
		found += s.AnnotationsFound
		valid += s.AnnotationsValid
		stored += s.AnnotationsStored
		if s.Failed() {
			failed++
		}
	}
	fmt.Fprintf(sb, "  Sites:                %d (%d failed)\n", len(summaries), failed)
	fmt.Fprintf(sb, "  Pages processed:      %s\n", humanize.Comma(int64(pages)))
	fmt.Fprintf(sb, "  Annotations found:    %s\n", humanize.Comma(int64(found)))
	fmt.Fprintf(sb, "  Annotations valid:    %s\n", humanize.Comma(int64(valid)))
	fmt.Fprintf(sb, "  Annotations stored:   %s\n", humanize.Comma(int64(stored)))
	sb.WriteString("\n")
}

// writeFooter writes the report footer.
func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("Report generated by schemacrawl\n")
	sb.WriteString("https://github.com/nao1215/schemacrawl\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}

func writeSection(sb *strings.Builder, title string) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString(title)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")
}

// pageIndicator summarizes a page's annotations in a few characters.
func pageIndicator(p *model.PageResult) string {
	switch {
	case len(p.Annotations) == 0 && len(p.Errors) > 0:
		return "!!"
	case len(p.Annotations) == 0:
		return "--"
	case p.ValidCount() == len(p.Annotations):
		return "ok"
	default:
		return "!"
	}
}

// contentBytes sums the decoded size of every processed page.
func contentBytes(summary *model.CrawlSummary) uint64 {
	var total uint64
	for _, p := range summary.Pages {
		if p.Page != nil {
			total += uint64(p.Page.Size())
		}
	}
	return total
}
