package report

import (
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
	"github.com/nao1215/schemacrawl/internal/model"
)

// MarkdownWriter outputs crawl summaries in Markdown format.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs one summary in Markdown format.
func (w *MarkdownWriter) Write(summary *model.CrawlSummary) (int, error) {
	return w.WriteAll([]*model.CrawlSummary{summary})
}

// WriteAll outputs every non-nil summary in one Markdown document.
func (w *MarkdownWriter) WriteAll(summaries []*model.CrawlSummary) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("schemacrawl Report")
	md.PlainText("")

	for _, s := range nonNil(summaries) {
		w.writeHeader(md, s)
		w.writeAnnotations(md, s)
		w.writePages(md, s)
	}

	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the crawl information table.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, summary *model.CrawlSummary) {
	md.H2(summary.Host)
	md.PlainText("")

	rows := [][]string{
		{"Seed URL", "`" + summary.SeedURL + "`"},
		{"Started", summary.StartedAt.Format("2006-01-02 15:04:05 MST")},
		{"Duration", summary.Duration().String()},
		{"Pages Visited", strconv.Itoa(summary.PagesVisited)},
		{"Pages Processed", strconv.Itoa(summary.PagesEmitted)},
		{"Pages Failed", strconv.Itoa(summary.PagesFailed)},
		{"Status", w.getStatusText(summary)},
	}
	if summary.RunID != "" {
		rows = append(rows, []string{"Run ID", "`" + summary.RunID + "`"})
	}

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows:   rows,
	})
	md.PlainText("")
}

// getStatusText returns the status text based on summary state.
func (w *MarkdownWriter) getStatusText(summary *model.CrawlSummary) string {
	switch {
	case summary.Failed():
		return "❌ Error - " + summary.Error
	case summary.Cancelled:
		return "⚠️ Cancelled (partial results)"
	default:
		return "✅ Complete"
	}
}

// writeAnnotations writes the annotation counters, chart and alert.
func (w *MarkdownWriter) writeAnnotations(md *markdown.Markdown, summary *model.CrawlSummary) {
	md.H3("Annotations")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Annotations", "Count"},
		Rows: [][]string{
			{"Found", strconv.Itoa(summary.AnnotationsFound)},
			{"Valid", strconv.Itoa(summary.AnnotationsValid)},
			{"Invalid", strconv.Itoa(summary.AnnotationsInvalid())},
			{"Stored", strconv.Itoa(summary.AnnotationsStored)},
		},
	})
	md.PlainText("")

	if types := typeCounts(summary); len(types) > 0 {
		w.writePieChart(md, types)
	}

	switch {
	case summary.Failed():
		md.Cautionf("The crawl failed: %s", summary.Error)
	case summary.AnnotationsFound == 0:
		md.Note("No schema.org annotations were found or generated.")
	case summary.AnnotationsInvalid() > 0:
		md.Warningf(
			"%d of %d annotation(s) failed schema.org validation.",
			summary.AnnotationsInvalid(), summary.AnnotationsFound,
		)
	default:
		md.Tip("All annotations passed schema.org validation.")
	}
	md.PlainText("")
}

// writePieChart writes a mermaid pie chart of annotation types.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, types []typeCount) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Annotation Types"),
		piechart.WithShowData(true),
	)
	for _, tc := range types {
		chart.LabelAndIntValue(tc.name, uint64(tc.count))
	}

	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writePages writes one table row per page that produced annotations or errors.
func (w *MarkdownWriter) writePages(md *markdown.Markdown, summary *model.CrawlSummary) {
	md.H3("Pages")
	md.PlainText("")

	rows := make([][]string, 0, len(summary.Pages))
	for _, p := range summary.Pages {
		if len(p.Annotations) == 0 && len(p.Errors) == 0 {
			continue
		}
		types := make([]string, 0, len(p.Annotations))
		for _, a := range p.Annotations {
			types = append(types, a.Type)
		}
		rows = append(rows, []string{
			truncateString(p.Page.URL, 60),
			strconv.Itoa(p.Page.Depth),
			orDash(strings.Join(types, ", ")),
			strconv.Itoa(p.ValidCount()) + "/" + strconv.Itoa(len(p.Annotations)),
		})
	}

	if len(rows) == 0 {
		md.PlainText("No pages produced annotations.")
		md.PlainText("")
		return
	}

	md.Table(markdown.TableSet{
		Header: []string{"URL", "Depth", "Types", "Valid"},
		Rows:   rows,
	})
	md.PlainText("")

	for _, p := range summary.Pages {
		if details := pageDetails(p); details != "" {
			md.Details(p.Page.URL, details)
		}
	}
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [schemacrawl](https://github.com/nao1215/schemacrawl)*")
}

// pageDetails lists the validation errors and step failures of a page.
func pageDetails(p *model.PageResult) string {
	var lines []string
	for _, a := range p.Annotations {
		for _, e := range a.Errors {
			lines = append(lines, "- "+a.Type+": "+e)
		}
	}
	for _, e := range p.Errors {
		lines = append(lines, "- "+e)
	}
	return strings.Join(lines, "\n")
}

type typeCount struct {
	name  string
	count int
}

// typeCounts counts annotations per type label in first-seen order.
func typeCounts(summary *model.CrawlSummary) []typeCount {
	index := make(map[string]int)
	var counts []typeCount
	for _, p := range summary.Pages {
		for _, a := range p.Annotations {
			i, ok := index[a.Type]
			if !ok {
				i = len(counts)
				index[a.Type] = i
				counts = append(counts, typeCount{name: a.Type})
			}
			counts[i].count++
		}
	}
	return counts
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// truncateString truncates a string to maxLen characters with ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
