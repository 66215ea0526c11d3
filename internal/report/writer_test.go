package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/schemacrawl/internal/model"
)

// createTestSummary creates a summary with one valid, one invalid and one
// empty page.
func createTestSummary() *model.CrawlSummary {
	summary := model.NewCrawlSummary("https://example.com/", "example.com")
	summary.RunID = "0b9f4c1e-run"
	summary.StartedAt = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	summary.FinishedAt = summary.StartedAt.Add(1500 * time.Millisecond)
	summary.PagesVisited = 4

	home := model.NewPageResult(&model.Page{
		URL:     "https://example.com/",
		Content: strings.Repeat("a", 2000),
	})
	home.Annotations = append(home.Annotations, &model.StoredAnnotation{
		Type:     "Organization",
		Location: "schemas/example.com/index/schema.json",
	})
	summary.AddPage(home)

	product := model.NewPageResult(&model.Page{
		URL:   "https://example.com/shop/product.html",
		Depth: 1,
	})
	product.Annotations = append(product.Annotations, &model.StoredAnnotation{
		Type:   "Product",
		Errors: []string{"unknown schema.org property: colour"},
	})
	product.AddError("store", errors.New("disk full"))
	summary.AddPage(product)

	summary.AddPage(model.NewPageResult(&model.Page{
		URL:   "https://example.com/about",
		Depth: 1,
	}))
	summary.PagesFailed = 1

	return summary
}

func TestSimpleWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes header and counters", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(createTestSummary()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		for _, want := range []string{
			"SCHEMACRAWL REPORT",
			"Seed URL:       https://example.com/",
			"Run ID:         0b9f4c1e-run",
			"Duration:       1.5s",
			"Status:         Complete",
			"Pages visited:        4",
			"Pages processed:      3",
			"Pages failed:         1",
			"Content fetched:      2.0 kB",
			"Annotations found:    2",
			"Annotations valid:    1",
			"Annotations invalid:  1",
			"Annotations stored:   1",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q\n%s", want, output)
			}
		}
	})

	t.Run("lists annotated pages only by default", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(createTestSummary()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "[ok] https://example.com/\n") {
			t.Error("expected valid page indicator")
		}
		if !strings.Contains(output, "[!] https://example.com/shop/product.html") {
			t.Error("expected invalid page indicator")
		}
		if !strings.Contains(output, "* Product -> not stored") {
			t.Error("expected unstored annotation")
		}
		if strings.Contains(output, "https://example.com/about") {
			t.Error("page without annotations should be hidden")
		}
		if strings.Contains(output, "unknown schema.org property") {
			t.Error("validation errors should only appear in verbose mode")
		}
	})

	t.Run("verbose mode includes errors", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewSimpleWriter(&buf, WithVerbose(true))
		if _, err := w.Write(createTestSummary()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "! unknown schema.org property: colour") {
			t.Error("expected validation error in verbose output")
		}
		if !strings.Contains(output, "! store: disk full") {
			t.Error("expected step error in verbose output")
		}
	})

	t.Run("show empty lists every page", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewSimpleWriter(&buf, WithShowEmpty(true))
		if _, err := w.Write(createTestSummary()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if !strings.Contains(buf.String(), "[--] https://example.com/about") {
			t.Error("expected empty page to be listed")
		}
	})

	t.Run("status reflects cancellation and errors", func(t *testing.T) {
		t.Parallel()

		cancelled := createTestSummary()
		cancelled.Cancelled = true
		failed := model.NewCrawlSummary("ftp://example.com", "")
		failed.Error = "invalid seed URL"

		tests := []struct {
			name    string
			summary *model.CrawlSummary
			want    string
		}{
			{"cancelled", cancelled, "Status:         CANCELLED (partial results)"},
			{"failed", failed, "Status:         ERROR - invalid seed URL"},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				t.Parallel()

				var buf bytes.Buffer
				if _, err := NewSimpleWriter(&buf).Write(tt.summary); err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if !strings.Contains(buf.String(), tt.want) {
					t.Errorf("expected %q in output", tt.want)
				}
			})
		}
	})

	t.Run("WriteAll skips nil and adds totals", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		summaries := []*model.CrawlSummary{createTestSummary(), nil, createTestSummary()}
		n, err := NewSimpleWriter(&buf).WriteAll(summaries)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n != buf.Len() {
			t.Errorf("expected %d bytes reported, got %d", buf.Len(), n)
		}

		output := buf.String()
		if got := strings.Count(output, "SCHEMACRAWL REPORT"); got != 2 {
			t.Errorf("expected 2 reports, got %d", got)
		}
		if !strings.Contains(output, "BATCH TOTALS") {
			t.Error("expected batch totals")
		}
		if !strings.Contains(output, "Sites:                2 (0 failed)") {
			t.Error("expected site count")
		}
		if !strings.Contains(output, "Annotations found:    4") {
			t.Error("expected summed annotation count")
		}
	})
}

func TestJSONWriter(t *testing.T) {
	t.Parallel()

	t.Run("outputs valid JSON envelope", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewJSONWriter(&buf, WithVersion("v1.2.3"))
		if _, err := w.Write(createTestSummary()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var got JSONReport
		if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if got.Version != "v1.2.3" {
			t.Errorf("expected version v1.2.3, got %q", got.Version)
		}
		if len(got.Crawls) != 1 {
			t.Fatalf("expected 1 crawl, got %d", len(got.Crawls))
		}
		if got.Crawls[0].AnnotationsFound != 2 {
			t.Errorf("expected 2 annotations, got %d", got.Crawls[0].AnnotationsFound)
		}
		if strings.Contains(buf.String(), strings.Repeat("a", 2000)) {
			t.Error("page content must not be serialized")
		}
	})

	t.Run("compact output by default", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf).Write(createTestSummary()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := strings.TrimSuffix(buf.String(), "\n")
		if strings.Contains(output, "\n") {
			t.Error("expected compact single-line output")
		}
		if strings.Contains(output, `"version"`) {
			t.Error("empty version should be omitted")
		}
	})

	t.Run("pretty print with indent", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf, WithPrettyPrint()).Write(createTestSummary()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "\n  \"crawls\"") {
			t.Error("expected two-space indentation")
		}
	})

	t.Run("uses custom prefix and indent", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf, WithIndent(">", "\t")).Write(createTestSummary()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "\n>\t\"crawls\"") {
			t.Error("expected custom prefix and tab indentation")
		}
	})

	t.Run("WriteAll writes one document", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		summaries := []*model.CrawlSummary{nil, createTestSummary(), createTestSummary()}
		if _, err := NewJSONWriter(&buf).WriteAll(summaries); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var got JSONReport
		if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if len(got.Crawls) != 2 {
			t.Errorf("expected 2 crawls, got %d", len(got.Crawls))
		}
	})
}

func TestMarkdownWriter(t *testing.T) {
	t.Parallel()

	write := func(t *testing.T, summary *model.CrawlSummary) string {
		t.Helper()
		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(summary); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		return buf.String()
	}

	t.Run("writes header table", func(t *testing.T) {
		t.Parallel()

		output := write(t, createTestSummary())
		for _, want := range []string{
			"# schemacrawl Report",
			"## example.com",
			"`https://example.com/`",
			"`0b9f4c1e-run`",
			"✅ Complete",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q", want)
			}
		}
	})

	t.Run("writes pages table and details", func(t *testing.T) {
		t.Parallel()

		output := write(t, createTestSummary())
		if !strings.Contains(output, "https://example.com/shop/product.html") {
			t.Error("expected product page row")
		}
		if strings.Contains(output, "https://example.com/about") {
			t.Error("page without annotations or errors should be omitted")
		}
		if !strings.Contains(output, "<details>") {
			t.Error("expected details block")
		}
		if !strings.Contains(output, "Product: unknown schema.org property: colour") {
			t.Error("expected validation error in details")
		}
	})

	t.Run("includes pie chart of types", func(t *testing.T) {
		t.Parallel()

		output := write(t, createTestSummary())
		if !strings.Contains(output, "```mermaid") {
			t.Error("expected mermaid code block")
		}
		if !strings.Contains(output, "Annotation Types") {
			t.Error("expected chart title")
		}
	})

	t.Run("alerts", func(t *testing.T) {
		t.Parallel()

		invalid := createTestSummary()

		allValid := createTestSummary()
		allValid.Pages = allValid.Pages[:1]
		allValid.AnnotationsFound = 1
		allValid.AnnotationsValid = 1

		empty := model.NewCrawlSummary("https://example.com/", "example.com")

		failed := model.NewCrawlSummary("ftp://example.com", "")
		failed.Error = "invalid seed URL"

		tests := []struct {
			name    string
			summary *model.CrawlSummary
			want    string
		}{
			{"invalid annotations", invalid, "[!WARNING]"},
			{"all valid", allValid, "[!TIP]"},
			{"none found", empty, "[!NOTE]"},
			{"failed", failed, "[!CAUTION]"},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				t.Parallel()

				if output := write(t, tt.summary); !strings.Contains(output, tt.want) {
					t.Errorf("expected %s alert", tt.want)
				}
			})
		}
	})

	t.Run("handles summary with no pages", func(t *testing.T) {
		t.Parallel()

		output := write(t, model.NewCrawlSummary("https://example.com/", "example.com"))
		if !strings.Contains(output, "No pages produced annotations.") {
			t.Error("expected empty pages message")
		}
		if strings.Contains(output, "```mermaid") {
			t.Error("no chart expected without annotations")
		}
	})

	t.Run("writes footer with link", func(t *testing.T) {
		t.Parallel()

		output := write(t, createTestSummary())
		if !strings.Contains(output, "https://github.com/nao1215/schemacrawl") {
			t.Error("expected project link in footer")
		}
	})
}

func TestMultiWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes to all writers", func(t *testing.T) {
		t.Parallel()

		var text, js bytes.Buffer
		m := NewMultiWriter(NewSimpleWriter(&text), NewJSONWriter(&js))

		n, err := m.Write(createTestSummary())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n != text.Len()+js.Len() {
			t.Errorf("expected %d bytes, got %d", text.Len()+js.Len(), n)
		}
		if !strings.Contains(text.String(), "SCHEMACRAWL REPORT") {
			t.Error("expected text output")
		}
		if !json.Valid(js.Bytes()) {
			t.Error("expected valid JSON output")
		}
	})

	t.Run("WriteAll reaches all writers", func(t *testing.T) {
		t.Parallel()

		var a, b bytes.Buffer
		m := NewMultiWriter(NewMarkdownWriter(&a), NewMarkdownWriter(&b))
		if _, err := m.WriteAll([]*model.CrawlSummary{createTestSummary()}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if a.String() != b.String() || a.Len() == 0 {
			t.Error("expected identical non-empty output")
		}
	})

	t.Run("handles empty writers list", func(t *testing.T) {
		t.Parallel()

		n, err := NewMultiWriter().Write(createTestSummary())
		if err != nil || n != 0 {
			t.Errorf("expected (0, nil), got (%d, %v)", n, err)
		}
	})
}

func TestTruncateString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input  string
		maxLen int
		want   string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"this is too long", 10, "this is..."},
		{"abcdef", 3, "abc"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()

			if got := truncateString(tt.input, tt.maxLen); got != tt.want {
				t.Errorf("truncateString(%q, %d) = %q, want %q", tt.input, tt.maxLen, got, tt.want)
			}
		})
	}
}
