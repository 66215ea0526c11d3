package pipeline

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nao1215/schemacrawl/internal/annotation"
	"github.com/nao1215/schemacrawl/internal/config"
	"github.com/nao1215/schemacrawl/internal/crawler"
	"github.com/nao1215/schemacrawl/internal/database"
	"github.com/nao1215/schemacrawl/internal/model"
	"github.com/nao1215/schemacrawl/internal/schemaorg"
)

// newTestSite serves a small site with embedded JSON-LD on two of its pages.
func newTestSite(t *testing.T) *httptest.Server {
	t.Helper()

	pages := map[string]string{
		"/": `<html><head><title>Home</title>
			<script type="application/ld+json">{"@context":"https://schema.org","@type":"Organization","name":"ACME"}</script>
			</head><body>
			<a href="/about">About</a>
			<a href="/shop/product.html">Product</a>
			<a href="https://elsewhere.example/">External</a>
			</body></html>`,
		"/about": `<html><head><title>About</title></head><body><a href="/">Home</a></body></html>`,
		"/shop/product.html": `<html><head><title>Product</title>
			<script type="application/ld+json">{"@context":"https://schema.org","@type":"Product","name":"Shoe"}</script>
			</head><body></body></html>`,
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := pages[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(body)) //nolint:errcheck
	}))
	t.Cleanup(server.Close)
	return server
}

func testConfig() *config.Config {
	cfg := config.NewConfig()
	cfg.Delay = 0
	cfg.Timeout = 5 * time.Second
	cfg.RespectRobotsTxt = false
	return cfg
}

func testComponents(t *testing.T, root string) Components {
	t.Helper()

	store, err := annotation.NewFileStore(root, annotation.FormatJSON)
	if err != nil {
		t.Fatal(err)
	}
	return Components{
		Extractor: annotation.NewEmbeddedExtractor(discardLogger()),
		Validator: schemaorg.NewValidator(nil),
		Store:     store,
	}
}

func storeHost(t *testing.T, server *httptest.Server) string {
	t.Helper()

	u, err := url.Parse(server.URL)
	if err != nil {
		t.Fatal(err)
	}
	return strings.ReplaceAll(u.Host, ":", "_")
}

func TestRunnerRun(t *testing.T) {
	t.Parallel()

	server := newTestSite(t)
	root := t.TempDir()

	db, err := database.Open(t.TempDir(), database.DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })

	components := testComponents(t, root)
	components.DB = db

	var mu sync.Mutex
	var seen []string

	runner := NewRunner(testConfig(),
		func() *Pipeline { return DefaultPipeline(components, WithLogger(discardLogger())) },
		WithRunnerLogger(discardLogger()),
		WithHistory(db),
		WithPageCallback(func(r *model.PageResult) {
			mu.Lock()
			defer mu.Unlock()
			seen = append(seen, r.Page.URL)
		}),
	)

	summary, err := runner.Run(context.Background(), server.URL+"/")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if summary.PagesEmitted != 3 || summary.PagesVisited != 3 || summary.PagesFailed != 0 {
		t.Errorf("unexpected page counters visited=%d emitted=%d failed=%d",
			summary.PagesVisited, summary.PagesEmitted, summary.PagesFailed)
	}
	if summary.AnnotationsFound != 2 || summary.AnnotationsValid != 2 || summary.AnnotationsStored != 2 {
		t.Errorf("unexpected annotation counters found=%d valid=%d stored=%d",
			summary.AnnotationsFound, summary.AnnotationsValid, summary.AnnotationsStored)
	}
	if summary.Cancelled || summary.Failed() {
		t.Errorf("unexpected terminal state cancelled=%v error=%q", summary.Cancelled, summary.Error)
	}
	if len(seen) != 3 || seen[0] != summary.SeedURL {
		t.Errorf("expected callback for every page starting with the seed, got %v", seen)
	}

	host := storeHost(t, server)
	for _, path := range []string{
		filepath.Join(root, host, "index", "schema.json"),
		filepath.Join(root, host, "shop", "product", "schema.json"),
	} {
		if _, err := os.Stat(path); err != nil {
			t.Errorf("expected %s to exist: %v", path, err)
		}
	}

	run, err := db.GetRun(context.Background(), summary.RunID)
	if err != nil {
		t.Fatalf("expected run to be recorded: %v", err)
	}
	if !run.Finished() || run.PagesEmitted != 3 || run.AnnotationsStored != 2 {
		t.Errorf("unexpected recorded run %+v", run)
	}
	pages, err := db.ListPages(context.Background(), summary.RunID)
	if err != nil {
		t.Fatal(err)
	}
	if len(pages) != 3 {
		t.Errorf("expected 3 recorded pages, got %d", len(pages))
	}
}

func TestRunnerInvalidSeed(t *testing.T) {
	t.Parallel()

	runner := NewRunner(testConfig(),
		func() *Pipeline { return New() },
		WithRunnerLogger(discardLogger()))

	summary, err := runner.Run(context.Background(), "example.com/no-scheme")
	if !errors.Is(err, crawler.ErrInvalidSeedURL) {
		t.Errorf("expected ErrInvalidSeedURL, got %v", err)
	}
	if summary == nil || !summary.Failed() {
		t.Fatal("expected a failed summary")
	}
	if summary.PagesVisited != 0 {
		t.Errorf("expected no fetch, got %d", summary.PagesVisited)
	}
}

func TestRunnerCancel(t *testing.T) {
	t.Parallel()

	server := newTestSite(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runner := NewRunner(testConfig(),
		func() *Pipeline { return DefaultPipeline(testComponents(t, t.TempDir()), WithLogger(discardLogger())) },
		WithRunnerLogger(discardLogger()),
		WithPageCallback(func(*model.PageResult) { cancel() }),
	)

	summary, err := runner.Run(ctx, server.URL+"/")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if !summary.Cancelled {
		t.Error("expected a cancelled summary")
	}
	if summary.PagesEmitted != 1 {
		t.Errorf("expected the seed page only, got %d", summary.PagesEmitted)
	}
	if summary.FinishedAt.IsZero() {
		t.Error("expected finish time to be set")
	}
}

func TestPolicyFromConfig(t *testing.T) {
	t.Parallel()

	delay := 3 * time.Second
	siteDepth := 1
	cfg := testConfig()
	cfg.MaxPages = 50
	cfg.Proxy = "127.0.0.1:1080"
	cfg.SiteConfigs = &config.File{
		Defaults: config.SiteConfig{Cookie: "lang=en"},
		Sites: map[string]config.SiteConfig{
			"example.com": {
				Depth:          &siteDepth,
				MaxPages:       5,
				Delay:          &delay,
				Headers:        map[string]string{"X-Token": "t"},
				IgnorePatterns: []string{"/admin/*"},
			},
		},
	}

	policy := PolicyFromConfig(cfg, hostOf("https://Example.com/start"))
	if policy.MaxDepth != 1 || policy.MaxPages != 5 || policy.Delay != delay {
		t.Errorf("expected site overrides, got %+v", policy)
	}
	if policy.Cookie != "lang=en" || policy.Headers["X-Token"] != "t" || len(policy.IgnorePatterns) != 1 {
		t.Errorf("expected site request settings, got %+v", policy)
	}
	if policy.Proxy != cfg.Proxy || policy.UserAgent != cfg.UserAgent {
		t.Errorf("expected global settings, got %+v", policy)
	}
	if err := policy.Validate(); err != nil {
		t.Errorf("expected a valid policy, got %v", err)
	}

	other := PolicyFromConfig(cfg, "other.example")
	if other.MaxPages != 50 || other.MaxDepth != cfg.MaxDepth || other.Cookie != "lang=en" {
		t.Errorf("expected global values for other hosts, got %+v", other)
	}
}

func TestPolicyFromConfigSeedOnlySite(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "crawl:\n  maxDepth: 3\nsites:\n  example.com:\n    depth: 0\n"
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	file, err := config.LoadConfigFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cfg := config.NewConfig()
	cfg.ApplyFile(file)

	if got := PolicyFromConfig(cfg, "example.com").MaxDepth; got != 0 {
		t.Errorf("expected depth 0 for the seed-only site, got %d", got)
	}
	if got := PolicyFromConfig(cfg, "other.example").MaxDepth; got != 3 {
		t.Errorf("expected the global depth for other hosts, got %d", got)
	}
}

func TestBatchRunner(t *testing.T) {
	t.Parallel()

	first := newTestSite(t)
	second := newTestSite(t)

	runner := NewRunner(testConfig(),
		func() *Pipeline { return DefaultPipeline(testComponents(t, t.TempDir()), WithLogger(discardLogger())) },
		WithRunnerLogger(discardLogger()))
	batch := NewBatchRunner(runner, WithConcurrency(2), WithBatchLogger(discardLogger()))

	seeds := []string{first.URL + "/", "ftp://invalid.example/", second.URL + "/about"}
	summaries, err := batch.Run(context.Background(), seeds)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(summaries) != 3 {
		t.Fatalf("expected 3 summaries, got %d", len(summaries))
	}

	if summaries[0].PagesEmitted != 3 {
		t.Errorf("expected 3 pages for the first site, got %d", summaries[0].PagesEmitted)
	}
	if !summaries[1].Failed() {
		t.Error("expected the invalid seed to fail")
	}
	if summaries[2].SeedURL != second.URL+"/about" || summaries[2].PagesEmitted != 3 {
		t.Errorf("unexpected third summary %+v", summaries[2])
	}
}

func TestBatchRunnerCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	runner := NewRunner(testConfig(), func() *Pipeline { return New() }, WithRunnerLogger(discardLogger()))
	batch := NewBatchRunner(runner, WithBatchLogger(discardLogger()))

	summaries, err := batch.Run(ctx, []string{"https://a.example/", "https://b.example/"})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	for i, s := range summaries {
		if s != nil {
			t.Errorf("summary %d: expected nil for a crawl that never started", i)
		}
	}
}
