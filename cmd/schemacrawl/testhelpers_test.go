package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

// testVocabulary is a small excerpt of the schema.org release file.
const testVocabulary = `{
  "@graph": [
    {"@id": "schema:Thing", "@type": "rdfs:Class"},
    {"@id": "schema:Organization", "@type": "rdfs:Class", "rdfs:subClassOf": {"@id": "schema:Thing"}},
    {"@id": "schema:Product", "@type": "rdfs:Class", "rdfs:subClassOf": {"@id": "schema:Thing"}},
    {"@id": "schema:name", "@type": "rdf:Property", "schema:domainIncludes": {"@id": "schema:Thing"}},
    {"@id": "schema:founder", "@type": "rdf:Property", "schema:domainIncludes": {"@id": "schema:Organization"}},
    {"@id": "schema:offers", "@type": "rdf:Property", "schema:domainIncludes": {"@id": "schema:Product"}}
  ]
}`

// newVocabularyServer serves testVocabulary.
func newVocabularyServer(t *testing.T) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/ld+json")
		w.Write([]byte(testVocabulary)) //nolint:errcheck
	}))
	t.Cleanup(server.Close)
	return server
}

// newTestSite serves three linked pages: one with a valid Organization,
// one with an invalid Product and one without JSON-LD.
func newTestSite(t *testing.T) *httptest.Server {
	t.Helper()

	pages := map[string]string{
		"/": `<html><head><title>Home</title>
<script type="application/ld+json">
{"@context": "https://schema.org", "@type": "Organization", "name": "Example", "founder": "Jane"}
</script></head>
<body><a href="/product">Product</a> <a href="/plain">Plain</a></body></html>`,
		"/product": `<html><head><title>Product</title>
<script type="application/ld+json">
{"@context": "https://schema.org", "@type": "Product", "name": "Widget", "colour": "red"}
</script></head>
<body><a href="/">Home</a></body></html>`,
		"/plain": `<html><head><title>Plain</title></head><body>No data here.</body></html>`,
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

// writeEmptyConfig creates an empty config file so tests never pick up a
// .schemacrawl from the working or home directory.
func writeEmptyConfig(t *testing.T, dir string) string {
	t.Helper()

	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("# empty\n"), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

// execute runs the root command with args and returns stdout and stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}
