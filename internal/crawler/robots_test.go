package crawler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
)

func TestParseRobots(t *testing.T) {
	t.Parallel()

	body := []byte("User-agent: *\nDisallow: /private/\nDisallow: /search?\n")
	robots, err := ParseRobots(body, "schemacrawl")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := map[string]bool{
		"https://example.com/":            true,
		"https://example.com/public/page": true,
		"https://example.com/private/":    false,
		"https://example.com/private/a":   false,
	}
	for target, want := range tests {
		if got := robots.Allowed(target); got != want {
			t.Errorf("Allowed(%q) = %v, want %v", target, got, want)
		}
	}
}

func TestNilRobotsAllowsEverything(t *testing.T) {
	t.Parallel()

	var robots *Robots
	if !robots.Allowed("https://example.com/private") {
		t.Error("expected nil robots to allow everything")
	}
}

func TestFetchRobots(t *testing.T) {
	t.Parallel()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name    string
		status  int
		body    string
		allowed bool
	}{
		{name: "rules are applied", status: http.StatusOK, body: "User-agent: *\nDisallow: /\n", allowed: false},
		{name: "missing file allows all", status: http.StatusNotFound, allowed: true},
		{name: "server error allows all", status: http.StatusServiceUnavailable, allowed: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/robots.txt" {
					t.Errorf("unexpected request for %s", r.URL.Path)
				}
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body)) //nolint:errcheck
			}))
			defer server.Close()

			seed, err := url.Parse(server.URL + "/start")
			if err != nil {
				t.Fatal(err)
			}

			robots := fetchRobots(context.Background(), server.Client(), seed, "schemacrawl", logger)
			if got := robots.Allowed(server.URL + "/page"); got != tt.allowed {
				t.Errorf("Allowed() = %v, want %v", got, tt.allowed)
			}
		})
	}
}
