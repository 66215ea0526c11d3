package crawler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/temoto/robotstxt"
)

// maxRobotsSize limits how much of robots.txt is read.
const maxRobotsSize = 512 * 1024

// Robots holds the robots.txt rules that apply to our user agent.
// A nil *Robots allows everything.
type Robots struct {
	group *robotstxt.Group
}

// ParseRobots parses a robots.txt body for the given user agent.
func ParseRobots(body []byte, userAgent string) (*Robots, error) {
	data, err := robotstxt.FromBytes(body)
	if err != nil {
		return nil, err
	}
	return &Robots{group: data.FindGroup(userAgent)}, nil
}

// Allowed reports whether target may be fetched.
func (r *Robots) Allowed(target string) bool {
	if r == nil || r.group == nil {
		return true
	}
	u, err := url.Parse(target)
	if err != nil {
		return false
	}
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	return r.group.Test(path)
}

// fetchRobots downloads robots.txt from the seed origin.
//
// A missing file or any 4xx status allows everything. Server errors and
// network failures also allow everything; they are logged because the site
// may have rules we could not see.
func fetchRobots(ctx context.Context, client *http.Client, seed *url.URL, userAgent string, logger *slog.Logger) *Robots {
	robotsURL := (&url.URL{Scheme: seed.Scheme, Host: seed.Host, Path: "/robots.txt"}).String()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		logger.Warn("failed to build robots.txt request", "url", robotsURL, "error", err)
		return nil
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		logger.Warn("failed to fetch robots.txt, crawling without rules", "url", robotsURL, "error", err)
		return nil
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= http.StatusInternalServerError:
		logger.Warn("robots.txt returned server error, crawling without rules",
			"url", robotsURL, "status", resp.StatusCode)
		return nil
	case resp.StatusCode >= http.StatusBadRequest:
		logger.Debug("no robots.txt", "url", robotsURL, "status", resp.StatusCode)
		return nil
	case resp.StatusCode >= http.StatusMultipleChoices:
		// Unfollowed redirect.
		return nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRobotsSize))
	if err != nil {
		logger.Warn("failed to read robots.txt, crawling without rules", "url", robotsURL, "error", err)
		return nil
	}

	robots, err := ParseRobots(body, userAgent)
	if err != nil {
		logger.Warn("failed to parse robots.txt, crawling without rules", "url", robotsURL, "error", err)
		return nil
	}
	return robots
}
