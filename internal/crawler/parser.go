package crawler

import (
	"io"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// Parser extracts the title and links from an HTML page.
//
// It uses golang.org/x/net/html, which follows the HTML5 parsing algorithm
// and therefore accepts the malformed markup common on the web.
type Parser struct {
	// baseURL is the URL of the page being parsed, used to resolve links.
	baseURL *url.URL

	// scope classifies resolved links. Nil treats every link as external.
	scope *Scope
}

// ParseResult contains everything extracted in one pass over a page.
type ParseResult struct {
	// Title is the trimmed text of the first <title> element.
	// Empty when the page has no title.
	Title string

	// Links contains every resolved and normalized anchor URL, in document
	// order, without duplicates.
	Links []string

	// InternalLinks is the subset of Links that is in scope.
	InternalLinks []string

	// ExternalLinks is the subset of Links that is out of scope.
	ExternalLinks []string
}

// NewParser creates a parser for a page at baseURL.
func NewParser(baseURL string, scope *Scope) (*Parser, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	return &Parser{baseURL: u, scope: scope}, nil
}

// Parse parses HTML content and extracts the title and links.
func (p *Parser) Parse(content io.Reader) (*ParseResult, error) {
	doc, err := html.Parse(content)
	if err != nil {
		return nil, err
	}

	result := &ParseResult{
		Links:         make([]string, 0),
		InternalLinks: make([]string, 0),
		ExternalLinks: make([]string, 0),
	}
	seen := make(map[string]bool)
	titleFound := false

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "title":
				if !titleFound {
					titleFound = true
					result.Title = strings.TrimSpace(textContent(n))
				}
			case "a":
				if link := p.resolveURL(getAttr(n, "href")); link != "" && !seen[link] {
					seen[link] = true
					p.classifyLink(link, result)
				}
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return result, nil
}

// resolveURL resolves href against the page URL and normalizes it.
// It returns "" for empty, non-navigational or malformed values.
func (p *Parser) resolveURL(href string) string {
	href = strings.TrimSpace(href)
	if href == "" || href == "#" {
		return ""
	}

	lower := strings.ToLower(href)
	for _, prefix := range []string{"javascript:", "mailto:", "tel:", "data:"} {
		if strings.HasPrefix(lower, prefix) {
			return ""
		}
	}

	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}

	return normalizeURL(p.baseURL.ResolveReference(ref))
}

// classifyLink appends link to Links and to the internal or external subset.
func (p *Parser) classifyLink(link string, result *ParseResult) {
	result.Links = append(result.Links, link)
	if p.scope != nil && p.scope.InScope(link) {
		result.InternalLinks = append(result.InternalLinks, link)
		return
	}
	result.ExternalLinks = append(result.ExternalLinks, link)
}

// ExtractLinks returns the in-scope links of an HTML page.
// Content that cannot be parsed yields no links.
func ExtractLinks(content, pageURL string, scope *Scope) []string {
	parser, err := NewParser(pageURL, scope)
	if err != nil {
		return nil
	}
	result, err := parser.Parse(strings.NewReader(content))
	if err != nil {
		return nil
	}
	return result.InternalLinks
}

// ExtractTitle returns the page title, or pageURL when there is none.
func ExtractTitle(content, pageURL string) string {
	doc, err := html.Parse(strings.NewReader(content))
	if err != nil {
		return pageURL
	}
	if n := findElement(doc, "title"); n != nil {
		if title := strings.TrimSpace(textContent(n)); title != "" {
			return title
		}
	}
	return pageURL
}

// findElement returns the first element named tag in document order.
func findElement(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, tag); found != nil {
			return found
		}
	}
	return nil
}

// textContent concatenates the text nodes below n.
func textContent(n *html.Node) string {
	var sb strings.Builder
	var collect func(*html.Node)
	collect = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(n)
	return sb.String()
}

// getAttr retrieves an attribute value from an HTML node.
func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}
