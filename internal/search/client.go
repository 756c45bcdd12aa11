// Package search runs web searches against the DuckDuckGo HTML
// endpoint and parses the result page into structured hits.
package search

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/znz-systems/inboxpilot/internal/models"
)

const DefaultBaseURL = "https://html.duckduckgo.com/html/"

// Client implements analysis.Searcher.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Search posts the query and scrapes up to maxResults hits out of the
// HTML response.
func (c *Client) Search(ctx context.Context, query string, maxResults int) ([]models.SearchResult, error) {
	form := url.Values{"q": {query}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("building search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; inboxpilot/1.0)")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("performing search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search returned status %d", resp.StatusCode)
	}

	doc, err := html.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing search response: %w", err)
	}

	results := parseResults(doc)
	if len(results) > maxResults {
		results = results[:maxResults]
	}
	return results, nil
}

// parseResults walks the document collecting result links
// (class result__a) and snippets (class result__snippet). The page
// lists them in order, so they are paired positionally.
func parseResults(doc *html.Node) []models.SearchResult {
	var (
		results []models.SearchResult
		walk    func(*html.Node)
	)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch {
			case n.Data == "a" && hasClass(n, "result__a"):
				results = append(results, models.SearchResult{
					Title: nodeText(n),
					Href:  attr(n, "href"),
				})
			case hasClass(n, "result__snippet"):
				if len(results) > 0 && results[len(results)-1].Body == "" {
					results[len(results)-1].Body = nodeText(n)
				}
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)
	return results
}

func hasClass(n *html.Node, class string) bool {
	for _, token := range strings.Fields(attr(n, "class")) {
		if token == class {
			return true
		}
	}
	return false
}

func attr(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}

func nodeText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.TextNode {
			sb.WriteString(node.Data)
		}
		for child := node.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(n)
	return strings.TrimSpace(sb.String())
}
