package builtin

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"github.com/hupe1980/supportagent/tool"
)

const (
	maxFetchBytes    = 5 << 20
	maxSearchResults = 10
	userAgent        = "supportagent/1.0 (+https://github.com/hupe1980/supportagent)"
)

type fetchArgs struct {
	URL    string `json:"url" description:"Fully qualified http(s) URL to fetch"`
	Prompt string `json:"prompt,omitempty" description:"What information to look for in the page"`
}

// NewWebFetch returns the WebFetch tool. HTML pages are reduced to visible text.
func NewWebFetch(client *http.Client) *tool.FunctionTool {
	return tool.NewFunctionToolFromStruct(
		ToolWebFetch,
		"Fetch a web page and return its readable text content.",
		fetchArgs{},
		func(tc *tool.Context, args map[string]any) (any, error) {
			raw, err := stringArgument(args, "url")
			if err != nil {
				return nil, err
			}
			u, err := url.Parse(raw)
			if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
				return nil, fmt.Errorf("%w: url must be an absolute http(s) URL", ErrArgumentInvalid)
			}

			body, contentType, err := get(tc, client, u.String())
			if err != nil {
				return nil, err
			}

			text := string(body)
			if strings.Contains(contentType, "html") || contentType == "" {
				text = extractText(body)
			}

			var b strings.Builder
			fmt.Fprintf(&b, "URL: %s\n", u.String())
			if p, _ := args["prompt"].(string); p != "" {
				fmt.Fprintf(&b, "Looking for: %s\n", p)
			}
			b.WriteString("\n")
			b.WriteString(truncate(text, maxFetchedTextChars))
			return b.String(), nil
		},
	).AsReadOnly()
}

type searchArgs struct {
	Query          string   `json:"query" description:"The search query"`
	AllowedDomains []string `json:"allowed_domains,omitempty" description:"Only include results from these domains"`
	BlockedDomains []string `json:"blocked_domains,omitempty" description:"Never include results from these domains"`
}

// SearchResult is a single web search hit.
type SearchResult struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// NewWebSearch returns the WebSearch tool backed by an HTML search endpoint
// accepting a q query parameter.
func NewWebSearch(client *http.Client, endpoint string) *tool.FunctionTool {
	return tool.NewFunctionToolFromStruct(
		ToolWebSearch,
		"Search the web and return result titles and URLs.",
		searchArgs{},
		func(tc *tool.Context, args map[string]any) (any, error) {
			query, err := stringArgument(args, "query")
			if err != nil {
				return nil, err
			}

			u, err := url.Parse(endpoint)
			if err != nil {
				return nil, fmt.Errorf("invalid search endpoint: %w", err)
			}
			q := u.Query()
			q.Set("q", query)
			u.RawQuery = q.Encode()

			body, _, err := get(tc, client, u.String())
			if err != nil {
				return nil, err
			}

			results := filterDomains(parseResults(body, u.Host), stringSlice(args, "allowed_domains"), stringSlice(args, "blocked_domains"))
			if len(results) > maxSearchResults {
				results = results[:maxSearchResults]
			}
			if len(results) == 0 {
				return fmt.Sprintf("No results found for %q", query), nil
			}

			var b strings.Builder
			fmt.Fprintf(&b, "Search results for %q:\n", query)
			for i, r := range results {
				fmt.Fprintf(&b, "%d. %s\n   %s\n", i+1, r.Title, r.URL)
			}
			return b.String(), nil
		},
	).AsReadOnly()
}

func get(tc *tool.Context, client *http.Client, target string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(tc.Context(), http.MethodGet, target, nil)
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("fetch %s: %w", target, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBytes))
	if err != nil {
		return nil, "", fmt.Errorf("read %s: %w", target, err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, "", fmt.Errorf("fetch %s: unexpected status %s", target, resp.Status)
	}

	tc.Logger().Debug("tool.web.fetched", "url", target, "status", resp.StatusCode, "bytes", len(body))

	return body, resp.Header.Get("Content-Type"), nil
}

// extractText returns the visible text of an HTML document with collapsed whitespace.
func extractText(doc []byte) string {
	root, err := html.Parse(strings.NewReader(string(doc)))
	if err != nil {
		return string(doc)
	}

	var parts []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "head", "svg":
				return
			}
		}
		if n.Type == html.TextNode {
			if t := strings.Join(strings.Fields(n.Data), " "); t != "" {
				parts = append(parts, t)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)

	return strings.Join(parts, "\n")
}

// parseResults extracts outbound links from a search result page. Links
// pointing back to the search host are unwrapped when they carry the target
// in a uddg or url query parameter and dropped otherwise.
func parseResults(doc []byte, searchHost string) []SearchResult {
	root, err := html.Parse(strings.NewReader(string(doc)))
	if err != nil {
		return nil
	}

	var results []SearchResult
	seen := map[string]struct{}{}

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			if target := resolveResultLink(attr(n, "href"), searchHost); target != "" {
				title := strings.Join(strings.Fields(nodeText(n)), " ")
				if _, dup := seen[target]; !dup && title != "" {
					seen[target] = struct{}{}
					results = append(results, SearchResult{Title: title, URL: target})
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)

	return results
}

func resolveResultLink(href, searchHost string) string {
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil || u.Host == "" {
		return ""
	}
	if u.Host == searchHost || strings.HasSuffix(u.Host, "duckduckgo.com") {
		for _, key := range []string{"uddg", "url"} {
			if v := u.Query().Get(key); v != "" {
				return v
			}
		}
		return ""
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	return u.String()
}

func filterDomains(results []SearchResult, allowed, blocked []string) []SearchResult {
	out := results[:0]
	for _, r := range results {
		u, err := url.Parse(r.URL)
		if err != nil {
			continue
		}
		host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
		if len(allowed) > 0 && !matchesDomain(host, allowed) {
			continue
		}
		if matchesDomain(host, blocked) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func matchesDomain(host string, domains []string) bool {
	for _, d := range domains {
		d = strings.TrimPrefix(strings.ToLower(d), "www.")
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}
