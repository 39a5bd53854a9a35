package websearch

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"
)

const (
	DefaultDuckDuckGoURL     = "https://api.duckduckgo.com/"
	DefaultDuckDuckGoHTMLURL = "https://html.duckduckgo.com/html/"
)

// DuckDuckGo reads the instant-answer API: the abstract first, then related
// topics, including grouped ones.
type DuckDuckGo struct {
	endpoint   string
	httpClient *http.Client
}

func NewDuckDuckGo(endpoint string, timeout time.Duration) *DuckDuckGo {
	if endpoint == "" {
		endpoint = DefaultDuckDuckGoURL
	}
	return &DuckDuckGo{endpoint: endpoint, httpClient: newHTTPClient(timeout)}
}

func (d *DuckDuckGo) Name() string { return "duckduckgo" }

type ddgTopic struct {
	Text   string     `json:"Text"`
	Topics []ddgTopic `json:"Topics"`
}

func (d *DuckDuckGo) Search(ctx context.Context, query string, maxResults int) ([]string, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("no_redirect", "1")
	params.Set("no_html", "1")
	params.Set("skip_disambig", "1")

	var resp struct {
		Abstract      string     `json:"Abstract"`
		RelatedTopics []ddgTopic `json:"RelatedTopics"`
	}
	if err := getJSON(ctx, d.httpClient, d.Name(), d.endpoint+"?"+params.Encode(), &resp); err != nil {
		return nil, err
	}

	out := appendSnippet(nil, resp.Abstract, maxResults)
	var walk func(topics []ddgTopic)
	walk = func(topics []ddgTopic) {
		for _, topic := range topics {
			out = appendSnippet(out, topic.Text, maxResults)
			walk(topic.Topics)
		}
	}
	walk(resp.RelatedTopics)
	return out, nil
}

// DuckDuckGoHTML scrapes result snippets from the no-script results page.
type DuckDuckGoHTML struct {
	endpoint   string
	httpClient *http.Client
}

func NewDuckDuckGoHTML(endpoint string, timeout time.Duration) *DuckDuckGoHTML {
	if endpoint == "" {
		endpoint = DefaultDuckDuckGoHTMLURL
	}
	return &DuckDuckGoHTML{endpoint: endpoint, httpClient: newHTTPClient(timeout)}
}

func (d *DuckDuckGoHTML) Name() string { return "duckduckgo_html" }

func (d *DuckDuckGoHTML) Search(ctx context.Context, query string, maxResults int) ([]string, error) {
	body, err := get(ctx, d.httpClient, d.Name(), d.endpoint+"?"+url.Values{"q": {query}}.Encode())
	if err != nil {
		return nil, err
	}
	defer body.Close()

	doc, err := html.Parse(body)
	if err != nil {
		return nil, err
	}
	return resultSnippets(doc, maxResults), nil
}

func resultSnippets(doc *html.Node, maxResults int) []string {
	var out []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if len(out) >= maxResults {
			return
		}
		if n.Type == html.ElementNode && hasClass(n, "result__snippet") {
			out = appendSnippet(out, textContent(n), maxResults)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return out
}

func hasClass(n *html.Node, class string) bool {
	for _, attr := range n.Attr {
		if attr.Key != "class" {
			continue
		}
		for _, c := range strings.Fields(attr.Val) {
			if c == class {
				return true
			}
		}
	}
	return false
}

func textContent(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.WriteString(textContent(c))
	}
	return b.String()
}
