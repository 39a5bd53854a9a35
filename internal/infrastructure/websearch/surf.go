package websearch

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const DefaultSurfURL = "https://api.surfapi.com/search"

// Surf queries a SURF-compatible search API keyed by SURF_API_KEY.
type Surf struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
}

func NewSurf(endpoint, apiKey string, timeout time.Duration) *Surf {
	if endpoint == "" {
		endpoint = DefaultSurfURL
	}
	return &Surf{endpoint: endpoint, apiKey: apiKey, httpClient: newHTTPClient(timeout)}
}

func (s *Surf) Name() string { return "surf" }

func (s *Surf) Search(ctx context.Context, query string, maxResults int) ([]string, error) {
	if s.apiKey == "" {
		return nil, errors.New("surf api key is not configured")
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("api_key", s.apiKey)
	params.Set("num", strconv.Itoa(maxResults))

	var resp struct {
		Results []struct {
			Snippet string `json:"snippet"`
		} `json:"results"`
	}
	if err := getJSON(ctx, s.httpClient, s.Name(), s.endpoint+"?"+params.Encode(), &resp); err != nil {
		return nil, err
	}

	var out []string
	for _, r := range resp.Results {
		out = appendSnippet(out, r.Snippet, maxResults)
	}
	return out, nil
}
