// Package websearch holds the ordered web-search providers used by the WEB route.
package websearch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const userAgent = "textbook-rag/1.0"

type HTTPStatusError struct {
	Provider   string
	StatusCode int
	Status     string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("%s search status: %s", e.Provider, e.Status)
}

func (e *HTTPStatusError) HTTPStatus() int {
	return e.StatusCode
}

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

func get(ctx context.Context, client *http.Client, provider, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create %s request: %w", provider, err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request: %w", provider, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, &HTTPStatusError{Provider: provider, StatusCode: resp.StatusCode, Status: resp.Status}
	}
	return resp.Body, nil
}

func getJSON(ctx context.Context, client *http.Client, provider, url string, out any) error {
	body, err := get(ctx, client, provider, url)
	if err != nil {
		return err
	}
	defer body.Close()
	if err := json.NewDecoder(body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", provider, err)
	}
	return nil
}

func appendSnippet(out []string, snippet string, max int) []string {
	snippet = strings.Join(strings.Fields(snippet), " ")
	if snippet == "" || len(out) >= max {
		return out
	}
	return append(out, snippet)
}
