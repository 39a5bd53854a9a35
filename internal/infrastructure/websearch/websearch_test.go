package websearch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/kirillkom/textbook-rag/internal/core/domain"
	"github.com/kirillkom/textbook-rag/internal/infrastructure/resilience"
)

func TestDuckDuckGoAbstractThenTopics(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") != "graphene" || r.URL.Query().Get("format") != "json" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(`{
			"Abstract": "Graphene is a single layer of carbon.",
			"RelatedTopics": [
				{"Text": "Graphite  is layered carbon."},
				{"Name": "Uses", "Topics": [{"Text": "Graphene in batteries."}, {"Text": "Graphene in sensors."}]}
			]
		}`))
	}))
	defer server.Close()

	got, err := NewDuckDuckGo(server.URL, time.Second).Search(context.Background(), "graphene", 3)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	want := []string{"Graphene is a single layer of carbon.", "Graphite is layered carbon.", "Graphene in batteries."}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("unexpected snippets %q", got)
	}
}

func TestDuckDuckGoEmptyAnswer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"Abstract": "", "RelatedTopics": []}`))
	}))
	defer server.Close()

	got, err := NewDuckDuckGo(server.URL, time.Second).Search(context.Background(), "x", 3)
	if err != nil || len(got) != 0 {
		t.Fatalf("expected no snippets, got %q err=%v", got, err)
	}
}

func TestDuckDuckGoHTMLSnippets(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body>
			<div class="result"><a class="result__a">Title</a><a class="result__snippet">Latest <b>ISRO</b> launch.</a></div>
			<div class="result"><a class="result__snippet">Second snippet.</a></div>
		</body></html>`))
	}))
	defer server.Close()

	got, err := NewDuckDuckGoHTML(server.URL, time.Second).Search(context.Background(), "isro", 3)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(got) != 2 || got[0] != "Latest ISRO launch." {
		t.Fatalf("unexpected snippets %q", got)
	}
}

func TestSurfSendsParams(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("q") != "mars" || q.Get("api_key") != "secret" || q.Get("num") != "2" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(`{"results":[{"snippet":"Mars rover news."},{"snippet":""},{"snippet":"Mars sample return."}]}`))
	}))
	defer server.Close()

	got, err := NewSurf(server.URL, "secret", time.Second).Search(context.Background(), "mars", 2)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(got) != 2 || got[1] != "Mars sample return." {
		t.Fatalf("unexpected snippets %q", got)
	}
}

func TestPlaceholderCarriesMarker(t *testing.T) {
	got, _ := NewPlaceholder().Search(context.Background(), "today's news", 3)
	joined := strings.Join(got, "\n\n")
	found := false
	for _, marker := range domain.WebPlaceholderMarkers {
		if strings.Contains(joined, marker) {
			found = true
		}
	}
	if !found {
		t.Fatalf("placeholder snippets must carry a marker: %q", got)
	}
}

func TestPlaceholderTechnologyOverview(t *testing.T) {
	got, _ := NewPlaceholder().Search(context.Background(), "Latest developments in Chemical Engineering", 3)
	if len(got) != 3 {
		t.Fatalf("expected three snippets, got %q", got)
	}
	if !strings.HasPrefix(got[0], "Recent developments in latest developments in chemical engineering") {
		t.Fatalf("unexpected overview %q", got[0])
	}
	if !strings.Contains(got[1], "modern chemical engineering include") {
		t.Fatalf("expected field without the query prefix, got %q", got[1])
	}
	for _, snippet := range got {
		for _, marker := range domain.WebPlaceholderMarkers {
			if strings.Contains(snippet, marker) {
				t.Fatalf("overview must be synthesized, found marker in %q", snippet)
			}
		}
	}
}

func TestGuardWrapsServerErrorAsTemporary(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	executor := resilience.NewExecutor(resilience.Config{
		RetryMaxAttempts:    2,
		RetryInitialBackoff: time.Millisecond,
		RetryMaxBackoff:     time.Millisecond,
	})
	guarded := Guard(NewDuckDuckGo(server.URL, time.Second), rate.NewLimiter(rate.Inf, 1), executor)
	_, err := guarded.Search(context.Background(), "x", 3)
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary error, got %v", err)
	}
	var statusErr *HTTPStatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected status error, got %v", err)
	}
}

func TestBuildOrdersProviders(t *testing.T) {
	providers, err := Build(Config{Providers: []string{"duckduckgo", "surf", "duckduckgo_html", "placeholder"}}, nil)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	var names []string
	for _, p := range providers {
		names = append(names, p.Name())
	}
	if strings.Join(names, ",") != "duckduckgo,duckduckgo_html,placeholder" {
		t.Fatalf("unexpected providers %v", names)
	}

	if _, err := Build(Config{Providers: []string{"bing"}}, nil); err == nil {
		t.Fatalf("expected unknown provider error")
	}
}
