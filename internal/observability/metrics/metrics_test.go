package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kirillkom/textbook-rag/internal/core/domain"
)

func scrape(t *testing.T, h http.Handler) string {
	t.Helper()
	res := httptest.NewRecorder()
	h.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, _ := io.ReadAll(res.Body)
	return string(body)
}

func TestHTTPMetricsRecordAnswerAndRequests(t *testing.T) {
	m := NewHTTPServerMetrics("api")
	m.RecordAnswer("api", "/ask", "TEXT", true, 20*time.Millisecond)
	m.RecordAnswer("api", "/ask", "FACT", false, time.Millisecond)

	handler := m.Middleware("api", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/ingest/abc", nil))

	out := scrape(t, m.Handler())
	for _, want := range []string{
		`textbook_rag_rag_refusals_total{endpoint="/ask",route="TEXT",service="api"} 1`,
		`textbook_rag_rag_answers_total{endpoint="/ask",route="FACT",service="api"} 1`,
		`textbook_rag_http_requests_total{method="GET",path="/v1/ingest/{run_id}",service="api",status="202"} 1`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in scrape:\n%s", want, out)
		}
	}
}

func TestWorkerMetricsFinishRun(t *testing.T) {
	m := NewWorkerMetrics("worker")
	m.StartRun()
	m.FinishRun("worker", time.Second, &domain.IngestRun{Passages: 12, Chapters: 2}, nil)
	m.StartRun()
	m.FinishRun("worker", time.Second, nil, errors.New("boom"))

	out := scrape(t, m.Handler())
	for _, want := range []string{
		`textbook_rag_worker_ingest_runs_total{service="worker",status="success"} 1`,
		`textbook_rag_worker_ingest_runs_total{service="worker",status="error"} 1`,
		`textbook_rag_worker_ingested_items_total{kind="passages",service="worker"} 12`,
		`textbook_rag_worker_ingest_runs_in_flight{service="worker"} 0`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in scrape:\n%s", want, out)
		}
	}
}
