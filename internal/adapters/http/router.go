package httpadapter

import (
	"encoding/json"
	"errors"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/kirillkom/textbook-rag/internal/config"
	"github.com/kirillkom/textbook-rag/internal/core/domain"
	"github.com/kirillkom/textbook-rag/internal/core/ports"
	"github.com/kirillkom/textbook-rag/internal/observability/metrics"
)

const serviceName = "api"

type Router struct {
	cfg      config.Config
	answerer ports.QuestionAnswerer
	uploader ports.SourceUploader
	runner   ports.IngestRunner
	runs     ports.IngestRunReader
	metrics  *metrics.HTTPServerMetrics
}

func NewRouter(
	cfg config.Config,
	answerer ports.QuestionAnswerer,
	uploader ports.SourceUploader,
	runner ports.IngestRunner,
	runs ports.IngestRunReader,
) *Router {
	return &Router{
		cfg:      cfg,
		answerer: answerer,
		uploader: uploader,
		runner:   runner,
		runs:     runs,
	}
}

func (rt *Router) WithMetrics(m *metrics.HTTPServerMetrics) *Router {
	rt.metrics = m
	return rt
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", rt.health)
	mux.HandleFunc("GET /healthz", rt.health)
	mux.HandleFunc("POST /ask", rt.ask)
	if rt.uploader != nil {
		mux.HandleFunc("POST /v1/ingest", rt.uploadSource)
	}
	if rt.runner != nil {
		mux.HandleFunc("POST /v1/ingest/runs", rt.runIngest)
	}
	if rt.runs != nil {
		mux.HandleFunc("GET /v1/ingest/{id}", rt.getRun)
	}
	if rt.metrics != nil {
		mux.Handle("GET /metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	handler = backpressureMiddleware(handler, rt.cfg.APIBackpressureMaxInFlight, time.Duration(rt.cfg.APIBackpressureWaitMS)*time.Millisecond)
	handler = rateLimitMiddleware(handler, newRateLimiter(rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst))
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(serviceName, handler)
	}
	handler = accessLogMiddleware(handler)
	return requestIDMiddleware(handler)
}

func newRateLimiter(rps float64, burst int) *rate.Limiter {
	if rps <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}

func (rt *Router) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type askRequest struct {
	Question string `json:"question"`
	Query    string `json:"query"`
	AllowWeb bool   `json:"allow_web"`
}

func (rt *Router) ask(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	question := strings.TrimSpace(req.Question)
	if question == "" {
		question = strings.TrimSpace(req.Query)
	}
	if question == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "question is required"})
		return
	}

	start := time.Now()
	answer, err := rt.answerer.Answer(r.Context(), question, req.AllowWeb)
	if err != nil {
		writeError(w, err)
		return
	}
	if rt.metrics != nil {
		rt.metrics.RecordAnswer(serviceName, "/ask", answer.Route.String(), answer.Text == domain.Refusal, time.Since(start))
	}
	writeJSON(w, http.StatusOK, answer)
}

func (rt *Router) uploadSource(w http.ResponseWriter, r *http.Request) {
	maxBytes := int64(rt.cfg.APIMaxUploadMB) << 20
	if maxBytes <= 0 {
		maxBytes = 64 << 20
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "file is too large"})
			return
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
		return
	}
	defer file.Close()

	if !strings.EqualFold(filepath.Ext(fileHeader.Filename), ".pdf") {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "only PDF sources are accepted"})
		return
	}

	req, err := rt.uploader.Upload(r.Context(), fileHeader.Filename, file)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{
		"run_id":     req.RunID,
		"source_key": req.SourceKey,
		"status":     domain.RunStatusQueued,
	})
}

// runIngest re-runs ingestion synchronously against an already stored source.
func (rt *Router) runIngest(w http.ResponseWriter, r *http.Request) {
	var req domain.IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	run, err := rt.runner.Run(r.Context(), req)
	if err != nil {
		if run != nil {
			writeJSON(w, mapErrorToHTTPStatus(err), map[string]any{"error": err.Error(), "run": run})
			return
		}
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (rt *Router) getRun(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "run id is required"})
		return
	}

	run, err := rt.runs.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func writeError(w http.ResponseWriter, err error) {
	status := mapErrorToHTTPStatus(err)
	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "5")
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
