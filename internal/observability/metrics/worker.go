package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kirillkom/textbook-rag/internal/core/domain"
)

type WorkerMetrics struct {
	registry *prometheus.Registry

	runTotal     *prometheus.CounterVec
	runDuration  *prometheus.HistogramVec
	runInFlight  prometheus.Gauge
	queueLag     *prometheus.HistogramVec
	itemsWritten *prometheus.CounterVec
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	runTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "ingest_runs_total",
			Help:      "Total ingestion runs by status.",
		},
		[]string{"service", "status"},
	)
	runDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "ingest_run_duration_seconds",
			Help:      "Ingestion run duration in seconds by status.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
		},
		[]string{"service", "status"},
	)
	runInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "ingest_runs_in_flight",
			Help:      "Number of in-flight ingestion runs.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	queueLag := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "queue_lag_seconds",
			Help:      "Delay between upload and ingestion start.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"service"},
	)
	itemsWritten := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "ingested_items_total",
			Help:      "Records written by ingestion, by kind.",
		},
		[]string{"service", "kind"},
	)

	registry.MustRegister(runTotal, runDuration, runInFlight, queueLag, itemsWritten)

	return &WorkerMetrics{
		registry:     registry,
		runTotal:     runTotal,
		runDuration:  runDuration,
		runInFlight:  runInFlight,
		queueLag:     queueLag,
		itemsWritten: itemsWritten,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartRun() {
	m.runInFlight.Inc()
}

func (m *WorkerMetrics) FinishRun(service string, duration time.Duration, run *domain.IngestRun, err error) {
	m.runInFlight.Dec()

	status := "success"
	if err != nil {
		status = "error"
	}

	m.runTotal.WithLabelValues(service, status).Inc()
	m.runDuration.WithLabelValues(service, status).Observe(duration.Seconds())

	if run == nil {
		return
	}
	for kind, n := range map[string]int{
		"chapters":      run.Chapters,
		"concepts":      run.Concepts,
		"formulas":      run.Formulas,
		"passages":      run.Passages,
		"pages_skipped": run.PagesSkipped,
	} {
		if n > 0 {
			m.itemsWritten.WithLabelValues(service, kind).Add(float64(n))
		}
	}
}

func (m *WorkerMetrics) ObserveQueueLag(service string, lag time.Duration) {
	if lag < 0 {
		return
	}
	m.queueLag.WithLabelValues(service).Observe(lag.Seconds())
}
