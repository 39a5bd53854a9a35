package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kirillkom/textbook-rag/internal/bootstrap"
	"github.com/kirillkom/textbook-rag/internal/config"
	"github.com/kirillkom/textbook-rag/internal/core/domain"
	"github.com/kirillkom/textbook-rag/internal/observability/logging"
	"github.com/kirillkom/textbook-rag/internal/observability/metrics"
)

const serviceName = "worker"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	slog.SetDefault(logging.NewJSONLogger(serviceName, cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()
	if app.Queue == nil {
		log.Fatalf("worker requires NATS_URL")
	}

	workerMetrics := metrics.NewWorkerMetrics(serviceName)
	metricsServer := &http.Server{
		Addr:              ":" + cfg.WorkerMetricsPort,
		Handler:           workerMetrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("worker_metrics_server_failed", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	runTimeout := time.Duration(cfg.IngestRunTimeoutMinutes) * time.Minute
	if runTimeout <= 0 {
		runTimeout = 30 * time.Minute
	}

	slog.Info("worker_subscribed", "subject", cfg.NATSSubject)
	err = app.Queue.SubscribeIngestRequests(ctx, func(handlerCtx context.Context, req domain.IngestRequest) error {
		if !req.EnqueuedAt.IsZero() {
			workerMetrics.ObserveQueueLag(serviceName, time.Since(req.EnqueuedAt))
		}

		runCtx, cancel := context.WithTimeout(handlerCtx, runTimeout)
		defer cancel()

		workerMetrics.StartRun()
		start := time.Now()
		run, err := app.IngestUC.Run(runCtx, req)
		workerMetrics.FinishRun(serviceName, time.Since(start), run, err)
		if err != nil {
			return err
		}
		slog.Info("ingest_run_finished",
			"run_id", run.ID,
			"chapters", run.Chapters,
			"concepts", run.Concepts,
			"formulas", run.Formulas,
			"passages", run.Passages,
			"pages_skipped", run.PagesSkipped,
		)
		return nil
	})
	if err != nil {
		log.Fatalf("worker subscribe error: %v", err)
	}
}
