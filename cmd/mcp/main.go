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

	mcpadapter "github.com/kirillkom/textbook-rag/internal/adapters/mcp"
	"github.com/kirillkom/textbook-rag/internal/bootstrap"
	"github.com/kirillkom/textbook-rag/internal/config"
	"github.com/kirillkom/textbook-rag/internal/observability/logging"
)

// With MCP_TRANSPORT=http the server listens on MCP_PORT; otherwise it speaks
// MCP over stdio, so logs go to stderr.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	logger := logging.NewJSONLoggerTo(os.Stderr, "mcp", cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	answerer, err := app.QueryService(ctx)
	if err != nil {
		log.Fatalf("query service error: %v", err)
	}
	server := mcpadapter.NewServer(answerer, app.IngestUC)

	if os.Getenv("MCP_TRANSPORT") != "http" {
		if err := server.ServeStdio(); err != nil {
			log.Fatalf("mcp stdio error: %v", err)
		}
		return
	}

	httpServer := &http.Server{
		Addr:              ":" + cfg.MCPPort,
		Handler:           server.StreamableHTTP(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		slog.Info("mcp_listening", "port", cfg.MCPPort)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("mcp server error: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("mcp_shutdown_failed", "error", err)
	}
}
