package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/kirillkom/textbook-rag/internal/adapters/cli"
	"github.com/kirillkom/textbook-rag/internal/bootstrap"
	"github.com/kirillkom/textbook-rag/internal/config"
	"github.com/kirillkom/textbook-rag/internal/observability/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	slog.SetDefault(logging.NewJSONLoggerTo(os.Stderr, "ragctl", cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.NewRootCmd(loader(cfg)).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func loader(cfg config.Config) cli.Loader {
	return func(ctx context.Context, need cli.Need) (*cli.Services, error) {
		if need == cli.NeedCatalog {
			catalog, err := config.LoadCatalog(cfg.CatalogPath)
			if err != nil {
				return nil, err
			}
			return &cli.Services{Catalog: catalog}, nil
		}

		app, err := bootstrap.New(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: %w", err)
		}
		svc := &cli.Services{
			Catalog: app.Catalog,
			Sources: app.Storage,
			Runner:  app.IngestUC,
			Facts:   app.Graph,
			Close:   app.Close,
		}
		if need == cli.NeedQuery {
			answerer, err := app.QueryService(ctx)
			if err != nil {
				app.Close()
				return nil, err
			}
			svc.Answerer = answerer
		}
		return svc, nil
	}
}
