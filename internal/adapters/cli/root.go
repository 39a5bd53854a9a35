// Package cli holds the ragctl operator commands.
package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/kirillkom/textbook-rag/internal/config"
	"github.com/kirillkom/textbook-rag/internal/core/domain"
	"github.com/kirillkom/textbook-rag/internal/core/ports"
)

// FactWriter adds curated facts to the graph store.
type FactWriter interface {
	AddFact(ctx context.Context, fact domain.ManualFact) error
	Seed(ctx context.Context, facts []domain.ManualFact) (int, error)
}

// Need tells the loader how much of the system a command uses.
type Need int

const (
	NeedCatalog Need = iota
	NeedIngest
	NeedQuery
)

// Services is what the commands operate on. Fields beyond Catalog are only
// populated when the requested Need covers them.
type Services struct {
	Catalog  config.Catalog
	Answerer ports.QuestionAnswerer
	Sources  ports.ObjectStorage
	Runner   ports.IngestRunner
	Facts    FactWriter
	Close    func()
}

type Loader func(ctx context.Context, need Need) (*Services, error)

func NewRootCmd(load Loader) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "ragctl",
		Short:         "Operate the textbook question answering system",
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	cmd.AddCommand(
		newAskCmd(load),
		newIngestCmd(load),
		newChaptersCmd(load),
		newGraphCmd(load),
	)
	return cmd
}

func withServices(ctx context.Context, load Loader, need Need, fn func(*Services) error) error {
	svc, err := load(ctx, need)
	if err != nil {
		return err
	}
	if svc.Close != nil {
		defer svc.Close()
	}
	return fn(svc)
}
