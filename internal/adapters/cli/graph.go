package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kirillkom/textbook-rag/internal/config"
	"github.com/kirillkom/textbook-rag/internal/core/domain"
)

func newGraphCmd(load Loader) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Curate the fact graph",
	}
	cmd.AddCommand(newAddFactCmd(load), newSeedCmd(load))
	return cmd
}

func newAddFactCmd(load Loader) *cobra.Command {
	var fact domain.ManualFact

	cmd := &cobra.Command{
		Use:   "add-fact",
		Short: "Link a concept to its chapter and optionally a formula",
		Long: `Link a concept to its chapter and optionally a formula.

Example:
  ragctl graph add-fact --chapter-number 3 --chapter "Metals and Non-metals" \
    --concept "Rusting of Iron" --formula "Fe → Fe²⁺ + 2e⁻"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := commandContext(cmd)
			return withServices(ctx, load, NeedIngest, func(svc *Services) error {
				if err := svc.Facts.AddFact(ctx, fact); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "added %q to %q\n", fact.Concept, fact.Chapter)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&fact.ChapterNumber, "chapter-number", "", "chapter number")
	cmd.Flags().StringVar(&fact.Chapter, "chapter", "", "chapter title")
	cmd.Flags().StringVar(&fact.Concept, "concept", "", "concept name")
	cmd.Flags().StringVar(&fact.Formula, "formula", "", "formula or reaction (optional)")
	_ = cmd.MarkFlagRequired("chapter")
	_ = cmd.MarkFlagRequired("concept")
	return cmd
}

func newSeedCmd(load Loader) *cobra.Command {
	var catalogPath string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Write the catalog's curated facts into the graph",
		Long: `Write the catalog's curated facts into the graph. Without --catalog the
configured catalog (CATALOG_PATH or the built-in one) is used.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := commandContext(cmd)
			return withServices(ctx, load, NeedIngest, func(svc *Services) error {
				facts := svc.Catalog.Facts
				if catalogPath != "" {
					catalog, err := config.LoadCatalog(catalogPath)
					if err != nil {
						return err
					}
					facts = catalog.Facts
				}

				n, err := svc.Facts.Seed(ctx, facts)
				fmt.Fprintf(cmd.OutOrStdout(), "seeded %d of %d facts\n", n, len(facts))
				return err
			})
		},
	}

	cmd.Flags().StringVar(&catalogPath, "catalog", "", "catalog YAML to seed from")
	return cmd
}
