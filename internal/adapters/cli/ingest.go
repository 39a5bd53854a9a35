package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/kirillkom/textbook-rag/internal/core/domain"
)

const ingestLongDesc = `Ingest a textbook PDF into the graph store and both passage indexes.
The run executes in this process and holds the ingestion lock until it ends.

Examples:
  ragctl ingest ./science-class10.pdf
  ragctl ingest --skip-graph ./science-class10.pdf`

type ingestCommander struct {
	load      Loader
	skipGraph bool
	skipText  bool
}

func newIngestCmd(load Loader) *cobra.Command {
	cmder := &ingestCommander{load: load}

	cmd := &cobra.Command{
		Use:   "ingest <pdf>",
		Short: "Ingest a textbook PDF",
		Long:  ingestLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd, args[0])
		},
	}

	cmd.Flags().BoolVar(&cmder.skipGraph, "skip-graph", false, "do not rebuild the fact graph")
	cmd.Flags().BoolVar(&cmder.skipText, "skip-text", false, "do not rebuild the passage indexes")
	return cmd
}

func (c *ingestCommander) run(cmd *cobra.Command, path string) error {
	if !strings.EqualFold(filepath.Ext(path), ".pdf") {
		return fmt.Errorf("%s: only PDF sources are accepted", path)
	}
	ctx := commandContext(cmd)

	return withServices(ctx, c.load, NeedIngest, func(svc *Services) error {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("open source: %w", err)
		}
		defer f.Close()

		runID := uuid.NewString()
		key := runID + "_" + filepath.Base(path)
		if err := svc.Sources.Save(ctx, key, f); err != nil {
			return fmt.Errorf("store source: %w", err)
		}

		run, err := svc.Runner.Run(ctx, domain.IngestRequest{
			RunID:     runID,
			SourceKey: key,
			SkipGraph: c.skipGraph,
			SkipText:  c.skipText,
		})
		if run != nil {
			printRun(cmd, run)
		}
		return err
	})
}

func printRun(cmd *cobra.Command, run *domain.IngestRun) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "run %s %s\n", run.ID, run.Status)
	fmt.Fprintf(out, "  chapters: %d\n  concepts: %d\n  formulas: %d\n  passages: %d\n  pages skipped: %d\n",
		run.Chapters, run.Concepts, run.Formulas, run.Passages, run.PagesSkipped)
	if run.Error != "" {
		fmt.Fprintf(out, "  error: %s\n", run.Error)
	}
}
