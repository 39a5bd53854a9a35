package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

const askLongDesc = `Answer a question against the ingested textbook.

Examples:
  ragctl ask "What is the formula of rusting of iron?"
  ragctl ask --web "Who discovered oxygen?"
  ragctl ask --json "Give summary of chapter 3"`

type askCommander struct {
	load     Loader
	allowWeb bool
	asJSON   bool
}

func newAskCmd(load Loader) *cobra.Command {
	cmder := &askCommander{load: load}

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer a question",
		Long:  askLongDesc,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd, strings.Join(args, " "))
		},
	}

	cmd.Flags().BoolVar(&cmder.allowWeb, "web", false, "allow web search fallback")
	cmd.Flags().BoolVar(&cmder.asJSON, "json", false, "print the answer and route as JSON")
	return cmd
}

func (c *askCommander) run(cmd *cobra.Command, question string) error {
	ctx := commandContext(cmd)
	return withServices(ctx, c.load, NeedQuery, func(svc *Services) error {
		answer, err := svc.Answerer.Answer(ctx, question, c.allowWeb)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if c.asJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(answer)
		}
		_, err = fmt.Fprintf(out, "[%s] %s\n", answer.Route, answer.Text)
		return err
	})
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
