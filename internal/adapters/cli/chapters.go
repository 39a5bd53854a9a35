package cli

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"
)

func newChaptersCmd(load Loader) *cobra.Command {
	return &cobra.Command{
		Use:   "chapters",
		Short: "List the chapter title table used for chapter-name questions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withServices(commandContext(cmd), load, NeedCatalog, func(svc *Services) error {
				numbers := make([]string, 0, len(svc.Catalog.Chapters))
				for n := range svc.Catalog.Chapters {
					numbers = append(numbers, n)
				}
				sort.Slice(numbers, func(i, j int) bool {
					a, _ := strconv.Atoi(numbers[i])
					b, _ := strconv.Atoi(numbers[j])
					return a < b
				})
				for _, n := range numbers {
					fmt.Fprintf(cmd.OutOrStdout(), "%3s  %s\n", n, svc.Catalog.Chapters[n])
				}
				return nil
			})
		},
	}
}
