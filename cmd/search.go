package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jonhill90/vibes-sub001/internal/search"
)

var (
	searchCollection string
	searchSource     string
	searchLimit      int
	searchMode       string
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search the corpus",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mode, err := search.ParseMode(searchMode)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		results, err := a.engine.Search(ctx, search.Request{
			Query:      strings.Join(args, " "),
			Collection: searchCollection,
			SourceID:   searchSource,
			Limit:      searchLimit,
			Mode:       mode,
		})
		if err != nil {
			return err
		}

		if len(results) == 0 {
			fmt.Println("no results")
			return nil
		}
		for i, r := range results {
			fmt.Printf("%2d. [%.3f %s] %s\n", i+1, r.CombinedScore, r.MatchType, snippet(r.Text))
			fmt.Printf("    chunk %s (doc %s)\n", r.ChunkID, r.DocumentID)
		}
		return nil
	},
}

func snippet(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	if len(text) > 120 {
		return text[:120] + "..."
	}
	return text
}

func init() {
	searchCmd.Flags().StringVar(&searchCollection, "collection", "", "vector collection to query")
	searchCmd.Flags().StringVar(&searchSource, "source", "", "restrict to one source ID")
	searchCmd.Flags().IntVar(&searchLimit, "limit", 10, "maximum results")
	searchCmd.Flags().StringVar(&searchMode, "mode", "auto", "search mode: vector, hybrid, auto")
	_ = searchCmd.MarkFlagRequired("collection")

	rootCmd.AddCommand(searchCmd)
}
