package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonhill90/vibes-sub001/internal/ingest"
)

var (
	ingestSourceID   string
	ingestCollection string
	ingestTitle      string
	ingestFile       string
	ingestURL        string
	ingestMaxPages   int
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Ingest a file or website into the corpus",
	RunE: func(cmd *cobra.Command, args []string) error {
		if (ingestFile == "") == (ingestURL == "") {
			return fmt.Errorf("exactly one of --file or --url is required")
		}

		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		var res *ingest.Result
		if ingestURL != "" {
			res, err = a.orchestrator.IngestFromCrawl(ctx, ingest.CrawlRequest{
				SourceID:   ingestSourceID,
				URL:        ingestURL,
				MaxPages:   ingestMaxPages,
				Title:      ingestTitle,
				Collection: ingestCollection,
			})
		} else {
			res, err = a.orchestrator.IngestDocument(ctx, ingest.DocumentRequest{
				SourceID:     ingestSourceID,
				Title:        ingestTitle,
				FilePath:     ingestFile,
				DocumentType: "file",
				Collection:   ingestCollection,
			})
		}
		if err != nil {
			if res != nil && res.CrawlJobID != "" {
				fmt.Printf("crawl job: %s\n", res.CrawlJobID)
			}
			return err
		}

		fmt.Printf("document: %s\n", res.DocumentID)
		fmt.Printf("chunks:   %d stored, %d failed of %d\n",
			res.ChunksStored, res.ChunksFailed, res.TotalChunks)
		fmt.Printf("elapsed:  %dms\n", res.IngestionTimeMs)
		if res.CrawlJobID != "" {
			fmt.Printf("crawl:    job %s, %d pages in %dms\n",
				res.CrawlJobID, res.PagesCrawled, res.CrawlTimeMs)
		}
		return nil
	},
}

func init() {
	ingestCmd.Flags().StringVar(&ingestSourceID, "source", "", "source ID owning the document")
	ingestCmd.Flags().StringVar(&ingestCollection, "collection", "", "target vector collection")
	ingestCmd.Flags().StringVar(&ingestTitle, "title", "", "document title")
	ingestCmd.Flags().StringVar(&ingestFile, "file", "", "path of the file to ingest")
	ingestCmd.Flags().StringVar(&ingestURL, "url", "", "website URL to crawl and ingest")
	ingestCmd.Flags().IntVar(&ingestMaxPages, "max-pages", 1, "pages to crawl when --url is set")
	_ = ingestCmd.MarkFlagRequired("source")
	_ = ingestCmd.MarkFlagRequired("collection")

	rootCmd.AddCommand(ingestCmd)
}
