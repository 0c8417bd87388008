package cmd

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jonhill90/vibes-sub001/internal/store"
)

var (
	sourceURL   string
	sourceType  string
	sourceTitle string
	sourceTypes []string
)

var sourceCmd = &cobra.Command{
	Use:   "source",
	Short: "Manage content sources",
}

var sourceCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Register a source and provision its vector collections",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		src := &store.Source{
			SourceType:         sourceType,
			URL:                sourceURL,
			Status:             store.SourceStatusActive,
			EnabledCollections: sourceTypes,
		}
		if err := a.store.CreateSource(ctx, src); err != nil {
			return fmt.Errorf("create source: %w", err)
		}

		names, err := a.manager.CreateForSource(ctx, uuid.MustParse(src.ID), sourceTitle, sourceTypes)
		if err != nil {
			return fmt.Errorf("provision collections: %w", err)
		}
		if err := a.store.UpdateSourceCollections(ctx, src.ID, names); err != nil {
			return fmt.Errorf("record collection names: %w", err)
		}

		fmt.Printf("source %s created\n", src.ID)
		for ct, name := range names {
			fmt.Printf("  %-10s -> %s\n", ct, name)
		}
		return nil
	},
}

var sourceDeleteCmd = &cobra.Command{
	Use:   "delete <source-id>",
	Short: "Delete a source, its documents, chunks, jobs, and collections",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		src, err := a.store.GetSource(ctx, args[0])
		if err != nil {
			return err
		}

		names := make([]string, 0, len(src.CollectionNames))
		for _, name := range src.CollectionNames {
			names = append(names, name)
		}
		a.manager.DeleteCollections(ctx, names)

		if err := a.store.DeleteSource(ctx, src.ID); err != nil {
			return err
		}
		fmt.Printf("source %s deleted\n", src.ID)
		return nil
	},
}

func init() {
	sourceCreateCmd.Flags().StringVar(&sourceURL, "url", "", "source URL")
	sourceCreateCmd.Flags().StringVar(&sourceType, "type", "website", "source type")
	sourceCreateCmd.Flags().StringVar(&sourceTitle, "title", "", "source title, used for collection names")
	sourceCreateCmd.Flags().StringSliceVar(&sourceTypes, "collections", []string{"documents"},
		"content types to provision (documents, code, media)")
	_ = sourceCreateCmd.MarkFlagRequired("title")

	sourceCmd.AddCommand(sourceCreateCmd, sourceDeleteCmd)
	rootCmd.AddCommand(sourceCmd)
}
