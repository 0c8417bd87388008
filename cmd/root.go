// Package cmd implements the ragsvc command line interface.
package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "ragsvc",
	Short: "ragsvc - document ingestion and hybrid retrieval service",
	Long: `ragsvc ingests documents and websites into a retrieval corpus:
text is parsed, chunked, embedded, and stored in Qdrant (vectors) and
PostgreSQL (rows, embedding cache, full-text index).

Search combines vector similarity with lexical full-text retrieval.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
