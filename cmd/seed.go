package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/docent-ai/docent/internal/knowledge"
)

var seedReplace bool

var seedCmd = &cobra.Command{
	Use:   "seed [file]",
	Short: "Load documentation chunks into the knowledge base",
	Long: `Seed reads a JSON array of documentation chunks and stores them in the
knowledge base. Pass "-" to read from stdin.

Each chunk has the form:

  {"name": "...", "content": "...", "metadata": {"source_url": "...", "title": "..."}}`,
	Args: cobra.ExactArgs(1),
	RunE: runSeed,
}

func init() {
	seedCmd.Flags().BoolVar(&seedReplace, "replace", false,
		"clear existing documents before seeding")
	rootCmd.AddCommand(seedCmd)
}

// seeder is implemented by backends that support ingestion; the hosted
// assistant manages its own corpus and does not.
type seeder interface {
	Seed(ctx context.Context, docs []knowledge.Document, replace bool) (int, error)
}

func runSeed(cmd *cobra.Command, args []string) error {
	docs, err := readChunks(args[0])
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		return fmt.Errorf("no chunks to seed")
	}

	b, cfg, err := loadBackend(cmd)
	if err != nil {
		return err
	}
	defer b.Close() //nolint:errcheck

	s, ok := b.(seeder)
	if !ok {
		return fmt.Errorf("backend %q does not support seeding", cfg.Backend)
	}

	stored, err := s.Seed(cmd.Context(), docs, seedReplace)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d chunks\n", stored)
	return nil
}

// readChunks parses a JSON array of documents from a file or stdin.
func readChunks(path string) ([]knowledge.Document, error) {
	var r io.Reader
	if path == "-" {
		r = os.Stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("opening chunk file: %w", err)
		}
		defer f.Close() //nolint:errcheck
		r = f
	}

	var docs []knowledge.Document
	if err := json.NewDecoder(r).Decode(&docs); err != nil {
		return nil, fmt.Errorf("parsing chunk file: %w", err)
	}
	return docs, nil
}
