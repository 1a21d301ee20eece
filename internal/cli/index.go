package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var indexRecreate bool

// indexCmd represents the index command
var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Embed the catalog into the vector index",
	Long: `Index embeds every catalog passage and upserts it into the configured
vector index. Use --recreate after changing the embedding model or
dimension; the old vectors are removed first.

The in-memory backend is rebuilt on every start, so this command is
mainly useful with weaviate.

Example:
  nurpath index
  NURPATH_INDEX_BACKEND=weaviate nurpath index --recreate`,
	Args: cobra.NoArgs,
	RunE: runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)

	indexCmd.Flags().BoolVar(&indexRecreate, "recreate", false, "drop existing vectors before indexing")
}

func runIndex(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Log, false)
	ctx := cmd.Context()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if a.index.Name() == "memory" {
		n, err := a.index.Count(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "In-memory index built with %d vectors; it is rebuilt on every start.\n", n)
		return nil
	}

	stats, err := a.indexCatalog(ctx, indexRecreate)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Index:      %s\n", a.index.Name())
	fmt.Fprintf(os.Stderr, "  Embedder:   %s (%s, dim %d)\n", a.embedder.Name(), a.embedder.Model(), a.embedder.Dimension())
	fmt.Fprintf(os.Stderr, "  Passages:   %d\n", stats.Passages)
	fmt.Fprintf(os.Stderr, "  Batches:    %d (%d failed)\n", stats.Batches, stats.Failed)
	fmt.Fprintf(os.Stderr, "  Duration:   %v\n", stats.Duration)
	fmt.Fprintf(os.Stderr, "\n")

	if stats.Failed > 0 {
		return fmt.Errorf("%d of %d batches failed", stats.Failed, stats.Batches)
	}
	return nil
}
