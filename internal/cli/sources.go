package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/nurpath/nurpath/internal/catalog"
)

var (
	sourcesFilter catalog.Filter
	sourcesJSON   bool
)

// sourcesCmd represents the sources command
var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List catalog sources",
	Long: `List the sources in the catalog, optionally filtered.

Example:
  nurpath sources
  nurpath sources --source-type hadith --authenticity sahih
  nurpath sources --topic wudu --ui-language ar --json`,
	Args: cobra.NoArgs,
	RunE: runSources,
}

func init() {
	rootCmd.AddCommand(sourcesCmd)

	sourcesCmd.Flags().StringVar(&sourcesFilter.Language, "language", "", "source language (en, ar)")
	sourcesCmd.Flags().StringVar(&sourcesFilter.Topic, "topic", "", "topic tag")
	sourcesCmd.Flags().StringVarP(&sourcesFilter.Query, "query", "q", "", "substring of title, author or tags")
	sourcesCmd.Flags().StringVar(&sourcesFilter.SourceType, "source-type", "", "quran, hadith or fiqh")
	sourcesCmd.Flags().StringVar(&sourcesFilter.Authenticity, "authenticity", "", "authenticity level")
	sourcesCmd.Flags().StringVar(&sourcesFilter.UILanguage, "ui-language", "", "localize titles (en, ar)")
	sourcesCmd.Flags().BoolVar(&sourcesJSON, "json", false, "print JSON instead of a table")
}

func runSources(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	newLogger(cfg.Log, false)

	cat, err := catalog.LoadFile(cfg.Catalog.Path)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	sources, err := cat.FilterSources(sourcesFilter)
	if err != nil {
		return err
	}

	if sourcesJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(sources)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTYPE\tAUTHENTICITY\tLANG\tTITLE\tPASSAGES")
	for _, src := range sources {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\n", src.ID, src.SourceType, src.Authenticity, src.Language, src.Title, src.PassageCount)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "\n%d source(s)\n", len(sources))
	return nil
}
