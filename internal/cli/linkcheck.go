package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/nurpath/nurpath/internal/catalog"
	"github.com/nurpath/nurpath/internal/validate"
	"github.com/nurpath/nurpath/internal/worker"
)

var (
	linkTimeout time.Duration
	linkJSON    bool
	linkAll     bool
)

// linkCheckCmd represents the check-links command
var linkCheckCmd = &cobra.Command{
	Use:   "check-links",
	Short: "Verify passage deep links",
	Long: `Check-links sends a HEAD request to every passage deep link in the
catalog, honoring robots.txt and a per-host rate limit, and reports dead
or redirected links. Only links that are not accessible are listed unless
--all is given.

Example:
  nurpath check-links
  nurpath check-links --all --json`,
	Args: cobra.NoArgs,
	RunE: runLinkCheck,
}

func init() {
	rootCmd.AddCommand(linkCheckCmd)

	linkCheckCmd.Flags().DurationVar(&linkTimeout, "timeout", 10*time.Minute, "total timeout")
	linkCheckCmd.Flags().BoolVar(&linkJSON, "json", false, "print JSON results")
	linkCheckCmd.Flags().BoolVar(&linkAll, "all", false, "list accessible links too")
}

func runLinkCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Log, false)

	cat, err := catalog.LoadFile(cfg.Catalog.Path)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	links := validate.LinksFromCatalog(cat)
	fmt.Fprintf(os.Stderr, "Checking %d deep links...\n", len(links))

	ctx, cancel := contextWithTimeout(cmd, linkTimeout)
	defer cancel()

	checker := validate.NewLinkChecker(cfg.HTTP, cfg.Concurrency.Workers, worker.NewLimiter(cfg.Concurrency.PerHostRPS, 1), logger)
	results := checker.Check(ctx, links)
	summary := validate.Summarize(results)

	shown := results
	if !linkAll {
		shown = shown[:0:0]
		for _, r := range results {
			if !r.Accessible {
				shown = append(shown, r)
			}
		}
	}

	if linkJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(struct {
			Summary validate.LinkSummary  `json:"summary"`
			Results []validate.LinkResult `json:"results"`
		}{summary, shown}); err != nil {
			return err
		}
	} else {
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "PASSAGE\tSTATUS\tOUTCOME\tURL")
		for _, r := range shown {
			fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", r.PassageID, r.StatusCode, outcome(r), r.URL)
		}
		if err := w.Flush(); err != nil {
			return err
		}
	}

	fmt.Fprintf(os.Stderr, "\n%d checked: %d accessible, %d dead, %d disallowed, %d other\n",
		summary.Checked, summary.Accessible, summary.Dead, summary.Disallowed, summary.Other)
	if summary.Dead > 0 {
		return fmt.Errorf("%d dead link(s)", summary.Dead)
	}
	return nil
}

func outcome(r validate.LinkResult) string {
	switch {
	case r.Accessible && r.RedirectURL != "":
		return "redirect"
	case r.Accessible:
		return "ok"
	case r.Disallowed:
		return "robots"
	case r.Dead:
		return "dead"
	case r.Error != "":
		return "error"
	default:
		return "unknown"
	}
}

// contextWithTimeout derives a bounded context from the command context
func contextWithTimeout(cmd *cobra.Command, d time.Duration) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, d)
}
