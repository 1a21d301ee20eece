package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/nurpath/nurpath/internal/eval"
)

var (
	evalWorkers int
	evalLabel   string
	evalOut     string
	evalTimeout time.Duration
)

// evalCmd represents the eval command
var evalCmd = &cobra.Command{
	Use:   "eval <dataset.jsonl>",
	Short: "Evaluate the pipeline against a question dataset",
	Long: `Eval asks every question in a JSONL dataset and reports retrieval
hit rate, citation integrity, validation pass rate, abstention rate and
disagreement recall.

Each line holds one case:
  {"id":"wudu-1","question":"...","expected_passages":["quran-5-6"],
   "requires_ikhtilaf":false,"expect_abstain":false}

Example:
  nurpath eval data/eval/sample_qa.jsonl
  nurpath eval qa.jsonl --workers 8 --label strict --out report.json`,
	Args: cobra.ExactArgs(1),
	RunE: runEval,
}

func init() {
	rootCmd.AddCommand(evalCmd)

	evalCmd.Flags().IntVar(&evalWorkers, "workers", 0, "concurrent questions (default concurrency.eval_workers)")
	evalCmd.Flags().StringVar(&evalLabel, "label", "default", "profile label recorded in the report")
	evalCmd.Flags().StringVarP(&evalOut, "out", "o", "", "write the full JSON report to this file")
	evalCmd.Flags().DurationVar(&evalTimeout, "timeout", 30*time.Minute, "total timeout for the run")
}

func runEval(cmd *cobra.Command, args []string) (err error) {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Log, false)

	cases, err := eval.LoadDataset(args[0])
	if err != nil {
		return err
	}

	workers := evalWorkers
	if workers <= 0 {
		workers = cfg.Concurrency.EvalWorkers
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  NurPath Evaluation\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Dataset:    %s (%d cases)\n", args[0], len(cases))
	fmt.Fprintf(os.Stderr, "  Workers:    %d\n", workers)
	fmt.Fprintf(os.Stderr, "  Label:      %s\n", evalLabel)
	fmt.Fprintf(os.Stderr, "\n")

	ctx, cancel := contextWithTimeout(cmd, evalTimeout)
	defer cancel()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}

	report, err := eval.NewRunner(a.pipeline, workers, logger).Run(ctx, evalLabel, cases)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "  Answered:              %d (%d errors)\n", report.Total, report.Errors)
	fmt.Fprintf(os.Stderr, "  Retrieval hit@k:       %.3f\n", report.HitAtK)
	fmt.Fprintf(os.Stderr, "  Citation integrity:    %.3f\n", report.CitationIntegrityRate)
	fmt.Fprintf(os.Stderr, "  Validation pass rate:  %.3f\n", report.ValidationPassRate)
	fmt.Fprintf(os.Stderr, "  Abstain rate:          %.3f\n", report.AbstainRate)
	fmt.Fprintf(os.Stderr, "  Ikhtilaf detection:    %.3f\n", report.IkhtilafRecall)
	fmt.Fprintf(os.Stderr, "  Expected abstentions:  %.3f\n", report.ExpectedAbstainRecall)
	fmt.Fprintf(os.Stderr, "  Duration:              %v\n", report.Duration.Round(time.Millisecond))
	fmt.Fprintf(os.Stderr, "\n")

	if evalOut == "" {
		return nil
	}
	f, err := os.Create(evalOut)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close report: %w", closeErr)
		}
	}()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	fmt.Fprintf(os.Stderr, "✓ Report written: %s\n", evalOut)
	return nil
}
