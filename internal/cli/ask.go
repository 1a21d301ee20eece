package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"

	"github.com/nurpath/nurpath/internal/model"
)

var (
	askLanguage string
	askMadhhab  string
	askTopK     int
)

// askCmd represents the ask command
var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer one question from the catalog",
	Long: `Ask runs a single question through the pipeline and prints the
response as JSON: evidence cards, the opinion comparison, the validation
verdict and either a cited answer or an abstention.

Example:
  nurpath ask "What is the evidence for wudu?"
  nurpath ask "Does touching a woman break wudu?" --madhhab shafii --top-k 6
  nurpath ask "ما دليل الوضوء؟" --lang ar`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)

	askCmd.Flags().StringVar(&askLanguage, "lang", "", "answer language (en, ar); detected when empty")
	askCmd.Flags().StringVar(&askMadhhab, "madhhab", "", "preferred school (hanafi, shafii, maliki, hanbali, jafari, zahiri)")
	askCmd.Flags().IntVar(&askTopK, "top-k", 0, "evidence cards to return (overrides retrieval.top_k)")
}

func runAsk(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Log, false)

	req := model.AskRequest{
		Question: strings.TrimSpace(strings.Join(args, " ")),
		Language: askLanguage,
		Madhhab:  askMadhhab,
		TopK:     askTopK,
	}
	if err := validator.New().Struct(req); err != nil {
		return fmt.Errorf("invalid request: %w", err)
	}

	ctx := cmd.Context()
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}

	resp, err := a.pipeline.Ask(ctx, req)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(resp)
}
