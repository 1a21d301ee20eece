// Package eval runs a question dataset through the answer pipeline and
// reports retrieval and validation quality.
package eval

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"os"
	"strings"
	"time"

	"github.com/nurpath/nurpath/internal/model"
	"github.com/nurpath/nurpath/internal/worker"
)

// Case is one dataset row
type Case struct {
	ID               string   `json:"id,omitempty"`
	Question         string   `json:"question"`
	Language         string   `json:"preferred_language,omitempty"`
	Madhhab          string   `json:"madhhab_preference,omitempty"`
	ExpectedPassages []string `json:"expected_passages,omitempty"` // Any of these in the cards is a hit; empty means any card
	RequiresIkhtilaf bool     `json:"requires_ikhtilaf,omitempty"`
	ExpectAbstain    bool     `json:"expect_abstain,omitempty"`
}

// Asker answers questions
type Asker interface {
	Ask(ctx context.Context, req model.AskRequest) (*model.AskResponse, error)
}

// CaseResult is the outcome of one case
type CaseResult struct {
	ID               string               `json:"id"`
	Hit              bool                 `json:"hit"`
	CitationPassed   bool                 `json:"citation_passed"`
	ValidationPassed bool                 `json:"validation_passed"`
	Abstained        bool                 `json:"abstained"`
	Ikhtilaf         model.IkhtilafStatus `json:"ikhtilaf,omitempty"`
	Reason           model.DecisionReason `json:"decision_reason,omitempty"`
	Confidence       float64              `json:"confidence"`
	Error            string               `json:"error,omitempty"`
}

// Report aggregates a run. Rates are over answered cases; ikhtilaf recall
// is over cases that require it.
type Report struct {
	Label                 string        `json:"profile_label"`
	Total                 int           `json:"total"`
	Errors                int           `json:"errors"`
	HitAtK                float64       `json:"retrieval_hit_at_k"`
	CitationIntegrityRate float64       `json:"citation_integrity_rate"`
	ValidationPassRate    float64       `json:"validation_pass_rate"`
	AbstainRate           float64       `json:"abstain_rate"`
	IkhtilafRecall        float64       `json:"ikhtilaf_detection_rate"`
	ExpectedAbstainRecall float64       `json:"expected_abstain_recall"`
	Duration              time.Duration `json:"duration"`
	Results               []CaseResult  `json:"results"`
}

// LoadDataset reads a JSONL dataset; blank lines are skipped
func LoadDataset(path string) ([]Case, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	var cases []Case
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var c Case
		if err := json.Unmarshal([]byte(text), &c); err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, line, err)
		}
		if strings.TrimSpace(c.Question) == "" {
			return nil, fmt.Errorf("%s:%d: question is empty", path, line)
		}
		if c.ID == "" {
			c.ID = fmt.Sprintf("case-%d", line)
		}
		cases = append(cases, c)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read dataset: %w", err)
	}
	return cases, nil
}

// Runner evaluates cases concurrently
type Runner struct {
	asker   Asker
	workers int
	logger  *slog.Logger
}

// NewRunner creates a runner with the given worker count
func NewRunner(asker Asker, workers int, logger *slog.Logger) *Runner {
	if workers <= 0 {
		workers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{asker: asker, workers: workers, logger: logger}
}

// Run asks every case and aggregates the results in dataset order. A
// failing case is counted as an error; a cancelled context aborts the run.
func (r *Runner) Run(ctx context.Context, label string, cases []Case) (*Report, error) {
	start := time.Now()
	results := worker.Map(ctx, r.workers, cases, func(ctx context.Context, c Case) (*model.AskResponse, error) {
		return r.asker.Ask(ctx, model.AskRequest{
			Question: c.Question,
			Language: c.Language,
			Madhhab:  c.Madhhab,
		})
	})
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	report := &Report{Label: label, Results: make([]CaseResult, 0, len(cases))}
	var hits, citations, passed, abstains, ikhtilafWanted, ikhtilafFound, abstainWanted, abstainFound int
	for i, res := range results {
		c := cases[i]
		cr := CaseResult{ID: c.ID}
		if res.Err != nil {
			r.logger.Warn("eval case failed", "case", c.ID, "error", res.Err)
			cr.Error = res.Err.Error()
			report.Errors++
			report.Results = append(report.Results, cr)
			continue
		}
		resp := res.Value
		cr.Hit = hit(resp.EvidenceCards, c.ExpectedPassages)
		cr.CitationPassed = resp.Validation.Citation.Passed
		cr.ValidationPassed = resp.Validation.Passed
		cr.Abstained = resp.Abstained
		cr.Ikhtilaf = resp.Ikhtilaf.Status
		cr.Reason = resp.Validation.Reason
		cr.Confidence = resp.Confidence

		report.Total++
		if cr.Hit {
			hits++
		}
		if cr.CitationPassed {
			citations++
		}
		if cr.ValidationPassed {
			passed++
		}
		if cr.Abstained {
			abstains++
		}
		if c.RequiresIkhtilaf {
			ikhtilafWanted++
			if cr.Ikhtilaf == model.IkhtilafDisagreement {
				ikhtilafFound++
			}
		}
		if c.ExpectAbstain {
			abstainWanted++
			if cr.Abstained {
				abstainFound++
			}
		}
		report.Results = append(report.Results, cr)
	}

	report.HitAtK = rate(hits, report.Total)
	report.CitationIntegrityRate = rate(citations, report.Total)
	report.ValidationPassRate = rate(passed, report.Total)
	report.AbstainRate = rate(abstains, report.Total)
	report.IkhtilafRecall = rate(ikhtilafFound, ikhtilafWanted)
	report.ExpectedAbstainRecall = rate(abstainFound, abstainWanted)
	report.Duration = time.Since(start)

	r.logger.Info("eval finished",
		"label", label,
		"total", report.Total,
		"errors", report.Errors,
		"hit_at_k", report.HitAtK,
		"validation_pass_rate", report.ValidationPassRate,
	)
	return report, nil
}

func hit(cards []model.EvidenceCard, expected []string) bool {
	if len(expected) == 0 {
		return len(cards) > 0
	}
	for _, card := range cards {
		for _, id := range expected {
			if card.PassageID == id {
				return true
			}
		}
	}
	return false
}

// rate is n/d rounded to three places, 0 when d is 0
func rate(n, d int) float64 {
	if d == 0 {
		return 0
	}
	return math.Round(float64(n)/float64(d)*1000) / 1000
}
