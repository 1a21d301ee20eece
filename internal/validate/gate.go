// Package validate decides whether a drafted answer may be released. The
// gate checks citation integrity, grounding and faithfulness against the
// cited evidence, and applies the safety policy for personal rulings.
package validate

import (
	"log/slog"
	"math"
	"strings"

	"github.com/nurpath/nurpath/internal/extract"
	"github.com/nurpath/nurpath/internal/model"
	"github.com/nurpath/nurpath/internal/observability"
	"github.com/nurpath/nurpath/internal/textutil"
)

const (
	groundingOverlapWeight   = 0.65
	groundingRelevanceWeight = 0.35
	unsupportedPenalty       = 0.35
	negationPenalty          = 0.5
	quantifierPenalty        = 0.25
)

var negations = map[string]bool{
	"not": true, "no": true, "never": true, "neither": true, "nor": true,
	"cannot": true, "without": true,
	"لا": true, "ليس": true, "لم": true, "لن": true, "غير": true,
}

var quantifiers = map[string]bool{
	"all": true, "every": true, "always": true, "none": true, "only": true,
	"entire": true, "everyone": true, "nobody": true,
	"كل": true, "جميع": true, "دائما": true, "ابدا": true, "فقط": true,
}

// Gate runs the validation checks. It is safe for concurrent use.
type Gate struct {
	claims  *extract.ClaimExtractor
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewGate creates a gate. metrics and logger may be nil.
func NewGate(metrics *observability.Metrics, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{
		claims:  extract.NewClaimExtractor(),
		metrics: metrics,
		logger:  logger,
	}
}

// Validate checks draft against cards. Every sub-result is computed even
// when an earlier one already failed. It never fails; problems are encoded
// in the returned decision reason.
func (g *Gate) Validate(draft string, cards []model.EvidenceCard, in model.Intent, th model.Thresholds) model.ValidationResult {
	claims := extract.FactualClaims(g.claims.Extract(draft))
	support := newEvidence(cards)

	cc := checkCitations(claims, support, th)
	gs := gateScore(Grounding(draft, cards), th.Grounding)
	fs := gateScore(faithfulness(claims, support, th.ClaimSupport), th.Faithfulness)

	result := model.ValidationResult{
		Citation:        cc,
		Grounding:       gs,
		Faithfulness:    fs,
		SafetyTriggered: in.PersonalRuling,
	}
	switch {
	case result.SafetyTriggered:
		result.Reason = model.ReasonAbstainedBySafety
	case !cc.Passed:
		result.Reason = model.ReasonCitationIntegrity
	case !gs.Passed:
		result.Reason = model.ReasonGroundingBelow
	case !fs.Passed:
		result.Reason = model.ReasonFaithfulnessBelow
	default:
		result.Reason = model.ReasonPassed
	}
	result.Passed = result.Reason == model.ReasonPassed

	g.metrics.GateResult("citation", cc.Passed)
	g.metrics.GateResult("grounding", gs.Passed)
	g.metrics.GateResult("faithfulness", fs.Passed)
	g.metrics.GateResult("safety", !result.SafetyTriggered)
	if !result.Passed {
		g.logger.Info("Answer failed validation",
			"reason", result.Reason,
			"coverage", cc.Coverage,
			"grounding", gs.Score,
			"faithfulness", fs.Score,
			"cards", len(cards))
	}
	return result
}

// cardText is the normalized support text of one evidence card
type cardText struct {
	id        string
	text      string // Normalized span and quotes
	tokens    map[string]struct{}
	sentences []sentence
}

// sentence is one sentence of a span or quote, padded with spaces
type sentence struct {
	text   string
	words  []string
	tokens map[string]struct{}
}

type evidence []cardText

func newEvidence(cards []model.EvidenceCard) evidence {
	out := make(evidence, 0, len(cards))
	for _, c := range cards {
		joined := strings.Join([]string{c.CitationSpan, c.EnglishQuote, c.ArabicQuote}, " . ")
		ct := cardText{
			id:     c.PassageID,
			text:   " " + textutil.Normalize(joined) + " ",
			tokens: textutil.TokenSet(joined),
		}
		for _, part := range []string{c.CitationSpan, c.EnglishQuote, c.ArabicQuote} {
			for _, span := range textutil.SplitSentences(part) {
				normalized := textutil.Normalize(span.Text)
				if normalized == "" {
					continue
				}
				ct.sentences = append(ct.sentences, sentence{
					text:   " " + normalized + " ",
					words:  strings.Fields(normalized),
					tokens: textutil.TokenSet(normalized),
				})
			}
		}
		out = append(out, ct)
	}
	return out
}

// closest returns the words of the card sentence that matches claim best.
// A claim only overlaps sentences in its own language, so an Arabic claim
// is compared with the Arabic quote and never with the translation.
func (c cardText) closest(claim string) []string {
	normalized := textutil.Normalize(claim)
	tokens := textutil.ContentTokens(claim)
	var words []string
	best := 0.0
	for _, s := range c.sentences {
		var r float64
		if normalized != "" && strings.Contains(s.text, " "+normalized+" ") {
			r = 1
		} else {
			r = containment(tokens, s.tokens)
		}
		if r > best {
			words, best = s.words, r
		}
	}
	if words == nil {
		return strings.Fields(c.text)
	}
	return words
}

// best returns the card that supports claim most and its containment ratio.
// A claim that appears verbatim in a card has ratio 1.
func (e evidence) best(claim string) (int, float64) {
	normalized := textutil.Normalize(claim)
	tokens := textutil.ContentTokens(claim)
	idx, ratio := -1, 0.0
	for i, c := range e {
		var r float64
		if normalized != "" && strings.Contains(c.text, " "+normalized+" ") {
			r = 1
		} else {
			r = containment(tokens, c.tokens)
		}
		if r > ratio {
			idx, ratio = i, r
		}
	}
	return idx, ratio
}

// CheckCitations maps each factual claim in draft to its best supporting
// card. Coverage is zero when there are no claims or no cards.
func CheckCitations(draft string, cards []model.EvidenceCard, th model.Thresholds) model.CitationCheck {
	claims := extract.FactualClaims(extract.NewClaimExtractor().Extract(draft))
	return checkCitations(claims, newEvidence(cards), th)
}

func checkCitations(claims []model.ClaimSpan, support evidence, th model.Thresholds) model.CitationCheck {
	check := model.CitationCheck{
		MinCoverage: th.CitationMinCoverage,
		TotalClaims: len(claims),
	}
	if len(claims) == 0 || len(support) == 0 {
		for _, c := range claims {
			check.Unmapped = append(check.Unmapped, c.Text)
		}
		return check
	}
	for _, c := range claims {
		if _, ratio := support.best(c.Text); ratio >= th.ClaimSupport {
			check.MappedClaims++
		} else {
			check.Unmapped = append(check.Unmapped, c.Text)
		}
	}
	check.Coverage = round4(float64(check.MappedClaims) / float64(check.TotalClaims))
	check.Passed = check.Coverage >= th.CitationMinCoverage
	return check
}

// Grounding scores draft against the union of card quotes:
// min(1, 0.65·token overlap + 0.35·mean relevance)
func Grounding(draft string, cards []model.EvidenceCard) float64 {
	if len(cards) == 0 {
		return 0
	}
	answer := textutil.ContentTokens(extract.StripMarkers(draft))
	quotes := make(map[string]struct{})
	var relevance float64
	for _, c := range cards {
		for t := range textutil.TokenSet(c.EnglishQuote + " . " + c.ArabicQuote) {
			quotes[t] = struct{}{}
		}
		relevance += c.RelevanceScore
	}
	overlap := containment(answer, quotes)
	return round4(math.Min(1, groundingOverlapWeight*overlap+groundingRelevanceWeight*relevance/float64(len(cards))))
}

// Faithfulness scores how far draft stays within the evidence in cards.
// The base score is coverage·(1 − 0.35·unsupported) over the tokens of its
// factual claims. Claims whose negation disagrees with their best card, and
// quantifiers the evidence never uses, reduce it further.
func Faithfulness(draft string, cards []model.EvidenceCard, th model.Thresholds) float64 {
	claims := extract.FactualClaims(extract.NewClaimExtractor().Extract(draft))
	return faithfulness(claims, newEvidence(cards), th.ClaimSupport)
}

func faithfulness(claims []model.ClaimSpan, support evidence, claimSupport float64) float64 {
	if len(support) == 0 || len(claims) == 0 {
		return 0
	}
	texts := make([]string, len(claims))
	for i, c := range claims {
		texts[i] = c.Text
	}
	answer := textutil.ContentTokens(strings.Join(texts, " . "))
	if len(answer) == 0 {
		return 0
	}

	known := make(map[string]struct{})
	for _, c := range support {
		for t := range c.tokens {
			known[t] = struct{}{}
		}
		for _, t := range textutil.ContentTokens(strings.ReplaceAll(c.id, "-", " ")) {
			known[t] = struct{}{}
		}
	}
	covered := containment(answer, known)
	score := covered * (1 - unsupportedPenalty*(1-covered))

	var mismatched, unsupportedQuant int
	for _, claim := range claims {
		words := textutil.Tokens(claim.Text)
		idx, ratio := support.best(claim.Text)
		if idx >= 0 && ratio >= claimSupport && negated(words) != negated(support[idx].closest(claim.Text)) {
			mismatched++
		}
		if unsupportedQuantifier(words, support) {
			unsupportedQuant++
		}
	}
	n := float64(len(claims))
	score *= 1 - negationPenalty*float64(mismatched)/n
	score *= 1 - quantifierPenalty*float64(unsupportedQuant)/n
	return round4(clamp01(score))
}

func unsupportedQuantifier(words []string, support evidence) bool {
	for _, w := range words {
		if !quantifiers[w] {
			continue
		}
		found := false
		for _, c := range support {
			if strings.Contains(c.text, " "+w+" ") {
				found = true
				break
			}
		}
		if !found {
			return true
		}
	}
	return false
}

// negated reports whether any word is a negation, including Arabic
// negations with an attached conjunction such as ولا or فلم
func negated(words []string) bool {
	for _, w := range words {
		for _, form := range textutil.WordForms(w) {
			if negations[form] {
				return true
			}
		}
	}
	return false
}

// containment is the share of tokens present in set
func containment(tokens []string, set map[string]struct{}) float64 {
	if len(tokens) == 0 || len(set) == 0 {
		return 0
	}
	var hit int
	for _, t := range tokens {
		if _, ok := set[t]; ok {
			hit++
		}
	}
	return float64(hit) / float64(len(tokens))
}

func gateScore(score, threshold float64) model.GateScore {
	return model.GateScore{Score: score, Threshold: threshold, Passed: score >= threshold}
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

func round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}
