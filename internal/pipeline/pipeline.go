// Package pipeline is the answer orchestrator. One Ask runs a strictly
// linear stage sequence and finishes with either a validated answer or an
// abstention that still carries the retrieved evidence.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/nurpath/nurpath/internal/catalog"
	"github.com/nurpath/nurpath/internal/embedding"
	"github.com/nurpath/nurpath/internal/ikhtilaf"
	"github.com/nurpath/nurpath/internal/intent"
	"github.com/nurpath/nurpath/internal/llm"
	"github.com/nurpath/nurpath/internal/model"
	"github.com/nurpath/nurpath/internal/observability"
	"github.com/nurpath/nurpath/internal/retrieval"
	"github.com/nurpath/nurpath/internal/score"
	"github.com/nurpath/nurpath/internal/validate"
	"github.com/nurpath/nurpath/internal/vectorindex"
)

var (
	// ErrEmptyQuestion is returned for a blank question
	ErrEmptyQuestion = errors.New("question is empty")

	// ErrContractViolation marks a broken deployment, such as an index
	// built with a different embedding dimension
	ErrContractViolation = errors.New("deployment contract violated")
)

// Stage names, in execution order
const (
	StageIntent    = "intent_classified"
	StageRetrieved = "retrieved"
	StageCompared  = "compared"
	StageDrafted   = "drafted"
	StageValidated = "validated"
	StageFinalized = "finalized"
)

// Deps are the collaborators of a Pipeline. Store is required; a nil
// Embedder or Index runs every retrieval lexical-only.
type Deps struct {
	Store      *catalog.Store
	Embedder   embedding.Provider
	Index      vectorindex.Index
	Drafter    llm.Drafter // Defaults to the template drafter
	Lexical    retrieval.LexicalScorer
	Expansions retrieval.ExpansionTable
	Metrics    *observability.Metrics
	Logger     *slog.Logger
}

// Pipeline orchestrates the complete ask process
type Pipeline struct {
	store      *catalog.Store
	embedder   embedding.Provider
	index      vectorindex.Index
	intents    *intent.Classifier
	retriever  *retrieval.Retriever
	comparer   *ikhtilaf.Classifier
	drafter    llm.Drafter
	fallback   llm.Drafter
	gate       *validate.Gate
	scorer     *score.Scorer
	thresholds model.Thresholds
	health     *tracker
	metrics    *observability.Metrics
	logger     *slog.Logger
	now        func() time.Time
}

// New creates a pipeline. Thresholds are fixed for the lifetime of the
// pipeline; use WithThresholds to compare settings side by side.
func New(deps Deps, cfg model.RetrievalConfig, thresholds model.Thresholds) *Pipeline {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	fallback := llm.NewTemplateDrafter()
	if deps.Drafter == nil {
		deps.Drafter = fallback
	}
	retriever := retrieval.NewRetriever(deps.Store, deps.Embedder, deps.Index, cfg, thresholds.WeakRetrieval, retrieval.Options{
		Lexical:    deps.Lexical,
		Expansions: deps.Expansions,
		Metrics:    deps.Metrics,
		Logger:     deps.Logger,
	})
	return &Pipeline{
		store:      deps.Store,
		embedder:   deps.Embedder,
		index:      deps.Index,
		intents:    intent.NewClassifier(),
		retriever:  retriever,
		comparer:   ikhtilaf.NewClassifier(),
		drafter:    deps.Drafter,
		fallback:   fallback,
		gate:       validate.NewGate(deps.Metrics, deps.Logger),
		scorer:     score.NewScorer(thresholds),
		thresholds: thresholds,
		health:     newTracker(healthWindow),
		metrics:    deps.Metrics,
		logger:     deps.Logger,
		now:        time.Now,
	}
}

// WithThresholds returns a pipeline sharing p's collaborators, corpus and
// health counters but validating against th
func (p *Pipeline) WithThresholds(th model.Thresholds) *Pipeline {
	cp := *p
	cp.thresholds = th
	cp.scorer = score.NewScorer(th)
	cp.retriever = p.retriever.WithWeakThreshold(th.WeakRetrieval)
	return &cp
}

// Thresholds returns the validation thresholds in effect
func (p *Pipeline) Thresholds() model.Thresholds { return p.thresholds }

// Retriever returns the hybrid retriever
func (p *Pipeline) Retriever() *retrieval.Retriever { return p.retriever }

// Drafter returns the configured drafter
func (p *Pipeline) Drafter() llm.Drafter { return p.drafter }

type requestIDKey struct{}

// WithRequestID makes Ask reuse id instead of generating one
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// Ask answers one question. Validation failures are not errors: they end
// in an abstention. Only an empty question or a cancelled context is
// returned as an error.
func (p *Pipeline) Ask(ctx context.Context, req model.AskRequest) (*model.AskResponse, error) {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}
	lang := model.ParseLanguage(req.Language)
	requestID, _ := ctx.Value(requestIDKey{}).(string)
	if requestID == "" {
		requestID = uuid.NewString()
	}

	ctx, span := observability.Tracer().Start(ctx, "pipeline.ask", trace.WithAttributes(
		attribute.String("request_id", requestID),
		attribute.String("language", string(lang)),
	))
	defer span.End()

	r := &run{p: p, span: span}

	// 1. Classify intent
	var in model.Intent
	r.stage(StageIntent, func() { in = p.intents.Classify(question) })
	if err := r.check(ctx); err != nil {
		return nil, err
	}

	// 2. Retrieve evidence
	var res *retrieval.Result
	var err error
	r.stage(StageRetrieved, func() { res, err = p.retriever.Retrieve(ctx, question, req.TopK, lang) })
	if err != nil {
		return nil, r.fail(fmt.Errorf("retrieve: %w", err))
	}
	if err := r.check(ctx); err != nil {
		return nil, err
	}

	// 3. Compare juristic positions
	var stances []model.OpinionStance
	var analysis model.IkhtilafAnalysis
	r.stage(StageCompared, func() {
		stances, analysis = p.comparer.Compare(res.Cards, in.TopicTag, lang, req.Madhhab)
	})
	p.metrics.ObserveIkhtilaf(string(analysis.Status))
	if err := r.check(ctx); err != nil {
		return nil, err
	}

	// 4. Draft an answer
	var draft *llm.DraftResponse
	var drafter string
	var fallback bool
	r.stage(StageDrafted, func() {
		draft, drafter, fallback, err = p.draft(ctx, llm.DraftRequest{
			Question: question,
			Language: lang,
			Cards:    res.Cards,
			Ikhtilaf: analysis,
		}, in)
	})
	if err != nil {
		return nil, r.fail(fmt.Errorf("draft: %w", err))
	}
	if err := r.check(ctx); err != nil {
		return nil, err
	}

	// 5. Validate
	var verdict model.ValidationResult
	r.stage(StageValidated, func() { verdict = p.gate.Validate(draft.Text, res.Cards, in, p.thresholds) })
	if err := r.check(ctx); err != nil {
		return nil, err
	}

	// 6. Finalize
	var resp *model.AskResponse
	r.stage(StageFinalized, func() {
		sc := p.scorer.Calculate(score.Input{
			Cards:       res.Cards,
			Diagnostics: res.Diagnostics,
			Ikhtilaf:    analysis,
			Validation:  verdict,
			Fallback:    fallback,
			Drafter:     drafter,
		})
		resp = &model.AskResponse{
			RequestID:         requestID,
			SessionID:         req.SessionID,
			Language:          lang,
			Intent:            in,
			DirectAnswer:      draft.Text,
			EvidenceCards:     nonNilCards(res.Cards),
			OpinionComparison: nonNilStances(stances),
			Ikhtilaf:          analysis,
			Confidence:        sc.Confidence,
			Score:             sc,
			Validation:        verdict,
			Retrieval:         res.Diagnostics,
			CreatedAt:         p.now().UTC(),
		}
		if !verdict.Passed {
			abstain(resp, verdict, lang)
		}
	})
	resp.Stages = r.stages

	p.health.record(res.TopScore(), verdict.Passed)
	p.metrics.ObserveAsk(string(verdict.Reason))
	span.SetAttributes(
		attribute.String("decision", string(verdict.Reason)),
		attribute.Bool("degraded", res.Diagnostics.Degraded),
		attribute.Int("cards", len(res.Cards)),
	)
	p.logger.Debug("ask finished",
		"request_id", requestID,
		"decision", verdict.Reason,
		"cards", len(res.Cards),
		"confidence", resp.Confidence,
		"drafter", drafter,
	)
	return resp, nil
}

// draft runs the configured drafter. Personal-ruling questions never reach
// an external model since the answer is replaced by an abstention anyway.
// A failing drafter falls back to the template drafter.
func (p *Pipeline) draft(ctx context.Context, req llm.DraftRequest, in model.Intent) (*llm.DraftResponse, string, bool, error) {
	if in.PersonalRuling || p.drafter == p.fallback {
		resp, err := p.fallback.Draft(ctx, req)
		return resp, p.fallback.Name(), false, err
	}
	resp, err := p.drafter.Draft(ctx, req)
	if err == nil {
		return resp, p.drafter.Name(), false, nil
	}
	if ctx.Err() != nil {
		return nil, "", false, ctx.Err()
	}
	p.logger.Warn("drafter failed, using template", "drafter", p.drafter.Name(), "error", err)
	resp, err = p.fallback.Draft(ctx, req)
	return resp, p.fallback.Name(), true, err
}

// abstain replaces the answer with guidance. Cards stay, the opinion
// comparison goes.
func abstain(resp *model.AskResponse, verdict model.ValidationResult, lang model.Language) {
	msg := abstentionFor(verdict.Reason, lang)
	resp.Abstained = true
	resp.DirectAnswer = msg.answer
	resp.SafetyNotice = msg.notice
	resp.OpinionComparison = []model.OpinionStance{}
}

// run records the stage trail of one ask
type run struct {
	p      *Pipeline
	span   trace.Span
	stages []string
}

func (r *run) stage(name string, fn func()) {
	start := time.Now()
	fn()
	d := time.Since(start)
	r.p.metrics.ObserveStage(name, d)
	r.span.AddEvent(name, trace.WithAttributes(attribute.Int64("duration_us", d.Microseconds())))
	r.stages = append(r.stages, name)
}

// check stops between stages once ctx is done
func (r *run) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return r.fail(err)
	}
	return nil
}

func (r *run) fail(err error) error {
	r.span.RecordError(err)
	r.span.SetStatus(codes.Error, err.Error())
	return err
}

func nonNilCards(cards []model.EvidenceCard) []model.EvidenceCard {
	if cards == nil {
		return []model.EvidenceCard{}
	}
	return cards
}

func nonNilStances(stances []model.OpinionStance) []model.OpinionStance {
	if stances == nil {
		return []model.OpinionStance{}
	}
	return stances
}
