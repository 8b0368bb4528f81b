// Package engine runs a query through policy selection, retrieval, fusion and
// synthesis and records the outcome.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/siherrmann/grounder/core/fusion"
	"github.com/siherrmann/grounder/core/metrics"
	"github.com/siherrmann/grounder/core/policy"
	"github.com/siherrmann/grounder/core/retrieval"
	"github.com/siherrmann/grounder/core/synthesis"
	"github.com/siherrmann/grounder/model"
	"golang.org/x/sync/errgroup"
)

// Recorder receives the search record of every finished query. It must not block.
type Recorder interface {
	Record(ctx context.Context, record *model.SearchRecord)
}

// Retrievers are the single source retrievers. A nil retriever degrades its strategy.
type Retrievers struct {
	Text  retrieval.Retriever
	Fact  retrieval.Retriever
	Graph retrieval.Retriever
}

func (r Retrievers) byStrategy() [3]retrieval.Retriever {
	return [3]retrieval.Retriever{r.Text, r.Fact, r.Graph}
}

// Option configures an Engine
type Option func(*Engine)

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithRecorder sets the search record recorder
func WithRecorder(recorder Recorder) Option {
	return func(e *Engine) {
		e.recorder = recorder
	}
}

// Engine answers queries. It holds no per query state and is safe for concurrent use.
type Engine struct {
	config      model.Config
	selector    *policy.Selector
	retrievers  [3]retrieval.Retriever
	synthesizer *synthesis.Synthesizer
	recorder    Recorder
	logger      *slog.Logger
}

// NewEngine creates an engine after validating config.
func NewEngine(config model.Config, retrievers Retrievers, synthesizer *synthesis.Synthesizer, opts ...Option) (*Engine, error) {
	err := config.Validate()
	if err != nil {
		return nil, err
	}
	if synthesizer == nil {
		return nil, fmt.Errorf("synthesizer is required")
	}

	e := &Engine{
		config:      config,
		selector:    policy.NewSelector(config.PolicyFallbackConfidence),
		retrievers:  retrievers.byStrategy(),
		synthesizer: synthesizer,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Config returns the engine configuration.
func (e *Engine) Config() model.Config {
	return e.config
}

// Analyze resolves the policy of q the way Answer does, without retrieval or generation.
func (e *Engine) Analyze(q model.Query) *model.PolicySelection {
	_, selection := e.selector.Select(q, e.config.HybridWeights)
	return selection
}

// query is the per query working state
type query struct {
	rid       uuid.UUID
	query     model.Query
	config    model.Config
	trail     *model.StateTrail
	policy    model.Policy
	selection *model.PolicySelection
	results   [3]*model.RetrievalResult
	fused     *model.FusedContext
	draft     *model.AnswerDraft
	timings   model.StageTimings
	start     time.Time
}

// Answer runs q through the pipeline. Retriever failures degrade the answer,
// generation failures and caller cancellation are returned as errors. A search
// record is written in every case.
func (e *Engine) Answer(ctx context.Context, q model.Query) (*model.Response, error) {
	config := e.config.WithSettings(q.Settings())
	err := config.Validate()
	if err != nil {
		return nil, err
	}

	run := &query{
		rid:    uuid.New(),
		query:  q,
		config: config,
		trail:  model.NewStateTrail(),
		start:  time.Now(),
	}

	err = e.run(ctx, run)
	run.timings.Total = time.Since(run.start)
	if err != nil {
		_ = run.trail.Advance(model.StateFailed)
		e.logger.Error("Query failed", "rid", run.rid, "state", run.trail.Current(), "error", err)
		e.record(ctx, run, err)
		return nil, err
	}

	response := e.response(run)
	e.logger.Info("Query finished", "rid", run.rid, "policy", run.policy.Type, "verdict", run.draft.Verdict, "state", run.trail.Current(), "total", run.timings.Total)
	e.record(ctx, run, nil)
	return response, nil
}

func (e *Engine) run(ctx context.Context, run *query) error {
	stage := time.Now()
	run.policy, run.selection = e.selector.Select(run.query, run.config.HybridWeights)
	run.timings.Policy = time.Since(stage)
	err := run.trail.Advance(model.StatePolicyResolved)
	if err != nil {
		return err
	}
	e.logger.Info("Policy resolved", "rid", run.rid, "policy", run.policy.Type, "confidence", run.selection.Confidence, "auto_selected", run.selection.AutoSelected)

	err = run.trail.Advance(model.StateRetrieving)
	if err != nil {
		return err
	}
	stage = time.Now()
	run.results, err = e.retrieve(ctx, run)
	run.timings.Retrieval = time.Since(stage)
	if err != nil {
		return err
	}

	err = run.trail.Advance(model.StateFusing)
	if err != nil {
		return err
	}
	stage = time.Now()
	run.fused = fusion.Fuse(run.results[:], run.policy, run.config.TokenBudget, run.config)
	run.timings.Fusion = time.Since(stage)
	e.logger.Info("Fused context", "rid", run.rid, "units", len(run.fused.Units), "tokens", run.fused.TokenCount, "budget", run.fused.Budget, "truncated", run.fused.Truncated)
	if err := run.fused.Err(); err != nil {
		e.logger.Info("Fused context incomplete", "rid", run.rid, "reason", err)
	}

	if run.fused.IsEmpty() {
		e.logger.Info("No evidence, skipping generation", "rid", run.rid, "reason", model.ErrNoEvidence)
		run.draft, err = e.synthesizer.Synthesize(ctx, run.fused, run.query, run.config)
		if err != nil {
			return err
		}
		return run.trail.Advance(model.StateInsufficient)
	}

	err = run.trail.Advance(model.StateSynthesizing)
	if err != nil {
		return err
	}
	stage = time.Now()
	run.draft, err = e.synthesizer.Synthesize(ctx, run.fused, run.query, run.config)
	run.timings.Generation = time.Since(stage)
	if err != nil {
		return err
	}
	if run.draft.Attempts > 1 {
		err = run.trail.Advance(model.StateSynthesizing)
		if err != nil {
			return err
		}
	}

	if run.draft.Fallback {
		return run.trail.Advance(model.StateInsufficient)
	}
	return run.trail.Advance(model.StateAnswered)
}

// retrieve runs the retrievers of the policy. Hybrid runs them concurrently and
// collects into a fixed array indexed by model.Strategies. Only a done ctx fails.
func (e *Engine) retrieve(ctx context.Context, run *query) ([3]*model.RetrievalResult, error) {
	var results [3]*model.RetrievalResult
	strategies := run.policy.Strategies()

	if len(strategies) == 1 {
		i := model.StrategyIndex(strategies[0])
		if i < 0 {
			return results, fmt.Errorf("%w: %s", model.ErrInvalidPolicy, strategies[0])
		}
		result, err := e.runRetriever(ctx, i, run)
		if err != nil {
			return results, err
		}
		results[i] = result
		return results, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, strategy := range strategies {
		i := model.StrategyIndex(strategy)
		g.Go(func() error {
			result, err := e.runRetriever(gctx, i, run)
			if err != nil {
				return err
			}
			results[i] = result
			return nil
		})
	}

	err := g.Wait()
	if err != nil {
		return [3]*model.RetrievalResult{}, err
	}
	return results, nil
}

func (e *Engine) runRetriever(ctx context.Context, i int, run *query) (*model.RetrievalResult, error) {
	r := e.retrievers[i]
	if r == nil {
		err := fmt.Errorf("%w: no %s retriever configured", model.ErrSourceUnavailable, model.Strategies[i])
		e.logger.Warn("Retriever degraded", "rid", run.rid, "strategy", model.Strategies[i], "error", err)
		return model.DegradedResult(model.Strategies[i], 0, err), nil
	}
	return retrieval.Run(ctx, r, run.query, run.config, e.logger.With("rid", run.rid))
}

func (e *Engine) response(run *query) *model.Response {
	return &model.Response{
		Query:           run.query.Text(),
		PolicyType:      run.policy.Type,
		Response:        run.draft.Response,
		Justification:   synthesis.Justify(run.policy, run.fused, run.draft.Citations),
		Metrics:         e.metrics(run),
		PolicySelection: run.selection,
		Verdict:         run.draft.Verdict,
		State:           run.trail.Current(),
		DegradedSources: degradedSources(run.results),
		RecordRID:       run.rid,
	}
}

// metrics computes the TRACe metrics of the final response plus timings, tokens and cost.
func (e *Engine) metrics(run *query) model.Metrics {
	m := model.Metrics{
		SearchTime:     (run.timings.Policy + run.timings.Retrieval + run.timings.Fusion).Seconds(),
		GenerationTime: run.timings.Generation.Seconds(),
		TotalTime:      run.timings.Total.Seconds(),
	}
	if run.draft == nil {
		return m
	}

	m.TokensUsed = run.draft.TokensIn + run.draft.TokensOut
	m.Cost = float64(m.TokensUsed) * run.config.CostPerToken(run.policy)
	if run.fused.IsEmpty() {
		return m
	}

	trace := metrics.Compute(run.draft.Response, run.fused.Texts(), run.query.GroundTruth(), run.query.ExpectedAnswer())
	m.Relevance = trace.Relevance
	m.Completeness = trace.Completeness
	if run.draft.Fallback {
		// the fallback text draws on no evidence
		return m
	}
	m.Utilization = trace.Utilization
	m.Adherence = run.draft.Adherence
	return m
}

func (e *Engine) record(ctx context.Context, run *query, err error) {
	if e.recorder == nil {
		return
	}

	record := &model.SearchRecord{
		RID:        run.rid,
		Query:      run.query.Text(),
		Policy:     run.policy,
		Selection:  run.selection,
		Timings:    run.timings,
		Retrievers: statuses(run.results),
		States:     run.trail.States(),
		FinalState: run.trail.Current(),
		Metrics:    e.metrics(run),
		CreatedAt:  time.Now().UTC(),
	}
	if run.fused != nil {
		record.ContextTokens = run.fused.TokenCount
		for _, u := range run.fused.Units {
			record.ContextKeys = append(record.ContextKeys, u.CitationKey())
		}
	}
	if run.draft != nil {
		record.Response = run.draft.Response
		record.Verdict = run.draft.Verdict
		record.Attempts = run.draft.Attempts
	}
	if err != nil {
		record.Error = err.Error()
		var genErr *model.GenerationError
		if errors.As(err, &genErr) {
			record.Attempts = max(record.Attempts, 1)
		}
	}

	e.recorder.Record(context.WithoutCancel(ctx), record)
}

func statuses(results [3]*model.RetrievalResult) []model.RetrieverStatus {
	out := []model.RetrieverStatus{}
	for _, r := range results {
		if r == nil {
			continue
		}
		out = append(out, model.RetrieverStatus{
			Strategy:       r.Strategy,
			Elapsed:        r.Elapsed,
			CandidateCount: r.CandidateCount,
			Returned:       len(r.Units),
			Degraded:       r.Degraded,
			Reason:         r.Reason,
		})
	}
	return out
}

func degradedSources(results [3]*model.RetrievalResult) []model.PolicyType {
	var out []model.PolicyType
	for _, r := range results {
		if r != nil && r.Degraded {
			out = append(out, r.Strategy)
		}
	}
	return out
}
