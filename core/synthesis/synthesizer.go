// Package synthesis builds the grounded prompt, calls the language model and
// verifies that the answer is supported by the fused context.
package synthesis

import (
	"context"
	"log/slog"

	"github.com/siherrmann/grounder/core/llm"
	"github.com/siherrmann/grounder/core/metrics"
	"github.com/siherrmann/grounder/core/tokens"
	"github.com/siherrmann/grounder/model"
)

const (
	// InsufficientResponse is answered without a model call when no evidence was found
	InsufficientResponse = "There is insufficient evidence in the knowledge base to answer this question."
	// FallbackResponse replaces an answer that stayed ungrounded
	FallbackResponse = "The retrieved evidence does not sufficiently support an answer to this question."
)

// Option configures a Synthesizer
type Option func(*Synthesizer)

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *Synthesizer) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Synthesizer turns a fused context into an answer draft
type Synthesizer struct {
	generator llm.Generator
	logger    *slog.Logger
}

// NewSynthesizer creates a synthesizer on top of generator
func NewSynthesizer(generator llm.Generator, opts ...Option) *Synthesizer {
	s := &Synthesizer{
		generator: generator,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Synthesize answers query from fused. An empty context short-circuits to an
// insufficient draft without calling the model. An ungrounded first answer is
// retried once with stricter instructions if config.RetryOnUngrounded is set,
// a still ungrounded answer is replaced by FallbackResponse. Model failures are
// returned as *model.GenerationError, a done ctx returns its error unwrapped.
func (s *Synthesizer) Synthesize(ctx context.Context, fused *model.FusedContext, query model.Query, config model.Config) (*model.AnswerDraft, error) {
	if fused.IsEmpty() {
		return &model.AnswerDraft{
			Response:  InsufficientResponse,
			Verdict:   model.VerdictInsufficient,
			Citations: []int{},
		}, nil
	}

	params := llm.Params{
		Model:       config.Model,
		Temperature: config.Temperature,
		MaxTokens:   config.MaxTokens,
	}
	contextSet := tokens.Union(fused.Texts()...)

	draft := &model.AnswerDraft{}
	strict := false
	for {
		generation, err := s.generator.Generate(ctx, BuildPrompt(fused, query.Text(), strict), params)
		draft.Attempts++
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			s.logger.Error("Generation failed", "attempt", draft.Attempts, "error", err)
			return nil, model.NewGenerationError(err)
		}

		draft.Response = generation.Text
		draft.TokensIn += generation.TokensIn
		draft.TokensOut += generation.TokensOut
		draft.GenerationTime += generation.Elapsed
		draft.Citations = ValidCitations(generation.Text, len(fused.Units))
		draft.Adherence = metrics.Adherence(metrics.ResponseTokens(generation.Text), contextSet)
		draft.Verdict = Grade(draft.Adherence, draft.Citations, config)

		s.logger.Info("Draft graded", "attempt", draft.Attempts, "adherence", draft.Adherence, "verdict", draft.Verdict, "citations", len(draft.Citations))

		if draft.Verdict != model.VerdictUngrounded {
			return draft, nil
		}
		if strict || !config.RetryOnUngrounded {
			break
		}
		strict = true
	}

	draft.Response = FallbackResponse
	draft.Fallback = true
	draft.Citations = []int{}
	return draft, nil
}

// Grade maps adherence onto a verdict. A grounded answer without any valid
// citation is downgraded to partially grounded.
func Grade(adherence float64, citations []int, config model.Config) model.Verdict {
	switch {
	case adherence >= config.GroundedAdherence:
		if len(citations) == 0 {
			return model.VerdictPartiallyGrounded
		}
		return model.VerdictGrounded
	case adherence >= config.MinAdherence:
		return model.VerdictPartiallyGrounded
	}
	return model.VerdictUngrounded
}

// ValidCitations returns the cited evidence numbers within 1..units in order of appearance.
func ValidCitations(response string, units int) []int {
	valid := []int{}
	for _, n := range tokens.ParseCitations(response) {
		if n >= 1 && n <= units {
			valid = append(valid, n)
		}
	}
	return valid
}
