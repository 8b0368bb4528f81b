package synthesis

import (
	"context"
	"errors"
	"testing"

	"github.com/siherrmann/grounder/core/llm"
	"github.com/siherrmann/grounder/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedGenerator struct {
	responses []string
	errs      []error
	prompts   []string
	params    []llm.Params
}

func (g *scriptedGenerator) Generate(ctx context.Context, prompt string, params llm.Params) (*llm.Generation, error) {
	i := len(g.prompts)
	g.prompts = append(g.prompts, prompt)
	g.params = append(g.params, params)
	if i < len(g.errs) && g.errs[i] != nil {
		return nil, g.errs[i]
	}
	return &llm.Generation{Text: g.responses[i], TokensIn: 100, TokensOut: 10}, nil
}

func revenueContext() *model.FusedContext {
	u := model.NewFragmentUnit(&model.TextFragment{ID: 42, DocumentID: 7, Content: "Company X reported revenue of $1.2M in Q3 2023", Similarity: 0.92})
	return &model.FusedContext{Units: []*model.EvidenceUnit{u}, Scores: []float64{1}, TokenCount: 10, Budget: 2000}
}

func mustQuery(t *testing.T, text string) model.Query {
	q, err := model.NewQuery(text)
	require.NoError(t, err)
	return q
}

func TestSynthesize(t *testing.T) {
	config := model.DefaultConfig()
	query := mustQuery(t, "What was Company X revenue in Q3?")

	t.Run("Grounded answer cites the fragment", func(t *testing.T) {
		g := &scriptedGenerator{responses: []string{"Company X reported revenue of $1.2M in Q3 2023 [1]."}}
		draft, err := NewSynthesizer(g).Synthesize(context.Background(), revenueContext(), query, config)
		require.NoError(t, err)

		assert.Equal(t, model.VerdictGrounded, draft.Verdict)
		assert.GreaterOrEqual(t, draft.Adherence, 0.8)
		assert.Equal(t, []int{1}, draft.Citations)
		assert.Equal(t, 1, draft.Attempts, "Expected exactly one model call on the happy path")
		assert.Equal(t, 100, draft.TokensIn)

		require.Len(t, g.params, 1)
		assert.Equal(t, llm.Params{Model: config.Model, Temperature: config.Temperature, MaxTokens: config.MaxTokens}, g.params[0])
		assert.Contains(t, g.prompts[0], "[1] (doc 7, pos 0) Company X reported revenue of $1.2M in Q3 2023")
		assert.Contains(t, g.prompts[0], "Question: What was Company X revenue in Q3?")
		assert.NotContains(t, g.prompts[0], "Do not speculate")
	})

	t.Run("Empty context skips the model", func(t *testing.T) {
		g := &scriptedGenerator{}
		draft, err := NewSynthesizer(g).Synthesize(context.Background(), &model.FusedContext{}, query, config)
		require.NoError(t, err)
		assert.Equal(t, model.VerdictInsufficient, draft.Verdict)
		assert.Equal(t, InsufficientResponse, draft.Response)
		assert.Equal(t, 0, draft.Attempts)
		assert.Empty(t, g.prompts)
	})

	t.Run("Ungrounded answer is retried strictly", func(t *testing.T) {
		g := &scriptedGenerator{responses: []string{
			"Probably around ten billion dollars according to analysts.",
			"Company X reported revenue of $1.2M in Q3 2023 [1].",
		}}
		draft, err := NewSynthesizer(g).Synthesize(context.Background(), revenueContext(), query, config)
		require.NoError(t, err)
		assert.Equal(t, model.VerdictGrounded, draft.Verdict)
		assert.Equal(t, 2, draft.Attempts)
		assert.Equal(t, 200, draft.TokensIn)
		require.Len(t, g.prompts, 2)
		assert.Contains(t, g.prompts[1], "Do not speculate")
	})

	t.Run("Still ungrounded falls back", func(t *testing.T) {
		g := &scriptedGenerator{responses: []string{
			"Probably around ten billion dollars.",
			"Analysts think it was huge.",
		}}
		draft, err := NewSynthesizer(g).Synthesize(context.Background(), revenueContext(), query, config)
		require.NoError(t, err)
		assert.Equal(t, model.VerdictUngrounded, draft.Verdict)
		assert.True(t, draft.Fallback)
		assert.Equal(t, FallbackResponse, draft.Response)
		assert.Equal(t, 2, draft.Attempts, "Expected at most two model calls")
		assert.Empty(t, draft.Citations)
	})

	t.Run("Fallback without retry", func(t *testing.T) {
		c := config
		c.RetryOnUngrounded = false
		g := &scriptedGenerator{responses: []string{"Nobody knows."}}
		draft, err := NewSynthesizer(g).Synthesize(context.Background(), revenueContext(), query, c)
		require.NoError(t, err)
		assert.True(t, draft.Fallback)
		assert.Equal(t, 1, draft.Attempts)
	})

	t.Run("Generation failure is returned", func(t *testing.T) {
		g := &scriptedGenerator{errs: []error{model.ErrGenerationUnavailable}}
		_, err := NewSynthesizer(g).Synthesize(context.Background(), revenueContext(), query, config)
		require.Error(t, err)
		assert.ErrorIs(t, err, model.ErrGenerationFailure)
		assert.ErrorIs(t, err, model.ErrGenerationUnavailable)

		var genErr *model.GenerationError
		require.True(t, errors.As(err, &genErr))
		assert.True(t, genErr.Retryable)
	})

	t.Run("Caller cancellation is not a generation failure", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		g := &scriptedGenerator{errs: []error{context.Canceled}}
		_, err := NewSynthesizer(g).Synthesize(ctx, revenueContext(), query, config)
		assert.ErrorIs(t, err, context.Canceled)
		assert.NotErrorIs(t, err, model.ErrGenerationFailure)

		var genErr *model.GenerationError
		assert.False(t, errors.As(err, &genErr), "Expected no retryable generation error")
	})
}

func TestGrade(t *testing.T) {
	config := model.DefaultConfig()

	assert.Equal(t, model.VerdictGrounded, Grade(0.9, []int{1}, config))
	assert.Equal(t, model.VerdictPartiallyGrounded, Grade(0.9, nil, config), "Expected downgrade without citations")
	assert.Equal(t, model.VerdictPartiallyGrounded, Grade(0.6, []int{1}, config))
	assert.Equal(t, model.VerdictUngrounded, Grade(0.2, []int{1}, config))
}

func TestValidCitations(t *testing.T) {
	assert.Equal(t, []int{2, 1}, ValidCitations("Revenue grew [2] while costs fell [1, 7] [2].", 3))
	assert.Empty(t, ValidCitations("No markers here.", 3))
	assert.Empty(t, ValidCitations("Out of range [0] [4].", 3))
}

func TestJustify(t *testing.T) {
	fused := revenueContext()
	fact := model.NewFactUnit(&model.Fact{ID: 3, Subject: "Company X", Relation: "employs", Object: "40 people", Confidence: 0.9}, 0.9)
	fused.Units = append(fused.Units, fact)
	fused.Scores = append(fused.Scores, 0.3)

	t.Run("Single policy", func(t *testing.T) {
		j := Justify(model.Policy{Type: model.PolicyText}, fused, []int{1})
		assert.Equal(t, "text_fragments", j.Type)
		require.Len(t, j.Evidence, 2)
		assert.Equal(t, 1, j.Evidence[0].Number)
		assert.Equal(t, "42", j.Evidence[0].SourceID)
		assert.Equal(t, 0.3, j.Evidence[1].Score, "Expected the fused score")
		assert.Nil(t, j.Breakdown)
	})

	t.Run("Hybrid breakdown", func(t *testing.T) {
		j := Justify(model.Policy{Type: model.PolicyHybrid}, fused, nil)
		assert.Equal(t, "hybrid", j.Type)
		assert.Equal(t, map[model.PolicyType]int{model.PolicyText: 1, model.PolicyFact: 1, model.PolicyGraph: 0}, j.Breakdown)
		assert.Equal(t, []int{}, j.Citations)
	})
}
