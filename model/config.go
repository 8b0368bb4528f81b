package model

import (
	"fmt"
	"time"
)

// Config is the immutable engine configuration. Components receive it by value.
type Config struct {
	// Text retrieval
	TopK                    int     `json:"top_k" yaml:"top_k" mapstructure:"top_k"`
	SimilarityThreshold     float64 `json:"similarity_threshold" yaml:"similarity_threshold" mapstructure:"similarity_threshold"`
	TextRerankTopN          int     `json:"text_rerank_top_n" yaml:"text_rerank_top_n" mapstructure:"text_rerank_top_n"`
	TextDedupeSimilarity    float64 `json:"text_dedupe_similarity" yaml:"text_dedupe_similarity" mapstructure:"text_dedupe_similarity"`
	MaxFragmentsPerDocument int     `json:"max_fragments_per_document" yaml:"max_fragments_per_document" mapstructure:"max_fragments_per_document"`

	// Fact retrieval
	FactConfidenceThreshold float64       `json:"fact_confidence_threshold" yaml:"fact_confidence_threshold" mapstructure:"fact_confidence_threshold"`
	FactRerankTopN          int           `json:"fact_rerank_top_n" yaml:"fact_rerank_top_n" mapstructure:"fact_rerank_top_n"`
	FactRecencyWindow       time.Duration `json:"fact_recency_window" yaml:"fact_recency_window" mapstructure:"fact_recency_window"`
	FactRecencyHalfLife     time.Duration `json:"fact_recency_half_life" yaml:"fact_recency_half_life" mapstructure:"fact_recency_half_life"`

	// Graph retrieval
	GraphMaxDepth  int `json:"graph_max_depth" yaml:"graph_max_depth" mapstructure:"graph_max_depth"`
	GraphMaxPaths  int `json:"graph_max_paths" yaml:"graph_max_paths" mapstructure:"graph_max_paths"`
	GraphMaxFanOut int `json:"graph_max_fan_out" yaml:"graph_max_fan_out" mapstructure:"graph_max_fan_out"`

	// Fusion
	HybridWeights        HybridWeights `json:"hybrid_weights" yaml:"hybrid_weights" mapstructure:"hybrid_weights"`
	TokenBudget          int           `json:"token_budget" yaml:"token_budget" mapstructure:"token_budget"`
	NearDuplicateJaccard float64       `json:"near_duplicate_jaccard" yaml:"near_duplicate_jaccard" mapstructure:"near_duplicate_jaccard"`

	// Orchestration
	RetrieverTimeout         time.Duration `json:"retriever_timeout" yaml:"retriever_timeout" mapstructure:"retriever_timeout"`
	PolicyFallbackConfidence float64       `json:"policy_fallback_confidence" yaml:"policy_fallback_confidence" mapstructure:"policy_fallback_confidence"`

	// Generation
	Model             string  `json:"model" yaml:"model" mapstructure:"model"`
	Temperature       float32 `json:"temperature" yaml:"temperature" mapstructure:"temperature"`
	MaxTokens         int     `json:"max_tokens" yaml:"max_tokens" mapstructure:"max_tokens"`
	MinAdherence      float64 `json:"min_adherence" yaml:"min_adherence" mapstructure:"min_adherence"`
	GroundedAdherence float64 `json:"grounded_adherence" yaml:"grounded_adherence" mapstructure:"grounded_adherence"`
	RetryOnUngrounded bool    `json:"retry_on_ungrounded" yaml:"retry_on_ungrounded" mapstructure:"retry_on_ungrounded"`

	// Cost per token by strategy
	CostPerTokenText  float64 `json:"cost_per_token_text" yaml:"cost_per_token_text" mapstructure:"cost_per_token_text"`
	CostPerTokenFact  float64 `json:"cost_per_token_fact" yaml:"cost_per_token_fact" mapstructure:"cost_per_token_fact"`
	CostPerTokenGraph float64 `json:"cost_per_token_graph" yaml:"cost_per_token_graph" mapstructure:"cost_per_token_graph"`
}

// DefaultConfig returns the default engine configuration
func DefaultConfig() Config {
	return Config{
		TopK:                    5,
		SimilarityThreshold:     0.7,
		TextRerankTopN:          20,
		TextDedupeSimilarity:    0.95,
		MaxFragmentsPerDocument: 3,

		FactConfidenceThreshold: 0.4,
		FactRerankTopN:          20,

		GraphMaxDepth:  3,
		GraphMaxPaths:  10,
		GraphMaxFanOut: 25,

		HybridWeights:        HybridWeights{Text: 0.5, Fact: 0.3, Graph: 0.2},
		TokenBudget:          2000,
		NearDuplicateJaccard: 0.9,

		RetrieverTimeout:         10 * time.Second,
		PolicyFallbackConfidence: 0.6,

		Model:             "gpt-4o-mini",
		Temperature:       0.7,
		MaxTokens:         4000,
		MinAdherence:      0.5,
		GroundedAdherence: 0.8,
		RetryOnUngrounded: true,

		CostPerTokenText:  0.00002,
		CostPerTokenFact:  0.000015,
		CostPerTokenGraph: 0.00002,
	}
}

// Validate rejects configurations no component can work with.
func (c Config) Validate() error {
	if c.TopK <= 0 {
		return fmt.Errorf("%w: top_k must be positive", ErrInvalidConfig)
	}
	if c.SimilarityThreshold < 0 || c.SimilarityThreshold > 1 {
		return fmt.Errorf("%w: similarity_threshold must be in [0,1]", ErrInvalidConfig)
	}
	if c.FactConfidenceThreshold < 0 || c.FactConfidenceThreshold > 1 {
		return fmt.Errorf("%w: fact_confidence_threshold must be in [0,1]", ErrInvalidConfig)
	}
	if c.GraphMaxDepth <= 0 || c.GraphMaxPaths <= 0 {
		return fmt.Errorf("%w: graph_max_depth and graph_max_paths must be positive", ErrInvalidConfig)
	}
	if c.TokenBudget < 0 {
		return fmt.Errorf("%w: token_budget must not be negative", ErrInvalidConfig)
	}
	if c.MinAdherence > c.GroundedAdherence {
		return fmt.Errorf("%w: min_adherence must not exceed grounded_adherence", ErrInvalidConfig)
	}
	return c.HybridWeights.Validate()
}

// WithSettings returns a copy of the configuration with per-call settings applied.
func (c Config) WithSettings(s Settings) Config {
	if s.TopK != nil {
		c.TopK = *s.TopK
	}
	if s.SimilarityThreshold != nil {
		c.SimilarityThreshold = *s.SimilarityThreshold
	}
	if s.GraphMaxDepth != nil {
		c.GraphMaxDepth = *s.GraphMaxDepth
	}
	if s.GraphMaxPaths != nil {
		c.GraphMaxPaths = *s.GraphMaxPaths
	}
	if s.TokenBudget != nil {
		c.TokenBudget = *s.TokenBudget
	}
	if s.FactConfidenceThreshold != nil {
		c.FactConfidenceThreshold = *s.FactConfidenceThreshold
	}
	if s.HybridWeights != nil {
		c.HybridWeights = *s.HybridWeights
	}
	return c
}

// CostPerToken returns the configured cost of a token under the given policy.
// Hybrid uses the weighted mix of the single source costs.
func (c Config) CostPerToken(p Policy) float64 {
	switch p.Type {
	case PolicyText:
		return c.CostPerTokenText
	case PolicyFact:
		return c.CostPerTokenFact
	case PolicyGraph:
		return c.CostPerTokenGraph
	case PolicyHybrid:
		return p.Weights.Text*c.CostPerTokenText + p.Weights.Fact*c.CostPerTokenFact + p.Weights.Graph*c.CostPerTokenGraph
	}
	return 0
}
