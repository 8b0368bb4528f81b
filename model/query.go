package model

import (
	"strings"

	"github.com/google/uuid"
)

// Settings are optional per-call overrides of the engine configuration
type Settings struct {
	TopK                    *int           `json:"top_k,omitempty"`
	SimilarityThreshold     *float64       `json:"similarity_threshold,omitempty"`
	GraphMaxDepth           *int           `json:"graph_max_depth,omitempty"`
	GraphMaxPaths           *int           `json:"graph_max_paths,omitempty"`
	TokenBudget             *int           `json:"token_budget,omitempty"`
	FactConfidenceThreshold *float64       `json:"fact_confidence_threshold,omitempty"`
	HybridWeights           *HybridWeights `json:"hybrid_weights,omitempty"`
}

// Query is the immutable input of one engine call.
// Its fields are unexported, use NewQuery and the accessors.
type Query struct {
	text           string
	policy         PolicyType
	settings       Settings
	groundTruth    string
	expectedAnswer string
}

// QueryOption configures a Query at construction.
type QueryOption func(*Query)

// WithPolicy sets an explicit policy override.
func WithPolicy(p PolicyType) QueryOption {
	return func(q *Query) { q.policy = p }
}

// WithSettings sets per-call settings.
func WithSettings(s Settings) QueryOption {
	return func(q *Query) { q.settings = s }
}

// WithGroundTruth sets the text of the known relevant evidence used for the relevance metric.
func WithGroundTruth(text string) QueryOption {
	return func(q *Query) { q.groundTruth = text }
}

// WithExpectedAnswer sets the reference answer used for the completeness metric.
func WithExpectedAnswer(text string) QueryOption {
	return func(q *Query) { q.expectedAnswer = text }
}

// NewQuery validates and builds a query.
func NewQuery(text string, opts ...QueryOption) (Query, error) {
	q := Query{text: strings.TrimSpace(text)}
	if q.text == "" {
		return Query{}, ErrQueryRequired
	}
	for _, opt := range opts {
		opt(&q)
	}
	if q.policy != "" {
		p, err := ParsePolicyType(string(q.policy))
		if err != nil {
			return Query{}, err
		}
		q.policy = p
	}
	return q, nil
}

func (q Query) Text() string { return q.text }

// Policy returns the explicit override and whether one was given.
func (q Query) Policy() (PolicyType, bool) { return q.policy, q.policy != "" }

func (q Query) Settings() Settings     { return q.settings }
func (q Query) GroundTruth() string    { return q.groundTruth }
func (q Query) ExpectedAnswer() string { return q.expectedAnswer }

// Request is the wire shape accepted from the application layer
type Request struct {
	Query          string    `json:"query"`
	Policy         string    `json:"policy,omitempty"`
	Settings       *Settings `json:"settings,omitempty"`
	GroundTruth    string    `json:"ground_truth,omitempty"`
	ExpectedAnswer string    `json:"expected_answer,omitempty"`
}

// ToQuery converts the request into a validated Query.
func (r Request) ToQuery() (Query, error) {
	opts := []QueryOption{
		WithPolicy(PolicyType(r.Policy)),
		WithGroundTruth(r.GroundTruth),
		WithExpectedAnswer(r.ExpectedAnswer),
	}
	if r.Settings != nil {
		opts = append(opts, WithSettings(*r.Settings))
	}
	return NewQuery(r.Query, opts...)
}

// Response is the wire shape returned to the application layer
type Response struct {
	Query           string           `json:"query"`
	PolicyType      PolicyType       `json:"policy_type"`
	Response        string           `json:"response"`
	Justification   Justification    `json:"justification"`
	Metrics         Metrics          `json:"metrics"`
	PolicySelection *PolicySelection `json:"policy_selection,omitempty"`
	Verdict         Verdict          `json:"verdict"`
	State           QueryState       `json:"state"`
	DegradedSources []PolicyType     `json:"degraded_sources,omitempty"`
	RecordRID       uuid.UUID        `json:"record_id"`
}

// Justification lists the evidence the answer was built from.
// Type is text_fragments, facts, graph_paths or hybrid.
type Justification struct {
	Type      string              `json:"type"`
	Evidence  []JustificationItem `json:"evidence"`
	Citations []int               `json:"citations"`
	Breakdown map[PolicyType]int  `json:"breakdown,omitempty"`
}

// JustificationItem is one numbered evidence unit of the prompt
type JustificationItem struct {
	Number   int          `json:"number"`
	Kind     EvidenceKind `json:"kind"`
	Label    string       `json:"label"`
	Score    float64      `json:"score"`
	Text     string       `json:"text"`
	SourceID string       `json:"source_id"`
}
