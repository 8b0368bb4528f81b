package model

import (
	"fmt"
	"math"
	"strings"
)

// PolicyType is the retrieval strategy used for a query
type PolicyType string

const (
	PolicyText   PolicyType = "text"
	PolicyFact   PolicyType = "fact"
	PolicyGraph  PolicyType = "graph"
	PolicyHybrid PolicyType = "hybrid"
)

// Strategies is the fixed order of the single source strategies.
// Hybrid results are indexed by this order.
var Strategies = [3]PolicyType{PolicyText, PolicyFact, PolicyGraph}

// ParsePolicyType parses a policy name case-insensitively.
func ParsePolicyType(s string) (PolicyType, error) {
	switch PolicyType(strings.ToLower(strings.TrimSpace(s))) {
	case PolicyText:
		return PolicyText, nil
	case PolicyFact, "facts":
		return PolicyFact, nil
	case PolicyGraph:
		return PolicyGraph, nil
	case PolicyHybrid:
		return PolicyHybrid, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidPolicy, s)
}

// StrategyIndex returns the position of a single source strategy in Strategies or -1.
func StrategyIndex(p PolicyType) int {
	for i, s := range Strategies {
		if s == p {
			return i
		}
	}
	return -1
}

const weightEpsilon = 1e-6

// HybridWeights is the (text, fact, graph) weight triple of the hybrid policy
type HybridWeights struct {
	Text  float64 `json:"text" yaml:"text" mapstructure:"text"`
	Fact  float64 `json:"fact" yaml:"fact" mapstructure:"fact"`
	Graph float64 `json:"graph" yaml:"graph" mapstructure:"graph"`
}

// Validate checks the weights are non-negative and sum to 1.
func (w HybridWeights) Validate() error {
	if w.Text < 0 || w.Fact < 0 || w.Graph < 0 {
		return fmt.Errorf("%w: hybrid weights must be non-negative", ErrInvalidConfig)
	}
	if sum := w.Text + w.Fact + w.Graph; math.Abs(sum-1.0) > weightEpsilon {
		return fmt.Errorf("%w: hybrid weights sum to %.6f, expected 1.0", ErrInvalidConfig, sum)
	}
	return nil
}

// Policy is a resolved retrieval policy. Weights are only used by PolicyHybrid.
type Policy struct {
	Type    PolicyType    `json:"type"`
	Weights HybridWeights `json:"weights,omitempty"`
}

// Strategies returns the single source strategies the policy runs.
func (p Policy) Strategies() []PolicyType {
	if p.Type == PolicyHybrid {
		return Strategies[:]
	}
	return []PolicyType{p.Type}
}

// WeightFor returns the fusion weight of a strategy under this policy.
func (p Policy) WeightFor(strategy PolicyType) float64 {
	switch p.Type {
	case PolicyHybrid:
		switch strategy {
		case PolicyText:
			return p.Weights.Text
		case PolicyFact:
			return p.Weights.Fact
		case PolicyGraph:
			return p.Weights.Graph
		}
		return 0
	case strategy:
		return 1.0
	}
	return 0
}

// PolicySelection is the audit trail of the policy decision
type PolicySelection struct {
	SelectedPolicy PolicyType             `json:"selected_policy"`
	Confidence     float64                `json:"confidence"`
	AllScores      map[PolicyType]float64 `json:"all_scores"`
	Explanation    string                 `json:"explanation"`
	AutoSelected   bool                   `json:"auto_selected"`
}
