package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePolicyType(t *testing.T) {
	t.Run("Parse known policies", func(t *testing.T) {
		for input, expected := range map[string]PolicyType{
			"text":   PolicyText,
			"Fact":   PolicyFact,
			"facts":  PolicyFact,
			" graph": PolicyGraph,
			"HYBRID": PolicyHybrid,
		} {
			p, err := ParsePolicyType(input)
			require.NoError(t, err, "Expected %q to parse", input)
			assert.Equal(t, expected, p)
		}
	})

	t.Run("Reject unknown policy", func(t *testing.T) {
		_, err := ParsePolicyType("keyword")
		assert.ErrorIs(t, err, ErrInvalidPolicy)
	})
}

func TestPolicyWeights(t *testing.T) {
	t.Run("Single policy weights its own strategy with one", func(t *testing.T) {
		p := Policy{Type: PolicyGraph}
		assert.Equal(t, 1.0, p.WeightFor(PolicyGraph))
		assert.Equal(t, 0.0, p.WeightFor(PolicyText))
		assert.Equal(t, []PolicyType{PolicyGraph}, p.Strategies())
	})

	t.Run("Hybrid uses the weight triple", func(t *testing.T) {
		p := Policy{Type: PolicyHybrid, Weights: HybridWeights{Text: 0.4, Fact: 0.3, Graph: 0.3}}
		assert.Equal(t, 0.4, p.WeightFor(PolicyText))
		assert.Equal(t, 0.3, p.WeightFor(PolicyFact))
		assert.Equal(t, 0.3, p.WeightFor(PolicyGraph))
		assert.Len(t, p.Strategies(), 3)
	})

	t.Run("Strategy index follows fixed order", func(t *testing.T) {
		assert.Equal(t, 0, StrategyIndex(PolicyText))
		assert.Equal(t, 1, StrategyIndex(PolicyFact))
		assert.Equal(t, 2, StrategyIndex(PolicyGraph))
		assert.Equal(t, -1, StrategyIndex(PolicyHybrid))
	})
}
