package model

import "time"

// RetrievalResult is the ordered output of one retriever
type RetrievalResult struct {
	Strategy       PolicyType      `json:"strategy"`
	Units          []*EvidenceUnit `json:"units"`
	Elapsed        time.Duration   `json:"elapsed"`
	CandidateCount int             `json:"candidate_count"`
	Degraded       bool            `json:"degraded"`
	Reason         string          `json:"reason,omitempty"`
}

// EmptyResult returns a result without units for a strategy.
func EmptyResult(strategy PolicyType) *RetrievalResult {
	return &RetrievalResult{Strategy: strategy, Units: []*EvidenceUnit{}}
}

// DegradedResult returns an empty result flagged with the failure reason.
func DegradedResult(strategy PolicyType, elapsed time.Duration, err error) *RetrievalResult {
	r := EmptyResult(strategy)
	r.Elapsed = elapsed
	r.Degraded = true
	if err != nil {
		r.Reason = err.Error()
	}
	return r
}

// FusedContext is the budgeted, deduplicated evidence handed to synthesis
type FusedContext struct {
	Units      []*EvidenceUnit `json:"units"`
	Scores     []float64       `json:"scores"`
	TokenCount int             `json:"token_count"`
	Budget     int             `json:"budget"`
	// Truncated is set when units were left out because the budget was exhausted
	Truncated bool `json:"truncated"`
}

// IsEmpty reports whether the context carries no evidence.
func (c *FusedContext) IsEmpty() bool {
	return c == nil || len(c.Units) == 0
}

// Err returns ErrBudgetExhausted when units were left out for the budget and
// ErrNoEvidence when the context is empty for any other reason.
func (c *FusedContext) Err() error {
	if c != nil && c.Truncated {
		return ErrBudgetExhausted
	}
	if c.IsEmpty() {
		return ErrNoEvidence
	}
	return nil
}

// Texts returns the rendered text of every unit in order.
func (c *FusedContext) Texts() []string {
	if c == nil {
		return nil
	}
	texts := make([]string, len(c.Units))
	for i, u := range c.Units {
		texts[i] = u.Text()
	}
	return texts
}
