package model

import (
	"time"

	"github.com/google/uuid"
)

// Metrics are the timings, token usage and TRACe quality metrics of one query.
// Times are in seconds.
type Metrics struct {
	SearchTime     float64 `json:"search_time"`
	GenerationTime float64 `json:"generation_time"`
	TotalTime      float64 `json:"total_time"`
	TokensUsed     int     `json:"tokens_used"`
	Relevance      float64 `json:"relevance"`
	Utilization    float64 `json:"utilization"`
	Adherence      float64 `json:"adherence"`
	Completeness   float64 `json:"completeness"`
	Cost           float64 `json:"cost"`
}

// StageTimings holds the elapsed time of each pipeline stage
type StageTimings struct {
	Policy     time.Duration `json:"policy"`
	Retrieval  time.Duration `json:"retrieval"`
	Fusion     time.Duration `json:"fusion"`
	Generation time.Duration `json:"generation"`
	Total      time.Duration `json:"total"`
}

// RetrieverStatus summarizes one retriever run
type RetrieverStatus struct {
	Strategy       PolicyType    `json:"strategy"`
	Elapsed        time.Duration `json:"elapsed"`
	CandidateCount int           `json:"candidate_count"`
	Returned       int           `json:"returned"`
	Degraded       bool          `json:"degraded"`
	Reason         string        `json:"reason,omitempty"`
}

// SearchRecord is the append-only audit entry written once per query
type SearchRecord struct {
	ID            int64             `json:"id"`
	RID           uuid.UUID         `json:"rid"`
	Query         string            `json:"query"`
	Policy        Policy            `json:"policy"`
	Selection     *PolicySelection  `json:"selection,omitempty"`
	Timings       StageTimings      `json:"timings"`
	Retrievers    []RetrieverStatus `json:"retrievers"`
	ContextTokens int               `json:"context_tokens"`
	ContextKeys   []string          `json:"context_keys"`
	Response      string            `json:"response"`
	Verdict       Verdict           `json:"verdict"`
	Attempts      int               `json:"attempts"`
	States        []QueryState      `json:"states"`
	FinalState    QueryState        `json:"final_state"`
	Metrics       Metrics           `json:"metrics"`
	Error         string            `json:"error,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
}
