package model

import "time"

// Verdict is the grounding verdict of an answer
type Verdict string

const (
	VerdictGrounded          Verdict = "grounded"
	VerdictPartiallyGrounded Verdict = "partially_grounded"
	VerdictUngrounded        Verdict = "ungrounded"
	// VerdictInsufficient is used when there was no evidence to ground an answer on
	VerdictInsufficient Verdict = "insufficient"
)

// AnswerDraft is the synthesized answer with its grounding verdict
type AnswerDraft struct {
	Response  string  `json:"response"`
	Verdict   Verdict `json:"verdict"`
	Adherence float64 `json:"adherence"`
	// Citations are the 1-based evidence numbers the response cites
	Citations []int `json:"citations"`
	// Attempts is the number of language model calls made
	Attempts       int           `json:"attempts"`
	Fallback       bool          `json:"fallback"`
	TokensIn       int           `json:"tokens_in"`
	TokensOut      int           `json:"tokens_out"`
	GenerationTime time.Duration `json:"generation_time"`
}
