package model

import (
	"errors"
	"fmt"
)

var (
	// ErrSourceUnavailable marks a retriever backend that is down. The query degrades.
	ErrSourceUnavailable = errors.New("source unavailable")
	// ErrSourceTimeout marks a retriever exceeding its bounded wait. Treated as empty result.
	ErrSourceTimeout = errors.New("source timeout")
	// ErrNoEvidence is reported when every retriever came back empty.
	ErrNoEvidence = errors.New("no evidence")
	// ErrBudgetExhausted is informational, the fused context holds fewer units than retrieved.
	ErrBudgetExhausted = errors.New("token budget exhausted")

	ErrGenerationFailure     = errors.New("generation failure")
	ErrGenerationUnavailable = errors.New("generation service unavailable")
	ErrGenerationTimeout     = errors.New("generation timeout")

	ErrQueryRequired = errors.New("query text is required")
	ErrInvalidPolicy = errors.New("invalid policy")
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrInvalidState  = errors.New("invalid state transition")
)

// GenerationError is returned to the caller when the language model cannot produce an answer.
// It matches ErrGenerationFailure and its cause with errors.Is.
type GenerationError struct {
	Cause     error
	Retryable bool
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("%v: %v", ErrGenerationFailure, e.Cause)
}

func (e *GenerationError) Unwrap() []error {
	return []error{ErrGenerationFailure, e.Cause}
}

// NewGenerationError wraps a language model error. Unavailable and timeout causes are retryable.
func NewGenerationError(cause error) *GenerationError {
	return &GenerationError{
		Cause:     cause,
		Retryable: errors.Is(cause, ErrGenerationUnavailable) || errors.Is(cause, ErrGenerationTimeout),
	}
}
