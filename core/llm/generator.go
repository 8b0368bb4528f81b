// Package llm is the client side of the language model service.
package llm

import (
	"context"
	"time"
)

// Params are the generation parameters, passed through to the model unchanged
type Params struct {
	Model       string
	Temperature float32
	MaxTokens   int
}

// Generation is one completed language model call
type Generation struct {
	Text      string
	TokensIn  int
	TokensOut int
	Elapsed   time.Duration
}

// Generator produces a completion for a prompt. Errors wrap
// model.ErrGenerationUnavailable or model.ErrGenerationTimeout.
type Generator interface {
	Generate(ctx context.Context, prompt string, params Params) (*Generation, error)
}
