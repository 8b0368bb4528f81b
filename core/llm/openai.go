package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/siherrmann/grounder/model"
	"golang.org/x/time/rate"
)

const systemMessage = "You are a retrieval assistant. You answer only from the evidence given in the prompt."

// OpenAIConfig configures the OpenAI compatible generator
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	// Timeout bounds a single completion call, default 60s
	Timeout time.Duration
	// RequestsPerSecond limits outgoing calls, 0 disables limiting
	RequestsPerSecond float64
	Burst             int
}

// OpenAIGenerator implements Generator with the chat completions API
type OpenAIGenerator struct {
	client  *openai.Client
	config  OpenAIConfig
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewOpenAIGenerator creates a generator. logger may be nil.
func NewOpenAIGenerator(config OpenAIConfig, logger *slog.Logger) (*OpenAIGenerator, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}
	if config.Timeout <= 0 {
		config.Timeout = 60 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}

	g := &OpenAIGenerator{
		client: openai.NewClientWithConfig(clientConfig),
		config: config,
		logger: logger,
	}
	if config.RequestsPerSecond > 0 {
		burst := config.Burst
		if burst <= 0 {
			burst = 1
		}
		g.limiter = rate.NewLimiter(rate.Limit(config.RequestsPerSecond), burst)
	}

	return g, nil
}

// Generate runs one chat completion for prompt. When the caller's ctx is done
// its error is returned unwrapped.
func (g *OpenAIGenerator) Generate(parent context.Context, prompt string, params Params) (*Generation, error) {
	ctx, cancel := context.WithTimeout(parent, g.config.Timeout)
	defer cancel()

	if g.limiter != nil {
		err := g.limiter.Wait(ctx)
		if err != nil {
			if parentErr := parent.Err(); parentErr != nil {
				return nil, parentErr
			}
			return nil, fmt.Errorf("%w: rate limit wait: %v", model.ErrGenerationTimeout, err)
		}
	}

	modelName := params.Model
	if modelName == "" {
		modelName = openai.GPT4oMini
	}

	start := time.Now()
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: modelName,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemMessage},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: params.Temperature,
		MaxTokens:   params.MaxTokens,
	})
	elapsed := time.Since(start)
	if err != nil {
		if parentErr := parent.Err(); parentErr != nil {
			return nil, parentErr
		}
		g.logger.Warn("Chat completion failed", "model", modelName, "elapsed", elapsed, "error", err)
		return nil, classify(ctx, err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices in response", model.ErrGenerationUnavailable)
	}

	return &Generation{
		Text:      strings.TrimSpace(resp.Choices[0].Message.Content),
		TokensIn:  resp.Usage.PromptTokens,
		TokensOut: resp.Usage.CompletionTokens,
		Elapsed:   elapsed,
	}, nil
}

// classify maps client errors onto the generation error taxonomy.
func classify(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", model.ErrGenerationTimeout, err)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%w: status %d: %s", model.ErrGenerationUnavailable, apiErr.HTTPStatusCode, apiErr.Message)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return fmt.Errorf("%w: status %d", model.ErrGenerationUnavailable, reqErr.HTTPStatusCode)
	}

	return fmt.Errorf("%w: %v", model.ErrGenerationUnavailable, err)
}
