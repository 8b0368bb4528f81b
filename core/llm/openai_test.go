package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/siherrmann/grounder/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func completionServer(t *testing.T, content string) (*httptest.Server, *openai.ChatCompletionRequest) {
	received := &openai.ChatCompletionRequest{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(received))

		_ = json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
			ID:    "chatcmpl-1",
			Model: received.Model,
			Choices: []openai.ChatCompletionChoice{{
				Message:      openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: content},
				FinishReason: openai.FinishReasonStop,
			}},
			Usage: openai.Usage{PromptTokens: 120, CompletionTokens: 14, TotalTokens: 134},
		})
	}))
	t.Cleanup(server.Close)
	return server, received
}

func TestNewOpenAIGenerator(t *testing.T) {
	_, err := NewOpenAIGenerator(OpenAIConfig{}, nil)
	assert.Error(t, err, "Expected error without api key")

	g, err := NewOpenAIGenerator(OpenAIConfig{APIKey: "k", RequestsPerSecond: 2}, nil)
	require.NoError(t, err)
	assert.Equal(t, 60*time.Second, g.config.Timeout)
	assert.NotNil(t, g.limiter)
}

func TestOpenAIGeneratorGenerate(t *testing.T) {
	t.Run("Passes parameters through and reports usage", func(t *testing.T) {
		server, received := completionServer(t, "  Revenue grew 12% [1].  ")
		g, err := NewOpenAIGenerator(OpenAIConfig{APIKey: "test-key", BaseURL: server.URL, Timeout: 5 * time.Second}, nil)
		require.NoError(t, err)

		gen, err := g.Generate(context.Background(), "evidence and question", Params{Model: "gpt-4o-mini", Temperature: 0.7, MaxTokens: 4000})
		require.NoError(t, err)
		assert.Equal(t, "Revenue grew 12% [1].", gen.Text)
		assert.Equal(t, 120, gen.TokensIn)
		assert.Equal(t, 14, gen.TokensOut)

		assert.Equal(t, "gpt-4o-mini", received.Model)
		assert.InDelta(t, 0.7, received.Temperature, 1e-6)
		assert.Equal(t, 4000, received.MaxTokens)
		require.Len(t, received.Messages, 2)
		assert.Equal(t, "evidence and question", received.Messages[1].Content)
	})

	t.Run("Server error is unavailable", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"error":{"message":"overloaded","type":"server_error"}}`))
		}))
		defer server.Close()

		g, err := NewOpenAIGenerator(OpenAIConfig{APIKey: "test-key", BaseURL: server.URL}, nil)
		require.NoError(t, err)
		_, err = g.Generate(context.Background(), "p", Params{})
		assert.ErrorIs(t, err, model.ErrGenerationUnavailable)
		assert.NotErrorIs(t, err, model.ErrGenerationTimeout)
	})

	t.Run("Slow server times out", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
		}))
		defer server.Close()

		g, err := NewOpenAIGenerator(OpenAIConfig{APIKey: "test-key", BaseURL: server.URL, Timeout: 50 * time.Millisecond}, nil)
		require.NoError(t, err)
		_, err = g.Generate(context.Background(), "p", Params{})
		assert.ErrorIs(t, err, model.ErrGenerationTimeout)
	})

	t.Run("Caller cancellation is returned unwrapped", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
		}))
		defer server.Close()

		g, err := NewOpenAIGenerator(OpenAIConfig{APIKey: "test-key", BaseURL: server.URL, Timeout: 5 * time.Second}, nil)
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			time.Sleep(20 * time.Millisecond)
			cancel()
		}()
		_, err = g.Generate(ctx, "p", Params{})
		assert.ErrorIs(t, err, context.Canceled)
		assert.NotErrorIs(t, err, model.ErrGenerationUnavailable)
		assert.NotErrorIs(t, err, model.ErrGenerationTimeout)
	})

	t.Run("Empty choices are unavailable", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(openai.ChatCompletionResponse{ID: "chatcmpl-2"})
		}))
		defer server.Close()

		g, err := NewOpenAIGenerator(OpenAIConfig{APIKey: "test-key", BaseURL: server.URL}, nil)
		require.NoError(t, err)
		_, err = g.Generate(context.Background(), "p", Params{})
		assert.ErrorIs(t, err, model.ErrGenerationUnavailable)
	})

	t.Run("Rate limiter wait honours the deadline", func(t *testing.T) {
		server, _ := completionServer(t, "ok")
		g, err := NewOpenAIGenerator(OpenAIConfig{APIKey: "test-key", BaseURL: server.URL, Timeout: 50 * time.Millisecond, RequestsPerSecond: 0.01, Burst: 1}, nil)
		require.NoError(t, err)

		_, err = g.Generate(context.Background(), "p", Params{})
		require.NoError(t, err, "Expected the burst to allow the first call")
		_, err = g.Generate(context.Background(), "p", Params{})
		assert.ErrorIs(t, err, model.ErrGenerationTimeout)
	})
}
