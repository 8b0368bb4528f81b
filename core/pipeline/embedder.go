package pipeline

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/knights-analytics/hugot"
	"github.com/siherrmann/grounder/helper"
)

const (
	// DefaultEmbeddingModel is the sentence transformer used by DefaultEmbedder
	DefaultEmbeddingModel = "sentence-transformers/all-MiniLM-L6-v2"
	// DefaultEmbeddingDim is the output size of DefaultEmbeddingModel
	DefaultEmbeddingDim = 384
)

// ErrEmptyText is returned for text without any content to embed
var ErrEmptyText = errors.New("text to embed is empty")

// EmbedderConfig selects the feature extraction model. Dim has to match the
// vector column the fragments were stored in.
type EmbedderConfig struct {
	ModelName string
	Dim       int
}

// Validate checks the embedder configuration
func (c EmbedderConfig) Validate() error {
	if c.ModelName == "" {
		return fmt.Errorf("embedding model name is required")
	}
	if c.Dim <= 0 {
		return fmt.Errorf("embedding dimension must be positive, got %d", c.Dim)
	}
	return nil
}

// DefaultEmbedder creates an embedder for DefaultEmbeddingModel
func DefaultEmbedder() (EmbedFunc, error) {
	return NewEmbedder(EmbedderConfig{ModelName: DefaultEmbeddingModel, Dim: DefaultEmbeddingDim})
}

// NewEmbedder downloads the model if needed and returns an embed function over
// a local hugot session. Calls are serialized on the session.
func NewEmbedder(config EmbedderConfig) (EmbedFunc, error) {
	err := config.Validate()
	if err != nil {
		return nil, err
	}

	modelPath, err := helper.PrepareModel(config.ModelName, "")
	if err != nil {
		return nil, err
	}

	session, err := hugot.NewGoSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create hugot session: %w", err)
	}

	extraction, err := hugot.NewPipeline(session, hugot.FeatureExtractionConfig{
		ModelPath: modelPath,
		Name:      "query-embedder",
	})
	if err != nil {
		if destroyErr := session.Destroy(); destroyErr != nil {
			return nil, fmt.Errorf("failed to create feature extraction pipeline: %w (cleanup error: %v)", err, destroyErr)
		}
		return nil, fmt.Errorf("failed to create feature extraction pipeline: %w", err)
	}

	var mu sync.Mutex
	return func(text string) ([]float32, error) {
		text = strings.TrimSpace(text)
		if text == "" {
			return nil, ErrEmptyText
		}

		mu.Lock()
		result, err := extraction.RunPipeline([]string{text})
		mu.Unlock()
		if err != nil {
			return nil, fmt.Errorf("failed to generate embedding: %w", err)
		}

		return firstEmbedding(result.Embeddings, config.Dim)
	}, nil
}

// firstEmbedding returns the single embedding of a one text batch, checked against dim.
func firstEmbedding(embeddings [][]float32, dim int) ([]float32, error) {
	if len(embeddings) == 0 {
		return nil, fmt.Errorf("no embedding generated")
	}
	if len(embeddings[0]) != dim {
		return nil, fmt.Errorf("embedding has %d dimensions, the fragment index expects %d", len(embeddings[0]), dim)
	}
	return embeddings[0], nil
}
