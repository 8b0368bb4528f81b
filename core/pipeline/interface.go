package pipeline

import "math"

// EmbedFunc is a function that generates embeddings for text.
// It has to be the model the stored fragments were embedded with.
type EmbedFunc func(text string) ([]float32, error)

// MentionExtractFunc returns candidate entity names mentioned in text
type MentionExtractFunc func(text string) ([]string, error)

// Pipeline is the query side model stack: the embedder for text retrieval
// and an optional mention extractor for graph retrieval.
type Pipeline struct {
	Embedder         EmbedFunc
	MentionExtractor MentionExtractFunc // Optional
}

// NewPipeline creates a new query pipeline
func NewPipeline(embedder EmbedFunc) *Pipeline {
	return &Pipeline{
		Embedder: embedder,
	}
}

// SetMentionExtractor sets the mention extraction function
func (p *Pipeline) SetMentionExtractor(extractor MentionExtractFunc) {
	p.MentionExtractor = extractor
}

// CosineSimilarity of two vectors, 0 if they differ in length or one is zero.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
