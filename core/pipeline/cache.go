package pipeline

import (
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
)

// DefaultCacheTTL is the lifetime of a cached query embedding
const DefaultCacheTTL = 10 * time.Minute

// CachedEmbedder memoizes embed for ttl. Texts differing only in
// whitespace share one entry. Errors are not cached.
func CachedEmbedder(embed EmbedFunc, ttl time.Duration) EmbedFunc {
	c := cache.New(ttl, 2*ttl)

	return func(text string) ([]float32, error) {
		key := strings.Join(strings.Fields(text), " ")
		if cached, ok := c.Get(key); ok {
			return cached.([]float32), nil
		}

		embedding, err := embed(text)
		if err != nil {
			return nil, err
		}

		c.SetDefault(key, embedding)
		return embedding, nil
	}
}
