package llm

import (
	"context"
	"crypto/md5"
	"fmt"
	"log/slog"
	"sync"
	"unicode/utf8"

	"github.com/sigfetch/sigfetch/internal/types"
)

// CacheConfig configures the two-tier embedding cache.
type CacheConfig struct {
	Dimension int // vector length, also the size of the zero fallback
	MaxChars  int // provider-safe input truncation
}

// Cache resolves text to embeddings through an in-process map, then a
// durable store tier, then the provider. Entries are immutable once
// written; neither tier evicts.
type Cache struct {
	config   CacheConfig
	provider types.Embedder
	store    types.EmbeddingStore // optional durable tier
	log      *slog.Logger

	mu  sync.Mutex
	mem map[string][]float32
}

func NewCache(config CacheConfig, provider types.Embedder, store types.EmbeddingStore, log *slog.Logger) *Cache {
	if config.Dimension == 0 {
		config.Dimension = 1536
	}
	if config.MaxChars == 0 {
		config.MaxChars = 8000
	}

	return &Cache{
		config:   config,
		provider: provider,
		store:    store,
		log:      log,
		mem:      make(map[string][]float32),
	}
}

// Get returns the embedding for text. A provider failure yields an
// all-zero vector of the configured dimension; callers must treat a
// zero vector as "no signal", never as genuine content. The zero
// fallback is not cached, so a later call may still succeed.
func (c *Cache) Get(ctx context.Context, text string) []float32 {
	hash := TextHash(text)

	c.mu.Lock()
	if vec, ok := c.mem[hash]; ok {
		c.mu.Unlock()
		return vec
	}
	c.mu.Unlock()

	if c.store != nil {
		vec, err := c.store.CachedEmbedding(ctx, hash)
		if err != nil {
			c.log.Warn("embedding cache lookup failed", "error", err)
		} else if vec != nil {
			c.remember(hash, vec)
			return vec
		}
	}

	input := text
	if len(input) > c.config.MaxChars {
		cut := c.config.MaxChars
		for cut > 0 && !utf8.RuneStart(input[cut]) {
			cut--
		}
		input = input[:cut]
	}

	vecs, err := c.provider.CreateEmbedding(ctx, []string{input})
	if err != nil || len(vecs) == 0 {
		c.log.Error("failed to generate embedding", "error", err)
		return make([]float32, c.config.Dimension)
	}
	vec := vecs[0]

	if c.store != nil {
		if err := c.store.SaveEmbedding(ctx, hash, vec); err != nil {
			c.log.Warn("failed to persist embedding", "error", err)
		}
	}
	c.remember(hash, vec)

	return vec
}

func (c *Cache) remember(hash string, vec []float32) {
	c.mu.Lock()
	c.mem[hash] = vec
	c.mu.Unlock()
}

// TextHash is the cache key for a piece of text.
func TextHash(text string) string {
	return fmt.Sprintf("%x", md5.Sum([]byte(text)))
}

// IsZeroVector reports whether vec carries no signal.
func IsZeroVector(vec []float32) bool {
	for _, v := range vec {
		if v != 0 {
			return false
		}
	}
	return true
}
