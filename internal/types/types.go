package types

import (
	"context"
	"time"
)

// Embedder turns text into fixed-dimension vectors. Matches the
// langchaingo embedding client surface so providers can be swapped
// in tests.
type Embedder interface {
	CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error)
}

// EmbeddingStore is the durable tier of the embedding cache.
// CachedEmbedding returns (nil, nil) when the hash is not present.
type EmbeddingStore interface {
	CachedEmbedding(ctx context.Context, textHash string) ([]float32, error)
	SaveEmbedding(ctx context.Context, textHash string, embedding []float32) error
}

// Neighbor is one previously feedback-labeled item within scoring
// radius of a candidate embedding.
type Neighbor struct {
	Distance float64
	Feedback int
}

// NeighborSource finds the nearest feedback-labeled items by embedding
// distance, nearest first.
type NeighborSource interface {
	NearestFeedback(ctx context.Context, embedding []float32, radius float64, k int) ([]Neighbor, error)
}

// Session is a reusable browser context shared across timeline fetches
// within one harvester instance. The caller owns Close.
type Session interface {
	NewPage() (Page, error)
	Close() error
}

// Page is the minimal browser surface the timeline harvester needs.
// Keeping it narrow lets the pagination loop run against a fake.
type Page interface {
	Navigate(url string, timeout time.Duration) error
	WaitForSelector(selector string, timeout time.Duration) error
	QueryAll(selector string) ([]Node, error)
	ScrollToBottom() error
	Close() error
}

// Node is one rendered element matched by a selector.
type Node interface {
	Text() (string, error)
	Attribute(name string) (string, error)
	QueryAll(selector string) ([]Node, error)
}
