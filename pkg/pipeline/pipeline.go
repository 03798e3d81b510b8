// Package pipeline wires the harvesters, embedding cache, scorer and
// persistence gateway into one run: harvest every configured handle
// and feed, embed and score each item, persist it, and report
// aggregate statistics. Individual item failures never stop a run.
package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/sigfetch/sigfetch/internal/models"
)

// TimelineSource is the browser-driven harvester boundary.
type TimelineSource interface {
	FetchTimeline(ctx context.Context, handle string, maxItems int) []models.ContentItem
}

// FeedSource is the syndication-feed harvester boundary.
type FeedSource interface {
	FetchFeed(ctx context.Context, feedURL string, maxItems int) []models.ContentItem
}

// EmbeddingSource resolves text to a vector, degrading to a zero
// vector on provider failure.
type EmbeddingSource interface {
	Get(ctx context.Context, text string) []float32
}

// RelevanceScorer assigns the [0,1] relevance score.
type RelevanceScorer interface {
	Score(ctx context.Context, item models.ContentItem) float64
}

// Gateway persists one item, reporting success.
type Gateway interface {
	UpsertItem(ctx context.Context, item models.ContentItem) bool
}

type Config struct {
	Handles      []string
	FeedURLs     []string
	MaxPerSource int
}

// RunStats summarizes one completed run.
type RunStats struct {
	TimelineItems int
	FeedItems     int
	TotalStored   int
	Duration      time.Duration
}

// Result carries the persisted items plus run statistics.
type Result struct {
	Items []models.ContentItem
	Stats RunStats
}

type Runner struct {
	config     Config
	timeline   TimelineSource
	feeds      FeedSource
	embeddings EmbeddingSource
	scorer     RelevanceScorer
	gateway    Gateway
	log        *slog.Logger
}

func NewRunner(config Config, timeline TimelineSource, feeds FeedSource, embeddings EmbeddingSource, scorer RelevanceScorer, gateway Gateway, log *slog.Logger) *Runner {
	if config.MaxPerSource == 0 {
		config.MaxPerSource = 20
	}

	return &Runner{
		config:     config,
		timeline:   timeline,
		feeds:      feeds,
		embeddings: embeddings,
		scorer:     scorer,
		gateway:    gateway,
		log:        log,
	}
}

// Run harvests all configured sources and returns whatever subset of
// items could be processed and stored. Timeline handles run
// concurrently (the harvester bounds them); feeds run sequentially.
func (r *Runner) Run(ctx context.Context) Result {
	start := time.Now()
	var result Result

	if r.timeline != nil && len(r.config.Handles) > 0 {
		r.log.Info("harvesting timelines", "handles", len(r.config.Handles))

		var (
			mu sync.Mutex
			wg sync.WaitGroup
		)
		for _, handle := range r.config.Handles {
			wg.Add(1)
			go func(handle string) {
				defer wg.Done()
				raw := r.timeline.FetchTimeline(ctx, handle, r.config.MaxPerSource)
				stored := r.process(ctx, raw)
				mu.Lock()
				defer mu.Unlock()
				result.Items = append(result.Items, stored...)
				result.Stats.TimelineItems += len(stored)
			}(handle)
		}
		wg.Wait()
	}

	if r.feeds != nil && len(r.config.FeedURLs) > 0 {
		r.log.Info("harvesting feeds", "feeds", len(r.config.FeedURLs))

		for _, feedURL := range r.config.FeedURLs {
			raw := r.feeds.FetchFeed(ctx, feedURL, r.config.MaxPerSource)
			stored := r.process(ctx, raw)
			result.Items = append(result.Items, stored...)
			result.Stats.FeedItems += len(stored)
		}
	}

	result.Stats.TotalStored = len(result.Items)
	result.Stats.Duration = time.Since(start)

	r.log.Info("run completed",
		"timeline_items", result.Stats.TimelineItems,
		"feed_items", result.Stats.FeedItems,
		"total_stored", result.Stats.TotalStored,
		"duration", result.Stats.Duration)

	return result
}

// process embeds, scores and persists raw items, returning the ones
// that made it into the store.
func (r *Runner) process(ctx context.Context, raw []models.ContentItem) []models.ContentItem {
	stored := make([]models.ContentItem, 0, len(raw))

	for _, item := range raw {
		item.Embedding = r.embeddings.Get(ctx, item.Title+" "+item.Content)
		item.RelevanceScore = r.scorer.Score(ctx, item)

		if !r.gateway.UpsertItem(ctx, item) {
			r.log.Warn("item skipped", "id", item.ID)
			continue
		}
		stored = append(stored, item)
	}

	return stored
}
