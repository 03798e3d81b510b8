// Package store is the persistence gateway: idempotent upsert of
// content items with their embeddings, the windowed high-quality
// query, the nearest-feedback lookup backing the scorer, and the
// durable tier of the embedding cache.
//
// Schema provisioning is external; see db/schema.sql for the expected
// tables.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/sigfetch/sigfetch/internal/models"
	"github.com/sigfetch/sigfetch/internal/types"
)

type Config struct {
	URL string
}

type Store struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

// New connects to the backing store. A connection failure here is
// fatal: no persistence-dependent run proceeds without a working pool.
func New(ctx context.Context, config Config, log *slog.Logger) (*Store, error) {
	pool, err := pgxpool.New(ctx, config.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database unreachable: %w", err)
	}

	return &Store{pool: pool, log: log}, nil
}

const upsertItem = `
	INSERT INTO content_items
		(id, source, source_url, title, content, author, published,
		 primary_category, secondary_categories, auto_tags, content_type,
		 word_count, reading_time_minutes, embedding, relevance_score,
		 complexity_score, sentiment, source_metadata, scraped_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	ON CONFLICT (id) DO UPDATE SET
		embedding = EXCLUDED.embedding,
		relevance_score = EXCLUDED.relevance_score,
		source_metadata = EXCLUDED.source_metadata,
		updated_at = NOW()`

// UpsertItem stores one item, last-write-wins on embedding, score and
// metadata. Externally recorded user_feedback is never touched. The
// returned flag reports success; failures are logged, not raised, so a
// run continues past a bad item.
func (s *Store) UpsertItem(ctx context.Context, item models.ContentItem) bool {
	_, err := s.pool.Exec(ctx, upsertItem,
		item.ID, item.Source, item.SourceURL, item.Title, item.Content,
		item.Author, item.Published,
		string(item.PrimaryCategory), categoryStrings(item.SecondaryCategories),
		item.AutoTags, item.ContentType,
		item.WordCount, item.ReadingTimeMinutes,
		pgvector.NewVector(item.Embedding), item.RelevanceScore,
		item.ComplexityScore, nullable(item.Sentiment), item.SourceMetadata,
		item.ScrapedAt,
	)
	if err != nil {
		s.log.Error("failed to store item", "id", item.ID, "error", err)
		return false
	}
	return true
}

// Rows inserted outside the pipeline may leave nullable columns NULL;
// coalesce the scanned ones so a single such row cannot fail the query.
const highQualityQuery = `
	SELECT id, source, source_url,
	       COALESCE(title, ''), COALESCE(content, ''), COALESCE(author, ''),
	       published,
	       COALESCE(primary_category, ''), COALESCE(content_type, ''),
	       COALESCE(word_count, 0), COALESCE(reading_time_minutes, 0),
	       relevance_score, scraped_at
	FROM content_items
	WHERE scraped_at > $1
	  AND relevance_score >= $2
	ORDER BY relevance_score DESC, published DESC
	LIMIT $3`

// HighQuality returns items scraped within the window whose score
// meets minScore, best first.
func (s *Store) HighQuality(ctx context.Context, window time.Duration, minScore float64, limit int) ([]models.ContentItem, error) {
	rows, err := s.pool.Query(ctx, highQualityQuery, time.Now().Add(-window), minScore, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query high-quality items: %w", err)
	}
	defer rows.Close()

	var items []models.ContentItem
	for rows.Next() {
		var item models.ContentItem
		var category string
		var published *time.Time // nullable for externally inserted rows
		if err := rows.Scan(
			&item.ID, &item.Source, &item.SourceURL, &item.Title,
			&item.Content, &item.Author, &published,
			&category, &item.ContentType, &item.WordCount,
			&item.ReadingTimeMinutes, &item.RelevanceScore, &item.ScrapedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		if published != nil {
			item.Published = *published
		}
		item.PrimaryCategory = models.Category(category)
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return items, nil
}

const nearestFeedbackQuery = `
	SELECT user_feedback, embedding <=> $1 AS distance
	FROM content_items
	WHERE user_feedback IS NOT NULL
	  AND embedding IS NOT NULL
	  AND embedding <=> $1 < $2
	ORDER BY distance
	LIMIT $3`

// NearestFeedback implements types.NeighborSource over the cosine
// distance index.
func (s *Store) NearestFeedback(ctx context.Context, embedding []float32, radius float64, k int) ([]types.Neighbor, error) {
	rows, err := s.pool.Query(ctx, nearestFeedbackQuery, pgvector.NewVector(embedding), radius, k)
	if err != nil {
		return nil, fmt.Errorf("failed to query neighbors: %w", err)
	}
	defer rows.Close()

	var neighbors []types.Neighbor
	for rows.Next() {
		var n types.Neighbor
		if err := rows.Scan(&n.Feedback, &n.Distance); err != nil {
			return nil, fmt.Errorf("failed to scan neighbor: %w", err)
		}
		neighbors = append(neighbors, n)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return neighbors, nil
}

// CachedEmbedding implements the durable tier of the embedding cache.
// Returns (nil, nil) on a miss.
func (s *Store) CachedEmbedding(ctx context.Context, textHash string) ([]float32, error) {
	var vec pgvector.Vector
	err := s.pool.QueryRow(ctx,
		`SELECT embedding FROM embedding_cache WHERE text_hash = $1`,
		textHash,
	).Scan(&vec)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read embedding cache: %w", err)
	}
	return vec.Slice(), nil
}

// SaveEmbedding appends one cache entry. Entries are immutable, so a
// concurrent duplicate write is a no-op rather than an update.
func (s *Store) SaveEmbedding(ctx context.Context, textHash string, embedding []float32) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO embedding_cache (text_hash, embedding)
		 VALUES ($1, $2)
		 ON CONFLICT (text_hash) DO NOTHING`,
		textHash, pgvector.NewVector(embedding),
	)
	if err != nil {
		return fmt.Errorf("failed to write embedding cache: %w", err)
	}
	return nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func categoryStrings(categories []models.Category) []string {
	out := make([]string, len(categories))
	for i, c := range categories {
		out[i] = string(c)
	}
	return out
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
