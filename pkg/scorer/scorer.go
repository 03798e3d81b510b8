// Package scorer assigns each content item a relevance score in [0,1].
//
// The primary path infers the score from user feedback on similar
// items: a similarity-weighted average over the nearest previously
// rated neighbors. Distances are pgvector cosine distances over
// unit-norm embeddings; they range over [0,2]. The default 0.3 radius
// keeps every admitted weight (1 - distance) well inside (0,1]; wider
// radii admit negative weights, so the average is clamped to [0,1].
// When no rated neighbor is close enough, or any lookup fails, a
// keyword and domain heuristic covers the cold start.
package scorer

import (
	"context"
	"log/slog"
	"strings"

	"github.com/sigfetch/sigfetch/internal/models"
	"github.com/sigfetch/sigfetch/internal/types"
	"github.com/sigfetch/sigfetch/pkg/llm"
)

// Heuristic signal tables. Kept as data so the fallback formula is
// testable independently of any store.
var (
	qualityWords = []string{"breakthrough", "research", "analysis", "report", "study", "development"}

	noiseWords = []string{"promo", "discount", "webinar", "limited time", "buy now", "click here"}

	credibleDomains = []string{"techcrunch", "wired", "reuters", "bloomberg"}
)

type Config struct {
	NeighborRadius float64
	NeighborK      int
}

type Scorer struct {
	config    Config
	neighbors types.NeighborSource
	log       *slog.Logger
}

func New(config Config, neighbors types.NeighborSource, log *slog.Logger) *Scorer {
	if config.NeighborRadius == 0 {
		config.NeighborRadius = 0.3
	}
	if config.NeighborK == 0 {
		config.NeighborK = 5
	}

	return &Scorer{
		config:    config,
		neighbors: neighbors,
		log:       log,
	}
}

// Score always returns a value in [0,1] and never fails; every error
// degrades to the heuristic path.
func (s *Scorer) Score(ctx context.Context, item models.ContentItem) float64 {
	if s.neighbors != nil && len(item.Embedding) > 0 && !llm.IsZeroVector(item.Embedding) {
		nbrs, err := s.neighbors.NearestFeedback(ctx, item.Embedding, s.config.NeighborRadius, s.config.NeighborK)
		if err != nil {
			s.log.Warn("neighbor lookup failed, falling back to heuristic", "item", item.ID, "error", err)
		} else if score, ok := weightedFeedback(nbrs); ok {
			return score
		}
	}

	return Heuristic(item)
}

// weightedFeedback computes Σ(weight·label)/Σ(weight) with
// weight = 1 - distance and label 1 for liked, 0 for disliked.
// A configured radius above 1 admits neighbors with negative weights,
// which can push the average outside [0,1]; the result is clamped.
func weightedFeedback(nbrs []types.Neighbor) (float64, bool) {
	var totalWeight, totalScore float64
	for _, n := range nbrs {
		weight := 1.0 - n.Distance
		label := 0.0
		if n.Feedback > 0 {
			label = 1.0
		}
		totalWeight += weight
		totalScore += label * weight
	}

	if totalWeight <= 0 {
		return 0, false
	}

	score := totalScore / totalWeight
	if score < 0 {
		return 0, true
	}
	if score > 1 {
		return 1, true
	}
	return score, true
}

// Heuristic scores an item from keyword and domain signals alone:
// 0.5 base, +0.1 per quality word present, +0.2 for a credible source
// domain, -0.2 per noise word present, clamped to [0.1, 1.0].
func Heuristic(item models.ContentItem) float64 {
	content := strings.ToLower(item.Content)
	sourceURL := strings.ToLower(item.SourceURL)

	score := 0.5

	for _, word := range qualityWords {
		if strings.Contains(content, word) {
			score += 0.1
		}
	}

	for _, domain := range credibleDomains {
		if strings.Contains(sourceURL, domain) {
			score += 0.2
			break
		}
	}

	for _, word := range noiseWords {
		if strings.Contains(content, word) {
			score -= 0.2
		}
	}

	if score < 0.1 {
		return 0.1
	}
	if score > 1.0 {
		return 1.0
	}
	return score
}
