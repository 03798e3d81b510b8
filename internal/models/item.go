package models

import (
	"crypto/md5"
	"fmt"
	"strings"
	"time"
)

// Source kinds produced by the harvesters.
const (
	SourceTimeline = "timeline"
	SourceFeed     = "rss"
)

// Content type buckets derived from word count.
const (
	ContentShort  = "short"
	ContentMedium = "medium"
	ContentLong   = "long"
)

// ContentItem is the canonical record for one harvested piece of
// content. Derived fields (ID, WordCount, ReadingTimeMinutes,
// ContentType, ScrapedAt) are populated by NewContentItem; Embedding
// and RelevanceScore are filled in by the pipeline before persistence.
type ContentItem struct {
	ID        string
	Source    string
	SourceURL string
	Title     string
	Content   string
	Author    string
	Published time.Time

	PrimaryCategory     Category
	SecondaryCategories []Category
	AutoTags            []string

	ContentType        string
	WordCount          int
	ReadingTimeMinutes int

	Embedding       []float32
	RelevanceScore  float64
	ComplexityScore float64
	Sentiment       string

	SourceMetadata map[string]any
	ScrapedAt      time.Time
}

// NewContentItem builds a ContentItem with all derived fields
// populated. It is a pure function of its inputs and the clock.
func NewContentItem(source, sourceURL, title, content, author string, published time.Time, category Category, metadata map[string]any) ContentItem {
	if metadata == nil {
		metadata = map[string]any{}
	}

	wc := len(strings.Fields(content))
	rt := wc / 200
	if rt < 1 {
		rt = 1
	}

	return ContentItem{
		ID:                 itemID(source, author, content),
		Source:             source,
		SourceURL:          sourceURL,
		Title:              title,
		Content:            content,
		Author:             author,
		Published:          published,
		PrimaryCategory:    category,
		ContentType:        contentType(wc),
		WordCount:          wc,
		ReadingTimeMinutes: rt,
		RelevanceScore:     0.5,
		ComplexityScore:    0.5,
		SourceMetadata:     metadata,
		ScrapedAt:          time.Now(),
	}
}

// itemID derives a stable identifier from the (source, author,
// content) triple. Changing any one of the three changes the ID.
func itemID(source, author, content string) string {
	sum := md5.Sum([]byte(source + author + content))
	return fmt.Sprintf("%s_%s_%x", source, author, sum[:4])
}

func contentType(wordCount int) string {
	switch {
	case wordCount < 100:
		return ContentShort
	case wordCount < 1500:
		return ContentMedium
	default:
		return ContentLong
	}
}
