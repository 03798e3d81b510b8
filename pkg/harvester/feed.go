package harvester

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"github.com/sigfetch/sigfetch/internal/models"
)

// FeedHarvester pulls syndication feeds synchronously, one URL at a
// time, with no retries.
type FeedHarvester struct {
	parser *gofeed.Parser
	log    *slog.Logger
}

func NewFeedHarvester(log *slog.Logger) *FeedHarvester {
	return &FeedHarvester{
		parser: gofeed.NewParser(),
		log:    log,
	}
}

// FetchFeed returns up to maxItems normalized entries from one feed.
// Parse failures of the whole feed return an empty slice; a bad entry
// is skipped and the rest of the feed survives.
func (f *FeedHarvester) FetchFeed(ctx context.Context, feedURL string, maxItems int) []models.ContentItem {
	feed, err := f.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		f.log.Error("feed parse failed", "url", feedURL, "error", err)
		return nil
	}

	entries := feed.Items
	if len(entries) > maxItems {
		entries = entries[:maxItems]
	}

	items := make([]models.ContentItem, 0, len(entries))
	for _, entry := range entries {
		if entry == nil {
			continue
		}
		items = append(items, f.normalizeEntry(feed, entry, feedURL))
	}

	f.log.Info("feed fetched", "url", feedURL, "items", len(items))
	return items
}

func (f *FeedHarvester) normalizeEntry(feed *gofeed.Feed, entry *gofeed.Item, feedURL string) models.ContentItem {
	published := time.Now()
	if entry.PublishedParsed != nil {
		published = *entry.PublishedParsed
	} else if entry.UpdatedParsed != nil {
		published = *entry.UpdatedParsed
	}

	body := entry.Content
	if body == "" {
		body = entry.Description
	}
	body = stripMarkup(body)

	author := ""
	if entry.Author != nil && entry.Author.Name != "" {
		author = entry.Author.Name
	} else {
		author = feed.Title
	}

	sourceURL := entry.Link
	if sourceURL == "" {
		sourceURL = feedURL
	}

	title := entry.Title
	if title == "" {
		title = truncate(body, 100)
	}

	return models.NewContentItem(
		models.SourceFeed,
		sourceURL,
		title,
		body,
		author,
		published,
		models.ClassifyFeed(feedURL, entry.Title, body),
		map[string]any{
			"feed_url":   feedURL,
			"feed_title": feed.Title,
		},
	)
}

// stripMarkup drops any HTML tags from a feed body and collapses
// whitespace. Bodies that fail to parse fall back to the raw text.
func stripMarkup(body string) string {
	text := body
	if strings.Contains(body, "<") {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
		if err == nil {
			text = doc.Text()
		}
	}
	return strings.Join(strings.Fields(text), " ")
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
