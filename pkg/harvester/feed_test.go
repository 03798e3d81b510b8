package harvester

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigfetch/sigfetch/internal/logger"
	"github.com/sigfetch/sigfetch/internal/models"
)

func serveFeed(t *testing.T, body string) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, body)
	}))
	t.Cleanup(ts.Close)
	return ts
}

const rssEnvelope = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel>
<title>Example Wire</title>
<link>https://example.com</link>
%s
</channel></rss>`

func TestFetchFeedNormalizesEntries(t *testing.T) {
	ts := serveFeed(t, fmt.Sprintf(rssEnvelope, `
<item>
  <title>Model release</title>
  <link>https://example.com/posts/1</link>
  <author>ada@example.com (Ada)</author>
  <pubDate>Mon, 02 Jan 2023 15:04:05 GMT</pubDate>
  <description><![CDATA[<p>A new   <b>neural network</b> paper.</p>]]></description>
</item>`))

	h := NewFeedHarvester(logger.Discard())
	items := h.FetchFeed(context.Background(), ts.URL, 10)
	require.Len(t, items, 1)

	item := items[0]
	assert.Equal(t, models.SourceFeed, item.Source)
	assert.Equal(t, "https://example.com/posts/1", item.SourceURL)
	assert.Equal(t, "Model release", item.Title)
	assert.Equal(t, "A new neural network paper.", item.Content)
	assert.Equal(t, "Ada", item.Author)
	assert.Equal(t, time.Date(2023, 1, 2, 15, 4, 5, 0, time.UTC), item.Published.UTC())
	assert.Equal(t, ts.URL, item.SourceMetadata["feed_url"])
	assert.Equal(t, "Example Wire", item.SourceMetadata["feed_title"])
}

func TestFetchFeedAuthorFallsBackToFeedTitle(t *testing.T) {
	ts := serveFeed(t, fmt.Sprintf(rssEnvelope, `
<item>
  <title>Unsigned post</title>
  <link>https://example.com/posts/2</link>
  <description>plain body</description>
</item>`))

	h := NewFeedHarvester(logger.Discard())
	items := h.FetchFeed(context.Background(), ts.URL, 10)
	require.Len(t, items, 1)
	assert.Equal(t, "Example Wire", items[0].Author)
}

func TestFetchFeedDateFallsBackToNow(t *testing.T) {
	ts := serveFeed(t, fmt.Sprintf(rssEnvelope, `
<item>
  <title>Undated post</title>
  <link>https://example.com/posts/3</link>
  <description>plain body</description>
</item>`))

	before := time.Now()
	h := NewFeedHarvester(logger.Discard())
	items := h.FetchFeed(context.Background(), ts.URL, 10)
	require.Len(t, items, 1)
	assert.False(t, items[0].Published.Before(before))
	assert.False(t, items[0].Published.After(time.Now()))
}

func TestFetchFeedMissingLinkUsesFeedURL(t *testing.T) {
	ts := serveFeed(t, fmt.Sprintf(rssEnvelope, `
<item>
  <title>Linkless post</title>
  <description>plain body</description>
</item>`))

	h := NewFeedHarvester(logger.Discard())
	items := h.FetchFeed(context.Background(), ts.URL, 10)
	require.Len(t, items, 1)
	assert.Equal(t, ts.URL, items[0].SourceURL)
}

func TestFetchFeedCapsEntries(t *testing.T) {
	var entries string
	for i := 0; i < 5; i++ {
		entries += fmt.Sprintf(`
<item>
  <title>Post %d</title>
  <link>https://example.com/posts/%d</link>
  <description>body %d</description>
</item>`, i, i, i)
	}
	ts := serveFeed(t, fmt.Sprintf(rssEnvelope, entries))

	h := NewFeedHarvester(logger.Discard())
	items := h.FetchFeed(context.Background(), ts.URL, 2)
	require.Len(t, items, 2)
	assert.Equal(t, "Post 0", items[0].Title)
	assert.Equal(t, "Post 1", items[1].Title)
}

func TestFetchFeedClassifiesByURL(t *testing.T) {
	ts := serveFeed(t, fmt.Sprintf(rssEnvelope, `
<item>
  <title>Funding round closes</title>
  <link>https://example.com/posts/4</link>
  <description>plain body</description>
</item>`))

	h := NewFeedHarvester(logger.Discard())
	items := h.FetchFeed(context.Background(), ts.URL+"/techcrunch/rss", 10)
	require.Len(t, items, 1)
	assert.Equal(t, models.CategoryTechAI, items[0].PrimaryCategory)
}

func TestFetchFeedParseFailureReturnsEmpty(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	h := NewFeedHarvester(logger.Discard())
	items := h.FetchFeed(context.Background(), ts.URL, 10)
	assert.Empty(t, items)
}

func TestStripMarkup(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain text untouched", "already clean", "already clean"},
		{"tags removed", "<p>one <em>two</em></p>", "one two"},
		{"whitespace collapsed", "one\n\n  two\tthree", "one two three"},
		{"empty body", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, stripMarkup(tt.in))
		})
	}
}
