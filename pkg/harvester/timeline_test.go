package harvester

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigfetch/sigfetch/internal/logger"
	"github.com/sigfetch/sigfetch/internal/models"
	"github.com/sigfetch/sigfetch/internal/types"
)

type fakeTextNode struct {
	text string
}

func (n *fakeTextNode) Text() (string, error)                 { return n.text, nil }
func (n *fakeTextNode) Attribute(string) (string, error)      { return "", nil }
func (n *fakeTextNode) QueryAll(string) ([]types.Node, error) { return nil, nil }

type fakeMetricNode struct {
	ariaLabel string
}

func (n *fakeMetricNode) Text() (string, error)                 { return "", nil }
func (n *fakeMetricNode) Attribute(name string) (string, error) { return n.ariaLabel, nil }
func (n *fakeMetricNode) QueryAll(string) ([]types.Node, error) { return nil, nil }

// fakeItemNode is one rendered timeline post.
type fakeItemNode struct {
	text    string
	noText  bool
	metrics []types.Node
}

func (n *fakeItemNode) Text() (string, error)            { return n.text, nil }
func (n *fakeItemNode) Attribute(string) (string, error) { return "", nil }

func (n *fakeItemNode) QueryAll(selector string) ([]types.Node, error) {
	switch selector {
	case textSelector:
		if n.noText {
			return nil, nil
		}
		return []types.Node{&fakeTextNode{text: n.text}}, nil
	case metricSelector:
		return n.metrics, nil
	}
	return nil, nil
}

type fakePage struct {
	failNavigation bool
	matchSelector  string // selector that WaitForSelector accepts; empty means none
	batches        [][]types.Node

	queries int
	scrolls int
	closed  bool
}

func (p *fakePage) Navigate(url string, timeout time.Duration) error {
	if p.failNavigation {
		return errors.New("navigation timeout")
	}
	return nil
}

func (p *fakePage) WaitForSelector(selector string, timeout time.Duration) error {
	if selector == p.matchSelector {
		return nil
	}
	return errors.New("selector timeout")
}

func (p *fakePage) QueryAll(selector string) ([]types.Node, error) {
	idx := p.queries
	if idx >= len(p.batches) {
		idx = len(p.batches) - 1
	}
	p.queries++
	if idx < 0 {
		return nil, nil
	}
	return p.batches[idx], nil
}

func (p *fakePage) ScrollToBottom() error { p.scrolls++; return nil }
func (p *fakePage) Close() error          { p.closed = true; return nil }

type fakeSession struct {
	page   *fakePage
	err    error
	closed bool
}

func (s *fakeSession) NewPage() (types.Page, error) { return s.page, s.err }
func (s *fakeSession) Close() error                 { s.closed = true; return nil }

func newTestHarvester(t *testing.T, page *fakePage) (*TimelineHarvester, *fakeSession) {
	t.Helper()

	session := &fakeSession{page: page}
	h := NewTimelineHarvester(TimelineConfig{
		SettleDelay: time.Millisecond,
		RateLimit:   10000,
	}, logger.Discard())
	h.newSession = func() (types.Session, error) { return session, nil }
	return h, session
}

func TestFetchTimelineNoSelectorMatches(t *testing.T) {
	page := &fakePage{matchSelector: ""}
	h, _ := newTestHarvester(t, page)
	defer h.Close()

	items := h.FetchTimeline(context.Background(), "someone", 10)

	assert.Empty(t, items)
	assert.True(t, page.closed)
}

func TestFetchTimelineNavigationNeverSucceeds(t *testing.T) {
	page := &fakePage{failNavigation: true}
	h, _ := newTestHarvester(t, page)
	defer h.Close()

	assert.Empty(t, h.FetchTimeline(context.Background(), "someone", 10))
}

func TestFetchTimelineDeduplicatesIdenticalContent(t *testing.T) {
	nodes := []types.Node{
		&fakeItemNode{text: "exactly the same post"},
		&fakeItemNode{text: "exactly  the same\npost"}, // normalizes identically
		&fakeItemNode{text: "a different post entirely"},
	}
	page := &fakePage{
		matchSelector: itemSelectors[0],
		batches:       [][]types.Node{nodes},
	}
	h, _ := newTestHarvester(t, page)
	defer h.Close()

	items := h.FetchTimeline(context.Background(), "someone", 10)

	require.Len(t, items, 2)
	assert.Equal(t, "exactly the same post", items[0].Content)
	assert.Equal(t, "a different post entirely", items[1].Content)
}

func TestFetchTimelineStopsAtMaxItems(t *testing.T) {
	nodes := []types.Node{
		&fakeItemNode{text: "first post of the evening"},
		&fakeItemNode{text: "second post of the evening"},
		&fakeItemNode{text: "third post of the evening"},
	}
	page := &fakePage{
		matchSelector: itemSelectors[0],
		batches:       [][]types.Node{nodes},
	}
	h, _ := newTestHarvester(t, page)
	defer h.Close()

	items := h.FetchTimeline(context.Background(), "someone", 2)

	assert.Len(t, items, 2)
	assert.Zero(t, page.scrolls, "should not scroll once maxItems is reached")
}

func TestFetchTimelineScrollBudget(t *testing.T) {
	// The page keeps rendering the same single post, so the harvester
	// scrolls until its attempt budget runs out.
	page := &fakePage{
		matchSelector: itemSelectors[0],
		batches:       [][]types.Node{{&fakeItemNode{text: "the only post there is"}}},
	}
	h, _ := newTestHarvester(t, page)
	defer h.Close()

	items := h.FetchTimeline(context.Background(), "someone", 10)

	assert.Len(t, items, 1)
	assert.Equal(t, 8, page.scrolls)
}

func TestFetchTimelineSkipsUnusableNodes(t *testing.T) {
	nodes := []types.Node{
		&fakeItemNode{text: "irrelevant", noText: true},
		&fakeItemNode{text: "hi"}, // below minimum length
		&fakeItemNode{text: "a post long enough to keep"},
	}
	page := &fakePage{
		matchSelector: itemSelectors[0],
		batches:       [][]types.Node{nodes},
	}
	h, _ := newTestHarvester(t, page)
	defer h.Close()

	items := h.FetchTimeline(context.Background(), "someone", 10)

	require.Len(t, items, 1)
	assert.Equal(t, "a post long enough to keep", items[0].Content)
}

func TestFetchTimelineExtractsEngagement(t *testing.T) {
	node := &fakeItemNode{
		text: "a post with some traction",
		metrics: []types.Node{
			&fakeMetricNode{ariaLabel: "42 Likes. Like"},
			&fakeMetricNode{ariaLabel: "7 reposts. Retweet"},
			&fakeMetricNode{ariaLabel: "3 Replies. Reply"},
			&fakeMetricNode{ariaLabel: "no numbers here"},
		},
	}
	page := &fakePage{
		matchSelector: itemSelectors[0],
		batches:       [][]types.Node{{node}},
	}
	h, _ := newTestHarvester(t, page)
	defer h.Close()

	items := h.FetchTimeline(context.Background(), "someone", 1)

	require.Len(t, items, 1)
	assert.Equal(t, 42, items[0].SourceMetadata["likes"])
	assert.Equal(t, 7, items[0].SourceMetadata["retweets"])
	assert.Equal(t, 3, items[0].SourceMetadata["replies"])
}

func TestFetchTimelineItemFields(t *testing.T) {
	page := &fakePage{
		matchSelector: itemSelectors[0],
		batches:       [][]types.Node{{&fakeItemNode{text: "the new llm is out"}}},
	}
	h, _ := newTestHarvester(t, page)
	defer h.Close()

	items := h.FetchTimeline(context.Background(), "visionary", 1)

	require.Len(t, items, 1)
	item := items[0]
	assert.Equal(t, models.SourceTimeline, item.Source)
	assert.Equal(t, "https://twitter.com/visionary", item.SourceURL)
	assert.Equal(t, "Post by @visionary", item.Title)
	assert.Equal(t, "visionary", item.Author)
	assert.Equal(t, models.CategoryTechAI, item.PrimaryCategory)
}

func TestCloseReleasesSession(t *testing.T) {
	page := &fakePage{matchSelector: itemSelectors[0], batches: [][]types.Node{{}}}
	h, session := newTestHarvester(t, page)

	h.FetchTimeline(context.Background(), "someone", 1)
	require.NoError(t, h.Close())

	assert.True(t, session.closed)
}

func TestCloseWithoutFetchIsSafe(t *testing.T) {
	h := NewTimelineHarvester(TimelineConfig{}, logger.Discard())
	h.newSession = func() (types.Session, error) { return nil, errors.New("should not be called") }

	assert.NoError(t, h.Close())
}

func TestFetchTimelineAfterCloseReturnsEmpty(t *testing.T) {
	h := NewTimelineHarvester(TimelineConfig{SettleDelay: time.Millisecond, RateLimit: 10000}, logger.Discard())
	h.newSession = func() (types.Session, error) { return nil, errors.New("should not be called") }

	require.NoError(t, h.Close())
	assert.Empty(t, h.FetchTimeline(context.Background(), "someone", 5))
}

func TestFetchTimelineSessionFailure(t *testing.T) {
	h := NewTimelineHarvester(TimelineConfig{SettleDelay: time.Millisecond, RateLimit: 10000}, logger.Discard())
	h.newSession = func() (types.Session, error) { return nil, errors.New("chromium missing") }
	defer h.Close()

	assert.Empty(t, h.FetchTimeline(context.Background(), "someone", 5))
}

func TestContentHashNormalizesWhitespace(t *testing.T) {
	assert.Equal(t, contentHash("a  b\nc"), contentHash("a b c"))
	assert.NotEqual(t, contentHash("a b c"), contentHash("a b d"))
}
