// Package harvester extracts raw items from the two supported source
// kinds: a browser-driven social timeline and syndication feeds. Both
// harvesters are best-effort — they log failures and return whatever
// they obtained, never an error.
package harvester

import (
	"context"
	"crypto/md5"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/sigfetch/sigfetch/internal/models"
	"github.com/sigfetch/sigfetch/internal/types"
)

// Candidate lists tried in priority order. The first URL that loads
// and the first selector that matches win.
var (
	timelineURLs = []string{
		"https://x.com/%s",
		"https://twitter.com/%s",
	}

	itemSelectors = []string{
		`[data-testid="tweet"]`,
		`article[data-testid="tweet"]`,
		`[role="article"]`,
	}
)

const (
	textSelector   = `[data-testid="tweetText"]`
	metricSelector = `[data-testid*="like"], [data-testid*="retweet"], [data-testid*="reply"]`
)

var digits = regexp.MustCompile(`\d+`)

type TimelineConfig struct {
	MaxConcurrent     int
	MaxScrollAttempts int
	NavigationTimeout time.Duration
	SelectorTimeout   time.Duration
	SettleDelay       time.Duration
	RateLimit         float64 // handle fetches per second
	Headless          bool
}

func (c *TimelineConfig) applyDefaults() {
	if c.MaxConcurrent == 0 {
		c.MaxConcurrent = 3
	}
	if c.MaxScrollAttempts == 0 {
		c.MaxScrollAttempts = 8
	}
	if c.NavigationTimeout == 0 {
		c.NavigationTimeout = 15 * time.Second
	}
	if c.SelectorTimeout == 0 {
		c.SelectorTimeout = 5 * time.Second
	}
	if c.SettleDelay == 0 {
		c.SettleDelay = 2 * time.Second
	}
	if c.RateLimit == 0 {
		c.RateLimit = 1.0
	}
}

// TimelineHarvester scrapes social timeline pages through one lazily
// created browser session. Concurrent FetchTimeline calls are capped
// by a semaphore and share the session, each on its own page. The
// caller must Close the harvester to release browser resources.
type TimelineHarvester struct {
	config     TimelineConfig
	log        *slog.Logger
	limiter    *rate.Limiter
	sem        chan struct{}
	newSession func() (types.Session, error)

	sessionOnce sync.Once
	session     types.Session
	sessionErr  error
}

func NewTimelineHarvester(config TimelineConfig, log *slog.Logger) *TimelineHarvester {
	config.applyDefaults()

	h := &TimelineHarvester{
		config:  config,
		log:     log,
		limiter: rate.NewLimiter(rate.Limit(config.RateLimit), 1),
		sem:     make(chan struct{}, config.MaxConcurrent),
	}
	h.newSession = func() (types.Session, error) {
		return NewSession(SessionConfig{Headless: config.Headless})
	}
	return h
}

// FetchTimeline returns up to maxItems posts from one handle. It never
// returns an error: navigation, selector, and extraction failures all
// degrade to a shorter (possibly empty) result.
func (h *TimelineHarvester) FetchTimeline(ctx context.Context, handle string, maxItems int) []models.ContentItem {
	h.sem <- struct{}{}
	defer func() { <-h.sem }()

	if err := h.limiter.Wait(ctx); err != nil {
		return nil
	}

	session, err := h.ensureSession()
	if err != nil {
		h.log.Error("browser session unavailable", "handle", handle, "error", err)
		return nil
	}

	page, err := session.NewPage()
	if err != nil {
		h.log.Error("failed to open page", "handle", handle, "error", err)
		return nil
	}
	defer page.Close()

	if !h.loadTimeline(page, handle) {
		return nil
	}

	selector, ok := h.probeSelectors(page)
	if !ok {
		h.log.Warn("no item selector matched", "handle", handle)
		return nil
	}

	items := h.paginate(ctx, page, selector, handle, maxItems)
	h.log.Info("timeline fetched", "handle", handle, "items", len(items))
	return items
}

// ensureSession lazily creates the shared browser session. A failed
// attempt is not retried within this harvester's lifetime. After Close
// has consumed the once without a session, fetches report an error
// instead of dereferencing a nil session.
func (h *TimelineHarvester) ensureSession() (types.Session, error) {
	h.sessionOnce.Do(func() {
		h.session, h.sessionErr = h.newSession()
	})
	if h.session == nil && h.sessionErr == nil {
		return nil, errors.New("harvester is closed")
	}
	return h.session, h.sessionErr
}

// Close releases the browser session if one was created. Must not be
// called while fetches are in flight.
func (h *TimelineHarvester) Close() error {
	h.sessionOnce.Do(func() {})
	if h.session != nil {
		return h.session.Close()
	}
	return nil
}

func (h *TimelineHarvester) loadTimeline(page types.Page, handle string) bool {
	for _, pattern := range timelineURLs {
		url := fmt.Sprintf(pattern, handle)
		if err := page.Navigate(url, h.config.NavigationTimeout); err != nil {
			h.log.Debug("navigation failed", "url", url, "error", err)
			continue
		}
		return true
	}
	h.log.Warn("could not load any timeline URL", "handle", handle)
	return false
}

func (h *TimelineHarvester) probeSelectors(page types.Page) (string, bool) {
	for _, selector := range itemSelectors {
		if err := page.WaitForSelector(selector, h.config.SelectorTimeout); err == nil {
			return selector, true
		}
	}
	return "", false
}

// paginate reads rendered items, scrolls, and repeats until maxItems
// are collected or the scroll budget is spent. Each node yields an
// explicit step result so skips are observable instead of silent.
func (h *TimelineHarvester) paginate(ctx context.Context, page types.Page, selector, handle string, maxItems int) []models.ContentItem {
	var items []models.ContentItem
	seen := make(map[string]struct{})

	for attempt := 0; len(items) < maxItems && attempt < h.config.MaxScrollAttempts; attempt++ {
		nodes, err := page.QueryAll(selector)
		if err != nil {
			h.log.Warn("node query failed", "handle", handle, "error", err)
			break
		}

		for _, node := range nodes {
			if len(items) >= maxItems {
				break
			}
			item, skip := h.extractNode(node, handle, seen)
			if skip != "" {
				h.log.Debug("node skipped", "handle", handle, "reason", skip)
				continue
			}
			items = append(items, item)
		}

		if len(items) >= maxItems {
			break
		}
		if err := page.ScrollToBottom(); err != nil {
			h.log.Debug("scroll failed", "handle", handle, "error", err)
			break
		}
		select {
		case <-ctx.Done():
			return items
		case <-time.After(h.config.SettleDelay):
		}
	}

	return items
}

// extractNode converts one rendered node into a ContentItem. A
// non-empty skip reason means the node contributed nothing; extraction
// failures never abort the surrounding loop.
func (h *TimelineHarvester) extractNode(node types.Node, handle string, seen map[string]struct{}) (models.ContentItem, string) {
	textNodes, err := node.QueryAll(textSelector)
	if err != nil || len(textNodes) == 0 {
		return models.ContentItem{}, "no text element"
	}

	text, err := textNodes[0].Text()
	if err != nil {
		return models.ContentItem{}, "text read failed"
	}
	text = strings.TrimSpace(text)
	if len(text) < 5 {
		return models.ContentItem{}, "text too short"
	}

	hash := contentHash(text)
	if _, dup := seen[hash]; dup {
		return models.ContentItem{}, "duplicate content"
	}
	seen[hash] = struct{}{}

	item := models.NewContentItem(
		models.SourceTimeline,
		fmt.Sprintf("https://twitter.com/%s", handle),
		fmt.Sprintf("Post by @%s", handle),
		text,
		handle,
		time.Now(),
		models.ClassifyTimeline(text, handle),
		h.engagement(node),
	)
	return item, ""
}

// engagement reads like/retweet/reply counters from the accessibility
// labels of the node's action buttons. Missing or unreadable counters
// are simply absent from the result.
func (h *TimelineHarvester) engagement(node types.Node) map[string]any {
	metadata := map[string]any{}

	metrics, err := node.QueryAll(metricSelector)
	if err != nil {
		return metadata
	}

	for _, metric := range metrics {
		label, err := metric.Attribute("aria-label")
		if err != nil || label == "" {
			continue
		}
		match := digits.FindString(label)
		if match == "" {
			continue
		}
		count, err := strconv.Atoi(match)
		if err != nil {
			continue
		}

		lower := strings.ToLower(label)
		switch {
		case strings.Contains(lower, "like"):
			metadata["likes"] = count
		case strings.Contains(lower, "retweet"):
			metadata["retweets"] = count
		case strings.Contains(lower, "repl"):
			metadata["replies"] = count
		}
	}

	return metadata
}

// contentHash keys per-run dedup on whitespace-normalized text.
func contentHash(text string) string {
	normalized := strings.Join(strings.Fields(text), " ")
	sum := md5.Sum([]byte(normalized))
	return fmt.Sprintf("%x", sum[:4])
}
