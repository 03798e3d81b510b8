package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"

	"github.com/sigfetch/sigfetch/internal/logger"
	"github.com/sigfetch/sigfetch/internal/models"
	"github.com/sigfetch/sigfetch/pkg/config"
	"github.com/sigfetch/sigfetch/pkg/harvester"
	"github.com/sigfetch/sigfetch/pkg/llm"
	"github.com/sigfetch/sigfetch/pkg/pipeline"
	"github.com/sigfetch/sigfetch/pkg/scorer"
	"github.com/sigfetch/sigfetch/pkg/store"
)

type flags struct {
	configPath string
	handles    string
	feeds      string
	maxItems   int
	windowHrs  int
	minScore   float64
	limit      int
}

func main() {
	f := parseFlags()

	if err := run(f); err != nil {
		log.Fatal(err)
	}
}

func parseFlags() flags {
	var f flags

	flag.StringVar(&f.configPath, "config", "", "Path to config file")
	flag.StringVar(&f.handles, "handles", "", "Comma-separated timeline handles (overrides config)")
	flag.StringVar(&f.feeds, "feeds", "", "Comma-separated feed URLs (overrides config)")
	flag.IntVar(&f.maxItems, "max", 0, "Max items per source (overrides config)")
	flag.IntVar(&f.windowHrs, "window", 24, "High-quality window in hours")
	flag.Float64Var(&f.minScore, "min-score", 0.7, "Minimum relevance score for the summary")
	flag.IntVar(&f.limit, "limit", 25, "Max high-quality items to print")
	flag.Parse()

	return f
}

func run(f flags) error {
	logger.Init()
	lg := logger.Get()

	cfg, err := config.LoadConfig(f.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if f.handles != "" {
		cfg.Harvester.Handles = splitList(f.handles)
	}
	if f.feeds != "" {
		cfg.Feeds.URLs = splitList(f.feeds)
	}
	if f.maxItems > 0 {
		cfg.Harvester.MaxItems = f.maxItems
		cfg.Feeds.MaxItems = f.maxItems
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		for _, e := range errs {
			color.Red("config: %v", e)
		}
		return fmt.Errorf("invalid configuration")
	}

	ctx := context.Background()

	gateway, err := store.New(ctx, store.Config{URL: cfg.Database.URL}, lg)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	defer gateway.Close()

	embedder, err := llm.NewEmbedderWithConfig(llm.EmbedderConfig{
		APIKey: cfg.Embeddings.APIKey,
		Model:  cfg.Embeddings.Model,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize embedder: %w", err)
	}

	cache := llm.NewCache(llm.CacheConfig{
		Dimension: cfg.Embeddings.Dimension,
		MaxChars:  cfg.Embeddings.MaxChars,
	}, embedder.Embed, gateway, lg)

	relevance := scorer.New(scorer.Config{
		NeighborRadius: cfg.Scoring.NeighborRadius,
		NeighborK:      cfg.Scoring.NeighborK,
	}, gateway, lg)

	timeline := harvester.NewTimelineHarvester(harvester.TimelineConfig{
		MaxConcurrent:     cfg.Harvester.MaxConcurrent,
		MaxScrollAttempts: cfg.Harvester.MaxScrollAttempts,
		NavigationTimeout: cfg.NavigationTimeout(),
		SelectorTimeout:   cfg.SelectorTimeout(),
		SettleDelay:       cfg.SettleDelay(),
		RateLimit:         cfg.Harvester.RateLimit,
		Headless:          cfg.Harvester.Headless,
	}, lg)
	defer timeline.Close()

	feeds := harvester.NewFeedHarvester(lg)

	bar := getProgressBar(len(cfg.Harvester.Handles)+len(cfg.Feeds.URLs), " Harvesting sources...")

	runner := pipeline.NewRunner(pipeline.Config{
		Handles:      cfg.Harvester.Handles,
		FeedURLs:     cfg.Feeds.URLs,
		MaxPerSource: cfg.Harvester.MaxItems,
	}, progressTimeline{timeline, bar}, progressFeeds{feeds, bar}, cache, relevance, gateway, lg)

	result := runner.Run(ctx)
	fmt.Println()

	color.Green("Run completed in %.1fs", result.Stats.Duration.Seconds())
	color.Green("  timeline items: %d", result.Stats.TimelineItems)
	color.Green("  feed items:     %d", result.Stats.FeedItems)
	color.Green("  total stored:   %d", result.Stats.TotalStored)

	items, err := gateway.HighQuality(ctx, time.Duration(f.windowHrs)*time.Hour, f.minScore, f.limit)
	if err != nil {
		return fmt.Errorf("failed to query high-quality items: %w", err)
	}

	color.Cyan("\nHigh-quality items (last %dh, score >= %.2f):", f.windowHrs, f.minScore)
	for _, item := range items {
		fmt.Printf("  %.2f  [%s]  %s (%s)\n",
			item.RelevanceScore, item.PrimaryCategory, item.Title, item.Author)
	}

	return nil
}

func getProgressBar(total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription(color.BlueString(description)),
		progressbar.OptionSetItsString("sources"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetRenderBlankState(true),
	)
}

// progressTimeline and progressFeeds tick the bar once per finished
// source.
type progressTimeline struct {
	*harvester.TimelineHarvester
	bar *progressbar.ProgressBar
}

func (p progressTimeline) FetchTimeline(ctx context.Context, handle string, maxItems int) []models.ContentItem {
	defer p.bar.Add(1)
	return p.TimelineHarvester.FetchTimeline(ctx, handle, maxItems)
}

type progressFeeds struct {
	*harvester.FeedHarvester
	bar *progressbar.ProgressBar
}

func (p progressFeeds) FetchFeed(ctx context.Context, feedURL string, maxItems int) []models.ContentItem {
	defer p.bar.Add(1)
	return p.FeedHarvester.FetchFeed(ctx, feedURL, maxItems)
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
