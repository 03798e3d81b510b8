package config

import (
	"fmt"
	"net/url"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	if c.Embeddings.Dimension < 1 {
		errors = append(errors, ValidationError{
			Field:   "embeddings.dimension",
			Message: "dimension must be positive",
		})
	}

	if c.Embeddings.MaxChars < 1 {
		errors = append(errors, ValidationError{
			Field:   "embeddings.max_chars",
			Message: "max_chars must be positive",
		})
	}

	if c.Database.URL != "" {
		if _, err := url.Parse(c.Database.URL); err != nil {
			errors = append(errors, ValidationError{
				Field:   "database.url",
				Message: "invalid database URL",
			})
		}
	}

	if c.Harvester.MaxConcurrent < 1 {
		errors = append(errors, ValidationError{
			Field:   "harvester.max_concurrent",
			Message: "max_concurrent must be positive",
		})
	}

	if c.Harvester.MaxScrollAttempts < 1 {
		errors = append(errors, ValidationError{
			Field:   "harvester.max_scroll_attempts",
			Message: "max_scroll_attempts must be positive",
		})
	}

	if c.Harvester.RateLimit <= 0 {
		errors = append(errors, ValidationError{
			Field:   "harvester.rate_limit",
			Message: "rate_limit must be positive",
		})
	}

	for _, feedURL := range c.Feeds.URLs {
		if _, err := url.ParseRequestURI(feedURL); err != nil {
			errors = append(errors, ValidationError{
				Field:   "feeds.urls",
				Message: fmt.Sprintf("invalid feed URL: %s", feedURL),
			})
		}
	}

	if c.Scoring.NeighborRadius <= 0 || c.Scoring.NeighborRadius > 2 {
		errors = append(errors, ValidationError{
			Field:   "scoring.neighbor_radius",
			Message: "neighbor_radius must be in (0, 2]",
		})
	}

	if c.Scoring.NeighborK < 1 {
		errors = append(errors, ValidationError{
			Field:   "scoring.neighbor_k",
			Message: "neighbor_k must be positive",
		})
	}

	return errors
}
