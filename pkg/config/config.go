package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Embeddings struct {
		APIKey    string `yaml:"api_key"`
		Model     string `yaml:"model"`
		Dimension int    `yaml:"dimension"`
		MaxChars  int    `yaml:"max_chars"`
	} `yaml:"embeddings"`

	Database struct {
		URL string `yaml:"url"`
	} `yaml:"database"`

	Harvester struct {
		Handles             []string `yaml:"handles"`
		MaxConcurrent       int      `yaml:"max_concurrent"`
		MaxItems            int      `yaml:"max_items"`
		MaxScrollAttempts   int      `yaml:"max_scroll_attempts"`
		NavigationTimeoutMS int      `yaml:"navigation_timeout_ms"`
		SelectorTimeoutMS   int      `yaml:"selector_timeout_ms"`
		SettleDelayMS       int      `yaml:"settle_delay_ms"`
		RateLimit           float64  `yaml:"rate_limit"`
		Headless            bool     `yaml:"headless"`
	} `yaml:"harvester"`

	Feeds struct {
		URLs     []string `yaml:"urls"`
		MaxItems int      `yaml:"max_items"`
	} `yaml:"feeds"`

	Scoring struct {
		NeighborRadius float64 `yaml:"neighbor_radius"`
		NeighborK      int     `yaml:"neighbor_k"`
	} `yaml:"scoring"`
}

func (c *Config) NavigationTimeout() time.Duration {
	return time.Duration(c.Harvester.NavigationTimeoutMS) * time.Millisecond
}

func (c *Config) SelectorTimeout() time.Duration {
	return time.Duration(c.Harvester.SelectorTimeoutMS) * time.Millisecond
}

func (c *Config) SettleDelay() time.Duration {
	return time.Duration(c.Harvester.SettleDelayMS) * time.Millisecond
}

func LoadConfig(path string) (*Config, error) {
	// If no path provided, try default locations
	if path == "" {
		locations := []string{
			"config.yaml",
			"config.yml",
			filepath.Join(os.Getenv("HOME"), ".config/sigfetch/config.yaml"),
			"/etc/sigfetch/config.yaml",
		}

		for _, loc := range locations {
			if _, err := os.Stat(loc); err == nil {
				path = loc
				break
			}
		}
	}

	if path == "" {
		return getDefaultConfig()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	mergeWithEnv(&config)
	applyDefaults(&config)

	return &config, nil
}

func getDefaultConfig() (*Config, error) {
	config := &Config{}
	mergeWithEnv(config)
	applyDefaults(config)
	return config, nil
}

func applyDefaults(config *Config) {
	if config.Embeddings.Model == "" {
		config.Embeddings.Model = "text-embedding-3-small"
	}
	if config.Embeddings.Dimension == 0 {
		config.Embeddings.Dimension = 1536
	}
	if config.Embeddings.MaxChars == 0 {
		config.Embeddings.MaxChars = 8000
	}

	if config.Harvester.MaxConcurrent == 0 {
		config.Harvester.MaxConcurrent = 3
	}
	if config.Harvester.MaxItems == 0 {
		config.Harvester.MaxItems = 20
	}
	if config.Harvester.MaxScrollAttempts == 0 {
		config.Harvester.MaxScrollAttempts = 8
	}
	if config.Harvester.NavigationTimeoutMS == 0 {
		config.Harvester.NavigationTimeoutMS = 15000
	}
	if config.Harvester.SelectorTimeoutMS == 0 {
		config.Harvester.SelectorTimeoutMS = 5000
	}
	if config.Harvester.SettleDelayMS == 0 {
		config.Harvester.SettleDelayMS = 2000
	}
	if config.Harvester.RateLimit == 0 {
		config.Harvester.RateLimit = 1.0
	}

	if config.Feeds.MaxItems == 0 {
		config.Feeds.MaxItems = 20
	}

	if config.Scoring.NeighborRadius == 0 {
		config.Scoring.NeighborRadius = 0.3
	}
	if config.Scoring.NeighborK == 0 {
		config.Scoring.NeighborK = 5
	}
}

func mergeWithEnv(config *Config) {
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		config.Embeddings.APIKey = key
	}
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		config.Database.URL = dbURL
	}
}
