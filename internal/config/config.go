package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration.
type Config struct {
	Storage   StorageConfig   `yaml:"storage"`
	Schedule  ScheduleConfig  `yaml:"schedule"`
	Sources   SourcesConfig   `yaml:"sources"`
	Collector CollectorConfig `yaml:"collector"`
	Analyzer  AnalyzerConfig  `yaml:"analyzer"`
	Relation  RelationConfig  `yaml:"relation"`
	Alerts    AlertsConfig    `yaml:"alerts"`
	Server    ServerConfig    `yaml:"server"`
	Logging   LoggingConfig   `yaml:"logging"`
	Filter    FilterConfig    `yaml:"filter"`
}

// StorageConfig configures the SQLite database and the JSON data directory.
type StorageConfig struct {
	DataDir string `yaml:"data_dir" validate:"required"`
	// DBPath defaults to <data_dir>/trendradar.db.
	DBPath string `yaml:"db_path"`
}

// DatabasePath returns the effective SQLite path.
func (s StorageConfig) DatabasePath() string {
	if s.DBPath != "" {
		return s.DBPath
	}
	return filepath.Join(s.DataDir, "trendradar.db")
}

// ScheduleConfig configures the daemon loop.
type ScheduleConfig struct {
	Interval string `yaml:"interval"`
}

// ParseInterval returns the run interval as time.Duration.
func (s ScheduleConfig) ParseInterval() time.Duration {
	d, err := time.ParseDuration(s.Interval)
	if err != nil || d <= 0 {
		return time.Hour
	}
	return d
}

// SourcesConfig holds configuration for all source adapters.
type SourcesConfig struct {
	Mock       MockConfig       `yaml:"mock"`
	Twitter    TwitterConfig    `yaml:"twitter"`
	HackerNews HackerNewsConfig `yaml:"hackernews"`
	Reddit     RedditConfig     `yaml:"reddit"`
	News       NewsConfig       `yaml:"news"`
	Calendar   CalendarConfig   `yaml:"calendar"`
}

// MockConfig for the offline sample adapter.
type MockConfig struct {
	Enabled bool `yaml:"enabled"`
}

// TwitterConfig for the X/Twitter adapter.
type TwitterConfig struct {
	Enabled     bool   `yaml:"enabled"`
	APIKey      string `yaml:"api_key"`
	BearerToken string `yaml:"bearer_token"`
	Query       string `yaml:"query"`
}

// HackerNewsConfig for the Hacker News adapter.
type HackerNewsConfig struct {
	Enabled bool `yaml:"enabled"`
	Limit   int  `yaml:"limit" validate:"gte=0"`
}

// RedditConfig for the Reddit adapter.
type RedditConfig struct {
	Enabled    bool     `yaml:"enabled"`
	Subreddits []string `yaml:"subreddits" validate:"dive,required"`
	Limit      int      `yaml:"limit" validate:"gte=0,lte=100"`
}

// NewsConfig for the news adapter.
type NewsConfig struct {
	Enabled bool         `yaml:"enabled"`
	Sources []NewsSource `yaml:"sources" validate:"dive"`
}

// NewsSource is a single feed or scraped page.
type NewsSource struct {
	Name     string `yaml:"name" validate:"required"`
	URL      string `yaml:"url" validate:"required,url"`
	Kind     string `yaml:"kind" validate:"omitempty,oneof=rss html"`
	Selector string `yaml:"selector" validate:"required_if=Kind html"`
	Enabled  bool   `yaml:"enabled"`
}

// CalendarConfig for the calendar adapter.
type CalendarConfig struct {
	Enabled bool `yaml:"enabled"`
	Limit   int  `yaml:"limit" validate:"gte=0"`
}

// CollectorConfig configures the orchestrator.
type CollectorConfig struct {
	MaxAttempts int `yaml:"max_attempts" validate:"gte=0"`
}

// AnalyzerConfig is the tunable surface of scoring and classification.
type AnalyzerConfig struct {
	ScoreWeights    ScoreWeights `yaml:"score_weights"`
	RisingThreshold float64      `yaml:"rising_threshold" validate:"gte=0"`
	// RisingScore is the score from which a signal is alerted as rising.
	RisingScore int `yaml:"rising_score" validate:"gte=0,lte=100"`
}

// ScoreWeights are the relative contributions of the score components.
type ScoreWeights struct {
	Mention   float64 `yaml:"mention" validate:"gte=0"`
	Velocity  float64 `yaml:"velocity" validate:"gte=0"`
	Freshness float64 `yaml:"freshness" validate:"gte=0"`
}

// RelationConfig configures relevance limits.
type RelationConfig struct {
	RelatedLimit     int `yaml:"related_limit" validate:"gte=0"`
	CatalogThreshold int `yaml:"catalog_threshold" validate:"gte=0"`
	CatalogLimit     int `yaml:"catalog_limit" validate:"gte=0"`
}

// AlertsConfig configures alert destinations.
type AlertsConfig struct {
	Slack   SlackConfig   `yaml:"slack"`
	Discord DiscordConfig `yaml:"discord"`
	Webhook WebhookConfig `yaml:"webhook"`
}

// SlackConfig for Slack webhook alerts.
type SlackConfig struct {
	Enabled    bool   `yaml:"enabled"`
	WebhookURL string `yaml:"webhook_url" validate:"required_if=Enabled true,omitempty,url"`
}

// DiscordConfig for Discord webhook alerts.
type DiscordConfig struct {
	Enabled    bool   `yaml:"enabled"`
	WebhookURL string `yaml:"webhook_url" validate:"required_if=Enabled true,omitempty,url"`
}

// WebhookConfig for generic webhook alerts.
type WebhookConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url" validate:"required_if=Enabled true,omitempty,url"`
	Secret  string `yaml:"secret"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port int `yaml:"port" validate:"gte=0,lte=65535"`
}

// LoggingConfig configures the global logger.
type LoggingConfig struct {
	Level  string `yaml:"level" validate:"omitempty,oneof=trace debug info warn warning error disabled off"`
	Format string `yaml:"format" validate:"omitempty,oneof=json console"`
}

// FilterConfig adds categorization keywords per category name.
type FilterConfig struct {
	ExtraKeywords map[string][]string `yaml:"extra_keywords"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Storage:  StorageConfig{DataDir: "./data"},
		Schedule: ScheduleConfig{Interval: "1h"},
		Sources: SourcesConfig{
			Mock:       MockConfig{Enabled: true},
			Twitter:    TwitterConfig{Enabled: true},
			HackerNews: HackerNewsConfig{Enabled: false, Limit: 30},
			Reddit:     RedditConfig{Enabled: false, Limit: 25},
			News: NewsConfig{
				Enabled: true,
				Sources: []NewsSource{
					{Name: "Yahoo News", URL: "https://news.yahoo.co.jp/", Kind: "html", Selector: ".newsFeed_item", Enabled: true},
					{Name: "Hatena Bookmark", URL: "https://b.hatena.ne.jp/hotentry", Kind: "html", Selector: ".entrylist-contents", Enabled: true},
				},
			},
			Calendar: CalendarConfig{Enabled: true, Limit: 5},
		},
		Collector: CollectorConfig{MaxAttempts: 3},
		Analyzer: AnalyzerConfig{
			ScoreWeights:    ScoreWeights{Mention: 0.4, Velocity: 0.4, Freshness: 0.2},
			RisingThreshold: 2.0,
			RisingScore:     70,
		},
		Relation: RelationConfig{RelatedLimit: 5, CatalogThreshold: 30, CatalogLimit: 5},
		Server:   ServerConfig{Port: 8080},
		Logging:  LoggingConfig{Level: "info", Format: "console"},
	}
}

// Load reads configuration from a YAML file, applies env var overrides
// and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects negative weights, thresholds and limits and
// incomplete alert or news source settings.
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("validate config: %w", err)
		}
		problems := make([]error, 0, len(verrs))
		for _, fe := range verrs {
			problems = append(problems, fmt.Errorf("%s: failed %s %s (got %v)", fe.Namespace(), fe.Tag(), fe.Param(), fe.Value()))
		}
		return fmt.Errorf("invalid config: %w", errors.Join(problems...))
	}
	return nil
}

// applyEnvOverrides overrides config values with environment variables.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("TRENDRADAR_DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}
	if v := os.Getenv("TRENDRADAR_DB_PATH"); v != "" {
		cfg.Storage.DBPath = v
	}
	if v := os.Getenv("TWITTER_API_KEY"); v != "" {
		cfg.Sources.Twitter.APIKey = v
	}
	if v := os.Getenv("TWITTER_BEARER_TOKEN"); v != "" {
		cfg.Sources.Twitter.BearerToken = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("SLACK_WEBHOOK_URL"); v != "" {
		cfg.Alerts.Slack.WebhookURL = v
		cfg.Alerts.Slack.Enabled = true
	}
	if v := os.Getenv("DISCORD_WEBHOOK_URL"); v != "" {
		cfg.Alerts.Discord.WebhookURL = v
		cfg.Alerts.Discord.Enabled = true
	}
	if v := os.Getenv("TRENDRADAR_WEBHOOK_URL"); v != "" {
		cfg.Alerts.Webhook.URL = v
		cfg.Alerts.Webhook.Enabled = true
	}
	if v := os.Getenv("TRENDRADAR_WEBHOOK_SECRET"); v != "" {
		cfg.Alerts.Webhook.Secret = v
	}

	floats := []struct {
		env string
		dst *float64
	}{
		{"TRENDRADAR_RISING_THRESHOLD", &cfg.Analyzer.RisingThreshold},
		{"TRENDRADAR_WEIGHT_MENTION", &cfg.Analyzer.ScoreWeights.Mention},
		{"TRENDRADAR_WEIGHT_VELOCITY", &cfg.Analyzer.ScoreWeights.Velocity},
		{"TRENDRADAR_WEIGHT_FRESHNESS", &cfg.Analyzer.ScoreWeights.Freshness},
	}
	for _, f := range floats {
		v := os.Getenv(f.env)
		if v == "" {
			continue
		}
		n, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("parse %s: %w", f.env, err)
		}
		*f.dst = n
	}
	return nil
}
