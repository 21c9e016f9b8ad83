package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/elonfeng/trendradar/internal/config"
	"github.com/elonfeng/trendradar/internal/logging"
	"github.com/elonfeng/trendradar/internal/scheduler"
	"github.com/elonfeng/trendradar/internal/store"
	"github.com/elonfeng/trendradar/pkg/alert"
	"github.com/elonfeng/trendradar/pkg/collector"
	"github.com/elonfeng/trendradar/pkg/relation"
	"github.com/elonfeng/trendradar/pkg/score"
	"github.com/elonfeng/trendradar/pkg/signal"
	"github.com/elonfeng/trendradar/pkg/source"
	"github.com/elonfeng/trendradar/pkg/timeseries"
)

// app holds the wired components shared by all commands.
type app struct {
	cfg        *config.Config
	db         *store.SQLiteStore
	snapshots  *store.SnapshotRepo
	catalog    *store.CatalogRepo
	scorer     *score.Engine
	classifier *timeseries.Classifier
	relations  *relation.Engine
	pipeline   *scheduler.Pipeline
}

func loadConfig() (*config.Config, error) {
	path := cfgFile
	if path == "" {
		if _, err := os.Stat("config.yaml"); err == nil {
			path = "config.yaml"
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	level := cfg.Logging.Level
	if verbose {
		level = "debug"
	}
	logging.Init(logging.Config{Level: level, Format: cfg.Logging.Format})
	return cfg, nil
}

// openApp loads config, opens storage and wires the pipeline over the
// enabled adapters, optionally narrowed to the names in only.
func openApp(only []string) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if err := os.MkdirAll(cfg.Storage.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	db, err := store.New(cfg.Storage.DatabasePath())
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	adapters, err := selectAdapters(buildAdapters(cfg), only)
	if err != nil {
		db.Close()
		return nil, err
	}

	blobs := store.NewBlobStore(cfg.Storage.DataDir)
	a := &app{
		cfg:        cfg,
		db:         db,
		snapshots:  store.NewSnapshotRepo(blobs),
		catalog:    store.NewCatalogRepo(blobs),
		scorer:     score.NewEngine(scoreWeights(cfg)),
		classifier: timeseries.NewClassifier(cfg.Analyzer.RisingThreshold),
		relations: relation.NewEngine(relation.Options{
			RelatedLimit:     cfg.Relation.RelatedLimit,
			CatalogThreshold: cfg.Relation.CatalogThreshold,
			CatalogLimit:     cfg.Relation.CatalogLimit,
		}),
	}
	a.pipeline = scheduler.NewPipeline(scheduler.PipelineConfig{
		Adapters:    adapters,
		Store:       db,
		Snapshots:   a.snapshots,
		Collector:   collector.New(collector.Options{MaxAttempts: cfg.Collector.MaxAttempts}),
		Scorer:      a.scorer,
		Classifier:  a.classifier,
		Relations:   a.relations,
		Alerts:      buildAlertManager(cfg),
		RisingScore: cfg.Analyzer.RisingScore,
	})
	return a, nil
}

func (a *app) Close() error {
	return a.db.Close()
}

func scoreWeights(cfg *config.Config) score.Weights {
	w := cfg.Analyzer.ScoreWeights
	return score.Weights{Mention: w.Mention, Velocity: w.Velocity, Freshness: w.Freshness}
}

func buildCategorizer(cfg *config.Config) *source.Categorizer {
	extra := make(map[signal.Category][]string, len(cfg.Filter.ExtraKeywords))
	for name, kws := range cfg.Filter.ExtraKeywords {
		c := signal.ParseCategory(name)
		extra[c] = append(extra[c], kws...)
	}
	return source.NewCategorizer(extra)
}

func buildAdapters(cfg *config.Config) []source.Adapter {
	cat := buildCategorizer(cfg)
	sc := cfg.Sources
	var adapters []source.Adapter

	if sc.Mock.Enabled {
		adapters = append(adapters, source.NewMock())
	}
	if sc.Twitter.Enabled {
		adapters = append(adapters, source.NewTwitter(source.TwitterConfig{
			APIKey:      sc.Twitter.APIKey,
			BearerToken: sc.Twitter.BearerToken,
			Query:       sc.Twitter.Query,
		}).UseCategorizer(cat))
	}
	if sc.HackerNews.Enabled {
		adapters = append(adapters, source.NewHackerNews("", sc.HackerNews.Limit).UseCategorizer(cat))
	}
	if sc.Reddit.Enabled {
		adapters = append(adapters, source.NewReddit("", sc.Reddit.Subreddits, sc.Reddit.Limit).UseCategorizer(cat))
	}
	if sc.News.Enabled {
		sources := make([]source.NewsSource, len(sc.News.Sources))
		for i, s := range sc.News.Sources {
			sources[i] = source.NewsSource{Name: s.Name, URL: s.URL, Kind: s.Kind, Selector: s.Selector, Enabled: s.Enabled}
		}
		adapters = append(adapters, source.NewNews(sources).UseCategorizer(cat))
	}
	if sc.Calendar.Enabled {
		adapters = append(adapters, source.NewCalendar(nil, sc.Calendar.Limit))
	}
	return adapters
}

func selectAdapters(all []source.Adapter, only []string) ([]source.Adapter, error) {
	if len(only) == 0 {
		return all, nil
	}
	wanted := make(map[string]bool)
	for _, s := range only {
		wanted[strings.ToLower(strings.TrimSpace(s))] = true
	}
	var out []source.Adapter
	for _, a := range all {
		if wanted[a.Name()] || (a.Name() == "hackernews" && wanted["hn"]) {
			out = append(out, a)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no matching sources for: %s", strings.Join(only, ", "))
	}
	return out, nil
}

func buildAlertManager(cfg *config.Config) *alert.Manager {
	var notifiers []alert.Notifier

	if cfg.Alerts.Slack.Enabled && cfg.Alerts.Slack.WebhookURL != "" {
		notifiers = append(notifiers, alert.NewSlack(cfg.Alerts.Slack.WebhookURL))
	}
	if cfg.Alerts.Discord.Enabled && cfg.Alerts.Discord.WebhookURL != "" {
		notifiers = append(notifiers, alert.NewDiscord(cfg.Alerts.Discord.WebhookURL))
	}
	if cfg.Alerts.Webhook.Enabled && cfg.Alerts.Webhook.URL != "" {
		notifiers = append(notifiers, alert.NewWebhook(cfg.Alerts.Webhook.URL, cfg.Alerts.Webhook.Secret))
	}

	return alert.NewManager(notifiers)
}
