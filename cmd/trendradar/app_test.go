package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elonfeng/trendradar/internal/config"
	"github.com/elonfeng/trendradar/pkg/signal"
)

func adapterNames(t *testing.T, cfg *config.Config, only []string) []string {
	t.Helper()
	adapters, err := selectAdapters(buildAdapters(cfg), only)
	require.NoError(t, err)
	names := make([]string, len(adapters))
	for i, a := range adapters {
		names[i] = a.Name()
	}
	return names
}

func TestBuildAdaptersFromDefaults(t *testing.T) {
	assert.Equal(t, []string{"mock", "twitter", "news", "calendar"}, adapterNames(t, config.Default(), nil))
}

func TestSelectAdapters(t *testing.T) {
	cfg := config.Default()
	cfg.Sources.HackerNews.Enabled = true
	cfg.Sources.Reddit.Enabled = true

	assert.Equal(t, []string{"hackernews", "calendar"}, adapterNames(t, cfg, []string{"HN", " calendar "}))
	assert.Equal(t, []string{"mock", "twitter", "hackernews", "reddit", "news", "calendar"}, adapterNames(t, cfg, nil))

	_, err := selectAdapters(buildAdapters(cfg), []string{"youtube"})
	assert.Error(t, err)
}

func TestBuildCategorizerUsesExtraKeywords(t *testing.T) {
	cfg := config.Default()
	cfg.Filter.ExtraKeywords = map[string][]string{"sports": {"カーリング"}}
	assert.Equal(t, signal.CategorySports, buildCategorizer(cfg).Categorize("カーリング選手権"))
}

func TestBuildAlertManager(t *testing.T) {
	cfg := config.Default()
	assert.False(t, buildAlertManager(cfg).HasNotifiers())

	cfg.Alerts.Webhook = config.WebhookConfig{Enabled: true, URL: "https://example.com/hook"}
	assert.True(t, buildAlertManager(cfg).HasNotifiers())
}

func TestScoreWeights(t *testing.T) {
	cfg := config.Default()
	cfg.Analyzer.ScoreWeights = config.ScoreWeights{Mention: 1}
	assert.Equal(t, 1.0, scoreWeights(cfg).Mention)
}
