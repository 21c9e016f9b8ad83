package alert

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	json "github.com/goccy/go-json"
)

// Discord sends notifications via Discord webhook.
type Discord struct {
	client     *http.Client
	webhookURL string
}

// NewDiscord creates a new Discord notifier.
func NewDiscord(webhookURL string) *Discord {
	return &Discord{
		client:     &http.Client{Timeout: 10 * time.Second},
		webhookURL: webhookURL,
	}
}

func (d *Discord) Name() string { return "discord" }

func (d *Discord) Send(ctx context.Context, n *Notification) error {
	var lines []string
	for _, sig := range topRelated(n) {
		lines = append(lines, fmt.Sprintf("• %s (%d)", sig.Keyword, sig.Score))
	}

	at := n.At
	if at.IsZero() {
		at = time.Now()
	}
	embed := map[string]any{
		"title":       "📈 " + n.Title,
		"description": fmt.Sprintf("**スコア:** %d | **カテゴリ:** %s\n\n%s\n\n%s", n.Score, n.Category.Label(), n.Body, strings.Join(lines, "\n")),
		"color":       0xFF6600,
		"timestamp":   at.UTC().Format(time.RFC3339),
	}
	if n.URL != "" {
		embed["url"] = n.URL
	}

	body, err := json.Marshal(map[string]any{"embeds": []map[string]any{embed}})
	if err != nil {
		return fmt.Errorf("marshal discord payload: %w", err)
	}
	return post(ctx, d.client, "discord webhook", d.webhookURL, body, nil)
}
