package alert

import (
	"context"
	"fmt"
	"net/http"
	"time"

	json "github.com/goccy/go-json"
)

// Slack sends notifications via Slack incoming webhook.
type Slack struct {
	client     *http.Client
	webhookURL string
}

// NewSlack creates a new Slack notifier.
func NewSlack(webhookURL string) *Slack {
	return &Slack{
		client:     &http.Client{Timeout: 10 * time.Second},
		webhookURL: webhookURL,
	}
}

func (s *Slack) Name() string { return "slack" }

func (s *Slack) Send(ctx context.Context, n *Notification) error {
	text := fmt.Sprintf("*スコア:* %d | *カテゴリ:* %s\n%s", n.Score, n.Category.Label(), n.Body)
	if n.URL != "" {
		text += fmt.Sprintf("\n<%s|詳細>", n.URL)
	}
	blocks := []map[string]any{
		{
			"type": "header",
			"text": map[string]any{"type": "plain_text", "text": "📈 " + n.Title},
		},
		{
			"type": "section",
			"text": map[string]any{"type": "mrkdwn", "text": text},
		},
	}

	if related := topRelated(n); len(related) > 0 {
		var elements []map[string]any
		for _, sig := range related {
			elements = append(elements, map[string]any{
				"type": "mrkdwn",
				"text": fmt.Sprintf("%s (%d)", sig.Keyword, sig.Score),
			})
		}
		blocks = append(blocks, map[string]any{"type": "context", "elements": elements})
	}

	body, err := json.Marshal(map[string]any{"blocks": blocks})
	if err != nil {
		return fmt.Errorf("marshal slack payload: %w", err)
	}
	return post(ctx, s.client, "slack webhook", s.webhookURL, body, nil)
}
