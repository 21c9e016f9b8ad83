// Package alert delivers rising-signal notifications to chat and webhook
// destinations.
package alert

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/elonfeng/trendradar/pkg/signal"
)

// Notification is the data sent to alert destinations.
type Notification struct {
	Title    string          `json:"title"`
	Body     string          `json:"body"`
	URL      string          `json:"url,omitempty"`
	Score    int             `json:"score"`
	Category signal.Category `json:"category"`
	Status   signal.Status   `json:"status,omitempty"`
	At       time.Time       `json:"at"`
	// Related are other signals of the run worth showing alongside.
	Related []signal.Signal `json:"related,omitempty"`
}

// Rising builds the notification for a rising signal.
func Rising(sig signal.Signal, status signal.Status, related []signal.Signal) *Notification {
	body := fmt.Sprintf("%s の注目度が上昇しています (%s, 言及数 %d)", sig.Keyword, sig.Category.Label(), sig.MentionCount)
	return &Notification{
		Title:    sig.Keyword,
		Body:     body,
		URL:      sig.SourceURL,
		Score:    sig.Score,
		Category: sig.Category,
		Status:   status,
		At:       sig.ObservedAt,
		Related:  related,
	}
}

// Notifier delivers alerts to a specific destination.
type Notifier interface {
	Name() string
	Send(ctx context.Context, n *Notification) error
}

// Manager broadcasts notifications to all registered notifiers.
type Manager struct {
	notifiers []Notifier
}

// NewManager creates a new alert manager.
func NewManager(notifiers []Notifier) *Manager {
	return &Manager{notifiers: notifiers}
}

// HasNotifiers returns true if at least one notifier is configured.
func (m *Manager) HasNotifiers() bool {
	return m != nil && len(m.notifiers) > 0
}

// Broadcast sends a notification to all registered notifiers.
func (m *Manager) Broadcast(ctx context.Context, n *Notification) error {
	if m == nil {
		return nil
	}
	var errs []error
	for _, notifier := range m.notifiers {
		if err := notifier.Send(ctx, n); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", notifier.Name(), err))
		}
	}
	return errors.Join(errs...)
}

const maxRelated = 5

func topRelated(n *Notification) []signal.Signal {
	if len(n.Related) > maxRelated {
		return n.Related[:maxRelated]
	}
	return n.Related
}

func post(ctx context.Context, client *http.Client, dest, url string, body []byte, header http.Header) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create %s request: %w", dest, err)
	}
	for k, v := range header {
		req.Header[k] = v
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "trendradar/1.0")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("send %s: %w", dest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%s status %d", dest, resp.StatusCode)
	}
	return nil
}
