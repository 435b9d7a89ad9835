package notification

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	json "github.com/goccy/go-json"
)

// WebhookNotifier POSTs alerts as JSON to an HTTP endpoint.
type WebhookNotifier struct {
	url    string
	client *http.Client
	now    func() time.Time
}

type webhookPayload struct {
	Level   string `json:"level"`
	Title   string `json:"title"`
	Message string `json:"message"`
	TS      string `json:"ts"`
}

// NewWebhookNotifier creates a webhook notifier for url.
func NewWebhookNotifier(url string) *WebhookNotifier {
	return &WebhookNotifier{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
		now:    time.Now,
	}
}

func (w *WebhookNotifier) Send(ctx context.Context, alert Alert) error {
	ts := alert.Time
	if ts.IsZero() {
		ts = w.now()
	}
	body, err := json.Marshal(webhookPayload{
		Level:   string(alert.Level),
		Title:   alert.Title,
		Message: alert.Message,
		TS:      ts.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("webhook: marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook: unexpected status %d", resp.StatusCode)
	}

	log.Printf("[webhook] sent alert: %s", alert.Title)
	return nil
}
