package notification

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	json "github.com/goccy/go-json"
)

const telegramAPI = "https://api.telegram.org"

// TelegramNotifier sends alerts via the Telegram Bot API.
type TelegramNotifier struct {
	botToken string
	chatID   string
	baseURL  string
	client   *http.Client
}

// NewTelegramNotifier creates a Telegram notifier for one chat.
func NewTelegramNotifier(botToken, chatID string) *TelegramNotifier {
	return &TelegramNotifier{
		botToken: botToken,
		chatID:   chatID,
		baseURL:  telegramAPI,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

// WithBaseURL points the notifier at another API host.
func (t *TelegramNotifier) WithBaseURL(u string) *TelegramNotifier {
	t.baseURL = strings.TrimRight(u, "/")
	return t
}

func (t *TelegramNotifier) Send(ctx context.Context, alert Alert) error {
	emoji := "ℹ️"
	switch alert.Level {
	case AlertWarning:
		emoji = "⚠️"
	case AlertCritical:
		emoji = "🚨"
	}

	text := fmt.Sprintf("%s *%s*\n\n%s", emoji, escapeMarkdown(alert.Title), escapeMarkdown(alert.Message))

	body, err := json.Marshal(map[string]string{
		"chat_id":    t.chatID,
		"text":       text,
		"parse_mode": "MarkdownV2",
	})
	if err != nil {
		return fmt.Errorf("telegram: marshal: %w", err)
	}

	url := t.baseURL + "/bot" + t.botToken + "/sendMessage"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("telegram: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram: send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram: unexpected status %d", resp.StatusCode)
	}

	log.Printf("[telegram] sent alert: %s", alert.Title)
	return nil
}

// escapeMarkdown escapes special characters for Telegram MarkdownV2.
func escapeMarkdown(s string) string {
	const specials = "_*[]()~`>#+-=|{}.!\\"
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if strings.IndexByte(specials, s[i]) >= 0 {
			b.WriteByte('\\')
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
