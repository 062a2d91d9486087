package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sunnmoony/aistock-assistant-sun/internal/config"
)

const telegramAPIBase = "https://api.telegram.org"

// TelegramChannel delivers via the Telegram bot API.
type TelegramChannel struct {
	apiBase  string
	botToken string
	chatID   string
	client   *http.Client
}

// NewTelegramChannel creates a new Telegram channel. A webhook_url in the
// channel config overrides the API base, which tests use to point at a local
// server.
func NewTelegramChannel(cc config.ChannelConfig) *TelegramChannel {
	apiBase := telegramAPIBase
	if cc.WebhookURL != "" {
		apiBase = cc.WebhookURL
	}
	return &TelegramChannel{
		apiBase:  apiBase,
		botToken: cc.BotToken,
		chatID:   cc.ChatID,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

// Name returns the channel identifier.
func (c *TelegramChannel) Name() string {
	return "telegram"
}

// MaxBytes follows the bot API message limit.
func (c *TelegramChannel) MaxBytes() int {
	return 4096
}

// Send calls sendMessage with Markdown parsing.
func (c *TelegramChannel) Send(ctx context.Context, payload string) error {
	body := map[string]interface{}{
		"chat_id":    c.chatID,
		"text":       payload,
		"parse_mode": "Markdown",
	}
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", c.apiBase, c.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var result struct {
		OK          bool   `json:"ok"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("telegram response malformed: %w", err)
	}
	if !result.OK {
		return fmt.Errorf("telegram API error: %s", result.Description)
	}
	return nil
}
