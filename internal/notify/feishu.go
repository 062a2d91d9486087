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

// FeishuChannel delivers to a Feishu group webhook as an interactive card
// with a single markdown block.
type FeishuChannel struct {
	webhookURL string
	client     *http.Client
}

// NewFeishuChannel creates a new Feishu webhook channel.
func NewFeishuChannel(cc config.ChannelConfig) *FeishuChannel {
	return &FeishuChannel{
		webhookURL: cc.WebhookURL,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

// Name returns the channel identifier.
func (c *FeishuChannel) Name() string {
	return "feishu"
}

// MaxBytes caps the card content well below Feishu's request limit.
func (c *FeishuChannel) MaxBytes() int {
	return 20000
}

// Send posts an interactive card. Feishu signals acceptance with code zero;
// older deployments use StatusCode instead.
func (c *FeishuChannel) Send(ctx context.Context, payload string) error {
	body := map[string]interface{}{
		"msg_type": "interactive",
		"card": map[string]interface{}{
			"config": map[string]bool{"wide_screen_mode": true},
			"elements": []map[string]interface{}{
				{
					"tag":  "div",
					"text": map[string]string{"tag": "lark_md", "content": payload},
				},
			},
		},
	}

	data, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("feishu webhook returned status %d", resp.StatusCode)
	}

	var result struct {
		Code       int    `json:"code"`
		StatusCode int    `json:"StatusCode"`
		Msg        string `json:"msg"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("feishu response malformed: %w", err)
	}
	if result.Code != 0 || result.StatusCode != 0 {
		return fmt.Errorf("feishu webhook error %d: %s", result.Code, result.Msg)
	}
	return nil
}
