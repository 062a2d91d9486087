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

// WeChatChannel delivers to an enterprise WeChat group webhook. The robot
// API accepts markdown or text message types and caps their size differently.
type WeChatChannel struct {
	webhookURL string
	msgType    string
	client     *http.Client
}

// NewWeChatChannel creates a new WeChat webhook channel.
func NewWeChatChannel(cc config.ChannelConfig) *WeChatChannel {
	msgType := cc.MsgType
	if msgType != "text" {
		msgType = "markdown"
	}
	return &WeChatChannel{
		webhookURL: cc.WebhookURL,
		msgType:    msgType,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

// Name returns the channel identifier.
func (c *WeChatChannel) Name() string {
	return "wechat"
}

// MaxBytes follows the robot API limits: 4096 for markdown, 2048 for text.
func (c *WeChatChannel) MaxBytes() int {
	if c.msgType == "text" {
		return 2048
	}
	return 4096
}

// Send posts the payload to the webhook. The robot replies HTTP 200 with a
// JSON body; errcode zero means accepted.
func (c *WeChatChannel) Send(ctx context.Context, payload string) error {
	var body map[string]interface{}
	if c.msgType == "text" {
		body = map[string]interface{}{
			"msgtype": "text",
			"text":    map[string]string{"content": payload},
		}
	} else {
		body = map[string]interface{}{
			"msgtype":  "markdown",
			"markdown": map[string]string{"content": payload},
		}
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
		return fmt.Errorf("wechat webhook returned status %d", resp.StatusCode)
	}

	var result struct {
		ErrCode int    `json:"errcode"`
		ErrMsg  string `json:"errmsg"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("wechat response malformed: %w", err)
	}
	if result.ErrCode != 0 {
		return fmt.Errorf("wechat webhook error %d: %s", result.ErrCode, result.ErrMsg)
	}
	return nil
}
