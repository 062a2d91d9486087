package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sunnmoony/aistock-assistant-sun/internal/config"
)

func TestWeChatSendMarkdownBody(t *testing.T) {
	var got map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"errcode":0,"errmsg":"ok"}`))
	}))
	defer server.Close()

	ch := NewWeChatChannel(config.ChannelConfig{WebhookURL: server.URL})
	require.NoError(t, ch.Send(context.Background(), "## 报告"))

	assert.Equal(t, "markdown", got["msgtype"])
	markdown := got["markdown"].(map[string]interface{})
	assert.Equal(t, "## 报告", markdown["content"])
	assert.Equal(t, 4096, ch.MaxBytes())
}

func TestWeChatTextModeShrinksLimit(t *testing.T) {
	ch := NewWeChatChannel(config.ChannelConfig{MsgType: "text"})
	assert.Equal(t, 2048, ch.MaxBytes())
}

func TestFeishuSendInteractiveCard(t *testing.T) {
	var raw []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ = io.ReadAll(r.Body)
		w.Write([]byte(`{"code":0,"msg":"success"}`))
	}))
	defer server.Close()

	ch := NewFeishuChannel(config.ChannelConfig{WebhookURL: server.URL})
	require.NoError(t, ch.Send(context.Background(), "**600519** 看多"))
	assert.Contains(t, string(raw), "interactive")
	assert.Contains(t, string(raw), "lark_md")
}

func TestFeishuRejectionCode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":19001,"msg":"param invalid"}`))
	}))
	defer server.Close()

	ch := NewFeishuChannel(config.ChannelConfig{WebhookURL: server.URL})
	err := ch.Send(context.Background(), "report")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "19001")
}

func TestTelegramSendUsesBotEndpoint(t *testing.T) {
	var path string
	var got map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	ch := NewTelegramChannel(config.ChannelConfig{
		WebhookURL: server.URL,
		BotToken:   "123:abc",
		ChatID:     "-100200300",
	})
	require.NoError(t, ch.Send(context.Background(), "*600519* 看多"))

	assert.True(t, strings.HasSuffix(path, "/bot123:abc/sendMessage"))
	assert.Equal(t, "-100200300", got["chat_id"])
	assert.Equal(t, "Markdown", got["parse_mode"])
}

func TestTelegramAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ok":false,"description":"chat not found"}`))
	}))
	defer server.Close()

	ch := NewTelegramChannel(config.ChannelConfig{WebhookURL: server.URL, BotToken: "t", ChatID: "1"})
	err := ch.Send(context.Background(), "report")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat not found")
}

func TestBuildChannelsDeterministicOrder(t *testing.T) {
	cfg := config.NotificationConfig{
		Channels: map[string]config.ChannelConfig{
			"wechat":   {Enabled: true},
			"telegram": {Enabled: true, BotToken: "t", ChatID: "1"},
			"feishu":   {Enabled: false},
		},
	}
	channels, err := BuildChannels(cfg)
	require.NoError(t, err)
	require.Len(t, channels, 2)
	assert.Equal(t, "telegram", channels[0].Name())
	assert.Equal(t, "wechat", channels[1].Name())
}

func TestBuildChannelsUnknownName(t *testing.T) {
	cfg := config.NotificationConfig{
		Channels: map[string]config.ChannelConfig{
			"pager": {Enabled: true},
		},
	}
	_, err := BuildChannels(cfg)
	assert.Error(t, err)
}
