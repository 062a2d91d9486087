// Package notify implements the notification dispatcher and its delivery
// channels.
package notify

import (
	"context"
	"fmt"
	"sort"

	"github.com/sunnmoony/aistock-assistant-sun/internal/config"
)

// Channel is one notification transport. Send either delivers the payload or
// returns an error; the dispatcher owns queueing and retries.
type Channel interface {
	Name() string
	Send(ctx context.Context, payload string) error
	// MaxBytes is the transport's payload limit; 0 means unlimited. The
	// dispatcher truncates payloads to this before sending.
	MaxBytes() int
}

// BuildChannels constructs the enabled channels from configuration, in
// deterministic name order.
func BuildChannels(cfg config.NotificationConfig) ([]Channel, error) {
	names := make([]string, 0, len(cfg.Channels))
	for name := range cfg.Channels {
		names = append(names, name)
	}
	sort.Strings(names)

	var channels []Channel
	for _, name := range names {
		cc := cfg.Channels[name]
		if !cc.Enabled {
			continue
		}
		ch, err := newChannel(name, cc)
		if err != nil {
			return nil, err
		}
		channels = append(channels, ch)
	}
	return channels, nil
}

func newChannel(name string, cc config.ChannelConfig) (Channel, error) {
	switch name {
	case "wechat":
		return NewWeChatChannel(cc), nil
	case "feishu":
		return NewFeishuChannel(cc), nil
	case "telegram":
		return NewTelegramChannel(cc), nil
	case "email":
		return NewEmailChannel(cc), nil
	default:
		return nil, fmt.Errorf("unknown notification channel: %s", name)
	}
}
