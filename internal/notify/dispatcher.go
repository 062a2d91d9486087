package notify

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/sunnmoony/aistock-assistant-sun/internal/config"
	apperrors "github.com/sunnmoony/aistock-assistant-sun/internal/errors"
	"github.com/sunnmoony/aistock-assistant-sun/internal/logging"
	"github.com/sunnmoony/aistock-assistant-sun/internal/models"
	"github.com/sunnmoony/aistock-assistant-sun/pkg/utils"
)

// MessageStore is the slice of persistence the dispatcher needs. A nil store
// keeps messages in memory only.
type MessageStore interface {
	SaveMessage(ctx context.Context, msg *models.NotificationMessage) error
	UpdateMessage(ctx context.Context, msg *models.NotificationMessage) error
}

// Dispatcher queues per-channel messages and delivers them with bounded
// retries and increasing backoff. Channels are fully isolated: one channel's
// transport failure never affects another channel or recommendation.
type Dispatcher struct {
	channels []Channel
	store    MessageStore
	cfg      config.NotificationConfig
	logger   zerolog.Logger
}

// NewDispatcher creates a dispatcher over the given channels. It fails when
// notification is enabled but no channel is.
func NewDispatcher(channels []Channel, st MessageStore, cfg config.NotificationConfig, logger zerolog.Logger) (*Dispatcher, error) {
	if cfg.Enabled && len(channels) == 0 {
		return nil, apperrors.ErrNoChannelsEnabled
	}
	return &Dispatcher{
		channels: channels,
		store:    st,
		cfg:      cfg,
		logger:   logger,
	}, nil
}

// Dispatch delivers the recommendations per the configured mode and returns
// every message with its terminal status. In batched mode one combined
// message per channel is sent, anchored on the first recommendation; in
// single mode each recommendation gets its own message per channel.
func (d *Dispatcher) Dispatch(ctx context.Context, recs []*models.Recommendation) []*models.NotificationMessage {
	if len(recs) == 0 || len(d.channels) == 0 {
		return nil
	}

	var (
		mu      sync.Mutex
		results []*models.NotificationMessage
		wg      sync.WaitGroup
	)

	for _, ch := range d.channels {
		wg.Add(1)
		go func(ch Channel) {
			defer wg.Done()
			delivered := d.deliverToChannel(ctx, ch, recs)
			mu.Lock()
			results = append(results, delivered...)
			mu.Unlock()
		}(ch)
	}
	wg.Wait()
	return results
}

// deliverToChannel builds this channel's queue and works through it
// sequentially so retries never interleave within a channel.
func (d *Dispatcher) deliverToChannel(ctx context.Context, ch Channel, recs []*models.Recommendation) []*models.NotificationMessage {
	var queue []*models.NotificationMessage

	if d.cfg.Mode == "batched" {
		queue = append(queue, d.newMessage(ch, recs[0].ID, RenderBatch(recs)))
	} else {
		for _, rec := range recs {
			queue = append(queue, d.newMessage(ch, rec.ID, RenderSingle(rec)))
		}
	}

	for _, msg := range queue {
		d.persistNew(ctx, msg)
		d.deliver(ctx, ch, msg)
	}
	return queue
}

func (d *Dispatcher) newMessage(ch Channel, recommendationID, payload string) *models.NotificationMessage {
	if max := ch.MaxBytes(); max > 0 {
		payload = utils.Truncate(payload, max)
	}
	now := time.Now()
	return &models.NotificationMessage{
		ID:               uuid.NewString(),
		RecommendationID: recommendationID,
		Channel:          ch.Name(),
		Payload:          payload,
		Status:           models.DeliveryPending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// deliver attempts the message up to max_retries times with increasing
// backoff, then records the terminal status. AttemptCount only increases.
func (d *Dispatcher) deliver(ctx context.Context, ch Channel, msg *models.NotificationMessage) {
	var lastErr error

	for attempt := 0; attempt < d.cfg.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			lastErr = err
			break
		}

		msg.AttemptCount++
		err := ch.Send(ctx, msg.Payload)
		if err == nil {
			msg.Status = models.DeliverySent
			msg.LastError = ""
			msg.UpdatedAt = time.Now()
			d.persistUpdate(ctx, msg)
			logging.LogDelivery(d.logger, ch.Name(), msg.ID, string(msg.Status), msg.AttemptCount)
			return
		}

		lastErr = err
		msg.LastError = err.Error()
		msg.UpdatedAt = time.Now()
		d.persistUpdate(ctx, msg)

		if attempt < d.cfg.MaxRetries-1 {
			backoff := utils.CalculateBackoff(attempt, d.cfg.RetryDelay, 30*time.Second, 2.0)
			timer := time.NewTimer(backoff)
			select {
			case <-ctx.Done():
				timer.Stop()
			case <-timer.C:
			}
		}
	}

	msg.Status = models.DeliveryFailed
	msg.UpdatedAt = time.Now()
	d.persistUpdate(ctx, msg)

	d.logger.Error().
		Str("channel", ch.Name()).
		Str("message_id", msg.ID).
		Int("attempts", msg.AttemptCount).
		Err(apperrors.NewDeliveryError(ch.Name(), msg.ID, msg.AttemptCount, lastErr)).
		Msg("Delivery failed terminally")
}

func (d *Dispatcher) persistNew(ctx context.Context, msg *models.NotificationMessage) {
	if d.store == nil {
		return
	}
	if err := d.store.SaveMessage(ctx, msg); err != nil {
		d.logger.Warn().Str("message_id", msg.ID).Err(err).Msg("Failed to persist message")
	}
}

func (d *Dispatcher) persistUpdate(ctx context.Context, msg *models.NotificationMessage) {
	if d.store == nil {
		return
	}
	if err := d.store.UpdateMessage(ctx, msg); err != nil {
		d.logger.Warn().Str("message_id", msg.ID).Err(err).Msg("Failed to persist message update")
	}
}

// Channels returns the names of the dispatcher's channels.
func (d *Dispatcher) Channels() []string {
	names := make([]string, 0, len(d.channels))
	for _, ch := range d.channels {
		names = append(names, ch.Name())
	}
	return names
}
