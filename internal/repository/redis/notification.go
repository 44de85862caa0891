package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Rrens/workspace-sync/internal/domain"
	"github.com/rs/zerolog/log"
)

const subscriberBuffer = 16

// NotificationBus fans notifications out over Redis pub/sub so every process
// attached to the same data directory reaches its UI subscribers.
// It implements domain.Notifier and domain.NotificationSubscriber.
type NotificationBus struct {
	client *Client
}

// NewNotificationBus creates a new notification bus
func NewNotificationBus(client *Client) *NotificationBus {
	return &NotificationBus{client: client}
}

func notificationChannel(uid int64) string {
	return fmt.Sprintf("user:%d:notifications", uid)
}

// Send publishes n on the channel of n.UID. Failures are logged.
func (b *NotificationBus) Send(ctx context.Context, n domain.Notification) {
	data, err := json.Marshal(n)
	if err != nil {
		log.Error().Err(err).Str("kind", string(n.Kind)).Msg("Failed to encode notification")
		return
	}

	if err := b.client.rdb.Publish(ctx, notificationChannel(n.UID), data).Err(); err != nil {
		log.Error().
			Err(err).
			Int64("uid", n.UID).
			Str("kind", string(n.Kind)).
			Msg("Failed to publish notification")
	}
}

// Subscribe streams the notifications of uid until ctx ends or cancel is called
func (b *NotificationBus) Subscribe(ctx context.Context, uid int64) (<-chan domain.Notification, func()) {
	ctx, cancel := context.WithCancel(ctx)
	pubsub := b.client.rdb.Subscribe(ctx, notificationChannel(uid))
	out := make(chan domain.Notification, subscriberBuffer)

	go func() {
		defer close(out)
		defer pubsub.Close()

		messages := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				n, err := decodeNotification(msg.Payload)
				if err != nil {
					log.Warn().Err(err).Int64("uid", uid).Msg("Dropping malformed notification")
					continue
				}
				select {
				case out <- n:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, cancel
}

func decodeNotification(payload string) (domain.Notification, error) {
	var n domain.Notification
	if err := json.Unmarshal([]byte(payload), &n); err != nil {
		return n, fmt.Errorf("failed to decode notification: %w", err)
	}
	return n, nil
}
