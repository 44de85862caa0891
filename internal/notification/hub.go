package notification

import (
	"context"
	"sync"

	"github.com/Rrens/workspace-sync/internal/domain"
	"github.com/rs/zerolog/log"
)

const subscriberBuffer = 16

// Hub delivers notifications to in-process subscribers.
// It implements domain.Notifier and domain.NotificationSubscriber.
type Hub struct {
	mu     sync.RWMutex
	subs   map[int64]map[*subscriber]struct{}
	buffer int
}

type subscriber struct {
	ch   chan domain.Notification
	done chan struct{}
	once sync.Once
}

// NewHub creates a new hub
func NewHub() *Hub {
	return &Hub{
		subs:   make(map[int64]map[*subscriber]struct{}),
		buffer: subscriberBuffer,
	}
}

// Send delivers n to every subscriber of n.UID. A subscriber whose buffer is
// full misses the notification.
func (h *Hub) Send(ctx context.Context, n domain.Notification) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.subs[n.UID] {
		select {
		case sub.ch <- n:
		default:
			log.Warn().Int64("uid", n.UID).Str("kind", string(n.Kind)).Msg("Notification subscriber is full, dropping")
		}
	}
}

// Subscribe registers a subscriber for uid. The channel is closed when ctx
// ends or cancel is called.
func (h *Hub) Subscribe(ctx context.Context, uid int64) (<-chan domain.Notification, func()) {
	sub := &subscriber{
		ch:   make(chan domain.Notification, h.buffer),
		done: make(chan struct{}),
	}

	h.mu.Lock()
	if h.subs[uid] == nil {
		h.subs[uid] = make(map[*subscriber]struct{})
	}
	h.subs[uid][sub] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		sub.once.Do(func() {
			h.mu.Lock()
			delete(h.subs[uid], sub)
			if len(h.subs[uid]) == 0 {
				delete(h.subs, uid)
			}
			h.mu.Unlock()
			close(sub.ch)
			close(sub.done)
		})
	}

	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-sub.done:
		}
	}()

	return sub.ch, cancel
}

// Subscribers returns the number of subscribers of uid
func (h *Hub) Subscribers(uid int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[uid])
}
