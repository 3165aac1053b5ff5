// Package notify implements the in-process change feed: every character id
// published on a Bus is delivered to every subscription open at that moment.
package notify

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hitpoints/hitpoints-service/internal/core/ports"
	"github.com/hitpoints/hitpoints-service/internal/pkg/metrics"
)

const defaultBuffer = 64

// TransportInProcess is the metrics label for the local bus.
const TransportInProcess = "inprocess"

// Bus fans character change events out to local subscribers.
//
// Publish never blocks on a slow subscriber: when a subscriber's buffer is
// full it is evicted and its channel closed. The event that did not fit is
// not delivered to that subscriber, even if its client is still connected.
// Delivery is at-least-once only for subscribers that keep up; an evicted
// client sees its stream end (WebSocket close 1013, SSE "resync") and must
// reconnect and reload the roster.
type Bus struct {
	mu     sync.RWMutex
	subs   map[string]*subscription
	buffer int
	closed bool
	log    zerolog.Logger
}

// NewBus creates a Bus whose subscribers buffer up to buffer events.
func NewBus(buffer int, log zerolog.Logger) *Bus {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &Bus{
		subs:   make(map[string]*subscription),
		buffer: buffer,
		log:    log,
	}
}

var (
	_ ports.ChangeNotifier = (*Bus)(nil)
	_ ports.ChangeFeed     = (*Bus)(nil)
)

// Publish delivers characterID to every current subscriber.
func (b *Bus) Publish(_ context.Context, characterID string) error {
	var evicted []*subscription

	b.mu.RLock()
	for _, s := range b.subs {
		select {
		case s.ch <- characterID:
		default:
			evicted = append(evicted, s)
		}
	}
	b.mu.RUnlock()

	for _, s := range evicted {
		b.log.Warn().Str("subscriber_id", s.id).Msg("subscriber buffer full, evicting")
		metrics.SubscriberEvictionsTotal.Inc()
		b.remove(s)
	}
	metrics.NotificationsTotal.WithLabelValues(TransportInProcess, "published").Inc()
	return nil
}

// Subscribe registers a new subscriber. On a closed bus the returned
// subscription is already closed.
func (b *Bus) Subscribe() ports.Subscription {
	s := &subscription{
		id:  uuid.NewString(),
		ch:  make(chan string, b.buffer),
		bus: b,
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(s.ch)
		return s
	}
	b.subs[s.id] = s
	b.mu.Unlock()

	metrics.Subscribers.Inc()
	b.log.Debug().Str("subscriber_id", s.id).Msg("subscriber connected")
	return s
}

// Len returns the number of connected subscribers.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close ends every subscription. Later publishes reach nobody.
func (b *Bus) Close() {
	b.mu.Lock()
	b.closed = true
	subs := b.subs
	b.subs = make(map[string]*subscription)
	b.mu.Unlock()

	for _, s := range subs {
		s.closeOnce.Do(func() {
			close(s.ch)
			metrics.Subscribers.Dec()
		})
	}
}

func (b *Bus) remove(s *subscription) {
	b.mu.Lock()
	_, ok := b.subs[s.id]
	delete(b.subs, s.id)
	b.mu.Unlock()
	if !ok {
		return
	}
	s.closeOnce.Do(func() {
		close(s.ch)
		metrics.Subscribers.Dec()
	})
	b.log.Debug().Str("subscriber_id", s.id).Msg("subscriber disconnected")
}

type subscription struct {
	id        string
	ch        chan string
	bus       *Bus
	closeOnce sync.Once
}

func (s *subscription) ID() string            { return s.id }
func (s *subscription) Events() <-chan string { return s.ch }
func (s *subscription) Close()                { s.bus.remove(s) }
