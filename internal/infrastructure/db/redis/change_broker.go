package redis

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/hitpoints/hitpoints-service/internal/core/ports"
	"github.com/hitpoints/hitpoints-service/internal/pkg/metrics"
)

// DefaultChannel is the pub/sub channel carrying character ids.
const DefaultChannel = "hitpoints:character-changes"

const transportRedis = "redis"

// LocalFeed is the in-process bus that Redis messages are relayed into.
type LocalFeed interface {
	ports.ChangeNotifier
	ports.ChangeFeed
}

// ChangeBroker shares change notifications between service instances.
//
// Publish goes to a Redis channel; Run relays that channel into the local
// feed, so an instance's own changes reach its subscribers the same way as
// a peer's.
type ChangeBroker struct {
	client  *redis.Client
	channel string
	local   LocalFeed
	log     zerolog.Logger

	readyOnce sync.Once
	ready     chan struct{}
}

// NewChangeBroker creates a broker on channel (DefaultChannel when empty).
func NewChangeBroker(client *redis.Client, channel string, local LocalFeed, log zerolog.Logger) *ChangeBroker {
	if channel == "" {
		channel = DefaultChannel
	}
	return &ChangeBroker{
		client:  client,
		channel: channel,
		local:   local,
		log:     log.With().Str("component", "change_broker").Logger(),
		ready:   make(chan struct{}),
	}
}

var (
	_ ports.ChangeNotifier = (*ChangeBroker)(nil)
	_ ports.ChangeFeed     = (*ChangeBroker)(nil)
)

// Publish announces characterID to every instance.
func (b *ChangeBroker) Publish(ctx context.Context, characterID string) error {
	if err := b.client.Publish(ctx, b.channel, characterID).Err(); err != nil {
		metrics.NotificationsTotal.WithLabelValues(transportRedis, "failed").Inc()
		return fmt.Errorf("redis publish: %w", err)
	}
	metrics.NotificationsTotal.WithLabelValues(transportRedis, "published").Inc()
	return nil
}

// Subscribe registers a local observer.
func (b *ChangeBroker) Subscribe() ports.Subscription {
	return b.local.Subscribe()
}

// Ready is closed once Run has subscribed to the channel.
func (b *ChangeBroker) Ready() <-chan struct{} {
	return b.ready
}

// Run relays the Redis channel into the local feed until ctx ends.
func (b *ChangeBroker) Run(ctx context.Context) error {
	ps := b.client.Subscribe(ctx, b.channel)
	defer ps.Close()

	if _, err := ps.Receive(ctx); err != nil {
		return fmt.Errorf("redis subscribe %s: %w", b.channel, err)
	}
	b.readyOnce.Do(func() { close(b.ready) })
	b.log.Info().Str("channel", b.channel).Msg("relaying character changes")

	msgs := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			if err := b.local.Publish(ctx, msg.Payload); err != nil {
				b.log.Warn().Err(err).Str("character_id", msg.Payload).Msg("failed to relay change")
			}
		}
	}
}
