package redisstore

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"transitkiosk/backend/services/transit-service/internal/events"
)

// EventBus relays trip events between instances over a Redis pub/sub channel.
type EventBus struct {
	client  *redis.Client
	channel string
	logger  *zap.Logger
}

// NewEventBus builds an EventBus on channel.
func NewEventBus(client *redis.Client, channel string, logger *zap.Logger) *EventBus {
	return &EventBus{client: client, channel: channel, logger: logger}
}

// Publish sends ev to every subscribed instance, including this one.
func (b *EventBus) Publish(ctx context.Context, ev events.TripEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, b.channel, data).Err()
}

// Forward subscribes to the channel and hands every decoded event to sink until ctx ends.
func (b *EventBus) Forward(ctx context.Context, sink events.Publisher) error {
	sub := b.client.Subscribe(ctx, b.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return err
	}
	b.logger.Info("subscribed to trip events", zap.String("channel", b.channel))

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var ev events.TripEvent
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				b.logger.Warn("discarding malformed trip event", zap.Error(err))
				continue
			}
			if err := sink.Publish(ctx, ev); err != nil {
				b.logger.Warn("failed to forward trip event", zap.Int64("trip_id", ev.TripID), zap.Error(err))
			}
		}
	}
}
