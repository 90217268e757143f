// Broadcast router of Wanna, fans a payload out to every live connection subscribed to a resource.

package broadcast

import (
	"Wanna/internal/entity"
	"Wanna/internal/metrics"
	"Wanna/pkg/log"
	"context"
)

// SubscriberSource resolves the identities entitled to updates of a resource,
// subscription being membership in the underlying list.
type SubscriberSource interface {
	SubscribersOf(ctx context.Context, key entity.ResourceKey) ([]string, error)
}

// ConnectionLookup returns the live connections of an identity, implemented by the connection registry.
type ConnectionLookup interface {
	ConnectionsFor(identity string) []string
}

// Sender writes one message to one connection.
type Sender interface {
	Send(connID string, msg entity.OutboundMessage) error
}

type Router struct {
	subscribers SubscriberSource
	connections ConnectionLookup
	sender      Sender
	logger      log.Logger
	metrics     *metrics.Collector
}

func NewRouter(subscribers SubscriberSource, connections ConnectionLookup, sender Sender, logger log.Logger, collector *metrics.Collector) *Router {
	return &Router{
		subscribers: subscribers,
		connections: connections,
		sender:      sender,
		logger:      logger,
		metrics:     collector,
	}
}

// Publish sends {action, data} under event key to every live connection of every subscriber of key.
// Delivery is best-effort, failures are logged per connection and never returned.
func (r *Router) Publish(ctx context.Context, key entity.ResourceKey, action entity.Action, data interface{}) {
	identities, err := r.subscribers.SubscribersOf(ctx, key)
	if err != nil {
		// Error occured in SubscribersOf()
		r.logger.WithCtx(ctx).Error().Err(err).Str("key", string(key)).Msg("Couldn't resolve subscribers, dropping broadcast")
		return
	}
	r.metrics.IncBroadcasts()

	msg := entity.OutboundMessage{
		Event: string(key),
		Data:  entity.BroadcastPayload{Key: key, Action: action, Data: data},
	}
	seen := make(map[string]struct{})
	delivered, failed := 0, 0
	for _, identity := range identities {
		for _, connID := range r.connections.ConnectionsFor(identity) {
			if _, ok := seen[connID]; ok {
				continue
			}
			seen[connID] = struct{}{}
			if senderr := r.sender.Send(connID, msg); senderr != nil {
				failed++
				r.logger.WithCtx(ctx).Warn().Err(senderr).Str("key", string(key)).Str("conn", connID).Msg("Couldn't deliver broadcast")
				continue
			}
			delivered++
		}
	}
	r.metrics.AddDeliveries(delivered)
	r.metrics.AddFailedDeliveries(failed)
	r.logger.WithCtx(ctx).Debug().Str("key", string(key)).Str("action", string(action)).Int("delivered", delivered).Int("failed", failed).Msg("Broadcast published")
}
