package broadcast

import (
	"Wanna/internal/entity"
	"Wanna/internal/metrics"
	"Wanna/internal/registry"
	"Wanna/internal/test"
	"Wanna/pkg/log"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticSubscribers map[entity.ResourceKey][]string

func (s staticSubscribers) SubscribersOf(ctx context.Context, key entity.ResourceKey) ([]string, error) {
	return s[key], nil
}

type failingSubscribers struct{}

func (failingSubscribers) SubscribersOf(ctx context.Context, key entity.ResourceKey) ([]string, error) {
	return nil, errors.New("db down")
}

var listKey = entity.ListResourceKey("L1")

func setup() (*registry.Registry, *test.MockSender, *metrics.Collector, *Router) {
	reg := registry.New()
	sender := test.NewMockSender()
	collector := metrics.NewCollector()
	subs := staticSubscribers{listKey: {"u1", "u2", "u1"}}
	router := NewRouter(subs, reg, sender, log.NewWithWriter("test", io.Discard), collector)
	return reg, sender, collector, router
}

func TestPublishReachesEveryLiveConnectionOnce(t *testing.T) {
	reg, sender, collector, router := setup()
	reg.Bind("a1", "u1")
	reg.Bind("a2", "u1")
	reg.Bind("c", "u2")
	reg.Bind("x", "outsider")

	router.Publish(context.Background(), listKey, entity.ActionUpdated, "snapshot")

	for _, conn := range []string{"a1", "a2", "c"} {
		msgs := sender.SentTo(conn)
		require.Len(t, msgs, 1, conn)
		assert.Equal(t, "list:L1", msgs[0].Event)
		payload, ok := msgs[0].Data.(entity.BroadcastPayload)
		require.True(t, ok)
		assert.Equal(t, entity.ActionUpdated, payload.Action)
		assert.Equal(t, "snapshot", payload.Data)
	}
	assert.Empty(t, sender.SentTo("x"))
	assert.Equal(t, int64(3), collector.Snapshot().Deliveries)
	assert.Equal(t, int64(1), collector.Snapshot().Broadcasts)
}

func TestPublishSkipsDisconnected(t *testing.T) {
	reg, sender, _, router := setup()
	reg.Bind("a", "u1")
	reg.Bind("c", "u2")
	reg.Unbind("c")

	router.Publish(context.Background(), listKey, entity.ActionJoined, nil)

	assert.Len(t, sender.SentTo("a"), 1)
	assert.Empty(t, sender.SentTo("c"))
}

func TestPublishContinuesPastFailedSend(t *testing.T) {
	reg, sender, collector, router := setup()
	reg.Bind("a", "u1")
	reg.Bind("c", "u2")
	sender.FailOn("a")

	router.Publish(context.Background(), listKey, entity.ActionUpdated, nil)

	assert.Len(t, sender.SentTo("c"), 1)
	assert.Equal(t, int64(1), collector.Snapshot().FailedDeliveries)
	assert.Equal(t, int64(1), collector.Snapshot().Deliveries)
}

func TestPublishWithoutLiveConnectionsIsNoop(t *testing.T) {
	_, sender, _, router := setup()
	router.Publish(context.Background(), listKey, entity.ActionUpdated, nil)
	router.Publish(context.Background(), entity.ListResourceKey("unknown"), entity.ActionUpdated, nil)
	assert.Empty(t, sender.Sent())
}

func TestPublishSubscriberLookupFailure(t *testing.T) {
	reg := registry.New()
	reg.Bind("a", "u1")
	sender := test.NewMockSender()
	router := NewRouter(failingSubscribers{}, reg, sender, log.NewWithWriter("test", io.Discard), nil)

	assert.NotPanics(t, func() {
		router.Publish(context.Background(), listKey, entity.ActionUpdated, nil)
	})
	assert.Empty(t, sender.Sent())
}
