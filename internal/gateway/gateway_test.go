package gateway

import (
	"Wanna/internal/broadcast"
	"Wanna/internal/entity"
	"Wanna/internal/errors"
	"Wanna/internal/metrics"
	"Wanna/internal/notifier"
	"Wanna/internal/registry"
	"Wanna/internal/test"
	"Wanna/pkg/log"
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var listKey = entity.ListResourceKey("L1")

type fixture struct {
	world     *world
	registry  *registry.Registry
	notifier  *notifier.Notifier
	sender    *test.MockSender
	presence  *presenceLog
	collector *metrics.Collector
	gateway   *Gateway
}

// newFixture wires a gateway on top of the in-memory world. The window is long enough
// that tests decide when pending updates fire by flushing.
func newFixture(t *testing.T) *fixture {
	logger := log.NewWithWriter("test", io.Discard)
	f := &fixture{
		world:     newWorld(),
		registry:  registry.New(),
		sender:    test.NewMockSender(),
		presence:  &presenceLog{},
		collector: metrics.NewCollector(),
	}
	router := broadcast.NewRouter(f.world, f.registry, f.sender, logger, f.collector)
	f.notifier = notifier.New(router, logger, notifier.WithWindow(time.Minute), notifier.WithMetrics(f.collector))
	t.Cleanup(func() { f.notifier.Shutdown(context.Background()) })
	f.gateway = New(f.world, f.world, f.world, f.registry, f.notifier, f.sender, f.presence, logger)

	f.world.seedUser("ann", "Ann", "token-a")
	f.world.seedUser("bob", "Bob", "token-b")
	f.world.seedUser("cat", "Cat", "token-c")
	f.world.seedList("L1", "token-a", "token-b")
	return f
}

func (f *fixture) send(connID, event string, data interface{}) {
	raw, err := json.Marshal(data)
	if err != nil {
		panic(err)
	}
	f.gateway.Dispatch(context.Background(), connID, entity.InboundMessage{Event: event, Data: raw})
}

func (f *fixture) login(t *testing.T, connID, auth string) {
	f.send(connID, entity.EventAuth, map[string]string{"auth": auth})
	identity, ok := f.registry.IdentityFor(connID)
	require.True(t, ok, connID)
	require.Equal(t, auth, identity)
}

func broadcastsOf(t *testing.T, msgs []entity.OutboundMessage) []entity.BroadcastPayload {
	var payloads []entity.BroadcastPayload
	for _, msg := range msgs {
		payload, ok := msg.Data.(entity.BroadcastPayload)
		require.True(t, ok)
		payloads = append(payloads, payload)
	}
	return payloads
}

func errorOf(t *testing.T, sender *test.MockSender, connID string) entity.ErrorReply {
	msgs := sender.EventsTo(connID, entity.EventError)
	require.Len(t, msgs, 1)
	reply, ok := msgs[0].Data.(entity.ErrorReply)
	require.True(t, ok)
	return reply
}

func TestListUpdateBurstBroadcastsFinalSnapshotOnce(t *testing.T) {
	f := newFixture(t)
	f.login(t, "a1", "token-a")
	f.login(t, "a2", "token-a")
	f.login(t, "b1", "token-b")
	f.login(t, "c1", "token-c")

	for _, name := range []string{"x", "y", "z"} {
		f.send("a1", entity.EventListUpdate, map[string]string{"listId": "L1", "name": name})
	}
	replies := f.sender.EventsTo("a1", entity.EventListUpdate)
	require.Len(t, replies, 3)
	assert.Equal(t, "z", replies[2].Data.(map[string]interface{})["list"].(entity.List).Name)
	assert.Empty(t, f.sender.EventsTo("b1", string(listKey)))
	assert.True(t, f.notifier.IsPending(listKey))

	require.True(t, f.notifier.Flush(context.Background(), listKey))

	for _, conn := range []string{"a1", "a2", "b1"} {
		payloads := broadcastsOf(t, f.sender.EventsTo(conn, string(listKey)))
		require.Len(t, payloads, 1, conn)
		assert.Equal(t, entity.ActionUpdated, payloads[0].Action)
		snapshot, ok := payloads[0].Data.(entity.ListSnapshot)
		require.True(t, ok)
		assert.Equal(t, "z", snapshot.Name)
	}
	assert.Empty(t, f.sender.EventsTo("c1", string(listKey)))
	assert.Equal(t, int64(2), f.collector.Snapshot().CoalescedUpdates)
	assert.Equal(t, int64(1), f.collector.Snapshot().Broadcasts)
}

func TestUnauthenticatedItemUpdateIsRejected(t *testing.T) {
	f := newFixture(t)
	f.login(t, "a1", "token-a")

	f.send("anon", entity.EventItemUpdate, map[string]interface{}{"listId": "L1", "listItemId": "li-1", "quantity": 2})

	reply := errorOf(t, f.sender, "anon")
	assert.Equal(t, entity.EventItemUpdate, reply.Event)
	assert.Equal(t, string(errors.AuthenticationRequiredKind), reply.Kind)
	assert.False(t, f.notifier.IsPending(listKey))
	assert.Len(t, f.sender.SentTo("a1"), 1)
	assert.Equal(t, int64(0), f.collector.Snapshot().Broadcasts)
}

func TestListJoinReachesEveryMemberOnce(t *testing.T) {
	f := newFixture(t)
	f.world.seedList("L2", "token-a")
	f.login(t, "a1", "token-a")
	f.login(t, "b1", "token-b")
	f.login(t, "c1", "token-c")
	key := entity.ListResourceKey("L2")

	f.send("c1", entity.EventListJoin, map[string]string{"shareId": "S-L2"})

	joined := f.sender.EventsTo("c1", entity.EventListJoin)
	require.Len(t, joined, 1)
	assert.Equal(t, entity.Membership{UID: "cat", ListID: "L2"}, joined[0].Data.(map[string]interface{})["joinedList"])
	for _, conn := range []string{"a1", "c1"} {
		payloads := broadcastsOf(t, f.sender.EventsTo(conn, string(key)))
		require.Len(t, payloads, 1, conn)
		assert.Equal(t, entity.ActionJoined, payloads[0].Action)
		snapshot := payloads[0].Data.(entity.ListSnapshot)
		assert.Equal(t, []entity.Member{{UID: "ann", Names: "Ann"}, {UID: "cat", Names: "Cat"}}, snapshot.Users)
	}
	assert.Empty(t, f.sender.EventsTo("b1", string(key)))
	assert.False(t, f.notifier.IsPending(key))
}

func TestReplyIsSentBeforeBroadcast(t *testing.T) {
	f := newFixture(t)
	f.login(t, "a1", "token-a")
	f.sender.Reset()

	f.send("a1", entity.EventItemCreate, map[string]interface{}{"listId": "L1", "name": "milk"})

	msgs := f.sender.SentTo("a1")
	require.Len(t, msgs, 2)
	assert.Equal(t, entity.EventItemCreate, msgs[0].Event)
	result := msgs[0].Data.(map[string]interface{})["result"].(entity.ItemResult)
	assert.Equal(t, "li-milk", result.ListItem.ListItemID)
	assert.Equal(t, string(listKey), msgs[1].Event)
	payload := msgs[1].Data.(entity.BroadcastPayload)
	assert.Equal(t, entity.ActionItemCreated, payload.Action)
	assert.Len(t, payload.Data.(entity.ListSnapshot).ListItems, 1)
}

func TestAuthRegistersAndAuthenticates(t *testing.T) {
	f := newFixture(t)

	f.send("d1", entity.EventAuth, map[string]string{"uid": "dan", "auth": "token-d", "names": "Dan"})
	replies := f.sender.EventsTo("d1", entity.EventAuth)
	require.Len(t, replies, 1)
	assert.Equal(t, "dan", replies[0].Data.(map[string]interface{})["newUser"].(entity.User).UID)
	identity, ok := f.registry.IdentityFor("d1")
	require.True(t, ok)
	assert.Equal(t, "token-d", identity)

	f.send("d2", entity.EventAuth, map[string]string{"auth": "token-d"})
	replies = f.sender.EventsTo("d2", entity.EventAuth)
	require.Len(t, replies, 1)
	assert.Equal(t, "Dan", replies[0].Data.(map[string]interface{})["userData"].(entity.User).Names)
	assert.Equal(t, []string{"d1", "d2"}, f.registry.ConnectionsFor("token-d"))

	added, removed := f.presence.snapshot()
	assert.Equal(t, []string{"token-d"}, added)
	assert.Empty(t, removed)

	f.gateway.Disconnect(context.Background(), "d1")
	_, removed = f.presence.snapshot()
	assert.Empty(t, removed)
	f.gateway.Disconnect(context.Background(), "d2")
	_, removed = f.presence.snapshot()
	assert.Equal(t, []string{"token-d"}, removed)
	assert.Empty(t, f.registry.ConnectionsFor("token-d"))
}

func TestAuthFailures(t *testing.T) {
	f := newFixture(t)
	f.login(t, "a1", "token-a")

	f.send("a1", entity.EventAuth, map[string]string{"auth": "unknown"})
	reply := errorOf(t, f.sender, "a1")
	assert.Equal(t, string(errors.InvalidCredentialKind), reply.Kind)
	identity, _ := f.registry.IdentityFor("a1")
	assert.Equal(t, "token-a", identity)

	f.send("x1", entity.EventAuth, map[string]string{"uid": "ann2", "auth": "token-a", "names": "Ann"})
	reply = errorOf(t, f.sender, "x1")
	assert.Equal(t, string(errors.ValidationFailedKind), reply.Kind)
	_, ok := f.registry.IdentityFor("x1")
	assert.False(t, ok)
}

func TestAuthRebindMovesPresence(t *testing.T) {
	f := newFixture(t)
	f.login(t, "a1", "token-a")
	f.login(t, "a1", "token-b")

	added, removed := f.presence.snapshot()
	assert.Equal(t, []string{"token-a", "token-b"}, added)
	assert.Equal(t, []string{"token-a"}, removed)
}

func TestDispatchErrors(t *testing.T) {
	f := newFixture(t)
	f.login(t, "a1", "token-a")
	f.login(t, "c1", "token-c")

	tests := []struct {
		name  string
		conn  string
		event string
		data  json.RawMessage
		kind  errors.Kind
	}{
		{"unknown event", "a1", "list:delete", json.RawMessage(`{}`), errors.ValidationFailedKind},
		{"malformed data", "a1", entity.EventListCreate, json.RawMessage(`"milk"`), errors.ValidationFailedKind},
		{"missing data", "a1", entity.EventListCreate, nil, errors.ValidationFailedKind},
		{"not a member", "c1", entity.EventListUpdate, json.RawMessage(`{"listId":"L1","name":"n"}`), errors.AccessDeniedKind},
		{"unknown list", "a1", entity.EventListLeave, json.RawMessage(`{"listId":"nope"}`), errors.NotFoundKind},
		{"unknown share id", "a1", entity.EventListView, json.RawMessage(`{"shareId":"nope"}`), errors.NotFoundKind},
		{"list item without id", "a1", entity.EventListItemUpdate, json.RawMessage(`{"listId":"L1","name":"n"}`), errors.ValidationFailedKind},
		{"empty batch", "a1", entity.EventItemUpdate, json.RawMessage(`{"listId":"L1","listItems":[]}`), errors.ValidationFailedKind},
		{"panicking data layer", "a1", entity.EventListUpdate, json.RawMessage(`{"listId":"L1","name":"boom"}`), errors.InternalKind},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f.sender.Reset()
			f.gateway.Dispatch(context.Background(), tc.conn, entity.InboundMessage{Event: tc.event, Data: tc.data})
			reply := errorOf(t, f.sender, tc.conn)
			assert.Equal(t, tc.event, reply.Event)
			assert.Equal(t, string(tc.kind), reply.Kind)
			assert.NotEmpty(t, reply.Error)
			assert.Len(t, f.sender.Sent(), 1)
		})
	}
	assert.False(t, f.notifier.IsPending(listKey))
}

func TestReceiveRejectsMalformedFrames(t *testing.T) {
	f := newFixture(t)

	f.gateway.Receive(context.Background(), "x1", []byte("not json"))

	reply := errorOf(t, f.sender, "x1")
	assert.Equal(t, "", reply.Event)
	assert.Equal(t, string(errors.ValidationFailedKind), reply.Kind)
}

func TestListViewNeedsNoAuth(t *testing.T) {
	f := newFixture(t)

	f.send("x1", entity.EventListView, map[string]string{"listId": "S-L1"})

	replies := f.sender.EventsTo("x1", entity.EventListView)
	require.Len(t, replies, 1)
	view := replies[0].Data.(map[string]interface{})["listData"].(entity.ListView)
	assert.Equal(t, "L1", view.ListID)
	assert.Equal(t, "groceries", view.Name)
}

func TestListLeaveNotifiesRemainingMembers(t *testing.T) {
	f := newFixture(t)
	f.login(t, "a1", "token-a")
	f.login(t, "b1", "token-b")

	f.send("b1", entity.EventListLeave, map[string]string{"listId": "L1"})

	require.Len(t, f.sender.EventsTo("b1", entity.EventListLeave), 1)
	assert.Empty(t, f.sender.EventsTo("b1", string(listKey)))
	payloads := broadcastsOf(t, f.sender.EventsTo("a1", string(listKey)))
	require.Len(t, payloads, 1)
	assert.Equal(t, entity.ActionLeft, payloads[0].Action)
	assert.Equal(t, entity.Membership{UID: "bob", ListID: "L1"}, payloads[0].Data)
}

func TestItemUpdatesShareOneWindow(t *testing.T) {
	f := newFixture(t)
	f.login(t, "a1", "token-a")
	f.login(t, "b1", "token-b")
	f.send("a1", entity.EventItemCreate, map[string]interface{}{"listId": "L1", "name": "milk"})
	f.sender.Reset()

	f.send("a1", entity.EventItemUpdate, map[string]interface{}{"listId": "L1", "listItemId": "li-milk", "quantity": 2})
	f.send("b1", entity.EventListItemUpdate, map[string]interface{}{"listId": "L1", "listItemId": "li-milk", "quantity": 3})
	f.send("a1", entity.EventItemUpdate, map[string]interface{}{"listId": "L1", "listItems": []map[string]interface{}{{"listItemId": "li-milk", "name": "oat milk"}}})

	assert.Len(t, f.sender.EventsTo("a1", entity.EventItemUpdate), 2)
	assert.Len(t, f.sender.EventsTo("b1", entity.EventListItemUpdate), 1)
	require.True(t, f.notifier.Flush(context.Background(), listKey))

	payloads := broadcastsOf(t, f.sender.EventsTo("b1", string(listKey)))
	require.Len(t, payloads, 1)
	assert.Equal(t, entity.ActionItemUpdated, payloads[0].Action)
	items := payloads[0].Data.(entity.ListSnapshot).ListItems
	require.Len(t, items, 1)
	assert.Equal(t, "oat milk", items[0].Name)
	assert.Equal(t, 3, items[0].Quantity)
}

func TestPresenceFollowsRegistryWhenDisconnectRacesAuth(t *testing.T) {
	f := newFixture(t)
	presence := newGatedPresence()
	f.gateway.presence = presence
	f.login(t, "a1", "token-a")
	require.True(t, presence.isOnline("token-a"))

	presence.holdNextRemove()
	disconnected := make(chan struct{})
	go func() {
		f.gateway.Disconnect(context.Background(), "a1")
		close(disconnected)
	}()
	<-presence.entered

	authenticated := make(chan struct{})
	go func() {
		f.send("a2", entity.EventAuth, map[string]string{"auth": "token-a"})
		close(authenticated)
	}()
	require.Eventually(t, func() bool {
		return len(f.registry.ConnectionsFor("token-a")) == 1
	}, time.Second, time.Millisecond)
	close(presence.release)
	<-disconnected
	<-authenticated

	assert.Equal(t, []string{"a2"}, f.registry.ConnectionsFor("token-a"))
	assert.True(t, presence.isOnline("token-a"))
}

func TestBroadcastFailureKeepsSuccessReply(t *testing.T) {
	f := newFixture(t)
	f.login(t, "a1", "token-a")
	f.sender.Reset()

	f.send("a1", entity.EventListCreate, map[string]string{"listId": "L9", "name": "explode"})

	msgs := f.sender.SentTo("a1")
	require.Len(t, msgs, 1)
	assert.Equal(t, entity.EventListCreate, msgs[0].Event)
	assert.Empty(t, f.sender.EventsTo("a1", entity.EventError))
}
