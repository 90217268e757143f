// Realtime gateway of Wanna, the single entry and exit point of websocket clients.

package gateway

import (
	"Wanna/internal/broadcast"
	"Wanna/internal/entity"
	"Wanna/internal/errors"
	"Wanna/internal/item"
	"Wanna/internal/list"
	"Wanna/internal/notifier"
	"Wanna/internal/registry"
	"Wanna/internal/user"
	"Wanna/pkg/log"
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
)

// request is one inbound message of one connection.
type request struct {
	connID   string
	identity string
	data     json.RawMessage
}

// outcome of a handled message: the direct reply, then an optional fan-out.
type outcome struct {
	reply     interface{}
	broadcast func(ctx context.Context)
}

type handler struct {
	requiresAuth bool
	handle       func(ctx context.Context, req request) (outcome, error)
}

// Gateway dispatches inbound client messages to the data layer and drives the notifier with the results.
// A connection is Unauthenticated until an auth message binds it to an identity in the registry.
type Gateway struct {
	users    user.Service
	lists    list.Service
	items    item.Service
	registry *registry.Registry
	notifier *notifier.Notifier
	sender   broadcast.Sender
	presence Repository
	logger   log.Logger
	handlers map[string]handler

	// serializes presence writes of one identity
	presenceMu    sync.Mutex
	presenceLocks map[string]*identityLock
}

type identityLock struct {
	sync.Mutex
	refs int
}

// Returns a new Gateway, presence may be nil.
func New(users user.Service, lists list.Service, items item.Service, reg *registry.Registry, ntf *notifier.Notifier, sender broadcast.Sender, presence Repository, logger log.Logger) *Gateway {
	g := &Gateway{
		users:    users,
		lists:    lists,
		items:    items,
		registry: reg,
		notifier: ntf,
		sender:   sender,
		presence: presence,
		logger:   logger,

		presenceLocks: make(map[string]*identityLock),
	}
	g.handlers = map[string]handler{
		entity.EventAuth:           {requiresAuth: false, handle: g.handleAuth},
		entity.EventListCreate:     {requiresAuth: true, handle: g.handleListCreate},
		entity.EventListUpdate:     {requiresAuth: true, handle: g.handleListUpdate},
		entity.EventListView:       {requiresAuth: false, handle: g.handleListView},
		entity.EventListJoin:       {requiresAuth: true, handle: g.handleListJoin},
		entity.EventListLeave:      {requiresAuth: true, handle: g.handleListLeave},
		entity.EventItemCreate:     {requiresAuth: true, handle: g.handleItemCreate},
		entity.EventItemUpdate:     {requiresAuth: true, handle: g.handleItemUpdate},
		entity.EventListItemUpdate: {requiresAuth: true, handle: g.handleListItemUpdate},
	}
	return g
}

// Connect is called once a websocket connection got upgraded.
func (g *Gateway) Connect(ctx context.Context, connID string) {
	g.logger.WithCtx(ctx).Info().Str("conn", connID).Msg("Websocket client connected")
}

// Disconnect unbinds connID, it must be called exactly once per connection.
func (g *Gateway) Disconnect(ctx context.Context, connID string) {
	identity, offline := g.registry.Unbind(connID)
	if offline {
		g.syncPresence(ctx, identity)
	}
	g.logger.WithCtx(ctx).Info().Str("conn", connID).Bool("offline", offline).Msg("Websocket client disconnected")
}

// Receive decodes a raw websocket frame and dispatches it.
func (g *Gateway) Receive(ctx context.Context, connID string, payload []byte) {
	var msg entity.InboundMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		ctx = log.WithRequestID(ctx, uuid.NewString())
		g.replyError(ctx, connID, "", errors.ValidationFailed("Malformed message"))
		return
	}
	g.Dispatch(ctx, connID, msg)
}

// Dispatch handles one inbound message. Failures only ever reach the originating connection.
func (g *Gateway) Dispatch(ctx context.Context, connID string, msg entity.InboundMessage) {
	ctx = log.WithRequestID(ctx, uuid.NewString())
	defer func() {
		if r := recover(); r != nil {
			g.logger.WithCtx(ctx).Error().Interface("panic", r).Str("event", msg.Event).Msg("Recovered from panic in gateway handler")
			g.replyError(ctx, connID, msg.Event, errors.InternalServerError(""))
		}
	}()

	h, ok := g.handlers[msg.Event]
	if !ok {
		g.replyError(ctx, connID, msg.Event, errors.ValidationFailed("Unknown event "+msg.Event))
		return
	}
	identity, authenticated := g.registry.IdentityFor(connID)
	if h.requiresAuth && !authenticated {
		g.replyError(ctx, connID, msg.Event, errors.AuthenticationRequired(""))
		return
	}

	out, err := h.handle(ctx, request{connID: connID, identity: identity, data: msg.Data})
	if err != nil {
		g.replyError(ctx, connID, msg.Event, err)
		return
	}
	g.reply(ctx, connID, msg.Event, out.reply)
	if out.broadcast != nil {
		g.runBroadcast(ctx, msg.Event, out.broadcast)
	}
}

// runBroadcast fans out after the reply went out, a failure here is only logged.
func (g *Gateway) runBroadcast(ctx context.Context, event string, broadcast func(ctx context.Context)) {
	defer func() {
		if r := recover(); r != nil {
			g.logger.WithCtx(ctx).Error().Interface("panic", r).Str("event", event).Msg("Recovered from panic in gateway broadcast")
		}
	}()
	broadcast(ctx)
}

// bind associates connID with identity and mirrors presence changes.
func (g *Gateway) bind(ctx context.Context, connID, identity string) {
	online, offline := g.registry.Bind(connID, identity)
	if offline != "" {
		g.syncPresence(ctx, offline)
	}
	if online {
		g.syncPresence(ctx, identity)
	}
}

// syncPresence writes the current registry state of identity into the presence set.
// Writes of one identity are serialized and each one reads the registry after taking the
// lock, so the last write always matches the registry.
func (g *Gateway) syncPresence(ctx context.Context, identity string) {
	if g.presence == nil {
		return
	}
	unlock := g.lockIdentity(identity)
	defer unlock()
	if len(g.registry.ConnectionsFor(identity)) > 0 {
		g.presence.AddClient(ctx, g.logger, identity)
	} else {
		g.presence.RemoveClient(ctx, g.logger, identity)
	}
}

func (g *Gateway) lockIdentity(identity string) func() {
	g.presenceMu.Lock()
	l, ok := g.presenceLocks[identity]
	if !ok {
		l = &identityLock{}
		g.presenceLocks[identity] = l
	}
	l.refs++
	g.presenceMu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		g.presenceMu.Lock()
		if l.refs--; l.refs == 0 {
			delete(g.presenceLocks, identity)
		}
		g.presenceMu.Unlock()
	}
}

func (g *Gateway) reply(ctx context.Context, connID, event string, data interface{}) {
	if err := g.sender.Send(connID, entity.OutboundMessage{Event: event, Data: data}); err != nil {
		g.logger.WithCtx(ctx).Warn().Err(err).Str("conn", connID).Str("event", event).Msg("Couldn't deliver reply")
	}
}

func (g *Gateway) replyError(ctx context.Context, connID, event string, err error) {
	resp := errors.As(err)
	if resp.Kind == errors.InternalKind {
		g.logger.WithCtx(ctx).Error().Err(err).Str("event", event).Msg("Error occured while handling websocket message")
	}
	g.reply(ctx, connID, entity.EventError, entity.ErrorReply{
		Event:   event,
		Error:   resp.Message,
		Kind:    string(resp.Kind),
		Details: resp.Details,
	})
}

// snapshotOf defers the snapshot fetch of listID to whenever the notifier fires.
func (g *Gateway) snapshotOf(listID string) notifier.Producer {
	return func(ctx context.Context) (interface{}, error) {
		return g.lists.GetListSnapshot(ctx, listID)
	}
}

// emitSnapshot publishes the current snapshot of listID without debouncing.
// A failed fetch is logged and nothing is broadcast.
func (g *Gateway) emitSnapshot(listID string, action entity.Action) func(ctx context.Context) {
	return func(ctx context.Context) {
		snapshot, err := g.lists.GetListSnapshot(ctx, listID)
		if err != nil {
			g.logger.WithCtx(ctx).Error().Err(err).Str("listId", listID).Str("action", string(action)).Msg("Couldn't fetch list snapshot for broadcast")
			return
		}
		g.notifier.EmitImmediately(ctx, entity.ListResourceKey(listID), action, snapshot)
	}
}

// scheduleSnapshot debounces the broadcast of listID.
func (g *Gateway) scheduleSnapshot(listID string, action entity.Action) func(ctx context.Context) {
	return func(ctx context.Context) {
		g.notifier.ScheduleUpdate(ctx, entity.ListResourceKey(listID), action, g.snapshotOf(listID))
	}
}
