// Debounced notifier of Wanna, coalesces bursts of change signals per resource into one broadcast.

package notifier

import (
	"Wanna/internal/entity"
	"Wanna/internal/metrics"
	"Wanna/pkg/log"
	"context"
	"sort"
	"sync"
	"time"
)

// DefaultWindow is the delay between the first change signal of a burst and its broadcast.
const DefaultWindow = 300 * time.Millisecond

// Producer computes the payload of an update, evaluated when the update fires.
type Producer func(ctx context.Context) (interface{}, error)

// Publisher delivers a payload to the subscribers of a resource, implemented by the broadcast router.
type Publisher interface {
	Publish(ctx context.Context, key entity.ResourceKey, action entity.Action, data interface{})
}

// Option configures a Notifier.
type Option func(*Notifier)

// WithWindow overrides DefaultWindow, non-positive values are ignored.
func WithWindow(window time.Duration) Option {
	return func(n *Notifier) {
		if window > 0 {
			n.window = window
		}
	}
}

// WithMetrics counts coalesced and immediate emissions into collector.
func WithMetrics(collector *metrics.Collector) Option {
	return func(n *Notifier) {
		n.metrics = collector
	}
}

// pending is the single deferred update of one resource key.
// action, produce and ctx are replaced by later requests, deadline and timer never are.
type pending struct {
	ctx      context.Context
	action   entity.Action
	produce  Producer
	deadline time.Time
	timer    *time.Timer
}

// Notifier owns the pending update of every resource key.
type Notifier struct {
	publisher Publisher
	logger    log.Logger
	window    time.Duration
	metrics   *metrics.Collector

	mu      sync.Mutex
	pending map[entity.ResourceKey]*pending
	closed  bool
}

func New(publisher Publisher, logger log.Logger, opts ...Option) *Notifier {
	n := &Notifier{
		publisher: publisher,
		logger:    logger,
		window:    DefaultWindow,
		pending:   make(map[entity.ResourceKey]*pending),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Window returns the debounce window of n.
func (n *Notifier) Window() time.Duration {
	return n.window
}

// ScheduleUpdate requests a deferred broadcast of key.
// The first request of a burst starts the window, later requests inside it only replace
// action and produce. After Shutdown the update is published right away.
func (n *Notifier) ScheduleUpdate(ctx context.Context, key entity.ResourceKey, action entity.Action, produce Producer) {
	// The request context may end before the timer fires, its values are kept for logging
	ctx = context.WithoutCancel(ctx)

	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		n.deliver(ctx, key, action, produce)
		return
	}
	if p, ok := n.pending[key]; ok {
		p.ctx, p.action, p.produce = ctx, action, produce
		n.mu.Unlock()
		n.metrics.IncCoalesced()
		n.logger.WithCtx(ctx).Debug().Str("key", string(key)).Time("deadline", p.deadline).Msg("Coalesced update into pending broadcast")
		return
	}
	p := &pending{ctx: ctx, action: action, produce: produce, deadline: time.Now().Add(n.window)}
	p.timer = time.AfterFunc(n.window, func() { n.fire(key, p) })
	n.pending[key] = p
	n.mu.Unlock()
}

// EmitImmediately publishes data for key synchronously and discards any pending update of key.
func (n *Notifier) EmitImmediately(ctx context.Context, key entity.ResourceKey, action entity.Action, data interface{}) {
	n.mu.Lock()
	if p, ok := n.pending[key]; ok {
		p.timer.Stop()
		delete(n.pending, key)
	}
	n.mu.Unlock()

	n.metrics.IncImmediate()
	n.publisher.Publish(ctx, key, action, data)
}

// Flush fires the pending update of key now and reports whether there was one.
func (n *Notifier) Flush(ctx context.Context, key entity.ResourceKey) bool {
	n.mu.Lock()
	p, ok := n.pending[key]
	if ok {
		p.timer.Stop()
		delete(n.pending, key)
	}
	n.mu.Unlock()

	if !ok {
		return false
	}
	n.deliver(ctx, key, p.action, p.produce)
	return true
}

// FlushAll fires every pending update now, in key order, and returns how many fired.
func (n *Notifier) FlushAll(ctx context.Context) int {
	n.mu.Lock()
	drained := make(map[entity.ResourceKey]*pending, len(n.pending))
	keys := make([]string, 0, len(n.pending))
	for key, p := range n.pending {
		p.timer.Stop()
		drained[key] = p
		keys = append(keys, string(key))
	}
	n.pending = make(map[entity.ResourceKey]*pending)
	n.mu.Unlock()

	sort.Strings(keys)
	for _, key := range keys {
		p := drained[entity.ResourceKey(key)]
		n.deliver(ctx, entity.ResourceKey(key), p.action, p.produce)
	}
	return len(keys)
}

// Shutdown drains every pending update, later schedules are published without delay.
func (n *Notifier) Shutdown(ctx context.Context) error {
	n.mu.Lock()
	n.closed = true
	n.mu.Unlock()

	flushed := n.FlushAll(ctx)
	n.logger.WithCtx(ctx).Info().Int("flushed", flushed).Msg("Drained pending broadcasts")
	return ctx.Err()
}

// IsPending reports whether key has an update waiting for its window to elapse.
func (n *Notifier) IsPending(key entity.ResourceKey) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	_, ok := n.pending[key]
	return ok
}

// fire runs when the window of p elapses, unless p was flushed or replaced meanwhile.
func (n *Notifier) fire(key entity.ResourceKey, p *pending) {
	n.mu.Lock()
	if cur, ok := n.pending[key]; !ok || cur != p {
		n.mu.Unlock()
		return
	}
	delete(n.pending, key)
	ctx, action, produce := p.ctx, p.action, p.produce
	n.mu.Unlock()

	n.deliver(ctx, key, action, produce)
}

// deliver evaluates produce and hands its result to the publisher.
// Producer failures are logged and dropped so a key never stays stuck.
func (n *Notifier) deliver(ctx context.Context, key entity.ResourceKey, action entity.Action, produce Producer) {
	defer func() {
		if r := recover(); r != nil {
			n.logger.WithCtx(ctx).Error().Str("key", string(key)).Interface("panic", r).Msg("Recovered from panic in debounced update producer")
		}
	}()

	data, err := produce(ctx)
	if err != nil {
		n.logger.WithCtx(ctx).Error().Err(err).Str("key", string(key)).Str("action", string(action)).Msg("Couldn't produce debounced update, dropping it")
		return
	}
	n.publisher.Publish(ctx, key, action, data)
}
