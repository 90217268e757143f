// In-memory realtime counters of Wanna, fed by the notifier, the router and the gateway.

package metrics

import (
	"Wanna/internal/entity"
	"sync/atomic"
)

// GaugeSource reports the live connection gauges, implemented by the connection registry.
type GaugeSource interface {
	BoundConnections() int
	OnlineIdentities() int
}

// Collector counts realtime events. A nil *Collector is valid and counts nothing.
type Collector struct {
	broadcasts       atomic.Int64
	deliveries       atomic.Int64
	failedDeliveries atomic.Int64
	coalesced        atomic.Int64
	immediate        atomic.Int64
	gauges           atomic.Value
}

func NewCollector() *Collector {
	return &Collector{}
}

// TrackGauges makes Snapshot report the gauges of src.
func (c *Collector) TrackGauges(src GaugeSource) {
	if c == nil || src == nil {
		return
	}
	c.gauges.Store(gaugeHolder{src})
}

// gaugeHolder keeps the concrete type stored in atomic.Value constant.
type gaugeHolder struct{ GaugeSource }

func (c *Collector) IncBroadcasts() {
	if c != nil {
		c.broadcasts.Add(1)
	}
}

func (c *Collector) AddDeliveries(n int) {
	if c != nil {
		c.deliveries.Add(int64(n))
	}
}

func (c *Collector) AddFailedDeliveries(n int) {
	if c != nil {
		c.failedDeliveries.Add(int64(n))
	}
}

func (c *Collector) IncCoalesced() {
	if c != nil {
		c.coalesced.Add(1)
	}
}

func (c *Collector) IncImmediate() {
	if c != nil {
		c.immediate.Add(1)
	}
}

// Snapshot returns the current value of every counter and gauge.
func (c *Collector) Snapshot() entity.Metrics {
	if c == nil {
		return entity.Metrics{}
	}
	m := entity.Metrics{
		Broadcasts:       c.broadcasts.Load(),
		Deliveries:       c.deliveries.Load(),
		FailedDeliveries: c.failedDeliveries.Load(),
		CoalescedUpdates: c.coalesced.Load(),
		ImmediateEmits:   c.immediate.Load(),
	}
	if g, ok := c.gauges.Load().(gaugeHolder); ok {
		m.ActiveConnections = int64(g.BoundConnections())
		m.OnlineIdentities = int64(g.OnlineIdentities())
	}
	return m
}
