// Structure of Wanna Metrics Model.

package entity

// Realtime counters, persisted in DB as wanna:metrics.
type Metrics struct {
	ActiveConnections int64 `json:"active_connections" redis:"active_connections"`
	OnlineIdentities  int64 `json:"online_identities" redis:"online_identities"`
	Broadcasts        int64 `json:"broadcasts" redis:"broadcasts"`
	Deliveries        int64 `json:"deliveries" redis:"deliveries"`
	FailedDeliveries  int64 `json:"failed_deliveries" redis:"failed_deliveries"`
	CoalescedUpdates  int64 `json:"coalesced_updates" redis:"coalesced_updates"`
	ImmediateEmits    int64 `json:"immediate_emits" redis:"immediate_emits"`
}
