// Structure of the realtime messages exchanged with websocket clients.

package entity

import (
	"encoding/json"
	"strings"
)

// Inbound event kinds.
const (
	EventAuth           = "auth"
	EventListCreate     = "list:create"
	EventListUpdate     = "list:update"
	EventListView       = "list:view"
	EventListJoin       = "list:join"
	EventListLeave      = "list:leave"
	EventItemCreate     = "item:create"
	EventItemUpdate     = "item:update"
	EventListItemUpdate = "listItem:update"
	// Outbound only.
	EventError = "error"
)

const listKeyPrefix = "list:"

// ResourceKey identifies the broadcast channel of one list.
type ResourceKey string

// ListResourceKey derives the broadcast channel of the list listID.
func ListResourceKey(listID string) ResourceKey {
	return ResourceKey(listKeyPrefix + listID)
}

// ListID returns the list identifier encoded in k.
func (k ResourceKey) ListID() (string, bool) {
	id, ok := strings.CutPrefix(string(k), listKeyPrefix)
	return id, ok && id != ""
}

// Action tells subscribers what happened to the resource.
type Action string

const (
	ActionCreated     Action = "created"
	ActionUpdated     Action = "updated"
	ActionJoined      Action = "joined"
	ActionLeft        Action = "left"
	ActionItemCreated Action = "itemCreated"
	ActionItemUpdated Action = "itemUpdated"
)

// Unit delivered to every subscriber of Key.
type BroadcastPayload struct {
	Key    ResourceKey `json:"-"`
	Action Action      `json:"action"`
	Data   interface{} `json:"data"`
}

// Message received from a client.
type InboundMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Message sent to a client, either a direct reply or a broadcast addressed by resource key.
type OutboundMessage struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// Data of an outbound error message, only ever sent to the originating connection.
type ErrorReply struct {
	Event   string      `json:"event"`
	Error   string      `json:"error"`
	Kind    string      `json:"kind"`
	Details interface{} `json:"details,omitempty"`
}
