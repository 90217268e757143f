// Connection registry of Wanna, binds live websocket connections to authenticated identities.

package registry

import (
	"sort"
	"sync"
)

// Registry holds the bidirectional connection <-> identity association.
// A connection maps to at most one identity, an identity maps to any number of connections.
// Operations never fail, unknown keys yield empty results.
type Registry struct {
	mu          sync.RWMutex
	identities  map[string]string
	connections map[string]map[string]struct{}
}

// Returns an empty Registry, each subsystem owns its own instance.
func New() *Registry {
	return &Registry{
		identities:  make(map[string]string),
		connections: make(map[string]map[string]struct{}),
	}
}

// Bind associates connID with identity, replacing any previous identity of connID.
// online reports whether identity had no live connection before this call and offline names the
// previous identity of connID if the rebind left it without connections.
func (r *Registry) Bind(connID, identity string) (online bool, offline string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.identities[connID]; ok {
		if prev == identity {
			return false, ""
		}
		if r.detach(connID, prev) {
			offline = prev
		}
	}

	r.identities[connID] = identity
	conns, ok := r.connections[identity]
	if !ok {
		conns = make(map[string]struct{})
		r.connections[identity] = conns
	}
	conns[connID] = struct{}{}

	return !ok, offline
}

// Unbind removes connID from whatever identity it was bound to, no-op if unbound.
// offline reports whether identity has no live connection left.
func (r *Registry) Unbind(connID string) (identity string, offline bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	identity, ok := r.identities[connID]
	if !ok {
		return "", false
	}
	delete(r.identities, connID)
	return identity, r.detach(connID, identity)
}

// detach drops connID from the connection set of identity and prunes the set once empty.
// Caller must hold the write lock.
func (r *Registry) detach(connID, identity string) bool {
	conns := r.connections[identity]
	delete(conns, connID)
	if len(conns) == 0 {
		delete(r.connections, identity)
		return true
	}
	return false
}

// ConnectionsFor returns a sorted copy of the live connections of identity.
func (r *Registry) ConnectionsFor(identity string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := r.connections[identity]
	ids := make([]string, 0, len(conns))
	for id := range conns {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// IdentityFor returns the identity bound to connID.
func (r *Registry) IdentityFor(connID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	identity, ok := r.identities[connID]
	return identity, ok
}

// BoundConnections returns the number of connections bound to an identity.
func (r *Registry) BoundConnections() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.identities)
}

// OnlineIdentities returns the number of identities with at least one live connection.
func (r *Registry) OnlineIdentities() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.connections)
}
