// Package registry implements the per-connection namespace of live
// protocol objects: allocation, lookup, and deletion-acknowledged
// recycling of object ids.
package registry

import (
	"sync"

	"github.com/waylens/waylens/internal/constants"
)

// ObjectID identifies a protocol object within one client connection.
type ObjectID uint32

// Object is anything the registry can hold: a concrete protocol object
// with a known interface name and bound version.
type Object interface {
	Interface() string
	Version() uint32
}

// Registry is a connection-scoped table of live objects, mirroring the
// teacher's single authoritative device-ID table: a flat map guarded by
// one mutex, since object churn per connection is bursty but not
// contended across goroutines (exactly one goroutine dispatches for a
// given connection at a time).
type Registry struct {
	mu        sync.RWMutex
	objects   map[ObjectID]Object
	nextClientID ObjectID
	nextServerID ObjectID
	pendingRecycle map[ObjectID]struct{} // removed, awaiting deletion ack before reuse
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		objects:        make(map[ObjectID]Object),
		nextClientID:   constants.MinClientID,
		nextServerID:   constants.ServerIDBase,
		pendingRecycle: make(map[ObjectID]struct{}),
	}
}

// AllocateClientID hands out the next id in the client-allocated range.
// Real client ids normally arrive in the request itself (the client
// picks its own new_id); this is used for server-side bookkeeping of
// what range is in use, and by tests constructing objects directly.
func (r *Registry) AllocateClientID() ObjectID {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.nextClientID
	r.nextClientID++
	return id
}

// AllocateServerID hands out the next id in the server-allocated range
// (globals, server-created helper objects).
func (r *Registry) AllocateServerID() ObjectID {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.nextServerID
	r.nextServerID++
	return id
}

// Register installs obj at id. It fails with ErrAlreadyRegistered if id
// is live, or was removed and has not been recycled yet.
func (r *Registry) Register(id ObjectID, obj Object) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.objects[id]; exists {
		return ErrAlreadyRegistered
	}
	if _, pending := r.pendingRecycle[id]; pending {
		return ErrAlreadyRegistered
	}
	r.objects[id] = obj
	return nil
}

// Lookup returns the live object at id, if any.
func (r *Registry) Lookup(id ObjectID) (Object, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	obj, ok := r.objects[id]
	return obj, ok
}

// LookupInterface returns the live object at id if it exists and
// implements iface, failing with ErrInvalidObject otherwise — the
// invariant from §4.1(c).
func (r *Registry) LookupInterface(id ObjectID, iface string) (Object, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	obj, ok := r.objects[id]
	if !ok {
		return nil, ErrUnknownID
	}
	if obj.Interface() != iface {
		return nil, ErrInvalidObject
	}
	return obj, nil
}

// Remove deletes id from the live table and marks it pending recycle.
// Per §4.1(b), the caller is responsible for having already sent the
// client a deletion notice before calling Recycle.
func (r *Registry) Remove(id ObjectID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.objects, id)
	r.pendingRecycle[id] = struct{}{}
}

// Recycle marks id eligible for reuse by a future Register call. It is
// a no-op if id was never removed or was already recycled.
func (r *Registry) Recycle(id ObjectID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.pendingRecycle, id)
}

// Len reports the number of currently live objects, for diagnostics.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.objects)
}

// IsPendingRecycle reports whether id was removed but not yet recycled.
func (r *Registry) IsPendingRecycle(id ObjectID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, pending := r.pendingRecycle[id]
	return pending
}
