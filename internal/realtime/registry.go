package realtime

import (
	"sync"
)

// memberSet is one scope's audience. Every set carries its own lock, so
// membership changes on unrelated scopes never contend. A set that empties
// is marked dead and removed from the map; a writer that raced onto a dead
// set re-fetches a live one.
type memberSet struct {
	mu      sync.Mutex
	dead    bool
	members map[string]struct{}
}

// scopeIndex mirrors memberSet on the subscriber side: the scopes one
// subscriber is joined to, with the same per-entry lock and dead flag.
type scopeIndex struct {
	mu     sync.Mutex
	dead   bool
	scopes map[Scope]struct{}
}

// Registry tracks which subscriber is joined to which scope. It is the
// membership book only: authorization happens in the Gatekeeper before
// Join, and delivery happens in the Hub.
//
// Join and Leave are idempotent, so transports may retry them freely.
// All methods are safe for concurrent use. Locking is per scope and per
// subscriber: byScope and bySubscriber are sync.Maps whose entries each
// own their mutex, so joins on unrelated scopes proceed in parallel.
type Registry struct {
	byScope      sync.Map // Scope -> *memberSet
	bySubscriber sync.Map // string -> *scopeIndex
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Join adds the subscriber to the scope's audience. Joining a scope the
// subscriber is already in is a no-op.
func (r *Registry) Join(scope Scope, subscriberID string) {
	for {
		v, _ := r.byScope.LoadOrStore(scope, &memberSet{members: make(map[string]struct{})})
		set := v.(*memberSet)
		set.mu.Lock()
		if set.dead {
			set.mu.Unlock()
			continue
		}
		set.members[subscriberID] = struct{}{}
		set.mu.Unlock()
		break
	}

	for {
		v, _ := r.bySubscriber.LoadOrStore(subscriberID, &scopeIndex{scopes: make(map[Scope]struct{})})
		index := v.(*scopeIndex)
		index.mu.Lock()
		if index.dead {
			index.mu.Unlock()
			continue
		}
		index.scopes[scope] = struct{}{}
		index.mu.Unlock()
		break
	}
}

// Leave removes the subscriber from the scope's audience. Leaving a scope
// the subscriber is not in is a no-op.
func (r *Registry) Leave(scope Scope, subscriberID string) {
	r.leaveScope(scope, subscriberID)
	r.forgetScope(subscriberID, scope)
}

// Drop removes the subscriber from every scope it joined, used when its
// connection goes away.
func (r *Registry) Drop(subscriberID string) {
	v, ok := r.bySubscriber.Load(subscriberID)
	if !ok {
		return
	}
	index := v.(*scopeIndex)

	index.mu.Lock()
	scopes := make([]Scope, 0, len(index.scopes))
	for scope := range index.scopes {
		scopes = append(scopes, scope)
	}
	if !index.dead {
		index.dead = true
		r.bySubscriber.Delete(subscriberID)
	}
	index.mu.Unlock()

	for _, scope := range scopes {
		r.leaveScope(scope, subscriberID)
	}
}

// SubscribersOf returns the ids of every subscriber joined to the scope.
func (r *Registry) SubscribersOf(scope Scope) []string {
	v, ok := r.byScope.Load(scope)
	if !ok {
		return nil
	}
	set := v.(*memberSet)

	set.mu.Lock()
	defer set.mu.Unlock()
	if len(set.members) == 0 {
		return nil
	}

	ids := make([]string, 0, len(set.members))
	for id := range set.members {
		ids = append(ids, id)
	}
	return ids
}

// ScopesOf returns every scope the subscriber is joined to.
func (r *Registry) ScopesOf(subscriberID string) []Scope {
	v, ok := r.bySubscriber.Load(subscriberID)
	if !ok {
		return nil
	}
	index := v.(*scopeIndex)

	index.mu.Lock()
	defer index.mu.Unlock()
	if len(index.scopes) == 0 {
		return nil
	}

	scopes := make([]Scope, 0, len(index.scopes))
	for scope := range index.scopes {
		scopes = append(scopes, scope)
	}
	return scopes
}

// leaveScope removes the subscriber from the scope's member set, retiring
// the set when it empties. The map entry is deleted while its lock is held,
// which is what keeps a racing Join from resurrecting a retired set.
func (r *Registry) leaveScope(scope Scope, subscriberID string) {
	v, ok := r.byScope.Load(scope)
	if !ok {
		return
	}
	set := v.(*memberSet)

	set.mu.Lock()
	defer set.mu.Unlock()
	if set.dead {
		return
	}
	delete(set.members, subscriberID)
	if len(set.members) == 0 {
		set.dead = true
		r.byScope.Delete(scope)
	}
}

// forgetScope is leaveScope's mirror on the subscriber index.
func (r *Registry) forgetScope(subscriberID string, scope Scope) {
	v, ok := r.bySubscriber.Load(subscriberID)
	if !ok {
		return
	}
	index := v.(*scopeIndex)

	index.mu.Lock()
	defer index.mu.Unlock()
	if index.dead {
		return
	}
	delete(index.scopes, scope)
	if len(index.scopes) == 0 {
		index.dead = true
		r.bySubscriber.Delete(subscriberID)
	}
}
