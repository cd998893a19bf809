// Package keylock provides a keyed mutual exclusion primitive: at most one
// holder per key, with unrelated keys proceeding fully in parallel.
//
// It backs the per-order mutation path: two concurrent status mutations for
// the same order id serialize on its key, while mutations of different orders
// never contend. Waiters for a key queue in FIFO order (blocked channel sends
// are woken first-in first-out by the runtime), so rapid chained transitions
// observe a consistent sequence and no waiter starves.
//
// A waiter that cannot acquire its key within the configured bound fails with
// errs.ResourceBusyError rather than waiting indefinitely, bounding worst-case
// latency under pathological contention on a single key.
package keylock

import (
	"context"
	"sync"
	"time"

	"orderflow/internal/pkg/errs"
)

// DefaultMaxWait bounds lock acquisition when no explicit bound is given.
const DefaultMaxWait = 5 * time.Second

// KeyedMutex serializes critical sections per key.
// The zero value is not usable; create instances via NewKeyedMutex.
type KeyedMutex struct {
	maxWait time.Duration

	mu      sync.Mutex
	entries map[string]*entry
}

// entry is one key's semaphore plus a reference count of holders and waiters,
// used to garbage-collect idle keys.
type entry struct {
	sem  chan struct{}
	refs int
}

// NewKeyedMutex creates a keyed mutex whose acquisitions wait at most maxWait.
// A non-positive maxWait falls back to DefaultMaxWait.
func NewKeyedMutex(maxWait time.Duration) *KeyedMutex {
	if maxWait <= 0 {
		maxWait = DefaultMaxWait
	}
	return &KeyedMutex{
		maxWait: maxWait,
		entries: make(map[string]*entry),
	}
}

// Acquire obtains the exclusive critical section for key.
//
// On success it returns a release function that must be called exactly once,
// typically via defer. On contention beyond the configured bound it returns
// *errs.ResourceBusyError. If ctx is cancelled while waiting, the context
// error is returned; cancellation after acquisition has no effect, by
// contract the critical section always runs to completion.
func (k *KeyedMutex) Acquire(ctx context.Context, key string) (func(), error) {
	e := k.checkout(key)

	timer := time.NewTimer(k.maxWait)
	defer timer.Stop()

	select {
	case e.sem <- struct{}{}:
		return func() {
			<-e.sem
			k.checkin(key)
		}, nil
	case <-timer.C:
		k.checkin(key)
		return nil, errs.NewResourceBusyError(key)
	case <-ctx.Done():
		k.checkin(key)
		return nil, ctx.Err()
	}
}

func (k *KeyedMutex) checkout(key string) *entry {
	k.mu.Lock()
	defer k.mu.Unlock()

	e, ok := k.entries[key]
	if !ok {
		e = &entry{sem: make(chan struct{}, 1)}
		k.entries[key] = e
	}
	e.refs++
	return e
}

func (k *KeyedMutex) checkin(key string) {
	k.mu.Lock()
	defer k.mu.Unlock()

	e, ok := k.entries[key]
	if !ok {
		return
	}
	e.refs--
	if e.refs == 0 {
		delete(k.entries, key)
	}
}
