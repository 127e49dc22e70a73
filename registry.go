package appuniverse

import (
	"slices"
	"sync"
	"sync/atomic"
)

// subscriptionIDs allocates subscription identities for every registry in
// the process. One monotonic counter keeps identities unique across stores,
// so a handle minted by one store can never match a record in another.
var subscriptionIDs atomic.Uint64

// record pairs a subscriber with the identity it was registered under.
type record[M any, C Core[M]] struct {
	id uint64
	fn Subscriber[M, C]
}

// registry holds one store's subscribers in registration order.
//
// Thread-safety: all methods are safe for concurrent use. notify invokes
// subscribers outside the lock, so a subscriber may add or remove
// registrations; the change takes effect on the next dispatch.
type registry[M any, C Core[M]] struct {
	mu      sync.RWMutex
	records []record[M, C]
}

// add registers fn at the end of the notification order and returns its
// handle.
func (r *registry[M, C]) add(fn Subscriber[M, C]) Subscription {
	id := subscriptionIDs.Add(1)

	r.mu.Lock()
	r.records = append(r.records, record[M, C]{id: id, fn: fn})
	r.mu.Unlock()

	return Subscription{id: id}
}

// remove deletes the record named by sub, preserving the relative order of
// the remaining records. It reports whether a record was found.
func (r *registry[M, C]) remove(sub Subscription) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.records {
		if r.records[i].id == sub.id {
			r.records = slices.Delete(r.records, i, i+1)
			return true
		}
	}
	return false
}

// notify invokes every subscriber registered at the start of the call, in
// registration order, passing each the handle u.
func (r *registry[M, C]) notify(u Store[M, C]) {
	r.mu.RLock()
	snapshot := slices.Clone(r.records)
	r.mu.RUnlock()

	for _, rec := range snapshot {
		rec.fn(u)
	}
}

// size returns the number of registered subscribers.
func (r *registry[M, C]) size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}
