package appuniverse

// Core is the application-defined universe of state. A Core owns all data
// the container manages and knows how to advance it: Apply consumes one
// message and mutates the universe in place.
//
// Apply must be a plain state transition. It runs while the store holds its
// write lock, so it must not block, perform I/O, or call back into the
// store that owns it.
type Core[M any] interface {
	Apply(msg M)
}

// Subscriber is a callback invoked after each applied message. It receives
// a handle sharing the same underlying store, so it can read the state the
// message produced. Subscribers must not call Send on the handle; see
// Store.Send.
type Subscriber[M any, C Core[M]] func(u Store[M, C])
