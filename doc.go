// Package appuniverse is a small state container: one universe of
// application state, mutated only by messages and observed through
// subscriptions.
//
// An application defines a core type holding its state and a message type
// naming every mutation, then creates a store:
//
//	type counterMsg struct{ by uint8 }
//
//	type counterState struct{ counter uint8 }
//
//	func (s *counterState) Apply(msg counterMsg) { s.counter += msg.by }
//
//	store := appuniverse.New[counterMsg](&counterState{})
//
// Store handles are cheap values: pass them by copy or call Clone, every
// handle reaches the same universe. Read gives scoped access to the current
// state, Send applies one message and then notifies subscribers in
// registration order, and Subscribe/Unsubscribe manage the subscriber list.
//
// The container is built for cooperative use. State access is guarded by
// locks so handles may be shared across goroutines, but dispatch is
// serialized and subscribers run synchronously on the sending goroutine.
// Subscribers and Read callbacks must not dispatch further messages; see
// Send for the re-entrancy rules.
package appuniverse
