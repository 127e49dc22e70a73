package appuniverse

// Subscription identifies one registered subscriber so it can be removed
// later. Identities come from a process-wide counter and are never reused,
// so a stale handle, or one minted by a different store, can never remove a
// subscriber it does not name.
//
// The zero Subscription names nothing; Unsubscribe rejects it with
// SubscriptionNotFoundError.
type Subscription struct {
	id uint64
}
