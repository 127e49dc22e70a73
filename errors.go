package appuniverse

import (
	"errors"
	"fmt"
)

// SubscriptionNotFoundError is returned by Store.Unsubscribe when the given
// subscription is not registered: it was already removed, it belongs to a
// different store, or it is the zero Subscription.
type SubscriptionNotFoundError struct {
	// ID is the identity carried by the rejected handle.
	ID uint64
}

func (e *SubscriptionNotFoundError) Error() string {
	return fmt.Sprintf("subscription %d not found", e.ID)
}

// IsSubscriptionNotFound checks if an error is a SubscriptionNotFoundError,
// unwrapping as needed.
func IsSubscriptionNotFound(err error) bool {
	var notFound *SubscriptionNotFoundError
	return errors.As(err, &notFound)
}
