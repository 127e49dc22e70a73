package appuniverse

import (
	"io"
	"log/slog"
	"sync"
)

// config holds the settings applied by New.
type config struct {
	logger *slog.Logger
}

// Option configures a store created by New.
type Option func(*config)

// WithLogger sets the logger the store emits debug events to. The default
// logger discards everything.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// state is the shared heart of a store. Every handle cloned from the same
// New call points at one state value.
type state[M any, C Core[M]] struct {
	// sendMu serializes whole dispatches: apply, then notify. Holding it
	// across notification keeps one message's subscriber pass complete
	// before the next message mutates the core.
	sendMu sync.Mutex

	// mu guards core and the capture fields. Read takes it shared; Send and
	// Write take it exclusive. It is never held while subscribers run.
	mu   sync.RWMutex
	core C

	subs   registry[M, C]
	logger *slog.Logger

	capture  bool
	captured []M
}

// Store is a shareable handle to one universe of application state. Copying
// a Store, whether by assignment, by passing it to a function, or through
// Clone, yields another handle to the same universe; no copy is privileged
// over the others.
//
// The zero Store is not usable; create one with New.
type Store[M any, C Core[M]] struct {
	inner *state[M, C]
}

// New creates a store owning core and returns the first handle to it. The
// message type is named explicitly and the core type is inferred:
//
//	store := appuniverse.New[counterMsg](&counterState{})
func New[M any, C Core[M]](core C, opts ...Option) Store[M, C] {
	cfg := config{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return Store[M, C]{inner: &state[M, C]{
		core:   core,
		logger: cfg.logger,
	}}
}

// Clone returns another handle to the same universe. Messages sent through
// either handle are visible through both, and subscriptions registered
// through one can be removed through the other.
func (s Store[M, C]) Clone() Store[M, C] {
	return Store[M, C]{inner: s.inner}
}

// Read calls fn with the current core while holding the state lock shared.
// fn must treat the core as read-only and must not retain it past the
// call, and must not call Send, Write, or Read on the store.
func (s Store[M, C]) Read(fn func(core C)) {
	st := s.inner
	st.mu.RLock()
	defer st.mu.RUnlock()
	fn(st.core)
}

// Send applies msg to the core, then notifies every subscriber in
// registration order. Each subscriber receives a handle to this store, and
// the notification pass for msg finishes before a concurrent Send may
// apply the next message.
//
// Send must not be called from a subscriber or from a Read or Write
// callback; doing so deadlocks on the dispatch lock.
//
// While message capture is enabled (see SetCaptureMessages), msg is
// buffered instead: the core is not mutated and no subscriber runs.
func (s Store[M, C]) Send(msg M) {
	st := s.inner

	st.sendMu.Lock()
	defer st.sendMu.Unlock()

	st.mu.Lock()
	if st.capture {
		st.captured = append(st.captured, msg)
		buffered := len(st.captured)
		st.mu.Unlock()
		st.logger.Debug("message captured", "buffered", buffered)
		return
	}
	st.core.Apply(msg)
	st.mu.Unlock()

	st.logger.Debug("message applied", "subscribers", st.subs.size())
	st.subs.notify(s)
}

// Subscribe registers fn to run after every applied message, ordered after
// all earlier registrations. The returned Subscription removes exactly this
// registration, even when another subscriber has an identical body.
func (s Store[M, C]) Subscribe(fn Subscriber[M, C]) Subscription {
	sub := s.inner.subs.add(fn)
	s.inner.logger.Debug("subscriber added", "subscription_id", sub.id)
	return sub
}

// Unsubscribe removes the registration named by sub, leaving the relative
// order of the remaining subscribers unchanged. If sub does not name a
// current registration on this store, Unsubscribe returns
// SubscriptionNotFoundError and the registry is untouched.
//
// A dispatch already past its snapshot may still deliver one final
// notification to the removed subscriber; under the cooperative
// single-dispatcher contract this does not arise.
func (s Store[M, C]) Unsubscribe(sub Subscription) error {
	if !s.inner.subs.remove(sub) {
		s.inner.logger.Debug("subscription not found", "subscription_id", sub.id)
		return &SubscriptionNotFoundError{ID: sub.id}
	}
	s.inner.logger.Debug("subscriber removed", "subscription_id", sub.id)
	return nil
}

// SubscriberCount returns the number of registered subscribers. Used for
// introspection and tests.
func (s Store[M, C]) SubscriberCount() int {
	return s.inner.subs.size()
}

// Write calls fn with the core while holding the state lock exclusively,
// without notifying subscribers. It exists for tests that seed state before
// the flow under test begins; application mutations go through Send.
func (s Store[M, C]) Write(fn func(core C)) {
	st := s.inner
	st.mu.Lock()
	defer st.mu.Unlock()
	fn(st.core)
}
