// Package broadcast provides the auth-change signal that decouples session
// state writers (the auth manager and the HTTP client's forced-logout path)
// from readers that live outside their ownership tree, such as navigation
// headers and route guards.
package broadcast

import "context"

// Broadcaster fans an auth-change signal out to every live subscription.
// Announce carries no payload: listeners re-read the session store, which
// is guaranteed to be durably updated before Announce is called.
type Broadcaster interface {
	// Announce signals all current subscriptions that session state
	// changed.
	Announce(ctx context.Context) error

	// Subscribe registers a new listener. The caller owns the returned
	// Subscription and must Close it on teardown.
	Subscribe() (Subscription, error)

	// Close tears down the broadcaster and closes every subscription
	// channel.
	Close() error
}

// Subscription is a scoped registration with a Broadcaster. C is closed
// when the subscription or the broadcaster is closed, so ranging over it
// terminates cleanly.
type Subscription interface {
	// C returns the signal channel. Signals may be coalesced under load;
	// a received signal means "state changed at least once".
	C() <-chan struct{}

	// Close releases the subscription. It is safe to call more than once
	// and on all exit paths.
	Close() error
}
