// Package broadcasttest provides a conformance test suite for
// broadcast.Broadcaster implementations.
package broadcasttest

import (
	"context"
	"testing"
	"time"

	"github.com/dsm1918/cms-client-go/broadcast"
)

// BroadcasterFactory is a function that creates a new broadcaster for
// testing.
type BroadcasterFactory func(t *testing.T) broadcast.Broadcaster

// RunBroadcasterTests runs the complete broadcaster test suite against the
// provided factory.
func RunBroadcasterTests(t *testing.T, factory BroadcasterFactory) {
	t.Run("AnnounceReachesAllSubscribers", func(t *testing.T) {
		testAnnounceReachesAllSubscribers(t, factory)
	})
	t.Run("ClosedSubscriptionStopsReceiving", func(t *testing.T) {
		testClosedSubscriptionStopsReceiving(t, factory)
	})
	t.Run("SubscriptionCloseIsIdempotent", func(t *testing.T) {
		testSubscriptionCloseIsIdempotent(t, factory)
	})
	t.Run("AnnounceWithNoSubscribers", func(t *testing.T) {
		testAnnounceWithNoSubscribers(t, factory)
	})
	t.Run("BroadcasterCloseClosesChannels", func(t *testing.T) {
		testBroadcasterCloseClosesChannels(t, factory)
	})
	t.Run("SubscribeAfterCloseIsInert", func(t *testing.T) {
		testSubscribeAfterCloseIsInert(t, factory)
	})
}

func expectSignal(t *testing.T, sub broadcast.Subscription) {
	t.Helper()
	select {
	case _, ok := <-sub.C():
		if !ok {
			t.Fatal("subscription channel closed before signal")
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no signal received")
	}
}

func testAnnounceReachesAllSubscribers(t *testing.T, factory BroadcasterFactory) {
	b := factory(t)
	defer b.Close()

	a, err := b.Subscribe()
	if err != nil {
		t.Fatalf("Subscribe() failed: %v", err)
	}
	defer a.Close()
	c, err := b.Subscribe()
	if err != nil {
		t.Fatalf("Subscribe() failed: %v", err)
	}
	defer c.Close()

	if err := b.Announce(context.Background()); err != nil {
		t.Fatalf("Announce() failed: %v", err)
	}

	expectSignal(t, a)
	expectSignal(t, c)
}

func testClosedSubscriptionStopsReceiving(t *testing.T, factory BroadcasterFactory) {
	b := factory(t)
	defer b.Close()

	sub, err := b.Subscribe()
	if err != nil {
		t.Fatalf("Subscribe() failed: %v", err)
	}
	if err := sub.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}

	if err := b.Announce(context.Background()); err != nil {
		t.Fatalf("Announce() failed: %v", err)
	}

	// The channel must be closed, not carrying a late signal.
	select {
	case _, ok := <-sub.C():
		if ok {
			t.Fatal("closed subscription received a signal")
		}
	case <-time.After(time.Second):
		t.Fatal("closed subscription channel not closed")
	}
}

func testSubscriptionCloseIsIdempotent(t *testing.T, factory BroadcasterFactory) {
	b := factory(t)
	defer b.Close()

	sub, err := b.Subscribe()
	if err != nil {
		t.Fatalf("Subscribe() failed: %v", err)
	}
	if err := sub.Close(); err != nil {
		t.Fatalf("first Close() failed: %v", err)
	}
	if err := sub.Close(); err != nil {
		t.Fatalf("second Close() failed: %v", err)
	}
}

func testAnnounceWithNoSubscribers(t *testing.T, factory BroadcasterFactory) {
	b := factory(t)
	defer b.Close()

	if err := b.Announce(context.Background()); err != nil {
		t.Fatalf("Announce() with no subscribers failed: %v", err)
	}
}

func testSubscribeAfterCloseIsInert(t *testing.T, factory BroadcasterFactory) {
	b := factory(t)
	if err := b.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}

	sub, err := b.Subscribe()
	if err != nil {
		t.Fatalf("Subscribe() after Close failed: %v", err)
	}

	select {
	case _, ok := <-sub.C():
		if ok {
			t.Fatal("subscription on a closed broadcaster delivered a signal")
		}
	default:
		t.Fatal("subscription channel not closed on a closed broadcaster")
	}

	// Close remains safe on all exit paths, including this one.
	if err := sub.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}
	if err := sub.Close(); err != nil {
		t.Fatalf("second Close() failed: %v", err)
	}
}

func testBroadcasterCloseClosesChannels(t *testing.T, factory BroadcasterFactory) {
	b := factory(t)

	sub, err := b.Subscribe()
	if err != nil {
		t.Fatalf("Subscribe() failed: %v", err)
	}
	if err := b.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}

	select {
	case _, ok := <-sub.C():
		if ok {
			t.Fatal("expected closed channel after broadcaster Close")
		}
	case <-time.After(time.Second):
		t.Fatal("subscription channel not closed after broadcaster Close")
	}
}
