package memory

import (
	"context"
	"testing"
	"time"

	"github.com/dsm1918/cms-client-go/broadcast"
	"github.com/dsm1918/cms-client-go/broadcast/broadcasttest"
)

func TestMemoryBroadcaster(t *testing.T) {
	broadcasttest.RunBroadcasterTests(t, func(t *testing.T) broadcast.Broadcaster {
		return New()
	})
}

func TestSlowSubscriberDoesNotBlockAnnounce(t *testing.T) {
	b := New()
	defer b.Close()

	sub, err := b.Subscribe()
	if err != nil {
		t.Fatalf("Subscribe() failed: %v", err)
	}
	defer sub.Close()

	// Never drained: repeated announcements must still return promptly.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			if err := b.Announce(context.Background()); err != nil {
				t.Errorf("Announce() failed: %v", err)
				return
			}
		}
	}()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("Announce blocked on an undrained subscriber")
	}

	// The coalesced signal is still observable.
	select {
	case <-sub.C():
	default:
		t.Fatal("no pending signal after announcements")
	}
}
