// Package memory provides an in-process implementation of the
// broadcast.Broadcaster interface using channel fan-out. Sends are
// non-blocking so a slow listener can never stall the auth path.
package memory

import (
	"context"
	"sync"

	"github.com/dsm1918/cms-client-go/broadcast"
)

// Broadcaster implements broadcast.Broadcaster for listeners within the
// same process.
type Broadcaster struct {
	mu     sync.RWMutex
	subs   map[*subscription]struct{}
	closed bool
}

type subscription struct {
	b  *Broadcaster
	ch chan struct{}

	once sync.Once
}

// New creates an in-process broadcaster.
func New() *Broadcaster {
	return &Broadcaster{
		subs: make(map[*subscription]struct{}),
	}
}

// Announce implements broadcast.Broadcaster.Announce.
func (b *Broadcaster) Announce(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil
	}
	for sub := range b.subs {
		select {
		case sub.ch <- struct{}{}:
		default:
			// Channel already holds a pending signal; coalesce.
		}
	}
	return nil
}

// Subscribe implements broadcast.Broadcaster.Subscribe.
func (b *Broadcaster) Subscribe() (broadcast.Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := &subscription{
		b: b,
		// Buffered so Announce never blocks; coalescing is fine because
		// listeners re-read the store rather than counting signals.
		ch: make(chan struct{}, 1),
	}
	if b.closed {
		// Through the once so a later Subscription.Close stays safe.
		sub.once.Do(func() { close(sub.ch) })
		return sub, nil
	}
	b.subs[sub] = struct{}{}
	return sub, nil
}

// Close implements broadcast.Broadcaster.Close.
func (b *Broadcaster) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	subs := b.subs
	b.subs = nil
	b.mu.Unlock()

	for sub := range subs {
		sub.once.Do(func() { close(sub.ch) })
	}
	return nil
}

// C implements broadcast.Subscription.C.
func (s *subscription) C() <-chan struct{} {
	return s.ch
}

// Close implements broadcast.Subscription.Close.
func (s *subscription) Close() error {
	s.b.mu.Lock()
	if s.b.subs != nil {
		delete(s.b.subs, s)
	}
	s.b.mu.Unlock()

	s.once.Do(func() { close(s.ch) })
	return nil
}

// Compile-time interface checks
var (
	_ broadcast.Broadcaster  = (*Broadcaster)(nil)
	_ broadcast.Subscription = (*subscription)(nil)
)
