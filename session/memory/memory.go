// Package memory provides an in-memory implementation of the session.Store
// interface. It is suitable for tests and for embedding the client in a
// process that does not need the session to survive restarts.
package memory

import (
	"context"
	"sync"

	"github.com/dsm1918/cms-client-go/session"
)

// Store implements session.Store backed by process memory. It also
// implements session.Watcher so in-process collaborators can observe
// mutations made through the same instance.
type Store struct {
	mu       sync.RWMutex
	current  session.Session
	watchers map[chan struct{}]struct{}
	closed   bool
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		watchers: make(map[chan struct{}]struct{}),
	}
}

// Load implements session.Store.Load.
func (s *Store) Load(ctx context.Context) (session.Session, error) {
	if err := ctx.Err(); err != nil {
		return session.Session{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	cur := s.current
	if cur.User != nil {
		// Copy so callers cannot mutate the stored profile in place.
		u := *cur.User
		u.Roles = append([]string(nil), cur.User.Roles...)
		cur.User = &u
	}
	return cur, nil
}

// Save implements session.Store.Save.
func (s *Store) Save(ctx context.Context, sess session.Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := session.Validate(sess); err != nil {
		return err
	}

	u := *sess.User
	u.Roles = append([]string(nil), sess.User.Roles...)
	sess.User = &u

	s.mu.Lock()
	s.current = sess
	s.mu.Unlock()

	s.notify()
	return nil
}

// Clear implements session.Store.Clear.
func (s *Store) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	changed := s.current.Token != "" || s.current.User != nil
	s.current = session.Session{}
	s.mu.Unlock()

	if changed {
		s.notify()
	}
	return nil
}

// Close implements session.Store.Close.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	for ch := range s.watchers {
		close(ch)
	}
	s.watchers = nil
	return nil
}

// Watch implements session.Watcher. The returned channel receives a signal
// after each mutation and is closed when ctx is cancelled or the store is
// closed.
func (s *Store) Watch(ctx context.Context) (<-chan struct{}, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		ch := make(chan struct{})
		close(ch)
		return ch, nil
	}
	// Buffered so a slow consumer coalesces signals instead of blocking
	// writers; sends are non-blocking anyway.
	ch := make(chan struct{}, 1)
	s.watchers[ch] = struct{}{}
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		if _, ok := s.watchers[ch]; ok {
			delete(s.watchers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}()

	return ch, nil
}

func (s *Store) notify() {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for ch := range s.watchers {
		select {
		case ch <- struct{}{}:
		default:
			// Watcher is backed up; it will observe the latest state on
			// its next Load anyway.
		}
	}
}

// Compile-time interface checks
var (
	_ session.Store   = (*Store)(nil)
	_ session.Watcher = (*Store)(nil)
)
