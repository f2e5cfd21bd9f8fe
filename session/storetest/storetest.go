// Package storetest provides a conformance test suite for session.Store
// implementations. Each implementation package runs the suite against a
// factory producing a fresh, empty store.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dsm1918/cms-client-go/session"
)

// StoreFactory is a function that creates a new, empty store for testing.
type StoreFactory func(t *testing.T) session.Store

// RunStoreTests runs the complete store test suite against the provided
// factory.
func RunStoreTests(t *testing.T, factory StoreFactory) {
	t.Run("LoadEmpty", func(t *testing.T) {
		testLoadEmpty(t, factory)
	})
	t.Run("SaveAndLoadRoundTrip", func(t *testing.T) {
		testSaveAndLoadRoundTrip(t, factory)
	})
	t.Run("SaveRejectsIncompletePair", func(t *testing.T) {
		testSaveRejectsIncompletePair(t, factory)
	})
	t.Run("OverwriteReplacesWholesale", func(t *testing.T) {
		testOverwriteReplacesWholesale(t, factory)
	})
	t.Run("ClearRemovesBoth", func(t *testing.T) {
		testClearRemovesBoth(t, factory)
	})
	t.Run("ClearIsIdempotent", func(t *testing.T) {
		testClearIsIdempotent(t, factory)
	})
	t.Run("LoadedProfileIsIsolated", func(t *testing.T) {
		testLoadedProfileIsIsolated(t, factory)
	})
	t.Run("WatchObservesMutations", func(t *testing.T) {
		testWatchObservesMutations(t, factory)
	})
}

func adminSession(token string) session.Session {
	return session.Session{
		Token: token,
		User: &session.UserProfile{
			ID:    1,
			Email: "admin@dsm1918.de",
			Roles: []string{session.RoleAdmin},
		},
	}
}

func testLoadEmpty(t *testing.T, factory StoreFactory) {
	s := factory(t)
	defer s.Close()

	got, err := s.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if got.Authenticated() {
		t.Fatalf("empty store reports authenticated: %+v", got)
	}
	if got.Token != "" || got.User != nil {
		t.Fatalf("empty store returned non-zero session: %+v", got)
	}
}

func testSaveAndLoadRoundTrip(t *testing.T, factory StoreFactory) {
	s := factory(t)
	defer s.Close()

	ctx := context.Background()
	want := adminSession("abc123")

	if err := s.Save(ctx, want); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	got, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if !got.Authenticated() {
		t.Fatal("saved session not reported as authenticated")
	}
	if got.Token != want.Token {
		t.Fatalf("Token = %q, want %q", got.Token, want.Token)
	}
	if got.User == nil || got.User.Email != want.User.Email || got.User.ID != want.User.ID {
		t.Fatalf("User = %+v, want %+v", got.User, want.User)
	}
	if !got.User.IsAdmin() {
		t.Fatalf("IsAdmin() = false for roles %v", got.User.Roles)
	}
}

func testSaveRejectsIncompletePair(t *testing.T, factory StoreFactory) {
	s := factory(t)
	defer s.Close()

	ctx := context.Background()

	err := s.Save(ctx, session.Session{Token: "tok-only"})
	if !errors.Is(err, session.ErrIncomplete) {
		t.Fatalf("Save(token only) = %v, want ErrIncomplete", err)
	}
	err = s.Save(ctx, session.Session{User: &session.UserProfile{ID: 1, Email: "a@b.com"}})
	if !errors.Is(err, session.ErrIncomplete) {
		t.Fatalf("Save(user only) = %v, want ErrIncomplete", err)
	}

	got, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if got.Token != "" || got.User != nil {
		t.Fatalf("rejected Save mutated the store: %+v", got)
	}
}

func testOverwriteReplacesWholesale(t *testing.T, factory StoreFactory) {
	s := factory(t)
	defer s.Close()

	ctx := context.Background()
	if err := s.Save(ctx, adminSession("first")); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	second := session.Session{
		Token: "second",
		User:  &session.UserProfile{ID: 2, Email: "editor@dsm1918.de", Roles: []string{"ROLE_EDITOR"}},
	}
	if err := s.Save(ctx, second); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	got, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if got.Token != "second" {
		t.Fatalf("Token = %q, want %q", got.Token, "second")
	}
	if got.User.IsAdmin() {
		t.Fatalf("stale admin role survived overwrite: %v", got.User.Roles)
	}
}

func testClearRemovesBoth(t *testing.T, factory StoreFactory) {
	s := factory(t)
	defer s.Close()

	ctx := context.Background()
	if err := s.Save(ctx, adminSession("abc123")); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}
	if err := s.Clear(ctx); err != nil {
		t.Fatalf("Clear() failed: %v", err)
	}

	got, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if got.Token != "" || got.User != nil {
		t.Fatalf("Clear left state behind: %+v", got)
	}
}

func testClearIsIdempotent(t *testing.T, factory StoreFactory) {
	s := factory(t)
	defer s.Close()

	ctx := context.Background()
	if err := s.Clear(ctx); err != nil {
		t.Fatalf("Clear() on empty store failed: %v", err)
	}
	if err := s.Save(ctx, adminSession("abc123")); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}
	if err := s.Clear(ctx); err != nil {
		t.Fatalf("Clear() failed: %v", err)
	}
	if err := s.Clear(ctx); err != nil {
		t.Fatalf("second Clear() failed: %v", err)
	}

	got, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if got.Authenticated() {
		t.Fatalf("store authenticated after double Clear: %+v", got)
	}
}

func testLoadedProfileIsIsolated(t *testing.T, factory StoreFactory) {
	s := factory(t)
	defer s.Close()

	ctx := context.Background()
	if err := s.Save(ctx, adminSession("abc123")); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	first, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	first.User.Email = "mutated@example.com"
	first.User.Roles[0] = "ROLE_NOBODY"

	second, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if second.User.Email != "admin@dsm1918.de" {
		t.Fatalf("caller mutation leaked into store: %+v", second.User)
	}
	if !second.User.IsAdmin() {
		t.Fatalf("caller mutation leaked into stored roles: %v", second.User.Roles)
	}
}

func testWatchObservesMutations(t *testing.T, factory StoreFactory) {
	s := factory(t)
	defer s.Close()

	w, ok := s.(session.Watcher)
	if !ok {
		t.Skip("store does not implement session.Watcher")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ch, err := w.Watch(ctx)
	if err != nil {
		t.Fatalf("Watch() failed: %v", err)
	}

	if err := s.Save(ctx, adminSession("abc123")); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}
	waitSignal(t, ch, "Save")

	if err := s.Clear(ctx); err != nil {
		t.Fatalf("Clear() failed: %v", err)
	}
	waitSignal(t, ch, "Clear")
}

func waitSignal(t *testing.T, ch <-chan struct{}, op string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(3 * time.Second):
		t.Fatalf("no watch signal observed after %s", op)
	}
}
