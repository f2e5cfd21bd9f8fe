package auth_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/dsm1918/cms-client-go/api"
	"github.com/dsm1918/cms-client-go/auth"
	"github.com/dsm1918/cms-client-go/auth/authtest"
	bcastmem "github.com/dsm1918/cms-client-go/broadcast/memory"
	"github.com/dsm1918/cms-client-go/session"
	sessmem "github.com/dsm1918/cms-client-go/session/memory"
)

type fixture struct {
	backend *authtest.Backend
	client  *api.Client
	store   *sessmem.Store
	bcast   *bcastmem.Broadcaster
	mgr     *auth.Manager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	backend := authtest.New(t)
	store := sessmem.New()
	bcast := bcastmem.New()
	t.Cleanup(func() {
		store.Close()
		bcast.Close()
	})

	client, err := api.New(backend.URL(), store, bcast)
	if err != nil {
		t.Fatalf("api.New: %v", err)
	}
	t.Cleanup(func() { client.Close() })

	return &fixture{
		backend: backend,
		client:  client,
		store:   store,
		bcast:   bcast,
		mgr:     auth.New(client, store, bcast),
	}
}

func (f *fixture) login(t *testing.T) session.Session {
	t.Helper()
	sess, err := f.mgr.Login(context.Background(), auth.Credentials{
		Email:    f.backend.Email,
		Password: f.backend.Password,
	})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	return sess
}

func expectSignal(t *testing.T, c <-chan struct{}, what string) {
	t.Helper()
	select {
	case <-c:
	case <-time.After(2 * time.Second):
		t.Fatalf("no announcement after %s", what)
	}
}

func expectNoSignal(t *testing.T, c <-chan struct{}, what string) {
	t.Helper()
	select {
	case <-c:
		t.Fatalf("unexpected announcement after %s", what)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestLoginPersistsSessionAndAnnounces(t *testing.T) {
	f := newFixture(t)

	sub, err := f.mgr.Subscribe()
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer sub.Close()

	sess := f.login(t)

	if sess.Token != f.backend.Token {
		t.Fatalf("Token = %q, want %q", sess.Token, f.backend.Token)
	}
	if sess.User == nil || sess.User.Email != f.backend.Email {
		t.Fatalf("User = %+v, want the backend's profile", sess.User)
	}

	stored, err := f.store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if stored.Token != f.backend.Token || stored.User == nil {
		t.Fatalf("stored session incomplete: %+v", stored)
	}

	expectSignal(t, sub.C(), "login")
}

func TestLoginRejectionLeavesStoreUntouched(t *testing.T) {
	f := newFixture(t)

	sub, err := f.mgr.Subscribe()
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer sub.Close()

	_, err = f.mgr.Login(context.Background(), auth.Credentials{
		Email:    f.backend.Email,
		Password: "wrong",
	})
	var rej *auth.RejectedError
	if !errors.As(err, &rej) {
		t.Fatalf("Login error = %v, want *RejectedError", err)
	}
	if rej.Status != http.StatusUnauthorized {
		t.Fatalf("Status = %d, want 401", rej.Status)
	}
	if rej.Message != "Invalid credentials" {
		t.Fatalf("Message = %q, want the server's rejection message", rej.Message)
	}

	stored, err := f.store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if stored.Authenticated() {
		t.Fatal("rejected login left a session behind")
	}

	expectNoSignal(t, sub.C(), "rejected login")
}

func TestLoginRejectionShapes(t *testing.T) {
	f := newFixture(t)
	f.backend.RejectStatus = http.StatusBadRequest
	f.backend.RejectBody = `{"message":"Email already registered"}`

	_, err := f.mgr.Login(context.Background(), auth.Credentials{
		Email:    "someone@dsm1918.de",
		Password: "whatever",
	})
	var rej *auth.RejectedError
	if !errors.As(err, &rej) {
		t.Fatalf("Login error = %v, want *RejectedError", err)
	}
	if rej.Status != http.StatusBadRequest || rej.Message != "Email already registered" {
		t.Fatalf("got %d %q", rej.Status, rej.Message)
	}
}

func TestSubsequentRequestsCarryTheToken(t *testing.T) {
	f := newFixture(t)
	f.login(t)

	if err := f.client.Get(context.Background(), "/api/contact/unread-count", nil); err != nil {
		t.Fatalf("Get after login: %v", err)
	}
	if got := f.backend.LastRequest(t).Authorization; got != "Bearer "+f.backend.Token {
		t.Fatalf("Authorization = %q, want the login token", got)
	}
}

func TestLogoutClearsAndAnnouncesEveryTime(t *testing.T) {
	f := newFixture(t)
	f.login(t)

	sub, err := f.mgr.Subscribe()
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer sub.Close()

	if err := f.mgr.Logout(context.Background()); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	expectSignal(t, sub.C(), "first logout")

	ok, err := f.mgr.IsAuthenticated(context.Background())
	if err != nil {
		t.Fatalf("IsAuthenticated: %v", err)
	}
	if ok {
		t.Fatal("still authenticated after logout")
	}

	// A second logout with nothing stored still announces, so listeners
	// re-derive their state on every call.
	if err := f.mgr.Logout(context.Background()); err != nil {
		t.Fatalf("second Logout: %v", err)
	}
	expectSignal(t, sub.C(), "second logout")
}

func TestAdminDerivedFromStoreOnEveryCall(t *testing.T) {
	f := newFixture(t)
	f.login(t)

	ok, err := f.mgr.IsAdmin(context.Background())
	if err != nil {
		t.Fatalf("IsAdmin: %v", err)
	}
	if !ok {
		t.Fatal("backend's admin profile not recognized as admin")
	}

	// Swap in a non-admin profile behind the facade's back; the answer
	// must track the store, not a cached flag.
	member := session.Session{
		Token: f.backend.Token,
		User:  &session.UserProfile{ID: 2, Email: "member@dsm1918.de", Roles: []string{"ROLE_USER"}},
	}
	if err := f.store.Save(context.Background(), member); err != nil {
		t.Fatalf("Save: %v", err)
	}

	ok, err = f.mgr.IsAdmin(context.Background())
	if err != nil {
		t.Fatalf("IsAdmin: %v", err)
	}
	if ok {
		t.Fatal("IsAdmin answered from stale state")
	}
}

func TestCurrentUserNilWhenLoggedOut(t *testing.T) {
	f := newFixture(t)

	user, err := f.mgr.CurrentUser(context.Background())
	if err != nil {
		t.Fatalf("CurrentUser: %v", err)
	}
	if user != nil {
		t.Fatalf("CurrentUser = %+v, want nil", user)
	}

	ok, err := f.mgr.IsAdmin(context.Background())
	if err != nil {
		t.Fatalf("IsAdmin: %v", err)
	}
	if ok {
		t.Fatal("logged-out state reported as admin")
	}
}
