// Package auth is the only sanctioned entry point for changing
// authentication state. Login writes the token/user pair to the session
// store as one logical transaction and announces the change; logout clears
// and announces unconditionally. Everything else in the module reads auth
// state through this facade or reacts to its broadcast.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dsm1918/cms-client-go/api"
	"github.com/dsm1918/cms-client-go/broadcast"
	"github.com/dsm1918/cms-client-go/session"
)

const loginPath = "/api/auth/login"
const registerPath = "/api/auth/register"

// Credentials are the login form fields.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RejectedError indicates the server rejected a login attempt. Message is
// normalized from the server's error shape and is always non-empty; the
// error is recoverable and meant for inline display on the login form.
type RejectedError struct {
	Status  int
	Message string
}

func (e *RejectedError) Error() string {
	return e.Message
}

// loginResponse mirrors the login endpoint's success payload.
type loginResponse struct {
	Token string               `json:"token"`
	User  *session.UserProfile `json:"user"`
}

// Manager implements the auth facade over the HTTP client and session
// store.
type Manager struct {
	client    *api.Client
	store     session.Store
	announcer broadcast.Broadcaster
	log       *slog.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger used for auth state transitions.
func WithLogger(log *slog.Logger) Option {
	return func(m *Manager) { m.log = log }
}

// New creates the auth facade. The store and announcer must be the same
// instances the api.Client was built with, so the 401 forced-logout path
// and the facade agree on state.
func New(client *api.Client, store session.Store, announcer broadcast.Broadcaster, opts ...Option) *Manager {
	m := &Manager{
		client:    client,
		store:     store,
		announcer: announcer,
		log:       slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Login sends the credentials to the authentication endpoint. On success
// the returned token and profile are persisted as a single Save, then the
// change is announced. On rejection it returns a *RejectedError carrying a
// normalized message and leaves the store untouched. Connectivity failures
// pass through as *api.ConnectivityError.
func (m *Manager) Login(ctx context.Context, creds Credentials) (session.Session, error) {
	var res loginResponse
	// A 401 here is a credential rejection, not an expired session, so
	// the uniform forced-logout reaction is disabled for this one call.
	err := m.client.Post(ctx, loginPath, creds, &res, api.WithoutSessionReaction())
	if err != nil {
		var ve *api.ValidationError
		if errors.As(err, &ve) {
			return session.Session{}, &RejectedError{Status: ve.Status, Message: ve.Message}
		}
		return session.Session{}, err
	}

	if res.Token == "" || res.User == nil {
		return session.Session{}, fmt.Errorf("auth: malformed login response: token or user missing")
	}

	sess := session.Session{Token: res.Token, User: res.User}
	if err := m.store.Save(ctx, sess); err != nil {
		return session.Session{}, fmt.Errorf("auth: persist session: %w", err)
	}
	if err := m.announcer.Announce(ctx); err != nil {
		m.log.WarnContext(ctx, "auth change announcement failed", slog.Any("error", err))
	}
	m.log.InfoContext(ctx, "login succeeded", slog.String("user", res.User.Email))
	return sess, nil
}

// Logout clears the session and announces the change. It is always locally
// satisfiable: no network call is made, and it announces even when the
// store was already empty so listeners re-derive their state on every
// call.
func (m *Manager) Logout(ctx context.Context) error {
	if err := m.store.Clear(ctx); err != nil {
		return fmt.Errorf("auth: clear session: %w", err)
	}
	if err := m.announcer.Announce(ctx); err != nil {
		m.log.WarnContext(ctx, "auth change announcement failed", slog.Any("error", err))
	}
	m.log.InfoContext(ctx, "logged out")
	return nil
}

// Register creates a new account. Errors pass through for the calling form
// to interpret.
func (m *Manager) Register(ctx context.Context, creds Credentials) error {
	return m.client.Post(ctx, registerPath, creds, nil, api.WithoutSessionReaction())
}

// CurrentUser returns the stored profile, or nil when logged out. The
// profile is advisory display data; it may be stale relative to
// server-side permission state.
func (m *Manager) CurrentUser(ctx context.Context) (*session.UserProfile, error) {
	sess, err := m.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	return sess.User, nil
}

// IsAuthenticated reports whether a token is present.
func (m *Manager) IsAuthenticated(ctx context.Context) (bool, error) {
	sess, err := m.store.Load(ctx)
	if err != nil {
		return false, err
	}
	return sess.Authenticated(), nil
}

// IsAdmin reports whether the current profile carries the admin role. It
// re-derives the answer from the store on every call; nothing caches it.
func (m *Manager) IsAdmin(ctx context.Context) (bool, error) {
	sess, err := m.store.Load(ctx)
	if err != nil {
		return false, err
	}
	return sess.User.IsAdmin(), nil
}

// Subscribe registers a listener on the auth change broadcast. The caller
// must Close the subscription on teardown.
func (m *Manager) Subscribe() (broadcast.Subscription, error) {
	return m.announcer.Subscribe()
}
