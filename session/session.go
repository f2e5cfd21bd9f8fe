// Package session defines the client-held authentication state and the
// Store interface for persisting it. A Session pairs the bearer token with
// the profile the backend returned at login; the token's presence is the
// single source of truth for "is a user logged in".
package session

import (
	"context"
	"errors"
)

// RoleAdmin is the role string the backend attaches to administrator
// accounts.
const RoleAdmin = "ROLE_ADMIN"

// UserProfile is the display-oriented profile returned by the login
// endpoint. It is replaced wholesale on every login and may be stale
// relative to server-side permission state.
type UserProfile struct {
	ID    int64    `json:"id"`
	Email string   `json:"email"`
	Roles []string `json:"roles"`
}

// HasRole reports whether the profile carries the named role.
func (u *UserProfile) HasRole(role string) bool {
	if u == nil {
		return false
	}
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// IsAdmin reports whether the profile carries the admin role. It is derived
// from Roles on every call; callers must not cache the result across auth
// changes.
func (u *UserProfile) IsAdmin() bool {
	return u.HasRole(RoleAdmin)
}

// Session is the client-held proof of authentication. A zero Session means
// "not logged in"; Token and User are always set and cleared together.
type Session struct {
	Token string
	User  *UserProfile
}

// Authenticated reports whether a token is present.
func (s Session) Authenticated() bool {
	return s.Token != ""
}

// ErrIncomplete is returned by Save when the caller attempts to persist a
// token without a user or vice versa. The pair invariant is enforced at the
// boundary so no reader can ever observe half a login.
var ErrIncomplete = errors.New("session: token and user must be set together")

// Store is durable key-value persistence for the current Session. An empty
// Session from Load is a valid, expected state, not a fault.
//
// Implementations must make Save atomic from the caller's perspective: a
// concurrent Load returns either the prior pair or the new pair, never a
// mix. Clear is idempotent.
type Store interface {
	// Load returns the current session snapshot. A zero Session means no
	// user is logged in.
	Load(ctx context.Context) (Session, error)

	// Save persists the token and user as a single logical write,
	// overwriting any prior value. Saving a session with only one of the
	// pair set returns ErrIncomplete.
	Save(ctx context.Context, s Session) error

	// Clear removes both values. Clearing an already-empty store is a
	// no-op.
	Clear(ctx context.Context) error

	// Close releases resources held by the store.
	Close() error
}

// Watcher is an optional interface a Store may implement to surface
// best-effort change notifications from the storage medium itself, e.g.
// another process writing the same file or redis key. Delivery is not
// guaranteed synchronous with the mutation.
type Watcher interface {
	// Watch returns a channel that receives a signal after the stored
	// session changes. The channel is closed when ctx is cancelled or the
	// store is closed.
	Watch(ctx context.Context) (<-chan struct{}, error)
}

// Validate checks the pair invariant for a session about to be saved.
func Validate(s Session) error {
	if s.Token == "" || s.User == nil {
		return ErrIncomplete
	}
	return nil
}
