// Package authtest provides an in-process fake of the backend's auth
// surface for tests: a login endpoint with configurable rejection shapes
// and a catch-all protected endpoint that enforces the issued bearer
// token.
package authtest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/dsm1918/cms-client-go/session"
)

// RecordedRequest captures the parts of a dispatched request that the
// client wrapper is responsible for.
type RecordedRequest struct {
	Method        string
	Path          string
	Authorization string
	ContentType   string
}

// Backend is a fake CMS backend. The zero value is not usable; construct
// with New.
type Backend struct {
	srv *httptest.Server

	// Accepted credentials and the session they mint.
	Email    string
	Password string
	Token    string
	User     session.UserProfile

	// RejectStatus and RejectBody shape the login failure response.
	RejectStatus int
	RejectBody   string

	mu       sync.Mutex
	requests []RecordedRequest
}

// New starts a fake backend with a default admin account. The server is
// shut down automatically when the test finishes.
func New(t *testing.T) *Backend {
	t.Helper()

	b := &Backend{
		Email:    "admin@dsm1918.de",
		Password: "correct-horse",
		Token:    "test-token-abc123",
		User: session.UserProfile{
			ID:    1,
			Email: "admin@dsm1918.de",
			Roles: []string{session.RoleAdmin},
		},
		RejectStatus: http.StatusUnauthorized,
		RejectBody:   `{"error":"Invalid credentials"}`,
	}
	b.srv = httptest.NewServer(http.HandlerFunc(b.handle))
	t.Cleanup(b.srv.Close)
	return b
}

// URL returns the backend's base URL.
func (b *Backend) URL() string {
	return b.srv.URL
}

// Requests returns a snapshot of every request observed so far.
func (b *Backend) Requests() []RecordedRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]RecordedRequest, len(b.requests))
	copy(out, b.requests)
	return out
}

// LastRequest returns the most recent request, failing the test when none
// was observed.
func (b *Backend) LastRequest(t *testing.T) RecordedRequest {
	t.Helper()
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.requests) == 0 {
		t.Fatal("no requests observed")
	}
	return b.requests[len(b.requests)-1]
}

func (b *Backend) record(r *http.Request) {
	b.mu.Lock()
	b.requests = append(b.requests, RecordedRequest{
		Method:        r.Method,
		Path:          r.URL.Path,
		Authorization: r.Header.Get("Authorization"),
		ContentType:   r.Header.Get("Content-Type"),
	})
	b.mu.Unlock()
}

func (b *Backend) handle(w http.ResponseWriter, r *http.Request) {
	b.record(r)

	if r.Method == http.MethodPost && r.URL.Path == "/api/auth/login" {
		b.handleLogin(w, r)
		return
	}

	// Everything else is a protected endpoint: the issued token is the
	// only accepted credential.
	if r.Header.Get("Authorization") != "Bearer "+b.Token {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"unauthorized"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"ok":true}`))
}

func (b *Backend) handleLogin(w http.ResponseWriter, r *http.Request) {
	var creds struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message":"malformed request"}`))
		return
	}

	if creds.Email != b.Email || creds.Password != b.Password {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(b.RejectStatus)
		w.Write([]byte(b.RejectBody))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"token": b.Token,
		"user":  b.User,
	})
}
