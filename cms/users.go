package cms

import (
	"context"
	"fmt"

	"github.com/dsm1918/cms-client-go/api"
	"github.com/dsm1918/cms-client-go/session"
)

// UsersService calls the /api/users endpoints.
type UsersService struct {
	client *api.Client
}

// NewUsersService creates a users client over c.
func NewUsersService(c *api.Client) *UsersService {
	return &UsersService{client: c}
}

// Profile returns the server's view of the current user, which is
// authoritative where the stored session profile is only advisory.
func (s *UsersService) Profile(ctx context.Context) (*session.UserProfile, error) {
	var out session.UserProfile
	if err := s.client.Get(ctx, "/api/users/profile", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Get returns a user by id. Admin only.
func (s *UsersService) Get(ctx context.Context, id int64) (*session.UserProfile, error) {
	var out session.UserProfile
	if err := s.client.Get(ctx, fmt.Sprintf("/api/users/%d", id), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// List returns all users. Admin only.
func (s *UsersService) List(ctx context.Context) ([]session.UserProfile, error) {
	var out []session.UserProfile
	if err := s.client.Get(ctx, "/api/users", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Registrations lists a user's event sign-ups.
func (s *UsersService) Registrations(ctx context.Context, userID int64) ([]EventRegistration, error) {
	var out []EventRegistration
	if err := s.client.Get(ctx, fmt.Sprintf("/api/users/%d/registrations", userID), &out); err != nil {
		return nil, err
	}
	return out, nil
}
